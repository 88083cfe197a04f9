// Package trace loads CPU request traces for the hierarchy driver.
//
// The format is one request per line:
//
//	R <addr>
//	W <addr> <value>
//
// Addresses and values may be decimal or 0x-prefixed hex. Blank lines
// and lines starting with # are ignored.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Request is one CPU access from a trace.
type Request struct {
	IsWrite bool
	Addr    uint64
	Data    uint32
}

// Load reads a trace file.
func Load(path string) ([]Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace: %w", err)
	}
	defer f.Close()

	reqs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reqs, nil
}

// Parse reads a trace from r.
func Parse(r io.Reader) ([]Request, error) {
	var reqs []Request

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch strings.ToUpper(fields[0]) {
		case "R":
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: R takes one address", lineNo)
			}
			addr, err := parseNum(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad address %q: %w", lineNo, fields[1], err)
			}
			reqs = append(reqs, Request{Addr: addr})
		case "W":
			if len(fields) != 3 {
				return nil, fmt.Errorf("line %d: W takes an address and a value", lineNo)
			}
			addr, err := parseNum(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad address %q: %w", lineNo, fields[1], err)
			}
			value, err := parseNum(fields[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad value %q: %w", lineNo, fields[2], err)
			}
			if value > 0xFFFFFFFF {
				return nil, fmt.Errorf("line %d: value %#x does not fit in a word", lineNo, value)
			}
			reqs = append(reqs, Request{IsWrite: true, Addr: addr, Data: uint32(value)})
		default:
			return nil, fmt.Errorf("line %d: unknown operation %q", lineNo, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}

	return reqs, nil
}

func parseNum(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), base(s), 64)
}

func base(s string) int {
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		return 16
	}
	return 10
}
