// Package memctrl provides the cycle-level memory controller: a
// fixed-latency request/response-pulse handshake in front of the
// functional backing store.
package memctrl

import (
	"github.com/sarchlab/vcsim/mem"
	"github.com/sarchlab/vcsim/timing/wire"
)

// Stats holds backing-store traffic statistics.
type Stats struct {
	// Reads is the number of line reads serviced.
	Reads uint64
	// Writes is the number of line writes serviced.
	Writes uint64
}

// Inputs carries the arbitrated memory request sampled on a clock edge.
type Inputs struct {
	Req wire.MemRequest
}

// Outputs carries the response pulse driven during a cycle.
type Outputs struct {
	Resp wire.MemResponse
}

// Controller services one backing-store request at a time. A request is
// accepted when the controller is idle, held by the requester until the
// response pulse, and completed after the configured latency. The line
// transfer itself happens on the edge the latency expires, so a
// write-back's data is visible in memory no later than its response
// pulse.
type Controller struct {
	memory *mem.Memory

	readLatency  uint64
	writeLatency uint64
	lineBytes    int

	busy      bool
	remaining uint64
	req       wire.MemRequest

	resp wire.MemResponse

	stats Stats
}

// NewController creates a memory controller over the given store.
// Latencies are in cycles from acceptance to response pulse and must be
// at least 1.
func NewController(memory *mem.Memory, lineBytes int, readLatency, writeLatency uint64) *Controller {
	if readLatency == 0 {
		readLatency = 1
	}
	if writeLatency == 0 {
		writeLatency = 1
	}
	return &Controller{
		memory:       memory,
		readLatency:  readLatency,
		writeLatency: writeLatency,
		lineBytes:    lineBytes,
	}
}

// Busy reports whether a request is in flight.
func (c *Controller) Busy() bool {
	return c.busy
}

// Stats returns the accumulated statistics.
func (c *Controller) Stats() Stats {
	return c.stats
}

// Outputs computes the signals driven during the current cycle.
func (c *Controller) Outputs() Outputs {
	return Outputs{Resp: c.resp}
}

// Tick advances the controller by one clock edge.
func (c *Controller) Tick(in Inputs) {
	respWas := c.resp.Valid
	c.resp = wire.MemResponse{}

	if !c.busy {
		// The previous requester still holds its request during the
		// response pulse cycle; do not re-accept it.
		if in.Req.Valid && !respWas {
			c.busy = true
			c.req = in.Req
			c.req.Line = cloneLine(in.Req.Line)
			if c.req.IsWrite {
				c.remaining = c.writeLatency
			} else {
				c.remaining = c.readLatency
			}
		}
		return
	}

	c.remaining--
	if c.remaining > 0 {
		return
	}

	if c.req.IsWrite {
		c.memory.WriteLine(c.req.Addr, c.req.Line)
		c.stats.Writes++
		c.resp = wire.MemResponse{
			Valid:  true,
			Source: c.req.Source,
		}
	} else {
		c.stats.Reads++
		c.resp = wire.MemResponse{
			Valid:  true,
			Line:   c.memory.ReadLine(c.req.Addr, c.lineBytes),
			Source: c.req.Source,
		}
	}
	c.busy = false
}

func cloneLine(line []byte) []byte {
	if line == nil {
		return nil
	}
	clone := make([]byte, len(line))
	copy(clone, line)
	return clone
}
