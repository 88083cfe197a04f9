// Package l1 implements the direct-mapped, write-back L1 cache
// controller. Tag, valid, and dirty state lives in an Akita cache
// directory with one way per set; the controller sequences CPU service,
// victim cache interaction, and memory refill.
package l1

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/vcsim/timing/wire"
)

// State enumerates the controller states.
type State int

// Controller states. A hit takes Lookup then Respond; a miss probes the
// victim cache, evicts the current occupant if any, installs from the
// probe line or a memory refill, and responds.
const (
	StateIdle State = iota
	StateLookup
	StateProbe
	StateProbeWait
	StateAfterVC
	StateEvict
	StateEvictWait
	StateRefill
	StateMemWait
	StateInstall
	StateRespond
)

// String returns the state name for trace output.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLookup:
		return "Lookup"
	case StateProbe:
		return "Probe"
	case StateProbeWait:
		return "ProbeWait"
	case StateAfterVC:
		return "AfterVC"
	case StateEvict:
		return "Evict"
	case StateEvictWait:
		return "EvictWait"
	case StateRefill:
		return "Refill"
	case StateMemWait:
		return "MemWait"
	case StateInstall:
		return "Install"
	case StateRespond:
		return "Respond"
	default:
		return "Unknown"
	}
}

// Stats holds L1 statistics.
type Stats struct {
	// Reads is the number of CPU read requests accepted.
	Reads uint64
	// Writes is the number of CPU write requests accepted.
	Writes uint64
	// Hits is the number of requests served from L1.
	Hits uint64
	// Misses is the number of requests that missed in L1.
	Misses uint64
	// Evictions is the number of lines relocated to the victim cache.
	Evictions uint64
	// VCHits is the number of misses served by the victim cache.
	VCHits uint64
	// Refills is the number of lines fetched from memory.
	Refills uint64
}

// Inputs carries the signals sampled by the controller on a clock edge.
type Inputs struct {
	CPU       wire.CPURequest
	VCReady   bool
	ProbeResp wire.ProbeResponse
	EvictAck  bool
	MemResp   wire.MemResponse
}

// Outputs carries the signals the controller drives during a cycle.
// Probe, Evict, and MemReq are levels held until the matching completion
// pulse; CPUResp is a one-cycle pulse.
type Outputs struct {
	Busy    bool
	CPUResp wire.CPUResponse
	Probe   wire.ProbeRequest
	Evict   wire.EvictRequest
	MemReq  wire.MemRequest
}

// Controller is the L1 cache state machine.
type Controller struct {
	directory *akitacache.DirectoryImpl

	// Line storage, indexed by setID*associativity+wayID.
	lines [][]byte

	numSets   int
	lineBytes int

	state State

	// Current request, latched once in Idle and held until Respond.
	req      wire.CPURequest
	lineAddr uint64

	// Directory block for the request's set.
	slot *akitacache.Block

	// Old occupant of the target slot, captured once at Lookup so the
	// eviction never re-reads storage mid-sequence.
	victimTag   uint64
	victimLine  []byte
	victimValid bool
	victimDirty bool

	// Victim cache probe response, sampled exactly once.
	vcHit   bool
	vcDirty bool
	vcLine  []byte

	// Refill line from memory.
	memLine []byte

	respData uint32
	cpuResp  wire.CPUResponse

	stats Stats
}

// directMapped is the associativity of the L1: each address maps to
// exactly one slot.
const directMapped = 1

// NewController creates an L1 controller with numSets direct-mapped sets
// of lineBytes each.
func NewController(numSets, lineBytes int) *Controller {
	lines := make([][]byte, numSets*directMapped)
	for i := range lines {
		lines[i] = make([]byte, lineBytes)
	}

	return &Controller{
		directory: akitacache.NewDirectory(
			numSets,
			directMapped,
			lineBytes,
			akitacache.NewLRUVictimFinder(),
		),
		lines:     lines,
		numSets:   numSets,
		lineBytes: lineBytes,
	}
}

// Reset invalidates every line and returns the controller to Idle.
func (c *Controller) Reset() {
	c.directory.Reset()
	for i := range c.lines {
		for j := range c.lines[i] {
			c.lines[i][j] = 0
		}
	}
	c.state = StateIdle
	c.req = wire.CPURequest{}
	c.slot = nil
	c.cpuResp = wire.CPUResponse{}
	c.stats = Stats{}
}

// State returns the current controller state.
func (c *Controller) State() State {
	return c.state
}

// Busy reports whether a request is being serviced.
func (c *Controller) Busy() bool {
	return c.state != StateIdle
}

// Stats returns the accumulated statistics.
func (c *Controller) Stats() Stats {
	return c.stats
}

// LineAlign returns the line-aligned address, the combined tag+index key
// used for victim cache probes.
func (c *Controller) LineAlign(addr uint64) uint64 {
	return addr &^ uint64(c.lineBytes-1)
}

// blockIndex computes the index into lines for a directory block.
func (c *Controller) blockIndex(block *akitacache.Block) int {
	return block.SetID*directMapped + block.WayID
}

// Outputs computes the signals driven during the current cycle: all
// defaults first, then state-specific overrides.
func (c *Controller) Outputs() Outputs {
	out := Outputs{
		Busy:    c.state != StateIdle,
		CPUResp: c.cpuResp,
		Probe:   wire.ProbeRequest{},
		Evict:   wire.EvictRequest{},
		MemReq:  wire.MemRequest{},
	}

	switch c.state {
	case StateProbeWait:
		out.Probe = wire.ProbeRequest{Valid: true, Tag: c.lineAddr}
	case StateEvictWait:
		out.Evict = wire.EvictRequest{
			Valid: true,
			Tag:   c.victimTag,
			Line:  c.victimLine,
			Dirty: c.victimDirty,
		}
	case StateRefill, StateMemWait:
		out.MemReq = wire.MemRequest{
			Valid:  true,
			Addr:   c.lineAddr,
			Source: wire.SourceL1,
		}
	}

	return out
}

// Tick advances the controller by one clock edge.
func (c *Controller) Tick(in Inputs) {
	respWas := c.cpuResp.Valid
	c.cpuResp = wire.CPUResponse{}

	switch c.state {
	case StateIdle:
		// The requester still holds its request during the response
		// pulse cycle; do not re-accept it.
		if in.CPU.Valid && !respWas {
			c.req = in.CPU
			c.lineAddr = c.LineAlign(in.CPU.Addr)
			if in.CPU.IsWrite {
				c.stats.Writes++
			} else {
				c.stats.Reads++
			}
			c.state = StateLookup
		}

	case StateLookup:
		block := c.directory.Lookup(0, c.lineAddr)
		if block != nil && block.IsValid {
			c.stats.Hits++
			c.directory.Visit(block)
			line := c.lines[c.blockIndex(block)]
			offset := c.req.Addr - c.lineAddr
			if c.req.IsWrite {
				storeWord(line, offset, c.req.Data)
				block.IsDirty = true
				c.respData = c.req.Data
			} else {
				c.respData = readWord(line, offset)
			}
			c.state = StateRespond
			return
		}

		c.stats.Misses++
		victim := c.directory.FindVictim(c.lineAddr)
		c.slot = victim
		c.victimTag = victim.Tag
		c.victimValid = victim.IsValid
		c.victimDirty = victim.IsDirty
		c.victimLine = cloneLine(c.lines[c.blockIndex(victim)])
		c.state = StateProbe

	case StateProbe:
		// Back-pressure: the probe may only be asserted while the VC is
		// ready.
		if in.VCReady {
			c.state = StateProbeWait
		}

	case StateProbeWait:
		if in.ProbeResp.Valid {
			c.vcHit = in.ProbeResp.Hit
			c.vcDirty = in.ProbeResp.Dirty
			c.vcLine = cloneLine(in.ProbeResp.Line)
			if c.vcHit {
				c.stats.VCHits++
			}
			c.state = StateAfterVC
		}

	case StateAfterVC:
		switch {
		case c.victimValid:
			// A valid occupant must be relocated before the slot is
			// reused, even when it is clean: a dirty line lost here
			// would silently drop modified data.
			c.state = StateEvict
		case c.vcHit:
			c.state = StateInstall
		default:
			c.state = StateRefill
		}

	case StateEvict:
		if in.VCReady {
			c.state = StateEvictWait
		}

	case StateEvictWait:
		if in.EvictAck {
			c.stats.Evictions++
			c.slot.IsValid = false
			c.slot.IsDirty = false
			if c.vcHit {
				c.state = StateInstall
			} else {
				c.state = StateRefill
			}
		}

	case StateRefill:
		c.state = StateMemWait

	case StateMemWait:
		if in.MemResp.Valid && in.MemResp.Source == wire.SourceL1 {
			c.memLine = cloneLine(in.MemResp.Line)
			c.stats.Refills++
			c.state = StateInstall
		}

	case StateInstall:
		line := c.memLine
		dirty := false
		if c.vcHit {
			line = c.vcLine
			dirty = c.vcDirty
		}
		stored := c.lines[c.blockIndex(c.slot)]
		for i := range stored {
			stored[i] = 0
		}
		copy(stored, line)

		offset := c.req.Addr - c.lineAddr
		if c.req.IsWrite {
			// Re-apply the original write to the freshly installed
			// line; this overrides any dirty state inherited from a VC
			// hit.
			storeWord(stored, offset, c.req.Data)
			dirty = true
			c.respData = c.req.Data
		} else {
			c.respData = readWord(stored, offset)
		}

		c.slot.Tag = c.lineAddr
		c.slot.IsValid = true
		c.slot.IsDirty = dirty
		c.directory.Visit(c.slot)
		c.state = StateRespond

	case StateRespond:
		c.cpuResp = wire.CPUResponse{Valid: true, Data: c.respData}
		c.state = StateIdle
	}
}

// readWord extracts the little-endian 32-bit word containing offset.
func readWord(line []byte, offset uint64) uint32 {
	base := int(offset &^ 3)
	if base+4 > len(line) {
		return 0
	}
	return uint32(line[base]) |
		uint32(line[base+1])<<8 |
		uint32(line[base+2])<<16 |
		uint32(line[base+3])<<24
}

// storeWord stores a little-endian 32-bit word at the word containing
// offset.
func storeWord(line []byte, offset uint64, value uint32) {
	base := int(offset &^ 3)
	if base+4 > len(line) {
		return
	}
	line[base] = byte(value)
	line[base+1] = byte(value >> 8)
	line[base+2] = byte(value >> 16)
	line[base+3] = byte(value >> 24)
}

func cloneLine(line []byte) []byte {
	clone := make([]byte, len(line))
	copy(clone, line)
	return clone
}
