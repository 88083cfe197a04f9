package vc

import (
	"github.com/sarchlab/vcsim/timing/wire"
)

// State enumerates the controller states.
type State int

// Controller states. A probe takes ProbeLookup then HitReturn or Miss; an
// install takes EvictCheck, VictimRead, an optional write-back, then
// InstallLine.
const (
	StateIdle State = iota
	StateProbeLookup
	StateHitReturn
	StateMiss
	StateEvictCheck
	StateVictimRead
	StateWBIssue
	StateWBWait
	StateInstallLine
)

// String returns the state name for trace output.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateProbeLookup:
		return "ProbeLookup"
	case StateHitReturn:
		return "HitReturn"
	case StateMiss:
		return "Miss"
	case StateEvictCheck:
		return "EvictCheck"
	case StateVictimRead:
		return "VictimRead"
	case StateWBIssue:
		return "WBIssue"
	case StateWBWait:
		return "WBWait"
	case StateInstallLine:
		return "InstallLine"
	default:
		return "Unknown"
	}
}

// Stats holds victim cache statistics.
type Stats struct {
	// Probes is the number of probe lookups serviced.
	Probes uint64
	// ProbeHits is the number of probes that returned a line.
	ProbeHits uint64
	// ProbeMisses is the number of probes that missed.
	ProbeMisses uint64
	// Installs is the number of lines installed from L1 evictions.
	Installs uint64
	// Writebacks is the number of dirty victim lines written to memory.
	Writebacks uint64
}

// Inputs carries the signals sampled by the controller on a clock edge.
type Inputs struct {
	Probe   wire.ProbeRequest
	Evict   wire.EvictRequest
	MemResp wire.MemResponse
}

// Outputs carries the signals the controller drives during a cycle.
// Ready is a level; ProbeResp and EvictAck are one-cycle pulses; MemReq
// is a level held for the duration of a write-back.
type Outputs struct {
	Ready     bool
	ProbeResp wire.ProbeResponse
	EvictAck  bool
	MemReq    wire.MemRequest
}

// pendingEviction is the single-slot staging record for an L1 install
// request latched while the controller is busy. It is written only by
// the latch step in Tick and cleared only by InstallLine.
type pendingEviction struct {
	Valid bool
	Tag   uint64
	Line  []byte
	Dirty bool
}

// victimCapture holds the replacement victim's state, sampled exactly
// once in VictimRead so the write-back decision and the write-back data
// never re-read storage mid-sequence.
type victimCapture struct {
	Tag   uint64
	Line  []byte
	Valid bool
	Dirty bool
}

// Controller is the victim cache state machine. It owns the tag store,
// the data store, and the per-way age vector. It services one probe or
// one install at a time; probes strictly preempt a latched pending
// install.
type Controller struct {
	tags *TagStore
	data *DataStore
	ages []uint64

	state State

	// probe service registers
	probeTag uint64
	hitWay   int

	// install service registers
	pending   pendingEviction
	targetWay int
	victim    victimCapture

	// registered one-cycle output pulses
	probeResp wire.ProbeResponse
	ackPulse  bool

	stats Stats
}

// NewController creates a victim cache controller with numWays
// fully-associative ways of lineBytes each.
func NewController(numWays, lineBytes int) *Controller {
	c := &Controller{
		tags: NewTagStore(numWays),
		data: NewDataStore(numWays, lineBytes),
		ages: make([]uint64, numWays),
	}
	c.Reset()
	return c
}

// Reset returns the controller and its storage to the power-on state.
func (c *Controller) Reset() {
	c.tags.Reset()
	for way := range c.ages {
		c.ages[way] = 0
		c.data.Clear(way)
	}
	c.state = StateIdle
	c.pending = pendingEviction{}
	c.victim = victimCapture{}
	c.probeResp = wire.ProbeResponse{}
	c.ackPulse = false
	c.stats = Stats{}
}

// State returns the current controller state.
func (c *Controller) State() State {
	return c.state
}

// Stats returns the accumulated statistics.
func (c *Controller) Stats() Stats {
	return c.stats
}

// Tags exposes the tag store for inspection.
func (c *Controller) Tags() *TagStore {
	return c.tags
}

// Age returns the age of a way. Zero means the way is free.
func (c *Controller) Age(way int) uint64 {
	return c.ages[way]
}

// Outputs computes the signals driven during the current cycle: all
// defaults first, then state-specific overrides.
func (c *Controller) Outputs() Outputs {
	out := Outputs{
		Ready:     false,
		ProbeResp: c.probeResp,
		EvictAck:  c.ackPulse,
		MemReq:    wire.MemRequest{},
	}

	switch c.state {
	case StateIdle:
		out.Ready = !c.pending.Valid
	case StateWBIssue, StateWBWait:
		out.MemReq = wire.MemRequest{
			Valid:   true,
			IsWrite: true,
			Addr:    c.victim.Tag,
			Line:    c.victim.Line,
			Source:  wire.SourceVC,
		}
	}

	return out
}

// Tick advances the controller by one clock edge.
func (c *Controller) Tick(in Inputs) {
	// Pulses last exactly one cycle.
	probeRespWas := c.probeResp.Valid
	ackWas := c.ackPulse
	c.probeResp = wire.ProbeResponse{}
	c.ackPulse = false

	// Latch an incoming install request into the pending slot. The
	// requester still holds its valid during the cycle the previous ack
	// pulses, so that cycle must not re-accept it. A second distinct
	// request while the slot is occupied is dropped, never queued.
	if in.Evict.Valid && !c.pending.Valid && !ackWas {
		c.pending = pendingEviction{
			Valid: true,
			Tag:   in.Evict.Tag,
			Line:  cloneLine(in.Evict.Line),
			Dirty: in.Evict.Dirty,
		}
	}

	switch c.state {
	case StateIdle:
		// Probes preempt a latched pending install. A probe still held
		// during its own response pulse is the one just serviced.
		switch {
		case in.Probe.Valid && !probeRespWas:
			c.probeTag = in.Probe.Tag
			c.state = StateProbeLookup
		case c.pending.Valid:
			c.state = StateEvictCheck
		}

	case StateProbeLookup:
		c.stats.Probes++
		way, hit := c.tags.Lookup(c.probeTag)
		if hit {
			c.hitWay = way
			c.state = StateHitReturn
		} else {
			c.state = StateMiss
		}

	case StateHitReturn:
		// Hand the line back to L1 and free the way: a hit removes the
		// entry from the victim cache.
		entry := c.tags.Entry(c.hitWay)
		c.probeResp = wire.ProbeResponse{
			Valid: true,
			Hit:   true,
			Dirty: entry.Dirty,
			Line:  c.data.Read(c.hitWay),
		}
		c.tags.Invalidate(c.hitWay)
		c.data.Clear(c.hitWay)
		c.ages[c.hitWay] = 0
		c.stats.ProbeHits++
		c.state = StateIdle

	case StateMiss:
		c.probeResp = wire.ProbeResponse{Valid: true}
		c.stats.ProbeMisses++
		c.state = StateIdle

	case StateEvictCheck:
		c.targetWay = c.selectVictim()
		c.state = StateVictimRead

	case StateVictimRead:
		entry := c.tags.Entry(c.targetWay)
		c.victim = victimCapture{
			Tag:   entry.Tag,
			Valid: entry.Valid,
			Dirty: entry.Dirty,
			Line:  c.data.Read(c.targetWay),
		}
		if c.victim.Valid && c.victim.Dirty {
			c.state = StateWBIssue
		} else {
			// Free or clean victims are overwritten with no memory
			// traffic.
			c.state = StateInstallLine
		}

	case StateWBIssue:
		c.state = StateWBWait

	case StateWBWait:
		if in.MemResp.Valid && in.MemResp.Source == wire.SourceVC {
			// Invalidate before install so a later probe for the
			// victim's tag can never match.
			c.tags.Invalidate(c.targetWay)
			c.ages[c.targetWay] = 0
			c.stats.Writebacks++
			c.state = StateInstallLine
		}

	case StateInstallLine:
		c.tags.Write(c.targetWay, c.pending.Tag, c.pending.Dirty)
		c.data.Write(c.targetWay, c.pending.Line)
		for way := range c.ages {
			if way != c.targetWay && c.ages[way] > 0 {
				c.ages[way]++
			}
		}
		c.ages[c.targetWay] = 1
		c.pending = pendingEviction{}
		c.ackPulse = true
		c.stats.Installs++
		c.state = StateIdle
	}
}

// selectVictim picks the replacement way: the lowest-indexed free way if
// any way is free, otherwise the oldest way, lowest index breaking ties.
func (c *Controller) selectVictim() int {
	for way, age := range c.ages {
		if age == 0 {
			return way
		}
	}
	oldest := 0
	for way := 1; way < len(c.ages); way++ {
		if c.ages[way] > c.ages[oldest] {
			oldest = way
		}
	}
	return oldest
}

func cloneLine(line []byte) []byte {
	clone := make([]byte, len(line))
	copy(clone, line)
	return clone
}
