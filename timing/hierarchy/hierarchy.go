// Package hierarchy wires the L1 controller, the victim cache, the
// memory arbiter, and the memory controller into one synchronous clock
// domain and exposes the CPU-side request interface.
package hierarchy

import (
	"fmt"

	"github.com/sarchlab/vcsim/mem"
	"github.com/sarchlab/vcsim/timing/arbiter"
	"github.com/sarchlab/vcsim/timing/l1"
	"github.com/sarchlab/vcsim/timing/memctrl"
	"github.com/sarchlab/vcsim/timing/vc"
	"github.com/sarchlab/vcsim/timing/wire"
)

// Stats aggregates the statistics of every component.
type Stats struct {
	Cycles uint64
	L1     l1.Stats
	VC     vc.Stats
	Mem    memctrl.Stats
}

// System is the two-level cache hierarchy: a direct-mapped write-back L1
// backed by a small fully-associative victim cache, over a shared
// backing store. Exactly one CPU request is in flight at a time.
type System struct {
	config *Config

	memory  *mem.Memory
	l1ctrl  *l1.Controller
	vcctrl  *vc.Controller
	arb     *arbiter.Arbiter
	memctrl *memctrl.Controller

	cycle uint64

	// CPU request held asserted until the response pulse.
	cpuReq wire.CPURequest

	// Response pulse, valid for the one Tick that produced it.
	cpuResp wire.CPUResponse
}

// New creates a hierarchy from the given configuration.
func New(config *Config) (*System, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	memory := mem.NewMemory()
	return &System{
		config:  config,
		memory:  memory,
		l1ctrl:  l1.NewController(config.NumSets, config.LineBytes),
		vcctrl:  vc.NewController(config.NumWays, config.LineBytes),
		arb:     arbiter.New(),
		memctrl: memctrl.NewController(memory, config.LineBytes, config.MemReadLatency, config.MemWriteLatency),
	}, nil
}

// Config returns the hierarchy configuration.
func (s *System) Config() *Config {
	return s.config
}

// Memory returns the backing store, for preloading test or trace data.
func (s *System) Memory() *mem.Memory {
	return s.memory
}

// Cycle returns the number of cycles simulated.
func (s *System) Cycle() uint64 {
	return s.cycle
}

// Busy reports whether a CPU request is in flight.
func (s *System) Busy() bool {
	return s.cpuReq.Valid || s.l1ctrl.Busy()
}

// Stats returns the aggregated statistics.
func (s *System) Stats() Stats {
	return Stats{
		Cycles: s.cycle,
		L1:     s.l1ctrl.Stats(),
		VC:     s.vcctrl.Stats(),
		Mem:    s.memctrl.Stats(),
	}
}

// L1 exposes the L1 controller for inspection.
func (s *System) L1() *l1.Controller {
	return s.l1ctrl
}

// VC exposes the victim cache controller for inspection.
func (s *System) VC() *vc.Controller {
	return s.vcctrl
}

// Submit presents one CPU request. Submitting while a request is in
// flight is a protocol violation and is rejected.
func (s *System) Submit(isWrite bool, addr uint64, data uint32) error {
	if s.Busy() {
		return fmt.Errorf("request to %#x rejected: a request is already in flight", addr)
	}
	s.cpuReq = wire.CPURequest{
		Valid:   true,
		IsWrite: isWrite,
		Addr:    addr,
		Data:    data,
	}
	return nil
}

// Response returns the CPU response pulse produced by the most recent
// Tick, if any. Like the hardware pulse it is visible for one cycle
// only.
func (s *System) Response() (wire.CPUResponse, bool) {
	return s.cpuResp, s.cpuResp.Valid
}

// Tick advances the whole hierarchy by one clock cycle. All components
// first drive their outputs from pre-edge state, then latch
// simultaneously.
func (s *System) Tick() {
	s.cpuResp = wire.CPUResponse{}

	l1Out := s.l1ctrl.Outputs()
	vcOut := s.vcctrl.Outputs()
	memOut := s.memctrl.Outputs()
	granted := s.arb.Select(vcOut.MemReq, l1Out.MemReq)

	s.l1ctrl.Tick(l1.Inputs{
		CPU:       s.cpuReq,
		VCReady:   vcOut.Ready,
		ProbeResp: vcOut.ProbeResp,
		EvictAck:  vcOut.EvictAck,
		MemResp:   memOut.Resp,
	})
	s.vcctrl.Tick(vc.Inputs{
		Probe:   l1Out.Probe,
		Evict:   l1Out.Evict,
		MemResp: memOut.Resp,
	})
	s.memctrl.Tick(memctrl.Inputs{Req: granted})

	s.cycle++

	// The CPU side consumes the response pulse and releases the request.
	if resp := s.l1ctrl.Outputs().CPUResp; resp.Valid {
		s.cpuResp = resp
		s.cpuReq = wire.CPURequest{}
	}
}

// Access submits a request and ticks until its response pulse, returning
// the response word and the number of cycles taken. A hierarchy that
// produces no response within maxCycles is stuck (for example, a
// backing-store response that never arrives) and is reported as an
// error; there are no internal timeouts or retries.
func (s *System) Access(isWrite bool, addr uint64, data uint32, maxCycles uint64) (uint32, uint64, error) {
	if err := s.Submit(isWrite, addr, data); err != nil {
		return 0, 0, err
	}
	start := s.cycle
	for i := uint64(0); i < maxCycles; i++ {
		s.Tick()
		if resp, ok := s.Response(); ok {
			return resp.Data, s.cycle - start, nil
		}
	}
	return 0, s.cycle - start, fmt.Errorf(
		"hierarchy stalled: no response for %#x after %d cycles", addr, maxCycles)
}

// Read performs a blocking read access.
func (s *System) Read(addr uint64, maxCycles uint64) (uint32, uint64, error) {
	return s.Access(false, addr, 0, maxCycles)
}

// Write performs a blocking write access.
func (s *System) Write(addr uint64, data uint32, maxCycles uint64) (uint64, error) {
	_, cycles, err := s.Access(true, addr, data, maxCycles)
	return cycles, err
}
