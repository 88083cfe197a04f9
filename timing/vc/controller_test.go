package vc_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vcsim/mem"
	"github.com/sarchlab/vcsim/timing/memctrl"
	"github.com/sarchlab/vcsim/timing/vc"
	"github.com/sarchlab/vcsim/timing/wire"
)

const (
	numWays   = 4
	lineBytes = 16
	cycleCap  = 200
)

// harness drives a victim cache controller with held request levels and
// a real memory controller behind it, the way the L1 controller and the
// arbiter would.
type harness struct {
	vcc    *vc.Controller
	mc     *memctrl.Controller
	memory *mem.Memory

	probe wire.ProbeRequest
	evict wire.EvictRequest
}

func newHarness() *harness {
	memory := mem.NewMemory()
	return &harness{
		vcc:    vc.NewController(numWays, lineBytes),
		mc:     memctrl.NewController(memory, lineBytes, 2, 2),
		memory: memory,
	}
}

// cycle advances one clock: outputs are computed pre-edge, then both
// components latch. It returns the post-edge outputs, i.e. the pulses
// visible during the next cycle.
func (h *harness) cycle() vc.Outputs {
	vcOut := h.vcc.Outputs()
	mcOut := h.mc.Outputs()
	h.vcc.Tick(vc.Inputs{
		Probe:   h.probe,
		Evict:   h.evict,
		MemResp: mcOut.Resp,
	})
	h.mc.Tick(memctrl.Inputs{Req: vcOut.MemReq})
	return h.vcc.Outputs()
}

// install holds an eviction request until its ack pulse.
func (h *harness) install(tag uint64, line []byte, dirty bool) {
	h.evict = wire.EvictRequest{Valid: true, Tag: tag, Line: line, Dirty: dirty}
	for i := 0; i < cycleCap; i++ {
		out := h.cycle()
		if out.EvictAck {
			h.evict = wire.EvictRequest{}
			return
		}
	}
	Fail("install never acked")
}

// probeFor holds a probe until its response pulse.
func (h *harness) probeFor(tag uint64) wire.ProbeResponse {
	for i := 0; i < cycleCap && !h.vcc.Outputs().Ready; i++ {
		h.cycle()
	}
	h.probe = wire.ProbeRequest{Valid: true, Tag: tag}
	for i := 0; i < cycleCap; i++ {
		out := h.cycle()
		if out.ProbeResp.Valid {
			h.probe = wire.ProbeRequest{}
			return out.ProbeResp
		}
	}
	Fail("probe never answered")
	return wire.ProbeResponse{}
}

// pattern builds a recognizable line.
func pattern(seed byte) []byte {
	line := make([]byte, lineBytes)
	for i := range line {
		line[i] = seed + byte(i)
	}
	return line
}

var _ = Describe("Controller", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness()
	})

	Describe("probe round-trip", func() {
		It("should return an installed line exactly once", func() {
			data := pattern(0x40)
			h.install(0x100, data, false)

			resp := h.probeFor(0x100)
			Expect(resp.Hit).To(BeTrue())
			Expect(resp.Dirty).To(BeFalse())
			Expect(resp.Line).To(Equal(data))

			// A hit removes the entry, so an immediate second probe
			// must miss.
			resp = h.probeFor(0x100)
			Expect(resp.Hit).To(BeFalse())
		})

		It("should preserve the dirty flag across the round-trip", func() {
			h.install(0x200, pattern(1), true)

			resp := h.probeFor(0x200)
			Expect(resp.Hit).To(BeTrue())
			Expect(resp.Dirty).To(BeTrue())
		})

		It("should miss on a tag that was never installed", func() {
			h.install(0x100, pattern(2), false)

			resp := h.probeFor(0x300)
			Expect(resp.Hit).To(BeFalse())
			Expect(resp.Line).To(BeNil())
		})

		It("should pulse the response for exactly one cycle", func() {
			h.install(0x100, pattern(3), false)

			h.probe = wire.ProbeRequest{Valid: true, Tag: 0x100}
			pulses := 0
			for i := 0; i < 20; i++ {
				out := h.cycle()
				if out.ProbeResp.Valid {
					pulses++
					h.probe = wire.ProbeRequest{}
				}
			}
			Expect(pulses).To(Equal(1))
		})
	})

	Describe("write-back gating", func() {
		It("should never write memory for clean or free victims", func() {
			for i := 0; i < 2*numWays; i++ {
				h.install(uint64(0x1000+i*0x10), pattern(byte(i)), false)
			}
			Expect(h.mc.Stats().Writes).To(Equal(uint64(0)))
		})

		It("should write back a valid dirty victim before reuse", func() {
			dirtyLine := pattern(0x80)
			h.install(0x500, dirtyLine, true)
			for i := 1; i < numWays; i++ {
				h.install(uint64(0x500+i*0x10), pattern(byte(i)), false)
			}

			// The next install replaces the oldest way, which holds the
			// dirty line.
			h.install(0x900, pattern(0x11), false)

			Expect(h.mc.Stats().Writes).To(Equal(uint64(1)))
			Expect(h.memory.ReadLine(0x500, lineBytes)).To(Equal(dirtyLine))
			Expect(h.vcc.Stats().Writebacks).To(Equal(uint64(1)))
		})

		It("should miss on a probe for a tag evicted as replacement victim", func() {
			h.install(0x500, pattern(0), true)
			for i := 1; i <= numWays; i++ {
				h.install(uint64(0x500+i*0x10), pattern(byte(i)), false)
			}

			resp := h.probeFor(0x500)
			Expect(resp.Hit).To(BeFalse())
		})
	})

	Describe("replacement and aging", func() {
		It("should pick free ways before busy ones", func() {
			h.install(1, pattern(1), false)
			h.install(2, pattern(2), false)
			h.install(3, pattern(3), false)
			h.install(4, pattern(4), false)

			// Free way 1 by returning tag 2 to L1, then install a new
			// line: it must land in the freed way, not replace a busy
			// one.
			resp := h.probeFor(2)
			Expect(resp.Hit).To(BeTrue())

			h.install(5, pattern(5), false)
			for _, tag := range []uint64{1, 3, 4, 5} {
				way, ok := h.vcc.Tags().Lookup(tag)
				Expect(ok).To(BeTrue(), "tag %d should still be resident", tag)
				Expect(h.vcc.Age(way)).To(BeNumerically(">", 0))
			}
		})

		It("should replace the oldest busy way", func() {
			for i := 1; i <= numWays; i++ {
				h.install(uint64(i), pattern(byte(i)), false)
			}

			// Tag 1 is the oldest; the next install must displace it.
			h.install(uint64(numWays+1), pattern(9), false)

			resp := h.probeFor(1)
			Expect(resp.Hit).To(BeFalse())
			for tag := uint64(2); tag <= uint64(numWays+1); tag++ {
				_, ok := h.vcc.Tags().Lookup(tag)
				Expect(ok).To(BeTrue(), "tag %d should still be resident", tag)
			}
		})

		It("should age a fresh install to 1 and older entries upward", func() {
			h.install(10, pattern(1), false)
			h.install(11, pattern(2), false)

			way10, ok := h.vcc.Tags().Lookup(10)
			Expect(ok).To(BeTrue())
			way11, ok := h.vcc.Tags().Lookup(11)
			Expect(ok).To(BeTrue())

			Expect(h.vcc.Age(way11)).To(Equal(uint64(1)))
			Expect(h.vcc.Age(way10)).To(Equal(uint64(2)))
		})

		It("should miss the first half and hit the second half after wraparound", func() {
			for i := 0; i < 2*numWays; i++ {
				h.install(uint64(0x1000+i*0x10), pattern(byte(i)), false)
			}

			for i := 0; i < numWays; i++ {
				resp := h.probeFor(uint64(0x1000 + i*0x10))
				Expect(resp.Hit).To(BeFalse(), "tag %d should have been displaced", i)
			}
			for i := numWays; i < 2*numWays; i++ {
				resp := h.probeFor(uint64(0x1000 + i*0x10))
				Expect(resp.Hit).To(BeTrue(), "tag %d should be resident", i)
				Expect(resp.Line).To(Equal(pattern(byte(i))))
			}
		})
	})

	Describe("priority and serialization", func() {
		It("should complete a probe strictly before a concurrent install", func() {
			h.install(0x700, pattern(7), false)

			// Present a probe and an install on the same cycle: the
			// probe's response pulse must come before the install's
			// ack pulse.
			h.probe = wire.ProbeRequest{Valid: true, Tag: 0x700}
			h.evict = wire.EvictRequest{Valid: true, Tag: 0x800, Line: pattern(8), Dirty: false}

			probeCycle, ackCycle := -1, -1
			for i := 0; i < cycleCap; i++ {
				out := h.cycle()
				if out.ProbeResp.Valid && probeCycle < 0 {
					probeCycle = i
					h.probe = wire.ProbeRequest{}
				}
				if out.EvictAck && ackCycle < 0 {
					ackCycle = i
					h.evict = wire.EvictRequest{}
				}
				if probeCycle >= 0 && ackCycle >= 0 {
					break
				}
			}

			Expect(probeCycle).To(BeNumerically(">=", 0))
			Expect(ackCycle).To(BeNumerically(">=", 0))
			Expect(probeCycle).To(BeNumerically("<", ackCycle))
		})

		It("should not be ready while an install is pending", func() {
			h.evict = wire.EvictRequest{Valid: true, Tag: 0x900, Line: pattern(9), Dirty: false}

			h.cycle()
			for i := 0; i < cycleCap; i++ {
				out := h.vcc.Outputs()
				if out.EvictAck {
					break
				}
				Expect(out.Ready).To(BeFalse())
				h.cycle()
			}
		})

		It("should serialize back-to-back installs into distinct acks", func() {
			lineA, lineB := pattern(0xA0), pattern(0xB0)

			// Hold the first request, then switch to the second as soon
			// as the slot is latched. The second must wait for the
			// first's install to clear the pending slot.
			h.evict = wire.EvictRequest{Valid: true, Tag: 0xA, Line: lineA, Dirty: false}
			h.cycle()
			h.evict = wire.EvictRequest{Valid: true, Tag: 0xB, Line: lineB, Dirty: false}

			acks := 0
			overlap := false
			for i := 0; i < cycleCap && acks < 2; i++ {
				out := h.cycle()
				if out.EvictAck {
					acks++
					if acks == 2 {
						h.evict = wire.EvictRequest{}
					}
					// Pulses are one cycle wide; a second ack on the
					// very next cycle would mean the requests
					// overlapped inside the controller.
					if h.cycle().EvictAck {
						overlap = true
					}
					if acks == 1 {
						// keep holding request B
						continue
					}
				}
			}

			Expect(acks).To(Equal(2))
			Expect(overlap).To(BeFalse())

			_, okA := h.vcc.Tags().Lookup(0xA)
			_, okB := h.vcc.Tags().Lookup(0xB)
			Expect(okA).To(BeTrue())
			Expect(okB).To(BeTrue())
			Expect(h.vcc.Stats().Installs).To(Equal(uint64(2)))
		})
	})

	Describe("reference scenario", func() {
		It("should write back way 0 before acking the fifth install", func() {
			dirtyLine := pattern(0xD0)
			h.install(10, dirtyLine, true)
			h.install(11, pattern(1), false)
			h.install(12, pattern(2), false)
			h.install(13, pattern(3), false)

			// The fifth install displaces the dirty way-0 entry. Track
			// the ordering of the write-back response and the ack.
			h.evict = wire.EvictRequest{Valid: true, Tag: 99, Line: pattern(4), Dirty: false}
			wbCycle, ackCycle := -1, -1
			for i := 0; i < cycleCap; i++ {
				mcResp := h.mc.Outputs().Resp
				if mcResp.Valid && mcResp.Source == wire.SourceVC && wbCycle < 0 {
					wbCycle = i
				}
				out := h.cycle()
				if out.EvictAck {
					ackCycle = i
					h.evict = wire.EvictRequest{}
					break
				}
			}

			Expect(wbCycle).To(BeNumerically(">=", 0), "no write-back response observed")
			Expect(ackCycle).To(BeNumerically(">", wbCycle))
			Expect(h.memory.ReadLine(10, lineBytes)).To(Equal(dirtyLine))

			resp := h.probeFor(99)
			Expect(resp.Hit).To(BeTrue())
			Expect(resp.Dirty).To(BeFalse())
		})
	})
})
