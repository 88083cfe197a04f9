// Package wire defines the handshake signal bundles exchanged between the
// timing components. Each bundle corresponds to one bus in the hardware
// protocol: a Valid level held by the requester, answered by a one-cycle
// completion pulse from the responder.
package wire

// Source identifies the initiator of a backing-store request so the
// response pulse can be routed back to it.
type Source int

const (
	// SourceNone marks an idle memory bus.
	SourceNone Source = iota
	// SourceL1 marks a refill read issued by the L1 controller.
	SourceL1
	// SourceVC marks a write-back issued by the victim cache controller.
	SourceVC
)

// String returns a short name for the source, for trace output.
func (s Source) String() string {
	switch s {
	case SourceL1:
		return "L1"
	case SourceVC:
		return "VC"
	default:
		return "none"
	}
}

// CPURequest is one CPU access presented to the L1 controller. The
// requester must hold the fields stable until the response pulse.
type CPURequest struct {
	Valid   bool
	IsWrite bool
	Addr    uint64
	Data    uint32
}

// CPUResponse is the one-cycle response pulse carrying the addressed word.
type CPUResponse struct {
	Valid bool
	Data  uint32
}

// ProbeRequest is an L1-to-VC lookup on an L1 miss. Tag is the combined
// tag+index key, i.e. the line-aligned address. The requester must hold
// the probe asserted until the response pulse.
type ProbeRequest struct {
	Valid bool
	Tag   uint64
}

// ProbeResponse is the VC's one-cycle probe completion pulse. Line and
// Dirty are meaningful only when Hit is set.
type ProbeResponse struct {
	Valid bool
	Hit   bool
	Dirty bool
	Line  []byte
}

// EvictRequest asks the VC to install a line evicted from L1. The
// requester must hold it asserted until the ack pulse.
type EvictRequest struct {
	Valid bool
	Tag   uint64
	Line  []byte
	Dirty bool
}

// MemRequest is a backing-store access. Line carries the write data for
// writes and is ignored for reads. The requester must hold the request
// until the response pulse with its Source arrives.
type MemRequest struct {
	Valid   bool
	IsWrite bool
	Addr    uint64
	Line    []byte
	Source  Source
}

// MemResponse is the backing store's one-cycle completion pulse. Line
// carries the read data for reads and is nil for writes.
type MemResponse struct {
	Valid  bool
	Line   []byte
	Source Source
}
