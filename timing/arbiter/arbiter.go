// Package arbiter provides the priority mux in front of the shared
// backing store.
package arbiter

import (
	"github.com/sarchlab/vcsim/timing/wire"
)

// Arbiter is a stateless, combinational priority mux. The victim cache's
// request always wins over L1's: a write-back must retire before the VC
// can accept a new install, so starving it would deadlock the install
// path. The losing requester simply holds its request and is served on a
// later cycle.
type Arbiter struct{}

// New creates an arbiter.
func New() *Arbiter {
	return &Arbiter{}
}

// Select returns the request forwarded to the memory controller this
// cycle.
func (a *Arbiter) Select(vcReq, l1Req wire.MemRequest) wire.MemRequest {
	if vcReq.Valid {
		return vcReq
	}
	return l1Req
}
