package benchmarks

import (
	"github.com/sarchlab/vcsim/timing/hierarchy"
	"github.com/sarchlab/vcsim/trace"
)

// DefaultWorkloads returns the built-in workload set.
func DefaultWorkloads() []Workload {
	return []Workload{
		SequentialSweep(),
		ConflictPingPong(),
		VictimWraparound(),
		DirtyThrash(),
	}
}

// SequentialSweep reads a contiguous region word by word twice. The
// second pass should hit L1 for every line that fits.
func SequentialSweep() Workload {
	return Workload{
		Name:        "sequential_sweep",
		Description: "two sequential read passes over a contiguous region",
		Requests: func(config *hierarchy.Config) []trace.Request {
			span := uint64(config.NumSets * config.LineBytes / 2)
			var reqs []trace.Request
			for pass := 0; pass < 2; pass++ {
				for addr := uint64(0); addr < span; addr += 4 {
					reqs = append(reqs, trace.Request{Addr: addr})
				}
			}
			return reqs
		},
	}
}

// ConflictPingPong alternates reads between two lines that map to the
// same L1 set. Every access misses L1 but the victim cache serves the
// displaced line, so no memory reads occur after warm-up.
func ConflictPingPong() Workload {
	return Workload{
		Name:        "conflict_pingpong",
		Description: "two same-set lines alternating; victim cache absorbs the conflict",
		Requests: func(config *hierarchy.Config) []trace.Request {
			setSpan := uint64(config.NumSets * config.LineBytes)
			a, b := uint64(0), setSpan
			var reqs []trace.Request
			for i := 0; i < 64; i++ {
				reqs = append(reqs, trace.Request{Addr: a}, trace.Request{Addr: b})
			}
			return reqs
		},
	}
}

// VictimWraparound cycles reads over more same-set lines than the victim
// cache has ways, forcing replacement victims on every round.
func VictimWraparound() Workload {
	return Workload{
		Name:        "victim_wraparound",
		Description: "NumWays+2 same-set lines round-robin; exceeds VC capacity",
		Requests: func(config *hierarchy.Config) []trace.Request {
			setSpan := uint64(config.NumSets * config.LineBytes)
			lines := config.NumWays + 2
			var reqs []trace.Request
			for round := 0; round < 16; round++ {
				for k := 0; k < lines; k++ {
					reqs = append(reqs, trace.Request{Addr: uint64(k) * setSpan})
				}
			}
			return reqs
		},
	}
}

// DirtyThrash writes round-robin over more same-set lines than the
// victim cache holds, so every replacement victim is dirty and must be
// written back.
func DirtyThrash() Workload {
	return Workload{
		Name:        "dirty_thrash",
		Description: "write pressure forcing dirty write-backs from the victim cache",
		Requests: func(config *hierarchy.Config) []trace.Request {
			setSpan := uint64(config.NumSets * config.LineBytes)
			lines := config.NumWays + 2
			var reqs []trace.Request
			for round := 0; round < 16; round++ {
				for k := 0; k < lines; k++ {
					reqs = append(reqs, trace.Request{
						IsWrite: true,
						Addr:    uint64(k) * setSpan,
						Data:    uint32(round<<8 | k),
					})
				}
			}
			return reqs
		},
	}
}
