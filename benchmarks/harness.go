// Package benchmarks provides synthetic access-pattern workloads for
// exercising and calibrating the cache hierarchy.
package benchmarks

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/vcsim/timing/hierarchy"
	"github.com/sarchlab/vcsim/trace"
)

// accessBudget bounds the cycles a single access may take before the
// harness declares the hierarchy stuck.
const accessBudget = 10000

// Result holds the outcome of a single workload run.
type Result struct {
	// Name identifies the workload.
	Name string `json:"name"`

	// Description explains the access pattern.
	Description string `json:"description"`

	// Accesses is the number of CPU requests issued.
	Accesses uint64 `json:"accesses"`

	// Cycles is the total simulated cycle count.
	Cycles uint64 `json:"cycles"`

	// CPA is cycles per access.
	CPA float64 `json:"cpa"`

	// L1Hits and L1Misses count L1 outcomes.
	L1Hits   uint64 `json:"l1_hits"`
	L1Misses uint64 `json:"l1_misses"`

	// VCHits is the number of L1 misses served by the victim cache.
	VCHits uint64 `json:"vc_hits"`

	// Writebacks is the number of dirty victim lines written to memory.
	Writebacks uint64 `json:"writebacks"`

	// MemReads is the number of refill reads from memory.
	MemReads uint64 `json:"mem_reads"`

	// WallTime is the host time taken to run the simulation.
	WallTime time.Duration `json:"wall_time_ns"`
}

// Workload defines a synthetic access pattern. Requests receives the
// hierarchy configuration so patterns can place lines at exact set
// conflicts regardless of geometry.
type Workload struct {
	// Name identifies the workload.
	Name string

	// Description explains what the workload exercises.
	Description string

	// Requests generates the access sequence.
	Requests func(config *hierarchy.Config) []trace.Request
}

// HarnessConfig configures the workload harness.
type HarnessConfig struct {
	// Hierarchy is the configuration under test. Nil selects the
	// defaults.
	Hierarchy *hierarchy.Config

	// Output is where to write results (default: os.Stdout).
	Output io.Writer

	// Verbose enables per-workload progress output.
	Verbose bool
}

// Harness runs workloads against fresh hierarchies and reports results.
type Harness struct {
	config    HarnessConfig
	workloads []Workload
}

// NewHarness creates a harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Hierarchy == nil {
		config.Hierarchy = hierarchy.DefaultConfig()
	}
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{config: config}
}

// AddWorkload adds a workload to the harness.
func (h *Harness) AddWorkload(w Workload) {
	h.workloads = append(h.workloads, w)
}

// AddWorkloads adds multiple workloads.
func (h *Harness) AddWorkloads(workloads []Workload) {
	h.workloads = append(h.workloads, workloads...)
}

// RunAll executes every workload and returns the results.
func (h *Harness) RunAll() ([]Result, error) {
	results := make([]Result, 0, len(h.workloads))
	for _, w := range h.workloads {
		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "running %s...\n", w.Name)
		}
		result, err := h.runWorkload(w)
		if err != nil {
			return results, fmt.Errorf("workload %s: %w", w.Name, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// runWorkload executes a single workload on a fresh hierarchy.
func (h *Harness) runWorkload(w Workload) (Result, error) {
	system, err := hierarchy.New(h.config.Hierarchy)
	if err != nil {
		return Result{}, err
	}

	reqs := w.Requests(h.config.Hierarchy)

	start := time.Now()
	for _, req := range reqs {
		if _, _, err := system.Access(req.IsWrite, req.Addr, req.Data, accessBudget); err != nil {
			return Result{}, err
		}
	}
	wallTime := time.Since(start)

	stats := system.Stats()
	result := Result{
		Name:        w.Name,
		Description: w.Description,
		Accesses:    uint64(len(reqs)),
		Cycles:      stats.Cycles,
		L1Hits:      stats.L1.Hits,
		L1Misses:    stats.L1.Misses,
		VCHits:      stats.L1.VCHits,
		Writebacks:  stats.VC.Writebacks,
		MemReads:    stats.Mem.Reads,
		WallTime:    wallTime,
	}
	if result.Accesses > 0 {
		result.CPA = float64(result.Cycles) / float64(result.Accesses)
	}
	return result, nil
}

// PrintResults outputs results in a human-readable format.
func (h *Harness) PrintResults(results []Result) {
	_, _ = fmt.Fprintln(h.config.Output, "=== vcsim Workload Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Workload: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Accesses:    %d\n", r.Accesses)
		_, _ = fmt.Fprintf(h.config.Output, "  Cycles:      %d\n", r.Cycles)
		_, _ = fmt.Fprintf(h.config.Output, "  CPA:         %.2f\n", r.CPA)
		_, _ = fmt.Fprintf(h.config.Output, "  L1 Hits:     %d\n", r.L1Hits)
		_, _ = fmt.Fprintf(h.config.Output, "  L1 Misses:   %d\n", r.L1Misses)
		_, _ = fmt.Fprintf(h.config.Output, "  VC Hits:     %d\n", r.VCHits)
		_, _ = fmt.Fprintf(h.config.Output, "  Writebacks:  %d\n", r.Writebacks)
		_, _ = fmt.Fprintf(h.config.Output, "  Mem Reads:   %d\n", r.MemReads)
		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time:   %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs results as CSV for spreadsheet analysis.
func (h *Harness) PrintCSV(results []Result) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,accesses,cycles,cpa,l1_hits,l1_misses,vc_hits,writebacks,mem_reads")
	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.4f,%d,%d,%d,%d,%d\n",
			r.Name, r.Accesses, r.Cycles, r.CPA,
			r.L1Hits, r.L1Misses, r.VCHits, r.Writebacks, r.MemReads)
	}
}
