// Package main provides the vcsim command line interface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vcsim/benchmarks"
	"github.com/sarchlab/vcsim/timing/hierarchy"
	"github.com/sarchlab/vcsim/trace"
)

var (
	configPath string
	verbose    bool
	maxCycles  uint64
	csvOutput  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vcsim",
		Short: "Cycle-level simulator for an L1 + victim cache hierarchy",
		Long: "vcsim models a direct-mapped write-back L1 cache coupled to a\n" +
			"small fully-associative victim cache over a shared backing store,\n" +
			"at cycle-level handshake fidelity.",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to a hierarchy configuration JSON file")

	runCmd := &cobra.Command{
		Use:   "run <trace>",
		Short: "Run a CPU request trace through the hierarchy",
		Args:  cobra.ExactArgs(1),
		RunE:  runTrace,
	}
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"print every request and response")
	runCmd.Flags().Uint64Var(&maxCycles, "max-cycles", 10000,
		"cycle budget per request before the hierarchy is declared stuck")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the built-in synthetic workloads",
		RunE:  runBench,
	}
	benchCmd.Flags().BoolVar(&csvOutput, "csv", false, "emit CSV instead of a table")

	rootCmd.AddCommand(runCmd, benchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*hierarchy.Config, error) {
	if configPath == "" {
		return hierarchy.DefaultConfig(), nil
	}
	return hierarchy.LoadConfig(configPath)
}

func runTrace(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	reqs, err := trace.Load(args[0])
	if err != nil {
		return err
	}

	system, err := hierarchy.New(config)
	if err != nil {
		return err
	}

	for i, req := range reqs {
		data, cycles, err := system.Access(req.IsWrite, req.Addr, req.Data, maxCycles)
		if err != nil {
			return fmt.Errorf("request %d: %w", i, err)
		}
		if verbose {
			op := "R"
			if req.IsWrite {
				op = "W"
			}
			fmt.Printf("%6d: %s %#010x -> %#010x (%d cycles)\n", i, op, req.Addr, data, cycles)
		}
	}

	printStats(system.Stats())
	return nil
}

func printStats(stats hierarchy.Stats) {
	fmt.Printf("Cycles:        %d\n", stats.Cycles)
	fmt.Printf("L1 reads:      %d\n", stats.L1.Reads)
	fmt.Printf("L1 writes:     %d\n", stats.L1.Writes)
	fmt.Printf("L1 hits:       %d\n", stats.L1.Hits)
	fmt.Printf("L1 misses:     %d\n", stats.L1.Misses)
	fmt.Printf("L1 evictions:  %d\n", stats.L1.Evictions)
	fmt.Printf("VC hits:       %d\n", stats.L1.VCHits)
	fmt.Printf("VC installs:   %d\n", stats.VC.Installs)
	fmt.Printf("VC writebacks: %d\n", stats.VC.Writebacks)
	fmt.Printf("Mem reads:     %d\n", stats.Mem.Reads)
	fmt.Printf("Mem writes:    %d\n", stats.Mem.Writes)
}

func runBench(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	harness := benchmarks.NewHarness(benchmarks.HarnessConfig{
		Hierarchy: config,
		Output:    os.Stdout,
	})
	harness.AddWorkloads(benchmarks.DefaultWorkloads())

	results, err := harness.RunAll()
	if err != nil {
		return err
	}

	if csvOutput {
		harness.PrintCSV(results)
	} else {
		harness.PrintResults(results)
	}
	return nil
}
