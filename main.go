// Package main provides the entry point for vcsim.
// vcsim is a cycle-level simulator for a direct-mapped write-back L1
// cache coupled to a fully-associative victim cache.
//
// For the full CLI, use: go run ./cmd/vcsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("vcsim - L1 + Victim Cache Hierarchy Simulator")
	fmt.Println("")
	fmt.Println("Usage: vcsim run <trace>   Run a CPU request trace")
	fmt.Println("       vcsim bench         Run the built-in workloads")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/vcsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/vcsim' instead.")
	}
}
