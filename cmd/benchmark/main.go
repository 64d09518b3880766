// Command benchmark runs the gbasim timing benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv             Output results in CSV format (default: human-readable)
//	-json            Output results in JSON format
//	-no-fetch-waits  Do not charge the bus cost of instruction fetches
//	-prefetch        Enable the GamePak prefetch buffer
//	-config          Path to a timing configuration file
//
// Example:
//
//	# Run all benchmarks with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/gbasim/benchmarks"
	"github.com/sarchlab/gbasim/timing/latency"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results in JSON format")
	noFetchWaits := flag.Bool("no-fetch-waits", false, "Do not charge instruction fetch wait states")
	prefetch := flag.Bool("prefetch", false, "Enable the GamePak prefetch buffer")
	configPath := flag.String("config", "", "Path to timing configuration JSON or YAML file")
	flag.Parse()

	config := benchmarks.DefaultConfig()
	config.ChargeFetchWaits = !*noFetchWaits
	config.EnablePrefetch = *prefetch
	config.Output = os.Stdout

	if *configPath != "" {
		timing, err := latency.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading timing config: %v\n", err)
			os.Exit(1)
		}
		config.Timing = timing
	}

	harness := benchmarks.NewHarness(config)
	harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())

	if !*csvOutput && !*jsonOutput {
		fmt.Println("gbasim Timing Benchmark Harness")
		fmt.Println("===============================")
		fmt.Printf("Fetch waits: %v\n", config.ChargeFetchWaits)
		fmt.Printf("Prefetch:    %v\n", config.EnablePrefetch)
		fmt.Println("")
	}

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}

	for _, r := range results {
		if r.Err != "" {
			os.Exit(1)
		}
	}
}
