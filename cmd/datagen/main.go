package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/luckykangaroo/backend/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		users         = flag.Int("users", cfg.NumUsers, "number of users to generate")
		listings      = flag.Int("listings", cfg.NumListings, "number of listings to generate")
		oneWayChance  = flag.Float64("one-way-chance", cfg.OneWayChance, "fraction of free/donation listings")
		noCoordChance = flag.Float64("no-coord-chance", cfg.NoCoordChance, "fraction of listings without coordinates")
		seed          = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir     = flag.String("output-dir", "data", "directory to write users.json and listings.json")
		writeStdout   = flag.Bool("stdout", false, "write combined dataset to stdout instead of files")
	)
	flag.Parse()

	genCfg := generator.Config{
		NumUsers:      *users,
		NumListings:   *listings,
		OneWayChance:  clampProbability(*oneWayChance),
		NoCoordChance: clampProbability(*noCoordChance),
		Seed:          *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen := generator.New(genCfg)
	dataset, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteDataset(dataset, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d users and %d listings into %s\n", len(dataset.Users), len(dataset.Listings), *outputDir)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
