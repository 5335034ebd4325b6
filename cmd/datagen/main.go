package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vanshika/chronos/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		perScenario = flag.Int("per-scenario", cfg.PerScenario, "transactions to generate for each illicit scenario")
		baseline    = flag.Int("baseline", cfg.Baseline, "baseline (normal) transactions to generate")
		scenarios   = flag.String("scenarios", strings.Join(cfg.Scenarios, ","), "comma separated scenarios to generate")
		seed        = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir   = flag.String("output-dir", "seed-data", "directory to write transactions.json")
		writeStdout = flag.Bool("stdout", false, "write the dataset to stdout instead of a file")
	)
	flag.Parse()

	names, err := parseScenarios(*scenarios)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	genCfg := generator.Config{
		PerScenario: *perScenario,
		Baseline:    max(*baseline, 0),
		Scenarios:   names,
		Seed:        *seed,
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
		if err := generator.Encode(os.Stdout, dataset.Transactions); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteDataset(dataset, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d transactions across %d scenarios into %s\n", len(dataset.Transactions), len(names), *outputDir)
}

func parseScenarios(csv string) ([]string, error) {
	known := make(map[string]struct{})
	for _, name := range generator.Scenarios() {
		known[name] = struct{}{}
	}
	var out []string
	for _, part := range strings.Split(csv, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("unknown scenario %q (known: %s)", name, strings.Join(generator.Scenarios(), ", "))
		}
		out = append(out, name)
	}
	return out, nil
}
