// Command batchdetect runs the detection pipeline over a directory of
// science frames against one reference frame, in parallel, and prints a
// per-pair summary table.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"transient-finder/internal/pipeline"
)

func main() {
	refPath := flag.String("ref", "", "Path to the reference/template FITS image")
	sciDir := flag.String("dir", "", "Directory of science FITS images")
	cfgPath := flag.String("config", "", "Path to a JSON configuration file")
	workers := flag.Int("workers", 0, "Worker count (0 = one per CPU)")
	fieldCheck := flag.Bool("fieldcheck", false, "Pre-screen each pair for field mismatch")
	verbose := flag.Bool("v", false, "Verbose progress output")
	flag.Parse()

	if *refPath == "" || *sciDir == "" {
		fmt.Println("Usage: batchdetect -ref <template.fits> -dir <science-dir> [-config <cfg.json>] [-workers <n>] [-fieldcheck] [-v]")
		os.Exit(2)
	}

	cfg, err := pipeline.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *fieldCheck {
		cfg.FieldCheck = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	pairs, err := collectPairs(*refPath, *sciDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if len(pairs) == 0 {
		fmt.Fprintf(os.Stderr, "no FITS files found in %s\n", *sciDir)
		os.Exit(1)
	}
	fmt.Printf("%d science frames against %s\n\n", len(pairs), *refPath)

	results := pipeline.Batch(pairs, cfg, pipeline.StdoutObserver{Verbose: *verbose})

	fmt.Printf("\n%-24s %-8s %-9s %-9s %-6s %s\n", "pair", "status", "accepted", "rejected", "field", "reason")
	failures := 0
	for _, r := range results {
		status := "ok"
		reason := ""
		accepted, rejected := 0, 0
		if r.Result.Success {
			accepted = len(r.Result.Accepted)
			rejected = len(r.Result.Rejected)
		} else {
			status = "FAILED"
			reason = r.Result.Reason
			failures++
		}
		field := "-"
		if r.FieldMismatch {
			field = "MISS"
		}
		fmt.Printf("%-24s %-8s %-9d %-9d %-6s %s\n", r.Pair.ID, status, accepted, rejected, field, reason)
	}
	if failures > 0 {
		fmt.Printf("\n%d of %d pairs failed\n", failures, len(results))
		os.Exit(1)
	}
}

// collectPairs builds one pair per FITS file in the directory, skipping the
// reference itself if it lives there.
func collectPairs(refPath, dir string) ([]pipeline.Pair, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	refAbs, _ := filepath.Abs(refPath)

	var pairs []pipeline.Pair
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".fits" && ext != ".fit" && ext != ".fts" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if abs, _ := filepath.Abs(path); abs == refAbs {
			continue
		}
		pairs = append(pairs, pipeline.Pair{
			ID:      strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			RefPath: refPath,
			SciPath: path,
		})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].ID < pairs[j].ID })
	return pairs, nil
}
