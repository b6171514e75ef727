// Command transient-finder runs the difference-imaging pipeline on one
// reference/science FITS pair and writes the difference image, an annotated
// copy, a color quicklook, and the candidate catalog.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"transient-finder/internal/fitsio"
	"transient-finder/internal/pipeline"
	"transient-finder/internal/render"
	"transient-finder/internal/version"
)

func main() {
	refPath := flag.String("ref", "", "Path to the reference/template FITS image")
	sciPath := flag.String("sci", "", "Path to the science FITS image")
	outDir := flag.String("out", ".", "Output directory")
	cfgPath := flag.String("config", "", "Path to a JSON configuration file")
	verbose := flag.Bool("v", false, "Verbose progress output")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("transient-finder %s (%s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}
	if *refPath == "" || *sciPath == "" {
		fmt.Println("Usage: transient-finder -ref <template.fits> -sci <science.fits> [-out <dir>] [-config <cfg.json>] [-v]")
		os.Exit(2)
	}

	cfg, err := pipeline.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	ref, err := fitsio.Read(*refPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reference: %v\n", err)
		os.Exit(1)
	}
	sci, err := fitsio.Read(*sciPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "science: %v\n", err)
		os.Exit(1)
	}

	obs := pipeline.StdoutObserver{Verbose: *verbose}
	res := pipeline.Run(ref, sci, cfg, obs)
	if !res.Success {
		fmt.Fprintf(os.Stderr, "run failed: %s\n", res.Reason)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "output: %v\n", err)
		os.Exit(1)
	}
	if err := writeArtifacts(res, *outDir); err != nil {
		fmt.Fprintf(os.Stderr, "output: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d accepted, %d rejected; artifacts in %s\n",
		len(res.Accepted), len(res.Rejected), *outDir)
}

func writeArtifacts(res *pipeline.Result, dir string) error {
	if err := fitsio.Write(filepath.Join(dir, "difference.fits"), res.Diff.Img); err != nil {
		return err
	}
	if err := fitsio.Write(filepath.Join(dir, "annotated.fits"), res.Annotated); err != nil {
		return err
	}

	res.Catalog.Generated = time.Now()
	catFile, err := os.Create(filepath.Join(dir, "candidates.txt"))
	if err != nil {
		return err
	}
	defer catFile.Close()
	if err := res.Catalog.Write(catFile); err != nil {
		return err
	}

	overlay, err := render.Overlay(res.Diff.Img, res.Accepted, render.DefaultOverlayParams())
	if err != nil {
		return err
	}
	return render.SaveQuicklook(overlay, filepath.Join(dir, "quicklook.png"), 2048)
}
