// Command aligntest registers a science frame against a reference frame and
// prints the registration diagnostics without running the rest of the
// pipeline.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"transient-finder/internal/alignment"
	"transient-finder/internal/fitsio"
)

func main() {
	refPath := flag.String("ref", "", "Path to the reference FITS image")
	sciPath := flag.String("sci", "", "Path to the science FITS image")
	class := flag.String("class", "rigid", "Transform class: rigid, similarity or homography")
	central := flag.Int("central", 0, "Restrict feature search to a centered window of this edge length")
	seed := flag.Int64("seed", 1, "RANSAC sampling seed")
	flag.Parse()

	if *refPath == "" || *sciPath == "" {
		fmt.Println("Usage: aligntest -ref <template.fits> -sci <science.fits> [-class rigid|similarity|homography] [-central <px>] [-seed <n>]")
		os.Exit(2)
	}

	opts := alignment.DefaultOptions()
	cls, ok := alignment.ParseClass(*class)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown transform class %q\n", *class)
		os.Exit(2)
	}
	opts = opts.WithClass(cls)
	if *central > 0 {
		opts = opts.WithCentralRegion(*central)
	}
	opts.Seed = *seed

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
	fmt.Printf("reference: %dx%d  science: %dx%d\n", ref.Width, ref.Height, sci.Width, sci.Height)

	res, err := alignment.Align(ref, sci, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "alignment: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nkeypoints:       %d (reference), %d (science)\n", res.Stats.KeypointsRef, res.Stats.KeypointsSci)
	fmt.Printf("correspondences: %d\n", res.Stats.Correspondences)
	fmt.Printf("inliers:         %d (ratio %.2f, mean error %.3f px)\n",
		res.Stats.Inliers, res.Stats.InlierRatio, res.Stats.MeanError)
	fmt.Printf("coverage:        %.1f%% of frame\n", res.Stats.Coverage*100)

	if !res.Success {
		fmt.Printf("\nalignment FAILED: %s\n", res.Reason)
		os.Exit(1)
	}

	fmt.Printf("\nalignment OK (%s)\n", res.Class)
	t := res.Transform
	for i := 0; i < 3; i++ {
		fmt.Printf("  [%12.6f %12.6f %12.6f]\n", t[i][0], t[i][1], t[i][2])
	}
	if a, ok := t.Affine(1e-8); ok {
		fmt.Printf("\nrotation: %.4f deg  scale: %.5f  translation: (%.2f, %.2f)\n",
			a.RotationAngle()*180/math.Pi, a.ScaleFactor(), a.TX, a.TY)
	}
}
