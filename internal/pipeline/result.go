package pipeline

import (
	"transient-finder/internal/alignment"
	"transient-finder/internal/diffimage"
	"transient-finder/internal/frame"
	"transient-finder/internal/render"
	"transient-finder/internal/score"
)

// Result is the structured outcome of one pipeline run. A run always returns
// a Result, never panics and never ends the process; on failure Success is
// false and Reason says why in machine-readable form.
type Result struct {
	Success bool
	// Reason identifies the failed stage when Success is false, e.g.
	// "alignment: inlier ratio 0.12 below floor 0.25".
	Reason string

	Alignment *alignment.Result
	Diff      *diffimage.DiffMap

	Accepted []score.Scored
	Rejected []score.Scored

	// Annotated is the difference image with accepted candidates circled.
	Annotated *frame.Image
	Catalog   *render.Catalog
}

// failed builds a failure result at a stage boundary.
func failed(stage, reason string) *Result {
	return &Result{Reason: stage + ": " + reason}
}
