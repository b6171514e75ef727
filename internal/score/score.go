// Package score classifies extracted candidates and assigns each a
// reliability score. Several scoring strategies share one contract and are
// selected by configuration; all of them are deterministic for identical
// inputs.
package score

import (
	"strings"

	"transient-finder/internal/candidate"
	"transient-finder/internal/diffimage"
	"transient-finder/internal/frame"
)

// Label classifies what a candidate most likely is.
type Label int

const (
	// LabelCandidate marks a likely real transient.
	LabelCandidate Label = iota
	// LabelStellar marks the residual of an imperfectly subtracted star.
	LabelStellar
	// LabelArtifact marks an alignment or subtraction artifact.
	LabelArtifact
	// LabelNoise marks a low-significance fluctuation.
	LabelNoise
)

func (l Label) String() string {
	switch l {
	case LabelCandidate:
		return "candidate"
	case LabelStellar:
		return "stellar"
	case LabelArtifact:
		return "artifact"
	case LabelNoise:
		return "noise"
	default:
		return "unknown"
	}
}

// Scored is a candidate enriched with its classification.
type Scored struct {
	candidate.Candidate
	Label       Label
	Confidence  float64 // in [0, 1]
	Reliability float64 // in [0, 100]
}

// Scorer is the single contract every scoring strategy implements. Given the
// raw candidates and the difference map they came from, it returns them
// scored, in the same order.
type Scorer interface {
	Score(cands []candidate.Candidate, dm *diffimage.DiffMap) ([]Scored, error)
}

// New builds the strategy named by a configuration string.
func New(name string, p Params) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "statistical":
		return &Statistical{Params: p}, nil
	case "bayes":
		return &Bayes{Params: p}, nil
	case "multiscale":
		return &MultiScale{Params: p}, nil
	}
	return nil, frame.Configf("scorer", "unknown strategy %q", name)
}

// Partition splits scored candidates at the reliability cutoff, preserving
// order within each subset.
func Partition(scored []Scored, cutoff float64) (accepted, rejected []Scored) {
	for _, s := range scored {
		if s.Reliability >= cutoff {
			accepted = append(accepted, s)
		} else {
			rejected = append(rejected, s)
		}
	}
	return accepted, rejected
}
