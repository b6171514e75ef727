package pipeline

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/rivo/duplo"

	"transient-finder/internal/fitsio"
	"transient-finder/internal/frame"
)

// Pair names one reference/science image pair on disk.
type Pair struct {
	ID      string
	RefPath string
	SciPath string
}

// PairResult is the outcome of one pair in a batch.
type PairResult struct {
	Pair   Pair
	Result *Result

	// FieldMismatch flags a pair whose frames look like different sky
	// fields under the perceptual-hash pre-screen. Advisory only: the run
	// still executes.
	FieldMismatch bool
	FieldScore    float64
}

// Batch runs the pipeline over independent image pairs with a worker pool.
// Results come back in input order; each pair's images, transforms and
// candidate lists are pair-local, so pairs never contend. A pair that fails
// reports through its own Result and never affects its neighbours.
func Batch(pairs []Pair, cfg Config, obs Observer) []PairResult {
	if obs == nil {
		obs = NullObserver{}
	}
	results := make([]PairResult, len(pairs))
	if len(pairs) == 0 {
		return results
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(pairs) {
		workers = len(pairs)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = runPair(pairs[i], cfg, obs)
			}
		}()
	}
	for i := range pairs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

// runPair loads one pair and runs the pipeline over it.
func runPair(p Pair, cfg Config, obs Observer) PairResult {
	out := PairResult{Pair: p}

	ref, err := fitsio.Read(p.RefPath)
	if err != nil {
		out.Result = failed("input", err.Error())
		return out
	}
	sci, err := fitsio.Read(p.SciPath)
	if err != nil {
		out.Result = failed("input", err.Error())
		return out
	}

	if cfg.FieldCheck {
		out.FieldScore = fieldScore(ref, sci)
		if out.FieldScore > cfg.FieldMismatchScore {
			out.FieldMismatch = true
			obs.Errorf("%s: frames look like different fields (score %.1f > %.1f)",
				p.ID, out.FieldScore, cfg.FieldMismatchScore)
		}
	}

	out.Result = Run(ref, sci, cfg, prefixed{obs, p.ID})
	return out
}

// fieldScore compares the two frames with a perceptual hash. Lower scores
// mean more similar frames; same-field exposures score far below frames of
// unrelated sky regions.
func fieldScore(ref, sci *frame.Image) float64 {
	store := duplo.New()
	refHash, _ := duplo.CreateHash(ref.ToGray(0, 0))
	store.Add("ref", refHash)
	sciHash, _ := duplo.CreateHash(sci.ToGray(0, 0))
	matches := store.Query(sciHash)
	if len(matches) == 0 {
		return 0
	}
	return matches[0].Score
}

// prefixed tags every observer event with the pair id.
type prefixed struct {
	obs Observer
	id  string
}

func (p prefixed) Debugf(format string, args ...any) {
	p.obs.Debugf("%s: %s", p.id, fmt.Sprintf(format, args...))
}

func (p prefixed) Infof(format string, args ...any) {
	p.obs.Infof("%s: %s", p.id, fmt.Sprintf(format, args...))
}

func (p prefixed) Errorf(format string, args ...any) {
	p.obs.Errorf("%s: %s", p.id, fmt.Sprintf(format, args...))
}
