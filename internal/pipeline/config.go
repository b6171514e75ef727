package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"transient-finder/internal/alignment"
	"transient-finder/internal/candidate"
	"transient-finder/internal/diffimage"
	"transient-finder/internal/frame"
	"transient-finder/internal/render"
	"transient-finder/internal/score"
)

// Config is the recognized option surface of one pipeline run. Zero values
// mean "use the default"; Load fills a Config from a JSON file and Validate
// rejects inconsistent settings before any pixel work starts.
type Config struct {
	// Registration.
	TransformClass    string `json:"transform_class"`    // rigid | similarity | homography
	UseCentralRegion  bool   `json:"use_central_region"` // restrict feature search to a centered window
	CentralRegionSize int    `json:"central_region_size"`
	Seed              int64  `json:"seed"` // RANSAC sampling seed
	// FallbackIdentity continues a run with the identity transform when
	// alignment fails, instead of stopping at the alignment boundary.
	FallbackIdentity bool `json:"fallback_identity"`

	// Difference cleaning. Stage toggles are explicit: a stage is skipped
	// only when its flag says so, never silently.
	NoiseSigmaMultiplier float64 `json:"noise_sigma_multiplier"`
	DisableThreshold     bool    `json:"disable_threshold"`
	DisableSizeFilter    bool    `json:"disable_size_filter"`
	DisableMorphology    bool    `json:"disable_morphology"`
	DisableSmoothing     bool    `json:"disable_smoothing"`

	// Extraction.
	MinCandidateArea int `json:"min_candidate_area"`
	Connectivity     int `json:"connectivity"` // 4 or 8

	// Scoring.
	Scorer            string  `json:"scorer"` // statistical | bayes | multiscale
	ReliabilityCutoff float64 `json:"reliability_cutoff"`

	// Annotation.
	MarkerMetric string `json:"marker_metric"` // area | flux | snr
	MinRadius    int    `json:"min_radius"`
	MaxRadius    int    `json:"max_radius"`

	// Batch orchestration.
	Workers    int  `json:"workers"`     // 0 means one per CPU, capped at the pair count
	FieldCheck bool `json:"field_check"` // perceptual-hash pre-screen of each pair
	// FieldMismatchScore is the duplo score above which the pair is flagged
	// as a probable field mismatch. Higher duplo scores mean less similar.
	FieldMismatchScore float64 `json:"field_mismatch_score"`
}

// DefaultConfig returns the runnable defaults.
func DefaultConfig() Config {
	return Config{
		TransformClass:    "rigid",
		CentralRegionSize: 512,
		Seed:              1,

		NoiseSigmaMultiplier: 4.0,

		MinCandidateArea: 3,
		Connectivity:     8,

		Scorer:            "statistical",
		ReliabilityCutoff: 50,

		MarkerMetric: "snr",
		MinRadius:    6,
		MaxRadius:    18,

		FieldCheck:         false,
		FieldMismatchScore: 40,
	}
}

// Load reads a JSON config file over the defaults. A missing path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the whole option surface and returns a ConfigError on the
// first inconsistency.
func (c Config) Validate() error {
	if _, ok := alignment.ParseClass(c.TransformClass); !ok {
		return frame.Configf("transform_class", "unknown class %q", c.TransformClass)
	}
	if c.UseCentralRegion && c.CentralRegionSize < 32 {
		return frame.Configf("central_region_size", "must be at least 32 pixels, got %d", c.CentralRegionSize)
	}
	if c.ReliabilityCutoff < 0 || c.ReliabilityCutoff > 100 {
		return frame.Configf("reliability_cutoff", "must be in [0, 100], got %g", c.ReliabilityCutoff)
	}
	if c.NoiseSigmaMultiplier < 0 {
		return frame.Configf("noise_sigma_multiplier", "must not be negative, got %g", c.NoiseSigmaMultiplier)
	}
	if _, ok := render.ParseMetric(c.MarkerMetric); !ok {
		return frame.Configf("marker_metric", "unknown metric %q", c.MarkerMetric)
	}
	if c.Workers < 0 {
		return frame.Configf("workers", "must not be negative, got %d", c.Workers)
	}
	if c.Connectivity != 0 && c.Connectivity != 4 && c.Connectivity != 8 {
		return frame.Configf("connectivity", "must be 4 or 8, got %d", c.Connectivity)
	}
	if _, err := score.New(c.Scorer, score.DefaultParams()); err != nil {
		return err
	}
	if err := c.diffParams().Validate(); err != nil {
		return err
	}
	if err := c.extractParams().Validate(); err != nil {
		return err
	}
	if err := c.markerParams().Validate(); err != nil {
		return err
	}
	return nil
}

func (c Config) alignOptions() alignment.Options {
	opts := alignment.DefaultOptions()
	if class, ok := alignment.ParseClass(c.TransformClass); ok {
		opts.Class = class
	}
	opts.UseCentralRegion = c.UseCentralRegion
	if c.CentralRegionSize > 0 {
		opts.CentralRegionSize = c.CentralRegionSize
	}
	if c.Seed != 0 {
		opts.Seed = c.Seed
	}
	return opts
}

func (c Config) diffParams() diffimage.Params {
	p := diffimage.DefaultParams()
	if c.NoiseSigmaMultiplier > 0 {
		p.NoiseKappa = c.NoiseSigmaMultiplier
	}
	p.EnableThreshold = !c.DisableThreshold
	p.EnableSizeFilter = !c.DisableSizeFilter
	p.EnableMorphology = !c.DisableMorphology
	p.EnableSmoothing = !c.DisableSmoothing
	if c.MinCandidateArea > 0 {
		p.MinComponentArea = c.MinCandidateArea
	}
	return p
}

func (c Config) extractParams() candidate.Params {
	p := candidate.DefaultParams()
	if c.MinCandidateArea > 0 {
		p.MinArea = c.MinCandidateArea
	}
	if c.Connectivity == 4 {
		p.Connectivity = candidate.Connect4
	}
	return p
}

func (c Config) markerParams() render.MarkerParams {
	p := render.DefaultMarkerParams()
	if m, ok := render.ParseMetric(c.MarkerMetric); ok {
		p.Metric = m
	}
	if c.MinRadius > 0 {
		p.MinRadius = c.MinRadius
	}
	if c.MaxRadius > 0 {
		p.MaxRadius = c.MaxRadius
	}
	return p
}
