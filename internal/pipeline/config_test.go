package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"transient-finder/internal/frame"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("missing file config = %+v, want defaults", cfg)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	body := `{
		"transform_class": "homography",
		"noise_sigma_multiplier": 3.5,
		"min_candidate_area": 5,
		"reliability_cutoff": 65,
		"scorer": "bayes",
		"connectivity": 4
	}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TransformClass != "homography" || cfg.NoiseSigmaMultiplier != 3.5 ||
		cfg.MinCandidateArea != 5 || cfg.ReliabilityCutoff != 65 ||
		cfg.Scorer != "bayes" || cfg.Connectivity != 4 {
		t.Errorf("loaded config = %+v, overrides not applied", cfg)
	}
	// Untouched keys keep their defaults.
	if cfg.MinRadius != DefaultConfig().MinRadius {
		t.Errorf("MinRadius = %d, want default %d", cfg.MinRadius, DefaultConfig().MinRadius)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestConfig_ValidateRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown transform class", func(c *Config) { c.TransformClass = "projective3d" }},
		{"cutoff above 100", func(c *Config) { c.ReliabilityCutoff = 101 }},
		{"negative cutoff", func(c *Config) { c.ReliabilityCutoff = -1 }},
		{"inverted radii", func(c *Config) { c.MinRadius = 20; c.MaxRadius = 5 }},
		{"unknown marker metric", func(c *Config) { c.MarkerMetric = "magnitude" }},
		{"unknown scorer", func(c *Config) { c.Scorer = "forest" }},
		{"bad connectivity", func(c *Config) { c.Connectivity = 6 }},
		{"negative workers", func(c *Config) { c.Workers = -2 }},
		{"negative sigma multiplier", func(c *Config) { c.NoiseSigmaMultiplier = -3 }},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		err := cfg.Validate()
		var cfgErr *frame.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("%s: Validate() = %v, want ConfigError", tc.name, err)
		}
	}
}

func TestRun_BadConfigFailsBeforeProcessing(t *testing.T) {
	ref, err := frame.New(64, 64)
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.ReliabilityCutoff = 150

	res := Run(ref, ref.Clone(), cfg, nil)
	if res.Success {
		t.Error("Success = true with an invalid configuration")
	}
	if res.Alignment != nil {
		t.Error("processing started despite the invalid configuration")
	}
}
