// Package config holds the lodgen run configuration (spec §6.5) and its
// validation, in the teacher's style of small structs with an explicit
// Validate method rather than a struct-tag-driven library.
package config

import "github.com/alex2835/lodgen/internal/lodgenerr"

// Config is the full set of knobs the orchestrator needs for one
// generate_lods run.
type Config struct {
	Ratios         []float64
	ResizeTextures bool
	BuildAtlas     bool
	OutputDir      string
}

// Validate enforces spec §6.5: at least one ratio, every ratio in (0,1),
// and a non-empty output directory.
func (c Config) Validate() *lodgenerr.Error {
	if len(c.Ratios) == 0 {
		return lodgenerr.New(lodgenerr.InvalidConfig, "at least one LOD ratio is required")
	}
	for _, r := range c.Ratios {
		if r <= 0 || r >= 1 {
			return lodgenerr.New(lodgenerr.InvalidConfig, "ratios must be strictly between 0 and 1")
		}
	}
	if c.OutputDir == "" {
		return lodgenerr.New(lodgenerr.InvalidConfig, "output directory is required")
	}
	return nil
}
