// Package recipe loads the garment recipe and body measurements that drive
// block drafting.
package recipe

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/leather-drafts/internal/fsutil"
	"github.com/banshee-data/leather-drafts/internal/monitoring"
	"github.com/banshee-data/leather-drafts/internal/units"
)

// DefaultHemAllowance is O.hem_allowance when the recipe does not set it.
const DefaultHemAllowance = 20.0

// Recipe describes a garment: its display metadata, an optional block file and
// numeric defaults exposed to block expressions as O.<name>.
type Recipe struct {
	Name     string             `yaml:"name"`
	Style    string             `yaml:"style"`
	Block    string             `yaml:"block"`
	Defaults map[string]float64 `yaml:"defaults"`

	// dir is the directory the recipe was loaded from; Block is relative to it.
	dir string
}

// LoadRecipe reads a recipe YAML file. A missing or malformed recipe is not
// fatal: it yields an empty recipe and a warning, so drafting falls back to
// the built-in defaults.
func LoadRecipe(fsys fsutil.FileSystem, path string) *Recipe {
	r := &Recipe{dir: filepath.Dir(path)}
	data, err := fsys.ReadFile(path)
	if err != nil {
		monitoring.L().Sugar().Warnf("recipe %s unreadable, using defaults: %v", path, err)
		return r
	}
	if err := yaml.Unmarshal(data, r); err != nil {
		monitoring.L().Sugar().Warnf("recipe %s malformed, using defaults: %v", path, err)
		return &Recipe{dir: filepath.Dir(path)}
	}
	return r
}

// BlockPath returns the block file named by the recipe, resolved against the
// recipe's directory, or "" when none is set.
func (r *Recipe) BlockPath() string {
	if r.Block == "" {
		return ""
	}
	if filepath.IsAbs(r.Block) {
		return r.Block
	}
	return filepath.Join(r.dir, r.Block)
}

// Options returns the O namespace: every recipe default plus hem_allowance.
func (r *Recipe) Options() map[string]float64 {
	o := make(map[string]float64, len(r.Defaults)+1)
	for k, v := range r.Defaults {
		o[k] = v
	}
	if _, ok := o["hem_allowance"]; !ok {
		o["hem_allowance"] = DefaultHemAllowance
	}
	return o
}

// Measurements are body measurements and fit ease, in millimetres once
// loaded.
type Measurements struct {
	Units string             `json:"units"`
	Body  map[string]float64 `json:"body"`
	Fit   map[string]float64 `json:"fit"`
}

// LoadMeasurements reads measurements JSON and converts every value to
// millimetres.
func LoadMeasurements(fsys fsutil.FileSystem, path string) (*Measurements, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read measurements: %w", err)
	}
	return DecodeMeasurements(data)
}

// DecodeMeasurements parses measurements JSON and converts to millimetres.
func DecodeMeasurements(data []byte) (*Measurements, error) {
	var m Measurements
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse measurements JSON: %w", err)
	}
	from := units.Normalize(m.Units)
	if !units.IsValid(from) || from == units.Unitless {
		return nil, fmt.Errorf("invalid measurement units %q (want mm, cm or in)", m.Units)
	}
	m.Body = toMM(m.Body, from)
	m.Fit = toMM(m.Fit, from)
	m.Units = units.MM
	return &m, nil
}

func toMM(in map[string]float64, from string) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = units.ToMM(v, from)
	}
	return out
}
