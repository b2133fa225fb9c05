package config

import (
	"fmt"
	"strings"

	"github.com/banshee-data/leather-drafts/internal/fsutil"
	"github.com/banshee-data/leather-drafts/internal/geom"
	"github.com/banshee-data/leather-drafts/internal/units"
)

// Arc export modes.
const (
	ArcsSegment = "segment"
	ArcsBulge   = "bulge"
)

// Default DXF layer names.
const (
	LayerCut   = "CUT"
	LayerSA    = "SA"
	LayerNotch = "NOTCH"
	LayerDrill = "DRILL"
	LayerGrain = "GRAIN"
	LayerText  = "TEXT"
)

// DefaultLayers lists the logical layers in table order.
var DefaultLayers = []string{LayerCut, LayerSA, LayerNotch, LayerDrill, LayerGrain, LayerText}

// ExportOptions configures the export-dxf stage. Command line flags override
// values loaded from a file.
type ExportOptions struct {
	Units      *string           `yaml:"units,omitempty"`
	Splines    *bool             `yaml:"splines,omitempty"`
	FlattenTol *float64          `yaml:"flatten_tol,omitempty"`
	Arcs       *string           `yaml:"arcs,omitempty"`
	LayerMap   map[string]string `yaml:"layer_map,omitempty"`
}

// DefaultExportOptions returns options with every field set to its default.
func DefaultExportOptions() *ExportOptions {
	return &ExportOptions{
		Units:      ptrString(units.MM),
		Splines:    ptrBool(false),
		FlattenTol: ptrFloat64(geom.DefaultFlattenTol),
		Arcs:       ptrString(ArcsSegment),
	}
}

// LoadExportOptions loads export options from YAML or JSON.
func LoadExportOptions(fsys fsutil.FileSystem, path string) (*ExportOptions, error) {
	cfg := &ExportOptions{}
	if err := load(fsys, path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *ExportOptions) Validate() error {
	if c.Units != nil && !units.IsValid(units.Normalize(*c.Units)) {
		return fmt.Errorf("units must be one of %s, got %q", units.GetValidUnitsString(), *c.Units)
	}
	if c.FlattenTol != nil && *c.FlattenTol <= 0 {
		return fmt.Errorf("flatten_tol must be positive, got %g", *c.FlattenTol)
	}
	if c.Arcs != nil && *c.Arcs != ArcsSegment && *c.Arcs != ArcsBulge {
		return fmt.Errorf("arcs must be %q or %q, got %q", ArcsSegment, ArcsBulge, *c.Arcs)
	}
	for from, to := range c.LayerMap {
		if strings.TrimSpace(to) == "" {
			return fmt.Errorf("layer_map.%s must not be empty", from)
		}
	}
	return nil
}

// GetUnits returns the normalized units value or the default.
func (c *ExportOptions) GetUnits() string {
	if c.Units == nil {
		return units.MM
	}
	return units.Normalize(*c.Units)
}

// GetSplines returns the splines value or the default.
func (c *ExportOptions) GetSplines() bool {
	if c.Splines == nil {
		return false
	}
	return *c.Splines
}

// GetFlattenTol returns the flatten_tol value or the default.
func (c *ExportOptions) GetFlattenTol() float64 {
	if c.FlattenTol == nil {
		return geom.DefaultFlattenTol
	}
	return *c.FlattenTol
}

// GetArcs returns the arcs value or the default.
func (c *ExportOptions) GetArcs() string {
	if c.Arcs == nil {
		return ArcsSegment
	}
	return *c.Arcs
}

// Layer maps a logical layer name through the layer map.
func (c *ExportOptions) Layer(name string) string {
	if to, ok := c.LayerMap[name]; ok {
		return to
	}
	return name
}

// ParseSwitch parses an on/off flag value.
func ParseSwitch(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
