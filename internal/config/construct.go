package config

import (
	"fmt"

	"github.com/banshee-data/leather-drafts/internal/fsutil"
	"github.com/banshee-data/leather-drafts/internal/geom"
)

// PieceOptions overrides construct options for one piece.
type PieceOptions struct {
	SeamAllowance *float64 `yaml:"seam_allowance,omitempty"`
}

// ConstructOptions configures the construct stage.
type ConstructOptions struct {
	SeamAllowance      *float64                `yaml:"seam_allowance,omitempty"`
	MiterLimit         *float64                `yaml:"miter_limit,omitempty"`
	FlattenTol         *float64                `yaml:"flatten_tol,omitempty"`
	FailOnIntersection *bool                   `yaml:"fail_on_intersection,omitempty"`
	Concurrency        *int                    `yaml:"concurrency,omitempty"`
	Pieces             map[string]PieceOptions `yaml:"pieces,omitempty"`
}

// DefaultConstructOptions returns options with every field set to its default.
func DefaultConstructOptions() *ConstructOptions {
	return &ConstructOptions{
		SeamAllowance:      ptrFloat64(0),
		MiterLimit:         ptrFloat64(geom.DefaultMiterLimit),
		FlattenTol:         ptrFloat64(geom.DefaultFlattenTol),
		FailOnIntersection: ptrBool(false),
	}
}

// LoadConstructOptions loads construct options from YAML or JSON.
func LoadConstructOptions(fsys fsutil.FileSystem, path string) (*ConstructOptions, error) {
	cfg := &ConstructOptions{}
	if err := load(fsys, path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *ConstructOptions) Validate() error {
	if c.SeamAllowance != nil && *c.SeamAllowance < 0 {
		return fmt.Errorf("seam_allowance must be non-negative, got %g", *c.SeamAllowance)
	}
	if c.MiterLimit != nil && *c.MiterLimit < 1 {
		return fmt.Errorf("miter_limit must be at least 1, got %g", *c.MiterLimit)
	}
	if c.FlattenTol != nil && *c.FlattenTol <= 0 {
		return fmt.Errorf("flatten_tol must be positive, got %g", *c.FlattenTol)
	}
	if c.Concurrency != nil && *c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", *c.Concurrency)
	}
	for name, p := range c.Pieces {
		if p.SeamAllowance != nil && *p.SeamAllowance < 0 {
			return fmt.Errorf("pieces.%s.seam_allowance must be non-negative, got %g", name, *p.SeamAllowance)
		}
	}
	return nil
}

// GetSeamAllowance returns the seam_allowance value or the default.
func (c *ConstructOptions) GetSeamAllowance() float64 {
	if c.SeamAllowance == nil {
		return 0
	}
	return *c.SeamAllowance
}

// GetMiterLimit returns the miter_limit value or the default.
func (c *ConstructOptions) GetMiterLimit() float64 {
	if c.MiterLimit == nil {
		return geom.DefaultMiterLimit
	}
	return *c.MiterLimit
}

// GetFlattenTol returns the flatten_tol value or the default.
func (c *ConstructOptions) GetFlattenTol() float64 {
	if c.FlattenTol == nil {
		return geom.DefaultFlattenTol
	}
	return *c.FlattenTol
}

// GetFailOnIntersection returns the fail_on_intersection value or the default.
func (c *ConstructOptions) GetFailOnIntersection() bool {
	if c.FailOnIntersection == nil {
		return false
	}
	return *c.FailOnIntersection
}

// GetConcurrency returns the concurrency value or the default.
func (c *ConstructOptions) GetConcurrency() int {
	if c.Concurrency == nil {
		return 4
	}
	return *c.Concurrency
}

// AllowanceFor resolves the seam allowance of one piece: a per-piece
// override wins over the piece's own value, which wins over the global
// option.
func (c *ConstructOptions) AllowanceFor(name string, pieceSA *float64) float64 {
	if p, ok := c.Pieces[name]; ok && p.SeamAllowance != nil {
		return *p.SeamAllowance
	}
	if pieceSA != nil {
		return *pieceSA
	}
	return c.GetSeamAllowance()
}
