package pattern

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/leather-drafts/internal/fsutil"
	"github.com/banshee-data/leather-drafts/internal/units"
)

// maxPatternSize guards against accidentally loading huge files.
const maxPatternSize = 64 * 1024 * 1024

// Load reads and validates a pattern JSON file.
func Load(fsys fsutil.FileSystem, path string) (*Pattern, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat pattern: %w", err)
	}
	if info.Size() > maxPatternSize {
		return nil, fmt.Errorf("pattern file too large: %d bytes (max %d)", info.Size(), maxPatternSize)
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern: %w", err)
	}
	return Decode(data)
}

// Decode parses and validates pattern JSON.
func Decode(data []byte) (*Pattern, error) {
	var p Pattern
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse pattern JSON: %w", err)
	}
	p.Units = units.Normalize(p.Units)
	if !units.IsValid(p.Units) {
		return nil, fmt.Errorf("invalid pattern units %q (want one of %s)", p.Units, units.GetValidUnitsString())
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	return &p, nil
}

// Encode renders the pattern as indented JSON.
func Encode(p *Pattern) ([]byte, error) {
	for i := range p.Pieces {
		pc := &p.Pieces[i]
		if pc.Paths == nil {
			pc.Paths = []Command{}
		}
		if pc.Notches == nil {
			pc.Notches = []Mark{}
		}
		if pc.Drills == nil {
			pc.Drills = []Mark{}
		}
	}
	if p.Pieces == nil {
		p.Pieces = []Piece{}
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode pattern: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes the pattern to path, creating parent directories.
func Save(fsys fsutil.FileSystem, path string, p *Pattern) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := fsys.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write pattern: %w", err)
	}
	return nil
}
