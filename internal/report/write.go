package report

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/leather-drafts/internal/fsutil"
	"github.com/banshee-data/leather-drafts/internal/pattern"
)

// Output names inside the package directory.
const (
	SummaryFile = "summary.json"
	HTMLFile    = "report.html"
	ProofsDir   = "proofs"
)

// Write renders summary.json, report.html and proofs/<name>.svg under dir
// and returns the written paths.
func Write(fsys fsutil.FileSystem, dir string, p *pattern.Pattern, tol float64, o HTMLOptions) ([]string, error) {
	if err := fsys.MkdirAll(filepath.Join(dir, ProofsDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", ProofsDir, err)
	}
	s := Summarize(p, tol)
	var written []string

	data, err := s.JSON()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, SummaryFile)
	if err := fsys.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	written = append(written, path)

	var buf bytes.Buffer
	if err := WriteHTML(&buf, s, o); err != nil {
		return written, err
	}
	path = filepath.Join(dir, HTMLFile)
	if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return written, fmt.Errorf("failed to write %s: %w", path, err)
	}
	written = append(written, path)

	for i := range p.Pieces {
		pc := &p.Pieces[i]
		svg, err := ProofSVG(pc, p.Units, tol)
		if err != nil {
			return written, fmt.Errorf("piece %q: %w", pc.Name, err)
		}
		path := filepath.Join(dir, ProofsDir, fsutil.SafeFileName(pc.Name)+".svg")
		if err := fsys.WriteFile(path, svg, 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
