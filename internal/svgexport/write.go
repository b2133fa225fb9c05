package svgexport

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/leather-drafts/internal/fsutil"
	"github.com/banshee-data/leather-drafts/internal/pattern"
)

// SheetFile is the combined preview written into the package directory.
const SheetFile = "pattern.svg"

// PiecesDir holds one SVG per piece.
const PiecesDir = "pieces"

// Write renders pattern.svg and pieces/<name>.svg under dir and returns the
// written paths.
func Write(fsys fsutil.FileSystem, dir string, p *pattern.Pattern, opts Options) ([]string, error) {
	if err := fsys.MkdirAll(filepath.Join(dir, PiecesDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", PiecesDir, err)
	}

	var written []string
	var buf bytes.Buffer
	if err := Sheet(&buf, p, opts); err != nil {
		return nil, fmt.Errorf("failed to render sheet: %w", err)
	}
	sheet := filepath.Join(dir, SheetFile)
	if err := fsys.WriteFile(sheet, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", sheet, err)
	}
	written = append(written, sheet)

	for i := range p.Pieces {
		pc := &p.Pieces[i]
		buf.Reset()
		if err := Piece(&buf, pc, p.Units, opts); err != nil {
			return written, fmt.Errorf("failed to render piece %q: %w", pc.Name, err)
		}
		path := filepath.Join(dir, PiecesDir, fsutil.SafeFileName(pc.Name)+".svg")
		if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
