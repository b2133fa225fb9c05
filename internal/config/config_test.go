package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/banshee-data/leather-drafts/internal/fsutil"
)

func writeFile(t *testing.T, fsys *fsutil.MemoryFileSystem, name, body string) {
	t.Helper()
	if err := fsys.WriteFile(name, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

func TestDefaultConstructOptions(t *testing.T) {
	cfg := DefaultConstructOptions()
	if cfg.SeamAllowance == nil || *cfg.SeamAllowance != 0 {
		t.Errorf("Expected SeamAllowance 0, got %v", cfg.SeamAllowance)
	}
	if cfg.GetMiterLimit() != 4.0 {
		t.Errorf("GetMiterLimit() = %f, want 4.0", cfg.GetMiterLimit())
	}
	if cfg.GetFlattenTol() != 0.2 {
		t.Errorf("GetFlattenTol() = %f, want 0.2", cfg.GetFlattenTol())
	}
	if cfg.GetFailOnIntersection() {
		t.Errorf("GetFailOnIntersection() = true, want false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestEmptyConstructOptionsUseDefaults(t *testing.T) {
	cfg := &ConstructOptions{}
	if cfg.GetSeamAllowance() != 0 || cfg.GetMiterLimit() != 4.0 || cfg.GetConcurrency() != 4 {
		t.Errorf("unexpected defaults: sa=%f miter=%f conc=%d",
			cfg.GetSeamAllowance(), cfg.GetMiterLimit(), cfg.GetConcurrency())
	}
}

func TestLoadConstructOptions(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeFile(t, fsys, "opts/options.yml", `
seam_allowance: 10
miter_limit: 2.5
fail_on_intersection: true
pieces:
  collar:
    seam_allowance: 5
`)
	cfg, err := LoadConstructOptions(fsys, "opts/options.yml")
	if err != nil {
		t.Fatalf("Failed to load options: %v", err)
	}
	if cfg.GetSeamAllowance() != 10 {
		t.Errorf("GetSeamAllowance() = %f, want 10", cfg.GetSeamAllowance())
	}
	if cfg.GetMiterLimit() != 2.5 {
		t.Errorf("GetMiterLimit() = %f, want 2.5", cfg.GetMiterLimit())
	}
	if !cfg.GetFailOnIntersection() {
		t.Errorf("GetFailOnIntersection() = false, want true")
	}
	if cfg.GetFlattenTol() != 0.2 {
		t.Errorf("omitted flatten_tol should default, got %f", cfg.GetFlattenTol())
	}
}

func TestLoadConstructOptions_JSON(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeFile(t, fsys, "options.json", `{"seam_allowance": 6, "flatten_tol": 0.05}`)
	cfg, err := LoadConstructOptions(fsys, "options.json")
	if err != nil {
		t.Fatalf("Failed to load options: %v", err)
	}
	if cfg.GetSeamAllowance() != 6 || cfg.GetFlattenTol() != 0.05 {
		t.Errorf("unexpected values: %+v", cfg)
	}
}

func TestLoadConstructOptions_EmptyFile(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeFile(t, fsys, "options.yml", "")
	cfg, err := LoadConstructOptions(fsys, "options.yml")
	if err != nil {
		t.Fatalf("empty file should load: %v", err)
	}
	if cfg.GetSeamAllowance() != 0 {
		t.Errorf("GetSeamAllowance() = %f, want 0", cfg.GetSeamAllowance())
	}
}

func TestLoadConstructOptions_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"extension", "options.txt", "seam_allowance: 1", "extension"},
		{"unknown key", "options.yml", "seam_alowance: 1", "not found"},
		{"negative sa", "options.yml", "seam_allowance: -2", "non-negative"},
		{"miter below one", "options.yml", "miter_limit: 0.5", "at least 1"},
		{"zero tol", "options.yml", "flatten_tol: 0", "positive"},
		{"bad override", "options.yml", "pieces:\n  a:\n    seam_allowance: -1", "pieces.a"},
		{"bad yaml", "options.yml", "seam_allowance: [", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fsutil.NewMemoryFileSystem()
			writeFile(t, fsys, tt.file, tt.body)
			_, err := LoadConstructOptions(fsys, tt.file)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConstructOptions_Missing(t *testing.T) {
	_, err := LoadConstructOptions(fsutil.NewMemoryFileSystem(), "nope.yml")
	if err == nil || !strings.Contains(err.Error(), "stat") {
		t.Errorf("expected stat error, got %v", err)
	}
}

func TestLoadConstructOptions_TooLarge(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeFile(t, fsys, "big.yml", "# "+strings.Repeat("x", maxFileSize))
	if _, err := LoadConstructOptions(fsys, "big.yml"); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestAllowanceFor(t *testing.T) {
	cfg := &ConstructOptions{
		SeamAllowance: ptrFloat64(10),
		Pieces:        map[string]PieceOptions{"collar": {SeamAllowance: ptrFloat64(4)}, "cuff": {}},
	}
	tests := []struct {
		name    string
		pieceSA *float64
		want    float64
	}{
		{"collar", ptrFloat64(8), 4},
		{"collar", nil, 4},
		{"cuff", ptrFloat64(8), 8},
		{"front", ptrFloat64(7), 7},
		{"front", nil, 10},
	}
	for _, tt := range tests {
		if got := cfg.AllowanceFor(tt.name, tt.pieceSA); got != tt.want {
			t.Errorf("AllowanceFor(%q, %v) = %f, want %f", tt.name, tt.pieceSA, got, tt.want)
		}
	}
}

func TestExportOptions(t *testing.T) {
	cfg := DefaultExportOptions()
	if cfg.GetUnits() != "mm" || cfg.GetSplines() || cfg.GetArcs() != ArcsSegment || cfg.GetFlattenTol() != 0.2 {
		t.Errorf("unexpected defaults %+v", cfg)
	}

	fsys := fsutil.NewMemoryFileSystem()
	writeFile(t, fsys, "export.yaml", `
units: inches
splines: true
arcs: bulge
layer_map:
  CUT: OUTLINE
`)
	cfg, err := LoadExportOptions(fsys, "export.yaml")
	if err != nil {
		t.Fatalf("Failed to load export options: %v", err)
	}
	if cfg.GetUnits() != "in" {
		t.Errorf("GetUnits() = %q, want in", cfg.GetUnits())
	}
	if !cfg.GetSplines() || cfg.GetArcs() != ArcsBulge {
		t.Errorf("unexpected values %+v", cfg)
	}
	if cfg.Layer(LayerCut) != "OUTLINE" || cfg.Layer(LayerSA) != "SA" {
		t.Errorf("layer map not applied: %q %q", cfg.Layer(LayerCut), cfg.Layer(LayerSA))
	}
}

func TestExportOptions_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  ExportOptions
	}{
		{"units", ExportOptions{Units: ptrString("furlong")}},
		{"arcs", ExportOptions{Arcs: ptrString("nurbs")}},
		{"tol", ExportOptions{FlattenTol: ptrFloat64(-1)}},
		{"layer", ExportOptions{LayerMap: map[string]string{"CUT": " "}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestParseSwitch(t *testing.T) {
	for in, want := range map[string]bool{"on": true, "OFF": false, "true": true, "": false} {
		got, err := ParseSwitch(in)
		if err != nil || got != want {
			t.Errorf("ParseSwitch(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseSwitch("maybe"); err == nil {
		t.Errorf("expected error for maybe")
	}
}

func TestExtensionError(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeFile(t, fsys, "x.toml", "")
	_, err := LoadExportOptions(fsys, "x.toml")
	if !errors.Is(err, ErrExtension) {
		t.Errorf("expected ErrExtension, got %v", err)
	}
}
