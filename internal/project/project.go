// Package project lays out a client's working directory and seeds it with
// starter inputs.
package project

import (
	"embed"
	"fmt"
	"path"
	"path/filepath"

	"github.com/banshee-data/leather-drafts/internal/fsutil"
	"github.com/banshee-data/leather-drafts/internal/monitoring"
	"github.com/banshee-data/leather-drafts/internal/security"
)

// Layout names.
const (
	DefaultRoot = "projects"
	TmpDir      = "tmp"
	OutputsDir  = "outputs"

	RecipeFile       = "recipe.yml"
	MeasurementsFile = "measurements.json"
	OptionsFile      = "options.yml"
	BlockFile        = "block.json"
	ExportFile       = "export.yml"

	BaseFile        = "base.json"
	ConstructedFile = "constructed.json"
	PackageDir      = "package"
	LedgerFile      = "ledger.db"
)

//go:embed templates/*
var templates embed.FS

// starters are written by Init, in order.
var starters = []string{RecipeFile, MeasurementsFile, OptionsFile, BlockFile}

// Layout is a project directory: projects/<client>.
type Layout struct {
	Dir    string
	Client string
}

// New returns the layout of client under root. The client name must be a
// single path element.
func New(root, client string) (*Layout, error) {
	if err := security.ValidateClientName(client); err != nil {
		return nil, err
	}
	if root == "" {
		root = DefaultRoot
	}
	return &Layout{Dir: filepath.Join(root, client), Client: client}, nil
}

// Open returns the layout of an existing project directory.
func Open(fsys fsutil.FileSystem, dir string) (*Layout, error) {
	info, err := fsys.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project %s is not a directory", dir)
	}
	return &Layout{Dir: filepath.Clean(dir), Client: filepath.Base(dir)}, nil
}

// Tmp is the intermediate pattern directory.
func (l *Layout) Tmp() string { return filepath.Join(l.Dir, TmpDir) }

// Outputs is the deliverables directory.
func (l *Layout) Outputs() string { return filepath.Join(l.Dir, OutputsDir) }

func (l *Layout) Recipe() string       { return filepath.Join(l.Dir, RecipeFile) }
func (l *Layout) Measurements() string { return filepath.Join(l.Dir, MeasurementsFile) }
func (l *Layout) Options() string      { return filepath.Join(l.Dir, OptionsFile) }
func (l *Layout) Block() string        { return filepath.Join(l.Dir, BlockFile) }
func (l *Layout) ExportOptions() string {
	return filepath.Join(l.Dir, ExportFile)
}
func (l *Layout) Base() string        { return filepath.Join(l.Tmp(), BaseFile) }
func (l *Layout) Constructed() string { return filepath.Join(l.Tmp(), ConstructedFile) }
func (l *Layout) Package() string     { return filepath.Join(l.Outputs(), PackageDir) }
func (l *Layout) Ledger() string      { return filepath.Join(l.Tmp(), LedgerFile) }

// DXF is the exported drawing, named after the client.
func (l *Layout) DXF() string {
	return filepath.Join(l.Outputs(), fsutil.SafeFileName(l.Client)+".dxf")
}

// Resolve joins a relative path onto the project directory and rejects
// paths that leave it. Absolute paths are checked as given.
func (l *Layout) Resolve(p string) (string, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(l.Dir, p)
	}
	if err := security.ValidatePathWithinDirectory(p, l.Dir); err != nil {
		return "", err
	}
	return p, nil
}

// Init creates the project directories and writes the starter inputs.
// Existing files are left untouched. It returns the files it wrote.
func Init(fsys fsutil.FileSystem, l *Layout) ([]string, error) {
	for _, dir := range []string{l.Tmp(), l.Outputs()} {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	var written []string
	for _, name := range starters {
		dst := filepath.Join(l.Dir, name)
		if fsys.Exists(dst) {
			monitoring.Logf("keeping existing %s", dst)
			continue
		}
		data, err := Template(name)
		if err != nil {
			return written, err
		}
		if err := fsys.WriteFile(dst, data, 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", dst, err)
		}
		written = append(written, dst)
	}
	return written, nil
}

// Template returns an embedded starter file.
func Template(name string) ([]byte, error) {
	data, err := templates.ReadFile(path.Join("templates", name))
	if err != nil {
		return nil, fmt.Errorf("no template %q: %w", name, err)
	}
	return data, nil
}
