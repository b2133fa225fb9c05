package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/leather-drafts/internal/block"
	"github.com/banshee-data/leather-drafts/internal/config"
	"github.com/banshee-data/leather-drafts/internal/fsutil"
	"github.com/banshee-data/leather-drafts/internal/monitoring"
	"github.com/banshee-data/leather-drafts/internal/recipe"
	"github.com/banshee-data/leather-drafts/internal/security"
)

func TestNew(t *testing.T) {
	l, err := New("", "acme")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("projects", "acme"), l.Dir)
	assert.Equal(t, filepath.Join("projects", "acme", "tmp"), l.Tmp())
	assert.Equal(t, filepath.Join("projects", "acme", "outputs"), l.Outputs())
	assert.Equal(t, filepath.Join("projects", "acme", "outputs", "acme.dxf"), l.DXF())
	assert.Equal(t, filepath.Join("projects", "acme", "tmp", "ledger.db"), l.Ledger())

	for _, bad := range []string{"", "../acme", "a/b", ".git"} {
		_, err := New("", bad)
		assert.ErrorIs(t, err, security.ErrClientName, "client %q", bad)
	}
}

func TestInit_WritesStarters(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	l, err := New("projects", "acme")
	require.NoError(t, err)

	written, err := Init(fsys, l)
	require.NoError(t, err)
	assert.Equal(t, []string{l.Recipe(), l.Measurements(), l.Options(), l.Block()}, written)

	for _, dir := range []string{l.Tmp(), l.Outputs()} {
		info, err := fsys.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}
}

func TestInit_DoesNotOverwrite(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	l, err := New("projects", "acme")
	require.NoError(t, err)
	require.NoError(t, fsys.MkdirAll(l.Dir, 0755))
	require.NoError(t, fsys.WriteFile(l.Recipe(), []byte("name: mine\n"), 0644))

	var logged []string
	defer monitoring.SetLogf(monitoring.Logf)
	monitoring.SetLogf(func(format string, v ...interface{}) {
		logged = append(logged, fmt.Sprintf(format, v...))
	})

	written, err := Init(fsys, l)
	require.NoError(t, err)
	assert.NotContains(t, written, l.Recipe())
	assert.Len(t, written, 3)
	assert.Equal(t, []string{"keeping existing " + l.Recipe()}, logged)

	data, err := fsys.ReadFile(l.Recipe())
	require.NoError(t, err)
	assert.Equal(t, "name: mine\n", string(data))

	again, err := Init(fsys, l)
	require.NoError(t, err)
	assert.Empty(t, again)
}

// The starters must draft and construct out of the box.
func TestTemplates_Load(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	l, err := New("projects", "acme")
	require.NoError(t, err)
	_, err = Init(fsys, l)
	require.NoError(t, err)

	r := recipe.LoadRecipe(fsys, l.Recipe())
	assert.Equal(t, "starter jacket", r.Name)
	assert.Equal(t, l.Block(), r.BlockPath())

	m, err := recipe.LoadMeasurements(fsys, l.Measurements())
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, m.Body["chest"], 1e-9, "cm converted to mm")

	b, err := block.Load(fsys, r.BlockPath())
	require.NoError(t, err)
	p, err := block.Draft(b, m, r)
	require.NoError(t, err)
	names := []string{}
	for _, pc := range p.Pieces {
		names = append(names, pc.Name)
	}
	assert.Equal(t, []string{"front", "back", "collar"}, names)

	opts, err := config.LoadConstructOptions(fsys, l.Options())
	require.NoError(t, err)
	assert.InDelta(t, 6.0, opts.AllowanceFor("collar", nil), 1e-9)
	assert.InDelta(t, 8.0, opts.AllowanceFor("front", nil), 1e-9)
}

func TestTemplate_Unknown(t *testing.T) {
	_, err := Template("nope.yml")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(fsutil.OSFileSystem{}, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), l.Client)

	file := filepath.Join(dir, "x.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = Open(fsutil.OSFileSystem{}, file)
	assert.Error(t, err)

	_, err = Open(fsutil.OSFileSystem{}, filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	l := &Layout{Dir: dir, Client: "acme"}

	got, err := l.Resolve("recipe.yml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "recipe.yml"), got)

	_, err = l.Resolve("../other/recipe.yml")
	assert.ErrorIs(t, err, security.ErrTraversal)
}
