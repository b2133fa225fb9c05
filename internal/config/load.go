// Package config holds the option files read by the construct and export-dxf
// stages. Fields are pointers so that omitted keys fall back to the Get*
// defaults; partial files are safe.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/leather-drafts/internal/fsutil"
)

// maxFileSize bounds option files.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// ErrExtension is returned for files that are neither YAML nor JSON.
var ErrExtension = errors.New("config file must have .yml, .yaml or .json extension")

type validator interface {
	Validate() error
}

// load reads path into dst. JSON is accepted through the YAML decoder.
// Unknown keys are rejected.
func load(fsys fsutil.FileSystem, path string, dst validator) error {
	cleanPath := filepath.Clean(path)
	switch ext := filepath.Ext(cleanPath); ext {
	case ".yml", ".yaml", ".json":
	default:
		return fmt.Errorf("%w, got %q", ErrExtension, ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := decode(data, dst); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", cleanPath, err)
	}
	if err := dst.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func decode(data []byte, dst any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
