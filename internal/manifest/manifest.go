// Package manifest loads YAML descriptions of archives to build.
//
// A manifest names the archive, the writer settings and every file to add:
//
//	archive: assets.dat
//	overwrite: true
//	level: 9
//	files:
//	  - source: ./textures/stone.png
//	    path: /textures/stone.png
//	    type: 3
//	  - source: ./readme.txt
//	    compress: true
//
// Relative archive and source paths are resolved against the directory of
// the manifest file. A file without a path is stored under "/" followed by
// its source path as written, in slash form.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meigma/dat"
)

// Manifest describes one archive.
type Manifest struct {
	// Archive is the path of the archive to create.
	Archive string `yaml:"archive"`

	// Overwrite replaces an existing archive.
	Overwrite bool `yaml:"overwrite"`

	// Level is the deflate level for compressed files. Nil means
	// dat.DefaultCompression.
	Level *int `yaml:"level"`

	Files []File `yaml:"files"`
}

// File is one file to add.
type File struct {
	// Source is the file on disk.
	Source string `yaml:"source"`

	// Path is the path stored in the archive.
	Path string `yaml:"path"`

	Compress bool `yaml:"compress"`

	// Type is the application-defined file type, 0 to dat.MaxFileType.
	Type uint8 `yaml:"type"`

	// Encrypted sets the reserved encrypted flag.
	Encrypted bool `yaml:"encrypted"`
}

// Load reads and validates the manifest file name.
func Load(name string) (*Manifest, error) {
	data, err := os.ReadFile(name) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(bytes.NewReader(data), filepath.Dir(name))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

// Parse decodes a manifest from r, resolves relative paths against baseDir
// and validates the result. Unknown fields are rejected.
func Parse(r io.Reader, baseDir string) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("manifest is empty")
		}
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	for i := range m.Files {
		f := &m.Files[i]
		if f.Path == "" && f.Source != "" {
			f.Path = "/" + strings.TrimLeft(path.Clean(filepath.ToSlash(f.Source)), "/")
		}
		f.Source = resolve(baseDir, f.Source)
	}
	m.Archive = resolve(baseDir, m.Archive)

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// Validate checks that the manifest can be built.
func (m *Manifest) Validate() error {
	if m.Archive == "" {
		return errors.New("archive is required")
	}
	if m.Level != nil && (*m.Level < dat.HuffmanOnly || *m.Level > dat.BestCompression) {
		return fmt.Errorf("level %d out of range [%d, %d]", *m.Level, dat.HuffmanOnly, dat.BestCompression)
	}
	if len(m.Files) == 0 {
		return errors.New("files: at least one file is required")
	}
	for i, f := range m.Files {
		if f.Source == "" {
			return fmt.Errorf("files[%d]: source is required", i)
		}
		if len(f.Path) > dat.MaxPathLen {
			return fmt.Errorf("files[%d]: path is %d bytes, limit %d", i, len(f.Path), dat.MaxPathLen)
		}
		if f.Type > dat.MaxFileType {
			return fmt.Errorf("files[%d]: type %d out of range [0, %d]", i, f.Type, dat.MaxFileType)
		}
	}
	return nil
}

// Build creates the archive described by m. On failure the partial archive
// is removed.
func (m *Manifest) Build(logger *slog.Logger, opts ...dat.WriterOption) error {
	if m.Level != nil {
		opts = append(opts, dat.WithCompressionLevel(*m.Level))
	}
	opts = append(opts, dat.WithWriterLogger(logger))

	w, err := dat.Create(m.Archive, m.Overwrite, opts...)
	if err != nil {
		return err
	}
	for _, f := range m.Files {
		fileOpts := []dat.FileOption{dat.WithFileType(f.Type), dat.WithEncryptedFlag(f.Encrypted)}
		if err := w.AddFile(f.Source, f.Path, f.Compress, fileOpts...); err != nil {
			return errors.Join(err, w.Abort())
		}
	}
	if err := w.Finish(); err != nil {
		return errors.Join(err, w.Abort())
	}
	return nil
}
