package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meigma/dat"
	"github.com/meigma/dat/internal/manifest"
)

type createOptions struct {
	compress     bool
	force        bool
	level        int
	fileType     uint8
	strip        string
	manifestPath string
}

func newCreateCmd(g *globals) *cobra.Command {
	var opts createOptions

	cmd := &cobra.Command{
		Use:   "create ARCHIVE FILE...",
		Short: "Create an archive from files and directories",
		Long: `Create an archive from files and directories.

Directories are walked recursively. Each file is stored under "/" followed by
its path as given, in slash form, after --strip is removed from the front.

With --manifest the archive and its files are read from a YAML manifest
instead and no arguments are accepted.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.manifestPath != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.manifestPath != "" {
				return runCreateManifest(g, opts)
			}
			return runCreate(cmd, g, args[0], args[1:], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.compress, "compress", "z", false, "Store files as zlib streams")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Overwrite an existing archive")
	cmd.Flags().IntVarP(&opts.level, "level", "l", dat.DefaultCompression, "Compression level, -2 (huffman only) to 9")
	cmd.Flags().Uint8VarP(&opts.fileType, "type", "t", 0, "File type tag for every file, 0 to 63")
	cmd.Flags().StringVar(&opts.strip, "strip", "", "Prefix to remove from stored paths")
	cmd.Flags().StringVarP(&opts.manifestPath, "manifest", "m", "", "Build from a YAML manifest")
	return cmd
}

func runCreateManifest(g *globals, opts createOptions) error {
	m, err := manifest.Load(opts.manifestPath)
	if err != nil {
		return err
	}
	if opts.force {
		m.Overwrite = true
	}
	return m.Build(g.logger)
}

func runCreate(cmd *cobra.Command, g *globals, archive string, inputs []string, opts createOptions) error {
	sources, err := collectSources(inputs, opts.strip)
	if err != nil {
		return err
	}

	w, err := dat.Create(archive, opts.force,
		dat.WithWriterLogger(g.logger),
		dat.WithCompressionLevel(opts.level))
	if err != nil {
		return err
	}
	for _, src := range sources {
		if err := w.AddFile(src.file, src.path, opts.compress, dat.WithFileType(opts.fileType)); err != nil {
			return errors.Join(err, w.Abort())
		}
	}
	if err := w.Finish(); err != nil {
		return errors.Join(err, w.Abort())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d files\n", archive, len(sources))
	return nil
}

type source struct {
	file string // on disk
	path string // in the archive
}

// collectSources expands inputs into regular files, walking directories in
// lexical order.
func collectSources(inputs []string, strip string) ([]source, error) {
	var sources []source
	for _, input := range inputs {
		err := filepath.WalkDir(input, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if !d.Type().IsRegular() {
				info, err := os.Stat(p)
				if err != nil || !info.Mode().IsRegular() {
					return nil
				}
			}
			sources = append(sources, source{file: p, path: archivePath(p, strip)})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("collect %s: %w", input, err)
		}
	}
	if len(sources) == 0 {
		return nil, errors.New("no files to add")
	}
	return sources, nil
}

func archivePath(p, strip string) string {
	slashed := path.Clean(filepath.ToSlash(p))
	if strip != "" {
		slashed = strings.TrimPrefix(slashed, path.Clean(filepath.ToSlash(strip)))
	}
	return "/" + strings.TrimLeft(slashed, "/")
}
