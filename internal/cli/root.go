// Package cli implements the dat command line tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meigma/dat"
	"github.com/meigma/dat/cache/disk"
	dathttp "github.com/meigma/dat/http"
)

// Version is set at build time.
var Version = "dev"

type globals struct {
	verbose     bool
	cacheDir    string
	maxFileSize uint64
	logger      *slog.Logger
}

// NewRootCmd returns the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	g := &globals{logger: slog.New(slog.DiscardHandler)}

	rootCmd := &cobra.Command{
		Use:   "dat",
		Short: "Create and read dat archives",
		Long: `dat packs files into a single archive with a trailing file table.

Each file is stored verbatim or as a zlib stream, with a CRC32 of the stored
bytes. Archives can be read from disk or from any HTTP server that honors
range requests.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if g.verbose {
				level = slog.LevelDebug
			}
			g.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log every file and operation to stderr")
	rootCmd.PersistentFlags().Uint64Var(&g.maxFileSize, "max-file-size", dat.DefaultMaxFileSize, "Refuse to read files larger than this many bytes, 0 for no limit")
	rootCmd.PersistentFlags().StringVar(&g.cacheDir, "cache-dir", "", "Keep decoded files in this directory across runs")

	groupWrite := "write"
	groupRead := "read"
	rootCmd.AddGroup(&cobra.Group{ID: groupWrite, Title: "Building Archives"})
	rootCmd.AddGroup(&cobra.Group{ID: groupRead, Title: "Reading Archives"})

	createCmd := newCreateCmd(g)
	createCmd.GroupID = groupWrite
	rootCmd.AddCommand(createCmd)

	for _, cmd := range []*cobra.Command{
		newListCmd(g),
		newCatCmd(g),
		newExtractCmd(g),
		newVerifyCmd(g),
		newInspectCmd(g),
	} {
		cmd.GroupID = groupRead
		rootCmd.AddCommand(cmd)
	}
	return rootCmd
}

// openArchive opens a local archive, or a remote one when name is an http
// or https URL.
func (g *globals) openArchive(ctx context.Context, name string, opts ...dat.Option) (*dat.Reader, error) {
	opts = append([]dat.Option{dat.WithLogger(g.logger), dat.WithMaxFileSize(g.maxFileSize)}, opts...)
	if g.cacheDir != "" {
		c, err := disk.New(g.cacheDir)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		opts = append(opts, dat.WithCache(c))
	}
	if !isURL(name) {
		return dat.Open(name, opts...)
	}
	src, err := dathttp.NewSource(name,
		dathttp.WithContext(ctx),
		dathttp.WithConditionalHeaders(),
		dathttp.WithLogger(g.logger))
	if err != nil {
		return nil, err
	}
	return dat.OpenSource(src, opts...)
}

// archiveBytes returns a reader over the whole archive file.
func (g *globals) archiveBytes(ctx context.Context, name string) (io.Reader, func() error, error) {
	if !isURL(name) {
		f, err := os.Open(name) //nolint:gosec // User-provided path is intentional
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
	src, err := dathttp.NewSource(name, dathttp.WithContext(ctx), dathttp.WithLogger(g.logger))
	if err != nil {
		return nil, nil, err
	}
	return io.NewSectionReader(src, 0, src.Size()), func() error { return nil }, nil
}

func isURL(name string) bool {
	return strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://")
}
