package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meigma/dat"
)

func newListCmd(g *globals) *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:     "list ARCHIVE",
		Aliases: []string{"ls"},
		Short:   "List the files in an archive",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.openArchive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			out := cmd.OutOrStdout()
			if !long {
				for _, p := range r.Paths() {
					fmt.Fprintln(out, p)
				}
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "TYPE\tFLAGS\tSIZE\tSTORED\tCRC32\t PATH")
			for e := range r.Entries() {
				stored, err := e.StoredSize()
				if err != nil {
					return fmt.Errorf("%s: %w", e.Path, err)
				}
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%08x\t %s\n", e.FileType, flagString(e.Flags), e.Size, stored, e.CRC, e.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show type, flags, sizes and checksum")
	return cmd
}

func flagString(f dat.Flags) string {
	b := []byte("--")
	if f.Compressed {
		b[0] = 'z'
	}
	if f.Encrypted {
		b[1] = 'e'
	}
	return string(b)
}

func newCatCmd(g *globals) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "cat ARCHIVE PATH...",
		Short: "Write files from an archive to stdout",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.openArchive(cmd.Context(), args[0], dat.WithIntegrityPolicy(policy(strict)))
			if err != nil {
				return err
			}
			defer r.Close()

			for _, p := range args[1:] {
				data, err := r.ReadFile(p)
				if err != nil {
					return err
				}
				if _, err := cmd.OutOrStdout().Write(data); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on checksum mismatches instead of warning")
	return cmd
}

func newExtractCmd(g *globals) *cobra.Command {
	var (
		dest    string
		workers int
		force   bool
		strict  bool
	)

	cmd := &cobra.Command{
		Use:   "extract ARCHIVE [PATH...]",
		Short: "Extract files from an archive",
		Long: `Extract files from an archive into a directory.

With no PATH arguments every file is extracted. Leading slashes are dropped
from stored paths and backslashes become separators; paths that would
escape the destination are refused before anything is written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.openArchive(cmd.Context(), args[0], dat.WithIntegrityPolicy(policy(strict)))
			if err != nil {
				return err
			}
			defer r.Close()

			opts := []dat.ExtractOption{
				dat.ExtractWithWorkers(workers),
				dat.ExtractWithOverwrite(force),
			}
			if len(args) > 1 {
				opts = append(opts, dat.ExtractPaths(args[1:]...))
			}
			stats, err := r.Extract(cmd.Context(), dest, opts...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "extracted %d files (%d bytes), skipped %d\n", stats.Files, stats.Bytes, stats.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dest, "directory", "C", ".", "Destination directory")
	cmd.Flags().IntVarP(&workers, "jobs", "j", 0, "Parallel writers, 0 for one per CPU")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace existing files")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on checksum mismatches instead of warning")
	return cmd
}

// errMismatch is returned by verify so the process exits non-zero.
var errMismatch = errors.New("checksum mismatches found")

func newVerifyCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "verify ARCHIVE",
		Short: "Check every file against its CRC32",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.openArchive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			warnings, err := r.VerifyAll()
			for _, w := range warnings {
				fmt.Fprintln(cmd.OutOrStdout(), w)
			}
			if err != nil {
				return err
			}
			if len(warnings) > 0 {
				return fmt.Errorf("%w: %d of %d files", errMismatch, len(warnings), r.Len())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d files ok\n", r.Len())
			return nil
		},
	}
}

func policy(strict bool) dat.IntegrityPolicy {
	if strict {
		return dat.IntegrityStrict
	}
	return dat.IntegrityWarn
}
