package cli

import (
	"errors"
	"fmt"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"
)

func newInspectCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect ARCHIVE",
		Short: "Show the header and digest of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.openArchive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			content, closeContent, err := g.archiveBytes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			dgst, err := digest.SHA256.FromReader(content)
			if err = errors.Join(err, closeContent()); err != nil {
				return fmt.Errorf("digest archive: %w", err)
			}

			h := r.Header()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version:      %d\n", h.Version)
			fmt.Fprintf(out, "table offset: %d\n", h.TableOffset)
			fmt.Fprintf(out, "size:         %d\n", r.Size())
			fmt.Fprintf(out, "files:        %d\n", r.Len())
			fmt.Fprintf(out, "digest:       %s\n", dgst)
			return nil
		},
	}
}
