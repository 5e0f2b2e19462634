package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/zobject/internal/store"
)

// LsOptions holds flags for the ls command.
type LsOptions struct {
	*RootOptions
	Database string
	Type     string
	All      bool
}

// LsResult lists raw object rows.
type LsResult struct {
	Entries []store.Entry `json:"entries"`
}

func (r LsResult) RenderText(w io.Writer) error {
	if len(r.Entries) == 0 {
		_, err := fmt.Fprintln(w, "No objects.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tREFCOUNT\tSIZE")
	for _, e := range r.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", e.ID, e.Type, e.Refcount, humanize.Bytes(uint64(e.Size)))
	}
	return tw.Flush()
}

// NewLsCommand creates the ls command.
func NewLsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List stored objects",
		Long: `List object rows in id order.

Rows with refcount 0 are hidden unless --all is given.

Example:
  zobject ls --db ./drawing.sqlite
  zobject ls --db ./drawing.sqlite --type Circle --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to store file")
	cmd.Flags().StringVar(&opts.Type, "type", "", "only list objects of this type")
	cmd.Flags().BoolVar(&opts.All, "all", false, "include objects with refcount 0")
	return cmd
}

func runLs(opts *LsOptions, cmd *cobra.Command) error {
	s, err := opts.openSession(cmd, opts.Database, mustExist)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.store.Entries(commandContext(cmd), opts.Type)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list objects", err)
	}
	if !opts.All {
		live := entries[:0]
		for _, e := range entries {
			if e.Refcount > 0 {
				live = append(live, e)
			}
		}
		entries = live
	}
	return opts.formatter(cmd).Success(LsResult{Entries: entries})
}
