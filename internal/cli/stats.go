package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/zobject/internal/store"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Database string
}

// StatsResult summarizes a store file.
type StatsResult struct {
	Path     string           `json:"path"`
	Driver   string           `json:"driver"`
	FileSize int64            `json:"file_size"`
	Rows     int64            `json:"rows"`
	Live     int64            `json:"live"`
	Types    []store.TagCount `json:"types"`
}

func (r StatsResult) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Store:  %s\n", r.Path)
	fmt.Fprintf(w, "Driver: %s\n", r.Driver)
	fmt.Fprintf(w, "Size:   %s\n", humanize.Bytes(uint64(r.FileSize)))
	fmt.Fprintf(w, "Rows:   %d (%d live)\n", r.Rows, r.Live)
	if len(r.Types) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tROWS\tLIVE")
	for _, tc := range r.Types {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", tc.Tag, tc.Rows, tc.Live)
	}
	return tw.Flush()
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-type object counts and file size",
		Long: `Show the number of stored and live objects per type and the size of
the store file, write-ahead log included.

Example:
  zobject stats --db ./drawing.sqlite
  zobject stats --db ./drawing.sqlite --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to store file")
	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
	s, err := opts.openSession(cmd, opts.Database, mustExist)
	if err != nil {
		return err
	}
	defer s.Close()

	types, err := s.store.Tags(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read store", err)
	}

	path := s.store.Path()
	result := StatsResult{
		Path:     path,
		Driver:   s.store.Database().Driver(),
		FileSize: fileSize(path) + fileSize(path+"-wal"),
		Types:    types,
	}
	for _, tc := range types {
		result.Rows += tc.Rows
		result.Live += tc.Live
	}
	return opts.formatter(cmd).Success(result)
}

// fileSize returns the size of path, or 0 when it cannot be read.
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
