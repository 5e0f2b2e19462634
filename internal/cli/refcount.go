package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/zobject/internal/archive"
	"github.com/roach88/zobject/internal/store"
)

// RefcountOptions holds flags for keep, waste and delete.
type RefcountOptions struct {
	*RootOptions
	Database string
	IDs      []int64
}

// RefcountResult reports the objects changed by keep, waste or delete.
type RefcountResult struct {
	Op      string          `json:"op"`
	Objects []RefcountEntry `json:"objects"`
}

// RefcountEntry is the refcount of one object after the change.
// Deleted objects have no refcount.
type RefcountEntry struct {
	ID       int64  `json:"id"`
	Refcount *int64 `json:"refcount,omitempty"`
}

func (r RefcountResult) RenderText(w io.Writer) error {
	for _, e := range r.Objects {
		var err error
		if e.Refcount == nil {
			_, err = fmt.Fprintf(w, "%s: #%d removed\n", r.Op, e.ID)
		} else {
			_, err = fmt.Fprintf(w, "%s: #%d refcount %d\n", r.Op, e.ID, *e.Refcount)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// NewKeepCommand creates the keep command.
func NewKeepCommand(rootOpts *RootOptions) *cobra.Command {
	return newRefcountCommand(rootOpts, "keep", "Increment object refcounts",
		"Increment the refcount of each id by one. Several ids change atomically.",
		(*store.Store).KeepIDs)
}

// NewWasteCommand creates the waste command.
func NewWasteCommand(rootOpts *RootOptions) *cobra.Command {
	return newRefcountCommand(rootOpts, "waste", "Decrement object refcounts",
		"Decrement the refcount of each id by one, never below zero. Objects at\nzero stay stored but are hidden until kept again or deleted.",
		(*store.Store).WasteIDs)
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return newRefcountCommand(rootOpts, "delete", "Delete objects",
		"Remove the row of each id whatever its refcount. Several ids are\ndeleted atomically.",
		(*store.Store).DeleteIDs)
}

type idsFunc func(s *store.Store, ctx context.Context, ids ...archive.ID) error

func newRefcountCommand(rootOpts *RootOptions, op, short, long string, apply idsFunc) *cobra.Command {
	opts := &RefcountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   op,
		Short: short,
		Long: long + fmt.Sprintf(`

Example:
  zobject %s --db ./drawing.sqlite --id 3
  zobject %s --db ./drawing.sqlite --id 3 --id 4`, op, op),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefcount(opts, op, apply, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to store file")
	cmd.Flags().Int64SliceVar(&opts.IDs, "id", nil, "object id (repeatable, required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func runRefcount(opts *RefcountOptions, op string, apply idsFunc, cmd *cobra.Command) error {
	s, err := opts.openSession(cmd, opts.Database, mustExist)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := commandContext(cmd)
	ids := make([]archive.ID, len(opts.IDs))
	for i, id := range opts.IDs {
		ids[i] = archive.ID(id)
	}
	if err := apply(s.store, ctx, ids...); err != nil {
		return WrapExitError(ExitFailure, op+" failed", err)
	}

	result := RefcountResult{Op: op, Objects: make([]RefcountEntry, 0, len(ids))}
	for _, id := range ids {
		entry := RefcountEntry{ID: int64(id)}
		if op != "delete" {
			n, err := s.store.RefcountOf(ctx, id)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read refcount", err)
			}
			entry.Refcount = &n
		}
		result.Objects = append(result.Objects, entry)
	}
	s.logger.Debug("refcounts changed", "op", op, "ids", opts.IDs)
	return opts.formatter(cmd).Success(result)
}
