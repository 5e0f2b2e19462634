package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/zobject/internal/document"
	"github.com/roach88/zobject/internal/store"
)

// DemoOptions holds flags for the demo command.
type DemoOptions struct {
	*RootOptions
	Database string
}

// DemoResult reports the sample document written by demo.
type DemoResult struct {
	Path       string `json:"path"`
	ContentsID int64  `json:"contents_id"`
	Layers     int    `json:"layers"`
	Shapes     int    `json:"shapes"`
}

func (r DemoResult) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Wrote demo contents #%d (%d layers, %d shapes) to %s\n",
		r.ContentsID, r.Layers, r.Shapes, r.Path)
	return err
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write a sample document",
		Long: `Write a sample Contents with two layers of two shapes each.

The store file is created if needed. Everything is written in one
transaction.

Example:
  zobject demo --db ./demo.sqlite
  zobject dump --db ./demo.sqlite --type Contents`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to store file")
	return cmd
}

func runDemo(opts *DemoOptions, cmd *cobra.Command) error {
	s, err := opts.openSession(cmd, opts.Database, mayCreate)
	if err != nil {
		return err
	}
	defer s.Close()

	var contents *document.Contents
	err = s.store.WithTransaction(commandContext(cmd), func(ctx context.Context) error {
		var werr error
		contents, werr = writeDemo(ctx, s.store)
		return werr
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to write demo document", err)
	}

	return opts.formatter(cmd).Success(DemoResult{
		Path:       s.store.Path(),
		ContentsID: int64(contents.ID()),
		Layers:     len(contents.Layers),
		Shapes:     len(contents.Shapes()),
	})
}

// writeDemo inserts a background layer with a rectangle and a circle, and
// a foreground layer with an oval and a small square.
func writeDemo(ctx context.Context, st *store.Store) (*document.Contents, error) {
	frame, err := document.NewRectangle(ctx, st, document.Point{X: 10, Y: 10}, document.Size{Width: 100, Height: 50})
	if err != nil {
		return nil, err
	}
	sun, err := document.NewCircle(ctx, st, document.Point{X: 200, Y: 80}, 30)
	if err != nil {
		return nil, err
	}
	background, err := document.NewLayer(ctx, st, frame, sun)
	if err != nil {
		return nil, err
	}

	cloud, err := document.NewOval(ctx, st, document.RectOf(50, 150, 120, 60))
	if err != nil {
		return nil, err
	}
	square, err := document.NewRectangle(ctx, st, document.Point{X: 300, Y: 200}, document.Size{Width: 40, Height: 40})
	if err != nil {
		return nil, err
	}
	foreground, err := document.NewLayer(ctx, st, cloud, square)
	if err != nil {
		return nil, err
	}

	return document.NewContents(ctx, st, background, foreground)
}
