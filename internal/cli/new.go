package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/zobject/internal/document"
)

// NameGenerator names new document files.
// Implemented by UUIDv7Names (production) and testutil.SequentialNames (tests).
type NameGenerator interface {
	Generate() string
}

// UUIDv7Names generates time-sortable UUIDv7 document names, so a directory
// listing shows documents in creation order.
//
// Thread-safety: UUIDv7Names is stateless and safe for concurrent use.
type UUIDv7Names struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if UUID generation fails.
func (UUIDv7Names) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// DocumentExtension is the file extension of new documents.
const DocumentExtension = ".sqlite"

// NewOptions holds flags for the new command.
type NewOptions struct {
	*RootOptions

	// Names overrides the document name generator (for testing).
	// If nil, defaults to UUIDv7Names.
	Names NameGenerator
}

// NewResult reports the created document.
type NewResult struct {
	Path       string `json:"path"`
	ContentsID int64  `json:"contents_id"`
	LayerID    int64  `json:"layer_id"`
}

func (r NewResult) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Created %s (contents #%d)\n", r.Path, r.ContentsID)
	return err
}

// NewNewCommand creates the new command.
func NewNewCommand(rootOpts *RootOptions) *cobra.Command {
	return newNewCommand(&NewOptions{RootOptions: rootOpts})
}

func newNewCommand(opts *NewOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new <dir>",
		Short: "Create a new document",
		Long: `Create a new document file in dir, named by a fresh UUIDv7.

The document holds an empty Contents with one layer.

Example:
  zobject new ./drawings`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(opts, args[0], cmd)
		},
	}
}

func runNew(opts *NewOptions, dir string, cmd *cobra.Command) error {
	names := opts.Names
	if names == nil {
		names = UUIDv7Names{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return WrapExitError(ExitCommandError, "failed to create directory", err)
	}
	path := filepath.Join(dir, names.Generate()+DocumentExtension)
	if _, err := os.Stat(path); err == nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("document already exists: %s", path))
	}

	s, err := opts.openSession(cmd, path, mayCreate)
	if err != nil {
		return err
	}
	defer s.Close()

	contents, err := document.NewContents(commandContext(cmd), s.store)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to create contents", err)
	}
	s.logger.Info("document created", "path", path, "contents", int64(contents.ID()))

	return opts.formatter(cmd).Success(NewResult{
		Path:       path,
		ContentsID: int64(contents.ID()),
		LayerID:    int64(contents.Layers[0].ID()),
	})
}
