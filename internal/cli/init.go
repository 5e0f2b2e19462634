package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/zobject/internal/store"
)

// InitResult reports the store created or found by init.
type InitResult struct {
	Path    string           `json:"path"`
	Created bool             `json:"created"`
	Types   []store.TagCount `json:"types"`
}

func (r InitResult) RenderText(w io.Writer) error {
	if r.Created {
		_, err := fmt.Fprintf(w, "Initialized empty store at %s\n", r.Path)
		return err
	}
	_, err := fmt.Fprintf(w, "Store at %s already initialized (%d types)\n", r.Path, len(r.Types))
	return err
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init <db>",
		Short: "Create or bootstrap a store file",
		Long: `Create a store file, or make sure an existing one has the object table.

Running init on an initialized store changes nothing.

Example:
  zobject init ./drawing.sqlite`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, args[0], cmd)
		},
	}
}

func runInit(opts *RootOptions, path string, cmd *cobra.Command) error {
	_, statErr := os.Stat(path)
	created := os.IsNotExist(statErr)

	s, err := opts.openSession(cmd, path, mayCreate)
	if err != nil {
		return err
	}
	defer s.Close()

	types, err := s.store.Tags(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read store", err)
	}
	return opts.formatter(cmd).Success(InitResult{Path: path, Created: created, Types: types})
}
