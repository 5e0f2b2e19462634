package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/zobject/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r TestResult) RenderText(w io.Writer) error {
	if r.Total == 0 {
		_, err := fmt.Fprintln(w, "No scenarios found.")
		return err
	}
	for _, s := range r.Scenarios {
		if s.Pass {
			fmt.Fprintf(w, "✓ %s\n", s.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
	if r.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
	return nil
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run store conformance scenarios",
		Long: `Run scenario files against fresh stores.

Each scenario's trace and final state are compared with
<scenarios-dir>/golden/<file>.golden when that file exists.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  zobject test ./scenarios
  zobject test ./scenarios --filter "refcount*"
  zobject test ./scenarios --update
  zobject test ./scenarios --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := filepath.Match(opts.Filter, ""); err != nil {
		return WrapExitError(ExitCommandError, "invalid filter pattern", err)
	}
	files, err := harness.FindScenarios(scenariosDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenarios directory not found", err)
	}

	f := opts.formatter(cmd)
	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, file := range files {
		if !matchesFilter(file, opts.Filter) {
			continue
		}
		f.VerboseLog("running %s", file)
		sr := runScenario(opts, file)
		result.Scenarios = append(result.Scenarios, sr)
		result.Total++
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if result.Failed == 0 {
		return f.Success(result)
	}
	msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
	if err := f.Failure(result, "TEST_FAILED", msg); err != nil {
		return err
	}
	return &ExitError{Code: ExitFailure, Message: msg, Reported: f.Format == "json"}
}

func matchesFilter(file, filter string) bool {
	if filter == "" {
		return true
	}
	base := filepath.Base(file)
	matched, _ := filepath.Match(filter, strings.TrimSuffix(base, filepath.Ext(base)))
	return matched
}

// runScenario executes a single scenario file and checks its golden trace.
func runScenario(opts *TestOptions, file string) ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{
			Name:   filepath.Base(file),
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}
	sr := ScenarioResult{Name: scenario.Name, Pass: result.Pass, Errors: result.Errors}

	trace, err := harness.MarshalTrace(scenario.Name, result)
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to marshal trace: %v", err))
		return sr
	}

	goldenPath := goldenFilePath(file)
	if opts.Update {
		if err := writeGoldenFile(goldenPath, trace); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, err.Error())
		}
		return sr
	}

	golden, err := os.ReadFile(goldenPath)
	switch {
	case os.IsNotExist(err):
		// No golden file: assertions only.
	case err != nil:
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
	case !bytes.Equal(golden, trace):
		sr.Pass = false
		sr.Errors = append(sr.Errors, "trace does not match golden file (run with --update to regenerate)")
	}
	return sr
}

// goldenFilePath returns the path to the golden file for a scenario file.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGoldenFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}
