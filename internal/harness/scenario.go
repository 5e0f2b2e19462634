package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/zobject/internal/archive"
	"github.com/roach88/zobject/internal/document"
	"github.com/roach88/zobject/internal/sqlite"
)

// Scenario defines a store conformance scenario: a sequence of object
// operations against a fresh store file followed by assertions on the
// resulting store state.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Driver selects the SQL driver. Empty uses the default.
	Driver string `yaml:"driver,omitempty"`

	// Setup steps run before the flow and are not traced.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the traced steps.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final store state and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation against the store.
type Step struct {
	// Op is the operation name, one of the Op constants.
	Op string `yaml:"op"`

	// Name binds the object created or loaded by this step.
	Name string `yaml:"name,omitempty"`

	// Type is the registry tag for create and instantiate.
	Type string `yaml:"type,omitempty"`

	// Target names a bound object.
	Target string `yaml:"target,omitempty"`

	// Targets names several bound objects for keep and waste.
	Targets []string `yaml:"targets,omitempty"`

	// Args holds create arguments and move offsets.
	Args map[string]any `yaml:"args,omitempty"`

	// Steps is the body of a transaction.
	Steps []Step `yaml:"steps,omitempty"`

	// Outcome ends a transaction: commit (default), error or cancel.
	Outcome string `yaml:"outcome,omitempty"`

	// Expect declares an expected failure.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect declares the error code a step must fail with.
type Expect struct {
	Error string `yaml:"error"`
}

// Step operations.
const (
	OpCreate      = "create"
	OpSave        = "save"
	OpMove        = "move"
	OpKeep        = "keep"
	OpWaste       = "waste"
	OpDelete      = "delete"
	OpForget      = "forget"
	OpLoad        = "load"
	OpInstantiate = "instantiate"
	OpReopen      = "reopen"
	OpTransaction = "transaction"
)

// Transaction outcomes.
const (
	TxCommit = "commit"
	TxError  = "error"
	TxCancel = "cancel"
)

// Expected error codes.
const (
	ErrCodeNotFound          = "not_found"
	ErrCodeNotBound          = "not_bound"
	ErrCodeNestedTransaction = "nested_transaction"
	ErrCodeDecodeFailed      = "decode_failed"
	ErrCodeAny               = "any"
)

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	// Object is the registry tag for count and rows.
	Object string `yaml:"object,omitempty"`

	// Target names a bound object.
	Target string `yaml:"target,omitempty"`

	// Other names the second object of a same assertion.
	Other string `yaml:"other,omitempty"`

	// Field is a dotted path into the target's archived fields, with
	// numeric segments indexing lists.
	Field string `yaml:"field,omitempty"`

	// Value is the expected field value.
	Value any `yaml:"value,omitempty"`

	// Count is the expected count, refcount or occurrences.
	Count *int64 `yaml:"count,omitempty"`

	// Want is the expected answer of cached, bound and same.
	Want *bool `yaml:"want,omitempty"`

	// Ops is the expected op order for trace_order; Op is the op counted
	// by trace_count.
	Ops []string `yaml:"ops,omitempty"`
	Op  string   `yaml:"op,omitempty"`
}

// Assertion types.
const (
	AssertCount      = "count"
	AssertRows       = "rows"
	AssertRefcount   = "refcount"
	AssertCached     = "cached"
	AssertBound      = "bound"
	AssertSame       = "same"
	AssertField      = "field"
	AssertTraceOrder = "trace_order"
	AssertTraceCount = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

var creatable = []string{
	document.TagRectangle,
	document.TagOval,
	document.TagCircle,
	document.TagLayer,
	document.TagContents,
	archive.DictionaryTag,
}

var expectCodes = []string{
	ErrCodeNotFound,
	ErrCodeNotBound,
	ErrCodeNestedTransaction,
	ErrCodeDecodeFailed,
	ErrCodeAny,
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Driver != "" && s.Driver != sqlite.DriverCGO && s.Driver != sqlite.DriverPureGo {
		return fmt.Errorf("unknown driver %q", s.Driver)
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Op == OpTransaction {
			return fmt.Errorf("setup[%d]: transactions are only allowed in the flow", i)
		}
		if err := validateStep(fmt.Sprintf("setup[%d]", i), step, false); err != nil {
			return err
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(fmt.Sprintf("flow[%d]", i), step, false); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(where string, step Step, inTx bool) error {
	switch step.Op {
	case OpCreate:
		if step.Name == "" {
			return fmt.Errorf("%s: name is required for create", where)
		}
		if !slices.Contains(creatable, step.Type) {
			return fmt.Errorf("%s: cannot create type %q", where, step.Type)
		}
	case OpSave, OpMove, OpDelete, OpForget:
		if step.Target == "" {
			return fmt.Errorf("%s: target is required for %s", where, step.Op)
		}
	case OpKeep, OpWaste:
		if step.Target == "" && len(step.Targets) == 0 {
			return fmt.Errorf("%s: target or targets is required for %s", where, step.Op)
		}
	case OpLoad:
		if step.Target == "" || step.Name == "" {
			return fmt.Errorf("%s: target and name are required for load", where)
		}
	case OpInstantiate:
		if step.Type == "" {
			return fmt.Errorf("%s: type is required for instantiate", where)
		}
	case OpReopen:
		if inTx {
			return fmt.Errorf("%s: reopen is not allowed inside a transaction", where)
		}
	case OpTransaction:
		switch step.Outcome {
		case "", TxCommit, TxError, TxCancel:
		default:
			return fmt.Errorf("%s: unknown transaction outcome %q", where, step.Outcome)
		}
		for i, inner := range step.Steps {
			if err := validateStep(fmt.Sprintf("%s.steps[%d]", where, i), inner, true); err != nil {
				return err
			}
		}
	case "":
		return fmt.Errorf("%s: op is required", where)
	default:
		return fmt.Errorf("%s: unknown op %q", where, step.Op)
	}

	if step.Expect != nil && !slices.Contains(expectCodes, step.Expect.Error) {
		return fmt.Errorf("%s: unknown expected error %q", where, step.Expect.Error)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertCount, AssertRows:
		if a.Object == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: object and count are required for %s", index, a.Type)
		}
	case AssertRefcount:
		if a.Target == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: target and count are required for refcount", index)
		}
	case AssertCached, AssertBound:
		if a.Target == "" || a.Want == nil {
			return fmt.Errorf("assertions[%d]: target and want are required for %s", index, a.Type)
		}
	case AssertSame:
		if a.Target == "" || a.Other == "" || a.Want == nil {
			return fmt.Errorf("assertions[%d]: target, other and want are required for same", index)
		}
	case AssertField:
		if a.Target == "" || a.Field == "" {
			return fmt.Errorf("assertions[%d]: target and field are required for field", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" || a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: op and a non-negative count are required for trace_count", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
