package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Op      string `json:"op"`
	Target  string `json:"target,omitempty"`
	Type    string `json:"type,omitempty"`
	ID      int64  `json:"id,omitempty"`
	Outcome string `json:"outcome"`

	// Value carries the observable result of the step: the refcount after
	// keep or waste, the number of instances after instantiate.
	Value any `json:"value,omitempty"`
}

// Trace outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"
	OutcomeCancelled  = "cancelled"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step and assertion matched.
	Pass bool `json:"pass"`

	// Trace lists executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State maps each stored type tag to its live row count at the end.
	State map[string]int64 `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]int64),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
