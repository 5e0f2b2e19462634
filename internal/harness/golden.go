package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/zobject/internal/canonical"
)

// TraceSnapshot captures the trace and final state of a scenario run.
type TraceSnapshot struct {
	ScenarioName string           `json:"scenario_name"`
	Trace        []TraceEvent     `json:"trace"`
	State        map[string]int64 `json:"state"`
}

// toCanonicalMap converts the snapshot to the plain values canonical.Marshal accepts.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"seq":     ev.Seq,
			"op":      ev.Op,
			"outcome": ev.Outcome,
		}
		if ev.Target != "" {
			m["target"] = ev.Target
		}
		if ev.Type != "" {
			m["type"] = ev.Type
		}
		if ev.ID != 0 {
			m["id"] = ev.ID
		}
		if ev.Value != nil {
			m["value"] = ev.Value
		}
		trace[i] = m
	}
	state := make(map[string]any, len(s.State))
	for tag, n := range s.State {
		state[tag] = n
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"state":         state,
	}
}

// MarshalTrace renders the trace and final state of result as canonical JSON.
func MarshalTrace(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		State:        result.State,
	}
	return canonical.Marshal(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its trace against the
// golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario could not run. A trace mismatch fails t.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
