package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGolden_Scenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
		})
	}
}

func TestMarshalTrace(t *testing.T) {
	result := NewResult()
	result.AddTrace(TraceEvent{Seq: 1, Op: OpCreate, Target: "r", Type: "Rectangle", ID: 1, Outcome: OutcomeOK})
	result.AddTrace(TraceEvent{Seq: 2, Op: OpKeep, Target: "r", ID: 1, Outcome: OutcomeOK, Value: int64(2)})
	result.AddTrace(TraceEvent{Seq: 3, Op: OpReopen, Outcome: OutcomeOK})
	result.State["Rectangle"] = 1

	data, err := MarshalTrace("sample", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"sample","state":{"Rectangle":1},"trace":[`+
			`{"id":1,"op":"create","outcome":"ok","seq":1,"target":"r","type":"Rectangle"},`+
			`{"id":1,"op":"keep","outcome":"ok","seq":2,"target":"r","value":2},`+
			`{"op":"reopen","outcome":"ok","seq":3}]}`,
		string(data))
}
