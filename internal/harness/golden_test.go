package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Canonical(t *testing.T) {
	scenario := &Scenario{Name: "snap", FlowToken: "f"}
	result := NewResult()
	result.AddTrace(TraceEvent{
		Seq:     1,
		At:      7,
		Call:    "tap",
		As:      "alice",
		Args:    map[string]any{"user": "@alice"},
		Outcome: "Success",
		Result:  map[string]any{"user": "@alice", "claimed_at": int64(7), "amount": "5"},
	})
	result.AddTrace(TraceEvent{
		Seq:     2,
		At:      8,
		Call:    "tap",
		Args:    map[string]any{"user": "@bob"},
		Outcome: "AuthorizationMissing",
	})

	got, err := Snapshot(scenario, result)
	require.NoError(t, err)

	want := `{"flow_token":"f","scenario_name":"snap","trace":[` +
		`{"args":{"user":"@alice"},"as":"alice","at":7,"call":"tap","outcome":"Success","result":{"amount":"5","claimed_at":7,"user":"@alice"},"seq":1},` +
		`{"args":{"user":"@bob"},"at":8,"call":"tap","outcome":"AuthorizationMissing","seq":2}]}`
	assert.Equal(t, want, string(got))
}

func TestSnapshot_EmptyTrace(t *testing.T) {
	got, err := Snapshot(&Scenario{Name: "empty"}, NewResult())
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"empty","trace":[]}`, string(got))
}

func TestSnapshot_NilArgs(t *testing.T) {
	result := NewResult()
	result.AddTrace(TraceEvent{Seq: 1, Call: "initialize", Outcome: "Success"})

	got, err := Snapshot(&Scenario{Name: "nil_args"}, result)
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"nil_args","trace":[{"args":{},"at":0,"call":"initialize","outcome":"Success","seq":1}]}`, string(got))
}
