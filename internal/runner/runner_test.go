// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runner

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/person-researcher/internal/query"
	"github.com/pdiddy/person-researcher/internal/trace"
	"github.com/pdiddy/person-researcher/pkg/types"
)

// mockGenerator returns a fixed batch and records its inputs.
type mockGenerator struct {
	err    error
	inputs []query.Input
}

func (m *mockGenerator) Generate(_ context.Context, in query.Input) ([]types.SearchQuery, error) {
	m.inputs = append(m.inputs, in)
	if m.err != nil {
		return nil, m.err
	}
	return []types.SearchQuery{
		{Text: fmt.Sprintf("query cycle %d", len(m.inputs)-1), Rationale: "test"},
	}, nil
}

// mockSearch returns fixed results and records the queries it saw.
type mockSearch struct {
	results  []types.SearchResult
	failures []string
	queries  [][]types.SearchQuery
}

func (m *mockSearch) Execute(_ context.Context, queries []types.SearchQuery) ([]types.SearchResult, []string) {
	m.queries = append(m.queries, queries)
	return m.results, m.failures
}

// mockExtractor applies a fixed field update on a chosen cycle and records
// the cycle numbers it was called with.
type mockExtractor struct {
	fields map[types.FieldName]string
	onCall int
	err    error
	calls  []int
	cancel context.CancelFunc
}

func (m *mockExtractor) Extract(_ context.Context, profile types.Profile, _ types.Seed, _ []types.SearchResult, cycle int) (types.Profile, error) {
	m.calls = append(m.calls, cycle)
	if m.cancel != nil {
		m.cancel()
	}
	out := profile.Clone()
	if m.err != nil {
		return out, m.err
	}
	if len(m.calls)-1 == m.onCall {
		for name, value := range m.fields {
			out[name] = types.FieldValue{
				Value:      value,
				Confidence: 0.8,
				Provenance: types.Provenance{Cycle: cycle, Sources: []string{"https://a.example"}, Status: types.StatusUnconfirmed},
			}
		}
	}
	return out, nil
}

// mockEvaluator reports complete once the given fields are populated.
type mockEvaluator struct {
	need []types.FieldName
	err  error
}

func (m *mockEvaluator) Evaluate(_ context.Context, _ types.Seed, profile types.Profile) (types.ReflectionVerdict, error) {
	var missing []types.FieldName
	for _, name := range m.need {
		if fv, ok := profile[name]; !ok || fv.Value == "" {
			missing = append(missing, name)
		}
	}
	verdict := types.ReflectionVerdict{Complete: len(missing) == 0, MissingFields: missing}
	return verdict, m.err
}

func seed() types.Seed {
	return types.Seed{Name: "Jane Doe", Company: "Acme"}
}

func oneResult() []types.SearchResult {
	return []types.SearchResult{{URL: "https://acme.example/team", Snippet: "Jane Doe, VP of Engineering. jane@acme.example"}}
}

// First-cycle completion: one search result yields email and role, the
// verdict is complete, and the run terminates without looping.
func TestRunCompletesFirstCycle(t *testing.T) {
	gen := &mockGenerator{}
	search := &mockSearch{results: oneResult()}
	ext := &mockExtractor{fields: map[types.FieldName]string{
		types.FieldEmail: "jane@acme.example",
		types.FieldRole:  "VP of Engineering",
	}}
	eval := &mockEvaluator{need: []types.FieldName{types.FieldEmail, types.FieldRole}}

	sink := &trace.Memory{}
	r := New(gen, search, ext, eval, types.RunnerConfig{MaxCycles: 2}, sink)

	result, err := r.Run(context.Background(), seed())
	require.NoError(t, err)

	assert.True(t, result.Verdict.Complete)
	assert.Equal(t, 0, result.Cycles)
	assert.False(t, result.Canceled)
	assert.Equal(t, "jane@acme.example", result.Profile[types.FieldEmail].Value)
	assert.Equal(t, "VP of Engineering", result.Profile[types.FieldRole].Value)
	require.Len(t, result.History, 1)

	require.Len(t, sink.Named("run_completed"), 1)
	assert.Empty(t, sink.Named("cycle_advanced"))
}

// Nothing-found run: the verdict never completes, so the run ends at the
// cycle cap with a non-empty missing set, not an error.
func TestRunTerminatesAtCap(t *testing.T) {
	gen := &mockGenerator{}
	search := &mockSearch{results: oneResult()}
	ext := &mockExtractor{onCall: -1} // never populates anything
	eval := &mockEvaluator{need: []types.FieldName{types.FieldEmail, types.FieldRole}}

	sink := &trace.Memory{}
	r := New(gen, search, ext, eval, types.RunnerConfig{MaxCycles: 2}, sink)

	result, err := r.Run(context.Background(), seed())
	require.NoError(t, err)

	assert.False(t, result.Verdict.Complete)
	assert.Equal(t, 2, result.Cycles)
	assert.NotEmpty(t, result.Verdict.MissingFields)
	require.Len(t, result.History, 3) // first cycle + two additional

	// Cycle count increments exactly once per non-terminal reflection.
	assert.Equal(t, []int{0, 1, 2}, ext.calls)
	assert.Len(t, sink.Named("cycle_advanced"), 2)
}

func TestRunPreviousQueriesPropagate(t *testing.T) {
	gen := &mockGenerator{}
	search := &mockSearch{}
	ext := &mockExtractor{onCall: -1}
	eval := &mockEvaluator{need: []types.FieldName{types.FieldEmail}}

	r := New(gen, search, ext, eval, types.RunnerConfig{MaxCycles: 1}, nil)
	_, err := r.Run(context.Background(), seed())
	require.NoError(t, err)

	require.Len(t, gen.inputs, 2)
	assert.Empty(t, gen.inputs[0].Previous)
	assert.Equal(t, []string{"query cycle 0"}, gen.inputs[1].Previous)

	// The second batch targets the verdict's missing fields.
	assert.Equal(t, []types.FieldName{types.FieldEmail}, gen.inputs[1].Missing)
}

func TestRunFallbackOnGeneratorFailure(t *testing.T) {
	gen := &mockGenerator{err: fmt.Errorf("model unavailable")}
	search := &mockSearch{results: oneResult()}
	ext := &mockExtractor{fields: map[types.FieldName]string{
		types.FieldEmail: "jane@acme.example",
		types.FieldRole:  "VP of Engineering",
	}}
	eval := &mockEvaluator{need: []types.FieldName{types.FieldEmail, types.FieldRole}}

	sink := &trace.Memory{}
	r := New(gen, search, ext, eval, types.RunnerConfig{MaxCycles: 2}, sink)

	result, err := r.Run(context.Background(), seed())
	require.NoError(t, err)
	assert.True(t, result.Verdict.Complete)

	// The search still ran, on the deterministic seed query.
	require.Len(t, search.queries, 1)
	require.Len(t, search.queries[0], 1)
	assert.Equal(t, "Jane Doe Acme", search.queries[0][0].Text)
	assert.Len(t, sink.Named("query_fallback"), 1)
}

// Every query failing degrades the cycle to "no new evidence"; the run
// keeps looping until the budget runs out.
func TestRunAllQueriesFailProceeds(t *testing.T) {
	gen := &mockGenerator{}
	search := &mockSearch{failures: []string{"tavily: timeout", "brave: timeout"}}
	ext := &mockExtractor{onCall: -1}
	eval := &mockEvaluator{need: []types.FieldName{types.FieldEmail}}

	sink := &trace.Memory{}
	r := New(gen, search, ext, eval, types.RunnerConfig{MaxCycles: 1}, sink)

	result, err := r.Run(context.Background(), seed())
	require.NoError(t, err)
	assert.False(t, result.Verdict.Complete)
	assert.Equal(t, 1, result.Cycles)
	assert.Len(t, sink.Named("search_degraded"), 2)

	// Failures land in history for traceability.
	require.Len(t, result.History, 2)
	assert.Equal(t, []string{"tavily: timeout", "brave: timeout"}, result.History[0].Failures)
}

// Extraction failure is absorbed as a no-op merge, never an abort.
func TestRunExtractionFailureAbsorbed(t *testing.T) {
	gen := &mockGenerator{}
	search := &mockSearch{results: oneResult()}
	ext := &mockExtractor{err: fmt.Errorf("unparseable response")}
	eval := &mockEvaluator{need: []types.FieldName{types.FieldEmail}}

	sink := &trace.Memory{}
	r := New(gen, search, ext, eval, types.RunnerConfig{MaxCycles: 1}, sink)

	result, err := r.Run(context.Background(), seed())
	require.NoError(t, err)
	assert.False(t, result.Verdict.Complete)
	assert.Len(t, sink.Named("extraction_degraded"), 2)

	// Seed fields survive the degraded merges.
	assert.Equal(t, "Jane Doe", result.Profile[types.FieldName_].Value)
}

func TestRunCancellationReturnsPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	gen := &mockGenerator{}
	search := &mockSearch{results: oneResult()}
	ext := &mockExtractor{
		fields: map[types.FieldName]string{types.FieldRole: "VP of Engineering"},
		cancel: cancel, // cancels the run mid-extract
	}
	eval := &mockEvaluator{need: []types.FieldName{types.FieldEmail}}

	sink := &trace.Memory{}
	r := New(gen, search, ext, eval, types.RunnerConfig{MaxCycles: 2}, sink)

	result, err := r.Run(ctx, seed())
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)

	assert.True(t, result.Canceled)
	assert.Equal(t, "VP of Engineering", result.Profile[types.FieldRole].Value)
	assert.Len(t, sink.Named("run_canceled"), 1)
	assert.Empty(t, sink.Named("run_completed"))
}

func TestRunEmptySeed(t *testing.T) {
	r := New(&mockGenerator{}, &mockSearch{}, &mockExtractor{}, &mockEvaluator{}, types.RunnerConfig{}, nil)
	_, err := r.Run(context.Background(), types.Seed{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed")
}

func TestFallbackQuery(t *testing.T) {
	tests := []struct {
		name string
		seed types.Seed
		want string
	}{
		{"name and company", types.Seed{Name: "Jane Doe", Company: "Acme"}, "Jane Doe Acme"},
		{"full seed", types.Seed{Name: "Jane Doe", Company: "Acme", Role: "VP", Email: "jane@acme.example"}, "Jane Doe Acme VP jane@acme.example"},
		{"notes only", types.Seed{Notes: "met at gophercon"}, "met at gophercon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FallbackQuery(tt.seed).Text)
		})
	}
}

func TestStateMissingFirstCycle(t *testing.T) {
	state, err := NewState(seed())
	require.NoError(t, err)

	missing := state.missing()
	assert.Contains(t, missing, types.FieldEmail)
	assert.Contains(t, missing, types.FieldRole)
	assert.NotContains(t, missing, types.FieldName_)
	assert.NotContains(t, missing, types.FieldCompany)
}
