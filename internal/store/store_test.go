// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/person-researcher/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.StoreConfig{DBPath: filepath.Join(t.TempDir(), "research.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string) *types.RunResult {
	return &types.RunResult{
		RunID: id,
		Seed:  types.Seed{Name: "Jane Doe", Company: "Acme"},
		Profile: types.Profile{
			types.FieldName_: {
				Value:      "Jane Doe",
				Confidence: 1.0,
				Provenance: types.Provenance{Sources: []string{types.SeedSource}, Status: types.StatusUnconfirmed},
			},
			types.FieldRole: {
				Value:      "VP of Engineering",
				Confidence: 0.9,
				Provenance: types.Provenance{
					Cycle:   1,
					Sources: []string{"https://acme.example/team", "https://example.org/profile"},
					Status:  types.StatusConfirmed,
					Alternates: []types.Alternate{
						{Value: "Engineering Manager", Confidence: 0.4, Sources: []string{"https://old.example"}, Cycle: 0},
					},
				},
			},
		},
		Verdict: types.ReflectionVerdict{
			Complete:      false,
			MissingFields: []types.FieldName{types.FieldEmail},
			Reasoning:     "no email found",
		},
		Cycles: 1,
		History: []types.CycleRecord{
			{
				Cycle:   0,
				Queries: []types.SearchQuery{{Text: "Jane Doe Acme", Rationale: "seed"}},
				Results: []types.SearchResult{{URL: "https://acme.example/team", Snippet: "Jane Doe leads engineering."}},
			},
			{
				Cycle:    1,
				Queries:  []types.SearchQuery{{Text: "Jane Doe Acme email"}},
				Failures: []string{"brave: timeout"},
			},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved := sampleRun("run-1")
	require.NoError(t, s.SaveRun(ctx, saved))

	loaded, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, saved.Seed, loaded.Seed)
	assert.Equal(t, saved.Profile, loaded.Profile)
	assert.Equal(t, saved.Verdict, loaded.Verdict)
	assert.Equal(t, saved.Cycles, loaded.Cycles)
	assert.Equal(t, saved.History, loaded.History)
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, sampleRun("run-1")))
	second := sampleRun("run-2")
	second.Verdict.Complete = true
	require.NoError(t, s.SaveRun(ctx, second))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	assert.Equal(t, "run-2", runs[0].ID)
	assert.True(t, runs[0].Complete)
	assert.Equal(t, 2, runs[0].Fields)
	assert.Equal(t, "Jane Doe", runs[0].Seed.Name)
}

func TestSaveRunReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, sampleRun("run-1")))

	updated := sampleRun("run-1")
	updated.Profile[types.FieldEmail] = types.FieldValue{
		Value:      "jane@acme.example",
		Confidence: 0.8,
		Provenance: types.Provenance{Cycle: 2, Sources: []string{"https://a.example"}, Status: types.StatusUnconfirmed},
	}
	updated.Verdict = types.ReflectionVerdict{Complete: true}
	require.NoError(t, s.SaveRun(ctx, updated))

	loaded, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, loaded.Verdict.Complete)
	assert.Equal(t, "jane@acme.example", loaded.Profile[types.FieldEmail].Value)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestExportYAML(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveRun(ctx, sampleRun("run-1")))

	var buf bytes.Buffer
	require.NoError(t, s.ExportYAML(ctx, &buf))
	out := buf.String()
	assert.Contains(t, out, "run_id: run-1")
	assert.Contains(t, out, "VP of Engineering")
	assert.Contains(t, out, "https://acme.example/team")
}

func TestExportJSON(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveRun(ctx, sampleRun("run-1")))

	var buf bytes.Buffer
	require.NoError(t, s.ExportJSON(ctx, &buf))
	assert.Contains(t, buf.String(), `"run_id": "run-1"`)
	assert.Contains(t, buf.String(), "Jane Doe")
}
