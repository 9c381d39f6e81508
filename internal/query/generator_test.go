// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/person-researcher/internal/llm"
	"github.com/pdiddy/person-researcher/pkg/types"
)

func TestMain(m *testing.M) {
	// Keep retry backoffs out of test runtime.
	llm.BackoffBase = time.Millisecond
	os.Exit(m.Run())
}

// cannedBackend returns a fixed response and records the last prompt.
type cannedBackend struct {
	response string
	err      error
	prompt   string
}

func (c *cannedBackend) Complete(_ context.Context, prompt string) (string, error) {
	c.prompt = prompt
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

func seed() types.Seed {
	return types.Seed{Name: "Jane Doe", Company: "Acme"}
}

func TestGenerate(t *testing.T) {
	b := &cannedBackend{response: `{"queries": [
		{"text": "Jane Doe Acme email", "rationale": "find email"},
		{"text": "Jane Doe Acme linkedin", "rationale": "find linkedin"}
	]}`}

	g := New(b, types.QueryConfig{}, 1)
	in := Input{Seed: seed(), Missing: []types.FieldName{types.FieldEmail, types.FieldLinkedIn}}

	queries, err := g.Generate(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, "Jane Doe Acme email", queries[0].Text)
	assert.Equal(t, "find email", queries[0].Rationale)

	// Prompt carries the seed description and the missing fields.
	assert.Contains(t, b.prompt, "Jane Doe")
	assert.Contains(t, b.prompt, "email")
	assert.Contains(t, b.prompt, "linkedin")
}

func TestGenerateFiltersRepeatsAndEmpties(t *testing.T) {
	b := &cannedBackend{response: `{"queries": [
		{"text": "Jane Doe Acme email"},
		{"text": "  "},
		{"text": "Jane Doe Acme email"},
		{"text": "Jane Doe Acme role"}
	]}`}

	g := New(b, types.QueryConfig{}, 1)
	in := Input{Seed: seed(), Previous: []string{"Jane Doe Acme email"}}

	queries, err := g.Generate(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, "Jane Doe Acme role", queries[0].Text)
}

func TestGenerateCapsAtMaxQueries(t *testing.T) {
	var items []string
	for i := 0; i < 8; i++ {
		items = append(items, fmt.Sprintf(`{"text": "query %d"}`, i))
	}
	b := &cannedBackend{response: `{"queries": [` + strings.Join(items, ",") + `]}`}

	g := New(b, types.QueryConfig{MaxQueries: 3}, 1)
	queries, err := g.Generate(context.Background(), Input{Seed: seed()})
	require.NoError(t, err)
	assert.Len(t, queries, 3)
}

func TestGenerateUnparseableResponse(t *testing.T) {
	b := &cannedBackend{response: "I'd be happy to help you research Jane!"}

	g := New(b, types.QueryConfig{}, 1)
	_, err := g.Generate(context.Background(), Input{Seed: seed()})
	assert.Error(t, err)
}

func TestGenerateAllRepeats(t *testing.T) {
	b := &cannedBackend{response: `{"queries": [{"text": "same"}]}`}

	g := New(b, types.QueryConfig{}, 1)
	_, err := g.Generate(context.Background(), Input{Seed: seed(), Previous: []string{"same"}})
	assert.Error(t, err)
}

func TestGenerateBackendFailure(t *testing.T) {
	b := &cannedBackend{err: fmt.Errorf("rate limited")}

	g := New(b, types.QueryConfig{}, 1)
	_, err := g.Generate(context.Background(), Input{Seed: seed()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generating queries")
}

func TestGenerateTolerantOfFencedJSON(t *testing.T) {
	b := &cannedBackend{response: "```json\n{\"queries\": [{\"text\": \"Jane Doe Acme\"}]}\n```"}

	g := New(b, types.QueryConfig{}, 1)
	queries, err := g.Generate(context.Background(), Input{Seed: seed()})
	require.NoError(t, err)
	assert.Len(t, queries, 1)
}
