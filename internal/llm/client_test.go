// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/person-researcher/internal/httputil"
	"github.com/pdiddy/person-researcher/pkg/types"
)

func TestMain(m *testing.M) {
	// Override backoff bases to avoid real sleeps in retry tests.
	BackoffBase = time.Millisecond
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

// newClaudeServer stands in for the Messages API and captures the request.
func newClaudeServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	orig := claudeAPIURL
	claudeAPIURL = ts.URL
	t.Cleanup(func() { claudeAPIURL = orig })
	return ts
}

func TestClaudeComplete(t *testing.T) {
	var gotReq claudeRequest
	newClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := claudeResponse{Content: []claudeContent{
			{Type: "thinking", Text: "hmm"},
			{Type: "text", Text: `{"ok": true}`},
		}}
		json.NewEncoder(w).Encode(resp)
	})

	c := NewClaude(types.LLMConfig{Model: "test-model", APIKey: "test-key"}, nil)
	text, err := c.Complete(context.Background(), "who is jane doe")
	require.NoError(t, err)

	assert.Equal(t, `{"ok": true}`, text)
	assert.Equal(t, "test-model", gotReq.Model)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "who is jane doe", gotReq.Messages[0].Content)
}

func TestClaudeCompleteNon200(t *testing.T) {
	newClaudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"message": "bad model"}}`)
	})

	c := NewClaude(types.LLMConfig{Model: "bogus"}, nil)
	_, err := c.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestClaudeCompleteRetriesOverload(t *testing.T) {
	calls := 0
	newClaudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(529)
			return
		}
		json.NewEncoder(w).Encode(claudeResponse{Content: []claudeContent{{Type: "text", Text: "ok"}}})
	})

	c := NewClaude(types.LLMConfig{Model: "test-model"}, nil)
	text, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 2, calls)
}

func TestClaudeCompleteNoTextContent(t *testing.T) {
	newClaudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(claudeResponse{})
	})

	c := NewClaude(types.LLMConfig{Model: "test-model"}, nil)
	_, err := c.Complete(context.Background(), "prompt")
	assert.Error(t, err)
}

// flakyBackend fails the first N calls, then succeeds.
type flakyBackend struct {
	failures int
	calls    int
	text     string
}

func (f *flakyBackend) Complete(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", fmt.Errorf("transient error (call %d)", f.calls)
	}
	return f.text, nil
}

func TestCompleteWithRetryEventualSuccess(t *testing.T) {
	b := &flakyBackend{failures: 2, text: "done"}
	text, err := CompleteWithRetry(context.Background(), b, "prompt", 3)
	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.Equal(t, 3, b.calls)
}

func TestCompleteWithRetryExhaustion(t *testing.T) {
	b := &flakyBackend{failures: 10}
	_, err := CompleteWithRetry(context.Background(), b, "prompt", 2)
	require.Error(t, err)
	assert.Equal(t, 3, b.calls) // initial + 2 retries
	assert.Contains(t, err.Error(), "after 2 retries")
}

func TestCompleteWithRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &flakyBackend{failures: 10}
	_, err := CompleteWithRetry(ctx, b, "prompt", 5)
	assert.ErrorIs(t, err, context.Canceled)
}
