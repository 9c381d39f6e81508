// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package researchexec fans a cycle's search queries out to the configured
// search backends and fans the raw results back in as a deduplicated set.
// Partial success is the normal case: a failing or timed-out query
// contributes nothing instead of aborting the cycle.
package researchexec

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/person-researcher/internal/websearch"
	"github.com/pdiddy/person-researcher/pkg/types"
)

const defaultPerQueryTimeout = 30 * time.Second

// Executor issues search queries against one or more backends.
type Executor struct {
	backends []websearch.Backend
	cfg      types.SearchConfig
}

// New constructs an Executor over the given backends.
func New(backends []websearch.Backend, cfg types.SearchConfig) *Executor {
	return &Executor{backends: backends, cfg: cfg}
}

// Execute runs every (query, backend) pair concurrently, each under an
// independent timeout, and returns the flattened results deduplicated by
// source URL together with the failure messages. An empty result set with
// non-empty failures means the whole cycle found no new evidence; the
// caller proceeds with that rather than treating it as fatal.
func (e *Executor) Execute(ctx context.Context, queries []types.SearchQuery) ([]types.SearchResult, []string) {
	timeout := e.cfg.PerQueryTimeout
	if timeout <= 0 {
		timeout = defaultPerQueryTimeout
	}

	type callResult struct {
		results []types.SearchResult
		err     string
	}

	ch := make(chan callResult, len(queries)*len(e.backends))
	var wg sync.WaitGroup

	for _, q := range queries {
		for _, b := range e.backends {
			wg.Add(1)
			go func(q types.SearchQuery, b websearch.Backend) {
				defer wg.Done()

				callCtx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()

				results, err := b.Search(callCtx, q.Text, e.cfg)
				if err != nil {
					ch <- callResult{err: fmt.Sprintf("%s: %q: %v", b.Name(), q.Text, err)}
					return
				}
				ch <- callResult{results: results}
			}(q, b)
		}
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var all []types.SearchResult
	var failures []string
	for cr := range ch {
		if cr.err != "" {
			failures = append(failures, cr.err)
			continue
		}
		all = append(all, cr.results...)
	}

	deduped, _ := websearch.Dedupe(all)

	// Arrival order is nondeterministic; fix it so downstream prompts and
	// history records are reproducible.
	sort.Slice(deduped, func(i, j int) bool {
		if deduped[i].Score != deduped[j].Score {
			return deduped[i].Score > deduped[j].Score
		}
		return deduped[i].URL < deduped[j].URL
	})
	sort.Strings(failures)

	return deduped, failures
}
