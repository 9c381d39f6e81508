// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runner drives one research run through an explicit finite-state
// loop: GenerateQueries → Research → Extract → Reflect, with Reflect either
// looping back or terminating. Nodes handle their own retries; the driver
// absorbs node failure as "no new evidence this cycle" and keeps the loop
// moving until the verdict says complete or the cycle budget runs out.
package runner

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/person-researcher/internal/query"
	"github.com/pdiddy/person-researcher/internal/trace"
	"github.com/pdiddy/person-researcher/pkg/types"
)

// nodeState is the driver's position in the research loop.
type nodeState int

const (
	stateGenerateQueries nodeState = iota
	stateResearch
	stateExtract
	stateReflect
	stateDone
)

// defaultMaxCycles is the number of additional cycles beyond the first.
const defaultMaxCycles = 2

// QueryGenerator produces the cycle's search query batch.
type QueryGenerator interface {
	Generate(ctx context.Context, in query.Input) ([]types.SearchQuery, error)
}

// SearchExecutor fans the query batch out to the search backends. Failures
// come back as messages, never as an abort.
type SearchExecutor interface {
	Execute(ctx context.Context, queries []types.SearchQuery) ([]types.SearchResult, []string)
}

// Extractor merges search evidence into the profile.
type Extractor interface {
	Extract(ctx context.Context, profile types.Profile, seed types.Seed, results []types.SearchResult, cycle int) (types.Profile, error)
}

// Evaluator judges completeness after each cycle.
type Evaluator interface {
	Evaluate(ctx context.Context, seed types.Seed, profile types.Profile) (types.ReflectionVerdict, error)
}

// Runner owns the state machine for research runs.
type Runner struct {
	queries   QueryGenerator
	search    SearchExecutor
	extract   Extractor
	reflect   Evaluator
	maxCycles int
	sink      trace.Sink
}

// New constructs a Runner. A nil sink discards trace events.
func New(queries QueryGenerator, search SearchExecutor, extract Extractor, reflect Evaluator, cfg types.RunnerConfig, sink trace.Sink) *Runner {
	maxCycles := cfg.MaxCycles
	if maxCycles <= 0 {
		maxCycles = defaultMaxCycles
	}
	if sink == nil {
		sink = trace.Nop{}
	}
	return &Runner{
		queries:   queries,
		search:    search,
		extract:   extract,
		reflect:   reflect,
		maxCycles: maxCycles,
		sink:      sink,
	}
}

// Run executes one research run to termination. It always returns a usable
// result: on cancellation the result carries the profile as gathered so far
// with Canceled set, alongside the context error.
func (r *Runner) Run(ctx context.Context, seed types.Seed) (*types.RunResult, error) {
	state, err := NewState(seed)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	r.emit(runID, state, "run_started", map[string]any{
		"seed":       seed.Describe(),
		"max_cycles": r.maxCycles,
	})

	var (
		node     = stateGenerateQueries
		queries  []types.SearchQuery
		results  []types.SearchResult
		failures []string
	)

	for node != stateDone {
		if ctx.Err() != nil {
			return r.canceled(runID, state, ctx.Err())
		}

		switch node {
		case stateGenerateQueries:
			queries = r.generateQueries(ctx, runID, state)
			if ctx.Err() != nil {
				return r.canceled(runID, state, ctx.Err())
			}
			node = stateResearch

		case stateResearch:
			results, failures = r.search.Execute(ctx, queries)
			state.record(queries, results, failures)
			r.emit(runID, state, "search_completed", map[string]any{
				"results":  len(results),
				"failures": len(failures),
			})
			if len(results) == 0 && len(failures) > 0 {
				r.emit(runID, state, "search_degraded", map[string]any{
					"failures": strings.Join(failures, "; "),
				})
			}
			node = stateExtract

		case stateExtract:
			merged, err := r.extract.Extract(ctx, state.Profile, state.Seed, results, state.CycleCount)
			if err != nil && ctx.Err() != nil {
				return r.canceled(runID, state, ctx.Err())
			}
			if err != nil {
				// No candidates this cycle; the merged profile is unchanged.
				r.emit(runID, state, "extraction_degraded", map[string]any{"error": err.Error()})
			} else {
				r.emit(runID, state, "extraction_completed", map[string]any{
					"fields": len(merged.Populated()),
				})
			}
			state.Profile = merged
			node = stateReflect

		case stateReflect:
			verdict, err := r.reflect.Evaluate(ctx, state.Seed, state.Profile)
			if err != nil && ctx.Err() != nil {
				return r.canceled(runID, state, ctx.Err())
			}
			if err != nil {
				r.emit(runID, state, "reflection_degraded", map[string]any{"error": err.Error()})
			}
			state.LastVerdict = verdict
			r.emit(runID, state, "verdict", map[string]any{
				"complete": verdict.Complete,
				"missing":  fieldList(verdict.MissingFields),
			})

			if verdict.Complete || state.CycleCount >= r.maxCycles {
				state.Terminal = true
				node = stateDone
				break
			}
			state.CycleCount++
			r.emit(runID, state, "cycle_advanced", nil)
			node = stateGenerateQueries
		}
	}

	result := state.result(runID, false)
	r.emit(runID, state, "run_completed", map[string]any{
		"complete": state.LastVerdict.Complete,
		"cycles":   state.CycleCount + 1,
		"fields":   len(state.Profile.Populated()),
	})
	return result, nil
}

// generateQueries invokes the generator, falling back to the deterministic
// seed query when it fails so the cycle always has something to search.
func (r *Runner) generateQueries(ctx context.Context, runID string, state *State) []types.SearchQuery {
	in := query.Input{
		Seed:     state.Seed,
		Profile:  state.Profile,
		Missing:  state.missing(),
		Previous: state.PreviousQueries(),
	}

	queries, err := r.queries.Generate(ctx, in)
	if err != nil {
		fallback := FallbackQuery(state.Seed)
		r.emit(runID, state, "query_fallback", map[string]any{
			"error": err.Error(),
			"query": fallback.Text,
		})
		return []types.SearchQuery{fallback}
	}

	r.emit(runID, state, "queries_generated", map[string]any{"count": len(queries)})
	return queries
}

// FallbackQuery builds a deterministic generic query from the available
// seed fields, guaranteeing forward progress when query generation fails.
func FallbackQuery(seed types.Seed) types.SearchQuery {
	var parts []string
	for _, part := range []string{seed.Name, seed.Company, seed.Role, seed.Email, seed.LinkedIn} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, seed.Notes)
	}
	return types.SearchQuery{
		Text:      strings.Join(parts, " "),
		Rationale: "generic query from seed fields",
	}
}

// canceled finalizes a run cut short by its context.
func (r *Runner) canceled(runID string, state *State, err error) (*types.RunResult, error) {
	state.Terminal = true
	r.emit(runID, state, "run_canceled", map[string]any{
		"error":  err.Error(),
		"fields": len(state.Profile.Populated()),
	})
	return state.result(runID, true), err
}

// emit sends one trace event stamped with the run and cycle.
func (r *Runner) emit(runID string, state *State, name string, attrs map[string]any) {
	r.sink.Emit(trace.Event{
		Time:  time.Now(),
		RunID: runID,
		Cycle: state.CycleCount,
		Name:  name,
		Attrs: attrs,
	})
}

// fieldList renders field names for trace attributes.
func fieldList(fields []types.FieldName) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}
