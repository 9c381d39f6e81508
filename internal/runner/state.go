// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runner

import (
	"fmt"

	"github.com/pdiddy/person-researcher/pkg/types"
)

// State is the single mutable aggregate for one research run, owned
// exclusively by the Runner driving it. History is append-only; the cycle
// count increments exactly once per non-terminal reflection.
type State struct {
	Seed        types.Seed
	Profile     types.Profile
	History     []types.CycleRecord
	CycleCount  int
	Terminal    bool
	LastVerdict types.ReflectionVerdict
}

// NewState validates the seed and builds the initial state. The profile
// starts from the caller-supplied seed fields.
func NewState(seed types.Seed) (*State, error) {
	if seed.IsEmpty() {
		return nil, fmt.Errorf("seed must carry at least one non-empty field")
	}
	return &State{
		Seed:    seed,
		Profile: types.SeedProfile(seed),
	}, nil
}

// PreviousQueries returns every query text issued so far, in order. The
// generator must never repeat these verbatim.
func (s *State) PreviousQueries() []string {
	var out []string
	for _, rec := range s.History {
		for _, q := range rec.Queries {
			out = append(out, q.Text)
		}
	}
	return out
}

// record appends the cycle's queries and raw results to history.
func (s *State) record(queries []types.SearchQuery, results []types.SearchResult, failures []string) {
	s.History = append(s.History, types.CycleRecord{
		Cycle:    s.CycleCount,
		Queries:  queries,
		Results:  results,
		Failures: failures,
	})
}

// missing returns the fields the next query batch should target: the most
// recent verdict's missing fields, or on the first cycle every known field
// the seed did not populate.
func (s *State) missing() []types.FieldName {
	if s.CycleCount > 0 {
		return s.LastVerdict.MissingFields
	}
	var out []types.FieldName
	for _, name := range types.FieldNames() {
		if fv, ok := s.Profile[name]; !ok || fv.Value == "" {
			out = append(out, name)
		}
	}
	return out
}

// result snapshots the state into a final run result.
func (s *State) result(runID string, canceled bool) *types.RunResult {
	return &types.RunResult{
		RunID:    runID,
		Seed:     s.Seed,
		Profile:  s.Profile,
		Verdict:  s.LastVerdict,
		Cycles:   s.CycleCount,
		History:  s.History,
		Canceled: canceled,
	}
}
