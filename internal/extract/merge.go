// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"sort"
	"strings"

	"github.com/pdiddy/person-researcher/pkg/types"
)

// Merge folds validated candidates into a copy of the profile. The policy
// is deterministic and reproducible without re-invoking the model:
//
//   - an absent field is populated from the first accepted candidate;
//   - a present field is overwritten only when the new evidence carries
//     strictly higher confidence, or when two independent new sources agree
//     with each other against an existing single-source value;
//   - a confirmed field (two or more independent sources) is never
//     displaced within one cycle; disputing evidence is kept as alternates;
//   - conflicting candidates of equal confidence become alternates while
//     the primary value stays put.
func Merge(profile types.Profile, candidates []Candidate, cycle int) types.Profile {
	out := profile.Clone()

	grouped := groupCandidates(candidates)
	for _, field := range sortedFields(grouped) {
		for _, g := range grouped[field] {
			mergeField(out, field, g, cycle)
		}
	}
	return out
}

// group aggregates the cycle's candidates that agree on one value for one
// field: the union of their source URLs and their highest confidence.
type group struct {
	value      string
	confidence float64
	sources    []string
}

// independent reports how many distinct sources back the group.
func (g group) independent() int {
	return len(g.sources)
}

// groupCandidates buckets candidates by field and normalized value,
// preserving first-appearance order within each field.
func groupCandidates(candidates []Candidate) map[types.FieldName][]group {
	grouped := make(map[types.FieldName][]group)
	index := make(map[types.FieldName]map[string]int) // norm value → slice index

	for _, c := range candidates {
		norm := normalize(c.Value)
		if index[c.Field] == nil {
			index[c.Field] = make(map[string]int)
		}
		if i, ok := index[c.Field][norm]; ok {
			g := &grouped[c.Field][i]
			g.sources = mergeSources(g.sources, c.SourceURLs)
			if c.Confidence > g.confidence {
				g.confidence = c.Confidence
			}
			continue
		}
		index[c.Field][norm] = len(grouped[c.Field])
		grouped[c.Field] = append(grouped[c.Field], group{
			value:      c.Value,
			confidence: c.Confidence,
			sources:    mergeSources(nil, c.SourceURLs),
		})
	}
	return grouped
}

// mergeField applies one value group to one profile field.
func mergeField(p types.Profile, field types.FieldName, g group, cycle int) {
	current, exists := p[field]

	// First accepted candidate populates an absent field.
	if !exists || current.Value == "" {
		p[field] = types.FieldValue{
			Value:      g.value,
			Confidence: g.confidence,
			Provenance: types.Provenance{
				Cycle:   cycle,
				Sources: g.sources,
				Status:  statusFor(len(g.sources), false),
			},
		}
		return
	}

	// Agreeing evidence reinforces: union sources, keep higher confidence.
	if normalize(g.value) == normalize(current.Value) {
		current.Provenance.Sources = mergeSources(current.Provenance.Sources, g.sources)
		if g.confidence > current.Confidence {
			current.Confidence = g.confidence
		}
		if len(current.Provenance.Sources) >= 2 {
			current.Provenance.Status = types.StatusConfirmed
		}
		p[field] = current
		return
	}

	alternate := types.Alternate{
		Value:      g.value,
		Confidence: g.confidence,
		Sources:    g.sources,
		Cycle:      cycle,
	}

	// A confirmed value is never displaced by this cycle's evidence; the
	// dispute is recorded instead.
	if current.Provenance.Status == types.StatusConfirmed {
		current.Provenance.Alternates = append(current.Provenance.Alternates, alternate)
		p[field] = current
		return
	}

	singleSource := len(current.Provenance.Sources) <= 1
	overwrite := g.confidence > current.Confidence ||
		(g.independent() >= 2 && singleSource)

	if overwrite {
		prior := types.Alternate{
			Value:      current.Value,
			Confidence: current.Confidence,
			Sources:    current.Provenance.Sources,
			Cycle:      current.Provenance.Cycle,
		}
		p[field] = types.FieldValue{
			Value:      g.value,
			Confidence: g.confidence,
			Provenance: types.Provenance{
				Cycle:      cycle,
				Sources:    g.sources,
				Status:     statusFor(len(g.sources), false),
				Alternates: append(current.Provenance.Alternates, prior),
			},
		}
		return
	}

	// Equal or lower confidence without a source majority: keep the prior
	// value, retain the dispute.
	current.Provenance.Alternates = append(current.Provenance.Alternates, alternate)
	current.Provenance.Status = types.StatusConflicted
	p[field] = current
}

// statusFor maps source count to a field status.
func statusFor(sources int, conflicted bool) types.FieldStatus {
	switch {
	case conflicted:
		return types.StatusConflicted
	case sources >= 2:
		return types.StatusConfirmed
	default:
		return types.StatusUnconfirmed
	}
}

// mergeSources unions URL lists, preserving order and dropping duplicates
// and empties.
func mergeSources(dst []string, src []string) []string {
	seen := make(map[string]bool, len(dst)+len(src))
	out := make([]string, 0, len(dst)+len(src))
	for _, lists := range [][]string{dst, src} {
		for _, s := range lists {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// normalize lowercases and collapses whitespace for value comparison.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// sortedFields returns the map keys in stable order.
func sortedFields(m map[types.FieldName][]group) []types.FieldName {
	fields := make([]types.FieldName, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}
