// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns raw search result snippets into profile field
// candidates via the inference backend and merges them into the profile
// under a deterministic policy that prefers stability over churn.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/person-researcher/internal/llm"
	"github.com/pdiddy/person-researcher/pkg/types"
)

// snippetLimit truncates overlong snippets before prompting.
const snippetLimit = 4000

// extractionPromptTmpl asks the model to propose field values with
// per-field confidence and the supporting source URLs.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`You are a research extraction system. Read the web search results below and extract structured facts about this person: {{.Person}}

Accepted field names:
{{range .Fields}}- {{.}}
{{end}}
For each fact you can support from the results, produce a candidate with:
- field: one of the accepted field names
- value: the extracted value, as a short string
- confidence: a float between 0.0 and 1.0 for how certain you are this value belongs to this specific person
- source_urls: the URLs of the results supporting the value

Only extract facts about this specific person. When a result is clearly about someone else with a similar name, ignore it.

Respond with a JSON object containing a "candidates" array. Each element must have all fields listed above. Do not include any text outside the JSON object.

Example response:
{"candidates": [{"field": "role", "value": "VP of Engineering", "confidence": 0.9, "source_urls": ["https://acme.example/team"]}]}

Search results:

{{range .Results}}Source: {{.URL}}
{{if .Title}}Title: {{.Title}}
{{end}}Content: {{.Snippet}}
===
{{end}}`))

// Candidate is one proposed field value from the model.
type Candidate struct {
	Field      types.FieldName `json:"field"`
	Value      string          `json:"value"`
	Confidence float64         `json:"confidence"`
	SourceURLs []string        `json:"source_urls"`
}

// response is the parsed model output.
type response struct {
	Candidates []Candidate `json:"candidates"`
}

// Extractor merges search evidence into the profile.
type Extractor struct {
	backend    llm.Backend
	maxRetries int
}

// New constructs an Extractor.
func New(backend llm.Backend, maxRetries int) *Extractor {
	return &Extractor{backend: backend, maxRetries: maxRetries}
}

// Extract proposes candidates from the results and merges them into a copy
// of the profile. With no results the call is a no-op. Retry-exhausted or
// unparseable model output means "no candidates extracted this cycle" and
// also yields the profile unchanged; the error reports why for tracing,
// and the caller never treats it as fatal.
func (e *Extractor) Extract(ctx context.Context, profile types.Profile, seed types.Seed, results []types.SearchResult, cycle int) (types.Profile, error) {
	if len(results) == 0 {
		return profile.Clone(), nil
	}

	prompt, err := renderPrompt(seed, results)
	if err != nil {
		return profile.Clone(), fmt.Errorf("rendering extraction prompt: %w", err)
	}

	text, err := llm.CompleteWithRetry(ctx, e.backend, prompt, e.maxRetries)
	if err != nil {
		return profile.Clone(), fmt.Errorf("extraction call: %w", err)
	}

	var resp response
	if err := llm.UnmarshalFlexible(text, &resp); err != nil {
		return profile.Clone(), fmt.Errorf("parsing extraction response: %w", err)
	}

	candidates := validate(resp.Candidates)
	return Merge(profile, candidates, cycle), nil
}

// validate drops candidates with unknown fields, empty values, or
// out-of-range confidence. Bad candidates are skipped, not fatal: a partly
// usable response still contributes evidence.
func validate(candidates []Candidate) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		c.Value = strings.TrimSpace(c.Value)
		if !types.KnownFields[c.Field] || c.Value == "" {
			continue
		}
		if c.Confidence < 0.0 || c.Confidence > 1.0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// renderPrompt executes the extraction prompt template.
func renderPrompt(seed types.Seed, results []types.SearchResult) (string, error) {
	trimmed := make([]types.SearchResult, len(results))
	for i, r := range results {
		if len(r.Snippet) > snippetLimit {
			r.Snippet = r.Snippet[:snippetLimit] + "... [truncated]"
		}
		trimmed[i] = r
	}

	fields := make([]string, 0, len(types.KnownFields))
	for _, name := range types.FieldNames() {
		fields = append(fields, string(name))
	}

	var buf bytes.Buffer
	err := extractionPromptTmpl.Execute(&buf, struct {
		Person  string
		Fields  []string
		Results []types.SearchResult
	}{
		Person:  seed.Describe(),
		Fields:  fields,
		Results: trimmed,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
