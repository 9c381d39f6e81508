// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query generates the batch of web search queries for one research
// cycle, targeting whichever profile fields are still missing.
package query

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/person-researcher/internal/llm"
	"github.com/pdiddy/person-researcher/pkg/types"
)

// Input is the slice of run state the generator needs: the seed, the
// current profile, the fields to prioritize, and every query text already
// issued (which must not be repeated verbatim).
type Input struct {
	Seed     types.Seed
	Profile  types.Profile
	Missing  []types.FieldName
	Previous []string
}

const defaultMaxQueries = 4

// queryPromptTmpl asks the model for targeted search queries. The model
// responds with a JSON object holding a "queries" array.
var queryPromptTmpl = template.Must(template.New("query").Parse(`You are a search query generator tasked with creating targeted web search queries to gather specific information about a person.

Here is the person being researched: {{.Person}}
{{if .Known}}
Already known (do not search for these again):
{{range .Known}}- {{.}}
{{end}}{{end}}{{if .Missing}}
Prioritize finding these missing fields:
{{range .Missing}}- {{.}}
{{end}}{{end}}{{if .Previous}}
Queries already issued (never repeat any of these verbatim):
{{range .Previous}}- {{.}}
{{end}}{{end}}
Generate at most {{.MaxQueries}} search queries. Guidelines:
1. Make sure to look up the right person; include distinguishing context such as the company in each query.
2. Use context clues for the company the person works at if it is not concretely provided.
3. Do not invent search terms that could miss the person's profile entirely.
4. If a LinkedIn URL is known, a query may include the raw URL, as that leads to the correct page.

Respond with a JSON object containing a "queries" array. Each element has a "text" field (the query) and a "rationale" field (which missing field it targets). Do not include any text outside the JSON object.

Example response:
{"queries": [{"text": "Jane Doe Acme VP engineering email", "rationale": "find work email"}]}
`))

// response is the parsed model output.
type response struct {
	Queries []types.SearchQuery `json:"queries"`
}

// Generator produces search query batches via the inference backend.
type Generator struct {
	backend    llm.Backend
	maxQueries int
	maxRetries int
}

// New constructs a Generator. maxRetries bounds inference retry attempts.
func New(backend llm.Backend, cfg types.QueryConfig, maxRetries int) *Generator {
	maxQueries := cfg.MaxQueries
	if maxQueries <= 0 {
		maxQueries = defaultMaxQueries
	}
	return &Generator{backend: backend, maxQueries: maxQueries, maxRetries: maxRetries}
}

// Generate returns 1..MaxQueries queries for the cycle. Empty texts and
// verbatim repeats of previously issued queries are dropped; if nothing
// usable remains the call fails and the driver falls back to its
// deterministic seed query.
func (g *Generator) Generate(ctx context.Context, in Input) ([]types.SearchQuery, error) {
	prompt, err := renderPrompt(in, g.maxQueries)
	if err != nil {
		return nil, fmt.Errorf("rendering query prompt: %w", err)
	}

	text, err := llm.CompleteWithRetry(ctx, g.backend, prompt, g.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("generating queries: %w", err)
	}

	var resp response
	if err := llm.UnmarshalFlexible(text, &resp); err != nil {
		return nil, fmt.Errorf("parsing query response: %w", err)
	}

	issued := make(map[string]bool, len(in.Previous))
	for _, prev := range in.Previous {
		issued[prev] = true
	}

	var queries []types.SearchQuery
	for _, q := range resp.Queries {
		q.Text = strings.TrimSpace(q.Text)
		if q.Text == "" || issued[q.Text] {
			continue
		}
		issued[q.Text] = true
		queries = append(queries, q)
		if len(queries) == g.maxQueries {
			break
		}
	}

	if len(queries) == 0 {
		return nil, fmt.Errorf("no usable queries in model response")
	}
	return queries, nil
}

// renderPrompt executes the query prompt template for the given input.
func renderPrompt(in Input, maxQueries int) (string, error) {
	known := make([]string, 0, len(in.Profile))
	for _, name := range in.Profile.Populated() {
		known = append(known, fmt.Sprintf("%s: %s", name, in.Profile[name].Value))
	}

	missing := make([]string, 0, len(in.Missing))
	for _, name := range in.Missing {
		missing = append(missing, string(name))
	}

	var buf bytes.Buffer
	err := queryPromptTmpl.Execute(&buf, struct {
		Person     string
		Known      []string
		Missing    []string
		Previous   []string
		MaxQueries int
	}{
		Person:     in.Seed.Describe(),
		Known:      known,
		Missing:    missing,
		Previous:   in.Previous,
		MaxQueries: maxQueries,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
