// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reflection judges whether a research run has gathered enough to
// stop. The model gives a soft completeness opinion; a deterministic
// required-field check overrides it so that an empty required field always
// blocks completion.
package reflection

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"text/template"

	"github.com/pdiddy/person-researcher/internal/llm"
	"github.com/pdiddy/person-researcher/pkg/types"
)

var reflectionPromptTmpl = template.Must(template.New("reflection").Parse(`You are a research quality auditor. We are building a profile of this person: {{.Person}}

Profile so far:
{{range .Known}}- {{.Field}}: {{.Value}}
{{end}}{{if not .Known}}(empty)
{{end}}
Required fields for this run:
{{range .Required}}- {{.}}
{{end}}
Judge whether the profile is complete enough to stop researching, and list any fields that are still missing or too thin to trust.

Respond with a JSON object only:
{"complete": true or false, "missing_fields": ["field", ...], "reasoning": "one or two sentences"}

Field names in missing_fields must come from this list:
{{range .Fields}}- {{.}}
{{end}}`))

// verdictResponse is the parsed model output.
type verdictResponse struct {
	Complete      bool     `json:"complete"`
	MissingFields []string `json:"missing_fields"`
	Reasoning     string   `json:"reasoning"`
}

// Evaluator decides the "complete" half of the termination condition.
type Evaluator struct {
	backend    llm.Backend
	cfg        types.ReflectionConfig
	maxRetries int
}

// New constructs an Evaluator.
func New(backend llm.Backend, cfg types.ReflectionConfig, maxRetries int) *Evaluator {
	return &Evaluator{backend: backend, cfg: cfg, maxRetries: maxRetries}
}

// RequiredFor returns the required-field set for a run. The configured set
// wins when present; otherwise the derivable default is email and role,
// plus name and company when the seed does not supply them.
func (e *Evaluator) RequiredFor(seed types.Seed) []types.FieldName {
	if len(e.cfg.RequiredFields) > 0 {
		out := append([]types.FieldName(nil), e.cfg.RequiredFields...)
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out
	}

	required := []types.FieldName{types.FieldEmail, types.FieldRole}
	if seed.Name == "" {
		required = append(required, types.FieldName_)
	}
	if seed.Company == "" {
		required = append(required, types.FieldCompany)
	}
	sort.Slice(required, func(i, j int) bool { return required[i] < required[j] })
	return required
}

// Evaluate produces the cycle's verdict. The model's judgment is advisory:
// the deterministic required-field check decides completeness, and any
// required field without a value always appears in MissingFields. When the
// model call fails, the returned verdict is the deterministic one and the
// error reports the degradation for tracing; callers never treat it as
// fatal.
func (e *Evaluator) Evaluate(ctx context.Context, seed types.Seed, profile types.Profile) (types.ReflectionVerdict, error) {
	required := e.RequiredFor(seed)
	requiredMissing := missingOf(profile, required)

	soft, softErr := e.softJudgment(ctx, seed, profile, required)
	if softErr != nil {
		return types.ReflectionVerdict{
			Complete:      len(requiredMissing) == 0,
			MissingFields: requiredMissing,
		}, fmt.Errorf("reflection call degraded to required-field check: %w", softErr)
	}

	missing := unionFields(requiredMissing, softMissing(soft, profile))
	return types.ReflectionVerdict{
		// The model can hold the run open, never close it over empty
		// required fields.
		Complete:      soft.Complete && len(requiredMissing) == 0,
		MissingFields: missing,
		Reasoning:     soft.Reasoning,
	}, nil
}

// softJudgment asks the model for its completeness opinion.
func (e *Evaluator) softJudgment(ctx context.Context, seed types.Seed, profile types.Profile, required []types.FieldName) (verdictResponse, error) {
	prompt, err := renderPrompt(seed, profile, required)
	if err != nil {
		return verdictResponse{}, fmt.Errorf("rendering reflection prompt: %w", err)
	}

	text, err := llm.CompleteWithRetry(ctx, e.backend, prompt, e.maxRetries)
	if err != nil {
		return verdictResponse{}, err
	}

	var resp verdictResponse
	if err := llm.UnmarshalFlexible(text, &resp); err != nil {
		return verdictResponse{}, fmt.Errorf("parsing reflection response: %w", err)
	}
	return resp, nil
}

// softMissing keeps the model's missing fields that name known fields and
// are genuinely unpopulated. Hallucinated field names and complaints about
// fields that already carry values are dropped.
func softMissing(resp verdictResponse, profile types.Profile) []types.FieldName {
	var out []types.FieldName
	for _, raw := range resp.MissingFields {
		name := types.FieldName(raw)
		if !types.KnownFields[name] {
			continue
		}
		if fv, ok := profile[name]; ok && fv.Value != "" {
			continue
		}
		out = append(out, name)
	}
	return out
}

// missingOf returns the required fields without a value, in input order.
func missingOf(profile types.Profile, required []types.FieldName) []types.FieldName {
	var missing []types.FieldName
	for _, name := range required {
		if fv, ok := profile[name]; !ok || fv.Value == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// unionFields merges field lists, deduplicated and sorted.
func unionFields(lists ...[]types.FieldName) []types.FieldName {
	seen := make(map[types.FieldName]bool)
	var out []types.FieldName
	for _, list := range lists {
		for _, name := range list {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// renderPrompt executes the reflection prompt template.
func renderPrompt(seed types.Seed, profile types.Profile, required []types.FieldName) (string, error) {
	type knownField struct {
		Field types.FieldName
		Value string
	}
	var known []knownField
	for _, name := range profile.Populated() {
		known = append(known, knownField{Field: name, Value: profile[name].Value})
	}

	var buf bytes.Buffer
	err := reflectionPromptTmpl.Execute(&buf, struct {
		Person   string
		Known    []knownField
		Required []types.FieldName
		Fields   []types.FieldName
	}{
		Person:   seed.Describe(),
		Known:    known,
		Required: required,
		Fields:   types.FieldNames(),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
