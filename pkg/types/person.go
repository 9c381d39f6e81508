// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the person-researcher
// pipeline: the seed descriptor, the evolving profile with per-field
// provenance, search queries and results, and the reflection verdict.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// FieldName identifies a profile field.
type FieldName string

const (
	FieldName_          FieldName = "name"
	FieldEmail          FieldName = "email"
	FieldCompany        FieldName = "company"
	FieldRole           FieldName = "role"
	FieldLinkedIn       FieldName = "linkedin"
	FieldLocation       FieldName = "location"
	FieldYearsExp       FieldName = "years_experience"
	FieldPriorCompanies FieldName = "prior_companies"
	FieldSummary        FieldName = "summary"
)

// KnownFields is the set of accepted profile field names. Extraction
// candidates naming any other field are discarded.
var KnownFields = map[FieldName]bool{
	FieldName_:          true,
	FieldEmail:          true,
	FieldCompany:        true,
	FieldRole:           true,
	FieldLinkedIn:       true,
	FieldLocation:       true,
	FieldYearsExp:       true,
	FieldPriorCompanies: true,
	FieldSummary:        true,
}

// FieldNames returns the known field names in stable order.
func FieldNames() []FieldName {
	names := make([]FieldName, 0, len(KnownFields))
	for n := range KnownFields {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// FieldStatus describes how well supported a profile field value is.
type FieldStatus string

const (
	// StatusUnconfirmed marks a value backed by a single source.
	StatusUnconfirmed FieldStatus = "unconfirmed"

	// StatusConfirmed marks a value backed by two or more independent sources.
	StatusConfirmed FieldStatus = "confirmed"

	// StatusConflicted marks a value that newer evidence disputes without
	// outweighing it. The disputing candidates are kept as alternates.
	StatusConflicted FieldStatus = "conflicted"
)

// SeedSource is the provenance source recorded for caller-supplied values.
const SeedSource = "seed"

// Seed is the immutable input descriptor for one research run. All fields
// are optional; at least one must be non-empty.
type Seed struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	Company  string `json:"company,omitempty" yaml:"company,omitempty"`
	LinkedIn string `json:"linkedin,omitempty" yaml:"linkedin,omitempty"`
	Role     string `json:"role,omitempty" yaml:"role,omitempty"`
	Notes    string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// IsEmpty reports whether no seed field carries a value.
func (s Seed) IsEmpty() bool {
	return s.Name == "" && s.Email == "" && s.Company == "" &&
		s.LinkedIn == "" && s.Role == "" && s.Notes == ""
}

// Fields returns the seed values keyed by profile field name, omitting
// empty entries. Notes are not a profile field and are excluded.
func (s Seed) Fields() map[FieldName]string {
	m := make(map[FieldName]string)
	if s.Name != "" {
		m[FieldName_] = s.Name
	}
	if s.Email != "" {
		m[FieldEmail] = s.Email
	}
	if s.Company != "" {
		m[FieldCompany] = s.Company
	}
	if s.LinkedIn != "" {
		m[FieldLinkedIn] = s.LinkedIn
	}
	if s.Role != "" {
		m[FieldRole] = s.Role
	}
	return m
}

// Describe formats the seed for prompts, one labelled part per known value.
func (s Seed) Describe() string {
	var parts []string
	if s.Name != "" {
		parts = append(parts, "Name: "+s.Name)
	}
	if s.Email != "" {
		parts = append(parts, "Email: "+s.Email)
	}
	if s.Company != "" {
		parts = append(parts, "Company: "+s.Company)
	}
	if s.LinkedIn != "" {
		parts = append(parts, "LinkedIn URL: "+s.LinkedIn)
	}
	if s.Role != "" {
		parts = append(parts, "Role: "+s.Role)
	}
	if s.Notes != "" {
		parts = append(parts, "Notes: "+s.Notes)
	}
	return strings.Join(parts, " ")
}

// Alternate is a disputed candidate value retained in provenance rather
// than discarded.
type Alternate struct {
	Value      string   `json:"value" yaml:"value"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
	Sources    []string `json:"sources,omitempty" yaml:"sources,omitempty"`
	Cycle      int      `json:"cycle" yaml:"cycle"`
}

// Provenance records which cycle and sources populated a profile field.
type Provenance struct {
	// Cycle is the loop iteration that set the current value. Seed-supplied
	// values use cycle 0.
	Cycle int `json:"cycle" yaml:"cycle"`

	// Sources lists the URLs supporting the current value. Caller-supplied
	// values carry the single pseudo-source "seed".
	Sources []string `json:"sources" yaml:"sources"`

	// Status is unconfirmed, confirmed, or conflicted.
	Status FieldStatus `json:"status" yaml:"status"`

	// Alternates holds disputed candidates that did not displace the value.
	Alternates []Alternate `json:"alternates,omitempty" yaml:"alternates,omitempty"`
}

// FieldValue is one populated profile field with its supporting evidence.
type FieldValue struct {
	Value      string     `json:"value" yaml:"value"`
	Confidence float64    `json:"confidence" yaml:"confidence"`
	Provenance Provenance `json:"provenance" yaml:"provenance"`
}

// Profile is the evolving structured record of known facts about the
// person, keyed by field name.
type Profile map[FieldName]FieldValue

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for name, fv := range p {
		cp := fv
		cp.Provenance.Sources = append([]string(nil), fv.Provenance.Sources...)
		cp.Provenance.Alternates = append([]Alternate(nil), fv.Provenance.Alternates...)
		out[name] = cp
	}
	return out
}

// Populated returns the names of fields carrying a non-empty value, in
// stable order.
func (p Profile) Populated() []FieldName {
	var names []FieldName
	for name, fv := range p {
		if fv.Value != "" {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// SeedProfile builds the initial profile from caller-supplied seed fields.
// Seed values carry confidence 1.0 so that a single contradicting search
// result cannot displace them; only agreeing independent sources can.
func SeedProfile(seed Seed) Profile {
	p := make(Profile)
	for name, value := range seed.Fields() {
		p[name] = FieldValue{
			Value:      value,
			Confidence: 1.0,
			Provenance: Provenance{
				Cycle:   0,
				Sources: []string{SeedSource},
				Status:  StatusUnconfirmed,
			},
		}
	}
	return p
}

// SearchQuery is one generated web search query. The rationale explains
// which missing field the query targets; it is kept for traceability and
// never drives logic.
type SearchQuery struct {
	Text      string `json:"text" yaml:"text"`
	Rationale string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// SearchResult is one ranked snippet returned by a search backend.
type SearchResult struct {
	// URL is the source page address and the dedup key across backends.
	URL string `json:"url" yaml:"url"`

	// Title is the page title as returned by the backend.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Snippet is the relevant content excerpt.
	Snippet string `json:"snippet" yaml:"snippet"`

	// Score is the backend's relevance score, when provided.
	Score float64 `json:"score,omitempty" yaml:"score,omitempty"`

	// Backend identifies which search backend found this result.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
}

// ReflectionVerdict is the completeness judgment for one cycle.
type ReflectionVerdict struct {
	Complete      bool        `json:"complete" yaml:"complete"`
	MissingFields []FieldName `json:"missing_fields" yaml:"missing_fields"`
	Reasoning     string      `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
}

// CycleRecord is one append-only history entry: the queries issued during
// a cycle and the raw results they retrieved.
type CycleRecord struct {
	Cycle    int            `json:"cycle" yaml:"cycle"`
	Queries  []SearchQuery  `json:"queries" yaml:"queries"`
	Results  []SearchResult `json:"results" yaml:"results"`
	Failures []string       `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// RunResult is the final outcome of one research run.
type RunResult struct {
	RunID    string            `json:"run_id" yaml:"run_id"`
	Seed     Seed              `json:"seed" yaml:"seed"`
	Profile  Profile           `json:"profile" yaml:"profile"`
	Verdict  ReflectionVerdict `json:"verdict" yaml:"verdict"`
	Cycles   int               `json:"cycles" yaml:"cycles"`
	History  []CycleRecord     `json:"history,omitempty" yaml:"history,omitempty"`
	Canceled bool              `json:"canceled,omitempty" yaml:"canceled,omitempty"`
}

// String summarizes the result for logs.
func (r *RunResult) String() string {
	return fmt.Sprintf("run %s: %d field(s) after %d cycle(s), complete=%v",
		r.RunID, len(r.Profile.Populated()), r.Cycles+1, r.Verdict.Complete)
}
