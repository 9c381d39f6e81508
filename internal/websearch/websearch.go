// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package websearch queries web search APIs and returns unified,
// deduplicated result snippets. Each backend (Tavily, Brave) implements
// the Backend interface per the Strategy pattern.
package websearch

import (
	"context"

	"github.com/pdiddy/person-researcher/pkg/types"
)

// Backend searches a single web search API.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.SearchResult, error)
}

// Dedupe merges results that share a source URL, keeping the first
// occurrence and folding the higher score and any longer snippet into it.
// It returns the deduplicated slice and the number of duplicates removed.
func Dedupe(results []types.SearchResult) ([]types.SearchResult, int) {
	seen := make(map[string]int) // URL → index in deduped
	var deduped []types.SearchResult
	removed := 0

	for _, r := range results {
		if r.URL == "" {
			deduped = append(deduped, r)
			continue
		}
		if idx, ok := seen[r.URL]; ok {
			mergeInto(&deduped[idx], r)
			removed++
			continue
		}
		seen[r.URL] = len(deduped)
		deduped = append(deduped, r)
	}
	return deduped, removed
}

// mergeInto fills empty fields of dst from src and keeps the higher score.
func mergeInto(dst *types.SearchResult, src types.SearchResult) {
	if dst.Title == "" && src.Title != "" {
		dst.Title = src.Title
	}
	if len(src.Snippet) > len(dst.Snippet) {
		dst.Snippet = src.Snippet
	}
	if src.Score > dst.Score {
		dst.Score = src.Score
	}
	if dst.Backend != src.Backend && src.Backend != "" && dst.Backend != "" {
		dst.Backend = dst.Backend + "," + src.Backend
	}
}
