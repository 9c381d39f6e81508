// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/person-researcher/pkg/types"
)

// ExportYAML writes every archived run to w as a YAML document.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer) error {
	runs, err := s.exportRuns(ctx)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(runs)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ExportJSON writes every archived run to w as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer) error {
	runs, err := s.exportRuns(ctx)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// exportRuns loads every archived run in full, newest first.
func (s *Store) exportRuns(ctx context.Context) ([]*types.RunResult, error) {
	summaries, err := s.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing runs for export: %w", err)
	}

	runs := make([]*types.RunResult, 0, len(summaries))
	for _, sum := range summaries {
		run, err := s.GetRun(ctx, sum.ID)
		if err != nil {
			return nil, fmt.Errorf("loading run %s for export: %w", sum.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}
