// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/meshintel/paperjson/pkg/types"
)

// ExportEntry holds one archived paper's manifest row for export.
type ExportEntry struct {
	ID         string   `json:"id" yaml:"id"`
	Source     string   `json:"source" yaml:"source"`
	Title      string   `json:"title" yaml:"title"`
	Authors    []string `json:"authors" yaml:"authors"`
	Year       string   `json:"year" yaml:"year"`
	Abstract   string   `json:"abstract" yaml:"abstract"`
	Paragraphs int      `json:"paragraphs" yaml:"paragraphs"`
	CiteSpans  int      `json:"cite_spans" yaml:"cite_spans"`
	RefSpans   int      `json:"ref_spans" yaml:"ref_spans"`
	EqSpans    int      `json:"eq_spans" yaml:"eq_spans"`
}

// ExportYAML writes the archive manifest to export.yaml in the archive
// directory.
func (s *Store) ExportYAML(ctx context.Context) error {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, "export.yaml"), data, 0o644)
}

// ExportJSON writes the archive manifest to export.json in the archive
// directory.
func (s *Store) ExportJSON(ctx context.Context) error {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, "export.json"), data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context) ([]ExportEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, title, authors, year, abstract, paragraphs, cite_spans, ref_spans, eq_spans
		 FROM papers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	defer rows.Close()

	entries := []ExportEntry{}
	for rows.Next() {
		var (
			e           ExportEntry
			authorsJSON string
		)
		if err := rows.Scan(&e.ID, &e.Source, &e.Title, &authorsJSON, &e.Year,
			&e.Abstract, &e.Paragraphs, &e.CiteSpans, &e.RefSpans, &e.EqSpans); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		var authors []types.Author
		if err := json.Unmarshal([]byte(authorsJSON), &authors); err == nil {
			for _, a := range authors {
				e.Authors = append(e.Authors, authorName(a))
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func authorName(a types.Author) string {
	parts := []string{}
	if a.First != "" {
		parts = append(parts, a.First)
	}
	parts = append(parts, a.Middle...)
	if a.Last != "" {
		parts = append(parts, a.Last)
	}
	if a.Suffix != "" {
		parts = append(parts, a.Suffix)
	}
	return strings.Join(parts, " ")
}
