// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists converted papers in a SQLite archive and builds
// a full-text paragraph index over them.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/meshintel/paperjson/pkg/types"
)

const dbFile = "papers.db"

// Store manages the paper archive SQLite database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// NewStore opens or creates the archive database under cfg.Dir, creating
// the schema when missing.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, dir: cfg.Dir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			source TEXT,
			title TEXT,
			authors TEXT,
			year TEXT,
			abstract TEXT,
			paragraphs INTEGER,
			cite_spans INTEGER,
			ref_spans INTEGER,
			eq_spans INTEGER,
			release TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS paragraphs (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			paper_id TEXT NOT NULL REFERENCES papers(id),
			section TEXT,
			text TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_paragraphs_paper_id ON paragraphs(paper_id)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			paper_id TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='paragraphs_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE paragraphs_fts USING fts5(text, content=paragraphs, content_rowid=rowid)`,
			`CREATE TRIGGER paragraphs_ai AFTER INSERT ON paragraphs BEGIN
				INSERT INTO paragraphs_fts(rowid, text) VALUES (new.rowid, new.text);
			END`,
			`CREATE TRIGGER paragraphs_ad AFTER DELETE ON paragraphs BEGIN
				INSERT INTO paragraphs_fts(paragraphs_fts, rowid, text) VALUES('delete', old.rowid, old.text);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}
	return nil
}

// IngestSummary holds counts from an archive indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of release files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest reads release JSON files from outputDir and populates the
// archive, detecting new, changed, and unchanged files for incremental
// updates.
func (s *Store) Ingest(ctx context.Context, outputDir string, w io.Writer) (IngestSummary, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading output directory %s: %w", outputDir, err)
	}

	var summary IngestSummary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		paperID := strings.TrimSuffix(entry.Name(), ".json")
		filePath := filepath.Join(outputDir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", paperID, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE paper_id = ?`, paperID,
		).Scan(&storedModTime)
		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", paperID)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		data, err := os.ReadFile(filePath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", paperID, err)
			summary.Failed++
			continue
		}
		paper, kind, err := types.LoadPaper(data)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: parse error: %v\n", paperID, err)
			summary.Failed++
			continue
		}

		if err := s.ingestPaper(ctx, paper, kind, data, modTime, isUpdate); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", paperID, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s\n", paperID)
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s\n", paperID)
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)
	return summary, nil
}

func (s *Store) ingestPaper(ctx context.Context, paper *types.Paper, kind types.SourceKind, release []byte, modTime string, isUpdate bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM paragraphs WHERE paper_id = ?`, paper.PaperID); err != nil {
			return fmt.Errorf("deleting old paragraphs: %w", err)
		}
	}

	paragraphs := allParagraphs(paper)
	cites, refs, eqs := spanCounts(paragraphs)
	authorsJSON, _ := json.Marshal(paper.Metadata.Authors)

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO papers (id, source, title, authors, year, abstract, paragraphs, cite_spans, ref_spans, eq_spans, release)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			source=excluded.source, title=excluded.title, authors=excluded.authors,
			year=excluded.year, abstract=excluded.abstract, paragraphs=excluded.paragraphs,
			cite_spans=excluded.cite_spans, ref_spans=excluded.ref_spans,
			eq_spans=excluded.eq_spans, release=excluded.release`,
		paper.PaperID, string(kind), paper.Metadata.Title, string(authorsJSON),
		paper.Metadata.Year, paper.RawAbstract(), len(paragraphs), cites, refs, eqs,
		string(release),
	); err != nil {
		return fmt.Errorf("upserting paper: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO paragraphs (paper_id, section, text) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()
	for _, para := range paragraphs {
		if _, err := stmt.ExecContext(ctx, paper.PaperID, para.Section.String(), para.Text); err != nil {
			return fmt.Errorf("inserting paragraph: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO indexing_status (paper_id, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(paper_id) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		paper.PaperID, modTime,
	); err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}

func allParagraphs(paper *types.Paper) []types.Paragraph {
	out := make([]types.Paragraph, 0, len(paper.Abstract)+len(paper.BodyText)+len(paper.BackMatter))
	out = append(out, paper.Abstract...)
	out = append(out, paper.BodyText...)
	out = append(out, paper.BackMatter...)
	return out
}

func spanCounts(paragraphs []types.Paragraph) (cites, refs, eqs int) {
	for _, p := range paragraphs {
		cites += len(p.CiteSpans)
		refs += len(p.RefSpans)
		eqs += len(p.EqSpans)
	}
	return cites, refs, eqs
}

// SearchResult is one full-text match with its paper context.
type SearchResult struct {
	PaperID string
	Title   string
	Section string
	Text    string
}

// Search runs an FTS5 query over the paragraph index, ranked by
// relevance.
func (s *Store) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if maxResults <= 0 {
		maxResults = s.maxResults
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.paper_id, p.title, g.section, g.text
		 FROM paragraphs_fts
		 JOIN paragraphs g ON g.rowid = paragraphs_fts.rowid
		 LEFT JOIN papers p ON g.paper_id = p.id
		 WHERE paragraphs_fts MATCH ?
		 ORDER BY paragraphs_fts.rank
		 LIMIT ?`, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			r     SearchResult
			title sql.NullString
		)
		if err := rows.Scan(&r.PaperID, &title, &r.Section, &r.Text); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if title.Valid {
			r.Title = title.String
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Get loads one archived paper back from its stored release JSON.
func (s *Store) Get(ctx context.Context, paperID string) (*types.Paper, types.SourceKind, error) {
	var release string
	err := s.db.QueryRowContext(ctx,
		`SELECT release FROM papers WHERE id = ?`, paperID,
	).Scan(&release)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", fmt.Errorf("paper %s not found", paperID)
		}
		return nil, "", fmt.Errorf("looking up paper: %w", err)
	}
	return types.LoadPaper([]byte(release))
}

// PaperSummary is one row of the archive listing.
type PaperSummary struct {
	ID         string
	Source     string
	Title      string
	Year       string
	Paragraphs int
	CiteSpans  int
	RefSpans   int
	EqSpans    int
}

// List returns archived papers ordered by identifier.
func (s *Store) List(ctx context.Context, maxResults int) ([]PaperSummary, error) {
	if maxResults <= 0 {
		maxResults = s.maxResults
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, title, year, paragraphs, cite_spans, ref_spans, eq_spans
		 FROM papers ORDER BY id LIMIT ?`, maxResults)
	if err != nil {
		return nil, fmt.Errorf("listing archive: %w", err)
	}
	defer rows.Close()

	var out []PaperSummary
	for rows.Next() {
		var p PaperSummary
		if err := rows.Scan(&p.ID, &p.Source, &p.Title, &p.Year,
			&p.Paragraphs, &p.CiteSpans, &p.RefSpans, &p.EqSpans); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
