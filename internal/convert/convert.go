// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert implements batch conversion of source documents into
// release JSON, with one converter per source format.
package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/meshintel/paperjson/internal/spans"
	"github.com/meshintel/paperjson/pkg/types"
)

// PaperConverter turns one source file into a normalized paper. Each
// source format (GROBID PDF, LaTeX XML, JATS XML) implements this
// interface.
type PaperConverter interface {
	// Convert reads the source file and returns the paper plus any
	// element-level diagnostics.
	Convert(ctx context.Context, path string) (*types.Paper, spans.Diagnostics, error)
	// Kind names the source format, which selects the release parse block.
	Kind() types.SourceKind
}

// Status is the outcome of converting one file.
type Status int

const (
	StatusConverted Status = iota
	StatusSkipped
	StatusFailed
)

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any files failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ConvertPaper converts a single source file, writing the release JSON to
// the output directory. Files whose output is already up to date are
// skipped. Failures and diagnostics are appended to the failure log.
func ConvertPaper(ctx context.Context, c PaperConverter, path string, cfg types.ConvertConfig, w io.Writer) Status {
	id := PaperID(path)
	outPath := filepath.Join(cfg.OutputDir, id+".json")

	changed, err := hasChanged(path, outPath)
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", id, err)
		logFailure(cfg.LogDir, id, err.Error())
		return StatusFailed
	}
	if !changed {
		fmt.Fprintf(w, "skipped %s\n", id)
		return StatusSkipped
	}

	paper, diags, err := c.Convert(ctx, path)
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", id, err)
		logFailure(cfg.LogDir, id, err.Error())
		return StatusFailed
	}
	for _, d := range diags {
		logFailure(cfg.LogDir, id, d.Error())
	}

	data, err := json.MarshalIndent(paper.Release(c.Kind()), "", "  ")
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", id, err)
		logFailure(cfg.LogDir, id, err.Error())
		return StatusFailed
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", id, err)
		return StatusFailed
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", id, err)
		return StatusFailed
	}

	fmt.Fprintf(w, "converted %s\n", id)
	return StatusConverted
}

// ConvertBatch processes the source files through the converter, printing
// per-file status to w and returning a summary.
func ConvertBatch(ctx context.Context, c PaperConverter, paths []string, cfg types.ConvertConfig, w io.Writer) BatchResult {
	var result BatchResult
	for _, path := range paths {
		switch ConvertPaper(ctx, c, path, cfg, w) {
		case StatusConverted:
			result.Converted++
		case StatusSkipped:
			result.Skipped++
		case StatusFailed:
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

// PaperID derives the paper identifier from a source file name by
// stripping the format extensions, so "PMC12345.nxml.gz" and
// "2301.07041.pdf" both keep their conventional identifiers.
func PaperID(path string) string {
	base := filepath.Base(path)
	for {
		switch ext := filepath.Ext(base); ext {
		case ".pdf", ".xml", ".nxml", ".tei", ".gz":
			base = strings.TrimSuffix(base, ext)
		default:
			return base
		}
	}
}

// hasChanged reports whether the source file is newer than the output.
// A missing output means changed.
func hasChanged(srcPath, outPath string) (bool, error) {
	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return false, fmt.Errorf("stat source %s: %w", srcPath, err)
	}
	outInfo, err := os.Stat(outPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("stat output %s: %w", outPath, err)
	}
	return srcInfo.ModTime().After(outInfo.ModTime()), nil
}

// logFailure appends one "id,reason" line to the failure log. Logging is
// best effort; an unwritable log never fails a conversion.
func logFailure(logDir, id, reason string) {
	if logDir == "" {
		return
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(logDir, "failed.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	reason = strings.ReplaceAll(reason, "\n", " ")
	fmt.Fprintf(f, "%s,%s\n", id, reason)
}
