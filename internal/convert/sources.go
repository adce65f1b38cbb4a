// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/meshintel/paperjson/internal/grobid"
	"github.com/meshintel/paperjson/internal/jats"
	"github.com/meshintel/paperjson/internal/latex"
	"github.com/meshintel/paperjson/internal/spans"
	"github.com/meshintel/paperjson/internal/tei"
	"github.com/meshintel/paperjson/pkg/types"
)

// PDFConverter converts PDFs by running them through a GROBID service and
// parsing the TEI result.
type PDFConverter struct {
	Client *grobid.Client
	Cfg    types.ConvertConfig
}

func (c *PDFConverter) Kind() types.SourceKind { return types.SourcePDF }

func (c *PDFConverter) Convert(ctx context.Context, path string) (*types.Paper, spans.Diagnostics, error) {
	pdf, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading PDF: %w", err)
	}
	sum := sha1.Sum(pdf)
	hash := hex.EncodeToString(sum[:])

	teiXML, err := c.Client.ProcessFulltext(ctx, filepath.Base(path), pdf)
	if err != nil {
		return nil, nil, fmt.Errorf("grobid fulltext: %w", err)
	}

	if c.Cfg.KeepTemp && c.Cfg.TempDir != "" {
		if err := os.MkdirAll(c.Cfg.TempDir, 0o755); err == nil {
			teiPath := filepath.Join(c.Cfg.TempDir, PaperID(path)+".tei.xml")
			_ = os.WriteFile(teiPath, []byte(teiXML), 0o644)
		}
	}

	return tei.Convert([]byte(teiXML), PaperID(path), hash)
}

// TEIConverter converts already-produced TEI XML files, the intermediate
// format a prior PDF run may have left in the temp directory.
type TEIConverter struct{}

func (TEIConverter) Kind() types.SourceKind { return types.SourcePDF }

func (TEIConverter) Convert(_ context.Context, path string) (*types.Paper, spans.Diagnostics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading TEI: %w", err)
	}
	return tei.Convert(data, PaperID(path), "")
}

// LatexConverter converts LaTeX XML files, using a citation parser to
// structure bibliography strings and author names.
type LatexConverter struct {
	Parser latex.CitationParser
}

func (c *LatexConverter) Kind() types.SourceKind { return types.SourceLatex }

func (c *LatexConverter) Convert(ctx context.Context, path string) (*types.Paper, spans.Diagnostics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading LaTeX XML: %w", err)
	}
	return latex.Convert(ctx, data, PaperID(path), c.Parser)
}

// JATSConverter converts JATS XML articles.
type JATSConverter struct{}

func (JATSConverter) Kind() types.SourceKind { return types.SourceJATS }

func (JATSConverter) Convert(_ context.Context, path string) (*types.Paper, spans.Diagnostics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading JATS XML: %w", err)
	}
	return jats.Convert(data, PaperID(path))
}
