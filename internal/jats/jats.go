// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jats converts JATS XML articles (the PubMed Central flavor)
// into normalized papers. JATS documents carry their own reference
// identifiers, so conversion renumbers bibliography, figure, and table
// keys into canonical form and relinks every span through the old-to-new
// mapping.
package jats

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"

	"github.com/meshintel/paperjson/internal/spans"
	"github.com/meshintel/paperjson/internal/xmlutil"
	"github.com/meshintel/paperjson/pkg/types"
)

type converter struct {
	diags    spans.Diagnostics
	oldToNew map[string]string

	cites     *spans.TokenGenerator
	refTokens *spans.TokenGenerator
	inlines   *spans.TokenGenerator
}

// Convert parses a JATS XML article and produces the normalized paper.
// Diagnostics report degraded elements without invalidating the result.
func Convert(jatsXML []byte, paperID string) (*types.Paper, spans.Diagnostics, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(jatsXML); err != nil {
		return nil, nil, fmt.Errorf("parsing JATS XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, nil, fmt.Errorf("JATS XML has no root element")
	}

	c := &converter{oldToNew: map[string]string{}}

	tables := extractTables(root)
	figures := extractFigures(root)
	detachSupplementary(root)
	refs := renumberRefs(tables, figures, c.oldToNew)

	front := xmlutil.FindFirst(root, "front")
	metadata := c.parseMetadata(front)
	abstract := c.parseAbstract(front)
	if front != nil {
		xmlutil.Detach(front)
	}

	back := xmlutil.FindFirst(root, "back")
	bibs := c.parseBibliography(back)
	backMatter := c.parseAcknowledgements(back)
	if back != nil {
		xmlutil.Detach(back)
	}

	var body []types.Paragraph
	if bodyEl := xmlutil.FindFirst(root, "body"); bodyEl != nil {
		body = c.parseBody(bodyEl)
	}

	c.relinkSpans(abstract)
	c.relinkSpans(body)

	return &types.Paper{
		PaperID:    paperID,
		Metadata:   metadata,
		Abstract:   abstract,
		BodyText:   body,
		BackMatter: backMatter,
		BibEntries: bibs,
		RefEntries: refs,
	}, c.diags, nil
}

// ConvertFile converts one JATS file; the paper id is the file name up to
// the first dot, which for PMC articles is the PMC identifier.
func ConvertFile(path string) (*types.Paper, spans.Diagnostics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	base := filepath.Base(path)
	paperID := base
	if i := strings.Index(base, "."); i >= 0 {
		paperID = base[:i]
	}
	return Convert(data, paperID)
}

// parseBody walks the top-level sections, skipping supplementary-material
// sections. Bodies without section markup degrade to a flat paragraph
// walk.
func (c *converter) parseBody(body *etree.Element) []types.Paragraph {
	secs := childSections(body)
	if len(secs) == 0 {
		if article := xmlutil.FindFirst(body, "article"); article != nil {
			secs = childSections(article)
		}
	}
	if len(secs) == 0 {
		var out []types.Paragraph
		for _, p := range xmlutil.FindAll(body, "p") {
			if para, ok := c.processParagraph(p, nil); ok {
				out = append(out, para)
			}
		}
		return out
	}

	var out []types.Paragraph
	for _, sec := range secs {
		if sec.SelectAttrValue("sec-type", "") == "supplementary-material" {
			continue
		}
		out = append(out, c.parseSections(sec, nil)...)
	}
	return out
}
