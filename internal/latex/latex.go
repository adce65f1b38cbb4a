// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package latex converts LaTeX-derived XML documents into normalized
// papers. The markup is the tralics/latexml flavor produced from arXiv
// sources: div0/div1 sections, cit and ref cross-references, formula
// elements with parallel math and texmath renderings.
package latex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/meshintel/paperjson/internal/spans"
	"github.com/meshintel/paperjson/internal/xmlutil"
	"github.com/meshintel/paperjson/pkg/types"
)

type converter struct {
	parser CitationParser
	reg    *registries
	diags  spans.Diagnostics

	cites     *spans.TokenGenerator
	refTokens *spans.TokenGenerator
	inlines   *spans.TokenGenerator
	displays  *spans.TokenGenerator
}

// Convert parses a LaTeX XML document and produces the normalized paper.
// The citation parser structures raw bibliography strings and author
// names. Diagnostics report degraded elements without invalidating the
// result.
func Convert(ctx context.Context, latexXML []byte, paperID string, parser CitationParser) (*types.Paper, spans.Diagnostics, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(latexXML); err != nil {
		return nil, nil, fmt.Errorf("parsing LaTeX XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, nil, fmt.Errorf("LaTeX XML has no root element")
	}

	c := &converter{
		parser: parser,
		reg: &registries{
			refs:       map[string]types.RefEntry{},
			sectionEls: map[*etree.Element]string{},
		},
	}

	dropPreamble(root)
	metadata := c.processMaketitle(ctx, root)
	metadata.Year = yearFromID(paperID)
	bibs := c.processBibliography(ctx, root)

	collectSections(root, c.reg)
	collectEquations(root, c.reg, &c.diags)
	collectFootnotes(root, c.reg)
	collectFigures(root, c.reg)
	collectTables(root, c.reg)

	abstract := c.extractAbstract(root)
	body := c.extractBody(root)

	return &types.Paper{
		PaperID:    paperID,
		Metadata:   metadata,
		Abstract:   abstract,
		BodyText:   body,
		BibEntries: bibs,
		RefEntries: c.reg.refs,
	}, c.diags, nil
}

// ConvertFile converts one LaTeX XML file; the paper id is the file name
// up to the extension.
func ConvertFile(ctx context.Context, path string, parser CitationParser) (*types.Paper, spans.Diagnostics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	base := filepath.Base(path)
	paperID := strings.TrimSuffix(base, filepath.Ext(base))
	return Convert(ctx, data, paperID, parser)
}

// dropPreamble removes document-level children preceding the maketitle
// block: package noise and preamble definitions carried into the XML.
func dropPreamble(root *etree.Element) {
	std := root
	if std.Tag != "std" {
		if found := xmlutil.FindFirst(root, "std"); found != nil {
			std = found
		}
	}
	for {
		var first *etree.Element
		for _, child := range std.Child {
			if el, ok := child.(*etree.Element); ok {
				first = el
				break
			}
		}
		if first == nil || first.Tag == "maketitle" || first.Tag == "title" {
			return
		}
		if first.Tag == "abstract" || first.Tag == "div0" || first.Tag == "p" {
			return
		}
		xmlutil.Detach(first)
	}
}

// yearFromID recovers the publication year from an arXiv-style identifier
// whose first two digits encode it. The empty string means the identifier
// carries no year.
func yearFromID(paperID string) string {
	stem := paperID
	if i := strings.Index(stem, "."); i >= 0 {
		stem = stem[:i]
	}
	if len(stem) < 2 {
		return ""
	}
	two, err := strconv.Atoi(stem[:2])
	if err != nil {
		return ""
	}
	if two < 20 {
		return strconv.Itoa(2000 + two)
	}
	return strconv.Itoa(1900 + two)
}

var abstractSection = types.SectionPath{{Title: "Abstract"}}

// extractAbstract prefers a marked abstract element; documents without
// one open with bare paragraphs before the first section.
func (c *converter) extractAbstract(root *etree.Element) []types.Paragraph {
	if abs := xmlutil.FindFirst(root, "abstract"); abs != nil {
		defer xmlutil.Detach(abs)
		var out []types.Paragraph
		for _, p := range xmlutil.FindAll(abs, "p") {
			if para, ok := c.processParagraph(p, abstractSection); ok {
				out = append(out, para)
			}
		}
		return out
	}

	std := root
	if std.Tag != "std" {
		if found := xmlutil.FindFirst(root, "std"); found != nil {
			std = found
		}
	}
	var leading []*etree.Element
	for _, child := range std.Child {
		el, ok := child.(*etree.Element)
		if !ok {
			continue
		}
		if el.Tag == "div0" {
			break
		}
		if el.Tag != "p" {
			continue
		}
		if _, registered := c.reg.sectionEls[el]; registered {
			continue
		}
		leading = append(leading, el)
	}
	var out []types.Paragraph
	for _, el := range leading {
		if para, ok := c.processParagraph(el, abstractSection); ok {
			out = append(out, para)
		}
		xmlutil.Detach(el)
	}
	return out
}

// extractBody walks the section tree in document order. Documents with no
// div0 sections degrade to a flat paragraph list.
func (c *converter) extractBody(root *etree.Element) []types.Paragraph {
	div0s := xmlutil.FindAll(root, "div0")
	if len(div0s) == 0 {
		var out []types.Paragraph
		for _, p := range xmlutil.FindAll(root, "p") {
			if para, ok := c.processParagraph(p, nil); ok {
				out = append(out, para)
			}
		}
		return out
	}

	var out []types.Paragraph
	for _, div0 := range div0s {
		base := types.SectionPath{c.sectionPart(div0)}
		for _, child := range div0.Child {
			el, ok := child.(*etree.Element)
			if !ok {
				continue
			}
			switch el.Tag {
			case "head":
			case "p", "proof":
				if para, ok := c.processParagraph(el, base); ok {
					out = append(out, para)
				}
			case "div1":
				sub := append(base[:1:1], c.sectionPart(el))
				for _, unit := range xmlutil.FindAll(el, "p") {
					if para, ok := c.processParagraph(unit, sub); ok {
						out = append(out, para)
					}
				}
			}
		}
	}
	return out
}

// sectionPart builds the path component for a registered section element;
// unregistered sections still contribute their heading.
func (c *converter) sectionPart(div *etree.Element) types.SectionPart {
	if id, ok := c.reg.sectionEls[div]; ok {
		entry := c.reg.refs[id]
		return types.SectionPart{Num: entry.Num, Title: entry.Text}
	}
	return types.SectionPart{
		Num:   div.SelectAttrValue("id-text", ""),
		Title: sectionName(div),
	}
}
