// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tei converts GROBID TEI XML documents into normalized papers.
package tei

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

// Convert parses a TEI XML document and produces the normalized paper.
// Diagnostics report elements that degraded to plain text; they do not
// invalidate the result.
func Convert(teiXML []byte, paperID, pdfHash string) (*types.Paper, spans.Diagnostics, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(teiXML); err != nil {
		return nil, nil, fmt.Errorf("parsing TEI XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, nil, fmt.Errorf("TEI XML has no root element")
	}

	var diags spans.Diagnostics

	metadata := parseMetadata(xmlutil.FindFirst(root, "fileDesc"))
	bibs := parseBibliography(root)
	refs := extractFiguresAndTables(root, &diags)

	ctx := &docContext{
		bibs:    bibs,
		refs:    refs,
		bracket: detectBracketStyle(root),
	}

	substituteNotes(root)

	abstract := extractAbstract(ctx, root, &diags)
	body := extractBody(ctx, root, &diags)
	back := extractBackMatter(ctx, root, &diags)

	return &types.Paper{
		PaperID:    paperID,
		PDFHash:    pdfHash,
		Metadata:   metadata,
		Abstract:   abstract,
		BodyText:   body,
		BackMatter: back,
		BibEntries: bibs,
		RefEntries: refs,
	}, diags, nil
}

// ConvertFile converts one TEI file; the paper id is the file name up to
// the first dot, matching the name given to intermediate TEI files.
func ConvertFile(path, pdfHash string) (*types.Paper, spans.Diagnostics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	base := filepath.Base(path)
	paperID := base
	if i := strings.Index(base, "."); i >= 0 {
		paperID = base[:i]
	}
	return Convert(data, paperID, pdfHash)
}

// extractFiguresAndTables collects figure and table captions into the ref
// registry and detaches the figure elements from the tree.
func extractFiguresAndTables(root *etree.Element, diags *spans.Diagnostics) map[string]types.RefEntry {
	refs := map[string]types.RefEntry{}
	for _, fig := range xmlutil.FindAll(root, "figure") {
		rawID := xmlutil.Attr(fig, "xml:id")
		if rawID != "" {
			id, err := spans.NormalizeTEI(rawID)
			if err != nil {
				diags.Add("figure "+rawID, err)
			} else if fig.SelectAttrValue("type", "") == "table" {
				entry := types.RefEntry{Type: types.RefTable, Text: figureCaption(fig, true)}
				if table := xmlutil.FindFirst(fig, "table"); table != nil {
					entry.Content = tableToHTML(table)
				}
				refs[id.String()] = entry
			} else {
				refs[id.String()] = types.RefEntry{Type: types.RefFigure, Text: figureCaption(fig, false)}
			}
		}
		xmlutil.Detach(fig)
	}
	return refs
}

// figureCaption prefers the figDesc text; tables fall back to the head.
func figureCaption(fig *etree.Element, headFallback bool) string {
	if desc := xmlutil.FindFirst(fig, "figDesc"); desc != nil {
		return strings.TrimSpace(xmlutil.Text(desc))
	}
	if headFallback {
		if head := xmlutil.FindFirst(fig, "head"); head != nil {
			return strings.TrimSpace(xmlutil.Text(head))
		}
	}
	return ""
}

// tableToHTML serializes a TEI table as an HTML table string: row becomes
// tr, cell becomes td, and the cols attribute becomes colspan. Non-row
// children are dropped.
func tableToHTML(table *etree.Element) string {
	copied := table.Copy()
	for _, child := range copied.ChildElements() {
		if child.Tag != "row" {
			copied.RemoveChild(child)
		}
	}
	renameTableTags(copied)
	doc := etree.NewDocument()
	doc.SetRoot(copied)
	out, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func renameTableTags(el *etree.Element) {
	switch el.Tag {
	case "row":
		el.Tag = "tr"
	case "cell":
		el.Tag = "td"
	}
	for i, attr := range el.Attr {
		if attr.Key == "cols" {
			el.Attr[i].Key = "colspan"
		}
	}
	for _, child := range el.ChildElements() {
		renameTableTags(child)
	}
}

// detectBracketStyle samples citation surface forms from headless body divs
// to classify the document's citation style.
func detectBracketStyle(root *etree.Element) bool {
	body := xmlutil.FindFirst(root, "body")
	if body == nil {
		return false
	}
	var surfaces []string
	for _, div := range xmlutil.FindAll(body, "div") {
		if xmlutil.FindFirst(div, "head") != nil {
			continue
		}
		for _, ref := range xmlutil.FindAll(div, "ref") {
			if ref.SelectAttrValue("type", "") == "bibr" {
				surfaces = append(surfaces, strings.TrimSpace(xmlutil.Text(ref)))
			}
		}
	}
	return spans.IsBracketStyle(surfaces)
}

// substituteNotes flattens every note element into a paragraph holding its
// text, so footnote content survives as body text.
func substituteNotes(root *etree.Element) {
	for _, note := range xmlutil.FindAll(root, "note") {
		parent := note.Parent()
		if parent == nil {
			continue
		}
		text := strings.TrimSpace(xmlutil.Text(note))
		p := etree.NewElement("p")
		p.SetText(text)
		idx := note.Index()
		parent.RemoveChildAt(idx)
		parent.InsertChildAt(idx, p)
	}
}

var abstractSection = types.SectionPath{{Title: "Abstract"}}

// extractAbstract processes the abstract's paragraphs, working with
// whatever structure the upstream tool produced: divs with paragraphs,
// bare paragraphs, or loose text.
func extractAbstract(ctx *docContext, root *etree.Element, diags *spans.Diagnostics) []types.Paragraph {
	abstract := xmlutil.FindFirst(root, "abstract")
	if abstract == nil {
		return nil
	}
	defer xmlutil.Detach(abstract)

	var out []types.Paragraph
	appendPara := func(el *etree.Element) {
		if xmlutil.Text(el) == "" {
			return
		}
		para, paraDiags := processParagraph(ctx, el, abstractSection)
		*diags = append(*diags, paraDiags...)
		out = append(out, para)
	}

	if divs := xmlutil.FindAll(abstract, "div"); len(divs) > 0 {
		for _, div := range divs {
			if xmlutil.Text(div) == "" {
				continue
			}
			if paras := xmlutil.FindAll(div, "p"); len(paras) > 0 {
				for _, p := range paras {
					appendPara(p)
				}
			} else {
				appendPara(div)
			}
		}
	} else if paras := xmlutil.FindAll(abstract, "p"); len(paras) > 0 {
		for _, p := range paras {
			appendPara(p)
		}
	} else {
		appendPara(abstract)
	}
	return out
}

// extractBody walks the body's section tree in document order, building the
// accumulated section path as nested divs introduce heads.
func extractBody(ctx *docContext, root *etree.Element, diags *spans.Diagnostics) []types.Paragraph {
	body := xmlutil.FindFirst(root, "body")
	if body == nil {
		return nil
	}
	defer xmlutil.Detach(body)
	return extractBodyDiv(ctx, body, nil, diags)
}

func extractBodyDiv(ctx *docContext, div *etree.Element, sections types.SectionPath, diags *spans.Diagnostics) []types.Paragraph {
	var out []types.Paragraph
	for _, child := range div.ChildElements() {
		switch child.Tag {
		case "div":
			subSections := sections
			if head := xmlutil.Child(child, "head"); head != nil {
				part := types.SectionPart{
					Num:   head.SelectAttrValue("n", ""),
					Title: strings.TrimSpace(xmlutil.Text(head)),
				}
				subSections = append(append(types.SectionPath{}, sections...), part)
				xmlutil.Detach(head)
			}
			out = append(out, extractBodyDiv(ctx, child, subSections, diags)...)
		case "p":
			if xmlutil.Text(child) == "" {
				continue
			}
			para, paraDiags := processParagraph(ctx, child, sections)
			*diags = append(*diags, paraDiags...)
			out = append(out, para)
		case "formula":
			out = append(out, displayEquation(ctx, child, sections, diags))
		}
	}
	return out
}

// displayEquation turns a labeled display formula into an EQUATION
// paragraph carrying the raw formula text and equation number. An
// unlabeled formula is processed as a plain paragraph.
func displayEquation(ctx *docContext, formula *etree.Element, sections types.SectionPath, diags *spans.Diagnostics) types.Paragraph {
	label := xmlutil.Child(formula, "label")
	if label == nil {
		para, paraDiags := processParagraph(ctx, formula, sections)
		*diags = append(*diags, paraDiags...)
		return para
	}
	eqNum := xmlutil.Text(label)
	raw := xmlutil.TextExcept(formula, label)
	return types.Paragraph{
		Text: "EQUATION",
		EqSpans: []types.EqSpan{{
			Start:  0,
			End:    8,
			Text:   "EQUATION",
			RawStr: raw,
			EqNum:  eqNum,
			RefID:  "EQREF",
		}},
		Section: sections,
	}
}

// extractBackMatter processes acknowledgements, annexes, and other back
// divs. Inner divs without a head inherit the outer div's type attribute as
// their section title.
func extractBackMatter(ctx *docContext, root *etree.Element, diags *spans.Diagnostics) []types.Paragraph {
	back := xmlutil.FindFirst(root, "back")
	if back == nil {
		return nil
	}
	defer xmlutil.Detach(back)

	var out []types.Paragraph
	for _, div := range back.ChildElements() {
		if div.Tag != "div" {
			continue
		}
		sectionType := div.SelectAttrValue("type", "")
		for _, childDiv := range xmlutil.FindAll(div, "div") {
			part := types.SectionPart{Title: sectionType}
			if head := xmlutil.Child(childDiv, "head"); head != nil {
				part = types.SectionPart{
					Num:   head.SelectAttrValue("n", ""),
					Title: strings.TrimSpace(xmlutil.Text(head)),
				}
				xmlutil.Detach(head)
			}
			if xmlutil.Text(childDiv) == "" {
				continue
			}
			para, paraDiags := processParagraph(ctx, childDiv, types.SectionPath{part})
			*diags = append(*diags, paraDiags...)
			out = append(out, para)
		}
	}
	return out
}
