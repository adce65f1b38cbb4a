// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package jats

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/meshintel/paperjson/internal/mathml"
	"github.com/meshintel/paperjson/internal/spans"
	"github.com/meshintel/paperjson/internal/xmlutil"
	"github.com/meshintel/paperjson/pkg/types"
)

// texBodyRegex pulls the formula body out of a standalone TeX document
// wrapper, the form tex-math content usually takes.
var texBodyRegex = regexp.MustCompile(`\\begin\{document\}((?s).+)\\end\{document\}`)

// formulaSurface is the display text of an inline formula: the MathML
// text when present, the element text otherwise, or a fixed marker when
// the element holds only an embedded TeX document.
func formulaSurface(formula *etree.Element) string {
	if math := xmlutil.FindFirst(formula, "math"); math != nil {
		return strings.Join(strings.Fields(xmlutil.Text(math)), " ")
	}
	text := xmlutil.Text(formula)
	if !strings.Contains(text, `begin{document}`) {
		return strings.Join(strings.Fields(text), " ")
	}
	return "FORMULA"
}

// formulaLatex extracts the TeX source of an inline formula.
func formulaLatex(formula *etree.Element) string {
	tex := xmlutil.FindFirst(formula, "tex-math")
	if tex == nil {
		return ""
	}
	m := texBodyRegex.FindStringSubmatch(xmlutil.Text(tex))
	if m == nil {
		return ""
	}
	return strings.Trim(strings.TrimSpace(m[1]), "$")
}

// formulaMathML prefers embedded MathML markup and falls back to
// rendering the TeX source.
func (c *converter) formulaMathML(formula *etree.Element, latex string) string {
	if math := xmlutil.FindFirst(formula, "math"); math != nil {
		return serialize(math)
	}
	if latex == "" {
		return ""
	}
	rendered, err := mathml.FromLatex(latex)
	if err != nil {
		c.diags.Add("inline formula", err)
		return ""
	}
	return rendered
}

// linearize converts a paragraph element into segments. Cross-references
// keep their surface text and carry the document's own identifier, which
// span relinking later maps to canonical keys. Superscripts and
// subscripts flatten into plain text.
func (c *converter) linearize(el *etree.Element, segs []spans.Segment) []spans.Segment {
	for _, child := range el.Child {
		switch node := child.(type) {
		case *etree.CharData:
			segs = append(segs, spans.TextSegment(node.Data))
		case *etree.Element:
			switch node.Tag {
			case "graphic", "fig", "table-wrap", "supplementary-material":
			case "xref":
				segs = c.linearizeXref(node, segs)
			case "inline-formula":
				latex := formulaLatex(node)
				segs = append(segs, spans.TokenSegment(&spans.Pending{
					Token:   c.inlines.Next(),
					Kind:    spans.KindInlineFormula,
					Surface: formulaSurface(node),
					Latex:   latex,
					MathML:  c.formulaMathML(node, latex),
				}))
			default:
				segs = c.linearize(node, segs)
			}
		}
	}
	return segs
}

func (c *converter) linearizeXref(xref *etree.Element, segs []spans.Segment) []spans.Segment {
	surface := strings.TrimSpace(xmlutil.Text(xref))
	rid := xref.SelectAttrValue("rid", "")
	refType := xref.SelectAttrValue("ref-type", "")
	if rid == "" || surface == "" {
		return append(segs, spans.TextSegment(" "+surface+" "))
	}
	switch refType {
	case "bibr":
		return append(segs, spans.TokenSegment(&spans.Pending{
			Token:   c.cites.Next(),
			Kind:    spans.KindCitation,
			Surface: surface,
			RefID:   rid,
		}))
	case "fig", "table":
		return append(segs, spans.TokenSegment(&spans.Pending{
			Token:   c.refTokens.Next(),
			Kind:    spans.KindRef,
			Surface: surface,
			RefID:   rid,
		}))
	default:
		return append(segs, spans.TextSegment(" "+surface+" "))
	}
}

// processParagraph resolves one paragraph; span identifiers are still the
// document's own at this point. Empty paragraphs return ok=false.
func (c *converter) processParagraph(p *etree.Element, section types.SectionPath) (types.Paragraph, bool) {
	c.cites = spans.NewTokenGenerator(spans.TokenCite)
	c.refTokens = spans.NewTokenGenerator(spans.TokenRef)
	c.inlines = spans.NewTokenGenerator(spans.TokenInlineForm)

	segs := c.linearize(p, nil)
	text, resolved, err := spans.Resolve(segs)
	if err != nil {
		c.diags.Add("paragraph", err)
		return types.Paragraph{}, false
	}
	if strings.TrimSpace(text) == "" {
		return types.Paragraph{}, false
	}
	return types.Paragraph{
		Text:      text,
		CiteSpans: resolved.Cite,
		RefSpans:  resolved.Ref,
		EqSpans:   resolved.Eq,
		Section:   section,
	}, true
}

// parseSections walks a sec tree depth first. Leaf sections contribute
// their paragraphs under the accumulated outer-to-inner section path.
func (c *converter) parseSections(sec *etree.Element, path types.SectionPath) []types.Paragraph {
	title := ""
	if t := xmlutil.Child(sec, "title"); t != nil {
		title = strings.Join(strings.Fields(xmlutil.Text(t)), " ")
	}
	path = append(path[:len(path):len(path)], types.SectionPart{Title: title})

	subs := childSections(sec)
	if len(subs) == 0 {
		var out []types.Paragraph
		for _, p := range xmlutil.FindAll(sec, "p") {
			if para, ok := c.processParagraph(p, path); ok {
				out = append(out, para)
			}
		}
		return out
	}
	var out []types.Paragraph
	for _, sub := range subs {
		out = append(out, c.parseSections(sub, path)...)
	}
	return out
}

func childSections(el *etree.Element) []*etree.Element {
	var secs []*etree.Element
	for _, child := range el.Child {
		if sec, ok := child.(*etree.Element); ok && sec.Tag == "sec" {
			secs = append(secs, sec)
		}
	}
	return secs
}

// relinkSpans maps the documents' own reference identifiers to the
// renumbered canonical keys. Identifiers with no mapping become unlinked
// spans rather than dangling links.
func (c *converter) relinkSpans(paragraphs []types.Paragraph) {
	for i := range paragraphs {
		for j := range paragraphs[i].CiteSpans {
			paragraphs[i].CiteSpans[j].RefID = c.oldToNew[paragraphs[i].CiteSpans[j].RefID]
		}
		for j := range paragraphs[i].RefSpans {
			paragraphs[i].RefSpans[j].RefID = c.oldToNew[paragraphs[i].RefSpans[j].RefID]
		}
	}
}
