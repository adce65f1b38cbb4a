// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package latex

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/meshintel/paperjson/internal/mathml"
	"github.com/meshintel/paperjson/internal/spans"
	"github.com/meshintel/paperjson/internal/xmlutil"
	"github.com/meshintel/paperjson/pkg/types"
)

// citTarget returns the canonical bibliography identifier a cit element
// points at, or the empty string when the citation is malformed.
func citTarget(cit *etree.Element) string {
	ref := xmlutil.FindFirst(cit, "ref")
	if ref == nil {
		return ""
	}
	return latexID(ref.SelectAttrValue("target", ""), spans.FamilyBib)
}

// refTarget resolves a ref element's target to a canonical identifier.
// cid targets are sections; uid targets are probed against the registry
// in family order. Unresolvable targets return the empty string.
func refTarget(ref *etree.Element, reg *registries) string {
	target := strings.ToLower(ref.SelectAttrValue("target", ""))
	switch {
	case strings.HasPrefix(target, "cid"):
		return latexID(target, spans.FamilySection)
	case strings.HasPrefix(target, "uid"):
		for _, cand := range spans.UIDCandidates(target) {
			if _, ok := reg.refs[cand.String()]; ok {
				return cand.String()
			}
		}
	}
	return ""
}

// linearize converts a paragraph element into segments. Citations and
// cross-references surface as their canonical identifiers, formulas as
// their rendered math text, and footnotes as footnote identifiers.
func (c *converter) linearize(el *etree.Element, segs []spans.Segment) []spans.Segment {
	for _, child := range el.Child {
		switch node := child.(type) {
		case *etree.CharData:
			segs = append(segs, spans.TextSegment(node.Data))
		case *etree.Element:
			segs = c.linearizeElement(node, segs)
		}
	}
	return segs
}

func (c *converter) linearizeElement(el *etree.Element, segs []spans.Segment) []spans.Segment {
	switch el.Tag {
	case "cit":
		id := citTarget(el)
		if id == "" {
			return c.linearize(el, segs)
		}
		return append(segs, spans.TokenSegment(&spans.Pending{
			Token:   c.cites.Next(),
			Kind:    spans.KindCitation,
			Surface: id,
			RefID:   id,
		}))
	case "ref":
		target := el.SelectAttrValue("target", "")
		if strings.HasPrefix(strings.ToLower(target), "bid") {
			return c.linearize(el, segs)
		}
		id := refTarget(el, c.reg)
		if id == "" {
			if target != "" {
				return append(segs, spans.TextSegment(" "+strings.ToUpper(target)+" "))
			}
			return c.linearize(el, segs)
		}
		return append(segs, spans.TokenSegment(&spans.Pending{
			Token:   c.refTokens.Next(),
			Kind:    spans.KindRef,
			Surface: id,
			RefID:   id,
		}))
	case "formula":
		return c.linearizeFormula(el, segs)
	case "note":
		id := latexID(el.SelectAttrValue("id", ""), spans.FamilyFootnote)
		if id == "" {
			return segs
		}
		return append(segs, spans.TokenSegment(&spans.Pending{
			Token:   c.refTokens.Next(),
			Kind:    spans.KindRef,
			Surface: id,
			RefID:   id,
		}))
	case "texmath", "float", "figure", "table":
		return segs
	default:
		return c.linearize(el, segs)
	}
}

// linearizeFormula emits an equation placeholder carrying the math text,
// the TeX source, and a MathML rendering. Formulas with identifiers are
// display equations linked to the equation registry.
func (c *converter) linearizeFormula(formula *etree.Element, segs []spans.Segment) []spans.Segment {
	math := xmlutil.FindFirst(formula, "math")
	texmath := xmlutil.FindFirst(formula, "texmath")
	if math == nil || texmath == nil {
		return c.linearize(formula, segs)
	}
	latex := strings.TrimSpace(xmlutil.Text(texmath))
	rendered, err := mathml.FromLatex(latex)
	if err != nil {
		c.diags.Add("formula", err)
	}
	pending := &spans.Pending{
		Kind:    spans.KindInlineFormula,
		Surface: strings.Join(strings.Fields(xmlutil.Text(math)), " "),
		Latex:   latex,
		MathML:  rendered,
	}
	if id := latexID(formula.SelectAttrValue("id", ""), spans.FamilyEquation); id != "" {
		pending.Kind = spans.KindDisplayFormula
		pending.RefID = id
		pending.Token = c.displays.Next()
	} else {
		pending.Token = c.inlines.Next()
	}
	return append(segs, spans.TokenSegment(pending))
}

// processParagraph resolves one paragraph element into its final text and
// span lists. Paragraphs that resolve to empty text return ok=false.
func (c *converter) processParagraph(p *etree.Element, section types.SectionPath) (types.Paragraph, bool) {
	c.cites = spans.NewTokenGenerator(spans.TokenCite)
	c.refTokens = spans.NewTokenGenerator(spans.TokenRef)
	c.inlines = spans.NewTokenGenerator(spans.TokenInlineForm)
	c.displays = spans.NewTokenGenerator(spans.TokenDisplayForm)

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
