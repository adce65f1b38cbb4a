// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package latex

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/meshintel/paperjson/internal/mathml"
	"github.com/meshintel/paperjson/internal/spans"
	"github.com/meshintel/paperjson/internal/xmlutil"
	"github.com/meshintel/paperjson/pkg/types"
)

// registries is the combined cross-reference state for one document:
// sections, display equations, footnotes, figures, and tables keyed by
// canonical identifier, plus a reverse map from section elements to their
// identifiers for building section paths.
type registries struct {
	refs       map[string]types.RefEntry
	sectionEls map[*etree.Element]string
}

// latexID maps a raw LaTeX-XML identifier onto the given family using its
// numeric suffix: uid12 with the figure family becomes FIGREF12. The empty
// string means the identifier has no usable numeric suffix.
func latexID(raw string, family spans.Family) string {
	norm := strings.ToUpper(strings.ReplaceAll(raw, "_", ""))
	for _, prefix := range []string{"FORMULA", "UID", "CID", "BID"} {
		if strings.HasPrefix(norm, prefix) {
			norm = norm[len(prefix):]
			break
		}
	}
	num, err := strconv.Atoi(norm)
	if err != nil || num < 0 {
		return ""
	}
	return spans.Identifier{Family: family, Num: num}.String()
}

// collectSections registers div0 sections, div1 subsections, and numbered
// paragraph units, recording parent links so section paths can be rebuilt
// by walking to the root.
func collectSections(root *etree.Element, reg *registries) {
	for _, div0 := range xmlutil.FindAll(root, "div0") {
		parent := ""
		if id := latexID(div0.SelectAttrValue("id", ""), spans.FamilySection); id != "" {
			reg.refs[id] = types.RefEntry{
				Type: types.RefSection,
				Text: sectionName(div0),
				Num:  div0.SelectAttrValue("id-text", ""),
			}
			reg.sectionEls[div0] = id
			parent = id
		}
		if div1s := xmlutil.FindAll(div0, "div1"); len(div1s) > 0 {
			for _, div1 := range div1s {
				unitParent := parent
				if id := latexID(div1.SelectAttrValue("id", ""), spans.FamilySection); id != "" {
					reg.refs[id] = types.RefEntry{
						Type:   types.RefSection,
						Text:   sectionName(div1),
						Num:    div1.SelectAttrValue("id-text", ""),
						Parent: parent,
					}
					reg.sectionEls[div1] = id
					unitParent = id
				}
				collectParagraphUnits(div1, unitParent, reg)
			}
		} else {
			collectParagraphUnits(div0, parent, reg)
		}
	}
}

// collectParagraphUnits registers numbered paragraph and proof units
// (list items, theorem environments) that carry their own identifiers.
func collectParagraphUnits(div *etree.Element, parent string, reg *registries) {
	units := xmlutil.FindAll(div, "p")
	units = append(units, xmlutil.FindAll(div, "proof")...)
	for _, p := range units {
		id := latexID(p.SelectAttrValue("id", ""), spans.FamilySection)
		if id == "" {
			continue
		}
		num := p.SelectAttrValue("id-text", "")
		title := ""
		if head := xmlutil.FindFirst(p, "head"); head != nil {
			title = xmlutil.Text(head)
		} else if hi := xmlutil.FindFirst(p, "hi"); hi != nil {
			title = xmlutil.Text(hi)
			if num == "" {
				num = hi.SelectAttrValue("id-text", "")
			}
		}
		reg.refs[id] = types.RefEntry{
			Type:   types.RefSection,
			Text:   title,
			Num:    num,
			Parent: parent,
		}
		reg.sectionEls[p] = id
	}
}

// sectionName returns the div's head text, or the short leading text runs
// before its first paragraph when the markup has no head.
func sectionName(div *etree.Element) string {
	if head := xmlutil.Child(div, "head"); head != nil {
		return xmlutil.Text(head)
	}
	var parts []string
	for _, child := range div.Child {
		switch c := child.(type) {
		case *etree.CharData:
			text := strings.TrimSpace(c.Data)
			if len(text) >= 50 {
				return strings.TrimSpace(strings.Join(parts, " "))
			}
			if text != "" {
				parts = append(parts, text)
			}
		case *etree.Element:
			if c.Tag == "p" {
				return strings.TrimSpace(strings.Join(parts, " "))
			}
			text := strings.TrimSpace(xmlutil.Text(c))
			if len(text) >= 50 {
				return strings.TrimSpace(strings.Join(parts, " "))
			}
			parts = append(parts, text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// collectEquations registers display formulas and rewires each into a
// paragraph of its own holding the formula inline, so the body walk emits
// it as an equation paragraph.
func collectEquations(root *etree.Element, reg *registries, diags *spans.Diagnostics) {
	for _, formula := range xmlutil.FindAll(root, "formula") {
		if formula.SelectAttrValue("type", "") != "display" {
			continue
		}
		rawID := formula.SelectAttrValue("id", "")
		if id := latexID(rawID, spans.FamilyEquation); id != "" {
			texmath := xmlutil.FindFirst(formula, "texmath")
			math := xmlutil.FindFirst(formula, "math")
			if texmath == nil || math == nil {
				continue
			}
			latex := strings.TrimSpace(xmlutil.Text(texmath))
			rendered, err := mathml.FromLatex(latex)
			if err != nil {
				diags.Add("equation "+id, err)
			}
			reg.refs[id] = types.RefEntry{
				Type:   types.RefEquation,
				Text:   strings.TrimSpace(xmlutil.Text(math)),
				Latex:  latex,
				MathML: rendered,
				Num:    formula.SelectAttrValue("id-text", ""),
			}
		}
		wrapInParagraph(formula)
	}
}

// wrapInParagraph lifts the formula out of its position and reinserts it
// wrapped in a fresh p element.
func wrapInParagraph(formula *etree.Element) {
	parent := formula.Parent()
	if parent == nil || parent.Tag == "p" {
		return
	}
	idx := formula.Index()
	parent.RemoveChildAt(idx)
	p := etree.NewElement("p")
	p.AddChild(formula)
	parent.InsertChildAt(idx, p)
}

// collectFootnotes registers note elements that carry identifiers. The
// elements stay in place; the paragraph processor turns them into
// reference placeholders.
func collectFootnotes(root *etree.Element, reg *registries) {
	for _, note := range xmlutil.FindAll(root, "note") {
		id := latexID(note.SelectAttrValue("id", ""), spans.FamilyFootnote)
		if id == "" {
			continue
		}
		reg.refs[id] = types.RefEntry{
			Type: types.RefFootnote,
			Text: footnoteText(note),
			Num:  note.SelectAttrValue("id-text", ""),
		}
	}
}

// footnoteText collapses a note's text, dropping TeX markup and replacing
// links with their URLs.
func footnoteText(note *etree.Element) string {
	var b strings.Builder
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, child := range el.Child {
			switch c := child.(type) {
			case *etree.CharData:
				b.WriteString(c.Data)
			case *etree.Element:
				switch c.Tag {
				case "texmath":
				case "xref":
					b.WriteString(" " + c.SelectAttrValue("url", "") + " ")
				default:
					walk(c)
				}
			}
		}
	}
	walk(note)
	return strings.Join(strings.Fields(b.String()), " ")
}

// collectFigures registers figures and figure floats with their file URIs,
// resolves caption text, and detaches the elements.
func collectFigures(root *etree.Element, reg *registries) {
	for _, fig := range xmlutil.FindAll(root, "figure") {
		id := latexID(fig.SelectAttrValue("id", ""), spans.FamilyFigure)
		if id == "" {
			xmlutil.Detach(fig)
			continue
		}
		var uris []string
		ext := fig.SelectAttrValue("extension", "")
		if file := fig.SelectAttrValue("file", ""); file != "" {
			uris = append(uris, file+"."+ext)
		} else {
			for _, sub := range xmlutil.FindAll(fig, "subfigure") {
				if file := sub.SelectAttrValue("file", ""); file != "" {
					uris = append(uris, file+"."+ext)
				}
			}
		}
		reg.refs[id] = types.RefEntry{
			Type: types.RefFigure,
			Text: captionText(fig, reg),
			URIs: uris,
			Num:  fig.SelectAttrValue("id-text", ""),
		}
		xmlutil.Detach(fig)
	}

	for _, flt := range xmlutil.FindAll(root, "float") {
		if flt.SelectAttrValue("name", "") != "figure" {
			continue
		}
		id := latexID(flt.SelectAttrValue("id", ""), spans.FamilyFigure)
		if id != "" {
			reg.refs[id] = types.RefEntry{
				Type: types.RefFigure,
				Text: captionText(flt, reg),
				Num:  flt.SelectAttrValue("id-text", ""),
			}
		}
		xmlutil.Detach(flt)
	}
}

// collectTables registers non-inline tables and table floats, rendering
// cell contents back to a LaTeX-style row string, and detaches them.
func collectTables(root *etree.Element, reg *registries) {
	register := func(el *etree.Element, id string) {
		reg.refs[id] = types.RefEntry{
			Type:  types.RefTable,
			Latex: tableLatex(el),
			Num:   el.SelectAttrValue("id-text", ""),
		}
		for _, row := range xmlutil.FindAll(el, "row") {
			xmlutil.Detach(row)
		}
		entry := reg.refs[id]
		entry.Text = tableCaption(el, reg)
		reg.refs[id] = entry
	}

	for _, tab := range xmlutil.FindAll(root, "table") {
		if tab.SelectAttrValue("rend", "") == "inline" {
			continue
		}
		id := latexID(tab.SelectAttrValue("id", ""), spans.FamilyTable)
		if id == "" {
			xmlutil.Detach(tab)
			continue
		}
		register(tab, id)
		xmlutil.Detach(tab)
	}

	for _, flt := range xmlutil.FindAll(root, "float") {
		if flt.SelectAttrValue("name", "") != "table" {
			continue
		}
		if id := latexID(flt.SelectAttrValue("id", ""), spans.FamilyTable); id != "" {
			register(flt, id)
		}
		xmlutil.Detach(flt)
	}
}

// tableLatex renders table rows as LaTeX source: cells joined with " & ",
// rows terminated with " \\".
func tableLatex(table *etree.Element) string {
	var rows []string
	for _, row := range xmlutil.FindAll(table, "row") {
		var cells []string
		for _, cell := range xmlutil.FindAll(row, "cell") {
			var parts []string
			for _, child := range cell.Child {
				switch c := child.(type) {
				case *etree.CharData:
					parts = append(parts, c.Data)
				case *etree.Element:
					if c.Tag == "formula" {
						if texmath := xmlutil.FindFirst(c, "texmath"); texmath != nil {
							parts = append(parts, xmlutil.Text(texmath))
							continue
						}
					}
					parts = append(parts, xmlutil.Text(c))
				}
			}
			cells = append(cells, strings.Join(strings.Fields(strings.Join(parts, " ")), " "))
		}
		rows = append(rows, strings.Join(cells, " & ")+` \\`)
	}
	return strings.Join(rows, "\n")
}

// tableCaption prefers the caption element, then the head, then paragraph
// children, then the whole remaining element text.
func tableCaption(el *etree.Element, reg *registries) string {
	if caption := xmlutil.FindFirst(el, "caption"); caption != nil {
		return captionTextOf(caption, reg)
	}
	if head := xmlutil.FindFirst(el, "head"); head != nil {
		return captionTextOf(head, reg)
	}
	if paras := xmlutil.FindAll(el, "p"); len(paras) > 0 {
		var parts []string
		for _, p := range paras {
			parts = append(parts, captionTextOf(p, reg))
		}
		return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	}
	return captionTextOf(el, reg)
}

// captionText resolves a figure caption, preferring the caption element.
func captionText(el *etree.Element, reg *registries) string {
	if caption := xmlutil.FindFirst(el, "caption"); caption != nil {
		return captionTextOf(caption, reg)
	}
	return captionTextOf(el, reg)
}

// captionTextOf collapses caption text with cross-references resolved to
// their canonical identifiers and TeX markup dropped.
func captionTextOf(el *etree.Element, reg *registries) string {
	var b strings.Builder
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, child := range el.Child {
			switch c := child.(type) {
			case *etree.CharData:
				b.WriteString(c.Data)
			case *etree.Element:
				switch c.Tag {
				case "texmath":
				case "cit":
					if id := citTarget(c); id != "" {
						b.WriteString(" " + id + " ")
					} else {
						walk(c)
					}
				case "ref":
					if id := refTarget(c, reg); id != "" {
						b.WriteString(" " + id + " ")
					} else {
						walk(c)
					}
				default:
					walk(c)
				}
			}
		}
	}
	walk(el)
	return strings.Join(strings.Fields(b.String()), " ")
}
