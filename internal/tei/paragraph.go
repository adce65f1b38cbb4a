// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tei

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/meshintel/paperjson/internal/spans"
	"github.com/meshintel/paperjson/internal/xmlutil"
	"github.com/meshintel/paperjson/pkg/types"
)

// docContext carries the per-document state every paragraph needs: the two
// registries and the document-level citation style.
type docContext struct {
	bibs    map[string]types.BibEntry
	refs    map[string]types.RefEntry
	bracket bool
}

// paraItem is one entry of a linearized paragraph: a literal text run, or a
// cross-reference element left in place for citation handling.
type paraItem struct {
	text string
	ref  *etree.Element
}

// linearize flattens a paragraph subtree into an ordered item list.
// Formulas collapse into their text (with the label appended after a
// space); ref elements are kept; all other markup contributes its text.
func linearize(el *etree.Element) []paraItem {
	var items []paraItem
	for _, child := range el.Child {
		switch c := child.(type) {
		case *etree.CharData:
			items = append(items, paraItem{text: c.Data})
		case *etree.Element:
			switch c.Tag {
			case "formula":
				items = append(items, paraItem{text: formulaText(c)})
			case "ref":
				items = append(items, paraItem{ref: c})
			default:
				items = append(items, linearize(c)...)
			}
		}
	}
	return items
}

func formulaText(formula *etree.Element) string {
	label := xmlutil.Child(formula, "label")
	if label == nil {
		return strings.TrimSpace(xmlutil.Text(formula))
	}
	body := strings.TrimSpace(xmlutil.TextExcept(formula, label))
	return body + " " + xmlutil.Text(label)
}

// processParagraph converts one paragraph element into cleaned text with
// resolved citation and cross-reference spans. Elements that cannot be
// resolved degrade to their surface text and are reported in the
// diagnostics; they never fail the paragraph.
func processParagraph(ctx *docContext, para *etree.Element, section types.SectionPath) (types.Paragraph, spans.Diagnostics) {
	if xmlutil.Text(para) == "" {
		return types.Paragraph{Section: section}, nil
	}

	items := linearize(para)
	out := make([][]spans.Segment, len(items))
	consumed := make([]bool, len(items))
	citegen := spans.NewTokenGenerator(spans.TokenCite)
	refgen := spans.NewTokenGenerator(spans.TokenRef)
	var diags spans.Diagnostics

	for i, item := range items {
		if item.ref == nil {
			out[i] = []spans.Segment{spans.TextSegment(item.text)}
			continue
		}
		surface := strings.TrimSpace(xmlutil.Text(item.ref))
		switch item.ref.SelectAttrValue("type", "") {
		case "bibr":
			processCitation(ctx, items, out, consumed, i, surface, citegen, &diags)
		case "table", "figure":
			refID := ""
			if target := item.ref.SelectAttrValue("target", ""); target != "" {
				id, err := spans.NormalizeTEI(target)
				if err != nil {
					diags.Add("ref "+target, err)
				} else if _, ok := ctx.refs[id.String()]; ok {
					refID = id.String()
				}
			}
			p := &spans.Pending{Token: refgen.Next(), Surface: surface, RefID: refID, Kind: spans.KindRef}
			out[i] = []spans.Segment{spans.TokenSegment(p)}
			consumed[i] = true
		default:
			out[i] = []spans.Segment{spans.TextSegment(surface)}
			consumed[i] = true
		}
	}

	// Citations deferred for a range expansion that never completed keep
	// their surface text in place.
	for i, item := range items {
		if item.ref != nil && !consumed[i] {
			out[i] = []spans.Segment{spans.TextSegment(strings.TrimSpace(xmlutil.Text(item.ref)))}
		}
	}

	var segs []spans.Segment
	for _, slot := range out {
		segs = append(segs, slot...)
	}
	text, resolved, err := spans.Resolve(segs)
	if err != nil {
		// Resolution failure is an internal invariant break, not a markup
		// problem. Fall back to plain text with no spans.
		diags.Add("paragraph", err)
		return types.Paragraph{Text: strings.Join(strings.Fields(xmlutil.Text(para)), " "), Section: section}, diags
	}

	return types.Paragraph{
		Text:      text,
		CiteSpans: resolved.Cite,
		RefSpans:  resolved.Ref,
		EqSpans:   resolved.Eq,
		Section:   section,
	}, diags
}

// processCitation handles one bibliography reference at items[i]. In
// bracket-style documents compressed ranges like [1]-[4] are expanded into
// one citation per entry; the lookback and lookahead walk the item list
// where the upstream markup put the range markers.
func processCitation(ctx *docContext, items []paraItem, out [][]spans.Segment, consumed []bool, i int, surface string, citegen *spans.TokenGenerator, diags *spans.Diagnostics) {
	emit := func(slot int, refID, surf string) {
		p := &spans.Pending{Token: citegen.Next(), Surface: surf, RefID: refID, Kind: spans.KindCitation}
		out[slot] = []spans.Segment{spans.TokenSegment(p)}
		consumed[slot] = true
	}

	target := items[i].ref.SelectAttrValue("target", "")
	if target == "" {
		emit(i, "", surface)
		return
	}
	id, err := spans.NormalizeTEI(target)
	if err != nil {
		diags.Add("citation "+target, err)
		emit(i, "", surface)
		return
	}
	refID := id.String()
	if _, ok := ctx.bibs[refID]; !ok {
		emit(i, "", surface)
		return
	}
	if !ctx.bracket {
		emit(i, refID, surface)
		return
	}

	// Bracket-style documents: anything that doesn't look like a bracket
	// group is kept as plain text.
	if surface == "" || (surface[0] != '[' && surface[len(surface)-1] != ']' && surface[len(surface)-1] != ',') {
		out[i] = []spans.Segment{spans.TextSegment(" " + surface + " ")}
		consumed[i] = true
		return
	}

	between, prev := lookBack(items, consumed, i)
	if spans.IsExpansionString(between) && prev >= 0 {
		prevSurface := strings.TrimSpace(xmlutil.Text(items[prev].ref))
		prevTarget := items[prev].ref.SelectAttrValue("target", "")
		prevID, err := spans.NormalizeTEI(prevTarget)
		if err != nil {
			diags.Add("citation "+prevTarget, fmt.Errorf("range start: %w", err))
			return
		}
		if a, b, ok := spans.SurfaceRange(prevSurface, surface); ok {
			ids := spans.ExpandIdentifierRange(prevID, id)
			surfaces := spans.ExpandSurfaceRange(a, b)
			n := len(ids)
			if len(surfaces) < n {
				n = len(surfaces)
			}
			// Clear the range start and the marker text between.
			for j := prev; j < i; j++ {
				out[j] = nil
				consumed[j] = true
			}
			segs := make([]spans.Segment, 0, n)
			for k := 0; k < n; k++ {
				expandedID := ""
				if _, ok := ctx.bibs[ids[k].String()]; ok {
					expandedID = ids[k].String()
				}
				segs = append(segs, spans.TokenSegment(&spans.Pending{
					Token:   citegen.Next(),
					Surface: surfaces[k],
					RefID:   expandedID,
					Kind:    spans.KindCitation,
				}))
			}
			out[i] = segs
			consumed[i] = true
		} else {
			// Marker present but the numbers don't form a usable range:
			// emit both ends as independent citations.
			emit(prev, prevID.String(), prevSurface)
			emit(i, refID, surface)
		}
		return
	}

	if forward := lookAhead(items, i); spans.IsExpansionString(forward) {
		// Range start; the expansion happens when the end is reached.
		return
	}
	emit(i, refID, surface)
}

// lookBack collects the text between items[i] and the nearest preceding ref
// item, returning that ref's index or -1. A preceding ref that was already
// resolved cannot start a range; its placeholder counts as interposed text,
// so the lookback reports no candidate.
func lookBack(items []paraItem, consumed []bool, i int) (string, int) {
	prev := -1
	for j := i - 1; j >= 0; j-- {
		if items[j].ref != nil {
			prev = j
			break
		}
	}
	if prev >= 0 && consumed[prev] {
		return "", -1
	}
	var b strings.Builder
	for k := prev + 1; k < i; k++ {
		b.WriteString(items[k].text)
	}
	return b.String(), prev
}

// lookAhead collects the text between items[i] and the next ref item.
func lookAhead(items []paraItem, i int) string {
	var b strings.Builder
	for j := i + 1; j < len(items); j++ {
		if items[j].ref != nil {
			break
		}
		b.WriteString(items[j].text)
	}
	return b.String()
}
