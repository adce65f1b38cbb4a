// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package jats

import (
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/meshintel/paperjson/internal/spans"
	"github.com/meshintel/paperjson/internal/xmlutil"
	"github.com/meshintel/paperjson/pkg/types"
)

// figBlob and tableBlob hold extracted float content keyed by the
// document's own identifier, before renumbering assigns canonical keys.
type figBlob struct {
	label   string
	caption string
}

type tableBlob struct {
	label    string
	caption  string
	footnote string
	xml      string
}

// extractFigures detaches every identified fig element and keeps its
// label and caption text.
func extractFigures(root *etree.Element) map[string]figBlob {
	blobs := map[string]figBlob{}
	for _, fig := range xmlutil.FindAll(root, "fig") {
		id := fig.SelectAttrValue("id", "")
		if id != "" {
			blob := figBlob{caption: inlineText(xmlutil.FindFirst(fig, "caption"))}
			if label := xmlutil.FindFirst(fig, "label"); label != nil {
				blob.label = strings.TrimSpace(xmlutil.Text(label))
			}
			blobs[id] = blob
		}
		xmlutil.Detach(fig)
	}
	return blobs
}

// extractTables detaches every identified table-wrap element, keeping the
// caption and footnote text plus the table markup itself.
func extractTables(root *etree.Element) map[string]tableBlob {
	blobs := map[string]tableBlob{}
	for _, wrap := range xmlutil.FindAll(root, "table-wrap") {
		id := wrap.SelectAttrValue("id", "")
		if id != "" {
			blob := tableBlob{
				caption:  inlineText(xmlutil.FindFirst(wrap, "caption")),
				footnote: inlineText(xmlutil.FindFirst(wrap, "table-wrap-foot")),
			}
			if label := xmlutil.FindFirst(wrap, "label"); label != nil {
				blob.label = strings.TrimSpace(xmlutil.Text(label))
			}
			if table := xmlutil.FindFirst(wrap, "table"); table != nil {
				blob.xml = serialize(table)
			}
			blobs[id] = blob
		}
		xmlutil.Detach(wrap)
	}
	return blobs
}

// detachSupplementary removes supplementary-material blocks; their content
// is not represented in the output.
func detachSupplementary(root *etree.Element) {
	for _, suppl := range xmlutil.FindAll(root, "supplementary-material") {
		xmlutil.Detach(suppl)
	}
}

// renumberRefs assigns canonical keys in sorted order of the documents'
// own identifiers and records the old-to-new mapping used to relink
// spans. Floats missing a label or caption are dropped from the registry;
// spans pointing at them stay unlinked.
func renumberRefs(tables map[string]tableBlob, figures map[string]figBlob, oldToNew map[string]string) map[string]types.RefEntry {
	refs := map[string]types.RefEntry{}

	for i, oldKey := range sortedKeys(tables) {
		blob := tables[oldKey]
		if blob.label == "" || blob.caption == "" {
			continue
		}
		newKey := spans.Identifier{Family: spans.FamilyTable, Num: i}.String()
		oldToNew[oldKey] = newKey
		text := blob.label + ": " + blob.caption
		if blob.footnote != "" {
			text += "\n" + blob.footnote
		}
		refs[newKey] = types.RefEntry{
			Type:    types.RefTable,
			Text:    text,
			Content: blob.xml,
		}
	}

	for i, oldKey := range sortedKeys(figures) {
		blob := figures[oldKey]
		if blob.label == "" || blob.caption == "" {
			continue
		}
		newKey := spans.Identifier{Family: spans.FamilyFigure, Num: i}.String()
		oldToNew[oldKey] = newKey
		refs[newKey] = types.RefEntry{
			Type: types.RefFigure,
			Text: blob.label + ": " + blob.caption,
		}
	}

	return refs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// inlineText collapses an element's text the way captions are rendered:
// cross-references surface as their text, formulas as their math text,
// graphics vanish.
func inlineText(el *etree.Element) string {
	if el == nil {
		return ""
	}
	var b strings.Builder
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, child := range el.Child {
			switch c := child.(type) {
			case *etree.CharData:
				b.WriteString(c.Data)
			case *etree.Element:
				switch c.Tag {
				case "graphic":
				case "inline-formula":
					b.WriteString(" " + formulaSurface(c) + " ")
				default:
					walk(c)
				}
			}
		}
	}
	walk(el)
	return strings.Join(strings.Fields(b.String()), " ")
}

// serialize renders an element subtree back to XML.
func serialize(el *etree.Element) string {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	out, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}
