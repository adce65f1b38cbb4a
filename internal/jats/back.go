// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package jats

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/meshintel/paperjson/internal/spans"
	"github.com/meshintel/paperjson/internal/xmlutil"
	"github.com/meshintel/paperjson/pkg/types"
)

// parseAcknowledgements turns ack blocks into back matter paragraphs.
func (c *converter) parseAcknowledgements(back *etree.Element) []types.Paragraph {
	if back == nil {
		return nil
	}
	var out []types.Paragraph
	for _, ack := range xmlutil.FindAll(back, "ack") {
		var section types.SectionPath
		if title := xmlutil.FindFirst(ack, "title"); title != nil {
			section = types.SectionPath{{Title: strings.TrimSpace(xmlutil.Text(title))}}
		}
		for _, p := range xmlutil.FindAll(ack, "p") {
			if para, ok := c.processParagraph(p, section); ok {
				para.CiteSpans = nil
				para.RefSpans = nil
				out = append(out, para)
			}
		}
	}
	return out
}

// parseBibliography builds the renumbered bibliography from the back
// ref-list. Canonical keys are assigned in sorted order of the documents'
// own ref identifiers and the mapping is recorded for span relinking.
func (c *converter) parseBibliography(back *etree.Element) map[string]types.BibEntry {
	bibs := map[string]types.BibEntry{}
	if back == nil {
		return bibs
	}
	refList := xmlutil.FindFirst(back, "ref-list")
	if refList == nil {
		return bibs
	}

	raw := map[string]types.BibEntry{}
	for _, ref := range xmlutil.FindAll(refList, "ref") {
		id := ref.SelectAttrValue("id", "")
		if id == "" {
			continue
		}
		raw[id] = parseBibRef(ref)
	}
	for i, oldKey := range sortedKeys(raw) {
		newKey := spans.Identifier{Family: spans.FamilyBib, Num: i}.String()
		c.oldToNew[oldKey] = newKey
		entry := raw[oldKey]
		entry.RefID = newKey
		entry.Num = i
		bibs[newKey] = entry
	}
	return bibs
}

func parseBibRef(ref *etree.Element) types.BibEntry {
	entry := types.BibEntry{Authors: []types.Author{}}

	if title := xmlutil.FindFirst(ref, "article-title"); title != nil {
		entry.Title = strings.Join(strings.Fields(xmlutil.Text(title)), " ")
	}
	if source := xmlutil.FindFirst(ref, "source"); source != nil {
		entry.Venue = strings.TrimSpace(xmlutil.Text(source))
	}
	if volume := xmlutil.FindFirst(ref, "volume"); volume != nil {
		entry.Volume = strings.TrimSpace(xmlutil.Text(volume))
	}
	if issue := xmlutil.FindFirst(ref, "issue"); issue != nil {
		entry.Issue = strings.TrimSpace(xmlutil.Text(issue))
	}
	if year := xmlutil.FindFirst(ref, "year"); year != nil {
		if y, err := strconv.Atoi(strings.TrimSpace(xmlutil.Text(year))); err == nil {
			entry.Year = &y
		}
	}
	fpage := xmlutil.FindFirst(ref, "fpage")
	lpage := xmlutil.FindFirst(ref, "lpage")
	if fpage != nil && lpage != nil {
		entry.Pages = strings.TrimSpace(xmlutil.Text(fpage)) + "-" + strings.TrimSpace(xmlutil.Text(lpage))
	}

	for _, group := range xmlutil.FindAll(ref, "person-group") {
		if group.SelectAttrValue("person-group-type", "") != "author" {
			continue
		}
		for _, name := range xmlutil.FindAll(group, "name") {
			var author types.Author
			if given := xmlutil.FindFirst(name, "given-names"); given != nil {
				fields := strings.Fields(xmlutil.Text(given))
				if len(fields) > 0 {
					author.First = fields[0]
					author.Middle = fields[1:]
				}
			}
			if surname := xmlutil.FindFirst(name, "surname"); surname != nil {
				author.Last = strings.TrimSpace(xmlutil.Text(surname))
			}
			if suffix := xmlutil.FindFirst(name, "suffix"); suffix != nil {
				author.Suffix = strings.TrimSpace(xmlutil.Text(suffix))
			}
			entry.Authors = append(entry.Authors, author)
		}
		break
	}

	var dois []string
	for _, pubID := range xmlutil.FindAll(ref, "pub-id") {
		if pubID.SelectAttrValue("pub-id-type", "") == "doi" {
			dois = append(dois, strings.TrimSpace(xmlutil.Text(pubID)))
		}
	}
	if len(dois) > 0 {
		entry.OtherIDs = map[string][]string{"DOI": dois}
	}
	return entry
}
