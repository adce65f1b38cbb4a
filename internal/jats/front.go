// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package jats

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/meshintel/paperjson/internal/xmlutil"
	"github.com/meshintel/paperjson/pkg/types"
)

// parseMetadata builds the paper metadata from the front block: title,
// authors with their first affiliation, the best publication date, the
// journal name, and the article identifiers.
func (c *converter) parseMetadata(front *etree.Element) types.Metadata {
	meta := types.Metadata{
		Authors:     []types.Author{},
		Identifiers: map[string]string{},
	}
	if front == nil {
		return meta
	}

	if group := xmlutil.FindFirst(front, "title-group"); group != nil {
		if title := xmlutil.FindFirst(group, "article-title"); title != nil {
			meta.Title = strings.Join(strings.Fields(xmlutil.Text(title)), " ")
		}
	}
	if journal := xmlutil.FindFirst(front, "journal-title"); journal != nil {
		meta.Venue = strings.Join(strings.Fields(xmlutil.Text(journal)), " ")
	}

	affiliations := parseAffiliations(front)
	meta.Authors = parseContribAuthors(front, affiliations)
	meta.Year = bestDate(front)

	for _, artID := range xmlutil.FindAll(front, "article-id") {
		text := strings.TrimSpace(xmlutil.Text(artID))
		if text == "" {
			continue
		}
		switch artID.SelectAttrValue("pub-id-type", "") {
		case "doi":
			meta.Identifiers["doi"] = text
		case "pmid":
			meta.Identifiers["pubmed_id"] = text
		case "pmc":
			meta.Identifiers["pmc_id"] = "PMC" + text
		}
	}
	return meta
}

// parseAffiliations maps aff ids to their surface text with labels and
// markers stripped.
func parseAffiliations(front *etree.Element) map[string]string {
	affs := map[string]string{}
	for _, aff := range xmlutil.FindAll(front, "aff") {
		id := aff.SelectAttrValue("id", "")
		if id == "" {
			continue
		}
		var parts []string
		var walk func(el *etree.Element)
		walk = func(el *etree.Element) {
			for _, child := range el.Child {
				switch c := child.(type) {
				case *etree.CharData:
					parts = append(parts, c.Data)
				case *etree.Element:
					switch c.Tag {
					case "label", "sup", "institution-id":
					default:
						walk(c)
					}
				}
			}
		}
		walk(aff)
		affs[id] = strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	}
	return affs
}

// parseContribAuthors extracts individual authors from contrib tags,
// skipping collaboration groups, and attaches the first referenced
// affiliation as the institution.
func parseContribAuthors(front *etree.Element, affiliations map[string]string) []types.Author {
	authors := []types.Author{}
	for _, contrib := range xmlutil.FindAll(front, "contrib") {
		if len(xmlutil.FindAll(contrib, "contrib")) > 0 {
			continue
		}
		name := xmlutil.FindFirst(contrib, "name")
		if name == nil {
			continue
		}
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
		if email := xmlutil.FindFirst(contrib, "email"); email != nil {
			author.Email = strings.TrimSpace(xmlutil.Text(email))
		}
		for _, xref := range xmlutil.FindAll(contrib, "xref") {
			if xref.SelectAttrValue("ref-type", "") != "aff" {
				continue
			}
			if text, ok := affiliations[xref.SelectAttrValue("rid", "")]; ok && text != "" {
				author.Affiliation = &types.Affiliation{Institution: text}
			}
			break
		}
		if author.Last == "" && author.First == "" {
			continue
		}
		authors = append(authors, author)
	}
	return authors
}

// datePreference orders publication date kinds from most to least
// authoritative.
var datePreference = []string{"epub", "accepted", "collection", "received"}

// bestDate joins year-month-day for every pub-date and history date, then
// picks the most authoritative kind present.
func bestDate(front *etree.Element) string {
	dates := map[string]string{}
	record := func(kind string, el *etree.Element) {
		var parts []string
		for _, tag := range []string{"year", "month", "day"} {
			if t := xmlutil.FindFirst(el, tag); t != nil {
				parts = append(parts, strings.TrimSpace(xmlutil.Text(t)))
			}
		}
		if kind != "" && len(parts) > 0 {
			dates[kind] = strings.Join(parts, "-")
		}
	}
	for _, pd := range xmlutil.FindAll(front, "pub-date") {
		record(pd.SelectAttrValue("pub-type", ""), pd)
	}
	for _, d := range xmlutil.FindAll(front, "date") {
		record(d.SelectAttrValue("date-type", ""), d)
	}
	for _, kind := range datePreference {
		if date, ok := dates[kind]; ok {
			return date
		}
	}
	return ""
}

var abstractSection = types.SectionPath{{Title: "Abstract"}}

// parseAbstract processes the front abstract: structured abstracts keep
// their section titles under the Abstract heading, flat ones use it alone.
func (c *converter) parseAbstract(front *etree.Element) []types.Paragraph {
	if front == nil {
		return nil
	}
	abstract := xmlutil.FindFirst(front, "abstract")
	if abstract == nil {
		return nil
	}
	defer xmlutil.Detach(abstract)

	if subs := childSections(abstract); len(subs) > 0 {
		var out []types.Paragraph
		for _, sub := range subs {
			out = append(out, c.parseSections(sub, abstractSection)...)
		}
		return out
	}
	var out []types.Paragraph
	for _, p := range xmlutil.FindAll(abstract, "p") {
		if para, ok := c.processParagraph(p, abstractSection); ok {
			out = append(out, para)
		}
	}
	return out
}
