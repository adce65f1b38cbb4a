// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tei

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/beevik/etree"

	"github.com/meshintel/paperjson/internal/spans"
	"github.com/meshintel/paperjson/internal/xmlutil"
	"github.com/meshintel/paperjson/pkg/types"
)

var yearRegex = regexp.MustCompile(`^(19|20)\d{2}`)

// parseBibliography reads every biblStruct under the document's listBibl
// into a map keyed by canonical identifier, then detaches the listBibl so
// its contents cannot leak into body text. Entries without a title are
// dropped; duplicate identifiers keep the last entry.
func parseBibliography(root *etree.Element) map[string]types.BibEntry {
	bibs := map[string]types.BibEntry{}
	listBibl := xmlutil.FindFirst(root, "listBibl")
	if listBibl == nil {
		return bibs
	}
	for _, entry := range xmlutil.FindAll(listBibl, "biblStruct") {
		rawID := xmlutil.Attr(entry, "xml:id")
		id, err := spans.NormalizeTEI(rawID)
		if err != nil {
			continue
		}
		bib := parseBibEntry(entry)
		if bib.Title == "" {
			continue
		}
		bib.RefID = id.String()
		bibs[id.String()] = bib
	}
	xmlutil.Detach(listBibl)
	return bibs
}

// parseBibEntry converts one biblStruct into a bibliography entry.
func parseBibEntry(entry *etree.Element) types.BibEntry {
	title := bibTitle(entry)
	return types.BibEntry{
		Title:    title,
		Authors:  bibAuthors(entry),
		Year:     bibYear(entry),
		Venue:    bibVenue(entry, title),
		Volume:   biblScope(entry, "volume"),
		Issue:    biblScope(entry, "issue"),
		Pages:    bibPages(entry),
		OtherIDs: bibOtherIDs(entry),
		RawText:  bibRawText(entry),
	}
}

// bibTitle prefers the article-level title (level "a"), falling back to the
// first title element.
func bibTitle(entry *etree.Element) string {
	titles := xmlutil.FindAll(entry, "title")
	for _, title := range titles {
		if title.SelectAttrValue("level", "") == "a" {
			return xmlutil.Text(title)
		}
	}
	if len(titles) > 0 {
		return xmlutil.Text(titles[0])
	}
	return ""
}

// bibAuthors reads author names without affiliations; bibliography entries
// do not carry them.
func bibAuthors(entry *etree.Element) []types.Author {
	var authors []types.Author
	for _, author := range xmlutil.FindAll(entry, "author") {
		persName := xmlutil.FindFirst(author, "persName")
		if persName == nil {
			continue
		}
		authors = append(authors, parsePersName(persName))
	}
	if authors == nil {
		return []types.Author{}
	}
	return authors
}

func bibYear(entry *etree.Element) *int {
	for _, date := range xmlutil.FindAll(entry, "date") {
		when := date.SelectAttrValue("when", "")
		if when == "" {
			continue
		}
		if match := yearRegex.FindString(when); match != "" {
			year, err := strconv.Atoi(match)
			if err == nil {
				return &year
			}
		}
	}
	return nil
}

// bibVenue returns the journal, monograph, or series title of the entry, in
// that preference order, skipping the entry's own title.
func bibVenue(entry *etree.Element, titleText string) string {
	rank := map[string]int{"j": 0, "m": 1, "s": 2}
	type candidate struct {
		rank int
		text string
	}
	var candidates []candidate
	for _, title := range xmlutil.FindAll(entry, "title") {
		level := title.SelectAttrValue("level", "")
		r, ok := rank[level]
		if !ok {
			continue
		}
		if text := xmlutil.Text(title); text != titleText {
			candidates = append(candidates, candidate{rank: r, text: text})
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].rank < candidates[j].rank })
	return candidates[0].text
}

func biblScope(entry *etree.Element, unit string) string {
	for _, scope := range xmlutil.FindAll(entry, "biblScope") {
		if scope.SelectAttrValue("unit", "") == unit {
			return xmlutil.Text(scope)
		}
	}
	return ""
}

func bibPages(entry *etree.Element) string {
	for _, scope := range xmlutil.FindAll(entry, "biblScope") {
		if scope.SelectAttrValue("unit", "") != "page" {
			continue
		}
		from := scope.SelectAttrValue("from", "")
		if from == "" {
			continue
		}
		if to := scope.SelectAttrValue("to", ""); to != "" {
			return from + "--" + to
		}
		return from
	}
	return ""
}

func bibOtherIDs(entry *etree.Element) map[string][]string {
	ids := map[string][]string{}
	for _, idno := range xmlutil.FindAll(entry, "idno") {
		idType := idno.SelectAttrValue("type", "")
		text := xmlutil.Text(idno)
		if idType != "" && text != "" {
			ids[idType] = append(ids[idType], text)
		}
	}
	return ids
}

// bibRawText returns the raw reference string the upstream tool preserves
// in a note element.
func bibRawText(entry *etree.Element) string {
	for _, note := range xmlutil.FindAll(entry, "note") {
		if note.SelectAttrValue("type", "") == "raw_reference" {
			return xmlutil.Text(note)
		}
	}
	return ""
}
