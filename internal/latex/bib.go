// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package latex

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/meshintel/paperjson/internal/grobid"
	"github.com/meshintel/paperjson/internal/spans"
	"github.com/meshintel/paperjson/internal/tei"
	"github.com/meshintel/paperjson/internal/xmlutil"
	"github.com/meshintel/paperjson/pkg/types"
)

// CitationParser turns raw citation strings and author name lists into
// structured records. The production implementation calls GROBID; tests
// substitute a local fake.
type CitationParser interface {
	ParseCitation(ctx context.Context, raw string) (types.BibEntry, error)
	ParseAuthors(ctx context.Context, names string) ([]types.Author, error)
}

// GrobidParser parses citations and author names through a GROBID service.
type GrobidParser struct {
	Client *grobid.Client
}

func (g *GrobidParser) ParseCitation(ctx context.Context, raw string) (types.BibEntry, error) {
	xml, err := g.Client.ProcessCitation(ctx, raw)
	if err != nil {
		return types.BibEntry{}, fmt.Errorf("process citation: %w", err)
	}
	entry, err := tei.ParseBibFragment([]byte(xml))
	if err != nil {
		return types.BibEntry{}, fmt.Errorf("parse citation response: %w", err)
	}
	return entry, nil
}

func (g *GrobidParser) ParseAuthors(ctx context.Context, names string) ([]types.Author, error) {
	xml, err := g.Client.ProcessHeaderNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("process header names: %w", err)
	}
	authors, err := tei.ParseAuthorsFragment([]byte(xml))
	if err != nil {
		return nil, fmt.Errorf("parse header names response: %w", err)
	}
	return authors, nil
}

// bibKeyRegex splits a plain bibliography line of the form "[key] entry".
var bibKeyRegex = regexp.MustCompile(`^\[(.*?)\](.*)`)

// processMaketitle extracts the title and author list from the maketitle
// block and detaches it. Author markup is flattened to a comma-joined
// string and handed to the citation parser; when parsing fails the raw
// string survives as a single surname.
func (c *converter) processMaketitle(ctx context.Context, root *etree.Element) types.Metadata {
	var meta types.Metadata
	maketitle := xmlutil.FindFirst(root, "maketitle")
	if maketitle == nil {
		return meta
	}
	if title := xmlutil.FindFirst(maketitle, "title"); title != nil {
		meta.Title = strings.Join(strings.Fields(xmlutil.Text(title)), " ")
	}
	if author := xmlutil.FindFirst(maketitle, "author"); author != nil {
		raw := authorString(author)
		if raw != "" {
			authors, err := c.parser.ParseAuthors(ctx, raw)
			if err != nil || len(authors) == 0 {
				c.diags.Add("authors", err)
				authors = []types.Author{{Last: raw}}
			}
			meta.Authors = authors
		}
	}
	xmlutil.Detach(maketitle)
	return meta
}

// authorString flattens the author element into a comma-separated name
// list, dropping embedded math.
func authorString(author *etree.Element) string {
	var parts []string
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, child := range el.Child {
			switch c := child.(type) {
			case *etree.CharData:
				if text := strings.Join(strings.Fields(c.Data), " "); text != "" {
					parts = append(parts, text)
				}
			case *etree.Element:
				if c.Tag == "formula" || c.Tag == "texmath" {
					continue
				}
				walk(c)
			}
		}
	}
	walk(author)
	return strings.Join(parts, ", ")
}

// processBibliography extracts bibliography entries and detaches the
// bibliography element. Documents produced with \bibitem carry one
// bibitem element per entry; plain documents are parsed line-wise with
// bracketed keys.
func (c *converter) processBibliography(ctx context.Context, root *etree.Element) map[string]types.BibEntry {
	bibs := make(map[string]types.BibEntry)
	bibl := xmlutil.FindFirst(root, "bibliography")
	if bibl == nil {
		bibl = xmlutil.FindFirst(root, "Bibliography")
	}
	if bibl == nil {
		return bibs
	}
	defer xmlutil.Detach(bibl)

	if items := xmlutil.FindAll(bibl, "bibitem"); len(items) > 0 {
		c.bibItemEntries(ctx, items, bibs)
		return bibs
	}
	c.plainBibEntries(ctx, bibl, bibs)
	return bibs
}

func (c *converter) bibItemEntries(ctx context.Context, items []*etree.Element, bibs map[string]types.BibEntry) {
	for i, item := range items {
		key := latexID(item.SelectAttrValue("id", ""), spans.FamilyBib)
		if key == "" {
			continue
		}
		par := item.Parent()
		for par != nil && par.Tag != "p" {
			par = par.Parent()
		}
		if par == nil {
			continue
		}
		raw := collapseLines(xmlutil.Text(par))
		if raw == "" {
			if next := nextEntryParagraph(par); next != nil {
				par = next
				raw = collapseLines(xmlutil.Text(par))
			}
		}
		if raw == "" {
			continue
		}
		entry := c.parseEntry(ctx, raw)
		entry.RefID = key
		entry.Num = i
		entry.URLs = xrefURLs(par)
		bibs[key] = entry
	}
}

func (c *converter) plainBibEntries(ctx context.Context, bibl *etree.Element, bibs map[string]types.BibEntry) {
	num := 0
	for _, p := range xmlutil.FindAll(bibl, "p") {
		raw := strings.TrimSpace(xmlutil.Text(p))
		if raw == "" {
			continue
		}
		var key, body string
		if m := bibKeyRegex.FindStringSubmatch(collapseLines(raw)); m != nil {
			key, body = m[1], strings.TrimSpace(m[2])
		} else {
			lines := strings.SplitN(raw, "\n", 2)
			key = strings.TrimSpace(lines[0])
			if len(lines) > 1 {
				body = collapseLines(lines[1])
			}
		}
		if key == "" || body == "" {
			continue
		}
		entry := c.parseEntry(ctx, body)
		entry.RefID = key
		entry.Num = num
		entry.URLs = xrefURLs(p)
		bibs[key] = entry
		num++
	}
}

// parseEntry runs the citation parser and falls back to a raw-text-only
// entry when the service cannot structure the string.
func (c *converter) parseEntry(ctx context.Context, raw string) types.BibEntry {
	entry, err := c.parser.ParseCitation(ctx, raw)
	if err != nil {
		c.diags.Add("bibliography", err)
		entry = types.BibEntry{}
	}
	if entry.RawText == "" {
		entry.RawText = raw
	}
	if entry.Authors == nil {
		entry.Authors = []types.Author{}
	}
	return entry
}

func nextEntryParagraph(par *etree.Element) *etree.Element {
	parent := par.Parent()
	if parent == nil {
		return nil
	}
	seen := false
	for _, child := range parent.Child {
		el, ok := child.(*etree.Element)
		if !ok {
			continue
		}
		if el == par {
			seen = true
			continue
		}
		if seen && el.Tag == "p" && xmlutil.FindFirst(el, "bibitem") == nil {
			return el
		}
	}
	return nil
}

func xrefURLs(el *etree.Element) []string {
	var urls []string
	for _, xref := range xmlutil.FindAll(el, "xref") {
		if url := xref.SelectAttrValue("url", ""); url != "" {
			urls = append(urls, url)
		}
	}
	return urls
}

func collapseLines(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
