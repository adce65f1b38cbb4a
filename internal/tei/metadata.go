// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tei

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/meshintel/paperjson/internal/xmlutil"
	"github.com/meshintel/paperjson/pkg/types"
)

// parseMetadata extracts title, authors and publication date from the TEI
// fileDesc element.
func parseMetadata(fileDesc *etree.Element) types.Metadata {
	md := types.Metadata{}
	if fileDesc == nil {
		return md
	}
	if titleStmt := xmlutil.FindFirst(fileDesc, "titleStmt"); titleStmt != nil {
		if title := xmlutil.FindFirst(titleStmt, "title"); title != nil {
			md.Title = xmlutil.Text(title)
		}
	}
	md.Authors = cleanAuthors(parseAuthors(fileDesc))
	md.Year = publicationDate(fileDesc)
	return md
}

// parseAuthors reads every author element under el, with affiliation and
// email when present.
func parseAuthors(el *etree.Element) []types.Author {
	var authors []types.Author
	for _, author := range xmlutil.FindAll(el, "author") {
		a := types.Author{Middle: []string{}}
		if persName := xmlutil.FindFirst(author, "persName"); persName != nil {
			a = parsePersName(persName)
		}
		a.Affiliation = parseAffiliation(xmlutil.FindFirst(author, "affiliation"))
		if email := xmlutil.FindFirst(author, "email"); email != nil {
			a.Email = xmlutil.Text(email)
		}
		authors = append(authors, a)
	}
	return authors
}

// parsePersName splits a TEI persName into name parts. The first forename
// of type "first" is the first name; later ones and type "middle" entries
// are middle names. With multiple surnames all but the last are treated as
// middle names.
func parsePersName(persName *etree.Element) types.Author {
	a := types.Author{Middle: []string{}}
	for _, forename := range xmlutil.FindAll(persName, "forename") {
		switch forename.SelectAttrValue("type", "") {
		case "first":
			if a.First == "" {
				a.First = xmlutil.Text(forename)
			} else {
				a.Middle = append(a.Middle, xmlutil.Text(forename))
			}
		case "middle":
			a.Middle = append(a.Middle, xmlutil.Text(forename))
		}
	}
	surnames := xmlutil.FindAll(persName, "surname")
	if len(surnames) > 0 {
		for _, surname := range surnames[:len(surnames)-1] {
			a.Middle = append(a.Middle, xmlutil.Text(surname))
		}
		a.Last = xmlutil.Text(surnames[len(surnames)-1])
	}
	var suffixes []string
	for _, suffix := range xmlutil.FindAll(persName, "suffix") {
		suffixes = append(suffixes, xmlutil.Text(suffix))
	}
	a.Suffix = strings.Join(suffixes, " ")
	return a
}

// parseAffiliation reads laboratory, institution and address parts from a
// TEI affiliation element. Returns nil when nothing usable is present.
func parseAffiliation(affiliation *etree.Element) *types.Affiliation {
	if affiliation == nil {
		return nil
	}
	out := types.Affiliation{Location: map[string]string{}}
	for _, child := range affiliation.ChildElements() {
		switch child.Tag {
		case "orgName":
			switch child.SelectAttrValue("type", "") {
			case "laboratory":
				out.Laboratory = xmlutil.Text(child)
			case "institution":
				out.Institution = xmlutil.Text(child)
			}
		case "address":
			for _, part := range child.ChildElements() {
				if text := xmlutil.Text(part); text != "" {
					out.Location[part.Tag] = text
				}
			}
		}
	}
	if out.Laboratory == "" && out.Institution == "" {
		return nil
	}
	return &out
}

// publicationDate returns the "when" value of the published date in the
// publicationStmt, empty when absent.
func publicationDate(fileDesc *etree.Element) string {
	stmt := xmlutil.FindFirst(fileDesc, "publicationStmt")
	if stmt == nil {
		return ""
	}
	for _, date := range xmlutil.FindAll(stmt, "date") {
		if date.SelectAttrValue("type", "") == "published" {
			if when := date.SelectAttrValue("when", ""); when != "" {
				return when
			}
		}
	}
	return ""
}

// cleanAuthors drops authors with no name parts and merges duplicates,
// keeping the first occurrence's position. A duplicate's email and
// affiliation fill gaps in the kept entry.
func cleanAuthors(authors []types.Author) []types.Author {
	type key struct {
		first, last, middle, suffix string
	}
	var (
		order []key
		byKey = map[key]*types.Author{}
	)
	for _, a := range authors {
		a.First = strings.TrimSpace(a.First)
		a.Last = strings.TrimSpace(a.Last)
		a.Suffix = strings.TrimSpace(a.Suffix)
		for i, m := range a.Middle {
			a.Middle[i] = strings.TrimSpace(m)
		}
		if a.First == "" && a.Last == "" && len(a.Middle) == 0 {
			continue
		}
		k := key{a.First, a.Last, strings.Join(a.Middle, " "), a.Suffix}
		if kept, ok := byKey[k]; ok {
			if a.Email != "" {
				kept.Email = a.Email
			}
			if a.Affiliation != nil {
				kept.Affiliation = a.Affiliation
			}
			continue
		}
		copied := a
		byKey[k] = &copied
		order = append(order, k)
	}
	out := make([]types.Author, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out
}
