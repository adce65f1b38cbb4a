// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tei

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/meshintel/paperjson/internal/xmlutil"
	"github.com/meshintel/paperjson/pkg/types"
)

// ParseBibFragment reads the TEI biblStruct fragment returned by the
// citation-parsing endpoint into a bibliography entry.
func ParseBibFragment(data []byte) (types.BibEntry, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return types.BibEntry{}, fmt.Errorf("parsing bib fragment: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return types.BibEntry{}, fmt.Errorf("bib fragment has no root element")
	}
	entry := root
	if root.Tag != "biblStruct" {
		if found := xmlutil.FindFirst(root, "biblStruct"); found != nil {
			entry = found
		}
	}
	return parseBibEntry(entry), nil
}

// ParseAuthorsFragment reads the TEI persName fragment returned by the
// header-names endpoint into author entries.
func ParseAuthorsFragment(data []byte) ([]types.Author, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parsing author fragment: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("author fragment has no root element")
	}

	if authors := parseAuthors(root); len(authors) > 0 {
		return authors, nil
	}

	// Some responses carry bare persName elements without author wrappers.
	var out []types.Author
	if root.Tag == "persName" {
		return []types.Author{parsePersName(root)}, nil
	}
	for _, persName := range xmlutil.FindAll(root, "persName") {
		out = append(out, parsePersName(persName))
	}
	return out, nil
}
