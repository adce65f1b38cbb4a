// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package spans implements the span resolution engine: canonical
// identifiers, placeholder tokens, citation style handling, and text
// substitution with offset propagation. Everything here is per-document
// or per-paragraph state; nothing is shared between documents.
package spans

import (
	"fmt"
	"strconv"
	"strings"
)

// Family is the closed set of referenceable entity kinds. Each family has
// its own identifier namespace within a document.
type Family int

const (
	FamilyBib Family = iota
	FamilyFigure
	FamilyTable
	FamilyEquation
	FamilyFootnote
	FamilySection
)

// Prefix returns the canonical identifier prefix for the family.
func (f Family) Prefix() string {
	switch f {
	case FamilyBib:
		return "BIBREF"
	case FamilyFigure:
		return "FIGREF"
	case FamilyTable:
		return "TABREF"
	case FamilyEquation:
		return "EQREF"
	case FamilyFootnote:
		return "FOOTREF"
	case FamilySection:
		return "SECREF"
	}
	return ""
}

// Identifier is a canonical family-prefixed identifier, unique per family
// within one document.
type Identifier struct {
	Family Family
	Num    int
}

func (id Identifier) String() string {
	return id.Family.Prefix() + strconv.Itoa(id.Num)
}

// ParseIdentifier parses a canonical identifier string like "BIBREF3".
func ParseIdentifier(s string) (Identifier, bool) {
	for _, f := range []Family{FamilyBib, FamilyFigure, FamilyTable, FamilyEquation, FamilyFootnote, FamilySection} {
		prefix := f.Prefix()
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		num, err := strconv.Atoi(s[len(prefix):])
		if err != nil || num < 0 {
			return Identifier{}, false
		}
		return Identifier{Family: f, Num: num}, true
	}
	return Identifier{}, false
}

// teiPrefixes maps upstream TEI identifier prefixes to families: b3 is a
// bibliography item, fig_2 a figure, tab_0 a table, formula_1 a formula.
var teiPrefixes = map[string]Family{
	"FORMULA": FamilyEquation,
	"TAB":     FamilyTable,
	"FIG":     FamilyFigure,
	"B":       FamilyBib,
}

// latexPrefixes maps LaTeX-XML identifier prefixes to families. The "uid"
// prefix is ambiguous and handled by UIDCandidates instead.
var latexPrefixes = map[string]Family{
	"FORMULA": FamilyEquation,
	"BID":     FamilyBib,
	"CID":     FamilySection,
}

// NormalizeTEI maps a raw TEI identifier (optionally "#"-prefixed, as in
// cross-reference targets) to its canonical identifier. Unrecognized forms
// are rejected rather than passed through; callers keep the element's
// surface text in-line and drop the reference link.
func NormalizeTEI(raw string) (Identifier, error) {
	return normalizeRaw(raw, teiPrefixes)
}

// NormalizeLatex maps a raw LaTeX-XML identifier (bid4, cid2, formula_0) to
// its canonical identifier. "uid" identifiers are ambiguous across families
// and must be resolved with UIDCandidates against a registry.
func NormalizeLatex(raw string) (Identifier, error) {
	return normalizeRaw(raw, latexPrefixes)
}

// UIDCandidates returns the canonical identifiers a raw "uid" identifier
// may stand for, in registry probe order. Returns nil if raw is not a uid
// form.
func UIDCandidates(raw string) []Identifier {
	norm := foldRaw(raw)
	if !strings.HasPrefix(norm, "UID") {
		return nil
	}
	num, err := strconv.Atoi(norm[len("UID"):])
	if err != nil || num < 0 {
		return nil
	}
	families := []Family{FamilyFigure, FamilyTable, FamilyEquation, FamilyFootnote, FamilySection}
	out := make([]Identifier, len(families))
	for i, f := range families {
		out[i] = Identifier{Family: f, Num: num}
	}
	return out
}

func normalizeRaw(raw string, prefixes map[string]Family) (Identifier, error) {
	norm := foldRaw(raw)
	// Longest prefix wins so FORMULA is not shadowed by a shorter match.
	var (
		best    string
		family  Family
		matched bool
	)
	for prefix, f := range prefixes {
		if strings.HasPrefix(norm, prefix) && len(prefix) > len(best) {
			best, family, matched = prefix, f, true
		}
	}
	if !matched {
		return Identifier{}, fmt.Errorf("unrecognized identifier form %q", raw)
	}
	num, err := strconv.Atoi(norm[len(best):])
	if err != nil || num < 0 {
		return Identifier{}, fmt.Errorf("identifier %q has no numeric suffix", raw)
	}
	return Identifier{Family: family, Num: num}, nil
}

// foldRaw strips the separators upstream formats embed in identifiers
// ("fig_2", "#b3") and case-folds the rest.
func foldRaw(raw string) string {
	norm := strings.ToUpper(raw)
	norm = strings.ReplaceAll(norm, "_", "")
	norm = strings.ReplaceAll(norm, "#", "")
	return norm
}
