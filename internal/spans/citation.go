// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package spans

import (
	"fmt"
	"regexp"
)

// Citation surface form patterns. Both anchor at the start of the surface
// string, matching the source system's behavior.
var (
	// BracketRegex matches bracket citation groups like [12], [1,2], [3-5].
	BracketRegex = regexp.MustCompile(`^\[[1-9]\d{0,2}([,;\s-]+[1-9]\d{0,2})*;?\]`)

	// SingleBracketRegex matches a single numeric bracket citation like [12]
	// and captures the number.
	SingleBracketRegex = regexp.MustCompile(`^\[([1-9]\d{0,2})\]`)
)

// BracketStyleThreshold is the number of bracket-matching citation samples
// a document must exceed to be classified bracket-style. The absolute count
// is scale-dependent and misclassifies very short documents; it is kept for
// behavioral compatibility and should be treated as a tunable.
const BracketStyleThreshold = 5

// IsBracketStyle reports whether the document uses bracket-style citations,
// given the surface forms of all (or a representative sample of) its
// citation mentions. The decision is document-level: compute once and pass
// into every paragraph.
func IsBracketStyle(surfaces []string) bool {
	matches := 0
	for _, s := range surfaces {
		if BracketRegex.MatchString(s) {
			matches++
		}
	}
	return matches > BracketStyleThreshold
}

// expansionChars are the marker characters allowed between two citations of
// a compressed range, plus space as filler.
var expansionChars = map[rune]bool{'-': true, '–': true}

// IsExpansionString reports whether the inter-citation text marks a range,
// e.g. the "-" in [1]-[4]: at most two runes, at least one from the
// hyphen/en-dash set, nothing else but spaces.
func IsExpansionString(between string) bool {
	runes := []rune(between)
	if len(runes) == 0 || len(runes) > 2 {
		return false
	}
	sawMarker := false
	for _, r := range runes {
		switch {
		case expansionChars[r]:
			sawMarker = true
		case r == ' ':
		default:
			return false
		}
	}
	return sawMarker
}

// SurfaceRange extracts the numeric range of two bracket surface forms,
// e.g. "[1]" and "[4]" to (1, 4). The range is usable for expansion only
// when strictly between 1 and 20 apart; anything else returns ok=false and
// the citations are treated independently.
func SurfaceRange(startSurface, endSurface string) (int, int, bool) {
	m1 := SingleBracketRegex.FindStringSubmatch(startSurface)
	m2 := SingleBracketRegex.FindStringSubmatch(endSurface)
	if m1 == nil || m2 == nil {
		return 0, 0, false
	}
	// Capture group is all digits; Atoi cannot fail.
	var a, b int
	fmt.Sscanf(m1[1], "%d", &a)
	fmt.Sscanf(m2[1], "%d", &b)
	if diff := b - a; diff > 1 && diff < 20 {
		return a, b, true
	}
	return 0, 0, false
}

// ExpandSurfaceRange enumerates bracket surface forms [start]..[end]
// inclusive.
func ExpandSurfaceRange(start, end int) []string {
	out := make([]string, 0, end-start+1)
	for n := start; n <= end; n++ {
		out = append(out, fmt.Sprintf("[%d]", n))
	}
	return out
}

// ExpandIdentifierRange enumerates identifiers from start to end inclusive
// within start's family, e.g. BIBREF1-BIBREF4 to four identifiers.
func ExpandIdentifierRange(start, end Identifier) []Identifier {
	if end.Num < start.Num {
		return nil
	}
	out := make([]Identifier, 0, end.Num-start.Num+1)
	for n := start.Num; n <= end.Num; n++ {
		out = append(out, Identifier{Family: start.Family, Num: n})
	}
	return out
}
