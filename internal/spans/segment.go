// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package spans

import (
	"strings"
	"unicode"
)

// Kind classifies what a placeholder stands for, which decides the span
// list it lands in after substitution.
type Kind int

const (
	KindCitation Kind = iota
	KindRef
	KindInlineFormula
	KindDisplayFormula
)

// Pending is a placeholder awaiting substitution: the token text standing
// in for a markup element, the final surface form, and the semantic payload
// recorded by the token substitution pass. RefID is empty for unresolved
// references. Latex and MathML are set only for formula placeholders.
type Pending struct {
	Token   string
	Surface string
	RefID   string
	Kind    Kind
	Latex   string
	MathML  string
}

// Segment is one piece of a linearized paragraph: either a literal text run
// or a placeholder. The segment list is the intermediate representation
// between the token substitution pass and the reindexing engine, so token
// positions are a structural property rather than a string-scanning one.
type Segment struct {
	Text        string
	Placeholder *Pending
}

// TextSegment wraps a literal text run.
func TextSegment(text string) Segment {
	return Segment{Text: text}
}

// TokenSegment wraps a placeholder.
func TokenSegment(p *Pending) Segment {
	return Segment{Placeholder: p}
}

// Placed is a placeholder with its token's position in the flattened text.
type Placed struct {
	*Pending
	Start int
	End   int
}

// Flatten assembles segments into a single whitespace-normalized string
// with placeholder tokens embedded, recording each token's byte offsets.
// Every maximal whitespace run, including runs spanning segment
// boundaries, collapses to a single space; tokens are always separated
// from neighboring text by one space so adjacent tokens cannot fuse.
func Flatten(segs []Segment) (string, []Placed) {
	var (
		b       strings.Builder
		placed  []Placed
		inSpace bool
	)
	flushSpace := func() {
		if inSpace {
			b.WriteByte(' ')
			inSpace = false
		}
	}

	for _, seg := range segs {
		if seg.Placeholder == nil {
			for _, r := range seg.Text {
				if unicode.IsSpace(r) {
					inSpace = true
					continue
				}
				flushSpace()
				b.WriteRune(r)
			}
			continue
		}
		inSpace = true
		flushSpace()
		start := b.Len()
		b.WriteString(seg.Placeholder.Token)
		placed = append(placed, Placed{
			Pending: seg.Placeholder,
			Start:   start,
			End:     b.Len(),
		})
		inSpace = true
	}
	flushSpace()

	return b.String(), placed
}
