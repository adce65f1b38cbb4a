// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package spans

import (
	"fmt"

	"github.com/meshintel/paperjson/pkg/types"
)

// Resolved holds the span lists produced for one paragraph, separated by
// placeholder kind.
type Resolved struct {
	Cite []types.Span
	Ref  []types.Span
	Eq   []types.EqSpan
}

// Resolve flattens the segments, substitutes every placeholder token with
// its surface form, and returns the final paragraph text with spans whose
// offsets slice exactly their text. Zero-length spans are omitted.
func Resolve(segs []Segment) (string, Resolved, error) {
	working, placed, err := flattenChecked(segs)
	if err != nil {
		return "", Resolved{}, err
	}

	reps := make([]Replacement, len(placed))
	for i, p := range placed {
		reps[i] = Replacement{
			Start:   p.Start,
			End:     p.End,
			Token:   p.Token,
			Surface: p.Surface,
		}
	}
	text, out, err := Substitute(working, reps)
	if err != nil {
		return "", Resolved{}, err
	}
	if len(out) != len(placed) {
		return "", Resolved{}, fmt.Errorf("substitution dropped %d placeholders", len(placed)-len(out))
	}

	var res Resolved
	for i, r := range out {
		p := placed[i]
		if r.Token != p.Token {
			return "", Resolved{}, fmt.Errorf("placeholder order mismatch at %d: %q vs %q", i, r.Token, p.Token)
		}
		if r.Start == r.End {
			continue
		}
		switch p.Kind {
		case KindCitation:
			res.Cite = append(res.Cite, types.Span{Start: r.Start, End: r.End, Text: r.Surface, RefID: p.RefID})
		case KindRef:
			res.Ref = append(res.Ref, types.Span{Start: r.Start, End: r.End, Text: r.Surface, RefID: p.RefID})
		case KindInlineFormula, KindDisplayFormula:
			res.Eq = append(res.Eq, types.EqSpan{
				Start:  r.Start,
				End:    r.End,
				Text:   r.Surface,
				Latex:  p.Latex,
				MathML: p.MathML,
				RefID:  p.RefID,
			})
		}
	}
	return text, res, nil
}

// flattenChecked is Flatten plus a uniqueness check on placeholder tokens.
// Duplicate tokens would make span offsets ambiguous.
func flattenChecked(segs []Segment) (string, []Placed, error) {
	text, placed := Flatten(segs)
	seen := make(map[string]struct{}, len(placed))
	for _, p := range placed {
		if _, dup := seen[p.Token]; dup {
			return "", nil, fmt.Errorf("duplicate placeholder token %q", p.Token)
		}
		seen[p.Token] = struct{}{}
	}
	return text, placed, nil
}
