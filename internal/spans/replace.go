// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package spans

import (
	"fmt"
	"sort"
	"strings"
)

// Replacement maps a token occupying [Start, End) of a working string to
// the surface text that replaces it.
type Replacement struct {
	Start   int
	End     int
	Token   string
	Surface string
}

// Substitute replaces every token in text with its surface form in a
// single left-to-right pass, returning the new text and the replacements
// updated to their final offsets. Later replacements shift by the
// accumulated length delta of earlier ones. Replacements overlapping an
// earlier one are dropped. Each input offset pair must slice exactly its
// token, and each output pair is verified to slice exactly its surface;
// a mismatch on either side is an error.
func Substitute(text string, reps []Replacement) (string, []Replacement, error) {
	ordered := make([]Replacement, len(reps))
	copy(ordered, reps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})

	for i, r := range ordered {
		if r.Start < 0 || r.End > len(text) || r.Start > r.End {
			return "", nil, fmt.Errorf("replacement %d: offsets [%d, %d) out of range for text of length %d", i, r.Start, r.End, len(text))
		}
		if got := text[r.Start:r.End]; got != r.Token {
			return "", nil, fmt.Errorf("replacement %d: text at [%d, %d) is %q, want token %q", i, r.Start, r.End, got, r.Token)
		}
		if i > 0 && ordered[i-1].Start == r.Start {
			return "", nil, fmt.Errorf("replacement %d: duplicate start offset %d", i, r.Start)
		}
	}

	var (
		b    strings.Builder
		out  = make([]Replacement, 0, len(ordered))
		pos  int
		last int
	)
	for _, r := range ordered {
		if r.Start < last {
			continue
		}
		b.WriteString(text[pos:r.Start])
		start := b.Len()
		b.WriteString(r.Surface)
		out = append(out, Replacement{
			Start:   start,
			End:     b.Len(),
			Token:   r.Token,
			Surface: r.Surface,
		})
		pos = r.End
		last = r.End
	}
	b.WriteString(text[pos:])

	result := b.String()
	for _, r := range out {
		if got := result[r.Start:r.End]; got != r.Surface {
			return "", nil, fmt.Errorf("substituted text at [%d, %d) is %q, want surface %q", r.Start, r.End, got, r.Surface)
		}
	}
	return result, out, nil
}
