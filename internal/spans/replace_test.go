// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package spans

import (
	"strings"
	"testing"
)

func TestSubstitute(t *testing.T) {
	text := "See CITETOKEN0 and CITETOKEN1 for details."
	reps := []Replacement{
		{Start: 4, End: 14, Token: "CITETOKEN0", Surface: "[1]"},
		{Start: 19, End: 29, Token: "CITETOKEN1", Surface: "(Smith et al., 2020)"},
	}
	out, spans, err := Substitute(text, reps)
	if err != nil {
		t.Fatalf("Substitute: %v", err)
	}
	want := "See [1] and (Smith et al., 2020) for details."
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	for _, s := range spans {
		if got := out[s.Start:s.End]; got != s.Surface {
			t.Errorf("span [%d, %d) slices %q, want %q", s.Start, s.End, got, s.Surface)
		}
	}
}

func TestSubstituteUnsorted(t *testing.T) {
	text := "REFTOKEN1 then REFTOKEN0"
	reps := []Replacement{
		{Start: 15, End: 24, Token: "REFTOKEN0", Surface: "Table 2"},
		{Start: 0, End: 9, Token: "REFTOKEN1", Surface: "Fig. 1"},
	}
	out, spans, err := Substitute(text, reps)
	if err != nil {
		t.Fatalf("Substitute: %v", err)
	}
	if out != "Fig. 1 then Table 2" {
		t.Fatalf("got %q", out)
	}
	if spans[0].Token != "REFTOKEN1" || spans[1].Token != "REFTOKEN0" {
		t.Errorf("spans not reordered by position: %+v", spans)
	}
}

func TestSubstituteOverlapDropped(t *testing.T) {
	text := "aaXXbb"
	reps := []Replacement{
		{Start: 2, End: 4, Token: "XX", Surface: "YYYY"},
		{Start: 3, End: 4, Token: "X", Surface: "Z"},
	}
	out, spans, err := Substitute(text, reps)
	if err != nil {
		t.Fatalf("Substitute: %v", err)
	}
	if out != "aaYYYYbb" {
		t.Fatalf("got %q, want %q", out, "aaYYYYbb")
	}
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1 after overlap drop", len(spans))
	}
}

func TestSubstituteTokenMismatch(t *testing.T) {
	_, _, err := Substitute("hello", []Replacement{{Start: 0, End: 5, Token: "world", Surface: "x"}})
	if err == nil {
		t.Fatal("want error on token mismatch")
	}
	if !strings.Contains(err.Error(), "want token") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSubstituteDuplicateStart(t *testing.T) {
	_, _, err := Substitute("ab", []Replacement{
		{Start: 0, End: 1, Token: "a", Surface: "x"},
		{Start: 0, End: 2, Token: "ab", Surface: "y"},
	})
	if err == nil {
		t.Fatal("want error on duplicate start offset")
	}
}

func TestSubstituteOutOfRange(t *testing.T) {
	_, _, err := Substitute("ab", []Replacement{{Start: 1, End: 5, Token: "b", Surface: "x"}})
	if err == nil {
		t.Fatal("want error on out-of-range offsets")
	}
}

func TestSubstituteEmptySurface(t *testing.T) {
	out, spans, err := Substitute("x REFTOKEN0 y", []Replacement{
		{Start: 2, End: 11, Token: "REFTOKEN0", Surface: ""},
	})
	if err != nil {
		t.Fatalf("Substitute: %v", err)
	}
	if out != "x  y" {
		t.Fatalf("got %q", out)
	}
	if spans[0].Start != spans[0].End {
		t.Errorf("empty surface should yield zero-length span, got [%d, %d)", spans[0].Start, spans[0].End)
	}
}
