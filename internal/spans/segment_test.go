// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package spans

import "testing"

func TestFlatten(t *testing.T) {
	cite := &Pending{Token: "CITETOKEN0", Surface: "[1]", Kind: KindCitation}
	segs := []Segment{
		TextSegment("Prior   work"),
		TokenSegment(cite),
		TextSegment("shows\nthis."),
	}
	text, placed := Flatten(segs)
	want := "Prior work CITETOKEN0 shows this."
	if text != want {
		t.Fatalf("got %q, want %q", text, want)
	}
	if len(placed) != 1 {
		t.Fatalf("got %d placed tokens, want 1", len(placed))
	}
	p := placed[0]
	if got := text[p.Start:p.End]; got != "CITETOKEN0" {
		t.Errorf("placed offsets slice %q, want token", got)
	}
}

func TestFlattenAdjacentTokens(t *testing.T) {
	a := &Pending{Token: "REFTOKEN0", Kind: KindRef}
	b := &Pending{Token: "REFTOKEN1", Kind: KindRef}
	text, placed := Flatten([]Segment{TokenSegment(a), TokenSegment(b)})
	want := " REFTOKEN0 REFTOKEN1 "
	if text != want {
		t.Fatalf("got %q, want %q", text, want)
	}
	for _, p := range placed {
		if got := text[p.Start:p.End]; got != p.Token {
			t.Errorf("offsets [%d, %d) slice %q, want %q", p.Start, p.End, got, p.Token)
		}
	}
}

func TestFlattenWhitespaceAcrossBoundaries(t *testing.T) {
	text, _ := Flatten([]Segment{
		TextSegment("a "),
		TextSegment("  b"),
		TextSegment("\tc\n"),
	})
	if text != "a b c " {
		t.Fatalf("got %q, want %q", text, "a b c ")
	}
}

func TestFlattenLeadingWhitespaceKept(t *testing.T) {
	text, _ := Flatten([]Segment{TextSegment("  x")})
	if text != " x" {
		t.Fatalf("got %q, want %q", text, " x")
	}
}

func TestResolve(t *testing.T) {
	cite := &Pending{Token: "CITETOKEN0", Surface: "[2]", RefID: "BIBREF1", Kind: KindCitation}
	ref := &Pending{Token: "REFTOKEN0", Surface: "Figure 3", RefID: "FIGREF2", Kind: KindRef}
	eq := &Pending{Token: "INLINEFORM0", Surface: "x^2", Latex: "x^2", Kind: KindInlineFormula}
	segs := []Segment{
		TextSegment("As shown in"),
		TokenSegment(cite),
		TextSegment(", the quantity"),
		TokenSegment(eq),
		TextSegment("grows (see"),
		TokenSegment(ref),
		TextSegment(")."),
	}
	text, res, err := Resolve(segs)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := "As shown in [2] , the quantity x^2 grows (see Figure 3 )."
	if text != want {
		t.Fatalf("got %q\nwant %q", text, want)
	}
	if len(res.Cite) != 1 || len(res.Ref) != 1 || len(res.Eq) != 1 {
		t.Fatalf("span counts = %d/%d/%d, want 1/1/1", len(res.Cite), len(res.Ref), len(res.Eq))
	}
	if got := text[res.Cite[0].Start:res.Cite[0].End]; got != "[2]" {
		t.Errorf("cite span slices %q", got)
	}
	if res.Cite[0].RefID != "BIBREF1" {
		t.Errorf("cite ref_id = %q", res.Cite[0].RefID)
	}
	if got := text[res.Ref[0].Start:res.Ref[0].End]; got != "Figure 3" {
		t.Errorf("ref span slices %q", got)
	}
	if got := text[res.Eq[0].Start:res.Eq[0].End]; got != "x^2" {
		t.Errorf("eq span slices %q", got)
	}
	if res.Eq[0].Latex != "x^2" {
		t.Errorf("eq latex = %q", res.Eq[0].Latex)
	}
}

func TestResolveDropsEmptySurfaces(t *testing.T) {
	ref := &Pending{Token: "REFTOKEN0", Surface: "", Kind: KindRef}
	segs := []Segment{TextSegment("before"), TokenSegment(ref), TextSegment("after")}
	text, res, err := Resolve(segs)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if text != "before  after" {
		t.Fatalf("got %q", text)
	}
	if len(res.Ref) != 0 {
		t.Errorf("zero-length span kept: %+v", res.Ref)
	}
}

func TestResolveDuplicateToken(t *testing.T) {
	a := &Pending{Token: "REFTOKEN0", Surface: "x", Kind: KindRef}
	b := &Pending{Token: "REFTOKEN0", Surface: "y", Kind: KindRef}
	_, _, err := Resolve([]Segment{TokenSegment(a), TokenSegment(b)})
	if err == nil {
		t.Fatal("want error on duplicate placeholder token")
	}
}
