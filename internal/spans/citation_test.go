// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package spans

import "testing"

func TestIsBracketStyle(t *testing.T) {
	tests := []struct {
		name     string
		surfaces []string
		want     bool
	}{
		{
			name:     "mostly brackets",
			surfaces: []string{"[1]", "[2]", "[3,4]", "[5]", "[6-8]", "[9]"},
			want:     true,
		},
		{
			name:     "at threshold is not bracket style",
			surfaces: []string{"[1]", "[2]", "[3]", "[4]", "[5]"},
			want:     false,
		},
		{
			name:     "author year",
			surfaces: []string{"(Smith, 2019)", "(Doe et al., 2020)", "Smith (2019)"},
			want:     false,
		},
		{
			name:     "empty",
			surfaces: nil,
			want:     false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBracketStyle(tt.surfaces); got != tt.want {
				t.Errorf("IsBracketStyle(%v) = %v, want %v", tt.surfaces, got, tt.want)
			}
		})
	}
}

func TestIsExpansionString(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: "-", want: true},
		{in: "–", want: true},
		{in: " -", want: true},
		{in: "- ", want: true},
		{in: "  ", want: false},
		{in: ",", want: false},
		{in: " - ", want: false},
		{in: "", want: false},
		{in: "and", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := IsExpansionString(tt.in); got != tt.want {
				t.Errorf("IsExpansionString(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSurfaceRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		wantA      int
		wantB      int
		ok         bool
	}{
		{name: "small range", start: "[1]", end: "[4]", wantA: 1, wantB: 4, ok: true},
		{name: "adjacent is not a range", start: "[1]", end: "[2]", ok: false},
		{name: "too wide", start: "[1]", end: "[25]", ok: false},
		{name: "descending", start: "[4]", end: "[1]", ok: false},
		{name: "non-bracket surface", start: "(Smith, 2019)", end: "[4]", ok: false},
		{name: "group surface", start: "[1,2]", end: "[4]", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b, ok := SurfaceRange(tt.start, tt.end)
			if ok != tt.ok {
				t.Fatalf("SurfaceRange(%q, %q) ok = %v, want %v", tt.start, tt.end, ok, tt.ok)
			}
			if ok && (a != tt.wantA || b != tt.wantB) {
				t.Errorf("SurfaceRange(%q, %q) = (%d, %d), want (%d, %d)", tt.start, tt.end, a, b, tt.wantA, tt.wantB)
			}
		})
	}
}

func TestExpandSurfaceRange(t *testing.T) {
	got := ExpandSurfaceRange(1, 4)
	want := []string{"[1]", "[2]", "[3]", "[4]"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExpandIdentifierRange(t *testing.T) {
	start := Identifier{Family: FamilyBib, Num: 0}
	end := Identifier{Family: FamilyBib, Num: 3}
	got := ExpandIdentifierRange(start, end)
	if len(got) != 4 {
		t.Fatalf("got %d identifiers, want 4", len(got))
	}
	for i, id := range got {
		if id.Family != FamilyBib || id.Num != i {
			t.Errorf("element %d = %v, want BIBREF%d", i, id, i)
		}
	}
	if ExpandIdentifierRange(end, start) != nil {
		t.Error("descending range should return nil")
	}
}

func TestBracketRegexGroups(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: "[1]", want: true},
		{in: "[1,2,3]", want: true},
		{in: "[1; 2]", want: true},
		{in: "[3-5]", want: true},
		{in: "[12;]", want: true},
		{in: "[0]", want: false},
		{in: "[1000]", want: false},
		{in: "(1)", want: false},
		{in: "see [1]", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := BracketRegex.MatchString(tt.in); got != tt.want {
				t.Errorf("BracketRegex.MatchString(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
