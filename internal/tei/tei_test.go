// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tei

import (
	"strings"
	"testing"

	"github.com/meshintel/paperjson/pkg/types"
)

const fixtureTEI = `<TEI xmlns="http://www.tei-c.org/ns/1.0">
 <teiHeader>
  <fileDesc>
   <titleStmt><title level="a" type="main">Adaptive Span Widgets</title></titleStmt>
   <publicationStmt><date type="published" when="2021-05-10">10 May 2021</date></publicationStmt>
   <sourceDesc><biblStruct><analytic>
     <author>
       <persName><forename type="first">Jane</forename><surname>Doe</surname></persName>
       <email>jane@example.org</email>
       <affiliation><orgName type="institution">Example University</orgName><address><settlement>Springfield</settlement><country>USA</country></address></affiliation>
     </author>
     <author><persName><forename type="first">John</forename><forename type="middle">Q</forename><surname>Roe</surname></persName></author>
   </analytic></biblStruct></sourceDesc>
  </fileDesc>
 </teiHeader>
 <text>
  <body>
   <div><head n="1">Introduction</head>
     <p>Prior work <ref type="bibr" target="#b0">[1]</ref>-<ref type="bibr" target="#b3">[4]</ref> explored spans.</p>
     <p>Details in <ref type="figure" target="#fig_0">Figure 1</ref> and <ref type="table" target="#tab_0">Table 1</ref>.</p>
     <formula xml:id="formula_0">E = mc^2<label>(1)</label></formula>
   </div>
   <div><p>More context <ref type="bibr" target="#b0">[1]</ref> <ref type="bibr" target="#b1">[2]</ref> <ref type="bibr" target="#b2">[3]</ref> <ref type="bibr" target="#b3">[6]</ref> <ref type="bibr" target="#b0">[7]</ref> <ref type="bibr" target="#b1">[8]</ref>.</p></div>
   <figure xml:id="fig_0"><head>Figure 1</head><figDesc>A figure caption.</figDesc></figure>
   <figure xml:id="tab_0" type="table"><head>Table 1</head><figDesc>A table caption.</figDesc><table><row><cell>a</cell><cell cols="2">b</cell></row></table></figure>
  </body>
  <back>
   <div type="acknowledgement"><div><head>Acknowledgments</head><p>Thanks to everyone.</p></div></div>
   <div type="references">
    <listBibl>
     <biblStruct xml:id="b0"><analytic><title level="a">First cited paper</title><author><persName><forename type="first">Alice</forename><surname>Archer</surname></persName></author></analytic><monogr><title level="j">Journal of Tests</title><imprint><biblScope unit="volume">7</biblScope><biblScope unit="page" from="1" to="10"/><date type="published" when="2019"/></imprint></monogr><idno type="DOI">10.1000/x1</idno></biblStruct>
     <biblStruct xml:id="b1"><analytic><title level="a">Second cited paper</title></analytic><monogr><imprint><date type="published" when="2018"/></imprint></monogr></biblStruct>
     <biblStruct xml:id="b2"><analytic><title level="a">Third cited paper</title></analytic><monogr><imprint/></monogr></biblStruct>
     <biblStruct xml:id="b3"><analytic><title level="a">Fourth cited paper</title></analytic><monogr><imprint/></monogr></biblStruct>
    </listBibl>
   </div>
  </back>
 </text>
</TEI>`

func convertFixture(t *testing.T) *types.Paper {
	t.Helper()
	paper, diags, err := Convert([]byte(fixtureTEI), "paper0", "deadbeef")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	return paper
}

func TestConvertMetadata(t *testing.T) {
	paper := convertFixture(t)

	if paper.Metadata.Title != "Adaptive Span Widgets" {
		t.Errorf("title = %q", paper.Metadata.Title)
	}
	if paper.Metadata.Year != "2021-05-10" {
		t.Errorf("year = %q", paper.Metadata.Year)
	}
	if len(paper.Metadata.Authors) != 2 {
		t.Fatalf("got %d authors, want 2", len(paper.Metadata.Authors))
	}
	jane := paper.Metadata.Authors[0]
	if jane.First != "Jane" || jane.Last != "Doe" {
		t.Errorf("author 0 = %+v", jane)
	}
	if jane.Email != "jane@example.org" {
		t.Errorf("email = %q", jane.Email)
	}
	if jane.Affiliation == nil || jane.Affiliation.Institution != "Example University" {
		t.Errorf("affiliation = %+v", jane.Affiliation)
	}
	if jane.Affiliation.Location["settlement"] != "Springfield" {
		t.Errorf("location = %v", jane.Affiliation.Location)
	}
	john := paper.Metadata.Authors[1]
	if john.First != "John" || len(john.Middle) != 1 || john.Middle[0] != "Q" || john.Last != "Roe" {
		t.Errorf("author 1 = %+v", john)
	}
}

func TestConvertBibliography(t *testing.T) {
	paper := convertFixture(t)

	if len(paper.BibEntries) != 4 {
		t.Fatalf("got %d bib entries, want 4", len(paper.BibEntries))
	}
	b0, ok := paper.BibEntries["BIBREF0"]
	if !ok {
		t.Fatal("BIBREF0 missing")
	}
	if b0.Title != "First cited paper" {
		t.Errorf("title = %q", b0.Title)
	}
	if b0.Venue != "Journal of Tests" {
		t.Errorf("venue = %q", b0.Venue)
	}
	if b0.Volume != "7" {
		t.Errorf("volume = %q", b0.Volume)
	}
	if b0.Pages != "1--10" {
		t.Errorf("pages = %q", b0.Pages)
	}
	if b0.Year == nil || *b0.Year != 2019 {
		t.Errorf("year = %v", b0.Year)
	}
	if len(b0.OtherIDs["DOI"]) != 1 || b0.OtherIDs["DOI"][0] != "10.1000/x1" {
		t.Errorf("other ids = %v", b0.OtherIDs)
	}
	if len(b0.Authors) != 1 || b0.Authors[0].Last != "Archer" {
		t.Errorf("authors = %+v", b0.Authors)
	}
}

func TestConvertRefEntries(t *testing.T) {
	paper := convertFixture(t)

	fig, ok := paper.RefEntries["FIGREF0"]
	if !ok {
		t.Fatal("FIGREF0 missing")
	}
	if fig.Type != types.RefFigure || fig.Text != "A figure caption." {
		t.Errorf("figure entry = %+v", fig)
	}

	tab, ok := paper.RefEntries["TABREF0"]
	if !ok {
		t.Fatal("TABREF0 missing")
	}
	if tab.Type != types.RefTable || tab.Text != "A table caption." {
		t.Errorf("table entry = %+v", tab)
	}
	for _, want := range []string{"<table>", "<tr>", "<td>a</td>", `colspan="2"`} {
		if !strings.Contains(tab.Content, want) {
			t.Errorf("table content %q missing %q", tab.Content, want)
		}
	}
}

func TestConvertBracketRangeExpansion(t *testing.T) {
	paper := convertFixture(t)

	if len(paper.BodyText) < 1 {
		t.Fatal("no body text")
	}
	para := paper.BodyText[0]
	if para.Text != "Prior work [1] [2] [3] [4] explored spans." {
		t.Fatalf("text = %q", para.Text)
	}
	if len(para.CiteSpans) != 4 {
		t.Fatalf("got %d cite spans, want 4", len(para.CiteSpans))
	}
	wantIDs := []string{"BIBREF0", "BIBREF1", "BIBREF2", "BIBREF3"}
	for i, span := range para.CiteSpans {
		if span.RefID != wantIDs[i] {
			t.Errorf("span %d ref_id = %q, want %q", i, span.RefID, wantIDs[i])
		}
		if got := para.Text[span.Start:span.End]; got != span.Text {
			t.Errorf("span %d slices %q, want %q", i, got, span.Text)
		}
	}
	if para.Section.String() != "Introduction" {
		t.Errorf("section = %q", para.Section.String())
	}
	if len(para.Section) != 1 || para.Section[0].Num != "1" {
		t.Errorf("section path = %+v", para.Section)
	}
}

func TestConvertReferenceSpans(t *testing.T) {
	paper := convertFixture(t)

	para := paper.BodyText[1]
	if para.Text != "Details in Figure 1 and Table 1 ." {
		t.Fatalf("text = %q", para.Text)
	}
	if len(para.RefSpans) != 2 {
		t.Fatalf("got %d ref spans, want 2", len(para.RefSpans))
	}
	if para.RefSpans[0].RefID != "FIGREF0" || para.RefSpans[1].RefID != "TABREF0" {
		t.Errorf("ref ids = %q, %q", para.RefSpans[0].RefID, para.RefSpans[1].RefID)
	}
	for _, span := range para.RefSpans {
		if got := para.Text[span.Start:span.End]; got != span.Text {
			t.Errorf("span slices %q, want %q", got, span.Text)
		}
	}
}

func TestConvertDisplayEquation(t *testing.T) {
	paper := convertFixture(t)

	para := paper.BodyText[2]
	if para.Text != "EQUATION" {
		t.Fatalf("text = %q", para.Text)
	}
	if len(para.EqSpans) != 1 {
		t.Fatalf("got %d eq spans, want 1", len(para.EqSpans))
	}
	eq := para.EqSpans[0]
	if eq.Start != 0 || eq.End != 8 || eq.Text != "EQUATION" {
		t.Errorf("eq span = %+v", eq)
	}
	if eq.RawStr != "E = mc^2" {
		t.Errorf("raw_str = %q", eq.RawStr)
	}
	if eq.EqNum != "(1)" {
		t.Errorf("eq_num = %q", eq.EqNum)
	}
}

func TestConvertPerEntryCitations(t *testing.T) {
	paper := convertFixture(t)

	para := paper.BodyText[3]
	if len(para.CiteSpans) != 6 {
		t.Fatalf("got %d cite spans, want 6: %q", len(para.CiteSpans), para.Text)
	}
	for _, span := range para.CiteSpans {
		if got := para.Text[span.Start:span.End]; got != span.Text {
			t.Errorf("span slices %q, want %q", got, span.Text)
		}
	}
	if para.Section.String() != "" {
		t.Errorf("headless div should have empty section, got %q", para.Section.String())
	}
}

func TestConvertBackMatter(t *testing.T) {
	paper := convertFixture(t)

	if len(paper.BackMatter) != 1 {
		t.Fatalf("got %d back matter paragraphs, want 1", len(paper.BackMatter))
	}
	back := paper.BackMatter[0]
	if back.Text != "Thanks to everyone." {
		t.Errorf("text = %q", back.Text)
	}
	if back.Section.String() != "Acknowledgments" {
		t.Errorf("section = %q", back.Section.String())
	}
}
