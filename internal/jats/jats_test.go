// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package jats

import (
	"strings"
	"testing"

	"github.com/meshintel/paperjson/pkg/types"
)

const fixtureJATS = `<article>
<front>
<journal-meta>
<journal-title-group><journal-title>Journal of Widgets</journal-title></journal-title-group>
</journal-meta>
<article-meta>
<article-id pub-id-type="pmc">7654321</article-id>
<article-id pub-id-type="doi">10.1000/jw.2020.1</article-id>
<article-id pub-id-type="pmid">31234567</article-id>
<title-group><article-title>Widget Dynamics</article-title></title-group>
<contrib-group>
<contrib contrib-type="author"><name><surname>Doe</surname><given-names>Jane A</given-names></name><email>jane@example.org</email><xref ref-type="aff" rid="aff1"/></contrib>
</contrib-group>
<aff id="aff1"><label>1</label>University of Examples</aff>
<pub-date pub-type="epub"><day>5</day><month>3</month><year>2020</year></pub-date>
<abstract><p>Widgets matter.</p></abstract>
</article-meta>
</front>
<body>
<sec><title>Introduction</title>
<p>Early work <xref ref-type="bibr" rid="B2">[2]</xref> studied <xref ref-type="fig" rid="f1">Figure 1</xref>.</p>
</sec>
<sec><title>Discussion</title>
<sec><title>Motivation</title>
<p>Tables such as <xref ref-type="table" rid="t1">Table 1</xref> show <inline-formula><mml:math xmlns:mml="http://www.w3.org/1998/Math/MathML"><mml:mi>x</mml:mi></mml:math></inline-formula> trends.</p>
</sec>
</sec>
<fig id="f1"><label>Figure 1</label><caption><p>A widget.</p></caption></fig>
<table-wrap id="t1"><label>Table 1</label><caption><p>Widget stats.</p></caption><table><tr><td>a</td></tr></table></table-wrap>
</body>
<back>
<ack><title>Acknowledgments</title><p>Thanks all.</p></ack>
<ref-list>
<ref id="B1"><label>1</label><element-citation><article-title>Old widgets</article-title><year>1999</year></element-citation></ref>
<ref id="B2"><label>2</label><element-citation><person-group person-group-type="author"><name><surname>Roe</surname><given-names>John</given-names></name></person-group><article-title>New widgets</article-title><source>J Widgets</source><volume>5</volume><issue>2</issue><fpage>10</fpage><lpage>20</lpage><year>2020</year><pub-id pub-id-type="doi">10.1000/x</pub-id></element-citation></ref>
</ref-list>
</back>
</article>`

func convertFixture(t *testing.T) *types.Paper {
	t.Helper()
	paper, diags, err := Convert([]byte(fixtureJATS), "PMC7654321")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	for _, d := range diags {
		t.Errorf("unexpected diagnostic: %v", d)
	}
	return paper
}

func checkSpanInvariant(t *testing.T, text string, start, end int, want string) {
	t.Helper()
	if start < 0 || end > len(text) || start >= end {
		t.Fatalf("span [%d,%d) out of range for %q", start, end, text)
	}
	if got := text[start:end]; got != want {
		t.Errorf("text[%d:%d] = %q, want %q", start, end, got, want)
	}
}

func TestConvertMetadata(t *testing.T) {
	paper := convertFixture(t)
	meta := paper.Metadata
	if meta.Title != "Widget Dynamics" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.Venue != "Journal of Widgets" {
		t.Errorf("venue = %q", meta.Venue)
	}
	if meta.Year != "2020-3-5" {
		t.Errorf("year = %q", meta.Year)
	}
	if meta.Identifiers["doi"] != "10.1000/jw.2020.1" ||
		meta.Identifiers["pubmed_id"] != "31234567" ||
		meta.Identifiers["pmc_id"] != "PMC7654321" {
		t.Errorf("identifiers = %v", meta.Identifiers)
	}
	if len(meta.Authors) != 1 {
		t.Fatalf("authors = %v", meta.Authors)
	}
	author := meta.Authors[0]
	if author.Last != "Doe" || author.First != "Jane" {
		t.Errorf("author name = %+v", author)
	}
	if len(author.Middle) != 1 || author.Middle[0] != "A" {
		t.Errorf("author middle = %v", author.Middle)
	}
	if author.Email != "jane@example.org" {
		t.Errorf("author email = %q", author.Email)
	}
	if author.Affiliation == nil || author.Affiliation.Institution != "University of Examples" {
		t.Errorf("author affiliation = %+v", author.Affiliation)
	}
}

func TestConvertRenumbering(t *testing.T) {
	paper := convertFixture(t)

	fig, ok := paper.RefEntries["FIGREF0"]
	if !ok || fig.Type != types.RefFigure {
		t.Fatalf("FIGREF0 = %+v, ok = %v", fig, ok)
	}
	if fig.Text != "Figure 1: A widget." {
		t.Errorf("figure text = %q", fig.Text)
	}

	tab, ok := paper.RefEntries["TABREF0"]
	if !ok || tab.Type != types.RefTable {
		t.Fatalf("TABREF0 = %+v, ok = %v", tab, ok)
	}
	if tab.Text != "Table 1: Widget stats." {
		t.Errorf("table text = %q", tab.Text)
	}
	if !strings.Contains(tab.Content, "<td>a</td>") {
		t.Errorf("table content = %q", tab.Content)
	}

	if _, ok := paper.BibEntries["BIBREF0"]; !ok {
		t.Fatalf("BIBREF0 missing; have %v", paper.BibEntries)
	}
	entry := paper.BibEntries["BIBREF1"]
	if entry.Title != "New widgets" || entry.Venue != "J Widgets" {
		t.Errorf("BIBREF1 = %+v", entry)
	}
	if entry.Volume != "5" || entry.Issue != "2" || entry.Pages != "10-20" {
		t.Errorf("BIBREF1 scope = %+v", entry)
	}
	if entry.Year == nil || *entry.Year != 2020 {
		t.Errorf("BIBREF1 year = %v", entry.Year)
	}
	if len(entry.Authors) != 1 || entry.Authors[0].Last != "Roe" {
		t.Errorf("BIBREF1 authors = %v", entry.Authors)
	}
	if len(entry.OtherIDs["DOI"]) != 1 || entry.OtherIDs["DOI"][0] != "10.1000/x" {
		t.Errorf("BIBREF1 ids = %v", entry.OtherIDs)
	}
}

func TestConvertBodySpansRelinked(t *testing.T) {
	paper := convertFixture(t)
	if len(paper.BodyText) != 2 {
		t.Fatalf("body paragraphs = %d: %+v", len(paper.BodyText), paper.BodyText)
	}

	intro := paper.BodyText[0]
	if intro.Text != "Early work [2] studied Figure 1 ." {
		t.Fatalf("intro text = %q", intro.Text)
	}
	if len(intro.CiteSpans) != 1 {
		t.Fatalf("intro cite spans = %+v", intro.CiteSpans)
	}
	cite := intro.CiteSpans[0]
	if cite.Text != "[2]" || cite.RefID != "BIBREF1" {
		t.Errorf("cite span = %+v", cite)
	}
	checkSpanInvariant(t, intro.Text, cite.Start, cite.End, cite.Text)
	if len(intro.RefSpans) != 1 {
		t.Fatalf("intro ref spans = %+v", intro.RefSpans)
	}
	ref := intro.RefSpans[0]
	if ref.Text != "Figure 1" || ref.RefID != "FIGREF0" {
		t.Errorf("ref span = %+v", ref)
	}
	checkSpanInvariant(t, intro.Text, ref.Start, ref.End, ref.Text)
	if got := intro.Section.String(); got != "Introduction" {
		t.Errorf("intro section = %q", got)
	}

	nested := paper.BodyText[1]
	if nested.Text != "Tables such as Table 1 show x trends." {
		t.Fatalf("nested text = %q", nested.Text)
	}
	if len(nested.RefSpans) != 1 || nested.RefSpans[0].RefID != "TABREF0" {
		t.Errorf("nested ref spans = %+v", nested.RefSpans)
	}
	checkSpanInvariant(t, nested.Text, nested.RefSpans[0].Start, nested.RefSpans[0].End, "Table 1")
	if len(nested.EqSpans) != 1 {
		t.Fatalf("nested eq spans = %+v", nested.EqSpans)
	}
	eq := nested.EqSpans[0]
	checkSpanInvariant(t, nested.Text, eq.Start, eq.End, "x")
	if !strings.Contains(eq.MathML, "math") {
		t.Errorf("eq mathml = %q", eq.MathML)
	}
	if got := nested.Section.String(); got != "Discussion::Motivation" {
		t.Errorf("nested section = %q", got)
	}
}

func TestConvertAbstractAndBackMatter(t *testing.T) {
	paper := convertFixture(t)
	if len(paper.Abstract) != 1 || paper.Abstract[0].Text != "Widgets matter." {
		t.Fatalf("abstract = %+v", paper.Abstract)
	}
	if got := paper.Abstract[0].Section.String(); got != "Abstract" {
		t.Errorf("abstract section = %q", got)
	}
	if len(paper.BackMatter) != 1 || paper.BackMatter[0].Text != "Thanks all." {
		t.Fatalf("back matter = %+v", paper.BackMatter)
	}
	if got := paper.BackMatter[0].Section.String(); got != "Acknowledgments" {
		t.Errorf("back matter section = %q", got)
	}
}

func TestConvertUnlinkedSpanStaysUnlinked(t *testing.T) {
	xml := `<article><body><sec><title>S</title>
<p>See <xref ref-type="fig" rid="nosuch">Figure 9</xref>.</p>
</sec></body></article>`
	paper, _, err := Convert([]byte(xml), "X")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(paper.BodyText) != 1 || len(paper.BodyText[0].RefSpans) != 1 {
		t.Fatalf("body = %+v", paper.BodyText)
	}
	if got := paper.BodyText[0].RefSpans[0].RefID; got != "" {
		t.Errorf("ref id = %q, want unlinked", got)
	}
}
