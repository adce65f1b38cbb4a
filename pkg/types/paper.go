// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// GeneratorName and GeneratorVersion identify the producer in the release
// JSON header.
const (
	GeneratorName    = "paperjson"
	GeneratorVersion = "0.1.0"
)

// Span locates an annotated substring of a paragraph's text. The invariant
// text[Start:End] == Text holds for every span a converter emits. RefID is
// the canonical identifier of the referenced entity, or empty when the
// reference could not be resolved (serialized as null).
type Span struct {
	Start int
	End   int
	Text  string
	RefID string
}

type spanJSON struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Text  string  `json:"text"`
	RefID *string `json:"ref_id"`
}

func (s Span) MarshalJSON() ([]byte, error) {
	out := spanJSON{Start: s.Start, End: s.End, Text: s.Text}
	if s.RefID != "" {
		out.RefID = &s.RefID
	}
	return json.Marshal(out)
}

func (s *Span) UnmarshalJSON(data []byte) error {
	var in spanJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Start = in.Start
	s.End = in.End
	s.Text = in.Text
	s.RefID = ""
	if in.RefID != nil {
		s.RefID = *in.RefID
	}
	return nil
}

// EqSpan is a Span for an inline or display formula, carrying the LaTeX
// source and a derived MathML presentation string when conversion succeeded.
type EqSpan struct {
	Start  int
	End    int
	Text   string
	Latex  string
	MathML string
	RawStr string
	EqNum  string
	RefID  string
}

type eqSpanJSON struct {
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Text   string  `json:"text"`
	Latex  string  `json:"latex,omitempty"`
	MathML string  `json:"mathml,omitempty"`
	RawStr string  `json:"raw_str,omitempty"`
	EqNum  string  `json:"eq_num,omitempty"`
	RefID  *string `json:"ref_id"`
}

func (s EqSpan) MarshalJSON() ([]byte, error) {
	out := eqSpanJSON{
		Start:  s.Start,
		End:    s.End,
		Text:   s.Text,
		Latex:  s.Latex,
		MathML: s.MathML,
		RawStr: s.RawStr,
		EqNum:  s.EqNum,
	}
	if s.RefID != "" {
		out.RefID = &s.RefID
	}
	return json.Marshal(out)
}

func (s *EqSpan) UnmarshalJSON(data []byte) error {
	var in eqSpanJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = EqSpan{
		Start:  in.Start,
		End:    in.End,
		Text:   in.Text,
		Latex:  in.Latex,
		MathML: in.MathML,
		RawStr: in.RawStr,
		EqNum:  in.EqNum,
	}
	if in.RefID != nil {
		s.RefID = *in.RefID
	}
	return nil
}

// SectionPart is one level of a paragraph's section path. Num is the section
// number as printed in the document ("3.1"), empty when the section is
// unnumbered.
type SectionPart struct {
	Num   string
	Title string
}

// SectionPath orders section parts from the document root down to the
// paragraph's immediate section.
type SectionPath []SectionPart

// String joins the section titles with the "::" separator used in the
// release JSON.
func (p SectionPath) String() string {
	titles := make([]string, len(p))
	for i, part := range p {
		titles[i] = part.Title
	}
	return strings.Join(titles, "::")
}

// Paragraph is one unit of cleaned paper text with its resolved annotation
// spans. Paragraphs are immutable once assembled.
type Paragraph struct {
	Text      string
	CiteSpans []Span
	RefSpans  []Span
	EqSpans   []EqSpan
	Section   SectionPath
}

type paragraphJSON struct {
	Text      string   `json:"text"`
	CiteSpans []Span   `json:"cite_spans"`
	RefSpans  []Span   `json:"ref_spans"`
	EqSpans   []EqSpan `json:"eq_spans"`
	Section   string   `json:"section"`
	SecNum    *string  `json:"sec_num"`
}

func (p Paragraph) MarshalJSON() ([]byte, error) {
	out := paragraphJSON{
		Text:      p.Text,
		CiteSpans: p.CiteSpans,
		RefSpans:  p.RefSpans,
		EqSpans:   p.EqSpans,
		Section:   p.Section.String(),
	}
	if out.CiteSpans == nil {
		out.CiteSpans = []Span{}
	}
	if out.RefSpans == nil {
		out.RefSpans = []Span{}
	}
	if out.EqSpans == nil {
		out.EqSpans = []EqSpan{}
	}
	if len(p.Section) > 0 {
		if num := p.Section[len(p.Section)-1].Num; num != "" {
			out.SecNum = &num
		}
	}
	return json.Marshal(out)
}

func (p *Paragraph) UnmarshalJSON(data []byte) error {
	var in paragraphJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	p.Text = in.Text
	p.CiteSpans = in.CiteSpans
	p.RefSpans = in.RefSpans
	p.EqSpans = in.EqSpans
	p.Section = nil
	if in.Section != "" {
		for _, title := range strings.Split(in.Section, "::") {
			p.Section = append(p.Section, SectionPart{Title: title})
		}
		if in.SecNum != nil {
			p.Section[len(p.Section)-1].Num = *in.SecNum
		}
	}
	return nil
}

// Affiliation describes an author's institutional affiliation. Location keys
// follow the source markup (settlement, region, country, postCode, ...).
type Affiliation struct {
	Laboratory  string            `json:"laboratory"`
	Institution string            `json:"institution"`
	Location    map[string]string `json:"location"`
}

// Author is a paper or bibliography author with the name split into parts.
type Author struct {
	First       string       `json:"first"`
	Middle      []string     `json:"middle"`
	Last        string       `json:"last"`
	Suffix      string       `json:"suffix"`
	Affiliation *Affiliation `json:"affiliation,omitempty"`
	Email       string       `json:"email,omitempty"`
}

// BibEntry is one resolved bibliography entry, keyed in Paper.BibEntries by
// its canonical BIBREF identifier.
type BibEntry struct {
	RefID    string              `json:"ref_id,omitempty"`
	Title    string              `json:"title"`
	Authors  []Author            `json:"authors"`
	Year     *int                `json:"year"`
	Venue    string              `json:"venue"`
	Volume   string              `json:"volume"`
	Issue    string              `json:"issue"`
	Pages    string              `json:"pages"`
	OtherIDs map[string][]string `json:"other_ids"`
	Num      int                 `json:"num,omitempty"`
	URLs     []string            `json:"urls,omitempty"`
	RawText  string              `json:"raw_text,omitempty"`
}

// RefEntryType enumerates the kinds of referenceable entities.
type RefEntryType string

const (
	RefFigure   RefEntryType = "figure"
	RefTable    RefEntryType = "table"
	RefEquation RefEntryType = "equation"
	RefFootnote RefEntryType = "footnote"
	RefSection  RefEntryType = "section"
)

// RefEntry is one figure, table, equation, footnote, or section, keyed in
// Paper.RefEntries by its canonical identifier. Parent is set only for
// sections and names the enclosing section's identifier, allowing section
// paths to be rebuilt by walking parent links to the root.
type RefEntry struct {
	Type    RefEntryType `json:"type"`
	Text    string       `json:"text"`
	Latex   string       `json:"latex,omitempty"`
	MathML  string       `json:"mathml,omitempty"`
	Content string       `json:"content,omitempty"`
	URIs    []string     `json:"uris,omitempty"`
	Num     string       `json:"num,omitempty"`
	Parent  string       `json:"parent,omitempty"`
}

// Metadata is the paper-level bibliographic information.
type Metadata struct {
	Title       string            `json:"title"`
	Authors     []Author          `json:"authors"`
	Year        string            `json:"year"`
	Venue       string            `json:"venue,omitempty"`
	Identifiers map[string]string `json:"identifiers,omitempty"`
}

// Paper is the normalized representation of one document: metadata, ordered
// paragraphs, and the two per-document registries.
type Paper struct {
	PaperID    string
	PDFHash    string
	Metadata   Metadata
	Abstract   []Paragraph
	BodyText   []Paragraph
	BackMatter []Paragraph
	BibEntries map[string]BibEntry
	RefEntries map[string]RefEntry
}

// RawAbstract returns the abstract paragraphs joined by newlines.
func (p *Paper) RawAbstract() string {
	parts := make([]string, len(p.Abstract))
	for i, para := range p.Abstract {
		parts[i] = para.Text
	}
	return strings.Join(parts, "\n")
}

// Header records provenance in the release JSON.
type Header struct {
	GeneratedWith string `json:"generated_with"`
	DateGenerated string `json:"date_generated"`
}

// Parse is the per-source-kind block of the release JSON.
type Parse struct {
	PaperID    string              `json:"paper_id"`
	PDFHash    string              `json:"_pdf_hash"`
	Abstract   []Paragraph         `json:"abstract"`
	BodyText   []Paragraph         `json:"body_text"`
	BackMatter []Paragraph         `json:"back_matter"`
	BibEntries map[string]BibEntry `json:"bib_entries"`
	RefEntries map[string]RefEntry `json:"ref_entries"`
}

// Release is the top-level output contract. Exactly one of the parse blocks
// is populated, according to the source the paper was converted from.
type Release struct {
	PaperID    string   `json:"paper_id"`
	Header     Header   `json:"header"`
	Title      string   `json:"title"`
	Authors    []Author `json:"authors"`
	Year       string   `json:"year"`
	Abstract   string   `json:"abstract"`
	PDFParse   *Parse   `json:"pdf_parse,omitempty"`
	LatexParse *Parse   `json:"latex_parse,omitempty"`
	JATSParse  *Parse   `json:"jats_parse,omitempty"`
}

// SourceKind selects which parse block a Release carries.
type SourceKind string

const (
	SourcePDF   SourceKind = "pdf"
	SourceLatex SourceKind = "latex"
	SourceJATS  SourceKind = "jats"
)

// Release builds the output contract for the paper. Only the header's
// timestamp varies between calls for the same paper.
func (p *Paper) Release(kind SourceKind) *Release {
	parse := &Parse{
		PaperID:    p.PaperID,
		PDFHash:    p.PDFHash,
		Abstract:   emptyIfNil(p.Abstract),
		BodyText:   emptyIfNil(p.BodyText),
		BackMatter: emptyIfNil(p.BackMatter),
		BibEntries: p.BibEntries,
		RefEntries: p.RefEntries,
	}
	if parse.BibEntries == nil {
		parse.BibEntries = map[string]BibEntry{}
	}
	if parse.RefEntries == nil {
		parse.RefEntries = map[string]RefEntry{}
	}

	rel := &Release{
		PaperID: p.PaperID,
		Header: Header{
			GeneratedWith: GeneratorName + " " + GeneratorVersion,
			DateGenerated: time.Now().UTC().Format(time.RFC3339),
		},
		Title:    p.Metadata.Title,
		Authors:  emptyIfNil(p.Metadata.Authors),
		Year:     p.Metadata.Year,
		Abstract: p.RawAbstract(),
	}
	switch kind {
	case SourceLatex:
		rel.LatexParse = parse
	case SourceJATS:
		rel.JATSParse = parse
	default:
		rel.PDFParse = parse
	}
	return rel
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// LoadPaper reads a previously produced release JSON back into a Paper.
// Re-serializing the result reproduces identical parse content; only the
// header timestamp differs.
func LoadPaper(data []byte) (*Paper, SourceKind, error) {
	var rel Release
	if err := json.Unmarshal(data, &rel); err != nil {
		return nil, "", fmt.Errorf("decoding release JSON: %w", err)
	}

	var (
		parse *Parse
		kind  SourceKind
	)
	switch {
	case rel.PDFParse != nil:
		parse, kind = rel.PDFParse, SourcePDF
	case rel.LatexParse != nil:
		parse, kind = rel.LatexParse, SourceLatex
	case rel.JATSParse != nil:
		parse, kind = rel.JATSParse, SourceJATS
	default:
		return nil, "", fmt.Errorf("release JSON for %s has no parse block", rel.PaperID)
	}

	return &Paper{
		PaperID: rel.PaperID,
		PDFHash: parse.PDFHash,
		Metadata: Metadata{
			Title:   rel.Title,
			Authors: rel.Authors,
			Year:    rel.Year,
		},
		Abstract:   parse.Abstract,
		BodyText:   parse.BodyText,
		BackMatter: parse.BackMatter,
		BibEntries: parse.BibEntries,
		RefEntries: parse.RefEntries,
	}, kind, nil
}
