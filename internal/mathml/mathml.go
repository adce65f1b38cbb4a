// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mathml converts LaTeX math fragments to MathML markup.
package mathml

import (
	"bytes"
	"fmt"
	"strings"

	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		treeblood.MathML(),
	),
)

// FromLatex converts a LaTeX math fragment (without delimiters) to a MathML
// element string. Callers treat a failure as a degraded formula and keep the
// LaTeX source; they do not abort the document.
func FromLatex(latex string) (string, error) {
	latex = strings.TrimSpace(latex)
	if latex == "" {
		return "", fmt.Errorf("empty latex fragment")
	}

	source := "$$" + latex + "$$"
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("converting latex to mathml: %w", err)
	}

	out := buf.String()
	start := strings.Index(out, "<math")
	if start < 0 {
		return "", fmt.Errorf("no math element in rendered output")
	}
	end := strings.Index(out[start:], "</math>")
	if end < 0 {
		return "", fmt.Errorf("unterminated math element in rendered output")
	}
	return out[start : start+end+len("</math>")], nil
}
