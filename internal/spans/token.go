// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package spans

import "strconv"

// Placeholder token prefixes, one counter family per markup kind.
const (
	TokenCite        = "CITETOKEN"
	TokenRef         = "REFTOKEN"
	TokenInlineForm  = "INLINEFORM"
	TokenDisplayForm = "DISPLAYFORM"
)

// TokenGenerator produces paragraph-unique placeholder tokens for one
// family: CITETOKEN0, CITETOKEN1, ... Generators are cheap; create a fresh
// one per paragraph and per family so indices restart at zero.
type TokenGenerator struct {
	prefix string
	next   int
}

// NewTokenGenerator returns a generator for the given token prefix.
func NewTokenGenerator(prefix string) *TokenGenerator {
	return &TokenGenerator{prefix: prefix}
}

// Next returns a fresh token. Tokens from one generator never repeat.
func (g *TokenGenerator) Next() string {
	tok := g.prefix + strconv.Itoa(g.next)
	g.next++
	return tok
}
