// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package xmlutil holds etree traversal helpers shared by the format
// converters. Lookups match on local tag names so they work across the
// default-namespace documents the upstream tools emit.
package xmlutil

import (
	"strings"

	"github.com/beevik/etree"
)

// Text returns all character data under el in document order. Unlike
// etree's Element.Text this includes text inside and after child elements.
func Text(el *etree.Element) string {
	var b strings.Builder
	collectText(el, &b)
	return b.String()
}

func collectText(el *etree.Element, b *strings.Builder) {
	for _, child := range el.Child {
		switch c := child.(type) {
		case *etree.CharData:
			b.WriteString(c.Data)
		case *etree.Element:
			collectText(c, b)
		}
	}
}

// TextExcept is Text with one subtree omitted.
func TextExcept(el, skip *etree.Element) string {
	var b strings.Builder
	collectTextExcept(el, skip, &b)
	return b.String()
}

func collectTextExcept(el, skip *etree.Element, b *strings.Builder) {
	for _, child := range el.Child {
		switch c := child.(type) {
		case *etree.CharData:
			b.WriteString(c.Data)
		case *etree.Element:
			if c == skip {
				continue
			}
			collectTextExcept(c, skip, b)
		}
	}
}

// FindAll returns every descendant of el with the given local tag name, in
// document order. el itself is not included.
func FindAll(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			out = append(out, child)
		}
		out = append(out, FindAll(child, tag)...)
	}
	return out
}

// FindFirst returns the first descendant with the given local tag name, or
// nil.
func FindFirst(el *etree.Element, tag string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			return child
		}
		if found := FindFirst(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// Child returns the first direct child element with the given local tag
// name, or nil.
func Child(el *etree.Element, tag string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

// Detach removes el from its parent. A nil or already-detached element is
// a no-op.
func Detach(el *etree.Element) {
	if el == nil || el.Parent() == nil {
		return
	}
	el.Parent().RemoveChild(el)
}

// Attr returns the value of the named attribute, matching either the plain
// key or a namespaced form like "xml:id".
func Attr(el *etree.Element, key string) string {
	if v := el.SelectAttrValue(key, ""); v != "" {
		return v
	}
	if i := strings.Index(key, ":"); i < 0 {
		for _, a := range el.Attr {
			if a.Key == key {
				return a.Value
			}
		}
	}
	return ""
}
