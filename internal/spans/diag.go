// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package spans

import "fmt"

// ElementError records a markup element that could not be resolved while
// the rest of its paragraph was still processed.
type ElementError struct {
	Element string
	Err     error
}

func (e ElementError) Error() string {
	return fmt.Sprintf("%s: %v", e.Element, e.Err)
}

func (e ElementError) Unwrap() error { return e.Err }

// Diagnostics accumulates element failures for one paragraph or document
// region. A non-empty list does not invalidate the produced output.
type Diagnostics []ElementError

// Add appends a failure when err is non-nil.
func (d *Diagnostics) Add(element string, err error) {
	if err == nil {
		return
	}
	*d = append(*d, ElementError{Element: element, Err: err})
}
