package pdfextract

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the library. Use [errors.Is] to test for them;
// the concrete error is usually a [*PageError] or [*ImageError].
var (
	// ErrMalformedBuffer is returned when a raw image buffer is shorter than
	// width*height*3 bytes or its dimensions are not positive.
	ErrMalformedBuffer = errors.New("pdfextract: malformed pixel buffer")

	// ErrPageAccess is returned when a page or its text content cannot be
	// retrieved.
	ErrPageAccess = errors.New("pdfextract: page access failed")

	// ErrOperatorList is returned when a page's operator list cannot be
	// retrieved.
	ErrOperatorList = errors.New("pdfextract: operator list unavailable")

	// ErrImageResolution is returned when an image object referenced by a
	// paint operator cannot be resolved by name.
	ErrImageResolution = errors.New("pdfextract: image object not resolved")
)

// PageError records a failure tied to a single page.
type PageError struct {
	Page int    // 1-indexed page number
	Op   string // accessor that failed, e.g. "text content"
	Kind error  // one of the package sentinels
	Err  error  // underlying cause, may be nil
}

func (e *PageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: page %d: %s", e.Kind, e.Page, e.Op)
	}
	return fmt.Sprintf("%v: page %d: %s: %v", e.Kind, e.Page, e.Op, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *PageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ImageError records a failure tied to one image reference on a page.
type ImageError struct {
	Page int
	Name string
	Kind error
	Err  error
}

func (e *ImageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: page %d: image %q", e.Kind, e.Page, e.Name)
	}
	return fmt.Sprintf("%v: page %d: image %q: %v", e.Kind, e.Page, e.Name, e.Err)
}

func (e *ImageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
