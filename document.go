package pdfextract

import (
	"context"
	"fmt"
)

// Document is a parsed PDF as seen by the extractors. Implementations are
// supplied by a PDF backend (see the pdf, lpdf and pdfjs packages) and must
// be safe for concurrent use; the extractors never mutate them.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int

	// Page returns the page with the given 1-indexed number.
	Page(ctx context.Context, number int) (Page, error)
}

// Page gives access to a single page's content.
type Page interface {
	// TextContent returns the page's text fragments in content order.
	TextContent(ctx context.Context) ([]TextItem, error)

	// OperatorList returns the page's drawing operations in content order.
	OperatorList(ctx context.Context) ([]Operation, error)

	// ResolveObject returns the image object registered under name.
	// Names come from the first argument of image paint operations.
	ResolveObject(ctx context.Context, name string) (*RawImage, error)
}

// TextItem is one fragment of page text. Only Str takes part in text
// aggregation; the remaining fields are hints and may be zero.
type TextItem struct {
	Str      string
	X, Y     float64
	FontName string
	FontSize float64
}

// Operation is a single drawing instruction from a page's operator list.
//
// Operands are converted to plain Go values: numbers become float64, PDF
// names become string, PDF strings become []byte, arrays become []any and
// dictionaries map[string]any. For image paint operations Args[0] is the
// object reference name.
type Operation struct {
	Op   OpCode
	Args []any
}

// ObjectName returns the object reference name carried in Args[0].
func (o Operation) ObjectName() (string, bool) {
	if len(o.Args) == 0 {
		return "", false
	}
	name, ok := o.Args[0].(string)
	return name, ok && name != ""
}

// RawImage is a decoded image as delivered by a backend: packed 8-bit RGB,
// three bytes per pixel, rows top to bottom.
type RawImage struct {
	Data   []byte
	Width  int
	Height int
}

func (img *RawImage) String() string {
	return fmt.Sprintf("RawImage{%dx%d, %d bytes}", img.Width, img.Height, len(img.Data))
}

// Select returns a view of doc containing only the given 1-indexed pages,
// renumbered 1..len(pages) in the order given. It returns an error if a page
// number is out of range.
func Select(doc Document, pages []int) (Document, error) {
	n := doc.PageCount()
	for _, p := range pages {
		if p < 1 || p > n {
			return nil, fmt.Errorf("pdfextract: page %d out of range (1-%d)", p, n)
		}
	}
	return &subset{doc: doc, pages: append([]int(nil), pages...)}, nil
}

type subset struct {
	doc   Document
	pages []int
}

func (s *subset) PageCount() int { return len(s.pages) }

func (s *subset) Page(ctx context.Context, number int) (Page, error) {
	if number < 1 || number > len(s.pages) {
		return nil, fmt.Errorf("pdfextract: page %d out of range (1-%d)", number, len(s.pages))
	}
	return s.doc.Page(ctx, s.pages[number-1])
}
