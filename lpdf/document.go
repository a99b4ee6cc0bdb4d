// Package lpdf is a [pdfextract.Document] backend built on
// github.com/ledongthuc/pdf.
//
// The underlying reader is lenient about page trees but only understands
// the Flate and ASCII85 stream filters, so JPEG and other image-encoded
// XObjects are reported with [ErrUnsupportedImage]. Panics raised by the
// reader on malformed input are recovered and returned as errors.
package lpdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ledongthuc/pdf"

	pdfextract "github.com/porticus-lab/go-pdf-extract"
)

var (
	// ErrMalformed is returned when the reader gives up on the file.
	ErrMalformed = errors.New("lpdf: malformed document")

	// ErrNoSuchImage is returned by ResolveObject for names that no image
	// paint operator on the page referred to.
	ErrNoSuchImage = errors.New("lpdf: no such image")

	// ErrUnsupportedImage is returned for images the reader cannot decode.
	ErrUnsupportedImage = errors.New("lpdf: unsupported image")
)

// Document is a PDF read with github.com/ledongthuc/pdf.
type Document struct {
	r      *pdf.Reader
	closer io.Closer
	pages  int

	// mu serialises access to the reader, which shares one file handle.
	mu    sync.Mutex
	cache map[int]*Page
}

var _ pdfextract.Document = (*Document)(nil)

// Open reads the PDF file at path. The file stays open until Close.
func Open(path string) (*Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lpdf: opening %s: %w", path, err)
	}
	doc, err := newDocument(r, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return doc, nil
}

// Load reads a PDF held in memory.
func Load(data []byte) (*Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("lpdf: %w", err)
	}
	return newDocument(r, nil)
}

func newDocument(r *pdf.Reader, closer io.Closer) (doc *Document, err error) {
	defer recoverInto(&err)
	return &Document{
		r:      r,
		closer: closer,
		pages:  r.NumPage(),
		cache:  make(map[int]*Page),
	}, nil
}

// Close releases the file opened by Open. It is a no-op for Load.
func (doc *Document) Close() error {
	if doc.closer == nil {
		return nil
	}
	return doc.closer.Close()
}

// PageCount returns the /Count of the page tree root.
func (doc *Document) PageCount() int { return doc.pages }

// Page returns the 1-indexed page number.
func (doc *Document) Page(ctx context.Context, number int) (pdfextract.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if number < 1 || number > doc.pages {
		return nil, fmt.Errorf("lpdf: page %d out of range (1-%d)", number, doc.pages)
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()
	if p, ok := doc.cache[number]; ok {
		return p, nil
	}
	pg, err := doc.lookup(number)
	if err != nil {
		return nil, err
	}
	p := &Page{doc: doc, number: number, pg: pg}
	doc.cache[number] = p
	return p, nil
}

func (doc *Document) lookup(number int) (pg pdf.Page, err error) {
	defer recoverInto(&err)
	pg = doc.r.Page(number)
	if pg.V.IsNull() {
		return pg, fmt.Errorf("%w: page %d not found in page tree", ErrMalformed, number)
	}
	return pg, nil
}

// Info returns the document information dictionary as text.
func (doc *Document) Info() (info map[string]string, err error) {
	doc.mu.Lock()
	defer doc.mu.Unlock()
	defer recoverInto(&err)
	v := doc.r.Trailer().Key("Info")
	info = make(map[string]string)
	for _, k := range v.Keys() {
		switch e := v.Key(k); e.Kind() {
		case pdf.String:
			info[k] = e.Text()
		case pdf.Name:
			info[k] = e.Name()
		}
	}
	return info, nil
}

// recoverInto turns a panic from the reader into an error.
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrMalformed, r)
	}
}
