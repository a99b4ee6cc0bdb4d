// Package pdftest builds small PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// Builder assembles a PDF from numbered object bodies and writes a classic
// cross-reference table for them.
type Builder struct {
	bodies [][]byte // object n is bodies[n-1]
}

// Reserve allocates an object number to be filled in later with Set.
func (b *Builder) Reserve() int {
	b.bodies = append(b.bodies, nil)
	return len(b.bodies)
}

// Set stores the body of object num.
func (b *Builder) Set(num int, body string) {
	b.bodies[num-1] = []byte(body)
}

// Add appends an object and returns its number.
func (b *Builder) Add(body string) int {
	n := b.Reserve()
	b.Set(n, body)
	return n
}

// Stream adds a stream object; /Length is appended to dict.
func (b *Builder) Stream(dict string, data []byte) int {
	var body bytes.Buffer
	fmt.Fprintf(&body, "<< %s /Length %d >>\nstream\n", dict, len(data))
	body.Write(data)
	body.WriteString("\nendstream")
	n := b.Reserve()
	b.bodies[n-1] = body.Bytes()
	return n
}

// Bytes writes the file with the given trailer entries besides /Size.
func (b *Builder) Bytes(trailer string) []byte {
	var out bytes.Buffer
	out.WriteString("%PDF-1.7\n")
	offsets := make([]int, len(b.bodies))
	for i, body := range b.bodies {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n", i+1)
		out.Write(body)
		out.WriteString("\nendobj\n")
	}
	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n0000000000 65535 f \n", len(b.bodies)+1)
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", len(b.bodies)+1, trailer, xref)
	return out.Bytes()
}

// Ref formats an indirect reference to object n.
func Ref(n int) string { return strconv.Itoa(n) + " 0 R" }

// Page is one page for Build: its content stream and extra resource
// entries, e.g. "/XObject << /Im1 7 0 R >>".
type Page struct {
	Content   string
	Resources string
}

// Build creates a document whose pages share a Helvetica font named F1.
// setup, if not nil, runs before the pages are written and returns extra
// resource entries added to every page.
func Build(pages []Page, setup func(b *Builder) string) []byte {
	b := &Builder{}
	catalog := b.Reserve()
	tree := b.Reserve()
	font := b.Add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	var shared string
	if setup != nil {
		shared = setup(b)
	}
	var kids []string
	for _, pg := range pages {
		cs := b.Stream("", []byte(pg.Content))
		p := b.Add(fmt.Sprintf(
			"<< /Type /Page /Parent %s /MediaBox [0 0 612 792] /Contents %s /Resources << /Font << /F1 %s >> %s %s >> >>",
			Ref(tree), Ref(cs), Ref(font), shared, pg.Resources))
		kids = append(kids, Ref(p))
	}
	b.Set(catalog, "<< /Type /Catalog /Pages "+Ref(tree)+" >>")
	b.Set(tree, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids)))
	return b.Bytes("/Root " + Ref(catalog))
}

// Text creates a document with one page per content stream.
func Text(contents ...string) []byte {
	pages := make([]Page, len(contents))
	for i, c := range contents {
		pages[i] = Page{Content: c}
	}
	return Build(pages, nil)
}

// OnePage creates a single-page document. add creates the objects the page
// refers to and returns the page's resource entries.
func OnePage(content string, add func(b *Builder) string) []byte {
	return Build([]Page{{Content: content}}, add)
}

// Deflate compresses data for /FlateDecode streams.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}
