package lpdf

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/ledongthuc/pdf"

	pdfextract "github.com/porticus-lab/go-pdf-extract"
)

// maxFormDepth bounds form XObject nesting, including self-references.
const maxFormDepth = 8

// Page is one page of a [Document], interpreted once on first use.
type Page struct {
	doc    *Document
	number int
	pg     pdf.Page

	once   sync.Once
	text   []pdfextract.TextItem
	ops    []pdfextract.Operation
	images map[string]pdf.Value
	err    error
}

var _ pdfextract.Page = (*Page)(nil)

// Number returns the 1-indexed page number.
func (p *Page) Number() int { return p.number }

func (p *Page) scan(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.once.Do(func() {
		p.doc.mu.Lock()
		defer p.doc.mu.Unlock()
		p.text, p.err = textItems(p.pg)
		if p.err != nil {
			return
		}
		in := &interp{images: make(map[string]pdf.Value)}
		p.err = in.page(p.pg)
		p.ops, p.images = in.ops, in.images
	})
	return p.err
}

// TextContent returns the page text as runs of characters that share a
// baseline and font.
func (p *Page) TextContent(ctx context.Context) ([]pdfextract.TextItem, error) {
	if err := p.scan(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(p.text), nil
}

// OperatorList returns the page's content operators. Form XObjects are
// expanded between begin and end markers; images inside them are named
// "<form>/<image>".
func (p *Page) OperatorList(ctx context.Context) ([]pdfextract.Operation, error) {
	if err := p.scan(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(p.ops), nil
}

// ResolveObject decodes the image painted under name into packed RGB.
func (p *Page) ResolveObject(ctx context.Context, name string) (*pdfextract.RawImage, error) {
	if err := p.scan(ctx); err != nil {
		return nil, err
	}
	v, ok := p.images[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q on page %d", ErrNoSuchImage, name, p.number)
	}
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	return decodeImage(v)
}

// textItems merges the reader's per-character output into runs. A run
// breaks on a change of baseline or font, or a horizontal jump larger than
// a third of the font size.
func textItems(pg pdf.Page) (items []pdfextract.TextItem, err error) {
	defer recoverInto(&err)
	var end float64 // x where the current run ends
	for _, t := range pg.Content().Text {
		if n := len(items); n > 0 {
			last := &items[n-1]
			gap := t.X - end
			if last.FontName == t.Font && math.Abs(last.Y-t.Y) < 0.5 &&
				gap > -t.FontSize*0.3 && gap < t.FontSize*0.3 {
				last.Str += t.S
				end = t.X + t.W
				continue
			}
		}
		items = append(items, pdfextract.TextItem{
			Str:      t.S,
			X:        t.X,
			Y:        t.Y,
			FontName: t.Font,
			FontSize: t.FontSize,
		})
		end = t.X + t.W
	}
	return items, nil
}

type interp struct {
	ops    []pdfextract.Operation
	images map[string]pdf.Value
}

func (in *interp) page(pg pdf.Page) (err error) {
	defer recoverInto(&err)
	contents := pg.V.Key("Contents")
	if contents.IsNull() {
		return nil
	}
	in.run(contents, pg.Resources(), "", 0)
	return nil
}

func (in *interp) emit(op pdfextract.OpCode, args ...any) {
	in.ops = append(in.ops, pdfextract.Operation{Op: op, Args: args})
}

func (in *interp) run(strm, res pdf.Value, prefix string, depth int) {
	pdf.Interpret(strm, func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		if op == "Do" {
			if n > 0 && args[n-1].Kind() == pdf.Name {
				in.xobject(args[n-1].Name(), res, prefix, depth)
			}
			return
		}
		code, ok := pdfextract.LookupOperator(op)
		if !ok {
			return
		}
		vals := make([]any, n)
		for i, a := range args {
			vals[i] = value(a)
		}
		in.emit(code, vals...)
	})
}

func (in *interp) xobject(name string, res pdf.Value, prefix string, depth int) {
	x := res.Key("XObject").Key(name)
	id := prefix + name
	switch x.Key("Subtype").Name() {
	case "Image":
		in.images[id] = x
		in.emit(imageOp(x), id, x.Key("Width").Float64(), x.Key("Height").Float64())
	case "Form":
		if depth >= maxFormDepth {
			return
		}
		inner := x.Key("Resources")
		if inner.IsNull() {
			inner = res
		}
		m := []float64{1, 0, 0, 1, 0, 0}
		if mv := x.Key("Matrix"); mv.Len() == 6 {
			for i := range m {
				m[i] = mv.Index(i).Float64()
			}
		}
		in.emit(pdfextract.OpPaintFormXObjectBegin, m, value(x.Key("BBox")))
		in.run(x, inner, id+"/", depth+1)
		in.emit(pdfextract.OpPaintFormXObjectEnd)
	default:
		in.emit(pdfextract.OpPaintXObject, id)
	}
}

func imageOp(x pdf.Value) pdfextract.OpCode {
	if x.Key("ImageMask").Bool() {
		return pdfextract.OpPaintImageMaskXObject
	}
	filters := filterNames(x)
	if len(filters) > 0 {
		switch filters[len(filters)-1] {
		case "DCTDecode", "DCT":
			return pdfextract.OpPaintJpegXObject
		}
	}
	return pdfextract.OpPaintImageXObject
}

func filterNames(x pdf.Value) []string {
	f := x.Key("Filter")
	switch f.Kind() {
	case pdf.Name:
		return []string{f.Name()}
	case pdf.Array:
		names := make([]string, f.Len())
		for i := range names {
			names[i] = f.Index(i).Name()
		}
		return names
	}
	return nil
}

// value converts an operand to the plain Go form used in operation
// arguments.
func value(v pdf.Value) any {
	switch v.Kind() {
	case pdf.Bool:
		return v.Bool()
	case pdf.Integer, pdf.Real:
		return v.Float64()
	case pdf.String:
		return []byte(v.RawString())
	case pdf.Name:
		return v.Name()
	case pdf.Array:
		a := make([]any, v.Len())
		for i := range a {
			a[i] = value(v.Index(i))
		}
		return a
	case pdf.Dict, pdf.Stream:
		m := make(map[string]any)
		for _, k := range v.Keys() {
			m[k] = value(v.Key(k))
		}
		return m
	}
	return nil
}
