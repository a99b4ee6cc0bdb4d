package pdf

import (
	"context"
	"fmt"
	"slices"
	"sync"

	pdfextract "github.com/porticus-lab/go-pdf-extract"
)

// Page is one page of a [Document]. Its content is interpreted once, on
// first use, and the results are shared by later calls.
type Page struct {
	doc    *Document
	number int
	dict   Dict

	once   sync.Once
	ops    []pdfextract.Operation
	text   []pdfextract.TextItem
	images map[string]*Object
	err    error
}

var _ pdfextract.Page = (*Page)(nil)

func newPage(doc *Document, number int, dict Dict) *Page {
	return &Page{doc: doc, number: number, dict: dict}
}

// Number returns the 1-indexed page number.
func (p *Page) Number() int { return p.number }

// PageInfo describes the page geometry.
type PageInfo struct {
	Number int
	Width  float64 // points
	Height float64 // points
	Rotate int     // degrees, a multiple of 90
}

// Info returns the page size from its CropBox, or MediaBox when there is
// none. A page without either is reported as US Letter.
func (p *Page) Info() PageInfo {
	info := PageInfo{Number: p.number, Width: 612, Height: 792}
	for _, key := range []string{"CropBox", "MediaBox"} {
		box, err := p.doc.resolve(p.dict[key])
		if err != nil || box.Kind != KindArray || len(box.Array) != 4 {
			continue
		}
		var v [4]float64
		for i, o := range box.Array {
			o, _ = p.doc.resolve(o)
			v[i] = o.Float()
		}
		info.Width, info.Height = abs(v[2]-v[0]), abs(v[3]-v[1])
		break
	}
	info.Rotate = ((p.doc.intValue(p.dict["Rotate"]) % 360) + 360) % 360
	return info
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// scan interprets the page content on first use.
func (p *Page) scan(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.once.Do(func() {
		data, err := p.doc.contents(p.dict["Contents"])
		if err != nil {
			p.err = fmt.Errorf("pdf: page %d: reading content: %w", p.number, err)
			return
		}
		res := Dict{}
		if r, err := p.doc.resolve(p.dict["Resources"]); err == nil && r.Kind == KindDict {
			res = r.Dict
		}
		in := newInterp(p.doc)
		if err := in.run(data, res, ""); err != nil {
			p.err = fmt.Errorf("pdf: page %d: %w", p.number, err)
			return
		}
		p.ops, p.text, p.images = in.ops, in.text, in.images
	})
	return p.err
}

// TextContent returns one fragment per text-showing operator, in content
// order.
func (p *Page) TextContent(ctx context.Context) ([]pdfextract.TextItem, error) {
	if err := p.scan(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(p.text), nil
}

// OperatorList returns the page's operations, with form XObjects expanded
// in place.
func (p *Page) OperatorList(ctx context.Context) ([]pdfextract.Operation, error) {
	if err := p.scan(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(p.ops), nil
}

// ResolveObject decodes the image XObject painted under name.
func (p *Page) ResolveObject(ctx context.Context, name string) (*pdfextract.RawImage, error) {
	if err := p.scan(ctx); err != nil {
		return nil, err
	}
	obj, ok := p.images[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q on page %d", ErrNoSuchObject, name, p.number)
	}
	return p.doc.decodeImage(obj)
}
