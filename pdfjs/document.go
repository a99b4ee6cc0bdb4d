package pdfjs

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"

	pdfextract "github.com/porticus-lab/go-pdf-extract"
)

// Document is a PDF parsed by pdf.js in its own browser tab. Calls are
// serialised on the tab, so concurrent extraction is safe but not parallel.
type Document struct {
	engine    *Engine
	tabCtx    context.Context
	tabCancel context.CancelFunc
	pages     int
	version   string

	mu     sync.Mutex
	closed bool
}

var _ pdfextract.Document = (*Document)(nil)

// PageCount returns pdf.js's numPages.
func (d *Document) PageCount() int { return d.pages }

// LibraryVersion returns the version string reported by pdf.js.
func (d *Document) LibraryVersion() string { return d.version }

// Page returns the page with the given 1-indexed number.
func (d *Document) Page(ctx context.Context, number int) (pdfextract.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if number < 1 || number > d.pages {
		return nil, fmt.Errorf("pdfjs: page %d out of range (1-%d)", number, d.pages)
	}
	return &Page{doc: d, number: number}, nil
}

// Close destroys the pdf.js document and closes its tab. Close is
// idempotent.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.tabCancel()
	return nil
}

// run executes actions on the tab, bounded by ctx and the engine timeout.
func (d *Document) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.tabCtx)
	defer cancel()
	if t := d.engine.cfg.timeout; t > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, t)
		defer cancelTimeout()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// eval calls a bridge method and decodes its JSON result into out.
func (d *Document) eval(ctx context.Context, out any, method string, args ...any) error {
	if err := d.engine.checkClosed(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return d.run(ctx, chromedp.Evaluate(call(method, args...), out, awaitPromise))
}

// Page is one page of a pdf.js [Document].
type Page struct {
	doc    *Document
	number int
}

var _ pdfextract.Page = (*Page)(nil)

type jsTextItem struct {
	Str  string  `json:"str"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Font string  `json:"font"`
	Size float64 `json:"size"`
}

type jsOperation struct {
	Op   int   `json:"op"`
	Args []any `json:"args"`
}

type jsImage struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   string `json:"data"` // base64 packed RGB
}

// TextContent returns pdf.js's getTextContent items.
func (p *Page) TextContent(ctx context.Context) ([]pdfextract.TextItem, error) {
	var raw []jsTextItem
	if err := p.doc.eval(ctx, &raw, "text", p.number); err != nil {
		return nil, fmt.Errorf("pdfjs: text content of page %d: %w", p.number, err)
	}
	items := make([]pdfextract.TextItem, len(raw))
	for i, it := range raw {
		items[i] = pdfextract.TextItem{Str: it.Str, X: it.X, Y: it.Y, FontName: it.Font, FontSize: it.Size}
	}
	return items, nil
}

// OperatorList returns pdf.js's getOperatorList as operations.
func (p *Page) OperatorList(ctx context.Context) ([]pdfextract.Operation, error) {
	var raw []jsOperation
	if err := p.doc.eval(ctx, &raw, "ops", p.number); err != nil {
		return nil, fmt.Errorf("pdfjs: operator list of page %d: %w", p.number, err)
	}
	return operations(raw), nil
}

func operations(raw []jsOperation) []pdfextract.Operation {
	ops := make([]pdfextract.Operation, len(raw))
	for i, r := range raw {
		ops[i] = pdfextract.Operation{Op: pdfextract.OpCode(r.Op), Args: r.Args}
	}
	return ops
}

// ResolveObject fetches the decoded image pdf.js stored under name. The
// payload is passed on unchecked; the extractor validates its size.
func (p *Page) ResolveObject(ctx context.Context, name string) (*pdfextract.RawImage, error) {
	var img *jsImage
	if err := p.doc.eval(ctx, &img, "image", p.number, name); err != nil {
		return nil, fmt.Errorf("pdfjs: resolving %q on page %d: %w", name, p.number, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: %q on page %d", ErrNoSuchObject, name, p.number)
	}
	return img.raw()
}

func (img *jsImage) raw() (*pdfextract.RawImage, error) {
	data, err := base64.StdEncoding.DecodeString(img.Data)
	if err != nil {
		return nil, fmt.Errorf("pdfjs: image payload: %w", err)
	}
	return &pdfextract.RawImage{Data: data, Width: img.Width, Height: img.Height}, nil
}
