package pdfextract

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ImageNameExt is appended to an object reference name to form
// [ImageRecord.Name].
const ImageNameExt = ".png"

// Extractor pulls text and images out of a [Document].
//
// An Extractor holds only configuration and is safe for concurrent use. Text
// and image extraction are independent: a failure in one does not affect the
// other.
type Extractor struct {
	cfg config
}

// NewExtractor creates an Extractor with the given options.
func NewExtractor(opts ...Option) *Extractor {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Extractor{cfg: cfg}
}

// ExtractText returns the text of every page, pages in ascending order, with
// no separators inserted. If any page fails the whole call fails with an
// error matching [ErrPageAccess] and no partial text is returned.
func (e *Extractor) ExtractText(ctx context.Context, doc Document) (string, error) {
	texts, err := e.ExtractPageTexts(ctx, doc)
	if err != nil {
		return "", err
	}
	return strings.Join(texts, ""), nil
}

// ExtractPageTexts returns one string per page, index 0 holding page 1.
//
// Pages are fetched concurrently, bounded by [WithConcurrency]; the result
// order never depends on which fetch finishes first.
func (e *Extractor) ExtractPageTexts(ctx context.Context, doc Document) ([]string, error) {
	return e.pageTexts(ctx, doc, concat)
}

// ExtractLayout is like ExtractPageTexts but arranges each page's fragments
// into lines by position, as [Layout] does. Failures are reported the same
// way as for ExtractText.
func (e *Extractor) ExtractLayout(ctx context.Context, doc Document) ([]string, error) {
	return e.pageTexts(ctx, doc, Layout)
}

func (e *Extractor) pageTexts(ctx context.Context, doc Document, render func([]TextItem) string) ([]string, error) {
	n := doc.PageCount()
	texts := make([]string, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.concurrency)
	for i := range texts {
		g.Go(func() error {
			items, err := pageItems(gctx, doc, i+1)
			if err != nil {
				return err
			}
			texts[i] = render(items)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return texts, nil
}

// pageItems fetches the text fragments of one page.
func pageItems(ctx context.Context, doc Document, number int) ([]TextItem, error) {
	page, err := doc.Page(ctx, number)
	if err != nil {
		return nil, &PageError{Page: number, Op: "get page", Kind: ErrPageAccess, Err: err}
	}
	items, err := page.TextContent(ctx)
	if err != nil {
		return nil, &PageError{Page: number, Op: "text content", Kind: ErrPageAccess, Err: err}
	}
	return items, nil
}

func concat(items []TextItem) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(item.Str)
	}
	return sb.String()
}

// ExtractImages returns a record for every image paint operation, ordered by
// page and then by position in the page's operator list.
//
// By default the first failure aborts the extraction and no records are
// returned. With [WithSkipUnresolved], images that cannot be resolved or
// expanded are left out instead. A document without image operations yields
// an empty, non-nil slice.
func (e *Extractor) ExtractImages(ctx context.Context, doc Document) ([]ImageRecord, error) {
	records := []ImageRecord{}
	err := e.WalkImages(ctx, doc, func(rec ImageRecord) error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// WalkImages calls fn for each extracted image, in the order ExtractImages
// would return them. Pages are processed one after another. If fn returns an
// error, the walk stops and that error is returned. Records already passed to
// fn stay with the caller when a later failure ends the walk.
func (e *Extractor) WalkImages(ctx context.Context, doc Document, fn func(ImageRecord) error) error {
	index := 0
	for number := 1; number <= doc.PageCount(); number++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := doc.Page(ctx, number)
		if err != nil {
			return &PageError{Page: number, Op: "get page", Kind: ErrPageAccess, Err: err}
		}
		ops, err := page.OperatorList(ctx)
		if err != nil {
			return &PageError{Page: number, Op: "operator list", Kind: ErrOperatorList, Err: err}
		}

		for _, op := range ops {
			if !e.cfg.imageOps.Contains(op.Op) {
				continue
			}
			rec, err := e.extractImage(ctx, page, number, op)
			if err != nil {
				if e.cfg.skipUnresolved {
					e.cfg.logger.WarnContext(ctx, "skipping image", "page", number, "error", err)
					continue
				}
				return err
			}
			rec.Index = index
			if err := fn(*rec); err != nil {
				return err
			}
			index++
		}
	}
	return nil
}

// extractImage resolves the object referenced by op and expands it to RGBA.
func (e *Extractor) extractImage(ctx context.Context, page Page, number int, op Operation) (*ImageRecord, error) {
	name, ok := op.ObjectName()
	if !ok {
		return nil, &ImageError{Page: number, Kind: ErrImageResolution, Err: errMissingName(op)}
	}
	log := e.cfg.logger.With("page", number, "name", name, "op", op.Op.String())
	log.DebugContext(ctx, "found image")

	raw, err := page.ResolveObject(ctx, name)
	if err != nil {
		return nil, &ImageError{Page: number, Name: name, Kind: ErrImageResolution, Err: err}
	}
	if raw == nil {
		return nil, &ImageError{Page: number, Name: name, Kind: ErrImageResolution}
	}
	log.DebugContext(ctx, "image resolved", "width", raw.Width, "height", raw.Height)

	pix, err := ExpandRGB(raw.Data, raw.Width, raw.Height)
	if err != nil {
		return nil, &ImageError{Page: number, Name: name, Kind: ErrMalformedBuffer, Err: err}
	}
	return &ImageRecord{
		Pix:    pix,
		Width:  raw.Width,
		Height: raw.Height,
		Name:   name + ImageNameExt,
		Page:   number,
		Op:     op.Op,
	}, nil
}

type missingNameError struct {
	op OpCode
}

func (e missingNameError) Error() string {
	return e.op.String() + " has no object name argument"
}

func errMissingName(op Operation) error {
	return missingNameError{op: op.Op}
}

// --- Package-level convenience functions ---

// ExtractText extracts the document text using a temporary [Extractor].
func ExtractText(ctx context.Context, doc Document, opts ...Option) (string, error) {
	return NewExtractor(opts...).ExtractText(ctx, doc)
}

// ExtractImages extracts the document images using a temporary [Extractor].
func ExtractImages(ctx context.Context, doc Document, opts ...Option) ([]ImageRecord, error) {
	return NewExtractor(opts...).ExtractImages(ctx, doc)
}
