package pdfextract_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	pdfextract "github.com/porticus-lab/go-pdf-extract"
)

// fakeDoc is an in-memory Document used to drive the extractors.
type fakeDoc struct {
	pages []*fakePage

	pageErr map[int]error // per-page failure of Document.Page
}

func (d *fakeDoc) PageCount() int { return len(d.pages) }

func (d *fakeDoc) Page(_ context.Context, number int) (pdfextract.Page, error) {
	if err := d.pageErr[number]; err != nil {
		return nil, err
	}
	if number < 1 || number > len(d.pages) {
		return nil, fmt.Errorf("no page %d", number)
	}
	return d.pages[number-1], nil
}

type fakePage struct {
	text    []string
	textErr error
	delay   time.Duration

	ops    []pdfextract.Operation
	opsErr error

	objects  map[string]*pdfextract.RawImage
	resolved []string
	mu       sync.Mutex
}

func (p *fakePage) TextContent(ctx context.Context) ([]pdfextract.TextItem, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.textErr != nil {
		return nil, p.textErr
	}
	items := make([]pdfextract.TextItem, len(p.text))
	for i, s := range p.text {
		items[i] = pdfextract.TextItem{Str: s}
	}
	return items, nil
}

func (p *fakePage) OperatorList(context.Context) ([]pdfextract.Operation, error) {
	return p.ops, p.opsErr
}

func (p *fakePage) ResolveObject(_ context.Context, name string) (*pdfextract.RawImage, error) {
	p.mu.Lock()
	p.resolved = append(p.resolved, name)
	p.mu.Unlock()
	img, ok := p.objects[name]
	if !ok {
		return nil, fmt.Errorf("object %q not found", name)
	}
	return img, nil
}

func paint(op pdfextract.OpCode, name string) pdfextract.Operation {
	return pdfextract.Operation{Op: op, Args: []any{name, 1.0, 1.0}}
}

func solid(w, h int, r, g, b byte) *pdfextract.RawImage {
	data := bytes.Repeat([]byte{r, g, b}, w*h)
	return &pdfextract.RawImage{Data: data, Width: w, Height: h}
}

// --- Text ---

func TestExtractText_Concatenates(t *testing.T) {
	doc := &fakeDoc{pages: []*fakePage{
		{text: []string{"Hello", " ", "World"}},
		{text: []string{"!"}},
	}}
	got, err := pdfextract.ExtractText(context.Background(), doc)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "Hello World!" {
		t.Errorf("ExtractText = %q, want %q", got, "Hello World!")
	}
}

func TestExtractText_EmptyDocument(t *testing.T) {
	got, err := pdfextract.ExtractText(context.Background(), &fakeDoc{})
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "" {
		t.Errorf("ExtractText = %q, want empty", got)
	}
}

func TestExtractText_PageWithoutText(t *testing.T) {
	doc := &fakeDoc{pages: []*fakePage{
		{text: []string{"A"}},
		{},
		{text: []string{"B"}},
	}}
	got, err := pdfextract.ExtractText(context.Background(), doc)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "AB" {
		t.Errorf("ExtractText = %q, want %q", got, "AB")
	}
}

func TestExtractPageTexts_OrderIndependentOfCompletion(t *testing.T) {
	// Earlier pages finish last.
	doc := &fakeDoc{pages: []*fakePage{
		{text: []string{"one"}, delay: 30 * time.Millisecond},
		{text: []string{"two"}, delay: 20 * time.Millisecond},
		{text: []string{"three"}, delay: 10 * time.Millisecond},
		{text: []string{"four"}},
	}}
	ext := pdfextract.NewExtractor(pdfextract.WithConcurrency(4))
	got, err := ext.ExtractPageTexts(context.Background(), doc)
	if err != nil {
		t.Fatalf("ExtractPageTexts: %v", err)
	}
	want := []string{"one", "two", "three", "four"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExtractPageTexts mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractText_PageAccessError(t *testing.T) {
	cause := errors.New("page tree broken")
	doc := &fakeDoc{
		pages:   []*fakePage{{text: []string{"A"}}, {text: []string{"B"}}, {text: []string{"C"}}},
		pageErr: map[int]error{2: cause},
	}
	got, err := pdfextract.ExtractText(context.Background(), doc)
	if !errors.Is(err, pdfextract.ErrPageAccess) {
		t.Fatalf("err = %v, want ErrPageAccess", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("err = %v, want it to wrap the cause", err)
	}
	if got != "" {
		t.Errorf("partial text returned: %q", got)
	}
	var pe *pdfextract.PageError
	if !errors.As(err, &pe) || pe.Page != 2 {
		t.Errorf("err = %v, want *PageError for page 2", err)
	}
}

func TestExtractText_TextContentError(t *testing.T) {
	doc := &fakeDoc{pages: []*fakePage{
		{text: []string{"A"}},
		{textErr: errors.New("bad font")},
	}}
	_, err := pdfextract.ExtractText(context.Background(), doc, pdfextract.WithConcurrency(1))
	if !errors.Is(err, pdfextract.ErrPageAccess) {
		t.Fatalf("err = %v, want ErrPageAccess", err)
	}
}

func TestExtractPageTexts_RespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	pages := make([]*fakePage, 8)
	for i := range pages {
		pages[i] = &fakePage{text: []string{"x"}}
	}
	doc := &countingDoc{fakeDoc: fakeDoc{pages: pages}, inFlight: &inFlight, peak: &peak}

	if _, err := pdfextract.ExtractText(context.Background(), doc, pdfextract.WithConcurrency(2)); err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

type countingDoc struct {
	fakeDoc
	inFlight, peak *atomic.Int32
}

func (d *countingDoc) Page(ctx context.Context, number int) (pdfextract.Page, error) {
	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return d.fakeDoc.Page(ctx, number)
}

// --- Images ---

func TestExtractImages_OrderAndNames(t *testing.T) {
	doc := &fakeDoc{pages: []*fakePage{
		{
			ops: []pdfextract.Operation{
				{Op: pdfextract.OpSave},
				paint(pdfextract.OpPaintImageXObject, "img_p0_1"),
				{Op: pdfextract.OpRestore},
				paint(pdfextract.OpPaintJpegXObject, "img_p0_2"),
			},
			objects: map[string]*pdfextract.RawImage{
				"img_p0_1": solid(2, 1, 255, 0, 0),
				"img_p0_2": solid(1, 1, 0, 0, 255),
			},
		},
		{
			ops: []pdfextract.Operation{
				paint(pdfextract.OpPaintImageXObjectRepeat, "img_p1_1"),
			},
			objects: map[string]*pdfextract.RawImage{
				"img_p1_1": solid(1, 2, 0, 255, 0),
			},
		},
	}}

	got, err := pdfextract.ExtractImages(context.Background(), doc)
	if err != nil {
		t.Fatalf("ExtractImages: %v", err)
	}
	want := []pdfextract.ImageRecord{
		{
			Pix:   []byte{255, 0, 0, 255, 255, 0, 0, 255},
			Width: 2, Height: 1,
			Name: "img_p0_1.png", Page: 1, Index: 0, Op: pdfextract.OpPaintImageXObject,
		},
		{
			Pix:   []byte{0, 0, 255, 255},
			Width: 1, Height: 1,
			Name: "img_p0_2.png", Page: 1, Index: 1, Op: pdfextract.OpPaintJpegXObject,
		},
		{
			Pix:   []byte{0, 255, 0, 255, 0, 255, 0, 255},
			Width: 1, Height: 2,
			Name: "img_p1_1.png", Page: 2, Index: 2, Op: pdfextract.OpPaintImageXObjectRepeat,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExtractImages mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractImages_IgnoresOtherOps(t *testing.T) {
	page := &fakePage{ops: []pdfextract.Operation{
		{Op: pdfextract.OpConstructPath, Args: []any{[]any{}, []any{}}},
		paint(pdfextract.OpPaintImageMaskXObject, "mask"),
		paint(pdfextract.OpPaintXObject, "form"),
	}}
	got, err := pdfextract.ExtractImages(context.Background(), &fakeDoc{pages: []*fakePage{page}})
	if err != nil {
		t.Fatalf("ExtractImages: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ExtractImages = %#v, want empty non-nil slice", got)
	}
	if len(page.resolved) != 0 {
		t.Errorf("resolved %v, want no lookups", page.resolved)
	}
}

func TestExtractImages_DuplicateNamesKept(t *testing.T) {
	doc := &fakeDoc{pages: []*fakePage{{
		ops: []pdfextract.Operation{
			paint(pdfextract.OpPaintImageXObject, "logo"),
			paint(pdfextract.OpPaintImageXObject, "logo"),
		},
		objects: map[string]*pdfextract.RawImage{"logo": solid(1, 1, 9, 9, 9)},
	}}}
	got, err := pdfextract.ExtractImages(context.Background(), doc)
	if err != nil {
		t.Fatalf("ExtractImages: %v", err)
	}
	if len(got) != 2 || got[0].Name != "logo.png" || got[1].Name != "logo.png" {
		t.Errorf("got %d records, want two named logo.png", len(got))
	}
}

func TestExtractImages_OperatorListError(t *testing.T) {
	doc := &fakeDoc{pages: []*fakePage{{opsErr: errors.New("broken stream")}}}
	got, err := pdfextract.ExtractImages(context.Background(), doc)
	if !errors.Is(err, pdfextract.ErrOperatorList) {
		t.Fatalf("err = %v, want ErrOperatorList", err)
	}
	if got != nil {
		t.Errorf("got %d records on error", len(got))
	}
}

func TestExtractImages_PageAccessError(t *testing.T) {
	doc := &fakeDoc{
		pages:   []*fakePage{{}},
		pageErr: map[int]error{1: errors.New("missing")},
	}
	_, err := pdfextract.ExtractImages(context.Background(), doc)
	if !errors.Is(err, pdfextract.ErrPageAccess) {
		t.Fatalf("err = %v, want ErrPageAccess", err)
	}
}

func TestExtractImages_ResolutionFailFast(t *testing.T) {
	doc := &fakeDoc{pages: []*fakePage{{
		ops: []pdfextract.Operation{
			paint(pdfextract.OpPaintImageXObject, "ok"),
			paint(pdfextract.OpPaintImageXObject, "missing"),
		},
		objects: map[string]*pdfextract.RawImage{"ok": solid(1, 1, 1, 1, 1)},
	}}}
	got, err := pdfextract.ExtractImages(context.Background(), doc)
	if !errors.Is(err, pdfextract.ErrImageResolution) {
		t.Fatalf("err = %v, want ErrImageResolution", err)
	}
	if got != nil {
		t.Errorf("got %d records, want none", len(got))
	}
	var ie *pdfextract.ImageError
	if !errors.As(err, &ie) || ie.Name != "missing" || ie.Page != 1 {
		t.Errorf("err = %v, want *ImageError for page 1 image missing", err)
	}
}

func TestExtractImages_MissingNameArgument(t *testing.T) {
	doc := &fakeDoc{pages: []*fakePage{{
		ops: []pdfextract.Operation{{Op: pdfextract.OpPaintImageXObject}},
	}}}
	_, err := pdfextract.ExtractImages(context.Background(), doc)
	if !errors.Is(err, pdfextract.ErrImageResolution) {
		t.Fatalf("err = %v, want ErrImageResolution", err)
	}
}

func TestExtractImages_MalformedBuffer(t *testing.T) {
	doc := &fakeDoc{pages: []*fakePage{{
		ops: []pdfextract.Operation{paint(pdfextract.OpPaintImageXObject, "short")},
		objects: map[string]*pdfextract.RawImage{
			"short": {Data: []byte{1, 2, 3}, Width: 2, Height: 2},
		},
	}}}
	_, err := pdfextract.ExtractImages(context.Background(), doc)
	if !errors.Is(err, pdfextract.ErrMalformedBuffer) {
		t.Fatalf("err = %v, want ErrMalformedBuffer", err)
	}
}

func TestExtractImages_SkipUnresolved(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	doc := &fakeDoc{pages: []*fakePage{{
		ops: []pdfextract.Operation{
			paint(pdfextract.OpPaintImageXObject, "missing"),
			paint(pdfextract.OpPaintImageXObject, "short"),
			paint(pdfextract.OpPaintImageXObject, "ok"),
		},
		objects: map[string]*pdfextract.RawImage{
			"ok":    solid(1, 1, 5, 6, 7),
			"short": {Data: []byte{1}, Width: 1, Height: 1},
		},
	}}}
	got, err := pdfextract.ExtractImages(context.Background(), doc,
		pdfextract.WithSkipUnresolved(), pdfextract.WithLogger(logger))
	if err != nil {
		t.Fatalf("ExtractImages: %v", err)
	}
	if len(got) != 1 || got[0].Name != "ok.png" || got[0].Index != 0 {
		t.Fatalf("got %+v, want only ok.png at index 0", got)
	}
	if !bytes.Contains(logs.Bytes(), []byte("skipping image")) {
		t.Error("expected skipped images to be logged")
	}
}

func TestExtractImages_SkipDoesNotHideOperatorListError(t *testing.T) {
	doc := &fakeDoc{pages: []*fakePage{{opsErr: errors.New("boom")}}}
	_, err := pdfextract.ExtractImages(context.Background(), doc, pdfextract.WithSkipUnresolved())
	if !errors.Is(err, pdfextract.ErrOperatorList) {
		t.Fatalf("err = %v, want ErrOperatorList", err)
	}
}

func TestExtractImages_WithImageOps(t *testing.T) {
	doc := &fakeDoc{pages: []*fakePage{{
		ops: []pdfextract.Operation{
			paint(pdfextract.OpPaintImageXObject, "a"),
			paint(pdfextract.OpPaintImageMaskXObject, "b"),
		},
		objects: map[string]*pdfextract.RawImage{
			"a": solid(1, 1, 0, 0, 0),
			"b": solid(1, 1, 0, 0, 0),
		},
	}}}
	got, err := pdfextract.ExtractImages(context.Background(), doc,
		pdfextract.WithImageOps(pdfextract.OpPaintImageMaskXObject))
	if err != nil {
		t.Fatalf("ExtractImages: %v", err)
	}
	if len(got) != 1 || got[0].Name != "b.png" {
		t.Errorf("got %+v, want only b.png", got)
	}
}

func TestWalkImages_StopsOnCallbackError(t *testing.T) {
	doc := &fakeDoc{pages: []*fakePage{{
		ops: []pdfextract.Operation{
			paint(pdfextract.OpPaintImageXObject, "a"),
			paint(pdfextract.OpPaintImageXObject, "b"),
		},
		objects: map[string]*pdfextract.RawImage{
			"a": solid(1, 1, 0, 0, 0),
			"b": solid(1, 1, 0, 0, 0),
		},
	}}}
	stop := errors.New("stop")
	var seen []string
	err := pdfextract.NewExtractor().WalkImages(context.Background(), doc, func(rec pdfextract.ImageRecord) error {
		seen = append(seen, rec.Name)
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("err = %v, want callback error", err)
	}
	if diff := cmp.Diff([]string{"a.png"}, seen); diff != "" {
		t.Errorf("seen mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractImages_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc := &fakeDoc{pages: []*fakePage{{}}}
	_, err := pdfextract.ExtractImages(ctx, doc)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSelect(t *testing.T) {
	doc := &fakeDoc{pages: []*fakePage{
		{text: []string{"1"}},
		{text: []string{"2"}},
		{text: []string{"3"}},
	}}
	sub, err := pdfextract.Select(doc, []int{3, 1})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sub.PageCount() != 2 {
		t.Fatalf("PageCount = %d, want 2", sub.PageCount())
	}
	got, err := pdfextract.ExtractText(context.Background(), sub)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "31" {
		t.Errorf("ExtractText = %q, want %q", got, "31")
	}

	if _, err := pdfextract.Select(doc, []int{4}); err == nil {
		t.Error("Select with out-of-range page should fail")
	}
}
