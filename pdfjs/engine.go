// Package pdfjs is a [pdfextract.Document] backend that runs pdf.js inside
// headless Chrome.
//
// An [Engine] owns one browser process. Each document loaded through it gets
// its own tab, where pdf.js parses the file and answers text, operator list
// and image queries over the Chrome DevTools Protocol. Operator codes are
// pdf.js's own, so they map onto [pdfextract.OpCode] unchanged.
//
//	eng, err := pdfjs.NewEngine(pdfjs.WithNoSandbox())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	doc, err := eng.Load(ctx, data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer doc.Close()
//	text, err := pdfextract.ExtractText(ctx, doc)
//
// The pdf.js modules are fetched from [DefaultLibraryURL] unless
// [WithLibraryURL] and [WithWorkerURL] point elsewhere.
package pdfjs

import (
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
)

var (
	// ErrClosed is returned when using a closed [Engine] or [Document].
	ErrClosed = errors.New("pdfjs: engine is closed")

	// ErrNoSuchObject is returned by ResolveObject when pdf.js has no image
	// under the requested name.
	ErrNoSuchObject = errors.New("pdfjs: no such object")
)

//go:embed bridge.js
var bridgeJS string

// Engine runs pdf.js in a headless browser.
//
// The browser process is started by [NewEngine] and shared by all documents
// loaded through the Engine. It is safe for concurrent use. Call
// [Engine.Close] to stop the browser.
type Engine struct {
	cfg           engineConfig
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewEngine starts a browser with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("no-first-run", true),
	)
	if cfg.headless != "" {
		allocOpts = append(allocOpts, chromedp.Flag("headless", cfg.headless))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	execPath, err := cfg.execPath()
	if err != nil {
		return nil, err
	}
	if execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(execPath))
	}
	if cfg.noSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so errors surface at creation time.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("pdfjs: starting browser: %w", err)
	}

	return &Engine{
		cfg:           cfg,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// execPath returns the browser executable to start, downloading Chromium
// into rod's cache (~/.cache/rod/browser) when auto-download is enabled.
// An empty path lets chromedp search the standard locations.
func (c engineConfig) execPath() (string, error) {
	if c.chromePath != "" || !c.autoDownload {
		return c.chromePath, nil
	}
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("pdfjs: downloading browser: %w", err)
	}
	return path, nil
}

// Close stops the browser; documents loaded from the Engine stop working.
// Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.browserCancel()
	e.allocCancel()
	return nil
}

func (e *Engine) checkClosed() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return nil
}

// Load opens a new tab, loads pdf.js into it and parses data. The returned
// Document must be closed to release the tab.
func (e *Engine) Load(ctx context.Context, data []byte) (*Document, error) {
	if err := e.checkClosed(); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(e.browserCtx)
	// The first Run creates the tab; it must use the tab context itself so
	// that a per-call timeout does not close the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("pdfjs: opening tab: %w", err)
	}
	doc := &Document{engine: e, tabCtx: tabCtx, tabCancel: tabCancel}

	var version string
	err := doc.run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.Evaluate(bridgeJS, nil),
		chromedp.Evaluate(call("init", e.cfg.libraryURL, e.cfg.workerURL), &version, awaitPromise),
		chromedp.Evaluate(call("load", base64.StdEncoding.EncodeToString(data)), &doc.pages, awaitPromise),
	)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("pdfjs: loading document: %w", err)
	}
	doc.version = version
	return doc, nil
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// call formats a call to a bridge method. Arguments are encoded as JSON,
// which is valid JavaScript.
func call(method string, args ...any) string {
	expr := "window.pdfextract." + method + "("
	for i, a := range args {
		if i > 0 {
			expr += ", "
		}
		b, err := json.Marshal(a)
		if err != nil {
			// Only strings and numbers are passed.
			panic(err)
		}
		expr += string(b)
	}
	return expr + ")"
}
