// pdfextract extracts text and images from PDF files.
//
// Usage:
//
//	pdfextract text [options] <file.pdf>
//	pdfextract images [options] <file.pdf>
//	pdfextract info <file.pdf>
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	pdfextract "github.com/porticus-lab/go-pdf-extract"
	"github.com/porticus-lab/go-pdf-extract/internal/config"
	"github.com/porticus-lab/go-pdf-extract/internal/logging"
	"github.com/porticus-lab/go-pdf-extract/lpdf"
	"github.com/porticus-lab/go-pdf-extract/pdf"
	"github.com/porticus-lab/go-pdf-extract/pdfjs"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "text":
		err = runText(ctx, os.Args[2:], os.Stdout)
	case "images":
		err = runImages(ctx, os.Args[2:], os.Stdout)
	case "info":
		err = runInfo(ctx, os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `pdfextract - PDF text and image extraction tool

Usage:
  pdfextract text [options] <file.pdf>
  pdfextract images [options] <file.pdf>
  pdfextract info <file.pdf>

Commands:
  text      Extract page text
  images    Extract embedded images
  info      Display document metadata and page dimensions

Global options:
  -config <file>      YAML configuration file
  -log-level <level>  debug, info, warn, error (default: info)
  -log-format <fmt>   text or json (default: text)
  -b <backend>        PDF backend: pdf, lpdf, pdfjs (default: pdf)

Text options:
  -o <file>       Write output to file (default: stdout)
  -p <range>      Page range, e.g. "1", "1-5", "1,3,5" (default: all)
  -f <format>     Output format: text, json, markdown (default: text)
  -layout         Reconstruct lines from text positions

Image options:
  -o <target>     Directory, .tar.zst/.tar.gz archive or s3://bucket/prefix
                  (default: images)
  -p <range>      Page range (default: all)
  -t <format>     Image format: png, jpeg, bmp, tiff (default: png)
  -thumb <n>      Scale images down to at most n pixels per side
  -skip           Skip images that cannot be decoded instead of failing

Examples:
  pdfextract text document.pdf
  pdfextract text -p 1-10 -f json document.pdf > out.json
  pdfextract images -o images.tar.zst -t jpeg document.pdf
  pdfextract info document.pdf
`)
}

// common holds the options shared by all commands.
type common struct {
	configFile string
	logLevel   string
	logFormat  string
	backend    string
	inputFile  string
}

// parse consumes a shared option at args[*i]. It reports whether the
// argument was one.
func (c *common) parse(args []string, i *int) (bool, error) {
	var dst *string
	switch args[*i] {
	case "-config":
		dst = &c.configFile
	case "-log-level":
		dst = &c.logLevel
	case "-log-format":
		dst = &c.logFormat
	case "-b":
		dst = &c.backend
	default:
		return false, nil
	}
	flag := args[*i]
	*i++
	if *i >= len(args) {
		return true, fmt.Errorf("%s requires an argument", flag)
	}
	*dst = args[*i]
	return true, nil
}

// positional records the input file or rejects an unknown option.
func (c *common) positional(arg string) error {
	if strings.HasPrefix(arg, "-") {
		return fmt.Errorf("unknown option: %s", arg)
	}
	c.inputFile = arg
	return nil
}

// setup loads the configuration, applies command-line overrides and builds
// the logger.
func (c *common) setup() (*config.Config, *slog.Logger, error) {
	if c.inputFile == "" {
		return nil, nil, fmt.Errorf("no input file specified")
	}
	cfg := config.Default()
	if c.configFile != "" {
		var err error
		if cfg, err = config.Load(c.configFile); err != nil {
			return nil, nil, err
		}
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	if c.backend != "" {
		cfg.Backend = c.backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return cfg, log, nil
}

// extractorOptions maps the configuration onto extractor options.
func extractorOptions(cfg *config.Config, log *slog.Logger) []pdfextract.Option {
	opts := []pdfextract.Option{pdfextract.WithLogger(log)}
	if cfg.Extract.Concurrency > 0 {
		opts = append(opts, pdfextract.WithConcurrency(cfg.Extract.Concurrency))
	}
	if cfg.Extract.SkipUnresolved {
		opts = append(opts, pdfextract.WithSkipUnresolved())
	}
	return opts
}

// readPDF reads path and checks for the PDF header.
func readPDF(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	head := data[:min(len(data), 1024)]
	if !bytes.Contains(head, []byte("%PDF-")) {
		return nil, fmt.Errorf("%s is not a PDF file", path)
	}
	return data, nil
}

// openDocument loads the input with the configured backend. The returned
// function releases the document.
func openDocument(ctx context.Context, cfg *config.Config, log *slog.Logger, path string) (pdfextract.Document, func(), error) {
	data, err := readPDF(path)
	if err != nil {
		return nil, nil, err
	}
	start := time.Now()
	defer func() {
		log.Debug("document loaded", "backend", cfg.Backend, "elapsed", time.Since(start))
	}()

	switch cfg.Backend {
	case "lpdf":
		doc, err := lpdf.Load(data)
		if err != nil {
			return nil, nil, err
		}
		return doc, func() { doc.Close() }, nil
	case "pdfjs":
		opts := []pdfjs.Option{pdfjs.WithTimeout(cfg.Chrome.Timeout)}
		if cfg.Chrome.Path != "" {
			opts = append(opts, pdfjs.WithChromePath(cfg.Chrome.Path))
		}
		if cfg.Chrome.NoSandbox {
			opts = append(opts, pdfjs.WithNoSandbox())
		}
		if cfg.Chrome.AutoDownload {
			opts = append(opts, pdfjs.WithAutoDownload())
		}
		if cfg.Chrome.LibraryURL != "" {
			opts = append(opts, pdfjs.WithLibraryURL(cfg.Chrome.LibraryURL))
		}
		if cfg.Chrome.WorkerURL != "" {
			opts = append(opts, pdfjs.WithWorkerURL(cfg.Chrome.WorkerURL))
		}
		eng, err := pdfjs.NewEngine(opts...)
		if err != nil {
			return nil, nil, err
		}
		doc, err := eng.Load(ctx, data)
		if err != nil {
			eng.Close()
			return nil, nil, err
		}
		log.Debug("pdf.js ready", "version", doc.LibraryVersion())
		return doc, func() { doc.Close(); eng.Close() }, nil
	default:
		doc, err := pdf.Load(data)
		if err != nil {
			return nil, nil, err
		}
		doc.SetLogger(log)
		return doc, func() {}, nil
	}
}

// selectPages restricts doc to the page range and returns the original
// page numbers in order.
func selectPages(doc pdfextract.Document, pageRange string) (pdfextract.Document, []int, error) {
	pages, err := parsePageRange(pageRange, doc.PageCount())
	if err != nil {
		return nil, nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}
	if pageRange == "" {
		return doc, pages, nil
	}
	sub, err := pdfextract.Select(doc, pages)
	if err != nil {
		return nil, nil, err
	}
	return sub, pages, nil
}
