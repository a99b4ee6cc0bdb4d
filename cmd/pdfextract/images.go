package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	pdfextract "github.com/porticus-lab/go-pdf-extract"
	"github.com/porticus-lab/go-pdf-extract/internal/sink"
)

// runImages implements the "images" command.
func runImages(ctx context.Context, args []string, stdout io.Writer) error {
	var (
		c         common
		target    = "images"
		pageRange string
		format    string
		thumb     int
		skip      bool
	)

	for i := 0; i < len(args); i++ {
		if ok, err := c.parse(args, &i); ok {
			if err != nil {
				return err
			}
			continue
		}
		switch args[i] {
		case "-o":
			i++
			if i >= len(args) {
				return fmt.Errorf("-o requires an argument")
			}
			target = args[i]
		case "-p":
			i++
			if i >= len(args) {
				return fmt.Errorf("-p requires an argument")
			}
			pageRange = args[i]
		case "-t":
			i++
			if i >= len(args) {
				return fmt.Errorf("-t requires an argument")
			}
			format = args[i]
		case "-thumb":
			i++
			if i >= len(args) {
				return fmt.Errorf("-thumb requires an argument")
			}
			n, err := strconv.Atoi(args[i])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid thumbnail size: %s", args[i])
			}
			thumb = n
		case "-skip":
			skip = true
		default:
			if err := c.positional(args[i]); err != nil {
				return err
			}
		}
	}

	cfg, log, err := c.setup()
	if err != nil {
		return err
	}
	if format == "" {
		format = cfg.Extract.ImageFormat
	}
	imgFormat, err := pdfextract.ParseFormat(format)
	if err != nil {
		return err
	}
	if skip {
		cfg.Extract.SkipUnresolved = true
	}

	doc, release, err := openDocument(ctx, cfg, log, c.inputFile)
	if err != nil {
		return fmt.Errorf("opening %s: %w", c.inputFile, err)
	}
	defer release()

	sub, pages, err := selectPages(doc, pageRange)
	if err != nil {
		return err
	}

	out, err := sink.Open(ctx, target, sink.S3Options{
		Region:       cfg.S3.Region,
		Endpoint:     cfg.S3.Endpoint,
		UsePathStyle: cfg.S3.UsePathStyle,
	})
	if err != nil {
		return err
	}

	ext := pdfextract.NewExtractor(extractorOptions(cfg, log)...)
	count := 0
	walkErr := ext.WalkImages(ctx, sub, func(rec pdfextract.ImageRecord) error {
		if thumb > 0 {
			rec = rec.Thumbnail(thumb)
		}
		enc, err := rec.Encode(imgFormat)
		if err != nil {
			return err
		}
		name := fileName(pages[rec.Page-1], rec.Name, imgFormat)
		if err := out.Put(ctx, name, imgFormat.MIME(), enc.Bytes()); err != nil {
			return err
		}
		log.Debug("image written", "name", name, "width", rec.Width, "height", rec.Height)
		count++
		return nil
	})
	if err := out.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if walkErr != nil {
		return walkErr
	}
	log.Info("images extracted", "file", c.inputFile, "count", count, "target", target)
	fmt.Fprintf(stdout, "%d images written to %s\n", count, target)
	return nil
}

// fileName builds "p<page>-<name>" with the format's extension. Form
// XObject paths ("Fm1/Im1") are flattened.
func fileName(page int, recordName string, f pdfextract.Format) string {
	base := strings.TrimSuffix(recordName, pdfextract.ImageNameExt)
	base = strings.ReplaceAll(base, "/", "_")
	return "p" + strconv.Itoa(page) + "-" + base + f.Ext()
}
