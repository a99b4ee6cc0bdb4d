package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	pdfextract "github.com/porticus-lab/go-pdf-extract"
)

// runText implements the "text" command.
func runText(ctx context.Context, args []string, stdout io.Writer) error {
	var (
		c          common
		outputFile string
		pageRange  string
		format     string
		layout     bool
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
			outputFile = args[i]
		case "-p":
			i++
			if i >= len(args) {
				return fmt.Errorf("-p requires an argument")
			}
			pageRange = args[i]
		case "-f":
			i++
			if i >= len(args) {
				return fmt.Errorf("-f requires an argument")
			}
			format = args[i]
		case "-layout":
			layout = true
		default:
			if err := c.positional(args[i]); err != nil {
				return err
			}
		}
	}

	switch format {
	case "":
		format = "text"
	case "text", "json", "markdown":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	cfg, log, err := c.setup()
	if err != nil {
		return err
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

	ext := pdfextract.NewExtractor(extractorOptions(cfg, log)...)
	var texts []string
	if layout {
		texts, err = ext.ExtractLayout(ctx, sub)
	} else {
		texts, err = ext.ExtractPageTexts(ctx, sub)
	}
	if err != nil {
		return err
	}
	log.Info("text extracted", "file", c.inputFile, "pages", len(texts))

	type pageResult struct {
		Page int    `json:"page"`
		Text string `json:"text"`
	}
	results := make([]pageResult, len(texts))
	for i, text := range texts {
		results[i] = pageResult{Page: pages[i], Text: text}
	}

	out := stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
	case "markdown":
		for _, r := range results {
			fmt.Fprintf(out, "## Page %d\n\n%s\n\n", r.Page, r.Text)
		}
	default:
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(out, "\f") // form feed between pages
			}
			fmt.Fprintln(out, r.Text)
		}
	}
	return nil
}
