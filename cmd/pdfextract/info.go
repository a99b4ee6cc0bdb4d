package main

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/porticus-lab/go-pdf-extract/pdf"
)

// runInfo implements the "info" command. It always uses the native parser.
func runInfo(_ context.Context, args []string, stdout io.Writer) error {
	var c common
	for i := 0; i < len(args); i++ {
		if ok, err := c.parse(args, &i); ok {
			if err != nil {
				return err
			}
			continue
		}
		if err := c.positional(args[i]); err != nil {
			return err
		}
	}
	_, log, err := c.setup()
	if err != nil {
		return err
	}

	data, err := readPDF(c.inputFile)
	if err != nil {
		return err
	}
	doc, err := pdf.Load(data)
	if err != nil {
		return fmt.Errorf("opening %s: %w", c.inputFile, err)
	}
	doc.SetLogger(log)
	log.Debug("document loaded", "file", c.inputFile, "pages", doc.PageCount())

	fmt.Fprintf(stdout, "File:    %s\n", c.inputFile)
	fmt.Fprintf(stdout, "Version: PDF-%s\n", doc.Version())
	fmt.Fprintf(stdout, "Pages:   %d\n", doc.PageCount())

	if info := doc.Info(); len(info) > 0 {
		fmt.Fprintln(stdout)
		keys := make([]string, 0, len(info))
		for k := range info {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(stdout, "%-13s %s\n", k+":", info[k])
		}
	}

	if doc.PageCount() > 0 {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Page dimensions:")
		for n := 1; n <= doc.PageCount(); n++ {
			info, err := doc.PageInfo(n)
			if err != nil {
				log.Warn("page info unavailable", "page", n, "error", err)
				continue
			}
			fmt.Fprintf(stdout, "  Page %d: %.0f x %.0f pt", n, info.Width, info.Height)
			if paper, ok := info.Paper(); ok {
				fmt.Fprintf(stdout, " %s %s", paper.Name, info.Orientation())
			}
			if info.Rotate != 0 {
				fmt.Fprintf(stdout, " (rotated %d°)", info.Rotate)
			}
			fmt.Fprintln(stdout)
		}
	}
	return nil
}
