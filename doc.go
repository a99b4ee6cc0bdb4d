// Package pdfextract pulls plain text and raster images out of PDF documents.
//
// The package works against the small [Document] and [Page] interfaces, so
// the same extraction code runs on any of the bundled backends:
//
//   - pdf: a pure Go parser, no external dependencies
//   - lpdf: built on github.com/ledongthuc/pdf
//   - pdfjs: drives Mozilla's pdf.js inside headless Chrome
//
// # Text
//
// Open a document with a backend and hand it to the extractor:
//
//	doc, err := pdf.Open("report.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	text, err := pdfextract.ExtractText(ctx, doc)
//
// Pages are fetched concurrently and their text is joined in page order.
// Text extraction is all or nothing: if any page fails the call returns a
// [*PageError] wrapping [ErrPageAccess].
//
// For repeated work create an [Extractor]:
//
//	ext := pdfextract.NewExtractor(pdfextract.WithConcurrency(4))
//	pages, err := ext.ExtractPageTexts(ctx, doc) // []string, one per page
//	lines, err := ext.ExtractLayout(ctx, doc)    // positioned lines, see Layout
//
// # Images
//
// Images are found by walking each page's operator list for the image
// painting operations in [ImageOps] and resolving the named objects:
//
//	recs, err := pdfextract.ExtractImages(ctx, doc)
//	for _, r := range recs {
//	    enc, _ := r.Encode(pdfextract.FormatPNG)
//	    enc.WriteToFile(r.Name, 0o644)
//	}
//
// Every [ImageRecord] holds RGBA pixels and is named after the object with
// [ImageNameExt] appended. By default the first unresolved image aborts
// the call with an [*ImageError]; [WithSkipUnresolved] drops such images
// instead. [Extractor.WalkImages] streams records one at a time.
//
// Use [Select] to restrict either operation to a set of pages.
package pdfextract
