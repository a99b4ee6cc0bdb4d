package pdfextract_test

import (
	"context"
	"fmt"
	"log"

	pdfextract "github.com/porticus-lab/go-pdf-extract"
	"github.com/porticus-lab/go-pdf-extract/internal/pdftest"
	"github.com/porticus-lab/go-pdf-extract/pdf"
)

func Example() {
	doc, err := pdf.Load(pdftest.Text(
		"BT /F1 12 Tf 72 700 Td (Hello) Tj ET",
		"BT /F1 12 Tf 72 700 Td (World) Tj ET",
	))
	if err != nil {
		log.Fatal(err)
	}

	text, err := pdfextract.ExtractText(context.Background(), doc)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(text)
	// Output: HelloWorld
}

func ExampleExtractImages() {
	doc, err := pdf.Load(pdftest.OnePage("q /Im1 Do Q", func(b *pdftest.Builder) string {
		img := b.Stream("/Subtype /Image /Width 2 /Height 1 /ColorSpace /DeviceRGB /BitsPerComponent 8",
			[]byte{255, 0, 0, 0, 0, 255})
		return "/XObject << /Im1 " + pdftest.Ref(img) + " >>"
	}))
	if err != nil {
		log.Fatal(err)
	}

	recs, err := pdfextract.ExtractImages(context.Background(), doc)
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range recs {
		fmt.Printf("%s page %d: %dx%d %v\n", r.Name, r.Page, r.Width, r.Height, r.Pix)
	}
	// Output: Im1.png page 1: 2x1 [255 0 0 255 0 0 255 255]
}

func ExampleSelect() {
	doc, err := pdf.Load(pdftest.Text(
		"BT /F1 12 Tf (one) Tj ET",
		"BT /F1 12 Tf (two) Tj ET",
		"BT /F1 12 Tf (three) Tj ET",
	))
	if err != nil {
		log.Fatal(err)
	}

	sub, err := pdfextract.Select(doc, []int{3, 1})
	if err != nil {
		log.Fatal(err)
	}
	pages, err := pdfextract.NewExtractor().ExtractPageTexts(context.Background(), sub)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(pages)
	// Output: [three one]
}

func ExampleExpandRGB() {
	rgba, err := pdfextract.ExpandRGB([]byte{10, 20, 30, 40, 50, 60}, 2, 1)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(rgba)
	// Output: [10 20 30 255 40 50 60 255]
}

func ExampleLayout() {
	fmt.Println(pdfextract.Layout([]pdfextract.TextItem{
		{Str: "World", X: 100, Y: 700, FontSize: 12},
		{Str: "Hello", X: 10, Y: 700, FontSize: 12},
		{Str: "Below", X: 10, Y: 680, FontSize: 12},
	}))
	// Output:
	// Hello World
	// Below
}
