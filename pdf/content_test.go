package pdf

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	pdfextract "github.com/porticus-lab/go-pdf-extract"
	"github.com/porticus-lab/go-pdf-extract/internal/pdftest"
)

func loadPage(t *testing.T, data []byte, n int) *Page {
	t.Helper()
	doc, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, err := doc.page(context.Background(), n)
	if err != nil {
		t.Fatalf("page %d: %v", n, err)
	}
	return p
}

func opCodes(ops []pdfextract.Operation) []pdfextract.OpCode {
	out := make([]pdfextract.OpCode, len(ops))
	for i, op := range ops {
		out[i] = op.Op
	}
	return out
}

func TestExtractSimpleText(t *testing.T) {
	doc, err := Load(pdftest.Text("BT /F1 12 Tf 100 700 Td (Hello, World!) Tj ET"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	text, err := pdfextract.ExtractText(context.Background(), doc)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "Hello, World!" {
		t.Errorf("text = %q, want %q", text, "Hello, World!")
	}
}

func TestExtractTJOperator(t *testing.T) {
	p := loadPage(t, pdftest.Text("BT /F1 14 Tf 50 750 Td [(Go) -200 (PDF) 50 (!)] TJ ET"), 1)
	items, err := p.TextContent(context.Background())
	if err != nil {
		t.Fatalf("TextContent: %v", err)
	}
	if len(items) != 1 || items[0].Str != "Go PDF!" {
		t.Fatalf("items = %+v, want one item \"Go PDF!\"", items)
	}
	if items[0].X != 50 || items[0].Y != 750 || items[0].FontSize != 14 || items[0].FontName != "F1" {
		t.Errorf("item position/font = %+v", items[0])
	}
}

func TestMultiplePages(t *testing.T) {
	doc, err := Load(pdftest.Text(
		"BT /F1 12 Tf 100 700 Td (Page one) Tj ET",
		"BT /F1 12 Tf 100 700 Td (Page two) Tj ET",
	))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	texts, err := pdfextract.NewExtractor().ExtractPageTexts(context.Background(), doc)
	if err != nil {
		t.Fatalf("ExtractPageTexts: %v", err)
	}
	if diff := cmp.Diff([]string{"Page one", "Page two"}, texts); diff != "" {
		t.Errorf("texts mismatch (-want +got):\n%s", diff)
	}
}

func TestTextPositioning(t *testing.T) {
	content := `BT /F1 10 Tf 14 TL 72 700 Td (first) Tj T* (second) Tj
		0 -20 TD (third) Tj (fourth) ' 1 2 (fifth) " ET
		q 2 0 0 2 0 0 cm BT /F1 10 Tf 1 0 0 1 10 20 Tm (scaled) Tj ET Q`
	p := loadPage(t, pdftest.Text(content), 1)
	items, err := p.TextContent(context.Background())
	if err != nil {
		t.Fatalf("TextContent: %v", err)
	}
	type pos struct {
		Str  string
		X, Y float64
		Size float64
	}
	var got []pos
	for _, it := range items {
		got = append(got, pos{it.Str, it.X, it.Y, it.FontSize})
	}
	want := []pos{
		{"first", 72, 700, 10},
		{"second", 72, 686, 10},
		{"third", 72, 666, 10},
		{"fourth", 72, 646, 10},
		{"fifth", 72, 626, 10},
		{"scaled", 20, 40, 20},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestLayoutOfNativeText(t *testing.T) {
	content := `BT /F1 12 Tf 72 700 Td (World) Tj ET
		BT /F1 12 Tf 20 700 Td (Hello) Tj ET
		BT /F1 12 Tf 20 680 Td (Second line) Tj ET`
	doc, err := Load(pdftest.Text(content))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pages, err := pdfextract.NewExtractor().ExtractLayout(context.Background(), doc)
	if err != nil {
		t.Fatalf("ExtractLayout: %v", err)
	}
	if want := "Hello World\nSecond line"; pages[0] != want {
		t.Errorf("layout = %q, want %q", pages[0], want)
	}
}

func TestWinAnsiText(t *testing.T) {
	// 0x80 is the euro sign and 0x93/0x94 curly quotes in WinAnsiEncoding.
	p := loadPage(t, pdftest.Text(`BT /F1 12 Tf <80209394> Tj ET`), 1)
	items, err := p.TextContent(context.Background())
	if err != nil {
		t.Fatalf("TextContent: %v", err)
	}
	if len(items) != 1 || items[0].Str != "€ “”" {
		t.Errorf("items = %+v, want \"€ “”\"", items)
	}
}

func TestToUnicodeFont(t *testing.T) {
	cmap := `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
1 begincodespacerange <0000> <FFFF> endcodespacerange
2 beginbfchar
<0001> <0048>
<0002> <0069>
endbfchar
1 beginbfrange
<0010> <0012> <0061>
endbfrange
endcmap
CMapName currentdict /CMap defineresource pop
end
end`
	b := &pdftest.Builder{}
	catalog := b.Reserve()
	tree := b.Reserve()
	tu := b.Stream("", []byte(cmap))
	font := b.Add("<< /Type /Font /Subtype /Type0 /BaseFont /Custom /Encoding /Identity-H /ToUnicode " + pdftest.Ref(tu) + " >>")
	cs := b.Stream("", []byte("BT /F2 12 Tf <000100020010001100120003> Tj ET"))
	page := b.Add("<< /Type /Page /Parent " + pdftest.Ref(tree) + " /Contents " + pdftest.Ref(cs) + " /Resources << /Font << /F2 " + pdftest.Ref(font) + " >> >> >>")
	b.Set(catalog, "<< /Type /Catalog /Pages "+pdftest.Ref(tree)+" >>")
	b.Set(tree, "<< /Type /Pages /Kids ["+pdftest.Ref(page)+"] /Count 1 >>")

	p := loadPage(t, b.Bytes("/Root "+pdftest.Ref(catalog)), 1)
	items, err := p.TextContent(context.Background())
	if err != nil {
		t.Fatalf("TextContent: %v", err)
	}
	// Code 0003 has no mapping and is dropped.
	if len(items) != 1 || items[0].Str != "Hiabc" {
		t.Errorf("items = %+v, want \"Hiabc\"", items)
	}
}

func TestOperatorList(t *testing.T) {
	content := "q 1 0 0 1 10 20 cm 0.5 g 0 0 10 10 re f Q BT /F1 12 Tf (x) Tj ET /Span << /MCID 0 >> BDC EMC unknownop"
	p := loadPage(t, pdftest.Text(content), 1)
	ops, err := p.OperatorList(context.Background())
	if err != nil {
		t.Fatalf("OperatorList: %v", err)
	}
	want := []pdfextract.OpCode{
		pdfextract.OpSave,
		pdfextract.OpTransform,
		pdfextract.OpSetFillGray,
		pdfextract.OpRectangle,
		pdfextract.OpFill,
		pdfextract.OpRestore,
		pdfextract.OpBeginText,
		pdfextract.OpSetFont,
		pdfextract.OpShowText,
		pdfextract.OpEndText,
		pdfextract.OpBeginMarkedContentProps,
		pdfextract.OpEndMarkedContent,
	}
	if diff := cmp.Diff(want, opCodes(ops)); diff != "" {
		t.Fatalf("op codes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{1.0, 0.0, 0.0, 1.0, 10.0, 20.0}, ops[1].Args); diff != "" {
		t.Errorf("cm args mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"F1", 12.0}, ops[7].Args); diff != "" {
		t.Errorf("Tf args mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"Span", map[string]any{"MCID": 0.0}}, ops[10].Args); diff != "" {
		t.Errorf("BDC args mismatch (-want +got):\n%s", diff)
	}
}

func TestOperatorList_ReturnsCopy(t *testing.T) {
	p := loadPage(t, pdftest.Text("q Q"), 1)
	ops, _ := p.OperatorList(context.Background())
	ops[0].Op = pdfextract.OpFill
	again, _ := p.OperatorList(context.Background())
	if again[0].Op != pdfextract.OpSave {
		t.Error("mutating the returned list changed the page")
	}
}

func TestInlineImage(t *testing.T) {
	content := "q BI /W 2 /H 1 /CS /RGB /BPC 8 ID \xff\x00\x00\x00\xff\x00 EI Q"
	p := loadPage(t, pdftest.Text(content), 1)
	ops, err := p.OperatorList(context.Background())
	if err != nil {
		t.Fatalf("OperatorList: %v", err)
	}
	want := []pdfextract.OpCode{pdfextract.OpSave, pdfextract.OpPaintInlineImageXObject, pdfextract.OpRestore}
	if diff := cmp.Diff(want, opCodes(ops)); diff != "" {
		t.Fatalf("op codes mismatch (-want +got):\n%s", diff)
	}
	dict := ops[1].Args[0].(map[string]any)
	if dict["W"] != 2.0 || dict["CS"] != "RGB" {
		t.Errorf("inline image dict = %v", dict)
	}
	if got := ops[1].Args[1].([]byte); string(got) != "\xff\x00\x00\x00\xff\x00" {
		t.Errorf("inline image data = %x", got)
	}
	if _, ok := ops[1].ObjectName(); ok {
		t.Error("inline images carry no object name")
	}
}

func TestLexer(t *testing.T) {
	lx := newLexer([]byte("1 -2.5 /Name (str) [1 2] true null Tj % comment\n) ] T*"))
	var operands []any
	var keywords []string
	for {
		obj, kw, err := lx.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if obj != nil {
			operands = append(operands, obj.Value())
		} else {
			keywords = append(keywords, kw)
		}
	}
	wantOperands := []any{1.0, -2.5, "Name", []byte("str"), []any{1.0, 2.0}, true, nil}
	if diff := cmp.Diff(wantOperands, operands); diff != "" {
		t.Errorf("operands mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Tj", "T*"}, keywords); diff != "" {
		t.Errorf("keywords mismatch (-want +got):\n%s", diff)
	}
}

func TestContentAcrossStreams(t *testing.T) {
	b := &pdftest.Builder{}
	catalog := b.Reserve()
	tree := b.Reserve()
	font := b.Add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	cs1 := b.Stream("", []byte("BT /F1 12 Tf (split"))
	cs2 := b.Stream("/Filter /FlateDecode", pdftest.Deflate([]byte(") Tj ( stream) Tj ET")))
	page := b.Add("<< /Type /Page /Parent " + pdftest.Ref(tree) + " /Contents [" + pdftest.Ref(cs1) + " " + pdftest.Ref(cs2) + "] /Resources << /Font << /F1 " + pdftest.Ref(font) + " >> >> >>")
	b.Set(catalog, "<< /Type /Catalog /Pages "+pdftest.Ref(tree)+" >>")
	b.Set(tree, "<< /Type /Pages /Kids ["+pdftest.Ref(page)+"] /Count 1 >>")

	doc, err := Load(b.Bytes("/Root " + pdftest.Ref(catalog)))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	text, err := pdfextract.ExtractText(context.Background(), doc)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	// The streams are joined with a newline, which ends up inside the string.
	if !strings.HasPrefix(text, "split") || !strings.HasSuffix(text, " stream") {
		t.Errorf("text = %q", text)
	}
}

func TestCanceledContext(t *testing.T) {
	p := loadPage(t, pdftest.Text("BT ET"), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.TextContent(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
