package pdfjs_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"

	pdfextract "github.com/porticus-lab/go-pdf-extract"
	"github.com/porticus-lab/go-pdf-extract/internal/pdftest"
	"github.com/porticus-lab/go-pdf-extract/pdfjs"
)

// chromeAvailable reports whether a Chrome/Chromium executable is in PATH.
func chromeAvailable() bool {
	for _, name := range []string{
		"chromium-browser", "chromium", "google-chrome",
		"google-chrome-stable", "chrome",
	} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

func skipIfNoChrome(t *testing.T) {
	t.Helper()
	if !chromeAvailable() {
		t.Skip("skipping: Chrome/Chromium not found in PATH")
	}
}

// loadTestDocument needs network access to fetch pdf.js, so it also
// requires PDFEXTRACT_PDFJS_TEST to be set.
func loadTestDocument(t *testing.T, data []byte) *pdfjs.Document {
	t.Helper()
	skipIfNoChrome(t)
	if os.Getenv("PDFEXTRACT_PDFJS_TEST") == "" {
		t.Skip("skipping: set PDFEXTRACT_PDFJS_TEST to run pdf.js tests")
	}
	eng, err := pdfjs.NewEngine(pdfjs.WithNoSandbox())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	doc, err := eng.Load(context.Background(), data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { doc.Close() })
	return doc
}

func TestExtractText(t *testing.T) {
	doc := loadTestDocument(t, pdftest.Text(
		"BT /F1 12 Tf 72 720 Td (Hello) Tj ET",
		"BT /F1 12 Tf 72 720 Td (World) Tj ET",
	))
	if doc.PageCount() != 2 {
		t.Fatalf("PageCount = %d, want 2", doc.PageCount())
	}
	if v := doc.LibraryVersion(); v == "" || !strings.Contains(pdfjs.DefaultLibraryURL, "@"+v+"/") {
		t.Errorf("LibraryVersion = %q, want the version pinned in %s", v, pdfjs.DefaultLibraryURL)
	}
	text, err := pdfextract.ExtractText(context.Background(), doc)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "HelloWorld" {
		t.Errorf("text = %q, want %q", text, "HelloWorld")
	}
}

func TestExtractImages(t *testing.T) {
	data := pdftest.OnePage("q 2 0 0 1 0 0 cm /Im1 Do Q", func(b *pdftest.Builder) string {
		img := b.Stream("/Type /XObject /Subtype /Image /Width 2 /Height 1 /ColorSpace /DeviceRGB /BitsPerComponent 8",
			[]byte{255, 0, 0, 0, 0, 255})
		return "/XObject << /Im1 " + pdftest.Ref(img) + " >>"
	})
	doc := loadTestDocument(t, data)
	recs, err := pdfextract.ExtractImages(context.Background(), doc)
	if err != nil {
		t.Fatalf("ExtractImages: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Width != 2 || recs[0].Height != 1 {
		t.Errorf("size = %dx%d, want 2x1", recs[0].Width, recs[0].Height)
	}
}

func TestEngine_CloseIdempotent(t *testing.T) {
	skipIfNoChrome(t)

	eng, err := pdfjs.NewEngine(pdfjs.WithNoSandbox())
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestEngine_UsedAfterClose(t *testing.T) {
	skipIfNoChrome(t)

	eng, err := pdfjs.NewEngine(pdfjs.WithNoSandbox())
	if err != nil {
		t.Fatal(err)
	}
	eng.Close()

	_, err = eng.Load(context.Background(), pdftest.Text("BT ET"))
	if !errors.Is(err, pdfjs.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
