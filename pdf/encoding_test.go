package pdf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func font(t *testing.T, src string) *fontEncoding {
	t.Helper()
	obj, err := newParser([]byte(src), 0).object()
	if err != nil {
		t.Fatalf("parsing font: %v", err)
	}
	doc := &Document{cache: map[int]*Object{}, xref: map[int]xrefEntry{}}
	return newFontEncoding(doc, obj)
}

func TestFontEncoding(t *testing.T) {
	tests := []struct {
		name string
		font string
		in   []byte
		want string
	}{
		{
			name: "win ansi euro",
			font: "<< /Subtype /Type1 /Encoding /WinAnsiEncoding >>",
			in:   []byte{0x80, 'a'},
			want: "€a",
		},
		{
			name: "mac roman",
			font: "<< /Subtype /Type1 /Encoding /MacRomanEncoding >>",
			in:   []byte{0x8A, 0xA5},
			want: "ä•",
		},
		{
			name: "standard quotes",
			font: "<< /Subtype /Type1 >>",
			in:   []byte("it's"),
			want: "it’s",
		},
		{
			name: "truetype defaults to win ansi",
			font: "<< /Subtype /TrueType >>",
			in:   []byte{0x93, 'x', 0x94},
			want: "“x”",
		},
		{
			name: "differences",
			font: "<< /Subtype /Type1 /Encoding << /BaseEncoding /WinAnsiEncoding /Differences [65 /Adieresis /uni00DF 97 /bullet /f_i] >> >>",
			in:   []byte("ABab"),
			want: "Äß•b",
		},
		{
			name: "identity without cmap drops codes",
			font: "<< /Subtype /Type0 /Encoding /Identity-H >>",
			in:   []byte{0, 1, 0, 2},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := font(t, tt.font).decode(tt.in); got != tt.want {
				t.Errorf("decode = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseToUnicode(t *testing.T) {
	cmap := []byte(`begincmap
1 begincodespacerange <00> <FF> endcodespacerange
2 beginbfchar
<01> <0041>
<02> <D83DDE00>
endbfchar
2 beginbfrange
<10> <12> <0061>
<20> <21> [<0066006C> <0078>]
endbfrange
endcmap`)
	codeLen := 2
	got := parseToUnicode(cmap, &codeLen)
	want := map[uint32]string{
		0x01: "A",
		0x02: "😀",
		0x10: "a", 0x11: "b", 0x12: "c",
		0x20: "fl", 0x21: "x",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseToUnicode mismatch (-want +got):\n%s", diff)
	}
	if codeLen != 1 {
		t.Errorf("codeLen = %d, want 1 from the codespace range", codeLen)
	}
}

func TestBfRangeLimit(t *testing.T) {
	m := map[uint32]string{}
	lo := &Object{Kind: KindString, Str: []byte{0, 0, 0, 0}}
	hi := &Object{Kind: KindString, Str: []byte{0xFF, 0xFF, 0xFF, 0xFF}}
	bfRange(m, lo, hi, &Object{Kind: KindString, Str: []byte{0, 'a'}})
	if len(m) != 0 {
		t.Errorf("oversized range produced %d entries", len(m))
	}
}

func TestGlyphRune(t *testing.T) {
	tests := []struct {
		name string
		want rune
		ok   bool
	}{
		{"A", 'A', true},
		{"space", ' ', true},
		{"uni20AC", '€', true},
		{"u1F600", '😀', true},
		{"bullet", '•', true},
		{"notaglyph", 0, false},
	}
	for _, tt := range tests {
		r, ok := glyphRune(tt.name)
		if r != tt.want || ok != tt.ok {
			t.Errorf("glyphRune(%q) = %q, %v; want %q, %v", tt.name, r, ok, tt.want, tt.ok)
		}
	}
}

func TestDecodeTextString(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte("plain"), "plain"},
		{[]byte{0xFE, 0xFF, 0x00, 'H', 0x00, 'i'}, "Hi"},
		{[]byte{0xEF, 0xBB, 0xBF, 'o', 'k'}, "ok"},
		{[]byte{0x80, 'x'}, "•x"},
	}
	for _, tt := range tests {
		if got := decodeTextString(tt.in); got != tt.want {
			t.Errorf("decodeTextString(%x) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
