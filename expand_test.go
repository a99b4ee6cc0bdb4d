package pdfextract

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExpandRGB(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
		w, h int
		want []byte
	}{
		{
			name: "single pixel",
			src:  []byte{10, 20, 30},
			w:    1,
			h:    1,
			want: []byte{10, 20, 30, 255},
		},
		{
			name: "two by one",
			src:  []byte{1, 2, 3, 4, 5, 6},
			w:    2,
			h:    1,
			want: []byte{1, 2, 3, 255, 4, 5, 6, 255},
		},
		{
			name: "one by two",
			src:  []byte{0, 0, 0, 255, 255, 255},
			w:    1,
			h:    2,
			want: []byte{0, 0, 0, 255, 255, 255, 255, 255},
		},
		{
			name: "red green blue yellow",
			src:  []byte{255, 0, 0, 0, 255, 0, 0, 0, 255, 255, 255, 0},
			w:    2,
			h:    2,
			want: []byte{255, 0, 0, 255, 0, 255, 0, 255, 0, 0, 255, 255, 255, 255, 0, 255},
		},
		{
			name: "trailing bytes ignored",
			src:  []byte{7, 8, 9, 99, 99},
			w:    1,
			h:    1,
			want: []byte{7, 8, 9, 255},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandRGB(tt.src, tt.w, tt.h)
			if err != nil {
				t.Fatalf("ExpandRGB: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExpandRGB mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExpandRGB_AlphaAlwaysOpaque(t *testing.T) {
	const w, h = 17, 9
	src := make([]byte, w*h*3)
	for i := range src {
		src[i] = byte(i)
	}
	got, err := ExpandRGB(src, w, h)
	if err != nil {
		t.Fatalf("ExpandRGB: %v", err)
	}
	if len(got) != w*h*4 {
		t.Fatalf("len = %d, want %d", len(got), w*h*4)
	}
	for p := 0; p < w*h; p++ {
		if got[p*4+3] != 255 {
			t.Fatalf("pixel %d alpha = %d, want 255", p, got[p*4+3])
		}
		for c := 0; c < 3; c++ {
			if got[p*4+c] != src[p*3+c] {
				t.Fatalf("pixel %d channel %d = %d, want %d", p, c, got[p*4+c], src[p*3+c])
			}
		}
	}
}

func TestExpandRGB_DoesNotAliasInput(t *testing.T) {
	src := []byte{1, 2, 3}
	got, err := ExpandRGB(src, 1, 1)
	if err != nil {
		t.Fatalf("ExpandRGB: %v", err)
	}
	got[0] = 42
	if src[0] != 1 {
		t.Error("ExpandRGB output shares memory with input")
	}
}

func TestExpandRGB_Deterministic(t *testing.T) {
	src := []byte{9, 8, 7, 6, 5, 4, 3, 2, 1, 0, 10, 20}
	orig := bytes.Clone(src)
	first, err := ExpandRGB(src, 2, 2)
	if err != nil {
		t.Fatalf("ExpandRGB: %v", err)
	}
	second, err := ExpandRGB(src, 2, 2)
	if err != nil {
		t.Fatalf("ExpandRGB: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated calls differ (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(orig, src); diff != "" {
		t.Errorf("input modified (-want +got):\n%s", diff)
	}
}

func TestExpandRGB_Malformed(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
		w, h int
	}{
		{"short buffer", []byte{1, 2, 3, 4, 5}, 2, 1},
		{"empty buffer", nil, 1, 1},
		{"zero width", []byte{1, 2, 3}, 0, 1},
		{"zero height", []byte{1, 2, 3}, 1, 0},
		{"negative width", []byte{1, 2, 3}, -1, 1},
		{"overflow", []byte{1, 2, 3}, math.MaxInt / 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandRGB(tt.src, tt.w, tt.h)
			if !errors.Is(err, ErrMalformedBuffer) {
				t.Fatalf("err = %v, want ErrMalformedBuffer", err)
			}
			if got != nil {
				t.Errorf("got %d bytes on error, want nil", len(got))
			}
		})
	}
}

func BenchmarkExpandRGB(b *testing.B) {
	src := make([]byte, 1024*1024*3)
	b.SetBytes(int64(len(src)))
	for b.Loop() {
		if _, err := ExpandRGB(src, 1024, 1024); err != nil {
			b.Fatal(err)
		}
	}
}
