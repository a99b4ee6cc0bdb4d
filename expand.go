package pdfextract

import (
	"fmt"
	"math"
)

// opaque is the alpha value written for every pixel.
const opaque = 255

// ExpandRGB converts packed 8-bit RGB pixels into packed RGBA pixels,
// appending a fully opaque alpha byte after each pixel's colour bytes.
//
// The result has exactly width*height*4 bytes and never shares memory with
// src; src is not modified. Bytes beyond width*height*3 are ignored. If src is
// too short or the dimensions are not positive, ExpandRGB returns an error
// matching [ErrMalformedBuffer] and no output.
func ExpandRGB(src []byte, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrMalformedBuffer, width, height)
	}
	if width > math.MaxInt/4/height {
		return nil, fmt.Errorf("%w: dimensions %dx%d too large", ErrMalformedBuffer, width, height)
	}
	pixels := width * height
	if len(src) < pixels*3 {
		return nil, fmt.Errorf("%w: got %d bytes, need %d for %dx%d RGB",
			ErrMalformedBuffer, len(src), pixels*3, width, height)
	}

	dst := make([]byte, pixels*4)
	for p, s, d := 0, 0, 0; p < pixels; p, s, d = p+1, s+3, d+4 {
		dst[d+0] = src[s+0]
		dst[d+1] = src[s+1]
		dst[d+2] = src[s+2]
		dst[d+3] = opaque
	}
	return dst, nil
}
