package pdf

import (
	"bytes"
	"compress/lzw"
	"encoding/ascii85"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/image/ccitt"
	tifflzw "golang.org/x/image/tiff/lzw"
)

// maxDecodedSize bounds the output of a single filter (256 MB).
const maxDecodedSize = 256 << 20

var errTooLarge = errors.New("pdf: decoded stream exceeds 256 MB limit")

// Image filters that decode into a complete image rather than a byte stream.
// decodeStream stops in front of them and reports the filter to the caller.
const (
	filterDCT  = "DCTDecode"
	filterJPX  = "JPXDecode"
	filterJBIG = "JBIG2Decode"
)

var filterAliases = map[string]string{
	"Fl":  "FlateDecode",
	"AHx": "ASCIIHexDecode",
	"A85": "ASCII85Decode",
	"LZW": "LZWDecode",
	"RL":  "RunLengthDecode",
	"CCF": "CCITTFaxDecode",
	"DCT": filterDCT,
}

// filterChain returns the stream's filters and their decode parameters.
func (doc *Document) filterChain(d Dict) ([]string, []Dict) {
	fobj, err := doc.resolve(d["Filter"])
	if err != nil || fobj.IsNull() {
		return nil, nil
	}
	pobj, _ := doc.resolve(d["DecodeParms"])
	if pobj.IsNull() {
		pobj, _ = doc.resolve(d["DP"])
	}

	var filters []string
	var params []Dict
	add := func(f, p *Object) {
		if f == nil || f.Kind != KindName {
			return
		}
		name := f.Name
		if full, ok := filterAliases[name]; ok {
			name = full
		}
		var parms Dict
		if p, _ = doc.resolve(p); p != nil && p.Kind == KindDict {
			parms = p.Dict
		}
		filters = append(filters, name)
		params = append(params, parms)
	}

	if fobj.Kind == KindArray {
		for i, f := range fobj.Array {
			var p *Object
			if pobj != nil && pobj.Kind == KindArray && i < len(pobj.Array) {
				p = pobj.Array[i]
			}
			add(f, p)
		}
	} else {
		add(fobj, pobj)
	}
	return filters, params
}

// decodeStream applies the stream's filters in order. If an image filter
// (DCT, JPX, JBIG2) is reached, decoding stops and its name is returned with
// the still encoded data.
func (doc *Document) decodeStream(obj *Object) ([]byte, string, error) {
	filters, params := doc.filterChain(obj.Dict)
	data := obj.Stream
	for i, f := range filters {
		switch f {
		case filterDCT, filterJPX, filterJBIG:
			return data, f, nil
		}
		var err error
		data, err = applyFilter(f, params[i], data)
		if err != nil {
			return nil, "", fmt.Errorf("pdf: %s: %w", f, err)
		}
	}
	return data, "", nil
}

// streamData decodes a stream that must not end in an image filter.
func (doc *Document) streamData(obj *Object) ([]byte, error) {
	data, imgFilter, err := doc.decodeStream(obj)
	if err != nil {
		return nil, err
	}
	if imgFilter != "" {
		return nil, fmt.Errorf("pdf: unexpected %s in non-image stream", imgFilter)
	}
	return data, nil
}

func applyFilter(name string, parms Dict, data []byte) ([]byte, error) {
	switch name {
	case "FlateDecode":
		out, err := readLimited(zlibReader(data))
		if err != nil {
			return nil, err
		}
		return unpredict(parms, out)
	case "LZWDecode":
		var r io.ReadCloser
		if early, ok := parms.Int("EarlyChange"); ok && early == 0 {
			r = lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
		} else {
			r = tifflzw.NewReader(bytes.NewReader(data), tifflzw.MSB, 8)
		}
		defer r.Close()
		out, err := readLimited(r, nil)
		if err != nil && len(out) == 0 {
			return nil, err
		}
		return unpredict(parms, out)
	case "ASCII85Decode":
		if end := bytes.Index(data, []byte("~>")); end >= 0 {
			data = data[:end]
		}
		data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte("<~"))
		return readLimited(ascii85.NewDecoder(bytes.NewReader(data)), nil)
	case "ASCIIHexDecode":
		if end := bytes.IndexByte(data, '>'); end >= 0 {
			data = data[:end]
		}
		return decodeHex(data), nil
	case "RunLengthDecode":
		return runLength(data)
	case "CCITTFaxDecode":
		return ccittFax(parms, data)
	case "Crypt":
		return data, nil
	}
	return nil, fmt.Errorf("unsupported filter")
}

func zlibReader(data []byte) (io.Reader, error) {
	return zlib.NewReader(bytes.NewReader(data))
}

// readLimited reads r to the end, failing past maxDecodedSize. A truncated
// zlib stream still yields what was decoded before the error.
func readLimited(r io.Reader, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if len(out) > maxDecodedSize {
		return nil, errTooLarge
	}
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return out, err
	}
	return out, nil
}

// unpredict reverses a TIFF (2) or PNG (10-15) predictor.
func unpredict(parms Dict, data []byte) ([]byte, error) {
	if parms == nil {
		return data, nil
	}
	pred, _ := parms.Int("Predictor")
	if pred < 2 {
		return data, nil
	}
	colors := intOr(parms, "Colors", 1)
	bpc := intOr(parms, "BitsPerComponent", 8)
	cols := intOr(parms, "Columns", 1)
	rowLen := (cols*colors*bpc + 7) / 8
	bpp := max(1, (colors*bpc+7)/8)
	if rowLen <= 0 {
		return data, nil
	}
	if pred == 2 {
		if bpc != 8 {
			return data, nil
		}
		out := bytes.Clone(data)
		for row := 0; row < len(out); row += rowLen {
			end := min(row+rowLen, len(out))
			for i := row + bpp; i < end; i++ {
				out[i] += out[i-bpp]
			}
		}
		return out, nil
	}
	return pngUnfilter(data, rowLen, bpp), nil
}

func intOr(d Dict, key string, def int) int {
	if v, ok := d.Int(key); ok && v > 0 {
		return int(v)
	}
	return def
}

// pngUnfilter reverses per-row PNG filtering. Each input row carries a
// leading filter-type byte.
func pngUnfilter(data []byte, rowLen, bpp int) []byte {
	stride := rowLen + 1
	rows := len(data) / stride
	out := make([]byte, rows*rowLen)
	prev := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		src := data[r*stride+1 : (r+1)*stride]
		cur := out[r*rowLen : (r+1)*rowLen]
		ft := data[r*stride]
		for i := range cur {
			var a, c byte
			if i >= bpp {
				a = cur[i-bpp]
				c = prev[i-bpp]
			}
			b := prev[i]
			switch ft {
			case 1:
				cur[i] = src[i] + a
			case 2:
				cur[i] = src[i] + b
			case 3:
				cur[i] = src[i] + byte((int(a)+int(b))/2)
			case 4:
				cur[i] = src[i] + paeth(a, b, c)
			default:
				cur[i] = src[i]
			}
		}
		prev = cur
	}
	return out
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := absInt(p-int(a)), absInt(p-int(b)), absInt(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// runLength decodes PackBits: n<128 copies n+1 literal bytes, n>128 repeats
// the next byte 257-n times, 128 ends the data.
func runLength(data []byte) ([]byte, error) {
	var out []byte
	for i := 0; i < len(data); {
		n := int(data[i])
		i++
		switch {
		case n == 128:
			return out, nil
		case n < 128:
			end := min(i+n+1, len(data))
			out = append(out, data[i:end]...)
			i = end
		default:
			if i >= len(data) {
				return out, nil
			}
			out = append(out, bytes.Repeat(data[i:i+1], 257-n)...)
			i++
		}
		if len(out) > maxDecodedSize {
			return nil, errTooLarge
		}
	}
	return out, nil
}

// ccittFax decodes Group 3/4 fax data into packed 1-bit rows. Without
// /BlackIs1 a 0 bit is black, which is also the ccitt package default.
func ccittFax(parms Dict, data []byte) ([]byte, error) {
	k, _ := parms.Int("K")
	cols := intOr(parms, "Columns", 1728)
	rows := 0
	if v, ok := parms.Int("Rows"); ok {
		rows = int(v)
	}
	mode := ccitt.Group3
	if k < 0 {
		mode = ccitt.Group4
	}
	opts := &ccitt.Options{
		Align:  parms.Bool("EncodedByteAlign"),
		Invert: parms.Bool("BlackIs1"),
	}
	h := rows
	if h <= 0 {
		h = ccitt.AutoDetectHeight
	}
	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, mode, cols, h, opts)
	return readLimited(r, nil)
}
