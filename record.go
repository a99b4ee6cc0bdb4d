package pdfextract

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// ImageRecord is one extracted image: opaque RGBA pixels plus the name it
// should be saved under.
type ImageRecord struct {
	// Pix holds Width*Height*4 bytes of packed RGBA, alpha always 255.
	Pix    []byte
	Width  int
	Height int

	// Name is the object reference name with ".png" appended.
	Name string

	Page  int    // 1-indexed page the image was painted on
	Index int    // position in the extraction sequence
	Op    OpCode // paint operation that referenced the image
}

// Image returns the record as an [*image.RGBA] sharing the record's pixels.
func (r *ImageRecord) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    r.Pix,
		Stride: r.Width * 4,
		Rect:   image.Rect(0, 0, r.Width, r.Height),
	}
}

// Format is an encodable image file format.
type Format string

// Supported output formats.
const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// ParseFormat accepts a format name or common file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "bmp":
		return FormatBMP, nil
	case "tiff", "tif":
		return FormatTIFF, nil
	}
	return "", fmt.Errorf("pdfextract: unknown image format %q", s)
}

// MIME returns the media type of the format.
func (f Format) MIME() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	}
	return "image/png"
}

// Ext returns the file extension of the format, including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatBMP:
		return ".bmp"
	case FormatTIFF:
		return ".tiff"
	}
	return ".png"
}

// jpegQuality is used for FormatJPEG.
const jpegQuality = 90

// Encode encodes the record in the given format.
func (r *ImageRecord) Encode(f Format) (*Encoded, error) {
	return encodeImage(r.Image(), f)
}

// Thumbnail returns a copy of the record scaled so that neither side exceeds
// maxDim, keeping the aspect ratio. Records already small enough are returned
// unchanged.
func (r *ImageRecord) Thumbnail(maxDim int) ImageRecord {
	if maxDim <= 0 || (r.Width <= maxDim && r.Height <= maxDim) {
		return *r
	}
	w, h := maxDim, maxDim
	if r.Width >= r.Height {
		h = max(1, r.Height*maxDim/r.Width)
	} else {
		w = max(1, r.Width*maxDim/r.Height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), r.Image(), r.Image().Bounds(), draw.Src, nil)

	out := *r
	out.Pix = dst.Pix
	out.Width = w
	out.Height = h
	return out
}

func encodeImage(img image.Image, f Format) (*Encoded, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case FormatPNG, "":
		f = FormatPNG
		err = png.Encode(&buf, img)
	case FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	case FormatBMP:
		err = bmp.Encode(&buf, img)
	case FormatTIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return nil, fmt.Errorf("pdfextract: unknown image format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("pdfextract: encode %s: %w", f, err)
	}
	return &Encoded{data: buf.Bytes(), format: f}, nil
}

// Encoded holds an encoded image file and provides helpers for common
// output forms such as raw bytes, base64 and data URLs.
//
// Its methods never modify the underlying data and may be called repeatedly.
type Encoded struct {
	data   []byte
	format Format
}

// Bytes returns the encoded file content.
func (e *Encoded) Bytes() []byte {
	return e.data
}

// Format returns the format the content is encoded in.
func (e *Encoded) Format() Format {
	return e.format
}

// Base64 returns the content as a standard base64 string (RFC 4648).
func (e *Encoded) Base64() string {
	return base64.StdEncoding.EncodeToString(e.data)
}

// DataURL returns the content as a data: URL suitable for an <img> src.
func (e *Encoded) DataURL() string {
	return "data:" + e.format.MIME() + ";base64," + e.Base64()
}

// Reader returns an [*bytes.Reader] over the content.
func (e *Encoded) Reader() *bytes.Reader {
	return bytes.NewReader(e.data)
}

// WriteTo writes the full content to w. It implements [io.WriterTo].
func (e *Encoded) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(e.data)
	return int64(n), err
}

// WriteToFile writes the content to the file at path, creating it if needed.
func (e *Encoded) WriteToFile(path string, perm os.FileMode) error {
	return os.WriteFile(path, e.data, perm)
}

// Len returns the size of the content in bytes.
func (e *Encoded) Len() int {
	return len(e.data)
}
