package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	pdfextract "github.com/porticus-lab/go-pdf-extract"
	"github.com/porticus-lab/go-pdf-extract/internal/pixel"
)

// ErrUnsupportedImage is returned for images whose encoding or colour space
// cannot be decoded, such as JPEG 2000 and JBIG2 streams.
var ErrUnsupportedImage = errors.New("pdf: unsupported image")

// decodeImage turns an image XObject into packed RGB.
func (doc *Document) decodeImage(obj *Object) (*pdfextract.RawImage, error) {
	d := obj.Dict
	w, h := doc.intValue(d["Width"]), doc.intValue(d["Height"])
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("pdf: image has invalid size %dx%d", w, h)
	}

	data, imgFilter, err := doc.decodeStream(obj)
	if err != nil {
		return nil, err
	}
	switch imgFilter {
	case "":
	case filterDCT:
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("pdf: decoding JPEG: %w", err)
		}
		return rgbImage(img), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, imgFilter)
	}

	src := pixel.Image{Data: data, Width: w, Height: h, BPC: 1, Space: pixel.DeviceGray}
	if !d.Bool("ImageMask") {
		src.BPC = 8
		if bpc := doc.intValue(d["BitsPerComponent"]); bpc > 0 {
			src.BPC = bpc
		}
		cs, err := doc.colorSpace(d["ColorSpace"], 0)
		if err != nil {
			return nil, err
		}
		src.Space = cs
	}
	if arr, err := doc.resolve(d["Decode"]); err == nil && arr.Kind == KindArray {
		for _, v := range arr.Array {
			src.Decode = append(src.Decode, v.Float())
		}
	}

	rgb, err := pixel.ToRGB(src)
	if err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}
	return &pdfextract.RawImage{Data: rgb, Width: w, Height: h}, nil
}

func (doc *Document) intValue(o *Object) int {
	o, err := doc.resolve(o)
	if err != nil {
		return 0
	}
	return int(o.Float())
}

// colorSpace resolves an image /ColorSpace entry. ICC profiles and tint
// transforms are not evaluated: ICCBased spaces fall back to the device
// space with the same number of components.
func (doc *Document) colorSpace(o *Object, depth int) (*pixel.Space, error) {
	if depth > 4 {
		return nil, errNesting
	}
	o, err := doc.resolve(o)
	if err != nil {
		return nil, err
	}
	switch o.Kind {
	case KindNull:
		return pixel.DeviceGray, nil
	case KindName:
		return deviceSpace(o.Name)
	case KindArray:
	default:
		return nil, fmt.Errorf("%w: colour space of kind %v", ErrUnsupportedImage, o.Kind)
	}
	if len(o.Array) == 0 {
		return nil, fmt.Errorf("%w: empty colour space array", ErrUnsupportedImage)
	}
	family, _ := doc.resolve(o.Array[0])
	if family.Kind != KindName {
		return nil, fmt.Errorf("%w: malformed colour space", ErrUnsupportedImage)
	}
	arg := func(i int) *Object {
		if i >= len(o.Array) {
			return null
		}
		v, err := doc.resolve(o.Array[i])
		if err != nil {
			return null
		}
		return v
	}

	switch family.Name {
	case "CalGray", "CalRGB", "DeviceGray", "DeviceRGB", "DeviceCMYK":
		return deviceSpace(family.Name)
	case "ICCBased":
		stream := arg(1)
		if stream.Kind != KindStream {
			return pixel.DeviceRGB, nil
		}
		if n := doc.intValue(stream.Dict["N"]); n > 0 {
			return pixel.ByComponents(n), nil
		}
		if alt, ok := stream.Dict["Alternate"]; ok {
			return doc.colorSpace(alt, depth+1)
		}
		return pixel.DeviceRGB, nil
	case "Lab":
		cs := &pixel.Space{Family: pixel.Lab}
		if params := arg(1); params.Kind == KindDict {
			if wp, _ := doc.resolve(params.Dict["WhitePoint"]); wp.Kind == KindArray && len(wp.Array) == 3 {
				for i, v := range wp.Array {
					cs.WhitePoint[i] = v.Float()
				}
			}
		}
		return cs, nil
	case "Indexed", "I":
		if len(o.Array) < 4 {
			return nil, fmt.Errorf("%w: malformed indexed colour space", ErrUnsupportedImage)
		}
		base, err := doc.colorSpace(o.Array[1], depth+1)
		if err != nil {
			return nil, err
		}
		var lookup []byte
		switch l := arg(3); l.Kind {
		case KindString:
			lookup = l.Str
		case KindStream:
			if lookup, err = doc.streamData(l); err != nil {
				return nil, err
			}
		}
		return &pixel.Space{
			Family: pixel.Indexed,
			Base:   base,
			Hival:  int(arg(2).Float()),
			Lookup: lookup,
		}, nil
	case "Separation":
		return &pixel.Space{Family: pixel.Separation, N: 1}, nil
	case "DeviceN":
		names := arg(1)
		return &pixel.Space{Family: pixel.Separation, N: max(1, len(names.Array))}, nil
	}
	return nil, fmt.Errorf("%w: colour space %s", ErrUnsupportedImage, family.Name)
}

func deviceSpace(name string) (*pixel.Space, error) {
	switch name {
	case "DeviceGray", "G", "CalGray":
		return pixel.DeviceGray, nil
	case "DeviceRGB", "RGB", "CalRGB":
		return pixel.DeviceRGB, nil
	case "DeviceCMYK", "CMYK":
		return pixel.DeviceCMYK, nil
	}
	return nil, fmt.Errorf("%w: colour space %s", ErrUnsupportedImage, name)
}

// rgbImage packs a decoded image into RGB.
func rgbImage(img image.Image) *pdfextract.RawImage {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, 0, w*h*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out = append(out, byte(r>>8), byte(g>>8), byte(bl>>8))
		}
	}
	return &pdfextract.RawImage{Data: out, Width: w, Height: h}
}
