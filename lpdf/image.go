package lpdf

import (
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	pdfextract "github.com/porticus-lab/go-pdf-extract"
	"github.com/porticus-lab/go-pdf-extract/internal/pixel"
)

func decodeImage(x pdf.Value) (img *pdfextract.RawImage, err error) {
	defer recoverInto(&err)
	w, h := int(x.Key("Width").Int64()), int(x.Key("Height").Int64())
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("lpdf: image has invalid size %dx%d", w, h)
	}
	data, err := readStream(x)
	if err != nil {
		return nil, err
	}

	src := pixel.Image{Data: data, Width: w, Height: h, BPC: 1, Space: pixel.DeviceGray}
	if !x.Key("ImageMask").Bool() {
		src.BPC = 8
		if bpc := x.Key("BitsPerComponent").Int64(); bpc > 0 {
			src.BPC = int(bpc)
		}
		if src.Space, err = colorSpace(x.Key("ColorSpace"), 0); err != nil {
			return nil, err
		}
	}
	if d := x.Key("Decode"); d.Kind() == pdf.Array {
		for i := 0; i < d.Len(); i++ {
			src.Decode = append(src.Decode, d.Index(i).Float64())
		}
	}

	rgb, err := pixel.ToRGB(src)
	if err != nil {
		return nil, fmt.Errorf("lpdf: %w", err)
	}
	return &pdfextract.RawImage{Data: rgb, Width: w, Height: h}, nil
}

// readStream returns the decoded stream data, refusing filters the reader
// would panic on.
func readStream(x pdf.Value) ([]byte, error) {
	parms := x.Key("DecodeParms")
	for i, f := range filterNames(x) {
		p := parms
		if parms.Kind() == pdf.Array {
			p = parms.Index(i)
		}
		switch f {
		case "FlateDecode":
			if pred := p.Key("Predictor"); !pred.IsNull() && pred.Int64() != 12 {
				return nil, fmt.Errorf("%w: predictor %d", ErrUnsupportedImage, pred.Int64())
			}
		case "ASCII85Decode":
		default:
			return nil, fmt.Errorf("%w: filter %s", ErrUnsupportedImage, f)
		}
	}
	rc := x.Reader()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("lpdf: reading image stream: %w", err)
	}
	return data, nil
}

// colorSpace resolves an image /ColorSpace entry the same way as the
// native backend: ICC profiles and tint transforms are not evaluated.
func colorSpace(v pdf.Value, depth int) (*pixel.Space, error) {
	if depth > 4 {
		return nil, fmt.Errorf("%w: colour space nested too deeply", ErrUnsupportedImage)
	}
	switch v.Kind() {
	case pdf.Null:
		return pixel.DeviceGray, nil
	case pdf.Name:
		return deviceSpace(v.Name())
	case pdf.Array:
	default:
		return nil, fmt.Errorf("%w: colour space %v", ErrUnsupportedImage, v)
	}

	switch family := v.Index(0).Name(); family {
	case "CalGray":
		return pixel.DeviceGray, nil
	case "CalRGB":
		return pixel.DeviceRGB, nil
	case "ICCBased":
		profile := v.Index(1)
		if n := profile.Key("N").Int64(); n > 0 {
			return pixel.ByComponents(int(n)), nil
		}
		return colorSpace(profile.Key("Alternate"), depth+1)
	case "Lab":
		cs := &pixel.Space{Family: pixel.Lab}
		wp := v.Index(1).Key("WhitePoint")
		for i := 0; i < 3 && i < wp.Len(); i++ {
			cs.WhitePoint[i] = wp.Index(i).Float64()
		}
		return cs, nil
	case "Indexed", "I":
		if v.Len() < 4 {
			return nil, fmt.Errorf("%w: short Indexed colour space", ErrUnsupportedImage)
		}
		base, err := colorSpace(v.Index(1), depth+1)
		if err != nil {
			return nil, err
		}
		cs := &pixel.Space{Family: pixel.Indexed, Base: base, Hival: int(v.Index(2).Int64())}
		switch lookup := v.Index(3); lookup.Kind() {
		case pdf.String:
			cs.Lookup = []byte(lookup.RawString())
		case pdf.Stream:
			if cs.Lookup, err = readStream(lookup); err != nil {
				return nil, err
			}
		}
		return cs, nil
	case "Separation":
		return &pixel.Space{Family: pixel.Separation, N: 1}, nil
	case "DeviceN":
		return &pixel.Space{Family: pixel.Separation, N: v.Index(1).Len()}, nil
	default:
		return deviceSpace(family)
	}
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
