// Package pixel converts raw PDF image samples into packed 8-bit RGB.
//
// Samples are read MSB first with rows padded to a byte boundary, as images
// are stored in PDF streams. Each sample passes through the /Decode mapping
// before the colour space turns it into RGB.
package pixel

import (
	"errors"
	"fmt"
	"image/color"
	"math"
)

// ErrShortData is returned when the sample data does not cover the image.
var ErrShortData = errors.New("pixel: insufficient sample data")

// Family identifies a colour space family.
type Family int

const (
	Gray Family = iota
	RGB
	CMYK
	Lab
	Indexed
	// Separation covers Separation and DeviceN: tints are shown as the
	// darkness of a single ink since tint transforms are not evaluated.
	Separation
)

// Space is a resolved colour space.
type Space struct {
	Family Family

	// N is the number of components for Separation (DeviceN) spaces.
	N int

	// Indexed spaces: the base space, the highest index and the palette
	// (Hival+1 entries of Base.Components() bytes each).
	Base   *Space
	Hival  int
	Lookup []byte

	// WhitePoint for Lab; defaults to D65 when zero.
	WhitePoint [3]float64
}

// DeviceGray, DeviceRGB and DeviceCMYK are the device colour spaces.
var (
	DeviceGray = &Space{Family: Gray}
	DeviceRGB  = &Space{Family: RGB}
	DeviceCMYK = &Space{Family: CMYK}
)

// ByComponents returns the device space with n components, as used for
// ICCBased spaces whose profile is not interpreted.
func ByComponents(n int) *Space {
	switch n {
	case 3:
		return DeviceRGB
	case 4:
		return DeviceCMYK
	}
	return DeviceGray
}

// Components returns the number of colour components per sample.
func (s *Space) Components() int {
	switch s.Family {
	case RGB, Lab:
		return 3
	case CMYK:
		return 4
	case Separation:
		return max(1, s.N)
	}
	return 1
}

// Image describes raw samples to be converted.
type Image struct {
	Data   []byte
	Width  int
	Height int
	BPC    int // bits per component: 1, 2, 4, 8 or 16
	Space  *Space
	Decode []float64 // optional, two entries per component
}

// ToRGB converts img into packed RGB, three bytes per pixel.
func ToRGB(img Image) ([]byte, error) {
	if img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("pixel: invalid dimensions %dx%d", img.Width, img.Height)
	}
	switch img.BPC {
	case 1, 2, 4, 8, 16:
	default:
		return nil, fmt.Errorf("pixel: unsupported bits per component %d", img.BPC)
	}
	cs := img.Space
	if cs == nil {
		cs = DeviceGray
	}
	n := cs.Components()
	rowBytes := (img.Width*n*img.BPC + 7) / 8
	if need := rowBytes * img.Height; len(img.Data) < need {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", ErrShortData, len(img.Data), need)
	}

	dec := decodeRanges(img.Decode, cs, n, img.BPC)
	maxVal := float64(uint32(1)<<img.BPC - 1)
	if img.BPC == 16 {
		maxVal = 65535
	}

	out := make([]byte, img.Width*img.Height*3)
	comps := make([]float64, n)
	for y := 0; y < img.Height; y++ {
		row := img.Data[y*rowBytes : (y+1)*rowBytes]
		for x := 0; x < img.Width; x++ {
			for c := 0; c < n; c++ {
				s := float64(sample(row, x*n+c, img.BPC))
				comps[c] = dec[2*c] + s*(dec[2*c+1]-dec[2*c])/maxVal
			}
			r, g, b := cs.rgb(comps)
			o := (y*img.Width + x) * 3
			out[o], out[o+1], out[o+2] = r, g, b
		}
	}
	return out, nil
}

// sample returns sample i of a row.
func sample(row []byte, i, bpc int) uint32 {
	switch bpc {
	case 8:
		return uint32(row[i])
	case 16:
		return uint32(row[2*i])<<8 | uint32(row[2*i+1])
	}
	bit := i * bpc
	shift := 8 - bpc - bit%8
	return uint32(row[bit/8]>>shift) & (1<<bpc - 1)
}

// decodeRanges returns the /Decode array or the default for the space.
func decodeRanges(d []float64, cs *Space, n, bpc int) []float64 {
	if len(d) >= 2*n {
		return d
	}
	out := make([]float64, 2*n)
	for c := 0; c < n; c++ {
		out[2*c+1] = 1
	}
	switch cs.Family {
	case Indexed:
		out[1] = float64(uint32(1)<<bpc - 1)
	case Lab:
		out[0], out[1] = 0, 100
		out[2], out[3] = -100, 100
		out[4], out[5] = -100, 100
	}
	return out
}

func clamp8(v float64) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return byte(v*255 + 0.5)
}

// rgb converts decoded component values to 8-bit RGB.
func (s *Space) rgb(c []float64) (r, g, b byte) {
	switch s.Family {
	case RGB:
		return clamp8(c[0]), clamp8(c[1]), clamp8(c[2])
	case CMYK:
		return color.CMYKToRGB(clamp8(c[0]), clamp8(c[1]), clamp8(c[2]), clamp8(c[3]))
	case Lab:
		return s.labToRGB(c[0], c[1], c[2])
	case Indexed:
		return s.lookup(int(math.Round(c[0])))
	case Separation:
		ink := 0.0
		for _, v := range c {
			ink = math.Max(ink, v)
		}
		v := clamp8(1 - ink)
		return v, v, v
	}
	v := clamp8(c[0])
	return v, v, v
}

func (s *Space) lookup(i int) (r, g, b byte) {
	base := s.Base
	if base == nil {
		base = DeviceRGB
	}
	i = min(max(i, 0), s.Hival)
	n := base.Components()
	off := i * n
	if off+n > len(s.Lookup) {
		return 0, 0, 0
	}
	comps := make([]float64, n)
	for c := range comps {
		comps[c] = float64(s.Lookup[off+c]) / 255
	}
	if base.Family == Lab {
		// Lab palettes store bytes scaled over the Lab ranges.
		comps[0] *= 100
		comps[1] = comps[1]*200 - 100
		comps[2] = comps[2]*200 - 100
	}
	return base.rgb(comps)
}

// labToRGB converts CIE L*a*b* to sRGB.
func (s *Space) labToRGB(l, a, bb float64) (r, g, b byte) {
	wp := s.WhitePoint
	if wp == [3]float64{} {
		wp = [3]float64{0.9505, 1, 1.089}
	}
	fy := (l + 16) / 116
	fx := fy + a/500
	fz := fy - bb/200
	inv := func(t float64) float64 {
		if t > 6.0/29 {
			return t * t * t
		}
		return 3 * (6.0 / 29) * (6.0 / 29) * (t - 4.0/29)
	}
	x, y, z := wp[0]*inv(fx), wp[1]*inv(fy), wp[2]*inv(fz)

	lin := [3]float64{
		3.2406*x - 1.5372*y - 0.4986*z,
		-0.9689*x + 1.8758*y + 0.0415*z,
		0.0557*x - 0.2040*y + 1.0570*z,
	}
	var out [3]byte
	for i, v := range lin {
		if v <= 0.0031308 {
			v *= 12.92
		} else {
			v = 1.055*math.Pow(v, 1/2.4) - 0.055
		}
		out[i] = clamp8(v)
	}
	return out[0], out[1], out[2]
}
