package pdf

import "math"

// PaperSize is a named paper format in centimeters, portrait orientation.
type PaperSize struct {
	Name   string
	Width  float64
	Height float64
}

// Standard paper sizes.
var (
	A3      = PaperSize{Name: "A3", Width: 29.7, Height: 42.0}
	A4      = PaperSize{Name: "A4", Width: 21.0, Height: 29.7}
	A5      = PaperSize{Name: "A5", Width: 14.8, Height: 21.0}
	Letter  = PaperSize{Name: "Letter", Width: 21.59, Height: 27.94}
	Legal   = PaperSize{Name: "Legal", Width: 21.59, Height: 35.56}
	Tabloid = PaperSize{Name: "Tabloid", Width: 27.94, Height: 43.18}
)

var paperSizes = []PaperSize{A3, A4, A5, Letter, Legal, Tabloid}

// Orientation is the page orientation after rotation is applied.
type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

// paperTolerance is how far, in centimeters, a page may be from a
// standard size and still match it. Producers round to whole points.
const paperTolerance = 0.1

func pointsToCm(pt float64) float64 {
	return pt / 72 * 2.54
}

// Orientation reports how the page is displayed once Rotate is applied.
// Square pages are portrait.
func (pi PageInfo) Orientation() Orientation {
	w, h := pi.Width, pi.Height
	if pi.Rotate == 90 || pi.Rotate == 270 {
		w, h = h, w
	}
	if w > h {
		return Landscape
	}
	return Portrait
}

// Paper returns the standard paper size the page matches in either
// orientation, and false when it matches none.
func (pi PageInfo) Paper() (PaperSize, bool) {
	w, h := pointsToCm(pi.Width), pointsToCm(pi.Height)
	if w > h {
		w, h = h, w
	}
	for _, p := range paperSizes {
		if math.Abs(p.Width-w) <= paperTolerance && math.Abs(p.Height-h) <= paperTolerance {
			return p, true
		}
	}
	return PaperSize{}, false
}
