package pdfextract

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"unicode"
)

// Layout arranges text fragments into readable lines. Fragments whose
// baselines lie within half the average font size are put on one line,
// lines run top to bottom and fragments left to right, and a space is
// inserted where the horizontal gap between fragments is wide.
//
// Layout relies on the position hints in [TextItem]; for backends that leave
// them zero the result is the fragments joined on a single line.
func Layout(items []TextItem) string {
	if len(items) == 0 {
		return ""
	}

	type line struct {
		y     float64
		items []TextItem
	}
	var lines []line
	tol := max(averageFontSize(items)*0.5, 2)

	for _, it := range items {
		found := false
		for i := range lines {
			if math.Abs(lines[i].y-it.Y) < tol {
				lines[i].items = append(lines[i].items, it)
				found = true
				break
			}
		}
		if !found {
			lines = append(lines, line{y: it.Y, items: []TextItem{it}})
		}
	}

	// PDF y grows upwards.
	slices.SortStableFunc(lines, func(a, b line) int { return cmp.Compare(b.y, a.y) })

	var sb strings.Builder
	for li, l := range lines {
		if li > 0 {
			sb.WriteByte('\n')
		}
		slices.SortStableFunc(l.items, func(a, b TextItem) int { return cmp.Compare(a.X, b.X) })
		for i, it := range l.items {
			if i > 0 {
				prev := l.items[i-1]
				gap := it.X - (prev.X + estimateWidth(prev))
				fs := (it.FontSize + prev.FontSize) / 2
				if fs < 1 {
					fs = 12
				}
				if gap > fs*0.3 {
					sb.WriteByte(' ')
				}
			}
			sb.WriteString(cleanText(it.Str))
		}
	}
	return strings.TrimSpace(sb.String())
}

func averageFontSize(items []TextItem) float64 {
	sum := 0.0
	for _, it := range items {
		sum += it.FontSize
	}
	return sum / float64(len(items))
}

// estimateWidth is a rough advance for a fragment: half an em per rune.
func estimateWidth(it TextItem) float64 {
	return float64(len([]rune(it.Str))) * it.FontSize * 0.5
}

// cleanText collapses whitespace runs and drops control characters.
func cleanText(s string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range s {
		if r == '\r' || r == '\n' || r == '\f' {
			if !prevSpace {
				sb.WriteByte(' ')
			}
			prevSpace = true
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		if r == ' ' || r == '\t' {
			if !prevSpace {
				sb.WriteRune(r)
			}
			prevSpace = true
			continue
		}
		prevSpace = false
		sb.WriteRune(r)
	}
	return sb.String()
}
