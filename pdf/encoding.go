package pdf

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// fontEncoding maps character codes in shown strings to Unicode.
// Priority: ToUnicode CMap, then /Encoding with /Differences, then the
// built-in base encoding.
type fontEncoding struct {
	simple   [256]rune
	toUni    map[uint32]string
	codeLen  int // bytes per code: 1 for simple fonts, 2 for Identity CIDs
	cmapOnly bool
}

func newFontEncoding(doc *Document, font *Object) *fontEncoding {
	enc := &fontEncoding{codeLen: 1}
	enc.applyBase("StandardEncoding")
	if font == nil || (font.Kind != KindDict && font.Kind != KindStream) {
		return enc
	}
	d := font.Dict
	subtype, _ := d.Name("Subtype")

	encObj, _ := doc.resolve(d["Encoding"])
	switch {
	case subtype == "Type0":
		enc.codeLen = 2
		enc.cmapOnly = true
		if encObj.Kind == KindName && !strings.HasPrefix(encObj.Name, "Identity") {
			// Predefined byte-oriented CMaps are read one byte at a time.
			enc.codeLen = 1
		}
	case encObj.Kind == KindName:
		enc.applyBase(encObj.Name)
	case encObj.Kind == KindDict:
		if base, ok := encObj.Dict.Name("BaseEncoding"); ok {
			enc.applyBase(base)
		} else if subtype == "TrueType" {
			enc.applyBase("WinAnsiEncoding")
		}
		if diffs, err := doc.resolve(encObj.Dict["Differences"]); err == nil && diffs.Kind == KindArray {
			enc.applyDifferences(diffs.Array)
		}
	case subtype == "TrueType":
		enc.applyBase("WinAnsiEncoding")
	}

	if tu, err := doc.resolve(d["ToUnicode"]); err == nil && tu.Kind == KindStream {
		if data, err := doc.streamData(tu); err == nil {
			enc.toUni = parseToUnicode(data, &enc.codeLen)
		}
	}
	return enc
}

// applyBase loads a named base encoding. The lower half of every supported
// encoding is ASCII except for a few StandardEncoding quotes.
func (e *fontEncoding) applyBase(name string) {
	var upper func(b byte) rune
	switch name {
	case "WinAnsiEncoding":
		upper = charmap.Windows1252.DecodeByte
	case "MacRomanEncoding":
		upper = charmap.Macintosh.DecodeByte
	case "StandardEncoding":
		upper = func(b byte) rune { return standardUpper[b-128] }
	case "PDFDocEncoding":
		upper = func(b byte) rune { return pdfDocUpper[b-128] }
	default:
		return
	}
	for i := 0; i < 128; i++ {
		e.simple[i] = rune(i)
	}
	if name == "StandardEncoding" {
		e.simple['\''] = 0x2019
		e.simple['`'] = 0x2018
	}
	for i := 128; i < 256; i++ {
		e.simple[i] = upper(byte(i))
	}
}

func (e *fontEncoding) applyDifferences(diffs []*Object) {
	code := 0
	for _, o := range diffs {
		switch o.Kind {
		case KindInt:
			code = int(o.Int)
		case KindName:
			if r, ok := glyphRune(o.Name); ok && code >= 0 && code < 256 {
				e.simple[code] = r
			}
			code++
		}
	}
}

// decode converts the bytes of a shown string to UTF-8.
func (e *fontEncoding) decode(s []byte) string {
	var sb strings.Builder
	for i := 0; i < len(s); {
		n := min(e.codeLen, len(s)-i)
		var code uint32
		for _, b := range s[i : i+n] {
			code = code<<8 | uint32(b)
		}
		i += n
		if u, ok := e.toUni[code]; ok {
			sb.WriteString(u)
			continue
		}
		if e.cmapOnly {
			continue
		}
		if r := e.simple[code&0xFF]; r != 0 && utf8.ValidRune(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// utf16Text decodes UTF-16BE bytes, as found in ToUnicode destinations.
func utf16Text(b []byte) string {
	if len(b) == 1 {
		return string(rune(b[0]))
	}
	out, err := utf16be.NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}

// decodeTextString decodes a PDF text string: UTF-16BE with a byte-order
// mark, otherwise PDFDocEncoding.
func decodeTextString(b []byte) string {
	if bytes.HasPrefix(b, []byte{0xFE, 0xFF}) {
		return utf16Text(b[2:])
	}
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return string(b[3:])
	}
	var sb strings.Builder
	for _, c := range b {
		if c < 128 {
			sb.WriteByte(c)
		} else if r := pdfDocUpper[c-128]; r != 0 {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// parseToUnicode reads bfchar and bfrange mappings from a CMap stream. The
// code length is taken from the codespace range when one is declared.
func parseToUnicode(data []byte, codeLen *int) map[uint32]string {
	m := make(map[uint32]string)
	lx := newLexer(data)
	var operands []*Object
	for {
		obj, kw, err := lx.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		if obj != nil {
			operands = append(operands, obj)
			continue
		}
		switch kw {
		case "endcodespacerange":
			if len(operands) >= 1 && operands[0].Kind == KindString && len(operands[0].Str) > 0 {
				*codeLen = len(operands[0].Str)
			}
		case "endbfchar":
			for i := 0; i+1 < len(operands); i += 2 {
				src, dst := operands[i], operands[i+1]
				if src.Kind == KindString && dst.Kind == KindString {
					m[codeOf(src.Str)] = utf16Text(dst.Str)
				}
			}
		case "endbfrange":
			for i := 0; i+2 < len(operands); i += 3 {
				bfRange(m, operands[i], operands[i+1], operands[i+2])
			}
		}
		if strings.HasPrefix(kw, "end") || strings.HasPrefix(kw, "begin") {
			operands = operands[:0]
		}
	}
	return m
}

func codeOf(b []byte) uint32 {
	var c uint32
	for _, x := range b {
		c = c<<8 | uint32(x)
	}
	return c
}

// maxRange bounds a single bfrange so a corrupt CMap cannot allocate
// millions of entries.
const maxRange = 1 << 16

func bfRange(m map[uint32]string, lo, hi, dst *Object) {
	if lo.Kind != KindString || hi.Kind != KindString {
		return
	}
	low, high := codeOf(lo.Str), codeOf(hi.Str)
	if high < low || high-low > maxRange {
		return
	}
	switch dst.Kind {
	case KindArray:
		for i, d := range dst.Array {
			if low+uint32(i) > high {
				break
			}
			if d.Kind == KindString {
				m[low+uint32(i)] = utf16Text(d.Str)
			}
		}
	case KindString:
		base := []rune(utf16Text(dst.Str))
		if len(base) == 0 {
			return
		}
		for c := low; c <= high; c++ {
			r := append([]rune(nil), base...)
			r[len(r)-1] += rune(c - low)
			m[c] = string(r)
		}
	}
}

// glyphRune maps an Adobe glyph name to a rune: single ASCII letters and
// digits, "uniXXXX", "uXXXX[XX]", and the named glyphs below.
func glyphRune(name string) (rune, bool) {
	if r, ok := glyphNames[name]; ok {
		return r, true
	}
	if len(name) == 1 {
		return rune(name[0]), true
	}
	if hex, ok := strings.CutPrefix(name, "uni"); ok && len(hex) >= 4 {
		if v, err := strconv.ParseUint(hex[:4], 16, 32); err == nil {
			return rune(v), true
		}
	}
	if hex, ok := strings.CutPrefix(name, "u"); ok && len(hex) >= 4 && len(hex) <= 6 {
		if v, err := strconv.ParseUint(hex, 16, 32); err == nil && utf8.ValidRune(rune(v)) {
			return rune(v), true
		}
	}
	return 0, false
}

// standardUpper is the upper half of Adobe StandardEncoding (codes 128-255).
var standardUpper = [128]rune{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0x00A1, 0x00A2, 0x00A3, 0x2044, 0x00A5, 0x0192, 0x00A7,
	0x00A4, 0x0027, 0x201C, 0x00AB, 0x2039, 0x203A, 0xFB01, 0xFB02,
	0, 0x2013, 0x2020, 0x2021, 0x00B7, 0, 0x00B6, 0x2022,
	0x201A, 0x201E, 0x201D, 0x00BB, 0x2026, 0x2030, 0, 0x00BF,
	0, 0x0060, 0x00B4, 0x02C6, 0x02DC, 0x00AF, 0x02D8, 0x02D9,
	0x00A8, 0, 0x02DA, 0x00B8, 0, 0x02DD, 0x02DB, 0x02C7,
	0x2014, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0x00C6, 0, 0x00AA, 0, 0, 0, 0,
	0x0141, 0x00D8, 0x0152, 0x00BA, 0, 0, 0, 0,
	0, 0x00E6, 0, 0, 0, 0x0131, 0, 0,
	0x0142, 0x00F8, 0x0153, 0x00DF, 0, 0, 0, 0,
}

// pdfDocUpper is the upper half of PDFDocEncoding. Codes 160-255 agree
// with Latin-1.
var pdfDocUpper = func() [128]rune {
	t := [128]rune{
		0x2022, 0x2020, 0x2021, 0x2026, 0x2014, 0x2013, 0x0192, 0x2044,
		0x2039, 0x203A, 0x2212, 0x2030, 0x201E, 0x201C, 0x201D, 0x2018,
		0x2019, 0x201A, 0x2122, 0xFB01, 0xFB02, 0x0141, 0x0152, 0x0160,
		0x0178, 0x017D, 0x0131, 0x0142, 0x0153, 0x0161, 0x017E, 0,
		0x20AC,
	}
	for i := 33; i < 128; i++ {
		t[i] = rune(128 + i)
	}
	t[45] = 0 // 0xAD is undefined
	return t
}()

var glyphNames = map[string]rune{
	"zero": '0', "one": '1', "two": '2', "three": '3', "four": '4',
	"five": '5', "six": '6', "seven": '7', "eight": '8', "nine": '9',
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#',
	"dollar": '$', "percent": '%', "ampersand": '&', "quotesingle": '\'',
	"parenleft": '(', "parenright": ')', "asterisk": '*', "plus": '+',
	"comma": ',', "hyphen": '-', "period": '.', "slash": '/',
	"colon": ':', "semicolon": ';', "less": '<', "equal": '=',
	"greater": '>', "question": '?', "at": '@',
	"bracketleft": '[', "backslash": '\\', "bracketright": ']',
	"asciicircum": '^', "underscore": '_', "grave": '`',
	"braceleft": '{', "bar": '|', "braceright": '}', "asciitilde": '~',

	"Agrave": 'À', "Aacute": 'Á', "Acircumflex": 'Â', "Atilde": 'Ã',
	"Adieresis": 'Ä', "Aring": 'Å', "AE": 'Æ', "Ccedilla": 'Ç',
	"Egrave": 'È', "Eacute": 'É', "Ecircumflex": 'Ê', "Edieresis": 'Ë',
	"Igrave": 'Ì', "Iacute": 'Í', "Icircumflex": 'Î', "Idieresis": 'Ï',
	"Eth": 'Ð', "Ntilde": 'Ñ', "Ograve": 'Ò', "Oacute": 'Ó',
	"Ocircumflex": 'Ô', "Otilde": 'Õ', "Odieresis": 'Ö', "multiply": '×',
	"Oslash": 'Ø', "Ugrave": 'Ù', "Uacute": 'Ú', "Ucircumflex": 'Û',
	"Udieresis": 'Ü', "Yacute": 'Ý', "Thorn": 'Þ', "germandbls": 'ß',
	"agrave": 'à', "aacute": 'á', "acircumflex": 'â', "atilde": 'ã',
	"adieresis": 'ä', "aring": 'å', "ae": 'æ', "ccedilla": 'ç',
	"egrave": 'è', "eacute": 'é', "ecircumflex": 'ê', "edieresis": 'ë',
	"igrave": 'ì', "iacute": 'í', "icircumflex": 'î', "idieresis": 'ï',
	"eth": 'ð', "ntilde": 'ñ', "ograve": 'ò', "oacute": 'ó',
	"ocircumflex": 'ô', "otilde": 'õ', "odieresis": 'ö', "divide": '÷',
	"oslash": 'ø', "ugrave": 'ù', "uacute": 'ú', "ucircumflex": 'û',
	"udieresis": 'ü', "yacute": 'ý', "thorn": 'þ', "ydieresis": 'ÿ',

	"endash": '–', "emdash": '—', "quotesinglbase": '‚',
	"quotedblbase": '„', "quotedblleft": '“', "quotedblright": '”',
	"quoteleft": '‘', "quoteright": '’', "ellipsis": '…',
	"dagger": '†', "daggerdbl": '‡', "bullet": '•',
	"perthousand": '‰', "guilsinglleft": '‹', "guilsinglright": '›',
	"guillemotleft": '«', "guillemotright": '»',
	"trademark": '™', "fi": 'ﬁ', "fl": 'ﬂ', "florin": 'ƒ', "fraction": '⁄',
	"Euro": '€', "currency": '¤', "cent": '¢', "sterling": '£', "yen": '¥',
	"section": '§', "copyright": '©', "registered": '®',
	"degree": '°', "plusminus": '±', "mu": 'µ', "minus": '−',
	"paragraph": '¶', "periodcentered": '·', "brokenbar": '¦',
	"cedilla": '¸', "ordmasculine": 'º', "ordfeminine": 'ª',
	"exclamdown": '¡', "questiondown": '¿', "logicalnot": '¬',
	"nbspace": '\u00A0', "nobreakspace": '\u00A0', "softhyphen": '\u00AD',
	"OE": 'Œ', "oe": 'œ', "Scaron": 'Š', "scaron": 'š',
	"Zcaron": 'Ž', "zcaron": 'ž', "Ydieresis": 'Ÿ',
	"circumflex": 'ˆ', "tilde": '˜', "macron": '¯', "acute": '´',
	"breve": '˘', "dotaccent": '˙', "dieresis": '¨',
	"ring": '˚', "hungarumlaut": '˝', "ogonek": '˛', "caron": 'ˇ',
	"Lslash": 'Ł', "lslash": 'ł', "dotlessi": 'ı',
	"onehalf": '½', "onequarter": '¼', "threequarters": '¾',
	"onesuperior": '¹', "twosuperior": '²', "threesuperior": '³',
}
