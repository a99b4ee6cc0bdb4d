package pdf

import (
	"bytes"
	"errors"
	"io"
	"math"

	pdfextract "github.com/porticus-lab/go-pdf-extract"
)

// lexer splits a content stream into operands and operator keywords.
type lexer struct {
	p *parser
}

func newLexer(data []byte) *lexer {
	p := newParser(data, 0)
	p.noRefs = true
	return &lexer{p: p}
}

// next returns the next operand, or the next operator keyword when obj is
// nil. It returns io.EOF at the end of the stream.
func (lx *lexer) next() (obj *Object, kw string, err error) {
	p := lx.p
	for {
		p.skipSpace()
		if p.eof() {
			return nil, "", io.EOF
		}
		c := p.data[p.pos]
		switch {
		case c == ')' || c == ']' || c == '{' || c == '}' ||
			(c == '>' && !bytes.HasPrefix(p.data[p.pos:], []byte(">>"))):
			p.pos++
			continue
		case c == '>':
			p.pos += 2
			continue
		case isDelim(c) || c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
			obj, err = p.object()
			return obj, "", err
		}
		switch w := p.word(); w {
		case "true":
			return &Object{Kind: KindBool, Bool: true}, "", nil
		case "false":
			return &Object{Kind: KindBool}, "", nil
		case "null":
			return null, "", nil
		default:
			return nil, w, nil
		}
	}
}

// inlineImage reads an inline image after BI: key/value pairs up to ID,
// then raw data up to an EI surrounded by whitespace.
func (lx *lexer) inlineImage() (Dict, []byte, error) {
	d := make(Dict)
	p := lx.p
	for {
		obj, kw, err := lx.next()
		if err != nil {
			return nil, nil, err
		}
		if kw == "ID" {
			break
		}
		if obj == nil || obj.Kind != KindName {
			continue
		}
		val, _, err := lx.next()
		if err != nil {
			return nil, nil, err
		}
		if val != nil {
			d[obj.Name] = val
		}
	}
	if !p.eof() && isSpace(p.data[p.pos]) {
		p.pos++
	}
	start := p.pos
	for i := start; i+1 < len(p.data); i++ {
		if p.data[i] == 'E' && p.data[i+1] == 'I' &&
			(i == start || isSpace(p.data[i-1])) &&
			(i+2 == len(p.data) || isSpace(p.data[i+2])) {
			p.pos = i + 2
			end := i
			if end > start {
				end-- // whitespace before EI
			}
			return d, p.data[start:end], nil
		}
	}
	return nil, nil, errors.New("pdf: unterminated inline image")
}

// matrix is an affine transform [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m × n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func matrixOf(args []*Object) matrix {
	var m matrix
	for i := range m {
		m[i] = args[i].Float()
	}
	return m
}

type gstate struct {
	ctm      matrix
	font     *fontEncoding
	fontName string
	fontSize float64
	leading  float64
}

// interp walks content streams, recording operations, text fragments and
// the image XObjects they paint.
type interp struct {
	doc    *Document
	ops    []pdfextract.Operation
	text   []pdfextract.TextItem
	images map[string]*Object
	fonts  map[*Object]*fontEncoding

	gs    gstate
	stack []gstate
	tm    matrix
	tlm   matrix
	forms map[*Object]bool // forms being executed, to stop cycles
	depth int
}

func newInterp(doc *Document) *interp {
	return &interp{
		doc:    doc,
		images: make(map[string]*Object),
		fonts:  make(map[*Object]*fontEncoding),
		forms:  make(map[*Object]bool),
		gs:     gstate{ctm: identity, fontSize: 12},
	}
}

// run interprets one content stream with the given resources. Image names
// are registered with prefix, which is empty on the page itself.
func (in *interp) run(data []byte, res Dict, prefix string) error {
	lx := newLexer(data)
	var args []*Object
	for {
		obj, kw, err := lx.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if obj != nil {
			args = append(args, obj)
			continue
		}
		if kw == "BI" {
			d, data, err := lx.inlineImage()
			if err != nil {
				return err
			}
			in.emit(pdfextract.OpPaintInlineImageXObject, []any{(&Object{Kind: KindDict, Dict: d}).Value(), data})
			args = args[:0]
			continue
		}
		code, ok := pdfextract.LookupOperator(kw)
		if ok {
			if err := in.apply(kw, code, args, res, prefix); err != nil {
				return err
			}
		}
		args = args[:0]
	}
}

func (in *interp) emit(code pdfextract.OpCode, args []any) {
	in.ops = append(in.ops, pdfextract.Operation{Op: code, Args: args})
}

func values(args []*Object) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a.Value()
	}
	return out
}

func (in *interp) apply(op string, code pdfextract.OpCode, args []*Object, res Dict, prefix string) error {
	switch op {
	case "Do":
		if len(args) < 1 || args[0].Kind != KindName {
			return nil
		}
		return in.xobject(args[0].Name, res, prefix)
	case "q":
		in.stack = append(in.stack, in.gs)
	case "Q":
		if n := len(in.stack); n > 0 {
			in.gs = in.stack[n-1]
			in.stack = in.stack[:n-1]
		}
	case "cm":
		if len(args) >= 6 {
			in.gs.ctm = matrixOf(args).mul(in.gs.ctm)
		}
	case "BT":
		in.tm, in.tlm = identity, identity
	case "Tf":
		if len(args) >= 2 && args[0].Kind == KindName {
			in.gs.fontName = args[0].Name
			in.gs.fontSize = args[1].Float()
			in.gs.font = in.font(res, args[0].Name)
		}
	case "TL":
		if len(args) >= 1 {
			in.gs.leading = args[0].Float()
		}
	case "Td", "TD":
		if len(args) >= 2 {
			tx, ty := args[0].Float(), args[1].Float()
			if op == "TD" {
				in.gs.leading = -ty
			}
			in.tlm = matrix{1, 0, 0, 1, tx, ty}.mul(in.tlm)
			in.tm = in.tlm
		}
	case "Tm":
		if len(args) >= 6 {
			in.tlm = matrixOf(args)
			in.tm = in.tlm
		}
	case "T*":
		in.nextLine()
	case "Tj":
		if len(args) >= 1 {
			in.show(in.showString(args[0]))
		}
	case "'":
		in.nextLine()
		if len(args) >= 1 {
			in.show(in.showString(args[0]))
		}
	case `"`:
		in.nextLine()
		if len(args) >= 3 {
			in.show(in.showString(args[2]))
		}
	case "TJ":
		if len(args) >= 1 && args[0].Kind == KindArray {
			in.show(in.showArray(args[0].Array))
		}
	}
	in.emit(code, values(args))
	return nil
}

func (in *interp) nextLine() {
	in.tlm = matrix{1, 0, 0, 1, 0, -in.gs.leading}.mul(in.tlm)
	in.tm = in.tlm
}

func (in *interp) showString(o *Object) string {
	if o.Kind != KindString {
		return ""
	}
	if in.gs.font == nil {
		return latin1(o.Str)
	}
	return in.gs.font.decode(o.Str)
}

// kernSpace is the TJ adjustment, in thousandths of an em, beyond which a
// gap is treated as a word break.
const kernSpace = -100

func (in *interp) showArray(arr []*Object) string {
	var buf bytes.Buffer
	for _, e := range arr {
		switch e.Kind {
		case KindString:
			buf.WriteString(in.showString(e))
		case KindInt, KindReal:
			if e.Float() < kernSpace {
				buf.WriteByte(' ')
			}
		}
	}
	return buf.String()
}

func (in *interp) show(s string) {
	if s == "" {
		return
	}
	m := in.tm.mul(in.gs.ctm)
	size := in.gs.fontSize * math.Hypot(m[2], m[3])
	if size == 0 {
		size = in.gs.fontSize
	}
	in.text = append(in.text, pdfextract.TextItem{
		Str:      s,
		X:        m[4],
		Y:        m[5],
		FontName: in.gs.fontName,
		FontSize: size,
	})
}

func latin1(b []byte) string {
	r := make([]rune, 0, len(b))
	for _, c := range b {
		if c >= 32 {
			r = append(r, rune(c))
		}
	}
	return string(r)
}

// resource returns the named entry of a resource category, resolved.
func (in *interp) resource(res Dict, category, name string) *Object {
	cat, err := in.doc.resolve(res[category])
	if err != nil || cat.Kind != KindDict {
		return null
	}
	obj, err := in.doc.resolve(cat.Dict[name])
	if err != nil {
		return null
	}
	return obj
}

func (in *interp) font(res Dict, name string) *fontEncoding {
	obj := in.resource(res, "Font", name)
	if obj.IsNull() {
		return nil
	}
	if enc, ok := in.fonts[obj]; ok {
		return enc
	}
	enc := newFontEncoding(in.doc, obj)
	in.fonts[obj] = enc
	return enc
}

// xobject handles Do: images become paint operations registered under
// prefix+name, forms are executed in place between begin/end markers.
func (in *interp) xobject(name string, res Dict, prefix string) error {
	obj := in.resource(res, "XObject", name)
	id := prefix + name
	if obj.Kind != KindStream {
		in.emit(pdfextract.OpPaintXObject, []any{id})
		return nil
	}
	d := obj.Dict
	switch subtype, _ := d.Name("Subtype"); subtype {
	case "Image":
		in.images[id] = obj
		w, _ := d.Int("Width")
		h, _ := d.Int("Height")
		in.emit(in.imageOp(obj), []any{id, float64(w), float64(h)})
	case "Form":
		return in.form(obj, id, res)
	default:
		in.emit(pdfextract.OpPaintXObject, []any{id})
	}
	return nil
}

// imageOp picks the paint operation for an image XObject.
func (in *interp) imageOp(obj *Object) pdfextract.OpCode {
	if obj.Dict.Bool("ImageMask") {
		return pdfextract.OpPaintImageMaskXObject
	}
	filters, _ := in.doc.filterChain(obj.Dict)
	if len(filters) > 0 && filters[len(filters)-1] == filterDCT {
		return pdfextract.OpPaintJpegXObject
	}
	return pdfextract.OpPaintImageXObject
}

func (in *interp) form(obj *Object, id string, parent Dict) error {
	if in.forms[obj] || in.depth >= maxNesting {
		return nil
	}
	data, err := in.doc.streamData(obj)
	if err != nil {
		// A broken form is skipped so the rest of the page survives.
		in.doc.logger.Warn("skipping form xobject", "name", id, "error", err)
		return nil
	}
	res := parent
	if r, err := in.doc.resolve(obj.Dict["Resources"]); err == nil && r.Kind == KindDict {
		res = r.Dict
	}

	m := identity
	if a, _ := in.doc.resolve(obj.Dict["Matrix"]); a.Kind == KindArray && len(a.Array) == 6 {
		m = matrixOf(a.Array)
	}
	var bbox any
	if b, _ := in.doc.resolve(obj.Dict["BBox"]); !b.IsNull() {
		bbox = b.Value()
	}
	in.emit(pdfextract.OpPaintFormXObjectBegin, []any{m[:], bbox})

	in.forms[obj] = true
	in.depth++
	saved, stack := in.gs, len(in.stack)
	in.gs.ctm = m.mul(in.gs.ctm)
	err = in.run(data, res, id+"/")
	in.gs, in.stack = saved, in.stack[:stack]
	in.depth--
	delete(in.forms, obj)

	in.emit(pdfextract.OpPaintFormXObjectEnd, nil)
	return err
}
