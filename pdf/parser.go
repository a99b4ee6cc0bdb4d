package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

const maxNesting = 100

var errNesting = errors.New("pdf: exceeded maximum nesting depth")

// parser is a recursive-descent reader for PDF objects, used both on the file
// body and on decoded content streams.
type parser struct {
	data  []byte
	pos   int
	depth int

	// noRefs disables "N G R" recognition; content streams never contain
	// references.
	noRefs bool

	// length resolves an indirect /Length while reading a stream.
	length func(Ref) (int, bool)
}

func newParser(data []byte, pos int) *parser {
	return &parser{data: data, pos: pos}
}

func (p *parser) eof() bool { return p.pos >= len(p.data) }

// skipSpace skips whitespace and comments.
func (p *parser) skipSpace() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		switch {
		case c == '%':
			for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
		case isSpace(c):
			p.pos++
		default:
			return
		}
	}
}

// match advances past s if the input continues with it.
func (p *parser) match(s string) bool {
	if bytes.HasPrefix(p.data[p.pos:], []byte(s)) {
		p.pos += len(s)
		return true
	}
	return false
}

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isRegular(b byte) bool { return !isSpace(b) && !isDelim(b) }

// word reads a run of regular characters.
func (p *parser) word() string {
	start := p.pos
	for p.pos < len(p.data) && isRegular(p.data[p.pos]) {
		p.pos++
	}
	return string(p.data[start:p.pos])
}

// object parses one object at the current position.
func (p *parser) object() (*Object, error) {
	if p.depth > maxNesting {
		return nil, errNesting
	}
	p.depth++
	defer func() { p.depth-- }()

	p.skipSpace()
	if p.eof() {
		return null, nil
	}
	c := p.data[p.pos]
	switch {
	case c == '(':
		return p.literalString(), nil
	case c == '<' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '<':
		return p.dict()
	case c == '<':
		return p.hexString(), nil
	case c == '/':
		return p.name(), nil
	case c == '[':
		return p.array()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return p.number(), nil
	}

	switch w := p.word(); w {
	case "true":
		return &Object{Kind: KindBool, Bool: true}, nil
	case "false":
		return &Object{Kind: KindBool}, nil
	case "null", "":
		if w == "" {
			p.pos++ // stray delimiter
		}
		return null, nil
	default:
		return nil, fmt.Errorf("pdf: unexpected keyword %q at offset %d", w, p.pos-len(w))
	}
}

func (p *parser) literalString() *Object {
	p.pos++ // (
	var buf bytes.Buffer
	depth := 1
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		p.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return &Object{Kind: KindString, Str: buf.Bytes()}
			}
		case '\\':
			if p.eof() {
				continue
			}
			p.escape(&buf)
			continue
		}
		buf.WriteByte(c)
	}
	return &Object{Kind: KindString, Str: buf.Bytes()}
}

var escapes = map[byte]byte{
	'n': '\n', 'r': '\r', 't': '\t', 'b': '\b', 'f': '\f',
	'(': '(', ')': ')', '\\': '\\',
}

func (p *parser) escape(buf *bytes.Buffer) {
	e := p.data[p.pos]
	p.pos++
	if b, ok := escapes[e]; ok {
		buf.WriteByte(b)
		return
	}
	switch {
	case e == '\r':
		if !p.eof() && p.data[p.pos] == '\n' {
			p.pos++
		}
	case e == '\n':
	case e >= '0' && e <= '7':
		v := int(e - '0')
		for i := 0; i < 2 && !p.eof(); i++ {
			d := p.data[p.pos]
			if d < '0' || d > '7' {
				break
			}
			v = v<<3 | int(d-'0')
			p.pos++
		}
		buf.WriteByte(byte(v))
	default:
		buf.WriteByte(e)
	}
}

func (p *parser) hexString() *Object {
	p.pos++ // <
	end := bytes.IndexByte(p.data[p.pos:], '>')
	if end < 0 {
		end = len(p.data) - p.pos
	}
	raw := p.data[p.pos : p.pos+end]
	p.pos += end + 1
	return &Object{Kind: KindString, Str: decodeHex(raw)}
}

// decodeHex decodes hex digits, ignoring whitespace; an odd final digit is
// padded with zero.
func decodeHex(raw []byte) []byte {
	out := make([]byte, 0, len(raw)/2)
	var hi byte
	half := false
	for _, c := range raw {
		v, ok := hexDigit(c)
		if !ok {
			continue
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return out
}

func hexDigit(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}

func (p *parser) name() *Object {
	p.pos++ // /
	raw := p.word()
	if bytes.IndexByte([]byte(raw), '#') < 0 {
		return &Object{Kind: KindName, Name: raw}
	}
	var buf bytes.Buffer
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) {
			hi, ok1 := hexDigit(raw[i+1])
			lo, ok2 := hexDigit(raw[i+2])
			if ok1 && ok2 {
				buf.WriteByte(hi<<4 | lo)
				i += 2
				continue
			}
		}
		buf.WriteByte(raw[i])
	}
	return &Object{Kind: KindName, Name: buf.String()}
}

func (p *parser) array() (*Object, error) {
	p.pos++ // [
	var arr []*Object
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		if p.data[p.pos] == ']' {
			p.pos++
			break
		}
		obj, err := p.object()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
	return &Object{Kind: KindArray, Array: arr}, nil
}

func (p *parser) dict() (*Object, error) {
	p.pos += 2 // <<
	d := make(Dict)
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		if p.match(">>") {
			break
		}
		if p.data[p.pos] != '/' {
			p.pos++
			continue
		}
		key := p.name().Name
		val, err := p.object()
		if err != nil {
			return nil, err
		}
		d[key] = val
	}

	save := p.pos
	p.skipSpace()
	if !p.match("stream") {
		p.pos = save
		return &Object{Kind: KindDict, Dict: d}, nil
	}
	if !p.eof() && p.data[p.pos] == '\r' {
		p.pos++
	}
	if !p.eof() && p.data[p.pos] == '\n' {
		p.pos++
	}

	start := p.pos
	n := p.streamLength(d)
	if n < 0 || start+n > len(p.data) {
		end := bytes.Index(p.data[start:], []byte("endstream"))
		if end < 0 {
			end = len(p.data) - start
		}
		n = end
		// Drop the EOL that precedes endstream.
		for n > 0 && (p.data[start+n-1] == '\n' || p.data[start+n-1] == '\r') {
			n--
		}
	}
	p.pos = start + n
	p.skipSpace()
	p.match("endstream")
	return &Object{Kind: KindStream, Dict: d, Stream: p.data[start : start+n]}, nil
}

func (p *parser) streamLength(d Dict) int {
	obj, ok := d["Length"]
	if !ok {
		return -1
	}
	switch obj.Kind {
	case KindInt:
		return int(obj.Int)
	case KindRef:
		if p.length != nil {
			if n, ok := p.length(obj.Ref); ok {
				return n
			}
		}
	}
	return -1
}

// number parses a number, or an indirect reference when refs are enabled.
func (p *parser) number() *Object {
	tok := p.word()
	n, err := strconv.ParseInt(tok, 10, 64)
	if err == nil {
		if !p.noRefs {
			if ref, ok := p.tryRef(n); ok {
				return &Object{Kind: KindRef, Ref: ref}
			}
		}
		return &Object{Kind: KindInt, Int: n}
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		// Malformed numbers such as "--5" or "1.2.3" read as zero.
		return &Object{Kind: KindReal}
	}
	return &Object{Kind: KindReal, Real: f}
}

// tryRef looks for "G R" after an object number and rewinds if absent.
func (p *parser) tryRef(num int64) (Ref, bool) {
	save := p.pos
	p.skipSpace()
	gen, err := strconv.Atoi(p.word())
	if err == nil {
		p.skipSpace()
		if p.pos < len(p.data) && p.data[p.pos] == 'R' &&
			(p.pos+1 == len(p.data) || !isRegular(p.data[p.pos+1])) {
			p.pos++
			return Ref{Num: int(num), Gen: gen}, true
		}
	}
	p.pos = save
	return Ref{}, false
}

// objectHeader consumes "N G obj" and returns N.
func (p *parser) objectHeader() (int, error) {
	p.skipSpace()
	num, err := strconv.Atoi(p.word())
	if err != nil {
		return 0, fmt.Errorf("pdf: bad object number at offset %d", p.pos)
	}
	p.skipSpace()
	p.word()
	p.skipSpace()
	if !p.match("obj") {
		return 0, fmt.Errorf("pdf: expected 'obj' at offset %d", p.pos)
	}
	return num, nil
}
