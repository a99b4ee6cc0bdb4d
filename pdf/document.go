// Package pdf is a pure-Go PDF reader that implements
// [pdfextract.Document]. It parses classic and stream cross-reference
// tables, object streams and the common stream filters, interprets page
// content into operator lists and text fragments, and decodes image
// XObjects into packed RGB.
//
// Encrypted documents are not supported.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	pdfextract "github.com/porticus-lab/go-pdf-extract"
)

var (
	// ErrNotPDF is returned when the input does not start with a %PDF- header.
	ErrNotPDF = errors.New("pdf: not a PDF file")

	// ErrEncrypted is returned for documents with an /Encrypt dictionary.
	ErrEncrypted = errors.New("pdf: encrypted documents are not supported")

	// ErrNoSuchObject is returned when a named XObject is not on the page.
	ErrNoSuchObject = errors.New("pdf: no such object")
)

// xrefEntry locates one object: at a file offset, or inside an object stream.
type xrefEntry struct {
	offset    int64
	inStream  bool
	streamNum int
	index     int
}

// Document is a loaded PDF file. It is safe for concurrent use.
type Document struct {
	data    []byte
	xref    map[int]xrefEntry
	trailer Dict
	pages   []Dict

	mu       sync.Mutex
	cache    map[int]*Object
	pageObjs map[int]*Page

	logger *slog.Logger
}

var _ pdfextract.Document = (*Document)(nil)

// Open reads and parses the PDF file at path.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pdf: reading file: %w", err)
	}
	return Load(data)
}

// Load parses a PDF held in memory. data must not be modified afterwards.
func Load(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}
	doc := &Document{
		data:     data,
		xref:     make(map[int]xrefEntry),
		cache:    make(map[int]*Object),
		pageObjs: make(map[int]*Page),
		logger:   slog.New(slog.DiscardHandler),
	}
	if err := doc.loadXRef(); err != nil {
		return nil, fmt.Errorf("pdf: loading xref: %w", err)
	}
	if _, ok := doc.trailer["Encrypt"]; ok {
		return nil, ErrEncrypted
	}
	pages, err := doc.collectPages()
	if err != nil {
		return nil, err
	}
	doc.pages = pages
	return doc, nil
}

// SetLogger installs a logger for recoverable problems, such as form
// XObjects whose content cannot be decoded. Call it before the first Page.
func (doc *Document) SetLogger(l *slog.Logger) {
	if l != nil {
		doc.logger = l
	}
}

// Version returns the header version, e.g. "1.7".
func (doc *Document) Version() string {
	line := doc.data[5:min(len(doc.data), 16)]
	if i := bytes.IndexAny(line, "\r\n %"); i >= 0 {
		line = line[:i]
	}
	return string(line)
}

// PageCount returns the number of pages.
func (doc *Document) PageCount() int { return len(doc.pages) }

// Page returns the 1-indexed page.
func (doc *Document) Page(ctx context.Context, number int) (pdfextract.Page, error) {
	return doc.page(ctx, number)
}

func (doc *Document) page(ctx context.Context, number int) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if number < 1 || number > len(doc.pages) {
		return nil, fmt.Errorf("pdf: page %d out of range (1-%d)", number, len(doc.pages))
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()
	p, ok := doc.pageObjs[number]
	if !ok {
		p = newPage(doc, number, doc.pages[number-1])
		doc.pageObjs[number] = p
	}
	return p, nil
}

// PageInfo returns the geometry of the 1-indexed page.
func (doc *Document) PageInfo(number int) (PageInfo, error) {
	p, err := doc.page(context.Background(), number)
	if err != nil {
		return PageInfo{}, err
	}
	return p.Info(), nil
}

// --- Cross-reference loading ---

func (doc *Document) loadXRef() error {
	off, err := doc.startXRef()
	if err == nil {
		err = doc.loadXRefAt(off, map[int64]bool{})
	}
	if err != nil || doc.trailer == nil {
		// Damaged or missing xref: rebuild it from "N G obj" markers.
		return doc.reconstruct()
	}
	return nil
}

func (doc *Document) startXRef() (int64, error) {
	tail := doc.data[max(0, len(doc.data)-2048):]
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, errors.New("startxref not found")
	}
	p := newParser(tail, idx+len("startxref"))
	p.skipSpace()
	off, err := strconv.ParseInt(p.word(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid startxref: %w", err)
	}
	return off, nil
}

func (doc *Document) loadXRefAt(off int64, seen map[int64]bool) error {
	if off <= 0 || off >= int64(len(doc.data)) {
		return fmt.Errorf("xref offset %d out of bounds", off)
	}
	if seen[off] {
		return nil
	}
	seen[off] = true

	p := newParser(doc.data, int(off))
	p.skipSpace()
	var trailer Dict
	var err error
	if p.match("xref") {
		trailer, err = doc.xrefTable(p)
	} else {
		trailer, err = doc.xrefStream(p)
	}
	if err != nil {
		return err
	}
	if doc.trailer == nil {
		doc.trailer = trailer
	}
	// Hybrid files keep extra entries in a stream named by /XRefStm.
	if stm, ok := trailer.Int("XRefStm"); ok {
		if err := doc.loadXRefAt(stm, seen); err != nil {
			return err
		}
	}
	if prev, ok := trailer.Int("Prev"); ok {
		return doc.loadXRefAt(prev, seen)
	}
	return nil
}

// xrefTable reads classic "xref" subsections up to and including the trailer.
func (doc *Document) xrefTable(p *parser) (Dict, error) {
	for {
		p.skipSpace()
		if p.eof() {
			return nil, errors.New("unterminated xref table")
		}
		if p.match("trailer") {
			break
		}
		first, err1 := strconv.Atoi(p.word())
		p.skipSpace()
		count, err2 := strconv.Atoi(p.word())
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("bad xref subsection at offset %d", p.pos)
		}
		for i := 0; i < count; i++ {
			p.skipSpace()
			offTok := p.word()
			p.skipSpace()
			p.word() // generation
			p.skipSpace()
			typ := p.word()
			if _, dup := doc.xref[first+i]; dup || typ != "n" {
				continue
			}
			off, _ := strconv.ParseInt(offTok, 10, 64)
			doc.xref[first+i] = xrefEntry{offset: off}
		}
	}
	obj, err := p.object()
	if err != nil {
		return nil, fmt.Errorf("parsing trailer: %w", err)
	}
	if obj.Kind != KindDict {
		return nil, errors.New("trailer is not a dictionary")
	}
	return obj.Dict, nil
}

// xrefStream reads a cross-reference stream (PDF 1.5+).
func (doc *Document) xrefStream(p *parser) (Dict, error) {
	if _, err := p.objectHeader(); err != nil {
		return nil, err
	}
	obj, err := p.object()
	if err != nil {
		return nil, err
	}
	if obj.Kind != KindStream {
		return nil, errors.New("xref offset does not point at a stream")
	}
	data, err := doc.streamData(obj)
	if err != nil {
		return nil, err
	}

	w, _ := obj.Dict.Array("W")
	if len(w) < 3 {
		return nil, errors.New("xref stream missing /W")
	}
	w0, w1, w2 := int(w[0].Int), int(w[1].Int), int(w[2].Int)
	size := w0 + w1 + w2
	if size == 0 {
		return nil, errors.New("xref stream has zero entry size")
	}

	var sections [][2]int
	if idx, ok := obj.Dict.Array("Index"); ok && obj.Dict["Index"].Kind == KindArray {
		for i := 0; i+1 < len(idx); i += 2 {
			sections = append(sections, [2]int{int(idx[i].Int), int(idx[i+1].Int)})
		}
	} else {
		n, _ := obj.Dict.Int("Size")
		sections = [][2]int{{0, int(n)}}
	}

	pos := 0
	for _, s := range sections {
		for i := 0; i < s[1] && pos+size <= len(data); i++ {
			row := data[pos : pos+size]
			pos += size
			typ := 1
			if w0 > 0 {
				typ = beInt(row[:w0])
			}
			f2 := beInt(row[w0 : w0+w1])
			f3 := beInt(row[w0+w1:])
			num := s[0] + i
			if _, dup := doc.xref[num]; dup {
				continue
			}
			switch typ {
			case 1:
				doc.xref[num] = xrefEntry{offset: int64(f2)}
			case 2:
				doc.xref[num] = xrefEntry{inStream: true, streamNum: f2, index: f3}
			}
		}
	}
	return obj.Dict, nil
}

func beInt(b []byte) int {
	v := 0
	for _, c := range b {
		v = v<<8 | int(c)
	}
	return v
}

// reconstruct scans the whole file for object headers and a trailer.
func (doc *Document) reconstruct() error {
	clear(doc.xref)
	doc.trailer = nil
	data := doc.data
	for i := 0; i < len(data); {
		j := bytes.Index(data[i:], []byte(" obj"))
		if j < 0 {
			break
		}
		end := i + j
		start := bytes.LastIndexAny(data[:end], "\r\n")
		p := newParser(data, start+1)
		if num, err := p.objectHeader(); err == nil {
			doc.xref[num] = xrefEntry{offset: int64(start + 1)}
		}
		i = end + 4
	}
	if t := bytes.LastIndex(data, []byte("trailer")); t >= 0 {
		p := newParser(data, t+len("trailer"))
		if obj, err := p.object(); err == nil && obj.Kind == KindDict {
			doc.trailer = obj.Dict
		}
	}
	if doc.trailer == nil {
		// Look for a cross-reference stream carrying /Root.
		for num := range doc.xref {
			obj, err := doc.load(num)
			if err == nil && obj.Kind == KindStream {
				if t, _ := obj.Dict.Name("Type"); t == "XRef" {
					doc.trailer = obj.Dict
					break
				}
			}
		}
	}
	if doc.trailer == nil {
		return errors.New("no trailer found")
	}
	return nil
}

// --- Object resolution ---

// resolve follows o if it is a reference. Dangling references resolve to
// null, as the PDF format requires.
func (doc *Document) resolve(o *Object) (*Object, error) {
	for depth := 0; o != nil && o.Kind == KindRef; depth++ {
		if depth > maxNesting {
			return nil, errNesting
		}
		var err error
		o, err = doc.object(o.Ref.Num)
		if err != nil {
			return nil, err
		}
	}
	if o == nil {
		return null, nil
	}
	return o, nil
}

// object returns indirect object num, loading and caching it on first use.
func (doc *Document) object(num int) (*Object, error) {
	doc.mu.Lock()
	obj, ok := doc.cache[num]
	doc.mu.Unlock()
	if ok {
		return obj, nil
	}
	obj, err := doc.load(num)
	if err != nil {
		return nil, err
	}
	doc.mu.Lock()
	doc.cache[num] = obj
	doc.mu.Unlock()
	return obj, nil
}

func (doc *Document) load(num int) (*Object, error) {
	e, ok := doc.xref[num]
	if !ok {
		return null, nil
	}
	if e.inStream {
		return doc.loadCompressed(num, e)
	}
	if e.offset < 0 || e.offset >= int64(len(doc.data)) {
		return nil, fmt.Errorf("pdf: object %d offset %d out of bounds", num, e.offset)
	}
	p := newParser(doc.data, int(e.offset))
	p.length = doc.indirectLength
	if _, err := p.objectHeader(); err != nil {
		return nil, fmt.Errorf("pdf: object %d: %w", num, err)
	}
	obj, err := p.object()
	if err != nil {
		return nil, fmt.Errorf("pdf: object %d: %w", num, err)
	}
	return obj, nil
}

// indirectLength resolves a stream /Length given by reference.
func (doc *Document) indirectLength(r Ref) (int, bool) {
	obj, err := doc.object(r.Num)
	if err != nil || obj.Kind != KindInt {
		return 0, false
	}
	return int(obj.Int), true
}

// loadCompressed reads object num from inside an object stream.
func (doc *Document) loadCompressed(num int, e xrefEntry) (*Object, error) {
	stm, err := doc.object(e.streamNum)
	if err != nil {
		return nil, err
	}
	if stm.Kind != KindStream {
		return nil, fmt.Errorf("pdf: object stream %d is not a stream", e.streamNum)
	}
	data, err := doc.streamData(stm)
	if err != nil {
		return nil, fmt.Errorf("pdf: object stream %d: %w", e.streamNum, err)
	}
	n, _ := stm.Dict.Int("N")
	first, _ := stm.Dict.Int("First")

	p := newParser(data, 0)
	p.noRefs = true
	offset := -1
	for i := 0; i < int(n); i++ {
		p.skipSpace()
		id, err1 := strconv.Atoi(p.word())
		p.skipSpace()
		off, err2 := strconv.Atoi(p.word())
		if err1 != nil || err2 != nil {
			break
		}
		if id == num {
			offset = off
			break
		}
	}
	if offset < 0 {
		return nil, fmt.Errorf("pdf: object %d not in object stream %d", num, e.streamNum)
	}
	pos := int(first) + offset
	if pos >= len(data) {
		return nil, fmt.Errorf("pdf: object %d offset outside object stream", num)
	}
	return newParser(data, pos).object()
}

// --- Page tree ---

func (doc *Document) catalog() (Dict, error) {
	root, err := doc.resolve(doc.trailer["Root"])
	if err != nil {
		return nil, err
	}
	if root.Kind != KindDict {
		return nil, errors.New("pdf: missing document catalog")
	}
	return root.Dict, nil
}

// inheritable page attributes copied down from /Pages nodes.
var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

func (doc *Document) collectPages() ([]Dict, error) {
	cat, err := doc.catalog()
	if err != nil {
		return nil, err
	}
	root, err := doc.resolve(cat["Pages"])
	if err != nil {
		return nil, err
	}
	if root.Kind != KindDict {
		return nil, errors.New("pdf: missing page tree")
	}
	var pages []Dict
	visited := map[*Object]bool{}
	var walk func(node *Object, inherited Dict, depth int)
	walk = func(node *Object, inherited Dict, depth int) {
		if depth > maxNesting || visited[node] || (node.Kind != KindDict && node.Kind != KindStream) {
			return
		}
		visited[node] = true
		d := node.Dict
		attrs := make(Dict, len(inheritable))
		for k, v := range inherited {
			attrs[k] = v
		}
		for _, k := range inheritable {
			if v, ok := d[k]; ok {
				attrs[k] = v
			}
		}
		kids, ok := d["Kids"]
		if t, _ := d.Name("Type"); t == "Page" || !ok {
			page := make(Dict, len(d)+len(attrs))
			for k, v := range attrs {
				page[k] = v
			}
			for k, v := range d {
				page[k] = v
			}
			pages = append(pages, page)
			return
		}
		arr, err := doc.resolve(kids)
		if err != nil || arr.Kind != KindArray {
			return
		}
		for _, kid := range arr.Array {
			if k, err := doc.resolve(kid); err == nil {
				walk(k, attrs, depth+1)
			}
		}
	}
	walk(root, nil, 0)
	return pages, nil
}

// contents returns the concatenated, decoded content streams of a page or
// form dictionary entry.
func (doc *Document) contents(obj *Object) ([]byte, error) {
	obj, err := doc.resolve(obj)
	if err != nil {
		return nil, err
	}
	streams := []*Object{obj}
	if obj.Kind == KindArray {
		streams = obj.Array
	}
	var out []byte
	for _, s := range streams {
		s, err := doc.resolve(s)
		if err != nil {
			return nil, err
		}
		if s.Kind != KindStream {
			continue
		}
		data, err := doc.streamData(s)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
		out = append(out, '\n')
	}
	return out, nil
}

// Info returns the document information dictionary as strings.
func (doc *Document) Info() map[string]string {
	info := map[string]string{}
	d, err := doc.resolve(doc.trailer["Info"])
	if err != nil || d.Kind != KindDict {
		return info
	}
	for k, v := range d.Dict {
		v, err := doc.resolve(v)
		if err != nil {
			continue
		}
		switch v.Kind {
		case KindString:
			info[k] = strings.TrimSpace(decodeTextString(v.Str))
		case KindName:
			info[k] = v.Name
		}
	}
	return info
}
