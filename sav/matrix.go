package sav

import (
	"io"

	"github.com/spssio/spssio/charset"
	"github.com/spssio/spssio/endian"
	"github.com/spssio/spssio/errs"
	"github.com/spssio/spssio/matrix"
)

// slab is one 8-byte unit of the case stream: either a numeric cell, a
// string segment, or a raw byte-store, depending on how the caller
// chooses to interpret it.
type slab [8]byte

// slabSource yields one slab per call, or io.EOF once the underlying
// control-byte stream (compressed) or byte stream (raw) is exhausted.
// A compressed source returns (slab{}, io.EOF) the moment it reads a 252
// opcode, even if payload slabs technically remain in the segment -- the
// remaining control-byte slots in a terminated segment are NOP, so
// nothing further is ever consumed from it.
type slabSource interface {
	NextSlab() (slab, error)
}

// slabSink is the write-side mirror of slabSource.
type slabSink interface {
	PutSlab(s slab, numeric bool) error
	End() error
}

// rawSlabSource reads slabs directly off an uncompressed SAV data
// stream.
type rawSlabSource struct {
	src io.Reader
}

func (s *rawSlabSource) NextSlab() (slab, error) {
	var sl slab
	if _, err := io.ReadFull(s.src, sl[:]); err != nil {
		return slab{}, err
	}

	return sl, nil
}

// rawSlabSink is the write-side mirror.
type rawSlabSink struct {
	dst io.Writer
}

func (s *rawSlabSink) PutSlab(sl slab, _ bool) error {
	_, err := s.dst.Write(sl[:])

	return err
}

func (s *rawSlabSink) End() error { return nil }

// compressedSlabSource implements the 1-in-9 run-length scheme: a
// segment is one 8-byte control slab (one opcode byte per position)
// followed by 0..8 payload slabs, consumed lazily.
type compressedSlabSource struct {
	src     io.Reader
	engine  endian.EndianEngine
	bias    float64
	sysmiss float64

	control [8]byte
	pos     int // next unread opcode index in control, 8 once exhausted
	eof     bool

	// sysmissSlab records whether the most recently produced slab came
	// from a sysmiss opcode; the parser rejects such a slab inside a
	// string column.
	sysmissSlab bool
}

func newCompressedSlabSource(src io.Reader, engine endian.EndianEngine, bias float64) *compressedSlabSource {
	return &compressedSlabSource{src: src, engine: engine, bias: bias, sysmiss: Sysmiss(), pos: 8}
}

// reset returns the segmenter to its initial state, discarding any
// partially-consumed control slab. The caller is responsible for
// repositioning the underlying byte stream.
func (s *compressedSlabSource) reset() {
	s.pos = 8
	s.eof = false
	s.sysmissSlab = false
}

func (s *compressedSlabSource) nextOpcode() (byte, bool, error) {
	if s.eof {
		return 0, false, io.EOF
	}

	if s.pos >= 8 {
		var control [8]byte
		if _, err := io.ReadFull(s.src, control[:]); err != nil {
			return 0, false, err
		}

		s.control = control
		s.pos = 0
	}

	op := s.control[s.pos]
	s.pos++

	return op, true, nil
}

func (s *compressedSlabSource) NextSlab() (slab, error) {
	for {
		op, _, err := s.nextOpcode()
		if err != nil {
			return slab{}, err
		}

		switch {
		case op == 0: // NOP
			continue
		case op == 252: // EOF
			s.eof = true

			return slab{}, io.EOF
		case op == 253: // verbatim: next payload slab, raw
			var sl slab
			if _, err := io.ReadFull(s.src, sl[:]); err != nil {
				return slab{}, err
			}

			s.sysmissSlab = false

			return sl, nil
		case op == 254: // whitespace run: all-space slab
			var sl slab
			for i := range sl {
				sl[i] = ' '
			}

			s.sysmissSlab = false

			return sl, nil
		case op == 255: // sysmiss
			var sl slab
			s.engine.PutUint64(sl[:], bitsFromFloat64(s.sysmiss))

			s.sysmissSlab = true

			return sl, nil
		default: // 1..251: compressed integer, value = op - bias
			var sl slab
			value := float64(op) - s.bias
			s.engine.PutUint64(sl[:], bitsFromFloat64(value))

			s.sysmissSlab = false

			return sl, nil
		}
	}
}

// compressedSlabSink is the write-side mirror: it buffers up to 8
// opcodes per segment, flushing payload slabs for any opcode that needs
// one (253).
type compressedSlabSink struct {
	dst     io.Writer
	engine  endian.EndianEngine
	bias    float64
	sysmiss float64

	control  [8]byte
	payloads []slab
	n        int
}

func newCompressedSlabSink(dst io.Writer, engine endian.EndianEngine, bias float64) *compressedSlabSink {
	return &compressedSlabSink{dst: dst, engine: engine, bias: bias, sysmiss: Sysmiss()}
}

func (s *compressedSlabSink) PutSlab(sl slab, numeric bool) error {
	op, payload, hasPayload := s.classify(sl, numeric)

	s.control[s.n] = op
	s.n++
	if hasPayload {
		s.payloads = append(s.payloads, payload)
	}

	if s.n == 8 {
		return s.flush()
	}

	return nil
}

// classify decides the control byte for one slab"): sysmiss (255) or a compressible integer (1..251)
// for numeric slabs, an all-space run (254) for string slabs, otherwise
// verbatim (253) with the raw 8 bytes as payload.
func (s *compressedSlabSink) classify(sl slab, numeric bool) (byte, slab, bool) {
	if numeric {
		bits := s.engine.Uint64(sl[:])
		value := float64FromBits(bits)

		if bits == bitsFromFloat64(s.sysmiss) {
			return 255, slab{}, false
		}

		shifted := value + s.bias
		if shifted == float64(int64(shifted)) && shifted >= 1 && shifted <= 251 {
			code := byte(int64(shifted))
			// Only compress when decoding the opcode reproduces the
			// slab bit-identically; -0.0 + bias would otherwise come
			// back as +0.0.
			if bitsFromFloat64(float64(code)-s.bias) == bits {
				return code, slab{}, false
			}
		}

		return 253, sl, true
	}

	allSpace := true
	for _, b := range sl {
		if b != ' ' {
			allSpace = false

			break
		}
	}

	if allSpace {
		return 254, slab{}, false
	}

	return 253, sl, true
}

func (s *compressedSlabSink) flush() error {
	if s.n == 0 {
		return nil
	}

	for i := s.n; i < 8; i++ {
		s.control[i] = 0 // NOP filler
	}

	if _, err := s.dst.Write(s.control[:]); err != nil {
		return err
	}

	for _, p := range s.payloads {
		if _, err := s.dst.Write(p[:]); err != nil {
			return err
		}
	}

	s.control = [8]byte{}
	s.payloads = s.payloads[:0]
	s.n = 0

	return nil
}

// End terminates the matrix with control byte 252, flushing any partial
// segment first.
func (s *compressedSlabSink) End() error {
	if err := s.flush(); err != nil {
		return err
	}

	var control [8]byte
	control[0] = 252

	_, err := s.dst.Write(control[:])

	return err
}

// MatrixReader implements matrix.Source over a SAV case stream: it
// consumes one slab per slab-width column (including -1 continuation
// entries), consolidating multi-slab strings into a single CellString
// event at the owning logical column.
type MatrixReader struct {
	src        slabSource
	engine     endian.EndianEngine
	table      *charset.Table
	slabWidths []int // one entry per on-disk slab column, -1 = continuation
	logicalIdx []int // slabWidths index -> logical column index, -1 for continuations
	columns    int   // logical column count

	pos   int
	row   int
	col   int // logical column cursor within the current row
	begun bool

	// strBuf accumulates the slabs of a multi-slab string cell between
	// the first slab and finalization. Owned by this reader; resizable
	// via SetStringBuffer, freeable via FreeStringBuffer.
	strBuf []byte

	// peeked holds a slab read ahead at a row boundary, so end-of-matrix
	// is detected before a row_begin event goes out for a row that does
	// not exist.
	peeked *slab
}

func (r *MatrixReader) peekSlab() (slab, error) {
	if r.peeked != nil {
		return *r.peeked, nil
	}

	sl, err := r.nextSlab()
	if err != nil {
		return slab{}, err
	}

	r.peeked = &sl

	return sl, nil
}

func (r *MatrixReader) nextSlab() (slab, error) {
	if r.peeked != nil {
		sl := *r.peeked
		r.peeked = nil

		return sl, nil
	}

	return r.src.NextSlab()
}

func newMatrixReader(src slabSource, engine endian.EndianEngine, table *charset.Table, slabWidths []int) *MatrixReader {
	r := &MatrixReader{src: src, engine: engine, table: table, slabWidths: slabWidths}
	r.logicalIdx = make([]int, len(slabWidths))

	logical := 0
	for i, w := range slabWidths {
		if w == -1 {
			r.logicalIdx[i] = -1

			continue
		}

		r.logicalIdx[i] = logical
		logical++
	}

	r.columns = logical

	return r
}

var _ matrix.Source = (*MatrixReader)(nil)

// Reset returns the reader (and, for compressed input, the control-byte
// segmenter behind it) to its initial state without reallocating the
// string buffer. The caller is responsible for repositioning the
// underlying byte stream at the first case.
func (r *MatrixReader) Reset() {
	r.pos = 0
	r.row = 0
	r.col = 0
	r.begun = false
	r.peeked = nil

	if cs, ok := r.src.(*compressedSlabSource); ok {
		cs.reset()
	}
}

// SetStringBuffer resizes the string-accumulation buffer. n must be a
// positive multiple of 8; a buffer smaller than a cell's slab span grows
// on demand during that cell.
func (r *MatrixReader) SetStringBuffer(n int) error {
	if n <= 0 || n%8 != 0 {
		return errs.ErrBufferSize
	}

	r.strBuf = make([]byte, 0, n)

	return nil
}

// FreeStringBuffer releases the string-accumulation buffer between
// traversals; the next string cell reallocates it on demand.
func (r *MatrixReader) FreeStringBuffer() {
	r.strBuf = nil
}

func (r *MatrixReader) Step(h matrix.Handler) (bool, error) {
	if !r.begun {
		r.begun = true

		widths := make([]int, 0, r.columns)
		for i, w := range r.slabWidths {
			if r.logicalIdx[i] >= 0 {
				widths = append(widths, w)
			}
		}

		if err := h.MatrixBegin(r.columns, 0, widths); err != nil {
			return false, err
		}
	}

	if r.col == 0 {
		// Look one slab ahead so a clean end of stream never emits a
		// row_begin for a row that does not exist.
		if _, err := r.peekSlab(); err != nil {
			if err == io.EOF {
				return true, h.MatrixEnd()
			}

			return false, err
		}

		if err := h.RowBegin(r.row); err != nil {
			return false, err
		}
	}

	slabCol := r.pos
	width := r.slabWidths[slabCol]
	logicalCol := r.logicalIdx[slabCol]

	var cellErr error
	switch {
	case width == 0:
		cellErr = r.readNumericCell(h, logicalCol)
	case width > 0:
		cellErr = r.readStringCell(h, logicalCol, width)
	default:
		cellErr = errs.ErrRejected
	}

	if cellErr != nil {
		// End of stream inside a row is a structural error: the width
		// vector still expected cells.
		if cellErr == io.EOF {
			return false, errs.ErrRejected
		}

		if err := h.CellInvalid(logicalCol, cellErr); err != nil {
			return false, err
		}
	}

	r.pos++
	r.col++

	if r.col == r.columns {
		if err := h.RowEnd(r.row); err != nil {
			return false, err
		}

		r.row++
		r.col = 0
		r.pos = 0
	}

	return false, nil
}

func (r *MatrixReader) readNumericCell(h matrix.Handler, x int) error {
	sl, err := r.nextSlab()
	if err != nil {
		return err
	}

	bits := r.engine.Uint64(sl[:])
	value := float64FromBits(bits)

	if bits == bitsFromFloat64(Sysmiss()) {
		return h.CellSysmiss(x)
	}

	return h.CellNumeric(x, value)
}

func (r *MatrixReader) readStringCell(h matrix.Handler, x, width int) error {
	slabCount := (width + 7) / 8

	if cap(r.strBuf) < slabCount*8 {
		r.strBuf = make([]byte, 0, ((slabCount*8+63)/64)*64)
	}
	buf := r.strBuf[:0]

	for i := 0; i < slabCount; i++ {
		sl, err := r.nextSlab()
		if err != nil {
			return err
		}

		if cs, ok := r.src.(*compressedSlabSource); ok && cs.sysmissSlab {
			return errs.ErrRejected
		}

		buf = append(buf, sl[:]...)

		if i < slabCount-1 {
			r.pos++
		}
	}

	// Trim trailing spaces then charset-decode.
	n := len(buf)
	for n > 0 && buf[n-1] == ' ' {
		n--
	}
	buf = buf[:n]

	if r.table != nil {
		for i, b := range buf {
			decoded, _ := r.table.Decode(b)
			buf[i] = decoded
		}
	}

	return h.CellString(x, buf)
}

// MatrixWriter is the mirror of MatrixReader.
type MatrixWriter struct {
	sink       slabSink
	engine     endian.EndianEngine
	table      *charset.Table
	slabWidths []int
	pos        int
	col        int
	columns    int
}

func newMatrixWriter(sink slabSink, engine endian.EndianEngine, table *charset.Table, slabWidths []int) *MatrixWriter {
	columns := 0
	for _, w := range slabWidths {
		if w != -1 {
			columns++
		}
	}

	return &MatrixWriter{sink: sink, engine: engine, table: table, slabWidths: slabWidths, columns: columns}
}

func (w *MatrixWriter) WriteNumeric(value float64) error {
	var sl slab
	w.engine.PutUint64(sl[:], bitsFromFloat64(value))

	return w.advance(w.sink.PutSlab(sl, true))
}

func (w *MatrixWriter) WriteSysmiss() error {
	var sl slab
	w.engine.PutUint64(sl[:], bitsFromFloat64(Sysmiss()))

	return w.advance(w.sink.PutSlab(sl, true))
}

// WriteString writes the logical string column at the writer's current
// position, which must span exactly the on-disk slab width declared for
// that column (1 first slab plus any -1 continuation entries that
// follow).
func (w *MatrixWriter) WriteString(text []byte) error {
	width := w.slabWidths[w.pos]
	slabCount := (width + 7) / 8

	encoded := make([]byte, slabCount*8)
	for i := range encoded {
		encoded[i] = ' '
	}

	for i, b := range text {
		if i >= len(encoded) {
			break
		}

		if w.table != nil {
			encoded[i] = w.table.Encode(b)
		} else {
			encoded[i] = b
		}
	}

	for i := 0; i < slabCount; i++ {
		var sl slab
		copy(sl[:], encoded[i*8:(i+1)*8])

		if err := w.sink.PutSlab(sl, false); err != nil {
			return err
		}

		if i < slabCount-1 {
			w.pos++
		}
	}

	return w.advanceOK()
}

func (w *MatrixWriter) advance(err error) error {
	if err != nil {
		return err
	}

	return w.advanceOK()
}

func (w *MatrixWriter) advanceOK() error {
	w.pos++
	w.col++

	if w.col == w.columns {
		w.col = 0
		w.pos = 0
	}

	return nil
}

// End terminates the matrix.
func (w *MatrixWriter) End() error {
	return w.sink.End()
}
