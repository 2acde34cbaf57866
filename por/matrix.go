package por

import (
	"errors"
	"io"

	"github.com/spssio/spssio/charset"
	"github.com/spssio/spssio/errs"
	"github.com/spssio/spssio/matrix"
	"github.com/spssio/spssio/numfmt"
	"github.com/spssio/spssio/numsys"
)

// cellDelimiter is the trailing delimiter of every numeric/length token in
// the POR cell stream.
const cellDelimiter = '/'

// sysmissToken is the literal POR system-missing marker.
const sysmissToken = "*."

// endSentinel marks the end of the data matrix: the
// writer pads the remainder of the file with 'Z' followed by spaces.
const endSentinel = 'Z'

// byteReader is the minimal pull interface MatrixReader needs; satisfied
// by *charset.SoftWrapReader.
type byteReader interface {
	ReadByte() (byte, error)
}

// MatrixReader implements matrix.Source over a POR cell stream: it
// decides numeric vs. string per the widths vector and drives a
// matrix.Handler one cell at a time.
//
// Line terminators never appear inside a decoded string cell: the
// soft-wrap byte layer (charset.SoftWrapReader) has already stripped and
// virtually repadded \r/\n before MatrixReader sees a byte, so any
// terminator at that position in the source was consumed as wrap
// padding, never as cell data.
type MatrixReader struct {
	src     byteReader
	peeked  *byte
	ns      *numsys.NumberSystem
	widths  []int
	columns int
	row     int
	col     int
	begun   bool
}

// newMatrixReader constructs a MatrixReader over src (typically a
// *charset.SoftWrapReader), decoding numeric cells in base 30.
func newMatrixReader(src byteReader, widths []int) *MatrixReader {
	return &MatrixReader{
		src:     src,
		ns:      numsys.Default30(),
		widths:  widths,
		columns: len(widths),
	}
}

var _ matrix.Source = (*MatrixReader)(nil)

// Reset returns the reader to its initial state. The caller is
// responsible for repositioning the underlying byte stream at the first
// cell of the matrix.
func (r *MatrixReader) Reset() {
	r.peeked = nil
	r.row = 0
	r.col = 0
	r.begun = false
}

func (r *MatrixReader) peek() (byte, error) {
	if r.peeked != nil {
		return *r.peeked, nil
	}

	b, err := r.src.ReadByte()
	if err != nil {
		return 0, err
	}

	r.peeked = &b

	return b, nil
}

func (r *MatrixReader) next() (byte, error) {
	if r.peeked != nil {
		b := *r.peeked
		r.peeked = nil

		return b, nil
	}

	return r.src.ReadByte()
}

// readToken reads decoded bytes up to and including the next cellDelimiter,
// returning the token text with the delimiter stripped.
func (r *MatrixReader) readToken() (string, error) {
	var buf []byte

	for {
		b, err := r.next()
		if err != nil {
			return "", err
		}

		if b == cellDelimiter {
			return string(buf), nil
		}

		buf = append(buf, b)
	}
}

// Step decodes exactly one cell (or the matrix_begin/matrix_end markers)
// and delivers it to h.
func (r *MatrixReader) Step(h matrix.Handler) (bool, error) {
	if !r.begun {
		r.begun = true
		if err := h.MatrixBegin(r.columns, 0, r.widths); err != nil {
			return false, err
		}
	}

	if r.col == 0 {
		// Wrap padding from a short physical line may precede the next
		// cell or the sentinel.
		var b byte
		for {
			var err error
			b, err = r.peek()
			if err != nil {
				// The matrix must end with the sentinel; running out
				// of bytes at a row boundary is a truncation.
				return false, err
			}

			if b != ' ' {
				break
			}

			_, _ = r.next()
		}

		if b == endSentinel {
			r.drainSentinel()

			return true, h.MatrixEnd()
		}

		if err := h.RowBegin(r.row); err != nil {
			return false, err
		}
	}

	x := r.col
	width := r.widths[x]

	var cellErr error
	if width == 0 {
		cellErr = r.readNumericCell(h, x)
	} else {
		cellErr = r.readStringCell(h, x, width)
	}

	if cellErr != nil {
		// An I/O failure mid-cell cannot be recovered from; a malformed
		// token can, so it is reported in place and the traversal moves
		// to the next cell.
		if errors.Is(cellErr, io.EOF) || errors.Is(cellErr, io.ErrUnexpectedEOF) {
			return false, cellErr
		}

		if err := h.CellInvalid(x, cellErr); err != nil {
			return false, err
		}
	}

	r.col++
	if r.col == r.columns {
		if err := h.RowEnd(r.row); err != nil {
			return false, err
		}

		r.row++
		r.col = 0
	}

	return false, nil
}

func (r *MatrixReader) readNumericCell(h matrix.Handler, x int) error {
	tok, err := r.readToken()
	if err != nil {
		return err
	}

	if tok == sysmissToken {
		return h.CellSysmiss(x)
	}

	res, err := numfmt.Parse(tok, r.ns)
	if err != nil {
		if err == errs.ErrSystemMissing {
			return h.CellSysmiss(x)
		}

		return err
	}

	return h.CellNumeric(x, res.Value)
}

func (r *MatrixReader) readStringCell(h matrix.Handler, x, _ int) error {
	lenTok, err := r.readToken()
	if err != nil {
		return err
	}

	res, err := numfmt.Parse(lenTok, r.ns)
	if err != nil {
		return err
	}

	n := int(res.Value)
	if n < 0 {
		return errs.ErrInvalidCell
	}

	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		b, err := r.next()
		if err != nil {
			return err
		}

		buf[i] = b
	}

	return h.CellString(x, buf)
}

// drainSentinel consumes the 'Z' end-of-matrix marker and any trailing
// space padding through EOF.
func (r *MatrixReader) drainSentinel() {
	_, _ = r.next() // the 'Z' itself

	for {
		b, err := r.next()
		if err != nil || b != ' ' {
			return
		}
	}
}

// MatrixWriter implements the mirror of MatrixReader: it writes numeric
// and string cells in row-major, column-ascending order, terminated by the 'Z' sentinel plus soft-wrap
// padding to the next row boundary.
type MatrixWriter struct {
	dst       *charset.SoftWrapWriter
	ns        *numsys.NumberSystem
	widths    []int
	columns   int
	precision int
	col       int
}

// newMatrixWriter constructs a MatrixWriter writing to dst at the given
// trigesimal precision.
func newMatrixWriter(dst *charset.SoftWrapWriter, widths []int, precision int) *MatrixWriter {
	return &MatrixWriter{
		dst:       dst,
		ns:        numsys.Default30(),
		widths:    widths,
		columns:   len(widths),
		precision: precision,
	}
}

func (w *MatrixWriter) writeToken(s string) error {
	for i := 0; i < len(s); i++ {
		if err := w.dst.WriteByte(s[i]); err != nil {
			return err
		}
	}

	return w.dst.WriteByte(cellDelimiter)
}

// WriteNumeric writes one numeric cell at the current column.
func (w *MatrixWriter) WriteNumeric(value float64) error {
	s, err := numfmt.Format(value, w.ns, w.precision)
	if err != nil {
		return err
	}

	return w.advance(w.writeToken(s))
}

// WriteSysmiss writes the system-missing marker at the current column.
func (w *MatrixWriter) WriteSysmiss() error {
	return w.advance(w.writeToken(sysmissToken))
}

// WriteString writes one string cell at the current column: a base-30
// length prefix followed by the raw bytes.
func (w *MatrixWriter) WriteString(text []byte) error {
	lenVal, err := numfmt.Format(float64(len(text)), w.ns, w.precision)
	if err != nil {
		return err
	}

	if err := w.writeToken(lenVal); err != nil {
		return err
	}

	for _, b := range text {
		if err := w.dst.WriteByte(b); err != nil {
			return err
		}
	}

	return w.advance(nil)
}

func (w *MatrixWriter) advance(err error) error {
	if err != nil {
		return err
	}

	w.col++
	if w.col == w.columns {
		w.col = 0
	}

	return nil
}

// End writes the 'Z' end-of-matrix sentinel and flushes the final,
// space-padded row.
func (w *MatrixWriter) End() error {
	if err := w.dst.WriteByte(endSentinel); err != nil {
		return err
	}

	return w.dst.Flush()
}
