package matrix

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/spssio/spssio/compress"
	"github.com/spssio/spssio/internal/pool"
)

// MaterializeConfig controls Materialize's optional compressed backing
// store: an opt-in cache over an otherwise streaming reader, trading a
// one-time decode cost for O(1) random access.
type MaterializeConfig struct {
	Codec compress.Codec
}

// MaterializeOption configures Materialize.
type MaterializeOption func(*MaterializeConfig)

// WithCompression selects the codec used to hold the materialized grid's
// backing bytes in memory. The default, when no option is given, is
// compress.NewNoOpCompressor().
func WithCompression(codec compress.Codec) MaterializeOption {
	return func(c *MaterializeConfig) { c.Codec = codec }
}

// Materialized is an O(1) random-access view over a fully-decoded
// traversal. Its backing bytes are held through a compress.Codec, so a
// caller who opts into real compression trades CPU on first access for a
// smaller memory footprint; NoOpCompressor (the default) is a pure
// pass-through.
type Materialized struct {
	columns int
	rows    int
	widths  []int

	codec      compress.Codec
	compressed []byte

	mu       sync.Mutex
	cells    []Cell // decompressed lazily, guarded by mu
	unpacked bool
}

// Materialize drains src entirely into a Materialized grid.
func Materialize(src Source, opts ...MaterializeOption) (*Materialized, error) {
	cfg := MaterializeConfig{Codec: compress.NewNoOpCompressor()}
	for _, opt := range opts {
		opt(&cfg)
	}

	mh := &materializeHandler{}

	for {
		done, err := src.Step(mh)
		if err != nil {
			return nil, err
		}

		if done {
			break
		}
	}

	raw := encodeCells(mh.cells)

	compressed, err := cfg.Codec.Compress(raw)
	if err != nil {
		return nil, err
	}

	return &Materialized{
		columns:    mh.columns,
		rows:       mh.rows,
		widths:     mh.widths,
		codec:      cfg.Codec,
		compressed: compressed,
	}, nil
}

// Columns reports the column count.
func (m *Materialized) Columns() int { return m.columns }

// Rows reports the row count observed during materialization.
func (m *Materialized) Rows() int { return m.rows }

// At returns the cell at (row, col), decompressing the backing store on
// first access.
func (m *Materialized) At(row, col int) (Cell, bool) {
	m.ensureUnpacked()

	idx := row*m.columns + col
	if idx < 0 || idx >= len(m.cells) {
		return Cell{}, false
	}

	return m.cells[idx], true
}

func (m *Materialized) ensureUnpacked() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unpacked {
		return
	}

	raw, err := m.codec.Decompress(m.compressed)
	if err == nil {
		m.cells = decodeCells(raw)
	}

	m.unpacked = true
}

// NumericColumn extracts column col as a pooled float64 slice in row
// order; sysmiss and non-numeric cells come back as NaN. The returned
// release function must be called (typically with defer) once the caller
// is done with the slice.
func (m *Materialized) NumericColumn(col int) ([]float64, func(), bool) {
	if col < 0 || col >= m.columns {
		return nil, nil, false
	}

	m.ensureUnpacked()

	values, cleanup := pool.GetFloat64Slice(m.rows)
	for row := 0; row < m.rows; row++ {
		values[row] = math.NaN()

		idx := row*m.columns + col
		if idx < len(m.cells) && m.cells[idx].Kind == CellNumeric {
			values[row] = m.cells[idx].Number
		}
	}

	return values, cleanup, true
}

// StringColumn extracts column col as a pooled string slice in row
// order; non-string cells come back as "". The returned release function
// must be called once the caller is done with the slice.
func (m *Materialized) StringColumn(col int) ([]string, func(), bool) {
	if col < 0 || col >= m.columns {
		return nil, nil, false
	}

	m.ensureUnpacked()

	values, cleanup := pool.GetStringSlice(m.rows)
	for row := 0; row < m.rows; row++ {
		values[row] = ""

		idx := row*m.columns + col
		if idx < len(m.cells) && m.cells[idx].Kind == CellString {
			values[row] = string(m.cells[idx].Text)
		}
	}

	return values, cleanup, true
}

// materializeHandler accumulates every cell event from a full traversal.
type materializeHandler struct {
	NopHandler
	columns int
	rows    int
	widths  []int
	row     int
	cells   []Cell
}

func (h *materializeHandler) MatrixBegin(columns, rowsHint int, widths []int) error {
	h.columns = columns
	h.widths = widths
	if rowsHint > 0 {
		h.cells = make([]Cell, 0, rowsHint*columns)
	}

	return nil
}

func (h *materializeHandler) RowBegin(y int) error {
	h.row = y
	if y+1 > h.rows {
		h.rows = y + 1
	}

	return nil
}

func (h *materializeHandler) CellNumeric(x int, value float64) error {
	h.cells = append(h.cells, Cell{Row: h.row, Col: x, Kind: CellNumeric, Number: value})

	return nil
}

func (h *materializeHandler) CellSysmiss(x int) error {
	h.cells = append(h.cells, Cell{Row: h.row, Col: x, Kind: CellSysmiss})

	return nil
}

func (h *materializeHandler) CellString(x int, text []byte) error {
	cp := append([]byte(nil), text...)
	h.cells = append(h.cells, Cell{Row: h.row, Col: x, Kind: CellString, Text: cp})

	return nil
}

func (h *materializeHandler) CellInvalid(x int, cause error) error {
	h.cells = append(h.cells, Cell{Row: h.row, Col: x, Kind: CellInvalid, Cause: cause})

	return nil
}

// encodeCells serializes cells into a flat byte buffer: each cell is
// kind(1) + row(varint) + col(varint) + payload, where payload is 8 raw
// bytes for numeric, a varint length + bytes for string, and nothing for
// sysmiss/invalid.
func encodeCells(cells []Cell) []byte {
	buf := pool.GetMatrixBuffer()
	defer pool.PutMatrixBuffer(buf)

	var tmp [binary.MaxVarintLen64]byte

	for _, c := range cells {
		buf.MustWrite([]byte{byte(c.Kind)})

		n := binary.PutVarint(tmp[:], int64(c.Row))
		buf.MustWrite(tmp[:n])

		n = binary.PutVarint(tmp[:], int64(c.Col))
		buf.MustWrite(tmp[:n])

		switch c.Kind {
		case CellNumeric:
			var bits [8]byte
			binary.LittleEndian.PutUint64(bits[:], math.Float64bits(c.Number))
			buf.MustWrite(bits[:])
		case CellString:
			n = binary.PutVarint(tmp[:], int64(len(c.Text)))
			buf.MustWrite(tmp[:n])
			buf.MustWrite(c.Text)
		}
	}

	return append([]byte(nil), buf.Bytes()...)
}

func decodeCells(raw []byte) []Cell {
	var cells []Cell

	pos := 0
	for pos < len(raw) {
		kind := CellKind(raw[pos])
		pos++

		row, n := binary.Varint(raw[pos:])
		pos += n

		col, n := binary.Varint(raw[pos:])
		pos += n

		c := Cell{Row: int(row), Col: int(col), Kind: kind}

		switch kind {
		case CellNumeric:
			bits := binary.LittleEndian.Uint64(raw[pos : pos+8])
			pos += 8
			c.Number = math.Float64frombits(bits)
		case CellString:
			length, ln := binary.Varint(raw[pos:])
			pos += ln
			c.Text = append([]byte(nil), raw[pos:pos+int(length)]...)
			pos += int(length)
		}

		cells = append(cells, c)
	}

	return cells
}
