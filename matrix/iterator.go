package matrix

import "github.com/spssio/spssio/errs"

// Source decodes exactly one unit of traversal progress (a begin/end
// marker, a row boundary, or a single cell) into h, and reports whether
// the traversal has reached matrix_end. The POR and SAV readers implement this
// to be driven by Iterator; it is also how they are driven directly by a
// caller using the push Handler interface without an Iterator at all.
type Source interface {
	Step(h Handler) (done bool, err error)
}

// Iterator wraps a Source with a bounded ring buffer, exposing a pull interface: Next returns the next Cell, or
// (Cell{}, false, nil) at matrix_end.
type Iterator struct {
	src  Source
	ring *ringBuffer
	rh   *ringHandler
	done bool
}

// NewIterator constructs an Iterator over src. capacity is the ring
// buffer size; it should be at least the column count, and a capacity
// below 1 is rounded up to 1.
func NewIterator(src Source, capacity int) *Iterator {
	ring := newRingBuffer(capacity)

	return &Iterator{
		src:  src,
		ring: ring,
		rh:   &ringHandler{ring: ring},
	}
}

// Next pulls the next Cell from the traversal, driving src forward as
// needed. ok is false once matrix_end has been reached and the ring has
// drained.
func (it *Iterator) Next() (Cell, bool, error) {
	for it.ring.empty() {
		if it.done {
			return Cell{}, false, nil
		}

		done, err := it.src.Step(it.rh)
		if err != nil {
			return Cell{}, false, err
		}

		if done {
			it.done = true
		}
	}

	c, ok := it.ring.pop()

	return c, ok, nil
}

// ringHandler adapts the push Handler contract onto ringBuffer pushes,
// and is the Handler Iterator drives Source.Step with. Only cell events
// ever occupy ring slots; matrix/row begin/end events are observed but
// not queued, since Iterator's contract is cell-at-a-time.
type ringHandler struct {
	ring    *ringBuffer
	row     int
	columns int
	widths  []int
}

func (rh *ringHandler) MatrixBegin(columns, rowsHint int, widths []int) error {
	rh.columns = columns
	rh.widths = widths

	return nil
}

func (rh *ringHandler) RowBegin(y int) error {
	rh.row = y

	return nil
}

func (rh *ringHandler) CellNumeric(x int, value float64) error {
	return rh.pushOrOverflow(Cell{Row: rh.row, Col: x, Kind: CellNumeric, Number: value})
}

func (rh *ringHandler) CellSysmiss(x int) error {
	return rh.pushOrOverflow(Cell{Row: rh.row, Col: x, Kind: CellSysmiss})
}

func (rh *ringHandler) CellString(x int, text []byte) error {
	cp := append([]byte(nil), text...)

	return rh.pushOrOverflow(Cell{Row: rh.row, Col: x, Kind: CellString, Text: cp})
}

func (rh *ringHandler) CellInvalid(x int, cause error) error {
	return rh.pushOrOverflow(Cell{Row: rh.row, Col: x, Kind: CellInvalid, Cause: cause})
}

func (rh *ringHandler) RowEnd(int) error {
	return nil
}

func (rh *ringHandler) MatrixEnd() error {
	return nil
}

func (rh *ringHandler) pushOrOverflow(c Cell) error {
	if rh.ring.full() {
		// Source implementations must only ever emit one cell per Step
		// call, so the ring (sized >= columns) never actually fills
		// from a single step; this guards the invariant rather than
		// implementing real backpressure queuing.
		return errs.ErrColumnsExhausted
	}

	rh.ring.push(c)

	return nil
}
