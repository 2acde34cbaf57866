// Package matrix implements the matrix driver: the push handler
// contract and pull iterator shared by the POR and SAV codecs,
// plus an opt-in materialized random-access view.
package matrix

// Handler receives push events from a matrix traversal, in file order:
// matrix_begin, then for each row row_begin, a cell event per column,
// row_end, repeated per row, then matrix_end.
type Handler interface {
	// MatrixBegin announces the column count, an optional row-count hint
	// (0 when unknown), and the per-column width vector (0 = numeric,
	// >0 = fixed string width).
	MatrixBegin(columns int, rowsHint int, widths []int) error

	// RowBegin announces the start of row y (0-based).
	RowBegin(y int) error

	// CellNumeric delivers a numeric cell at column x.
	CellNumeric(x int, value float64) error

	// CellSysmiss delivers a system-missing numeric cell at column x.
	CellSysmiss(x int) error

	// CellString delivers a string cell at column x. text is owned by
	// the caller; implementations that retain it must copy.
	CellString(x int, text []byte) error

	// CellInvalid reports a cell that could not be decoded at column x;
	// the driver has already wrapped cause with column/row/offset
	// context.
	CellInvalid(x int, cause error) error

	// RowEnd announces the end of row y.
	RowEnd(y int) error

	// MatrixEnd announces a clean end of traversal.
	MatrixEnd() error
}

// NopHandler implements Handler with no-ops, useful to embed in a partial
// handler that only cares about some events.
type NopHandler struct{}

func (NopHandler) MatrixBegin(int, int, []int) error { return nil }
func (NopHandler) RowBegin(int) error                { return nil }
func (NopHandler) CellNumeric(int, float64) error    { return nil }
func (NopHandler) CellSysmiss(int) error             { return nil }
func (NopHandler) CellString(int, []byte) error      { return nil }
func (NopHandler) CellInvalid(int, error) error      { return nil }
func (NopHandler) RowEnd(int) error                  { return nil }
func (NopHandler) MatrixEnd() error                  { return nil }
