package matrix_test

import (
	"math"
	"testing"

	"github.com/spssio/spssio/compress"
	"github.com/spssio/spssio/format"
	"github.com/spssio/spssio/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridSource replays a fixed cell grid as a matrix.Source, one cell per
// Step call.
type gridSource struct {
	widths []int
	rows   [][]matrix.Cell
	row    int
	col    int
	begun  bool
}

func (g *gridSource) Step(h matrix.Handler) (bool, error) {
	if !g.begun {
		g.begun = true
		if err := h.MatrixBegin(len(g.widths), len(g.rows), g.widths); err != nil {
			return false, err
		}
	}

	if g.row >= len(g.rows) {
		return true, h.MatrixEnd()
	}

	if g.col == 0 {
		if err := h.RowBegin(g.row); err != nil {
			return false, err
		}
	}

	c := g.rows[g.row][g.col]

	var err error
	switch c.Kind {
	case matrix.CellNumeric:
		err = h.CellNumeric(g.col, c.Number)
	case matrix.CellSysmiss:
		err = h.CellSysmiss(g.col)
	case matrix.CellString:
		err = h.CellString(g.col, c.Text)
	case matrix.CellInvalid:
		err = h.CellInvalid(g.col, c.Cause)
	}
	if err != nil {
		return false, err
	}

	g.col++
	if g.col == len(g.widths) {
		if err := h.RowEnd(g.row); err != nil {
			return false, err
		}

		g.row++
		g.col = 0
	}

	return false, nil
}

func sampleGrid() *gridSource {
	return &gridSource{
		widths: []int{0, 8},
		rows: [][]matrix.Cell{
			{
				{Kind: matrix.CellNumeric, Number: 1.5},
				{Kind: matrix.CellString, Text: []byte("alpha")},
			},
			{
				{Kind: matrix.CellSysmiss},
				{Kind: matrix.CellString, Text: []byte("beta")},
			},
		},
	}
}

func TestIteratorYieldsCellsInFileOrder(t *testing.T) {
	it := matrix.NewIterator(sampleGrid(), 2)

	var got []matrix.Cell
	for {
		c, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}

		got = append(got, c)
	}

	require.Len(t, got, 4)
	assert.Equal(t, matrix.CellNumeric, got[0].Kind)
	assert.Equal(t, 1.5, got[0].Number)
	assert.Equal(t, "alpha", string(got[1].Text))
	assert.Equal(t, matrix.CellSysmiss, got[2].Kind)
	assert.Equal(t, "beta", string(got[3].Text))

	// Ascending columns within a row, ascending rows across.
	assert.Equal(t, 0, got[0].Col)
	assert.Equal(t, 1, got[1].Col)
	assert.Equal(t, 0, got[0].Row)
	assert.Equal(t, 1, got[2].Row)
}

func TestIteratorDrainedStaysDrained(t *testing.T) {
	it := matrix.NewIterator(sampleGrid(), 4)

	for {
		_, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
	}

	_, ok, err := it.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMaterializeRandomAccess(t *testing.T) {
	m, err := matrix.Materialize(sampleGrid())
	require.NoError(t, err)

	assert.Equal(t, 2, m.Columns())
	assert.Equal(t, 2, m.Rows())

	c, ok := m.At(1, 1)
	require.True(t, ok)
	assert.Equal(t, "beta", string(c.Text))

	_, ok = m.At(2, 0)
	assert.False(t, ok)
}

func TestMaterializedColumnExtraction(t *testing.T) {
	m, err := matrix.Materialize(sampleGrid())
	require.NoError(t, err)

	nums, release, ok := m.NumericColumn(0)
	require.True(t, ok)
	defer release()

	require.Len(t, nums, 2)
	assert.Equal(t, 1.5, nums[0])
	assert.True(t, math.IsNaN(nums[1]), "sysmiss extracts as NaN")

	strs, releaseStrs, ok := m.StringColumn(1)
	require.True(t, ok)
	defer releaseStrs()

	assert.Equal(t, []string{"alpha", "beta"}, strs)

	_, _, ok = m.NumericColumn(5)
	assert.False(t, ok)
}

func TestMaterializeWithEachCodec(t *testing.T) {
	for _, ct := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		t.Run(ct.String(), func(t *testing.T) {
			codec, err := compress.GetCodec(ct)
			require.NoError(t, err)

			m, err := matrix.Materialize(sampleGrid(), matrix.WithCompression(codec))
			require.NoError(t, err)

			c, ok := m.At(0, 0)
			require.True(t, ok)
			assert.Equal(t, 1.5, c.Number)

			c, ok = m.At(0, 1)
			require.True(t, ok)
			assert.Equal(t, "alpha", string(c.Text))
		})
	}
}
