package sav

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/spssio/spssio/charset"
	"github.com/spssio/spssio/endian"
	"github.com/spssio/spssio/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A case of [1.0, SYSMISS, "AB"] under bias 100 packs into one control
// slab (101, 255, 253 plus NOP filler) and a single payload slab holding
// the padded string.
func TestCompressedSinkControlBytes(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	var buf bytes.Buffer
	sink := newCompressedSlabSink(&buf, engine, 100.0)

	mw := newMatrixWriter(sink, engine, charset.Identity(), []int{0, 0, 8})

	require.NoError(t, mw.WriteNumeric(1.0))
	require.NoError(t, mw.WriteSysmiss())
	require.NoError(t, mw.WriteString([]byte("AB")))
	require.NoError(t, mw.End())

	out := buf.Bytes()
	require.Len(t, out, 8+8+8)

	assert.Equal(t, []byte{101, 255, 253, 0, 0, 0, 0, 0}, out[:8])
	assert.Equal(t, []byte("AB      "), out[8:16])
	assert.Equal(t, byte(252), out[16])
}

// An EOF opcode mid-segment terminates cleanly; the remaining control
// slots are NOP and nothing after them is consumed.
func TestCompressedSourceEOFMidSegment(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	stream := []byte{101, 252, 0, 0, 0, 0, 0, 0}
	src := newCompressedSlabSource(bytes.NewReader(stream), engine, 100.0)

	sl, err := src.NextSlab()
	require.NoError(t, err)
	assert.Equal(t, 1.0, float64FromBits(engine.Uint64(sl[:])))

	_, err = src.NextSlab()
	assert.Equal(t, io.EOF, err)

	// Terminated state is sticky.
	_, err = src.NextSlab()
	assert.Equal(t, io.EOF, err)
}

func TestCompressedRoundTripSlabLevel(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	var buf bytes.Buffer
	sink := newCompressedSlabSink(&buf, engine, 100.0)

	values := []float64{1.0, -99.0, 151.0, 152.0, 0.5, Sysmiss(), math.Pi}
	for _, v := range values {
		var sl slab
		engine.PutUint64(sl[:], bitsFromFloat64(v))
		require.NoError(t, sink.PutSlab(sl, true))
	}
	require.NoError(t, sink.End())

	src := newCompressedSlabSource(bytes.NewReader(buf.Bytes()), engine, 100.0)
	for _, want := range values {
		sl, err := src.NextSlab()
		require.NoError(t, err)
		assert.Equal(t, bitsFromFloat64(want), engine.Uint64(sl[:]))
	}

	_, err := src.NextSlab()
	assert.Equal(t, io.EOF, err)
}

func TestMatrixReaderResetRetraverses(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	var raw bytes.Buffer
	sink := &rawSlabSink{dst: &raw}
	mw := newMatrixWriter(sink, engine, charset.Identity(), []int{0, 16, -1})
	require.NoError(t, mw.WriteNumeric(7.0))
	require.NoError(t, mw.WriteString([]byte("LONGSTRINGCELL")))
	require.NoError(t, mw.End())

	rd := bytes.NewReader(raw.Bytes())
	mr := newMatrixReader(&rawSlabSource{src: rd}, engine, charset.Identity(), []int{0, 16, -1})

	for pass := 0; pass < 2; pass++ {
		m, err := matrix.Materialize(mr)
		require.NoError(t, err, "pass %d", pass)
		require.Equal(t, 1, m.Rows())

		c, ok := m.At(0, 0)
		require.True(t, ok)
		assert.Equal(t, 7.0, c.Number)

		c, ok = m.At(0, 1)
		require.True(t, ok)
		assert.Equal(t, "LONGSTRINGCELL", string(c.Text))

		mr.Reset()
		_, err = rd.Seek(0, io.SeekStart)
		require.NoError(t, err)
	}
}

func TestMatrixReaderStringBufferSizing(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	mr := newMatrixReader(&rawSlabSource{src: bytes.NewReader(nil)}, engine, charset.Identity(), []int{0})

	assert.Error(t, mr.SetStringBuffer(0))
	assert.Error(t, mr.SetStringBuffer(-8))
	assert.Error(t, mr.SetStringBuffer(12))
	assert.NoError(t, mr.SetStringBuffer(64))

	mr.FreeStringBuffer()
}
