package sav

import (
	"io"

	"github.com/spssio/spssio/endian"
)

// recordReader reads the int32/float64/byte-string primitives that make
// up every SAV metadata record, under a fixed endian.EndianEngine.
type recordReader struct {
	src    io.Reader
	engine endian.EndianEngine
}

func newRecordReader(src io.Reader, engine endian.EndianEngine) *recordReader {
	return &recordReader{src: src, engine: engine}
}

func (r *recordReader) bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.src, buf); err != nil {
		return nil, err
	}

	return buf, nil
}

func (r *recordReader) int32() (int32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}

	return int32(r.engine.Uint32(b)), nil
}

func (r *recordReader) float64() (float64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}

	return float64FromBits(r.engine.Uint64(b)), nil
}

// align4 consumes padding bytes so the reader ends on a 4-byte boundary
// relative to n bytes already consumed in the current field (SAV pads
// variable-length text to a multiple of 4 bytes).
func (r *recordReader) align4(n int) error {
	pad := (4 - n%4) % 4
	if pad == 0 {
		return nil
	}

	_, err := r.bytes(pad)

	return err
}

// recordWriter is the mirror of recordReader.
type recordWriter struct {
	dst    io.Writer
	engine endian.EndianEngine
}

func newRecordWriter(dst io.Writer, engine endian.EndianEngine) *recordWriter {
	return &recordWriter{dst: dst, engine: engine}
}

func (w *recordWriter) bytes(b []byte) error {
	_, err := w.dst.Write(b)

	return err
}

func (w *recordWriter) int32(v int32) error {
	var buf [4]byte
	w.engine.PutUint32(buf[:], uint32(v))

	return w.bytes(buf[:])
}

func (w *recordWriter) float64(v float64) error {
	var buf [8]byte
	w.engine.PutUint64(buf[:], bitsFromFloat64(v))

	return w.bytes(buf[:])
}

func (w *recordWriter) pad4(n int) error {
	pad := (4 - n%4) % 4
	if pad == 0 {
		return nil
	}

	return w.bytes(make([]byte, pad))
}
