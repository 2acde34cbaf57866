package charset

import (
	"bufio"
	"io"

	"github.com/spssio/spssio/errs"
	"github.com/spssio/spssio/internal/options"
	"github.com/spssio/spssio/internal/pool"
)

// DefaultRowWidth is R, the configurable soft-wrap row width.
const DefaultRowWidth = 80

// ReaderConfig holds SoftWrapReader construction settings.
type ReaderConfig struct {
	Width    int
	Unmapped func(b byte)
}

// ReaderOption configures a SoftWrapReader.
type ReaderOption = options.Option[*ReaderConfig]

// WithReaderWidth overrides the default row width R.
func WithReaderWidth(width int) ReaderOption {
	return options.NoError[*ReaderConfig](func(c *ReaderConfig) {
		c.Width = width
	})
}

// WithUnmappedHandler installs a callback invoked once per byte that has
// no inverse in the charset table. The byte itself is still passed
// through verbatim; unmapped bytes are a warning, not an error.
func WithUnmappedHandler(fn func(b byte)) ReaderOption {
	return options.NoError[*ReaderConfig](func(c *ReaderConfig) {
		c.Unmapped = fn
	})
}

// SoftWrapReader implements the POR byte layer: it
// presents the underlying stream as a sequence of logical, charset-decoded
// bytes, stripping `\r`/`\n` and synthesizing space padding so every
// physical line reads as exactly Width bytes before decoding.
type SoftWrapReader struct {
	src      *bufio.Reader
	table    *Table
	width    int
	col      int
	pad      int
	unmapped func(b byte)
}

// NewSoftWrapReader wraps r, decoding every logical byte through table.
// A nil table passes bytes through verbatim; SetTable installs one
// mid-stream, which is how a reader bootstraps the table out of the
// region of the file that defines it.
func NewSoftWrapReader(r io.Reader, table *Table, opts ...ReaderOption) *SoftWrapReader {
	cfg := &ReaderConfig{Width: DefaultRowWidth}
	_ = options.Apply(cfg, opts...)

	return &SoftWrapReader{
		src:      bufio.NewReader(r),
		table:    table,
		width:    cfg.Width,
		unmapped: cfg.Unmapped,
	}
}

// SetTable installs (or replaces) the decoding table. Bytes already read
// are unaffected.
func (r *SoftWrapReader) SetTable(table *Table) {
	r.table = table
}

// decodeByte translates one raw byte, reporting unmapped bytes to the
// warning callback.
func (r *SoftWrapReader) decodeByte(b byte) byte {
	if r.table == nil {
		return b
	}

	decoded, ok := r.table.Decode(b)
	if !ok && r.unmapped != nil {
		r.unmapped(b)
	}

	return decoded
}

// ReadByte returns the next logical, charset-decoded byte.
func (r *SoftWrapReader) ReadByte() (byte, error) {
	if r.pad > 0 {
		r.pad--

		return r.decodeByte(' '), nil
	}

	for {
		b, err := r.src.ReadByte()
		if err != nil {
			return 0, err
		}

		switch b {
		case '\r':
			continue
		case '\n':
			padNeeded := r.width - r.col
			r.col = 0

			if padNeeded <= 0 {
				continue
			}

			r.pad = padNeeded - 1

			return r.decodeByte(' '), nil
		default:
			if r.col >= r.width {
				return 0, errs.ErrRowTooLong
			}

			r.col++

			return r.decodeByte(b), nil
		}
	}
}

// Read implements io.Reader over ReadByte, for callers that want bulk
// reads (e.g. a string cell of known length).
func (r *SoftWrapReader) Read(p []byte) (int, error) {
	for i := range p {
		b, err := r.ReadByte()
		if err != nil {
			if i > 0 {
				return i, nil
			}

			return 0, err
		}

		p[i] = b
	}

	return len(p), nil
}

// WriterConfig holds SoftWrapWriter construction settings.
type WriterConfig struct {
	Width   int
	Newline string
}

// WriterOption configures a SoftWrapWriter.
type WriterOption = options.Option[*WriterConfig]

// WithWriterWidth overrides the default row width R.
func WithWriterWidth(width int) WriterOption {
	return options.NoError[*WriterConfig](func(c *WriterConfig) {
		c.Width = width
	})
}

// WithNewline overrides the line terminator used between soft-wrapped
// rows (default "\r\n", matching PSPP-produced POR files).
func WithNewline(nl string) WriterOption {
	return options.NoError[*WriterConfig](func(c *WriterConfig) {
		c.Newline = nl
	})
}

// SoftWrapWriter is the mirror of SoftWrapReader: it charset-encodes each
// logical byte and segments the output into Width-wide physical lines. A
// nil table passes bytes through verbatim until SetTable installs one.
type SoftWrapWriter struct {
	dst     io.Writer
	table   *Table
	width   int
	newline string
	line    *pool.ByteBuffer
}

// SetTable installs (or replaces) the encoding table. Bytes already
// written are unaffected.
func (w *SoftWrapWriter) SetTable(table *Table) {
	w.table = table
}

func (w *SoftWrapWriter) encodeByte(b byte) byte {
	if w.table == nil {
		return b
	}

	return w.table.Encode(b)
}

// NewSoftWrapWriter wraps w, encoding every logical byte through table.
func NewSoftWrapWriter(w io.Writer, table *Table, opts ...WriterOption) *SoftWrapWriter {
	cfg := &WriterConfig{Width: DefaultRowWidth, Newline: "\r\n"}
	_ = options.Apply(cfg, opts...)

	return &SoftWrapWriter{
		dst:     w,
		table:   table,
		width:   cfg.Width,
		newline: cfg.Newline,
		line:    pool.NewByteBuffer(cfg.Width),
	}
}

// WriteByte encodes and buffers a single logical byte, flushing a full
// physical line whenever the buffer reaches Width.
func (w *SoftWrapWriter) WriteByte(b byte) error {
	w.line.MustWrite([]byte{w.encodeByte(b)})

	if w.line.Len() < w.width {
		return nil
	}

	return w.flushLine()
}

// Write implements io.Writer over WriteByte.
func (w *SoftWrapWriter) Write(p []byte) (int, error) {
	for i, b := range p {
		if err := w.WriteByte(b); err != nil {
			return i, err
		}
	}

	return len(p), nil
}

func (w *SoftWrapWriter) flushLine() error {
	if _, err := w.dst.Write(w.line.Bytes()); err != nil {
		return err
	}

	if _, err := io.WriteString(w.dst, w.newline); err != nil {
		return err
	}

	w.line.Reset()

	return nil
}

// Flush writes any partial final line (padded to Width with encoded
// spaces) followed by the line terminator. Call once after the last
// WriteByte of a matrix or header field that must end on a row boundary.
func (w *SoftWrapWriter) Flush() error {
	if w.line.Len() == 0 {
		return nil
	}

	for w.line.Len() < w.width {
		w.line.MustWrite([]byte{w.encodeByte(' ')})
	}

	return w.flushLine()
}
