package sav

import (
	"io"
	"strings"

	"github.com/spssio/spssio/endian"
	"github.com/spssio/spssio/errs"
)

// Header is the fixed-shape record at the start of a SAV file.
type Header struct {
	Product         string // 60-byte software identification
	Layout          int32  // normally 2; discriminates integer endianness
	CaseElements    int32  // case-element count (nominal 8-byte units per case)
	Compressed      bool
	WeightIndex     int32 // 1-based weight-variable index, or 0
	CaseCount       int32 // or -1 when unknown
	CompressionBias float64
	CreationDate    string // 9 bytes
	CreationTime    string // 8 bytes
	Label           string // 64 bytes

	Engine endian.EndianEngine
}

const headerSize = 4 + 60 + 4 + 4 + 4 + 4 + 4 + 8 + 9 + 8 + 64 + 3

// NewHeader returns a Header with little-endian layout and the nominal
// compression bias, suitable as a starting point for writing a new file.
func NewHeader() *Header {
	return &Header{
		Product:         "@(#) SPSS DATA FILE",
		Layout:          2,
		CompressionBias: DefaultBias,
		Engine:          endian.GetLittleEndianEngine(),
	}
}

// ReadHeader reads and validates the fixed 176-byte SAV header from r.
// The integer endianness is detected from the Layout field, trying both
// byte orders and keeping whichever yields the expected value 2 or 3
//.
func ReadHeader(r io.Reader) (*Header, error) {
	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errs.ErrInvalidSignature
	}

	if string(raw[0:4]) != Signature {
		return nil, errs.ErrInvalidSignature
	}

	engine, layout := detectEndian(raw[64:68])

	h := &Header{
		Product:         trimFixed(raw[4:64]),
		Layout:          layout,
		CaseElements:    int32(engine.Uint32(raw[68:72])),
		Compressed:      engine.Uint32(raw[72:76]) != 0,
		WeightIndex:     int32(engine.Uint32(raw[76:80])),
		CaseCount:       int32(engine.Uint32(raw[80:84])),
		CompressionBias: float64FromBits(engine.Uint64(raw[84:92])),
		CreationDate:    trimFixed(raw[92:101]),
		CreationTime:    trimFixed(raw[101:109]),
		Label:           trimFixed(raw[109:173]),
		Engine:          engine,
	}

	return h, nil
}

// detectEndian tries both byte orders over the 4-byte layout field,
// keeping whichever produces the documented value 2 or 3.
func detectEndian(raw4 []byte) (endian.EndianEngine, int32) {
	le := endian.GetLittleEndianEngine()
	v := int32(le.Uint32(raw4))
	if v == 2 || v == 3 {
		return le, v
	}

	be := endian.GetBigEndianEngine()
	v = int32(be.Uint32(raw4))

	return be, v
}

// Write renders h as the fixed 176-byte SAV header.
func (h *Header) Write(w io.Writer) error {
	buf := make([]byte, headerSize)

	copy(buf[0:4], Signature)
	putFixed(buf[4:64], h.Product)
	h.Engine.PutUint32(buf[64:68], uint32(h.Layout))
	h.Engine.PutUint32(buf[68:72], uint32(h.CaseElements))

	compressed := uint32(0)
	if h.Compressed {
		compressed = 1
	}
	h.Engine.PutUint32(buf[72:76], compressed)
	h.Engine.PutUint32(buf[76:80], uint32(h.WeightIndex))
	h.Engine.PutUint32(buf[80:84], uint32(h.CaseCount))
	h.Engine.PutUint64(buf[84:92], bitsFromFloat64(h.CompressionBias))
	putFixed(buf[92:101], h.CreationDate)
	putFixed(buf[101:109], h.CreationTime)
	putFixed(buf[109:173], h.Label)

	_, err := w.Write(buf)

	return err
}

func trimFixed(b []byte) string {
	return strings.TrimRight(string(b), " \x00")
}

func putFixed(dst []byte, s string) {
	for i := range dst {
		dst[i] = ' '
	}

	copy(dst, s)
}
