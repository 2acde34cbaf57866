package compress

import (
	"fmt"
	"math"

	"github.com/spssio/spssio/endian"
)

// savSlabSize is the fixed 8-byte quantum of a SAV case stream.
const savSlabSize = 8

// savOpcode values, one per control-byte position.
const (
	savOpNop      = 0
	savOpEOF      = 252
	savOpVerbatim = 253
	savOpSpaces   = 254
	savOpSysmiss  = 255
)

// SAVRunLengthCodec applies SAV's 1-in-9 control-byte scheme to a whole
// case-data buffer: nine 8-byte slabs pack into one segment of a 1-byte
// control slab plus 0..8 payload slabs. It exists for callers that want
// the compression step without the column-typed matrix parse on top,
// e.g. recompressing a case stream at a different bias; the sav package's
// own streaming reader and writer implement the same scheme slab by slab.
//
// Without a column-width vector, a slab is classified by value alone:
// the sysmiss bit pattern, then a bias-shifted integer in [1, 251], then
// an all-space run, then verbatim. Every classification is required to
// reproduce the slab bit-identically on decompression, so Decompress
// (Compress (data)) == data for any slab-aligned input.
type SAVRunLengthCodec struct {
	engine      endian.EndianEngine
	bias        float64
	sysmissBits uint64
}

var _ Codec = (*SAVRunLengthCodec)(nil)

// NewSAVRunLengthCodec returns a codec under the given byte order,
// compression bias, and system-missing double.
func NewSAVRunLengthCodec(engine endian.EndianEngine, bias, sysmiss float64) *SAVRunLengthCodec {
	return &SAVRunLengthCodec{
		engine:      engine,
		bias:        bias,
		sysmissBits: math.Float64bits(sysmiss),
	}
}

// Compress packs data, which must be a multiple of 8 bytes long, into
// control-byte segments terminated by an EOF opcode.
func (c *SAVRunLengthCodec) Compress(data []byte) ([]byte, error) {
	if len(data)%savSlabSize != 0 {
		return nil, fmt.Errorf("sav rle: input length %d is not slab-aligned", len(data))
	}

	out := make([]byte, 0, len(data)/2)

	var control [savSlabSize]byte
	var payloads []byte
	n := 0

	flush := func() {
		for i := n; i < savSlabSize; i++ {
			control[i] = savOpNop
		}

		out = append(out, control[:]...)
		out = append(out, payloads...)
		payloads = payloads[:0]
		n = 0
	}

	for off := 0; off < len(data); off += savSlabSize {
		sl := data[off : off+savSlabSize]

		op, verbatim := c.classify(sl)
		control[n] = op
		n++

		if verbatim {
			payloads = append(payloads, sl...)
		}

		if n == savSlabSize {
			flush()
		}
	}

	control[n] = savOpEOF
	n++
	flush()

	return out, nil
}

// classify picks the control byte for one slab, falling back to verbatim
// whenever a compact opcode would not reproduce the slab bit-identically.
func (c *SAVRunLengthCodec) classify(sl []byte) (op byte, verbatim bool) {
	bits := c.engine.Uint64(sl)

	if bits == c.sysmissBits {
		return savOpSysmiss, false
	}

	value := math.Float64frombits(bits)
	shifted := value + c.bias
	if shifted >= 1 && shifted <= 251 && shifted == math.Trunc(shifted) {
		code := byte(shifted)
		if math.Float64bits(float64(code)-c.bias) == bits {
			return code, false
		}
	}

	allSpace := true
	for _, b := range sl {
		if b != ' ' {
			allSpace = false

			break
		}
	}

	if allSpace {
		return savOpSpaces, false
	}

	return savOpVerbatim, true
}

// Decompress expands segments until the EOF opcode, returning the
// original slab stream.
func (c *SAVRunLengthCodec) Decompress(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)*2)

	pos := 0
	for {
		if pos+savSlabSize > len(data) {
			return nil, fmt.Errorf("sav rle: truncated control slab at offset %d", pos)
		}

		control := data[pos : pos+savSlabSize]
		pos += savSlabSize

		for _, op := range control {
			switch {
			case op == savOpNop:
				continue
			case op == savOpEOF:
				return out, nil
			case op == savOpVerbatim:
				if pos+savSlabSize > len(data) {
					return nil, fmt.Errorf("sav rle: truncated payload slab at offset %d", pos)
				}

				out = append(out, data[pos:pos+savSlabSize]...)
				pos += savSlabSize
			case op == savOpSpaces:
				for i := 0; i < savSlabSize; i++ {
					out = append(out, ' ')
				}
			case op == savOpSysmiss:
				var sl [savSlabSize]byte
				c.engine.PutUint64(sl[:], c.sysmissBits)
				out = append(out, sl[:]...)
			default: // 1..251
				var sl [savSlabSize]byte
				c.engine.PutUint64(sl[:], math.Float64bits(float64(op)-c.bias))
				out = append(out, sl[:]...)
			}
		}
	}
}
