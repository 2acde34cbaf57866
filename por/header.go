// Package por implements the POR (Portable file) format: header,
// variable, missing-value and value-label records, and the cell-matrix
// codec built on numsys, numfmt, charset and matrix.
package por

import (
	"github.com/spssio/spssio/charset"
	"github.com/spssio/spssio/errs"
)

// Signature is the fixed 8-byte POR format signature, present after
// charset decoding.
const Signature = "SPSSPORT"

// DefaultPrecision is the trigesimal precision assumed when tag `5`,
// the precision tag left undocumented by PSPP, is absent from the file.
const DefaultPrecision = 11

// Header is the fixed-shape record at the start of a POR file: splash
// text, the 256-byte charset table, the format signature/version, and
// the creation date/time.
type Header struct {
	Splash       [5]string // 5 x 40 bytes, semantically ignored
	Charset      *charset.Table
	Version      byte // 'A'
	CreationDate string
	CreationTime string
	Precision    int // tag `5`; DefaultPrecision when absent
}

// NewHeader returns a Header with an identity charset table and the
// default precision, suitable as a starting point for writing a new file.
func NewHeader() *Header {
	return &Header{
		Charset:   charset.Identity(),
		Version:   'A',
		Precision: DefaultPrecision,
	}
}

// readPreamble decodes the splash text, charset table, signature and
// version from the front of a soft-wrapped POR stream. The splash and
// the table region itself are raw source bytes; decoding starts at the
// signature, once the table exists to decode with.
func readPreamble(src *charset.SoftWrapReader) (*Header, error) {
	const (
		splashLen = 40
		splashes  = 5
	)

	h := &Header{}

	var splash [splashes * splashLen]byte
	if err := fillFrom(src, splash[:]); err != nil {
		return nil, errs.ErrInvalidHeader
	}

	for i := 0; i < splashes; i++ {
		h.Splash[i] = string(splash[i*splashLen : (i+1)*splashLen])
	}

	var table [charset.TableSize]byte
	if err := fillFrom(src, table[:]); err != nil {
		return nil, errs.ErrInvalidHeader
	}

	h.Charset = charset.NewTable(table)
	src.SetTable(h.Charset)

	var sig [len(Signature) + 1]byte
	if err := fillFrom(src, sig[:]); err != nil {
		return nil, errs.ErrInvalidHeader
	}

	if string(sig[:len(Signature)]) != Signature {
		return nil, errs.ErrInvalidHeader
	}

	h.Version = sig[len(Signature)]
	h.Precision = DefaultPrecision

	return h, nil
}

// fillFrom reads exactly len(buf) logical bytes.
func fillFrom(src *charset.SoftWrapReader, buf []byte) error {
	for i := range buf {
		b, err := src.ReadByte()
		if err != nil {
			return err
		}

		buf[i] = b
	}

	return nil
}
