package sav

import (
	"io"

	"github.com/spssio/spssio/charset"
	"github.com/spssio/spssio/errs"
)

// File is the top-level SAV aggregate: it owns every record except the
// data matrix, which is exposed as a streaming matrix.Source.
type File struct {
	Header      *Header
	Variables   []Variable // includes -1 continuation placeholders, file order
	ValueLabels []ValueLabelMap
	Documents   []string

	IntegerInfo *MachineIntegerInfo
	FloatInfo   *MachineFloatInfo
	Extensions  []RawExtension

	// Charset is used to decode/encode string cells and labels; Identity
	// when the file declares no translation (the common case for SAV,
	// which -- unlike POR -- carries no embedded charset table).
	Charset *charset.Table

	src io.Reader
}

// Open reads the fixed header and every metadata record up to and
// including the rec_type 999 termination record, leaving the returned
// File's Matrix method to stream the remaining case data lazily.
func Open(r io.Reader) (*File, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	f := &File{Header: header, src: r, Charset: charset.Identity()}

	rr := newRecordReader(r, header.Engine)

	if err := f.readRecords(rr); err != nil {
		return nil, err
	}

	return f, nil
}

func (f *File) readRecords(rr *recordReader) error {
	for {
		tag, err := rr.int32()
		if err != nil {
			return err
		}

		switch tag {
		case recTypeVariable:
			v, err := readVariableRecord(rr)
			if err != nil {
				return err
			}

			f.Variables = append(f.Variables, v)
		case recTypeValueLabel:
			vlm, err := readValueLabelRecord(rr, f.Variables)
			if err != nil {
				return err
			}

			f.ValueLabels = append(f.ValueLabels, vlm)
		case recTypeDocument:
			n, err := rr.int32()
			if err != nil {
				return err
			}

			for i := int32(0); i < n; i++ {
				line, err := rr.bytes(80)
				if err != nil {
					return err
				}

				f.Documents = append(f.Documents, trimFixed(line))
			}
		case recTypeExtension:
			subtag, integerInfo, floatInfo, raw, err := readExtensionRecord(rr)
			if err != nil {
				return err
			}

			switch {
			case integerInfo != nil:
				f.IntegerInfo = integerInfo
			case floatInfo != nil:
				f.FloatInfo = floatInfo
			case raw != nil:
				f.Extensions = append(f.Extensions, *raw)
			default:
				_ = subtag
			}
		case recTypeTermination:
			if _, err := rr.int32(); err != nil { // 4-byte filler
				return err
			}

			return nil
		default:
			return errs.ErrRejected
		}
	}
}

// logicalWidths returns the width vector for real (non-continuation)
// columns, 0 = numeric, >0 = string byte width, in the same form POR's
// Widths() uses.
func (f *File) logicalWidths() []int {
	widths := make([]int, 0, len(f.Variables))
	for _, v := range f.Variables {
		if !v.IsContinuation() {
			widths = append(widths, v.Width)
		}
	}

	return widths
}

// slabWidths returns the on-disk per-8-byte-slab width vector, including
// -1 continuation entries, matching the case record's physical layout.
func (f *File) slabWidths() []int {
	widths := make([]int, len(f.Variables))
	for i, v := range f.Variables {
		widths[i] = v.Width
	}

	return widths
}

// Widths returns the logical per-column width vector.
func (f *File) Widths() []int {
	return f.logicalWidths()
}

// Matrix returns a matrix.Source streaming the case data, dispatching to
// the compressed or raw slab source per the header's Compressed flag. It
// must be called at most once, after Open has consumed every metadata
// record.
func (f *File) Matrix() *MatrixReader {
	var src slabSource
	if f.Header.Compressed {
		src = newCompressedSlabSource(f.src, f.Header.Engine, f.Header.CompressionBias)
	} else {
		src = &rawSlabSource{src: f.src}
	}

	return newMatrixReader(src, f.Header.Engine, f.Charset, f.slabWidths())
}
