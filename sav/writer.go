package sav

import (
	"io"

	"github.com/spssio/spssio/charset"
	"github.com/spssio/spssio/endian"
	"github.com/spssio/spssio/internal/options"
)

// WriterConfig holds optional Writer construction settings.
type WriterConfig struct {
	// RawExtensions are preserved subrecords to re-emit verbatim, in
	// order, after the machine info records.
	RawExtensions []RawExtension
}

// WriterOption configures NewWriter.
type WriterOption = options.Option[*WriterConfig]

// WithRawExtensions re-emits preserved extension subrecords, typically
// the ones a File carried through from a read.
func WithRawExtensions(exts []RawExtension) WriterOption {
	return options.NoError[*WriterConfig](func(c *WriterConfig) {
		c.RawExtensions = exts
	})
}

// Writer emits a new SAV file: the fixed header, variable records
// (expanding long strings into -1 continuation placeholders), an
// optional value-label record per ValueLabelMap, the rec_type 999
// termination record, and the compressed or raw data matrix.
type Writer struct {
	dst     io.Writer
	header  *Header
	charset *charset.Table
	mw      *MatrixWriter
	dict    *VariableDictionary
}

// NewWriter writes the header and every metadata record derived from
// variables and valueLabels, then returns a Writer ready for Matrix().
// Variable names are upper-cased and truncated to 8 bytes via an
// internal VariableDictionary, which reports a collision if two
// distinct names would truncate onto the same slot.
func NewWriter(w io.Writer, header *Header, variables []Variable, valueLabels []ValueLabelMap, opts ...WriterOption) (*Writer, error) {
	cfg := &WriterConfig{}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	if header.Engine == nil {
		header.Engine = defaultEngine()
	}

	dict := NewVariableDictionary()

	expanded := make([]Variable, 0, len(variables))
	// nameIndex maps a (truncated) variable name to its 1-based position
	// in expanded -- the full on-disk record list including -1
	// continuation placeholders, which is what SAV's value-label
	// variable-index record indexes against.
	nameIndex := make(map[string]int32)

	for _, v := range variables {
		short, err := dict.Register(v.Name)
		if err != nil {
			return nil, err
		}

		v.Name = short
		expanded = append(expanded, v)
		nameIndex[short] = int32(len(expanded))

		if v.Width > 0 {
			slabs := (v.Width + 7) / 8
			for i := 1; i < slabs; i++ {
				expanded = append(expanded, Variable{Width: -1})
			}
		}
	}

	header.CaseElements = int32(len(expanded))

	if err := header.Write(w); err != nil {
		return nil, err
	}

	rw := newRecordWriter(w, header.Engine)

	for _, v := range expanded {
		if err := writeVariableRecord(rw, v); err != nil {
			return nil, err
		}
	}

	for _, vlm := range valueLabels {
		renamed := vlm
		renamed.Variables = make([]string, len(vlm.Variables))

		for i, name := range vlm.Variables {
			short := truncateName(name)
			if _, ok := nameIndex[short]; ok {
				renamed.Variables[i] = short
			}
		}

		if err := writeValueLabelRecord(rw, renamed, nameIndex); err != nil {
			return nil, err
		}
	}

	if err := writeMachineIntegerInfo(rw, header.Compressed); err != nil {
		return nil, err
	}

	if err := writeMachineFloatInfo(rw); err != nil {
		return nil, err
	}

	for _, ext := range cfg.RawExtensions {
		if err := writeRawExtension(rw, ext); err != nil {
			return nil, err
		}
	}

	if err := rw.int32(recTypeTermination); err != nil {
		return nil, err
	}

	if err := rw.int32(0); err != nil {
		return nil, err
	}

	var sink slabSink
	if header.Compressed {
		sink = newCompressedSlabSink(w, header.Engine, header.CompressionBias)
	} else {
		sink = &rawSlabSink{dst: w}
	}

	slabWidths := make([]int, 0, len(expanded))
	for _, v := range expanded {
		slabWidths = append(slabWidths, v.Width)
	}

	wr := &Writer{
		dst:     w,
		header:  header,
		charset: charset.Identity(),
		dict:    dict,
		mw:      newMatrixWriter(sink, header.Engine, charset.Identity(), slabWidths),
	}

	return wr, nil
}

// Matrix returns the MatrixWriter ready to receive cell data in
// row-major, column-ascending order.
func (w *Writer) Matrix() *MatrixWriter {
	return w.mw
}

// Close terminates the data matrix (control byte 252 for compressed
// output; a no-op for raw output).
func (w *Writer) Close() error {
	return w.mw.End()
}

func defaultEngine() endian.EndianEngine {
	return endian.GetLittleEndianEngine()
}
