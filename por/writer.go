package por

import (
	"io"

	"github.com/spssio/spssio/charset"
	"github.com/spssio/spssio/numfmt"
	"github.com/spssio/spssio/numsys"
)

// Writer emits a new POR file: the fixed preamble, every metadata tag
// record populated on the source File (software, author, title, variable
// count, precision, weight, variable records with their missing-value and
// label tags, value-label maps, documents), and the data matrix,
// terminated by the 'Z' sentinel. Tag order follows PSPP's own writer.
type Writer struct {
	dst    *charset.SoftWrapWriter
	ns     *numsys.NumberSystem
	header *Header
	mw     *MatrixWriter
}

// NewWriter writes the fixed preamble and all metadata records of f,
// then returns a Writer ready for Matrix(). The File's matrix-side state
// is ignored; only its records are consulted.
func NewWriter(w io.Writer, f *File) (*Writer, error) {
	header := f.Header
	if header == nil {
		header = NewHeader()
	}

	if header.Charset == nil {
		header.Charset = charset.Identity()
	}

	if header.Precision < 1 {
		header.Precision = DefaultPrecision
	}

	// The preamble's splash and table regions are raw source bytes (the
	// signature and version are pre-encoded), so they pass through the
	// wrap layer before the encoding table is installed.
	sw := charset.NewSoftWrapWriter(w, nil)
	if _, err := sw.Write(fixedPreambleBytes(header)); err != nil {
		return nil, err
	}

	sw.SetTable(header.Charset)

	wr := &Writer{dst: sw, ns: numsys.Default30(), header: header}

	if err := wr.writeMetadata(f); err != nil {
		return nil, err
	}

	widths := make([]int, len(f.Variables))
	for i, v := range f.Variables {
		widths[i] = v.Width
	}

	wr.mw = newMatrixWriter(sw, widths, header.Precision)

	return wr, nil
}

func (w *Writer) writeMetadata(f *File) error {
	if err := w.writeString(w.header.CreationDate); err != nil {
		return err
	}

	if err := w.writeString(w.header.CreationTime); err != nil {
		return err
	}

	if err := w.writeOptionalString(tagSoftware, f.Software); err != nil {
		return err
	}

	if err := w.writeOptionalString(tagAuthor, f.Author); err != nil {
		return err
	}

	if err := w.writeOptionalString(tagTitle, f.Title); err != nil {
		return err
	}

	if err := w.writeTag(tagVariableCount); err != nil {
		return err
	}

	if err := w.writeNumber(float64(len(f.Variables))); err != nil {
		return err
	}

	if err := w.writeTag(tagPrecision); err != nil {
		return err
	}

	if err := w.writeNumber(float64(w.header.Precision)); err != nil {
		return err
	}

	if err := w.writeOptionalString(tagWeight, f.WeightVar); err != nil {
		return err
	}

	for _, v := range f.Variables {
		if err := w.writeVariable(v); err != nil {
			return err
		}
	}

	for _, vlm := range f.ValueLabels {
		if err := w.writeValueLabelMap(vlm); err != nil {
			return err
		}
	}

	for _, doc := range f.Documents {
		if err := w.writeTag(tagDocuments); err != nil {
			return err
		}

		if err := w.writeString(doc); err != nil {
			return err
		}
	}

	return w.writeTag(tagDataMatrix)
}

// fixedPreambleBytes renders the splash text, charset table, and the
// pre-encoded signature and version.
func fixedPreambleBytes(h *Header) []byte {
	out := make([]byte, 0, 5*40+charset.TableSize+len(Signature)+1)

	for i := 0; i < 5; i++ {
		line := make([]byte, 40)
		if i < len(h.Splash) {
			copy(line, h.Splash[i])
		}
		for j := range line {
			if line[j] == 0 {
				line[j] = ' '
			}
		}
		out = append(out, line...)
	}

	table := h.Charset.Raw()
	// The wrap layer reads a raw \r or \n as a line terminator, so a slot
	// holding one of those bytes is written as slot 0's byte instead; the
	// reader's inversion keeps slot 0's earlier claim on that byte.
	for i, b := range table {
		if b == '\r' || b == '\n' {
			table[i] = table[0]
		}
	}
	out = append(out, table[:]...)

	for _, ch := range []byte(Signature) {
		out = append(out, h.Charset.Encode(ch))
	}

	out = append(out, h.Charset.Encode(h.Version))

	return out
}

func (w *Writer) writeTag(tag byte) error {
	return w.dst.WriteByte(tag)
}

// writeOptionalString emits tag plus a length-prefixed string, or
// nothing when s is empty.
func (w *Writer) writeOptionalString(tag byte, s string) error {
	if s == "" {
		return nil
	}

	if err := w.writeTag(tag); err != nil {
		return err
	}

	return w.writeString(s)
}

func (w *Writer) writeString(s string) error {
	if err := w.writeNumber(float64(len(s))); err != nil {
		return err
	}

	for i := 0; i < len(s); i++ {
		if err := w.dst.WriteByte(s[i]); err != nil {
			return err
		}
	}

	return nil
}

// writeToken emits a pre-rendered base-30 token followed by the field
// delimiter.
func (w *Writer) writeToken(s string) error {
	for i := 0; i < len(s); i++ {
		if err := w.dst.WriteByte(s[i]); err != nil {
			return err
		}
	}

	return w.dst.WriteByte(cellDelimiter)
}

func (w *Writer) writeNumber(v float64) error {
	s, err := numfmt.Format(v, w.ns, w.header.Precision)
	if err != nil {
		return err
	}

	return w.writeToken(s)
}

func (w *Writer) writeVariable(v Variable) error {
	if err := w.writeTag(tagVariable); err != nil {
		return err
	}

	if err := w.writeNumber(float64(v.Width)); err != nil {
		return err
	}

	if err := w.writeString(v.Name); err != nil {
		return err
	}

	if err := w.writeFormat(v.PrintFmt); err != nil {
		return err
	}

	if err := w.writeFormat(v.WriteFmt); err != nil {
		return err
	}

	for _, mv := range v.Missing {
		if err := w.writeMissing(mv); err != nil {
			return err
		}
	}

	return w.writeOptionalString(tagVarLabel, v.Label)
}

func (w *Writer) writeMissing(mv MissingValue) error {
	switch mv.Kind {
	case MissingDiscrete:
		if err := w.writeTag(tagMissingDisc); err != nil {
			return err
		}

		return w.writeNumber(mv.Lo)
	case MissingOpenLow:
		if err := w.writeTag(tagMissingLow); err != nil {
			return err
		}

		return w.writeNumber(mv.Hi)
	case MissingOpenHigh:
		if err := w.writeTag(tagMissingHigh); err != nil {
			return err
		}

		return w.writeNumber(mv.Lo)
	default: // MissingClosedRange
		if err := w.writeTag(tagMissingRange); err != nil {
			return err
		}

		if err := w.writeNumber(mv.Lo); err != nil {
			return err
		}

		return w.writeNumber(mv.Hi)
	}
}

func (w *Writer) writeFormat(f Format) error {
	if err := w.writeNumber(float64(f.Type)); err != nil {
		return err
	}

	if err := w.writeNumber(float64(f.Width)); err != nil {
		return err
	}

	return w.writeNumber(float64(f.Decimals))
}

func (w *Writer) writeValueLabelMap(vlm ValueLabelMap) error {
	if err := w.writeTag(tagValueLabels); err != nil {
		return err
	}

	if err := w.writeNumber(float64(len(vlm.Variables))); err != nil {
		return err
	}

	for _, name := range vlm.Variables {
		if err := w.writeString(name); err != nil {
			return err
		}
	}

	if err := w.writeNumber(float64(len(vlm.Labels))); err != nil {
		return err
	}

	for key, label := range vlm.Labels {
		if vlm.Numeric {
			if err := w.writeToken(key); err != nil {
				return err
			}
		} else {
			if err := w.writeString(key); err != nil {
				return err
			}
		}

		if err := w.writeString(label); err != nil {
			return err
		}
	}

	return nil
}

// Matrix returns the MatrixWriter ready to receive cell data in
// row-major, column-ascending order.
func (w *Writer) Matrix() *MatrixWriter {
	return w.mw
}

// Close finalizes the data matrix with the 'Z' sentinel and flushes the
// final padded row.
func (w *Writer) Close() error {
	return w.mw.End()
}
