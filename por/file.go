package por

import (
	"io"

	"github.com/spssio/spssio/charset"
	"github.com/spssio/spssio/errs"
	"github.com/spssio/spssio/internal/options"
	"github.com/spssio/spssio/numfmt"
	"github.com/spssio/spssio/numsys"
)

// Warning is a non-fatal condition noticed while reading, currently only
// a source byte with no inverse in the charset translation table. The
// byte is preserved verbatim in the decoded stream.
type Warning struct {
	UnmappedByte byte
}

// ReaderConfig holds Open's optional settings.
type ReaderConfig struct {
	OnWarning func(Warning)
}

// ReaderOption configures Open.
type ReaderOption = options.Option[*ReaderConfig]

// WithWarningHandler installs a callback for non-fatal read conditions.
// Without one, warnings are dropped.
func WithWarningHandler(fn func(Warning)) ReaderOption {
	return options.NoError[*ReaderConfig](func(c *ReaderConfig) {
		c.OnWarning = fn
	})
}

// ValueLabelMap is a POR value-label map: labels keyed by value,
// applying to an ordered set of variables that must be uniformly numeric
// or uniformly string.
type ValueLabelMap struct {
	Numeric   bool
	Variables []string
	Labels    map[string]string // key is the base-30 text of a numeric value, or the literal string value
}

// File is the top-level POR aggregate: it owns every record except the
// data matrix, which is exposed as a streaming matrix.Source.
type File struct {
	Header      *Header
	Software    string
	Author      string
	Title       string
	Variables   []Variable
	WeightVar   string
	ValueLabels []ValueLabelMap
	Documents   []string

	src *charset.SoftWrapReader
	ns  *numsys.NumberSystem
}

// Metadata tag bytes, in file order.
const (
	tagSoftware      = '1'
	tagAuthor        = '2'
	tagTitle         = '3'
	tagVariableCount = '4'
	tagPrecision     = '5'
	tagWeight        = '6'
	tagVariable      = '7'
	tagMissingDisc   = '8'
	tagMissingLow    = '9'
	tagMissingHigh   = 'A'
	tagMissingRange  = 'B'
	tagVarLabel      = 'C'
	tagValueLabels   = 'D'
	tagDocuments     = 'E'
	tagDataMatrix    = 'F'
)

// Open reads the fixed preamble and every metadata tag record from r,
// stopping once the data-matrix tag `F` is reached. The returned File's
// Matrix method then streams the cell data lazily.
func Open(r io.Reader, opts ...ReaderOption) (*File, error) {
	cfg := &ReaderConfig{}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	var srcOpts []charset.ReaderOption
	if cfg.OnWarning != nil {
		onWarning := cfg.OnWarning
		srcOpts = append(srcOpts, charset.WithUnmappedHandler(func(b byte) {
			onWarning(Warning{UnmappedByte: b})
		}))
	}

	// The soft wrap applies from the first byte of the file, but charset
	// decoding only begins once the table has been read out of the
	// preamble that defines it.
	src := charset.NewSoftWrapReader(r, nil, srcOpts...)

	header, err := readPreamble(src)
	if err != nil {
		return nil, err
	}

	f := &File{Header: header, src: src, ns: numsys.Default30()}

	f.Header.CreationDate, err = f.readString()
	if err != nil {
		return nil, err
	}

	f.Header.CreationTime, err = f.readString()
	if err != nil {
		return nil, err
	}

	if err := f.readTags(); err != nil {
		return nil, err
	}

	return f, nil
}

// readString reads a length-prefixed string: a base-30 unsigned length
// token terminated by '/', then that many raw decoded bytes. This is the
// same convention matrix string cells use.
func (f *File) readString() (string, error) {
	lenTok, err := f.readTokenDirect()
	if err != nil {
		return "", err
	}

	res, err := numfmt.Parse(lenTok, f.ns)
	if err != nil {
		return "", err
	}

	n := int(res.Value)
	buf := make([]byte, n)

	for i := 0; i < n; i++ {
		b, err := f.src.ReadByte()
		if err != nil {
			return "", err
		}

		buf[i] = b
	}

	return string(buf), nil
}

func (f *File) readTokenDirect() (string, error) {
	var buf []byte

	for {
		b, err := f.src.ReadByte()
		if err != nil {
			return "", err
		}

		if b == cellDelimiter {
			return string(buf), nil
		}

		buf = append(buf, b)
	}
}

func (f *File) readNumber() (float64, error) {
	tok, err := f.readTokenDirect()
	if err != nil {
		return 0, err
	}

	res, err := numfmt.Parse(tok, f.ns)
	if err != nil {
		return 0, err
	}

	return res.Value, nil
}

// readTags walks metadata tag records until the data-matrix tag is
// reached, leaving the underlying reader positioned at the first cell of
// the matrix.
func (f *File) readTags() error {
	var pendingMissing []MissingValue

	for {
		tagByte, err := f.src.ReadByte()
		if err != nil {
			return err
		}

		switch tagByte {
		case tagSoftware:
			f.Software, err = f.readString()
		case tagAuthor:
			f.Author, err = f.readString()
		case tagTitle:
			f.Title, err = f.readString()
		case tagVariableCount:
			_, err = f.readNumber() // count informational; Variables grows as tag 7 records arrive
		case tagPrecision:
			var p float64
			p, err = f.readNumber()
			if err == nil {
				f.Header.Precision = int(p)
			}
		case tagWeight:
			f.WeightVar, err = f.readString()
		case tagVariable:
			err = f.readVariable()
		case tagMissingDisc:
			var v float64
			v, err = f.readNumber()
			if err == nil {
				pendingMissing = append(pendingMissing, MissingValue{Kind: MissingDiscrete, Lo: v})
				f.attachMissing(pendingMissing)
				pendingMissing = nil
			}
		case tagMissingLow:
			var v float64
			v, err = f.readNumber()
			if err == nil {
				pendingMissing = append(pendingMissing, MissingValue{Kind: MissingOpenLow, Hi: v})
				f.attachMissing(pendingMissing)
				pendingMissing = nil
			}
		case tagMissingHigh:
			var v float64
			v, err = f.readNumber()
			if err == nil {
				pendingMissing = append(pendingMissing, MissingValue{Kind: MissingOpenHigh, Lo: v})
				f.attachMissing(pendingMissing)
				pendingMissing = nil
			}
		case tagMissingRange:
			var lo, hi float64
			lo, err = f.readNumber()
			if err == nil {
				hi, err = f.readNumber()
			}
			if err == nil {
				pendingMissing = append(pendingMissing, MissingValue{Kind: MissingClosedRange, Lo: lo, Hi: hi})
				f.attachMissing(pendingMissing)
				pendingMissing = nil
			}
		case tagVarLabel:
			var label string
			label, err = f.readString()
			if err == nil && len(f.Variables) > 0 {
				f.Variables[len(f.Variables)-1].Label = label
			}
		case tagValueLabels:
			err = f.readValueLabelMap()
		case tagDocuments:
			var doc string
			doc, err = f.readString()
			if err == nil {
				f.Documents = append(f.Documents, doc)
			}
		case tagDataMatrix:
			return nil
		default:
			return errs.ErrTagUnknown
		}

		if err != nil {
			return err
		}
	}
}

func (f *File) attachMissing(vals []MissingValue) {
	if len(f.Variables) == 0 {
		return
	}

	v := &f.Variables[len(f.Variables)-1]
	v.Missing = append(v.Missing, vals...)
}

func (f *File) readVariable() error {
	width, err := f.readNumber()
	if err != nil {
		return err
	}

	name, err := f.readString()
	if err != nil {
		return err
	}

	printFmt, err := f.readFormat()
	if err != nil {
		return err
	}

	writeFmt, err := f.readFormat()
	if err != nil {
		return err
	}

	f.Variables = append(f.Variables, Variable{
		Width:    int(width),
		Name:     name,
		PrintFmt: printFmt,
		WriteFmt: writeFmt,
	})

	return nil
}

func (f *File) readFormat() (Format, error) {
	typ, err := f.readNumber()
	if err != nil {
		return Format{}, err
	}

	width, err := f.readNumber()
	if err != nil {
		return Format{}, err
	}

	decimals, err := f.readNumber()
	if err != nil {
		return Format{}, err
	}

	return Format{Type: byte(int(typ)), Width: int(width), Decimals: int(decimals)}, nil
}

func (f *File) readValueLabelMap() error {
	count, err := f.readNumber()
	if err != nil {
		return err
	}

	vlm := ValueLabelMap{Labels: map[string]string{}}

	names := make([]string, 0, int(count))
	for i := 0; i < int(count); i++ {
		name, err := f.readString()
		if err != nil {
			return err
		}

		names = append(names, name)
	}

	vlm.Variables = names
	vlm.Numeric = f.variableIsNumeric(names)

	labelCount, err := f.readNumber()
	if err != nil {
		return err
	}

	for i := 0; i < int(labelCount); i++ {
		var key string

		if vlm.Numeric {
			tok, err := f.readTokenDirect()
			if err != nil {
				return err
			}

			key = tok
		} else {
			s, err := f.readString()
			if err != nil {
				return err
			}

			key = s
		}

		label, err := f.readString()
		if err != nil {
			return err
		}

		vlm.Labels[key] = label
	}

	f.ValueLabels = append(f.ValueLabels, vlm)

	return nil
}

func (f *File) variableIsNumeric(names []string) bool {
	for _, v := range f.Variables {
		for _, n := range names {
			if v.Name == n {
				return v.IsNumeric()
			}
		}
	}

	return true
}

// Widths returns the per-column width vector derived from Variables, for
// use with matrix.Source implementations.
func (f *File) Widths() []int {
	widths := make([]int, len(f.Variables))
	for i, v := range f.Variables {
		widths[i] = v.Width
	}

	return widths
}

// Matrix returns a matrix.Source streaming the remaining cell data. It
// must be called at most once, after the metadata has been fully read by
// Open.
func (f *File) Matrix() *MatrixReader {
	return newMatrixReader(f.src, f.Widths())
}
