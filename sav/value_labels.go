package sav

import (
	"strconv"

	"github.com/spssio/spssio/errs"
)

// ValueLabelMap is a SAV value-label map: labels
// keyed by value, applying to an ordered set of variables that must be
// uniformly numeric or uniformly string.
type ValueLabelMap struct {
	Numeric   bool
	Variables []string
	Labels    map[string]string // key is strconv.FormatFloat(value) or the trimmed string value
}

// readValueLabelRecord reads a rec_type 3 value-label record followed
// immediately by its rec_type 4 variable-index record, and resolves the
// indices against variables (already-read, in file order including
// continuation placeholders) to decide Numeric and populate Variables.
func readValueLabelRecord(r *recordReader, variables []Variable) (ValueLabelMap, error) {
	count, err := r.int32()
	if err != nil {
		return ValueLabelMap{}, err
	}

	type pair struct {
		raw   [8]byte
		label string
	}

	pairs := make([]pair, 0, count)

	for i := int32(0); i < count; i++ {
		var raw [8]byte

		b, err := r.bytes(8)
		if err != nil {
			return ValueLabelMap{}, err
		}

		copy(raw[:], b)

		labelLen, err := r.bytes(1)
		if err != nil {
			return ValueLabelMap{}, err
		}

		n := int(labelLen[0])

		labelBytes, err := r.bytes(n)
		if err != nil {
			return ValueLabelMap{}, err
		}

		// Label text plus its 1-byte length prefix is padded to a
		// multiple of 8 bytes, offset by the 1 length byte already
		// consumed.
		consumed := 1 + n
		pad := (8 - consumed%8) % 8
		if pad > 0 {
			if _, err := r.bytes(pad); err != nil {
				return ValueLabelMap{}, err
			}
		}

		pairs = append(pairs, pair{raw: raw, label: string(labelBytes)})
	}

	tag, err := r.int32()
	if err != nil {
		return ValueLabelMap{}, err
	}

	if tag != recTypeVarIndex {
		return ValueLabelMap{}, errs.ErrRejected
	}

	varCount, err := r.int32()
	if err != nil {
		return ValueLabelMap{}, err
	}

	indices := make([]int32, 0, varCount)
	for i := int32(0); i < varCount; i++ {
		idx, err := r.int32()
		if err != nil {
			return ValueLabelMap{}, err
		}

		indices = append(indices, idx)
	}

	vlm := ValueLabelMap{Labels: map[string]string{}}
	vlm.Numeric = true

	for _, idx := range indices {
		pos := int(idx) - 1
		if pos >= 0 && pos < len(variables) {
			v := variables[pos]
			vlm.Variables = append(vlm.Variables, v.Name)

			if !v.IsNumeric() {
				vlm.Numeric = false
			}
		}
	}

	for _, p := range pairs {
		var key string
		if vlm.Numeric {
			key = strconv.FormatFloat(float64FromBits(r.engine.Uint64(p.raw[:])), 'g', -1, 64)
		} else {
			key = trimFixed(p.raw[:])
		}

		vlm.Labels[key] = p.label
	}

	return vlm, nil
}

// writeValueLabelRecord renders vlm as a rec_type 3 record immediately
// followed by its rec_type 4 variable-index record. index maps a
// variable name to its 1-based position in the full on-disk variable
// record list, counting -1 continuation records.
func writeValueLabelRecord(w *recordWriter, vlm ValueLabelMap, index map[string]int32) error {
	if err := w.int32(recTypeValueLabel); err != nil {
		return err
	}

	if err := w.int32(int32(len(vlm.Labels))); err != nil {
		return err
	}

	for key, label := range vlm.Labels {
		var raw [8]byte

		if vlm.Numeric {
			f, _ := strconv.ParseFloat(key, 64)
			w.engine.PutUint64(raw[:], bitsFromFloat64(f))
		} else {
			putFixed(raw[:], key)
		}

		if err := w.bytes(raw[:]); err != nil {
			return err
		}

		n := len(label)
		if n > 255 {
			n = 255
		}

		if err := w.bytes([]byte{byte(n)}); err != nil {
			return err
		}

		if err := w.bytes([]byte(label[:n])); err != nil {
			return err
		}

		consumed := 1 + n
		pad := (8 - consumed%8) % 8
		if pad > 0 {
			if err := w.bytes(make([]byte, pad)); err != nil {
				return err
			}
		}
	}

	if err := w.int32(recTypeVarIndex); err != nil {
		return err
	}

	if err := w.int32(int32(len(vlm.Variables))); err != nil {
		return err
	}

	for _, name := range vlm.Variables {
		if err := w.int32(index[name]); err != nil {
			return err
		}
	}

	return nil
}
