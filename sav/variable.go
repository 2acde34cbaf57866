package sav

// Format is a byte-packed print/write format word. The packed int32
// layout (as specified by PSPP) is, from the high byte down: unused,
// type, width, decimals.
type Format struct {
	Type     byte
	Width    byte
	Decimals byte
}

// PackFormat encodes f as the int32 word SAV stores on disk.
func PackFormat(f Format) int32 {
	return int32(f.Type)<<16 | int32(f.Width)<<8 | int32(f.Decimals)
}

// UnpackFormat decodes a format word read from disk.
func UnpackFormat(word int32) Format {
	return Format{
		Type:     byte((word >> 16) & 0xFF),
		Width:    byte((word >> 8) & 0xFF),
		Decimals: byte(word & 0xFF),
	}
}

// Variable is a single SAV data-dictionary entry, one per 8-byte slab of
// the case record.
type Variable struct {
	Width        int // 0 numeric, 1..255 first slab of a string, -1 continuation
	Name         string
	Label        string
	PrintFormat  Format
	WriteFormat  Format
	MissingCount int // signed: negative indicates a range plus optional discrete
	Missing      []float64
}

// IsNumeric reports whether v is a numeric column.
func (v Variable) IsNumeric() bool { return v.Width == 0 }

// IsContinuation reports whether v is a placeholder slab continuing a
// preceding long string, rather than a real, independently addressable
// column.
func (v Variable) IsContinuation() bool { return v.Width == -1 }

// readVariableRecord reads one rec_type 2 variable record body (the
// rec_type tag itself has already been consumed by the caller).
func readVariableRecord(r *recordReader) (Variable, error) {
	width, err := r.int32()
	if err != nil {
		return Variable{}, err
	}

	hasLabel, err := r.int32()
	if err != nil {
		return Variable{}, err
	}

	missingCount, err := r.int32()
	if err != nil {
		return Variable{}, err
	}

	printWord, err := r.int32()
	if err != nil {
		return Variable{}, err
	}

	writeWord, err := r.int32()
	if err != nil {
		return Variable{}, err
	}

	nameBytes, err := r.bytes(8)
	if err != nil {
		return Variable{}, err
	}

	v := Variable{
		Width:        int(width),
		Name:         trimFixed(nameBytes),
		PrintFormat:  UnpackFormat(printWord),
		WriteFormat:  UnpackFormat(writeWord),
		MissingCount: int(missingCount),
	}

	if hasLabel != 0 {
		labelLen, err := r.int32()
		if err != nil {
			return Variable{}, err
		}

		labelBytes, err := r.bytes(int(labelLen))
		if err != nil {
			return Variable{}, err
		}

		if err := r.align4(int(labelLen)); err != nil {
			return Variable{}, err
		}

		v.Label = string(labelBytes)
	}

	absCount := v.MissingCount
	if absCount < 0 {
		absCount = -absCount
	}

	for i := 0; i < absCount; i++ {
		f, err := r.float64()
		if err != nil {
			return Variable{}, err
		}

		v.Missing = append(v.Missing, f)
	}

	return v, nil
}

// writeVariableRecord renders v as a rec_type 2 variable record, prefixed
// with the tag itself.
func writeVariableRecord(w *recordWriter, v Variable) error {
	if err := w.int32(recTypeVariable); err != nil {
		return err
	}

	if err := w.int32(int32(v.Width)); err != nil {
		return err
	}

	hasLabel := int32(0)
	if v.Label != "" {
		hasLabel = 1
	}

	if err := w.int32(hasLabel); err != nil {
		return err
	}

	if err := w.int32(int32(v.MissingCount)); err != nil {
		return err
	}

	if err := w.int32(PackFormat(v.PrintFormat)); err != nil {
		return err
	}

	if err := w.int32(PackFormat(v.WriteFormat)); err != nil {
		return err
	}

	nameBuf := make([]byte, 8)
	putFixed(nameBuf, v.Name)

	if err := w.bytes(nameBuf); err != nil {
		return err
	}

	if v.Label != "" {
		if err := w.int32(int32(len(v.Label))); err != nil {
			return err
		}

		if err := w.bytes([]byte(v.Label)); err != nil {
			return err
		}

		if err := w.pad4(len(v.Label)); err != nil {
			return err
		}
	}

	absCount := v.MissingCount
	if absCount < 0 {
		absCount = -absCount
	}

	for i := 0; i < absCount; i++ {
		val := 0.0
		if i < len(v.Missing) {
			val = v.Missing[i]
		}

		if err := w.float64(val); err != nil {
			return err
		}
	}

	return nil
}
