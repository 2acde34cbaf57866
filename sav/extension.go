package sav

import "github.com/spssio/spssio/endian"

// RawExtension preserves an unrecognized rec_type 7 subrecord verbatim,
// so it round-trips byte-identically through a read/write cycle.
type RawExtension struct {
	Subtag int32
	Data   []byte
}

// MachineIntegerInfo is the typed rec_type 7 subtag 3 record: informational fields about the machine that wrote the
// file. This module does not depend on any of these beyond round-tripping
// them; endianness is taken from Header. The matrix codec always uses the
// fixed sysmiss constant of consts.go; a MachineFloatInfo read from a file
// is kept on File but does not change how cells are decoded.
type MachineIntegerInfo struct {
	Version          [3]int32
	MachineCode      int32
	FloatingPointRep int32
	CompressionCode  int32
	EndiannessCode   int32
	CharacterCode    int32
}

// MachineFloatInfo is the typed rec_type 7 subtag 4 record: the
// SYSMISS/HIGHEST/LOWEST constants as the writing machine encoded them.
// A reader should generally prefer the fixed defaults in consts.go, but a
// file that declares different values here is free to be honored by a
// caller that inspects this record explicitly.
type MachineFloatInfo struct {
	Sysmiss float64
	Highest float64
	Lowest  float64
}

// readExtensionRecord reads one rec_type 7 record body (subtag, element
// size, element count, then that many bytes), and classifies it.
func readExtensionRecord(r *recordReader) (subtag int32, integerInfo *MachineIntegerInfo, floatInfo *MachineFloatInfo, raw *RawExtension, err error) {
	subtag, err = r.int32()
	if err != nil {
		return 0, nil, nil, nil, err
	}

	elemSize, err := r.int32()
	if err != nil {
		return 0, nil, nil, nil, err
	}

	elemCount, err := r.int32()
	if err != nil {
		return 0, nil, nil, nil, err
	}

	data, err := r.bytes(int(elemSize) * int(elemCount))
	if err != nil {
		return 0, nil, nil, nil, err
	}

	switch subtag {
	case subtagIntegerInfo:
		info := parseMachineIntegerInfo(data, r.engine)

		return subtag, &info, nil, nil, nil
	case subtagFloatInfo:
		info := parseMachineFloatInfo(data, r.engine)

		return subtag, nil, &info, nil, nil
	default:
		return subtag, nil, nil, &RawExtension{Subtag: subtag, Data: data}, nil
	}
}

// writeMachineIntegerInfo renders the rec_type 7 subtag 3 record for a
// file being written by this module: IEEE floating point, the engine's
// byte order, 7-bit ASCII text.
func writeMachineIntegerInfo(w *recordWriter, compressed bool) error {
	for _, v := range []int32{recTypeExtension, subtagIntegerInfo, 4, 8} {
		if err := w.int32(v); err != nil {
			return err
		}
	}

	endianness := int32(1) // big
	if endian.IsLittleEndian(w.engine) {
		endianness = 2
	}

	compression := int32(0)
	if compressed {
		compression = 1
	}

	fields := []int32{
		1, 0, 0, // version
		-1,          // machine code: unknown
		1,           // floating-point representation: IEEE
		compression, // compression code
		endianness,
		2, // character code: 7-bit ASCII
	}

	for _, v := range fields {
		if err := w.int32(v); err != nil {
			return err
		}
	}

	return nil
}

// writeMachineFloatInfo renders the rec_type 7 subtag 4 record carrying
// the SYSMISS/HIGHEST/LOWEST sentinels.
func writeMachineFloatInfo(w *recordWriter) error {
	for _, v := range []int32{recTypeExtension, subtagFloatInfo, 8, 3} {
		if err := w.int32(v); err != nil {
			return err
		}
	}

	for _, f := range []float64{Sysmiss(), Highest(), Lowest()} {
		if err := w.float64(f); err != nil {
			return err
		}
	}

	return nil
}

// writeRawExtension re-emits a preserved subrecord byte-identically.
func writeRawExtension(w *recordWriter, ext RawExtension) error {
	for _, v := range []int32{recTypeExtension, ext.Subtag, 1, int32(len(ext.Data))} {
		if err := w.int32(v); err != nil {
			return err
		}
	}

	return w.bytes(ext.Data)
}

func parseMachineIntegerInfo(data []byte, engine interface {
	Uint32([]byte) uint32
}) MachineIntegerInfo {
	var info MachineIntegerInfo

	read := func(i int) int32 {
		if (i+1)*4 > len(data) {
			return 0
		}

		return int32(engine.Uint32(data[i*4 : (i+1)*4]))
	}

	info.Version = [3]int32{read(0), read(1), read(2)}
	info.MachineCode = read(3)
	info.FloatingPointRep = read(4)
	info.CompressionCode = read(5)
	info.EndiannessCode = read(6)
	info.CharacterCode = read(7)

	return info
}

func parseMachineFloatInfo(data []byte, engine interface {
	Uint64([]byte) uint64
}) MachineFloatInfo {
	var info MachineFloatInfo

	read := func(i int) float64 {
		if (i+1)*8 > len(data) {
			return 0
		}

		return float64FromBits(engine.Uint64(data[i*8 : (i+1)*8]))
	}

	info.Sysmiss = read(0)
	info.Highest = read(1)
	info.Lowest = read(2)

	return info
}
