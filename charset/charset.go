// Package charset implements the POR 256-byte charset translation table
// and the soft-wrap byte layer every POR read and write is mediated
// through.
package charset

// TableSize is the fixed size of a POR charset translation table.
const TableSize = 256

// Table is an immutable 256-entry byte translation table, as stored
// verbatim in a POR header: byte i of the table is the source-machine
// byte that represents canonical slot i.
type Table struct {
	encode [TableSize]byte // canonical slot -> source byte
	decode [TableSize]byte // source byte -> canonical slot
	mapped [TableSize]bool // whether a source byte has an inverse
}

// NewTable builds a Table from the raw 256-byte header region, inverting
// it once so every later decode is an O(1) lookup.
func NewTable(raw [TableSize]byte) *Table {
	t := &Table{encode: raw}

	// Invert: decode[source] = slot, for the first slot that claims a
	// given source byte. A later slot claiming the same source byte
	// leaves the table's existing entry as the inverse, matching "the
	// decoding table built from the header is the inverse of the
	// encoding table" for the well-formed case where the header encodes
	// a bijection; degenerate headers simply keep the first claim.
	for slot := 0; slot < TableSize; slot++ {
		src := raw[slot]
		if !t.mapped[src] {
			t.decode[src] = byte(slot)
			t.mapped[src] = true
		}
	}

	return t
}

// Encode returns the source-machine byte for canonical slot b.
func (t *Table) Encode(slot byte) byte {
	return t.encode[slot]
}

// Decode returns the canonical slot for source-machine byte b, and
// whether b had an inverse mapping at all. An unmapped byte is preserved
// verbatim by the caller.
func (t *Table) Decode(b byte) (byte, bool) {
	if t.mapped[b] {
		return t.decode[b], true
	}

	return b, false
}

// Raw returns the original 256-byte encode table, suitable for writing
// back into a POR header verbatim.
func (t *Table) Raw() [TableSize]byte {
	return t.encode
}

// Identity returns the trivial Table where every byte maps to itself,
// useful for synthesizing a new POR file from scratch.
func Identity() *Table {
	var raw [TableSize]byte
	for i := range raw {
		raw[i] = byte(i)
	}

	return NewTable(raw)
}
