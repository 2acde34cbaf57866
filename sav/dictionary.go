package sav

import (
	"strings"

	"github.com/spssio/spssio/internal/collision"
	"github.com/spssio/spssio/internal/hash"
)

// VariableDictionary assigns SAV's 8-byte, uppercase variable-name slots
// to arbitrary-length source names, detecting and reporting when two
// distinct source names would truncate onto the same slot. The slot
// bookkeeping is first-writer-wins (internal/collision); the "hash" here
// is the literal 8-byte truncation, and internal/hash.ID is kept
// alongside each entry as a stable identifier for the untruncated name,
// for callers that want to key a side-table by it without storing the
// full string.
type VariableDictionary struct {
	tracker *collision.Tracker
	entries []DictionaryEntry
}

// DictionaryEntry records one registered variable: its truncated on-disk
// name, the untruncated source name, and a stable hash of that source
// name.
type DictionaryEntry struct {
	ShortName string
	LongName  string
	LongNameID uint64
}

// NewVariableDictionary returns an empty VariableDictionary.
func NewVariableDictionary() *VariableDictionary {
	return &VariableDictionary{tracker: collision.NewTracker()}
}

// Register truncates name to SAV's 8-byte, uppercase slot convention and
// records the mapping. It returns errs.ErrNameCollision (via the
// underlying Tracker) if a different source name already claimed the
// same slot.
func (d *VariableDictionary) Register(name string) (string, error) {
	short := truncateName(name)

	if err := d.tracker.Track(short, name); err != nil {
		return short, err
	}

	d.entries = append(d.entries, DictionaryEntry{
		ShortName:  short,
		LongName:   name,
		LongNameID: hash.ID(name),
	})

	return short, nil
}

// Entries returns every registered entry in registration order.
func (d *VariableDictionary) Entries() []DictionaryEntry {
	return d.entries
}

// HasCollision reports whether any Register call detected a truncation
// collision.
func (d *VariableDictionary) HasCollision() bool {
	return d.tracker.HasCollision()
}

// truncateName upper-cases and truncates name to SAV's 8-byte variable
// name slot.
func truncateName(name string) string {
	name = strings.ToUpper(name)
	if len(name) > 8 {
		name = name[:8]
	}

	return name
}
