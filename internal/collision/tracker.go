// Package collision tracks first-writer-wins slot assignment, detecting
// when two distinct source keys would otherwise collide onto the same
// slot. Used by sav.VariableDictionary to track SAV variable names that
// collide once truncated to 8 bytes.
package collision

import (
	"github.com/spssio/spssio/errs"
)

// Tracker maps a slot key (e.g. an 8-byte truncated, uppercased variable
// name) to the first source name that claimed it, flagging any later
// name that maps to the same slot under a different source name.
type Tracker struct {
	slots        map[string]string // slot key -> first source name
	order        []string          // slot keys in first-seen order
	hasCollision bool
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{slots: make(map[string]string)}
}

// Track records that sourceName maps to slotKey. It returns
// errs.ErrNameCollision if slotKey was already claimed by a different
// sourceName; re-registering the same (slotKey, sourceName) pair is not
// an error.
func (t *Tracker) Track(slotKey, sourceName string) error {
	if existing, ok := t.slots[slotKey]; ok {
		if existing != sourceName {
			t.hasCollision = true

			return errs.ErrNameCollision
		}

		return nil
	}

	t.slots[slotKey] = sourceName
	t.order = append(t.order, slotKey)

	return nil
}

// HasCollision reports whether any Track call has detected a collision.
func (t *Tracker) HasCollision() bool {
	return t.hasCollision
}

// SlotKeys returns every claimed slot key in first-claimed order.
func (t *Tracker) SlotKeys() []string {
	return t.order
}

// Count returns the number of distinct slots claimed.
func (t *Tracker) Count() int {
	return len(t.order)
}

// Reset clears all tracked slots and collision state, for reuse across a
// new dictionary build.
func (t *Tracker) Reset() {
	for k := range t.slots {
		delete(t.slots, k)
	}

	t.order = t.order[:0]
	t.hasCollision = false
}
