// Package cellstore defines the storage for the memoized values of a single
// cells object.
//
// # Why a Cell Store Exists
//
// Every cells object owns one store. It keeps one entry per normalized
// argument tuple, holding the value and where that value came from: either
// computed by the formula or supplied by the user as an input. An absent
// entry means "unset"; the evaluator computes it on the next read.
//
// The store knows nothing about dependency edges. Keeping a value and its
// edges consistent is the evaluator's job: it only ever stores a value after
// a successful computation, and it deletes entries when invalidating.
//
// # Ordering
//
// Entries are enumerated in first-insertion order. Overwriting an existing
// key keeps its original position; deleting and re-adding moves it to the end.
package cellstore

import "github.com/zclconf/go-cty/cty"

// Provenance records who produced an entry's value.
type Provenance uint8

const (
	// Computed values came from evaluating the formula.
	Computed Provenance = iota
	// Input values were set explicitly and override the formula.
	Input
)

func (p Provenance) String() string {
	switch p {
	case Computed:
		return "computed"
	case Input:
		return "input"
	default:
		return "unknown"
	}
}

// Entry is a single memoized value.
type Entry struct {
	// Key is the normalized argument tuple, see nodeid.ArgsKey.
	Key string
	// Args is the original argument tuple.
	Args []cty.Value
	// Value is the stored value.
	Value cty.Value
	// Provenance tells whether the value was computed or set as an input.
	Provenance Provenance
}

// Store is the interface for the entries of one cells object.
//
// Implementations MUST be safe for concurrent use, even though the evaluator
// itself runs on a single goroutine, because inspection (export, CLI) may read
// a store while another goroutine holds the model.
type Store interface {
	// Get returns the entry stored under key.
	Get(key string) (Entry, bool)

	// Put stores the entry under e.Key, replacing any previous entry.
	Put(e Entry)

	// Delete removes the entry under key and reports whether it existed.
	Delete(key string) bool

	// Clear removes every entry and returns the removed keys in order.
	Clear() []string

	// Entries returns all entries in first-insertion order.
	Entries() []Entry

	// Len returns the number of stored entries.
	Len() int
}
