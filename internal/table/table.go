package table

import (
	"iter"
	"slices"
)

// Table maps paths to entries.
//
// Put on an existing path replaces the entry but keeps the path's original
// position, so iteration order is the order in which paths were first added.
// The zero value is not usable; create tables with New. A nil *Table
// behaves as an empty, read-only table.
type Table struct {
	order   []string
	entries map[string]Entry
}

// New returns an empty table.
func New() *Table {
	return &Table{entries: make(map[string]Entry)}
}

// Put inserts e, replacing any entry with the same path.
// It reports whether an entry was replaced.
func (t *Table) Put(e Entry) (replaced bool) {
	if _, ok := t.entries[e.Path]; ok {
		t.entries[e.Path] = e
		return true
	}
	t.entries[e.Path] = e
	t.order = append(t.order, e.Path)
	return false
}

// Get returns the entry for path.
func (t *Table) Get(path string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[path]
	return e, ok
}

// Has reports whether path is present.
func (t *Table) Has(path string) bool {
	_, ok := t.Get(path)
	return ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Paths returns a copy of all paths in table order.
func (t *Table) Paths() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.order)
}

// All iterates over entries in table order.
func (t *Table) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		if t == nil {
			return
		}
		for _, p := range t.order {
			if !yield(t.entries[p]) {
				return
			}
		}
	}
}
