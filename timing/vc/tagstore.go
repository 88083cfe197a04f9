// Package vc implements the fully-associative victim cache: its tag and
// data storage primitives and the controller state machine that services
// probes and install requests from the L1 controller.
package vc

// TagEntry is the per-way tag state.
type TagEntry struct {
	Tag   uint64
	Valid bool
	Dirty bool
}

// TagStore holds {tag, valid, dirty} for every way and supports an
// associative compare against a probe tag. Tags are guaranteed unique
// among valid entries by the controller's replacement sequencing, so a
// lookup can never match more than one way.
type TagStore struct {
	entries []TagEntry
}

// NewTagStore creates a tag store with the given number of ways, all
// invalid.
func NewTagStore(numWays int) *TagStore {
	return &TagStore{
		entries: make([]TagEntry, numWays),
	}
}

// NumWays returns the number of ways.
func (t *TagStore) NumWays() int {
	return len(t.entries)
}

// Entry returns the current state of one way.
func (t *TagStore) Entry(way int) TagEntry {
	return t.entries[way]
}

// Write installs a tag into a way and marks it valid.
func (t *TagStore) Write(way int, tag uint64, dirty bool) {
	t.entries[way] = TagEntry{Tag: tag, Valid: true, Dirty: dirty}
}

// Invalidate clears a way.
func (t *TagStore) Invalidate(way int) {
	t.entries[way] = TagEntry{}
}

// Lookup compares tag against every valid way and returns the matching
// way, if any.
func (t *TagStore) Lookup(tag uint64) (int, bool) {
	for way, e := range t.entries {
		if e.Valid && e.Tag == tag {
			return way, true
		}
	}
	return 0, false
}

// Reset invalidates every way.
func (t *TagStore) Reset() {
	for way := range t.entries {
		t.entries[way] = TagEntry{}
	}
}
