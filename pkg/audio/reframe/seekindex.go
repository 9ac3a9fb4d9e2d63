// ABOUTME: Seek index of frame byte positions and their composition times
// ABOUTME: Built while scanning forward, consulted to resolve seek requests
package reframe

import "sort"

// IndexEntry maps a frame start in the source to its composition time in
// output timescale units.
type IndexEntry struct {
	Offset int64
	Time   uint64
}

// seekIndex keeps entries strictly increasing in both fields.
type seekIndex struct {
	entries []IndexEntry
	// window is the spacing between entries in output units; 0 disables
	// appends.
	window   uint64
	nextMark uint64
}

func newSeekIndex(window uint64) *seekIndex {
	return &seekIndex{window: window}
}

// observe is called for every frame start and records one entry per window.
func (s *seekIndex) observe(offset int64, t uint64) {
	if s.window == 0 || offset < 0 || t < s.nextMark {
		return
	}
	if s.add(IndexEntry{Offset: offset, Time: t}) {
		s.nextMark = (t/s.window + 1) * s.window
	}
}

// add appends e when it extends the index in both fields.
func (s *seekIndex) add(e IndexEntry) bool {
	if n := len(s.entries); n > 0 {
		last := s.entries[n-1]
		if e.Offset <= last.Offset || e.Time <= last.Time {
			return false
		}
	}
	s.entries = append(s.entries, e)
	return true
}

// lookup returns the entry to resume from for target time t: the entry
// preceding the first one whose time exceeds t. ok is false for an empty
// index.
func (s *seekIndex) lookup(t uint64) (IndexEntry, bool) {
	if len(s.entries) == 0 {
		return IndexEntry{}, false
	}
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Time > t
	})
	if i == 0 {
		return s.entries[0], true
	}
	return s.entries[i-1], true
}

func (s *seekIndex) snapshot() []IndexEntry {
	out := make([]IndexEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
