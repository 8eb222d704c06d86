package store

import (
	"slices"
	"time"
)

// Seen is the set of post ids that have already been processed. Ids are
// only ever added.
type Seen struct {
	ids       map[string]struct{}
	UpdatedAt time.Time
}

// NewSeen returns a set holding ids.
func NewSeen(ids ...string) *Seen {
	s := &Seen{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.MarkSeen(id)
	}
	return s
}

// MarkSeen adds id to the set. Adding an existing id is a no-op.
func (s *Seen) MarkSeen(id string) {
	if id == "" {
		return
	}
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	s.ids[id] = struct{}{}
}

// Contains reports whether id has been seen.
func (s *Seen) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of ids in the set.
func (s *Seen) Len() int {
	return len(s.ids)
}

// IDs returns the ids in sorted order.
func (s *Seen) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
