package models

import (
	"encoding/json"
	"slices"
)

// IDSet is a set of user identifiers. It serializes as a sorted JSON array so
// the same set always renders the same way.
type IDSet map[uint]struct{}

// NewIDSet builds a set holding ids.
func NewIDSet(ids ...uint) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id uint) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id. Adding a present id is a no-op.
func (s IDSet) Add(id uint) {
	s[id] = struct{}{}
}

// Remove deletes id. Removing an absent id is a no-op.
func (s IDSet) Remove(id uint) {
	delete(s, id)
}

func (s IDSet) Len() int {
	return len(s)
}

// Clone returns an independent copy. Cloning a nil set yields nil.
func (s IDSet) Clone() IDSet {
	if s == nil {
		return nil
	}
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []uint {
	ids := make([]uint, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []uint
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}
