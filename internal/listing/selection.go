package listing

import "sort"

// Selection is the set of checked row ids. It only ever holds visible ids.
type Selection struct {
	ids map[int64]struct{}
}

func NewSelection() *Selection {
	return &Selection{ids: make(map[int64]struct{})}
}

func (s *Selection) Has(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

// Toggle flips id and reports whether it is now selected.
func (s *Selection) Toggle(id int64) bool {
	if s.Has(id) {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// SelectAll selects exactly the visible ids. If all of them are already
// selected it clears the selection instead.
func (s *Selection) SelectAll(visible []int64) {
	all := len(visible) > 0
	for _, id := range visible {
		if !s.Has(id) {
			all = false
			break
		}
	}
	s.Clear()
	if all {
		return
	}
	for _, id := range visible {
		s.ids[id] = struct{}{}
	}
}

// Reconcile drops ids that are no longer visible and returns how many were dropped.
func (s *Selection) Reconcile(visible []int64) int {
	keep := make(map[int64]struct{}, len(visible))
	for _, id := range visible {
		keep[id] = struct{}{}
	}
	dropped := 0
	for id := range s.ids {
		if _, ok := keep[id]; !ok {
			delete(s.ids, id)
			dropped++
		}
	}
	return dropped
}

func (s *Selection) Clear() {
	s.ids = make(map[int64]struct{})
}

func (s *Selection) Len() int { return len(s.ids) }

// IDs returns the selected ids in ascending order.
func (s *Selection) IDs() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
