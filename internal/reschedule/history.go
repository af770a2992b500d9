package reschedule

import (
	"sort"

	"clinicdesk/internal/model"
)

// SortByCreatedDesc orders requests newest first. The input is not modified.
func SortByCreatedDesc(reqs []model.RescheduleRequest) []model.RescheduleRequest {
	out := append([]model.RescheduleRequest(nil), reqs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Summary counts requests per status for the summary strip.
type Summary struct {
	Total  int
	Counts map[model.RequestStatus]int
}

// Summarize counts requests per status. Unknown statuses only add to Total.
func Summarize(reqs []model.RescheduleRequest) Summary {
	s := Summary{Counts: make(map[model.RequestStatus]int, len(model.RequestStatuses))}
	for _, st := range model.RequestStatuses {
		s.Counts[st] = 0
	}
	for _, r := range reqs {
		s.Total++
		if r.Status.IsKnown() {
			s.Counts[r.Status]++
		}
	}
	return s
}
