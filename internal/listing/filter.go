// Package listing filters, pages and selects appointment rows for dashboards.
package listing

import (
	"strings"

	"clinicdesk/internal/model"
)

// Filter narrows an appointment collection. Zero fields match everything.
type Filter struct {
	Search string
	Status model.Status
	Slot   model.Slot
	From   model.Date
	To     model.Date
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Search) == "" && f.Status == "" && f.Slot == "" && f.From.IsZero() && f.To.IsZero()
}

// Match reports whether a single appointment passes the filter.
func (f Filter) Match(a *model.Appointment) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !containsFold(q, a.DoctorName, a.CustomerName, a.DoctorCode, a.CustomerCode) {
			return false
		}
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Slot != "" && a.Slot != f.Slot {
		return false
	}
	if !f.From.IsZero() && a.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && a.Date.After(f.To) {
		return false
	}
	return true
}

// Apply returns the matching appointments in their original order.
func Apply(records []model.Appointment, f Filter) []model.Appointment {
	out := make([]model.Appointment, 0, len(records))
	for i := range records {
		if f.Match(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

func containsFold(lowerQuery string, fields ...string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), lowerQuery) {
			return true
		}
	}
	return false
}
