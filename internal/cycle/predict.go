package cycle

import "clinicdesk/internal/model"

const lutealPhaseDays = 14

// Window is one projected period.
type Window struct {
	Start     model.Date
	End       model.Date
	Ovulation model.Date
}

// Predict projects the next n periods from the most recent cycle: each starts
// one cycle length after the previous, lasts the recorded duration, and
// ovulation is estimated 14 days before the following start. A non-positive n
// yields no windows.
func Predict(cycles []model.MenstrualCycle, n int) ([]Window, error) {
	if len(cycles) == 0 {
		return nil, ErrNoCycles
	}
	sorted := append([]model.MenstrualCycle(nil), cycles...)
	SortRecentFirst(sorted)
	latest := sorted[0]
	if err := validate.Struct(&latest); err != nil {
		return nil, ErrInvalid
	}
	if n <= 0 {
		return nil, nil
	}

	out := make([]Window, 0, n)
	start := latest.StartDate
	for i := 0; i < n; i++ {
		start = start.AddDays(latest.Cycle)
		out = append(out, Window{
			Start:     start,
			End:       start.AddDays(latest.Duration - 1),
			Ovulation: start.AddDays(-lutealPhaseDays),
		})
	}
	return out, nil
}
