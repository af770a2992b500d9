package model

// MenstrualCycle is one tracked period. Duration is the period length in days,
// Cycle the full cycle length in days.
type MenstrualCycle struct {
	ID        int64 `json:"id,omitempty"`
	AccountID int64 `json:"accountId"`
	StartDate Date  `json:"startDate" validate:"required"`
	EndDate   Date  `json:"endDate"`
	Duration  int   `json:"duration" validate:"min=1,max=15"`
	Cycle     int   `json:"cycle" validate:"min=20,max=40"`
}

// PeriodEnd returns EndDate, or the date implied by Duration when EndDate is unset.
func (c *MenstrualCycle) PeriodEnd() Date {
	if !c.EndDate.IsZero() {
		return c.EndDate
	}
	return c.StartDate.AddDays(c.Duration - 1)
}
