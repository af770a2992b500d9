// Package cycle records menstrual cycles against the backend and projects
// upcoming periods from them.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"clinicdesk/internal/model"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalid  = errors.New("invalid cycle")
	ErrNoCycles = errors.New("no cycles recorded")
)

type Backend interface {
	ListCycles(ctx context.Context) ([]model.MenstrualCycle, error)
	CreateCycle(ctx context.Context, c *model.MenstrualCycle) (*model.MenstrualCycle, error)
	UpdateCycle(ctx context.Context, c *model.MenstrualCycle) (*model.MenstrualCycle, error)
	DeleteCycle(ctx context.Context, id int64) error
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Tracker validates cycles before they reach the backend.
type Tracker struct {
	backend Backend
}

func NewTracker(backend Backend) *Tracker {
	return &Tracker{backend: backend}
}

// List returns the recorded cycles, most recent start first.
func (t *Tracker) List(ctx context.Context) ([]model.MenstrualCycle, error) {
	cycles, err := t.backend.ListCycles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	SortRecentFirst(cycles)
	return cycles, nil
}

func (t *Tracker) Add(ctx context.Context, c model.MenstrualCycle) (*model.MenstrualCycle, error) {
	if err := Validate(&c); err != nil {
		return nil, err
	}
	created, err := t.backend.CreateCycle(ctx, &c)
	if err != nil {
		return nil, fmt.Errorf("add cycle: %w", err)
	}
	return created, nil
}

func (t *Tracker) Update(ctx context.Context, c model.MenstrualCycle) (*model.MenstrualCycle, error) {
	if c.ID == 0 {
		return nil, fmt.Errorf("%w: missing id", ErrInvalid)
	}
	if err := Validate(&c); err != nil {
		return nil, err
	}
	updated, err := t.backend.UpdateCycle(ctx, &c)
	if err != nil {
		return nil, fmt.Errorf("update cycle: %w", err)
	}
	return updated, nil
}

func (t *Tracker) Delete(ctx context.Context, id int64) error {
	if id == 0 {
		return fmt.Errorf("%w: missing id", ErrInvalid)
	}
	if err := t.backend.DeleteCycle(ctx, id); err != nil {
		return fmt.Errorf("delete cycle: %w", err)
	}
	return nil
}

// Validate checks field ranges and that the end date is not before the start.
// A missing end date is filled from the duration.
func Validate(c *model.MenstrualCycle) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.EndDate.IsZero() {
		c.EndDate = c.PeriodEnd()
	}
	if c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("%w: end date %s is before start date %s", ErrInvalid, c.EndDate, c.StartDate)
	}
	return nil
}

func SortRecentFirst(cycles []model.MenstrualCycle) {
	slices.SortStableFunc(cycles, func(a, b model.MenstrualCycle) int {
		switch {
		case a.StartDate.After(b.StartDate):
			return -1
		case a.StartDate.Before(b.StartDate):
			return 1
		}
		return 0
	})
}
