// Package reschedule provides the FSM behind a customer's multi-option reschedule request.
package reschedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"clinicdesk/internal/model"

	"github.com/go-playground/validator/v10"
)

// State is the workflow state of a reschedule request.
type State string

const (
	StateComposing State = "composing"
	StatePending   State = "pending"
	StateApproved  State = "approved"
	StateRejected  State = "rejected"
	StateCancelled State = "cancelled"
)

var (
	ErrTooManyOptions  = fmt.Errorf("at most %d options can be proposed", model.MaxRescheduleOptions)
	ErrDuplicateOption = errors.New("this date and slot is already selected")
	ErrNoOptions       = errors.New("select at least one option")
	ErrNoteRequired    = errors.New("a reason for rescheduling is required")
	ErrNoteTooLong     = fmt.Errorf("reason must be at most %d characters", model.MaxRescheduleNoteLen)
	ErrNotComposing    = errors.New("request was already submitted")
	ErrNotPending      = errors.New("request is not pending")
	ErrResolved        = errors.New("request is already resolved")
	ErrForbidden       = errors.New("action is not allowed for this role")
	ErrUnknownOption   = errors.New("option does not belong to this request")
	ErrInvalidRequest  = errors.New("invalid reschedule request")
)

// transitions lists allowed state changes.
var transitions = map[State][]State{
	StateComposing: {StatePending},
	StatePending:   {StateApproved, StateRejected, StateCancelled},
}

// CanTransition checks if transition is allowed.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s State) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func stateOf(status model.RequestStatus) State {
	switch status {
	case model.RequestApproved:
		return StateApproved
	case model.RequestRejected:
		return StateRejected
	case model.RequestCancelled:
		return StateCancelled
	default:
		return StatePending
	}
}

// Submitter creates the request on the backend.
type Submitter interface {
	CreateReschedule(ctx context.Context, req model.RescheduleRequest) (*model.RescheduleRequest, error)
}

// Decider resolves a pending request on the backend.
type Decider interface {
	ApproveReschedule(ctx context.Context, requestID, optionID int64) (*model.RescheduleRequest, error)
	RejectReschedule(ctx context.Context, requestID int64) (*model.RescheduleRequest, error)
	CancelReschedule(ctx context.Context, requestID int64) (*model.RescheduleRequest, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Workflow holds one reschedule request from composition to resolution.
type Workflow struct {
	mu          sync.Mutex
	state       State
	appointment model.Appointment
	options     []model.RescheduleOption
	note        string
	request     *model.RescheduleRequest
	lastErr     error
}

// New starts composing a request for the appointment.
func New(appointment model.Appointment) *Workflow {
	return &Workflow{state: StateComposing, appointment: appointment}
}

// FromRequest wraps a request that already exists on the backend.
func FromRequest(req model.RescheduleRequest) *Workflow {
	r := req
	return &Workflow{
		state:       stateOf(req.Status),
		appointment: model.Appointment{ID: req.AppointmentID, CustomerID: req.CustomerID, DoctorID: req.DoctorID},
		options:     append([]model.RescheduleOption(nil), req.Options...),
		note:        req.CustomerNote,
		request:     &r,
	}
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Options returns a copy of the proposed options.
func (w *Workflow) Options() []model.RescheduleOption {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]model.RescheduleOption(nil), w.options...)
}

func (w *Workflow) Note() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.note
}

// Request returns the backend request once submitted.
func (w *Workflow) Request() *model.RescheduleRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.request
}

// LastError returns the error of the most recent failed backend call.
func (w *Workflow) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

func (w *Workflow) Appointment() model.Appointment {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.appointment
}

// AddOption proposes a date and slot. The option list is unchanged on error.
func (w *Workflow) AddOption(date model.Date, slot model.Slot, timeRange string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateComposing {
		return ErrNotComposing
	}
	if len(w.options) >= model.MaxRescheduleOptions {
		return ErrTooManyOptions
	}
	for _, o := range w.options {
		if o.Date.Equal(date) && o.Slot == slot {
			return ErrDuplicateOption
		}
	}
	w.options = append(w.options, model.RescheduleOption{Date: date, Slot: slot, TimeRange: timeRange})
	return nil
}

// RemoveOption drops the option at index i.
func (w *Workflow) RemoveOption(i int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateComposing {
		return ErrNotComposing
	}
	if i < 0 || i >= len(w.options) {
		return ErrUnknownOption
	}
	w.options = append(w.options[:i], w.options[i+1:]...)
	return nil
}

// SetNote records the customer's reason.
func (w *Workflow) SetNote(note string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateComposing {
		return ErrNotComposing
	}
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) > model.MaxRescheduleNoteLen {
		return ErrNoteTooLong
	}
	w.note = note
	return nil
}

// Submit sends the composed request. On failure the workflow stays in composing
// and the error is kept for display.
func (w *Workflow) Submit(ctx context.Context, s Submitter) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !CanTransition(w.state, StatePending) {
		return ErrNotComposing
	}
	if len(w.options) == 0 {
		w.lastErr = ErrNoOptions
		return ErrNoOptions
	}
	if w.note == "" {
		w.lastErr = ErrNoteRequired
		return ErrNoteRequired
	}

	req := model.RescheduleRequest{
		AppointmentID: w.appointment.ID,
		CustomerID:    w.appointment.CustomerID,
		DoctorID:      w.appointment.DoctorID,
		CustomerNote:  w.note,
		Options:       append([]model.RescheduleOption(nil), w.options...),
		Status:        model.RequestPending,
	}
	if err := validate.Struct(req); err != nil {
		w.lastErr = fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		return w.lastErr
	}

	created, err := s.CreateReschedule(ctx, req)
	if err != nil {
		w.lastErr = err
		return err
	}
	w.request = mergeReply(req, created)
	w.options = append([]model.RescheduleOption(nil), w.request.Options...)
	w.lastErr = nil
	w.state = StatePending
	return nil
}

// Approve picks exactly one option. Doctors only.
func (w *Workflow) Approve(ctx context.Context, role model.Role, d Decider, optionID int64) error {
	if role != model.RoleDoctor {
		return ErrForbidden
	}
	return w.resolve(StateApproved, func(req *model.RescheduleRequest) (*model.RescheduleRequest, error) {
		if _, ok := req.Option(optionID); !ok {
			return nil, ErrUnknownOption
		}
		reply, err := d.ApproveReschedule(ctx, req.ID, optionID)
		if err != nil {
			return nil, err
		}
		merged := mergeReply(*req, reply)
		if _, ok := merged.SelectedOption(); !ok {
			for i := range merged.Options {
				merged.Options[i].IsSelected = merged.Options[i].ID == optionID
			}
		}
		return merged, nil
	})
}

// Reject declines every option. Doctors only.
func (w *Workflow) Reject(ctx context.Context, role model.Role, d Decider) error {
	if role != model.RoleDoctor {
		return ErrForbidden
	}
	return w.resolve(StateRejected, func(req *model.RescheduleRequest) (*model.RescheduleRequest, error) {
		return d.RejectReschedule(ctx, req.ID)
	})
}

// Cancel withdraws a pending request. Customers only.
func (w *Workflow) Cancel(ctx context.Context, role model.Role, d Decider) error {
	if role != model.RoleCustomer {
		return ErrForbidden
	}
	return w.resolve(StateCancelled, func(req *model.RescheduleRequest) (*model.RescheduleRequest, error) {
		return d.CancelReschedule(ctx, req.ID)
	})
}

func (w *Workflow) resolve(to State, call func(req *model.RescheduleRequest) (*model.RescheduleRequest, error)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.IsTerminal() {
		return ErrResolved
	}
	if !CanTransition(w.state, to) || w.request == nil {
		return ErrNotPending
	}

	updated, err := call(w.request)
	if err != nil {
		w.lastErr = err
		return err
	}
	w.request = mergeReply(*w.request, updated)
	w.options = append([]model.RescheduleOption(nil), w.request.Options...)
	w.request.Status = requestStatusOf(to)
	w.lastErr = nil
	w.state = to
	return nil
}

// mergeReply lays the backend reply over the request the workflow already
// holds. Fields the reply leaves empty keep their local value, and a nil reply
// keeps the local request as is.
func mergeReply(local model.RescheduleRequest, reply *model.RescheduleRequest) *model.RescheduleRequest {
	local.Options = append([]model.RescheduleOption(nil), local.Options...)
	if reply == nil {
		return &local
	}
	out := *reply
	if out.ID == 0 {
		out.ID = local.ID
	}
	if out.AppointmentID == 0 {
		out.AppointmentID = local.AppointmentID
	}
	if out.CustomerID == 0 {
		out.CustomerID = local.CustomerID
	}
	if out.DoctorID == 0 {
		out.DoctorID = local.DoctorID
	}
	if out.CustomerNote == "" {
		out.CustomerNote = local.CustomerNote
	}
	if out.Status == "" {
		out.Status = local.Status
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = local.CreatedAt
	}
	if len(out.Options) == 0 {
		out.Options = local.Options
	} else {
		out.Options = append([]model.RescheduleOption(nil), out.Options...)
	}
	return &out
}

func requestStatusOf(s State) model.RequestStatus {
	switch s {
	case StateApproved:
		return model.RequestApproved
	case StateRejected:
		return model.RequestRejected
	case StateCancelled:
		return model.RequestCancelled
	default:
		return model.RequestPending
	}
}
