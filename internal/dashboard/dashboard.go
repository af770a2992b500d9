package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"clinicdesk/internal/clinicapi"
	"clinicdesk/internal/events"
	"clinicdesk/internal/lifecycle"
	"clinicdesk/internal/listing"
	"clinicdesk/internal/metrics"
	"clinicdesk/internal/model"
	"clinicdesk/internal/reschedule"
	"clinicdesk/internal/session"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound   = errors.New("appointment not found")
	ErrNotOffered = errors.New("action not available for this appointment")
	ErrStale      = errors.New("response superseded by a newer request")
)

// Backend is the slice of the clinic API the dashboard drives.
type Backend interface {
	ListAppointments(ctx context.Context, role model.Role) ([]model.Appointment, error)
	StartAppointment(ctx context.Context, id int64) error
	ConfirmAppointment(ctx context.Context, id int64) error
	CancelAppointment(ctx context.Context, id int64) error
	FinishAppointment(ctx context.Context, id int64) error
}

type Options struct {
	PageSize int
	Notifier Notifier
	Bus      *events.Bus
	Logger   *zerolog.Logger
}

// Result is what invoking an action produced for the caller to show.
type Result struct {
	Kind        lifecycle.ActionKind
	Appointment model.Appointment
	// URL is set for JoinMeeting.
	URL string
	// Workflow is set for Reschedule.
	Workflow *reschedule.Workflow
}

// Dashboard is one signed-in user's appointment list and the actions on it.
type Dashboard struct {
	mu       sync.Mutex
	sess     session.Session
	backend  Backend
	view     *listing.View
	notifier Notifier
	bus      *events.Bus
	log      zerolog.Logger

	issued  uint64
	loaded  bool
	loadErr error
}

func New(sess session.Session, backend Backend, opts Options) *Dashboard {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Int64("account_id", sess.AccountID).Str("role", string(sess.Role)).Logger()
	}
	return &Dashboard{
		sess:     sess,
		backend:  backend,
		view:     listing.NewView(sess.Role, opts.PageSize),
		notifier: opts.Notifier,
		bus:      opts.Bus,
		log:      log,
	}
}

func (d *Dashboard) Session() session.Session { return d.sess }

// Refresh re-fetches the whole collection. If another Refresh was issued
// while this one was in flight, the response is dropped and ErrStale
// returned. A failed fetch keeps the previous records and is reported by
// LoadError.
func (d *Dashboard) Refresh(ctx context.Context) error {
	d.mu.Lock()
	d.issued++
	seq := d.issued
	d.mu.Unlock()

	records, err := d.backend.ListAppointments(ctx, d.sess.Role)

	d.mu.Lock()
	defer d.mu.Unlock()
	if seq != d.issued {
		metrics.IncStaleResponse()
		d.log.Debug().Uint64("seq", seq).Uint64("latest", d.issued).Msg("stale list response discarded")
		return ErrStale
	}
	if err != nil {
		d.loadErr = err
		d.log.Warn().Err(err).Msg("appointment list fetch failed")
		return err
	}
	d.loadErr = nil
	d.loaded = true
	for _, a := range records {
		if !a.Status.IsKnown() {
			metrics.IncUnknownStatus(string(a.Status))
			d.log.Warn().Int64("appointment_id", a.ID).Str("status", string(a.Status)).Msg("unknown appointment status")
		}
	}
	d.view.SetRecords(records)
	d.bus.Publish(events.Event{Type: events.TypeListRefreshed, AccountID: d.sess.AccountID})
	return nil
}

// LoadError is the error of the latest applied fetch, if it failed.
func (d *Dashboard) LoadError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loadErr
}

// Loaded reports whether a fetch has ever succeeded.
func (d *Dashboard) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

// Invoke performs an offered action on an appointment. Mutations call the
// backend exactly once and then re-fetch the collection; nothing is changed
// locally before the backend confirms. Failures are surfaced through the
// notifier and leave the list untouched.
func (d *Dashboard) Invoke(ctx context.Context, id int64, kind lifecycle.ActionKind) (Result, error) {
	d.mu.Lock()
	appt, ok := d.view.Find(id)
	if !ok {
		d.mu.Unlock()
		return Result{}, ErrNotFound
	}
	row := d.view.RowFor(appt)
	if !row.Actions.Has(kind) {
		d.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %s on %s", ErrNotOffered, kind, appt.Status)
	}
	res := Result{Kind: kind, Appointment: appt}
	switch kind {
	case lifecycle.JoinMeeting:
		d.view.MarkJoined(id)
		res.URL = appt.URL
	case lifecycle.Reschedule:
		res.Workflow = reschedule.New(appt)
	}
	d.mu.Unlock()

	if !kind.IsMutation() {
		metrics.IncAction(string(kind), "ok")
		return res, nil
	}

	if err := d.mutate(ctx, id, kind); err != nil {
		metrics.IncAction(string(kind), "error")
		d.log.Warn().Err(err).Int64("appointment_id", id).Str("action", string(kind)).Msg("action failed")
		d.notify(LevelError, fmt.Sprintf("%s failed: %s", actionLabel(row.Actions, kind), errorText(err)))
		d.bus.Publish(events.Event{
			Type:          events.TypeAppointmentAction,
			AccountID:     d.sess.AccountID,
			AppointmentID: id,
			Action:        string(kind),
			Err:           err,
		})
		return Result{}, err
	}

	metrics.IncAction(string(kind), "ok")
	d.log.Info().Int64("appointment_id", id).Str("action", string(kind)).Msg("action applied")
	if kind == lifecycle.CancelAppointment {
		d.mu.Lock()
		d.view.Hide(id)
		d.mu.Unlock()
	}
	d.bus.Publish(events.Event{
		Type:          events.TypeAppointmentAction,
		AccountID:     d.sess.AccountID,
		AppointmentID: id,
		Action:        string(kind),
	})

	if err := d.Refresh(ctx); err != nil && !errors.Is(err, ErrStale) {
		d.notify(LevelError, "Could not reload appointments: "+errorText(err))
	}
	d.mu.Lock()
	if fresh, ok := d.view.Find(id); ok {
		res.Appointment = fresh
	}
	d.mu.Unlock()
	return res, nil
}

func (d *Dashboard) mutate(ctx context.Context, id int64, kind lifecycle.ActionKind) error {
	switch kind {
	case lifecycle.StartMeeting:
		return d.backend.StartAppointment(ctx, id)
	case lifecycle.ConfirmReady:
		return d.backend.ConfirmAppointment(ctx, id)
	case lifecycle.CancelAppointment:
		return d.backend.CancelAppointment(ctx, id)
	case lifecycle.FinishMeeting:
		return d.backend.FinishAppointment(ctx, id)
	}
	return fmt.Errorf("no backend call for %s", kind)
}

func (d *Dashboard) notify(level Level, msg string) {
	if d.notifier != nil {
		d.notifier.Notify(level, msg)
	}
}

func actionLabel(actions lifecycle.Actions, kind lifecycle.ActionKind) string {
	if a, ok := actions.Get(kind); ok {
		return a.Label
	}
	return string(kind)
}

// errorText prefers the backend's own message over the wrapped error chain.
func errorText(err error) string {
	if apiErr, ok := clinicapi.IsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
