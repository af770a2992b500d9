package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clinicdesk/internal/clinicapi"
	"clinicdesk/internal/events"
	"clinicdesk/internal/lifecycle"
	"clinicdesk/internal/listing"
	"clinicdesk/internal/model"
	"clinicdesk/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) ListAppointments(ctx context.Context, role model.Role) ([]model.Appointment, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Appointment), args.Error(1)
}

func (m *mockBackend) StartAppointment(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockBackend) ConfirmAppointment(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockBackend) CancelAppointment(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockBackend) FinishAppointment(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type recordingNotifier struct {
	mu    sync.Mutex
	toast []Toast
}

func (n *recordingNotifier) Notify(level Level, message string) Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	t := Toast{ID: int64(len(n.toast) + 1), Level: level, Message: message}
	n.toast = append(n.toast, t)
	return t
}

func appt(id int64, status model.Status) model.Appointment {
	return model.Appointment{
		ID:         id,
		Date:       model.NewDate(2025, time.July, 1),
		Slot:       "ONE",
		Status:     status,
		CustomerID: 1,
		DoctorID:   2,
		URL:        "https://meet.example/room",
	}
}

var doctor = session.Session{AccountID: 2, DisplayName: "Dr Lan", Role: model.RoleDoctor, Token: "t"}

func TestDashboard_ConfirmThenJoin(t *testing.T) {
	ctx := context.Background()
	backend := new(mockBackend)
	backend.On("ListAppointments", ctx, model.RoleDoctor).
		Return([]model.Appointment{appt(1, model.StatusWaitingForDoctor)}, nil).Once()
	backend.On("ConfirmAppointment", ctx, int64(1)).Return(nil).Once()
	backend.On("ListAppointments", ctx, model.RoleDoctor).
		Return([]model.Appointment{appt(1, model.StatusInProgress)}, nil).Once()

	d := New(doctor, backend, Options{})
	require.NoError(t, d.Refresh(ctx))

	row, ok := d.Row(1)
	require.True(t, ok)
	confirm, ok := row.Actions.Get(lifecycle.ConfirmReady)
	require.True(t, ok)
	assert.Equal(t, "Confirm Appointment", confirm.Label)

	res, err := d.Invoke(ctx, 1, lifecycle.ConfirmReady)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, res.Appointment.Status)

	row, _ = d.Row(1)
	assert.Equal(t, []lifecycle.ActionKind{lifecycle.JoinMeeting, lifecycle.ViewDetail}, row.Actions.Kinds())

	res, err = d.Invoke(ctx, 1, lifecycle.JoinMeeting)
	require.NoError(t, err)
	assert.Equal(t, "https://meet.example/room", res.URL)

	row, _ = d.Row(1)
	assert.Equal(t, []lifecycle.ActionKind{lifecycle.FinishMeeting, lifecycle.ViewDetail}, row.Actions.Kinds())
	backend.AssertExpectations(t)
}

func TestDashboard_FailedMutationLeavesStateAndNotifies(t *testing.T) {
	ctx := context.Background()
	backend := new(mockBackend)
	backend.On("ListAppointments", ctx, model.RoleDoctor).
		Return([]model.Appointment{appt(1, model.StatusBooked)}, nil).Once()
	backend.On("StartAppointment", ctx, int64(1)).
		Return(&clinicapi.APIError{StatusCode: 409, Message: "doctor busy"}).Once()

	notifier := &recordingNotifier{}
	bus := events.NewBus()
	var published []events.Event
	bus.Subscribe(events.TypeAppointmentAction, func(e events.Event) { published = append(published, e) })

	d := New(doctor, backend, Options{Notifier: notifier, Bus: bus})
	require.NoError(t, d.Refresh(ctx))

	_, err := d.Invoke(ctx, 1, lifecycle.StartMeeting)
	require.Error(t, err)

	row, _ := d.Row(1)
	assert.Equal(t, model.StatusBooked, row.Appointment.Status)
	require.Len(t, notifier.toast, 1)
	assert.Equal(t, LevelError, notifier.toast[0].Level)
	assert.Equal(t, "Start Meeting failed: doctor busy", notifier.toast[0].Message)
	require.Len(t, published, 1)
	assert.False(t, published[0].Succeeded())

	// no retry and no refetch after a failure
	backend.AssertNumberOfCalls(t, "StartAppointment", 1)
	backend.AssertNumberOfCalls(t, "ListAppointments", 1)
}

func TestDashboard_RejectsActionsNotOffered(t *testing.T) {
	ctx := context.Background()
	backend := new(mockBackend)
	backend.On("ListAppointments", ctx, model.RoleCustomer).
		Return([]model.Appointment{appt(1, model.StatusFinished)}, nil).Once()

	d := New(session.Session{AccountID: 1, Role: model.RoleCustomer}, backend, Options{})
	require.NoError(t, d.Refresh(ctx))

	_, err := d.Invoke(ctx, 1, lifecycle.CancelAppointment)
	assert.ErrorIs(t, err, ErrNotOffered)

	_, err = d.Invoke(ctx, 99, lifecycle.ViewDetail)
	assert.ErrorIs(t, err, ErrNotFound)

	backend.AssertNotCalled(t, "CancelAppointment", mock.Anything, mock.Anything)
}

func TestDashboard_CustomerReschedule(t *testing.T) {
	ctx := context.Background()
	backend := new(mockBackend)
	backend.On("ListAppointments", ctx, model.RoleCustomer).
		Return([]model.Appointment{appt(5, model.StatusConfirmed)}, nil).Once()

	d := New(session.Session{AccountID: 1, Role: model.RoleCustomer}, backend, Options{})
	require.NoError(t, d.Refresh(ctx))

	res, err := d.Invoke(ctx, 5, lifecycle.Reschedule)
	require.NoError(t, err)
	require.NotNil(t, res.Workflow)
	assert.Equal(t, int64(5), res.Workflow.Appointment().ID)
}

func TestDashboard_CancelHidesRowUntilRefetch(t *testing.T) {
	ctx := context.Background()
	backend := new(mockBackend)
	backend.On("ListAppointments", ctx, model.RoleDoctor).
		Return([]model.Appointment{appt(1, model.StatusBooked), appt(2, model.StatusBooked)}, nil).Once()
	backend.On("CancelAppointment", ctx, int64(1)).Return(nil).Once()
	backend.On("ListAppointments", ctx, model.RoleDoctor).
		Return(nil, errors.New("network down")).Once()

	notifier := &recordingNotifier{}
	d := New(doctor, backend, Options{Notifier: notifier})
	require.NoError(t, d.Refresh(ctx))

	_, err := d.Invoke(ctx, 1, lifecycle.CancelAppointment)
	require.NoError(t, err)

	page := d.Current()
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(2), page.Items[0].Appointment.ID)
	assert.EqualError(t, d.LoadError(), "network down")
	require.Len(t, notifier.toast, 1)
	assert.Contains(t, notifier.toast[0].Message, "network down")
}

func TestDashboard_RefreshFailureKeepsRecords(t *testing.T) {
	ctx := context.Background()
	backend := new(mockBackend)
	backend.On("ListAppointments", ctx, model.RoleDoctor).
		Return([]model.Appointment{appt(1, model.StatusBooked)}, nil).Once()
	backend.On("ListAppointments", ctx, model.RoleDoctor).
		Return(nil, errors.New("boom")).Once()
	backend.On("ListAppointments", ctx, model.RoleDoctor).
		Return([]model.Appointment{}, nil).Once()

	d := New(doctor, backend, Options{})
	assert.False(t, d.Loaded())
	require.NoError(t, d.Refresh(ctx))
	require.Error(t, d.Refresh(ctx))

	assert.True(t, d.Loaded())
	assert.Error(t, d.LoadError())
	assert.Equal(t, 1, d.Current().Total)

	require.NoError(t, d.Refresh(ctx))
	assert.NoError(t, d.LoadError())
	assert.Equal(t, 0, d.Current().Total)
}

// gatedBackend holds the first list call until released.
type gatedBackend struct {
	mockBackend
	calls   int
	mu      sync.Mutex
	started chan struct{}
	release chan struct{}
}

func (g *gatedBackend) ListAppointments(_ context.Context, _ model.Role) ([]model.Appointment, error) {
	g.mu.Lock()
	g.calls++
	n := g.calls
	g.mu.Unlock()
	if n == 1 {
		close(g.started)
		<-g.release
		return []model.Appointment{appt(1, model.StatusBooked)}, nil
	}
	return []model.Appointment{appt(1, model.StatusCancelled)}, nil
}

func TestDashboard_StaleResponseDiscarded(t *testing.T) {
	ctx := context.Background()
	backend := &gatedBackend{started: make(chan struct{}), release: make(chan struct{})}
	d := New(doctor, backend, Options{})

	errCh := make(chan error, 1)
	go func() { errCh <- d.Refresh(ctx) }()
	<-backend.started

	require.NoError(t, d.Refresh(ctx))
	close(backend.release)
	assert.ErrorIs(t, <-errCh, ErrStale)

	row, ok := d.Row(1)
	require.True(t, ok)
	assert.Equal(t, model.StatusCancelled, row.Appointment.Status)
}

func TestDashboard_SelectionAndFilter(t *testing.T) {
	ctx := context.Background()
	backend := new(mockBackend)
	list := []model.Appointment{appt(1, model.StatusBooked), appt(2, model.StatusConfirmed), appt(3, model.StatusBooked)}
	backend.On("ListAppointments", ctx, model.RoleDoctor).Return(list, nil).Once()

	d := New(doctor, backend, Options{PageSize: 2})
	require.NoError(t, d.Refresh(ctx))

	d.SelectAll()
	assert.Equal(t, []int64{1, 2}, d.SelectedIDs())

	d.SetFilter(listing.Filter{Status: model.StatusBooked})
	assert.Equal(t, []int64{1}, d.SelectedIDs())
	assert.Len(t, d.Filtered(), 2)

	assert.True(t, d.Toggle(3))
	d.ClearSelection()
	assert.Empty(t, d.SelectedIDs())
}
