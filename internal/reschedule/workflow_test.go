package reschedule

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"clinicdesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) CreateReschedule(ctx context.Context, req model.RescheduleRequest) (*model.RescheduleRequest, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RescheduleRequest), args.Error(1)
}

func (m *mockBackend) ApproveReschedule(ctx context.Context, requestID, optionID int64) (*model.RescheduleRequest, error) {
	args := m.Called(ctx, requestID, optionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RescheduleRequest), args.Error(1)
}

func (m *mockBackend) RejectReschedule(ctx context.Context, requestID int64) (*model.RescheduleRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RescheduleRequest), args.Error(1)
}

func (m *mockBackend) CancelReschedule(ctx context.Context, requestID int64) (*model.RescheduleRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RescheduleRequest), args.Error(1)
}

func date(day int) model.Date {
	return model.NewDate(2025, time.July, day)
}

func newWorkflow() *Workflow {
	return New(model.Appointment{ID: 10, CustomerID: 1, DoctorID: 2, Status: model.StatusBooked})
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name        string
		from        State
		to          State
		shouldAllow bool
	}{
		{"composing to pending", StateComposing, StatePending, true},
		{"pending to approved", StatePending, StateApproved, true},
		{"pending to rejected", StatePending, StateRejected, true},
		{"pending to cancelled", StatePending, StateCancelled, true},
		{"composing to approved", StateComposing, StateApproved, false},
		{"approved to cancelled", StateApproved, StateCancelled, false},
		{"cancelled to pending", StateCancelled, StatePending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.shouldAllow, CanTransition(tt.from, tt.to))
		})
	}
}

func TestAddOption_RejectsSixth(t *testing.T) {
	w := newWorkflow()
	for day := 1; day <= 5; day++ {
		require.NoError(t, w.AddOption(date(day), "ONE", "08:00-09:00"))
	}

	err := w.AddOption(date(6), "ONE", "08:00-09:00")
	assert.ErrorIs(t, err, ErrTooManyOptions)
	assert.Len(t, w.Options(), 5)
}

func TestAddOption_RejectsDuplicate(t *testing.T) {
	w := newWorkflow()
	require.NoError(t, w.AddOption(date(1), "ONE", ""))

	err := w.AddOption(date(1), "ONE", "")
	assert.ErrorIs(t, err, ErrDuplicateOption)
	assert.Len(t, w.Options(), 1)

	assert.NoError(t, w.AddOption(date(1), "TWO", ""))
	assert.NoError(t, w.AddOption(date(2), "ONE", ""))
	assert.Len(t, w.Options(), 3)
}

func TestRemoveOption(t *testing.T) {
	w := newWorkflow()
	require.NoError(t, w.AddOption(date(1), "ONE", ""))
	require.NoError(t, w.AddOption(date(2), "ONE", ""))

	require.NoError(t, w.RemoveOption(0))
	opts := w.Options()
	require.Len(t, opts, 1)
	assert.True(t, opts[0].Date.Equal(date(2)))
	assert.ErrorIs(t, w.RemoveOption(3), ErrUnknownOption)
}

func TestSetNote(t *testing.T) {
	w := newWorkflow()
	assert.ErrorIs(t, w.SetNote(strings.Repeat("a", 501)), ErrNoteTooLong)
	assert.NoError(t, w.SetNote(strings.Repeat("я", 500)))
	assert.NoError(t, w.SetNote("  traveling  "))
	assert.Equal(t, "traveling", w.Note())
}

func TestSubmit_Validation(t *testing.T) {
	backend := new(mockBackend)
	ctx := context.Background()

	t.Run("NoOptions", func(t *testing.T) {
		w := newWorkflow()
		require.NoError(t, w.SetNote("busy"))
		assert.ErrorIs(t, w.Submit(ctx, backend), ErrNoOptions)
		assert.Equal(t, StateComposing, w.State())
	})

	t.Run("NoNote", func(t *testing.T) {
		w := newWorkflow()
		require.NoError(t, w.AddOption(date(1), "ONE", ""))
		assert.ErrorIs(t, w.Submit(ctx, backend), ErrNoteRequired)
		assert.ErrorIs(t, w.LastError(), ErrNoteRequired)
	})

	t.Run("EmptySlot", func(t *testing.T) {
		w := newWorkflow()
		require.NoError(t, w.AddOption(date(1), "", ""))
		require.NoError(t, w.SetNote("busy"))
		assert.ErrorIs(t, w.Submit(ctx, backend), ErrInvalidRequest)
	})

	backend.AssertNotCalled(t, "CreateReschedule", mock.Anything, mock.Anything)
}

func TestSubmit_DuplicateNeverReachesBackend(t *testing.T) {
	backend := new(mockBackend)
	w := newWorkflow()

	require.NoError(t, w.AddOption(date(1), "ONE", ""))
	assert.ErrorIs(t, w.AddOption(date(1), "ONE", ""), ErrDuplicateOption)
	require.Len(t, w.Options(), 1)
	require.NoError(t, w.SetNote("conflict at work"))

	backend.On("CreateReschedule", mock.Anything, mock.MatchedBy(func(req model.RescheduleRequest) bool {
		return len(req.Options) == 1 && req.AppointmentID == 10 && req.CustomerNote == "conflict at work"
	})).Return(&model.RescheduleRequest{ID: 99, AppointmentID: 10, Status: model.RequestPending}, nil).Once()

	require.NoError(t, w.Submit(context.Background(), backend))
	assert.Equal(t, StatePending, w.State())
	assert.Equal(t, int64(99), w.Request().ID)
	backend.AssertExpectations(t)
}

func TestSubmit_FailureStaysComposing(t *testing.T) {
	backend := new(mockBackend)
	w := newWorkflow()
	require.NoError(t, w.AddOption(date(1), "ONE", ""))
	require.NoError(t, w.SetNote("sick"))

	boom := errors.New("network down")
	backend.On("CreateReschedule", mock.Anything, mock.Anything).Return(nil, boom).Once()

	err := w.Submit(context.Background(), backend)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateComposing, w.State())
	assert.ErrorIs(t, w.LastError(), boom)
	assert.Len(t, w.Options(), 1)

	// Still editable and resubmittable.
	require.NoError(t, w.AddOption(date(2), "TWO", ""))
	backend.On("CreateReschedule", mock.Anything, mock.Anything).Return(&model.RescheduleRequest{ID: 5}, nil).Once()
	require.NoError(t, w.Submit(context.Background(), backend))
	assert.NoError(t, w.LastError())
	assert.ErrorIs(t, w.AddOption(date(3), "ONE", ""), ErrNotComposing)
}

func TestSubmit_PartialReplyKeepsLocalFields(t *testing.T) {
	backend := new(mockBackend)
	w := newWorkflow()
	require.NoError(t, w.AddOption(date(1), "ONE", "08:00-10:00"))
	require.NoError(t, w.SetNote("sick"))

	backend.On("CreateReschedule", mock.Anything, mock.Anything).Return(&model.RescheduleRequest{ID: 31}, nil).Once()
	require.NoError(t, w.Submit(context.Background(), backend))

	req := w.Request()
	assert.Equal(t, int64(31), req.ID)
	assert.Equal(t, int64(10), req.AppointmentID)
	assert.Equal(t, "sick", req.CustomerNote)
	assert.Equal(t, model.RequestPending, req.Status)
	require.Len(t, req.Options, 1)
	assert.Equal(t, "08:00-10:00", req.Options[0].TimeRange)
}

func TestSubmit_NilReplyKeepsComposedRequest(t *testing.T) {
	backend := new(mockBackend)
	w := newWorkflow()
	require.NoError(t, w.AddOption(date(1), "ONE", ""))
	require.NoError(t, w.SetNote("sick"))

	backend.On("CreateReschedule", mock.Anything, mock.Anything).Return(nil, nil).Once()
	require.NoError(t, w.Submit(context.Background(), backend))

	assert.Equal(t, StatePending, w.State())
	assert.Equal(t, int64(10), w.Request().AppointmentID)
	assert.Len(t, w.Request().Options, 1)
}

func TestApprove_NilReplyKeepsRequest(t *testing.T) {
	backend := new(mockBackend)
	ctx := context.Background()
	w := FromRequest(pendingRequest())

	backend.On("ApproveReschedule", ctx, int64(7), int64(71)).Return(nil, nil).Once()
	require.NoError(t, w.Approve(ctx, model.RoleDoctor, backend, 71))

	req := w.Request()
	assert.Equal(t, int64(7), req.ID)
	assert.Equal(t, int64(10), req.AppointmentID)
	assert.Equal(t, model.RequestApproved, req.Status)
	sel, ok := req.SelectedOption()
	require.True(t, ok)
	assert.Equal(t, int64(71), sel.ID)
	backend.AssertExpectations(t)
}

func pendingRequest() model.RescheduleRequest {
	return model.RescheduleRequest{
		ID:            7,
		AppointmentID: 10,
		CustomerID:    1,
		DoctorID:      2,
		CustomerNote:  "travel",
		Status:        model.RequestPending,
		Options: []model.RescheduleOption{
			{ID: 71, Date: date(1), Slot: "ONE"},
			{ID: 72, Date: date(2), Slot: "TWO"},
		},
	}
}

func TestApprove(t *testing.T) {
	backend := new(mockBackend)
	ctx := context.Background()
	w := FromRequest(pendingRequest())
	require.Equal(t, StatePending, w.State())

	assert.ErrorIs(t, w.Approve(ctx, model.RoleCustomer, backend, 71), ErrForbidden)
	assert.ErrorIs(t, w.Approve(ctx, model.RoleDoctor, backend, 99), ErrUnknownOption)

	approved := pendingRequest()
	approved.Options[1].IsSelected = true
	backend.On("ApproveReschedule", ctx, int64(7), int64(72)).Return(&approved, nil).Once()

	require.NoError(t, w.Approve(ctx, model.RoleDoctor, backend, 72))
	assert.Equal(t, StateApproved, w.State())
	assert.Equal(t, model.RequestApproved, w.Request().Status)
	sel, ok := w.Request().SelectedOption()
	require.True(t, ok)
	assert.Equal(t, int64(72), sel.ID)

	assert.ErrorIs(t, w.Reject(ctx, model.RoleDoctor, backend), ErrResolved)
	backend.AssertExpectations(t)
}

func TestReject(t *testing.T) {
	backend := new(mockBackend)
	ctx := context.Background()
	w := FromRequest(pendingRequest())

	backend.On("RejectReschedule", ctx, int64(7)).Return(nil, nil).Once()
	require.NoError(t, w.Reject(ctx, model.RoleDoctor, backend))
	assert.Equal(t, StateRejected, w.State())
	assert.Equal(t, model.RequestRejected, w.Request().Status)
	assert.ErrorIs(t, w.Cancel(ctx, model.RoleCustomer, backend), ErrResolved)
}

func TestCancel(t *testing.T) {
	backend := new(mockBackend)
	ctx := context.Background()

	t.Run("DoctorCannotCancel", func(t *testing.T) {
		w := FromRequest(pendingRequest())
		assert.ErrorIs(t, w.Cancel(ctx, model.RoleDoctor, backend), ErrForbidden)
	})

	t.Run("FailureKeepsPending", func(t *testing.T) {
		w := FromRequest(pendingRequest())
		backend.On("CancelReschedule", ctx, int64(7)).Return(nil, errors.New("503")).Once()
		assert.Error(t, w.Cancel(ctx, model.RoleCustomer, backend))
		assert.Equal(t, StatePending, w.State())
	})

	t.Run("Success", func(t *testing.T) {
		w := FromRequest(pendingRequest())
		backend.On("CancelReschedule", ctx, int64(7)).Return(nil, nil).Once()
		require.NoError(t, w.Cancel(ctx, model.RoleCustomer, backend))
		assert.Equal(t, StateCancelled, w.State())
	})

	t.Run("ComposingCannotCancel", func(t *testing.T) {
		w := newWorkflow()
		assert.ErrorIs(t, w.Cancel(ctx, model.RoleCustomer, backend), ErrNotPending)
	})

	t.Run("ResolvedFromBackend", func(t *testing.T) {
		req := pendingRequest()
		req.Status = model.RequestApproved
		w := FromRequest(req)
		assert.ErrorIs(t, w.Cancel(ctx, model.RoleCustomer, backend), ErrResolved)
	})
}

func TestHistory(t *testing.T) {
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	reqs := []model.RescheduleRequest{
		{ID: 1, Status: model.RequestApproved, CreatedAt: base},
		{ID: 2, Status: model.RequestPending, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 3, Status: model.RequestPending, CreatedAt: base.Add(time.Hour)},
		{ID: 4, Status: "EXPIRED", CreatedAt: base.Add(-time.Hour)},
	}

	sorted := SortByCreatedDesc(reqs)
	ids := make([]int64, 0, len(sorted))
	for _, r := range sorted {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{2, 3, 1, 4}, ids)
	assert.Equal(t, int64(1), reqs[0].ID, "input must not be reordered")

	s := Summarize(reqs)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Counts[model.RequestPending])
	assert.Equal(t, 1, s.Counts[model.RequestApproved])
	assert.Equal(t, 0, s.Counts[model.RequestRejected])
	assert.Equal(t, 0, s.Counts[model.RequestCancelled])
}
