package bot

import (
	"sync"

	"clinicdesk/internal/dashboard"
	"clinicdesk/internal/model"
	"clinicdesk/internal/reschedule"
)

type step string

const (
	stepNone           step = "none"
	stepRescheduleDate step = "reschedule_date"
	stepRescheduleSlot step = "reschedule_slot"
	stepRescheduleNote step = "reschedule_note"
	stepTestDate       step = "test_date"
	stepTestSlot       step = "test_slot"
)

// userState is the conversation state of one chat user. It is only touched
// from the update loop.
type userState struct {
	Step step

	ListMessageID int

	Workflow    *reschedule.Workflow
	PendingDate model.Date

	Requests map[int64]model.RescheduleRequest

	PanelID  int64
	TestDate model.Date
}

func (s *userState) resetFlow() {
	s.Step = stepNone
	s.Workflow = nil
	s.PendingDate = model.Date{}
	s.PanelID = 0
	s.TestDate = model.Date{}
}

// userDashboard ties a dashboard to the chat it renders into.
type userDashboard struct {
	ChatID int64
	Token  string
	Dash   *dashboard.Dashboard
	Toasts *chatToasts
}

type stateStore struct {
	mu     sync.Mutex
	m      map[int64]*userState
	boards map[int64]*userDashboard
}

func newStateStore() *stateStore {
	return &stateStore{
		m:      make(map[int64]*userState),
		boards: make(map[int64]*userDashboard),
	}
}

func (s *stateStore) get(userID int64) *userState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.m[userID]
	if st == nil {
		st = &userState{Step: stepNone}
		s.m[userID] = st
	}
	return st
}

func (s *stateStore) board(userID int64) *userDashboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boards[userID]
}

func (s *stateStore) setBoard(userID int64, b *userDashboard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old := s.boards[userID]; old != nil && old != b {
		old.Toasts.close()
	}
	s.boards[userID] = b
}

func (s *stateStore) reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
	if b := s.boards[userID]; b != nil {
		b.Toasts.close()
	}
	delete(s.boards, userID)
}
