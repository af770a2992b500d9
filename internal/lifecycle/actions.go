package lifecycle

import "clinicdesk/internal/model"

// ActionKind identifies something a user can do with an appointment.
type ActionKind string

const (
	StartMeeting      ActionKind = "start"
	ConfirmReady      ActionKind = "confirm"
	JoinMeeting       ActionKind = "join"
	FinishMeeting     ActionKind = "finish"
	CancelAppointment ActionKind = "cancel"
	Reschedule        ActionKind = "reschedule"
	ViewDetail        ActionKind = "detail"
)

// Action is a presented button: what it does and what it says.
type Action struct {
	Kind  ActionKind
	Label string
}

var defaultLabels = map[ActionKind]string{
	StartMeeting:      "Start Meeting",
	ConfirmReady:      "Confirm Ready",
	JoinMeeting:       "Join Meeting",
	FinishMeeting:     "Finish Meeting",
	CancelAppointment: "Cancel Appointment",
	Reschedule:        "Reschedule",
	ViewDetail:        "View Detail",
}

// Context carries local UI flags that affect the offered actions.
type Context struct {
	// Joined is set once the doctor opened the meeting in this session.
	Joined bool
	HasURL bool
}

// Actions is an ordered set of actions.
type Actions []Action

// Has reports whether kind is offered.
func (a Actions) Has(kind ActionKind) bool {
	_, ok := a.Get(kind)
	return ok
}

// Get returns the offered action of the given kind.
func (a Actions) Get(kind ActionKind) (Action, bool) {
	for _, act := range a {
		if act.Kind == kind {
			return act, true
		}
	}
	return Action{}, false
}

// Kinds returns the action kinds in presentation order.
func (a Actions) Kinds() []ActionKind {
	kinds := make([]ActionKind, 0, len(a))
	for _, act := range a {
		kinds = append(kinds, act.Kind)
	}
	return kinds
}

func act(kind ActionKind) Action {
	return Action{Kind: kind, Label: defaultLabels[kind]}
}

// ActionsFor resolves the actions a role may take on an appointment in the given status.
// ViewDetail is always present and always last.
func ActionsFor(status model.Status, role model.Role, c Context) Actions {
	var out Actions
	switch role {
	case model.RoleDoctor:
		out = doctorActions(status, c)
	case model.RoleCustomer:
		out = customerActions(status, c)
	}
	return append(out, act(ViewDetail))
}

func doctorActions(status model.Status, c Context) Actions {
	switch status {
	case model.StatusBooked:
		return Actions{act(StartMeeting), act(CancelAppointment)}
	case model.StatusConfirmed:
		return Actions{act(ConfirmReady), act(CancelAppointment)}
	case model.StatusWaiting, model.StatusWaitingForCustomer:
		return Actions{
			{Kind: ConfirmReady, Label: "Confirm Ready, Customer Waiting"},
			act(CancelAppointment),
		}
	case model.StatusWaitingForDoctor:
		return Actions{
			{Kind: ConfirmReady, Label: "Confirm Appointment"},
			act(CancelAppointment),
		}
	case model.StatusInProgress:
		if c.Joined {
			return Actions{act(FinishMeeting)}
		}
		return Actions{act(JoinMeeting)}
	}
	return nil
}

func customerActions(status model.Status, c Context) Actions {
	var out Actions
	switch status {
	case model.StatusBooked, model.StatusConfirmed, model.StatusWaitingForCustomer, model.StatusWaitingForDoctor:
		out = append(out, act(Reschedule))
	}
	if status == model.StatusBooked {
		out = append(out, act(CancelAppointment))
	}
	switch status {
	case model.StatusConfirmed, model.StatusInProgress, model.StatusFinished:
		if c.HasURL {
			out = append(out, act(JoinMeeting))
		}
	}
	return out
}

// IsMutation reports whether invoking the action calls a backend mutation endpoint.
func (k ActionKind) IsMutation() bool {
	switch k {
	case StartMeeting, ConfirmReady, FinishMeeting, CancelAppointment:
		return true
	}
	return false
}
