package model

import "time"

// RequestStatus is the status of a reschedule request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestApproved  RequestStatus = "APPROVED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCancelled RequestStatus = "CANCELLED"
)

// RequestStatuses lists every recognized request status.
var RequestStatuses = []RequestStatus{RequestPending, RequestApproved, RequestRejected, RequestCancelled}

func (s RequestStatus) IsKnown() bool {
	for _, known := range RequestStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsResolved reports whether the request reached a final state.
func (s RequestStatus) IsResolved() bool {
	return s == RequestApproved || s == RequestRejected || s == RequestCancelled
}

const (
	MaxRescheduleOptions = 5
	MaxRescheduleNoteLen = 500
)

type RescheduleOption struct {
	ID         int64  `json:"id,omitempty"`
	Date       Date   `json:"date" validate:"required"`
	Slot       Slot   `json:"slot" validate:"required"`
	TimeRange  string `json:"timeRange,omitempty"`
	IsSelected bool   `json:"isSelected"`
}

type RescheduleRequest struct {
	ID            int64              `json:"id,omitempty"`
	AppointmentID int64              `json:"appointmentId" validate:"required"`
	CustomerID    int64              `json:"customerId"`
	DoctorID      int64              `json:"doctorId"`
	CustomerNote  string             `json:"customerNote" validate:"required,max=500"`
	Options       []RescheduleOption `json:"options" validate:"min=1,max=5,dive"`
	Status        RequestStatus      `json:"status,omitempty"`
	CreatedAt     time.Time          `json:"createdAt,omitempty"`
}

// Option returns the option with the given id.
func (r *RescheduleRequest) Option(id int64) (RescheduleOption, bool) {
	for _, o := range r.Options {
		if o.ID == id {
			return o, true
		}
	}
	return RescheduleOption{}, false
}

// SelectedOption returns the option approved by the doctor, if any.
func (r *RescheduleRequest) SelectedOption() (RescheduleOption, bool) {
	for _, o := range r.Options {
		if o.IsSelected {
			return o, true
		}
	}
	return RescheduleOption{}, false
}
