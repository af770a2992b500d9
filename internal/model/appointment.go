package model

import (
	"strings"
	"time"
)

// Status is the backend appointment status enumeration.
type Status string

const (
	StatusBooked             Status = "BOOKED"
	StatusConfirmed          Status = "CONFIRMED"
	StatusWaitingForCustomer Status = "WAITING_FOR_CUSTOMER"
	StatusWaitingForDoctor   Status = "WAITING_FOR_DOCTOR"
	StatusWaiting            Status = "WAITING"
	StatusInProgress         Status = "IN_PROGRESS"
	StatusFinished           Status = "FINISHED"
	StatusCancelled          Status = "CANCELLED"
)

// Statuses lists every recognized appointment status in lifecycle order.
var Statuses = []Status{
	StatusBooked,
	StatusConfirmed,
	StatusWaitingForCustomer,
	StatusWaitingForDoctor,
	StatusWaiting,
	StatusInProgress,
	StatusFinished,
	StatusCancelled,
}

// ParseStatus normalizes user input such as "in progress" or "Cancelled".
// The result may still be unknown; check IsKnown.
func ParseStatus(s string) Status {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	return Status(s)
}

func (s Status) IsKnown() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further action can change the appointment.
func (s Status) IsTerminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// Slot is a backend time window identifier ("ONE", "TWO", ...). It is not validated locally.
type Slot string

type Appointment struct {
	ID           int64     `json:"id"`
	Date         Date      `json:"date"`
	Slot         Slot      `json:"slot"`
	TimeRange    string    `json:"timeRange,omitempty"`
	Status       Status    `json:"status"`
	CustomerID   int64     `json:"customerId"`
	CustomerName string    `json:"customerName,omitempty"`
	CustomerCode string    `json:"customerCode,omitempty"`
	DoctorID     int64     `json:"doctorId"`
	DoctorName   string    `json:"doctorName,omitempty"`
	DoctorCode   string    `json:"doctorCode,omitempty"`
	URL          string    `json:"url,omitempty"`
	CustomerNote string    `json:"customerNote,omitempty"`
	DoctorNote   string    `json:"doctorNote,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

// HasMeetingURL reports whether a meeting link is attached.
func (a *Appointment) HasMeetingURL() bool {
	return strings.TrimSpace(a.URL) != ""
}

// When renders the date and time window for display.
func (a *Appointment) When() string {
	window := a.TimeRange
	if window == "" {
		window = string(a.Slot)
	}
	if window == "" {
		return a.Date.String()
	}
	return a.Date.String() + " " + window
}
