// Package lifecycle maps appointment and reschedule statuses onto what a
// dashboard shows: labels, badge colors and the actions a role may take.
package lifecycle

import (
	"fmt"
	"strings"

	"clinicdesk/internal/model"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Color is a badge category, independent of any rendering technology.
type Color string

const (
	ColorInfo     Color = "info"
	ColorPrimary  Color = "primary"
	ColorWarning  Color = "warning"
	ColorProgress Color = "progress"
	ColorSuccess  Color = "success"
	ColorDanger   Color = "danger"
	ColorUnknown  Color = "unknown"
)

// Badge renders the color for text interfaces.
func (c Color) Badge() string {
	switch c {
	case ColorInfo:
		return "🔵"
	case ColorPrimary:
		return "🟣"
	case ColorWarning:
		return "🟡"
	case ColorProgress:
		return "🟠"
	case ColorSuccess:
		return "🟢"
	case ColorDanger:
		return "🔴"
	default:
		return "❔"
	}
}

// Label is the display form of a status.
type Label struct {
	Text  string
	Color Color
	// Known is false for values outside the documented enumeration.
	Known bool
}

var appointmentColors = map[model.Status]Color{
	model.StatusBooked:             ColorInfo,
	model.StatusConfirmed:          ColorPrimary,
	model.StatusWaitingForCustomer: ColorWarning,
	model.StatusWaitingForDoctor:   ColorWarning,
	model.StatusWaiting:            ColorWarning,
	model.StatusInProgress:         ColorProgress,
	model.StatusFinished:           ColorSuccess,
	model.StatusCancelled:          ColorDanger,
}

var appointmentText = map[model.Status]string{
	model.StatusWaitingForDoctor:   "Waiting for Doctor",
	model.StatusWaitingForCustomer: "Waiting for Customer",
}

var requestColors = map[model.RequestStatus]Color{
	model.RequestPending:   ColorWarning,
	model.RequestApproved:  ColorSuccess,
	model.RequestRejected:  ColorDanger,
	model.RequestCancelled: ColorDanger,
}

// LabelFor maps an appointment status onto its label. Values outside the
// enumeration get an explicit unknown label rather than a formatted guess.
func LabelFor(status model.Status) Label {
	color, ok := appointmentColors[status]
	if !ok {
		return unknownLabel(string(status))
	}
	if text, ok := appointmentText[status]; ok {
		return Label{Text: text, Color: color, Known: true}
	}
	return Label{Text: humanize(string(status)), Color: color, Known: true}
}

// RequestLabelFor maps a reschedule request status onto its label.
func RequestLabelFor(status model.RequestStatus) Label {
	color, ok := requestColors[status]
	if !ok {
		return unknownLabel(string(status))
	}
	return Label{Text: humanize(string(status)), Color: color, Known: true}
}

func unknownLabel(raw string) Label {
	if raw == "" {
		raw = "empty"
	}
	return Label{Text: fmt.Sprintf("Unknown status (%s)", raw), Color: ColorUnknown}
}

func humanize(raw string) string {
	// A Caser keeps state, so each call gets its own.
	return cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(raw), "_", " "))
}
