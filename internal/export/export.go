// Package export writes appointment lists to Excel workbooks.
package export

import (
	"fmt"
	"io"

	"clinicdesk/internal/lifecycle"
	"clinicdesk/internal/model"

	"github.com/xuri/excelize/v2"
)

const (
	AppointmentsSheet = "Appointments"
	RequestsSheet     = "Reschedule requests"
	maxSheetName      = 31
)

var appointmentColumns = []string{
	"ID", "Date", "Slot", "Time", "Status", "Customer", "Customer code", "Doctor", "Doctor code", "Customer note", "Doctor note",
}

var requestColumns = []string{
	"ID", "Appointment", "Status", "Options", "Selected", "Note", "Created",
}

// sheet appends rows to one worksheet.
type sheet struct {
	file *excelize.File
	name string
	row  int
}

func newSheet(f *excelize.File, name string, first bool) (*sheet, error) {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	if first {
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	} else if _, err := f.NewSheet(name); err != nil {
		return nil, fmt.Errorf("create sheet %s: %w", name, err)
	}
	return &sheet{file: f, name: name, row: 1}, nil
}

func (s *sheet) header(columns []string) error {
	if err := s.write(toAny(columns)); err != nil {
		return err
	}
	style, err := s.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	if err := s.file.SetCellStyle(s.name, "A1", end, style); err != nil {
		return err
	}
	return s.file.SetPanes(s.name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func (s *sheet) write(values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	if err := s.file.SetSheetRow(s.name, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", s.row, err)
	}
	s.row++
	return nil
}

// Appointments writes the given appointments as a single-sheet workbook.
func Appointments(w io.Writer, appointments []model.Appointment) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeAppointments(f, appointments, true); err != nil {
		return err
	}
	return f.Write(w)
}

// Workbook writes appointments and, when present, reschedule requests on a
// second sheet.
func Workbook(w io.Writer, appointments []model.Appointment, requests []model.RescheduleRequest) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeAppointments(f, appointments, true); err != nil {
		return err
	}
	if len(requests) > 0 {
		if err := writeRequests(f, requests); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func writeAppointments(f *excelize.File, appointments []model.Appointment, first bool) error {
	s, err := newSheet(f, AppointmentsSheet, first)
	if err != nil {
		return err
	}
	if err := s.header(appointmentColumns); err != nil {
		return err
	}
	for i := range appointments {
		a := &appointments[i]
		if err := s.write([]any{
			a.ID,
			a.Date.String(),
			string(a.Slot),
			a.TimeRange,
			lifecycle.LabelFor(a.Status).Text,
			a.CustomerName,
			a.CustomerCode,
			a.DoctorName,
			a.DoctorCode,
			a.CustomerNote,
			a.DoctorNote,
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeRequests(f *excelize.File, requests []model.RescheduleRequest) error {
	s, err := newSheet(f, RequestsSheet, false)
	if err != nil {
		return err
	}
	if err := s.header(requestColumns); err != nil {
		return err
	}
	for i := range requests {
		r := &requests[i]
		selected := ""
		if opt, ok := r.SelectedOption(); ok {
			selected = optionText(opt)
		}
		created := ""
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Format("02/01/2006 15:04")
		}
		if err := s.write([]any{
			r.ID,
			r.AppointmentID,
			lifecycle.RequestLabelFor(r.Status).Text,
			len(r.Options),
			selected,
			r.CustomerNote,
			created,
		}); err != nil {
			return err
		}
	}
	return nil
}

func optionText(o model.RescheduleOption) string {
	if o.TimeRange != "" {
		return o.Date.String() + " " + o.TimeRange
	}
	return o.Date.String() + " " + string(o.Slot)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
