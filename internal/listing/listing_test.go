package listing

import (
	"fmt"
	"testing"
	"time"

	"clinicdesk/internal/lifecycle"
	"clinicdesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtures() []model.Appointment {
	d := func(day int) model.Date { return model.NewDate(2025, time.July, day) }
	return []model.Appointment{
		{ID: 1, Date: d(1), Slot: "ONE", Status: model.StatusBooked, DoctorName: "Tran Van Minh", CustomerName: "Nguyen Thi Lan", DoctorCode: "DR01", CustomerCode: "CU01"},
		{ID: 2, Date: d(2), Slot: "TWO", Status: model.StatusCancelled, DoctorName: "NGUYEN Van Hai", CustomerName: "Le Thi Hoa", DoctorCode: "DR02", CustomerCode: "CU02"},
		{ID: 3, Date: d(3), Slot: "ONE", Status: model.StatusFinished, DoctorName: "Pham Minh", CustomerName: "Hoang Anh", DoctorCode: "DR03", CustomerCode: "CU03"},
		{ID: 4, Date: d(4), Slot: "THREE", Status: model.StatusCancelled, DoctorName: "Tran Van Minh", CustomerName: "Vo Thi nguyen", DoctorCode: "DR01", CustomerCode: "CU04"},
		{ID: 5, Date: d(5), Slot: "ONE", Status: model.StatusInProgress, DoctorName: "Pham Minh", CustomerName: "Dang Quoc", DoctorCode: "DR03", CustomerCode: "CU05", URL: "https://meet.example/5"},
		{ID: 6, Date: d(6), Slot: "TWO", Status: model.StatusConfirmed, DoctorName: "Pham Minh", CustomerName: "Bui Lan", DoctorCode: "DR03", CustomerCode: "CU06"},
		{ID: 7, Date: d(7), Slot: "ONE", Status: model.StatusBooked, DoctorName: "Tran Van Minh", CustomerName: "Ngo Huy", DoctorCode: "DR01", CustomerCode: "CU07"},
	}
}

func ids(records []model.Appointment) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestApply(t *testing.T) {
	records := fixtures()
	d := func(day int) model.Date { return model.NewDate(2025, time.July, day) }

	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{"zero filter", Filter{}, []int64{1, 2, 3, 4, 5, 6, 7}},
		{"search name case insensitive", Filter{Search: "Nguyen"}, []int64{1, 2, 4}},
		{"search and status", Filter{Search: "Nguyen", Status: model.StatusCancelled}, []int64{2, 4}},
		{"search by code", Filter{Search: "dr03"}, []int64{3, 5, 6}},
		{"search customer code", Filter{Search: "CU07"}, []int64{7}},
		{"slot", Filter{Slot: "ONE"}, []int64{1, 3, 5, 7}},
		{"date range inclusive", Filter{From: d(2), To: d(4)}, []int64{2, 3, 4}},
		{"open ended from", Filter{From: d(6)}, []int64{6, 7}},
		{"no match", Filter{Search: "zzz"}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(records, tt.filter)))
		})
	}
}

func TestFilter_IsZero(t *testing.T) {
	assert.True(t, Filter{Search: "  "}.IsZero())
	assert.False(t, Filter{Slot: "ONE"}.IsZero())
}

func TestPaginate(t *testing.T) {
	seq := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

	p := Paginate(seq, 1, 5)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, p.Items)
	assert.Equal(t, 3, p.Pages)
	assert.Equal(t, 12, p.Total)
	assert.False(t, p.HasPrev())
	assert.True(t, p.HasNext())

	p = Paginate(seq, 3, 5)
	assert.Equal(t, []int{11, 12}, p.Items)
	assert.False(t, p.HasNext())

	t.Run("ClampHigh", func(t *testing.T) {
		p := Paginate(seq, 42, 5)
		assert.Equal(t, 3, p.Number)
		assert.Equal(t, []int{11, 12}, p.Items)
	})

	t.Run("ClampLow", func(t *testing.T) {
		p := Paginate(seq, -1, 5)
		assert.Equal(t, 1, p.Number)
	})

	t.Run("Empty", func(t *testing.T) {
		p := Paginate([]int{}, 2, 5)
		assert.Equal(t, 1, p.Number)
		assert.Equal(t, 1, p.Pages)
		assert.Empty(t, p.Items)
	})

	t.Run("DefaultSize", func(t *testing.T) {
		p := Paginate(seq, 1, 0)
		assert.Len(t, p.Items, DefaultPageSize)
	})
}

func TestPaginate_ReconstructsFilteredSequence(t *testing.T) {
	records := fixtures()
	for _, f := range []Filter{{}, {Slot: "ONE"}, {Search: "minh"}, {Status: model.StatusCancelled}, {Search: "none"}} {
		for size := 1; size <= 8; size++ {
			filtered := Apply(records, f)
			pages := PageCount(len(filtered), size)

			var rebuilt []model.Appointment
			for n := 1; n <= pages; n++ {
				rebuilt = append(rebuilt, Paginate(filtered, n, size).Items...)
			}
			assert.Equal(t, ids(filtered), ids(rebuilt), fmt.Sprintf("filter %+v size %d", f, size))
		}
	}
}

func TestSelection(t *testing.T) {
	s := NewSelection()
	assert.True(t, s.Toggle(3))
	assert.True(t, s.Toggle(1))
	assert.False(t, s.Toggle(3))
	assert.Equal(t, []int64{1}, s.IDs())

	s.SelectAll([]int64{4, 5})
	assert.Equal(t, []int64{4, 5}, s.IDs())

	s.SelectAll([]int64{4, 5})
	assert.Equal(t, 0, s.Len(), "select all twice clears")

	s.SelectAll([]int64{1, 2, 3})
	dropped := s.Reconcile([]int64{2, 9})
	assert.Equal(t, 2, dropped)
	assert.Equal(t, []int64{2}, s.IDs())
}

func TestView_SelectionFollowsVisibleRows(t *testing.T) {
	v := NewView(model.RoleDoctor, 5)
	v.SetRecords(fixtures())

	v.SelectAll()
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, v.Selection().IDs())

	v.SetFilter(Filter{Status: model.StatusCancelled})
	assert.Equal(t, []int64{2, 4}, v.Selection().IDs())

	v.SetFilter(Filter{Search: "Tran"})
	assert.Equal(t, []int64{4}, v.Selection().IDs())

	v.SetFilter(Filter{Slot: "TWO"})
	assert.False(t, v.Selection().Has(4))
	assert.Equal(t, 0, v.Selection().Len())
}

func TestView_PagesAndToggle(t *testing.T) {
	v := NewView(model.RoleDoctor, 5)
	v.SetRecords(fixtures())

	assert.True(t, v.Toggle(2))
	assert.False(t, v.Toggle(7), "row 7 is not on the first page")

	v.SetPage(2)
	page := v.Current()
	assert.Equal(t, 2, page.Number)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(6), page.Items[0].Appointment.ID)
	assert.Equal(t, 0, v.Selection().Len(), "selection of page 1 is dropped on page 2")

	v.SetPage(99)
	assert.Equal(t, 2, v.Current().Number)
}

func TestView_HideAndRefresh(t *testing.T) {
	v := NewView(model.RoleCustomer, 5)
	v.SetRecords(fixtures())
	v.Toggle(1)

	v.Hide(1)
	assert.NotContains(t, ids(v.Filtered()), int64(1))
	assert.False(t, v.Selection().Has(1))

	v.SetRecords(fixtures())
	assert.Contains(t, ids(v.Filtered()), int64(1))
}

func TestView_RowsComposeLabelsAndActions(t *testing.T) {
	v := NewView(model.RoleDoctor, 10)
	v.SetRecords(fixtures())

	rows := v.Current().Items
	require.Len(t, rows, 7)
	assert.Equal(t, "Booked", rows[0].Label.Text)
	assert.Equal(t, []lifecycle.ActionKind{lifecycle.StartMeeting, lifecycle.CancelAppointment, lifecycle.ViewDetail}, rows[0].Actions.Kinds())

	inProgress := rows[4]
	assert.True(t, inProgress.Actions.Has(lifecycle.JoinMeeting))

	v.MarkJoined(5)
	row := v.RowFor(inProgress.Appointment)
	assert.True(t, row.Actions.Has(lifecycle.FinishMeeting))
	assert.False(t, row.Actions.Has(lifecycle.JoinMeeting))
}
