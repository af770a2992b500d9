package listing

import (
	"clinicdesk/internal/lifecycle"
	"clinicdesk/internal/model"
)

// Row is one rendered appointment with its badge and offered actions.
type Row struct {
	Appointment model.Appointment
	Label       lifecycle.Label
	Actions     lifecycle.Actions
	Selected    bool
}

// View is the appointment list state of one dashboard.
type View struct {
	role      model.Role
	pageSize  int
	records   []model.Appointment
	filter    Filter
	page      int
	selection *Selection
	hidden    map[int64]struct{}
	joined    map[int64]struct{}
}

// NewView creates an empty list for the role. pageSize <= 0 uses DefaultPageSize.
func NewView(role model.Role, pageSize int) *View {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &View{
		role:      role,
		pageSize:  pageSize,
		page:      1,
		selection: NewSelection(),
		hidden:    make(map[int64]struct{}),
		joined:    make(map[int64]struct{}),
	}
}

func (v *View) Role() model.Role { return v.role }

func (v *View) Filter() Filter { return v.filter }

func (v *View) PageSize() int { return v.pageSize }

func (v *View) Selection() *Selection { return v.selection }

// SetRecords replaces the collection after a fetch. Hidden rows are cleared
// because the fresh collection is authoritative.
func (v *View) SetRecords(records []model.Appointment) {
	v.records = append([]model.Appointment(nil), records...)
	v.hidden = make(map[int64]struct{})
	v.reconcile()
}

// Records returns the full, unfiltered collection.
func (v *View) Records() []model.Appointment {
	return append([]model.Appointment(nil), v.records...)
}

// Find returns the appointment with the given id from the collection.
func (v *View) Find(id int64) (model.Appointment, bool) {
	for _, a := range v.records {
		if a.ID == id {
			return a, true
		}
	}
	return model.Appointment{}, false
}

// SetFilter applies a new filter and goes back to the first page.
func (v *View) SetFilter(f Filter) {
	v.filter = f
	v.page = 1
	v.reconcile()
}

// SetPage moves to page n (clamped).
func (v *View) SetPage(n int) {
	v.page = n
	v.reconcile()
}

// SetPageSize changes the page size and goes back to the first page.
func (v *View) SetPageSize(n int) {
	if n <= 0 {
		n = DefaultPageSize
	}
	v.pageSize = n
	v.page = 1
	v.reconcile()
}

// Hide removes a row from view until the next SetRecords.
func (v *View) Hide(id int64) {
	v.hidden[id] = struct{}{}
	v.reconcile()
}

// MarkJoined records that the meeting of id was opened in this session.
func (v *View) MarkJoined(id int64) {
	v.joined[id] = struct{}{}
}

func (v *View) Joined(id int64) bool {
	_, ok := v.joined[id]
	return ok
}

// Toggle flips the selection of a visible row.
func (v *View) Toggle(id int64) bool {
	for _, visible := range v.visibleIDs() {
		if visible == id {
			return v.selection.Toggle(id)
		}
	}
	return false
}

// SelectAll selects (or clears) the rows on the current page.
func (v *View) SelectAll() {
	v.selection.SelectAll(v.visibleIDs())
}

// Filtered returns every record passing the filter, hidden rows excluded.
func (v *View) Filtered() []model.Appointment {
	out := Apply(v.records, v.filter)
	if len(v.hidden) == 0 {
		return out
	}
	kept := out[:0]
	for _, a := range out {
		if _, ok := v.hidden[a.ID]; !ok {
			kept = append(kept, a)
		}
	}
	return kept
}

// Current returns the visible page of rows.
func (v *View) Current() Page[Row] {
	p := Paginate(v.Filtered(), v.page, v.pageSize)
	rows := make([]Row, 0, len(p.Items))
	for i := range p.Items {
		rows = append(rows, v.RowFor(p.Items[i]))
	}
	return Page[Row]{Items: rows, Number: p.Number, Pages: p.Pages, Total: p.Total}
}

// RowFor renders a single appointment for this view's role.
func (v *View) RowFor(a model.Appointment) Row {
	return Row{
		Appointment: a,
		Label:       lifecycle.LabelFor(a.Status),
		Actions: lifecycle.ActionsFor(a.Status, v.role, lifecycle.Context{
			Joined: v.Joined(a.ID),
			HasURL: a.HasMeetingURL(),
		}),
		Selected: v.selection.Has(a.ID),
	}
}

func (v *View) visibleIDs() []int64 {
	p := Paginate(v.Filtered(), v.page, v.pageSize)
	ids := make([]int64, 0, len(p.Items))
	for _, a := range p.Items {
		ids = append(ids, a.ID)
	}
	return ids
}

func (v *View) reconcile() {
	p := Paginate(v.Filtered(), v.page, v.pageSize)
	v.page = p.Number
	v.selection.Reconcile(v.visibleIDs())
}
