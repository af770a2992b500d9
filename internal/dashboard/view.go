package dashboard

import (
	"clinicdesk/internal/listing"
	"clinicdesk/internal/model"
)

// Current returns the visible page of rows.
func (d *Dashboard) Current() listing.Page[listing.Row] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view.Current()
}

func (d *Dashboard) Filter() listing.Filter {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view.Filter()
}

func (d *Dashboard) SetFilter(f listing.Filter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.view.SetFilter(f)
}

func (d *Dashboard) SetPage(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.view.SetPage(n)
}

func (d *Dashboard) SetPageSize(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.view.SetPageSize(n)
}

// Toggle flips selection of a visible row and reports the new state.
func (d *Dashboard) Toggle(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view.Toggle(id)
}

func (d *Dashboard) SelectAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.view.SelectAll()
}

func (d *Dashboard) ClearSelection() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.view.Selection().Clear()
}

func (d *Dashboard) SelectedIDs() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view.Selection().IDs()
}

// Filtered returns every record passing the current filter.
func (d *Dashboard) Filtered() []model.Appointment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view.Filtered()
}

// Row renders one appointment of the collection.
func (d *Dashboard) Row(id int64) (listing.Row, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.view.Find(id)
	if !ok {
		return listing.Row{}, false
	}
	return d.view.RowFor(a), true
}

func (d *Dashboard) PageSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view.PageSize()
}

func (d *Dashboard) Role() model.Role { return d.sess.Role }
