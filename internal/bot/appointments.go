package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"clinicdesk/internal/clinicapi"
	"clinicdesk/internal/dashboard"
	"clinicdesk/internal/lifecycle"
	"clinicdesk/internal/listing"
	"clinicdesk/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleAppointments(ctx context.Context, chatID, userID int64) {
	ub, ok := b.boardFor(ctx, chatID, userID)
	if !ok {
		return
	}
	if err := ub.Dash.Refresh(ctx); err != nil && !errors.Is(err, dashboard.ErrStale) {
		if clinicapi.IsUnauthorized(err) || !ub.Dash.Loaded() {
			b.backendError(ctx, chatID, userID, "load appointments", err)
			return
		}
	}
	st := b.state.get(userID)
	st.ListMessageID = 0
	b.renderList(chatID, st, ub.Dash)
}

// renderList shows the current page, editing the previous list message when
// there is one.
func (b *Bot) renderList(chatID int64, st *userState, d *dashboard.Dashboard) {
	text, markup := formatList(d)
	if st.ListMessageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, st.ListMessageID, text, markup)
		if _, err := b.tg.Send(edit); err == nil {
			return
		}
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	sent, err := b.tg.Send(msg)
	if err == nil {
		st.ListMessageID = sent.MessageID
	}
}

func formatList(d *dashboard.Dashboard) (string, tgbotapi.InlineKeyboardMarkup) {
	page := d.Current()
	var sb strings.Builder

	fmt.Fprintf(&sb, "Appointments: %d", page.Total)
	if page.Pages > 1 {
		fmt.Fprintf(&sb, " (page %d of %d)", page.Number, page.Pages)
	}
	sb.WriteString("\n")
	if f := d.Filter(); !f.IsZero() {
		sb.WriteString("Filter: " + describeFilter(f) + "\n")
	}
	if err := d.LoadError(); err != nil {
		sb.WriteString("⚠️ Could not refresh, showing the last loaded list.\n")
	}
	if n := len(d.SelectedIDs()); n > 0 {
		fmt.Fprintf(&sb, "Selected: %d\n", n)
	}
	sb.WriteString("\n")
	if page.Total == 0 {
		sb.WriteString("Nothing to show.")
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(page.Items)+1)
	for _, row := range page.Items {
		sb.WriteString(formatRow(row, d.Role()))
		sb.WriteString("\n")
		rows = append(rows, rowButtons(row))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page.HasPrev() {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️", fmt.Sprintf("%s:%d", cbPage, page.Number-1)))
	}
	if len(page.Items) > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("☑️ Page", cbSelectAll))
	}
	nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("🔄", cbRefresh))
	if page.HasNext() {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("➡️", fmt.Sprintf("%s:%d", cbPage, page.Number+1)))
	}
	rows = append(rows, nav)
	return sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func formatRow(row listing.Row, role model.Role) string {
	a := row.Appointment
	mark := "☐"
	if row.Selected {
		mark = "☑"
	}
	who := a.DoctorName
	if role != model.RoleCustomer {
		who = a.CustomerName
	}
	line := fmt.Sprintf("%s #%d %s %s %s", mark, a.ID, a.When(), row.Label.Color.Badge(), row.Label.Text)
	if who != "" {
		line += " · " + who
	}
	return line
}

func rowButtons(row listing.Row) []tgbotapi.InlineKeyboardButton {
	id := row.Appointment.ID
	mark := "☐"
	if row.Selected {
		mark = "☑"
	}
	buttons := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s #%d", mark, id), fmt.Sprintf("%s:%d", cbSelect, id)),
	}
	for _, act := range row.Actions {
		label := act.Label
		if act.Kind == lifecycle.ViewDetail {
			label = "ℹ️"
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s:%s:%d", cbAction, act.Kind, id)))
	}
	return buttons
}

func (b *Bot) handleActionCallback(ctx context.Context, chatID, userID int64, data string) {
	kindStr, idStr, ok := strings.Cut(data, ":")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if !ok || err != nil {
		return
	}
	ub, ok := b.boardFor(ctx, chatID, userID)
	if !ok {
		return
	}
	st := b.state.get(userID)
	kind := lifecycle.ActionKind(kindStr)

	res, err := ub.Dash.Invoke(ctx, id, kind)
	switch {
	case errors.Is(err, dashboard.ErrNotOffered), errors.Is(err, dashboard.ErrNotFound):
		ub.Toasts.Notify(dashboard.LevelInfo, "That action is no longer available.")
		b.renderList(chatID, st, ub.Dash)
		return
	case err != nil:
		// The dashboard already raised a toast.
		if errors.Is(err, context.Canceled) {
			return
		}
		b.renderList(chatID, st, ub.Dash)
		return
	}

	switch kind {
	case lifecycle.JoinMeeting:
		if res.URL == "" {
			b.reply(chatID, "The meeting link is not available yet.")
		} else {
			b.reply(chatID, "Meeting link: "+res.URL)
		}
	case lifecycle.ViewDetail:
		b.reply(chatID, formatDetail(res.Appointment))
		return
	case lifecycle.Reschedule:
		b.startReschedule(chatID, st, res)
		return
	default:
		ub.Toasts.Notify(dashboard.LevelSuccess, fmt.Sprintf("Appointment #%d: %s", id, lifecycle.LabelFor(res.Appointment.Status).Text))
	}
	b.renderList(chatID, st, ub.Dash)
}

func formatDetail(a model.Appointment) string {
	label := lifecycle.LabelFor(a.Status)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Appointment #%d\n", a.ID)
	fmt.Fprintf(&sb, "When: %s\n", a.When())
	fmt.Fprintf(&sb, "Status: %s %s\n", label.Color.Badge(), label.Text)
	if a.DoctorName != "" {
		fmt.Fprintf(&sb, "Doctor: %s\n", a.DoctorName)
	}
	if a.CustomerName != "" {
		fmt.Fprintf(&sb, "Customer: %s\n", a.CustomerName)
	}
	if a.CustomerNote != "" {
		fmt.Fprintf(&sb, "Customer note: %s\n", a.CustomerNote)
	}
	if a.DoctorNote != "" {
		fmt.Fprintf(&sb, "Doctor note: %s\n", a.DoctorNote)
	}
	if a.HasMeetingURL() {
		fmt.Fprintf(&sb, "Meeting: %s\n", a.URL)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) handleSelectCallback(ctx context.Context, chatID, userID int64, data string) {
	id, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return
	}
	ub, ok := b.boardFor(ctx, chatID, userID)
	if !ok {
		return
	}
	ub.Dash.Toggle(id)
	b.renderList(chatID, b.state.get(userID), ub.Dash)
}

func (b *Bot) handleSelectAllCallback(ctx context.Context, chatID, userID int64) {
	ub, ok := b.boardFor(ctx, chatID, userID)
	if !ok {
		return
	}
	ub.Dash.SelectAll()
	b.renderList(chatID, b.state.get(userID), ub.Dash)
}

func (b *Bot) handlePageCallback(ctx context.Context, chatID, userID int64, data string) {
	n, err := strconv.Atoi(data)
	if err != nil {
		return
	}
	ub, ok := b.boardFor(ctx, chatID, userID)
	if !ok {
		return
	}
	ub.Dash.SetPage(n)
	b.renderList(chatID, b.state.get(userID), ub.Dash)
}

func (b *Bot) handleRefreshCallback(ctx context.Context, chatID, userID int64) {
	ub, ok := b.boardFor(ctx, chatID, userID)
	if !ok {
		return
	}
	if err := ub.Dash.Refresh(ctx); err != nil && !errors.Is(err, dashboard.ErrStale) {
		ub.Toasts.Notify(dashboard.LevelError, "Could not reload appointments.")
	}
	b.renderList(chatID, b.state.get(userID), ub.Dash)
}

func (b *Bot) handleFilter(ctx context.Context, chatID, userID int64, args []string) {
	f, err := parseFilter(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	ub, ok := b.boardFor(ctx, chatID, userID)
	if !ok {
		return
	}
	if !ub.Dash.Loaded() {
		if err := ub.Dash.Refresh(ctx); err != nil && !errors.Is(err, dashboard.ErrStale) {
			b.backendError(ctx, chatID, userID, "load appointments", err)
			return
		}
	}
	ub.Dash.SetFilter(f)
	st := b.state.get(userID)
	st.ListMessageID = 0
	b.renderList(chatID, st, ub.Dash)
}

func (b *Bot) handleClearFilter(ctx context.Context, chatID, userID int64) {
	b.handleFilter(ctx, chatID, userID, nil)
}

// parseFilter reads key=value pairs. Keys: status, slot, q (or search),
// from, to. Dates use dd/mm/yyyy or yyyy-mm-dd.
func parseFilter(args []string) (listing.Filter, error) {
	var f listing.Filter
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if !ok || val == "" {
			return f, fmt.Errorf("expected key=value, got %q", arg)
		}
		switch strings.ToLower(key) {
		case "status":
			f.Status = model.ParseStatus(val)
		case "slot":
			f.Slot = model.Slot(strings.ToUpper(val))
		case "q", "search":
			if f.Search != "" {
				f.Search += " "
			}
			f.Search += val
		case "from", "to":
			d, err := model.ParseDate(val)
			if err != nil {
				return f, fmt.Errorf("%s: %w", key, err)
			}
			if strings.EqualFold(key, "from") {
				f.From = d
			} else {
				f.To = d
			}
		default:
			return f, fmt.Errorf("unknown filter %q (use status, slot, q, from, to)", key)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, errors.New("'to' is before 'from'")
	}
	return f, nil
}

func describeFilter(f listing.Filter) string {
	var parts []string
	if f.Status != "" {
		parts = append(parts, "status "+lifecycle.LabelFor(f.Status).Text)
	}
	if f.Slot != "" {
		parts = append(parts, "slot "+string(f.Slot))
	}
	if f.Search != "" {
		parts = append(parts, fmt.Sprintf("%q", f.Search))
	}
	if !f.From.IsZero() {
		parts = append(parts, "from "+f.From.String())
	}
	if !f.To.IsZero() {
		parts = append(parts, "to "+f.To.String())
	}
	return strings.Join(parts, ", ")
}
