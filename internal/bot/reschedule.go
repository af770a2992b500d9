package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"clinicdesk/internal/dashboard"
	"clinicdesk/internal/events"
	"clinicdesk/internal/lifecycle"
	"clinicdesk/internal/metrics"
	"clinicdesk/internal/model"
	"clinicdesk/internal/reschedule"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// maxListedRequests caps how many requests /requests prints.
const maxListedRequests = 10

type decision string

const (
	decisionApprove decision = "approved"
	decisionReject  decision = "rejected"
	decisionCancel  decision = "cancelled"
)

func tomorrow() model.Date {
	return model.DateOf(time.Now()).AddDays(1)
}

func (b *Bot) startReschedule(chatID int64, st *userState, res dashboard.Result) {
	st.resetFlow()
	st.Workflow = res.Workflow
	st.Step = stepRescheduleDate

	first := tomorrow()
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Reschedule appointment #%d (now %s).\nPropose up to %d date and slot options. Pick a date:",
		res.Appointment.ID, res.Appointment.When(), model.MaxRescheduleOptions))
	msg.ReplyMarkup = GenerateCalendarKeyboard(first.Time().Year(), first.Time().Month(), cbRescheduleDate, first)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handleCalendarNav(ctx context.Context, chatID, userID int64, data string) {
	prefix, month, ok := strings.Cut(data, ":")
	if !ok {
		return
	}
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return
	}
	st := b.state.get(userID)
	switch {
	case prefix == cbRescheduleDate && st.Step == stepRescheduleDate:
	case prefix == cbTestDate && st.Step == stepTestDate:
	default:
		zerolog.Ctx(ctx).Debug().Str("prefix", prefix).Str("step", string(st.Step)).Msg("stale calendar")
		return
	}
	msg := tgbotapi.NewMessage(chatID, "Pick a date:")
	msg.ReplyMarkup = GenerateCalendarKeyboard(t.Year(), t.Month(), prefix, tomorrow())
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handleRescheduleDate(ctx context.Context, chatID, userID int64, data string) {
	st := b.state.get(userID)
	if st.Workflow == nil || st.Step != stepRescheduleDate {
		b.reply(chatID, "This reschedule has expired. Open /appointments and start again.")
		return
	}
	date, err := model.ParseDate(data)
	if err != nil || date.Before(tomorrow()) {
		b.reply(chatID, "Pick a future date.")
		return
	}
	sess, ok := b.sessionFor(ctx, chatID, userID)
	if !ok {
		return
	}
	slots, err := b.backends(sess.Token).ListSlots(ctx)
	if err != nil {
		b.backendError(ctx, chatID, userID, "load slots", err)
		return
	}
	st.PendingDate = date
	st.Step = stepRescheduleSlot
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("%s: pick a slot.", date))
	msg.ReplyMarkup = GenerateSlotKeyboard(slots, cbRescheduleSlot)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handleRescheduleSlot(ctx context.Context, chatID, userID int64, data string) {
	st := b.state.get(userID)
	if st.Workflow == nil || st.Step != stepRescheduleSlot {
		b.reply(chatID, "This reschedule has expired. Open /appointments and start again.")
		return
	}
	sess, ok := b.sessionFor(ctx, chatID, userID)
	if !ok {
		return
	}
	slot := model.Slot(data)
	slots, err := b.backends(sess.Token).ListSlots(ctx)
	if err != nil {
		b.backendError(ctx, chatID, userID, "load slots", err)
		return
	}
	timeRange, known := slotRange(slots, slot)
	if !known {
		b.reply(chatID, "Unknown slot, pick one from the list.")
		return
	}
	if err := st.Workflow.AddOption(st.PendingDate, slot, timeRange); err != nil {
		b.reply(chatID, err.Error())
	}
	st.Step = stepNone
	b.sendOptions(chatID, st)
}

func (b *Bot) sendOptions(chatID int64, st *userState) {
	opts := st.Workflow.Options()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Proposed options (%d of %d):\n", len(opts), model.MaxRescheduleOptions)
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(opts)+2)
	for i, o := range opts {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, optionText(o))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 %d. %s", i+1, optionText(o)), fmt.Sprintf("%s:%d", cbRescheduleRemove, i)),
		))
	}
	var controls []tgbotapi.InlineKeyboardButton
	if len(opts) < model.MaxRescheduleOptions {
		controls = append(controls, tgbotapi.NewInlineKeyboardButtonData("➕ Add option", cbRescheduleAdd))
	}
	if len(opts) > 0 {
		controls = append(controls, tgbotapi.NewInlineKeyboardButtonData("✅ Done", cbRescheduleDone))
	}
	controls = append(controls, tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", cbAbort))
	rows = append(rows, controls)

	msg := tgbotapi.NewMessage(chatID, strings.TrimRight(sb.String(), "\n"))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handleRescheduleAdd(chatID, userID int64) {
	st := b.state.get(userID)
	if st.Workflow == nil || st.Workflow.State() != reschedule.StateComposing {
		return
	}
	if len(st.Workflow.Options()) >= model.MaxRescheduleOptions {
		b.reply(chatID, reschedule.ErrTooManyOptions.Error())
		return
	}
	st.Step = stepRescheduleDate
	first := tomorrow()
	msg := tgbotapi.NewMessage(chatID, "Pick a date:")
	msg.ReplyMarkup = GenerateCalendarKeyboard(first.Time().Year(), first.Time().Month(), cbRescheduleDate, first)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handleRescheduleRemove(chatID, userID int64, data string) {
	st := b.state.get(userID)
	i, err := strconv.Atoi(data)
	if st.Workflow == nil || err != nil {
		return
	}
	if err := st.Workflow.RemoveOption(i); err != nil {
		b.reply(chatID, err.Error())
		return
	}
	b.sendOptions(chatID, st)
}

func (b *Bot) handleRescheduleDone(chatID, userID int64) {
	st := b.state.get(userID)
	if st.Workflow == nil {
		return
	}
	if len(st.Workflow.Options()) == 0 {
		b.reply(chatID, reschedule.ErrNoOptions.Error())
		return
	}
	st.Step = stepRescheduleNote
	b.reply(chatID, fmt.Sprintf("Why do you need to reschedule? Send a short reason (required, up to %d characters).", model.MaxRescheduleNoteLen))
}

func (b *Bot) handleRescheduleNote(ctx context.Context, chatID, userID int64, st *userState, text string) {
	if st.Workflow == nil {
		st.resetFlow()
		return
	}
	if err := st.Workflow.SetNote(text); err != nil {
		b.reply(chatID, err.Error())
		return
	}
	sess, ok := b.sessionFor(ctx, chatID, userID)
	if !ok {
		return
	}
	err := st.Workflow.Submit(ctx, b.backends(sess.Token))
	switch {
	case isWorkflowError(err):
		b.reply(chatID, err.Error())
		return
	case err != nil:
		b.backendError(ctx, chatID, userID, "send the reschedule request", err)
		return
	}

	req := st.Workflow.Request()
	metrics.IncRescheduleDecision("submitted")
	b.bus.Publish(events.Event{
		Type:          events.TypeRescheduleDecision,
		AccountID:     sess.AccountID,
		AppointmentID: req.AppointmentID,
		RequestID:     req.ID,
		Action:        "submitted",
	})
	zerolog.Ctx(ctx).Info().Int64("appointment_id", req.AppointmentID).Int64("request_id", req.ID).Msg("reschedule requested")
	b.reply(chatID, fmt.Sprintf("Reschedule request sent with %d option(s). The doctor will pick one.", len(req.Options)))
	st.resetFlow()
}

func (b *Bot) handleRequests(ctx context.Context, chatID, userID int64) {
	sess, ok := b.sessionFor(ctx, chatID, userID)
	if !ok {
		return
	}
	list, err := b.backends(sess.Token).ListReschedule(ctx, 0)
	if err != nil {
		b.backendError(ctx, chatID, userID, "load reschedule requests", err)
		return
	}
	sorted := reschedule.SortByCreatedDesc(list)
	st := b.state.get(userID)
	st.Requests = make(map[int64]model.RescheduleRequest, len(sorted))
	for _, r := range sorted {
		st.Requests[r.ID] = r
	}

	text, markup := formatRequests(sorted, sess.Role)
	msg := tgbotapi.NewMessage(chatID, text)
	if len(markup.InlineKeyboard) > 0 {
		msg.ReplyMarkup = markup
	}
	_, _ = b.tg.Send(msg)
}

func formatRequests(reqs []model.RescheduleRequest, role model.Role) (string, tgbotapi.InlineKeyboardMarkup) {
	sum := reschedule.Summarize(reqs)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Reschedule requests: %d\n", sum.Total)
	parts := make([]string, 0, len(model.RequestStatuses))
	for _, s := range model.RequestStatuses {
		label := lifecycle.RequestLabelFor(s)
		parts = append(parts, fmt.Sprintf("%s %s %d", label.Color.Badge(), label.Text, sum.Counts[s]))
	}
	sb.WriteString(strings.Join(parts, " · "))
	sb.WriteString("\n")

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, r := range reqs {
		if i == maxListedRequests {
			fmt.Fprintf(&sb, "\n…and %d older", len(reqs)-maxListedRequests)
			break
		}
		label := lifecycle.RequestLabelFor(r.Status)
		fmt.Fprintf(&sb, "\n#%d for appointment #%d: %s %s\n", r.ID, r.AppointmentID, label.Color.Badge(), label.Text)
		if r.CustomerNote != "" {
			fmt.Fprintf(&sb, "Reason: %s\n", r.CustomerNote)
		}
		for j, o := range r.Options {
			mark := " "
			if o.IsSelected {
				mark = "✔"
			}
			fmt.Fprintf(&sb, "%s %d. %s\n", mark, j+1, optionText(o))
		}
		if r.Status != model.RequestPending {
			continue
		}
		switch role {
		case model.RoleDoctor:
			for j, o := range r.Options {
				rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("✅ #%d option %d: %s", r.ID, j+1, optionText(o)),
					fmt.Sprintf("%s:%d:%d", cbApprove, r.ID, o.ID),
				)))
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("❌ Reject #%d", r.ID), fmt.Sprintf("%s:%d", cbReject, r.ID),
			)))
		case model.RoleCustomer:
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🚫 Withdraw #%d", r.ID), fmt.Sprintf("%s:%d", cbWithdraw, r.ID),
			)))
		}
	}
	return strings.TrimRight(sb.String(), "\n"), tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (b *Bot) handleDecision(ctx context.Context, chatID, userID int64, d decision, data string) {
	reqStr, optStr, _ := strings.Cut(data, ":")
	reqID, err := strconv.ParseInt(reqStr, 10, 64)
	if err != nil {
		return
	}
	sess, ok := b.sessionFor(ctx, chatID, userID)
	if !ok {
		return
	}
	st := b.state.get(userID)
	req, ok := st.Requests[reqID]
	if !ok {
		b.reply(chatID, "This list is outdated, open /requests again.")
		return
	}

	wf := reschedule.FromRequest(req)
	backend := b.backends(sess.Token)
	switch d {
	case decisionApprove:
		optID, perr := strconv.ParseInt(optStr, 10, 64)
		if perr != nil {
			return
		}
		err = wf.Approve(ctx, sess.Role, backend, optID)
	case decisionReject:
		err = wf.Reject(ctx, sess.Role, backend)
	case decisionCancel:
		err = wf.Cancel(ctx, sess.Role, backend)
	}

	switch {
	case isWorkflowError(err):
		b.reply(chatID, err.Error())
		return
	case err != nil:
		b.backendError(ctx, chatID, userID, "update the request", err)
		return
	}

	metrics.IncRescheduleDecision(string(d))
	b.bus.Publish(events.Event{
		Type:          events.TypeRescheduleDecision,
		AccountID:     sess.AccountID,
		AppointmentID: req.AppointmentID,
		RequestID:     req.ID,
		Action:        string(d),
	})
	zerolog.Ctx(ctx).Info().Int64("request_id", req.ID).Str("decision", string(d)).Msg("reschedule resolved")
	b.reply(chatID, fmt.Sprintf("Request #%d %s.", req.ID, d))

	if ub := b.state.board(userID); ub != nil {
		if err := ub.Dash.Refresh(ctx); err != nil && !errors.Is(err, dashboard.ErrStale) {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("refresh after decision")
		}
	}
	b.handleRequests(ctx, chatID, userID)
}

// workflowErrors are rejected locally and safe to show as they are.
var workflowErrors = []error{
	reschedule.ErrTooManyOptions,
	reschedule.ErrDuplicateOption,
	reschedule.ErrNoOptions,
	reschedule.ErrNoteRequired,
	reschedule.ErrNoteTooLong,
	reschedule.ErrNotComposing,
	reschedule.ErrNotPending,
	reschedule.ErrResolved,
	reschedule.ErrForbidden,
	reschedule.ErrUnknownOption,
	reschedule.ErrInvalidRequest,
}

func isWorkflowError(err error) bool {
	for _, target := range workflowErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func optionText(o model.RescheduleOption) string {
	if o.TimeRange != "" {
		return o.Date.String() + " " + o.TimeRange
	}
	return o.Date.String() + " " + string(o.Slot)
}
