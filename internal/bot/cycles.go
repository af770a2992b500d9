package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"clinicdesk/internal/cycle"
	"clinicdesk/internal/model"
	"clinicdesk/internal/session"
)

const forecastPeriods = 3

const cycleUsage = "Usage: /cycle_add <start dd/mm/yyyy> <period days> <cycle days>"

// customerSession is sessionFor restricted to patients.
func (b *Bot) customerSession(ctx context.Context, chatID, userID int64) (*session.Session, bool) {
	sess, ok := b.sessionFor(ctx, chatID, userID)
	if !ok {
		return nil, false
	}
	if sess.Role != model.RoleCustomer {
		b.reply(chatID, "This section is for patients.")
		return nil, false
	}
	return sess, true
}

func (b *Bot) handleCycles(ctx context.Context, chatID, userID int64) {
	sess, ok := b.customerSession(ctx, chatID, userID)
	if !ok {
		return
	}
	cycles, err := cycle.NewTracker(b.backends(sess.Token)).List(ctx)
	if err != nil {
		b.backendError(ctx, chatID, userID, "load cycles", err)
		return
	}
	b.reply(chatID, formatCycles(cycles))
}

func formatCycles(cycles []model.MenstrualCycle) string {
	if len(cycles) == 0 {
		return "No cycles recorded yet.\nAdd one: /cycle_add <start dd/mm/yyyy> <period days> <cycle days>"
	}
	var sb strings.Builder
	sb.WriteString("Recorded cycles:\n")
	for _, c := range cycles {
		fmt.Fprintf(&sb, "#%d %s - %s, cycle %d days\n", c.ID, c.StartDate, c.PeriodEnd(), c.Cycle)
	}
	windows, err := cycle.Predict(cycles, forecastPeriods)
	if err != nil {
		sb.WriteString("\nThe latest record is incomplete, no forecast.")
		return sb.String()
	}
	sb.WriteString("\nForecast:\n")
	for _, w := range windows {
		fmt.Fprintf(&sb, "%s - %s (ovulation ~%s)\n", w.Start, w.End, w.Ovulation)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) handleCycleAdd(ctx context.Context, chatID, userID int64, args []string) {
	sess, ok := b.customerSession(ctx, chatID, userID)
	if !ok {
		return
	}
	c, ok := parseCycle(args)
	if !ok {
		b.reply(chatID, cycleUsage)
		return
	}
	c.AccountID = sess.AccountID
	created, err := cycle.NewTracker(b.backends(sess.Token)).Add(ctx, c)
	switch {
	case errors.Is(err, cycle.ErrInvalid):
		b.reply(chatID, "Period must be 1-15 days and the cycle 20-40 days.")
		return
	case err != nil:
		b.backendError(ctx, chatID, userID, "save the cycle", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Cycle #%d starting %s saved.", created.ID, created.StartDate))
}

func parseCycle(args []string) (model.MenstrualCycle, bool) {
	if len(args) != 3 {
		return model.MenstrualCycle{}, false
	}
	start, err := model.ParseDate(args[0])
	if err != nil {
		return model.MenstrualCycle{}, false
	}
	duration, err1 := strconv.Atoi(args[1])
	length, err2 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil {
		return model.MenstrualCycle{}, false
	}
	return model.MenstrualCycle{StartDate: start, Duration: duration, Cycle: length}, true
}

func (b *Bot) handleCycleDelete(ctx context.Context, chatID, userID int64, args []string) {
	sess, ok := b.customerSession(ctx, chatID, userID)
	if !ok {
		return
	}
	if len(args) != 1 {
		b.reply(chatID, "Usage: /cycle_del <id>")
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		b.reply(chatID, "Usage: /cycle_del <id>")
		return
	}
	if err := cycle.NewTracker(b.backends(sess.Token)).Delete(ctx, id); err != nil {
		b.backendError(ctx, chatID, userID, "delete the cycle", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Cycle #%d deleted.", id))
}
