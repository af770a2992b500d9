package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clinicdesk/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

const reminderHour = 9

// Telegram allows about 30 messages per second across chats.
const (
	reminderRate  = 20
	reminderBurst = 30
)

// StartReminders sends every signed-in user a digest of tomorrow's
// appointments each day at 09:00 local time.
func (b *Bot) StartReminders(ctx context.Context) {
	if b == nil || b.tg == nil {
		return
	}

	go func() {
		timer := time.NewTimer(timeUntilNextHour(time.Now(), reminderHour))
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				b.sendTomorrowReminders(ctx, time.Now())
				timer.Reset(timeUntilNextHour(time.Now(), reminderHour))
			}
		}
	}()
}

func (b *Bot) sendTomorrowReminders(ctx context.Context, now time.Time) {
	day := model.DateOf(now).AddDays(1)
	sessions, err := b.sessions.List(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("reminder: list sessions")
		return
	}
	limiter := rate.NewLimiter(reminderRate, reminderBurst)
	for userID, sess := range sessions {
		if sess.Expired(now) {
			continue
		}
		records, err := b.backends(sess.Token).ListAppointments(ctx, sess.Role)
		if err != nil {
			b.logger.Warn().Err(err).Int64("user_id", userID).Msg("reminder: list appointments")
			continue
		}
		due := dueOn(records, day)
		if len(due) == 0 {
			continue
		}
		// Sessions saved before chat ids were recorded come from private
		// chats, where the chat id is the user id.
		chatID := sess.ChatID
		if chatID == 0 {
			chatID = userID
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if _, err := b.tg.Send(tgbotapi.NewMessage(chatID, formatReminder(day, due, sess.Role))); err != nil {
			b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("reminder: send")
		}
	}
}

// dueOn returns the open appointments on day.
func dueOn(records []model.Appointment, day model.Date) []model.Appointment {
	var out []model.Appointment
	for _, a := range records {
		if a.Date.Equal(day) && !a.Status.IsTerminal() {
			out = append(out, a)
		}
	}
	return out
}

func formatReminder(day model.Date, due []model.Appointment, role model.Role) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Reminder: %d appointment(s) tomorrow, %s:\n", len(due), day)
	for _, a := range due {
		who := a.DoctorName
		if role != model.RoleCustomer {
			who = a.CustomerName
		}
		fmt.Fprintf(&sb, "#%d %s", a.ID, a.When())
		if who != "" {
			fmt.Fprintf(&sb, " with %s", who)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func timeUntilNextHour(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
