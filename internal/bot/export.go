package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"clinicdesk/internal/dashboard"
	"clinicdesk/internal/export"
	"clinicdesk/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// handleExport sends the filtered list as a spreadsheet. When rows are
// selected only those are exported.
func (b *Bot) handleExport(ctx context.Context, chatID, userID int64) {
	ub, ok := b.boardFor(ctx, chatID, userID)
	if !ok {
		return
	}
	sess := ub.Dash.Session()
	if !sess.Role.CanExport() {
		b.reply(chatID, "Export is available to doctors and clinic staff.")
		return
	}
	if !ub.Dash.Loaded() {
		if err := ub.Dash.Refresh(ctx); err != nil && !errors.Is(err, dashboard.ErrStale) {
			b.backendError(ctx, chatID, userID, "load appointments", err)
			return
		}
	}

	rows := ub.Dash.Filtered()
	if selected := ub.Dash.SelectedIDs(); len(selected) > 0 {
		rows = slices.DeleteFunc(rows, func(a model.Appointment) bool {
			return !slices.Contains(selected, a.ID)
		})
	}
	if len(rows) == 0 {
		b.reply(chatID, "Nothing to export.")
		return
	}

	var requests []model.RescheduleRequest
	if sess.Role == model.RoleDoctor {
		list, err := b.backends(sess.Token).ListReschedule(ctx, 0)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("export without reschedule requests")
		} else {
			requests = list
		}
	}

	var buf bytes.Buffer
	if err := export.Workbook(&buf, rows, requests); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("build export")
		b.reply(chatID, "Could not build the export.")
		return
	}
	name := fmt.Sprintf("appointments_%s.xlsx", time.Now().Format("20060102_1504"))
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: buf.Bytes()})
	doc.Caption = fmt.Sprintf("%d appointment(s)", len(rows))
	if _, err := b.tg.Send(doc); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("send export")
		b.reply(chatID, "Could not send the export.")
		return
	}
	zerolog.Ctx(ctx).Info().Int("rows", len(rows)).Int("requests", len(requests)).Msg("export sent")
}
