package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"clinicdesk/internal/clinicapi"
	"clinicdesk/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func (b *Bot) handleTests(ctx context.Context, chatID, userID int64) {
	sess, ok := b.customerSession(ctx, chatID, userID)
	if !ok {
		return
	}
	backend := b.backends(sess.Token)
	panels, err := backend.ListPanels(ctx)
	if err != nil {
		b.backendError(ctx, chatID, userID, "load test panels", err)
		return
	}
	orders, err := backend.ListExaminations(ctx)
	if err != nil {
		b.backendError(ctx, chatID, userID, "load your tests", err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, formatTests(panels, orders))
	if len(panels) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(panels))
		for _, p := range panels {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s · %.2f", p.Name, p.Price), fmt.Sprintf("%s:%d", cbPanel, p.ID),
			)))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	_, _ = b.tg.Send(msg)
}

func formatTests(panels []model.Panel, orders []model.Examination) string {
	var sb strings.Builder
	if len(orders) == 0 {
		sb.WriteString("You have no test orders.\n")
	} else {
		sb.WriteString("Your tests:\n")
		for _, o := range orders {
			name := o.PanelName
			if name == "" {
				name = fmt.Sprintf("panel #%d", o.PanelID)
			}
			fmt.Fprintf(&sb, "#%d %s on %s (%s): %s", o.ID, name, o.Date, o.Slot, o.Status)
			if o.Result != "" {
				fmt.Fprintf(&sb, ", result: %s", o.Result)
			}
			sb.WriteString("\n")
		}
	}
	if len(panels) == 0 {
		sb.WriteString("\nNo panels can be ordered right now.")
	} else {
		sb.WriteString("\nPick a panel to order:")
	}
	return sb.String()
}

func (b *Bot) handlePanelCallback(ctx context.Context, chatID, userID int64, data string) {
	id, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return
	}
	if _, ok := b.customerSession(ctx, chatID, userID); !ok {
		return
	}
	st := b.state.get(userID)
	st.resetFlow()
	st.PanelID = id
	st.Step = stepTestDate

	first := tomorrow()
	msg := tgbotapi.NewMessage(chatID, "Pick a date for the test:")
	msg.ReplyMarkup = GenerateCalendarKeyboard(first.Time().Year(), first.Time().Month(), cbTestDate, first)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handleTestDate(ctx context.Context, chatID, userID int64, data string) {
	st := b.state.get(userID)
	if st.PanelID == 0 || st.Step != stepTestDate {
		b.reply(chatID, "This order has expired. Open /tests again.")
		return
	}
	date, err := model.ParseDate(data)
	if err != nil || date.Before(tomorrow()) {
		b.reply(chatID, "Pick a future date.")
		return
	}
	sess, ok := b.customerSession(ctx, chatID, userID)
	if !ok {
		return
	}
	slots, err := b.backends(sess.Token).ListSlots(ctx)
	if err != nil {
		b.backendError(ctx, chatID, userID, "load slots", err)
		return
	}
	st.TestDate = date
	st.Step = stepTestSlot
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("%s: pick a slot.", date))
	msg.ReplyMarkup = GenerateSlotKeyboard(slots, cbTestSlot)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handleTestSlot(ctx context.Context, chatID, userID int64, data string) {
	st := b.state.get(userID)
	if st.PanelID == 0 || st.Step != stepTestSlot {
		b.reply(chatID, "This order has expired. Open /tests again.")
		return
	}
	sess, ok := b.customerSession(ctx, chatID, userID)
	if !ok {
		return
	}
	order := clinicapi.OrderRequest{PanelID: st.PanelID, Date: st.TestDate, Slot: model.Slot(data)}
	exam, err := b.backends(sess.Token).OrderExamination(ctx, order)
	if err != nil {
		b.backendError(ctx, chatID, userID, "order the test", err)
		return
	}
	st.resetFlow()
	zerolog.Ctx(ctx).Info().Int64("examination_id", exam.ID).Int64("panel_id", order.PanelID).Msg("test ordered")
	b.reply(chatID, fmt.Sprintf("Test ordered for %s (%s). Order #%d.", order.Date, order.Slot, exam.ID))
}
