package bot

import (
	"fmt"
	"time"

	"clinicdesk/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var weekdayHeader = []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

// GenerateCalendarKeyboard builds a Monday-first month grid. Day buttons send
// "<prefix>:YYYY-MM-DD"; days before minDate are shown but not selectable.
func GenerateCalendarKeyboard(year int, month time.Month, prefix string, minDate model.Date) tgbotapi.InlineKeyboardMarkup {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	next := first.AddDate(0, 1, 0)

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 9)
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("◀", fmt.Sprintf("%s:%s:%s", cbCalendar, prefix, prev.Format("2006-01"))),
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %d", month, year), cbNoop),
		tgbotapi.NewInlineKeyboardButtonData("▶", fmt.Sprintf("%s:%s:%s", cbCalendar, prefix, next.Format("2006-01"))),
	})

	header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for _, d := range weekdayHeader {
		header = append(header, tgbotapi.NewInlineKeyboardButtonData(d, cbNoop))
	}
	rows = append(rows, header)

	offset := (int(first.Weekday()) + 6) % 7
	days := daysIn(month, year)
	row := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for i := 0; i < offset; i++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", cbNoop))
	}
	for day := 1; day <= days; day++ {
		date := model.NewDate(year, month, day)
		if !minDate.IsZero() && date.Before(minDate) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("·", cbNoop))
		} else {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d", day), prefix+":"+date.Wire()))
		}
		if len(row) == 7 {
			rows = append(rows, row)
			row = make([]tgbotapi.InlineKeyboardButton, 0, 7)
		}
	}
	if len(row) > 0 {
		for len(row) < 7 {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", cbNoop))
		}
		rows = append(rows, row)
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", cbAbort),
	})
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// GenerateSlotKeyboard lists slots two per row; buttons send "<prefix>:<SLOT>".
func GenerateSlotKeyboard(slots []model.SlotInfo, prefix string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(slots)/2+2)
	var current []tgbotapi.InlineKeyboardButton
	for _, s := range slots {
		label := string(s.Slot)
		if s.TimeRange != "" {
			label = s.TimeRange
		}
		current = append(current, tgbotapi.NewInlineKeyboardButtonData(label, prefix+":"+string(s.Slot)))
		if len(current) == 2 {
			rows = append(rows, current)
			current = nil
		}
	}
	if len(current) > 0 {
		rows = append(rows, current)
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", cbAbort),
	})
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func slotRange(slots []model.SlotInfo, slot model.Slot) (string, bool) {
	for _, s := range slots {
		if s.Slot == slot {
			return s.TimeRange, true
		}
	}
	return "", false
}
