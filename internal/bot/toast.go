package bot

import (
	"sync"
	"time"

	"clinicdesk/internal/dashboard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// chatToasts shows dashboard notifications as chat messages and deletes each
// message when its toast expires.
type chatToasts struct {
	tg     telegramClient
	chatID int64
	toasts *dashboard.Toasts

	mu       sync.Mutex
	messages map[int64]int
}

func newChatToasts(tg telegramClient, chatID int64, ttl time.Duration) *chatToasts {
	c := &chatToasts{tg: tg, chatID: chatID, messages: make(map[int64]int)}
	c.toasts = dashboard.NewToasts(ttl, c.dismissed)
	return c
}

// Notify sends the message before the toast timer starts. The id is stored
// under c.mu together with the toast, so dismissed never misses it.
func (c *chatToasts) Notify(level dashboard.Level, message string) dashboard.Toast {
	sent, err := c.tg.Send(tgbotapi.NewMessage(c.chatID, levelIcon(level)+" "+message))

	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.toasts.Notify(level, message)
	if err == nil {
		c.messages[t.ID] = sent.MessageID
	}
	return t
}

func (c *chatToasts) dismissed(t dashboard.Toast) {
	c.mu.Lock()
	msgID, ok := c.messages[t.ID]
	delete(c.messages, t.ID)
	c.mu.Unlock()
	if ok && msgID != 0 {
		_, _ = c.tg.Request(tgbotapi.NewDeleteMessage(c.chatID, msgID))
	}
}

func (c *chatToasts) close() {
	if c != nil {
		c.toasts.Close()
	}
}

func levelIcon(level dashboard.Level) string {
	switch level {
	case dashboard.LevelSuccess:
		return "✅"
	case dashboard.LevelError:
		return "⚠️"
	default:
		return "ℹ️"
	}
}
