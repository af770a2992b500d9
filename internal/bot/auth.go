package bot

import (
	"context"
	"errors"
	"fmt"

	"clinicdesk/internal/clinicapi"
	"clinicdesk/internal/dashboard"
	"clinicdesk/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func (b *Bot) handleLogin(ctx context.Context, msg *tgbotapi.Message, args []string) {
	chatID, userID := msg.Chat.ID, msg.From.ID
	// The message carries a password; drop it from the chat history.
	_, _ = b.tg.Request(tgbotapi.NewDeleteMessage(chatID, msg.MessageID))

	if len(args) != 2 {
		b.reply(chatID, "Usage: /login <email> <password>")
		return
	}
	resp, err := b.auth.Login(ctx, args[0], args[1])
	if err != nil {
		if clinicapi.IsUnauthorized(err) {
			b.reply(chatID, "Wrong email or password.")
			return
		}
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("login failed")
		b.reply(chatID, "Sign-in is unavailable right now, try again later.")
		return
	}
	sess, err := session.FromLogin(resp)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg("login without usable role")
		b.reply(chatID, "This account has no role this bot supports.")
		return
	}
	sess.ChatID = chatID
	if err := b.sessions.Put(ctx, userID, sess); err != nil {
		if errors.Is(err, session.ErrExpired) {
			zerolog.Ctx(ctx).Warn().Int64("user_id", userID).Time("expires_at", sess.ExpiresAt).Msg("login token already expired")
			b.reply(chatID, "This sign-in has already expired. Check your device clock and try again.")
			return
		}
		zerolog.Ctx(ctx).Error().Err(err).Msg("store session")
		b.reply(chatID, "Could not keep your session, try again.")
		return
	}
	b.state.reset(userID)
	zerolog.Ctx(ctx).Info().Int64("user_id", userID).Int64("account_id", sess.AccountID).Str("role", string(sess.Role)).Msg("signed in")
	b.reply(chatID, fmt.Sprintf("Signed in as %s (%s).", sess.DisplayName, sess.Role))
	b.sendMainMenu(chatID, sess.Role)
}

func (b *Bot) handleLogout(ctx context.Context, chatID, userID int64) {
	if err := b.sessions.Delete(ctx, userID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("delete session")
	}
	b.state.reset(userID)
	msg := tgbotapi.NewMessage(chatID, "Signed out.")
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	_, _ = b.tg.Send(msg)
}

// sessionFor returns the caller's session or tells them to sign in.
func (b *Bot) sessionFor(ctx context.Context, chatID, userID int64) (*session.Session, bool) {
	sess, err := b.sessions.Get(ctx, userID)
	if err == nil {
		return sess, true
	}
	if !errors.Is(err, session.ErrNotFound) {
		zerolog.Ctx(ctx).Error().Err(err).Msg("load session")
	}
	b.reply(chatID, "Please sign in first: /login <email> <password>")
	return nil, false
}

// boardFor returns the caller's dashboard, creating it on first use or when
// the session token changed.
func (b *Bot) boardFor(ctx context.Context, chatID, userID int64) (*userDashboard, bool) {
	sess, ok := b.sessionFor(ctx, chatID, userID)
	if !ok {
		return nil, false
	}
	if ub := b.state.board(userID); ub != nil && ub.Token == sess.Token {
		if size := b.uiSettings().Size(); ub.Dash.PageSize() != size {
			ub.Dash.SetPageSize(size)
		}
		return ub, true
	}

	ui := b.uiSettings()
	toasts := newChatToasts(b.tg, chatID, ui.ToastTTL())
	ub := &userDashboard{
		ChatID: chatID,
		Token:  sess.Token,
		Toasts: toasts,
		Dash: dashboard.New(*sess, b.backends(sess.Token), dashboard.Options{
			PageSize: ui.Size(),
			Notifier: toasts,
			Bus:      b.bus,
			Logger:   b.logger,
		}),
	}
	b.state.setBoard(userID, ub)
	return ub, true
}

// backendError reports a failed backend call. An expired token ends the
// session.
func (b *Bot) backendError(ctx context.Context, chatID, userID int64, what string, err error) {
	if clinicapi.IsUnauthorized(err) {
		_ = b.sessions.Delete(ctx, userID)
		b.state.reset(userID)
		b.reply(chatID, "Your session has expired. Please /login again.")
		return
	}
	zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg(what)
	if apiErr, ok := clinicapi.IsAPIError(err); ok && apiErr.Message != "" {
		b.reply(chatID, fmt.Sprintf("Could not %s: %s", what, apiErr.Message))
		return
	}
	b.reply(chatID, fmt.Sprintf("Could not %s. Try again later.", what))
}
