package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"clinicdesk/internal/clinicapi"
	"clinicdesk/internal/config"
	"clinicdesk/internal/cycle"
	"clinicdesk/internal/dashboard"
	"clinicdesk/internal/events"
	"clinicdesk/internal/model"
	"clinicdesk/internal/reschedule"
	"clinicdesk/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) Request(msg tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return c.api.Request(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*clinicapi.LoginResponse, error)
}

// Backend is everything a signed-in user can do against the clinic API.
type Backend interface {
	dashboard.Backend
	reschedule.Submitter
	reschedule.Decider
	cycle.Backend
	ListReschedule(ctx context.Context, appointmentID int64) ([]model.RescheduleRequest, error)
	ListSlots(ctx context.Context) ([]model.SlotInfo, error)
	ListPanels(ctx context.Context) ([]model.Panel, error)
	ListExaminations(ctx context.Context) ([]model.Examination, error)
	OrderExamination(ctx context.Context, order clinicapi.OrderRequest) (*model.Examination, error)
}

// BackendFactory returns a backend acting with the given bearer token.
type BackendFactory func(token string) Backend

// ClientFactory adapts a shared API client into a BackendFactory.
func ClientFactory(c *clinicapi.Client) BackendFactory {
	return func(token string) Backend { return c.As(token) }
}

// Deps are the collaborators of the bot.
type Deps struct {
	Auth     Authenticator
	Backends BackendFactory
	Sessions session.Store
	Bus      *events.Bus
	UI       config.UI
	Logger   *zerolog.Logger
}

// Bot is the Telegram front end of the clinic dashboards.
type Bot struct {
	tg       telegramClient
	auth     Authenticator
	backends BackendFactory
	sessions session.Store
	bus      *events.Bus
	state    *stateStore
	logger   *zerolog.Logger

	uiMu sync.RWMutex
	ui   config.UI
}

func New(token string, debug bool, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return newBot(&realTelegramClient{api: api}, deps)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, deps Deps) (*Bot, error) {
	return newBot(tg, deps)
}

func newBot(tg telegramClient, deps Deps) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	if deps.Auth == nil || deps.Backends == nil {
		return nil, fmt.Errorf("auth and backends are required")
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewMemoryStore()
	}
	logger := deps.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Bot{
		tg:       tg,
		auth:     deps.Auth,
		backends: deps.Backends,
		sessions: deps.Sessions,
		bus:      deps.Bus,
		state:    newStateStore(),
		logger:   logger,
		ui:       deps.UI,
	}, nil
}

// SetUI applies reloaded UI settings. Open dashboards pick up the page size
// on their next render.
func (b *Bot) SetUI(ui config.UI) {
	b.uiMu.Lock()
	b.ui = ui
	b.uiMu.Unlock()
	b.logger.Info().Int("page_size", ui.Size()).Dur("toast_ttl", ui.ToastTTL()).Msg("ui settings applied")
}

func (b *Bot) uiSettings() config.UI {
	b.uiMu.RLock()
	defer b.uiMu.RUnlock()
	return b.ui
}

var (
	customerMenu = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAppointments),
			tgbotapi.NewKeyboardButton(btnRequests),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCycles),
			tgbotapi.NewKeyboardButton(btnTests),
		),
	)

	doctorMenu = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAppointments),
			tgbotapi.NewKeyboardButton(btnRequests),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnExport),
		),
	)

	staffMenu = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAppointments),
			tgbotapi.NewKeyboardButton(btnExport),
		),
	)
)

const (
	btnAppointments = "📋 Appointments"
	btnRequests     = "🔁 Reschedule requests"
	btnCycles       = "🩸 Cycles"
	btnTests        = "🧪 Tests"
	btnExport       = "📤 Export"
)

const helpText = `Commands:
/login <email> <password> - sign in
/logout - sign out
/appointments - your appointments
/filter status=BOOKED slot=ONE q=name from=01/07/2025 to=31/07/2025
/clear_filter - show everything again
/requests - reschedule requests
/export - download the filtered list (doctor, staff, admin)
/cycles - recorded cycles and forecast
/cycle_add <start dd/mm/yyyy> <period days> <cycle days>
/cycle_del <id>
/tests - lab panels and your orders
/cancel - abort the current step`

func (b *Bot) sendMainMenu(chatID int64, role model.Role) {
	msg := tgbotapi.NewMessage(chatID, "Choose an action:")
	switch role {
	case model.RoleCustomer:
		msg.ReplyMarkup = customerMenu
	case model.RoleDoctor:
		msg.ReplyMarkup = doctorMenu
	case model.RoleStaff, model.RoleAdmin:
		msg.ReplyMarkup = staffMenu
	default:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
		msg.Text = "Sign in with /login <email> <password>"
	}
	_, _ = b.tg.Send(msg)
}

// Start begins polling updates and handles them until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("clinic bot authorized")

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := clinicapi.WithRequestID(l.WithContext(ctx), requestID)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	if update.CallbackQuery != nil {
		l.Debug().
			Int64("user_id", update.CallbackQuery.From.ID).
			Str("data", update.CallbackQuery.Data).
			Msg("handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil && update.Message.From != nil {
		l.Debug().
			Int64("user_id", update.Message.From.ID).
			Bool("command", update.Message.IsCommand()).
			Msg("handling message")
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	chatID, userID := msg.Chat.ID, msg.From.ID

	switch text {
	case btnAppointments:
		text = "/appointments"
	case btnRequests:
		text = "/requests"
	case btnCycles:
		text = "/cycles"
	case btnTests:
		text = "/tests"
	case btnExport:
		text = "/export"
	}

	if strings.HasPrefix(text, "/") {
		cmd, args := splitCommand(text)
		switch cmd {
		case "/start", "/help":
			b.state.get(userID).resetFlow()
			b.reply(chatID, helpText)
			if sess, err := b.sessions.Get(ctx, userID); err == nil {
				b.sendMainMenu(chatID, sess.Role)
			}
		case "/login":
			b.handleLogin(ctx, msg, args)
		case "/logout":
			b.handleLogout(ctx, chatID, userID)
		case "/cancel":
			b.state.get(userID).resetFlow()
			b.reply(chatID, "Cancelled.")
		case "/appointments":
			b.handleAppointments(ctx, chatID, userID)
		case "/filter":
			b.handleFilter(ctx, chatID, userID, args)
		case "/clear_filter":
			b.handleClearFilter(ctx, chatID, userID)
		case "/requests":
			b.handleRequests(ctx, chatID, userID)
		case "/export":
			b.handleExport(ctx, chatID, userID)
		case "/cycles":
			b.handleCycles(ctx, chatID, userID)
		case "/cycle_add":
			b.handleCycleAdd(ctx, chatID, userID, args)
		case "/cycle_del":
			b.handleCycleDelete(ctx, chatID, userID, args)
		case "/tests":
			b.handleTests(ctx, chatID, userID)
		default:
			b.reply(chatID, "Unknown command. /help lists what I can do.")
		}
		return
	}

	st := b.state.get(userID)
	switch st.Step {
	case stepRescheduleNote:
		b.handleRescheduleNote(ctx, chatID, userID, st, text)
	default:
		b.reply(chatID, "Use the menu or /help.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	data := cq.Data
	_ = b.answerCallback(cq.ID)
	if data == cbNoop || cq.Message == nil {
		return
	}
	chatID, userID := cq.Message.Chat.ID, cq.From.ID

	prefix, rest, _ := strings.Cut(data, ":")
	switch prefix {
	case cbAction:
		b.handleActionCallback(ctx, chatID, userID, rest)
	case cbSelect:
		b.handleSelectCallback(ctx, chatID, userID, rest)
	case cbSelectAll:
		b.handleSelectAllCallback(ctx, chatID, userID)
	case cbPage:
		b.handlePageCallback(ctx, chatID, userID, rest)
	case cbRefresh:
		b.handleRefreshCallback(ctx, chatID, userID)
	case cbCalendar:
		b.handleCalendarNav(ctx, chatID, userID, rest)
	case cbRescheduleDate:
		b.handleRescheduleDate(ctx, chatID, userID, rest)
	case cbRescheduleSlot:
		b.handleRescheduleSlot(ctx, chatID, userID, rest)
	case cbRescheduleAdd:
		b.handleRescheduleAdd(chatID, userID)
	case cbRescheduleRemove:
		b.handleRescheduleRemove(chatID, userID, rest)
	case cbRescheduleDone:
		b.handleRescheduleDone(chatID, userID)
	case cbAbort:
		b.state.get(userID).resetFlow()
		b.reply(chatID, "Cancelled.")
	case cbApprove:
		b.handleDecision(ctx, chatID, userID, decisionApprove, rest)
	case cbReject:
		b.handleDecision(ctx, chatID, userID, decisionReject, rest)
	case cbWithdraw:
		b.handleDecision(ctx, chatID, userID, decisionCancel, rest)
	case cbPanel:
		b.handlePanelCallback(ctx, chatID, userID, rest)
	case cbTestDate:
		b.handleTestDate(ctx, chatID, userID, rest)
	case cbTestSlot:
		b.handleTestSlot(ctx, chatID, userID, rest)
	}
}

// Callback data prefixes.
const (
	cbNoop             = "noop"
	cbAction           = "act"
	cbSelect           = "sel"
	cbSelectAll        = "selall"
	cbPage             = "page"
	cbRefresh          = "refresh"
	cbCalendar         = "cal"
	cbRescheduleDate   = "rdate"
	cbRescheduleSlot   = "rslot"
	cbRescheduleAdd    = "radd"
	cbRescheduleRemove = "rdel"
	cbRescheduleDone   = "rdone"
	cbAbort            = "abort"
	cbApprove          = "rapp"
	cbReject           = "rrej"
	cbWithdraw         = "rcan"
	cbPanel            = "panel"
	cbTestDate         = "tdate"
	cbTestSlot         = "tslot"
)

func splitCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	cmd := fields[0]
	// /cmd@botname in group chats
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), fields[1:]
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) answerCallback(id string) error {
	_, err := b.tg.Request(tgbotapi.NewCallback(id, ""))
	return err
}
