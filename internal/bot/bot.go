package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"birthday-reminder/internal/config"
	"birthday-reminder/internal/dates"
	"birthday-reminder/internal/model"
	"birthday-reminder/internal/repository"
	"birthday-reminder/internal/service"
	"birthday-reminder/internal/session"
)

const (
	upcomingWindow   = 30
	sessionSweepTick = time.Minute
	pollTimeout      = 60
	pollMargin       = 30 * time.Second
)

// telegramAPI is the part of tgbotapi.BotAPI the bot relies on.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	SendContext(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetFileDirectURL(fileID string) (string, error)
}

// Services groups what the conversation layer needs from the domain.
type Services struct {
	Users     *repository.UserRepository
	Birthdays *service.BirthdayService
	Contacts  *service.ContactsService
	Calendar  *service.CalendarService
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api       telegramAPI
	userRepo  *repository.UserRepository
	birthdays *service.BirthdayService
	contacts  *service.ContactsService
	calendar  *service.CalendarService
	sessions  *session.Store[conversation]
	http      *http.Client
	log       *zap.Logger
	now       func() time.Time
}

func New(token string, svc Services, cfg *config.Config, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, newAPIClient())
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info("bot authorized", zap.String("account", api.Self.UserName))
	return newBot(botClient{api}, svc, cfg, log), nil
}

// newAPIClient bounds every Bot API call, long polls included.
func newAPIClient() *http.Client {
	return &http.Client{Timeout: pollTimeout*time.Second + pollMargin}
}

// botClient adds per-call cancellation to tgbotapi.BotAPI.
type botClient struct {
	*tgbotapi.BotAPI
}

// SendContext sends c with the HTTP request bound to ctx.
func (c botClient) SendContext(ctx context.Context, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	api := *c.BotAPI
	api.Client = contextClient{ctx: ctx, client: c.Client}
	return api.Send(msg)
}

type contextClient struct {
	ctx    context.Context
	client tgbotapi.HTTPClient
}

func (c contextClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}

func newBot(api telegramAPI, svc Services, cfg *config.Config, log *zap.Logger) *Bot {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Bot{
		api:       api,
		userRepo:  svc.Users,
		birthdays: svc.Birthdays,
		contacts:  svc.Contacts,
		calendar:  svc.Calendar,
		sessions:  session.NewStore[conversation](cfg.SessionTTL),
		http:      &http.Client{Timeout: 30 * time.Second},
		log:       log.Named("bot"),
		now:       func() time.Time { return time.Now().In(loc) },
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go b.sessions.Run(ctx, sessionSweepTick)
	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.log.Error("handle callback", zap.Error(err))
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error("handle message", zap.Error(err))
		}
	}
}

// SendMessage delivers an HTML message to chatID. The request is aborted when ctx is done.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.SendContext(ctx, msg)
	return err
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.Document != nil {
		return b.handleDocument(ctx, msg)
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.sessions.Delete(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.log.Info("command",
			zap.Int64("from", msg.From.ID),
			zap.String("command", msg.Command()),
			zap.String("args", msg.CommandArguments()))
		return b.handleCommand(ctx, msg)
	}

	if state, ok := b.sessions.Get(msg.From.ID); ok {
		b.log.Debug("conversation step", zap.Int64("from", msg.From.ID), zap.Int("stage", int(state.stage)))
		return b.handleConversation(ctx, msg, state)
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Набери /add, чтобы добавить день рождения, или /help для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "add":
		return b.startAddConversation(ctx, msg)
	case "list":
		return b.handleList(ctx, msg)
	case "upcoming":
		return b.handleUpcoming(ctx, msg)
	case "gift":
		return b.handleGiftCommand(ctx, msg)
	case "remind":
		return b.handleRemindCommand(ctx, msg)
	case "reminders":
		return b.handleRemindersCommand(ctx, msg)
	case "delete":
		return b.handleDeleteCommand(ctx, msg)
	case "export":
		return b.handleExport(ctx, msg)
	case "cancel":
		b.sessions.Delete(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}

	text := fmt.Sprintf(
		"👋 Привет, %s!\n<b>Я помогу не забыть дни рождения близких.</b>\n\n"+
			"Записывай даты, добавляй идеи подарков, а я напомню заранее.\n\n"+
			"Начни с /add или загляни в /help.",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Подсказки</b>\n" +
		"• /add — добавить день рождения пошагово\n" +
		"• /list — все записи с кнопками управления\n" +
		"• /upcoming — дни рождения в ближайшие 30 дней\n" +
		"• /gift &lt;id&gt; — изменить идеи подарков\n" +
		"• /remind &lt;id&gt; &lt;дни&gt; — напомнить за N дней (0 — в день рождения)\n" +
		"• /reminders &lt;id&gt; — напоминания записи\n" +
		"• /delete &lt;id&gt; — удалить запись вместе с напоминаниями\n" +
		"• /export — выгрузить календарь (.ics)\n" +
		"• /cancel — отменить текущий ввод\n\n" +
		"📎 Пришли файл контактов <code>.vcf</code>, и я импортирую дни рождения из него."
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelAdd):
		return true, b.startAddConversation(ctx, msg)
	case strings.ToLower(menuLabelList):
		return true, b.handleList(ctx, msg)
	case strings.ToLower(menuLabelUpcoming):
		return true, b.handleUpcoming(ctx, msg)
	case strings.ToLower(menuLabelExport):
		return true, b.handleExport(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.log.Warn("callback ack", zap.Error(err))
	}
}

// replyError turns a service error into a user-facing reply.
func (b *Bot) replyError(chatID int64, action string, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return b.sendText(chatID, "Запись не найдена.")
	case errors.Is(err, dates.ErrInvalidDate):
		return b.sendText(chatID, "❌ Такой даты не бывает. "+dateFormatsHint)
	case errors.Is(err, service.ErrValidation):
		return b.sendText(chatID, "❌ Проверь введённые данные: имя до 100 символов, идеи подарков до 1000, напоминание от 0 до 365 дней.")
	default:
		b.log.Error(action, zap.Int64("chat", chatID), zap.Error(err))
		return b.sendText(chatID, "Что-то пошло не так. Попробуй ещё раз позже.")
	}
}

func escape(s string) string {
	return html.EscapeString(s)
}
