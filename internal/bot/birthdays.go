package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"birthday-reminder/internal/dates"
	"birthday-reminder/internal/model"
)

func (b *Bot) handleList(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendBirthdayList(ctx, msg.Chat.ID, user)
}

func (b *Bot) sendBirthdayList(ctx context.Context, chatID int64, user *model.User) error {
	birthdays, err := b.birthdays.ListBirthdays(ctx, user)
	if err != nil {
		return b.replyError(chatID, "list birthdays", err)
	}
	if len(birthdays) == 0 {
		return b.sendText(chatID, "📅 У тебя пока нет сохранённых дней рождения. Добавь первый через /add.")
	}

	today := b.now()
	var builder strings.Builder
	builder.WriteString("📅 <b>Твои дни рождения</b>\n\n")
	for _, bd := range birthdays {
		builder.WriteString(formatBirthday(bd, today))
		builder.WriteString("\n\n")
	}
	return b.sendWithReplyMarkup(chatID, strings.TrimSpace(builder.String()), birthdayListKeyboard(birthdays))
}

func (b *Bot) handleUpcoming(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	upcoming, err := b.birthdays.Upcoming(ctx, user, b.now(), upcomingWindow)
	if err != nil {
		return b.replyError(msg.Chat.ID, "upcoming birthdays", err)
	}
	if len(upcoming) == 0 {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("В ближайшие %d дней дней рождения нет.", upcomingWindow))
	}

	var builder strings.Builder
	builder.WriteString("⏰ <b>Ближайшие дни рождения</b>\n\n")
	for _, u := range upcoming {
		builder.WriteString(fmt.Sprintf("• %s — <b>%s</b> (%s", dates.DisplayDate(u.Birthday.Month, u.Birthday.Day, nil), escape(u.Birthday.Name), daysLeftLabel(u.DaysLeft)))
		if u.Turning != nil && *u.Turning > 0 {
			builder.WriteString(fmt.Sprintf(", исполнится %d", *u.Turning))
		}
		builder.WriteString(")\n")
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

// handleGiftCommand sets gift ideas inline (/gift 3 книга) or starts a prompt (/gift 3).
func (b *Bot) handleGiftCommand(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		return b.sendText(msg.Chat.ID, "Укажи ID записи: /gift 3")
	}
	id, err := parseUint(args[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "ID записи должен быть числом.")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	birthday, err := b.birthdays.GetBirthday(ctx, user, id)
	if err != nil {
		return b.replyError(msg.Chat.ID, "get birthday", err)
	}
	if len(args) > 1 {
		return b.finishEditGifts(ctx, msg, birthday.ID, strings.Join(args[1:], " "))
	}
	return b.startEditGifts(msg.Chat.ID, msg.From.ID, birthday.ID, birthday.Name)
}

func (b *Bot) handleRemindCommand(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return b.sendText(msg.Chat.ID, "Формат: /remind &lt;id&gt; &lt;дни&gt;, например /remind 3 7")
	}
	id, err := parseUint(args[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "ID записи должен быть числом.")
	}
	days, err := strconv.Atoi(args[1])
	if err != nil {
		return b.sendText(msg.Chat.ID, "Количество дней должно быть числом от 0 до 365.")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.addReminder(ctx, msg.Chat.ID, user, id, days)
}

func (b *Bot) handleRemindersCommand(ctx context.Context, msg *tgbotapi.Message) error {
	id, err := parseUint(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID записи: /reminders 3")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.showReminders(ctx, msg.Chat.ID, user, id)
}

func (b *Bot) handleDeleteCommand(ctx context.Context, msg *tgbotapi.Message) error {
	id, err := parseUint(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID записи: /delete 3")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.askDeleteConfirmation(ctx, msg.Chat.ID, user, id)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	b.answerCallback(cb.ID, "")

	data := cb.Data
	chatID := cb.Message.Chat.ID
	b.log.Debug("callback", zap.Int64("from", cb.From.ID), zap.String("data", data))

	user, err := b.ensureUser(ctx, cb.From)
	if err != nil {
		return err
	}

	switch {
	case data == cbList:
		return b.sendBirthdayList(ctx, chatID, user)
	case data == cbCancel:
		return b.sendText(chatID, "↩️ Отменено.")
	case strings.HasPrefix(data, cbBirthdayPrefix):
		id, err := parseUint(strings.TrimPrefix(data, cbBirthdayPrefix))
		if err != nil {
			return nil
		}
		return b.showBirthday(ctx, chatID, user, id)
	case strings.HasPrefix(data, cbGiftsPrefix):
		id, err := parseUint(strings.TrimPrefix(data, cbGiftsPrefix))
		if err != nil {
			return nil
		}
		birthday, err := b.birthdays.GetBirthday(ctx, user, id)
		if err != nil {
			return b.replyError(chatID, "get birthday", err)
		}
		return b.startEditGifts(chatID, cb.From.ID, birthday.ID, birthday.Name)
	case strings.HasPrefix(data, cbRemindersPrefix):
		id, err := parseUint(strings.TrimPrefix(data, cbRemindersPrefix))
		if err != nil {
			return nil
		}
		return b.showReminders(ctx, chatID, user, id)
	case strings.HasPrefix(data, cbAddReminderPrefix):
		id, days, err := parseReminderData(strings.TrimPrefix(data, cbAddReminderPrefix))
		if err != nil {
			return nil
		}
		return b.addReminder(ctx, chatID, user, id, days)
	case strings.HasPrefix(data, cbDeleteReminderPrefix):
		id, err := parseUint(strings.TrimPrefix(data, cbDeleteReminderPrefix))
		if err != nil {
			return nil
		}
		if err := b.birthdays.DeleteReminder(ctx, user, id); err != nil {
			return b.replyError(chatID, "delete reminder", err)
		}
		return b.sendText(chatID, "🗑 Напоминание удалено.")
	case strings.HasPrefix(data, cbDeletePrefix):
		id, err := parseUint(strings.TrimPrefix(data, cbDeletePrefix))
		if err != nil {
			return nil
		}
		return b.askDeleteConfirmation(ctx, chatID, user, id)
	case strings.HasPrefix(data, cbConfirmDeletePrefix):
		id, err := parseUint(strings.TrimPrefix(data, cbConfirmDeletePrefix))
		if err != nil {
			return nil
		}
		return b.deleteBirthday(ctx, chatID, user, id)
	default:
		return nil
	}
}

func (b *Bot) showBirthday(ctx context.Context, chatID int64, user *model.User, id uint) error {
	birthday, err := b.birthdays.GetBirthday(ctx, user, id)
	if err != nil {
		return b.replyError(chatID, "get birthday", err)
	}
	return b.sendWithReplyMarkup(chatID, formatBirthday(*birthday, b.now()), birthdayActionsKeyboard(birthday.ID))
}

func (b *Bot) showReminders(ctx context.Context, chatID int64, user *model.User, id uint) error {
	birthday, err := b.birthdays.GetBirthday(ctx, user, id)
	if err != nil {
		return b.replyError(chatID, "get birthday", err)
	}
	reminders, err := b.birthdays.ListReminders(ctx, user, id)
	if err != nil {
		return b.replyError(chatID, "list reminders", err)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🔔 <b>Напоминания для %s</b>\n\n", escape(birthday.Name)))
	if len(reminders) == 0 {
		builder.WriteString("Напоминания не настроены.\n")
	}
	for _, r := range reminders {
		builder.WriteString(fmt.Sprintf("• %s\n", reminderLabel(r.DaysBefore)))
	}
	builder.WriteString("\nВыбери, за сколько дней напомнить ещё:")
	return b.sendWithReplyMarkup(chatID, builder.String(), reminderKeyboard(birthday.ID, reminders))
}

func (b *Bot) addReminder(ctx context.Context, chatID int64, user *model.User, birthdayID uint, days int) error {
	reminder, err := b.birthdays.AddReminder(ctx, user, birthdayID, days)
	if err != nil {
		return b.replyError(chatID, "add reminder", err)
	}
	b.log.Info("reminder added",
		zap.Uint("id", reminder.ID),
		zap.Uint("birthday", birthdayID),
		zap.Int("days_before", days))
	return b.sendText(chatID, fmt.Sprintf("✅ Напоминание %s добавлено!", reminderLabel(days)))
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, user *model.User, id uint) error {
	birthday, err := b.birthdays.GetBirthday(ctx, user, id)
	if err != nil {
		return b.replyError(chatID, "get birthday", err)
	}
	text := fmt.Sprintf("Удалить день рождения «%s» (#%d) вместе с напоминаниями?", escape(birthday.Name), birthday.ID)
	return b.sendWithReplyMarkup(chatID, text, confirmDeleteKeyboard(birthday.ID))
}

func (b *Bot) deleteBirthday(ctx context.Context, chatID int64, user *model.User, id uint) error {
	birthday, err := b.birthdays.GetBirthday(ctx, user, id)
	if err != nil {
		return b.replyError(chatID, "get birthday", err)
	}
	if err := b.birthdays.DeleteBirthday(ctx, user, id); err != nil {
		return b.replyError(chatID, "delete birthday", err)
	}
	b.log.Info("birthday deleted", zap.Uint("id", id), zap.Uint("user", user.ID))
	return b.sendText(chatID, fmt.Sprintf("🗑 День рождения «%s» удалён.", escape(birthday.Name)))
}

// formatBirthday renders one record for lists and detail views.
func formatBirthday(bd model.Birthday, today time.Time) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🎂 <b>%s</b> · #%d\n", escape(bd.Name), bd.ID))
	builder.WriteString("📅 " + dates.DisplayDate(bd.Month, bd.Day, bd.Year))
	if age := dates.Age(bd.Month, bd.Day, bd.Year, today); age != nil {
		builder.WriteString(fmt.Sprintf(" (%d %s)", *age, dates.PluralYears(*age)))
	}
	builder.WriteByte('\n')

	switch left := dates.DaysUntilNextOccurrence(bd.Month, bd.Day, today); left {
	case 0:
		builder.WriteString("🎉 <b>СЕГОДНЯ ДЕНЬ РОЖДЕНИЯ!</b>")
	case 1:
		builder.WriteString("🔥 <b>Завтра день рождения!</b>")
	default:
		builder.WriteString(fmt.Sprintf("⏰ Через %d %s", left, dates.PluralDays(left)))
	}

	if gifts := strings.TrimSpace(bd.GiftIdeas); gifts != "" {
		builder.WriteString("\n🎁 Идеи подарков: " + escape(gifts))
	}
	return builder.String()
}

func daysLeftLabel(days int) string {
	switch days {
	case 0:
		return "сегодня"
	case 1:
		return "завтра"
	default:
		return fmt.Sprintf("через %d %s", days, dates.PluralDays(days))
	}
}

func reminderLabel(days int) string {
	if days == 0 {
		return "в день рождения"
	}
	return fmt.Sprintf("за %d %s", days, dates.PluralDays(days))
}

func presetLabel(days int) string {
	if days == 0 {
		return "В день"
	}
	return fmt.Sprintf("%d %s", days, dates.PluralDays(days))
}

func parseUint(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

// parseReminderData reads "<birthday id>:<days>".
func parseReminderData(raw string) (uint, int, error) {
	idPart, daysPart, ok := strings.Cut(raw, ":")
	if !ok {
		return 0, 0, fmt.Errorf("malformed reminder data %q", raw)
	}
	id, err := parseUint(idPart)
	if err != nil {
		return 0, 0, err
	}
	days, err := strconv.Atoi(daysPart)
	if err != nil {
		return 0, 0, err
	}
	return id, days, nil
}
