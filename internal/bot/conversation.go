package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"birthday-reminder/internal/dates"
	"birthday-reminder/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageName
	stageDate
	stageGiftIdeas
	stageEditGifts
)

// conversation is the per-owner state of a multi-step input flow.
type conversation struct {
	stage      conversationStage
	input      service.BirthdayInput
	birthdayID uint
}

const dateFormatsHint = "Поддерживаемые форматы:\n" +
	"• 01.01.1990\n" +
	"• 01/01/1990\n" +
	"• 01-01-1990\n" +
	"• 01.01 (без года)"

func (b *Bot) startAddConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.log.Info("start add conversation", zap.Int64("from", msg.From.ID))
	b.sessions.Set(msg.From.ID, conversation{stage: stageName})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Новый день рождения.\n<b>Шаг 1:</b> как зовут именинника?", cancelKeyboard())
}

func (b *Bot) startEditGifts(chatID, from int64, birthdayID uint, name string) error {
	b.sessions.Set(from, conversation{stage: stageEditGifts, birthdayID: birthdayID})
	text := fmt.Sprintf("🎁 Напиши идеи подарков для <b>%s</b> (можно через запятую) или «Пропустить», чтобы очистить.", escape(name))
	return b.sendWithReplyMarkup(chatID, text, skipKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message, state conversation) error {
	text := strings.TrimSpace(msg.Text)
	from := msg.From.ID

	switch state.stage {
	case stageName:
		name, err := service.ValidateName(text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Имя должно быть непустым и не длиннее 100 символов. Попробуй ещё раз.", cancelKeyboard())
		}
		state.input.Name = name
		state.stage = stageDate
		b.sessions.Set(from, state)
		prompt := fmt.Sprintf("📅 <b>Шаг 2:</b> дата рождения для <b>%s</b>?\n\n%s", escape(name), dateFormatsHint)
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, cancelKeyboard())
	case stageDate:
		month, day, year, err := dates.Parse(text, b.now())
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "❌ Не могу распознать дату.\n\n"+dateFormatsHint, cancelKeyboard())
		}
		state.input.Month, state.input.Day, state.input.Year = month, day, year
		state.stage = stageGiftIdeas
		b.sessions.Set(from, state)
		return b.sendWithReplyMarkup(msg.Chat.ID, "🎁 <b>Шаг 3:</b> идеи подарков (или «Пропустить»).", skipKeyboard())
	case stageGiftIdeas:
		if !isSkipInput(text) {
			state.input.GiftIdeas = text
		}
		b.sessions.Delete(from)
		return b.finishAdd(ctx, msg, state.input)
	case stageEditGifts:
		gifts := ""
		if !isSkipInput(text) {
			gifts = text
		}
		b.sessions.Delete(from)
		return b.finishEditGifts(ctx, msg, state.birthdayID, gifts)
	default:
		b.sessions.Delete(from)
		return b.sendText(msg.Chat.ID, "Диалог сброшен. Попробуй ещё раз через /add.")
	}
}

func (b *Bot) finishAdd(ctx context.Context, msg *tgbotapi.Message, input service.BirthdayInput) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	birthday, err := b.birthdays.AddBirthday(ctx, user, input)
	if err != nil {
		if errors.Is(err, service.ErrValidation) || errors.Is(err, dates.ErrInvalidDate) {
			return b.replyError(msg.Chat.ID, "add birthday", err)
		}
		return err
	}
	b.log.Info("birthday added", zap.Uint("id", birthday.ID), zap.Uint("user", user.ID))

	if err := b.sendText(msg.Chat.ID, "✅ <b>День рождения сохранён</b>\n\n"+formatBirthday(*birthday, b.now())); err != nil {
		return err
	}
	return b.sendWithReplyMarkup(msg.Chat.ID, "🔔 Когда напомнить?", reminderKeyboard(birthday.ID, nil))
}

func (b *Bot) finishEditGifts(ctx context.Context, msg *tgbotapi.Message, birthdayID uint, gifts string) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	birthday, err := b.birthdays.UpdateGiftIdeas(ctx, user, birthdayID, gifts)
	if err != nil {
		return b.replyError(msg.Chat.ID, "update gift ideas", err)
	}
	if birthday.GiftIdeas == "" {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("🎁 Идеи подарков для «%s» очищены.", escape(birthday.Name)))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Идеи подарков для «%s» сохранены.", escape(birthday.Name)))
}
