package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"birthday-reminder/internal/model"
	"birthday-reminder/internal/service"
)

const (
	cbBirthdayPrefix       = "bday:"
	cbGiftsPrefix          = "gifts:"
	cbRemindersPrefix      = "rems:"
	cbAddReminderPrefix    = "remind:"
	cbDeleteReminderPrefix = "rmdel:"
	cbDeletePrefix         = "del:"
	cbConfirmDeletePrefix  = "delok:"
	cbList                 = "list"
	cbCancel               = "cancel"
)

const (
	btnSkip           = "⏭️ Пропустить"
	btnCancelDialog   = "⏪ Отменить ввод"
	menuLabelAdd      = "➕ Добавить"
	menuLabelList     = "📅 Мои дни рождения"
	menuLabelUpcoming = "⏰ Ближайшие"
	menuLabelExport   = "📤 Экспорт"
	menuLabelHelp     = "ℹ️ Помощь"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelAdd),
			tgbotapi.NewKeyboardButton(menuLabelList),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelUpcoming),
			tgbotapi.NewKeyboardButton(menuLabelExport),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func birthdayListKeyboard(birthdays []model.Birthday) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(birthdays))
	for _, bd := range birthdays {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("👤 #%d · %s", bd.ID, shortName(bd.Name, 24)), fmt.Sprintf("%s%d", cbBirthdayPrefix, bd.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func birthdayActionsKeyboard(id uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎁 Идеи подарков", fmt.Sprintf("%s%d", cbGiftsPrefix, id)),
			tgbotapi.NewInlineKeyboardButtonData("🔔 Напоминания", fmt.Sprintf("%s%d", cbRemindersPrefix, id)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Удалить", fmt.Sprintf("%s%d", cbDeletePrefix, id)),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ К списку", cbList),
		),
	)
}

// reminderKeyboard offers the preset lead times and a delete button per existing reminder.
func reminderKeyboard(birthdayID uint, reminders []model.Reminder) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var presets []tgbotapi.InlineKeyboardButton
	for _, days := range service.ReminderPresets {
		presets = append(presets, tgbotapi.NewInlineKeyboardButtonData(
			presetLabel(days),
			fmt.Sprintf("%s%d:%d", cbAddReminderPrefix, birthdayID, days),
		))
		if len(presets) == 3 {
			rows = append(rows, presets)
			presets = nil
		}
	}
	if len(presets) > 0 {
		rows = append(rows, presets)
	}
	for _, r := range reminders {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+reminderLabel(r.DaysBefore), fmt.Sprintf("%s%d", cbDeleteReminderPrefix, r.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", fmt.Sprintf("%s%d", cbBirthdayPrefix, birthdayID)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmDeleteKeyboard(id uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Да, удалить", fmt.Sprintf("%s%d", cbConfirmDeletePrefix, id)),
			tgbotapi.NewInlineKeyboardButtonData("↩️ Отмена", cbCancel),
		),
	)
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "пропустить" || value == "skip"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "отменить ввод" || value == "отмена"
}

func shortName(name string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(name, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
