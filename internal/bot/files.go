package bot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	exportFileName = "birthdays.ics"
	maxImportSize  = 1 << 20
)

func (b *Bot) handleExport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	n, err := b.calendar.Export(ctx, user, &buf, b.now())
	if err != nil {
		return b.replyError(msg.Chat.ID, "export calendar", err)
	}
	if n == 0 {
		return b.sendText(msg.Chat.ID, "Экспортировать нечего: добавь дни рождения через /add.")
	}

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{Name: exportFileName, Bytes: buf.Bytes()})
	doc.Caption = fmt.Sprintf("📤 Календарь с днями рождения: %d. Импортируй файл в любое приложение календаря.", n)
	if _, err := b.api.Send(doc); err != nil {
		return fmt.Errorf("send calendar: %w", err)
	}
	b.log.Info("calendar exported", zap.Uint("user", user.ID), zap.Int("events", n))
	return nil
}

func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) error {
	doc := msg.Document
	if !strings.EqualFold(path.Ext(doc.FileName), ".vcf") {
		return b.sendText(msg.Chat.ID, "📎 Я умею импортировать только контакты в формате <code>.vcf</code>.")
	}
	if doc.FileSize > maxImportSize {
		return b.sendText(msg.Chat.ID, "Файл слишком большой, максимум 1 МБ.")
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	body, err := b.download(ctx, doc.FileID)
	if err != nil {
		b.log.Error("download contacts", zap.String("file", doc.FileName), zap.Error(err))
		return b.sendText(msg.Chat.ID, "Не удалось скачать файл. Попробуй ещё раз.")
	}
	defer body.Close()

	res, err := b.contacts.Import(ctx, user, io.LimitReader(body, maxImportSize))
	if err != nil {
		b.log.Warn("import contacts", zap.Uint("user", user.ID), zap.Error(err))
		return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Файл прочитан не полностью. Импортировано: %d.", res.Imported))
	}

	b.log.Info("contacts imported",
		zap.Uint("user", user.ID),
		zap.Int("imported", res.Imported),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("skipped", res.Skipped))
	text := fmt.Sprintf("📥 <b>Импорт завершён</b>\n• Добавлено: %d\n• Уже были: %d\n• Без даты рождения: %d",
		res.Imported, res.Duplicates, res.Skipped)
	if res.Imported > 0 {
		text += "\n\nДля новых записей включено напоминание в день рождения. Список: /list"
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch file: unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}
