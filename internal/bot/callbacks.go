package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/filedexbot/filedex/internal/files"
	"github.com/filedexbot/filedex/internal/pagination"
)

func (s *Service) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	decoded, err := pagination.Decode(cq.Data)
	if err != nil {
		s.logger.Warn("undecodable callback token",
			slog.String("data", cq.Data), slog.Any("error", err))
		s.answerCallback(cq.ID, "This button is no longer valid.", true)
		return
	}

	switch cb := decoded.(type) {
	case pagination.NoopCallback:
		s.answerCallback(cq.ID, "Current page", false)
	case pagination.FileCallback:
		s.deliverFile(ctx, cq, cb.ID)
	case pagination.SearchCallback:
		s.flipPage(ctx, cq, cb.Query, cb.Page)
	}
}

// deliverFile resolves a selected record and re-sends the stored
// attachment. A record deleted since the search rendered is a normal
// race, answered with a notice rather than an error.
func (s *Service) deliverFile(ctx context.Context, cq *tgbotapi.CallbackQuery, id string) {
	s.answerCallback(cq.ID, "", false)
	chatID := callbackChatID(cq)
	if chatID == 0 {
		return
	}
	s.sendChatAction(chatID, tgbotapi.ChatUploadDocument)

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	record, err := s.store.GetByID(storeCtx, id)
	if err != nil {
		if errors.Is(err, files.ErrNotFound) {
			s.reply(chatID, "File not found or may have been deleted.")
			return
		}
		s.logger.Error("resolve file failed", slog.String("id", id), slog.Any("error", err))
		s.reply(chatID, "Error sending file. Please try again.")
		return
	}

	if err := s.sendStoredFile(chatID, record); err != nil {
		s.logger.Error("send file failed",
			slog.String("id", id),
			slog.String("kind", string(record.Kind)),
			slog.Any("error", err),
		)
		s.reply(chatID, "Error sending file. Please try again.")
	}
}

// sendStoredFile re-requests delivery of the provider-held content by
// its file reference. The attribution suffix is appended identically
// for every kind.
func (s *Service) sendStoredFile(chatID int64, record files.FileRecord) error {
	caption := s.deliveryCaption(record.Caption)
	file := tgbotapi.FileID(record.FileRef)

	var msg tgbotapi.Chattable
	switch record.Kind {
	case files.KindVideo:
		video := tgbotapi.NewVideo(chatID, file)
		video.Caption = caption
		msg = video
	case files.KindAudio:
		audio := tgbotapi.NewAudio(chatID, file)
		audio.Caption = caption
		msg = audio
	default:
		document := tgbotapi.NewDocument(chatID, file)
		document.Caption = caption
		msg = document
	}
	_, err := s.api.Send(msg)
	return err
}

func (s *Service) deliveryCaption(original string) string {
	if strings.TrimSpace(original) == "" {
		return s.attribution
	}
	return original + "\n\n" + s.attribution
}

// flipPage re-renders the search message in place with the requested
// page. An out-of-range page only raises an alert; the rendered message
// stays as it was.
func (s *Service) flipPage(ctx context.Context, cq *tgbotapi.CallbackQuery, query string, page int) {
	chatID := callbackChatID(cq)
	if chatID == 0 || cq.Message == nil {
		s.answerCallback(cq.ID, "", false)
		return
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	result, err := s.store.Search(storeCtx, query, page)
	if err != nil {
		if errors.Is(err, files.ErrPageOutOfRange) {
			s.answerCallback(cq.ID, "Invalid page number", true)
			return
		}
		s.logger.Error("page flip failed",
			slog.String("query", query), slog.Int("page", page), slog.Any("error", err))
		s.answerCallback(cq.ID, "Error loading page. Please try again.", true)
		return
	}

	s.answerCallback(cq.ID, "", false)
	edit := tgbotapi.NewEditMessageTextAndMarkup(
		chatID,
		cq.Message.MessageID,
		s.resultText(query, result),
		s.buildResultKeyboard(query, result),
	)
	if _, err := s.api.Send(edit); err != nil {
		s.logger.Error("edit results failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

func (s *Service) answerCallback(id, text string, alert bool) {
	callback := tgbotapi.NewCallback(id, text)
	callback.ShowAlert = alert
	if _, err := s.api.Request(callback); err != nil {
		s.logger.Debug("answer callback failed", slog.Any("error", err))
	}
}

func callbackChatID(cq *tgbotapi.CallbackQuery) int64 {
	if cq.Message == nil || cq.Message.Chat == nil {
		return 0
	}
	return cq.Message.Chat.ID
}
