package bot

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/filedexbot/filedex/internal/files"
)

// handleSourceMessage ingests an attachment posted in a group,
// supergroup, or channel. Everything from a chat outside the allow-list
// is dropped before any content is touched; commands sent in source
// chats only get a lock notice when the chat is authorized.
func (s *Service) handleSourceMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	if !s.gate.Allowed(chatID) {
		s.logger.Info("unauthorized chat dropped",
			slog.String("chat_id", chatID),
			slog.String("chat_type", msg.Chat.Type),
		)
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "search", "stats", "chats":
			s.reply(msg.Chat.ID, "This command is only available in private chat.")
		}
		return
	}

	att, ok := extractAttachment(msg)
	if !ok {
		return
	}

	src := files.Source{
		ChatID:    chatID,
		MessageID: int64(msg.MessageID),
		Title:     msg.Chat.Title,
		Kind:      msg.Chat.Type,
	}
	candidate, err := files.Normalize(att, src, time.Now().UTC())
	if err != nil {
		s.logger.Warn("normalize attachment failed",
			slog.String("chat_id", chatID),
			slog.Any("error", err),
		)
		return
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	outcome, err := s.store.Ingest(storeCtx, candidate)
	if err != nil {
		s.logger.Error("ingest failed",
			slog.String("chat_id", chatID),
			slog.String("file_ref", candidate.FileRef),
			slog.Any("error", err),
		)
		return
	}
	if outcome == files.OutcomeAlreadyExists {
		s.logger.Debug("duplicate file skipped",
			slog.String("file_ref", candidate.FileRef),
			slog.String("name", candidate.DisplayName),
		)
	}
}

// extractAttachment maps the message onto the canonical attachment
// payload. Only documents, videos, and audio are indexed.
func extractAttachment(msg *tgbotapi.Message) (files.Attachment, bool) {
	switch {
	case msg.Document != nil:
		return files.Attachment{
			Kind:      files.KindDocument,
			Ref:       msg.Document.FileID,
			Name:      msg.Document.FileName,
			Caption:   msg.Caption,
			SizeBytes: int64(msg.Document.FileSize),
			MimeType:  msg.Document.MimeType,
		}, true
	case msg.Video != nil:
		return files.Attachment{
			Kind:      files.KindVideo,
			Ref:       msg.Video.FileID,
			Name:      msg.Video.FileName,
			Caption:   msg.Caption,
			SizeBytes: int64(msg.Video.FileSize),
			MimeType:  msg.Video.MimeType,
		}, true
	case msg.Audio != nil:
		return files.Attachment{
			Kind:      files.KindAudio,
			Ref:       msg.Audio.FileID,
			Name:      msg.Audio.FileName,
			Title:     msg.Audio.Title,
			Caption:   msg.Caption,
			SizeBytes: int64(msg.Audio.FileSize),
			MimeType:  msg.Audio.MimeType,
		}, true
	default:
		return files.Attachment{}, false
	}
}
