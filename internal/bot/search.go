package bot

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/filedexbot/filedex/internal/files"
	"github.com/filedexbot/filedex/internal/pagination"
)

// maxButtonLabelLength keeps result labels within what Telegram renders.
const maxButtonLabelLength = 64

const resultLabelPrefix = "[filedex] "

func (s *Service) runSearch(ctx context.Context, chatID int64, query string) {
	s.sendChatAction(chatID, tgbotapi.ChatTyping)

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	result, err := s.store.Search(storeCtx, query, 1)
	if err != nil {
		s.logger.Error("search failed", slog.String("query", query), slog.Any("error", err))
		s.reply(chatID, "An error occurred while searching. Please try again.")
		return
	}
	if result.TotalCount == 0 {
		s.reply(chatID, fmt.Sprintf("No files found matching %q", query))
		return
	}

	msg := tgbotapi.NewMessage(chatID, s.resultText(query, result))
	msg.ReplyMarkup = s.buildResultKeyboard(query, result)
	if _, err := s.api.Send(msg); err != nil {
		s.logger.Error("send results failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

func (s *Service) resultText(query string, result files.SearchResult) string {
	return fmt.Sprintf(
		"Found %d file(s) matching %q\nPage %d of %d\n\nClick to download:",
		result.TotalCount, query, result.Page, result.TotalPages,
	)
}

// buildResultKeyboard renders one button per result plus a navigation
// row when there is more than one page. When the query is too long for
// a valid page token the navigation row is omitted entirely; a
// truncated token would search for the wrong thing.
func (s *Service) buildResultKeyboard(query string, result files.SearchResult) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(result.Items)+1)
	for _, item := range result.Items {
		token, err := pagination.EncodeFile(item.ID)
		if err != nil {
			s.logger.Warn("encode file token failed",
				slog.String("id", item.ID), slog.Any("error", err))
			continue
		}
		label := truncateLabel(resultLabelPrefix + item.DisplayName)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, token),
		))
	}

	if nav, ok := s.buildNavRow(query, result.Page, result.TotalPages); ok {
		rows = append(rows, nav)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (s *Service) buildNavRow(query string, page, totalPages int) ([]tgbotapi.InlineKeyboardButton, bool) {
	if totalPages <= 1 {
		return nil, false
	}
	row := make([]tgbotapi.InlineKeyboardButton, 0, 3)
	if page > 1 {
		token, err := pagination.EncodeSearch(query, page-1)
		if err != nil {
			s.logger.Warn("encode page token failed", slog.Any("error", err))
			return nil, false
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("< Previous", token))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData(
		fmt.Sprintf("%d/%d", page, totalPages), pagination.EncodeNoop(),
	))
	if page < totalPages {
		token, err := pagination.EncodeSearch(query, page+1)
		if err != nil {
			s.logger.Warn("encode page token failed", slog.Any("error", err))
			return nil, false
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Next >", token))
	}
	return row, true
}

func (s *Service) sendChatAction(chatID int64, action string) {
	chatAction := tgbotapi.NewChatAction(chatID, action)
	if _, err := s.api.Request(chatAction); err != nil {
		s.logger.Debug("send chat action failed", slog.Any("error", err))
	}
}

func truncateLabel(label string) string {
	if utf8.RuneCountInString(label) <= maxButtonLabelLength {
		return label
	}
	runes := []rune(label)
	return string(runes[:maxButtonLabelLength-3]) + "..."
}
