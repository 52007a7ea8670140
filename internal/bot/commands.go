package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const welcomeText = `*Welcome to filedex!*

This bot automatically stores files from authorized channels and groups, allowing you to search them.

*Commands:*
/search <query> - Search for files (private chat only)
/help - Show this help message
/stats - Show bot statistics
/chats - Show authorized channels/groups

*How it works:*
1. Add this bot as admin to your authorized channel/group
2. Forward documents, videos, or audio files to the channel/group
3. Use /search in private chat to find files

*Example:*
/search Naruto`

const helpText = `*Bot Help*

*Search Command:*
/search <query> - Search for files by name or caption

*Notes:*
- Search is case-insensitive
- Results are shown 10 per page as buttons
- Only works in private chat
- Supports partial matches
- Click a button to download the file
- Only files from authorized channels/groups are stored`

func (s *Service) handlePrivateMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		return
	}
	switch msg.Command() {
	case "start":
		s.replyMarkdown(msg.Chat.ID, welcomeText)
	case "help":
		s.replyMarkdown(msg.Chat.ID, helpText)
	case "search":
		query := strings.TrimSpace(msg.CommandArguments())
		if query == "" {
			s.reply(msg.Chat.ID, "Please provide a search query.\n\nExample: /search Kalki 2898AD")
			return
		}
		s.runSearch(ctx, msg.Chat.ID, query)
	case "stats":
		s.handleStats(ctx, msg.Chat.ID)
	case "chats":
		s.handleChats(msg.Chat.ID)
	}
}

func (s *Service) handleStats(ctx context.Context, chatID int64) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	stats, err := s.store.Stats(storeCtx)
	if err != nil {
		s.logger.Error("stats failed", slog.Any("error", err))
		s.reply(chatID, "Error fetching statistics. Please try again.")
		return
	}

	lastAdded := "No files yet"
	if !stats.LastAddedAt.IsZero() {
		lastAdded = stats.LastAddedAt.Format("2006-01-02 15:04:05 MST")
	}
	text := fmt.Sprintf(`*Bot Statistics*

Total Files: %d
Documents: %d
Videos: %d
Audio: %d

Last file added: %s
Authorized Chats: %d`,
		stats.Total, stats.Documents, stats.Videos, stats.Audios,
		lastAdded, s.gate.Size(),
	)
	s.replyMarkdown(chatID, text)
}

func (s *Service) handleChats(chatID int64) {
	chats := s.gate.List()
	if len(chats) == 0 {
		s.reply(chatID, "No authorized channels/groups configured.")
		return
	}
	var b strings.Builder
	b.WriteString("*Authorized Channels/Groups:*\n")
	for i, id := range chats {
		fmt.Fprintf(&b, "\n%d. `%s`", i+1, escapeMarkdown(id))
	}
	s.replyMarkdown(chatID, b.String())
}

func (s *Service) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := s.api.Send(msg); err != nil {
		s.logger.Error("send reply failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

func (s *Service) replyMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := s.api.Send(msg); err != nil {
		s.logger.Error("send reply failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// escapeMarkdown neutralizes user-controlled text embedded in Markdown
// replies.
func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}
