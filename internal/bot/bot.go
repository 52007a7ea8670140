// Package bot runs the Telegram surface: ingestion of attachments from
// allow-listed chats and search/delivery in private conversations.
package bot

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/filedexbot/filedex/internal/authz"
	"github.com/filedexbot/filedex/internal/config"
	"github.com/filedexbot/filedex/internal/files"
)

// storeTimeout bounds every store call made on behalf of one update.
const storeTimeout = 5 * time.Second

// FileStore is the persistence surface the bot depends on.
type FileStore interface {
	Ingest(ctx context.Context, candidate files.FileRecord) (files.IngestOutcome, error)
	Search(ctx context.Context, query string, page int) (files.SearchResult, error)
	GetByID(ctx context.Context, id string) (files.FileRecord, error)
	Stats(ctx context.Context) (files.Stats, error)
}

// api is the slice of tgbotapi.BotAPI the handlers use, kept narrow so
// tests can substitute a fake.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Service long-polls Telegram and dispatches updates.
type Service struct {
	logger      *slog.Logger
	bot         *tgbotapi.BotAPI
	api         api
	store       FileStore
	gate        *authz.Gate
	attribution string
}

// New connects to the Telegram Bot API and builds the service.
func New(log *slog.Logger, cfg config.TelegramConfig, store FileStore, gate *authz.Gate) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	log = log.With(slog.String("service", "bot"))
	log.Info("connected", slog.String("username", bot.Self.UserName))
	return &Service{
		logger:      log,
		bot:         bot,
		api:         bot,
		store:       store,
		gate:        gate,
		attribution: cfg.Attribution,
	}, nil
}

// Run consumes updates until ctx is cancelled. Each update is handled
// on its own goroutine; a panic in a handler is logged and answered
// with a generic apology instead of killing the process.
func (s *Service) Run(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := s.bot.GetUpdatesChan(updateConfig)

	s.logger.Info("listening for updates",
		slog.Int("authorized_chats", s.gate.Size()),
	)

	for {
		select {
		case <-ctx.Done():
			s.bot.StopReceivingUpdates()
			// Drain so the library's polling goroutine can exit.
			for range updates {
			}
			return
		case update, ok := <-updates:
			if !ok {
				s.logger.Info("updates channel closed")
				return
			}
			go s.dispatch(ctx, update)
		}
	}
}

func (s *Service) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("update handler panicked", slog.Any("panic", r))
			s.apologize(update)
		}
	}()
	s.handleUpdate(ctx, update)
}

func (s *Service) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		s.handleCallback(ctx, update.CallbackQuery)
		return
	}

	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil || msg.Chat == nil {
		return
	}

	switch msg.Chat.Type {
	case "private":
		s.handlePrivateMessage(ctx, msg)
	case "group", "supergroup", "channel":
		s.handleSourceMessage(ctx, msg)
	}
}

// apologize sends a generic failure notice when a handler panicked and
// the update carries a chat to answer.
func (s *Service) apologize(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil || msg.Chat == nil || msg.Chat.Type != "private" {
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, "An unexpected error occurred. Please try again.")
	if _, err := s.api.Send(reply); err != nil {
		s.logger.Error("send apology failed", slog.Any("error", err))
	}
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeTimeout)
}
