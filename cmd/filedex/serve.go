package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/filedexbot/filedex/internal/authz"
	"github.com/filedexbot/filedex/internal/bot"
	"github.com/filedexbot/filedex/internal/config"
	"github.com/filedexbot/filedex/internal/db"
	"github.com/filedexbot/filedex/internal/files"
	"github.com/filedexbot/filedex/internal/handlers"
	"github.com/filedexbot/filedex/internal/logger"
	"github.com/filedexbot/filedex/internal/report"
	"github.com/filedexbot/filedex/internal/server"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBPool,
			provideStore,
			provideGate,
			provideBotService,
			provideReporter,
			handlers.NewPingHandler,
			handlers.NewAuthHandler,
			provideFilesHandler,
			provideServer,
		),
		fx.Invoke(
			startBot,
			startReporter,
			startServer,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.Postgres); err != nil {
		return nil, err
	}
	pool, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { pool.Close(); return nil }})
	return pool, nil
}

func provideStore(log *slog.Logger, pool *pgxpool.Pool) *files.Store {
	return files.NewStore(log, pool)
}

func provideGate(cfg config.Config) *authz.Gate {
	return authz.NewGate(cfg.Telegram.AllowedChats)
}

func provideBotService(log *slog.Logger, cfg config.Config, store *files.Store, gate *authz.Gate) (*bot.Service, error) {
	return bot.New(log, cfg.Telegram, store, gate)
}

func provideReporter(log *slog.Logger, cfg config.Config, store *files.Store) *report.Reporter {
	return report.NewReporter(log, store, cfg.Report.Spec)
}

func provideFilesHandler(log *slog.Logger, store *files.Store, gate *authz.Gate) *handlers.FilesHandler {
	return handlers.NewFilesHandler(log, store, gate)
}

func provideServer(log *slog.Logger, cfg config.Config, ping *handlers.PingHandler, auth *handlers.AuthHandler, filesHandler *handlers.FilesHandler) *server.Server {
	return server.New(cfg.Server.Addr, cfg.Auth.JWTSecret, log, ping, auth, filesHandler)
}

func startBot(lc fx.Lifecycle, botService *bot.Service) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go botService.Run(ctx)
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			return nil
		},
	})
}

func startReporter(lc fx.Lifecycle, cfg config.Config, reporter *report.Reporter) {
	if !cfg.Report.Enabled {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error { return reporter.Start() },
		OnStop:  func(ctx context.Context) error { return reporter.Stop(ctx) },
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
