// Package report periodically logs a snapshot of the ingest corpus so
// operators can watch growth without querying the API.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/filedexbot/filedex/internal/files"
)

const statsTimeout = 10 * time.Second

// StatsSource provides the corpus snapshot.
type StatsSource interface {
	Stats(ctx context.Context) (files.Stats, error)
}

// Reporter logs ingest statistics on a cron schedule.
type Reporter struct {
	logger *slog.Logger
	source StatsSource
	spec   string
	cron   *cron.Cron
}

// NewReporter creates a reporter with the given cron spec (e.g. "@daily").
func NewReporter(log *slog.Logger, source StatsSource, spec string) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{
		logger: log.With(slog.String("service", "report")),
		source: source,
		spec:   spec,
	}
}

// Start schedules the report job and begins running it.
func (r *Reporter) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(r.spec, r.report); err != nil {
		return fmt.Errorf("schedule report job: %w", err)
	}
	r.cron = c
	c.Start()
	r.logger.Info("report job scheduled", slog.String("spec", r.spec))
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (r *Reporter) Stop(ctx context.Context) error {
	if r.cron == nil {
		return nil
	}
	select {
	case <-r.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reporter) report() {
	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()
	stats, err := r.source.Stats(ctx)
	if err != nil {
		r.logger.Error("stats snapshot failed", slog.Any("error", err))
		return
	}
	r.logger.Info("ingest snapshot",
		slog.Int("total", stats.Total),
		slog.Int("documents", stats.Documents),
		slog.Int("videos", stats.Videos),
		slog.Int("audios", stats.Audios),
		slog.Time("last_added_at", stats.LastAddedAt),
	)
}
