package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/username/stockfolio/backend/src/models"
)

// PriceRefresher fetches quotes for every open position.
type PriceRefresher interface {
	RefreshOpenPrices(ctx context.Context) (models.QuoteBatch, error)
}

// PriceRefreshJob keeps the last known prices warm so that valuations can fall back to them
// when the quote provider is down.
type PriceRefreshJob struct {
	refresher PriceRefresher
	timeout   time.Duration
	log       *slog.Logger
	running   sync.Mutex
}

func NewPriceRefreshJob(refresher PriceRefresher, timeout time.Duration, log *slog.Logger) *PriceRefreshJob {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &PriceRefreshJob{
		refresher: refresher,
		timeout:   timeout,
		log:       log.With("job", "price_refresh"),
	}
}

func (j *PriceRefreshJob) Name() string {
	return "price_refresh"
}

// Run refreshes prices once. A run that overlaps a previous one is skipped.
func (j *PriceRefreshJob) Run() error {
	if !j.running.TryLock() {
		j.log.Warn("Price refresh already running, skipping")
		return nil
	}
	defer j.running.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	batch, err := j.refresher.RefreshOpenPrices(ctx)
	if err != nil {
		return err
	}
	j.log.Info("Prices refreshed",
		"symbols", len(batch.Quotes),
		"success", batch.SuccessCount,
		"errors", batch.ErrorCount,
		"duration", time.Since(start).String())
	return nil
}
