// Package notify forwards newly placed orders to an external chat webhook.
//
// A single Watcher polls the orders collection on a fixed interval and keeps
// an in-memory set of the order timestamps it has already delivered. The set
// is never persisted, so a restart re-announces every stored order. Two
// orders placed within the same second share a timestamp and only the first
// one is announced.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/ahmedandnoor/HappyClothify/internal/metrics"
	"github.com/ahmedandnoor/HappyClothify/internal/models"
)

const DefaultInterval = 5 * time.Second

// OrderSource yields the raw order records, oldest first.
type OrderSource interface {
	RawOrders(ctx context.Context) ([]json.RawMessage, error)
}

// Watcher is not safe for concurrent use; run exactly one per process.
type Watcher struct {
	source   OrderSource
	notifier Notifier
	interval time.Duration
	logger   *slog.Logger

	seen map[string]struct{}
}

func NewWatcher(source OrderSource, notifier Notifier, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		source:   source,
		notifier: notifier,
		interval: interval,
		logger:   logger.With("component", "order-watcher"),
		seen:     make(map[string]struct{}),
	}
}

// Serve polls until ctx is canceled. It implements suture.Service.
func (w *Watcher) Serve(ctx context.Context) error {
	w.logger.Info("Starting order watcher", "interval", w.interval)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Order watcher stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := w.Poll(ctx); err != nil {
			w.logger.Warn("Error watching orders", "error", err)
		}
		timer.Reset(w.interval)
	}
}

func (w *Watcher) String() string { return "order-watcher" }

// Poll runs one cycle and returns how many orders were delivered. Only a
// failure to load the collection is returned; per-order problems are logged
// and the cycle moves on.
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	records, err := w.source.RawOrders(ctx)
	if err != nil {
		metrics.WatcherPollErrors.Inc()
		return 0, fmt.Errorf("load orders: %w", err)
	}

	delivered := 0
	for i, raw := range records {
		if ctx.Err() != nil {
			break
		}
		if w.handle(ctx, i, raw) {
			delivered++
		}
	}
	metrics.WatcherSeen.Set(float64(len(w.seen)))
	return delivered, nil
}

// Seen reports whether the dedup key has been delivered.
func (w *Watcher) Seen(key string) bool {
	_, ok := w.seen[key]
	return ok
}

func (w *Watcher) handle(ctx context.Context, index int, raw json.RawMessage) (delivered bool) {
	defer func() {
		if r := recover(); r != nil {
			metrics.OrdersMalformed.Inc()
			w.logger.Error("Panic while handling order", "index", index, "panic", r)
			delivered = false
		}
	}()

	var order models.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		metrics.OrdersMalformed.Inc()
		w.logger.Warn("Skipping unreadable order", "index", index, "error", err)
		return false
	}

	key := order.Timestamp
	if key == "" {
		return false
	}
	if _, ok := w.seen[key]; ok {
		return false
	}

	if err := w.notifier.Notify(ctx, order); err != nil {
		metrics.OrderNotifyFailures.Inc()
		w.logger.Warn("Order notification failed", "timestamp", key, "error", err)
		return false
	}

	w.seen[key] = struct{}{}
	metrics.OrdersNotified.Inc()
	w.logger.Info("Order notification sent", "timestamp", key, "username", order.Username)
	return true
}
