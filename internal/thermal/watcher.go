package thermal

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/thermald/internal/logger"
)

// Notifier is the push side the watcher reports severity changes to.
type Notifier interface {
	NotifyThrottling(t Temperature)
}

// Watcher polls sensor temperatures and notifies when a sensor's severity
// changes.
type Watcher struct {
	service  *Service
	notifier Notifier
	logger   logger.Logger

	mu   sync.Mutex
	last map[string]Severity
}

// NewWatcher returns a watcher of service reporting to notifier.
func NewWatcher(service *Service, notifier Notifier, log logger.Logger) *Watcher {
	return &Watcher{
		service:  service,
		notifier: notifier,
		logger:   log.With("watcher"),
		last:     make(map[string]Severity),
	}
}

// Poll reads temperatures once and notifies every sensor whose severity
// differs from the previous poll. The first poll only notifies sensors
// above NONE. It returns the number of notifications sent.
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	status, temps := w.service.Temperatures()
	if status.Code != StatusSuccess {
		if status.Code != StatusNoData {
			w.logger.Debug().Str("status", status.Code.String()).Str("message", status.Message).Msg("Poll skipped")
		}
		return 0, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	sent := 0
	for _, t := range temps {
		observeSensor(t)

		prev, seen := w.last[t.Name]
		w.last[t.Name] = t.Severity
		if prev == t.Severity && (seen || t.Severity == SeverityNone) {
			continue
		}

		w.logger.Info().
			Str("sensor", t.Name).
			Float64("temperature", t.Value).
			Str("from", prev.String()).
			Str("to", t.Severity.String()).
			Msg("Throttling severity changed")

		w.notifier.NotifyThrottling(t)
		sent++
	}

	return sent, nil
}

// Run polls on every tick of interval until ctx is done.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := w.Poll(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Poll(ctx); err != nil {
				return err
			}
		}
	}
}
