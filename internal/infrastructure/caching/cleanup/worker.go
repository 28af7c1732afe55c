// Package cleanup provides the background worker that evicts expired cache
// entries and idle visitor state.
package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/caching/interfaces"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
)

// Worker handles background cache cleanup operations.
type Worker struct {
	stores []interfaces.Expirer
	tasks  []Task
	config *Config
	logger *logging.ChanneledLogger
	now    func() time.Time

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// Task is extra periodic work run after the stores are swept, such as
// deleting expired sign-in tokens.
type Task struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (int, error)
}

// NewWorker creates a new cleanup worker with injected configuration.
func NewWorker(config *Config, logger *logging.ChanneledLogger, stores ...interfaces.Expirer) *Worker {
	return &Worker{
		stores: stores,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// AddTask registers a periodic task. Call before Start.
func (w *Worker) AddTask(t Task) {
	w.tasks = append(w.tasks, t)
}

// Start runs the worker until ctx is cancelled. It blocks; callers run it in
// a goroutine and use Wait to join it.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	w.logger.Cache().Info("Cache cleanup worker started",
		"interval", w.config.CleanupInterval, "verbose", w.config.VerboseReporting, "stores", len(w.stores))

	for {
		select {
		case <-ctx.Done():
			w.logger.Cache().Info("Cache cleanup worker stopping")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Wait blocks until a running Start returns.
func (w *Worker) Wait() {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Sweep runs one cleanup pass and returns the number of items removed.
func (w *Worker) Sweep(ctx context.Context) int {
	start := time.Now()
	now := w.now()
	reporter := NewReporter(w.logger, w.stores)

	if w.config.VerboseReporting {
		reporter.LogReport("before cleanup")
	}

	total := 0
	for _, store := range w.stores {
		if ctx.Err() != nil {
			return total
		}
		if removed := store.PurgeExpired(now); removed > 0 {
			w.logger.Cache().Debug("Expired entries purged", "store", store.Name(), "removed", removed)
			total += removed
		}
	}

	for _, task := range w.tasks {
		if ctx.Err() != nil {
			return total
		}
		log := w.logger.WithOperation(logging.ChannelCache, task.Name)
		n, err := task.Run(ctx, now)
		if err != nil {
			log.Error("Cleanup task failed", "error", err.Error())
			continue
		}
		if n > 0 {
			log.Debug("Cleanup task removed items", "removed", n)
		}
		total += n
	}

	duration := time.Since(start)
	if total > 0 {
		w.logger.Cache().Info("Cache cleanup finished", "cleaned", total, "duration", duration)
	} else if w.config.VerboseReporting {
		w.logger.Cache().Info("Cache cleanup completed - no expired items found", "duration", duration)
	}
	return total
}
