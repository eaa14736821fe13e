package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper drops expired entries and reports how many it removed
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// SessionSweeper periodically evicts abandoned submission sessions
type SessionSweeper struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSessionSweeper creates a sweeper worker running every interval
func NewSessionSweeper(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *SessionSweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &SessionSweeper{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
	}
}

func (w *SessionSweeper) Name() string { return "session-sweeper" }

func (w *SessionSweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("session sweeper already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true

	go w.loop(runCtx, w.done)
	return nil
}

func (w *SessionSweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := w.sweeper.Sweep(ctx); removed > 0 {
				w.logger.Info("Expired sessions removed", zap.Int("count", removed))
			}
		}
	}
}

func (w *SessionSweeper) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
	return nil
}
