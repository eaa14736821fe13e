package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateSource delivers updates by long polling
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poller feeds long-polled updates to a Handler one at a time, so a user's
// updates are applied in the order they were sent.
type Poller struct {
	source  UpdateSource
	handler *Handler
	timeout time.Duration
	logger  Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewPoller creates a poller; each update is handled under timeout
func NewPoller(source UpdateSource, handler *Handler, timeout time.Duration, logger Logger) *Poller {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Poller{
		source:  source,
		handler: handler,
		timeout: timeout,
		logger:  logger,
	}
}

func (p *Poller) Name() string { return "telegram-poller" }

func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning {
		return fmt.Errorf("telegram poller already running")
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	cfg.AllowedUpdates = []string{"message", "callback_query"}
	updates := p.source.GetUpdatesChan(cfg)

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.isRunning = true

	go p.loop(runCtx, updates, p.done)
	p.logger.Info("Telegram long polling started")
	return nil
}

func (p *Poller) loop(ctx context.Context, updates tgbotapi.UpdatesChannel, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			p.handle(ctx, update)
		}
	}
}

func (p *Poller) handle(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Update handler panic", "update_id", update.UpdateID, "panic", fmt.Sprint(r))
		}
	}()
	// HandleUpdate logs its own failures
	_ = p.handler.HandleUpdate(ctx, update)
}

func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	p.source.StopReceivingUpdates()
	<-done
	p.logger.Info("Telegram long polling stopped")
	return nil
}
