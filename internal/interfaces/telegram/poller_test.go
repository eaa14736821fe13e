package telegram

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/sales-report-bot/internal/application/apptest"
)

type fakeSource struct {
	updates chan tgbotapi.Update
	config  tgbotapi.UpdateConfig
	stopped bool
}

func (s *fakeSource) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	s.config = config
	return s.updates
}

func (s *fakeSource) StopReceivingUpdates() {
	s.stopped = true
}

func TestPoller_HandlesUpdatesUntilStopped(t *testing.T) {
	f := newFixture()
	source := &fakeSource{updates: make(chan tgbotapi.Update)}
	poller := NewPoller(source, f.handler, time.Second, apptest.Logger{})
	assert.Equal(t, "telegram-poller", poller.Name())

	require.NoError(t, poller.Start(context.Background()))
	assert.Error(t, poller.Start(context.Background()))
	assert.Equal(t, 60, source.config.Timeout)

	// unbuffered sends return only once the loop has taken the update
	source.updates <- commandUpdate("/start", "private")
	source.updates <- textUpdate("🆔 Shartnoma raqami: 1", "private")

	require.NoError(t, poller.Stop())
	assert.True(t, source.stopped)
	require.Len(t, f.flow.calls, 2)
	assert.Equal(t, "Welcome", f.flow.calls[0].name)
	assert.Equal(t, "HandleMessage", f.flow.calls[1].name)

	// stopping twice is harmless
	assert.NoError(t, poller.Stop())
}

func TestPoller_ExitsWhenChannelCloses(t *testing.T) {
	f := newFixture()
	source := &fakeSource{updates: make(chan tgbotapi.Update)}
	poller := NewPoller(source, f.handler, 0, apptest.Logger{})

	require.NoError(t, poller.Start(context.Background()))
	close(source.updates)
	require.NoError(t, poller.Stop())
}
