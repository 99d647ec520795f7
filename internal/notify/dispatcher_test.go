package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rental-marketplace/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type flakySender struct {
	mu        sync.Mutex
	failFirst int
	calls     int
	delivered []Event
}

func (s *flakySender) Send(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failFirst {
		return errors.New("smtp unavailable")
	}
	s.delivered = append(s.delivered, event)
	return nil
}

func (s *flakySender) Delivered() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.delivered...)
}

func testEvent(name EventName) Event {
	return NewEvent(name, uuid.New(), Recipient{Name: "Anna", Email: "anna@example.com"}, map[string]string{"k": "v"}, time.Now())
}

func fastConfig() utils.NotifyConfig {
	return utils.NotifyConfig{
		QueueSize:   8,
		Workers:     2,
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  4 * time.Millisecond,
	}
}

func TestDispatcherRetriesUntilDelivered(t *testing.T) {
	sender := &flakySender{failFirst: 2}
	dead := NewMemoryDeadLetters()
	d := NewDispatcher(sender, dead, fastConfig(), zap.NewNop())
	d.Start(context.Background())

	d.Notify(context.Background(), testEvent(EventBookingConfirmed))
	d.Stop()

	delivered := sender.Delivered()
	require.Len(t, delivered, 1)
	assert.Equal(t, 3, delivered[0].Attempts)
	assert.Empty(t, dead.Entries())
}

func TestDispatcherDeadLettersAfterMaxAttempts(t *testing.T) {
	sender := &flakySender{failFirst: 100}
	dead := NewMemoryDeadLetters()
	cfg := fastConfig()
	cfg.MaxAttempts = 2
	d := NewDispatcher(sender, dead, cfg, zap.NewNop())
	d.Start(context.Background())

	event := testEvent(EventTrialExpired)
	d.Notify(context.Background(), event)
	d.Stop()

	entries := dead.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, event.ID, entries[0].ID)
	assert.Equal(t, 2, entries[0].Attempts)
	assert.Empty(t, sender.Delivered())
}

func TestDispatcherQueueFull(t *testing.T) {
	sender := &flakySender{}
	dead := NewMemoryDeadLetters()
	cfg := fastConfig()
	cfg.QueueSize = 1
	d := NewDispatcher(sender, dead, cfg, zap.NewNop())

	// Not started, so nothing drains the queue.
	d.Notify(context.Background(), testEvent(EventTrialActivated))
	overflow := testEvent(EventTrialActivated)
	d.Notify(context.Background(), overflow)

	entries := dead.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, overflow.ID, entries[0].ID)
}

func TestDispatcherStopDrainsQueue(t *testing.T) {
	sender := &flakySender{}
	dead := NewMemoryDeadLetters()
	cfg := fastConfig()
	cfg.Workers = 1
	d := NewDispatcher(sender, dead, cfg, zap.NewNop())
	d.Start(context.Background())

	for i := 0; i < 5; i++ {
		d.Notify(context.Background(), testEvent(EventTrialExpiring))
	}
	d.Stop()
	d.Stop()

	assert.Len(t, sender.Delivered(), 5)

	late := testEvent(EventTrialExpiring)
	d.Notify(context.Background(), late)
	entries := dead.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, late.ID, entries[0].ID)
}

func TestBackoffIsCapped(t *testing.T) {
	d := NewDispatcher(&flakySender{}, NewMemoryDeadLetters(), utils.NotifyConfig{
		BaseBackoff: time.Second,
		MaxBackoff:  5 * time.Second,
	}, zap.NewNop())

	assert.Equal(t, time.Second, d.backoff(1))
	assert.Equal(t, 2*time.Second, d.backoff(2))
	assert.Equal(t, 4*time.Second, d.backoff(3))
	assert.Equal(t, 5*time.Second, d.backoff(4))
	assert.Equal(t, 5*time.Second, d.backoff(10))
}
