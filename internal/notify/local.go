package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LogSender writes events to the log. It is used when no redis is configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.With(zap.String("sender", "log"))}
}

func (s *LogSender) Send(_ context.Context, event Event) error {
	s.log.Info("Notification",
		zap.String("event", string(event.Name)),
		zap.String("event_id", event.ID.String()),
		zap.String("vendor_id", event.VendorID.String()),
		zap.String("to", event.Recipient.Email),
		zap.Any("payload", event.Payload),
	)
	return nil
}

// MemoryDeadLetters keeps dead letters in process.
type MemoryDeadLetters struct {
	mu      sync.Mutex
	entries []Event
}

func NewMemoryDeadLetters() *MemoryDeadLetters {
	return &MemoryDeadLetters{}
}

func (d *MemoryDeadLetters) Put(_ context.Context, event Event, _ error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, event)
	return nil
}

// Entries returns a copy of the dead-lettered events.
func (d *MemoryDeadLetters) Entries() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.entries...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Notify(context.Context, Event) {}
