package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventName string

const (
	EventBookingConfirmed EventName = "booking_confirmed"
	EventTrialActivated   EventName = "trial_activated"
	EventTrialExpiring    EventName = "trial_expiring"
	EventTrialExpired     EventName = "trial_expired"
	EventTrialExtended    EventName = "trial_extended"
	EventTrialConverted   EventName = "trial_converted"
	EventTrialCancelled   EventName = "trial_cancelled"
	EventTrialReactivated EventName = "trial_reactivated"
)

// Recipient is the contact the downstream mailer writes to.
type Recipient struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
}

// Event is one outbound notification. Payload values are already formatted
// for presentation.
type Event struct {
	ID         uuid.UUID         `json:"id"`
	Name       EventName         `json:"name"`
	VendorID   uuid.UUID         `json:"vendor_id"`
	Recipient  Recipient         `json:"recipient"`
	Payload    map[string]string `json:"payload,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attempts   int               `json:"attempts"`
}

func NewEvent(name EventName, vendorID uuid.UUID, to Recipient, payload map[string]string, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Name:       name,
		VendorID:   vendorID,
		Recipient:  to,
		Payload:    payload,
		OccurredAt: at,
	}
}

// Notifier is the port the core calls after a state change. Notify never
// blocks on delivery and never reports failure to the caller.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Sender delivers one event to the downstream channel.
type Sender interface {
	Send(ctx context.Context, event Event) error
}

// DeadLetterStore keeps events that exhausted their retries.
type DeadLetterStore interface {
	Put(ctx context.Context, event Event, reason error) error
}
