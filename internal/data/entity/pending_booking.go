package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type PendingBookingStatus string

const (
	PendingBookingStatusPending   PendingBookingStatus = "pending"
	PendingBookingStatusConfirmed PendingBookingStatus = "confirmed"
	PendingBookingStatusCompleted PendingBookingStatus = "completed"
)

type AddOn string

const (
	AddOnStorageHandling  AddOn = "storage_handling"
	AddOnShippingHandling AddOn = "shipping_handling"
)

// UnitSelection is one line of what the vendor asked for: count units of a type.
type UnitSelection struct {
	UnitType UnitType `json:"unit_type"`
	Count    int      `json:"count"`
}

type PendingBooking struct {
	Selections     []UnitSelection      `json:"selections"`
	AddOns         []AddOn              `json:"add_ons"`
	DurationMonths int                  `json:"duration_months"`
	PackageTier    string               `json:"package_tier"`
	CommissionRate decimal.Decimal      `json:"commission_rate"` // percent, frozen at request time
	Comments       string               `json:"comments"`
	CreatedAt      time.Time            `json:"created_at"`
	Status         PendingBookingStatus `json:"status"`
}

// Requested reports whether the vendor asked for the add-on.
func (b PendingBooking) Requested(addOn AddOn) bool {
	return slices.Contains(b.AddOns, addOn)
}

var ErrNoPendingBooking = errors.New("no pending booking")

// PendingSlot holds at most one booking request for a vendor. The zero value
// is the empty slot. A new request always replaces whatever was there.
type PendingSlot struct {
	booking *PendingBooking
}

// NoPendingBooking returns the empty slot.
func NoPendingBooking() PendingSlot {
	return PendingSlot{}
}

// WithPendingBooking returns a slot holding b.
func WithPendingBooking(b PendingBooking) PendingSlot {
	return PendingSlot{booking: cloneBooking(&b)}
}

// Get returns a copy of the held booking.
func (s PendingSlot) Get() (PendingBooking, bool) {
	if s.booking == nil {
		return PendingBooking{}, false
	}
	return *cloneBooking(s.booking), true
}

func (s PendingSlot) IsEmpty() bool {
	return s.booking == nil
}

// Supersede replaces the current request, whatever its status, with b in pending status.
func (s *PendingSlot) Supersede(b PendingBooking) {
	b.Status = PendingBookingStatusPending
	s.booking = cloneBooking(&b)
}

// MarkCompleted closes the held request after its allocation was committed.
func (s *PendingSlot) MarkCompleted() error {
	if s.booking == nil {
		return ErrNoPendingBooking
	}
	if s.booking.Status == PendingBookingStatusCompleted {
		return fmt.Errorf("pending booking already %s", s.booking.Status)
	}
	s.booking.Status = PendingBookingStatusCompleted
	return nil
}

// Clone returns an independent copy of the slot.
func (s PendingSlot) Clone() PendingSlot {
	if s.booking == nil {
		return PendingSlot{}
	}
	return PendingSlot{booking: cloneBooking(s.booking)}
}

// MarshalJSON encodes the empty slot as null.
func (s PendingSlot) MarshalJSON() ([]byte, error) {
	if s.booking == nil {
		return []byte("null"), nil
	}
	return json.Marshal(s.booking)
}

func (s *PendingSlot) UnmarshalJSON(data []byte) error {
	if string(data) == "null" || len(data) == 0 {
		s.booking = nil
		return nil
	}

	var b PendingBooking
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("decode pending booking: %w", err)
	}
	s.booking = &b
	return nil
}

func cloneBooking(b *PendingBooking) *PendingBooking {
	c := *b
	c.Selections = slices.Clone(b.Selections)
	c.AddOns = slices.Clone(b.AddOns)
	return &c
}
