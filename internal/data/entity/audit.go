package entity

import (
	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditActionTrialActivated   AuditAction = "trial_activated"
	AuditActionTrialExtended    AuditAction = "trial_extended"
	AuditActionTrialExpired     AuditAction = "trial_expired"
	AuditActionTrialCancelled   AuditAction = "trial_cancelled"
	AuditActionTrialConverted   AuditAction = "trial_converted"
	AuditActionTrialReactivated AuditAction = "trial_reactivated"
	AuditActionReminderReset    AuditAction = "reminder_reset"
	AuditActionPriceOverride    AuditAction = "price_override"
	AuditActionBookingConfirmed AuditAction = "booking_confirmed"
)

// AuditEntry is an append-only record of an administrative action on a vendor.
type AuditEntry struct {
	BaseSimple
	VendorID uuid.UUID         `db:"vendor_id"`
	Actor    string            `db:"actor"`
	Action   AuditAction       `db:"action"`
	Reason   string            `db:"reason"`
	Days     int               `db:"days"` // extension length, 0 for other actions
	Details  map[string]string `db:"details"`
}
