package entity

import (
	"time"
)

type RegistrationStatus string

const (
	RegistrationStatusPreregistered RegistrationStatus = "preregistered"
	RegistrationStatusTrialActive   RegistrationStatus = "trial_active"
	RegistrationStatusTrialExpired  RegistrationStatus = "trial_expired"
	RegistrationStatusActive        RegistrationStatus = "active"
	RegistrationStatusCancelled     RegistrationStatus = "cancelled"
)

// IsTerminal reports whether no lifecycle transition other than an admin
// reactivation leaves the status.
func (s RegistrationStatus) IsTerminal() bool {
	return s == RegistrationStatusCancelled
}

// InTrial reports whether a booking made in this status is a trial booking.
func (s RegistrationStatus) InTrial() bool {
	return s == RegistrationStatusPreregistered || s == RegistrationStatusTrialActive
}

type Vendor struct {
	Base
	Name               string             `db:"name"`
	Email              string             `db:"email"`
	Company            string             `db:"company"`
	Status             RegistrationStatus `db:"registration_status"`
	TrialStartDate     *time.Time         `db:"trial_start_date"`
	TrialEndDate       *time.Time         `db:"trial_end_date"`
	IsPublic           bool               `db:"is_public"`
	CancellationReason string             `db:"cancellation_reason"`
	TrialWarningSentAt *time.Time         `db:"trial_warning_sent_at"`
	Pending            PendingSlot        `db:"pending_booking"`
	Version            int                `db:"version"`
}

// StartTrial opens a fresh trial window of lengthDays starting at now.
func (v *Vendor) StartTrial(now time.Time, lengthDays int) {
	start := now
	end := now.AddDate(0, 0, lengthDays)
	v.Status = RegistrationStatusTrialActive
	v.TrialStartDate = &start
	v.TrialEndDate = &end
	v.TrialWarningSentAt = nil
	v.IsPublic = true
}

// TrialDaysRemaining counts whole days until the trial ends, never negative.
func (v *Vendor) TrialDaysRemaining(now time.Time) int {
	if v.TrialEndDate == nil || !now.Before(*v.TrialEndDate) {
		return 0
	}
	remaining := v.TrialEndDate.Sub(now)
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) != 0 {
		days++
	}
	return days
}
