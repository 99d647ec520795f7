package response

import (
	"time"

	"rental-marketplace/internal/data/entity"
)

type PendingBookingResponse struct {
	Selections     []entity.UnitSelection      `json:"selections"`
	AddOns         []entity.AddOn              `json:"add_ons"`
	DurationMonths int                         `json:"duration_months"`
	PackageTier    string                      `json:"package_tier"`
	CommissionRate string                      `json:"commission_rate"`
	Comments       string                      `json:"comments,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
	Status         entity.PendingBookingStatus `json:"status"`
}

type VendorResponse struct {
	ID                 string                    `json:"id"`
	Name               string                    `json:"name"`
	Email              string                    `json:"email"`
	Company            string                    `json:"company,omitempty"`
	Status             entity.RegistrationStatus `json:"registration_status"`
	TrialStartDate     *time.Time                `json:"trial_start_date,omitempty"`
	TrialEndDate       *time.Time                `json:"trial_end_date,omitempty"`
	IsPublic           bool                      `json:"is_public"`
	CancellationReason string                    `json:"cancellation_reason,omitempty"`
	PendingBooking     *PendingBookingResponse   `json:"pending_booking"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

type TrialStatusResponse struct {
	VendorID           string                    `json:"vendor_id"`
	Status             entity.RegistrationStatus `json:"registration_status"`
	TrialStartDate     *time.Time                `json:"trial_start_date,omitempty"`
	TrialEndDate       *time.Time                `json:"trial_end_date,omitempty"`
	DaysRemaining      int                       `json:"days_remaining"`
	IsPublic           bool                      `json:"is_public"`
	TrialWarningSentAt *time.Time                `json:"trial_warning_sent_at,omitempty"`
	CancellationReason string                    `json:"cancellation_reason,omitempty"`
}

type AuditEntryResponse struct {
	ID        string             `json:"id"`
	VendorID  string             `json:"vendor_id"`
	Actor     string             `json:"actor"`
	Action    entity.AuditAction `json:"action"`
	Reason    string             `json:"reason,omitempty"`
	Days      int                `json:"days,omitempty"`
	Details   map[string]string  `json:"details,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

type BulkItemError struct {
	VendorID string `json:"vendor_id"`
	Error    string `json:"error"`
}

type BulkResultResponse struct {
	Operation    string          `json:"operation"`
	SuccessCount int             `json:"success_count"`
	FailureCount int             `json:"failure_count"`
	Errors       []BulkItemError `json:"errors"`
}

func VendorToResponse(v *entity.Vendor) VendorResponse {
	resp := VendorResponse{
		ID:                 v.ID.String(),
		Name:               v.Name,
		Email:              v.Email,
		Company:            v.Company,
		Status:             v.Status,
		TrialStartDate:     v.TrialStartDate,
		TrialEndDate:       v.TrialEndDate,
		IsPublic:           v.IsPublic,
		CancellationReason: v.CancellationReason,
		CreatedAt:          v.CreatedAt,
		UpdatedAt:          v.UpdatedAt,
	}
	if b, ok := v.Pending.Get(); ok {
		resp.PendingBooking = &PendingBookingResponse{
			Selections:     b.Selections,
			AddOns:         b.AddOns,
			DurationMonths: b.DurationMonths,
			PackageTier:    b.PackageTier,
			CommissionRate: b.CommissionRate.String(),
			Comments:       b.Comments,
			CreatedAt:      b.CreatedAt,
			Status:         b.Status,
		}
	}
	return resp
}

func TrialStatusToResponse(v *entity.Vendor, now time.Time) TrialStatusResponse {
	return TrialStatusResponse{
		VendorID:           v.ID.String(),
		Status:             v.Status,
		TrialStartDate:     v.TrialStartDate,
		TrialEndDate:       v.TrialEndDate,
		DaysRemaining:      v.TrialDaysRemaining(now),
		IsPublic:           v.IsPublic,
		TrialWarningSentAt: v.TrialWarningSentAt,
		CancellationReason: v.CancellationReason,
	}
}

func AuditEntriesToResponse(entries []*entity.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = AuditEntryResponse{
			ID:        e.ID.String(),
			VendorID:  e.VendorID.String(),
			Actor:     e.Actor,
			Action:    e.Action,
			Reason:    e.Reason,
			Days:      e.Days,
			Details:   e.Details,
			CreatedAt: e.CreatedAt,
		}
	}
	return out
}
