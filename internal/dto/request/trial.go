package request

type ExtendTrialRequest struct {
	Days   int    `json:"days" validate:"required,min=1,max=365"`
	Reason string `json:"reason" validate:"max=500"`
}

type ReasonRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

type BulkTrialRequest struct {
	VendorIDs []string `json:"vendor_ids" validate:"required,min=1,max=500"`
	Operation string   `json:"operation" validate:"required,oneof=extend expire reset_reminder"`
	Days      int      `json:"days,omitempty"`
	Reason    string   `json:"reason,omitempty" validate:"max=500"`
}
