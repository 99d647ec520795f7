package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UnitType string

const (
	UnitTypeStandardShelf UnitType = "standard_shelf"
	UnitTypeCooledShelf   UnitType = "cooled_shelf"
	UnitTypeFrozenShelf   UnitType = "frozen_shelf"
	UnitTypeSalesTable    UnitType = "sales_table"
	UnitTypeDisplayWindow UnitType = "display_window"
	UnitTypeOther         UnitType = "other"
)

var unitTypes = map[UnitType]struct{}{
	UnitTypeStandardShelf: {},
	UnitTypeCooledShelf:   {},
	UnitTypeFrozenShelf:   {},
	UnitTypeSalesTable:    {},
	UnitTypeDisplayWindow: {},
	UnitTypeOther:         {},
}

func (t UnitType) Valid() bool {
	_, ok := unitTypes[t]
	return ok
}

// RentalUnit is a physical sellable space. IsAvailable is false while a
// contract holds the unit or while an operator has blocked it.
type RentalUnit struct {
	Base
	Label       string          `db:"label"` // globally unique, e.g. "R-12"
	Type        UnitType        `db:"unit_type"`
	BasePrice   decimal.Decimal `db:"base_price"` // monthly
	IsAvailable bool            `db:"is_available"`
	ContractID  *uuid.UUID      `db:"contract_id"`
	VendorID    *uuid.UUID      `db:"vendor_id"`
}

// IsAssigned reports whether the unit is cross-referenced to a contract or vendor.
func (u *RentalUnit) IsAssigned() bool {
	return u.ContractID != nil || u.VendorID != nil
}
