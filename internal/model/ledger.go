package model

import (
	"time"

	"github.com/google/uuid"
)

// Ledger entry nature
const (
	NatureIncome  = "income"
	NatureExpense = "expense"
)

// Ledger entry origin
const (
	OriginManual          = "manual"
	OriginUtilityBilling  = "utility-billing"
	OriginPurchaseRequest = "purchase-request"
)

// Category is an expense classification shared by ledger entries and budget ceilings.
type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code      string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LedgerEntry is one posted cash movement. Entries posted from a purchase request
// carry its id, and at most one entry may point at the same request.
type LedgerEntry struct {
	ID                uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Region            string           `gorm:"type:varchar(20);not null;index:idx_ledger_budget,priority:1" json:"region"`
	Nature            string           `gorm:"type:varchar(10);not null;index" json:"nature"`
	Origin            string           `gorm:"type:varchar(20);not null;index" json:"origin"`
	Date              time.Time        `gorm:"type:date;not null;index:idx_ledger_budget,priority:3" json:"date"`
	CategoryID        *uuid.UUID       `gorm:"type:uuid;index:idx_ledger_budget,priority:2" json:"category_id"`
	Category          *Category        `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Amount            int64            `gorm:"not null;check:ledger_amount_positive,amount > 0" json:"amount"`
	Note              string           `gorm:"type:text" json:"note"`
	PurchaseRequestID *uuid.UUID       `gorm:"type:uuid;uniqueIndex" json:"purchase_request_id"`
	PurchaseRequest   *PurchaseRequest `gorm:"foreignKey:PurchaseRequestID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedBy         *uuid.UUID       `gorm:"type:uuid" json:"created_by"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func IsValidNature(nature string) bool {
	return nature == NatureIncome || nature == NatureExpense
}

func IsValidOrigin(origin string) bool {
	return origin == OriginManual || origin == OriginUtilityBilling || origin == OriginPurchaseRequest
}
