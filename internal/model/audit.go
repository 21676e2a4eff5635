package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreatePurchaseRequest   = "CREATE_PURCHASE_REQUEST"
	ActionUpdatePurchaseRequest   = "UPDATE_PURCHASE_REQUEST"
	ActionResubmitPurchaseRequest = "RESUBMIT_PURCHASE_REQUEST"
	ActionApprovePurchaseRequest  = "APPROVE_PURCHASE_REQUEST"
	ActionRejectPurchaseRequest   = "REJECT_PURCHASE_REQUEST"
	ActionRequestRevision         = "REQUEST_REVISION"
	ActionBeginProcessing         = "BEGIN_PROCESSING"
	ActionCompletePurchaseRequest = "COMPLETE_PURCHASE_REQUEST"
	ActionCancelPurchaseRequest   = "CANCEL_PURCHASE_REQUEST"
	ActionDeletePurchaseRequest   = "DELETE_PURCHASE_REQUEST"

	ActionPostLedgerEntry   = "POST_LEDGER_ENTRY"
	ActionCreateLedgerEntry = "CREATE_LEDGER_ENTRY"
	ActionDeleteLedgerEntry = "DELETE_LEDGER_ENTRY"
	ActionCreateCategory    = "CREATE_CATEGORY"
	ActionUpsertBudget      = "UPSERT_BUDGET_CEILING"
	ActionDeleteBudget      = "DELETE_BUDGET_CEILING"
)

// AuditLog tracks Who, What, and When for critical changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User       *Profile   `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/number)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
