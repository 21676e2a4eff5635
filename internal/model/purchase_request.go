package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Purchase request status values
const (
	StatusSubmitted     = "submitted"
	StatusApproved      = "approved"
	StatusRejected      = "rejected"
	StatusNeedsRevision = "needs_revision"
	StatusProcessing    = "processing"
	StatusCompleted     = "completed"
	StatusCancelled     = "cancelled"
)

// Region values
const (
	RegionUtara   = "utara"
	RegionSelatan = "selatan"
)

var Regions = []string{RegionUtara, RegionSelatan}

func IsValidRegion(region string) bool {
	for _, r := range Regions {
		if r == region {
			return true
		}
	}
	return false
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusSubmitted, StatusApproved, StatusRejected, StatusNeedsRevision,
		StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminalStatus reports whether no further transition is defined from status.
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusRejected || status == StatusCancelled
}

// RequesterSnapshot is a point-in-time copy of who asked. It is not refreshed when the profile changes.
type RequesterSnapshot struct {
	Name  string `gorm:"type:varchar(255);not null" json:"name"`
	Title string `gorm:"type:varchar(100)" json:"title"`
	Phone string `gorm:"type:varchar(30)" json:"phone"`
}

// Reimbursement is present only when the request pays an individual back instead of a vendor.
type Reimbursement struct {
	AccountNumber string `gorm:"type:varchar(50)" json:"account_number"`
	AccountName   string `gorm:"type:varchar(255)" json:"account_name"`
	BankName      string `gorm:"type:varchar(100)" json:"bank_name"`
}

func (r Reimbursement) IsEmpty() bool {
	return r.AccountNumber == "" && r.AccountName == "" && r.BankName == ""
}

func (r Reimbursement) IsComplete() bool {
	return r.AccountNumber != "" && r.AccountName != "" && r.BankName != ""
}

// StatusHistoryEntry is one element of the append-only transition trail.
type StatusHistoryEntry struct {
	Status    string    `json:"status"`
	At        time.Time `json:"at"`
	Note      string    `json:"note"`
	ActorID   uuid.UUID `json:"actor_id"`
	ActorName string    `json:"actor_name"`
	Evidence  string    `json:"evidence,omitempty"`
}

// PurchaseRequest is one purchase/expense ask moving through the approval pipeline.
type PurchaseRequest struct {
	ID               uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestNo        string            `gorm:"type:varchar(30);uniqueIndex;not null" json:"request_no"`
	RequesterID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester        RequesterSnapshot `gorm:"embedded;embeddedPrefix:requester_" json:"requester"`
	RequesterProfile *Profile          `gorm:"foreignKey:RequesterID" json:"requester_profile,omitempty"`

	Description   string     `gorm:"type:text;not null" json:"description"`
	Region        string     `gorm:"type:varchar(20);not null;index" json:"region"`
	RequestDate   time.Time  `gorm:"type:date;not null" json:"request_date"`
	TargetDate    *time.Time `gorm:"type:date" json:"target_date"`
	CategoryID    *uuid.UUID `gorm:"type:uuid;index" json:"category_id"`
	Category      *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Amount        int64      `gorm:"not null;check:purchase_amount_positive,amount > 0" json:"amount"`
	ReferenceLink string     `gorm:"type:text" json:"reference_link"`
	Note          string     `gorm:"type:text" json:"note"`

	// Evidence columns hold a storage key, an absolute URL, or nothing.
	QuoteEvidence    string `gorm:"type:text" json:"quote_evidence"`
	ApprovalEvidence string `gorm:"type:text" json:"approval_evidence"`
	PaymentEvidence  string `gorm:"type:text" json:"payment_evidence"`

	Reimbursement Reimbursement `gorm:"embedded;embeddedPrefix:reimburse_" json:"reimbursement"`

	Status  string                                  `gorm:"type:varchar(20);not null;default:'submitted';index" json:"status"`
	History datatypes.JSONSlice[StatusHistoryEntry] `gorm:"type:jsonb;not null" json:"history"`

	ApprovedBy     *uuid.UUID `gorm:"type:uuid" json:"approved_by"`
	ApprovedAt     *time.Time `json:"approved_at"`
	ApprovalNote   string     `gorm:"type:text" json:"approval_note"`
	ProcessedBy    *uuid.UUID `gorm:"type:uuid" json:"processed_by"`
	ProcessedAt    *time.Time `json:"processed_at"`
	ProcessingNote string     `gorm:"type:text" json:"processing_note"`
	PaymentDate    *time.Time `gorm:"type:date" json:"payment_date"`

	Version   int       `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppendHistory is the only way status changes: the entry is appended and status follows it.
func (p *PurchaseRequest) AppendHistory(entry StatusHistoryEntry) {
	p.History = append(p.History, entry)
	p.Status = entry.Status
}

// LastHistoryStatus returns the status recorded by the newest history entry.
func (p *PurchaseRequest) LastHistoryStatus() string {
	if len(p.History) == 0 {
		return ""
	}
	return p.History[len(p.History)-1].Status
}

func (p *PurchaseRequest) IsEditable() bool {
	return p.Status == StatusSubmitted || p.Status == StatusNeedsRevision
}

func (p *PurchaseRequest) EvidenceRefs() []string {
	refs := make([]string, 0, 3+len(p.History))
	seen := map[string]bool{}
	add := func(ref string) {
		if ref != "" && !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	add(p.QuoteEvidence)
	add(p.ApprovalEvidence)
	add(p.PaymentEvidence)
	for _, h := range p.History {
		add(h.Evidence)
	}
	return refs
}

// RequestSequence keeps the last issued number per YYYYMM period so numbers are never reused.
type RequestSequence struct {
	Period    string    `gorm:"type:varchar(6);primaryKey" json:"period"`
	LastValue int       `gorm:"not null" json:"last_value"`
	UpdatedAt time.Time `json:"updated_at"`
}
