package model

import (
	"time"

	"github.com/google/uuid"
)

// BudgetCeiling is the configured yearly spending limit for one region and category.
type BudgetCeiling struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Year       int       `gorm:"not null;uniqueIndex:idx_budget_triple,priority:1" json:"year"`
	Region     string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_budget_triple,priority:2" json:"region"`
	CategoryID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_budget_triple,priority:3" json:"category_id"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Amount     int64     `gorm:"not null;check:budget_amount_non_negative,amount >= 0" json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
