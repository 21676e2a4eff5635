package model

import (
	"time"

	"github.com/google/uuid"
)

// Profile mirrors an account of the external identity system. ID equals the token subject.
type Profile struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FullName   string     `gorm:"type:varchar(255);not null" json:"full_name"`
	Role       string     `gorm:"type:varchar(50);not null" json:"role"`
	Title      string     `gorm:"type:varchar(100)" json:"title"`
	Phone      string     `gorm:"type:varchar(30)" json:"phone"`
	ResidentID *uuid.UUID `gorm:"type:uuid;index" json:"resident_id"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
