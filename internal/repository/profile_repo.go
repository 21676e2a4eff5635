package repository

import (
	"context"

	"portalwarga/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProfileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	if err := GetDB(ctx, r.db).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}
