package repository

import (
	"context"
	"time"

	"portalwarga/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BudgetRepository interface {
	FindCeiling(ctx context.Context, year int, region string, categoryID uuid.UUID) (*model.BudgetCeiling, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.BudgetCeiling, error)
	ListCeilings(ctx context.Context, year int, region string) ([]model.BudgetCeiling, error)
	Upsert(ctx context.Context, ceiling *model.BudgetCeiling) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type budgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository(db *gorm.DB) BudgetRepository {
	return &budgetRepository{db: db}
}

func (r *budgetRepository) FindCeiling(ctx context.Context, year int, region string, categoryID uuid.UUID) (*model.BudgetCeiling, error) {
	var ceiling model.BudgetCeiling
	if err := GetDB(ctx, r.db).
		Where("year = ? AND region = ? AND category_id = ?", year, region, categoryID).
		First(&ceiling).Error; err != nil {
		return nil, err
	}
	return &ceiling, nil
}

func (r *budgetRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.BudgetCeiling, error) {
	var ceiling model.BudgetCeiling
	if err := GetDB(ctx, r.db).First(&ceiling, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ceiling, nil
}

func (r *budgetRepository) ListCeilings(ctx context.Context, year int, region string) ([]model.BudgetCeiling, error) {
	var ceilings []model.BudgetCeiling
	query := GetDB(ctx, r.db).Preload("Category").Where("year = ?", year)
	if region != "" {
		query = query.Where("region = ?", region)
	}
	if err := query.Order("region ASC, category_id ASC").Find(&ceilings).Error; err != nil {
		return nil, err
	}
	return ceilings, nil
}

// Upsert inserts the ceiling or replaces the amount of the existing (year, region, category) row.
func (r *budgetRepository) Upsert(ctx context.Context, ceiling *model.BudgetCeiling) error {
	db := GetDB(ctx, r.db)
	if err := db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "year"}, {Name: "region"}, {Name: "category_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"amount":     ceiling.Amount,
			"updated_at": time.Now(),
		}),
	}).Create(ceiling).Error; err != nil {
		return err
	}
	// Reload by the natural key into a fresh value: First on ceiling would also filter by its id,
	// which is not the stored id when the conflict path ran.
	var stored model.BudgetCeiling
	if err := db.Where("year = ? AND region = ? AND category_id = ?", ceiling.Year, ceiling.Region, ceiling.CategoryID).
		First(&stored).Error; err != nil {
		return err
	}
	*ceiling = stored
	return nil
}

func (r *budgetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return affected(GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.BudgetCeiling{}))
}
