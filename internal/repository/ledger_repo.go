package repository

import (
	"context"
	"time"

	"portalwarga/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerFilter narrows List. Zero values do not filter; From/To are inclusive dates.
type LedgerFilter struct {
	Region string
	Nature string
	Origin string
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

type LedgerRepository interface {
	Create(ctx context.Context, entry *model.LedgerEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.LedgerEntry, error)
	List(ctx context.Context, filter LedgerFilter) ([]model.LedgerEntry, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByPurchaseRequest(ctx context.Context, requestID uuid.UUID) (int64, error)
	SumExpenses(ctx context.Context, region string, categoryID uuid.UUID, from, to time.Time) (int64, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Create(ctx context.Context, entry *model.LedgerEntry) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(entry).Error
}

func (r *ledgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	if err := GetDB(ctx, r.db).Preload("Category").First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *ledgerRepository) List(ctx context.Context, filter LedgerFilter) ([]model.LedgerEntry, int64, error) {
	var entries []model.LedgerEntry
	var total int64

	db := GetDB(ctx, r.db)
	apply := func(q *gorm.DB) *gorm.DB {
		if filter.Region != "" {
			q = q.Where("region = ?", filter.Region)
		}
		if filter.Nature != "" {
			q = q.Where("nature = ?", filter.Nature)
		}
		if filter.Origin != "" {
			q = q.Where("origin = ?", filter.Origin)
		}
		if filter.From != nil {
			q = q.Where("date >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("date <= ?", *filter.To)
		}
		return q
	}

	if err := apply(db.Model(&model.LedgerEntry{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := apply(db.Preload("Category")).
		Order("date DESC, created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *ledgerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return affected(GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.LedgerEntry{}))
}

func (r *ledgerRepository) DeleteByPurchaseRequest(ctx context.Context, requestID uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Where("purchase_request_id = ?", requestID).Delete(&model.LedgerEntry{})
	return res.RowsAffected, res.Error
}

// SumExpenses totals expense entries for one region and category with from <= date < to.
func (r *ledgerRepository) SumExpenses(ctx context.Context, region string, categoryID uuid.UUID, from, to time.Time) (int64, error) {
	var total int64
	if err := GetDB(ctx, r.db).Model(&model.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("nature = ? AND region = ? AND category_id = ? AND date >= ? AND date < ?",
			model.NatureExpense, region, categoryID, from, to).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
