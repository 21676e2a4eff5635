package repository

import (
	"context"
	"fmt"
	"time"

	"portalwarga/internal/model"

	"gorm.io/gorm"
)

type StatisticsRepository interface {
	SumByNature(ctx context.Context, nature, region string, from, to time.Time) (total int64, count int, err error)
	TopExpenseCategories(ctx context.Context, region string, from, to time.Time, limit int) ([]model.CategoryTotal, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

// ledgerRange restricts ledger_entries to from <= date < to and, when set, one region.
func ledgerRange(q *gorm.DB, region string, from, to time.Time) *gorm.DB {
	q = q.Where("ledger_entries.date >= ? AND ledger_entries.date < ?", from, to)
	if region != "" {
		q = q.Where("ledger_entries.region = ?", region)
	}
	return q
}

func (r *statisticsRepository) SumByNature(ctx context.Context, nature, region string, from, to time.Time) (int64, int, error) {
	var result struct {
		Total int64
		Count int
	}
	q := GetDB(ctx, r.db).Table("ledger_entries").
		Select("COALESCE(SUM(ledger_entries.amount), 0) as total, COUNT(*) as count").
		Where("ledger_entries.nature = ?", nature)
	if err := ledgerRange(q, region, from, to).Scan(&result).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to sum %s entries: %w", nature, err)
	}
	return result.Total, result.Count, nil
}

// TopExpenseCategories ranks categories by expense total. Uncategorised entries are grouped
// under a null category.
func (r *statisticsRepository) TopExpenseCategories(ctx context.Context, region string, from, to time.Time, limit int) ([]model.CategoryTotal, error) {
	var rankings []model.CategoryTotal
	q := GetDB(ctx, r.db).Table("ledger_entries").
		Select("ledger_entries.category_id as category_id, COALESCE(categories.code, '') as category_code, COALESCE(categories.name, '') as category_name, SUM(ledger_entries.amount) as total_value, COUNT(*) as entry_count").
		Joins("LEFT JOIN categories ON categories.id = ledger_entries.category_id").
		Where("ledger_entries.nature = ?", model.NatureExpense)
	if err := ledgerRange(q, region, from, to).
		Group("ledger_entries.category_id, categories.code, categories.name").
		Order("total_value DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top expense categories: %w", err)
	}
	return rankings, nil
}
