package service

import (
	"context"
	"time"

	"portalwarga/internal/model"
	"portalwarga/internal/repository"
)

const topCategoryLimit = 5

type StatisticsService interface {
	GetLedgerSummary(ctx context.Context, region string, from, to time.Time) (model.LedgerSummary, error)
}

type statisticsService struct {
	statsRepo repository.StatisticsRepository
}

func NewStatisticsService(statsRepo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{statsRepo: statsRepo}
}

// GetLedgerSummary totals income and expense for from <= date < to and ranks expense categories.
func (s *statisticsService) GetLedgerSummary(ctx context.Context, region string, from, to time.Time) (model.LedgerSummary, error) {
	summary := model.LedgerSummary{Region: region, From: from, To: to}
	if region != "" && !model.IsValidRegion(region) {
		return summary, validationError("unknown region %q", region)
	}
	if !to.After(from) {
		return summary, validationError("end date must be after start date")
	}

	var err error
	summary.TotalIncome, summary.IncomeCount, err = s.statsRepo.SumByNature(ctx, model.NatureIncome, region, from, to)
	if err != nil {
		return summary, err
	}
	summary.TotalExpense, summary.ExpenseCount, err = s.statsRepo.SumByNature(ctx, model.NatureExpense, region, from, to)
	if err != nil {
		return summary, err
	}
	summary.Balance = summary.TotalIncome - summary.TotalExpense

	summary.TopCategories, err = s.statsRepo.TopExpenseCategories(ctx, region, from, to, topCategoryLimit)
	if err != nil {
		return summary, err
	}
	if summary.TopCategories == nil {
		summary.TopCategories = []model.CategoryTotal{}
	}
	return summary, nil
}
