package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"portalwarga/internal/identity"
	"portalwarga/internal/model"
	"portalwarga/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

// BudgetUsage is the state of one (year, region, category) budget line.
type BudgetUsage struct {
	CeilingID   *uuid.UUID      `json:"ceiling_id,omitempty"`
	Year        int             `json:"year"`
	Region      string          `json:"region"`
	CategoryID  uuid.UUID       `json:"category_id"`
	Category    *model.Category `json:"category,omitempty"`
	Ceiling     int64           `json:"ceiling"`
	Consumed    int64           `json:"consumed"`
	Remaining   int64           `json:"remaining"`
	Utilisation string          `json:"utilisation_pct"`
}

// BudgetWarning is advisory. It never blocks the operation that produced it.
type BudgetWarning struct {
	Requested int64       `json:"requested"`
	Usage     BudgetUsage `json:"usage"`
	Message   string      `json:"message"`
}

type UpsertBudgetInput struct {
	Year       int       `json:"year" binding:"required"`
	Region     string    `json:"region" binding:"required"`
	CategoryID uuid.UUID `json:"category_id"`
	Amount     int64     `json:"amount"`
}

// --- Interface ---

type BudgetService interface {
	GetUsage(ctx context.Context, year int, region string, categoryID uuid.UUID) (*BudgetUsage, error)
	CheckRequest(ctx context.Context, year int, region string, categoryID uuid.UUID, amount int64) (*BudgetWarning, error)
	ListUsage(ctx context.Context, year int, region string) ([]BudgetUsage, error)
	UpsertCeiling(ctx context.Context, input UpsertBudgetInput) (*model.BudgetCeiling, error)
	DeleteCeiling(ctx context.Context, id uuid.UUID) error
}

type budgetService struct {
	budgetRepo repository.BudgetRepository
	ledgerRepo repository.LedgerRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	identity   identity.Provider
	policy     RolePolicy
}

func NewBudgetService(
	budgetRepo repository.BudgetRepository,
	ledgerRepo repository.LedgerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	identityProvider identity.Provider,
	policy RolePolicy,
) BudgetService {
	return &budgetService{
		budgetRepo: budgetRepo,
		ledgerRepo: ledgerRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		identity:   identityProvider,
		policy:     policy,
	}
}

// --- Implementation ---

func (s *budgetService) GetUsage(ctx context.Context, year int, region string, categoryID uuid.UUID) (*BudgetUsage, error) {
	if err := validateBudgetKey(year, region, categoryID); err != nil {
		return nil, err
	}

	usage := BudgetUsage{Year: year, Region: region, CategoryID: categoryID}
	ceiling, err := s.budgetRepo.FindCeiling(ctx, year, region, categoryID)
	switch {
	case err == nil:
		usage.CeilingID = &ceiling.ID
		usage.Ceiling = ceiling.Amount
	case errors.Is(err, gorm.ErrRecordNotFound):
		// unconfigured ceiling counts as zero
	default:
		return nil, fmt.Errorf("failed to load budget ceiling: %w", err)
	}

	if err := s.fillConsumption(ctx, &usage); err != nil {
		return nil, err
	}
	return &usage, nil
}

func (s *budgetService) CheckRequest(ctx context.Context, year int, region string, categoryID uuid.UUID, amount int64) (*BudgetWarning, error) {
	if amount <= 0 {
		return nil, validationError("amount must be positive")
	}
	usage, err := s.GetUsage(ctx, year, region, categoryID)
	if err != nil {
		return nil, err
	}
	if amount <= usage.Remaining {
		return nil, nil
	}
	return &BudgetWarning{
		Requested: amount,
		Usage:     *usage,
		Message: fmt.Sprintf("Nominal %d melebihi sisa anggaran %d (terpakai %s%%)",
			amount, usage.Remaining, usage.Utilisation),
	}, nil
}

func (s *budgetService) ListUsage(ctx context.Context, year int, region string) ([]BudgetUsage, error) {
	if year <= 0 {
		return nil, validationError("year is required")
	}
	if region != "" && !model.IsValidRegion(region) {
		return nil, validationError("unknown region %q", region)
	}

	ceilings, err := s.budgetRepo.ListCeilings(ctx, year, region)
	if err != nil {
		return nil, fmt.Errorf("failed to list budget ceilings: %w", err)
	}

	res := make([]BudgetUsage, 0, len(ceilings))
	for i := range ceilings {
		c := ceilings[i]
		usage := BudgetUsage{
			CeilingID:  &c.ID,
			Year:       c.Year,
			Region:     c.Region,
			CategoryID: c.CategoryID,
			Category:   c.Category,
			Ceiling:    c.Amount,
		}
		if err := s.fillConsumption(ctx, &usage); err != nil {
			return nil, err
		}
		res = append(res, usage)
	}
	return res, nil
}

func (s *budgetService) UpsertCeiling(ctx context.Context, input UpsertBudgetInput) (*model.BudgetCeiling, error) {
	if err := validateBudgetKey(input.Year, input.Region, input.CategoryID); err != nil {
		return nil, err
	}
	if input.Amount < 0 {
		return nil, validationError("budget amount cannot be negative")
	}

	actor, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !s.policy.IsProcessor(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot manage budgets", ErrForbidden, actor.Role)
	}

	ceiling := &model.BudgetCeiling{
		Year:       input.Year,
		Region:     input.Region,
		CategoryID: input.CategoryID,
		Amount:     input.Amount,
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.budgetRepo.Upsert(txCtx, ceiling); err != nil {
			return storeError(err, "budget ceiling")
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor, model.ActionUpsertBudget, ceiling.ID.String(),
			fmt.Sprintf("%d/%s", ceiling.Year, ceiling.Region), map[string]interface{}{
				"year":        ceiling.Year,
				"region":      ceiling.Region,
				"category_id": ceiling.CategoryID,
				"amount":      ceiling.Amount,
			}))
	})
	if err != nil {
		return nil, err
	}
	return ceiling, nil
}

func (s *budgetService) DeleteCeiling(ctx context.Context, id uuid.UUID) error {
	actor, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if !s.policy.IsProcessor(actor.Role) {
		return fmt.Errorf("%w: role %q cannot manage budgets", ErrForbidden, actor.Role)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ceiling, err := s.budgetRepo.FindByID(txCtx, id)
		if err != nil {
			return storeError(err, "budget ceiling")
		}
		if err := s.budgetRepo.Delete(txCtx, id); err != nil {
			return storeError(err, "budget ceiling")
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor, model.ActionDeleteBudget, id.String(),
			fmt.Sprintf("%d/%s", ceiling.Year, ceiling.Region), map[string]interface{}{
				"category_id": ceiling.CategoryID,
				"amount":      ceiling.Amount,
			}))
	})
}

// fillConsumption sums the year's expenses and derives remaining and utilisation.
func (s *budgetService) fillConsumption(ctx context.Context, usage *BudgetUsage) error {
	from, to := yearWindow(usage.Year)
	consumed, err := s.ledgerRepo.SumExpenses(ctx, usage.Region, usage.CategoryID, from, to)
	if err != nil {
		return fmt.Errorf("failed to sum expenses: %w", err)
	}
	usage.Consumed = consumed
	usage.Remaining = usage.Ceiling - consumed
	usage.Utilisation = utilisation(consumed, usage.Ceiling)
	return nil
}

// utilisation is consumed/ceiling in percent with two decimals; a non-positive ceiling yields 0.
func utilisation(consumed, ceiling int64) string {
	if ceiling <= 0 {
		return decimal.Zero.StringFixed(2)
	}
	return decimal.NewFromInt(consumed).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(ceiling), 2).
		StringFixed(2)
}

// yearWindow returns [Jan 1 of year, Jan 1 of year+1).
func yearWindow(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}

func validateBudgetKey(year int, region string, categoryID uuid.UUID) error {
	if year < 2000 || year > 9999 {
		return validationError("invalid year %s", strconv.Itoa(year))
	}
	if !model.IsValidRegion(region) {
		return validationError("unknown region %q", region)
	}
	if categoryID == uuid.Nil {
		return validationError("category_id is required")
	}
	return nil
}
