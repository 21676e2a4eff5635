package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"portalwarga/internal/identity"
	"portalwarga/internal/model"
	"portalwarga/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type LedgerFilter struct {
	Region string
	Nature string
	Origin string
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

type CreateLedgerEntryInput struct {
	Region     string     `json:"region" binding:"required"`
	Nature     string     `json:"nature" binding:"required"`
	Date       time.Time  `json:"date" binding:"required"`
	CategoryID *uuid.UUID `json:"category_id"`
	Amount     int64      `json:"amount" binding:"required"`
	Note       string     `json:"note"`
}

type CreateCategoryInput struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// --- Interface ---

type LedgerService interface {
	// PostFromPurchaseRequest must run inside the caller's transaction.
	PostFromPurchaseRequest(ctx context.Context, req *model.PurchaseRequest, paymentDate time.Time, actorID uuid.UUID) (*model.LedgerEntry, error)
	// RemoveForPurchaseRequest must run inside the caller's transaction.
	RemoveForPurchaseRequest(ctx context.Context, requestID uuid.UUID) (int64, error)
	List(ctx context.Context, filter LedgerFilter) ([]model.LedgerEntry, int64, error)
	CreateManual(ctx context.Context, input CreateLedgerEntryInput) (*model.LedgerEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*model.Category, error)
}

type ledgerService struct {
	ledgerRepo   repository.LedgerRepository
	categoryRepo repository.CategoryRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	identity     identity.Provider
	policy       RolePolicy
}

func NewLedgerService(
	ledgerRepo repository.LedgerRepository,
	categoryRepo repository.CategoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	identityProvider identity.Provider,
	policy RolePolicy,
) LedgerService {
	return &ledgerService{
		ledgerRepo:   ledgerRepo,
		categoryRepo: categoryRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		identity:     identityProvider,
		policy:       policy,
	}
}

// --- Implementation ---

func (s *ledgerService) PostFromPurchaseRequest(ctx context.Context, req *model.PurchaseRequest, paymentDate time.Time, actorID uuid.UUID) (*model.LedgerEntry, error) {
	requestID := req.ID
	createdBy := actorID
	note := strings.TrimSpace(req.Note)
	if note == "" {
		note = req.Description
	}
	entry := &model.LedgerEntry{
		Region:            req.Region,
		Nature:            model.NatureExpense,
		Origin:            model.OriginPurchaseRequest,
		Date:              paymentDate,
		CategoryID:        req.CategoryID,
		Amount:            req.Amount,
		Note:              note,
		PurchaseRequestID: &requestID,
		CreatedBy:         &createdBy,
	}
	if err := s.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, storeError(err, "ledger entry for "+req.RequestNo)
	}
	return entry, nil
}

func (s *ledgerService) RemoveForPurchaseRequest(ctx context.Context, requestID uuid.UUID) (int64, error) {
	removed, err := s.ledgerRepo.DeleteByPurchaseRequest(ctx, requestID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove ledger entries: %w", err)
	}
	return removed, nil
}

func (s *ledgerService) List(ctx context.Context, filter LedgerFilter) ([]model.LedgerEntry, int64, error) {
	if filter.Region != "" && !model.IsValidRegion(filter.Region) {
		return nil, 0, validationError("unknown region %q", filter.Region)
	}
	if filter.Nature != "" && !model.IsValidNature(filter.Nature) {
		return nil, 0, validationError("unknown nature %q", filter.Nature)
	}
	if filter.Origin != "" && !model.IsValidOrigin(filter.Origin) {
		return nil, 0, validationError("unknown origin %q", filter.Origin)
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	entries, total, err := s.ledgerRepo.List(ctx, repository.LedgerFilter{
		Region: filter.Region,
		Nature: filter.Nature,
		Origin: filter.Origin,
		From:   filter.From,
		To:     filter.To,
		Page:   filter.Page,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, total, nil
}

func (s *ledgerService) CreateManual(ctx context.Context, input CreateLedgerEntryInput) (*model.LedgerEntry, error) {
	if !model.IsValidRegion(input.Region) {
		return nil, validationError("unknown region %q", input.Region)
	}
	if !model.IsValidNature(input.Nature) {
		return nil, validationError("unknown nature %q", input.Nature)
	}
	if input.Amount <= 0 {
		return nil, validationError("amount must be positive")
	}
	if input.Date.IsZero() {
		return nil, validationError("date is required")
	}

	actor, err := s.requireProcessor(ctx, "record ledger entries")
	if err != nil {
		return nil, err
	}

	createdBy := actor.ID
	entry := &model.LedgerEntry{
		Region:     input.Region,
		Nature:     input.Nature,
		Origin:     model.OriginManual,
		Date:       input.Date,
		CategoryID: input.CategoryID,
		Amount:     input.Amount,
		Note:       strings.TrimSpace(input.Note),
		CreatedBy:  &createdBy,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if input.CategoryID != nil {
			if _, err := s.categoryRepo.FindByID(txCtx, *input.CategoryID); err != nil {
				return storeError(err, "category")
			}
		}
		if err := s.ledgerRepo.Create(txCtx, entry); err != nil {
			return storeError(err, "ledger entry")
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor, model.ActionCreateLedgerEntry, entry.ID.String(),
			entry.Nature, map[string]interface{}{
				"region": entry.Region,
				"amount": entry.Amount,
				"date":   entry.Date.Format("2006-01-02"),
			}))
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Delete removes a manual entry. Entries posted by other flows are removed through their owner.
func (s *ledgerService) Delete(ctx context.Context, id uuid.UUID) error {
	actor, err := s.requireProcessor(ctx, "delete ledger entries")
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		entry, err := s.ledgerRepo.FindByID(txCtx, id)
		if err != nil {
			return storeError(err, "ledger entry")
		}
		if entry.Origin != model.OriginManual {
			return fmt.Errorf("%w: ledger entries with origin %s cannot be deleted directly", ErrForbidden, entry.Origin)
		}
		if err := s.ledgerRepo.Delete(txCtx, id); err != nil {
			return storeError(err, "ledger entry")
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor, model.ActionDeleteLedgerEntry, id.String(),
			entry.Nature, map[string]interface{}{
				"region": entry.Region,
				"amount": entry.Amount,
			}))
	})
}

func (s *ledgerService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *ledgerService) CreateCategory(ctx context.Context, input CreateCategoryInput) (*model.Category, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	name := strings.TrimSpace(input.Name)
	if code == "" || name == "" {
		return nil, validationError("code and name are required")
	}

	actor, err := s.requireProcessor(ctx, "manage categories")
	if err != nil {
		return nil, err
	}

	category := &model.Category{Code: code, Name: name}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.categoryRepo.Create(txCtx, category); err != nil {
			return storeError(err, "category "+code)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor, model.ActionCreateCategory, category.ID.String(),
			category.Code, map[string]interface{}{"name": category.Name}))
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *ledgerService) requireProcessor(ctx context.Context, what string) (identity.Actor, error) {
	actor, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return identity.Actor{}, err
	}
	if !s.policy.IsProcessor(actor.Role) {
		return identity.Actor{}, fmt.Errorf("%w: role %q cannot %s", ErrForbidden, actor.Role, what)
	}
	return actor, nil
}
