package repository

import (
	"context"
	"fmt"
	"time"

	"portalwarga/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PurchaseRequestFilter narrows List. Empty fields do not filter.
type PurchaseRequestFilter struct {
	Status string
	Region string
}

type PurchaseRequestRepository interface {
	NextRequestNo(ctx context.Context, at time.Time) (string, error)
	Create(ctx context.Context, req *model.PurchaseRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseRequest, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.PurchaseRequest, error)
	List(ctx context.Context, filter PurchaseRequestFilter) ([]model.PurchaseRequest, error)
	UpdateVersioned(ctx context.Context, req *model.PurchaseRequest) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// mutableColumns are written by UpdateVersioned. Number, requester and creation time never change.
var mutableColumns = []string{
	"description", "region", "request_date", "target_date", "category_id", "amount",
	"reference_link", "note", "quote_evidence", "approval_evidence", "payment_evidence",
	"reimburse_account_number", "reimburse_account_name", "reimburse_bank_name",
	"status", "history",
	"approved_by", "approved_at", "approval_note",
	"processed_by", "processed_at", "processing_note", "payment_date",
	"version", "updated_at",
}

type purchaseRequestRepository struct {
	db *gorm.DB
}

func NewPurchaseRequestRepository(db *gorm.DB) PurchaseRequestRepository {
	return &purchaseRequestRepository{db: db}
}

// NextRequestNo issues PP-YYYYMM-NNNN. The counter row is upserted and re-read inside the
// caller's transaction, so numbers are unique and never reused after a delete.
func (r *purchaseRequestRepository) NextRequestNo(ctx context.Context, at time.Time) (string, error) {
	period := at.Format("200601")
	db := GetDB(ctx, r.db)

	seq := model.RequestSequence{Period: period, LastValue: 1}
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "period"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_value": gorm.Expr("request_sequences.last_value + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&seq).Error; err != nil {
		return "", err
	}

	if err := db.First(&seq, "period = ?", period).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("PP-%s-%04d", period, seq.LastValue), nil
}

func (r *purchaseRequestRepository) Create(ctx context.Context, req *model.PurchaseRequest) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(req).Error
}

func (r *purchaseRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseRequest, error) {
	var req model.PurchaseRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *purchaseRequestRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.PurchaseRequest, error) {
	var req model.PurchaseRequest
	if err := GetDB(ctx, r.db).
		Preload("Category").
		Preload("RequesterProfile").
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *purchaseRequestRepository) List(ctx context.Context, filter PurchaseRequestFilter) ([]model.PurchaseRequest, error) {
	var requests []model.PurchaseRequest

	query := GetDB(ctx, r.db).Preload("Category")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Region != "" {
		query = query.Where("region = ?", filter.Region)
	}
	if err := query.Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// UpdateVersioned writes req only if the stored version still equals req.Version, then bumps it.
// A lost race or a filtered write returns ErrNoRowsAffected and leaves req.Version untouched.
func (r *purchaseRequestRepository) UpdateVersioned(ctx context.Context, req *model.PurchaseRequest) error {
	expected := req.Version
	req.Version = expected + 1
	req.UpdatedAt = time.Now()

	res := GetDB(ctx, r.db).
		Model(&model.PurchaseRequest{}).
		Where("id = ? AND version = ?", req.ID, expected).
		Select(mutableColumns).
		Updates(req)
	if err := affected(res); err != nil {
		req.Version = expected
		return err
	}
	return nil
}

func (r *purchaseRequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return affected(GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.PurchaseRequest{}))
}
