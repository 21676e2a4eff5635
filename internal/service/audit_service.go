package service

import (
	"context"
	"encoding/json"
	"fmt"

	"portalwarga/internal/identity"
	"portalwarga/internal/model"
	"portalwarga/internal/repository"

	"github.com/google/uuid"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditFilter struct {
	Action   string
	EntityID string
	Page     int
	Limit    int
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, filter AuditFilter) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
	identity  identity.Provider
	policy    RolePolicy
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository, identityProvider identity.Provider, policy RolePolicy) AuditService {
	return &auditService{auditRepo: auditRepo, identity: identityProvider, policy: policy}
}

// GetAuditLogs returns one page of audit rows, newest first, with the acting profile joined in.
// Only approvers and admins may read it.
func (s *auditService) GetAuditLogs(ctx context.Context, filter AuditFilter) ([]AuditLogResponse, int64, error) {
	actor, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, 0, err
	}
	if !s.policy.IsApprover(actor.Role) {
		return nil, 0, fmt.Errorf("%w: role %q cannot read the audit trail", ErrForbidden, actor.Role)
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	logs, total, err := s.auditRepo.List(ctx, repository.AuditFilter{
		Action:   filter.Action,
		EntityID: filter.EntityID,
		Page:     filter.Page,
		Limit:    filter.Limit,
	})
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		userID := ""
		if l.User != nil {
			username = l.User.FullName
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Username:   username,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}

// newAuditLog builds the row written next to every mutating operation.
func newAuditLog(actor identity.Actor, action, entityID, entityName string, details map[string]interface{}) *model.AuditLog {
	payload, _ := json.Marshal(details)
	var userID *uuid.UUID
	if actor.ID != uuid.Nil {
		id := actor.ID
		userID = &id
	}
	return &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
}
