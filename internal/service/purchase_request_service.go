package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"portalwarga/internal/identity"
	"portalwarga/internal/model"
	"portalwarga/internal/repository"
	"portalwarga/internal/storage"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const maxEvidenceSize = 10 << 20

var allowedEvidenceExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".pdf": true,
}

// Event types published after a purchase request changes.
const (
	EventPurchaseRequestCreated       = "purchase_request.created"
	EventPurchaseRequestUpdated       = "purchase_request.updated"
	EventPurchaseRequestStatusChanged = "purchase_request.status_changed"
	EventPurchaseRequestDeleted       = "purchase_request.deleted"
)

// Notifier receives workflow events after commit. Implementations must not block.
type Notifier interface {
	Publish(eventType string, payload interface{})
}

// --- DTOs ---

// FileUpload is an evidence file received by the transport layer.
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// EvidenceInput carries at most one of an uploaded file or an external URL. Remove clears the
// stored reference on edit.
type EvidenceInput struct {
	URL    string
	File   *FileUpload
	Remove bool
}

func (e EvidenceInput) isEmpty() bool {
	return e.File == nil && strings.TrimSpace(e.URL) == "" && !e.Remove
}

type PurchaseRequestContent struct {
	Description      string
	Region           string
	RequestDate      *time.Time
	TargetDate       *time.Time
	CategoryID       *uuid.UUID
	Amount           int64
	ReferenceLink    string
	Note             string
	Reimbursement    model.Reimbursement
	QuoteEvidence    EvidenceInput
	ApprovalEvidence EvidenceInput
}

type UpdatePurchaseRequestInput struct {
	PurchaseRequestContent
	// Version, when non-zero, must match the stored version.
	Version int
}

type TransitionInput struct {
	Note    string `json:"note"`
	Version int    `json:"version"`
}

type CompleteInput struct {
	Note        string
	PaymentDate *time.Time
	Evidence    EvidenceInput
	Version     int
}

type PurchaseRequestFilter struct {
	Status string
	Region string
}

type PurchaseRequestResponse struct {
	model.PurchaseRequest
	AllowedActions []Action           `json:"allowed_actions"`
	BudgetWarning  *BudgetWarning     `json:"budget_warning,omitempty"`
	LedgerEntry    *model.LedgerEntry `json:"ledger_entry,omitempty"`
}

// WorkflowEvent is the payload published for every purchase request change.
type WorkflowEvent struct {
	RequestID uuid.UUID `json:"request_id"`
	RequestNo string    `json:"request_no"`
	Status    string    `json:"status"`
	Action    string    `json:"action"`
	ActorID   uuid.UUID `json:"actor_id"`
	ActorName string    `json:"actor_name"`
	At        time.Time `json:"at"`
}

// --- Interface ---

type PurchaseRequestService interface {
	Create(ctx context.Context, input PurchaseRequestContent) (*PurchaseRequestResponse, error)
	Update(ctx context.Context, id uuid.UUID, input UpdatePurchaseRequestInput) (*PurchaseRequestResponse, error)
	List(ctx context.Context, filter PurchaseRequestFilter) ([]PurchaseRequestResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*PurchaseRequestResponse, error)
	Approve(ctx context.Context, id uuid.UUID, input TransitionInput) (*PurchaseRequestResponse, error)
	Reject(ctx context.Context, id uuid.UUID, input TransitionInput) (*PurchaseRequestResponse, error)
	RequestRevision(ctx context.Context, id uuid.UUID, input TransitionInput) (*PurchaseRequestResponse, error)
	BeginProcessing(ctx context.Context, id uuid.UUID, input TransitionInput) (*PurchaseRequestResponse, error)
	Complete(ctx context.Context, id uuid.UUID, input CompleteInput) (*PurchaseRequestResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, input TransitionInput) (*PurchaseRequestResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type purchaseRequestService struct {
	requestRepo   repository.PurchaseRequestRepository
	categoryRepo  repository.CategoryRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	ledgerService LedgerService
	budgetService BudgetService
	storage       storage.ObjectStorage
	identity      identity.Provider
	policy        RolePolicy
	notifier      Notifier
	signedURLTTL  time.Duration
	now           func() time.Time
}

func NewPurchaseRequestService(
	requestRepo repository.PurchaseRequestRepository,
	categoryRepo repository.CategoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	ledgerService LedgerService,
	budgetService BudgetService,
	objectStorage storage.ObjectStorage,
	identityProvider identity.Provider,
	policy RolePolicy,
	notifier Notifier,
	signedURLTTL time.Duration,
) PurchaseRequestService {
	return &purchaseRequestService{
		requestRepo:   requestRepo,
		categoryRepo:  categoryRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		ledgerService: ledgerService,
		budgetService: budgetService,
		storage:       objectStorage,
		identity:      identityProvider,
		policy:        policy,
		notifier:      notifier,
		signedURLTTL:  signedURLTTL,
		now:           time.Now,
	}
}

// --- Create / edit ---

func (s *purchaseRequestService) Create(ctx context.Context, input PurchaseRequestContent) (*PurchaseRequestResponse, error) {
	now := s.now()
	if err := normalizeContent(&input, now); err != nil {
		return nil, err
	}

	actor, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	var uploaded []string
	quoteRef, err := s.storeEvidence(ctx, input.QuoteEvidence, now, &uploaded)
	if err != nil {
		return nil, err
	}
	approvalRef, err := s.storeEvidence(ctx, input.ApprovalEvidence, now, &uploaded)
	if err != nil {
		s.removeObjects(ctx, uploaded)
		return nil, err
	}

	title := actor.Title
	if title == "" {
		title = actor.Role
	}
	req := &model.PurchaseRequest{
		RequesterID: actor.ID,
		Requester: model.RequesterSnapshot{
			Name:  actor.Name,
			Title: title,
			Phone: actor.Phone,
		},
		QuoteEvidence:    quoteRef,
		ApprovalEvidence: approvalRef,
		Version:          1,
	}
	applyContent(req, input)
	req.AppendHistory(model.StatusHistoryEntry{
		Status:    model.StatusSubmitted,
		At:        now,
		Note:      noteCreated,
		ActorID:   actor.ID,
		ActorName: actor.Name,
	})

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, err := s.requestRepo.NextRequestNo(txCtx, now)
		if err != nil {
			return fmt.Errorf("failed to issue request number: %w", err)
		}
		req.RequestNo = number

		if err := s.requestRepo.Create(txCtx, req); err != nil {
			return storeError(err, "purchase request")
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor, model.ActionCreatePurchaseRequest, req.ID.String(),
			req.RequestNo, map[string]interface{}{
				"amount": req.Amount,
				"region": req.Region,
			}))
	})
	if err != nil {
		s.removeObjects(ctx, uploaded)
		return nil, err
	}

	s.publish(EventPurchaseRequestCreated, req, "create", actor, now)

	res := s.toResponse(ctx, actor, s.reload(ctx, req))
	res.BudgetWarning = s.budgetWarning(ctx, req)
	return res, nil
}

// Update rewrites the content of a submitted or needs_revision request. Editing a request that
// was sent back for revision resubmits it.
func (s *purchaseRequestService) Update(ctx context.Context, id uuid.UUID, input UpdatePurchaseRequestInput) (*PurchaseRequestResponse, error) {
	now := s.now()
	if err := normalizeContent(&input.PurchaseRequestContent, now); err != nil {
		return nil, err
	}

	actor, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	req, err := s.load(ctx, id, input.Version)
	if err != nil {
		return nil, err
	}
	if _, err := s.policy.Transition(actor, req, ActionEdit); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	var uploaded []string
	previous := map[string]string{"quote": req.QuoteEvidence, "approval": req.ApprovalEvidence}
	if !input.QuoteEvidence.isEmpty() {
		ref, err := s.storeEvidence(ctx, input.QuoteEvidence, now, &uploaded)
		if err != nil {
			return nil, err
		}
		req.QuoteEvidence = ref
	}
	if !input.ApprovalEvidence.isEmpty() {
		ref, err := s.storeEvidence(ctx, input.ApprovalEvidence, now, &uploaded)
		if err != nil {
			s.removeObjects(ctx, uploaded)
			return nil, err
		}
		req.ApprovalEvidence = ref
	}

	applyContent(req, input.PurchaseRequestContent)

	auditAction := model.ActionUpdatePurchaseRequest
	eventAction := "edit"
	if req.Status == model.StatusNeedsRevision {
		auditAction = model.ActionResubmitPurchaseRequest
		eventAction = "resubmit"
		req.AppendHistory(model.StatusHistoryEntry{
			Status:    model.StatusSubmitted,
			At:        now,
			Note:      noteResubmitted,
			ActorID:   actor.ID,
			ActorName: actor.Name,
		})
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requestRepo.UpdateVersioned(txCtx, req); err != nil {
			return storeError(err, "purchase request "+req.RequestNo)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor, auditAction, req.ID.String(), req.RequestNo,
			map[string]interface{}{
				"amount":  req.Amount,
				"region":  req.Region,
				"version": req.Version,
			}))
	})
	if err != nil {
		s.removeObjects(ctx, uploaded)
		return nil, err
	}

	// Objects replaced by this edit are no longer referenced anywhere.
	stillUsed := map[string]bool{}
	for _, ref := range req.EvidenceRefs() {
		stillUsed[ref] = true
	}
	var orphaned []string
	for _, ref := range previous {
		if ref != "" && !stillUsed[ref] {
			orphaned = append(orphaned, ref)
		}
	}
	s.removeObjects(ctx, orphaned)

	if eventAction == "resubmit" {
		s.publish(EventPurchaseRequestStatusChanged, req, eventAction, actor, now)
	} else {
		s.publish(EventPurchaseRequestUpdated, req, eventAction, actor, now)
	}

	res := s.toResponse(ctx, actor, s.reload(ctx, req))
	res.BudgetWarning = s.budgetWarning(ctx, req)
	return res, nil
}

// --- Queries ---

func (s *purchaseRequestService) List(ctx context.Context, filter PurchaseRequestFilter) ([]PurchaseRequestResponse, error) {
	if filter.Status != "" && !model.IsValidStatus(filter.Status) {
		return nil, validationError("unknown status %q", filter.Status)
	}
	if filter.Region != "" && !model.IsValidRegion(filter.Region) {
		return nil, validationError("unknown region %q", filter.Region)
	}

	actor, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	requests, err := s.requestRepo.List(ctx, repository.PurchaseRequestFilter{
		Status: filter.Status,
		Region: filter.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase requests: %w", err)
	}

	res := make([]PurchaseRequestResponse, 0, len(requests))
	for i := range requests {
		res = append(res, *s.toResponse(ctx, actor, &requests[i]))
	}
	return res, nil
}

func (s *purchaseRequestService) Get(ctx context.Context, id uuid.UUID) (*PurchaseRequestResponse, error) {
	actor, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	req, err := s.requestRepo.FindByIDWithRelations(ctx, id)
	if err != nil {
		return nil, storeError(err, "purchase request")
	}
	return s.toResponse(ctx, actor, req), nil
}

// --- Transitions ---

// transitionStep describes one guarded status change. apply stamps the action specific fields
// and inTx runs extra writes inside the same transaction as the status update.
type transitionStep struct {
	action      Action
	auditAction string
	note        string
	version     int
	evidence    EvidenceInput
	validate    func() error
	apply       func(req *model.PurchaseRequest, actor identity.Actor, note string, now time.Time)
	inTx        func(txCtx context.Context, req *model.PurchaseRequest, actor identity.Actor) error
}

func (s *purchaseRequestService) Approve(ctx context.Context, id uuid.UUID, input TransitionInput) (*PurchaseRequestResponse, error) {
	return s.runTransition(ctx, id, transitionStep{
		action:      ActionApprove,
		auditAction: model.ActionApprovePurchaseRequest,
		note:        input.Note,
		version:     input.Version,
		apply: func(req *model.PurchaseRequest, actor identity.Actor, note string, now time.Time) {
			approver := actor.ID
			req.ApprovedBy = &approver
			req.ApprovedAt = &now
			req.ApprovalNote = note
		},
	})
}

func (s *purchaseRequestService) Reject(ctx context.Context, id uuid.UUID, input TransitionInput) (*PurchaseRequestResponse, error) {
	return s.runTransition(ctx, id, transitionStep{
		action:      ActionReject,
		auditAction: model.ActionRejectPurchaseRequest,
		note:        input.Note,
		version:     input.Version,
	})
}

func (s *purchaseRequestService) RequestRevision(ctx context.Context, id uuid.UUID, input TransitionInput) (*PurchaseRequestResponse, error) {
	return s.runTransition(ctx, id, transitionStep{
		action:      ActionRequestRevision,
		auditAction: model.ActionRequestRevision,
		note:        input.Note,
		version:     input.Version,
	})
}

func (s *purchaseRequestService) BeginProcessing(ctx context.Context, id uuid.UUID, input TransitionInput) (*PurchaseRequestResponse, error) {
	return s.runTransition(ctx, id, transitionStep{
		action:      ActionBeginProcessing,
		auditAction: model.ActionBeginProcessing,
		note:        input.Note,
		version:     input.Version,
		apply: func(req *model.PurchaseRequest, actor identity.Actor, note string, now time.Time) {
			processor := actor.ID
			req.ProcessedBy = &processor
			req.ProcessedAt = &now
			req.ProcessingNote = note
		},
	})
}

// Complete records the payment and posts the ledger entry in the same transaction.
func (s *purchaseRequestService) Complete(ctx context.Context, id uuid.UUID, input CompleteInput) (*PurchaseRequestResponse, error) {
	paymentDate := dateOf(s.now())
	if input.PaymentDate != nil && !input.PaymentDate.IsZero() {
		paymentDate = dateOf(*input.PaymentDate)
	}

	var posted *model.LedgerEntry
	res, err := s.runTransition(ctx, id, transitionStep{
		action:      ActionComplete,
		auditAction: model.ActionCompletePurchaseRequest,
		note:        input.Note,
		version:     input.Version,
		evidence:    input.Evidence,
		validate: func() error {
			if input.Evidence.Remove {
				return validationError("payment evidence cannot be removed")
			}
			return nil
		},
		apply: func(req *model.PurchaseRequest, actor identity.Actor, note string, now time.Time) {
			processor := actor.ID
			req.ProcessedBy = &processor
			req.ProcessedAt = &now
			req.ProcessingNote = note
			req.PaymentDate = &paymentDate
		},
		inTx: func(txCtx context.Context, req *model.PurchaseRequest, actor identity.Actor) error {
			entry, err := s.ledgerService.PostFromPurchaseRequest(txCtx, req, paymentDate, actor.ID)
			if err != nil {
				return err
			}
			posted = entry
			return s.auditRepo.Log(txCtx, newAuditLog(actor, model.ActionPostLedgerEntry, entry.ID.String(),
				req.RequestNo, map[string]interface{}{
					"amount": entry.Amount,
					"date":   entry.Date.Format("2006-01-02"),
				}))
		},
	})
	if err != nil {
		return nil, err
	}
	res.LedgerEntry = posted
	return res, nil
}

func (s *purchaseRequestService) Cancel(ctx context.Context, id uuid.UUID, input TransitionInput) (*PurchaseRequestResponse, error) {
	return s.runTransition(ctx, id, transitionStep{
		action:      ActionCancel,
		auditAction: model.ActionCancelPurchaseRequest,
		note:        input.Note,
		version:     input.Version,
	})
}

func (s *purchaseRequestService) runTransition(ctx context.Context, id uuid.UUID, step transitionStep) (*PurchaseRequestResponse, error) {
	note, err := resolveNote(step.action, step.note)
	if err != nil {
		return nil, err
	}
	if step.validate != nil {
		if err := step.validate(); err != nil {
			return nil, err
		}
	}
	if err := validateEvidence(step.evidence, "evidence"); err != nil {
		return nil, err
	}

	actor, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	req, err := s.load(ctx, id, step.version)
	if err != nil {
		return nil, err
	}
	from := req.Status
	next, err := s.policy.Transition(actor, req, step.action)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var uploaded []string
	evidenceRef, err := s.storeEvidence(ctx, step.evidence, now, &uploaded)
	if err != nil {
		return nil, err
	}

	if step.apply != nil {
		step.apply(req, actor, note, now)
	}
	if step.action == ActionComplete && evidenceRef != "" {
		req.PaymentEvidence = evidenceRef
	}
	req.AppendHistory(model.StatusHistoryEntry{
		Status:    next,
		At:        now,
		Note:      note,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Evidence:  evidenceRef,
	})

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requestRepo.UpdateVersioned(txCtx, req); err != nil {
			return storeError(err, "purchase request "+req.RequestNo)
		}
		if step.inTx != nil {
			if err := step.inTx(txCtx, req, actor); err != nil {
				return err
			}
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor, step.auditAction, req.ID.String(), req.RequestNo,
			map[string]interface{}{
				"from":    from,
				"to":      next,
				"note":    note,
				"version": req.Version,
			}))
	})
	if err != nil {
		s.removeObjects(ctx, uploaded)
		return nil, err
	}

	log.WithFields(log.Fields{
		"request_no": req.RequestNo,
		"from":       from,
		"to":         next,
		"actor_id":   actor.ID,
	}).Info("purchase request transitioned")

	s.publish(EventPurchaseRequestStatusChanged, req, string(step.action), actor, now)
	return s.toResponse(ctx, actor, s.reload(ctx, req)), nil
}

// Delete removes the request, the ledger entry it produced and every evidence object it held.
func (s *purchaseRequestService) Delete(ctx context.Context, id uuid.UUID) error {
	actor, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return err
	}
	req, err := s.load(ctx, id, 0)
	if err != nil {
		return err
	}
	if _, err := s.policy.Transition(actor, req, ActionDelete); err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		removed, err := s.ledgerService.RemoveForPurchaseRequest(txCtx, req.ID)
		if err != nil {
			return err
		}
		if err := s.requestRepo.Delete(txCtx, req.ID); err != nil {
			return storeError(err, "purchase request "+req.RequestNo)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor, model.ActionDeletePurchaseRequest, req.ID.String(),
			req.RequestNo, map[string]interface{}{
				"status":                 req.Status,
				"amount":                 req.Amount,
				"removed_ledger_entries": removed,
			}))
	})
	if err != nil {
		return err
	}

	s.removeObjects(ctx, req.EvidenceRefs())
	s.publish(EventPurchaseRequestDeleted, req, string(ActionDelete), actor, s.now())
	return nil
}

// --- Helpers ---

// load fetches the request and checks the caller's expected version when one was given.
func (s *purchaseRequestService) load(ctx context.Context, id uuid.UUID, expectedVersion int) (*model.PurchaseRequest, error) {
	req, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "purchase request")
	}
	if expectedVersion != 0 && expectedVersion != req.Version {
		return nil, fmt.Errorf("%w: purchase request %s is at version %d, not %d",
			ErrConflict, req.RequestNo, req.Version, expectedVersion)
	}
	return req, nil
}

// reload fetches the request with relations for the response, falling back to the given copy.
func (s *purchaseRequestService) reload(ctx context.Context, req *model.PurchaseRequest) *model.PurchaseRequest {
	fresh, err := s.requestRepo.FindByIDWithRelations(ctx, req.ID)
	if err != nil {
		log.WithError(err).WithField("request_no", req.RequestNo).Warn("failed to reload purchase request")
		return req
	}
	return fresh
}

func (s *purchaseRequestService) checkCategory(ctx context.Context, categoryID *uuid.UUID) error {
	if categoryID == nil {
		return nil
	}
	if _, err := s.categoryRepo.FindByID(ctx, *categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return validationError("unknown category %s", categoryID)
		}
		return fmt.Errorf("failed to load category: %w", err)
	}
	return nil
}

func (s *purchaseRequestService) budgetWarning(ctx context.Context, req *model.PurchaseRequest) *BudgetWarning {
	if req.CategoryID == nil {
		return nil
	}
	warning, err := s.budgetService.CheckRequest(ctx, req.RequestDate.Year(), req.Region, *req.CategoryID, req.Amount)
	if err != nil {
		log.WithError(err).WithField("request_no", req.RequestNo).Warn("budget check failed")
		return nil
	}
	return warning
}

// storeEvidence uploads a file or passes an external URL through. Uploaded keys are appended to
// uploaded so the caller can remove them if the write fails.
func (s *purchaseRequestService) storeEvidence(ctx context.Context, ev EvidenceInput, now time.Time, uploaded *[]string) (string, error) {
	if ev.File == nil {
		return strings.TrimSpace(ev.URL), nil
	}
	key := storage.NewEvidenceKey(now, ev.File.Filename)
	if err := s.storage.Upload(ctx, key, ev.File.Reader, ev.File.Size, ev.File.ContentType); err != nil {
		return "", fmt.Errorf("failed to upload evidence: %w", err)
	}
	*uploaded = append(*uploaded, key)
	return key, nil
}

// removeObjects deletes stored evidence best-effort. External URLs are skipped.
func (s *purchaseRequestService) removeObjects(ctx context.Context, refs []string) {
	ctx = context.WithoutCancel(ctx)
	for _, ref := range refs {
		if ref == "" || storage.IsExternalURL(ref) {
			continue
		}
		if err := s.storage.Remove(ctx, ref); err != nil {
			log.WithError(err).WithField("key", ref).Warn("failed to remove evidence object")
		}
	}
}

func (s *purchaseRequestService) resolveRef(ctx context.Context, ref string) string {
	if ref == "" || storage.IsExternalURL(ref) {
		return ref
	}
	signed, err := s.storage.SignedURL(ctx, ref, s.signedURLTTL)
	if err != nil {
		log.WithError(err).WithField("key", ref).Warn("failed to sign evidence url")
		return ref
	}
	return signed
}

// toResponse copies req, resolves evidence keys into signed URLs and attaches the actions the
// actor may take next.
func (s *purchaseRequestService) toResponse(ctx context.Context, actor identity.Actor, req *model.PurchaseRequest) *PurchaseRequestResponse {
	res := &PurchaseRequestResponse{
		PurchaseRequest: *req,
		AllowedActions:  s.policy.AllowedActions(actor, req),
	}
	res.QuoteEvidence = s.resolveRef(ctx, req.QuoteEvidence)
	res.ApprovalEvidence = s.resolveRef(ctx, req.ApprovalEvidence)
	res.PaymentEvidence = s.resolveRef(ctx, req.PaymentEvidence)

	history := make([]model.StatusHistoryEntry, len(req.History))
	copy(history, req.History)
	for i := range history {
		history[i].Evidence = s.resolveRef(ctx, history[i].Evidence)
	}
	res.History = history
	return res
}

func (s *purchaseRequestService) publish(eventType string, req *model.PurchaseRequest, action string, actor identity.Actor, at time.Time) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(eventType, WorkflowEvent{
		RequestID: req.ID,
		RequestNo: req.RequestNo,
		Status:    req.Status,
		Action:    action,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		At:        at,
	})
}

// normalizeContent trims and validates user supplied content before any I/O.
func normalizeContent(in *PurchaseRequestContent, now time.Time) error {
	in.Description = strings.TrimSpace(in.Description)
	in.Region = strings.TrimSpace(in.Region)
	in.ReferenceLink = strings.TrimSpace(in.ReferenceLink)
	in.Note = strings.TrimSpace(in.Note)
	in.Reimbursement.AccountNumber = strings.TrimSpace(in.Reimbursement.AccountNumber)
	in.Reimbursement.AccountName = strings.TrimSpace(in.Reimbursement.AccountName)
	in.Reimbursement.BankName = strings.TrimSpace(in.Reimbursement.BankName)

	if in.Description == "" {
		return validationError("description is required")
	}
	if !model.IsValidRegion(in.Region) {
		return validationError("unknown region %q", in.Region)
	}
	if in.Amount <= 0 {
		return validationError("amount must be positive")
	}
	if in.RequestDate == nil || in.RequestDate.IsZero() {
		today := dateOf(now)
		in.RequestDate = &today
	} else {
		d := dateOf(*in.RequestDate)
		in.RequestDate = &d
	}
	if in.TargetDate != nil {
		d := dateOf(*in.TargetDate)
		if d.Before(*in.RequestDate) {
			return validationError("target date cannot be before the request date")
		}
		in.TargetDate = &d
	}
	if !in.Reimbursement.IsEmpty() && !in.Reimbursement.IsComplete() {
		return validationError("reimbursement needs account number, account name and bank name")
	}
	if in.ReferenceLink != "" && !storage.IsExternalURL(in.ReferenceLink) {
		return validationError("reference link must be an http(s) URL")
	}
	if err := validateEvidence(in.QuoteEvidence, "quote evidence"); err != nil {
		return err
	}
	return validateEvidence(in.ApprovalEvidence, "approval evidence")
}

func validateEvidence(ev EvidenceInput, field string) error {
	url := strings.TrimSpace(ev.URL)
	set := 0
	if ev.File != nil {
		set++
	}
	if url != "" {
		set++
	}
	if ev.Remove {
		set++
	}
	if set > 1 {
		return validationError("%s: give either a file, a URL or removal, not several", field)
	}
	if url != "" && !storage.IsExternalURL(url) {
		return validationError("%s must be an http(s) URL", field)
	}
	if ev.File != nil {
		if ev.File.Reader == nil || ev.File.Size <= 0 {
			return validationError("%s file is empty", field)
		}
		if ev.File.Size > maxEvidenceSize {
			return validationError("%s file exceeds %d MB", field, maxEvidenceSize>>20)
		}
		if !allowedEvidenceExt[strings.ToLower(path.Ext(ev.File.Filename))] {
			return validationError("%s must be an image or a PDF", field)
		}
	}
	return nil
}

func applyContent(req *model.PurchaseRequest, in PurchaseRequestContent) {
	req.Description = in.Description
	req.Region = in.Region
	req.RequestDate = *in.RequestDate
	req.TargetDate = in.TargetDate
	req.CategoryID = in.CategoryID
	req.Amount = in.Amount
	req.ReferenceLink = in.ReferenceLink
	req.Note = in.Note
	req.Reimbursement = in.Reimbursement
	if in.QuoteEvidence.Remove {
		req.QuoteEvidence = ""
	}
	if in.ApprovalEvidence.Remove {
		req.ApprovalEvidence = ""
	}
}

// dateOf truncates t to midnight in its own location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
