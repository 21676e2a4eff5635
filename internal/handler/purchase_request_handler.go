package handler

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"portalwarga/internal/middleware"
	"portalwarga/internal/model"
	"portalwarga/internal/service"
	"portalwarga/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PurchaseRequestHandler struct {
	requestService service.PurchaseRequestService
}

func NewPurchaseRequestHandler(requestService service.PurchaseRequestService) *PurchaseRequestHandler {
	return &PurchaseRequestHandler{requestService: requestService}
}

func (h *PurchaseRequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/purchase-requests")
	group.Use(middleware.RequireRole())
	{
		group.GET("", h.ListPurchaseRequests)
		group.POST("", h.CreatePurchaseRequest)
		group.GET("/:id", h.GetPurchaseRequest)
		group.PUT("/:id", h.UpdatePurchaseRequest)
		group.DELETE("/:id", h.DeletePurchaseRequest)
		group.PUT("/:id/approve", h.ApprovePurchaseRequest)
		group.PUT("/:id/reject", h.RejectPurchaseRequest)
		group.PUT("/:id/request-revision", h.RequestRevision)
		group.PUT("/:id/process", h.BeginProcessing)
		group.PUT("/:id/complete", h.CompletePurchaseRequest)
		group.PUT("/:id/cancel", h.CancelPurchaseRequest)
	}
}

// PurchaseRequestPayload is accepted as JSON or as multipart form fields. Evidence files are
// sent as the multipart parts quote_evidence and approval_evidence.
type PurchaseRequestPayload struct {
	Description            string `json:"description" form:"description"`
	Region                 string `json:"region" form:"region"`
	RequestDate            string `json:"request_date" form:"request_date"`
	TargetDate             string `json:"target_date" form:"target_date"`
	CategoryID             string `json:"category_id" form:"category_id"`
	Amount                 int64  `json:"amount" form:"amount"`
	ReferenceLink          string `json:"reference_link" form:"reference_link"`
	Note                   string `json:"note" form:"note"`
	ReimburseAccountNumber string `json:"reimburse_account_number" form:"reimburse_account_number"`
	ReimburseAccountName   string `json:"reimburse_account_name" form:"reimburse_account_name"`
	ReimburseBankName      string `json:"reimburse_bank_name" form:"reimburse_bank_name"`
	QuoteEvidenceURL       string `json:"quote_evidence_url" form:"quote_evidence_url"`
	ApprovalEvidenceURL    string `json:"approval_evidence_url" form:"approval_evidence_url"`
	RemoveQuoteEvidence    bool   `json:"remove_quote_evidence" form:"remove_quote_evidence"`
	RemoveApprovalEvidence bool   `json:"remove_approval_evidence" form:"remove_approval_evidence"`
	Version                int    `json:"version" form:"version"`
}

// CompletePayload is accepted as JSON or multipart; the payment proof file part is payment_evidence.
type CompletePayload struct {
	Note               string `json:"note" form:"note"`
	PaymentDate        string `json:"payment_date" form:"payment_date"`
	PaymentEvidenceURL string `json:"payment_evidence_url" form:"payment_evidence_url"`
	Version            int    `json:"version" form:"version"`
}

// ListPurchaseRequests returns every request, newest first
// @Summary      List purchase requests
// @Tags         purchase-requests
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "submitted, approved, rejected, needs_revision, processing, completed, cancelled"
// @Param        region  query     string  false  "utara or selatan"
// @Success      200     {object}  response.Response{data=[]service.PurchaseRequestResponse}
// @Router       /api/purchase-requests [get]
func (h *PurchaseRequestHandler) ListPurchaseRequests(c *gin.Context) {
	requests, err := h.requestService.List(c.Request.Context(), service.PurchaseRequestFilter{
		Status: c.Query("status"),
		Region: c.Query("region"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, requests))
}

// GetPurchaseRequest returns one request with category and requester profile
// @Summary      Get purchase request
// @Tags         purchase-requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase request ID"
// @Success      200  {object}  response.Response{data=service.PurchaseRequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-requests/{id} [get]
func (h *PurchaseRequestHandler) GetPurchaseRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := h.requestService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// CreatePurchaseRequest submits a new request
// @Summary      Create purchase request
// @Description  Accepts JSON or multipart/form-data with optional quote_evidence and approval_evidence files. The response may carry a non-blocking budget_warning.
// @Tags         purchase-requests
// @Security     BearerAuth
// @Accept       json,mpfd
// @Produce      json
// @Param        request  body      PurchaseRequestPayload  true  "Request content"
// @Success      201      {object}  response.Response{data=service.PurchaseRequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/purchase-requests [post]
func (h *PurchaseRequestHandler) CreatePurchaseRequest(c *gin.Context) {
	content, cleanup, _, ok := h.bindContent(c)
	if !ok {
		return
	}
	defer cleanup()

	res, err := h.requestService.Create(c.Request.Context(), content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// UpdatePurchaseRequest rewrites the content; a request in needs_revision is resubmitted
// @Summary      Edit or resubmit purchase request
// @Tags         purchase-requests
// @Security     BearerAuth
// @Accept       json,mpfd
// @Produce      json
// @Param        id       path      string                  true  "Purchase request ID"
// @Param        request  body      PurchaseRequestPayload  true  "Request content"
// @Success      200      {object}  response.Response{data=service.PurchaseRequestResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/purchase-requests/{id} [put]
func (h *PurchaseRequestHandler) UpdatePurchaseRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	content, cleanup, version, ok := h.bindContent(c)
	if !ok {
		return
	}
	defer cleanup()

	res, err := h.requestService.Update(c.Request.Context(), id, service.UpdatePurchaseRequestInput{
		PurchaseRequestContent: content,
		Version:                version,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// DeletePurchaseRequest hard-deletes the request with its evidence and ledger entry
// @Summary      Delete purchase request
// @Tags         purchase-requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase request ID"
// @Success      200  {object}  response.Response
// @Router       /api/purchase-requests/{id} [delete]
func (h *PurchaseRequestHandler) DeletePurchaseRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.requestService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": id}))
}

// ApprovePurchaseRequest moves a submitted request to approved
// @Summary      Approve purchase request
// @Tags         purchase-requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                   true   "Purchase request ID"
// @Param        body  body      service.TransitionInput  false  "Optional note and expected version"
// @Success      200   {object}  response.Response{data=service.PurchaseRequestResponse}
// @Router       /api/purchase-requests/{id}/approve [put]
func (h *PurchaseRequestHandler) ApprovePurchaseRequest(c *gin.Context) {
	h.transition(c, h.requestService.Approve)
}

// RejectPurchaseRequest moves a submitted request to rejected; note is required
// @Summary      Reject purchase request
// @Tags         purchase-requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                   true  "Purchase request ID"
// @Param        body  body      service.TransitionInput  true  "Note (required)"
// @Success      200   {object}  response.Response{data=service.PurchaseRequestResponse}
// @Router       /api/purchase-requests/{id}/reject [put]
func (h *PurchaseRequestHandler) RejectPurchaseRequest(c *gin.Context) {
	h.transition(c, h.requestService.Reject)
}

// RequestRevision sends a submitted request back to the requester; note is required
// @Summary      Request revision
// @Tags         purchase-requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                   true  "Purchase request ID"
// @Param        body  body      service.TransitionInput  true  "Note (required)"
// @Success      200   {object}  response.Response{data=service.PurchaseRequestResponse}
// @Router       /api/purchase-requests/{id}/request-revision [put]
func (h *PurchaseRequestHandler) RequestRevision(c *gin.Context) {
	h.transition(c, h.requestService.RequestRevision)
}

// BeginProcessing moves an approved request to processing
// @Summary      Begin payment processing
// @Tags         purchase-requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                   true   "Purchase request ID"
// @Param        body  body      service.TransitionInput  false  "Optional note"
// @Success      200   {object}  response.Response{data=service.PurchaseRequestResponse}
// @Router       /api/purchase-requests/{id}/process [put]
func (h *PurchaseRequestHandler) BeginProcessing(c *gin.Context) {
	h.transition(c, h.requestService.BeginProcessing)
}

// CancelPurchaseRequest cancels a submitted or needs_revision request
// @Summary      Cancel purchase request
// @Tags         purchase-requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                   true   "Purchase request ID"
// @Param        body  body      service.TransitionInput  false  "Optional note"
// @Success      200   {object}  response.Response{data=service.PurchaseRequestResponse}
// @Router       /api/purchase-requests/{id}/cancel [put]
func (h *PurchaseRequestHandler) CancelPurchaseRequest(c *gin.Context) {
	h.transition(c, h.requestService.Cancel)
}

// CompletePurchaseRequest records the payment and posts the ledger entry
// @Summary      Complete purchase request
// @Description  Accepts JSON or multipart/form-data with an optional payment_evidence file. payment_date defaults to today.
// @Tags         purchase-requests
// @Security     BearerAuth
// @Accept       json,mpfd
// @Produce      json
// @Param        id    path      string           true   "Purchase request ID"
// @Param        body  body      CompletePayload  false  "Payment details"
// @Success      200   {object}  response.Response{data=service.PurchaseRequestResponse}
// @Router       /api/purchase-requests/{id}/complete [put]
func (h *PurchaseRequestHandler) CompletePurchaseRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var payload CompletePayload
	if err := bindOptional(c, &payload); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	paymentDate, err := parseDate(payload.PaymentDate)
	if err != nil {
		respondError(c, err)
		return
	}
	file, closeFile, err := formEvidence(c, "payment_evidence")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer closeFile()

	res, err := h.requestService.Complete(c.Request.Context(), id, service.CompleteInput{
		Note:        payload.Note,
		PaymentDate: paymentDate,
		Evidence:    service.EvidenceInput{URL: payload.PaymentEvidenceURL, File: file},
		Version:     payload.Version,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

type transitionFunc func(ctx context.Context, id uuid.UUID, input service.TransitionInput) (*service.PurchaseRequestResponse, error)

func (h *PurchaseRequestHandler) transition(c *gin.Context, run transitionFunc) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input service.TransitionInput
	if err := bindOptional(c, &input); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	res, err := run(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// bindContent reads a PurchaseRequestPayload and its evidence files. cleanup closes opened files.
func (h *PurchaseRequestHandler) bindContent(c *gin.Context) (service.PurchaseRequestContent, func(), int, bool) {
	noop := func() {}
	var payload PurchaseRequestPayload
	if err := c.ShouldBind(&payload); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return service.PurchaseRequestContent{}, noop, 0, false
	}

	requestDate, err := parseDate(payload.RequestDate)
	if err != nil {
		respondError(c, err)
		return service.PurchaseRequestContent{}, noop, 0, false
	}
	targetDate, err := parseDate(payload.TargetDate)
	if err != nil {
		respondError(c, err)
		return service.PurchaseRequestContent{}, noop, 0, false
	}
	categoryID, err := parseOptionalUUID(payload.CategoryID, "category_id")
	if err != nil {
		respondError(c, err)
		return service.PurchaseRequestContent{}, noop, 0, false
	}

	quoteFile, closeQuote, err := formEvidence(c, "quote_evidence")
	if err != nil {
		badRequest(c, err.Error())
		return service.PurchaseRequestContent{}, noop, 0, false
	}
	approvalFile, closeApproval, err := formEvidence(c, "approval_evidence")
	if err != nil {
		closeQuote()
		badRequest(c, err.Error())
		return service.PurchaseRequestContent{}, noop, 0, false
	}
	cleanup := func() {
		closeQuote()
		closeApproval()
	}

	return service.PurchaseRequestContent{
		Description:   payload.Description,
		Region:        payload.Region,
		RequestDate:   requestDate,
		TargetDate:    targetDate,
		CategoryID:    categoryID,
		Amount:        payload.Amount,
		ReferenceLink: payload.ReferenceLink,
		Note:          payload.Note,
		Reimbursement: model.Reimbursement{
			AccountNumber: payload.ReimburseAccountNumber,
			AccountName:   payload.ReimburseAccountName,
			BankName:      payload.ReimburseBankName,
		},
		QuoteEvidence: service.EvidenceInput{
			URL:    payload.QuoteEvidenceURL,
			File:   quoteFile,
			Remove: payload.RemoveQuoteEvidence,
		},
		ApprovalEvidence: service.EvidenceInput{
			URL:    payload.ApprovalEvidenceURL,
			File:   approvalFile,
			Remove: payload.RemoveApprovalEvidence,
		},
	}, cleanup, payload.Version, true
}

// bindOptional binds JSON or form data and treats an empty body as the zero value.
func bindOptional(c *gin.Context, obj interface{}) error {
	if c.Request.ContentLength == 0 && !isMultipart(c) {
		return nil
	}
	if err := c.ShouldBind(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// formEvidence opens the named multipart file, if the request carries one.
func formEvidence(c *gin.Context, field string) (*service.FileUpload, func(), error) {
	noop := func() {}
	if !isMultipart(c) {
		return nil, noop, nil
	}
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, noop, nil
		}
		return nil, noop, err
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*service.FileUpload, func(), error) {
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &service.FileUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      f,
	}, func() { _ = f.Close() }, nil
}
