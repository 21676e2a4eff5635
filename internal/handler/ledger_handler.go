package handler

import (
	"net/http"

	"portalwarga/internal/middleware"
	"portalwarga/internal/service"
	"portalwarga/pkg/pagination"
	"portalwarga/pkg/response"

	"github.com/gin-gonic/gin"
)

type LedgerHandler struct {
	ledgerService service.LedgerService
}

func NewLedgerHandler(ledgerService service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// RegisterRoutes only authenticates; the service decides on the profile role who may write.
func (h *LedgerHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/ledger")
	group.Use(middleware.RequireRole())
	{
		group.GET("", h.ListLedgerEntries)
		group.POST("", h.CreateLedgerEntry)
		group.DELETE("/:id", h.DeleteLedgerEntry)
	}
}

type LedgerEntryPayload struct {
	Region     string `json:"region" binding:"required"`
	Nature     string `json:"nature" binding:"required"`
	Date       string `json:"date" binding:"required"`
	CategoryID string `json:"category_id"`
	Amount     int64  `json:"amount" binding:"required"`
	Note       string `json:"note"`
}

// ListLedgerEntries returns ledger rows, newest date first
// @Summary      List ledger entries
// @Tags         ledger
// @Security     BearerAuth
// @Produce      json
// @Param        region  query     string  false  "utara or selatan"
// @Param        nature  query     string  false  "income or expense"
// @Param        origin  query     string  false  "manual, utility-billing or purchase-request"
// @Param        from    query     string  false  "Inclusive start date (YYYY-MM-DD)"
// @Param        to      query     string  false  "Inclusive end date (YYYY-MM-DD)"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=pagination.Page}
// @Router       /api/ledger [get]
func (h *LedgerHandler) ListLedgerEntries(c *gin.Context) {
	from, err := parseDate(c.Query("from"))
	if err != nil {
		respondError(c, err)
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}
	p := pagination.Parse(c)

	entries, total, err := h.ledgerService.List(c.Request.Context(), service.LedgerFilter{
		Region: c.Query("region"),
		Nature: c.Query("nature"),
		Origin: c.Query("origin"),
		From:   from,
		To:     to,
		Page:   p.Page,
		Limit:  p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(entries, total, p)))
}

// CreateLedgerEntry records a manual income or expense
// @Summary      Create manual ledger entry
// @Tags         ledger
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        entry  body      LedgerEntryPayload  true  "Ledger entry"
// @Success      201    {object}  response.Response{data=model.LedgerEntry}
// @Failure      400    {object}  response.Response
// @Failure      403    {object}  response.Response
// @Router       /api/ledger [post]
func (h *LedgerHandler) CreateLedgerEntry(c *gin.Context) {
	var payload LedgerEntryPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	date, err := parseDate(payload.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	categoryID, err := parseOptionalUUID(payload.CategoryID, "category_id")
	if err != nil {
		respondError(c, err)
		return
	}

	entry, err := h.ledgerService.CreateManual(c.Request.Context(), service.CreateLedgerEntryInput{
		Region:     payload.Region,
		Nature:     payload.Nature,
		Date:       *date,
		CategoryID: categoryID,
		Amount:     payload.Amount,
		Note:       payload.Note,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, entry))
}

// DeleteLedgerEntry removes a manual entry. Entries posted from purchase requests go with their request.
// @Summary      Delete manual ledger entry
// @Tags         ledger
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Ledger entry ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/ledger/{id} [delete]
func (h *LedgerHandler) DeleteLedgerEntry(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.ledgerService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": id}))
}
