package handler

import (
	"net/http"
	"strconv"
	"time"

	"portalwarga/internal/middleware"
	"portalwarga/internal/service"
	"portalwarga/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BudgetHandler struct {
	budgetService service.BudgetService
}

func NewBudgetHandler(budgetService service.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

func (h *BudgetHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/budgets")
	group.Use(middleware.RequireRole())
	{
		group.GET("", h.ListBudgets)
		group.GET("/usage", h.GetBudgetUsage)
		group.GET("/check", h.CheckBudget)
		group.PUT("", h.UpsertBudget)
		group.DELETE("/:id", h.DeleteBudget)
	}
}

// ListBudgets returns usage for every configured ceiling of a year
// @Summary      List budget usage
// @Tags         budgets
// @Security     BearerAuth
// @Produce      json
// @Param        year    query     int     false  "Budget year (default current year)"
// @Param        region  query     string  false  "utara or selatan"
// @Success      200     {object}  response.Response{data=[]service.BudgetUsage}
// @Router       /api/budgets [get]
func (h *BudgetHandler) ListBudgets(c *gin.Context) {
	year, ok := queryYear(c)
	if !ok {
		return
	}
	usage, err := h.budgetService.ListUsage(c.Request.Context(), year, c.Query("region"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, usage))
}

// GetBudgetUsage returns ceiling, consumption and utilisation for one budget line
// @Summary      Get budget usage
// @Tags         budgets
// @Security     BearerAuth
// @Produce      json
// @Param        year         query     int     false  "Budget year (default current year)"
// @Param        region       query     string  true   "utara or selatan"
// @Param        category_id  query     string  true   "Category ID"
// @Success      200          {object}  response.Response{data=service.BudgetUsage}
// @Router       /api/budgets/usage [get]
func (h *BudgetHandler) GetBudgetUsage(c *gin.Context) {
	year, ok := queryYear(c)
	if !ok {
		return
	}
	categoryID, ok := queryCategory(c)
	if !ok {
		return
	}
	usage, err := h.budgetService.GetUsage(c.Request.Context(), year, c.Query("region"), categoryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, usage))
}

// CheckBudget tells whether an amount fits the remaining budget. It never blocks anything.
// @Summary      Check amount against budget
// @Tags         budgets
// @Security     BearerAuth
// @Produce      json
// @Param        year         query     int     false  "Budget year (default current year)"
// @Param        region       query     string  true   "utara or selatan"
// @Param        category_id  query     string  true   "Category ID"
// @Param        amount       query     int     true   "Requested amount"
// @Success      200          {object}  response.Response{data=object}
// @Router       /api/budgets/check [get]
func (h *BudgetHandler) CheckBudget(c *gin.Context) {
	year, ok := queryYear(c)
	if !ok {
		return
	}
	categoryID, ok := queryCategory(c)
	if !ok {
		return
	}
	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil {
		badRequest(c, "invalid amount")
		return
	}

	warning, err := h.budgetService.CheckRequest(c.Request.Context(), year, c.Query("region"), categoryID, amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"within_budget": warning == nil,
		"warning":       warning,
	}))
}

// UpsertBudget sets the ceiling for a (year, region, category) line
// @Summary      Set budget ceiling
// @Tags         budgets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        budget  body      service.UpsertBudgetInput  true  "Budget ceiling"
// @Success      200     {object}  response.Response{data=model.BudgetCeiling}
// @Failure      400     {object}  response.Response
// @Router       /api/budgets [put]
func (h *BudgetHandler) UpsertBudget(c *gin.Context) {
	var input service.UpsertBudgetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	ceiling, err := h.budgetService.UpsertCeiling(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ceiling))
}

// DeleteBudget removes a ceiling; the line then counts as unconfigured
// @Summary      Delete budget ceiling
// @Tags         budgets
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Budget ceiling ID"
// @Success      200  {object}  response.Response
// @Router       /api/budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.budgetService.DeleteCeiling(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": id}))
}

func queryYear(c *gin.Context) (int, bool) {
	raw := c.Query("year")
	if raw == "" {
		return time.Now().Year(), true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year <= 0 {
		badRequest(c, "invalid year")
		return 0, false
	}
	return year, true
}

func queryCategory(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Query("category_id"))
	if err != nil {
		badRequest(c, "invalid category_id")
		return uuid.Nil, false
	}
	return id, true
}
