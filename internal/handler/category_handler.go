package handler

import (
	"net/http"

	"portalwarga/internal/middleware"
	"portalwarga/internal/service"
	"portalwarga/pkg/response"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	ledgerService service.LedgerService
}

func NewCategoryHandler(ledgerService service.LedgerService) *CategoryHandler {
	return &CategoryHandler{ledgerService: ledgerService}
}

func (h *CategoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/categories")
	group.Use(middleware.RequireRole())
	{
		group.GET("", h.ListCategories)
		group.POST("", h.CreateCategory)
	}
}

// ListCategories returns every expense category ordered by code
// @Summary      List categories
// @Tags         categories
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Category}
// @Router       /api/categories [get]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.ledgerService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, categories))
}

// CreateCategory adds a category; the code is stored upper-cased
// @Summary      Create category
// @Tags         categories
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        category  body      service.CreateCategoryInput  true  "Category"
// @Success      201       {object}  response.Response{data=model.Category}
// @Failure      409       {object}  response.Response
// @Router       /api/categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var input service.CreateCategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	category, err := h.ledgerService.CreateCategory(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, category))
}
