package handler

import (
	"net/http"
	"time"

	"portalwarga/internal/middleware"
	"portalwarga/internal/service"
	"portalwarga/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
}

func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/ledger/summary", middleware.RequireRole(), h.GetLedgerSummary)
}

// @Summary      Get ledger summary
// @Description  Income and expense totals, balance and top expense categories for a date range
// @Tags         ledger
// @Produce      json
// @Param        region  query     string  false  "utara or selatan"
// @Param        from    query     string  false  "Start date YYYY-MM-DD (default first day of current month)"
// @Param        to      query     string  false  "End date YYYY-MM-DD, inclusive (default today)"
// @Success      200     {object}  response.Response{data=model.LedgerSummary}
// @Failure      400     {object}  response.Response
// @Security     BearerAuth
// @Router       /api/ledger/summary [get]
func (h *StatisticsHandler) GetLedgerSummary(c *gin.Context) {
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

	// Default to current month if no dates are provided
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	if from != nil {
		start = *from
	}
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if to != nil {
		end = *to
	}

	summary, err := h.statisticsService.GetLedgerSummary(c.Request.Context(), c.Query("region"), start, end.AddDate(0, 0, 1))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
