package handler

import (
	"github.com/gin-gonic/gin"

	reportapp "github.com/tallybook/backend/internal/application/report"
)

// AnalyticsHandler handles analytics and dashboard API endpoints
type AnalyticsHandler struct {
	BaseHandler
	analyticsService *reportapp.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(analyticsService *reportapp.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
	}
}

// Analytics godoc
// @Summary      Get ledger analytics for a time window
// @Description  Aggregates sale and expense metrics over the requested window: totals, profit, payment breakdowns, top items and contacts, and a daily series.
// @Tags         analytics
// @Produce      json
// @Param        window query string false "Analytics window" Enums(1M, 3M, 6M, YTD, ALL) default(1M)
// @Success      200 {object} dto.Response{data=ledger.Metrics}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /analytics [get]
func (h *AnalyticsHandler) Analytics(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	metrics, err := h.analyticsService.Analytics(c.Request.Context(), businessID, c.Query("window"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, metrics)
}

// Dashboard godoc
// @Summary      Get the dashboard summary
// @Description  Current-month totals plus outstanding balances, unprocessed bank records, and stock alerts.
// @Tags         analytics
// @Produce      json
// @Success      200 {object} dto.Response{data=report.DashboardSummary}
// @Security     BearerAuth
// @Router       /dashboard [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	summary, err := h.analyticsService.Dashboard(c.Request.Context(), businessID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}
