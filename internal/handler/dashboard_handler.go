package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/examroom/internal/middleware"
	"github.com/stemsi/examroom/internal/response"
	"github.com/stemsi/examroom/internal/service"
)

// DashboardHandler handles the student dashboard.
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetDashboard godoc
// GET /api/v1/student/dashboard
// Returns stats, live and upcoming assessments, completed results, the activity feed, and the performance series.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	data, err := h.dashboardService.GetDashboard(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, data)
}
