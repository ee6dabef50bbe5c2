package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-auth-portal/internal/interface/middleware"
)

type DashboardHandler struct{}

func NewDashboardHandler() *DashboardHandler { return &DashboardHandler{} }

// Show GET /dashboard
func (h *DashboardHandler) Show(c *gin.Context) {
	render(c, http.StatusOK, "Dashboard", profile(middleware.Current(c).CurrentUser()))
}
