package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-auth-portal/internal/application"
	"github.com/oksasatya/go-ddd-auth-portal/internal/interface/middleware"
)

// WelcomeHandler serves the terms page that every new account passes once.
type WelcomeHandler struct {
	Svc *application.Service
}

func NewWelcomeHandler(svc *application.Service) *WelcomeHandler {
	return &WelcomeHandler{Svc: svc}
}

type welcomeView struct {
	Name     string   `json:"name"`
	Recovery string   `json:"recovery"`
	Terms    []string `json:"terms"`
}

var termFields = []string{"termOne", "termTwo", "termThree", "termFour"}

// Show GET /welcome
func (h *WelcomeHandler) Show(c *gin.Context) {
	u := middleware.Current(c).CurrentUser()
	if u.TermsAccepted {
		middleware.Redirect(c, dashboardPath)
		return
	}
	render(c, http.StatusOK, "Welcome", welcomeView{Name: u.Name, Recovery: u.Recovery, Terms: termFields})
}

// Accept POST /welcome
func (h *WelcomeHandler) Accept(c *gin.Context) {
	u := middleware.Current(c).CurrentUser()
	if u.TermsAccepted {
		middleware.Redirect(c, dashboardPath)
		return
	}
	var in application.Agreement
	_ = middleware.Bind(c, &in)

	if err := h.Svc.AcceptTerms(c.Request.Context(), u, in); err != nil {
		fail(c, err, "/welcome")
		return
	}
	middleware.Redirect(c, dashboardPath)
}
