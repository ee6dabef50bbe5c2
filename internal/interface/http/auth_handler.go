package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-portal/internal/application"
	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-portal/internal/interface/middleware"
)

const dashboardPath = "/dashboard"

type AuthHandler struct {
	Svc              *application.Service
	Logger           *logrus.Logger
	RecaptchaSiteKey string
}

func NewAuthHandler(svc *application.Service, logger *logrus.Logger, recaptchaSiteKey string) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, RecaptchaSiteKey: recaptchaSiteKey}
}

type loginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

type tokenRequest struct {
	Token string `form:"token" json:"token"`
}

type formView struct {
	RecaptchaSiteKey    string `json:"recaptcha_site_key,omitempty"`
	RegistrationEnabled bool   `json:"registration_enabled"`
}

func (h *AuthHandler) form() formView {
	return formView{RecaptchaSiteKey: h.RecaptchaSiteKey, RegistrationEnabled: h.Svc.RegistrationEnabled}
}

func signedIn(c *gin.Context) bool {
	return middleware.Current(c).CurrentUser() != nil
}

// Index GET /
func (h *AuthHandler) Index(c *gin.Context) {
	if signedIn(c) {
		middleware.Redirect(c, dashboardPath)
		return
	}
	render(c, http.StatusOK, "Home", h.form())
}

// LoginForm GET /login
func (h *AuthHandler) LoginForm(c *gin.Context) {
	if signedIn(c) {
		middleware.Redirect(c, dashboardPath)
		return
	}
	render(c, http.StatusOK, "Login", h.form())
}

// Login POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := middleware.Bind(c, &req); err != nil {
		fail(c, application.ErrInvalidCredentials, "/login")
		return
	}
	sess := middleware.Current(c).Session()
	if _, err := h.Svc.Login(c.Request.Context(), sess, req.Email, req.Password); err != nil {
		fail(c, err, "/login")
		return
	}
	middleware.Redirect(c, dashboardPath)
}

// RegisterForm GET /register
func (h *AuthHandler) RegisterForm(c *gin.Context) {
	if signedIn(c) {
		middleware.Redirect(c, dashboardPath)
		return
	}
	if !h.Svc.RegistrationEnabled {
		render(c, http.StatusOK, "Registration closed", h.form())
		return
	}
	render(c, http.StatusOK, "Register", h.form())
}

// Register POST /register
func (h *AuthHandler) Register(c *gin.Context) {
	var in application.RegisterInput
	if err := middleware.Bind(c, &in); err != nil {
		fail(c, &application.ValidationError{Field: "payload", Reason: "is invalid"}, "/register")
		return
	}
	sess := middleware.Current(c).Session()
	if _, err := h.Svc.Register(c.Request.Context(), sess, in); err != nil {
		fail(c, err, "/register")
		return
	}
	middleware.Redirect(c, "/welcome")
}

// VerifyForm GET /verify; only reachable with a pending 2FA challenge.
func (h *AuthHandler) VerifyForm(c *gin.Context) {
	render(c, http.StatusOK, "Two-factor verification", nil)
}

// Verify POST /verify
func (h *AuthHandler) Verify(c *gin.Context) {
	var req tokenRequest
	_ = middleware.Bind(c, &req)

	rc := middleware.Current(c)
	err := h.Svc.VerifyChallenge(c.Request.Context(), rc.Session(), rc.CurrentUser(), req.Token)
	switch {
	case err == nil:
		middleware.Redirect(c, dashboardPath)
	case errors.Is(err, application.ErrInvalidOneTimeCode):
		middleware.Flash(c, entity.FlashWarning, msgInvalidToken)
		middleware.Redirect(c, "/verify")
	default:
		fail(c, err, "/verify")
	}
}

// Logout GET /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	rc := middleware.Current(c)
	h.Svc.Logout(c.Request.Context(), rc.Session(), rc.CurrentUser())
	middleware.Redirect(c, "/")
}

// Unauthorized GET /401
func (h *AuthHandler) Unauthorized(c *gin.Context) {
	render(c, http.StatusUnauthorized, "Unauthorized", nil)
}

// Forbidden GET /403
func (h *AuthHandler) Forbidden(c *gin.Context) {
	render(c, http.StatusForbidden, "Forbidden", nil)
}
