package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-portal/internal/application"
	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-portal/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/helpers"
)

const (
	settingsPath     = "/settings"
	enrollPath       = "/settings/2fa/new"
	revokePath       = "/settings/2fa/delete"
	passwordPath     = "/settings/password"
	msgWrongPassword = "You have entered an incorrect password."
)

type SettingsHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewSettingsHandler(svc *application.Service, logger *logrus.Logger) *SettingsHandler {
	return &SettingsHandler{Svc: svc, Logger: logger}
}

type enrollmentView struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
	QRCode string `json:"qr"`
}

func enrollment(k *application.OTPKey) enrollmentView {
	return enrollmentView{Secret: k.Secret, URI: k.URI, QRCode: k.QRCode}
}

// Index GET /settings
func (h *SettingsHandler) Index(c *gin.Context) {
	render(c, http.StatusOK, "Settings", profile(middleware.Current(c).CurrentUser()))
}

// TwoFactorNew GET /settings/2fa/new shows the unconfirmed secret, creating
// one when none is pending.
func (h *SettingsHandler) TwoFactorNew(c *gin.Context) {
	ctx := c.Request.Context()
	u := middleware.Current(c).CurrentUser()

	key, err := h.Svc.PendingEnrollment(ctx, u)
	if errors.Is(err, application.ErrEnrollmentNotStarted) {
		key, err = h.Svc.BeginEnrollment(ctx, u)
	}
	if err != nil {
		fail(c, err, settingsPath)
		return
	}
	render(c, http.StatusOK, "Set up two-factor authentication", enrollment(key))
}

// TwoFactorRestart POST /settings/2fa/new replaces the unconfirmed secret.
func (h *SettingsHandler) TwoFactorRestart(c *gin.Context) {
	if _, err := h.Svc.BeginEnrollment(c.Request.Context(), middleware.Current(c).CurrentUser()); err != nil {
		fail(c, err, settingsPath)
		return
	}
	middleware.Redirect(c, enrollPath)
}

// TwoFactorVerify POST /settings/2fa/verify. A wrong code renders the same
// secret again.
func (h *SettingsHandler) TwoFactorVerify(c *gin.Context) {
	var req tokenRequest
	_ = middleware.Bind(c, &req)

	key, err := h.Svc.ConfirmEnrollment(c.Request.Context(), middleware.Current(c).CurrentUser(), req.Token)
	switch {
	case err == nil:
		succeed(c, "2FA successfully coupled with your account.", settingsPath)
	case errors.Is(err, application.ErrInvalidOneTimeCode) && key != nil:
		middleware.Flash(c, entity.FlashError, msgInvalidToken)
		render(c, http.StatusUnprocessableEntity, "Set up two-factor authentication", enrollment(key))
	case errors.Is(err, application.ErrEnrollmentNotStarted):
		fail(c, err, enrollPath)
	default:
		fail(c, err, settingsPath)
	}
}

// TwoFactorDeleteForm GET /settings/2fa/delete
func (h *SettingsHandler) TwoFactorDeleteForm(c *gin.Context) {
	u := middleware.Current(c).CurrentUser()
	if !u.TOTPEnabled {
		middleware.Redirect(c, settingsPath)
		return
	}
	render(c, http.StatusOK, "Disable two-factor authentication", nil)
}

// TwoFactorDelete POST /settings/2fa/delete; behind StepUp.
func (h *SettingsHandler) TwoFactorDelete(c *gin.Context) {
	if err := h.Svc.RevokeTwoFactor(c.Request.Context(), middleware.Current(c).CurrentUser()); err != nil {
		middleware.Flash(c, entity.FlashError, "An error occurred decoupling 2FA.")
		middleware.Redirect(c, revokePath)
		return
	}
	succeed(c, "You decoupled 2FA successfully.", settingsPath)
}

// PasswordForm GET /settings/password
func (h *SettingsHandler) PasswordForm(c *gin.Context) {
	u := middleware.Current(c).CurrentUser()
	render(c, http.StatusOK, "Change password", gin.H{"two_factor_enabled": u.TOTPEnabled})
}

// ChangePassword POST /settings/password; behind StepUp.
func (h *SettingsHandler) ChangePassword(c *gin.Context) {
	var in application.ChangePasswordInput
	if err := middleware.Bind(c, &in); err != nil {
		fail(c, &application.ValidationError{Field: "payload", Reason: "is invalid"}, passwordPath)
		return
	}
	u := middleware.Current(c).CurrentUser()
	err := h.Svc.ChangePassword(c.Request.Context(), u, in)
	switch {
	case err == nil:
		succeed(c, "Password successfully changed.", settingsPath)
	case errors.Is(err, application.ErrInvalidCredentials):
		helpers.LogEntry(c.Request.Context(), h.Logger).WithField("user_id", u.ID).Info("password change with wrong current password")
		middleware.Flash(c, entity.FlashError, msgWrongPassword)
		middleware.Redirect(c, passwordPath)
	default:
		fail(c, err, passwordPath)
	}
}
