package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/helpers"
)

const recaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// CaptchaVerifier checks a captcha response token.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// Recaptcha verifies tokens against Google's siteverify endpoint.
type Recaptcha struct {
	Secret   string
	Endpoint string
	Client   *http.Client
}

func NewRecaptcha(secret string) *Recaptcha {
	return &Recaptcha{Secret: secret, Endpoint: recaptchaVerifyURL, Client: &http.Client{Timeout: 5 * time.Second}}
}

func (r *Recaptcha) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	form := url.Values{"secret": {r.Secret}, "response": {token}}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res, err := r.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusOK {
		return false, fmt.Errorf("siteverify: %s", res.Status)
	}
	var out struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Success, nil
}

type captchaForm struct {
	Response string `form:"g-recaptcha-response" json:"g-recaptcha-response"`
}

// RequireCaptcha rejects form posts without a passing captcha. A nil
// verifier disables the check.
func RequireCaptcha(v CaptchaVerifier, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v == nil {
			c.Next()
			return
		}
		var in captchaForm
		_ = Bind(c, &in)
		if strings.TrimSpace(in.Response) == "" {
			Flash(c, entity.FlashError, "Please complete the recaptcha.")
			Redirect(c, c.Request.URL.Path)
			return
		}
		ok, err := v.Verify(c.Request.Context(), in.Response, ipFromCtx(c))
		if err != nil {
			helpers.LogEntry(c.Request.Context(), logger).WithError(err).Warn("recaptcha verification failed")
		}
		if !ok {
			Flash(c, entity.FlashError, "You failed the recaptcha test.")
			Redirect(c, c.Request.URL.Path)
			return
		}
		c.Next()
	}
}
