package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Manager writes the session cookie. It is HttpOnly and SameSite=Lax.
type Manager struct {
	Name   string
	Domain string
	Secure bool
	TTL    time.Duration
}

func NewCookie(name, domain string, secure bool, ttl time.Duration) *Manager {
	return &Manager{Name: name, Domain: domain, Secure: secure, TTL: ttl}
}

func (m *Manager) Read(c *gin.Context) string {
	v, err := c.Cookie(m.Name)
	if err != nil {
		return ""
	}
	return v
}

func (m *Manager) Set(c *gin.Context, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.Name, value, maxAgeFrom(time.Now().Add(m.TTL)), "/", m.Domain, m.Secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.Name, "", -1, "/", m.Domain, m.Secure, true)
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
