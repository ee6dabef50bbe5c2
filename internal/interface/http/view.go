package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-portal/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/response"
)

// render answers a GET view: the page title as message, the view model as
// data and the pending flashes in meta.
func render(c *gin.Context, status int, title string, data any) {
	flashes := []entity.Flash{}
	if sess := middleware.Current(c).Session(); sess != nil {
		if taken := sess.TakeFlashes(); len(taken) > 0 {
			flashes = taken
		}
	}
	if status == 0 {
		status = http.StatusOK
	}
	response.Success(c, status, data, title, gin.H{"flash": flashes}).Send(c)
}

// fail flashes the user-facing message for err and redirects to back.
func fail(c *gin.Context, err error, back string) {
	middleware.Flash(c, entity.FlashError, userMessage(err))
	middleware.Redirect(c, back)
}

func succeed(c *gin.Context, message, next string) {
	middleware.Flash(c, entity.FlashSuccess, message)
	middleware.Redirect(c, next)
}

type profileView struct {
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Role             string     `json:"role"`
	Timezone         string     `json:"timezone"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	LastSeen         *time.Time `json:"last_seen,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func profile(u *entity.User) profileView {
	return profileView{
		Email:            u.Email,
		Name:             u.Name,
		Role:             u.Role,
		Timezone:         u.Timezone,
		TwoFactorEnabled: u.TOTPEnabled,
		LastSeen:         u.LastSeen,
		CreatedAt:        u.CreatedAt,
	}
}
