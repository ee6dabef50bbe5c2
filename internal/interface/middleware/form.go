package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Bind decodes a form or JSON body into obj. JSON bodies are cached so that
// several middlewares may read the same request.
func Bind(c *gin.Context, obj any) error {
	if strings.HasPrefix(c.ContentType(), binding.MIMEJSON) {
		return c.ShouldBindBodyWith(obj, binding.JSON)
	}
	return c.ShouldBindWith(obj, binding.Form)
}

// Redirect sends the browser to path. Form posts get 303 so the follow-up
// request is a GET.
func Redirect(c *gin.Context, path string) {
	code := http.StatusSeeOther
	if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
		code = http.StatusFound
	}
	c.Redirect(code, path)
	c.Abort()
}

// Flash queues a message for the next rendered view.
func Flash(c *gin.Context, kind, message string) {
	if sess := Current(c).Session(); sess != nil {
		sess.AddFlash(kind, message)
	}
}
