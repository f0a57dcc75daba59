package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const CtxUsernameKey = "username"

// LoadSession puts the logged-in username, when there is one, into the
// request context. It never rejects a request.
func LoadSession(g *Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v, err := c.Cookie(CookieName); err == nil && v != "" {
			if username, err := g.Resolve(c.Request.Context(), v); err == nil {
				c.Set(CtxUsernameKey, username)
			}
		}
		c.Next()
	}
}

// RequireLogin sends anonymous browsers to the login page.
func RequireLogin(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsLoggedIn(c) {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

func IsLoggedIn(c *gin.Context) bool {
	return c.GetString(CtxUsernameKey) != ""
}

func Username(c *gin.Context) string {
	return c.GetString(CtxUsernameKey)
}
