package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookieName is the one cookie this app sets.
const SessionCookieName = "token"

// The frontend is served from a different origin, so the cookie must be
// SameSite=None and therefore Secure. Localhost counts as a secure context
// in modern browsers, so the flags are the same in every environment.
func SetSessionCookie(ctx *gin.Context, token string, ttl time.Duration) {
	ctx.SetSameSite(http.SameSiteNoneMode)

	ctx.SetCookie(
		SessionCookieName,
		token,
		int(ttl.Seconds()),
		"/",
		"",
		true, // Secure
		true, // HttpOnly
	)
}

func ClearSessionCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteNoneMode)

	ctx.SetCookie(
		SessionCookieName,
		"",
		-1,
		"/",
		"",
		true,
		true,
	)
}
