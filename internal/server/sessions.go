package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	sessionHeader       = "X-Session-Token"
	sessionCookiePrefix = "drawphone-session-"
	// lastSessionCookie follows a player into a rematch, whose code differs.
	lastSessionCookie = "drawphone-session"
)

func sessionCookieName(code string) string {
	return sessionCookiePrefix + code
}

// playerToken resolves the caller's credential for one game: the header
// first, then the cookie for that code, then the most recent session cookie.
func playerToken(c *gin.Context, code string) string {
	if token := strings.TrimSpace(c.GetHeader(sessionHeader)); token != "" {
		return token
	}
	if token, err := c.Cookie(sessionCookieName(code)); err == nil && token != "" {
		return token
	}
	if token, err := c.Cookie(lastSessionCookie); err == nil {
		return token
	}
	return ""
}

func (s *Server) setSessionCookies(c *gin.Context, code, token string) {
	maxAge := int(s.cfg.SessionTTL().Seconds())
	for _, name := range []string{sessionCookieName(code), lastSessionCookie} {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    token,
			Path:     "/",
			MaxAge:   maxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
