package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"drawphone/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const adminCookie = "drawphone-admin"

func (s *Server) issueAdminToken() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   s.cfg.AdminUsername,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AdminTokenTTL())),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.adminSecret)
}

// isAdmin accepts the admin cookie or an Authorization bearer token.
func (s *Server) isAdmin(c *gin.Context) bool {
	raw := ""
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		raw = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if raw == "" {
		if cookie, err := c.Cookie(adminCookie); err == nil {
			raw = cookie
		}
	}
	if raw == "" {
		return false
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.adminSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return false
	}
	return claims.Subject == s.cfg.AdminUsername
}

func (s *Server) checkAdminCredentials(username, password string) error {
	if s.cfg.AdminPassword == "" {
		return errors.New("admin login is disabled")
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.AdminPassword)) == 1
	if !userOK || !passOK {
		return errors.New("invalid credentials")
	}
	return nil
}

func (s *Server) setAdminCookie(c *gin.Context, token string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     adminCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// identity is what the caller proves for the game addressed by code.
func (s *Server) identity(c *gin.Context, code string) game.Identity {
	return game.Identity{
		Admin: s.isAdmin(c),
		Token: playerToken(c, code),
	}
}
