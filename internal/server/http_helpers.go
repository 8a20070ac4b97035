package server

import (
	"net/http"

	"drawphone/internal/game"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func statusFor(kind game.Kind) int {
	switch kind {
	case game.KindInvalid:
		return http.StatusBadRequest
	case game.KindNotFound:
		return http.StatusNotFound
	case game.KindUnauthorized:
		return http.StatusUnauthorized
	case game.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a domain error to its status. Internal causes are logged and
// never sent to the client.
func (s *Server) writeError(c *gin.Context, err error) {
	kind := game.KindOf(err)
	if kind == game.KindInternal {
		s.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("code", c.Param("code")),
			zap.Error(err),
		)
	}
	c.JSON(statusFor(kind), gin.H{"error": game.Message(err)})
}

func writeOK(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
