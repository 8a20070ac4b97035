package server

import (
	"net/http"

	"drawphone/internal/game"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

func (s *Server) joinURL(code string) string {
	return s.cfg.PublicURL + "/game/" + code
}

// handleQRCode renders a PNG that opens the join page for the game.
func (s *Server) handleQRCode(c *gin.Context) {
	code := gameCode(c)
	if _, err := s.svc.Snapshot(c.Request.Context(), game.Identity{}, code); err != nil {
		s.writeError(c, err)
		return
	}
	png, err := qrcode.Encode(s.joinURL(code), qrcode.Medium, qrSize)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}
