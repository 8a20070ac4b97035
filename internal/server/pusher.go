package server

import (
	"errors"
	"net/http"
	"net/url"

	"drawphone/internal/broadcast"
	"drawphone/internal/game"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WithPusher enables the Pusher presence endpoints.
func (s *Server) WithPusher(gateway *broadcast.PusherGateway) *Server {
	s.pusher = gateway
	return s
}

// handlePusherAuth signs a presence subscription for the player whose
// credential accompanies the request.
func (s *Server) handlePusherAuth(c *gin.Context) {
	if s.pusher == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "pusher is not configured"})
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing params"})
		return
	}
	form, err := url.ParseQuery(string(body))
	if err != nil || form.Get("socket_id") == "" || form.Get("channel_name") == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing params"})
		return
	}
	code, ok := broadcast.CodeFromChannel(form.Get("channel_name"))
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid channel"})
		return
	}
	player, err := s.svc.Player(c.Request.Context(), code, playerToken(c, code))
	if err != nil {
		if kind := game.KindOf(err); kind == game.KindUnauthorized || kind == game.KindNotFound {
			c.JSON(http.StatusForbidden, gin.H{"error": game.Message(err)})
			return
		}
		s.writeError(c, err)
		return
	}
	resp, err := s.pusher.AuthorizePlayer(body, player)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", resp)
}

// handlePusherWebhook applies presence webhooks to player connectivity.
func (s *Server) handlePusherWebhook(c *gin.Context) {
	if s.pusher == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "pusher is not configured"})
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}
	changes, err := s.pusher.MemberChanges(c.Request.Header, body)
	if err != nil {
		s.logger.Warn("pusher webhook rejected", zap.String("remote", c.ClientIP()), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook"})
		return
	}
	var errs []error
	for _, change := range changes {
		err := s.svc.SetMemberConnected(c.Request.Context(), change.Code, change.PlayerID, change.Connected)
		if err != nil && game.KindOf(err) != game.KindNotFound {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.writeError(c, err)
		return
	}
	writeOK(c)
}
