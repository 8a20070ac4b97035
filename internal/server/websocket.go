package server

import (
	"context"
	"time"

	"drawphone/internal/broadcast"
	"drawphone/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteTimeout  = 10 * time.Second
	snapshotMessage = "snapshot"
)

// handleWebsocket binds one connection to the game channel. The first message
// is the caller's snapshot; every later message is a published event. The
// subscription is opened before the snapshot is read so nothing committed in
// between is lost.
func (s *Server) handleWebsocket(c *gin.Context) {
	code := gameCode(c)
	id := s.identity(c, code)
	sub, first := s.hub.Subscribe(code, id.Token)
	view, err := s.svc.Snapshot(c.Request.Context(), id, code)
	if err != nil {
		sub.Close()
		s.writeError(c, err)
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Close()
		return
	}

	token := ""
	if view.MyPlayer != nil {
		token = id.Token
		if first {
			if err := s.svc.SetConnected(context.Background(), code, token, true); err != nil {
				s.logger.Warn("mark player connected", zap.String("code", code), zap.Error(err))
			}
		}
		view.MyPlayer.IsConnected = true
	}
	s.logger.Info("ws connected", zap.String("code", code), zap.String("remote", c.Request.RemoteAddr))

	if data, err := broadcast.EncodeNamed(snapshotMessage, view); err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
	go s.writeWS(conn, sub)
	go s.readWS(conn, sub, token != "")
}

func (s *Server) writeWS(conn *websocket.Conn, sub *broadcast.Subscription) {
	for data := range sub.Messages() {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			_ = conn.Close()
			return
		}
	}
}

// readWS drains the connection until it fails, then unbinds. A player is
// marked offline only when their last connection on this instance closes.
func (s *Server) readWS(conn *websocket.Conn, sub *broadcast.Subscription, player bool) {
	code := sub.Code()
	defer func() {
		last := sub.Close()
		_ = conn.Close()
		if !player || !last {
			return
		}
		if err := s.svc.SetConnected(context.Background(), code, sub.Member(), false); err != nil && game.KindOf(err) != game.KindNotFound {
			s.logger.Warn("mark player disconnected", zap.String("code", code), zap.Error(err))
		}
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.logger.Info("ws disconnected", zap.String("code", code), zap.Error(err))
			return
		}
	}
}
