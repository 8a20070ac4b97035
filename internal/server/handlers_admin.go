package server

import (
	"net/http"

	"drawphone/internal/game"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createGameRequest struct {
	Nickname             string `json:"nickname" binding:"required,nickname"`
	RoundDurationSeconds int    `json:"roundDurationSeconds" binding:"min=0"`
}

type manageGameRequest struct {
	Code   string `json:"code" binding:"required"`
	Action string `json:"action" binding:"required,oneof=archive delete"`
}

func (s *Server) handleAdminLogin(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, nil, "username and password are required") {
		return
	}
	if err := s.checkAdminCredentials(req.Username, req.Password); err != nil {
		s.logger.Warn("admin login rejected", zap.String("username", req.Username), zap.String("remote", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	token, err := s.issueAdminToken()
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.setAdminCookie(c, token, int(s.cfg.AdminTokenTTL().Seconds()))
	s.logger.Info("admin logged in", zap.String("remote", c.ClientIP()))
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) handleAdminLogout(c *gin.Context) {
	s.setAdminCookie(c, "", -1)
	writeOK(c)
}

func (s *Server) handleAdminListGames(c *gin.Context) {
	page, perPage := parsePagination(c, defaultPerPage, maxPerPage)
	games, err := s.svc.ListGames(c.Request.Context(), game.Identity{Admin: s.isAdmin(c)}, c.Query("active") == "true")
	if err != nil {
		s.writeError(c, err)
		return
	}
	info, start, end := paginate(page, perPage, len(games))
	c.JSON(http.StatusOK, gin.H{
		"games":      games[start:end],
		"pagination": info,
	})
}

func (s *Server) handleAdminCreateGame(c *gin.Context) {
	id := game.Identity{Admin: s.isAdmin(c)}
	if !id.Admin {
		s.writeError(c, game.ErrAdminOnly)
		return
	}
	var req createGameRequest
	if !bindJSON(c, &req, nicknameMessages, "invalid game settings") {
		return
	}
	created, host, err := s.svc.CreateGame(c.Request.Context(), id, normalizeText(req.Nickname), req.RoundDurationSeconds)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.setSessionCookies(c, created.Code, host.SessionToken)
	c.JSON(http.StatusCreated, gin.H{
		"game":         created,
		"player":       host,
		"sessionToken": host.SessionToken,
	})
}

func (s *Server) handleAdminManageGame(c *gin.Context) {
	id := game.Identity{Admin: s.isAdmin(c)}
	if !id.Admin {
		s.writeError(c, game.ErrAdminOnly)
		return
	}
	var req manageGameRequest
	if !bindJSON(c, &req, nil, "code and action (archive or delete) are required") {
		return
	}
	var err error
	switch req.Action {
	case "archive":
		err = s.svc.Archive(c.Request.Context(), id, req.Code)
	case "delete":
		err = s.svc.Delete(c.Request.Context(), id, req.Code)
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeOK(c)
}
