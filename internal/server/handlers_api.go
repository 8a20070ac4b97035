package server

import (
	"net/http"

	"drawphone/internal/game"

	"github.com/gin-gonic/gin"
)

type joinRequest struct {
	Nickname string `json:"nickname" binding:"required,nickname"`
}

type submitRequest struct {
	Content string `json:"content"`
}

type voteRequest struct {
	ChainOwnerID uint `json:"chainOwnerId" binding:"required"`
}

type choiceRequest struct {
	Choice string `json:"choice" binding:"required,oneof=play_again exit"`
}

type kickRequest struct {
	PlayerID uint `json:"playerId" binding:"required"`
}

type chainQuery struct {
	ChainOwnerID uint `form:"chainOwnerId" binding:"required"`
}

func gameCode(c *gin.Context) string {
	return game.NormalizeCode(c.Param("code"))
}

func (s *Server) handleGetGame(c *gin.Context) {
	code := gameCode(c)
	view, err := s.svc.Snapshot(c.Request.Context(), s.identity(c, code), code)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleJoin(c *gin.Context) {
	var req joinRequest
	if !bindJSON(c, &req, nicknameMessages, "invalid join request") {
		return
	}
	code := gameCode(c)
	player, err := s.svc.Join(c.Request.Context(), code, normalizeText(req.Nickname))
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.setSessionCookies(c, code, player.SessionToken)
	c.JSON(http.StatusOK, gin.H{
		"player":       player,
		"sessionToken": player.SessionToken,
	})
}

func (s *Server) handleStart(c *gin.Context) {
	code := gameCode(c)
	total, err := s.svc.Start(c.Request.Context(), s.identity(c, code), code)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"totalRounds": total})
}

func (s *Server) handleSubmit(c *gin.Context) {
	var req submitRequest
	if !bindJSON(c, &req, nil, "invalid submission") {
		return
	}
	code := gameCode(c)
	if err := s.svc.Submit(c.Request.Context(), s.identity(c, code), code, req.Content); err != nil {
		s.writeError(c, err)
		return
	}
	writeOK(c)
}

func (s *Server) handleForceNextRound(c *gin.Context) {
	code := gameCode(c)
	filled, err := s.svc.ForceAdvance(c.Request.Context(), s.identity(c, code), code)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filled": filled})
}

func (s *Server) handleNextReveal(c *gin.Context) {
	code := gameCode(c)
	step, err := s.svc.RevealNext(c.Request.Context(), s.identity(c, code), code)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

func (s *Server) handleVote(c *gin.Context) {
	var req voteRequest
	if !bindJSON(c, &req, nil, "chainOwnerId is required") {
		return
	}
	code := gameCode(c)
	if err := s.svc.Vote(c.Request.Context(), s.identity(c, code), code, req.ChainOwnerID); err != nil {
		s.writeError(c, err)
		return
	}
	writeOK(c)
}

func (s *Server) handlePostGameChoice(c *gin.Context) {
	var req choiceRequest
	if !bindJSON(c, &req, nil, "choice must be play_again or exit") {
		return
	}
	code := gameCode(c)
	if err := s.svc.SetPostGameChoice(c.Request.Context(), s.identity(c, code), code, game.Choice(req.Choice)); err != nil {
		s.writeError(c, err)
		return
	}
	writeOK(c)
}

func (s *Server) handlePlayAgain(c *gin.Context) {
	code := gameCode(c)
	id := s.identity(c, code)
	rematch, err := s.svc.PlayAgain(c.Request.Context(), id, code)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if id.Token != "" {
		s.setSessionCookies(c, rematch.Code, id.Token)
	}
	c.JSON(http.StatusOK, gin.H{"code": rematch.Code})
}

func (s *Server) handleQuit(c *gin.Context) {
	code := gameCode(c)
	if err := s.svc.Quit(c.Request.Context(), s.identity(c, code), code); err != nil {
		s.writeError(c, err)
		return
	}
	writeOK(c)
}

func (s *Server) handleKick(c *gin.Context) {
	var req kickRequest
	if !bindJSON(c, &req, nil, "playerId is required") {
		return
	}
	code := gameCode(c)
	if err := s.svc.Kick(c.Request.Context(), s.identity(c, code), code, req.PlayerID); err != nil {
		s.writeError(c, err)
		return
	}
	writeOK(c)
}

func (s *Server) handleChain(c *gin.Context) {
	var query chainQuery
	if !bindQuery(c, &query, nil, "chainOwnerId is required") {
		return
	}
	chain, err := s.svc.Chain(c.Request.Context(), gameCode(c), query.ChainOwnerID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, chain)
}

func (s *Server) handleChains(c *gin.Context) {
	chains, err := s.svc.Chains(c.Request.Context(), gameCode(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chains": chains})
}
