// Package server exposes the game over HTTP and websockets.
package server

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"drawphone/internal/broadcast"
	"drawphone/internal/config"
	"drawphone/internal/game"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Server struct {
	svc         *game.Service
	hub         *broadcast.Hub
	cfg         config.Config
	logger      *zap.Logger
	adminSecret []byte
	upgrader    websocket.Upgrader
	pusher      *broadcast.PusherGateway
	now         func() time.Time
}

func New(svc *game.Service, hub *broadcast.Hub, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	registerValidators()
	secret := []byte(cfg.AdminSecret)
	if len(secret) == 0 {
		secret = randomSecret()
		logger.Warn("ADMIN_SECRET not set, admin sessions will not survive a restart")
	}
	return &Server{
		svc:         svc,
		hub:         hub,
		cfg:         cfg,
		logger:      logger,
		adminSecret: secret,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		now: time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))
	if len(s.cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     s.cfg.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch},
			AllowHeaders:     []string{"Content-Type", "Authorization", sessionHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	admin := router.Group("/api/admin")
	admin.POST("/login", s.handleAdminLogin)
	admin.POST("/logout", s.handleAdminLogout)
	admin.GET("/games", s.handleAdminListGames)
	admin.POST("/games", s.handleAdminCreateGame)
	admin.PATCH("/games", s.handleAdminManageGame)

	games := router.Group("/api/games/:code")
	games.GET("", s.handleGetGame)
	games.POST("/join", s.handleJoin)
	games.POST("/start", s.handleStart)
	games.POST("/submit", s.handleSubmit)
	games.POST("/force-next-round", s.handleForceNextRound)
	games.POST("/next-reveal", s.handleNextReveal)
	games.POST("/vote", s.handleVote)
	games.POST("/post-game-choice", s.handlePostGameChoice)
	games.POST("/play-again", s.handlePlayAgain)
	games.POST("/quit", s.handleQuit)
	games.POST("/kick", s.handleKick)
	games.GET("/chain", s.handleChain)
	games.GET("/chains", s.handleChains)
	games.GET("/qr.png", s.handleQRCode)

	router.POST("/api/pusher/auth", s.handlePusherAuth)
	router.POST("/api/pusher/webhook", s.handlePusherWebhook)

	router.GET("/ws/games/:code", s.handleWebsocket)
	return router
}

func randomSecret() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return []byte(time.Now().String())
	}
	return []byte(hex.EncodeToString(buf))
}
