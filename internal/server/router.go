package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"sealed-relay/internal/auth"
	"sealed-relay/internal/delivery"
	"sealed-relay/internal/handler"
	"sealed-relay/internal/hub"
	"sealed-relay/internal/middleware"
	"sealed-relay/internal/store"
)

type Deps struct {
	Store       *store.Store
	Hub         *hub.Hub
	Challenges  *auth.ChallengeStore
	TokenConfig auth.TokenConfig
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	orchestrator := delivery.New(deps.Hub, nil)

	authHandler := &handler.AuthHandler{
		Store:       deps.Store,
		Challenges:  deps.Challenges,
		TokenConfig: deps.TokenConfig,
	}
	challengeLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.POST("/v1/identities", authHandler.Register)
	r.POST("/v1/auth/challenge", middleware.RateLimit(challengeLimiter), authHandler.Challenge)
	r.POST("/v1/auth/verify", authHandler.Verify)

	protected := r.Group("/v1")
	protected.Use(middleware.RequireAuth(deps.TokenConfig))
	protected.PUT("/auth/password", authHandler.ChangePassword)

	convHandler := &handler.ConversationHandler{Store: deps.Store, Delivery: orchestrator}
	protected.POST("/conversations", convHandler.Create)
	protected.GET("/conversations", convHandler.List)
	protected.GET("/conversations/:id/messages", convHandler.Messages)
	protected.POST("/conversations/:id/participants", convHandler.AddParticipant)
	protected.PUT("/conversations/:id/session-key", convHandler.RotateKey)

	msgHandler := &handler.MessageHandler{Store: deps.Store, Delivery: orchestrator}
	protected.POST("/messages", msgHandler.Send)

	userHandler := &handler.UserHandler{Store: deps.Store}
	protected.GET("/users/:username/public-key", userHandler.PublicKey)

	wsHandler := &handler.WebSocketHandler{Hub: deps.Hub, TokenConfig: deps.TokenConfig}
	r.GET("/v1/ws", wsHandler.Serve)

	return r
}
