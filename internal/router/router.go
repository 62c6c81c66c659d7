package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"realitycheck/backend/internal/handler"
	"realitycheck/backend/internal/middleware"
	"realitycheck/backend/internal/service"
)

func New(
	authService *service.AuthService,
	authHandler *handler.AuthHandler,
	commitmentHandler *handler.CommitmentHandler,
	corsOrigins []string,
) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	commitments := api.Group("/commitments")
	commitments.Use(middleware.Auth(authService))
	commitments.POST("", commitmentHandler.Create)
	commitments.GET("", commitmentHandler.List)
	commitments.GET("/suggestion", commitmentHandler.Suggestion)
	commitments.GET("/archive", commitmentHandler.ListArchived)
	commitments.GET("/score-history", commitmentHandler.ScoreHistory)
	commitments.POST("/start-new-phase", commitmentHandler.StartNewPhase)
	commitments.PATCH("/:id/pending-reason", commitmentHandler.SavePendingReason)
	commitments.PATCH("/:id/complete", commitmentHandler.Complete)
	commitments.DELETE("/:id", commitmentHandler.Delete)

	return engine
}
