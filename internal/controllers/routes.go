package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"budgetly-be/internal/jwt"
	"budgetly-be/internal/logger"
	"budgetly-be/internal/middleware"
)

// RouterConfig collects what the HTTP surface needs
type RouterConfig struct {
	Auth    *AuthController
	Users   *UserController
	Budgets *BudgetController

	JWT            *jwt.JWTService
	GeneralLimiter *middleware.RateLimiter
	AuthLimiter    *middleware.RateLimiter

	Logger    *logger.Logger
	AccessLog io.Writer // nil disables the access log file
}

// NewRouter builds the gin engine with every route mounted under /api/v1
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.AccessLog(cfg.Logger, cfg.AccessLog),
		middleware.SecurityHeaders(),
		middleware.CORS(),
	)

	// Health check endpoint (no rate limiting)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.Use(cfg.GeneralLimiter.LimitMiddleware())
	{
		auth := api.Group("/auth")
		auth.Use(cfg.AuthLimiter.LimitMiddleware())
		{
			auth.POST("/signup", cfg.Auth.Signup)
			auth.POST("/login", cfg.Auth.Login)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(cfg.JWT))
		{
			protected.GET("/users/me", cfg.Users.Me)
			protected.DELETE("/users/me", cfg.Users.Delete)

			protected.POST("/budget", cfg.Budgets.Create)
			protected.GET("/budget", cfg.Budgets.List)
			protected.GET("/budget/check-limit", cfg.Budgets.CheckLimit)
			protected.GET("/budget/analytics", cfg.Budgets.Analytics)
			protected.GET("/budget/:id", cfg.Budgets.Get)
			protected.PATCH("/budget/:id", cfg.Budgets.Update)
			protected.DELETE("/budget/:id", cfg.Budgets.Delete)
		}
	}

	return router
}
