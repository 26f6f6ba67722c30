package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/layer-3/walletauth/internal/logging"
	"github.com/layer-3/walletauth/ports"
	"github.com/layer-3/walletauth/service"
)

// SetupRouter sets up the Gin router. limiter may be nil to disable connect rate limiting.
func SetupRouter(auth *service.AuthService, wallet *service.WalletService, limiter ports.RateLimiter, log logging.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))

	handlers := NewHandlers(auth, wallet, log)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	walletGroup := router.Group("/wallet")

	connect := []gin.HandlerFunc{handlers.Connect}
	if limiter != nil {
		connect = append([]gin.HandlerFunc{RateLimitMiddleware(limiter, log)}, connect...)
	}
	walletGroup.POST("/connect", connect...)

	// Session protected routes
	protected := walletGroup.Group("")
	protected.Use(handlers.SessionMiddleware())
	{
		protected.GET("/session", handlers.Session)
		protected.POST("/disconnect", handlers.Disconnect)
		protected.GET("/balances", handlers.Balances)
		protected.POST("/refresh", handlers.RefreshBalances)
		protected.GET("/transactions", handlers.Transactions)
		protected.POST("/purchase", handlers.Purchase)
		protected.POST("/spend", handlers.Spend)
	}

	return router
}
