package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ridecore/internal/handler"
	"ridecore/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler         *handler.RideHandler
	DriverHandler       *handler.DriverHandler
	SubscriptionHandler *handler.SubscriptionHandler
	WalletHandler       *handler.WalletHandler
	RedisClient         *redis.Client
	NewRelicApp         *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Ride lifecycle routes.
		rides := v1.Group("/rides")
		{
			rides.GET("/:id", deps.RideHandler.Get)
			rides.POST("/:id/accept", deps.RideHandler.Accept)
			rides.POST("/:id/arrived", deps.RideHandler.Arrived)
			rides.POST("/:id/call-attempt", deps.RideHandler.CallAttempt)
			rides.POST("/:id/start", deps.RideHandler.Start)
			rides.POST("/:id/complete", deps.RideHandler.Complete)
			rides.POST("/:id/cancel", deps.RideHandler.Cancel)
			rides.POST("/:id/confirm-payment", deps.RideHandler.ConfirmPayment)
			rides.POST("/:id/rate", deps.RideHandler.Rate)
		}

		// Driver presence and subscription routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("/:id/heartbeat", deps.DriverHandler.Heartbeat)
			drivers.POST("/:id/availability", deps.DriverHandler.ToggleAvailability)
			drivers.GET("/:id/presence", deps.DriverHandler.GetPresence)
			drivers.GET("/:id/subscription", deps.SubscriptionHandler.Get)
			drivers.POST("/:id/subscription", deps.SubscriptionHandler.Activate)
		}

		// Wallet routes.
		wallets := v1.Group("/wallets")
		{
			wallets.GET("/:ownerType/:ownerId", deps.WalletHandler.GetBalance)
			wallets.GET("/:ownerType/:ownerId/transactions", deps.WalletHandler.GetTransactions)
		}
	}

	return router
}
