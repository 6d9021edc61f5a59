package routes

import (
	"github.com/Jengeka/bingwa-sokoni/internal/config"
	"github.com/Jengeka/bingwa-sokoni/internal/handlers"
	"github.com/Jengeka/bingwa-sokoni/internal/middleware"
	"github.com/gin-gonic/gin"
)

// HandlerDependencies carries the handlers wired up in main
type HandlerDependencies struct {
	AccountHandler    *handlers.AccountHandler
	PurchaseHandler   *handlers.PurchaseHandler
	CallbackHandler   *handlers.CallbackHandler
	RedemptionHandler *handlers.RedemptionHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Add middleware
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())

	api := router.Group("/api/v1")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
			})
		})

		// Account routes
		accounts := api.Group("/accounts")
		{
			accounts.POST("", deps.AccountHandler.Register)
			accounts.GET("/:id", deps.AccountHandler.GetAccountByID)
			accounts.GET("/:id/transactions", deps.AccountHandler.GetTransactions)
			accounts.POST("/:id/redeem", deps.RedemptionHandler.Redeem)
		}

		// Purchase routes
		purchases := api.Group("/purchases")
		{
			purchases.POST("/airtime", deps.PurchaseHandler.PurchaseAirtime)
			purchases.POST("/data", deps.PurchaseHandler.PurchaseData)
		}

		// Payment gateway callback
		api.POST("/payments/callback", deps.CallbackHandler.HandleCallback)

		// WhatsApp help
		api.POST("/help/whatsapp", deps.AccountHandler.RequestHelp)
	}

	return router
}
