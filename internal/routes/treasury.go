package routes

import (
	"eventcontrol/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupTreasuryRoutes sets up all routes related to treasury and user wallets
func SetupTreasuryRoutes(r *gin.Engine) {
	communities := r.Group("/api/communities")
	{
		communities.GET("/:community_id/wallet", handlers.GetTreasuryWallet)
		communities.POST("/:community_id/wallet", handlers.ConnectTreasuryWallet)
		communities.DELETE("/:community_id/wallet", handlers.DisconnectTreasuryWallet)
		communities.GET("/:community_id/ledger", handlers.ListLedger)
	}

	users := r.Group("/api/users")
	{
		users.GET("/:user_id/wallet", handlers.GetUserWallet)
		users.PUT("/:user_id/wallet", handlers.RegisterUserWallet)
	}
}
