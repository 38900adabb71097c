package routes

import (
	"github.com/gin-gonic/gin"

	"burnvault/internal/handlers"
	"burnvault/internal/middleware"
)

// SetupVaultOpsRoutes sets up the vault operation routes. Fund-moving
// endpoints sit behind a per-IP rate limiter.
func SetupVaultOpsRoutes(r *gin.Engine) {
	ops := r.Group("/vault")
	ops.Use(middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 2,
		Burst:             5,
	}))
	{
		ops.POST("/deposit", handlers.DepositToVault)
		ops.POST("/batch-deposit", handlers.BatchDepositToVault)
		ops.POST("/unlock", handlers.UnlockVault)
		ops.POST("/crank", handlers.TriggerCrank)
	}

	state := r.Group("/vault")
	{
		state.GET("/state/:mint", handlers.GetVaultState)
		state.GET("/stat/:mint", handlers.GetVaultStat)
		state.GET("/crank-records", handlers.ListCrankRecords)
		state.GET("/transfer-records", handlers.ListTransferRecords)
	}
}
