package routes

import (
	"github.com/gin-gonic/gin"

	"burnvault/internal/handlers"
)

func SetupCommonUtilsRoutes(r *gin.Engine) {
	jupiter := r.Group("/common_utils/jupiter")
	{
		jupiter.POST("/quote", handlers.GetJupiterQuote)
		jupiter.POST("/price", handlers.GetTokenPrice)
	}

	account := r.Group("/common_utils/account")
	{
		account.POST("/info", handlers.GetAccountInfo)
		account.POST("/transaction-status", handlers.GetTransactionStatus)
	}

	rpcStatus := r.Group("/common_utils/rpc")
	{
		rpcStatus.POST("/status", handlers.GetRPCStatusHandler)
	}

	monitor := r.Group("/common_utils/monitor")
	{
		monitor.POST("/control", handlers.ControlVaultMonitor)
	}
}
