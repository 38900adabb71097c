package routes

import (
	"github.com/gin-gonic/gin"

	"burnvault/internal/handlers"
)

// SetupVaultConfigRoutes sets up all routes related to vault configuration
func SetupVaultConfigRoutes(r *gin.Engine) {
	vault := r.Group("/vault-config")
	{
		vault.GET("", handlers.ListVaultConfigs)
		vault.GET("/:id", handlers.GetVaultConfig)
		vault.POST("", handlers.CreateVaultConfig)
		vault.PUT("/:id", handlers.UpdateVaultConfig)
		vault.DELETE("/:id", handlers.DeleteVaultConfig)
		vault.POST("/:id/initialize", handlers.InitializeVault)
		vault.POST("/:id/sync", handlers.SyncVaultConfig)
	}
}
