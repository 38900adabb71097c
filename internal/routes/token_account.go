package routes

import (
	"github.com/gin-gonic/gin"

	"burnvault/internal/handlers"
)

// SetupTokenAccountRoutes sets up the token account cache routes
func SetupTokenAccountRoutes(r *gin.Engine) {
	tokenAccount := r.Group("/token-account")
	{
		tokenAccount.GET("", handlers.ListTokenAccounts)
		tokenAccount.DELETE("/:id", handlers.DeleteTokenAccount)
	}
}
