package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"burnvault/internal/models"
	dbconfig "burnvault/pkg/config"
)

// ListTokenAccounts returns the cached token account rows, optionally
// filtered by owner
func ListTokenAccounts(c *gin.Context) {
	query := dbconfig.DB
	if owner := c.Query("owner"); owner != "" {
		query = query.Where("owner_address = ?", owner)
	}

	var accounts []models.TokenAccount
	if err := query.Find(&accounts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, accounts)
}

// DeleteTokenAccount evicts a cached token account so the next balance read
// re-resolves it from the chain
func DeleteTokenAccount(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	if err := dbconfig.DB.Delete(&models.TokenAccount{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Record deleted successfully"})
}
