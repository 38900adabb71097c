package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"burnvault/internal/models"
	dbconfig "burnvault/pkg/config"
)

// ListRpcConfigs returns a list of all RPC configurations
func ListRpcConfigs(c *gin.Context) {
	var configs []models.RpcConfig
	if err := dbconfig.DB.Find(&configs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, configs)
}

// GetRpcConfig returns a specific RPC configuration by ID
func GetRpcConfig(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var config models.RpcConfig
	if err := dbconfig.DB.First(&config, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	c.JSON(http.StatusOK, config)
}

// RpcConfigRequest represents the request body for creating/updating an RPC configuration
type RpcConfigRequest struct {
	Label      string `json:"label"`
	Endpoint   string `json:"endpoint" binding:"required"`
	WsEndpoint string `json:"ws_endpoint"`
	IsActive   bool   `json:"is_active"`
}

// CreateRpcConfig creates a new RPC configuration
func CreateRpcConfig(c *gin.Context) {
	var request RpcConfigRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	config := models.RpcConfig{
		Label:      request.Label,
		Endpoint:   request.Endpoint,
		WsEndpoint: request.WsEndpoint,
		IsActive:   request.IsActive,
	}

	if err := dbconfig.DB.Create(&config).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, config)
}

// UpdateRpcConfig updates an existing RPC configuration
func UpdateRpcConfig(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var request RpcConfigRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var config models.RpcConfig
	if err := dbconfig.DB.First(&config, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}

	config.Label = request.Label
	config.Endpoint = request.Endpoint
	config.WsEndpoint = request.WsEndpoint
	config.IsActive = request.IsActive

	if err := dbconfig.DB.Save(&config).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, config)
}

// DeleteRpcConfig deletes an RPC configuration
func DeleteRpcConfig(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	if err := dbconfig.DB.Delete(&models.RpcConfig{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Record deleted successfully"})
}
