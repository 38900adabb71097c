package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"burnvault/internal/models"
	dbconfig "burnvault/pkg/config"
	"burnvault/pkg/solana/vaultprogram"
)

// ListVaultConfigs returns a list of all vault configurations
func ListVaultConfigs(c *gin.Context) {
	var configs []models.VaultConfig
	if err := dbconfig.DB.Find(&configs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, configs)
}

// GetVaultConfig returns a specific vault configuration by ID
func GetVaultConfig(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var config models.VaultConfig
	if err := dbconfig.DB.First(&config, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	c.JSON(http.StatusOK, config)
}

// VaultConfigRequest represents the request body for creating/updating a vault configuration
type VaultConfigRequest struct {
	Name                    string `json:"name"`
	Mint                    string `json:"mint" binding:"required"`
	BurnAddress             string `json:"burn_address" binding:"required"`
	StartingBalanceLamports uint64 `json:"starting_balance_lamports"`
	SlippageBps             int    `json:"slippage_bps"`
	Enabled                 bool   `json:"enabled"`
}

// CreateVaultConfig creates a new vault configuration and derives its
// program addresses from the mint
func CreateVaultConfig(c *gin.Context) {
	var request VaultConfigRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mint, err := solana.PublicKeyFromBase58(request.Mint)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid mint address: %v", err)})
		return
	}
	if _, err := solana.PublicKeyFromBase58(request.BurnAddress); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid burn address: %v", err)})
		return
	}

	addrs, err := vaultprogram.FindVaultAddresses(mint)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to derive vault addresses: %v", err)})
		return
	}

	slippage := request.SlippageBps
	if slippage == 0 {
		slippage = 100
	}

	config := models.VaultConfig{
		Name:                    request.Name,
		Mint:                    request.Mint,
		BurnAddress:             request.BurnAddress,
		StartingBalanceLamports: request.StartingBalanceLamports,
		StateAddress:            addrs.State.Address.String(),
		VaultAddress:            addrs.Vault.Address.String(),
		TimelockAuthority:       addrs.TimelockAuthority.Address.String(),
		SlippageBps:             slippage,
		Enabled:                 request.Enabled,
	}

	if err := dbconfig.DB.Create(&config).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, config)
}

// UpdateVaultConfigRequest carries the mutable fields of a vault configuration.
// The mint and derived addresses are immutable once created.
type UpdateVaultConfigRequest struct {
	Name        *string `json:"name"`
	SlippageBps *int    `json:"slippage_bps"`
	Enabled     *bool   `json:"enabled"`
}

// UpdateVaultConfig updates the mutable fields of a vault configuration
func UpdateVaultConfig(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var request UpdateVaultConfigRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var config models.VaultConfig
	if err := dbconfig.DB.First(&config, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}

	if request.Name != nil {
		config.Name = *request.Name
	}
	if request.SlippageBps != nil {
		config.SlippageBps = *request.SlippageBps
	}
	if request.Enabled != nil {
		config.Enabled = *request.Enabled
	}

	if err := dbconfig.DB.Save(&config).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, config)
}

// DeleteVaultConfig deletes a vault configuration
func DeleteVaultConfig(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	if err := dbconfig.DB.Delete(&models.VaultConfig{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Record deleted successfully"})
}

// InitializeVault submits the on-chain initialize transaction for a vault
// configuration and marks it initialized
func InitializeVault(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var config models.VaultConfig
	if err := dbconfig.DB.First(&config, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}

	if config.Initialized {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vault is already initialized"})
		return
	}

	client, err := OperatorClient()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	mint := solana.MustPublicKeyFromBase58(config.Mint)
	burnAddress := solana.MustPublicKeyFromBase58(config.BurnAddress)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	sig, err := client.Initialize(ctx, mint, burnAddress, config.StartingBalanceLamports)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to initialize vault: %v", err)})
		return
	}

	config.Initialized = true
	if err := dbconfig.DB.Save(&config).Error; err != nil {
		log.Errorf("Vault %d initialized on chain but failed to persist flag: %v", config.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Vault initialized",
		"signature": sig,
		"config":    config,
	})
}

// SyncVaultConfig refreshes the cached timestamps and baseline from the
// on-chain state account
func SyncVaultConfig(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var config models.VaultConfig
	if err := dbconfig.DB.First(&config, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}

	client, err := newRPCClient()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	mint := solana.MustPublicKeyFromBase58(config.Mint)
	state, err := vaultprogram.FetchStateAccount(ctx, client, mint)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to fetch state account: %v", err)})
		return
	}

	config.StartingBalanceLamports = state.StartingBalanceLamports
	config.LastCrankTs = state.LastCrankTs
	config.TimelockUnlockTs = state.TimelockUnlockTs
	config.Initialized = true

	if err := dbconfig.DB.Save(&config).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, config)
}
