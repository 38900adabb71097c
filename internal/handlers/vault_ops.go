package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"burnvault/internal/cranker"
	"burnvault/internal/models"
	"burnvault/internal/vault"
	dbconfig "burnvault/pkg/config"
	bvsolana "burnvault/pkg/solana"
	"burnvault/pkg/solana/vaultprogram"
	"burnvault/pkg/utils"
)

// DepositRequest represents the request body for a vault deposit
type DepositRequest struct {
	Mint     string `json:"mint" binding:"required"`
	Lamports uint64 `json:"lamports" binding:"required,min=1"`
}

// DepositToVault moves lamports from the operator wallet into the vault PDA
func DepositToVault(c *gin.Context) {
	var request DepositRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var vaultConfig models.VaultConfig
	if err := dbconfig.DB.Where("mint = ?", request.Mint).First(&vaultConfig).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vault config not found for mint"})
		return
	}
	if !vaultConfig.Initialized {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vault is not initialized"})
		return
	}

	client, err := OperatorClient()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	mint := solana.MustPublicKeyFromBase58(request.Mint)
	sig, err := client.Deposit(ctx, mint, request.Lamports)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to deposit: %v", err)})
		return
	}

	record := models.VaultTransferRecord{
		VaultConfigID: vaultConfig.ID,
		Kind:          models.TransferKindDeposit,
		Lamports:      request.Lamports,
		Destination:   vaultConfig.VaultAddress,
		Signature:     sig,
	}
	if err := dbconfig.DB.Create(&record).Error; err != nil {
		log.Errorf("Failed to record deposit %s: %v", sig, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Deposit submitted",
		"signature": sig,
	})
}

// BatchDepositRequest deposits from multiple funding wallets at once. Each
// wallet must have a keystore entry decryptable with ENCRYPTPASSWORD.
type BatchDepositRequest struct {
	Mint    string            `json:"mint" binding:"required"`
	Amounts map[string]uint64 `json:"amounts" binding:"required"`
	RPS     int               `json:"rps"`
}

// BatchDepositToVault deposits into the vault from multiple funding wallets
func BatchDepositToVault(c *gin.Context) {
	var request BatchDepositRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var vaultConfig models.VaultConfig
	if err := dbconfig.DB.Where("mint = ?", request.Mint).First(&vaultConfig).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vault config not found for mint"})
		return
	}
	if !vaultConfig.Initialized {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vault is not initialized"})
		return
	}

	password := os.Getenv("ENCRYPTPASSWORD")
	if password == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ENCRYPTPASSWORD environment variable is not set"})
		return
	}

	km := bvsolana.NewKeyManager()
	keys := make(map[string]*solana.PrivateKey, len(request.Amounts))
	for addr := range request.Amounts {
		key, err := km.LoadOperatorKey(addr, password)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("No keystore entry for %s: %v", addr, err)})
			return
		}
		k := key
		keys[addr] = &k
	}

	rps := request.RPS
	if rps <= 0 {
		rps = 5
	}

	client, err := newRPCClient()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results, err := bvsolana.MultiDepositToVault(client, request.Mint, request.Amounts, rps, keys)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Batch deposit failed: %v", err)})
		return
	}

	succeeded := 0
	response := make([]gin.H, 0, len(results))
	for _, res := range results {
		item := gin.H{
			"account": res.AccountAddress,
			"success": res.Success,
		}
		if res.Success {
			succeeded++
			item["signature"] = res.Signature
			record := models.VaultTransferRecord{
				VaultConfigID: vaultConfig.ID,
				Kind:          models.TransferKindDeposit,
				Lamports:      request.Amounts[res.AccountAddress],
				Destination:   vaultConfig.VaultAddress,
				Signature:     res.Signature,
			}
			if err := dbconfig.DB.Create(&record).Error; err != nil {
				log.Errorf("Failed to record batch deposit %s: %v", res.Signature, err)
			}
		} else if res.Error != nil {
			item["error"] = res.Error.Error()
		}
		response = append(response, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"succeeded": succeeded,
		"total":     len(results),
		"results":   response,
	})
}

// UnlockRequest represents the request body for releasing the timelock
type UnlockRequest struct {
	Mint        string `json:"mint" binding:"required"`
	Destination string `json:"destination" binding:"required"`
}

// UnlockVault drains the matured timelock token account into the destination
func UnlockVault(c *gin.Context) {
	var request UnlockRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var vaultConfig models.VaultConfig
	if err := dbconfig.DB.Where("mint = ?", request.Mint).First(&vaultConfig).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vault config not found for mint"})
		return
	}

	destination, err := solana.PublicKeyFromBase58(request.Destination)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid destination address: %v", err)})
		return
	}

	now := time.Now().Unix()
	if now < vaultConfig.TimelockUnlockTs {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":              "Timelock has not matured yet",
			"timelock_unlock_ts": vaultConfig.TimelockUnlockTs,
			"seconds_remaining":  vaultConfig.TimelockUnlockTs - now,
		})
		return
	}

	client, err := OperatorClient()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	mint := solana.MustPublicKeyFromBase58(request.Mint)

	// The program transfers into the destination ATA, which must exist
	km := bvsolana.NewKeyManager()
	payer, err := km.LoadOperatorKey(os.Getenv("OPERATOR_ADDRESS"), os.Getenv("ENCRYPTPASSWORD"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to load operator key: %v", err)})
		return
	}
	if _, err := bvsolana.EnsureAssociatedTokenAccount(client.RPC(), &payer, destination, mint); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to ensure destination token account: %v", err)})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	sig, err := client.Unlock(ctx, mint, destination)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to unlock: %v", err)})
		return
	}

	record := models.VaultTransferRecord{
		VaultConfigID: vaultConfig.ID,
		Kind:          models.TransferKindUnlock,
		Destination:   request.Destination,
		Signature:     sig,
	}
	if err := dbconfig.DB.Create(&record).Error; err != nil {
		log.Errorf("Failed to record unlock %s: %v", sig, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Unlock submitted",
		"signature": sig,
	})
}

// CrankTriggerRequest represents the request body for triggering a crank
type CrankTriggerRequest struct {
	Mint string `json:"mint" binding:"required"`
}

// TriggerCrank queues a crank for the worker. The worker re-checks the
// interval and profit gates before submitting anything.
func TriggerCrank(c *gin.Context) {
	var request CrankTriggerRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var vaultConfig models.VaultConfig
	if err := dbconfig.DB.Where("mint = ?", request.Mint).First(&vaultConfig).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vault config not found for mint"})
		return
	}
	if !vaultConfig.Initialized {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vault is not initialized"})
		return
	}

	if dbconfig.RabbitMQ == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "RabbitMQ not initialized"})
		return
	}

	go func() {
		publisher, err := dbconfig.NewPublisher()
		if err != nil {
			log.Errorf("Failed to create RabbitMQ publisher: %v", err)
			return
		}
		defer publisher.Close()

		msg := cranker.CrankRequest{Mint: request.Mint, Force: true}
		if err := publisher.Publish(dbconfig.QueueVaultCrank, msg); err != nil {
			log.Errorf("Failed to publish crank request: %v", err)
		} else {
			log.Infof("Published crank request for mint: %s", request.Mint)
		}
	}()

	c.JSON(http.StatusOK, gin.H{
		"message": "Crank request submitted",
		"mint":    request.Mint,
	})
}

// GetVaultState returns the decoded on-chain state account for a mint
func GetVaultState(c *gin.Context) {
	mintStr := c.Param("mint")
	mint, err := solana.PublicKeyFromBase58(mintStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid mint address: %v", err)})
		return
	}

	client, err := newRPCClient()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	state, err := vaultprogram.FetchStateAccount(ctx, client, mint)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Failed to fetch state account: %v", err)})
		return
	}

	now := time.Now().Unix()
	c.JSON(http.StatusOK, gin.H{
		"state":              state,
		"crank_ready":        now-state.LastCrankTs >= vault.CrankIntervalSecs,
		"timelock_matured":   now >= state.TimelockUnlockTs,
		"next_crank_at":      state.LastCrankTs + vault.CrankIntervalSecs,
		"timelock_unlock_at": state.TimelockUnlockTs,
	})
}

// GetVaultStat returns the live balances of a vault: vault lamports, pending
// profit over the baseline, token balances, and the token price in SOL
func GetVaultStat(c *gin.Context) {
	mintStr := c.Param("mint")
	mint, err := solana.PublicKeyFromBase58(mintStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid mint address: %v", err)})
		return
	}

	var vaultConfig models.VaultConfig
	if err := dbconfig.DB.Where("mint = ?", mintStr).First(&vaultConfig).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vault config not found for mint"})
		return
	}

	client, err := newRPCClient()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	addrs, err := vaultprogram.FindVaultAddresses(mint)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	vaultLamports, _, err := bvsolana.GetSolBalance(client, addrs.Vault.Address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to get vault balance: %v", err)})
		return
	}

	profit := uint64(0)
	if vaultLamports > vaultConfig.StartingBalanceLamports {
		profit = vaultLamports - vaultConfig.StartingBalanceLamports
	}

	vaultTokenBalance, _, err := bvsolana.GetTokenBalance(dbconfig.DB, client, addrs.State.Address, mintStr)
	if err != nil {
		log.Errorf("Failed to get vault token balance: %v", err)
	}
	timelockBalance, _, err := bvsolana.GetTokenBalance(dbconfig.DB, client, addrs.TimelockAuthority.Address, mintStr)
	if err != nil {
		log.Errorf("Failed to get timelock token balance: %v", err)
	}

	price, cached, err := utils.GetTokenPrice(mintStr)
	if err != nil {
		log.Warnf("Failed to get token price for %s: %v", mintStr, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"mint":                      mintStr,
		"vault_lamports":            vaultLamports,
		"starting_balance_lamports": vaultConfig.StartingBalanceLamports,
		"pending_profit_lamports":   profit,
		"vault_token_balance":       vaultTokenBalance,
		"timelock_token_balance":    timelockBalance,
		"token_price_sol":           price,
		"price_cached":              cached,
	})
}

// ListCrankRecords returns crank attempts, optionally filtered by vault
func ListCrankRecords(c *gin.Context) {
	query := dbconfig.DB.Order("id DESC").Limit(200)
	if idStr := c.Query("vault_config_id"); idStr != "" {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vault_config_id"})
			return
		}
		query = query.Where("vault_config_id = ?", id)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var records []models.CrankRecord
	if err := query.Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

// ListTransferRecords returns deposit and unlock records, optionally filtered by vault
func ListTransferRecords(c *gin.Context) {
	query := dbconfig.DB.Order("id DESC").Limit(200)
	if idStr := c.Query("vault_config_id"); idStr != "" {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vault_config_id"})
			return
		}
		query = query.Where("vault_config_id = ?", id)
	}
	if kind := c.Query("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var records []models.VaultTransferRecord
	if err := query.Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}
