package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"burnvault/internal/models"
	dbconfig "burnvault/pkg/config"
	bvsolana "burnvault/pkg/solana"
	"burnvault/pkg/utils"
)

// GetJupiterQuoteRequest represents the request body for getting a swap quote
type GetJupiterQuoteRequest struct {
	InputMint                  string `json:"inputMint" binding:"required"`
	OutputMint                 string `json:"outputMint" binding:"required"`
	Amount                     string `json:"amount" binding:"required"`
	SlippageBps                int    `json:"slippageBps" binding:"required"`
	RestrictIntermediateTokens *bool  `json:"restrictIntermediateTokens"`
}

// GetJupiterQuote handles requests to get a Jupiter swap quote
func GetJupiterQuote(c *gin.Context) {
	var req GetJupiterQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	restrictIntermediateTokens := true
	if req.RestrictIntermediateTokens != nil {
		restrictIntermediateTokens = *req.RestrictIntermediateTokens
	}

	quote, err := utils.GetSwapQuote(
		req.InputMint,
		req.OutputMint,
		req.Amount,
		req.SlippageBps,
		restrictIntermediateTokens,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to get Jupiter quote: %v", err)})
		return
	}

	c.JSON(http.StatusOK, quote)
}

// GetTokenPriceRequest represents the request body for getting token price
type GetTokenPriceRequest struct {
	Mint string `json:"mint" binding:"required"`
}

// GetTokenPrice handles requests to get token price from Jupiter
func GetTokenPrice(c *gin.Context) {
	var req GetTokenPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price, useCached, err := utils.GetTokenPrice(req.Mint)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to get token price: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"price":      price,
		"use_cached": useCached,
	})
}

// GetAccountInfoRequest represents the request body for getting account information
type GetAccountInfoRequest struct {
	Address string `json:"address" binding:"required"`
}

// TokenBalanceItem represents a simple token balance item
type TokenBalanceItem struct {
	Mint    string `json:"mint"`
	Balance uint64 `json:"balance"`
}

// GetAccountInfoResponse represents the response for account information
type GetAccountInfoResponse struct {
	Address            string             `json:"address"`
	SolBalance         uint64             `json:"sol_balance"`
	SolBalanceReadable float64            `json:"sol_balance_readable"`
	TokenBalances      []TokenBalanceItem `json:"token_balances"`
	LastUpdated        string             `json:"last_updated"`
}

// GetAccountInfo handles requests to get account information including SOL and
// balances of every configured vault mint
func GetAccountInfo(c *gin.Context) {
	var req GetAccountInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ownerPubkey, err := solana.PublicKeyFromBase58(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address format"})
		return
	}

	client, err := newRPCClient()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	solBalance, solUpdateTime, err := bvsolana.GetSolBalance(client, ownerPubkey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to get SOL balance: %v", err)})
		return
	}

	var vaultConfigs []models.VaultConfig
	if err := dbconfig.DB.Find(&vaultConfigs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to get vault configs: %v", err)})
		return
	}

	var tokenBalances []TokenBalanceItem
	for _, vaultConfig := range vaultConfigs {
		balance, _, err := bvsolana.GetTokenBalance(dbconfig.DB, client, ownerPubkey, vaultConfig.Mint)
		if err != nil {
			log.Warnf("Failed to get balance for mint %s: %v", vaultConfig.Mint, err)
			continue
		}
		if balance > 0 {
			tokenBalances = append(tokenBalances, TokenBalanceItem{
				Mint:    vaultConfig.Mint,
				Balance: balance,
			})
		}
	}

	c.JSON(http.StatusOK, GetAccountInfoResponse{
		Address:            req.Address,
		SolBalance:         solBalance,
		SolBalanceReadable: float64(solBalance) / 1e9,
		TokenBalances:      tokenBalances,
		LastUpdated:        solUpdateTime.Format("2006-01-02 15:04:05"),
	})
}

// GetTransactionStatusRequest represents the request body for checking a transaction
type GetTransactionStatusRequest struct {
	Signature string `json:"signature" binding:"required"`
}

// GetTransactionStatus handles requests to check a transaction's confirmation status
func GetTransactionStatus(c *gin.Context) {
	var req GetTransactionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client, err := newRPCClient()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status, err := bvsolana.CheckTransactionStatus(client, req.Signature)
	if err != nil && status != "error" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := gin.H{
		"signature": req.Signature,
		"status":    status,
	}
	if err != nil {
		response["error"] = err.Error()
	}
	c.JSON(http.StatusOK, response)
}

// RPCStatusRequest represents the request body for checking RPC status
type RPCStatusRequest struct {
	RPCList []string `json:"rpc-list" binding:"required"`
}

// GetRPCStatusHandler handles requests to check RPC endpoint status
func GetRPCStatusHandler(c *gin.Context) {
	var request RPCStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Limit the number of RPC endpoints to check to prevent abuse
	if len(request.RPCList) > 20 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Maximum 20 RPC endpoints allowed per request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	results := bvsolana.CheckRPCListAsync(ctx, request.RPCList, 1*time.Second)

	response := make([]map[string]interface{}, len(results))
	for i, res := range results {
		resultMap := map[string]interface{}{
			"url":     res.URL,
			"ok":      res.OK,
			"latency": res.Latency.String(),
		}
		if res.Error != "" {
			resultMap["error"] = res.Error
		}
		response[i] = resultMap
	}

	c.JSON(http.StatusOK, gin.H{
		"results": response,
		"count":   len(results),
	})
}

// VaultMonitorRequest represents the request body for controlling state monitoring
type VaultMonitorRequest struct {
	Action       string `json:"action" binding:"required"`        // "start" or "stop"
	StateAddress string `json:"state_address" binding:"required"` // Vault state account to watch
}

// ControlVaultMonitor handles vault monitoring control requests
func ControlVaultMonitor(c *gin.Context) {
	var request VaultMonitorRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if request.Action != "start" && request.Action != "stop" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be 'start' or 'stop'"})
		return
	}

	if dbconfig.RabbitMQ == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "RabbitMQ not initialized"})
		return
	}

	// Handle in goroutine to avoid blocking
	go func() {
		publisher, err := dbconfig.NewPublisher()
		if err != nil {
			log.Errorf("Failed to create RabbitMQ publisher: %v", err)
			return
		}
		defer publisher.Close()

		msg := bvsolana.MonitorRequest{
			Action:       request.Action,
			StateAddress: request.StateAddress,
		}
		if err := publisher.Publish(dbconfig.QueueVaultMonitor, msg); err != nil {
			log.Errorf("Failed to publish monitoring message: %v", err)
		} else {
			log.Infof("Published %s monitoring task for state: %s", request.Action, request.StateAddress)
		}
	}()

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Vault monitoring %s request submitted successfully", request.Action),
		"action":  request.Action,
		"state":   request.StateAddress,
	})
}
