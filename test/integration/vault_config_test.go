package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type VaultConfig struct {
	ID                      uint   `json:"id"`
	Name                    string `json:"name"`
	Mint                    string `json:"mint"`
	BurnAddress             string `json:"burn_address"`
	StartingBalanceLamports uint64 `json:"starting_balance_lamports"`
	StateAddress            string `json:"state_address"`
	VaultAddress            string `json:"vault_address"`
	TimelockAuthority       string `json:"timelock_authority"`
	SlippageBps             int    `json:"slippage_bps"`
	Enabled                 bool   `json:"enabled"`
	Initialized             bool   `json:"initialized"`
}

func TestVaultConfigAPI(t *testing.T) {
	var createdID uint

	// USDC mint and the incinerator, both always valid base58
	testMint := "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	testBurn := "1nc1nerator11111111111111111111111111111111"

	// Test Case 1: Create Vault Config derives the program addresses
	t.Run("Create Vault Config", func(t *testing.T) {
		config := map[string]interface{}{
			"name":                      "integration-test-vault",
			"mint":                      testMint,
			"burn_address":              testBurn,
			"starting_balance_lamports": uint64(1_000_000_000),
			"enabled":                   false,
		}

		payload, err := json.Marshal(config)
		require.NoError(t, err)

		resp, err := http.Post(BaseURL+"/vault-config", "application/json", bytes.NewBuffer(payload))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var response VaultConfig
		err = json.NewDecoder(resp.Body).Decode(&response)
		require.NoError(t, err)
		assert.NotZero(t, response.ID)
		assert.Equal(t, testMint, response.Mint)
		assert.NotEmpty(t, response.StateAddress)
		assert.NotEmpty(t, response.VaultAddress)
		assert.NotEmpty(t, response.TimelockAuthority)
		assert.Equal(t, 100, response.SlippageBps) // default
		assert.False(t, response.Initialized)

		createdID = response.ID
	})

	// Test Case 2: Invalid mint is rejected
	t.Run("Create Vault Config Invalid Mint", func(t *testing.T) {
		config := map[string]interface{}{
			"name":         "bad-vault",
			"mint":         "not-a-base58-address",
			"burn_address": testBurn,
		}

		payload, err := json.Marshal(config)
		require.NoError(t, err)

		resp, err := http.Post(BaseURL+"/vault-config", "application/json", bytes.NewBuffer(payload))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	// Test Case 3: Update only touches mutable fields
	t.Run("Update Vault Config", func(t *testing.T) {
		update := map[string]interface{}{
			"slippage_bps": 250,
			"enabled":      true,
		}

		payload, err := json.Marshal(update)
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/vault-config/%d", BaseURL, createdID), bytes.NewBuffer(payload))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var response VaultConfig
		err = json.NewDecoder(resp.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, 250, response.SlippageBps)
		assert.True(t, response.Enabled)
		assert.Equal(t, testMint, response.Mint) // immutable
	})

	// Test Case 4: Crank trigger on an uninitialized vault is rejected
	t.Run("Trigger Crank Uninitialized", func(t *testing.T) {
		payload, err := json.Marshal(map[string]string{"mint": testMint})
		require.NoError(t, err)

		resp, err := http.Post(BaseURL+"/vault/crank", "application/json", bytes.NewBuffer(payload))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	// Test Case 5: Delete Vault Config
	t.Run("Delete Vault Config", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/vault-config/%d", BaseURL, createdID), nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
