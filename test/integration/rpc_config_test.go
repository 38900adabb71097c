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

type RPCConfig struct {
	ID         uint   `json:"id"`
	Label      string `json:"label"`
	Endpoint   string `json:"endpoint"`
	WsEndpoint string `json:"ws_endpoint"`
	IsActive   bool   `json:"is_active"`
}

func TestRPCConfigAPI(t *testing.T) {
	var createdID uint

	// Test Case 1: Create RPC Config
	t.Run("Create RPC Config", func(t *testing.T) {
		config := RPCConfig{
			Label:      "integration-test",
			Endpoint:   "https://api.mainnet-beta.solana.com",
			WsEndpoint: "wss://api.mainnet-beta.solana.com",
			IsActive:   false,
		}

		payload, err := json.Marshal(config)
		require.NoError(t, err)

		resp, err := http.Post(BaseURL+"/rpc-config", "application/json", bytes.NewBuffer(payload))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var response RPCConfig
		err = json.NewDecoder(resp.Body).Decode(&response)
		require.NoError(t, err)
		assert.NotZero(t, response.ID)
		assert.Equal(t, config.Endpoint, response.Endpoint)
		assert.Equal(t, config.WsEndpoint, response.WsEndpoint)
		assert.Equal(t, config.IsActive, response.IsActive)

		createdID = response.ID
	})

	// Test Case 2: Get RPC Config
	t.Run("Get RPC Config", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/rpc-config/%d", BaseURL, createdID))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var config RPCConfig
		err = json.NewDecoder(resp.Body).Decode(&config)
		require.NoError(t, err)
		assert.Equal(t, "https://api.mainnet-beta.solana.com", config.Endpoint)
		assert.Equal(t, "integration-test", config.Label)
	})

	// Test Case 3: Update RPC Config
	t.Run("Update RPC Config", func(t *testing.T) {
		config := RPCConfig{
			Label:      "integration-test",
			Endpoint:   "https://solana-rpc.publicnode.com",
			WsEndpoint: "wss://solana-rpc.publicnode.com",
			IsActive:   false,
		}

		payload, err := json.Marshal(config)
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/rpc-config/%d", BaseURL, createdID), bytes.NewBuffer(payload))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var response RPCConfig
		err = json.NewDecoder(resp.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, config.Endpoint, response.Endpoint)
	})

	// Test Case 4: List RPC Configs
	t.Run("List RPC Configs", func(t *testing.T) {
		resp, err := http.Get(BaseURL + "/rpc-config")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var configs []RPCConfig
		err = json.NewDecoder(resp.Body).Decode(&configs)
		require.NoError(t, err)
		assert.NotEmpty(t, configs)
	})

	// Test Case 5: Delete RPC Config
	t.Run("Delete RPC Config", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/rpc-config/%d", BaseURL, createdID), nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
