package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	// Connection states
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"

	// Reconnect settings
	maxReconnectAttempts = 10
	reconnectDelay       = 5 * time.Second

	// Error threshold
	maxErrorCount = 6 // Maximum consecutive errors before stopping monitoring

	// Transaction retry settings
	maxTransactionRetries  = 3
	initialRetryDelay      = 500 * time.Millisecond
	maxRetryDelay          = 5 * time.Second
	retryBackoffMultiplier = 2.0
)

// VaultNotification is delivered for every transaction that touches a
// monitored vault state account
type VaultNotification struct {
	StateAddress string `json:"state_address"`
	Signature    string `json:"signature"`
	Slot         uint64 `json:"slot"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	IsCrank      bool   `json:"is_crank"`
}

// VaultCallback handles notifications for a monitored vault
type VaultCallback func(n *VaultNotification)

// MonitorRequest is the queue message controlling which vault state accounts
// the worker watches
type MonitorRequest struct {
	Action       string `json:"action"` // "start" or "stop"
	StateAddress string `json:"state_address"`
}

// vaultConnection is one WebSocket subscription on a vault state address
type vaultConnection struct {
	StateAddress   string
	Conn           *websocket.Conn
	RPCClient      *rpc.Client
	Status         string
	LastMessage    time.Time
	ReconnectCh    chan bool
	StopCh         chan bool
	SubscriptionID interface{}
	Callback       VaultCallback
	mu             sync.RWMutex
	wsEndpoint     string
	errorCount     int
}

// VaultMonitor watches vault state accounts over logsSubscribe so crank and
// unlock transactions can be confirmed without polling
type VaultMonitor struct {
	connections sync.Map // map[string]*vaultConnection
	wsEndpoint  string
	rpcEndpoint string
}

// NewVaultMonitor creates a vault monitor using the configured endpoints
func NewVaultMonitor() (*VaultMonitor, error) {
	rpcEndpoint := os.Getenv("DEFAULT_SOLANA_RPC")
	if rpcEndpoint == "" {
		rpcEndpoint = rpc.MainNetBeta_RPC
	}

	wsEndpoint := os.Getenv("DEFAULT_SOLANA_WSS")
	if wsEndpoint == "" {
		wsEndpoint = rpc.MainNetBeta_WS
	}

	return &VaultMonitor{
		wsEndpoint:  wsEndpoint,
		rpcEndpoint: rpcEndpoint,
	}, nil
}

// StartMonitoring subscribes to logs mentioning the vault state address
func (m *VaultMonitor) StartMonitoring(stateAddress string, callback VaultCallback) error {
	if _, exists := m.connections.Load(stateAddress); exists {
		log.WithFields(log.Fields{
			"state_address": stateAddress,
		}).Info("Connection already exists, skipping")
		return nil
	}

	if _, err := solana.PublicKeyFromBase58(stateAddress); err != nil {
		return fmt.Errorf("invalid state address: %w", err)
	}

	conn := &vaultConnection{
		StateAddress: stateAddress,
		Status:       StateDisconnected,
		ReconnectCh:  make(chan bool, 1),
		StopCh:       make(chan bool, 1),
		Callback:     callback,
		wsEndpoint:   m.wsEndpoint,
		RPCClient:    rpc.New(m.rpcEndpoint),
	}

	m.connections.Store(stateAddress, conn)

	go m.connectAndMonitor(conn)

	log.WithFields(log.Fields{
		"state_address": stateAddress,
	}).Info("Vault monitor created")
	return nil
}

// StopMonitoring stops monitoring a vault state address
func (m *VaultMonitor) StopMonitoring(stateAddress string) error {
	value, exists := m.connections.Load(stateAddress)
	if !exists {
		return fmt.Errorf("connection for address %s not found", stateAddress)
	}

	conn := value.(*vaultConnection)
	close(conn.StopCh)
	m.connections.Delete(stateAddress)
	log.WithFields(log.Fields{
		"state_address": stateAddress,
	}).Info("Vault monitor stopped")

	return nil
}

// incrementErrorCount increments the error count and reports whether the
// threshold has been reached
func (m *VaultMonitor) incrementErrorCount(conn *vaultConnection) bool {
	conn.mu.Lock()
	defer conn.mu.Unlock()

	conn.errorCount++
	log.WithFields(log.Fields{
		"state_address": conn.StateAddress,
		"error_count":   conn.errorCount,
		"max_errors":    maxErrorCount,
	}).Warn("Error count increased")

	return conn.errorCount >= maxErrorCount
}

// resetErrorCount resets the error count (called on successful operations)
func (m *VaultMonitor) resetErrorCount(conn *vaultConnection) {
	conn.mu.Lock()
	defer conn.mu.Unlock()

	if conn.errorCount > 0 {
		conn.errorCount = 0
	}
}

// connectAndMonitor handles the WebSocket connection and monitoring
func (m *VaultMonitor) connectAndMonitor(conn *vaultConnection) {
	reconnectAttempts := 0

	for {
		select {
		case <-conn.StopCh:
			log.WithFields(log.Fields{
				"state_address": conn.StateAddress,
			}).Info("Stopping monitoring")
			if conn.Conn != nil {
				conn.Conn.Close()
			}
			return
		default:
			conn.mu.Lock()
			conn.Status = StateConnecting
			conn.mu.Unlock()

			c, _, err := websocket.DefaultDialer.Dial(conn.wsEndpoint, nil)
			if err != nil {
				log.WithFields(log.Fields{
					"state_address": conn.StateAddress,
					"error":         err.Error(),
				}).Error("Failed to connect to Solana WebSocket")
				reconnectAttempts++

				if m.incrementErrorCount(conn) {
					m.StopMonitoring(conn.StateAddress)
					return
				}

				if reconnectAttempts >= maxReconnectAttempts {
					log.WithFields(log.Fields{
						"state_address":          conn.StateAddress,
						"reconnect_attempts":     reconnectAttempts,
						"max_reconnect_attempts": maxReconnectAttempts,
					}).Error("Max reconnect attempts reached, stopping")
					m.StopMonitoring(conn.StateAddress)
					return
				}
				time.Sleep(reconnectDelay)
				continue
			}

			conn.mu.Lock()
			conn.Conn = c
			conn.Status = StateConnected
			conn.mu.Unlock()

			reconnectAttempts = 0
			m.resetErrorCount(conn)
			log.WithFields(log.Fields{
				"state_address": conn.StateAddress,
			}).Info("Connected to Solana WebSocket")

			subscribeMsg := map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      1,
				"method":  "logsSubscribe",
				"params": []interface{}{
					map[string]interface{}{
						"mentions": []string{conn.StateAddress},
					},
					map[string]interface{}{
						"commitment": "confirmed",
					},
				},
			}

			if err := c.WriteJSON(subscribeMsg); err != nil {
				log.WithFields(log.Fields{
					"state_address": conn.StateAddress,
					"error":         err.Error(),
				}).Error("Failed to send subscription message")
				c.Close()
				if m.incrementErrorCount(conn) {
					m.StopMonitoring(conn.StateAddress)
					return
				}
				time.Sleep(reconnectDelay)
				continue
			}

			go m.readMessages(conn)

			select {
			case <-conn.ReconnectCh:
				log.WithFields(log.Fields{
					"state_address": conn.StateAddress,
				}).Info("Reconnect requested")
				c.Close()
				time.Sleep(reconnectDelay)
			case <-conn.StopCh:
				c.Close()
				return
			}
		}
	}
}

// readMessages reads messages from WebSocket connection
func (m *VaultMonitor) readMessages(conn *vaultConnection) {
	defer func() {
		conn.mu.Lock()
		if conn.Conn != nil {
			conn.Conn.Close()
		}
		conn.Status = StateDisconnected
		conn.mu.Unlock()

		// Trigger reconnect
		select {
		case conn.ReconnectCh <- true:
		default:
		}
	}()

	for {
		conn.mu.RLock()
		c := conn.Conn
		conn.mu.RUnlock()

		if c == nil {
			return
		}

		_, message, err := c.ReadMessage()
		if err != nil {
			log.WithFields(log.Fields{
				"state_address": conn.StateAddress,
				"error":         err.Error(),
			}).Error("Error reading message")
			if m.incrementErrorCount(conn) {
				m.StopMonitoring(conn.StateAddress)
			}
			return
		}

		m.resetErrorCount(conn)

		conn.mu.Lock()
		conn.LastMessage = time.Now()
		conn.mu.Unlock()

		var msg map[string]interface{}
		if err := json.Unmarshal(message, &msg); err != nil {
			log.WithFields(log.Fields{
				"state_address": conn.StateAddress,
				"error":         err.Error(),
			}).Error("Failed to unmarshal message")
			if m.incrementErrorCount(conn) {
				m.StopMonitoring(conn.StateAddress)
				return
			}
			continue
		}

		// Subscription confirmation: {"jsonrpc":"2.0","result":<id>,"id":1}
		if _, hasID := msg["id"]; hasID {
			if result, ok := msg["result"].(float64); ok {
				conn.mu.Lock()
				conn.SubscriptionID = result
				conn.mu.Unlock()
				log.WithFields(log.Fields{
					"state_address":   conn.StateAddress,
					"subscription_id": result,
				}).Info("Subscription confirmed")
				continue
			}
		}

		// Log notification: {"method":"logsNotification","params":{"result":{...}}}
		if method, ok := msg["method"].(string); ok && method == "logsNotification" {
			params, ok := msg["params"].(map[string]interface{})
			if !ok {
				continue
			}
			result, ok := params["result"].(map[string]interface{})
			if !ok {
				continue
			}

			var txError string
			value, ok := result["value"].(map[string]interface{})
			if !ok {
				continue
			}
			if errVal, hasErr := value["err"]; hasErr && errVal != nil {
				if errStr, ok := errVal.(string); ok {
					txError = errStr
				} else if errBytes, err := json.Marshal(errVal); err == nil {
					txError = string(errBytes)
				} else {
					txError = fmt.Sprintf("%v", errVal)
				}
			}

			signature, ok := value["signature"].(string)
			if !ok {
				continue
			}

			go m.processNotification(conn, signature, txError)
			continue
		}

		if wsErr, ok := msg["error"].(map[string]interface{}); ok {
			log.WithFields(log.Fields{
				"state_address": conn.StateAddress,
				"error":         wsErr,
			}).Error("WebSocket error")
			if m.incrementErrorCount(conn) {
				m.StopMonitoring(conn.StateAddress)
				return
			}
		}
	}
}

// getTransactionWithRetry fetches a transaction with exponential backoff,
// handling the "not found" window right after a log notification
func (m *VaultMonitor) getTransactionWithRetry(ctx context.Context, conn *vaultConnection, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	var lastErr error
	delay := initialRetryDelay
	maxVer := rpc.MaxSupportedTransactionVersion1

	for attempt := 0; attempt <= maxTransactionRetries; attempt++ {
		tx, err := conn.RPCClient.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			MaxSupportedTransactionVersion: &maxVer,
		})
		if err == nil {
			return tx, nil
		}

		lastErr = err
		if !strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, err
		}
		if attempt >= maxTransactionRetries {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * retryBackoffMultiplier)
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}

	return nil, lastErr
}

// processNotification resolves a log notification into a VaultNotification
// and hands it to the callback
func (m *VaultMonitor) processNotification(conn *vaultConnection, signature string, txError string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		log.WithFields(log.Fields{
			"signature": signature,
			"error":     err.Error(),
		}).Error("Invalid signature format")
		return
	}

	tx, err := m.getTransactionWithRetry(ctx, conn, sig)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			log.WithFields(log.Fields{
				"signature": signature,
			}).Debug("Transaction not found after retries (may be pending or dropped)")
			return
		}
		log.WithFields(log.Fields{
			"signature": signature,
			"error":     err.Error(),
		}).Error("Failed to get transaction after retries")
		if m.incrementErrorCount(conn) {
			m.StopMonitoring(conn.StateAddress)
		}
		return
	}
	if tx == nil {
		return
	}

	isSuccess := txError == ""
	if tx.Meta != nil && tx.Meta.Err != nil {
		isSuccess = false
		if txError == "" {
			if errBytes, err := json.Marshal(tx.Meta.Err); err == nil {
				txError = string(errBytes)
			} else {
				txError = fmt.Sprintf("%v", tx.Meta.Err)
			}
		}
	}

	notification := &VaultNotification{
		StateAddress: conn.StateAddress,
		Signature:    signature,
		Slot:         tx.Slot,
		Success:      isSuccess,
		Error:        txError,
		IsCrank:      hasBuybackEvent(tx.Meta),
	}

	if conn.Callback != nil {
		conn.Callback(notification)
	}
}

// hasBuybackEvent reports whether the transaction emitted program data,
// which cranks do and plain deposits do not
func hasBuybackEvent(meta *rpc.TransactionMeta) bool {
	if meta == nil {
		return false
	}
	for _, line := range meta.LogMessages {
		if strings.HasPrefix(line, "Program data:") {
			return true
		}
	}
	return false
}

// GetConnectionStatus returns the status of a connection
func (m *VaultMonitor) GetConnectionStatus(stateAddress string) (string, error) {
	value, exists := m.connections.Load(stateAddress)
	if !exists {
		return StateDisconnected, fmt.Errorf("connection not found")
	}

	conn := value.(*vaultConnection)
	conn.mu.RLock()
	defer conn.mu.RUnlock()
	return conn.Status, nil
}

// GetAllConnections returns all active connections
func (m *VaultMonitor) GetAllConnections() map[string]string {
	result := make(map[string]string)
	m.connections.Range(func(key, value interface{}) bool {
		address := key.(string)
		conn := value.(*vaultConnection)
		conn.mu.RLock()
		status := conn.Status
		conn.mu.RUnlock()
		result[address] = status
		return true
	})
	return result
}
