package handlers

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go/rpc"

	"burnvault/internal/models"
	dbconfig "burnvault/pkg/config"
	bvsolana "burnvault/pkg/solana"
	"burnvault/pkg/solana/vaultprogram"
)

// ActiveRPCEndpoint returns the active RPC endpoint from the database,
// falling back to DEFAULT_SOLANA_RPC
func ActiveRPCEndpoint() (string, error) {
	var rpcConfig models.RpcConfig
	if err := dbconfig.DB.Where("is_active = ?", true).First(&rpcConfig).Error; err == nil {
		return rpcConfig.Endpoint, nil
	}

	endpoint := os.Getenv("DEFAULT_SOLANA_RPC")
	if endpoint == "" {
		return "", fmt.Errorf("no active RPC config and DEFAULT_SOLANA_RPC not set")
	}
	return endpoint, nil
}

// newRPCClient builds an RPC client on the active endpoint
func newRPCClient() (*rpc.Client, error) {
	endpoint, err := ActiveRPCEndpoint()
	if err != nil {
		return nil, err
	}
	return rpc.New(endpoint), nil
}

// OperatorClient loads the operator key from the keystore and wraps it in a
// program client on the active RPC endpoint. OPERATOR_ADDRESS names the
// keystore entry; ENCRYPTPASSWORD decrypts it.
func OperatorClient() (*vaultprogram.Client, error) {
	address := os.Getenv("OPERATOR_ADDRESS")
	if address == "" {
		return nil, fmt.Errorf("OPERATOR_ADDRESS environment variable is not set")
	}
	password := os.Getenv("ENCRYPTPASSWORD")
	if password == "" {
		return nil, fmt.Errorf("ENCRYPTPASSWORD environment variable is not set")
	}

	km := bvsolana.NewKeyManager()
	payer, err := km.LoadOperatorKey(address, password)
	if err != nil {
		return nil, fmt.Errorf("failed to load operator key: %w", err)
	}

	endpoint, err := ActiveRPCEndpoint()
	if err != nil {
		return nil, err
	}
	return vaultprogram.NewClient(endpoint, payer), nil
}
