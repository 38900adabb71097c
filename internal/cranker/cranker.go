package cranker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"

	"burnvault/internal/models"
	"burnvault/internal/vault"
	dbconfig "burnvault/pkg/config"
	bvsolana "burnvault/pkg/solana"
	"burnvault/pkg/solana/vaultprogram"
	"burnvault/pkg/utils"
)

// crankFeeReserveLamports is left in the vault on every crank so the PDA
// stays rent exempt and can pay the wSOL account rent.
const crankFeeReserveLamports = 5_000_000

// CrankRequest is the queue message asking the worker to crank one vault.
// Force skips the interval gate but never the profit gate.
type CrankRequest struct {
	Mint  string `json:"mint"`
	Force bool   `json:"force"`
}

// CrankEvent is published to the events queue after a crank is submitted
type CrankEvent struct {
	Mint           string `json:"mint"`
	Signature      string `json:"signature"`
	ProfitLamports uint64 `json:"profit_lamports"`
	ExpectedOut    uint64 `json:"expected_out"`
	BurnAmount     uint64 `json:"burn_amount"`
	LockAmount     uint64 `json:"lock_amount"`
}

// activeEndpoint picks the RPC endpoint to use: the healthiest active row
// from the database, falling back to DEFAULT_SOLANA_RPC.
func activeEndpoint(ctx context.Context) (string, error) {
	var rpcConfigs []models.RpcConfig
	if err := dbconfig.DB.Where("is_active = ?", true).Find(&rpcConfigs).Error; err == nil && len(rpcConfigs) > 0 {
		endpoints := make([]string, 0, len(rpcConfigs))
		for _, cfg := range rpcConfigs {
			endpoints = append(endpoints, cfg.Endpoint)
		}
		endpoint, err := bvsolana.SelectHealthyEndpoint(ctx, endpoints, 2*time.Second)
		if err == nil {
			return endpoint, nil
		}
		log.Warnf("No healthy RPC endpoint among %d active configs: %v", len(rpcConfigs), err)
	}

	endpoint := os.Getenv("DEFAULT_SOLANA_RPC")
	if endpoint == "" {
		return "", fmt.Errorf("no active RPC config and DEFAULT_SOLANA_RPC not set")
	}
	return endpoint, nil
}

func operatorClient(endpoint string) (*vaultprogram.Client, error) {
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
	return vaultprogram.NewClient(endpoint, payer), nil
}

func recordSkip(cfg *models.VaultConfig, reason string) {
	record := models.CrankRecord{
		VaultConfigID: cfg.ID,
		Status:        models.CrankStatusSkipped,
		Reason:        reason,
	}
	if err := dbconfig.DB.Create(&record).Error; err != nil {
		log.Errorf("Failed to record skipped crank for vault %d: %v", cfg.ID, err)
	}
}

// ProcessCrank runs the full crank pipeline for one vault: gate checks, swap
// route lookup, transaction submission, bookkeeping, and event publishing.
func ProcessCrank(ctx context.Context, cfg *models.VaultConfig, force bool) error {
	endpoint, err := activeEndpoint(ctx)
	if err != nil {
		return err
	}

	client, err := operatorClient(endpoint)
	if err != nil {
		return err
	}

	mint := solana.MustPublicKeyFromBase58(cfg.Mint)

	state, err := vaultprogram.FetchStateAccount(ctx, client.RPC(), mint)
	if err != nil {
		return fmt.Errorf("failed to fetch state account: %w", err)
	}

	// The chain's last_crank_ts is the gate; the cached row can be stale
	now := time.Now().Unix()
	if !force && now-state.LastCrankTs < vault.CrankIntervalSecs {
		recordSkip(cfg, fmt.Sprintf("interval not elapsed: %ds since last crank", now-state.LastCrankTs))
		return nil
	}

	addrs, err := vaultprogram.FindVaultAddresses(mint)
	if err != nil {
		return err
	}

	vaultLamports, _, err := bvsolana.GetSolBalance(client.RPC(), addrs.Vault.Address)
	if err != nil {
		return fmt.Errorf("failed to get vault balance: %w", err)
	}

	baseline := state.StartingBalanceLamports + crankFeeReserveLamports
	if vaultLamports <= baseline {
		recordSkip(cfg, fmt.Sprintf("no profit: vault %d lamports, baseline %d", vaultLamports, baseline))
		return nil
	}
	profit := vaultLamports - baseline

	quote, err := utils.GetSwapQuote(
		solana.WrappedSol.String(),
		cfg.Mint,
		strconv.FormatUint(profit, 10),
		cfg.SlippageBps,
	)
	if err != nil {
		recordSkip(cfg, fmt.Sprintf("quote failed: %v", err))
		return fmt.Errorf("failed to get swap quote: %w", err)
	}

	route, err := utils.GetSwapInstructions(quote, addrs.Vault.Address.String())
	if err != nil {
		recordSkip(cfg, fmt.Sprintf("route failed: %v", err))
		return fmt.Errorf("failed to get swap instructions: %w", err)
	}
	if route.ExpectedOut == 0 {
		recordSkip(cfg, "route returned zero expected output")
		return nil
	}

	burnAddress := solana.MustPublicKeyFromBase58(cfg.BurnAddress)
	sig, err := client.Crank(ctx, mint, burnAddress, route.ProgramID, route.InstructionData, route.Accounts)
	if err != nil {
		record := models.CrankRecord{
			VaultConfigID:  cfg.ID,
			ProfitLamports: profit,
			Status:         models.CrankStatusFailed,
			Reason:         err.Error(),
		}
		if dbErr := dbconfig.DB.Create(&record).Error; dbErr != nil {
			log.Errorf("Failed to record failed crank for vault %d: %v", cfg.ID, dbErr)
		}
		return fmt.Errorf("crank transaction failed: %w", err)
	}

	burnAmount := route.ExpectedOut * vault.BurnBps / vault.BpsDenominator
	lockAmount := route.ExpectedOut * vault.LockBps / vault.BpsDenominator

	burnToken, _, _ := solana.FindAssociatedTokenAddress(burnAddress, mint)
	timelockToken, _, _ := solana.FindAssociatedTokenAddress(addrs.TimelockAuthority.Address, mint)

	record := models.CrankRecord{
		VaultConfigID:  cfg.ID,
		ProfitLamports: profit,
		BurnAmount:     burnAmount,
		LockAmount:     lockAmount,
		Dust:           route.ExpectedOut - burnAmount - lockAmount,
		BurnAccount:    burnToken.String(),
		LockAccount:    timelockToken.String(),
		Signature:      sig,
		Status:         models.CrankStatusSubmitted,
	}
	if err := dbconfig.DB.Create(&record).Error; err != nil {
		log.Errorf("Failed to record crank %s: %v", sig, err)
	}

	publishCrankEvent(CrankEvent{
		Mint:           cfg.Mint,
		Signature:      sig,
		ProfitLamports: profit,
		ExpectedOut:    route.ExpectedOut,
		BurnAmount:     burnAmount,
		LockAmount:     lockAmount,
	})

	// Refresh the cached row from the chain; the crank just moved both
	// timestamps forward
	if state, err := vaultprogram.FetchStateAccount(ctx, client.RPC(), mint); err == nil {
		cfg.StartingBalanceLamports = state.StartingBalanceLamports
		cfg.LastCrankTs = state.LastCrankTs
		cfg.TimelockUnlockTs = state.TimelockUnlockTs
		if err := dbconfig.DB.Save(cfg).Error; err != nil {
			log.Errorf("Failed to refresh vault config %d: %v", cfg.ID, err)
		}
	}

	log.Infof("Crank submitted for vault %d (mint %s): profit %d lamports, expected out %d, sig %s",
		cfg.ID, cfg.Mint, profit, route.ExpectedOut, sig)
	return nil
}

func publishCrankEvent(event CrankEvent) {
	if dbconfig.RabbitMQ == nil {
		return
	}
	publisher, err := dbconfig.NewPublisher()
	if err != nil {
		log.Errorf("Failed to create event publisher: %v", err)
		return
	}
	defer publisher.Close()

	if err := publisher.Publish(dbconfig.QueueVaultEvents, event); err != nil {
		log.Errorf("Failed to publish crank event for %s: %v", event.Mint, err)
	}
}

// CrankAll runs ProcessCrank over every enabled, initialized vault
func CrankAll(ctx context.Context) {
	var configs []models.VaultConfig
	if err := dbconfig.DB.Where("enabled = ? AND initialized = ?", true, true).Find(&configs).Error; err != nil {
		log.Errorf("Failed to load vault configs: %v", err)
		return
	}

	for i := range configs {
		if err := ProcessCrank(ctx, &configs[i], false); err != nil {
			log.Errorf("Crank failed for vault %d (mint %s): %v", configs[i].ID, configs[i].Mint, err)
		}
	}
}

// ConfirmPending re-checks submitted crank records against the chain and
// settles them to confirmed or failed.
func ConfirmPending(ctx context.Context) {
	var records []models.CrankRecord
	if err := dbconfig.DB.Where("status = ?", models.CrankStatusSubmitted).Find(&records).Error; err != nil {
		log.Errorf("Failed to load pending crank records: %v", err)
		return
	}
	if len(records) == 0 {
		return
	}

	endpoint, err := activeEndpoint(ctx)
	if err != nil {
		log.Errorf("Failed to pick RPC endpoint: %v", err)
		return
	}
	client := rpc.New(endpoint)

	for _, record := range records {
		status, err := bvsolana.CheckTransactionStatus(client, record.Signature)
		switch {
		case status == "finalized" || status == "confirmed":
			record.Status = models.CrankStatusConfirmed
		case status == "error":
			record.Status = models.CrankStatusFailed
			if err != nil {
				record.Reason = err.Error()
			}
		default:
			// Drop submitted records that never land
			if time.Since(record.CreatedAt) > 10*time.Minute {
				record.Status = models.CrankStatusFailed
				record.Reason = "transaction not found after 10 minutes"
			} else {
				continue
			}
		}

		if err := dbconfig.DB.Save(&record).Error; err != nil {
			log.Errorf("Failed to update crank record %d: %v", record.ID, err)
		}
	}
}

// HandleCrankMessage processes one message from the crank queue
func HandleCrankMessage(msg []byte) error {
	var request CrankRequest
	if err := json.Unmarshal(msg, &request); err != nil {
		return fmt.Errorf("failed to unmarshal crank request: %w", err)
	}

	var cfg models.VaultConfig
	if err := dbconfig.DB.Where("mint = ?", request.Mint).First(&cfg).Error; err != nil {
		return fmt.Errorf("no vault config for mint %s: %w", request.Mint, err)
	}
	if !cfg.Initialized {
		return fmt.Errorf("vault for mint %s is not initialized", request.Mint)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	return ProcessCrank(ctx, &cfg, request.Force)
}
