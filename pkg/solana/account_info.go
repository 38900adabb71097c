package solana

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"burnvault/internal/models"
)

// GetSolBalance returns the lamport balance of an account
func GetSolBalance(client *rpc.Client, owner solana.PublicKey) (uint64, time.Time, error) {
	resp, err := client.GetBalance(context.Background(), owner, rpc.CommitmentFinalized)
	if err != nil {
		log.Errorf("Failed to get SOL balance for %s: %v", owner.String(), err)
		return 0, time.Time{}, err
	}
	return resp.Value, time.Now(), nil
}

// GetTokenBalance sums the token balance for owner/mint across all of its
// token accounts. Account addresses are cached in the token_account table;
// on a cache miss the accounts are resolved via getTokenAccountsByOwner and
// written back.
func GetTokenBalance(db *gorm.DB, client *rpc.Client, owner solana.PublicKey, mint string) (uint64, time.Time, error) {
	var tokenAccounts []string
	var tokenAccount models.TokenAccount
	err := db.Where("owner_address = ? AND mint = ? AND is_close = ?", owner.String(), mint, false).First(&tokenAccount).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			mintPubkey := solana.MustPublicKeyFromBase58(mint)
			resp, err := client.GetTokenAccountsByOwner(context.Background(), owner, &rpc.GetTokenAccountsConfig{
				Mint: &mintPubkey,
			}, &rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64})
			if err != nil {
				log.Errorf("Failed to resolve token accounts for owner %s mint %s: %v", owner.String(), mint, err)
				return 0, time.Now(), err
			}
			if len(resp.Value) == 0 {
				return 0, time.Now(), nil // owner has no token account for this mint
			}
			for _, v := range resp.Value {
				accountAddress := v.Pubkey.String()
				tokenAccount := models.TokenAccount{
					OwnerAddress:   owner.String(),
					Mint:           mint,
					AccountAddress: accountAddress,
					IsClose:        false,
				}
				if err := db.Create(&tokenAccount).Error; err != nil {
					return 0, time.Now(), err
				}
				tokenAccounts = append(tokenAccounts, accountAddress)
			}
		}
	} else {
		var dbTokenAccounts []models.TokenAccount
		db.Where("owner_address = ? AND mint = ? AND is_close = ?", owner.String(), mint, false).Find(&dbTokenAccounts)
		for _, ta := range dbTokenAccounts {
			tokenAccounts = append(tokenAccounts, ta.AccountAddress)
		}
	}

	totalAmt := uint64(0)
	for _, accAddr := range tokenAccounts {
		accountPubkey, err := solana.PublicKeyFromBase58(accAddr)
		if err != nil {
			log.Errorf("Failed to parse account address %s: %v", accAddr, err)
			continue
		}
		balResp, err := client.GetTokenAccountBalance(context.Background(), accountPubkey, rpc.CommitmentFinalized)
		if err != nil {
			log.Errorf("Failed to get balance for account %s: %v", accAddr, err)
			continue
		}
		if balResp == nil || balResp.Value == nil {
			log.Errorf("Empty balance response for account %s", accAddr)
			continue
		}
		amt, err := strconv.ParseUint(balResp.Value.Amount, 10, 64)
		if err != nil {
			log.Errorf("Failed to parse balance for account %s: %v", accAddr, err)
			continue
		}
		totalAmt += amt
	}
	return totalAmt, time.Now(), nil
}

// GetTokenAccountAmount returns the raw amount held by a single token account,
// or 0 if the account does not exist
func GetTokenAccountAmount(client *rpc.Client, account solana.PublicKey) (uint64, error) {
	balResp, err := client.GetTokenAccountBalance(context.Background(), account, rpc.CommitmentFinalized)
	if err != nil {
		return 0, err
	}
	if balResp == nil || balResp.Value == nil {
		return 0, nil
	}
	amt, err := strconv.ParseUint(balResp.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token amount: %w", err)
	}
	return amt, nil
}

// GetTransactionBySignature fetches a transaction by signature from Solana RPC
func GetTransactionBySignature(client *rpc.Client, signature string) (*rpc.GetTransactionResult, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}
	ctx := context.Background()
	maxVer := rpc.MaxSupportedTransactionVersion1
	opts := &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		MaxSupportedTransactionVersion: &maxVer,
	}
	txResult, err := client.GetTransaction(ctx, sig, opts)
	if err != nil {
		return nil, fmt.Errorf("getTransaction: %w", err)
	}
	if txResult == nil || txResult.Transaction == nil {
		return nil, fmt.Errorf("transaction not found")
	}
	return txResult, nil
}
