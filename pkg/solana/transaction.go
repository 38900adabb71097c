package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"

	"burnvault/pkg/solana/vaultprogram"
)

// CheckTransactionStatus checks the confirmation status of a transaction.
// Returns one of "pending", "confirmed", "finalized", or "error".
func CheckTransactionStatus(client *rpc.Client, signature string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return "", fmt.Errorf("invalid signature format: %w", err)
	}

	res, err := client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return "", fmt.Errorf("failed to get signature status: %w", err)
	}

	if len(res.Value) == 0 || res.Value[0] == nil {
		return "pending", nil
	}

	status := res.Value[0]

	if status.Err != nil {
		errJSON, _ := json.Marshal(status.Err)
		return "error", fmt.Errorf("transaction failed: %s", string(errJSON))
	}

	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		return "finalized", nil
	case rpc.ConfirmationStatusConfirmed:
		return "confirmed", nil
	case rpc.ConfirmationStatusProcessed:
		return "pending", nil
	}

	return "pending", nil
}

// DepositResult is the outcome of one funding wallet's deposit
type DepositResult struct {
	AccountAddress string
	Success        bool
	Signature      string
	Error          error
}

type depositTask struct {
	AccountAddress string
	AccountPubkey  solana.PublicKey
	PrivateKey     *solana.PrivateKey
	Lamports       uint64
}

// MultiDepositToVault deposits lamports into a vault from multiple funding
// wallets in parallel, each through the program's deposit instruction so the
// transfers land in the vault PDA. Requests are rate limited to rps and each
// deposit is retried up to 3 times.
func MultiDepositToVault(
	client *rpc.Client,
	mint string,
	amounts map[string]uint64,
	rps int,
	accountToPrivateKey map[string]*solana.PrivateKey,
) ([]DepositResult, error) {
	var results []DepositResult

	mintPubkey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("invalid mint: %w", err)
	}
	addrs, err := vaultprogram.FindVaultAddresses(mintPubkey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive vault addresses: %w", err)
	}

	var tasks []depositTask
	for addr, lamports := range amounts {
		if lamports == 0 {
			continue
		}
		pub, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			results = append(results, DepositResult{AccountAddress: addr, Success: false, Error: fmt.Errorf("invalid address: %w", err)})
			continue
		}
		priv, ok := accountToPrivateKey[addr]
		if !ok || priv == nil {
			results = append(results, DepositResult{AccountAddress: addr, Success: false, Error: fmt.Errorf("no private key for account")})
			continue
		}
		tasks = append(tasks, depositTask{
			AccountAddress: addr,
			AccountPubkey:  pub,
			PrivateKey:     priv,
			Lamports:       lamports,
		})
	}

	if len(tasks) == 0 {
		log.Infof("No funding accounts with a deposit amount")
		return results, nil
	}

	limiter := rate.NewLimiter(rate.Limit(rps), rps)

	resultCh := make(chan DepositResult, len(tasks))
	var wg sync.WaitGroup

	for _, task := range tasks {
		wg.Add(1)
		go func(t depositTask) {
			defer wg.Done()

			if err := limiter.Wait(context.Background()); err != nil {
				resultCh <- DepositResult{
					AccountAddress: t.AccountAddress,
					Success:        false,
					Error:          fmt.Errorf("rate limiter wait failed: %w", err),
				}
				return
			}

			maxRetries := 3
			var res DepositResult
			for attempt := 0; attempt <= maxRetries; attempt++ {
				res = submitDeposit(client, t, mintPubkey, addrs)
				if res.Success {
					resultCh <- res
					return
				}

				if attempt < maxRetries {
					if err := limiter.Wait(context.Background()); err != nil {
						resultCh <- DepositResult{
							AccountAddress: t.AccountAddress,
							Success:        false,
							Error:          fmt.Errorf("rate limiter wait failed on retry: %w", err),
						}
						return
					}
					time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
					log.Warnf("Deposit failed for account %s, attempt %d/%d, retrying... Error: %v",
						t.AccountAddress, attempt+1, maxRetries, res.Error)
				}
			}

			log.Errorf("Deposit failed for account %s after %d attempts, giving up. Error: %v",
				t.AccountAddress, maxRetries+1, res.Error)
			resultCh <- res
		}(task)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for res := range resultCh {
		results = append(results, res)
	}
	return results, nil
}

func submitDeposit(client *rpc.Client, task depositTask, mint solana.PublicKey, addrs *vaultprogram.VaultAddresses) DepositResult {
	ctx := context.Background()

	bh, err := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return DepositResult{AccountAddress: task.AccountAddress, Success: false, Error: err}
	}

	ix := vaultprogram.NewDepositInstruction(task.Lamports, vaultprogram.DepositAccounts{
		Authority: task.AccountPubkey,
		State:     addrs.State.Address,
		Vault:     addrs.Vault.Address,
		Mint:      mint,
	})
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, bh.Value.Blockhash, solana.TransactionPayer(task.AccountPubkey))
	if err != nil {
		return DepositResult{AccountAddress: task.AccountAddress, Success: false, Error: err}
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(task.AccountPubkey) {
			return task.PrivateKey
		}
		return nil
	}); err != nil {
		return DepositResult{AccountAddress: task.AccountAddress, Success: false, Error: err}
	}
	sig, err := client.SendTransaction(ctx, tx)
	if err != nil {
		return DepositResult{AccountAddress: task.AccountAddress, Success: false, Error: err}
	}
	return DepositResult{AccountAddress: task.AccountAddress, Success: true, Signature: sig.String()}
}

// EnsureAssociatedTokenAccount creates the owner's ATA for mint if it does
// not exist yet. Unlock destinations need a token account before the program
// can transfer into them.
func EnsureAssociatedTokenAccount(client *rpc.Client, payer *solana.PrivateKey, owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ctx := context.Background()

	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive ATA: %w", err)
	}

	info, _ := client.GetAccountInfo(ctx, ata)
	if info != nil && info.Value != nil {
		return ata, nil
	}

	payerPub := payer.PublicKey()
	ix := associatedtokenaccount.NewCreateInstruction(payerPub, owner, mint).Build()
	bh, err := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.PublicKey{}, err
	}
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, bh.Value.Blockhash, solana.TransactionPayer(payerPub))
	if err != nil {
		return solana.PublicKey{}, err
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payerPub) {
			return payer
		}
		return nil
	}); err != nil {
		return solana.PublicKey{}, err
	}
	if _, err := client.SendTransaction(ctx, tx); err != nil {
		return solana.PublicKey{}, err
	}
	log.Infof("Created ATA %s for owner %s", ata.String(), owner.String())
	time.Sleep(2 * time.Second)
	return ata, nil
}
