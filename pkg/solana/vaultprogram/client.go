package vaultprogram

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
)

// Client submits vault program transactions through a single payer key
type Client struct {
	rpc   *rpc.Client
	payer solana.PrivateKey
}

// NewClient creates a vault program client for the given RPC endpoint
func NewClient(endpoint string, payer solana.PrivateKey) *Client {
	return &Client{
		rpc:   rpc.New(endpoint),
		payer: payer,
	}
}

// RPC exposes the underlying RPC client for balance reads
func (c *Client) RPC() *rpc.Client {
	return c.rpc
}

// Payer returns the public key of the transaction payer
func (c *Client) Payer() solana.PublicKey {
	return c.payer.PublicKey()
}

func (c *Client) send(ctx context.Context, instructions []solana.Instruction) (string, error) {
	bh, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, bh.Value.Blockhash, solana.TransactionPayer(c.payer.PublicKey()))
	if err != nil {
		return "", fmt.Errorf("failed to build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(c.payer.PublicKey()) {
			return &c.payer
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig.String(), nil
}

// Initialize creates the vault state for a mint and funds the vault PDA
func (c *Client) Initialize(ctx context.Context, mint, burnAddress solana.PublicKey, startingBalanceLamports uint64) (string, error) {
	addrs, err := FindVaultAddresses(mint)
	if err != nil {
		return "", err
	}

	ix := NewInitializeInstruction(startingBalanceLamports, burnAddress, InitializeAccounts{
		Authority:         c.payer.PublicKey(),
		Mint:              mint,
		State:             addrs.State.Address,
		Vault:             addrs.Vault.Address,
		TimelockAuthority: addrs.TimelockAuthority.Address,
	})

	sig, err := c.send(ctx, []solana.Instruction{ix})
	if err != nil {
		return "", err
	}

	log.Infof("Initialized vault for mint %s, state %s: %s", mint, addrs.State.Address, sig)
	return sig, nil
}

// Deposit moves lamports from the payer into the vault PDA
func (c *Client) Deposit(ctx context.Context, mint solana.PublicKey, lamports uint64) (string, error) {
	addrs, err := FindVaultAddresses(mint)
	if err != nil {
		return "", err
	}

	ix := NewDepositInstruction(lamports, DepositAccounts{
		Authority: c.payer.PublicKey(),
		State:     addrs.State.Address,
		Vault:     addrs.Vault.Address,
		Mint:      mint,
	})

	return c.send(ctx, []solana.Instruction{ix})
}

// Crank submits a crank with the supplied swap route. burnAuthority is the
// owner of the burn token account (e.g. the incinerator); swapProgram and the
// remaining metas come from the route provider.
func (c *Client) Crank(ctx context.Context, mint, burnAuthority, swapProgram solana.PublicKey, swapData []byte, remaining []*solana.AccountMeta) (string, error) {
	addrs, err := FindVaultAddresses(mint)
	if err != nil {
		return "", err
	}

	vaultWsol, _, err := solana.FindAssociatedTokenAddress(addrs.Vault.Address, solana.WrappedSol)
	if err != nil {
		return "", fmt.Errorf("failed to derive vault wsol account: %w", err)
	}
	vaultToken, _, err := solana.FindAssociatedTokenAddress(addrs.State.Address, mint)
	if err != nil {
		return "", fmt.Errorf("failed to derive vault token account: %w", err)
	}
	burnToken, _, err := solana.FindAssociatedTokenAddress(burnAuthority, mint)
	if err != nil {
		return "", fmt.Errorf("failed to derive burn token account: %w", err)
	}
	timelockToken, _, err := solana.FindAssociatedTokenAddress(addrs.TimelockAuthority.Address, mint)
	if err != nil {
		return "", fmt.Errorf("failed to derive timelock token account: %w", err)
	}

	ix := NewCrankInstruction(swapData, CrankAccounts{
		Payer:                c.payer.PublicKey(),
		State:                addrs.State.Address,
		Vault:                addrs.Vault.Address,
		Mint:                 mint,
		VaultWsolAccount:     vaultWsol,
		WsolMint:             solana.WrappedSol,
		VaultTokenAccount:    vaultToken,
		BurnTokenAccount:     burnToken,
		TimelockTokenAccount: timelockToken,
		BurnAuthority:        burnAuthority,
		TimelockAuthority:    addrs.TimelockAuthority.Address,
		SwapProgram:          swapProgram,
	}, remaining)

	sig, err := c.send(ctx, []solana.Instruction{ix})
	if err != nil {
		return "", err
	}

	log.Infof("Crank submitted for mint %s: %s", mint, sig)
	return sig, nil
}

// Unlock drains the matured timelock token account into the destination
// owner's associated token account.
func (c *Client) Unlock(ctx context.Context, mint, destinationOwner solana.PublicKey) (string, error) {
	addrs, err := FindVaultAddresses(mint)
	if err != nil {
		return "", err
	}

	timelockToken, _, err := solana.FindAssociatedTokenAddress(addrs.TimelockAuthority.Address, mint)
	if err != nil {
		return "", fmt.Errorf("failed to derive timelock token account: %w", err)
	}
	destToken, _, err := solana.FindAssociatedTokenAddress(destinationOwner, mint)
	if err != nil {
		return "", fmt.Errorf("failed to derive destination token account: %w", err)
	}

	ix := NewUnlockInstruction(UnlockAccounts{
		State:                addrs.State.Address,
		Mint:                 mint,
		TimelockTokenAccount: timelockToken,
		DestinationAccount:   destToken,
		TimelockAuthority:    addrs.TimelockAuthority.Address,
	})

	return c.send(ctx, []solana.Instruction{ix})
}
