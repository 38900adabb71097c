package vaultprogram

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// StateAccount mirrors the on-chain VaultState account layout
type StateAccount struct {
	Authority               solana.PublicKey `json:"authority"`
	Mint                    solana.PublicKey `json:"mint"`
	BurnAddress             solana.PublicKey `json:"burn_address"`
	StartingBalanceLamports uint64           `json:"starting_balance_lamports"`
	LastCrankTs             int64            `json:"last_crank_ts"`
	TimelockUnlockTs        int64            `json:"timelock_unlock_ts"`
	Bump                    uint8            `json:"bump"`
	VaultBump               uint8            `json:"vault_bump"`
	TimelockBump            uint8            `json:"timelock_bump"`
}

const (
	accountDiscriminatorLen = 8
	stateAccountDataLen     = accountDiscriminatorLen + 32 + 32 + 32 + 8 + 8 + 8 + 1 + 1 + 1
)

// DecodeStateAccount parses raw account data into a StateAccount
func DecodeStateAccount(data []byte) (*StateAccount, error) {
	if len(data) < stateAccountDataLen {
		return nil, fmt.Errorf("state account data too short: %d bytes", len(data))
	}

	s := &StateAccount{}
	off := accountDiscriminatorLen

	copy(s.Authority[:], data[off:off+32])
	off += 32
	copy(s.Mint[:], data[off:off+32])
	off += 32
	copy(s.BurnAddress[:], data[off:off+32])
	off += 32

	s.StartingBalanceLamports = binary.LittleEndian.Uint64(data[off : off+8])
	off += 8
	s.LastCrankTs = int64(binary.LittleEndian.Uint64(data[off : off+8]))
	off += 8
	s.TimelockUnlockTs = int64(binary.LittleEndian.Uint64(data[off : off+8]))
	off += 8

	s.Bump = data[off]
	s.VaultBump = data[off+1]
	s.TimelockBump = data[off+2]

	return s, nil
}

// FetchStateAccount reads and decodes the vault state account for a mint
func FetchStateAccount(ctx context.Context, client *rpc.Client, mint solana.PublicKey) (*StateAccount, error) {
	statePDA, err := FindStateAddress(mint)
	if err != nil {
		return nil, err
	}

	resp, err := client.GetAccountInfo(ctx, statePDA.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch state account %s: %w", statePDA.Address, err)
	}
	if resp == nil || resp.Value == nil {
		return nil, fmt.Errorf("state account %s does not exist", statePDA.Address)
	}

	return DecodeStateAccount(resp.Value.Data.GetBinary())
}
