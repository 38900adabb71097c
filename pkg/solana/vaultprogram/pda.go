package vaultprogram

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ProgramID is the deployed burnflip vault program.
var ProgramID = solana.MustPublicKeyFromBase58("5mCQoqpbQAZa7KVP2VvjnisTT8yPuv28d3545g1Tiaib")

// PDA seed constants
var (
	SeedState    = []byte("state")
	SeedVault    = []byte("vault")
	SeedTimelock = []byte("timelock")
)

// PDAResult holds a derived address together with its bump
type PDAResult struct {
	Address solana.PublicKey
	Bump    uint8
}

// FindStateAddress derives the vault state PDA for a mint
func FindStateAddress(mint solana.PublicKey) (PDAResult, error) {
	seeds := [][]byte{SeedState, mint[:]}

	address, bump, err := solana.FindProgramAddress(seeds, ProgramID)
	if err != nil {
		return PDAResult{}, fmt.Errorf("failed to find state PDA: %w", err)
	}

	return PDAResult{Address: address, Bump: bump}, nil
}

// FindVaultAddress derives the SOL vault PDA for a state account
func FindVaultAddress(state solana.PublicKey) (PDAResult, error) {
	seeds := [][]byte{SeedVault, state[:]}

	address, bump, err := solana.FindProgramAddress(seeds, ProgramID)
	if err != nil {
		return PDAResult{}, fmt.Errorf("failed to find vault PDA: %w", err)
	}

	return PDAResult{Address: address, Bump: bump}, nil
}

// FindTimelockAuthority derives the timelock authority PDA for a state account
func FindTimelockAuthority(state solana.PublicKey) (PDAResult, error) {
	seeds := [][]byte{SeedTimelock, state[:]}

	address, bump, err := solana.FindProgramAddress(seeds, ProgramID)
	if err != nil {
		return PDAResult{}, fmt.Errorf("failed to find timelock authority PDA: %w", err)
	}

	return PDAResult{Address: address, Bump: bump}, nil
}

// VaultAddresses bundles every PDA the program touches for one mint
type VaultAddresses struct {
	State             PDAResult
	Vault             PDAResult
	TimelockAuthority PDAResult
}

// FindVaultAddresses derives all PDAs for a mint in dependency order:
// the vault and timelock authority hang off the state address.
func FindVaultAddresses(mint solana.PublicKey) (*VaultAddresses, error) {
	addrs := &VaultAddresses{}
	var err error

	addrs.State, err = FindStateAddress(mint)
	if err != nil {
		return nil, err
	}

	addrs.Vault, err = FindVaultAddress(addrs.State.Address)
	if err != nil {
		return nil, err
	}

	addrs.TimelockAuthority, err = FindTimelockAuthority(addrs.State.Address)
	if err != nil {
		return nil, err
	}

	return addrs, nil
}
