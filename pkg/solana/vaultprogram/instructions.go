package vaultprogram

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// anchorDiscriminator returns the 8-byte anchor instruction discriminator
func anchorDiscriminator(name string) []byte {
	hash := sha256.Sum256([]byte("global:" + name))
	return hash[:8]
}

func appendU64(data []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(data, buf[:]...)
}

// appendBytes appends a borsh Vec<u8>: u32 little-endian length then the bytes
func appendBytes(data []byte, b []byte) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(len(b)))
	data = append(data, buf[:]...)
	return append(data, b...)
}

// InitializeAccounts lists the accounts of the initialize instruction in program order
type InitializeAccounts struct {
	Authority         solana.PublicKey
	Mint              solana.PublicKey
	State             solana.PublicKey
	Vault             solana.PublicKey
	TimelockAuthority solana.PublicKey
}

// NewInitializeInstruction builds the initialize instruction: creates the state
// account for the mint and funds the vault PDA with its rent floor.
func NewInitializeInstruction(startingBalanceLamports uint64, burnAddress solana.PublicKey, accounts InitializeAccounts) solana.Instruction {
	data := anchorDiscriminator("initialize")
	data = appendU64(data, startingBalanceLamports)
	data = append(data, burnAddress[:]...)

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(accounts.Authority, true, true),
		solana.NewAccountMeta(accounts.Mint, false, false),
		solana.NewAccountMeta(accounts.State, true, false),
		solana.NewAccountMeta(accounts.Vault, true, false),
		solana.NewAccountMeta(accounts.TimelockAuthority, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}

	return solana.NewInstruction(ProgramID, metas, data)
}

// DepositAccounts lists the accounts of the deposit instruction in program order
type DepositAccounts struct {
	Authority solana.PublicKey
	State     solana.PublicKey
	Vault     solana.PublicKey
	Mint      solana.PublicKey
}

// NewDepositInstruction builds the deposit instruction moving lamports from the
// signing authority into the vault PDA.
func NewDepositInstruction(lamports uint64, accounts DepositAccounts) solana.Instruction {
	data := anchorDiscriminator("deposit")
	data = appendU64(data, lamports)

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(accounts.Authority, true, true),
		solana.NewAccountMeta(accounts.State, true, false),
		solana.NewAccountMeta(accounts.Vault, true, false),
		solana.NewAccountMeta(accounts.Mint, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}

	return solana.NewInstruction(ProgramID, metas, data)
}

// CrankAccounts lists the fixed accounts of the crank instruction in program
// order. The swap route accounts are appended as remaining accounts.
type CrankAccounts struct {
	Payer                solana.PublicKey
	State                solana.PublicKey
	Vault                solana.PublicKey
	Mint                 solana.PublicKey
	VaultWsolAccount     solana.PublicKey
	WsolMint             solana.PublicKey
	VaultTokenAccount    solana.PublicKey
	BurnTokenAccount     solana.PublicKey
	TimelockTokenAccount solana.PublicKey
	BurnAuthority        solana.PublicKey
	TimelockAuthority    solana.PublicKey
	SwapProgram          solana.PublicKey
}

// NewCrankInstruction builds the crank instruction. swapData is the opaque
// venue instruction payload executed via CPI; remaining carries the venue's
// route accounts verbatim.
func NewCrankInstruction(swapData []byte, accounts CrankAccounts, remaining []*solana.AccountMeta) solana.Instruction {
	data := anchorDiscriminator("crank")
	data = appendBytes(data, swapData)

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(accounts.Payer, true, true),
		solana.NewAccountMeta(accounts.State, true, false),
		solana.NewAccountMeta(accounts.Vault, true, false),
		solana.NewAccountMeta(accounts.Mint, false, false),
		solana.NewAccountMeta(accounts.VaultWsolAccount, true, false),
		solana.NewAccountMeta(accounts.WsolMint, false, false),
		solana.NewAccountMeta(accounts.VaultTokenAccount, true, false),
		solana.NewAccountMeta(accounts.BurnTokenAccount, true, false),
		solana.NewAccountMeta(accounts.TimelockTokenAccount, true, false),
		solana.NewAccountMeta(accounts.BurnAuthority, false, false),
		solana.NewAccountMeta(accounts.TimelockAuthority, false, false),
		solana.NewAccountMeta(accounts.SwapProgram, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	metas = append(metas, remaining...)

	return solana.NewInstruction(ProgramID, metas, data)
}

// UnlockAccounts lists the accounts of the unlock instruction in program order
type UnlockAccounts struct {
	State                solana.PublicKey
	Mint                 solana.PublicKey
	TimelockTokenAccount solana.PublicKey
	DestinationAccount   solana.PublicKey
	TimelockAuthority    solana.PublicKey
}

// NewUnlockInstruction builds the unlock instruction draining the timelock
// token account into the destination once the lock has matured.
func NewUnlockInstruction(accounts UnlockAccounts) solana.Instruction {
	data := anchorDiscriminator("unlock")

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(accounts.State, true, false),
		solana.NewAccountMeta(accounts.Mint, false, false),
		solana.NewAccountMeta(accounts.TimelockTokenAccount, true, false),
		solana.NewAccountMeta(accounts.DestinationAccount, true, false),
		solana.NewAccountMeta(accounts.TimelockAuthority, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}

	return solana.NewInstruction(ProgramID, metas, data)
}
