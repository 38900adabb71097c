package vaultprogram

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchorDiscriminator(t *testing.T) {
	want := sha256.Sum256([]byte("global:crank"))
	assert.Equal(t, want[:8], anchorDiscriminator("crank"))
	assert.Len(t, anchorDiscriminator("initialize"), 8)
	assert.NotEqual(t, anchorDiscriminator("deposit"), anchorDiscriminator("unlock"))
}

func TestNewInitializeInstruction(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	burn := solana.NewWallet().PublicKey()
	addrs, err := FindVaultAddresses(mint)
	require.NoError(t, err)

	ix := NewInitializeInstruction(1_000_000, burn, InitializeAccounts{
		Authority:         solana.NewWallet().PublicKey(),
		Mint:              mint,
		State:             addrs.State.Address,
		Vault:             addrs.Vault.Address,
		TimelockAuthority: addrs.TimelockAuthority.Address,
	})

	assert.Equal(t, ProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, anchorDiscriminator("initialize"), data[:8])
	assert.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, burn[:], data[16:48])

	accounts := ix.Accounts()
	require.Len(t, accounts, 6)
	assert.True(t, accounts[0].IsSigner, "authority signs")
	assert.Equal(t, solana.SystemProgramID, accounts[5].PublicKey)
}

func TestNewDepositInstruction(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	addrs, err := FindVaultAddresses(mint)
	require.NoError(t, err)

	ix := NewDepositInstruction(42, DepositAccounts{
		Authority: solana.NewWallet().PublicKey(),
		State:     addrs.State.Address,
		Vault:     addrs.Vault.Address,
		Mint:      mint,
	})

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, anchorDiscriminator("deposit"), data[:8])
	assert.Equal(t, uint64(42), binary.LittleEndian.Uint64(data[8:16]))
}

func TestNewCrankInstruction(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	addrs, err := FindVaultAddresses(mint)
	require.NoError(t, err)

	swapData := []byte{0xde, 0xad, 0xbe, 0xef}
	routeAccount := solana.NewAccountMeta(solana.NewWallet().PublicKey(), true, false)

	ix := NewCrankInstruction(swapData, CrankAccounts{
		Payer:                solana.NewWallet().PublicKey(),
		State:                addrs.State.Address,
		Vault:                addrs.Vault.Address,
		Mint:                 mint,
		VaultWsolAccount:     solana.NewWallet().PublicKey(),
		WsolMint:             solana.WrappedSol,
		VaultTokenAccount:    solana.NewWallet().PublicKey(),
		BurnTokenAccount:     solana.NewWallet().PublicKey(),
		TimelockTokenAccount: solana.NewWallet().PublicKey(),
		BurnAuthority:        solana.NewWallet().PublicKey(),
		TimelockAuthority:    addrs.TimelockAuthority.Address,
		SwapProgram:          solana.NewWallet().PublicKey(),
	}, []*solana.AccountMeta{routeAccount})

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, anchorDiscriminator("crank"), data[:8])
	// Borsh Vec<u8>: u32 length prefix then the payload.
	assert.Equal(t, uint32(len(swapData)), binary.LittleEndian.Uint32(data[8:12]))
	assert.Equal(t, swapData, data[12:])

	accounts := ix.Accounts()
	require.Len(t, accounts, 16)
	assert.Equal(t, routeAccount.PublicKey, accounts[15].PublicKey, "route accounts are appended last")
}

func TestNewUnlockInstruction(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	addrs, err := FindVaultAddresses(mint)
	require.NoError(t, err)

	ix := NewUnlockInstruction(UnlockAccounts{
		State:                addrs.State.Address,
		Mint:                 mint,
		TimelockTokenAccount: solana.NewWallet().PublicKey(),
		DestinationAccount:   solana.NewWallet().PublicKey(),
		TimelockAuthority:    addrs.TimelockAuthority.Address,
	})

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, anchorDiscriminator("unlock"), data)

	accounts := ix.Accounts()
	require.Len(t, accounts, 6)
	assert.Equal(t, solana.TokenProgramID, accounts[5].PublicKey)
}

func TestDecodeStateAccount(t *testing.T) {
	authority := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	burn := solana.NewWallet().PublicKey()

	data := make([]byte, 0, stateAccountDataLen)
	data = append(data, make([]byte, accountDiscriminatorLen)...)
	data = append(data, authority[:]...)
	data = append(data, mint[:]...)
	data = append(data, burn[:]...)
	data = appendU64(data, 5_000_000)
	data = appendU64(data, uint64(1_700_000_000))
	data = appendU64(data, uint64(1_700_604_800))
	data = append(data, 254, 253, 252)

	state, err := DecodeStateAccount(data)
	require.NoError(t, err)
	assert.Equal(t, authority, state.Authority)
	assert.Equal(t, mint, state.Mint)
	assert.Equal(t, burn, state.BurnAddress)
	assert.Equal(t, uint64(5_000_000), state.StartingBalanceLamports)
	assert.Equal(t, int64(1_700_000_000), state.LastCrankTs)
	assert.Equal(t, int64(1_700_604_800), state.TimelockUnlockTs)
	assert.Equal(t, uint8(254), state.Bump)
	assert.Equal(t, uint8(253), state.VaultBump)
	assert.Equal(t, uint8(252), state.TimelockBump)

	_, err = DecodeStateAccount(data[:40])
	assert.Error(t, err)
}
