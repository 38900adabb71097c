package vault

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemBooksTransfer(t *testing.T) {
	books := NewMemBooks()
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	books.SetBalance(a, 100)

	require.NoError(t, books.Transfer(a, b, 40, Signer{}))
	assert.Equal(t, uint64(60), books.Balance(a))
	assert.Equal(t, uint64(40), books.Balance(b))

	err := books.Transfer(a, b, 100, Signer{})
	assert.Error(t, err)
	assert.Equal(t, uint64(60), books.Balance(a))
}

func TestMemBooksAssociatedAccounts(t *testing.T) {
	books := NewMemBooks()
	mint := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()

	first, err := books.EnsureAccount(mint, owner)
	require.NoError(t, err)
	second, err := books.EnsureAccount(mint, owner)
	require.NoError(t, err)
	assert.Equal(t, first, second, "associated account derivation must be deterministic")

	expected, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, expected, first)
}

func TestMemBooksSyncNative(t *testing.T) {
	books := NewMemBooks()
	owner := solana.NewWallet().PublicKey()

	wsol, err := books.EnsureAccount(solana.WrappedSol, owner)
	require.NoError(t, err)
	books.SetBalance(owner, 500)
	require.NoError(t, books.Transfer(owner, wsol, 500, Signer{}))

	assert.Equal(t, uint64(0), books.TokenBalance(wsol))
	require.NoError(t, books.SyncNative(wsol))
	assert.Equal(t, uint64(500), books.TokenBalance(wsol))

	other, err := books.EnsureAccount(solana.NewWallet().PublicKey(), owner)
	require.NoError(t, err)
	assert.Error(t, books.SyncNative(other), "sync_native only applies to wrapped SOL accounts")
}

func TestMemBooksNativeTransferMovesLamports(t *testing.T) {
	books := NewMemBooks()
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	wsolA, err := books.EnsureAccount(solana.WrappedSol, a)
	require.NoError(t, err)
	wsolB, err := books.EnsureAccount(solana.WrappedSol, b)
	require.NoError(t, err)

	books.SetBalance(wsolA, 300)
	require.NoError(t, books.SyncNative(wsolA))

	require.NoError(t, books.TokenTransfer(wsolA, wsolB, 200, Signer{}))
	assert.Equal(t, uint64(100), books.Balance(wsolA))
	assert.Equal(t, uint64(200), books.Balance(wsolB))
}

func TestMemBooksClose(t *testing.T) {
	books := NewMemBooks()
	owner := solana.NewWallet().PublicKey()
	dest := solana.NewWallet().PublicKey()

	wsol, err := books.EnsureAccount(solana.WrappedSol, owner)
	require.NoError(t, err)
	books.SetBalance(wsol, 150)

	require.NoError(t, books.Close(wsol, dest, Signer{}))
	assert.Equal(t, uint64(150), books.Balance(dest))
	assert.Equal(t, uint64(0), books.Balance(wsol))
	assert.Equal(t, uint64(0), books.TokenBalance(wsol))
}

func TestMemBooksCheckpointRestore(t *testing.T) {
	books := NewMemBooks()
	a := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	books.SetBalance(a, 100)

	acct, err := books.EnsureAccount(mint, a)
	require.NoError(t, err)
	require.NoError(t, books.MintTokens(acct, 7))

	restore := books.Checkpoint()

	b := solana.NewWallet().PublicKey()
	require.NoError(t, books.Transfer(a, b, 60, Signer{}))
	require.NoError(t, books.MintTokens(acct, 93))
	assert.Equal(t, uint64(40), books.Balance(a))
	assert.Equal(t, uint64(100), books.TokenBalance(acct))

	restore()

	assert.Equal(t, uint64(100), books.Balance(a))
	assert.Equal(t, uint64(0), books.Balance(b))
	assert.Equal(t, uint64(7), books.TokenBalance(acct))
}
