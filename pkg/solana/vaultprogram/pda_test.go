package vaultprogram

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindVaultAddresses(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	addrs, err := FindVaultAddresses(mint)
	require.NoError(t, err)

	t.Run("derivation is deterministic", func(t *testing.T) {
		again, err := FindVaultAddresses(mint)
		require.NoError(t, err)
		assert.Equal(t, addrs.State, again.State)
		assert.Equal(t, addrs.Vault, again.Vault)
		assert.Equal(t, addrs.TimelockAuthority, again.TimelockAuthority)
	})

	t.Run("addresses are distinct", func(t *testing.T) {
		assert.NotEqual(t, addrs.State.Address, addrs.Vault.Address)
		assert.NotEqual(t, addrs.State.Address, addrs.TimelockAuthority.Address)
		assert.NotEqual(t, addrs.Vault.Address, addrs.TimelockAuthority.Address)
	})

	t.Run("addresses are off the ed25519 curve", func(t *testing.T) {
		assert.False(t, addrs.State.Address.IsOnCurve())
		assert.False(t, addrs.Vault.Address.IsOnCurve())
		assert.False(t, addrs.TimelockAuthority.Address.IsOnCurve())
	})

	t.Run("matches direct seed derivation", func(t *testing.T) {
		state, bump, err := solana.FindProgramAddress([][]byte{SeedState, mint[:]}, ProgramID)
		require.NoError(t, err)
		assert.Equal(t, state, addrs.State.Address)
		assert.Equal(t, bump, addrs.State.Bump)
	})

	t.Run("different mints derive different vaults", func(t *testing.T) {
		other, err := FindVaultAddresses(solana.NewWallet().PublicKey())
		require.NoError(t, err)
		assert.NotEqual(t, addrs.State.Address, other.State.Address)
		assert.NotEqual(t, addrs.Vault.Address, other.Vault.Address)
	})
}
