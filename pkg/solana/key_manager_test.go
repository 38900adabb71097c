package solana

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyManager(t *testing.T) {
	t.Setenv("VAULT_KEYSTORE_DIR", t.TempDir())
	km := NewKeyManager()

	t.Run("Generate Key Pair", func(t *testing.T) {
		account, err := km.GenerateKeyPair()
		require.NoError(t, err)
		assert.NotNil(t, account)
		assert.NotEmpty(t, account.PublicKey.ToBase58())
		assert.NotEmpty(t, account.PrivateKey)
		assert.Equal(t, 64, len(account.PrivateKey), "Private key should be 64 bytes")
	})

	t.Run("Encrypt and Decrypt Private Key", func(t *testing.T) {
		account, err := km.GenerateKeyPair()
		require.NoError(t, err)

		password := "test-password"
		encrypted, err := km.EncryptPrivateKey(account.PrivateKey, password)
		require.NoError(t, err)
		assert.NotEmpty(t, encrypted)

		decrypted, err := km.DecryptPrivateKey(encrypted, password)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(account.PrivateKey[:], decrypted), "Decrypted private key should match original")
	})

	t.Run("Save and Load KeyStore Entry", func(t *testing.T) {
		account, err := km.GenerateKeyPair()
		require.NoError(t, err)

		password := "test-password"
		err = km.SaveKeyStoreEntry(account, password)
		require.NoError(t, err)

		address := account.PublicKey.ToBase58()
		loaded, err := km.LoadKeyStoreEntry(address, password)
		require.NoError(t, err)
		assert.Equal(t, address, loaded.PublicKey.ToBase58())
		assert.True(t, bytes.Equal(account.PrivateKey[:], loaded.PrivateKey[:]), "Loaded private key should match original")

		// Wrong password must fail
		_, err = km.LoadKeyStoreEntry(address, "wrong-password")
		assert.Error(t, err)
	})

	t.Run("Load Operator Key", func(t *testing.T) {
		account, err := km.GenerateKeyPair()
		require.NoError(t, err)

		password := "operator-password"
		err = km.SaveKeyStoreEntry(account, password)
		require.NoError(t, err)

		address := account.PublicKey.ToBase58()
		operatorKey, err := km.LoadOperatorKey(address, password)
		require.NoError(t, err)
		assert.Equal(t, address, operatorKey.PublicKey().String())
	})

	t.Run("Get Solana Address", func(t *testing.T) {
		account, err := km.GenerateKeyPair()
		require.NoError(t, err)

		address, err := km.GetSolanaAddressFromPrivateKey(account.PrivateKey)
		require.NoError(t, err)
		assert.Equal(t, account.PublicKey.ToBase58(), address)
	})

	t.Run("Error Cases", func(t *testing.T) {
		account, err := km.GenerateKeyPair()
		require.NoError(t, err)

		encrypted, err := km.EncryptPrivateKey(account.PrivateKey, "password1")
		require.NoError(t, err)

		_, err = km.DecryptPrivateKey(encrypted, "password2")
		assert.Error(t, err)

		_, err = km.LoadKeyStoreEntry("nonexistent-address", "password")
		assert.Error(t, err)

		_, err = km.GetSolanaAddressFromPrivateKey([]byte("invalid-key"))
		assert.Error(t, err)
	})

	t.Run("Multiple Key Generation", func(t *testing.T) {
		keys := make(map[string]bool)
		for i := 0; i < 10; i++ {
			account, err := km.GenerateKeyPair()
			require.NoError(t, err)

			address := account.PublicKey.ToBase58()
			assert.False(t, keys[address], "Generated duplicate address")
			keys[address] = true
		}
	})

	t.Run("Keystore Entry Filename", func(t *testing.T) {
		account, err := km.GenerateKeyPair()
		require.NoError(t, err)

		require.NoError(t, km.SaveKeyStoreEntry(account, "pw"))
		address := account.PublicKey.ToBase58()
		assert.FileExists(t, filepath.Join(km.keystoreDir, address+".json"))
	})
}
