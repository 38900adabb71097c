package vault

import (
	"github.com/gagliardetto/solana-go"
)

// Signer is a keyless signing capability for a program-derived address. It is
// reconstructed from the stored seed tuple and bump; no private key exists.
// The zero value means "signed externally by the caller" and is what Deposit
// passes for the depositor's own transfer.
type Signer struct {
	Address solana.PublicKey
	Seeds   [][]byte
}

// derivedSigner rebuilds the signing seeds from a seed prefix, parent key and
// stored bump, matching how the program reconstructs invoke_signed seeds.
func derivedSigner(address solana.PublicKey, prefix []byte, parent solana.PublicKey, bump uint8) Signer {
	return Signer{
		Address: address,
		Seeds:   [][]byte{prefix, parent[:], {bump}},
	}
}

// Ledger moves native lamports between addresses
type Ledger interface {
	Balance(addr solana.PublicKey) uint64
	Transfer(from, to solana.PublicKey, lamports uint64, signer Signer) error
	CreateAccount(payer, addr solana.PublicKey, lamports uint64, signer Signer) error
}

// TokenLedger manages token-holding accounts for the vault's mint and for
// wrapped SOL. EnsureAccount resolves (and creates if missing) the associated
// account of an owner for a mint.
type TokenLedger interface {
	Balance(account solana.PublicKey) uint64
	EnsureAccount(mint, owner solana.PublicKey) (solana.PublicKey, error)
	Transfer(from, to solana.PublicKey, amount uint64, authority Signer) error
	SyncNative(account solana.PublicKey) error
	Close(account, destination solana.PublicKey, authority Signer) error
}

// SwapVenue executes an opaque, caller-supplied swap instruction. The engine
// does not validate route, venue identity or output amount; the blast radius
// is limited to the wrapped balance already committed to the crank.
type SwapVenue interface {
	Execute(instruction []byte, accounts []*solana.AccountMeta) error
}

// Clock reads monotonically non-decreasing wall-clock time in unix seconds
type Clock interface {
	Now() int64
}

// Stager checkpoints ledger state so a failed multi-step crank can restore
// every balance it touched. Implementations backed by a real chain get this
// for free from transaction atomicity and may return a no-op restore.
type Stager interface {
	Checkpoint() (restore func())
}

// Books bundles every collaborator an engine operates against
type Books struct {
	Ledger Ledger
	Tokens TokenLedger
	Venue  SwapVenue
	Clock  Clock
}
