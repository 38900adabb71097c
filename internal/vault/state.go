package vault

import (
	"github.com/gagliardetto/solana-go"
)

// Protocol constants, fixed at deployment and never configurable at runtime.
const (
	// CrankIntervalSecs is the minimum time between successful cranks
	CrankIntervalSecs = 150
	// TimelockSecs is how far each crank pushes the unlock timestamp
	TimelockSecs = 7 * 24 * 60 * 60
	// BurnBps / LockBps split the swapped tokens; truncation dust stays in
	// the vault token account until the next crank sweeps it up.
	BurnBps        = 8000
	LockBps        = 2000
	BpsDenominator = 10000
)

// vaultMinReserveLamports is the rent floor for a zero-data system account,
// funded by the initializer when the vault PDA has no backing balance yet.
const vaultMinReserveLamports = 890_880

// VaultState is the single persistent record of one vault. It is created by
// Initialize and after that only Crank touches it, and only the two
// timestamps. StartingBalanceLamports is write-once: profit is always
// measured against the value set at initialization. If a swap ever leaves
// unreclaimed wrapped residue, the next crank counts the shortfall as
// principal; the baseline never resets to absorb it.
type VaultState struct {
	Authority               solana.PublicKey
	Mint                    solana.PublicKey
	BurnAddress             solana.PublicKey
	StartingBalanceLamports uint64
	LastCrankTs             int64
	TimelockUnlockTs        int64
	StateBump               uint8
	VaultBump               uint8
	TimelockBump            uint8
}

// BuybackEvent is the audit record emitted by every successful crank
type BuybackEvent struct {
	ProfitLamports  uint64           `json:"profit_lamports"`
	BurnAmount      uint64           `json:"burn_amount"`
	LockAmount      uint64           `json:"lock_amount"`
	BurnAddress     solana.PublicKey `json:"burn_address"`
	TimelockAccount solana.PublicKey `json:"timelock_account"`
}

// Dust returns the truncation remainder left in the vault token account
func (e *BuybackEvent) Dust(total uint64) uint64 {
	return total - e.BurnAmount - e.LockAmount
}
