package vault

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"

	"burnvault/pkg/solana/vaultprogram"
)

// Engine drives one vault through its four operations. Each operation runs as
// a single atomic unit: it either completes and commits its mutations, or it
// fails and (via the stager) leaves balances and state untouched. There is no
// internal retry; the interval gate and the timelock are the only delay
// mechanisms.
type Engine struct {
	books  Books
	stager Stager

	state        *VaultState
	stateAddr    solana.PublicKey
	vaultAddr    solana.PublicKey
	timelockAddr solana.PublicKey
}

// NewEngine creates an engine with no vault yet; Initialize must run first.
// stager may be nil when the books are transactionally atomic on their own.
func NewEngine(books Books, stager Stager) *Engine {
	return &Engine{books: books, stager: stager}
}

// LoadEngine restores an engine from a persisted state record, re-deriving
// the vault addresses from the mint.
func LoadEngine(books Books, stager Stager, state VaultState) (*Engine, error) {
	e := NewEngine(books, stager)
	addrs, err := vaultprogram.FindVaultAddresses(state.Mint)
	if err != nil {
		return nil, err
	}
	e.state = &state
	e.stateAddr = addrs.State.Address
	e.vaultAddr = addrs.Vault.Address
	e.timelockAddr = addrs.TimelockAuthority.Address
	return e, nil
}

// State returns a copy of the current vault state record
func (e *Engine) State() (VaultState, error) {
	if e.state == nil {
		return VaultState{}, ErrNotInitialized
	}
	return *e.state, nil
}

// StateAddress returns the derived state record address
func (e *Engine) StateAddress() solana.PublicKey {
	return e.stateAddr
}

// VaultAddress returns the derived SOL vault address
func (e *Engine) VaultAddress() solana.PublicKey {
	return e.vaultAddr
}

// TimelockAuthority returns the derived timelock authority address
func (e *Engine) TimelockAuthority() solana.PublicKey {
	return e.timelockAddr
}

func (e *Engine) stateSigner() Signer {
	return derivedSigner(e.stateAddr, vaultprogram.SeedState, e.state.Mint, e.state.StateBump)
}

func (e *Engine) vaultSigner() Signer {
	return derivedSigner(e.vaultAddr, vaultprogram.SeedVault, e.stateAddr, e.state.VaultBump)
}

func (e *Engine) timelockSigner() Signer {
	return derivedSigner(e.timelockAddr, vaultprogram.SeedTimelock, e.stateAddr, e.state.TimelockBump)
}

func (e *Engine) checkpoint() func() {
	if e.stager == nil {
		return func() {}
	}
	return e.stager.Checkpoint()
}

// Initialize creates the state record for a mint with its immutable baseline
// and zeroed timestamps, and funds the vault PDA with the minimum reserve if
// it has no backing balance yet. Fails if the vault already exists.
func (e *Engine) Initialize(authority, mint, burnAddress solana.PublicKey, startingBalanceLamports uint64) error {
	if e.state != nil {
		return ErrAlreadyInitialized
	}

	addrs, err := vaultprogram.FindVaultAddresses(mint)
	if err != nil {
		return err
	}

	state := &VaultState{
		Authority:               authority,
		Mint:                    mint,
		BurnAddress:             burnAddress,
		StartingBalanceLamports: startingBalanceLamports,
		LastCrankTs:             0,
		TimelockUnlockTs:        0,
		StateBump:               addrs.State.Bump,
		VaultBump:               addrs.Vault.Bump,
		TimelockBump:            addrs.TimelockAuthority.Bump,
	}

	e.state = state
	e.stateAddr = addrs.State.Address
	e.vaultAddr = addrs.Vault.Address
	e.timelockAddr = addrs.TimelockAuthority.Address

	if e.books.Ledger.Balance(e.vaultAddr) == 0 {
		if err := e.books.Ledger.CreateAccount(authority, e.vaultAddr, vaultMinReserveLamports, e.vaultSigner()); err != nil {
			e.state = nil
			return fmt.Errorf("failed to fund vault account: %w", err)
		}
	}

	log.Infof("Vault initialized: mint=%s state=%s vault=%s baseline=%d",
		mint, e.stateAddr, e.vaultAddr, startingBalanceLamports)
	return nil
}

// Deposit moves lamports from any caller into the vault. There is no gate and
// no state mutation: deposits only ever increase treasury value, and the next
// crank detects them as profit.
func (e *Engine) Deposit(from solana.PublicKey, lamports uint64) error {
	if e.state == nil {
		return ErrNotInitialized
	}
	return e.books.Ledger.Transfer(from, e.vaultAddr, lamports, Signer{})
}

// Crank converts all balance above the baseline into the vault's token via
// the supplied swap route, burns 80% and locks 20%. Permissionless: every
// gate is enforced here, not at the caller.
func (e *Engine) Crank(swapInstruction []byte, swapAccounts []*solana.AccountMeta) (*BuybackEvent, error) {
	if e.state == nil {
		return nil, ErrNotInitialized
	}

	now := e.books.Clock.Now()
	if now-e.state.LastCrankTs < CrankIntervalSecs {
		return nil, ErrCrankTooSoon
	}

	balance := e.books.Ledger.Balance(e.vaultAddr)
	if balance <= e.state.StartingBalanceLamports {
		return nil, ErrNoProfit
	}
	profit := balance - e.state.StartingBalanceLamports

	restore := e.checkpoint()
	event, err := e.convertAndSplit(profit, swapInstruction, swapAccounts)
	if err != nil {
		restore()
		return nil, err
	}

	// Timestamps mutate only after every fund movement succeeded. The unlock
	// clock resets unconditionally: a new crank extends the lock on all
	// previously locked tokens as well.
	e.state.LastCrankTs = now
	e.state.TimelockUnlockTs = now + TimelockSecs

	event.ProfitLamports = profit

	log.WithFields(log.Fields{
		"profit_lamports":  event.ProfitLamports,
		"burn_amount":      event.BurnAmount,
		"lock_amount":      event.LockAmount,
		"burn_address":     event.BurnAddress.String(),
		"timelock_account": event.TimelockAccount.String(),
	}).Info("Buyback crank completed")

	return event, nil
}

// convertAndSplit performs the fund-moving half of a crank:
// wrap -> sync -> swap -> read -> split -> close.
func (e *Engine) convertAndSplit(profit uint64, swapInstruction []byte, swapAccounts []*solana.AccountMeta) (*BuybackEvent, error) {
	// Wrap exactly the profit into the vault's wSOL account. The transfer is
	// a raw lamport move, so the wrapped balance must be synced afterwards.
	wsolAccount, err := e.books.Tokens.EnsureAccount(solana.WrappedSol, e.vaultAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure vault wsol account: %w", err)
	}
	if err := e.books.Ledger.Transfer(e.vaultAddr, wsolAccount, profit, e.vaultSigner()); err != nil {
		return nil, fmt.Errorf("failed to wrap profit: %w", err)
	}
	if err := e.books.Tokens.SyncNative(wsolAccount); err != nil {
		return nil, fmt.Errorf("failed to sync wrapped balance: %w", err)
	}

	// Delegate to the swap venue with the caller-supplied route. Output
	// amount and venue identity are deliberately unvalidated.
	if err := e.books.Venue.Execute(swapInstruction, swapAccounts); err != nil {
		return nil, fmt.Errorf("swap venue rejected instruction: %w", err)
	}

	vaultTokenAccount, err := e.books.Tokens.EnsureAccount(e.state.Mint, e.stateAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure vault token account: %w", err)
	}
	received := e.books.Tokens.Balance(vaultTokenAccount)
	if received == 0 {
		return nil, ErrNoTokens
	}

	burnAmount := received * BurnBps / BpsDenominator
	lockAmount := received * LockBps / BpsDenominator

	burnAccount, err := e.books.Tokens.EnsureAccount(e.state.Mint, e.state.BurnAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure burn token account: %w", err)
	}
	timelockAccount, err := e.books.Tokens.EnsureAccount(e.state.Mint, e.timelockAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure timelock token account: %w", err)
	}

	if err := e.books.Tokens.Transfer(vaultTokenAccount, burnAccount, burnAmount, e.stateSigner()); err != nil {
		return nil, fmt.Errorf("failed to transfer burn share: %w", err)
	}
	if err := e.books.Tokens.Transfer(vaultTokenAccount, timelockAccount, lockAmount, e.stateSigner()); err != nil {
		return nil, fmt.Errorf("failed to transfer lock share: %w", err)
	}

	// Close the wSOL account back into the vault, reclaiming the reserve and
	// any residue the venue left unconverted.
	if err := e.books.Tokens.Close(wsolAccount, e.vaultAddr, e.vaultSigner()); err != nil {
		return nil, fmt.Errorf("failed to close wsol account: %w", err)
	}

	return &BuybackEvent{
		BurnAmount:      burnAmount,
		LockAmount:      lockAmount,
		BurnAddress:     burnAccount,
		TimelockAccount: timelockAccount,
	}, nil
}

// Unlock drains the timelock token account into the destination once the
// lock has matured. No state mutation; callable repeatedly, each call takes
// whatever accumulated since the last release.
func (e *Engine) Unlock(destination solana.PublicKey) (uint64, error) {
	if e.state == nil {
		return 0, ErrNotInitialized
	}

	if e.books.Clock.Now() < e.state.TimelockUnlockTs {
		return 0, ErrTimelockActive
	}

	timelockAccount, err := e.books.Tokens.EnsureAccount(e.state.Mint, e.timelockAddr)
	if err != nil {
		return 0, fmt.Errorf("failed to ensure timelock token account: %w", err)
	}

	amount := e.books.Tokens.Balance(timelockAccount)
	if err := e.books.Tokens.Transfer(timelockAccount, destination, amount, e.timelockSigner()); err != nil {
		return 0, fmt.Errorf("failed to release locked tokens: %w", err)
	}

	log.Infof("Timelock released %d tokens to %s", amount, destination)
	return amount, nil
}
