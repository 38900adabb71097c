package vault

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"burnvault/pkg/solana/vaultprogram"
)

// manualClock is a settable clock for deterministic gate tests
type manualClock struct {
	unix int64
}

func (c *manualClock) Now() int64 {
	return c.unix
}

func (c *manualClock) Advance(secs int64) {
	c.unix += secs
}

// fakeVenue simulates a swap: it spends the vault's wrapped balance (minus a
// configurable residue) and credits the vault token account with tokensOut.
type fakeVenue struct {
	books     *MemBooks
	mint      solana.PublicKey
	stateAddr solana.PublicKey
	vaultAddr solana.PublicKey
	pool      solana.PublicKey
	tokensOut uint64
	residue   uint64
	failWith  error
}

func (v *fakeVenue) Execute(_ []byte, _ []*solana.AccountMeta) error {
	if v.failWith != nil {
		return v.failWith
	}

	wsolAccount, err := v.books.EnsureAccount(solana.WrappedSol, v.vaultAddr)
	if err != nil {
		return err
	}
	poolWsol, err := v.books.EnsureAccount(solana.WrappedSol, v.pool)
	if err != nil {
		return err
	}

	inAmount := v.books.TokenBalance(wsolAccount)
	if inAmount > v.residue {
		if err := v.books.TokenTransfer(wsolAccount, poolWsol, inAmount-v.residue, Signer{}); err != nil {
			return err
		}
	}

	if v.tokensOut > 0 {
		vaultToken, err := v.books.EnsureAccount(v.mint, v.stateAddr)
		if err != nil {
			return err
		}
		return v.books.MintTokens(vaultToken, v.tokensOut)
	}
	return nil
}

type fixture struct {
	books  *MemBooks
	clock  *manualClock
	venue  *fakeVenue
	engine *Engine

	authority   solana.PublicKey
	mint        solana.PublicKey
	burnAddress solana.PublicKey
}

// newFixture initializes a vault whose SOL account already holds exactly the
// baseline, matching the steady state after a previous crank cycle.
func newFixture(t *testing.T, baseline uint64) *fixture {
	t.Helper()

	books := NewMemBooks()
	clock := &manualClock{unix: 1_700_000_000}
	venue := &fakeVenue{books: books, pool: solana.NewWallet().PublicKey()}

	engine := NewEngine(Books{
		Ledger: books,
		Tokens: books.TokenLedger(),
		Venue:  venue,
		Clock:  clock,
	}, books)

	f := &fixture{
		books:       books,
		clock:       clock,
		venue:       venue,
		engine:      engine,
		authority:   solana.NewWallet().PublicKey(),
		mint:        solana.NewWallet().PublicKey(),
		burnAddress: solana.NewWallet().PublicKey(),
	}

	// Pre-fund the vault PDA with the baseline so Initialize skips reserve
	// funding and profit math starts from a known point.
	vaultPDA := deriveVaultForMint(t, f.mint)
	books.SetBalance(vaultPDA, baseline)

	require.NoError(t, engine.Initialize(f.authority, f.mint, f.burnAddress, baseline))

	venue.mint = f.mint
	venue.stateAddr = engine.StateAddress()
	venue.vaultAddr = engine.VaultAddress()

	return f
}

func deriveVaultForMint(t *testing.T, mint solana.PublicKey) solana.PublicKey {
	t.Helper()
	addrs, err := vaultprogram.FindVaultAddresses(mint)
	require.NoError(t, err)
	return addrs.Vault.Address
}

func (f *fixture) deposit(t *testing.T, lamports uint64) {
	t.Helper()
	depositor := solana.NewWallet().PublicKey()
	f.books.SetBalance(depositor, lamports)
	require.NoError(t, f.engine.Deposit(depositor, lamports))
}

func TestInitialize(t *testing.T) {
	t.Run("creates state with zeroed timestamps", func(t *testing.T) {
		f := newFixture(t, 1000)

		state, err := f.engine.State()
		require.NoError(t, err)
		assert.Equal(t, uint64(1000), state.StartingBalanceLamports)
		assert.Equal(t, int64(0), state.LastCrankTs)
		assert.Equal(t, int64(0), state.TimelockUnlockTs)
		assert.Equal(t, f.mint, state.Mint)
		assert.Equal(t, f.burnAddress, state.BurnAddress)
	})

	t.Run("rejects double initialization", func(t *testing.T) {
		f := newFixture(t, 1000)

		err := f.engine.Initialize(f.authority, f.mint, f.burnAddress, 1000)
		assert.ErrorIs(t, err, ErrAlreadyInitialized)
	})

	t.Run("funds empty vault from authority", func(t *testing.T) {
		books := NewMemBooks()
		clock := &manualClock{unix: 1_700_000_000}
		engine := NewEngine(Books{Ledger: books, Tokens: books.TokenLedger(), Venue: &fakeVenue{books: books}, Clock: clock}, books)

		authority := solana.NewWallet().PublicKey()
		mint := solana.NewWallet().PublicKey()
		books.SetBalance(authority, 10_000_000)

		require.NoError(t, engine.Initialize(authority, mint, solana.NewWallet().PublicKey(), 890_880))

		assert.Equal(t, uint64(890_880), books.Balance(engine.VaultAddress()))
		assert.Equal(t, uint64(10_000_000-890_880), books.Balance(authority))
	})

	t.Run("operations before initialize fail", func(t *testing.T) {
		books := NewMemBooks()
		engine := NewEngine(Books{Ledger: books, Tokens: books.TokenLedger(), Clock: &manualClock{}}, books)

		err := engine.Deposit(solana.NewWallet().PublicKey(), 1)
		assert.ErrorIs(t, err, ErrNotInitialized)

		_, err = engine.Crank(nil, nil)
		assert.ErrorIs(t, err, ErrNotInitialized)

		_, err = engine.Unlock(solana.NewWallet().PublicKey())
		assert.ErrorIs(t, err, ErrNotInitialized)
	})
}

func TestDeposit(t *testing.T) {
	t.Run("moves lamports into the vault", func(t *testing.T) {
		f := newFixture(t, 1000)
		f.deposit(t, 500)
		assert.Equal(t, uint64(1500), f.books.Balance(f.engine.VaultAddress()))
	})

	t.Run("propagates insufficient funds", func(t *testing.T) {
		f := newFixture(t, 1000)
		broke := solana.NewWallet().PublicKey()
		err := f.engine.Deposit(broke, 500)
		assert.Error(t, err)
		assert.Equal(t, uint64(1000), f.books.Balance(f.engine.VaultAddress()))
	})
}

func TestCrankGates(t *testing.T) {
	t.Run("too soon leaves everything unchanged", func(t *testing.T) {
		f := newFixture(t, 1000)
		f.deposit(t, 500)
		f.venue.tokensOut = 1000

		f.clock.Advance(CrankIntervalSecs)
		_, err := f.engine.Crank(nil, nil)
		require.NoError(t, err)

		stateBefore, err := f.engine.State()
		require.NoError(t, err)
		balanceBefore := f.books.Balance(f.engine.VaultAddress())

		f.deposit(t, 500)
		f.clock.Advance(CrankIntervalSecs - 1)
		_, err = f.engine.Crank(nil, nil)
		assert.ErrorIs(t, err, ErrCrankTooSoon)

		stateAfter, err := f.engine.State()
		require.NoError(t, err)
		assert.Equal(t, stateBefore, stateAfter)
		assert.Equal(t, balanceBefore+500, f.books.Balance(f.engine.VaultAddress()))
	})

	t.Run("no profit at exactly the baseline", func(t *testing.T) {
		f := newFixture(t, 1000)
		f.clock.Advance(CrankIntervalSecs)

		_, err := f.engine.Crank(nil, nil)
		assert.ErrorIs(t, err, ErrNoProfit)
		assert.Equal(t, uint64(1000), f.books.Balance(f.engine.VaultAddress()))

		state, err := f.engine.State()
		require.NoError(t, err)
		assert.Equal(t, int64(0), state.LastCrankTs)
	})

	t.Run("no profit below the baseline", func(t *testing.T) {
		f := newFixture(t, 2000)
		f.books.SetBalance(f.engine.VaultAddress(), 1500)
		f.clock.Advance(CrankIntervalSecs)

		_, err := f.engine.Crank(nil, nil)
		assert.ErrorIs(t, err, ErrNoProfit)
	})
}

func TestCrankSuccess(t *testing.T) {
	// Worked scenario: baseline 1000, deposit 500, swap yields 1000 tokens.
	f := newFixture(t, 1000)
	f.deposit(t, 500)
	f.venue.tokensOut = 1000
	f.clock.Advance(CrankIntervalSecs)

	event, err := f.engine.Crank([]byte{0x01}, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(500), event.ProfitLamports)
	assert.Equal(t, uint64(800), event.BurnAmount)
	assert.Equal(t, uint64(200), event.LockAmount)

	// Vault SOL balance returns to the baseline once the wrap is consumed.
	assert.Equal(t, uint64(1000), f.books.Balance(f.engine.VaultAddress()))

	burnAccount, err := f.books.EnsureAccount(f.mint, f.burnAddress)
	require.NoError(t, err)
	timelockAccount, err := f.books.EnsureAccount(f.mint, f.engine.TimelockAuthority())
	require.NoError(t, err)
	assert.Equal(t, uint64(800), f.books.TokenBalance(burnAccount))
	assert.Equal(t, uint64(200), f.books.TokenBalance(timelockAccount))
	assert.Equal(t, burnAccount, event.BurnAddress)
	assert.Equal(t, timelockAccount, event.TimelockAccount)

	state, err := f.engine.State()
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), state.LastCrankTs)
	assert.Equal(t, f.clock.Now()+TimelockSecs, state.TimelockUnlockTs)
}

func TestCrankSplitTruncation(t *testing.T) {
	f := newFixture(t, 1000)
	f.deposit(t, 500)
	f.venue.tokensOut = 999
	f.clock.Advance(CrankIntervalSecs)

	event, err := f.engine.Crank(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(799), event.BurnAmount)
	assert.Equal(t, uint64(199), event.LockAmount)
	assert.LessOrEqual(t, event.BurnAmount+event.LockAmount, uint64(999))
	assert.Equal(t, uint64(1), event.Dust(999))

	// Dust stays in the vault token account for the next cycle to sweep.
	vaultToken, err := f.books.EnsureAccount(f.mint, f.engine.StateAddress())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.books.TokenBalance(vaultToken))
}

func TestCrankNoTokensRollsBack(t *testing.T) {
	f := newFixture(t, 1000)
	f.deposit(t, 500)
	f.venue.tokensOut = 0
	f.clock.Advance(CrankIntervalSecs)

	_, err := f.engine.Crank(nil, nil)
	assert.ErrorIs(t, err, ErrNoTokens)

	// Every balance restored: the wrap and the venue's spend are undone.
	assert.Equal(t, uint64(1500), f.books.Balance(f.engine.VaultAddress()))

	state, err := f.engine.State()
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.LastCrankTs)
	assert.Equal(t, int64(0), state.TimelockUnlockTs)
}

func TestCrankVenueFailureRollsBack(t *testing.T) {
	f := newFixture(t, 1000)
	f.deposit(t, 500)
	venueErr := errors.New("route expired")
	f.venue.failWith = venueErr
	f.clock.Advance(CrankIntervalSecs)

	_, err := f.engine.Crank(nil, nil)
	assert.ErrorIs(t, err, venueErr)
	assert.Equal(t, uint64(1500), f.books.Balance(f.engine.VaultAddress()))
}

func TestCrankResidueCountsAsProfitNextCycle(t *testing.T) {
	// The venue leaves 100 lamports wrapped; closing the wsol account returns
	// them to the vault, where the immutable baseline counts them as profit
	// again on the next crank.
	f := newFixture(t, 1000)
	f.deposit(t, 500)
	f.venue.tokensOut = 1000
	f.venue.residue = 100
	f.clock.Advance(CrankIntervalSecs)

	_, err := f.engine.Crank(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1100), f.books.Balance(f.engine.VaultAddress()))

	f.venue.residue = 0
	f.clock.Advance(CrankIntervalSecs)
	event, err := f.engine.Crank(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), event.ProfitLamports)
}

func TestUnlock(t *testing.T) {
	t.Run("fails one second before maturity", func(t *testing.T) {
		f := crankedFixture(t)

		state, err := f.engine.State()
		require.NoError(t, err)
		f.clock.unix = state.TimelockUnlockTs - 1

		_, err = f.engine.Unlock(destinationAccount(t, f))
		assert.ErrorIs(t, err, ErrTimelockActive)
	})

	t.Run("drains everything at exactly the unlock timestamp", func(t *testing.T) {
		f := crankedFixture(t)

		state, err := f.engine.State()
		require.NoError(t, err)
		f.clock.unix = state.TimelockUnlockTs

		dest := destinationAccount(t, f)
		amount, err := f.engine.Unlock(dest)
		require.NoError(t, err)
		assert.Equal(t, uint64(200), amount)
		assert.Equal(t, uint64(200), f.books.TokenBalance(dest))

		timelockAccount, err := f.books.EnsureAccount(f.mint, f.engine.TimelockAuthority())
		require.NoError(t, err)
		assert.Equal(t, uint64(0), f.books.TokenBalance(timelockAccount))
	})

	t.Run("repeat unlock releases whatever accumulated", func(t *testing.T) {
		f := crankedFixture(t)

		state, err := f.engine.State()
		require.NoError(t, err)
		f.clock.unix = state.TimelockUnlockTs

		dest := destinationAccount(t, f)
		_, err = f.engine.Unlock(dest)
		require.NoError(t, err)

		amount, err := f.engine.Unlock(dest)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), amount)
	})
}

func TestCrankResetsUnlockClockUnconditionally(t *testing.T) {
	f := crankedFixture(t)

	firstState, err := f.engine.State()
	require.NoError(t, err)

	f.deposit(t, 500)
	f.venue.tokensOut = 1000
	f.clock.Advance(CrankIntervalSecs)

	_, err = f.engine.Crank(nil, nil)
	require.NoError(t, err)

	secondState, err := f.engine.State()
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now()+TimelockSecs, secondState.TimelockUnlockTs)
	assert.Greater(t, secondState.TimelockUnlockTs, firstState.TimelockUnlockTs)
}

func TestLoadEngine(t *testing.T) {
	f := crankedFixture(t)
	state, err := f.engine.State()
	require.NoError(t, err)

	reloaded, err := LoadEngine(Books{
		Ledger: f.books,
		Tokens: f.books.TokenLedger(),
		Venue:  f.venue,
		Clock:  f.clock,
	}, f.books, state)
	require.NoError(t, err)

	assert.Equal(t, f.engine.StateAddress(), reloaded.StateAddress())
	assert.Equal(t, f.engine.VaultAddress(), reloaded.VaultAddress())
	assert.Equal(t, f.engine.TimelockAuthority(), reloaded.TimelockAuthority())

	// The reloaded engine enforces the same gates.
	_, err = reloaded.Crank(nil, nil)
	assert.ErrorIs(t, err, ErrCrankTooSoon)
}

// crankedFixture runs one successful crank: 500 profit, 1000 tokens out.
func crankedFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, 1000)
	f.deposit(t, 500)
	f.venue.tokensOut = 1000
	f.clock.Advance(CrankIntervalSecs)
	_, err := f.engine.Crank(nil, nil)
	require.NoError(t, err)
	return f
}

func destinationAccount(t *testing.T, f *fixture) solana.PublicKey {
	t.Helper()
	dest, err := f.books.EnsureAccount(f.mint, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	return dest
}
