package vault

import (
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
)

// MemBooks is a deterministic in-memory implementation of Ledger, TokenLedger
// and Stager. It backs the engine tests and paper-trading mode. Signatures
// are not verified: the engine is trusted to pass the right capability, the
// same way the program trusts its own derived seeds.
type MemBooks struct {
	mu       sync.Mutex
	lamports map[solana.PublicKey]uint64
	tokens   map[solana.PublicKey]*memTokenAccount
}

type memTokenAccount struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

// NewMemBooks creates empty in-memory books
func NewMemBooks() *MemBooks {
	return &MemBooks{
		lamports: make(map[solana.PublicKey]uint64),
		tokens:   make(map[solana.PublicKey]*memTokenAccount),
	}
}

// SetBalance seeds a native balance, e.g. a depositor's wallet
func (b *MemBooks) SetBalance(addr solana.PublicKey, lamports uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lamports[addr] = lamports
}

// MintTokens credits a token account directly, standing in for a mint
func (b *MemBooks) MintTokens(account solana.PublicKey, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.tokens[account]
	if !ok {
		return fmt.Errorf("token account %s does not exist", account)
	}
	acct.Amount += amount
	return nil
}

// TokenAccount looks up a token account's mint, owner and balance
func (b *MemBooks) TokenAccount(account solana.PublicKey) (mint, owner solana.PublicKey, amount uint64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acct, exists := b.tokens[account]
	if !exists {
		return solana.PublicKey{}, solana.PublicKey{}, 0, false
	}
	return acct.Mint, acct.Owner, acct.Amount, true
}

// Balance implements Ledger
func (b *MemBooks) Balance(addr solana.PublicKey) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lamports[addr]
}

// Transfer implements Ledger
func (b *MemBooks) Transfer(from, to solana.PublicKey, lamports uint64, _ Signer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lamports[from] < lamports {
		return fmt.Errorf("insufficient funds: %s has %d, needs %d", from, b.lamports[from], lamports)
	}
	b.lamports[from] -= lamports
	b.lamports[to] += lamports
	return nil
}

// CreateAccount implements Ledger
func (b *MemBooks) CreateAccount(payer, addr solana.PublicKey, lamports uint64, _ Signer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lamports[payer] < lamports {
		return fmt.Errorf("insufficient funds: payer %s has %d, needs %d", payer, b.lamports[payer], lamports)
	}
	b.lamports[payer] -= lamports
	b.lamports[addr] += lamports
	return nil
}

// EnsureAccount implements TokenLedger using real associated-account derivation
func (b *MemBooks) EnsureAccount(mint, owner solana.PublicKey) (solana.PublicKey, error) {
	address, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated account: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tokens[address]; !ok {
		b.tokens[address] = &memTokenAccount{Mint: mint, Owner: owner}
	}
	return address, nil
}

// TokenBalance is an alias used where the Ledger method name would collide
func (b *MemBooks) TokenBalance(account solana.PublicKey) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if acct, ok := b.tokens[account]; ok {
		return acct.Amount
	}
	return 0
}

// TokenTransfer moves token units between accounts of the same mint
func (b *MemBooks) TokenTransfer(from, to solana.PublicKey, amount uint64, _ Signer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	src, ok := b.tokens[from]
	if !ok {
		return fmt.Errorf("token account %s does not exist", from)
	}
	dst, ok := b.tokens[to]
	if !ok {
		return fmt.Errorf("token account %s does not exist", to)
	}
	if src.Mint != dst.Mint {
		return fmt.Errorf("mint mismatch: %s vs %s", src.Mint, dst.Mint)
	}
	if src.Amount < amount {
		return fmt.Errorf("insufficient token balance: %s has %d, needs %d", from, src.Amount, amount)
	}
	src.Amount -= amount
	dst.Amount += amount
	// Native accounts carry their token balance as lamports; the token
	// program moves those along with the transfer.
	if src.Mint == solana.WrappedSol {
		b.lamports[from] -= amount
		b.lamports[to] += amount
	}
	return nil
}

// SyncNative reconciles a wrapped-SOL account's token balance with the raw
// lamports sitting on it, mirroring the sync_native token instruction.
func (b *MemBooks) SyncNative(account solana.PublicKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.tokens[account]
	if !ok {
		return fmt.Errorf("token account %s does not exist", account)
	}
	if acct.Mint != solana.WrappedSol {
		return fmt.Errorf("sync_native on non-native account %s", account)
	}
	acct.Amount = b.lamports[account]
	return nil
}

// Close implements TokenLedger: all lamports on the account, reserve and
// unconverted residue alike, return to the destination.
func (b *MemBooks) Close(account, destination solana.PublicKey, _ Signer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tokens[account]; !ok {
		return fmt.Errorf("token account %s does not exist", account)
	}
	b.lamports[destination] += b.lamports[account]
	delete(b.lamports, account)
	delete(b.tokens, account)
	return nil
}

// Checkpoint implements Stager with a full copy-and-restore of both maps
func (b *MemBooks) Checkpoint() func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	lamports := make(map[solana.PublicKey]uint64, len(b.lamports))
	for k, v := range b.lamports {
		lamports[k] = v
	}
	tokens := make(map[solana.PublicKey]*memTokenAccount, len(b.tokens))
	for k, v := range b.tokens {
		copied := *v
		tokens[k] = &copied
	}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.lamports = lamports
		b.tokens = tokens
	}
}

// tokenLedgerView adapts MemBooks to the TokenLedger interface, renaming the
// balance/transfer methods that would otherwise collide with Ledger's.
type tokenLedgerView struct {
	books *MemBooks
}

func (v tokenLedgerView) Balance(account solana.PublicKey) uint64 {
	return v.books.TokenBalance(account)
}

func (v tokenLedgerView) EnsureAccount(mint, owner solana.PublicKey) (solana.PublicKey, error) {
	return v.books.EnsureAccount(mint, owner)
}

func (v tokenLedgerView) Transfer(from, to solana.PublicKey, amount uint64, authority Signer) error {
	return v.books.TokenTransfer(from, to, amount, authority)
}

func (v tokenLedgerView) SyncNative(account solana.PublicKey) error {
	return v.books.SyncNative(account)
}

func (v tokenLedgerView) Close(account, destination solana.PublicKey, authority Signer) error {
	return v.books.Close(account, destination, authority)
}

// TokenLedger returns the TokenLedger view of the in-memory books
func (b *MemBooks) TokenLedger() TokenLedger {
	return tokenLedgerView{books: b}
}

// SystemClock reads the host wall clock
type SystemClock struct{}

// Now implements Clock
func (SystemClock) Now() int64 {
	return time.Now().Unix()
}
