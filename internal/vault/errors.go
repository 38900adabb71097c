package vault

import "errors"

// Operation errors. None of these are retryable by the engine itself; callers
// resubmit once the blocking condition has changed.
var (
	// ErrCrankTooSoon: the minimum interval since the last crank has not elapsed
	ErrCrankTooSoon = errors.New("crank is too soon")
	// ErrNoProfit: vault balance does not exceed the starting baseline
	ErrNoProfit = errors.New("no profit available")
	// ErrNoTokens: the swap produced a zero token balance
	ErrNoTokens = errors.New("no tokens to distribute")
	// ErrTimelockActive: unlock attempted before the unlock timestamp
	ErrTimelockActive = errors.New("timelock is still active")

	// ErrAlreadyInitialized: a state record already exists for the mint
	ErrAlreadyInitialized = errors.New("vault already initialized")
	// ErrNotInitialized: operation attempted before Initialize
	ErrNotInitialized = errors.New("vault not initialized")
)
