package utils

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

const (
	jupiterQuoteURL  = "https://lite-api.jup.ag/swap/v1/quote"
	jupiterSwapIxURL = "https://lite-api.jup.ag/swap/v1/swap-instructions"
)

// JupiterQuoteResponse represents the response structure from Jupiter API
type JupiterQuoteResponse struct {
	InputMint            string      `json:"inputMint"`
	InAmount             string      `json:"inAmount"`
	OutputMint           string      `json:"outputMint"`
	OutAmount            string      `json:"outAmount"`
	OtherAmountThreshold string      `json:"otherAmountThreshold"`
	SwapMode             string      `json:"swapMode"`
	SlippageBps          int         `json:"slippageBps"`
	PlatformFee          any         `json:"platformFee"`
	PriceImpactPct       string      `json:"priceImpactPct"`
	RoutePlan            []RoutePlan `json:"routePlan"`
	ContextSlot          int         `json:"contextSlot"`
	TimeTaken            float64     `json:"timeTaken"`
	SwapUsdValue         string      `json:"swapUsdValue"`
}

// RoutePlan represents a route plan in the Jupiter response
type RoutePlan struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  int      `json:"percent"`
	Bps      int      `json:"bps"`
}

// SwapInfo represents swap information in a route plan
type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount"`
	FeeMint    string `json:"feeMint"`
}

// GetSwapQuote retrieves a swap quote from Jupiter API
func GetSwapQuote(inputMint, outputMint, amount string, slippageBps int, restrictIntermediateTokens ...bool) (*JupiterQuoteResponse, error) {
	amountFloat, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}

	// Amounts this small cannot route; return an empty quote
	if amountFloat <= 100 {
		return &JupiterQuoteResponse{
			InputMint:            inputMint,
			InAmount:             amount,
			OutputMint:           outputMint,
			OutAmount:            "0",
			OtherAmountThreshold: "0",
			SwapMode:             "ExactIn",
			SlippageBps:          slippageBps,
			PriceImpactPct:       "0",
			RoutePlan:            []RoutePlan{},
			SwapUsdValue:         "0",
		}, nil
	}

	restrict := true
	if len(restrictIntermediateTokens) > 0 {
		restrict = restrictIntermediateTokens[0]
	}

	params := url.Values{}
	params.Add("inputMint", inputMint)
	params.Add("outputMint", outputMint)
	params.Add("amount", amount)
	params.Add("slippageBps", strconv.Itoa(slippageBps))
	params.Add("restrictIntermediateTokens", strconv.FormatBool(restrict))

	fullURL := fmt.Sprintf("%s?%s", jupiterQuoteURL, params.Encode())

	resp, err := http.Get(fullURL)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP request failed with status: %d", resp.StatusCode)
	}

	var quoteResponse JupiterQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quoteResponse); err != nil {
		return nil, fmt.Errorf("failed to decode JSON response: %w", err)
	}

	return &quoteResponse, nil
}

// jupiterAccountMeta is the account encoding Jupiter uses in swap-instructions responses
type jupiterAccountMeta struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type jupiterInstruction struct {
	ProgramID string               `json:"programId"`
	Accounts  []jupiterAccountMeta `json:"accounts"`
	Data      string               `json:"data"`
}

type jupiterSwapInstructionsResponse struct {
	SwapInstruction     jupiterInstruction `json:"swapInstruction"`
	AddressLookupTables []string           `json:"addressLookupTableAddresses"`
	ComputeUnitLimit    int                `json:"computeUnitLimit"`
	Error               string             `json:"error"`
}

// SwapRoute is a resolved Jupiter swap ready to be forwarded to the router
// program: the raw instruction data plus the accounts the route touches.
type SwapRoute struct {
	ProgramID        solana.PublicKey
	InstructionData  []byte
	Accounts         []*solana.AccountMeta
	ExpectedOut      uint64
	ComputeUnitLimit int
}

// GetSwapInstructions asks Jupiter to build the swap instruction for a quote.
// The taker is the authority that owns the input token account; Jupiter marks
// it as the signer in the returned account list.
func GetSwapInstructions(quote *JupiterQuoteResponse, taker string) (*SwapRoute, error) {
	payload := map[string]any{
		"quoteResponse":     quote,
		"userPublicKey":     taker,
		"wrapAndUnwrapSol":  false,
		"useSharedAccounts": false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal swap request: %w", err)
	}

	resp, err := http.Post(jupiterSwapIxURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP request failed with status: %d", resp.StatusCode)
	}

	var swapResp jupiterSwapInstructionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&swapResp); err != nil {
		return nil, fmt.Errorf("failed to decode JSON response: %w", err)
	}
	if swapResp.Error != "" {
		return nil, fmt.Errorf("jupiter swap-instructions error: %s", swapResp.Error)
	}

	programID, err := solana.PublicKeyFromBase58(swapResp.SwapInstruction.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("invalid program id in swap instruction: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(swapResp.SwapInstruction.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode instruction data: %w", err)
	}

	accounts := make([]*solana.AccountMeta, 0, len(swapResp.SwapInstruction.Accounts))
	for _, acc := range swapResp.SwapInstruction.Accounts {
		pubkey, err := solana.PublicKeyFromBase58(acc.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("invalid account %s in swap instruction: %w", acc.Pubkey, err)
		}
		accounts = append(accounts, &solana.AccountMeta{
			PublicKey:  pubkey,
			IsSigner:   acc.IsSigner,
			IsWritable: acc.IsWritable,
		})
	}

	expectedOut, err := strconv.ParseUint(quote.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse quote outAmount: %w", err)
	}

	return &SwapRoute{
		ProgramID:        programID,
		InstructionData:  data,
		Accounts:         accounts,
		ExpectedOut:      expectedOut,
		ComputeUnitLimit: swapResp.ComputeUnitLimit,
	}, nil
}

// token price cache (in-memory)
type tokenPriceCacheEntry struct {
	price     decimal.Decimal
	updatedAt time.Time
}

var (
	tokenPriceCache   = make(map[string]tokenPriceCacheEntry)
	tokenPriceCacheMu sync.RWMutex
)

// GetTokenPrice retrieves the price of a token in SOL
// Returns: price, useCached, error
func GetTokenPrice(mint string) (decimal.Decimal, bool, error) {
	solMint := solana.WrappedSol.String()
	if mint == solMint {
		return decimal.NewFromInt(1), false, nil
	}

	// Quote 1e12 raw tokens against SOL and derive the unit price
	quote, err := GetSwapQuote(mint, solMint, "1000000000000", 50)
	if err != nil {
		tokenPriceCacheMu.RLock()
		entry, ok := tokenPriceCache[mint]
		tokenPriceCacheMu.RUnlock()
		if ok {
			return entry.price, true, nil
		}
		return decimal.Zero, false, fmt.Errorf("failed to get swap quote and no cached price: %w", err)
	}

	outAmount, err := decimal.NewFromString(quote.OutAmount)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to parse outAmount: %w", err)
	}

	// outAmount is lamports for 1e12 raw tokens (1e6 whole tokens at 6
	// decimals), so price per token in SOL is outAmount / 1e15
	tokenPrice := outAmount.Shift(-15)

	tokenPriceCacheMu.Lock()
	tokenPriceCache[mint] = tokenPriceCacheEntry{
		price:     tokenPrice,
		updatedAt: time.Now(),
	}
	tokenPriceCacheMu.Unlock()

	return tokenPrice, false, nil
}
