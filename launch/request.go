// Package launch defines the token launch workflow model: the request, the
// per-stage outcomes, the sealed workflow result, and the chain client boundary.
package launch

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/defistate/token-launcher-go/protocols/poolregistry"
	"github.com/defistate/token-launcher-go/protocols/uniswapv4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// DeployedTokenRef stands in a currency slot for the token deployed by the same
// launch. It is resolved once the Deploy stage is confirmed.
const DeployedTokenRef = "$deployed"

// Protocol bounds for pool parameters.
const (
	MaxLPFee       = 1_000_000
	DynamicFeeFlag = 0x800000
	MinTickSpacing = 1
	MaxTickSpacing = 32767
)

// Metadata is business information collected by the onboarding UI. The workflow
// never interprets it.
type Metadata struct {
	BusinessName string `json:"business_name,omitempty"`
	Description  string `json:"description,omitempty"`
	OwnerWallet  string `json:"owner_wallet,omitempty"`
}

// LaunchRequest is the immutable input of one launch.
type LaunchRequest struct {
	// RequestID is the caller-chosen identity. When empty, Identity derives one
	// from the request contents.
	RequestID string
	Metadata  Metadata

	TokenName string
	Symbol    string
	Decimals  uint8
	// TotalSupply is minted to the deployer, in base units.
	TotalSupply *big.Int
	// LiquidityAmount is the allowance granted to the pool manager. Defaults to
	// TotalSupply.
	LiquidityAmount *big.Int

	// Currencies is the pair to pool, in any order. Either entry may be
	// DeployedTokenRef.
	Currencies  [2]string
	Fee         uint32
	TickSpacing int32
	Hooks       common.Address

	// SqrtPriceX96 is the starting price. Defaults to the 1:1 price.
	SqrtPriceX96 *big.Int
	HookData     []byte
}

// Validate checks every request invariant and reports all violations at once.
func (r *LaunchRequest) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(r.TokenName) == "" {
		add("token_name", "must not be empty")
	}
	if strings.TrimSpace(r.Symbol) == "" {
		add("symbol", "must not be empty")
	}
	if r.TotalSupply == nil || r.TotalSupply.Sign() <= 0 {
		add("total_supply", "must be greater than zero")
	} else if r.TotalSupply.BitLen() > 256 {
		add("total_supply", "exceeds uint256")
	}
	if r.LiquidityAmount != nil {
		switch {
		case r.LiquidityAmount.Sign() <= 0:
			add("liquidity_amount", "must be greater than zero")
		case r.TotalSupply != nil && r.LiquidityAmount.Cmp(r.TotalSupply) > 0:
			add("liquidity_amount", "must not exceed total_supply")
		}
	}

	refs := 0
	for i, c := range r.Currencies {
		field := fmt.Sprintf("currencies[%d]", i)
		switch {
		case c == DeployedTokenRef:
			refs++
		case !common.IsHexAddress(c):
			add(field, "%q is not a hex address", c)
		}
	}
	if refs == 2 {
		add("currencies", "at most one currency may be %s", DeployedTokenRef)
	}
	if refs == 0 && common.IsHexAddress(r.Currencies[0]) && common.IsHexAddress(r.Currencies[1]) &&
		common.HexToAddress(r.Currencies[0]) == common.HexToAddress(r.Currencies[1]) {
		add("currencies", "must differ")
	}

	if r.Fee > MaxLPFee && r.Fee != DynamicFeeFlag {
		add("fee", "must be at most %d or the dynamic fee flag", MaxLPFee)
	}
	if r.TickSpacing < MinTickSpacing || r.TickSpacing > MaxTickSpacing {
		add("tick_spacing", "must be in [%d, %d]", MinTickSpacing, MaxTickSpacing)
	}
	if r.SqrtPriceX96 != nil {
		if r.SqrtPriceX96.Cmp(uniswapv4.MinSqrtPrice) < 0 || r.SqrtPriceX96.Cmp(uniswapv4.MaxSqrtPrice) >= 0 {
			add("sqrt_price_x96", "out of range")
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Liquidity returns the allowance amount for the pool manager.
func (r *LaunchRequest) Liquidity() *big.Int {
	if r.LiquidityAmount != nil {
		return new(big.Int).Set(r.LiquidityAmount)
	}
	return new(big.Int).Set(r.TotalSupply)
}

// StartingPrice returns the requested sqrtPriceX96 or the 1:1 price.
func (r *LaunchRequest) StartingPrice() *big.Int {
	if r.SqrtPriceX96 != nil {
		return new(big.Int).Set(r.SqrtPriceX96)
	}
	return new(big.Int).Set(uniswapv4.SqrtPriceX96One)
}

// ResolveCurrencies substitutes DeployedTokenRef with the deployed address.
// The request must have passed Validate.
func (r *LaunchRequest) ResolveCurrencies(deployed common.Address) (common.Address, common.Address) {
	resolve := func(c string) common.Address {
		if c == DeployedTokenRef {
			return deployed
		}
		return common.HexToAddress(c)
	}
	return resolve(r.Currencies[0]), resolve(r.Currencies[1])
}

// Identity returns RequestID, or a content hash when none was supplied. The hash
// covers every field that influences on-chain effects, with the currency pair
// sorted, so resubmitting the same launch maps to the same identity.
func (r *LaunchRequest) Identity() string {
	if r.RequestID != "" {
		return r.RequestID
	}

	a, b := normalizeCurrency(r.Currencies[0]), normalizeCurrency(r.Currencies[1])
	if a > b {
		a, b = b, a
	}

	var buf bytes.Buffer
	for _, part := range []string{
		r.TokenName,
		r.Symbol,
		fmt.Sprint(r.Decimals),
		bigString(r.TotalSupply),
		bigString(r.Liquidity()),
		a,
		b,
		fmt.Sprint(r.Fee),
		fmt.Sprint(r.TickSpacing),
		strings.ToLower(r.Hooks.Hex()),
		bigString(r.StartingPrice()),
		hexutil.Encode(r.HookData),
	} {
		buf.WriteString(part)
		buf.WriteByte(0)
	}
	return crypto.Keccak256Hash(buf.Bytes()).Hex()
}

func normalizeCurrency(c string) string {
	if c == DeployedTokenRef {
		return c
	}
	return strings.ToLower(common.HexToAddress(c).Hex())
}

func bigString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// PoolKey resolves and canonicalizes the pool key for a deployed token.
func (r *LaunchRequest) PoolKey(deployed common.Address) (poolregistry.PoolKey, error) {
	a, b := r.ResolveCurrencies(deployed)
	return poolregistry.Canonicalize(a, b, r.Fee, r.TickSpacing, r.Hooks)
}
