// Package uniswapv4 binds the pool manager's initialize entry point.
package uniswapv4

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/defistate/token-launcher-go/protocols/poolregistry"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Q96 is 2^96, the fixed-point scale of sqrtPriceX96.
var Q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// SqrtPriceX96One encodes a 1:1 price: round(sqrt(1) * 2^96).
var SqrtPriceX96One = new(big.Int).Set(Q96)

// Price bounds accepted by initialize: [MinSqrtPrice, MaxSqrtPrice).
var (
	MinSqrtPrice    = big.NewInt(4295128739)
	MaxSqrtPrice, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)
)

const errorsABI = `
	{"type":"error","name":"PoolAlreadyInitialized","inputs":[]},
	{"type":"error","name":"CurrenciesOutOfOrderOrEqual","inputs":[
		{"name":"currency0","type":"address"},{"name":"currency1","type":"address"}]},
	{"type":"error","name":"TickSpacingTooLarge","inputs":[{"name":"tickSpacing","type":"int24"}]},
	{"type":"error","name":"TickSpacingTooSmall","inputs":[{"name":"tickSpacing","type":"int24"}]},
	{"type":"error","name":"LPFeeTooLarge","inputs":[{"name":"fee","type":"uint24"}]},
	{"type":"error","name":"InvalidSqrtPrice","inputs":[{"name":"sqrtPriceX96","type":"uint160"}]},
	{"type":"error","name":"HookAddressNotValid","inputs":[{"name":"hooks","type":"address"}]},
	{"type":"error","name":"ManagerLocked","inputs":[]}`

const poolKeyTuple = `{"name":"key","type":"tuple","components":[
	{"name":"currency0","type":"address"},
	{"name":"currency1","type":"address"},
	{"name":"fee","type":"uint24"},
	{"name":"tickSpacing","type":"int24"},
	{"name":"hooks","type":"address"}]}`

// HookDataABI is the initialize signature that forwards hook data.
const HookDataABI = `[
	{"type":"function","name":"initialize","stateMutability":"nonpayable","inputs":[` + poolKeyTuple + `,
		{"name":"sqrtPriceX96","type":"uint160"},
		{"name":"hookData","type":"bytes"}],
		"outputs":[{"name":"tick","type":"int24"}]},` + errorsABI + `]`

// ABI is the initialize signature without hook data.
const ABI = `[
	{"type":"function","name":"initialize","stateMutability":"nonpayable","inputs":[` + poolKeyTuple + `,
		{"name":"sqrtPriceX96","type":"uint160"}],
		"outputs":[{"name":"tick","type":"int24"}]},` + errorsABI + `]`

// abiPoolKey mirrors the PoolKey tuple for ABI packing.
type abiPoolKey struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         *big.Int
	TickSpacing *big.Int
	Hooks       common.Address
}

// PoolManager packs calls for a pool manager deployment.
type PoolManager struct {
	address      common.Address
	abi          abi.ABI
	withHookData bool
}

// NewPoolManager creates a binding for the pool manager at address. withHookData
// selects initialize(key, sqrtPriceX96, hookData) over initialize(key, sqrtPriceX96).
func NewPoolManager(address common.Address, withHookData bool) *PoolManager {
	src := ABI
	if withHookData {
		src = HookDataABI
	}
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic(fmt.Sprintf("uniswapv4: invalid pool manager ABI: %v", err))
	}
	return &PoolManager{address: address, abi: parsed, withHookData: withHookData}
}

// Address returns the pool manager contract address.
func (p *PoolManager) Address() common.Address {
	return p.address
}

// ABI returns the parsed contract ABI.
func (p *PoolManager) ABI() abi.ABI {
	return p.abi
}

// InitializeData packs initialize for a canonical key. Hook data is dropped by
// bindings without the hookData parameter.
func (p *PoolManager) InitializeData(key poolregistry.PoolKey, sqrtPriceX96 *big.Int, hookData []byte) ([]byte, error) {
	if !key.IsCanonical() {
		return nil, fmt.Errorf("pool key is not canonical: %s", key)
	}
	tuple := abiPoolKey{
		Currency0:   key.Currency0,
		Currency1:   key.Currency1,
		Fee:         new(big.Int).SetUint64(uint64(key.Fee)),
		TickSpacing: big.NewInt(int64(key.TickSpacing)),
		Hooks:       key.Hooks,
	}
	if p.withHookData {
		if hookData == nil {
			hookData = []byte{}
		}
		return p.abi.Pack("initialize", tuple, sqrtPriceX96, hookData)
	}
	return p.abi.Pack("initialize", tuple, sqrtPriceX96)
}
