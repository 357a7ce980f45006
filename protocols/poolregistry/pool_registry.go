package poolregistry

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PoolView is the record of a pool initialized by a launch.
type PoolView struct {
	ID           PoolID      `json:"id"`
	Key          PoolKey     `json:"key"`
	SqrtPriceX96 *big.Int    `json:"sqrt_price_x96"`
	TxHash       common.Hash `json:"tx_hash"`
	Block        uint64      `json:"block"`
}
