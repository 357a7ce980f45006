package stages

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/defistate/token-launcher-go/launch"
	"github.com/defistate/token-launcher-go/protocols/poolregistry"
	"github.com/defistate/token-launcher-go/protocols/uniswapv4"
)

// PoolInitializer creates the pool on the pool manager.
type PoolInitializer struct {
	protocol *Protocol
	manager  *uniswapv4.PoolManager
	logger   *slog.Logger
}

// NewPoolInitializer creates an initializer for manager.
func NewPoolInitializer(protocol *Protocol, manager *uniswapv4.PoolManager, logger *slog.Logger) *PoolInitializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PoolInitializer{protocol: protocol, manager: manager, logger: logger}
}

// Initialize runs initialize for a canonical key at the given starting price.
func (p *PoolInitializer) Initialize(ctx context.Context, key poolregistry.PoolKey, sqrtPriceX96 *big.Int, hookData []byte, h Hooks) (*poolregistry.PoolView, *launch.StageError) {
	data, err := p.manager.InitializeData(key, sqrtPriceX96, hookData)
	if err != nil {
		return nil, launch.NewStageError(launch.StageInitializePool, launch.KindPreflightRejection, err)
	}

	to := p.manager.Address()
	receipt, stageErr := p.protocol.Run(ctx, launch.StageInitializePool, launch.Call{To: &to, Data: data}, h)
	if stageErr != nil {
		return nil, stageErr
	}

	view := &poolregistry.PoolView{
		ID:           key.ID(),
		Key:          key,
		SqrtPriceX96: new(big.Int).Set(sqrtPriceX96),
		TxHash:       receipt.TxHash,
		Block:        receipt.BlockNumber,
	}
	p.logger.Info("Pool initialized", "pool_id", view.ID, "key", key.String(), "tx_hash", receipt.TxHash)
	return view, nil
}
