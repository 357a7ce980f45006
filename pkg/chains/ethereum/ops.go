package ethereum

import (
	"errors"
	"log/slog"

	"github.com/defistate/token-launcher-go/launch"
	"github.com/defistate/token-launcher-go/protocols/token"
	"github.com/defistate/token-launcher-go/protocols/uniswapv4"
	"github.com/defistate/token-launcher-go/stages"
)

// LaunchOps bundles the stage executors of an EVM chain.
//
// It acts as a unified facade over the contracts a launch touches:
// 1. Deployer: creates the token (token binding).
// 2. Authorizer: whitelists and approves the pool manager (token binding).
// 3. PoolInitializer: initializes the pool (pool manager binding).
type LaunchOps struct {
	*stages.Deployer
	*stages.Authorizer
	*stages.PoolInitializer
}

// LaunchOpsConfig holds the collaborators shared by every stage.
type LaunchOpsConfig struct {
	Client        launch.ChainClient
	Token         *token.Token
	PoolManager   *uniswapv4.PoolManager
	Confirmations uint64
	VerifySupply  bool
	Logger        *slog.Logger
}

func NewLaunchOps(cfg LaunchOpsConfig) (*LaunchOps, error) {
	if cfg.Client == nil {
		return nil, errors.New("config: Client is required")
	}
	if cfg.Token == nil {
		return nil, errors.New("config: Token is required")
	}
	if cfg.PoolManager == nil {
		return nil, errors.New("config: PoolManager is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("config: Logger is required")
	}

	protocol := stages.NewProtocol(cfg.Client, cfg.Confirmations, cfg.Logger.With("component", "stage-protocol"))
	return &LaunchOps{
		Deployer:        stages.NewDeployer(protocol, cfg.Token, cfg.VerifySupply, cfg.Logger.With("component", "deployer")),
		Authorizer:      stages.NewAuthorizer(protocol, cfg.Token, cfg.PoolManager.Address(), cfg.Logger.With("component", "authorizer")),
		PoolInitializer: stages.NewPoolInitializer(protocol, cfg.PoolManager, cfg.Logger.With("component", "pool-initializer")),
	}, nil
}

// NewLaunchDecoder decodes reverts of every contract a launch calls.
func NewLaunchDecoder(tok *token.Token, manager *uniswapv4.PoolManager) *RevertDecoder {
	return NewRevertDecoder(tok.ABI(), manager.ABI())
}
