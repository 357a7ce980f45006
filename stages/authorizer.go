package stages

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/defistate/token-launcher-go/launch"
	"github.com/defistate/token-launcher-go/protocols/token"
	"github.com/ethereum/go-ethereum/common"
)

// Authorizer lets the pool manager move the deployed token: it first adds the
// manager to the token's spender whitelist, then approves it.
type Authorizer struct {
	protocol *Protocol
	token    *token.Token
	spender  common.Address
	logger   *slog.Logger
}

// NewAuthorizer creates an authorizer for spender.
func NewAuthorizer(protocol *Protocol, tok *token.Token, spender common.Address, logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{protocol: protocol, token: tok, spender: spender, logger: logger}
}

// Spender returns the address being authorized.
func (a *Authorizer) Spender() common.Address {
	return a.spender
}

// Whitelist runs addWhitelistedSpender on the deployed token.
func (a *Authorizer) Whitelist(ctx context.Context, tokenAddr common.Address, h Hooks) (*launch.Receipt, *launch.StageError) {
	data, err := a.token.WhitelistData(a.spender)
	if err != nil {
		return nil, launch.NewStageError(launch.StageWhitelist, launch.KindPreflightRejection, err)
	}
	receipt, stageErr := a.protocol.Run(ctx, launch.StageWhitelist, launch.Call{To: &tokenAddr, Data: data}, h)
	if stageErr != nil {
		return nil, stageErr
	}
	a.logger.Info("Spender whitelisted", "token", tokenAddr, "spender", a.spender, "tx_hash", receipt.TxHash)
	return receipt, nil
}

// Approve grants the spender an allowance of amount. Callers must only invoke it
// after Whitelist is confirmed.
func (a *Authorizer) Approve(ctx context.Context, tokenAddr common.Address, amount *big.Int, h Hooks) (*launch.Receipt, *launch.StageError) {
	data, err := a.token.ApproveData(a.spender, amount)
	if err != nil {
		return nil, launch.NewStageError(launch.StageApprove, launch.KindPreflightRejection, err)
	}
	receipt, stageErr := a.protocol.Run(ctx, launch.StageApprove, launch.Call{To: &tokenAddr, Data: data}, h)
	if stageErr != nil {
		return nil, stageErr
	}
	a.logger.Info("Spender approved", "token", tokenAddr, "spender", a.spender, "amount", amount, "tx_hash", receipt.TxHash)
	return receipt, nil
}
