package stages

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"github.com/defistate/token-launcher-go/launch"
	"github.com/defistate/token-launcher-go/protocols/token"
	"github.com/ethereum/go-ethereum/common"
)

var errNoContractAddress = errors.New("receipt carries no contract address")

// Deployer creates the token contract. The constructor mints the total supply to
// the signing account.
type Deployer struct {
	protocol     *Protocol
	token        *token.Token
	verifySupply bool
	logger       *slog.Logger
}

// NewDeployer creates a deployer. With verifySupply the deployer balance is read
// after confirmation.
func NewDeployer(protocol *Protocol, tok *token.Token, verifySupply bool, logger *slog.Logger) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deployer{protocol: protocol, token: tok, verifySupply: verifySupply, logger: logger}
}

// Deploy runs the deploy stage for req.
func (d *Deployer) Deploy(ctx context.Context, req *launch.LaunchRequest, h Hooks) (*launch.TokenDeploymentResult, *launch.StageError) {
	data, err := d.token.DeployData(req.TokenName, req.Symbol, req.Decimals, req.TotalSupply)
	if err != nil {
		return nil, launch.NewStageError(launch.StageDeploy, launch.KindPreflightRejection, err)
	}

	receipt, stageErr := d.protocol.Run(ctx, launch.StageDeploy, launch.Call{Data: data}, h)
	if stageErr != nil {
		return nil, stageErr
	}
	if receipt.ContractAddress == (common.Address{}) {
		stageErr := launch.NewStageError(launch.StageDeploy, launch.KindRevert, &launch.RevertError{Reason: errNoContractAddress.Error()})
		hash := receipt.TxHash
		stageErr.TxHash = &hash
		return nil, stageErr
	}

	result := &launch.TokenDeploymentResult{
		DeployedAddress: receipt.ContractAddress,
		TransactionHash: receipt.TxHash,
		ConfirmedBlock:  receipt.BlockNumber,
		Deployer:        d.protocol.Client().Account(),
	}
	if d.verifySupply {
		result.MintedBalance = d.mintedBalance(ctx, result, req)
	}

	d.logger.Info("Token deployed",
		"token", result.DeployedAddress,
		"tx_hash", result.TransactionHash,
		"block_number", result.ConfirmedBlock,
	)
	return result, nil
}

// mintedBalance reads the deployer balance. A failed read or a mismatch is
// logged and never fails the stage.
func (d *Deployer) mintedBalance(ctx context.Context, result *launch.TokenDeploymentResult, req *launch.LaunchRequest) *big.Int {
	data, err := d.token.BalanceOfData(result.Deployer)
	if err != nil {
		d.logger.Warn("Supply verification skipped", "error", err)
		return nil
	}
	to := result.DeployedAddress
	out, err := d.protocol.Client().CallContract(ctx, launch.Call{To: &to, Data: data})
	if err != nil {
		d.logger.Warn("Supply verification failed", "token", to, "error", err)
		return nil
	}
	balance, err := d.token.UnpackBalance(out)
	if err != nil {
		d.logger.Warn("Supply verification failed", "token", to, "error", err)
		return nil
	}
	if balance.Cmp(req.TotalSupply) != 0 {
		d.logger.Warn("Minted balance differs from requested supply",
			"token", to,
			"expected", req.TotalSupply,
			"actual", balance,
		)
	}
	return balance
}
