// Package ethereum implements the launch chain client over a JSON-RPC node.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/defistate/token-launcher-go/launch"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sethvargo/go-retry"
)

// Constants for dial and polling behaviour.
const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second
	maxDialDuration       = 2 * time.Minute

	DefaultPollInterval        = 2 * time.Second
	DefaultConfirmationTimeout = 3 * time.Minute
	DefaultGasBufferPercent    = 20
)

var errNotDeepEnough = errors.New("receipt not at required depth")

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Backend is the subset of *ethclient.Client the client needs.
type Backend interface {
	ethereum.ContractCaller
	ethereum.GasEstimator
	ethereum.TransactionSender
	ethereum.TransactionReader
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Config holds the configuration for the client.
type Config struct {
	ChainID    *big.Int
	PrivateKey *ecdsa.PrivateKey
	Logger     Logger
	Decoder    *RevertDecoder
	// GasBufferPercent is added on top of every gas estimate.
	GasBufferPercent uint64
	// PollInterval is the delay between receipt lookups.
	PollInterval time.Duration
	// ConfirmationTimeout bounds a single AwaitConfirmation call.
	ConfirmationTimeout time.Duration
}

// validate checks if the configuration is valid and fills defaults.
func (c *Config) validate() error {
	if c.ChainID == nil || c.ChainID.Sign() <= 0 {
		return errors.New("config: ChainID is required")
	}
	if c.PrivateKey == nil {
		return errors.New("config: PrivateKey is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Decoder == nil {
		c.Decoder = NewRevertDecoder()
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ConfirmationTimeout <= 0 {
		c.ConfirmationTimeout = DefaultConfirmationTimeout
	}
	return nil
}

// Client signs and submits launch transactions from a single account. It
// implements launch.ChainClient.
type Client struct {
	backend Backend
	signer  types.Signer
	key     *ecdsa.PrivateKey
	from    common.Address
	decoder *RevertDecoder
	logger  Logger

	gasBufferPercent    uint64
	pollInterval        time.Duration
	confirmationTimeout time.Duration

	// submitMu serializes nonce selection and broadcast.
	submitMu sync.Mutex
}

var _ launch.ChainClient = (*Client)(nil)

// NewClient creates a client over an existing backend.
func NewClient(backend Backend, cfg Config) (*Client, error) {
	if backend == nil {
		return nil, errors.New("config: Backend is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Client{
		backend:             backend,
		signer:              types.LatestSignerForChainID(cfg.ChainID),
		key:                 cfg.PrivateKey,
		from:                crypto.PubkeyToAddress(cfg.PrivateKey.PublicKey),
		decoder:             cfg.Decoder,
		logger:              cfg.Logger,
		gasBufferPercent:    cfg.GasBufferPercent,
		pollInterval:        cfg.PollInterval,
		confirmationTimeout: cfg.ConfirmationTimeout,
	}, nil
}

// Dial connects to the node at url, retrying with exponential backoff, and
// checks that it serves cfg.ChainID.
func Dial(ctx context.Context, url string, cfg Config) (*Client, *ethclient.Client, error) {
	if url == "" {
		return nil, nil, errors.New("config: URL is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}

	backoff := retry.WithMaxDuration(maxDialDuration,
		retry.WithCappedDuration(maxReconnectDelay, retry.NewExponential(initialReconnectDelay)))

	var eth *ethclient.Client
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		cfg.Logger.Info("Attempting to connect to RPC server", "url", url)
		rpcClient, err := rpc.DialContext(ctx, url)
		if err != nil {
			cfg.Logger.Error("Failed to connect to RPC server, will retry...", "error", err)
			return retry.RetryableError(err)
		}
		c := ethclient.NewClient(rpcClient)
		id, err := c.ChainID(ctx)
		if err != nil {
			c.Close()
			cfg.Logger.Error("Failed to query chain id, will retry...", "error", err)
			return retry.RetryableError(err)
		}
		if id.Cmp(cfg.ChainID) != 0 {
			c.Close()
			return fmt.Errorf("node serves chain %s, configured %s", id, cfg.ChainID)
		}
		eth = c
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", url, err)
	}

	cfg.Logger.Info("Successfully connected to RPC server.", "chain_id", cfg.ChainID)
	client, err := NewClient(eth, cfg)
	if err != nil {
		eth.Close()
		return nil, nil, err
	}
	return client, eth, nil
}

// Account returns the signing address.
func (c *Client) Account() common.Address {
	return c.from
}

func (c *Client) callMsg(call launch.Call) ethereum.CallMsg {
	return ethereum.CallMsg{
		From:  c.from,
		To:    call.To,
		Data:  call.Data,
		Value: call.Value,
	}
}

// EstimateGas simulates call from the signing account. The returned limit
// includes the configured buffer. A simulated revert is returned as a
// *launch.RevertError.
func (c *Client) EstimateGas(ctx context.Context, call launch.Call) (uint64, error) {
	gas, err := c.backend.EstimateGas(ctx, c.callMsg(call))
	if err != nil {
		if revert := c.decoder.FromError(err); revert != nil {
			return 0, fmt.Errorf("estimate gas: %w", revert)
		}
		return 0, fmt.Errorf("estimate gas: %w", err)
	}
	return gas + gas*c.gasBufferPercent/100, nil
}

// Submit signs call as an EIP-1559 transaction and broadcasts it. Submissions
// from one client never race for a nonce.
func (c *Client) Submit(ctx context.Context, call launch.Call, gas uint64) (launch.TxHandle, error) {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return launch.TxHandle{}, fmt.Errorf("pending nonce: %w", err)
	}
	tip, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return launch.TxHandle{}, fmt.Errorf("suggest tip cap: %w", err)
	}
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return launch.TxHandle{}, fmt.Errorf("latest header: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	tx, err := types.SignNewTx(c.key, c.signer, &types.DynamicFeeTx{
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        call.To,
		Value:     value,
		Data:      call.Data,
	})
	if err != nil {
		return launch.TxHandle{}, fmt.Errorf("sign transaction: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, tx); err != nil {
		return launch.TxHandle{}, fmt.Errorf("send transaction: %w", err)
	}

	c.logger.Info("Transaction submitted", "tx_hash", tx.Hash(), "nonce", nonce, "gas", gas)
	return launch.TxHandle{
		Hash:        tx.Hash(),
		From:        c.from,
		Nonce:       nonce,
		Gas:         gas,
		SubmittedAt: time.Now(),
	}, nil
}

// AwaitConfirmation polls for the receipt of tx until it is buried under the
// requested number of blocks or the confirmation timeout passes.
func (c *Client) AwaitConfirmation(ctx context.Context, tx launch.TxHandle, confirmations uint64) (*launch.Receipt, error) {
	if confirmations == 0 {
		confirmations = 1
	}
	ctx, cancel := context.WithTimeout(ctx, c.confirmationTimeout)
	defer cancel()

	var receipt *types.Receipt
	err := retry.Do(ctx, retry.NewConstant(c.pollInterval), func(ctx context.Context) error {
		r, err := c.backend.TransactionReceipt(ctx, tx.Hash)
		if err != nil {
			if !errors.Is(err, ethereum.NotFound) {
				c.logger.Warn("Receipt lookup failed, will retry...", "tx_hash", tx.Hash, "error", err)
			}
			return retry.RetryableError(err)
		}
		head, err := c.backend.BlockNumber(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		if head+1 < r.BlockNumber.Uint64()+confirmations {
			return retry.RetryableError(errNotDeepEnough)
		}
		receipt = r
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: tx %s: %w", launch.ErrConfirmationTimeout, tx.Hash.Hex(), ctx.Err())
		}
		return nil, err
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return nil, c.replayRevert(context.WithoutCancel(ctx), tx, receipt)
	}

	c.logger.Debug("Transaction confirmed", "tx_hash", tx.Hash, "block_number", receipt.BlockNumber, "gas_used", receipt.GasUsed)
	return &launch.Receipt{
		TxHash:          receipt.TxHash,
		BlockNumber:     receipt.BlockNumber.Uint64(),
		BlockHash:       receipt.BlockHash,
		ContractAddress: receipt.ContractAddress,
		GasUsed:         receipt.GasUsed,
	}, nil
}

// replayRevert re-executes a reverted transaction against its parent block to
// recover the revert payload. Receipts do not carry it.
func (c *Client) replayRevert(ctx context.Context, h launch.TxHandle, receipt *types.Receipt) error {
	tx, _, err := c.backend.TransactionByHash(ctx, h.Hash)
	if err != nil {
		c.logger.Warn("Could not load reverted transaction", "tx_hash", h.Hash, "error", err)
		return &launch.RevertError{Reason: launch.UnknownRevert(nil)}
	}

	var block *big.Int
	if n := receipt.BlockNumber; n != nil && n.Sign() > 0 {
		block = new(big.Int).Sub(n, big.NewInt(1))
	}
	_, err = c.backend.CallContract(ctx, ethereum.CallMsg{
		From:  h.From,
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}, block)
	if err != nil {
		if revert := c.decoder.FromError(err); revert != nil {
			return revert
		}
	}
	return &launch.RevertError{Reason: launch.UnknownRevert(nil)}
}

// CallContract executes a read-only call against the latest block.
func (c *Client) CallContract(ctx context.Context, call launch.Call) ([]byte, error) {
	out, err := c.backend.CallContract(ctx, c.callMsg(call), nil)
	if err != nil {
		if revert := c.decoder.FromError(err); revert != nil {
			return nil, fmt.Errorf("call contract: %w", revert)
		}
		return nil, fmt.Errorf("call contract: %w", err)
	}
	return out, nil
}
