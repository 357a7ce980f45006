package launch

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Call is an unsigned contract call. A nil To denotes contract creation.
type Call struct {
	To    *common.Address `json:"to,omitempty"`
	Data  hexutil.Bytes   `json:"data"`
	Value *big.Int        `json:"value,omitempty"`
}

// TxHandle identifies a submitted transaction. It is persisted before the
// confirmation wait so that an interrupted wait can be resumed without
// resubmitting.
type TxHandle struct {
	Hash        common.Hash    `json:"hash"`
	From        common.Address `json:"from"`
	Nonce       uint64         `json:"nonce"`
	Gas         uint64         `json:"gas"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// Receipt is the confirmed inclusion of a transaction.
type Receipt struct {
	TxHash          common.Hash    `json:"tx_hash"`
	BlockNumber     uint64         `json:"block_number"`
	BlockHash       common.Hash    `json:"block_hash"`
	ContractAddress common.Address `json:"contract_address"`
	GasUsed         uint64         `json:"gas_used"`
}

// ChainClient is the boundary to the remote ledger. Every method may block on a
// network round trip. Submit is not idempotent: a transaction may land even when
// the caller never observes its confirmation.
type ChainClient interface {
	// EstimateGas simulates call. A failure means the call is malformed or would
	// revert; nothing is broadcast.
	EstimateGas(ctx context.Context, call Call) (uint64, error)

	// Submit signs call with the client's account and broadcasts it with the given
	// gas limit.
	Submit(ctx context.Context, call Call, gas uint64) (TxHandle, error)

	// AwaitConfirmation blocks until the transaction is included at the given
	// depth. It returns ErrConfirmationTimeout when the bound is exceeded and a
	// *RevertError when the transaction was included but failed.
	AwaitConfirmation(ctx context.Context, tx TxHandle, confirmations uint64) (*Receipt, error)

	// CallContract executes a read-only call against the latest state.
	CallContract(ctx context.Context, call Call) ([]byte, error)

	// Account is the address transactions are signed with.
	Account() common.Address
}
