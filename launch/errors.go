package launch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrorKind classifies a failure by the protocol phase it happened in. The kind
// decides whether chain state may have been mutated and whether a retry is safe.
type ErrorKind string

const (
	// KindValidation: malformed LaunchRequest, caught before any chain call.
	KindValidation ErrorKind = "ValidationError"
	// KindPreflightRejection: gas estimation failed. Nothing was submitted.
	KindPreflightRejection ErrorKind = "PreflightRejection"
	// KindSubmissionFailure: the network rejected the transaction before inclusion.
	KindSubmissionFailure ErrorKind = "SubmissionFailure"
	// KindRevert: the transaction was included but reverted.
	KindRevert ErrorKind = "RevertError"
	// KindTimeout: confirmation was not observed in time. Status unknown.
	KindTimeout ErrorKind = "TimeoutError"
	// KindPartialAuthorization: whitelist confirmed but approve failed.
	KindPartialAuthorization ErrorKind = "PartialAuthorizationError"
	// KindInternal: the launcher itself failed, for example while persisting a
	// confirmed stage.
	KindInternal ErrorKind = "InternalError"
)

// MutationUnknown reports whether a failure of this kind leaves the on-chain
// effect of the failed call undetermined.
func (k ErrorKind) MutationUnknown() bool {
	return k == KindTimeout
}

// ErrConfirmationTimeout is returned by a ChainClient when a submitted
// transaction is not observed at the required depth within the configured bound.
var ErrConfirmationTimeout = errors.New("confirmation timeout")

// ErrSubmissionNotRecorded marks a failure after a broadcast transaction could
// not be written to the launch history. A re-run cannot tell the transaction was
// sent.
var ErrSubmissionNotRecorded = errors.New("submission not recorded")

// RevertError is returned by a ChainClient when a call reverts, either during
// gas estimation or after inclusion.
type RevertError struct {
	// Reason is the decoded revert reason. It is never empty: undecodable data is
	// reported as UnknownRevert.
	Reason string
	// Data is the raw revert payload, if the node returned one.
	Data []byte
}

// UnknownRevert builds the detail reported for revert data that no error ABI
// could decode.
func UnknownRevert(data []byte) string {
	if len(data) == 0 {
		return "unknown revert (no data)"
	}
	return fmt.Sprintf("unknown revert (%s)", hexutil.Encode(data))
}

func (e *RevertError) Error() string {
	return "execution reverted: " + e.Reason
}

// StageError describes why a stage failed.
type StageError struct {
	Stage  Stage
	Kind   ErrorKind
	Detail string
	// TxHash is set once a transaction was submitted for the stage.
	TxHash *common.Hash
	Err    error
}

func (e *StageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Stage, e.Kind)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.TxHash != nil {
		fmt.Fprintf(&b, " (tx %s)", e.TxHash.Hex())
	}
	return b.String()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err as a failure of the given stage and kind. The detail
// is taken from the revert reason when err carries one.
func NewStageError(stage Stage, kind ErrorKind, err error) *StageError {
	detail := ""
	if err != nil {
		detail = err.Error()
		var revert *RevertError
		if errors.As(err, &revert) {
			detail = revert.Reason
		}
	}
	return &StageError{Stage: stage, Kind: kind, Detail: detail, Err: err}
}

// FieldError is a single LaunchRequest validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every invalid field of a LaunchRequest.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid launch request: " + strings.Join(parts, "; ")
}
