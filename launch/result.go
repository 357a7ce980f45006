package launch

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/defistate/token-launcher-go/protocols/poolregistry"
	"github.com/ethereum/go-ethereum/common"
)

// Stage names one recorded step of the workflow.
type Stage string

const (
	StageDeploy         Stage = "deploy"
	StageWhitelist      Stage = "whitelist"
	StageApprove        Stage = "approve"
	StageInitializePool Stage = "initialize_pool"
)

// Stages lists the recorded stages in execution order.
var Stages = []Stage{StageDeploy, StageWhitelist, StageApprove, StageInitializePool}

// Index returns the position of s in Stages, or -1.
func (s Stage) Index() int {
	return slices.Index(Stages, s)
}

// OutcomeStatus is the tag of a StageOutcome.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
	OutcomeSkipped OutcomeStatus = "skipped"
)

// StageOutcome is the single result of one stage.
type StageOutcome struct {
	Stage  Stage         `json:"stage"`
	Status OutcomeStatus `json:"status"`
	// Kind and Detail are set for failed outcomes.
	Kind   ErrorKind    `json:"kind,omitempty"`
	Detail string       `json:"detail,omitempty"`
	TxHash *common.Hash `json:"tx_hash,omitempty"`
	// Data is the stage artifact: a TokenDeploymentResult for deploy, a Receipt
	// for whitelist and approve, a poolregistry.PoolView for initialize_pool.
	// Skipped outcomes carry the persisted artifact.
	Data json.RawMessage `json:"data,omitempty"`
}

// Success builds a success outcome carrying data.
func Success(stage Stage, txHash common.Hash, data any) StageOutcome {
	raw, _ := json.Marshal(data)
	h := txHash
	return StageOutcome{Stage: stage, Status: OutcomeSuccess, TxHash: &h, Data: raw}
}

// Skipped builds an outcome for a stage whose confirmed result was persisted by
// an earlier run.
func Skipped(stage Stage, data json.RawMessage) StageOutcome {
	return StageOutcome{Stage: stage, Status: OutcomeSkipped, Data: data}
}

// Failed builds a failed outcome from a stage error.
func Failed(err *StageError) StageOutcome {
	return StageOutcome{
		Stage:  err.Stage,
		Status: OutcomeFailed,
		Kind:   err.Kind,
		Detail: err.Detail,
		TxHash: err.TxHash,
	}
}

// TokenDeploymentResult is the artifact of the Deploy stage.
type TokenDeploymentResult struct {
	DeployedAddress common.Address `json:"deployed_address"`
	TransactionHash common.Hash    `json:"transaction_hash"`
	ConfirmedBlock  uint64         `json:"confirmed_block"`
	Deployer        common.Address `json:"deployer"`
	// MintedBalance is the deployer balance read after deployment, when supply
	// verification is enabled.
	MintedBalance *big.Int `json:"minted_balance,omitempty"`
}

// Status is the terminal status of a workflow run.
type Status string

const (
	StatusRunning            Status = "running"
	StatusCompleted          Status = "completed"
	StatusPartiallyCompleted Status = "partially_completed"
	StatusAborted            Status = "aborted"
)

// Failure describes the stage failure that ended a run.
type Failure struct {
	Stage Stage     `json:"stage,omitempty"`
	Kind  ErrorKind `json:"kind"`
	// Cause is the phase kind behind a PartialAuthorizationError.
	Cause  ErrorKind    `json:"cause,omitempty"`
	Detail string       `json:"detail"`
	TxHash *common.Hash `json:"tx_hash,omitempty"`
	// Guidance tells an operator whether the failure is certain or the outcome
	// must be checked on chain.
	Guidance string `json:"guidance"`
	// Fields lists invalid request fields for validation failures.
	Fields ValidationErrors `json:"fields,omitempty"`
}

// ErrResultSealed is returned when a sealed WorkflowResult is modified.
var ErrResultSealed = errors.New("workflow result is sealed")

// WorkflowResult is the ordered record of one run. It is appended to while the
// run progresses and sealed at a terminal status.
type WorkflowResult struct {
	RequestID  string                 `json:"request_id"`
	RunID      string                 `json:"run_id"`
	Status     Status                 `json:"status"`
	Outcomes   []StageOutcome         `json:"outcomes"`
	Deployment *TokenDeploymentResult `json:"deployment,omitempty"`
	PoolKey    *poolregistry.PoolKey  `json:"pool_key,omitempty"`
	PoolID     *poolregistry.PoolID   `json:"pool_id,omitempty"`
	Failure    *Failure               `json:"failure,omitempty"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at,omitzero"`

	sealed bool
}

// NewWorkflowResult starts an empty, running result.
func NewWorkflowResult(requestID, runID string, now time.Time) *WorkflowResult {
	return &WorkflowResult{
		RequestID: requestID,
		RunID:     runID,
		Status:    StatusRunning,
		Outcomes:  []StageOutcome{},
		StartedAt: now,
	}
}

// Append records the outcome of the next stage.
func (w *WorkflowResult) Append(o StageOutcome) error {
	if w.sealed {
		return ErrResultSealed
	}
	w.Outcomes = append(w.Outcomes, o)
	return nil
}

// Seal fixes the terminal status. A sealed result rejects further changes.
func (w *WorkflowResult) Seal(status Status, failure *Failure, now time.Time) error {
	if w.sealed {
		return ErrResultSealed
	}
	if status == StatusRunning {
		return fmt.Errorf("cannot seal with status %s", status)
	}
	w.Status = status
	w.Failure = failure
	w.FinishedAt = now
	w.sealed = true
	return nil
}

// Sealed reports whether the result reached a terminal status.
func (w *WorkflowResult) Sealed() bool {
	return w.sealed
}

// Outcome returns the recorded outcome of stage, if any.
func (w *WorkflowResult) Outcome(stage Stage) (StageOutcome, bool) {
	for _, o := range w.Outcomes {
		if o.Stage == stage {
			return o, true
		}
	}
	return StageOutcome{}, false
}
