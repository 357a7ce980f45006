// Package orchestrator drives a launch through its stages in order: deploy,
// authorize, canonicalize the pool key, initialize the pool. Confirmed stages
// are persisted before the run advances, so a re-invoked launch skips them and
// resumes an interrupted confirmation wait instead of resubmitting.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/defistate/token-launcher-go/events"
	"github.com/defistate/token-launcher-go/launch"
	"github.com/defistate/token-launcher-go/pkg/otelhelper"
	"github.com/defistate/token-launcher-go/protocols/poolregistry"
	"github.com/defistate/token-launcher-go/stages"
	"github.com/defistate/token-launcher-go/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrRunInProgress is returned when a launch with the same identity is already
// running in this process.
var ErrRunInProgress = errors.New("launch already in progress")

// State is a workflow state. Transitions only move forward.
type State string

const (
	StateInit               State = "init"
	StateDeploying          State = "deploying"
	StateAuthorizing        State = "authorizing"
	StateCanonicalizing     State = "canonicalizing"
	StateInitializingPool   State = "initializing_pool"
	StateCompleted          State = "completed"
	StateAborted            State = "aborted"
	StatePartiallyCompleted State = "partially_completed"
)

var stateOrder = map[State]int{
	StateInit:               0,
	StateDeploying:          1,
	StateAuthorizing:        2,
	StateCanonicalizing:     3,
	StateInitializingPool:   4,
	StateCompleted:          5,
	StateAborted:            5,
	StatePartiallyCompleted: 5,
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return stateOrder[s] == stateOrder[StateCompleted]
}

func terminalState(status launch.Status) State {
	switch status {
	case launch.StatusCompleted:
		return StateCompleted
	case launch.StatusPartiallyCompleted:
		return StatePartiallyCompleted
	default:
		return StateAborted
	}
}

// Publisher receives progress events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Config wires the orchestrator to its collaborators. Publisher, Metrics and
// Tracer are optional.
type Config struct {
	Deployer        *stages.Deployer
	Authorizer      *stages.Authorizer
	PoolInitializer *stages.PoolInitializer
	Store           store.Store
	Publisher       Publisher
	Metrics         *Metrics
	Tracer          trace.Tracer
	Logger          *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c *Config) validate() error {
	if c.Deployer == nil {
		return errors.New("deployer is required")
	}
	if c.Authorizer == nil {
		return errors.New("authorizer is required")
	}
	if c.PoolInitializer == nil {
		return errors.New("pool initializer is required")
	}
	if c.Store == nil {
		return errors.New("store is required")
	}
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Orchestrator runs launches. It is safe for concurrent use; runs of different
// identities proceed independently.
type Orchestrator struct {
	deployer    *stages.Deployer
	authorizer  *stages.Authorizer
	initializer *stages.PoolInitializer
	store       store.Store
	publisher   Publisher
	metrics     *Metrics
	tracer      trace.Tracer
	logger      *slog.Logger
	now         func() time.Time
	guard       *runGuard
}

// New creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestrator config: %w", err)
	}
	o := &Orchestrator{
		deployer:    cfg.Deployer,
		authorizer:  cfg.Authorizer,
		initializer: cfg.PoolInitializer,
		store:       cfg.Store,
		publisher:   cfg.Publisher,
		metrics:     cfg.Metrics,
		tracer:      cfg.Tracer,
		logger:      cfg.Logger,
		now:         cfg.Now,
		guard:       newRunGuard(),
	}
	if o.tracer == nil {
		o.tracer = otelhelper.NoopTracer()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// History returns the persisted stage records of requestID, or store.ErrNotFound.
func (o *Orchestrator) History(ctx context.Context, requestID string) ([]store.Record, error) {
	return o.store.Load(ctx, requestID)
}

// Launch runs req to a terminal status. Stage failures are reported in the
// sealed result, not as an error. An error is returned only when the run could
// not start: another run of the same identity is in progress, or the persisted
// history could not be read.
func (o *Orchestrator) Launch(ctx context.Context, req *launch.LaunchRequest) (*launch.WorkflowResult, error) {
	r := o.newRun(req)

	if err := req.Validate(); err != nil {
		var fields launch.ValidationErrors
		errors.As(err, &fields)
		r.logger.Warn("Launch request rejected", "error", err)
		r.finish(ctx, launch.StatusAborted, &launch.Failure{
			Kind:     launch.KindValidation,
			Detail:   err.Error(),
			Guidance: guidance(launch.KindValidation, nil),
			Fields:   fields,
		})
		return r.result, nil
	}

	id := req.Identity()
	if !o.guard.acquire(id) {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, id)
	}
	defer o.guard.release(id)

	r.result.RequestID = id
	r.logger = r.logger.With("request_id", id)

	history, err := o.store.Load(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load launch history: %w", err)
	}
	r.history = store.Fold(history)

	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "launch.run",
		attribute.String(otelhelper.RequestIDKey, id),
		attribute.String(otelhelper.RunIDKey, r.result.RunID),
	)
	defer span.End()
	o.metrics.runStarted()
	defer o.metrics.runFinished()

	r.logger.Info("Launch started", "resumed_stages", len(r.history))
	r.execute(ctx)

	span.SetAttributes(attribute.String(otelhelper.OutcomeKey, string(r.result.Status)))
	if f := r.result.Failure; f != nil {
		otelhelper.SetError(span, errors.New(f.Detail), attribute.String(otelhelper.ErrorKindKey, string(f.Kind)))
	}
	return r.result, nil
}

func (o *Orchestrator) newRun(req *launch.LaunchRequest) *run {
	runID := uuid.NewString()
	return &run{
		o:      o,
		req:    req,
		state:  StateInit,
		result: launch.NewWorkflowResult(req.RequestID, runID, o.now()),
		logger: o.logger.With("run_id", runID),
	}
}

// run is the single-owner state of one Launch call.
type run struct {
	o       *Orchestrator
	req     *launch.LaunchRequest
	state   State
	result  *launch.WorkflowResult
	history map[launch.Stage]store.StageState
	// mutated is set once any stage of this request is confirmed on chain, in
	// this run or an earlier one.
	mutated bool
	logger  *slog.Logger
}

func (r *run) execute(ctx context.Context) {
	r.transition(ctx, StateDeploying)
	deployment, stageErr := runStage(ctx, r, launch.StageDeploy,
		func(ctx context.Context, h stages.Hooks) (*launch.TokenDeploymentResult, *launch.StageError) {
			return r.o.deployer.Deploy(ctx, r.req, h)
		},
		func(d *launch.TokenDeploymentResult) (common.Hash, uint64) {
			return d.TransactionHash, d.ConfirmedBlock
		},
	)
	if stageErr != nil {
		r.fail(ctx, stageErr, "")
		return
	}
	r.result.Deployment = deployment
	tokenAddr := deployment.DeployedAddress

	r.transition(ctx, StateAuthorizing)
	_, stageErr = runStage(ctx, r, launch.StageWhitelist,
		func(ctx context.Context, h stages.Hooks) (*launch.Receipt, *launch.StageError) {
			return r.o.authorizer.Whitelist(ctx, tokenAddr, h)
		},
		receiptConfirmation,
	)
	if stageErr != nil {
		r.fail(ctx, stageErr, "")
		return
	}
	_, stageErr = runStage(ctx, r, launch.StageApprove,
		func(ctx context.Context, h stages.Hooks) (*launch.Receipt, *launch.StageError) {
			return r.o.authorizer.Approve(ctx, tokenAddr, r.req.Liquidity(), h)
		},
		receiptConfirmation,
	)
	if stageErr != nil {
		r.fail(ctx, stageErr, launch.KindPartialAuthorization)
		return
	}

	r.transition(ctx, StateCanonicalizing)
	key, err := r.req.PoolKey(tokenAddr)
	if err != nil {
		r.logger.Error("Pool key canonicalization failed", "token", tokenAddr, "error", err)
		r.finish(ctx, launch.StatusPartiallyCompleted, &launch.Failure{
			Kind:     launch.KindValidation,
			Detail:   err.Error(),
			Guidance: guidance(launch.KindValidation, nil),
		})
		return
	}
	id := key.ID()
	r.result.PoolKey = &key
	r.result.PoolID = &id

	r.transition(ctx, StateInitializingPool)
	_, stageErr = runStage(ctx, r, launch.StageInitializePool,
		func(ctx context.Context, h stages.Hooks) (*poolregistry.PoolView, *launch.StageError) {
			return r.o.initializer.Initialize(ctx, key, r.req.StartingPrice(), r.req.HookData, h)
		},
		func(v *poolregistry.PoolView) (common.Hash, uint64) {
			return v.TxHash, v.Block
		},
	)
	if stageErr != nil {
		r.fail(ctx, stageErr, "")
		return
	}

	r.finish(ctx, launch.StatusCompleted, nil)
}

func receiptConfirmation(rc *launch.Receipt) (common.Hash, uint64) {
	return rc.TxHash, rc.BlockNumber
}

// runStage skips stage when a confirmation is persisted, resumes a persisted
// submission, and otherwise executes it. A confirmed result is persisted before
// runStage returns.
func runStage[T any](
	ctx context.Context,
	r *run,
	stage launch.Stage,
	exec func(context.Context, stages.Hooks) (*T, *launch.StageError),
	confirmation func(*T) (common.Hash, uint64),
) (*T, *launch.StageError) {
	logger := r.logger.With("stage", stage)
	r.publish(ctx, events.Event{Type: events.StageStartedEvent, Stage: stage})
	started := r.o.now()

	state := r.history[stage]
	if state.Confirmed != nil {
		r.mutated = true
		var artifact T
		if err := json.Unmarshal(state.Confirmed.Data, &artifact); err != nil {
			stageErr := launch.NewStageError(stage, launch.KindInternal, fmt.Errorf("decode persisted %s result: %w", stage, err))
			hash := state.Confirmed.TxHash
			stageErr.TxHash = &hash
			r.record(ctx, launch.Failed(stageErr), started)
			return nil, stageErr
		}
		logger.Info("Stage already confirmed, skipping", "tx_hash", state.Confirmed.TxHash)
		r.record(ctx, launch.Skipped(stage, state.Confirmed.Data), started)
		return &artifact, nil
	}

	ctx, span := otelhelper.StartSpan(ctx, r.o.tracer, "launch.stage."+string(stage),
		attribute.String(otelhelper.StageKey, string(stage)),
	)
	defer span.End()

	var unrecorded error
	hooks := stages.Hooks{
		OnSubmit: func(tx launch.TxHandle) error {
			span.SetAttributes(attribute.String(otelhelper.TxHashKey, tx.Hash.Hex()))
			hash := tx.Hash
			r.publish(ctx, events.Event{Type: events.StageSubmittedEvent, Stage: stage, TxHash: &hash})

			data, _ := json.Marshal(tx)
			if err := r.append(ctx, stage, store.PhaseSubmitted, tx.Hash, 0, data); err != nil {
				unrecorded = fmt.Errorf("persist %s submission: %w", stage, err)
				return unrecorded
			}
			return nil
		},
	}
	if state.Pending != nil {
		var pending launch.TxHandle
		if err := json.Unmarshal(state.Pending.Data, &pending); err != nil {
			logger.Warn("Persisted submission unreadable, awaiting by hash", "tx_hash", state.Pending.TxHash, "error", err)
			pending = launch.TxHandle{}
		}
		pending.Hash = state.Pending.TxHash
		hooks.Pending = &pending
	}

	artifact, stageErr := exec(ctx, hooks)
	if stageErr != nil {
		if stageErr.Kind == launch.KindRevert && stageErr.TxHash != nil {
			data, _ := json.Marshal(map[string]string{"reason": stageErr.Detail})
			if err := r.append(ctx, stage, store.PhaseReverted, *stageErr.TxHash, 0, data); err != nil {
				logger.Error("Failed to persist revert", "tx_hash", stageErr.TxHash, "error", err)
			}
		}
		otelhelper.SetError(span, stageErr, attribute.String(otelhelper.ErrorKindKey, string(stageErr.Kind)))
		r.record(ctx, launch.Failed(stageErr), started)
		return nil, stageErr
	}

	r.mutated = true
	hash, block := confirmation(artifact)
	data, err := json.Marshal(artifact)
	if err == nil {
		err = r.append(ctx, stage, store.PhaseConfirmed, hash, block, data)
	}
	r.record(ctx, launch.Success(stage, hash, artifact), started)
	if err != nil {
		logger.Error("Failed to persist confirmation", "tx_hash", hash, "error", err)
		cause := fmt.Errorf("persist %s confirmation: %w", stage, err)
		if unrecorded != nil {
			cause = fmt.Errorf("%w: %w: %w", launch.ErrSubmissionNotRecorded, unrecorded, cause)
		}
		stageErr := launch.NewStageError(stage, launch.KindInternal, cause)
		stageErr.TxHash = &hash
		otelhelper.SetError(span, stageErr, attribute.String(otelhelper.ErrorKindKey, string(stageErr.Kind)))
		return nil, stageErr
	}
	return artifact, nil
}

func (r *run) append(ctx context.Context, stage launch.Stage, phase store.Phase, txHash common.Hash, block uint64, data []byte) error {
	err := r.o.store.Append(ctx, &store.Record{
		RequestID:   r.result.RequestID,
		Stage:       stage,
		Phase:       phase,
		TxHash:      txHash,
		BlockNumber: block,
		Data:        data,
		RecordedAt:  r.o.now(),
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		return nil
	}
	return err
}

func (r *run) record(ctx context.Context, o launch.StageOutcome, started time.Time) {
	if err := r.result.Append(o); err != nil {
		r.logger.Error("Failed to record stage outcome", "stage", o.Stage, "error", err)
	}
	r.o.metrics.observeStage(o, r.o.now().Sub(started))
	r.publish(ctx, events.Event{Type: events.StageFinishedEvent, Stage: o.Stage, TxHash: o.TxHash, Outcome: &o})
}

func (r *run) transition(ctx context.Context, next State) {
	if stateOrder[next] <= stateOrder[r.state] {
		r.logger.Error("Illegal state transition", "from", r.state, "to", next)
		return
	}
	r.logger.Debug("State changed", "from", r.state, "to", next)
	r.state = next
	r.publish(ctx, events.Event{Type: events.StateChangedEvent, State: string(next)})
}

// fail seals the run after a stage failure. wrap, when set, replaces the kind
// reported at workflow level and keeps the stage kind as the cause.
func (r *run) fail(ctx context.Context, stageErr *launch.StageError, wrap launch.ErrorKind) {
	unrecorded := errors.Is(stageErr, launch.ErrSubmissionNotRecorded)
	status := launch.StatusAborted
	if r.mutated || stageErr.Kind.MutationUnknown() || unrecorded {
		status = launch.StatusPartiallyCompleted
	}

	failure := &launch.Failure{
		Stage:  stageErr.Stage,
		Kind:   stageErr.Kind,
		Detail: stageErr.Detail,
		TxHash: stageErr.TxHash,
	}
	if wrap != "" {
		failure.Kind = wrap
		failure.Cause = stageErr.Kind
	}
	failure.Guidance = guidance(stageErr.Kind, stageErr.TxHash)
	if unrecorded {
		failure.Guidance = unrecordedGuidance(stageErr.TxHash)
	}

	r.logger.Warn("Launch stage failed",
		"stage", stageErr.Stage,
		"kind", failure.Kind,
		"detail", stageErr.Detail,
		"status", status,
	)
	r.finish(ctx, status, failure)
}

func (r *run) finish(ctx context.Context, status launch.Status, failure *launch.Failure) {
	r.transition(ctx, terminalState(status))
	if err := r.result.Seal(status, failure, r.o.now()); err != nil {
		r.logger.Error("Failed to seal workflow result", "error", err)
	}
	r.o.metrics.observeWorkflow(status)
	r.logger.Info("Launch finished", "status", status, "outcomes", len(r.result.Outcomes))
	r.publish(ctx, events.Event{Type: events.WorkflowFinishedEvent, Status: status, Failure: failure})
}

func (r *run) publish(ctx context.Context, e events.Event) {
	if r.o.publisher == nil {
		return
	}
	e.RequestID = r.result.RequestID
	e.RunID = r.result.RunID
	e.Timestamp = r.o.now()
	if err := r.o.publisher.Publish(ctx, e); err != nil {
		r.logger.Warn("Failed to publish progress event", "event_type", e.Type, "error", err)
	}
}

// guidance tells an operator what a failure of kind means for the chain state.
func guidance(kind launch.ErrorKind, txHash *common.Hash) string {
	tx := "the stage transaction"
	if txHash != nil {
		tx = txHash.Hex()
	}
	switch kind {
	case launch.KindValidation:
		return "failed: request rejected before any chain call; fix the listed fields and resubmit"
	case launch.KindPreflightRejection:
		return "failed: the call would revert and nothing was submitted for this stage; resubmitting skips confirmed stages"
	case launch.KindSubmissionFailure:
		return "failed: the network rejected the transaction and nothing was included for this stage; resubmit to retry"
	case launch.KindRevert:
		return fmt.Sprintf("failed: transaction %s reverted; resubmitting re-executes this stage", tx)
	case launch.KindTimeout:
		return fmt.Sprintf("status unknown: check the explorer for tx %s; resubmitting resumes the wait without a new transaction", tx)
	default:
		return fmt.Sprintf("failed: launcher error after %s; resubmitting resumes from the persisted history", tx)
	}
}

// unrecordedGuidance is reported when a broadcast transaction is missing from
// the history. A re-run would submit the stage again.
func unrecordedGuidance(txHash *common.Hash) string {
	tx := "the stage transaction"
	if txHash != nil {
		tx = txHash.Hex()
	}
	return fmt.Sprintf("status unknown: transaction %s was broadcast but not recorded; check the explorer and do not re-run until it is mined or dropped", tx)
}

// runGuard rejects a second concurrent run of the same identity.
type runGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func newRunGuard() *runGuard {
	return &runGuard{running: make(map[string]struct{})}
}

func (g *runGuard) acquire(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.running[id]; ok {
		return false
	}
	g.running[id] = struct{}{}
	return true
}

func (g *runGuard) release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, id)
}
