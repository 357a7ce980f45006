// Package stages implements the mutating steps of a launch. Each step runs the
// same three phases: estimate, submit, confirm. A failure is classified by the
// phase it happened in.
package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/defistate/token-launcher-go/launch"
)

// DefaultConfirmations is the inclusion depth awaited when none is configured.
const DefaultConfirmations = 1

// Hooks let the caller persist progress around a stage.
type Hooks struct {
	// Pending resumes an earlier submission: estimation and submission are
	// skipped and only the confirmation wait runs.
	Pending *launch.TxHandle
	// OnSubmit is called after broadcast and before the confirmation wait. An
	// error does not stop the wait, but a timeout is then reported as
	// ErrSubmissionNotRecorded.
	OnSubmit func(launch.TxHandle) error
}

// Protocol runs the three phases against a chain client.
type Protocol struct {
	client        launch.ChainClient
	confirmations uint64
	logger        *slog.Logger
}

// NewProtocol creates a protocol awaiting the given number of confirmations.
func NewProtocol(client launch.ChainClient, confirmations uint64, logger *slog.Logger) *Protocol {
	if confirmations == 0 {
		confirmations = DefaultConfirmations
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Protocol{client: client, confirmations: confirmations, logger: logger}
}

// Client returns the underlying chain client.
func (p *Protocol) Client() launch.ChainClient {
	return p.client
}

// Run estimates, submits and confirms call. Submission happens only when the
// estimate succeeds.
func (p *Protocol) Run(ctx context.Context, stage launch.Stage, call launch.Call, h Hooks) (*launch.Receipt, *launch.StageError) {
	var unrecorded error
	handle := h.Pending
	if handle == nil {
		gas, err := p.client.EstimateGas(ctx, call)
		if err != nil {
			p.logger.Warn("Preflight rejected", "stage", stage, "error", err)
			return nil, launch.NewStageError(stage, launch.KindPreflightRejection, err)
		}

		submitted, err := p.client.Submit(ctx, call, gas)
		if err != nil {
			p.logger.Error("Submission failed", "stage", stage, "error", err)
			return nil, launch.NewStageError(stage, launch.KindSubmissionFailure, err)
		}
		handle = &submitted
		if h.OnSubmit != nil {
			if err := h.OnSubmit(submitted); err != nil {
				p.logger.Error("Submission not recorded, awaiting confirmation", "stage", stage, "tx_hash", submitted.Hash, "error", err)
				unrecorded = err
			}
		}
	} else {
		p.logger.Info("Resuming confirmation wait", "stage", stage, "tx_hash", handle.Hash)
	}

	receipt, err := p.client.AwaitConfirmation(ctx, *handle, p.confirmations)
	if err != nil {
		kind := launch.KindTimeout
		var revert *launch.RevertError
		if errors.As(err, &revert) {
			kind = launch.KindRevert
		} else if unrecorded != nil {
			kind = launch.KindInternal
			err = fmt.Errorf("%w: %w: %w", launch.ErrSubmissionNotRecorded, unrecorded, err)
		}
		stageErr := launch.NewStageError(stage, kind, err)
		hash := handle.Hash
		stageErr.TxHash = &hash
		return nil, stageErr
	}
	return receipt, nil
}
