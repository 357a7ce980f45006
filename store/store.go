// Package store persists the append-only history of launch stages so that a
// re-invoked launch can skip confirmed stages and resume interrupted ones.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/defistate/token-launcher-go/launch"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotFound is returned when no records exist for a request.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is returned when a record with the same request, stage,
	// phase and transaction was already appended.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInvalidInput is returned for records missing required fields.
	ErrInvalidInput = errors.New("invalid input")
)

// Phase is the lifecycle point a Record captures.
type Phase string

const (
	// PhaseSubmitted: the transaction was broadcast. Data holds the TxHandle.
	PhaseSubmitted Phase = "submitted"
	// PhaseConfirmed: the transaction was included and succeeded. Data holds the
	// stage artifact.
	PhaseConfirmed Phase = "confirmed"
	// PhaseReverted: the transaction was included and reverted. Data holds the
	// decoded reason.
	PhaseReverted Phase = "reverted"
)

// Record is one immutable entry of a request's stage history.
type Record struct {
	RequestID   string          `json:"request_id"`
	Stage       launch.Stage    `json:"stage"`
	Phase       Phase           `json:"phase"`
	TxHash      common.Hash     `json:"tx_hash"`
	BlockNumber uint64          `json:"block_number,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// Validate checks the fields every backend relies on.
func (r *Record) Validate() error {
	if r == nil || r.RequestID == "" || r.Stage.Index() < 0 {
		return ErrInvalidInput
	}
	switch r.Phase {
	case PhaseSubmitted, PhaseConfirmed, PhaseReverted:
	default:
		return ErrInvalidInput
	}
	return nil
}

// Key identifies a record for duplicate detection.
func (r *Record) Key() string {
	return string(r.Stage) + "/" + string(r.Phase) + "/" + r.TxHash.Hex()
}

// Store is an append-only log of stage records keyed by request identity.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append adds r to the request's history. RecordedAt is set when zero.
	Append(ctx context.Context, r *Record) error
	// Load returns the history of requestID in append order, or ErrNotFound.
	Load(ctx context.Context, requestID string) ([]Record, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// StageState is the folded view of one stage's records.
type StageState struct {
	// Confirmed is the confirmation record, if the stage completed.
	Confirmed *Record
	// Pending is a submission with no recorded resolution. Its transaction may
	// still land and must be awaited rather than resubmitted.
	Pending *Record
	// Reverted counts reverted submissions.
	Reverted int
}

// Fold reduces a request history to the state of each stage.
func Fold(records []Record) map[launch.Stage]StageState {
	out := make(map[launch.Stage]StageState)
	for i := range records {
		r := records[i]
		st := out[r.Stage]
		switch r.Phase {
		case PhaseSubmitted:
			if st.Confirmed == nil {
				st.Pending = &r
			}
		case PhaseConfirmed:
			st.Confirmed = &r
			st.Pending = nil
		case PhaseReverted:
			if st.Pending != nil && st.Pending.TxHash == r.TxHash {
				st.Pending = nil
			}
			st.Reverted++
		}
		out[r.Stage] = st
	}
	return out
}
