// Package events defines the progress notifications emitted while a launch runs
// and a watermill-backed stream that carries them.
package events

import (
	"time"

	"github.com/defistate/token-launcher-go/launch"
	"github.com/ethereum/go-ethereum/common"
)

type EventType string

// Topic carries every launch progress event.
const Topic = "launcher.progress"

const EventMetadataKey = "request_id"
const EventTypeMetadataKey = "event_type"

const (
	// StateChangedEvent is emitted on every workflow state transition.
	StateChangedEvent EventType = "launch.state_changed"
	// StageStartedEvent is emitted before a stage executes or is skipped.
	StageStartedEvent EventType = "launch.stage.started"
	// StageSubmittedEvent is emitted once a stage transaction is broadcast.
	StageSubmittedEvent EventType = "launch.stage.submitted"
	// StageFinishedEvent carries the stage outcome.
	StageFinishedEvent EventType = "launch.stage.finished"
	// WorkflowFinishedEvent carries the terminal status.
	WorkflowFinishedEvent EventType = "launch.finished"
)

// Event is a single progress notification.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	RequestID string       `json:"request_id"`
	RunID     string       `json:"run_id"`
	State     string       `json:"state,omitempty"`
	Stage     launch.Stage `json:"stage,omitempty"`
	TxHash    *common.Hash `json:"tx_hash,omitempty"`

	Outcome *launch.StageOutcome `json:"outcome,omitempty"`
	Status  launch.Status        `json:"status,omitempty"`
	Failure *launch.Failure      `json:"failure,omitempty"`
}
