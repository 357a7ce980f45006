package store

import (
	"testing"

	"github.com/defistate/token-launcher-go/launch"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  *Record
		wantErr bool
	}{
		{"valid", &Record{RequestID: "r", Stage: launch.StageDeploy, Phase: PhaseSubmitted}, false},
		{"nil", nil, true},
		{"missing request", &Record{Stage: launch.StageDeploy, Phase: PhaseSubmitted}, true},
		{"unknown stage", &Record{RequestID: "r", Stage: "mint", Phase: PhaseSubmitted}, true},
		{"unknown phase", &Record{RequestID: "r", Stage: launch.StageApprove, Phase: "sent"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFold(t *testing.T) {
	tx1 := common.HexToHash("0x01")
	tx2 := common.HexToHash("0x02")
	rec := func(stage launch.Stage, phase Phase, tx common.Hash) Record {
		return Record{RequestID: "r", Stage: stage, Phase: phase, TxHash: tx}
	}

	t.Run("Confirmed", func(t *testing.T) {
		states := Fold([]Record{
			rec(launch.StageDeploy, PhaseSubmitted, tx1),
			rec(launch.StageDeploy, PhaseConfirmed, tx1),
		})
		st := states[launch.StageDeploy]
		require.NotNil(t, st.Confirmed)
		assert.Nil(t, st.Pending)
		assert.Equal(t, tx1, st.Confirmed.TxHash)
	})

	t.Run("PendingAfterTimeout", func(t *testing.T) {
		states := Fold([]Record{
			rec(launch.StageDeploy, PhaseSubmitted, tx1),
			rec(launch.StageDeploy, PhaseConfirmed, tx1),
			rec(launch.StageWhitelist, PhaseSubmitted, tx2),
		})
		st := states[launch.StageWhitelist]
		assert.Nil(t, st.Confirmed)
		require.NotNil(t, st.Pending)
		assert.Equal(t, tx2, st.Pending.TxHash)
	})

	t.Run("RevertClearsPending", func(t *testing.T) {
		states := Fold([]Record{
			rec(launch.StageApprove, PhaseSubmitted, tx1),
			rec(launch.StageApprove, PhaseReverted, tx1),
		})
		st := states[launch.StageApprove]
		assert.Nil(t, st.Confirmed)
		assert.Nil(t, st.Pending)
		assert.Equal(t, 1, st.Reverted)
	})

	t.Run("RetryAfterRevertConfirmed", func(t *testing.T) {
		states := Fold([]Record{
			rec(launch.StageApprove, PhaseSubmitted, tx1),
			rec(launch.StageApprove, PhaseReverted, tx1),
			rec(launch.StageApprove, PhaseSubmitted, tx2),
			rec(launch.StageApprove, PhaseConfirmed, tx2),
		})
		st := states[launch.StageApprove]
		require.NotNil(t, st.Confirmed)
		assert.Equal(t, tx2, st.Confirmed.TxHash)
		assert.Nil(t, st.Pending)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, Fold(nil))
	})
}
