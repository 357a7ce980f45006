package launch

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowResult_Seal(t *testing.T) {
	started := time.Unix(100, 0)
	finished := time.Unix(160, 0)

	t.Run("rejects changes after sealing", func(t *testing.T) {
		res := NewWorkflowResult("acme", "run-1", started)
		assert.Equal(t, StatusRunning, res.Status)
		require.NoError(t, res.Append(Success(StageDeploy, common.HexToHash("0xd1"), nil)))

		failure := &Failure{Stage: StageWhitelist, Kind: KindRevert, Detail: "SpenderNotWhitelisted"}
		require.NoError(t, res.Seal(StatusPartiallyCompleted, failure, finished))
		assert.True(t, res.Sealed())

		assert.ErrorIs(t, res.Append(Skipped(StageWhitelist, nil)), ErrResultSealed)
		assert.ErrorIs(t, res.Seal(StatusCompleted, nil, finished), ErrResultSealed)

		assert.Len(t, res.Outcomes, 1)
		assert.Equal(t, StatusPartiallyCompleted, res.Status)
		assert.Same(t, failure, res.Failure)
		assert.Equal(t, finished, res.FinishedAt)
	})

	t.Run("running is not terminal", func(t *testing.T) {
		res := NewWorkflowResult("acme", "run-1", started)
		assert.Error(t, res.Seal(StatusRunning, nil, finished))
		assert.False(t, res.Sealed())
		assert.NoError(t, res.Append(Skipped(StageDeploy, nil)))
	})
}

func TestWorkflowResult_Outcome(t *testing.T) {
	res := NewWorkflowResult("acme", "run-1", time.Unix(0, 0))
	hash := common.HexToHash("0xd1")
	require.NoError(t, res.Append(Success(StageDeploy, hash, TokenDeploymentResult{ConfirmedBlock: 7})))

	o, ok := res.Outcome(StageDeploy)
	require.True(t, ok)
	assert.Equal(t, OutcomeSuccess, o.Status)
	assert.Equal(t, hash, *o.TxHash)

	var artifact TokenDeploymentResult
	require.NoError(t, json.Unmarshal(o.Data, &artifact))
	assert.Equal(t, uint64(7), artifact.ConfirmedBlock)

	_, ok = res.Outcome(StageApprove)
	assert.False(t, ok)
}

func TestFailed(t *testing.T) {
	hash := common.HexToHash("0xaa")
	stageErr := NewStageError(StageApprove, KindRevert, errors.Join(errors.New("wait"), &RevertError{Reason: "ERC20InvalidSpender(0x00)"}))
	stageErr.TxHash = &hash

	o := Failed(stageErr)
	assert.Equal(t, OutcomeFailed, o.Status)
	assert.Equal(t, KindRevert, o.Kind)
	assert.Equal(t, "ERC20InvalidSpender(0x00)", o.Detail)
	assert.Equal(t, &hash, o.TxHash)
	assert.Contains(t, stageErr.Error(), "(tx "+hash.Hex()+")")
}

func TestWorkflowResult_JSONCasing(t *testing.T) {
	res := NewWorkflowResult("acme", "run-1", time.Unix(0, 0))
	require.NoError(t, res.Seal(StatusAborted, &Failure{Kind: KindValidation}, time.Unix(1, 0)))

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, key := range []string{"request_id", "run_id", "started_at", "finished_at"} {
		assert.Contains(t, fields, key)
	}
	assert.NotContains(t, fields, "requestId")
}

func TestStage_Index(t *testing.T) {
	assert.Equal(t, 0, StageDeploy.Index())
	assert.Equal(t, 3, StageInitializePool.Index())
	assert.Equal(t, -1, Stage("burn").Index())
}
