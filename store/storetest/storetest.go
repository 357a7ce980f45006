// Package storetest holds the behaviour every store backend must satisfy.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/defistate/token-launcher-go/launch"
	"github.com/defistate/token-launcher-go/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a backend. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("AppendAndLoad_PreservesOrder", func(t *testing.T) {
		s := newStore(t)
		tx := common.HexToHash("0xabc")
		records := []store.Record{
			{RequestID: "req-1", Stage: launch.StageDeploy, Phase: store.PhaseSubmitted, TxHash: tx, Data: json.RawMessage(`{"nonce":1}`)},
			{RequestID: "req-1", Stage: launch.StageDeploy, Phase: store.PhaseConfirmed, TxHash: tx, BlockNumber: 7, Data: json.RawMessage(`{"deployed_address":"0x01"}`)},
		}
		for i := range records {
			require.NoError(t, s.Append(ctx, &records[i]))
		}

		loaded, err := s.Load(ctx, "req-1")
		require.NoError(t, err)
		require.Len(t, loaded, 2)
		assert.Equal(t, store.PhaseSubmitted, loaded[0].Phase)
		assert.Equal(t, store.PhaseConfirmed, loaded[1].Phase)
		assert.Equal(t, tx, loaded[1].TxHash)
		assert.Equal(t, uint64(7), loaded[1].BlockNumber)
		assert.JSONEq(t, `{"deployed_address":"0x01"}`, string(loaded[1].Data))
		assert.False(t, loaded[0].RecordedAt.IsZero(), "RecordedAt is filled on append")
	})

	t.Run("Load_NotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Append_Duplicate", func(t *testing.T) {
		s := newStore(t)
		r := store.Record{RequestID: "req-dup", Stage: launch.StageApprove, Phase: store.PhaseSubmitted, TxHash: common.HexToHash("0x1")}
		require.NoError(t, s.Append(ctx, &r))
		again := r
		assert.ErrorIs(t, s.Append(ctx, &again), store.ErrDuplicateKey)

		loaded, err := s.Load(ctx, "req-dup")
		require.NoError(t, err)
		assert.Len(t, loaded, 1)
	})

	t.Run("Append_InvalidInput", func(t *testing.T) {
		s := newStore(t)
		assert.ErrorIs(t, s.Append(ctx, &store.Record{Stage: launch.StageDeploy, Phase: store.PhaseSubmitted}), store.ErrInvalidInput)
		assert.ErrorIs(t, s.Append(ctx, nil), store.ErrInvalidInput)
	})

	t.Run("Requests_AreIsolated", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Append(ctx, &store.Record{RequestID: "a", Stage: launch.StageDeploy, Phase: store.PhaseSubmitted}))
		require.NoError(t, s.Append(ctx, &store.Record{RequestID: "b", Stage: launch.StageWhitelist, Phase: store.PhaseSubmitted}))

		loaded, err := s.Load(ctx, "a")
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.Equal(t, launch.StageDeploy, loaded[0].Stage)
	})

	t.Run("ConcurrentAppends", func(t *testing.T) {
		s := newStore(t)
		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.Append(ctx, &store.Record{
					RequestID:  "req-c",
					Stage:      launch.StageDeploy,
					Phase:      store.PhaseSubmitted,
					TxHash:     common.HexToHash(fmt.Sprintf("0x%x", i+1)),
					RecordedAt: time.Now(),
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		loaded, err := s.Load(ctx, "req-c")
		require.NoError(t, err)
		assert.Len(t, loaded, 10)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(ctx))
	})
}
