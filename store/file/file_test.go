package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/defistate/token-launcher-go/launch"
	"github.com/defistate/token-launcher-go/store"
	"github.com/defistate/token-launcher-go/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := New(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, &store.Record{RequestID: "0xabc/def", Stage: launch.StageDeploy, Phase: store.PhaseConfirmed}))

	reopened, err := New(dir)
	require.NoError(t, err)
	records, err := reopened.Load(ctx, "0xabc/def")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "0xabc%2Fdef.json", entries[0].Name())
}

func TestStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644))

	s, err := New(dir)
	require.NoError(t, err)
	_, err = s.Load(context.Background(), "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestNew_EmptyDir(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}
