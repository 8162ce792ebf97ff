package client

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceIDStableAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	state, err := OpenState(path)
	require.NoError(t, err)

	id, err := state.DeviceID()
	require.NoError(t, err)
	assert.Len(t, id, 32) // 16 random bytes, hex

	again, err := state.DeviceID()
	require.NoError(t, err)
	assert.Equal(t, id, again)
	require.NoError(t, state.Close())

	reopened, err := OpenState(path)
	require.NoError(t, err)
	defer reopened.Close()

	persisted, err := reopened.DeviceID()
	require.NoError(t, err)
	assert.Equal(t, id, persisted)
}

func TestNicknameAndEmailPersistence(t *testing.T) {
	state, err := OpenState(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer state.Close()

	assert.Empty(t, state.Nickname())
	assert.Empty(t, state.Email())

	require.NoError(t, state.SetNickname("  Alice "))
	require.NoError(t, state.SetEmail(" Alice@Example.COM "))

	assert.Equal(t, "Alice", state.Nickname())
	// Email is case-normalized on write
	assert.Equal(t, "alice@example.com", state.Email())
}

func TestStateDirMatchesPath(t *testing.T) {
	dir := t.TempDir()
	state, err := OpenState(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	defer state.Close()

	assert.Equal(t, dir, state.Dir())
}
