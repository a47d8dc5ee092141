package statestore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medports/portwatch/internal/domain"
	"github.com/medports/portwatch/pkg/logger"
)

var testLog = logger.New(logger.Config{Level: "error", Pretty: false})

func sampleState(t *testing.T) map[string]*domain.VesselState {
	t.Helper()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	return map[string]*domain.VesselState{
		"07:9234567-1042": {
			VesselID:       "07:9234567-1042",
			VesselName:     "MSC AURORA",
			PortCode:       "07",
			Agent:          "AGENCE ATLAS",
			Stage:          domain.StageAnchorage,
			StageEnteredAt: now,
			LastSeenAt:     now.Add(time.Hour),
		},
	}
}

func TestStore_FreshStart(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "state.json"), testLog)

	active, version, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, int64(0), version)
	assert.Equal(t, PhasePrimary, store.Phase())
	assert.False(t, store.Recovered())
}

func TestStore_SaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := New(path, testLog)

	_, version, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleState(t), version))

	reloaded := New(path, testLog)
	active, version, err := reloaded.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	require.Contains(t, active, "07:9234567-1042")
	assert.Equal(t, domain.StageAnchorage, active["07:9234567-1042"].Stage)
}

func TestStore_RecoversFromBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := New(path, testLog)

	_, version, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleState(t), version))
	// Second save rotates the good primary into the backup slot
	_, version, err = store.Load()
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleState(t), version))

	require.NoError(t, os.WriteFile(path, []byte("{definitely not json"), 0644))

	recovered := New(path, testLog)
	active, version, err := recovered.Load()
	require.NoError(t, err)
	assert.True(t, recovered.Recovered())
	assert.Equal(t, PhasePrimary, recovered.Phase())
	assert.Contains(t, active, "07:9234567-1042")

	// Saving after recovery must not clobber the good backup with the
	// corrupt primary
	require.NoError(t, recovered.Save(active, version))
	final := New(path, testLog)
	_, _, err = final.Load()
	require.NoError(t, err)
	assert.False(t, final.Recovered())
}

func TestStore_BothFilesCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
	require.NoError(t, os.WriteFile(path+".bak", []byte("also garbage"), 0644))

	store := New(path, testLog)
	_, _, err := store.Load()

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoValidState))
	assert.Equal(t, PhaseFailed, store.Phase())
}

func TestStore_StructurallyInvalidStateIsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	// Parseable JSON whose vessel record violates the invariants
	bad := `{"version": 3, "active": {"x": {"vessel_id": "x", "stage": "FLYING"}}}`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0644))

	store := New(path, testLog)
	_, _, err := store.Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoValidState))
}

func TestStore_ConflictAcrossStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	writer := New(path, testLog)
	_, version, err := writer.Load()
	require.NoError(t, err)
	require.NoError(t, writer.Save(sampleState(t), version))

	// Two stores load the same version; the slower writer must lose
	a := New(path, testLog)
	_, versionA, err := a.Load()
	require.NoError(t, err)

	b := New(path, testLog)
	_, versionB, err := b.Load()
	require.NoError(t, err)

	require.NoError(t, a.Save(sampleState(t), versionA))

	err = b.Save(sampleState(t), versionB)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))

	// After reloading, the loser can write again
	_, versionB, err = b.Load()
	require.NoError(t, err)
	assert.NoError(t, b.Save(sampleState(t), versionB))
}

func TestStore_StaleSaveOnSharedStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := New(path, testLog)

	_, version, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleState(t), version))

	// Two overlapping runs on the same store load the same version
	_, versionA, err := store.Load()
	require.NoError(t, err)
	_, versionB, err := store.Load()
	require.NoError(t, err)

	// Run A commits an empty state (vessel departed)
	require.NoError(t, store.Save(map[string]*domain.VesselState{}, versionA))

	// Run B still holds the old state; its save must fail instead of
	// resurrecting the departed vessel
	err = store.Save(sampleState(t), versionB)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))

	active, _, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, active, "stale run must not overwrite the fresh commit")
}
