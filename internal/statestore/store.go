package statestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medports/portwatch/internal/domain"
)

// Phase names the recovery state of the store after the last Load
type Phase string

const (
	PhasePrimary    Phase = "primary"    // primary file loaded (or fresh start)
	PhaseRecovering Phase = "recovering" // primary corrupt, backup loaded
	PhaseFailed     Phase = "failed"     // primary and backup both unusable
)

// ErrConflict is returned by Save when the on-disk state changed since Load.
// The caller must retry the whole run from refreshed state, never merge.
var ErrConflict = errors.New("state file changed since load")

// ErrNoValidState is returned when neither the primary state file nor its
// backup can be loaded. Proceeding on a blank state would silently drop
// in-flight duration timers, so this is fatal to the run.
var ErrNoValidState = errors.New("no valid state available")

// fileState is the on-disk shape of the active vessel state
type fileState struct {
	Version   int64                          `json:"version"`
	UpdatedAt time.Time                      `json:"updated_at"`
	Active    map[string]*domain.VesselState `json:"active"`
}

// Store persists the active vessel state as a versioned JSON file with a
// rotating backup. Load returns the version it read; the matching Save
// takes that version back and fails with ErrConflict when another writer
// bumped the file in between. The store is safe for concurrent callers.
type Store struct {
	path string
	log  zerolog.Logger

	mu        sync.Mutex
	phase     Phase
	recovered bool
}

// New creates a state store backed by the given file path
func New(path string, log zerolog.Logger) *Store {
	return &Store{
		path:  path,
		log:   log.With().Str("component", "statestore").Logger(),
		phase: PhasePrimary,
	}
}

// Phase reports the recovery phase reached by the last Load
func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Recovered reports whether the last Load fell back to the backup file
func (s *Store) Recovered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recovered
}

// Load reads the active vessel state and the version it carries. A corrupt
// primary file falls back to the backup; a corrupt backup is fatal. A
// missing file pair means a fresh install and yields an empty state.
func (s *Store) Load() (map[string]*domain.VesselState, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.phase = PhasePrimary
	s.recovered = false

	st, err := s.loadFile(s.path)
	if err == nil {
		return st.Active, st.Version, nil
	}

	if os.IsNotExist(err) && !s.backupExists() {
		s.log.Info().Str("path", s.path).Msg("No state file, starting fresh")
		return make(map[string]*domain.VesselState), 0, nil
	}

	s.phase = PhaseRecovering
	s.log.Warn().Err(err).Str("path", s.path).Msg("Primary state unusable, trying backup")

	st, backupErr := s.loadFile(s.backupPath())
	if backupErr != nil {
		s.phase = PhaseFailed
		s.log.Error().Err(backupErr).Str("path", s.backupPath()).Msg("Backup state unusable")
		return nil, 0, fmt.Errorf("%w: primary: %v, backup: %v", ErrNoValidState, err, backupErr)
	}

	s.phase = PhasePrimary
	s.recovered = true
	s.log.Warn().
		Int64("version", st.Version).
		Int("vessels", len(st.Active)).
		Msg("State recovered from backup")

	return st.Active, st.Version, nil
}

// Save writes the active vessel state back, rotating the previous primary
// file into the backup slot. loadedVersion is the version returned by the
// Load this run started from; Save returns ErrConflict when the on-disk
// version has moved past it, so a stale run can never overwrite a fresher
// commit even when runs share one store.
func (s *Store) Save(active map[string]*domain.VesselState, loadedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	onDisk, verr := s.loadVersion(s.path)
	if verr == nil && onDisk != loadedVersion {
		s.log.Warn().
			Int64("loaded", loadedVersion).
			Int64("on_disk", onDisk).
			Msg("Concurrent state write detected")
		return ErrConflict
	}

	st := fileState{
		Version:   loadedVersion + 1,
		UpdatedAt: time.Now().UTC(),
		Active:    active,
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Rotate the current primary into the backup slot before replacing it,
	// so a crash mid-write always leaves one loadable file behind. A
	// primary that failed the version read is unreadable; rotating it
	// would clobber the good backup we just recovered from.
	if verr == nil {
		if err := copyFile(s.path, s.backupPath()); err != nil {
			return fmt.Errorf("failed to rotate state backup: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	s.log.Debug().Int64("version", st.Version).Int("vessels", len(active)).Msg("State saved")

	return nil
}

func (s *Store) backupPath() string {
	return s.path + ".bak"
}

func (s *Store) backupExists() bool {
	_, err := os.Stat(s.backupPath())
	return err == nil
}

// loadFile reads and structurally validates one state file
func (s *Store) loadFile(path string) (*fileState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	if st.Active == nil {
		return nil, fmt.Errorf("state file missing active map")
	}

	for id, vessel := range st.Active {
		if vessel == nil {
			return nil, fmt.Errorf("nil vessel state for %q", id)
		}
		if err := vessel.Validate(); err != nil {
			return nil, fmt.Errorf("invalid vessel state: %w", err)
		}
	}

	return &st, nil
}

// loadVersion reads just the version stamp of a state file
func (s *Store) loadVersion(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var st struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return 0, err
	}
	return st.Version, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
