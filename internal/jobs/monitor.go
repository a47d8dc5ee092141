package jobs

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medports/portwatch/internal/clients/anp"
	"github.com/medports/portwatch/internal/domain"
	"github.com/medports/portwatch/internal/events"
	"github.com/medports/portwatch/internal/modules/history"
	"github.com/medports/portwatch/internal/modules/reconcile"
	"github.com/medports/portwatch/internal/notify"
	"github.com/medports/portwatch/internal/statestore"
)

// FeedClient yields one raw movement snapshot
type FeedClient interface {
	FetchMovements() ([]anp.MovementEntry, error)
}

// MonitorJob runs one reconciliation cycle: fetch the snapshot, diff it
// against persisted state, archive closed calls and hand events to the
// notifier. A run either commits completely or is discarded; a write
// conflict restarts the whole run from refreshed state. Runs are
// serialized: the cron trigger, the startup kick and the manual API
// trigger all funnel through Run, which holds the run lock.
type MonitorJob struct {
	feed         FeedClient
	normalizer   *reconcile.Normalizer
	engine       *reconcile.Engine
	states       *statestore.Store
	archive      *history.Repository
	notifier     notify.Notifier
	eventManager *events.Manager
	log          zerolog.Logger

	runMu sync.Mutex
}

// NewMonitorJob creates a new monitor job
func NewMonitorJob(
	feed FeedClient,
	normalizer *reconcile.Normalizer,
	engine *reconcile.Engine,
	states *statestore.Store,
	archive *history.Repository,
	notifier notify.Notifier,
	eventManager *events.Manager,
	log zerolog.Logger,
) *MonitorJob {
	return &MonitorJob{
		feed:         feed,
		normalizer:   normalizer,
		engine:       engine,
		states:       states,
		archive:      archive,
		notifier:     notifier,
		eventManager: eventManager,
		log:          log.With().Str("job", "port_call_monitor").Logger(),
	}
}

// Name implements scheduler.Job
func (j *MonitorJob) Name() string {
	return "port_call_monitor"
}

// maxConflictRetries bounds how often a run is restarted after losing a
// write race against another trigger
const maxConflictRetries = 3

// Run implements scheduler.Job
func (j *MonitorJob) Run() error {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		err := j.runOnce()
		if err == nil {
			return nil
		}
		if errors.Is(err, statestore.ErrConflict) {
			j.log.Warn().Int("attempt", attempt).Msg("Run conflicted, retrying from refreshed state")
			continue
		}
		return err
	}
	return fmt.Errorf("gave up after %d conflicting runs", maxConflictRetries)
}

func (j *MonitorJob) runOnce() error {
	now := time.Now().UTC()

	j.eventManager.Emit(events.RunStarted, "monitor", map[string]interface{}{
		"mode": "monitor",
	})

	// 1. Fetch the raw snapshot
	entries, err := j.feed.FetchMovements()
	if err != nil {
		j.eventManager.EmitError("monitor", err, map[string]interface{}{"step": "fetch"})
		return fmt.Errorf("failed to fetch snapshot: %w", err)
	}

	// 2. Load persisted state; corruption falls back to the backup inside
	// the store, and a dead backup is fatal to the run.
	prior, version, err := j.states.Load()
	if err != nil {
		j.eventManager.EmitError("monitor", err, map[string]interface{}{"step": "load_state"})
		return fmt.Errorf("failed to load vessel state: %w", err)
	}
	if j.states.Recovered() {
		j.eventManager.Emit(events.StateRecovered, "monitor", map[string]interface{}{
			"vessels": len(prior),
		})
	}

	// 3. Normalize and reconcile
	observations, dropped := j.normalizer.Normalize(entries, now)
	next, result := j.engine.Reconcile(prior, observations, now)
	result.DroppedEntries = dropped

	// 4. Archive closed calls before committing the state. Appends are
	// idempotent, so a conflict-retried run rewrites the same rows without
	// duplicates, while a failed state save leaves the closed calls safely
	// archived instead of deleted from state and lost.
	if err := j.archive.Append(result.Closed); err != nil {
		j.eventManager.EmitError("monitor", err, map[string]interface{}{"step": "archive"})
		return err
	}

	if err := j.states.Save(next, version); err != nil {
		if !errors.Is(err, statestore.ErrConflict) {
			j.eventManager.EmitError("monitor", err, map[string]interface{}{"step": "save_state"})
		}
		return err
	}

	// 5. Emit lifecycle events and notify
	j.publish(result)

	j.eventManager.Emit(events.RunCompleted, "monitor", map[string]interface{}{
		"run_id":  result.RunID,
		"fetched": len(entries),
		"dropped": dropped,
		"tracked": result.Tracked,
		"events":  len(result.Events),
		"closed":  len(result.Closed),
	})

	return nil
}

// publish fans run output to the event log and the notification sink.
// Delivery failures are logged, never fatal: the run has already
// committed.
func (j *MonitorJob) publish(result *reconcile.Result) {
	for _, ev := range result.Events {
		j.eventManager.Emit(ev.Type, "reconcile", map[string]interface{}{
			"run_id":     result.RunID,
			"vessel_id":  ev.VesselID,
			"vessel":     ev.VesselName,
			"port":       ev.PortCode,
			"agent":      ev.Agent,
			"from_stage": string(ev.FromStage),
			"to_stage":   string(ev.ToStage),
		})
	}

	byPort := make(map[string][]domain.VesselObservation)
	for _, obs := range result.NewArrivals {
		byPort[obs.PortCode] = append(byPort[obs.PortCode], obs)
	}
	for portCode, group := range byPort {
		if err := j.notifier.NotifyArrivals(portCode, group); err != nil {
			j.log.Error().Err(err).Str("port", portCode).Msg("Failed to send arrival alert")
		}
	}

	if err := j.notifier.NotifyDepartures(result.Closed); err != nil {
		j.log.Error().Err(err).Msg("Failed to send departure digest")
	}
}
