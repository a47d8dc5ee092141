package reconcile

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medports/portwatch/internal/domain"
	"github.com/medports/portwatch/internal/events"
)

// Event is one lifecycle event produced by a reconciliation run
type Event struct {
	Type       events.EventType `json:"type"`
	VesselID   string           `json:"vessel_id"`
	VesselName string           `json:"vessel_name"`
	PortCode   string           `json:"port_code"`
	Agent      string           `json:"agent"`
	FromStage  domain.Stage     `json:"from_stage,omitempty"`
	ToStage    domain.Stage     `json:"to_stage,omitempty"`
	At         time.Time        `json:"at"`
}

// Result carries everything one reconciliation run produced. The caller
// owns persistence: the returned state replaces the prior state and the
// closed records are appended to the archive, atomically together.
type Result struct {
	RunID          string
	Events         []Event
	Closed         []domain.HistoryRecord
	NewArrivals    []domain.VesselObservation
	DroppedEntries int
	Tracked        int
}

// Engine diffs a canonical observation set against persisted vessel state.
// Reconcile never mutates its inputs and is idempotent for repeated runs
// against an unchanged snapshot.
type Engine struct {
	ghost *GhostPolicy
	log   zerolog.Logger
}

// NewEngine creates a reconciliation engine
func NewEngine(ghost *GhostPolicy, log zerolog.Logger) *Engine {
	return &Engine{
		ghost: ghost,
		log:   log.With().Str("component", "reconcile").Logger(),
	}
}

// Reconcile applies one snapshot to the prior state and returns the next
// state plus the lifecycle events and closed port calls it implies.
func (e *Engine) Reconcile(prior map[string]*domain.VesselState, observations []domain.VesselObservation, now time.Time) (map[string]*domain.VesselState, *Result) {
	now = now.UTC()

	result := &Result{
		RunID: uuid.NewString(),
	}
	log := e.log.With().Str("run_id", result.RunID).Logger()

	next := make(map[string]*domain.VesselState, len(prior))
	for id, st := range prior {
		clone := *st
		next[id] = &clone
	}

	// First observation per vessel wins; the feed occasionally repeats
	// an escale within one snapshot.
	seen := make(map[string]domain.VesselObservation, len(observations))
	for _, obs := range observations {
		if _, dup := seen[obs.VesselID]; !dup {
			seen[obs.VesselID] = obs
		}
	}

	for _, obs := range observations {
		if seen[obs.VesselID] != obs {
			continue
		}

		st, tracked := next[obs.VesselID]
		if !tracked {
			e.admit(next, obs, now, result, log)
			continue
		}

		st.LastSeenAt = now
		st.MissingSince = nil

		switch {
		case obs.Stage == st.Stage:
			// No movement; nothing else to do.

		case st.Stage.IsAdvanceTo(obs.Stage):
			e.advance(next, st, obs, now, result, log)

		default:
			// Regression or a jump the transition table does not know.
			// Feed flapping must not corrupt timers, so only the
			// last-seen timestamp moves.
			log.Warn().
				Str("vessel", st.VesselName).
				Str("from", string(st.Stage)).
				Str("to", string(obs.Stage)).
				Msg("Ignoring unrecognized stage transition")
		}
	}

	e.sweepAbsent(next, seen, now, result, log)

	result.Tracked = len(next)
	return next, result
}

// admit starts tracking a vessel seen for the first time. ArrivalDetected
// fires only for Expected; vessels first seen mid-call are tracked from
// their reported stage without an arrival event. A brand-new terminal
// entry has no timers to measure and is skipped.
func (e *Engine) admit(next map[string]*domain.VesselState, obs domain.VesselObservation, now time.Time, result *Result, log zerolog.Logger) {
	if obs.Stage == domain.StageCompleted {
		log.Debug().Str("vessel", obs.VesselName).Msg("Skipping unseen vessel already departed")
		return
	}

	enteredAt := obs.ObservedAt
	if enteredAt.After(now) {
		enteredAt = now
	}

	next[obs.VesselID] = &domain.VesselState{
		VesselID:       obs.VesselID,
		VesselName:     obs.VesselName,
		IMO:            obs.IMO,
		EscaleNo:       obs.EscaleNo,
		PortCode:       obs.PortCode,
		Agent:          obs.Agent,
		VesselType:     obs.VesselType,
		Provenance:     obs.Provenance,
		Stage:          obs.Stage,
		StageEnteredAt: enteredAt,
		LastSeenAt:     now,
	}

	if obs.Stage == domain.StageExpected {
		result.Events = append(result.Events, Event{
			Type:       events.ArrivalDetected,
			VesselID:   obs.VesselID,
			VesselName: obs.VesselName,
			PortCode:   obs.PortCode,
			Agent:      obs.Agent,
			ToStage:    obs.Stage,
			At:         now,
		})
		result.NewArrivals = append(result.NewArrivals, obs)
		log.Info().
			Str("vessel", obs.VesselName).
			Str("port", domain.PortName(obs.PortCode)).
			Msg("Arrival detected")
	}
}

// advance closes the current stage and moves the vessel one step forward.
// Berth→Completed also closes the whole call and removes it from state.
func (e *Engine) advance(next map[string]*domain.VesselState, st *domain.VesselState, obs domain.VesselObservation, now time.Time, result *Result, log zerolog.Logger) {
	closedAt := obs.ObservedAt
	if closedAt.After(now) {
		closedAt = now
	}

	stageHours := StageHours(st.StageEnteredAt, closedAt)

	result.Events = append(result.Events, Event{
		Type:       events.StageAdvanced,
		VesselID:   st.VesselID,
		VesselName: st.VesselName,
		PortCode:   st.PortCode,
		Agent:      st.Agent,
		FromStage:  st.Stage,
		ToStage:    obs.Stage,
		At:         now,
	})

	switch st.Stage {
	case domain.StageExpected, domain.StageAnchorage:
		// Waiting time keeps accumulating until the vessel berths.
		st.AnchorageHours += stageHours
	}

	if obs.Stage == domain.StageCompleted {
		record := CloseCall(st, stageHours, domain.ClosureCompleted, closedAt)
		result.Closed = append(result.Closed, record)
		delete(next, st.VesselID)
		log.Info().
			Str("vessel", st.VesselName).
			Float64("anchorage_hours", record.AnchorageHours).
			Float64("berth_hours", record.BerthHours).
			Str("grade", string(record.Grade)).
			Msg("Departure detected")
		return
	}

	st.Stage = obs.Stage
	st.StageEnteredAt = closedAt
	log.Info().
		Str("vessel", st.VesselName).
		Str("stage", string(st.Stage)).
		Msg("Stage advanced")
}

// sweepAbsent applies the ghost retention policy to every tracked vessel
// missing from the current snapshot.
func (e *Engine) sweepAbsent(next map[string]*domain.VesselState, seen map[string]domain.VesselObservation, now time.Time, result *Result, log zerolog.Logger) {
	for id, st := range next {
		if _, present := seen[id]; present {
			continue
		}

		switch e.ghost.Evaluate(st, now) {
		case GhostMark:
			missingSince := now
			st.MissingSince = &missingSince

		case GhostKeep:
			// Inside the retention window; tolerate the outage.

		case GhostExpire:
			closedAt := *st.MissingSince
			stageHours := StageHours(st.StageEnteredAt, closedAt)

			var berthHours float64
			switch st.Stage {
			case domain.StageExpected, domain.StageAnchorage:
				st.AnchorageHours += stageHours
			case domain.StageBerth:
				berthHours = stageHours
			}

			record := CloseCall(st, berthHours, domain.ClosureGhost, closedAt)
			result.Closed = append(result.Closed, record)
			result.Events = append(result.Events, Event{
				Type:       events.GhostExpired,
				VesselID:   st.VesselID,
				VesselName: st.VesselName,
				PortCode:   st.PortCode,
				Agent:      st.Agent,
				FromStage:  st.Stage,
				At:         now,
			})
			delete(next, id)
			log.Warn().
				Str("vessel", st.VesselName).
				Str("last_stage", string(st.Stage)).
				Time("missing_since", closedAt).
				Msg("Ghost vessel expired")
		}
	}
}
