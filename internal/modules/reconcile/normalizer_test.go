package reconcile

import (
	"testing"
	"time"

	"github.com/medports/portwatch/internal/clients/anp"
	"github.com/medports/portwatch/internal/domain"
	"github.com/medports/portwatch/pkg/logger"
)

var testLog = logger.New(logger.Config{Level: "error", Pretty: false})

func TestNormalizer_Normalize(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	n := NewNormalizer([]string{"07", "03"}, testLog)

	entries := []anp.MovementEntry{
		{VesselName: "MSC AURORA", IMO: "9234567", EscaleNo: "1042", Situation: "PREVU", Agent: "AGENCE ATLAS", PortCode: "07", DateRaw: "/Date(1748736000000+0100)/"},
		{VesselName: "SAFI STAR", Situation: "A QUAI", Agent: "COMARIT", PortCode: "03"},
		// Port outside the target set: filtered, not a drop
		{VesselName: "TANGER EXPRESS", Situation: "PREVU", PortCode: "08"},
		// Malformed: no vessel name
		{Situation: "PREVU", PortCode: "07"},
		// Malformed: unknown situation
		{VesselName: "GHOST SHIP", Situation: "EN PANNE", PortCode: "07"},
	}

	observations, dropped := n.Normalize(entries, now)

	if len(observations) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(observations))
	}
	if dropped != 2 {
		t.Errorf("expected 2 dropped entries, got %d", dropped)
	}

	first := observations[0]
	if first.Stage != domain.StageExpected {
		t.Errorf("expected EXPECTED stage, got %s", first.Stage)
	}
	if first.VesselID != "07:9234567-1042" {
		t.Errorf("unexpected vessel id %q", first.VesselID)
	}
	if first.ObservedAt.IsZero() || first.ObservedAt.Equal(now) {
		t.Errorf("expected feed timestamp to be used, got %s", first.ObservedAt)
	}

	// Missing IMO falls back to the vessel name; missing feed date falls
	// back to the run timestamp
	second := observations[1]
	if second.VesselID != "03:SAFI STAR-0" {
		t.Errorf("unexpected fallback vessel id %q", second.VesselID)
	}
	if second.Stage != domain.StageBerth {
		t.Errorf("expected BERTH stage, got %s", second.Stage)
	}
	if !second.ObservedAt.Equal(now) {
		t.Errorf("expected run timestamp fallback, got %s", second.ObservedAt)
	}
}

func TestNormalizer_SituationMapping(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	n := NewNormalizer([]string{"07"}, testLog)

	tests := []struct {
		situation string
		expected  domain.Stage
	}{
		{"PREVU", domain.StageExpected},
		{"EN RADE", domain.StageAnchorage},
		{"A QUAI", domain.StageBerth},
		{"APPAREILLAGE", domain.StageCompleted},
		{"a quai", domain.StageBerth}, // case-insensitive
	}

	for _, tt := range tests {
		t.Run(tt.situation, func(t *testing.T) {
			obs, dropped := n.Normalize([]anp.MovementEntry{
				{VesselName: "TEST", Situation: tt.situation, PortCode: "07"},
			}, now)
			if dropped != 0 || len(obs) != 1 {
				t.Fatalf("expected one observation, got %d (dropped %d)", len(obs), dropped)
			}
			if obs[0].Stage != tt.expected {
				t.Errorf("situation %q mapped to %s, want %s", tt.situation, obs[0].Stage, tt.expected)
			}
		})
	}
}

func TestNormalizer_EmptySnapshot(t *testing.T) {
	n := NewNormalizer([]string{"07"}, testLog)
	obs, dropped := n.Normalize(nil, time.Now().UTC())
	if len(obs) != 0 || dropped != 0 {
		t.Errorf("expected empty result, got %d observations, %d dropped", len(obs), dropped)
	}
}
