package reconcile

import (
	"testing"
	"time"

	"github.com/medports/portwatch/internal/domain"
)

func TestGhostPolicy_Evaluate(t *testing.T) {
	policy := NewGhostPolicy(72)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	vessel := func(missingFor time.Duration) *domain.VesselState {
		st := &domain.VesselState{
			VesselID: "07:9234567-1042",
			Stage:    domain.StageAnchorage,
		}
		if missingFor >= 0 {
			since := now.Add(-missingFor)
			st.MissingSince = &since
		}
		return st
	}

	tests := []struct {
		name       string
		missingFor time.Duration
		expected   GhostAction
	}{
		{"first absence starts the clock", -1, GhostMark},
		{"absent two days stays tracked", 48 * time.Hour, GhostKeep},
		{"just inside the window", 72*time.Hour - time.Second, GhostKeep},
		{"exactly at the window expires", 72 * time.Hour, GhostExpire},
		{"long gone expires", 96 * time.Hour, GhostExpire},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Evaluate(vessel(tt.missingFor), now)
			if got != tt.expected {
				t.Errorf("expected action %d, got %d", tt.expected, got)
			}
		})
	}
}
