package reconcile

import (
	"testing"
	"time"

	"github.com/medports/portwatch/internal/domain"
)

func TestGradeCall(t *testing.T) {
	tests := []struct {
		name           string
		anchorageHours float64
		berthHours     float64
		expected       domain.Grade
	}{
		{"fast turnaround", 4, 20, domain.GradeExcellent},
		{"decent turnaround", 8, 30, domain.GradeGood},
		{"long wait short berth", 12, 20, domain.GradeModerate},
		{"short wait long berth", 3, 50, domain.GradeSlow},
		{"excellent boundary anchorage", 5, 20, domain.GradeGood},
		{"excellent boundary berth", 4, 24, domain.GradeGood},
		{"good boundary anchorage", 10, 30, domain.GradeModerate},
		{"good boundary berth", 8, 36, domain.GradeSlow},
		{"zero durations", 0, 0, domain.GradeExcellent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GradeCall(tt.anchorageHours, tt.berthHours)
			if got != tt.expected {
				t.Errorf("GradeCall(%.1f, %.1f) = %s, want %s",
					tt.anchorageHours, tt.berthHours, got, tt.expected)
			}
		})
	}
}

func TestStageHours(t *testing.T) {
	entered := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	if got := StageHours(entered, entered.Add(6*time.Hour)); got != 6 {
		t.Errorf("expected 6 hours, got %.2f", got)
	}

	if got := StageHours(entered, entered.Add(30*time.Minute)); got != 0.5 {
		t.Errorf("expected 0.5 hours, got %.2f", got)
	}

	// Clock skew must floor at zero, never go negative
	if got := StageHours(entered, entered.Add(-2*time.Hour)); got != 0 {
		t.Errorf("expected 0 hours for out-of-order close, got %.2f", got)
	}
}

func TestCloseCall(t *testing.T) {
	completedAt := time.Date(2025, 6, 3, 18, 0, 0, 0, time.UTC)
	st := &domain.VesselState{
		VesselID:       "07:9234567-1042",
		VesselName:     "MSC AURORA",
		PortCode:       "07",
		Agent:          "AGENCE ATLAS",
		Stage:          domain.StageBerth,
		AnchorageHours: 4,
	}

	rec := CloseCall(st, 20, domain.ClosureCompleted, completedAt)

	if rec.Grade != domain.GradeExcellent {
		t.Errorf("expected EXCELLENT, got %s", rec.Grade)
	}
	if rec.AnchorageHours != 4 || rec.BerthHours != 20 {
		t.Errorf("unexpected durations: %.1f / %.1f", rec.AnchorageHours, rec.BerthHours)
	}
	if rec.Closure != domain.ClosureCompleted {
		t.Errorf("expected completed closure, got %s", rec.Closure)
	}
	if !rec.CompletedAt.Equal(completedAt) {
		t.Errorf("unexpected completion timestamp: %s", rec.CompletedAt)
	}
}
