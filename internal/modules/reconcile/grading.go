package reconcile

import (
	"time"

	"github.com/medports/portwatch/internal/domain"
)

// StageHours returns the elapsed hours between stage entry and close,
// floored at zero. Clock skew or out-of-order snapshots must never
// produce a negative duration.
func StageHours(enteredAt, closedAt time.Time) float64 {
	hours := closedAt.Sub(enteredAt).Hours()
	if hours < 0 {
		return 0
	}
	return hours
}

// GradeCall assigns a performance grade from total anchorage and berth
// hours. Thresholds are ordered; the first match wins:
//
//	Excellent: anchorage < 5h and berth < 24h
//	Good:      anchorage < 10h and berth < 36h
//	Moderate:  anchorage >= 10h
//	Slow:      everything else
func GradeCall(anchorageHours, berthHours float64) domain.Grade {
	switch {
	case anchorageHours < 5 && berthHours < 24:
		return domain.GradeExcellent
	case anchorageHours < 10 && berthHours < 36:
		return domain.GradeGood
	case anchorageHours >= 10:
		return domain.GradeModerate
	default:
		return domain.GradeSlow
	}
}

// CloseCall builds the immutable archive record for a finished port call.
// berthHours is the closed berth stage duration (zero when the vessel
// never berthed); waiting time accumulated so far lives on the state.
func CloseCall(st *domain.VesselState, berthHours float64, closure domain.Closure, completedAt time.Time) domain.HistoryRecord {
	return domain.HistoryRecord{
		VesselID:       st.VesselID,
		VesselName:     st.VesselName,
		PortCode:       st.PortCode,
		Agent:          st.Agent,
		AnchorageHours: st.AnchorageHours,
		BerthHours:     berthHours,
		Grade:          GradeCall(st.AnchorageHours, berthHours),
		Closure:        closure,
		CompletedAt:    completedAt.UTC(),
	}
}
