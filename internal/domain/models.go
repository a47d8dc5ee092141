package domain

import (
	"fmt"
	"time"
)

// Stage represents a vessel's position in the port-call lifecycle
type Stage string

const (
	StageExpected  Stage = "EXPECTED"
	StageAnchorage Stage = "ANCHORAGE"
	StageBerth     Stage = "BERTH"
	StageCompleted Stage = "COMPLETED"
)

// stageOrder gives each stage a rank so transitions can be compared.
// Only single-step advances are recognized; everything else is noise.
var stageOrder = map[Stage]int{
	StageExpected:  0,
	StageAnchorage: 1,
	StageBerth:     2,
	StageCompleted: 3,
}

// Valid reports whether s is a known lifecycle stage
func (s Stage) Valid() bool {
	_, ok := stageOrder[s]
	return ok
}

// Next returns the stage that follows s in the lifecycle, or s itself
// when s is terminal
func (s Stage) Next() Stage {
	switch s {
	case StageExpected:
		return StageAnchorage
	case StageAnchorage:
		return StageBerth
	case StageBerth:
		return StageCompleted
	default:
		return s
	}
}

// IsAdvanceTo reports whether moving from s to next is a recognized
// single-step lifecycle advance
func (s Stage) IsAdvanceTo(next Stage) bool {
	from, ok1 := stageOrder[s]
	to, ok2 := stageOrder[next]
	return ok1 && ok2 && to == from+1
}

// ParseStage maps a raw feed status to a Stage
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown stage %q", raw)
	}
	return s, nil
}

// Grade is the performance grade assigned to a completed port call
type Grade string

const (
	GradeExcellent Grade = "EXCELLENT"
	GradeGood      Grade = "GOOD"
	GradeModerate  Grade = "MODERATE"
	GradeSlow      Grade = "SLOW"
)

// Closure distinguishes how a port call ended
type Closure string

const (
	// ClosureCompleted marks a call that reached a terminal status in the feed
	ClosureCompleted Closure = "completed"
	// ClosureGhost marks a call force-closed after the vessel vanished
	// from the feed beyond the retention window
	ClosureGhost Closure = "ghost"
)

// VesselObservation is one validated entry from a feed snapshot
type VesselObservation struct {
	VesselID   string    `json:"vessel_id"` // name + port code; the feed has no global ID
	VesselName string    `json:"vessel_name"`
	IMO        string    `json:"imo"`
	EscaleNo   string    `json:"escale_no"`
	Stage      Stage     `json:"stage"`
	Agent      string    `json:"agent"`
	PortCode   string    `json:"port_code"`
	VesselType string    `json:"vessel_type"`
	Provenance string    `json:"provenance"`
	ObservedAt time.Time `json:"observed_at"` // UTC
}

// VesselState is the persisted record of one currently-tracked vessel.
//
// Invariant: StageEnteredAt <= LastSeenAt <= run time; MissingSince is set
// only while the vessel is absent from the snapshot and cleared on
// reappearance.
type VesselState struct {
	VesselID       string     `json:"vessel_id"`
	VesselName     string     `json:"vessel_name"`
	IMO            string     `json:"imo,omitempty"`
	EscaleNo       string     `json:"escale_no,omitempty"`
	PortCode       string     `json:"port_code"`
	Agent          string     `json:"agent"`
	VesselType     string     `json:"vessel_type,omitempty"`
	Provenance     string     `json:"provenance,omitempty"`
	Stage          Stage      `json:"stage"`
	StageEnteredAt time.Time  `json:"stage_entered_at"`
	LastSeenAt     time.Time  `json:"last_seen_at"`
	MissingSince   *time.Time `json:"missing_since,omitempty"`

	// AnchorageHours accumulates waiting time closed out so far, from
	// Expected entry through Berth entry
	AnchorageHours float64 `json:"anchorage_hours"`
}

// Validate checks the structural invariants of a loaded state record.
// A violation means the persisted state is corrupt, not that the vessel
// is in a bad place.
func (v *VesselState) Validate() error {
	if v.VesselID == "" {
		return fmt.Errorf("vessel state missing vessel_id")
	}
	if !v.Stage.Valid() {
		return fmt.Errorf("vessel %s: invalid stage %q", v.VesselID, v.Stage)
	}
	if v.StageEnteredAt.IsZero() || v.LastSeenAt.IsZero() {
		return fmt.Errorf("vessel %s: missing timestamps", v.VesselID)
	}
	if v.StageEnteredAt.After(v.LastSeenAt) {
		return fmt.Errorf("vessel %s: stage entry %s after last seen %s",
			v.VesselID, v.StageEnteredAt.Format(time.RFC3339), v.LastSeenAt.Format(time.RFC3339))
	}
	if v.AnchorageHours < 0 {
		return fmt.Errorf("vessel %s: negative anchorage hours", v.VesselID)
	}
	return nil
}

// HistoryRecord is one archived, immutable port call
type HistoryRecord struct {
	ID             int64     `json:"id"`
	VesselID       string    `json:"vessel_id"`
	VesselName     string    `json:"vessel_name"`
	PortCode       string    `json:"port_code"`
	Agent          string    `json:"agent"`
	AnchorageHours float64   `json:"anchorage_hours"`
	BerthHours     float64   `json:"berth_hours"`
	Grade          Grade     `json:"grade"`
	Closure        Closure   `json:"closure"`
	CompletedAt    time.Time `json:"completed_at"` // UTC
}

// AgentStats is the per-agent slice of a monthly aggregate
type AgentStats struct {
	Agent                string        `json:"agent"`
	CallCount            int           `json:"call_count"`
	GhostCalls           int           `json:"ghost_calls"`
	AvgAnchorageHours    float64       `json:"avg_anchorage_hours"`
	AvgBerthHours        float64       `json:"avg_berth_hours"`
	StdDevAnchorageHours float64       `json:"std_dev_anchorage_hours"`
	StdDevBerthHours     float64       `json:"std_dev_berth_hours"`
	Grades               map[Grade]int `json:"grades"`
}

// MonthlyAggregate is the report-mode projection over one calendar month
type MonthlyAggregate struct {
	Year   int          `json:"year"`
	Month  time.Month   `json:"month"`
	Agents []AgentStats `json:"agents"`
}
