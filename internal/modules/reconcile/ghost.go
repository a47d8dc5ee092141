package reconcile

import (
	"time"

	"github.com/medports/portwatch/internal/domain"
)

// GhostAction is the retention decision for a vessel absent from the
// latest snapshot
type GhostAction int

const (
	// GhostKeep leaves the vessel tracked, missing-since already running
	GhostKeep GhostAction = iota
	// GhostMark starts the missing-since clock
	GhostMark
	// GhostExpire force-closes the call and archives it
	GhostExpire
)

// GhostPolicy bounds how long a vessel can stay tracked after it vanishes
// from the feed without reaching a terminal status. Transient feed outages
// are tolerated inside the retention window; beyond it the call is closed
// at the missing-since instant.
type GhostPolicy struct {
	retention time.Duration
}

// NewGhostPolicy creates a ghost retention policy with the given window
func NewGhostPolicy(retentionHours float64) *GhostPolicy {
	return &GhostPolicy{
		retention: time.Duration(retentionHours * float64(time.Hour)),
	}
}

// Evaluate decides what to do with an absent vessel at run time now
func (p *GhostPolicy) Evaluate(st *domain.VesselState, now time.Time) GhostAction {
	if st.MissingSince == nil {
		return GhostMark
	}
	if now.Sub(*st.MissingSince) < p.retention {
		return GhostKeep
	}
	return GhostExpire
}
