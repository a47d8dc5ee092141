package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medports/portwatch/internal/clients/anp"
	"github.com/medports/portwatch/internal/domain"
)

// situationStages maps feed situation labels to lifecycle stages.
// Labels are the port authority's French movement statuses.
var situationStages = map[string]domain.Stage{
	"PREVU":        domain.StageExpected,
	"EN RADE":      domain.StageAnchorage,
	"A QUAI":       domain.StageBerth,
	"APPAREILLAGE": domain.StageCompleted,
}

// Normalizer shapes raw feed entries into canonical vessel observations.
// Invalid entries are dropped and counted, never fatal.
type Normalizer struct {
	allowedPorts map[string]bool
	log          zerolog.Logger
}

// NewNormalizer creates a normalizer restricted to the given port codes
func NewNormalizer(allowedPorts []string, log zerolog.Logger) *Normalizer {
	allowed := make(map[string]bool, len(allowedPorts))
	for _, code := range allowedPorts {
		allowed[code] = true
	}
	return &Normalizer{
		allowedPorts: allowed,
		log:          log.With().Str("component", "normalizer").Logger(),
	}
}

// Normalize validates and shapes one raw snapshot. Returns the ordered
// observation sequence for the target ports and the number of entries
// dropped as malformed. Entries for ports outside the target set are
// filtered silently, not counted as drops.
func (n *Normalizer) Normalize(entries []anp.MovementEntry, now time.Time) ([]domain.VesselObservation, int) {
	observations := make([]domain.VesselObservation, 0, len(entries))
	dropped := 0

	for _, entry := range entries {
		portCode := strings.TrimSpace(entry.PortCode)
		if !n.allowedPorts[portCode] {
			continue
		}

		name := strings.TrimSpace(entry.VesselName)
		if name == "" {
			n.log.Debug().Str("port", portCode).Msg("Dropping entry without vessel name")
			dropped++
			continue
		}

		stage, ok := situationStages[strings.ToUpper(strings.TrimSpace(entry.Situation))]
		if !ok {
			n.log.Debug().
				Str("vessel", name).
				Str("situation", entry.Situation).
				Msg("Dropping entry with unrecognized situation")
			dropped++
			continue
		}

		observedAt := anp.ParseWCFDate(entry.DateRaw)
		if observedAt.IsZero() {
			observedAt = now
		}

		observations = append(observations, domain.VesselObservation{
			VesselID:   vesselID(portCode, entry),
			VesselName: name,
			IMO:        strings.TrimSpace(entry.IMO),
			EscaleNo:   strings.TrimSpace(entry.EscaleNo),
			Stage:      stage,
			Agent:      strings.TrimSpace(entry.Agent),
			PortCode:   portCode,
			VesselType: strings.TrimSpace(entry.VesselType),
			Provenance: strings.TrimSpace(entry.Provenance),
			ObservedAt: observedAt.UTC(),
		})
	}

	return observations, dropped
}

// vesselID derives a stable identifier for one port call. The feed has no
// globally unique vessel key, so the IMO number (or the vessel name when
// the IMO is missing) is combined with the escale number and port code.
func vesselID(portCode string, entry anp.MovementEntry) string {
	base := strings.TrimSpace(entry.IMO)
	if base == "" {
		base = strings.ToUpper(strings.TrimSpace(entry.VesselName))
	}
	escale := strings.TrimSpace(entry.EscaleNo)
	if escale == "" {
		escale = "0"
	}
	return fmt.Sprintf("%s:%s-%s", portCode, base, escale)
}
