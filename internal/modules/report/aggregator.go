package report

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/medports/portwatch/internal/domain"
	"github.com/medports/portwatch/pkg/formulas"
)

// Aggregator computes monthly per-agent performance statistics from the
// port-call archive. It is a read-only projection; the archive is never
// mutated.
type Aggregator struct {
	log zerolog.Logger
}

// NewAggregator creates a monthly aggregator
func NewAggregator(log zerolog.Logger) *Aggregator {
	return &Aggregator{
		log: log.With().Str("component", "aggregator").Logger(),
	}
}

// Aggregate groups the given records by agent and computes call counts,
// mean durations and grade distributions for one calendar month. The month
// is explicit so callers never infer it ambiguously across timezone
// boundaries; records outside the month are filtered out here, in UTC.
// Agents with no calls in the month are omitted, not zero-filled.
func (a *Aggregator) Aggregate(records []domain.HistoryRecord, year int, month time.Month) domain.MonthlyAggregate {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	type bucket struct {
		anchorage []float64
		berth     []float64
		grades    map[domain.Grade]int
		ghosts    int
	}

	buckets := make(map[string]*bucket)
	for _, rec := range records {
		at := rec.CompletedAt.UTC()
		if at.Before(start) || !at.Before(end) {
			continue
		}

		b, ok := buckets[rec.Agent]
		if !ok {
			b = &bucket{grades: make(map[domain.Grade]int)}
			buckets[rec.Agent] = b
		}

		b.anchorage = append(b.anchorage, rec.AnchorageHours)
		b.berth = append(b.berth, rec.BerthHours)
		b.grades[rec.Grade]++
		if rec.Closure == domain.ClosureGhost {
			b.ghosts++
		}
	}

	agg := domain.MonthlyAggregate{
		Year:  year,
		Month: month,
	}

	for agent, b := range buckets {
		agg.Agents = append(agg.Agents, domain.AgentStats{
			Agent:                agent,
			CallCount:            len(b.anchorage),
			GhostCalls:           b.ghosts,
			AvgAnchorageHours:    formulas.Round2(formulas.Mean(b.anchorage)),
			AvgBerthHours:        formulas.Round2(formulas.Mean(b.berth)),
			StdDevAnchorageHours: formulas.Round2(formulas.StdDev(b.anchorage)),
			StdDevBerthHours:     formulas.Round2(formulas.StdDev(b.berth)),
			Grades:               b.grades,
		})
	}

	// Busiest agents first, name as tiebreaker, so reports are stable
	sort.Slice(agg.Agents, func(i, j int) bool {
		if agg.Agents[i].CallCount != agg.Agents[j].CallCount {
			return agg.Agents[i].CallCount > agg.Agents[j].CallCount
		}
		return agg.Agents[i].Agent < agg.Agents[j].Agent
	})

	a.log.Debug().
		Int("year", year).
		Str("month", month.String()).
		Int("agents", len(agg.Agents)).
		Msg("Monthly aggregate computed")

	return agg
}

// PreviousMonth returns the most recently completed calendar month
// relative to now, in UTC
func PreviousMonth(now time.Time) (int, time.Month) {
	prev := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return prev.Year(), prev.Month()
}
