package jobs

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/medports/portwatch/internal/domain"
	"github.com/medports/portwatch/internal/events"
	"github.com/medports/portwatch/internal/modules/history"
	"github.com/medports/portwatch/internal/modules/report"
	"github.com/medports/portwatch/internal/notify"
)

// ReportJob builds and delivers the monthly per-agent performance report
type ReportJob struct {
	archive      *history.Repository
	aggregator   *report.Aggregator
	notifier     notify.Notifier
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewReportJob creates a new report job
func NewReportJob(
	archive *history.Repository,
	aggregator *report.Aggregator,
	notifier notify.Notifier,
	eventManager *events.Manager,
	log zerolog.Logger,
) *ReportJob {
	return &ReportJob{
		archive:      archive,
		aggregator:   aggregator,
		notifier:     notifier,
		eventManager: eventManager,
		log:          log.With().Str("job", "monthly_report").Logger(),
	}
}

// Name implements scheduler.Job
func (j *ReportJob) Name() string {
	return "monthly_report"
}

// Run implements scheduler.Job. The scheduled run covers the most
// recently completed calendar month.
func (j *ReportJob) Run() error {
	year, month := report.PreviousMonth(time.Now())
	_, err := j.RunForMonth(year, month)
	return err
}

// RunForMonth aggregates and delivers the report for an explicit month
func (j *ReportJob) RunForMonth(year int, month time.Month) (domain.MonthlyAggregate, error) {
	records, err := j.archive.GetMonth(year, month)
	if err != nil {
		j.eventManager.EmitError("report", err, map[string]interface{}{"step": "load_archive"})
		return domain.MonthlyAggregate{}, fmt.Errorf("failed to load archive for %d-%02d: %w", year, month, err)
	}

	agg := j.aggregator.Aggregate(records, year, month)

	j.eventManager.Emit(events.ReportGenerated, "report", map[string]interface{}{
		"year":   year,
		"month":  int(month),
		"agents": len(agg.Agents),
		"calls":  len(records),
	})

	if len(agg.Agents) == 0 {
		j.log.Info().Int("year", year).Str("month", month.String()).Msg("No completed calls in month, skipping report mail")
		return agg, nil
	}

	if err := j.notifier.NotifyMonthlyReport(agg); err != nil {
		// Delivery is best-effort; the aggregate itself is still returned
		j.log.Error().Err(err).Msg("Failed to deliver monthly report")
	}

	return agg, nil
}
