package notify

import (
	"github.com/medports/portwatch/internal/domain"
)

// Notifier is the outbound notification sink. Delivery is best-effort:
// implementations log failures but the run that produced the payload has
// already committed its state.
type Notifier interface {
	// NotifyArrivals announces newly expected vessels, grouped per port
	NotifyArrivals(portCode string, arrivals []domain.VesselObservation) error
	// NotifyDepartures announces closed port calls with their stay figures
	NotifyDepartures(records []domain.HistoryRecord) error
	// NotifyMonthlyReport delivers the per-agent monthly performance report
	NotifyMonthlyReport(agg domain.MonthlyAggregate) error
}

// Nop is a Notifier that discards everything. Used when email delivery
// is disabled or unconfigured.
type Nop struct{}

func (Nop) NotifyArrivals(string, []domain.VesselObservation) error { return nil }
func (Nop) NotifyDepartures([]domain.HistoryRecord) error           { return nil }
func (Nop) NotifyMonthlyReport(domain.MonthlyAggregate) error       { return nil }
