package notify

import (
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medports/portwatch/internal/domain"
	"github.com/medports/portwatch/pkg/logger"
)

var testLog = logger.New(logger.Config{Level: "error", Pretty: false})

func TestRenderArrivals(t *testing.T) {
	arrivals := []domain.VesselObservation{
		{
			VesselName: "MSC AURORA",
			IMO:        "9234567",
			EscaleNo:   "1042",
			Agent:      "AGENCE ATLAS",
			VesselType: "PORTE CONTENEURS",
			Provenance: "VALENCIA",
			ObservedAt: time.Date(2025, 6, 3, 14, 30, 0, 0, time.UTC),
		},
		{VesselName: "SAFI STAR"},
	}

	body, err := renderArrivals("Jorf Lasfar", arrivals)
	require.NoError(t, err)

	assert.Contains(t, body, "Port de Jorf Lasfar")
	assert.Contains(t, body, "MSC AURORA")
	assert.Contains(t, body, "9234567")
	assert.Contains(t, body, "AGENCE ATLAS")
	// Empty feed fields fall back to a placeholder
	assert.Contains(t, body, "N/A")
	// 14:30 UTC is 15:30 in Morocco
	assert.Contains(t, body, "15:30")
}

func TestRenderDepartures(t *testing.T) {
	records := []domain.HistoryRecord{
		{
			VesselName:     "MSC AURORA",
			PortCode:       "07",
			Agent:          "AGENCE ATLAS",
			AnchorageHours: 4.256,
			BerthHours:     20,
			Grade:          domain.GradeExcellent,
			Closure:        domain.ClosureCompleted,
		},
		{
			VesselName: "SILENT WAVE",
			PortCode:   "03",
			Grade:      domain.GradeModerate,
			Closure:    domain.ClosureGhost,
		},
	}

	body, err := renderDepartures(records)
	require.NoError(t, err)

	assert.Contains(t, body, "Jorf Lasfar")
	assert.Contains(t, body, "4.26", "durations are rounded to two decimals")
	assert.Contains(t, body, "fantôme", "ghost closures are flagged")
}

func TestRenderReport(t *testing.T) {
	agg := domain.MonthlyAggregate{
		Year:  2025,
		Month: time.June,
		Agents: []domain.AgentStats{
			{
				Agent:             "AGENCE ATLAS",
				CallCount:         2,
				AvgAnchorageHours: 6,
				AvgBerthHours:     25,
				Grades: map[domain.Grade]int{
					domain.GradeExcellent: 1,
					domain.GradeGood:      1,
				},
			},
		},
	}

	body, err := renderReport(agg)
	require.NoError(t, err)

	assert.Contains(t, body, "juin")
	assert.Contains(t, body, "2025")
	assert.Contains(t, body, "AGENCE ATLAS")
	assert.Contains(t, body, "25.00")
	assert.Contains(t, body, "EXCELLENT: 1, GOOD: 1")
}

func TestFormatDateFR(t *testing.T) {
	// 23:30 UTC on June 2nd is already June 3rd in Morocco
	got := formatDateFR(time.Date(2025, 6, 2, 23, 30, 0, 0, time.UTC))
	assert.Equal(t, "Mardi, 03 juin 2025", got)

	assert.Equal(t, "N/A", formatDateFR(time.Time{}))
}

func TestFormatGrades(t *testing.T) {
	got := formatGrades(map[domain.Grade]int{
		domain.GradeSlow:      2,
		domain.GradeExcellent: 1,
	})
	// Fixed order regardless of map iteration
	assert.Equal(t, "EXCELLENT: 1, SLOW: 2", got)

	assert.Equal(t, "—", formatGrades(nil))
}

func TestMailer_DeliversArrivalAlert(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	m := NewMailer(MailerConfig{
		Host: "smtp.example.com",
		Port: 587,
		User: "ops@example.com",
		Pass: "secret",
		To:   "agents@example.com",
	}, testLog)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := m.NotifyArrivals("07", []domain.VesselObservation{
		{VesselName: "MSC AURORA", ObservedAt: time.Date(2025, 6, 3, 14, 30, 0, 0, time.UTC)},
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "ops@example.com", gotFrom)
	assert.Equal(t, []string{"agents@example.com"}, gotTo)

	raw := string(gotMsg)
	assert.Contains(t, raw, "NOUVELLE ARRIVÉE PRÉVUE")
	assert.Contains(t, raw, "MSC AURORA")
	assert.Contains(t, raw, `text/html; charset="UTF-8"`)
	// Headers end before the body starts
	assert.True(t, strings.Contains(raw, "\r\n\r\n"))
}

func TestMailer_SkipsEmptyBatches(t *testing.T) {
	m := NewMailer(MailerConfig{}, testLog)
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send should not be called for an empty batch")
		return nil
	}

	assert.NoError(t, m.NotifyArrivals("07", nil))
	assert.NoError(t, m.NotifyDepartures(nil))
}
