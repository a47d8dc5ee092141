package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/medports/portwatch/internal/domain"
	"github.com/medports/portwatch/pkg/formulas"
)

var arrivalTmpl = template.Must(template.New("arrival").Parse(`
<p style="font-family:Arial; font-size:15px;">Bonjour,<br><br>
Ci-dessous les mouvements prévus au <b>Port de {{.Port}}</b> :</p>
{{range .Vessels}}
<div style="font-family: Arial, sans-serif; margin: 15px 0; border: 1px solid #d0d7e1; border-radius: 8px; overflow: hidden;">
  <div style="background: #0a3d62; color: white; padding: 12px; font-size: 16px;">🚢 <b>{{.Name}}</b></div>
  <table style="width: 100%; border-collapse: collapse; font-size: 14px;">
    <tr><td style="padding: 10px; width: 30%;"><b>🕒 ETA</b></td><td style="padding: 10px;">{{.ETA}}</td></tr>
    <tr><td style="padding: 10px;"><b>🆔 IMO</b></td><td style="padding: 10px;">{{.IMO}}</td></tr>
    <tr><td style="padding: 10px;"><b>⚓ Escale</b></td><td style="padding: 10px;">{{.Escale}}</td></tr>
    <tr><td style="padding: 10px;"><b>🛳️ Type</b></td><td style="padding: 10px;">{{.Type}}</td></tr>
    <tr><td style="padding: 10px;"><b>🏢 Agent</b></td><td style="padding: 10px;">{{.Agent}}</td></tr>
    <tr><td style="padding: 10px;"><b>🌍 Prov.</b></td><td style="padding: 10px;">{{.Provenance}}</td></tr>
  </table>
</div>
{{end}}
<div style="margin-top: 20px; border-top: 1px solid #e6e9ef; padding-top: 15px;">
  <p style="font-family:Arial; font-size:14px; color:#333;">Cordialement,</p>
  <p style="font-family:Arial; font-size:12px; color:#777777; font-style: italic;">
    Ceci est une génération automatique par le système de surveillance portuaire.</p>
</div>`))

var departureTmpl = template.Must(template.New("departure").Parse(`
<p style="font-family:Arial; font-size:15px;">Bonjour,<br><br>
Escales clôturées lors du dernier cycle :</p>
<table style="font-family: Arial, sans-serif; width: 100%; border-collapse: collapse; font-size: 14px;">
  <tr style="background: #0a3d62; color: white;">
    <th style="padding: 8px; text-align: left;">Navire</th>
    <th style="padding: 8px; text-align: left;">Port</th>
    <th style="padding: 8px; text-align: left;">Agent</th>
    <th style="padding: 8px; text-align: right;">Attente (h)</th>
    <th style="padding: 8px; text-align: right;">Quai (h)</th>
    <th style="padding: 8px; text-align: left;">Note</th>
  </tr>
{{range .Rows}}
  <tr>
    <td style="padding: 8px; border-bottom: 1px solid #eeeeee;">{{.Vessel}}</td>
    <td style="padding: 8px; border-bottom: 1px solid #eeeeee;">{{.Port}}</td>
    <td style="padding: 8px; border-bottom: 1px solid #eeeeee;">{{.Agent}}</td>
    <td style="padding: 8px; border-bottom: 1px solid #eeeeee; text-align: right;">{{.Anchorage}}</td>
    <td style="padding: 8px; border-bottom: 1px solid #eeeeee; text-align: right;">{{.Berth}}</td>
    <td style="padding: 8px; border-bottom: 1px solid #eeeeee;">{{.Grade}}</td>
  </tr>
{{end}}
</table>`))

var reportTmpl = template.Must(template.New("report").Parse(`
<p style="font-family:Arial; font-size:15px;">Bonjour,<br><br>
Performance des consignataires pour <b>{{.Month}} {{.Year}}</b> :</p>
<table style="font-family: Arial, sans-serif; width: 100%; border-collapse: collapse; font-size: 14px;">
  <tr style="background: #0a3d62; color: white;">
    <th style="padding: 8px; text-align: left;">Agent</th>
    <th style="padding: 8px; text-align: right;">Escales</th>
    <th style="padding: 8px; text-align: right;">Attente moy. (h)</th>
    <th style="padding: 8px; text-align: right;">Quai moy. (h)</th>
    <th style="padding: 8px; text-align: left;">Notes</th>
    <th style="padding: 8px; text-align: right;">Fantômes</th>
  </tr>
{{range .Agents}}
  <tr>
    <td style="padding: 8px; border-bottom: 1px solid #eeeeee;">{{.Agent}}</td>
    <td style="padding: 8px; border-bottom: 1px solid #eeeeee; text-align: right;">{{.CallCount}}</td>
    <td style="padding: 8px; border-bottom: 1px solid #eeeeee; text-align: right;">{{.AvgAnchorage}}</td>
    <td style="padding: 8px; border-bottom: 1px solid #eeeeee; text-align: right;">{{.AvgBerth}}</td>
    <td style="padding: 8px; border-bottom: 1px solid #eeeeee;">{{.Grades}}</td>
    <td style="padding: 8px; border-bottom: 1px solid #eeeeee; text-align: right;">{{.Ghosts}}</td>
  </tr>
{{end}}
</table>`))

type arrivalCard struct {
	Name       string
	ETA        string
	IMO        string
	Escale     string
	Type       string
	Agent      string
	Provenance string
}

type departureRow struct {
	Vessel    string
	Port      string
	Agent     string
	Anchorage string
	Berth     string
	Grade     string
}

type reportRow struct {
	Agent        string
	CallCount    int
	AvgAnchorage string
	AvgBerth     string
	Grades       string
	Ghosts       int
}

// renderArrivals builds the arrival alert body for one port
func renderArrivals(portName string, arrivals []domain.VesselObservation) (string, error) {
	cards := make([]arrivalCard, 0, len(arrivals))
	for _, obs := range arrivals {
		cards = append(cards, arrivalCard{
			Name:       obs.VesselName,
			ETA:        fmt.Sprintf("%s %s", formatDateFR(obs.ObservedAt), formatTimeFR(obs.ObservedAt)),
			IMO:        orNA(obs.IMO),
			Escale:     orNA(obs.EscaleNo),
			Type:       orNA(obs.VesselType),
			Agent:      orNA(obs.Agent),
			Provenance: orNA(obs.Provenance),
		})
	}

	var buf bytes.Buffer
	err := arrivalTmpl.Execute(&buf, struct {
		Port    string
		Vessels []arrivalCard
	}{Port: portName, Vessels: cards})
	if err != nil {
		return "", fmt.Errorf("failed to render arrival mail: %w", err)
	}
	return buf.String(), nil
}

// renderDepartures builds the closed-calls digest body
func renderDepartures(records []domain.HistoryRecord) (string, error) {
	rows := make([]departureRow, 0, len(records))
	for _, rec := range records {
		grade := string(rec.Grade)
		if rec.Closure == domain.ClosureGhost {
			grade += " (fantôme)"
		}
		rows = append(rows, departureRow{
			Vessel:    rec.VesselName,
			Port:      domain.PortName(rec.PortCode),
			Agent:     orNA(rec.Agent),
			Anchorage: fmt.Sprintf("%.2f", formulas.Round2(rec.AnchorageHours)),
			Berth:     fmt.Sprintf("%.2f", formulas.Round2(rec.BerthHours)),
			Grade:     grade,
		})
	}

	var buf bytes.Buffer
	if err := departureTmpl.Execute(&buf, struct{ Rows []departureRow }{Rows: rows}); err != nil {
		return "", fmt.Errorf("failed to render departure mail: %w", err)
	}
	return buf.String(), nil
}

// renderReport builds the monthly BI report body
func renderReport(agg domain.MonthlyAggregate) (string, error) {
	rows := make([]reportRow, 0, len(agg.Agents))
	for _, agent := range agg.Agents {
		rows = append(rows, reportRow{
			Agent:        agent.Agent,
			CallCount:    agent.CallCount,
			AvgAnchorage: fmt.Sprintf("%.2f", agent.AvgAnchorageHours),
			AvgBerth:     fmt.Sprintf("%.2f", agent.AvgBerthHours),
			Grades:       formatGrades(agent.Grades),
			Ghosts:       agent.GhostCalls,
		})
	}

	var buf bytes.Buffer
	err := reportTmpl.Execute(&buf, struct {
		Month  string
		Year   int
		Agents []reportRow
	}{Month: moisFR[int(agg.Month)-1], Year: agg.Year, Agents: rows})
	if err != nil {
		return "", fmt.Errorf("failed to render report mail: %w", err)
	}
	return buf.String(), nil
}

// formatGrades renders a grade distribution in a fixed order
func formatGrades(grades map[domain.Grade]int) string {
	order := []domain.Grade{domain.GradeExcellent, domain.GradeGood, domain.GradeModerate, domain.GradeSlow}
	out := ""
	for _, g := range order {
		if n, ok := grades[g]; ok && n > 0 {
			if out != "" {
				out += ", "
			}
			out += fmt.Sprintf("%s: %d", g, n)
		}
	}
	if out == "" {
		return "—"
	}
	return out
}
