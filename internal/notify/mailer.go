package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medports/portwatch/internal/domain"
)

// MailerConfig holds SMTP delivery settings
type MailerConfig struct {
	Host string
	Port int
	User string
	Pass string
	To   string
}

// Mailer delivers notifications as HTML email over SMTP with STARTTLS
type Mailer struct {
	cfg  MailerConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	log  zerolog.Logger
}

// NewMailer creates a new SMTP mailer
func NewMailer(cfg MailerConfig, log zerolog.Logger) *Mailer {
	return &Mailer{
		cfg:  cfg,
		send: smtp.SendMail,
		log:  log.With().Str("component", "mailer").Logger(),
	}
}

// NotifyArrivals sends one arrival alert for a port
func (m *Mailer) NotifyArrivals(portCode string, arrivals []domain.VesselObservation) error {
	if len(arrivals) == 0 {
		return nil
	}

	portName := domain.PortName(portCode)
	body, err := renderArrivals(portName, arrivals)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(arrivals))
	for _, obs := range arrivals {
		names = append(names, obs.VesselName)
	}
	subject := fmt.Sprintf("🔔 NOUVELLE ARRIVÉE PRÉVUE | %s au Port de %s", strings.Join(names, ", "), portName)

	if err := m.deliver(subject, body); err != nil {
		return err
	}

	m.log.Info().Str("port", portName).Int("vessels", len(arrivals)).Msg("Arrival alert sent")
	return nil
}

// NotifyDepartures sends the closed-calls digest
func (m *Mailer) NotifyDepartures(records []domain.HistoryRecord) error {
	if len(records) == 0 {
		return nil
	}

	body, err := renderDepartures(records)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("⚓ ESCALES CLÔTURÉES | %d navire(s)", len(records))
	if err := m.deliver(subject, body); err != nil {
		return err
	}

	m.log.Info().Int("records", len(records)).Msg("Departure digest sent")
	return nil
}

// NotifyMonthlyReport sends the per-agent performance report
func (m *Mailer) NotifyMonthlyReport(agg domain.MonthlyAggregate) error {
	body, err := renderReport(agg)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("📊 RAPPORT MENSUEL | %s %d", moisFR[int(agg.Month)-1], agg.Year)
	if err := m.deliver(subject, body); err != nil {
		return err
	}

	m.log.Info().Int("year", agg.Year).Str("month", agg.Month.String()).Msg("Monthly report sent")
	return nil
}

// deliver sends one HTML mail. smtp.SendMail negotiates STARTTLS when the
// server offers it, matching the feed provider's relay.
func (m *Mailer) deliver(subject, htmlBody string) error {
	headers := map[string]string{
		"From":         m.cfg.User,
		"To":           m.cfg.To,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": `text/html; charset="UTF-8"`,
	}

	var msg strings.Builder
	for k, v := range headers {
		fmt.Fprintf(&msg, "%s: %s\r\n", k, v)
	}
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)

	if err := m.send(addr, auth, m.cfg.User, []string{m.cfg.To}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}
