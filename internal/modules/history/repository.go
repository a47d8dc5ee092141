package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/medports/portwatch/internal/domain"
)

// Repository handles the append-only port-call archive
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new history repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "history").Logger(),
	}
}

// Append inserts closed port calls into the archive. Records are immutable
// once written; there is no update path. Appends are idempotent: a call
// already archived under the same vessel and completion instant is
// skipped, so a retried run cannot duplicate rows.
func (r *Repository) Append(records []domain.HistoryRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT OR IGNORE INTO port_calls
		(vessel_id, vessel_name, port_code, agent, anchorage_hours, berth_hours, grade, closure, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, rec := range records {
		_, err := tx.Exec(query,
			rec.VesselID,
			rec.VesselName,
			rec.PortCode,
			rec.Agent,
			rec.AnchorageHours,
			rec.BerthHours,
			string(rec.Grade),
			string(rec.Closure),
			rec.CompletedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to archive port call for %s: %w", rec.VesselID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive transaction: %w", err)
	}

	r.log.Info().Int("records", len(records)).Msg("Port calls archived")

	return nil
}

// GetMonth retrieves all port calls completed within one calendar month (UTC)
func (r *Repository) GetMonth(year int, month time.Month) ([]domain.HistoryRecord, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	return r.getRange(start, end)
}

// GetRecent retrieves the most recently completed port calls
func (r *Repository) GetRecent(limit int) ([]domain.HistoryRecord, error) {
	query := `
		SELECT id, vessel_id, vessel_name, port_code, agent,
		       anchorage_hours, berth_hours, grade, closure, completed_at
		FROM port_calls
		ORDER BY completed_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent port calls: %w", err)
	}
	defer rows.Close()

	return r.scanRecords(rows)
}

func (r *Repository) getRange(start, end time.Time) ([]domain.HistoryRecord, error) {
	query := `
		SELECT id, vessel_id, vessel_name, port_code, agent,
		       anchorage_hours, berth_hours, grade, closure, completed_at
		FROM port_calls
		WHERE completed_at >= ? AND completed_at < ?
		ORDER BY completed_at ASC
	`

	rows, err := r.db.Query(query,
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get port calls in range: %w", err)
	}
	defer rows.Close()

	return r.scanRecords(rows)
}

func (r *Repository) scanRecords(rows *sql.Rows) ([]domain.HistoryRecord, error) {
	var records []domain.HistoryRecord
	for rows.Next() {
		var rec domain.HistoryRecord
		var grade, closure, completedAt string

		err := rows.Scan(
			&rec.ID,
			&rec.VesselID,
			&rec.VesselName,
			&rec.PortCode,
			&rec.Agent,
			&rec.AnchorageHours,
			&rec.BerthHours,
			&grade,
			&closure,
			&completedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan port call: %w", err)
		}

		rec.Grade = domain.Grade(grade)
		rec.Closure = domain.Closure(closure)

		t, err := time.Parse(time.RFC3339, completedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse completed_at: %w", err)
		}
		rec.CompletedAt = t

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating port calls: %w", err)
	}

	return records, nil
}
