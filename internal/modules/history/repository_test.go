package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medports/portwatch/internal/database"
	"github.com/medports/portwatch/internal/domain"
	"github.com/medports/portwatch/pkg/logger"
)

var testLog = logger.New(logger.Config{Level: "error", Pretty: false})

func testRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "portcalls.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	return NewRepository(db.Conn(), testLog)
}

func record(vessel string, completedAt time.Time) domain.HistoryRecord {
	return domain.HistoryRecord{
		VesselID:       "07:" + vessel + "-1",
		VesselName:     vessel,
		PortCode:       "07",
		Agent:          "AGENCE ATLAS",
		AnchorageHours: 4,
		BerthHours:     20,
		Grade:          domain.GradeExcellent,
		Closure:        domain.ClosureCompleted,
		CompletedAt:    completedAt,
	}
}

func TestRepository_AppendAndGetMonth(t *testing.T) {
	repo := testRepo(t)

	june := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	july := time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append([]domain.HistoryRecord{
		record("MSC AURORA", june),
		record("SAFI STAR", june.Add(48*time.Hour)),
		record("TANGER EXPRESS", july),
	}))

	records, err := repo.GetMonth(2025, time.June)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "MSC AURORA", records[0].VesselName)
	assert.Equal(t, domain.GradeExcellent, records[0].Grade)
	assert.Equal(t, domain.ClosureCompleted, records[0].Closure)
	assert.True(t, records[0].CompletedAt.Equal(june))
	assert.Positive(t, records[0].ID)
}

func TestRepository_AppendNothing(t *testing.T) {
	repo := testRepo(t)
	assert.NoError(t, repo.Append(nil))
}

func TestRepository_AppendIsIdempotent(t *testing.T) {
	repo := testRepo(t)

	june := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	rec := record("MSC AURORA", june)

	// A conflict-retried run appends the same closed call again; the
	// archive must keep exactly one row
	require.NoError(t, repo.Append([]domain.HistoryRecord{rec}))
	require.NoError(t, repo.Append([]domain.HistoryRecord{rec}))

	records, err := repo.GetMonth(2025, time.June)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRepository_GetRecent(t *testing.T) {
	repo := testRepo(t)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var batch []domain.HistoryRecord
	for i := 0; i < 5; i++ {
		batch = append(batch, record("VESSEL", base.Add(time.Duration(i)*24*time.Hour)))
	}
	require.NoError(t, repo.Append(batch))

	records, err := repo.GetRecent(3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Most recent first
	assert.True(t, records[0].CompletedAt.After(records[1].CompletedAt))
}

func TestRepository_GhostClosureRoundtrip(t *testing.T) {
	repo := testRepo(t)

	ghost := record("GHOST SHIP", time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC))
	ghost.Closure = domain.ClosureGhost
	ghost.Grade = domain.GradeModerate
	ghost.BerthHours = 0

	require.NoError(t, repo.Append([]domain.HistoryRecord{ghost}))

	records, err := repo.GetMonth(2025, time.June)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ClosureGhost, records[0].Closure)
	assert.Equal(t, 0.0, records[0].BerthHours)
}
