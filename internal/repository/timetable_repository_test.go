package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univer-hq/timetable-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return sqlxdb, mock
}

func TestTimetableRepositoryDeleteForSeason(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTimetableRepository(db)

	mock.ExpectExec(`DELETE FROM timetable_entries`).
		WithArgs(int64(3), models.SeasonAutumn).
		WillReturnResult(sqlmock.NewResult(0, 12))

	err := repo.DeleteForSeason(context.Background(), nil, 3, models.SeasonAutumn)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryBulkCreateWithTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO timetable_entries`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO timetable_entries`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	entries := []models.TimetableEntry{
		{AcademicYearID: 3, Season: models.SeasonAutumn, WeekdayID: 1, TimeSlotID: 1, StreamID: 7, SubjectID: 5, TeacherID: 10, GroupID: 100, RoomID: 1},
		{AcademicYearID: 3, Season: models.SeasonAutumn, WeekdayID: 1, TimeSlotID: 1, StreamID: 7, SubjectID: 5, TeacherID: 10, GroupID: 101, RoomID: 1},
	}
	require.NoError(t, repo.BulkCreateWithTx(context.Background(), tx, entries))
	require.NoError(t, tx.Commit())

	for _, entry := range entries {
		assert.NotEmpty(t, entry.ID, "inserted rows receive generated ids")
		assert.False(t, entry.CreatedAt.IsZero())
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryBulkCreateRequiresTx(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewTimetableRepository(db)

	err := repo.BulkCreateWithTx(context.Background(), nil, nil)
	require.Error(t, err)
}

func TestTimetableRepositoryListForSeason(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"id", "academic_year_id", "season", "weekday_id", "time_slot_id", "stream_id", "subject_id", "teacher_id", "group_id", "room_id"}).
		AddRow("row-1", 3, "autumn", 1, 2, 7, 5, 10, 100, 1).
		AddRow("row-2", 3, "autumn", 1, 2, 7, 5, 10, 101, 1)

	mock.ExpectQuery(`FROM timetable_entries`).
		WithArgs(int64(3), models.SeasonAutumn).
		WillReturnRows(rows)

	entries, err := repo.ListForSeason(context.Background(), 3, models.SeasonAutumn)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(100), entries[0].GroupID)
	assert.Equal(t, int64(101), entries[1].GroupID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
