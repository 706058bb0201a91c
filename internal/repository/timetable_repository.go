package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/univer-hq/timetable-api/internal/models"
)

// TimetableRepository persists committed schedule rows.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// DeleteForSeason removes every stored row for the year/season pair. A
// commit always replaces the previous schedule, never appends to it.
func (r *TimetableRepository) DeleteForSeason(ctx context.Context, exec sqlx.ExtContext, yearID int64, season models.Season) error {
	const query = `DELETE FROM timetable_entries WHERE academic_year_id = $1 AND season = $2`
	if _, err := r.exec(exec).ExecContext(ctx, query, yearID, season); err != nil {
		return fmt.Errorf("delete timetable for season: %w", err)
	}
	return nil
}

// BulkCreateWithTx inserts entries using an existing transaction.
func (r *TimetableRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, entries []models.TimetableEntry) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	return r.bulkInsert(ctx, tx, entries)
}

func (r *TimetableRepository) bulkInsert(ctx context.Context, exec sqlx.ExtContext, entries []models.TimetableEntry) error {
	now := time.Now().UTC()
	const query = `INSERT INTO timetable_entries
(id, academic_year_id, season, weekday_id, time_slot_id, stream_id, subject_id, teacher_id, group_id, room_id, created_at)
VALUES (:id, :academic_year_id, :season, :weekday_id, :time_slot_id, :stream_id, :subject_id, :teacher_id, :group_id, :room_id, :created_at)`
	for i := range entries {
		payload := entries[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, exec, query, &payload); err != nil {
			return fmt.Errorf("bulk insert timetable entry: %w", err)
		}
		entries[i] = payload
	}
	return nil
}

// ListForSeason returns the committed schedule ordered by day and slot.
func (r *TimetableRepository) ListForSeason(ctx context.Context, yearID int64, season models.Season) ([]models.TimetableEntry, error) {
	const query = `SELECT id, academic_year_id, season, weekday_id, time_slot_id, stream_id, subject_id, teacher_id, group_id, room_id, created_at
FROM timetable_entries WHERE academic_year_id = $1 AND season = $2
ORDER BY weekday_id ASC, time_slot_id ASC, group_id ASC`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, yearID, season); err != nil {
		return nil, fmt.Errorf("list timetable for season: %w", err)
	}
	return entries, nil
}

// ListJournalFeed returns the committed rows joined with the weekday
// ordinal and the plan's total hours, the shape the journal builder needs.
func (r *TimetableRepository) ListJournalFeed(ctx context.Context, yearID int64, season models.Season) ([]models.JournalFeedRow, error) {
	const query = `
SELECT te.id AS timetable_id,
       wd.ord AS weekday_ord,
       te.group_id,
       te.subject_id,
       te.teacher_id,
       ps.lecture_hours + ps.practice_hours + ps.lab_hours + ps.seminar_hours AS plan_total_hours
FROM timetable_entries te
JOIN weekdays wd ON wd.id = te.weekday_id
JOIN streams s   ON s.id = te.stream_id
JOIN workload_plan_subjects wp ON wp.workload_id = s.workload_id
JOIN plan_subjects ps ON ps.id = wp.plan_subject_id
JOIN education_plans ep ON ep.id = ps.education_plan_id AND ep.academic_year_id = te.academic_year_id
WHERE te.academic_year_id = $1 AND te.season = $2
ORDER BY wd.ord ASC, te.time_slot_id ASC`
	var rows []models.JournalFeedRow
	if err := r.db.SelectContext(ctx, &rows, query, yearID, season); err != nil {
		return nil, fmt.Errorf("list journal feed: %w", err)
	}
	return rows, nil
}
