package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/univer-hq/timetable-api/internal/models"
)

// LessonLogRepository persists attendance-journal entries.
type LessonLogRepository struct {
	db *sqlx.DB
}

// NewLessonLogRepository creates a new lesson log repository.
func NewLessonLogRepository(db *sqlx.DB) *LessonLogRepository {
	return &LessonLogRepository{db: db}
}

// SumHours returns the journal hours already accumulated for a
// (group, subject) pair, used as the starting point for the plan cap.
func (r *LessonLogRepository) SumHours(ctx context.Context, groupID, subjectID int64) (float64, error) {
	const query = `SELECT COALESCE(SUM(hours), 0) FROM lesson_logs WHERE group_id = $1 AND subject_id = $2`
	var total float64
	if err := r.db.GetContext(ctx, &total, query, groupID, subjectID); err != nil {
		return 0, fmt.Errorf("sum lesson log hours: %w", err)
	}
	return total, nil
}

// Exists reports whether an entry for the date/timetable/group triple is
// already present, the duplicate guard for repeated journal runs.
func (r *LessonLogRepository) Exists(ctx context.Context, date time.Time, timetableID string, groupID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM lesson_logs WHERE lesson_date = $1 AND timetable_id = $2 AND group_id = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, date, timetableID, groupID); err != nil {
		return false, fmt.Errorf("check lesson log existence: %w", err)
	}
	return exists, nil
}

// CreateWithTx stores a journal entry inside an existing transaction.
func (r *LessonLogRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, log *models.LessonLog) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO lesson_logs
(id, lesson_date, timetable_id, group_id, subject_id, planned_teacher_id, actual_teacher_id, hours, status, is_confirmed, created_at)
VALUES (:id, :lesson_date, :timetable_id, :group_id, :subject_id, :planned_teacher_id, :actual_teacher_id, :hours, :status, :is_confirmed, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, log); err != nil {
		return fmt.Errorf("insert lesson log: %w", err)
	}
	return nil
}
