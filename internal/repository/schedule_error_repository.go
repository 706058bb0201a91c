package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/univer-hq/timetable-api/internal/models"
)

// ScheduleErrorRepository persists generation diagnostics.
type ScheduleErrorRepository struct {
	db *sqlx.DB
}

// NewScheduleErrorRepository creates a new schedule error repository.
func NewScheduleErrorRepository(db *sqlx.DB) *ScheduleErrorRepository {
	return &ScheduleErrorRepository{db: db}
}

func (r *ScheduleErrorRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ReplaceForYear clears prior diagnostics for the academic year and stores
// the freshly computed set in their place.
func (r *ScheduleErrorRepository) ReplaceForYear(ctx context.Context, exec sqlx.ExtContext, yearID int64, errs []models.ScheduleError) error {
	target := r.exec(exec)

	const deleteQuery = `DELETE FROM schedule_errors WHERE academic_year_id = $1`
	if _, err := target.ExecContext(ctx, deleteQuery, yearID); err != nil {
		return fmt.Errorf("clear schedule errors: %w", err)
	}

	now := time.Now().UTC()
	const insertQuery = `INSERT INTO schedule_errors
(id, academic_year_id, season, stream_id, subject_name, lesson_kind, shortfall, reason, stats, created_at)
VALUES (:id, :academic_year_id, :season, :stream_id, :subject_name, :lesson_kind, :shortfall, :reason, :stats, :created_at)`
	for i := range errs {
		payload := errs[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if len(payload.Stats) == 0 {
			payload.Stats = types.JSONText(`{}`)
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, &payload); err != nil {
			return fmt.Errorf("insert schedule error: %w", err)
		}
		errs[i] = payload
	}
	return nil
}

// ListByYear returns stored diagnostics for the academic year.
func (r *ScheduleErrorRepository) ListByYear(ctx context.Context, yearID int64) ([]models.ScheduleError, error) {
	const query = `SELECT id, academic_year_id, season, stream_id, subject_name, lesson_kind, shortfall, reason, stats, created_at
FROM schedule_errors WHERE academic_year_id = $1 ORDER BY created_at DESC, stream_id ASC`
	var errs []models.ScheduleError
	if err := r.db.SelectContext(ctx, &errs, query, yearID); err != nil {
		return nil, fmt.Errorf("list schedule errors: %w", err)
	}
	return errs, nil
}
