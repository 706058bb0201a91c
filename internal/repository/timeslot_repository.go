package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/univer-hq/timetable-api/internal/models"
)

// TimeSlotRepository serves the teaching period reference data.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository creates a new time slot repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// ListActive returns schedulable slots ordered by start time.
func (r *TimeSlotRepository) ListActive(ctx context.Context) ([]models.TimeSlot, error) {
	const query = `SELECT id, idx, start_time, end_time, is_active
FROM time_slots WHERE is_active = true ORDER BY start_time ASC`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list active time slots: %w", err)
	}
	return slots, nil
}
