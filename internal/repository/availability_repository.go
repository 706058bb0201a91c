package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/univer-hq/timetable-api/internal/models"
)

// AvailabilityRepository serves declared teacher availability windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository creates a new availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListAll returns every declared (teacher, weekday, slot) window. The
// generator folds these into an in-memory lookup once per run.
func (r *AvailabilityRepository) ListAll(ctx context.Context) ([]models.AvailabilitySlot, error) {
	const query = `SELECT a.teacher_id, a.weekday_id, s.time_slot_id
FROM teacher_availability a
JOIN teacher_availability_slots s ON s.availability_id = a.id
ORDER BY a.teacher_id, a.weekday_id, s.time_slot_id`
	var windows []models.AvailabilitySlot
	if err := r.db.SelectContext(ctx, &windows, query); err != nil {
		return nil, fmt.Errorf("list teacher availability: %w", err)
	}
	return windows, nil
}
