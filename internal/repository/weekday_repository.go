package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/univer-hq/timetable-api/internal/models"
)

// WeekdayRepository serves the static day-of-week reference data.
type WeekdayRepository struct {
	db *sqlx.DB
}

// NewWeekdayRepository creates a new weekday repository.
func NewWeekdayRepository(db *sqlx.DB) *WeekdayRepository {
	return &WeekdayRepository{db: db}
}

// List returns all weekdays in their natural order.
func (r *WeekdayRepository) List(ctx context.Context) ([]models.Weekday, error) {
	const query = `SELECT id, name, ord FROM weekdays ORDER BY ord ASC`
	var days []models.Weekday
	if err := r.db.SelectContext(ctx, &days, query); err != nil {
		return nil, fmt.Errorf("list weekdays: %w", err)
	}
	return days, nil
}
