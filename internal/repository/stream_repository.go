package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/univer-hq/timetable-api/internal/models"
)

// StreamRepository loads the schedulable teaching streams.
type StreamRepository struct {
	db *sqlx.DB
}

// NewStreamRepository creates a new stream repository.
func NewStreamRepository(db *sqlx.DB) *StreamRepository {
	return &StreamRepository{db: db}
}

// ListForSemesters returns every stream that must be scheduled for the
// academic year and semester set: the stream has a teacher assigned and its
// workload is bound to a plan subject taught in one of the semesters under
// a plan of the given year. Streams without a teacher stay out of the
// result; they are reported as vacant elsewhere, not scheduled here.
func (r *StreamRepository) ListForSemesters(ctx context.Context, yearID int64, semesters []int) ([]models.Stream, error) {
	const query = `
SELECT s.id,
       s.workload_id,
       s.name,
       w.subject_id,
       sub.name AS subject_name,
       s.lesson_kind,
       s.teacher_id,
       t.full_name AS teacher_name,
       t.employment,
       ep.course_level,
       CASE s.lesson_kind
            WHEN 'lecture'  THEN ps.lecture_hours
            WHEN 'practice' THEN ps.practice_hours
            WHEN 'lab'      THEN ps.lab_hours
            WHEN 'seminar'  THEN ps.seminar_hours
            ELSE 0
       END AS plan_hours,
       ps.lecture_hours + ps.practice_hours + ps.lab_hours + ps.seminar_hours AS plan_total_hours,
       COALESCE(g.group_ids, '{}') AS group_ids,
       COALESCE(g.group_count, 0) AS group_count,
       COALESCE(g.student_count, 0) AS student_count
FROM streams s
JOIN workloads w  ON w.id = s.workload_id
JOIN subjects sub ON sub.id = w.subject_id
JOIN teachers t   ON t.id = s.teacher_id
JOIN LATERAL (
    SELECT p.*, wp.workload_id
    FROM plan_subjects p
    JOIN workload_plan_subjects wp ON wp.plan_subject_id = p.id
    JOIN education_plans e ON e.id = p.education_plan_id
    WHERE wp.workload_id = w.id
      AND p.semester = ANY($2)
      AND e.academic_year_id = $1
    ORDER BY p.id
    LIMIT 1
) ps ON true
JOIN education_plans ep ON ep.id = ps.education_plan_id
LEFT JOIN LATERAL (
    SELECT array_agg(sg.group_id ORDER BY sg.group_id) AS group_ids,
           COUNT(*)::int AS group_count,
           COALESCE(SUM(gr.student_count), 0)::int AS student_count
    FROM stream_groups sg
    JOIN student_groups gr ON gr.id = sg.group_id
    WHERE sg.stream_id = s.id
) g ON true
WHERE s.teacher_id IS NOT NULL
ORDER BY s.id`

	var streams []models.Stream
	if err := r.db.SelectContext(ctx, &streams, query, yearID, pq.Array(semesters)); err != nil {
		return nil, fmt.Errorf("list streams for semesters: %w", err)
	}
	return streams, nil
}
