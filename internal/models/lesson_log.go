package models

import "time"

// LessonLogStatus tracks the lifecycle of a journal entry.
type LessonLogStatus string

const (
	LessonLogScheduled LessonLogStatus = "scheduled"
	LessonLogHeld      LessonLogStatus = "held"
	LessonLogCancelled LessonLogStatus = "cancelled"
)

// LessonLog is one attendance-journal entry: a concrete calendar date on
// which a timetable row is taught to a group.
type LessonLog struct {
	ID               string          `db:"id" json:"id"`
	LessonDate       time.Time       `db:"lesson_date" json:"lesson_date"`
	TimetableID      string          `db:"timetable_id" json:"timetable_id"`
	GroupID          int64           `db:"group_id" json:"group_id"`
	SubjectID        int64           `db:"subject_id" json:"subject_id"`
	PlannedTeacherID int64           `db:"planned_teacher_id" json:"planned_teacher_id"`
	ActualTeacherID  int64           `db:"actual_teacher_id" json:"actual_teacher_id"`
	Hours            float64         `db:"hours" json:"hours"`
	Status           LessonLogStatus `db:"status" json:"status"`
	IsConfirmed      bool            `db:"is_confirmed" json:"is_confirmed"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// JournalFeedRow is the slice of a timetable entry the journal builder
// needs: the weekday ordinal to match calendar dates against and the
// plan's total allocated hours used as the (group, subject) cap.
type JournalFeedRow struct {
	TimetableID    string `db:"timetable_id" json:"timetable_id"`
	WeekdayOrd     int    `db:"weekday_ord" json:"weekday_ord"`
	GroupID        int64  `db:"group_id" json:"group_id"`
	SubjectID      int64  `db:"subject_id" json:"subject_id"`
	TeacherID      int64  `db:"teacher_id" json:"teacher_id"`
	PlanTotalHours int    `db:"plan_total_hours" json:"plan_total_hours"`
}
