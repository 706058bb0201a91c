package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableEntry is one persisted schedule row. An assignment serving
// several groups fans out to one entry per group, all sharing the same
// stream, teacher, room and slot.
type TimetableEntry struct {
	ID             string    `db:"id" json:"id"`
	AcademicYearID int64     `db:"academic_year_id" json:"academic_year_id"`
	Season         Season    `db:"season" json:"season"`
	WeekdayID      int64     `db:"weekday_id" json:"weekday_id"`
	TimeSlotID     int64     `db:"time_slot_id" json:"time_slot_id"`
	StreamID       int64     `db:"stream_id" json:"stream_id"`
	SubjectID      int64     `db:"subject_id" json:"subject_id"`
	TeacherID      int64     `db:"teacher_id" json:"teacher_id"`
	GroupID        int64     `db:"group_id" json:"group_id"`
	RoomID         int64     `db:"room_id" json:"room_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ScheduleError records a stream the generator could not fully place:
// how many occurrences are missing and which constraint dominated the
// rejections. Stats holds the per-category rejection counts as JSON.
type ScheduleError struct {
	ID             string         `db:"id" json:"id"`
	AcademicYearID int64          `db:"academic_year_id" json:"academic_year_id"`
	Season         Season         `db:"season" json:"season"`
	StreamID       int64          `db:"stream_id" json:"stream_id"`
	SubjectName    string         `db:"subject_name" json:"subject_name"`
	LessonKind     LessonKind     `db:"lesson_kind" json:"lesson_kind"`
	Shortfall      int            `db:"shortfall" json:"shortfall"`
	Reason         string         `db:"reason" json:"reason"`
	Stats          types.JSONText `db:"stats" json:"stats"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}
