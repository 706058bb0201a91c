package models

import (
	"fmt"

	"github.com/lib/pq"
)

// LessonKind is the kind of instruction a stream delivers.
type LessonKind string

const (
	LessonLecture  LessonKind = "lecture"
	LessonPractice LessonKind = "practice"
	LessonLab      LessonKind = "lab"
	LessonSeminar  LessonKind = "seminar"
)

// Display returns the human-readable lesson kind used in preview labels.
func (k LessonKind) Display() string {
	switch k {
	case LessonLecture:
		return "Lecture"
	case LessonPractice:
		return "Practice"
	case LessonLab:
		return "Laboratory"
	case LessonSeminar:
		return "Seminar"
	}
	return string(k)
}

// RoomTypes returns the room types able to host this lesson kind. Practice
// lessons may fall back to lecture halls; labs may use computer rooms.
// Unknown kinds default to practice rooms.
func (k LessonKind) RoomTypes() []RoomType {
	switch k {
	case LessonLecture:
		return []RoomType{RoomTypeLecture}
	case LessonPractice:
		return []RoomType{RoomTypePractice, RoomTypeLecture}
	case LessonLab:
		return []RoomType{RoomTypeLab, RoomTypeComputer}
	case LessonSeminar:
		return []RoomType{RoomTypePractice}
	}
	return []RoomType{RoomTypePractice}
}

// Stream is one indivisible block of teaching that must be scheduled: a
// subject taught as one lesson kind by one teacher to a set of groups.
// The scheduler treats streams as read-only input.
type Stream struct {
	ID             int64          `db:"id" json:"id"`
	WorkloadID     int64          `db:"workload_id" json:"workload_id"`
	Name           string         `db:"name" json:"name"`
	SubjectID      int64          `db:"subject_id" json:"subject_id"`
	SubjectName    string         `db:"subject_name" json:"subject_name"`
	LessonKind     LessonKind     `db:"lesson_kind" json:"lesson_kind"`
	TeacherID      int64          `db:"teacher_id" json:"teacher_id"`
	TeacherName    string         `db:"teacher_name" json:"teacher_name"`
	Employment     EmploymentType `db:"employment" json:"employment"`
	CourseLevel    int            `db:"course_level" json:"course_level"`
	PlanHours      int            `db:"plan_hours" json:"plan_hours"`
	PlanTotalHours int            `db:"plan_total_hours" json:"plan_total_hours"`
	GroupIDs       pq.Int64Array  `db:"group_ids" json:"group_ids"`
	GroupCount     int            `db:"group_count" json:"group_count"`
	StudentCount   int            `db:"student_count" json:"student_count"`
}

// EnrolledStudents returns the total headcount across the stream's groups,
// never less than one so capacity checks stay meaningful for groups whose
// rosters have not been entered yet.
func (s Stream) EnrolledStudents() int {
	if s.StudentCount > 0 {
		return s.StudentCount
	}
	return 1
}

// Label renders the preview caption, e.g. "Microeconomics (Lecture)".
func (s Stream) Label() string {
	return fmt.Sprintf("%s (%s)", s.SubjectName, s.LessonKind.Display())
}
