package dto

// GenerateTimetableRequest asks the generator to build a schedule for one
// academic year and season. The shift level lists are optional overrides
// for which course levels study in the morning and afternoon shifts.
type GenerateTimetableRequest struct {
	AcademicYearID int64  `json:"academicYearId" validate:"required,min=1"`
	Season         string `json:"season" validate:"required,oneof=autumn spring"`
	Shift1Levels   []int  `json:"shift1Levels" validate:"omitempty,dive,min=1,max=5"`
	Shift2Levels   []int  `json:"shift2Levels" validate:"omitempty,dive,min=1,max=5"`
}

// Assignment is one placed occurrence of a stream: a concrete
// (weekday, time slot, room) triple plus display fields for the preview.
type Assignment struct {
	StreamID     int64   `json:"streamId"`
	WeekdayID    int64   `json:"weekdayId"`
	WeekdayName  string  `json:"weekdayName"`
	TimeSlotID   int64   `json:"timeSlotId"`
	SlotIndex    int     `json:"slotIndex"`
	RoomID       int64   `json:"roomId"`
	RoomName     string  `json:"roomName"`
	SubjectID    int64   `json:"subjectId"`
	SubjectName  string  `json:"subjectName"`
	TeacherID    int64   `json:"teacherId"`
	TeacherName  string  `json:"teacherName"`
	Label        string  `json:"label"`
	GroupIDs     []int64 `json:"groupIds"`
	StudentCount int     `json:"studentCount"`
	CourseLevel  int     `json:"courseLevel"`
}

// StreamFailure reports a stream whose weekly occurrence requirement could
// not be fully met, with the dominant rejection category and the raw
// per-category counts.
type StreamFailure struct {
	StreamID    int64          `json:"streamId"`
	SubjectName string         `json:"subjectName"`
	LessonKind  string         `json:"lessonKind"`
	TeacherName string         `json:"teacherName"`
	Needed      int            `json:"needed"`
	Placed      int            `json:"placed"`
	Shortfall   int            `json:"shortfall"`
	Reason      string         `json:"reason"`
	Detail      string         `json:"detail"`
	Breakdown   map[string]int `json:"breakdown"`
}

// GenerateTimetableResponse is the dry-run preview.
type GenerateTimetableResponse struct {
	Assignments []Assignment    `json:"assignments"`
	Failures    []StreamFailure `json:"failures"`
}

// CommitTimetableResponse summarises a persisted generation run.
type CommitTimetableResponse struct {
	Assignments  int             `json:"assignments"`
	RowsInserted int             `json:"rowsInserted"`
	Failures     []StreamFailure `json:"failures"`
}
