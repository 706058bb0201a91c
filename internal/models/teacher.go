package models

// EmploymentType distinguishes permanent staff from hourly/visiting teachers.
// Hourly teachers may only be scheduled inside their declared availability.
type EmploymentType string

const (
	EmploymentPermanent EmploymentType = "permanent"
	EmploymentHourly    EmploymentType = "hourly"
)

// Teacher is an instructor record.
type Teacher struct {
	ID         int64          `db:"id" json:"id"`
	FullName   string         `db:"full_name" json:"full_name"`
	Employment EmploymentType `db:"employment" json:"employment"`
}

// AvailabilitySlot declares one (teacher, weekday, slot) window during which
// an hourly teacher may be scheduled.
type AvailabilitySlot struct {
	TeacherID  int64 `db:"teacher_id" json:"teacher_id"`
	WeekdayID  int64 `db:"weekday_id" json:"weekday_id"`
	TimeSlotID int64 `db:"time_slot_id" json:"time_slot_id"`
}
