package models

// Weekday is an ordered day-of-week descriptor (Monday = 1).
type Weekday struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Ord  int    `db:"ord" json:"ord"`
}

// TimeSlot is a teaching period ("para") ordered by start time.
type TimeSlot struct {
	ID        int64  `db:"id" json:"id"`
	Index     int    `db:"idx" json:"index"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
	IsActive  bool   `db:"is_active" json:"is_active"`
}

// RoomType categorises teaching spaces.
type RoomType string

const (
	RoomTypeLecture  RoomType = "lecture"
	RoomTypePractice RoomType = "practice"
	RoomTypeLab      RoomType = "lab"
	RoomTypeComputer RoomType = "computer"
)

// Room is a physical teaching space. Only active rooms are schedulable.
type Room struct {
	ID       int64    `db:"id" json:"id"`
	Name     string   `db:"name" json:"name"`
	RoomType RoomType `db:"room_type" json:"room_type"`
	Capacity int      `db:"capacity" json:"capacity"`
	IsActive bool     `db:"is_active" json:"is_active"`
}
