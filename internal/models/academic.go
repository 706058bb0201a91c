package models

// Season identifies which half of the academic year a schedule covers.
type Season string

const (
	SeasonAutumn Season = "autumn"
	SeasonSpring Season = "spring"
)

// Valid reports whether the season is one of the two supported values.
func (s Season) Valid() bool {
	return s == SeasonAutumn || s == SeasonSpring
}

// Semesters returns the semester numbers taught during the season.
// Odd semesters run in autumn, even semesters in spring.
func (s Season) Semesters() []int {
	if s == SeasonSpring {
		return []int{2, 4, 6, 8, 10}
	}
	return []int{1, 3, 5, 7, 9}
}

// AcademicYear is a reference record such as "2025/2026".
type AcademicYear struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	IsCurrent bool   `db:"is_current" json:"is_current"`
}
