package dto

// GenerateJournalRequest asks for attendance-journal entries covering a
// calendar date range of an already committed schedule.
type GenerateJournalRequest struct {
	AcademicYearID int64  `json:"academicYearId" validate:"required,min=1"`
	Season         string `json:"season" validate:"required,oneof=autumn spring"`
	StartDate      string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate        string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

// JournalJobResponse acknowledges an enqueued journal batch.
type JournalJobResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}
