package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/univer-hq/timetable-api/internal/dto"
	"github.com/univer-hq/timetable-api/internal/models"
	appErrors "github.com/univer-hq/timetable-api/pkg/errors"
)

const journalHoursPerLesson = 2.0

type journalFeedSource interface {
	ListJournalFeed(ctx context.Context, yearID int64, season models.Season) ([]models.JournalFeedRow, error)
}

type lessonLogStore interface {
	SumHours(ctx context.Context, groupID, subjectID int64) (float64, error)
	Exists(ctx context.Context, date time.Time, timetableID string, groupID int64) (bool, error)
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, log *models.LessonLog) error
}

// JournalService expands a committed schedule into dated attendance
// journal entries over a calendar range.
type JournalService struct {
	feed      journalFeedSource
	logs      lessonLogStore
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewJournalService wires journal dependencies.
func NewJournalService(
	feed journalFeedSource,
	logs lessonLogStore,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
) *JournalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JournalService{
		feed:      feed,
		logs:      logs,
		tx:        tx,
		validator: validate,
		logger:    logger,
	}
}

// weekdayOrd maps a calendar date to the schedule's weekday ordinal,
// Monday being 1 and Sunday 7.
func weekdayOrd(date time.Time) int {
	ord := int(date.Weekday())
	if ord == 0 {
		return 7
	}
	return ord
}

// Generate walks every date in the range and creates one journal entry
// per committed timetable row whose weekday matches, two hours each.
// A (group, subject) pair stops accumulating once it reaches the plan's
// total hours, and entries already present for a (date, row, group)
// triple are skipped, so repeated runs are safe.
func (s *JournalService) Generate(ctx context.Context, req dto.GenerateJournalRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid journal payload")
	}
	season := models.Season(req.Season)
	if !season.Valid() {
		return 0, appErrors.Clone(appErrors.ErrUnknownSeason, "")
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start date")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end date")
	}
	if end.Before(start) {
		return 0, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	rows, err := s.feed.ListJournalFeed(ctx, req.AcademicYearID, season)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load journal feed")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	byOrd := make(map[int][]models.JournalFeedRow)
	for _, row := range rows {
		byOrd[row.WeekdayOrd] = append(byOrd[row.WeekdayOrd], row)
	}

	if s.tx == nil {
		return 0, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	type pairKey struct {
		Group   int64
		Subject int64
	}
	accumulated := make(map[pairKey]float64)

	created := 0
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		for _, row := range byOrd[weekdayOrd(date)] {
			key := pairKey{Group: row.GroupID, Subject: row.SubjectID}
			if _, seen := accumulated[key]; !seen {
				var total float64
				total, err = s.logs.SumHours(ctx, row.GroupID, row.SubjectID)
				if err != nil {
					err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum journal hours")
					return 0, err
				}
				accumulated[key] = total
			}
			if accumulated[key]+journalHoursPerLesson > float64(row.PlanTotalHours) {
				continue
			}

			var exists bool
			exists, err = s.logs.Exists(ctx, date, row.TimetableID, row.GroupID)
			if err != nil {
				err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check journal entry")
				return 0, err
			}
			if exists {
				// Already counted by the SumHours seed; adding it again
				// would double-charge the plan cap on re-runs.
				continue
			}

			entry := models.LessonLog{
				LessonDate:       date,
				TimetableID:      row.TimetableID,
				GroupID:          row.GroupID,
				SubjectID:        row.SubjectID,
				PlannedTeacherID: row.TeacherID,
				ActualTeacherID:  row.TeacherID,
				Hours:            journalHoursPerLesson,
				Status:           models.LessonLogScheduled,
			}
			if err = s.logs.CreateWithTx(ctx, tx, &entry); err != nil {
				err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert journal entry")
				return 0, err
			}
			accumulated[key] += journalHoursPerLesson
			created++
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit journal transaction")
		return 0, err
	}

	s.logger.Info("journal batch completed",
		zap.Int64("academic_year_id", req.AcademicYearID),
		zap.String("season", req.Season),
		zap.String("from", req.StartDate),
		zap.String("to", req.EndDate),
		zap.Int("created", created),
	)

	return created, nil
}
