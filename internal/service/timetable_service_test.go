package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/univer-hq/timetable-api/internal/models"
	appErrors "github.com/univer-hq/timetable-api/pkg/errors"
)

func TestTimetableListForSeason(t *testing.T) {
	reader := timetableReaderStub{items: []models.TimetableEntry{
		{ID: "row-1", AcademicYearID: 1, Season: models.SeasonAutumn, GroupID: 100},
		{ID: "row-2", AcademicYearID: 1, Season: models.SeasonAutumn, GroupID: 101},
	}}
	service := NewTimetableService(reader, scheduleErrorReaderStub{}, nil, time.Minute, zap.NewNop())

	entries, err := service.ListForSeason(context.Background(), 1, models.SeasonAutumn)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestTimetableListForSeasonRejectsBadInput(t *testing.T) {
	service := NewTimetableService(timetableReaderStub{}, scheduleErrorReaderStub{}, nil, time.Minute, zap.NewNop())

	_, err := service.ListForSeason(context.Background(), 0, models.SeasonAutumn)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = service.ListForSeason(context.Background(), 1, models.Season("winter"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnknownSeason.Code, appErrors.FromError(err).Code)
}

func TestTimetableListErrors(t *testing.T) {
	reader := scheduleErrorReaderStub{items: []models.ScheduleError{
		{ID: "err-1", AcademicYearID: 1, StreamID: 7, Shortfall: 2},
	}}
	service := NewTimetableService(timetableReaderStub{}, reader, nil, time.Minute, zap.NewNop())

	errs, err := service.ListErrors(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, int64(7), errs[0].StreamID)
}

func TestTimetableInvalidateWithoutCache(t *testing.T) {
	service := NewTimetableService(timetableReaderStub{}, scheduleErrorReaderStub{}, nil, time.Minute, zap.NewNop())
	assert.NoError(t, service.Invalidate(context.Background(), 1, models.SeasonAutumn))
}

func TestTimetableCacheKey(t *testing.T) {
	assert.Equal(t, "timetable:42:spring", timetableCacheKey(42, models.SeasonSpring))
}

// --- Fixtures ---

type timetableReaderStub struct {
	items []models.TimetableEntry
}

func (s timetableReaderStub) ListForSeason(ctx context.Context, yearID int64, season models.Season) ([]models.TimetableEntry, error) {
	return s.items, nil
}

type scheduleErrorReaderStub struct {
	items []models.ScheduleError
}

func (s scheduleErrorReaderStub) ListByYear(ctx context.Context, yearID int64) ([]models.ScheduleError, error) {
	return s.items, nil
}
