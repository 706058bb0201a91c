package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/univer-hq/timetable-api/internal/models"
	"github.com/univer-hq/timetable-api/internal/service"
	"github.com/univer-hq/timetable-api/pkg/response"
)

type timetableRepoMock struct {
	entries []models.TimetableEntry
	errs    []models.ScheduleError
}

func (m timetableRepoMock) ListForSeason(ctx context.Context, yearID int64, season models.Season) ([]models.TimetableEntry, error) {
	return m.entries, nil
}

func (m timetableRepoMock) ListByYear(ctx context.Context, yearID int64) ([]models.ScheduleError, error) {
	return m.errs, nil
}

func newTimetableHandlerFixture(mock timetableRepoMock) *TimetableHandler {
	svc := service.NewTimetableService(mock, mock, nil, time.Minute, zap.NewNop())
	return NewTimetableHandler(svc)
}

func TestTimetableHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTimetableHandlerFixture(timetableRepoMock{entries: []models.TimetableEntry{
		{ID: "row-1", AcademicYearID: 3, Season: models.SeasonAutumn, GroupID: 100},
	}})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/timetable?yearId=3&season=autumn", nil)
	c.Request = req

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.EqualValues(t, 1, envelope.Meta["count"])
}

func TestTimetableHandlerListRejectsMissingYear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTimetableHandlerFixture(timetableRepoMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/timetable?season=autumn", nil)
	c.Request = req

	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerListRejectsUnknownSeason(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTimetableHandlerFixture(timetableRepoMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/timetable?yearId=3&season=winter", nil)
	c.Request = req

	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerListErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTimetableHandlerFixture(timetableRepoMock{errs: []models.ScheduleError{
		{ID: "err-1", AcademicYearID: 3, StreamID: 9, Shortfall: 1},
	}})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/timetable/errors?yearId=3", nil)
	c.Request = req

	h.ListErrors(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.EqualValues(t, 1, envelope.Meta["count"])
}
