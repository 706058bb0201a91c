package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/univer-hq/timetable-api/internal/dto"
	"github.com/univer-hq/timetable-api/internal/models"
	appErrors "github.com/univer-hq/timetable-api/pkg/errors"
)

func TestGeneratorPreviewPlacesStreamOnDistinctDays(t *testing.T) {
	service := newGeneratorFixture(t, generatorFixtureConfig{
		streams: []models.Stream{
			// 60 hours over 15 weeks at 2 hours a pair: two weekly occurrences.
			stubStream(1, func(s *models.Stream) { s.PlanHours = 60 }),
		},
	})

	resp, err := service.Preview(context.Background(), stubRequest())
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 2)
	assert.Empty(t, resp.Failures)
	assert.NotEqual(t, resp.Assignments[0].WeekdayID, resp.Assignments[1].WeekdayID,
		"occurrences of one stream must land on different days")
}

func TestGeneratorPreviewNoDoubleBookings(t *testing.T) {
	streams := []models.Stream{
		stubStream(1, func(s *models.Stream) { s.TeacherID = 10; s.GroupIDs = pq.Int64Array{100, 101} }),
		stubStream(2, func(s *models.Stream) { s.TeacherID = 10; s.GroupIDs = pq.Int64Array{102} }),
		stubStream(3, func(s *models.Stream) { s.TeacherID = 11; s.GroupIDs = pq.Int64Array{100} }),
		stubStream(4, func(s *models.Stream) { s.TeacherID = 12; s.GroupIDs = pq.Int64Array{103} }),
	}
	service := newGeneratorFixture(t, generatorFixtureConfig{streams: streams})

	resp, err := service.Preview(context.Background(), stubRequest())
	require.NoError(t, err)
	require.NotEmpty(t, resp.Assignments)

	teacherSeen := map[string]bool{}
	roomSeen := map[string]bool{}
	groupSeen := map[string]bool{}
	for _, a := range resp.Assignments {
		tk := fmt.Sprintf("%d/%d/%d", a.WeekdayID, a.TimeSlotID, a.TeacherID)
		assert.False(t, teacherSeen[tk], "teacher double booked at %s", tk)
		teacherSeen[tk] = true

		rk := fmt.Sprintf("%d/%d/%d", a.WeekdayID, a.TimeSlotID, a.RoomID)
		assert.False(t, roomSeen[rk], "room double booked at %s", rk)
		roomSeen[rk] = true

		for _, g := range a.GroupIDs {
			gk := fmt.Sprintf("%d/%d/%d", a.WeekdayID, a.TimeSlotID, g)
			assert.False(t, groupSeen[gk], "group double booked at %s", gk)
			groupSeen[gk] = true
		}
	}
}

func TestGeneratorReportsShortfallAfterPartialPlacement(t *testing.T) {
	// Three weekly occurrences needed, but only two days exist: two get
	// placed and the remainder is reported, not dropped.
	service := newGeneratorFixture(t, generatorFixtureConfig{
		streams: []models.Stream{
			stubStream(1, func(s *models.Stream) { s.PlanHours = 90 }),
		},
		days: []models.Weekday{
			{ID: 1, Name: "Monday", Ord: 1},
			{ID: 2, Name: "Tuesday", Ord: 2},
		},
	})

	resp, err := service.Preview(context.Background(), stubRequest())
	require.NoError(t, err)
	assert.Len(t, resp.Assignments, 2)
	require.Len(t, resp.Failures, 1)
	failure := resp.Failures[0]
	assert.Equal(t, 3, failure.Needed)
	assert.Equal(t, 2, failure.Placed)
	assert.Equal(t, 1, failure.Shortfall)
}

func TestGeneratorPreviewIsDeterministic(t *testing.T) {
	streams := []models.Stream{
		stubStream(1, func(s *models.Stream) { s.TeacherID = 10; s.GroupIDs = pq.Int64Array{100, 101}; s.GroupCount = 2 }),
		stubStream(2, func(s *models.Stream) { s.TeacherID = 10; s.PlanHours = 60 }),
		stubStream(3, func(s *models.Stream) {
			s.TeacherID = 20
			s.Employment = models.EmploymentHourly
			s.LessonKind = models.LessonLab
		}),
	}
	service := newGeneratorFixture(t, generatorFixtureConfig{
		streams: streams,
		windows: []models.AvailabilitySlot{
			{TeacherID: 20, WeekdayID: 2, TimeSlotID: 4},
		},
	})

	first, err := service.Preview(context.Background(), stubRequest())
	require.NoError(t, err)
	second, err := service.Preview(context.Background(), stubRequest())
	require.NoError(t, err)

	assert.Equal(t, first.Assignments, second.Assignments,
		"identical inputs must yield an identical schedule")
	assert.Equal(t, first.Failures, second.Failures)
}

func TestGeneratorPicksSmallestFittingRoomOfCompatibleType(t *testing.T) {
	service := newGeneratorFixture(t, generatorFixtureConfig{
		streams: []models.Stream{
			stubStream(1, func(s *models.Stream) {
				s.LessonKind = models.LessonLab
				s.StudentCount = 15
			}),
		},
		rooms: []models.Room{
			{ID: 1, Name: "L-10", RoomType: models.RoomTypeLecture, Capacity: 10, IsActive: true},
			{ID: 2, Name: "C-20", RoomType: models.RoomTypeComputer, Capacity: 20, IsActive: true},
			{ID: 3, Name: "LAB-60", RoomType: models.RoomTypeLab, Capacity: 60, IsActive: true},
		},
	})

	resp, err := service.Preview(context.Background(), stubRequest())
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 1)
	assert.Equal(t, int64(2), resp.Assignments[0].RoomID,
		"smallest compatible room should win over a larger lab")
}

func TestGeneratorPracticeFallsBackToLectureHall(t *testing.T) {
	service := newGeneratorFixture(t, generatorFixtureConfig{
		streams: []models.Stream{
			stubStream(1, func(s *models.Stream) { s.LessonKind = models.LessonPractice }),
		},
		rooms: []models.Room{
			{ID: 1, Name: "A-100", RoomType: models.RoomTypeLecture, Capacity: 100, IsActive: true},
		},
	})

	resp, err := service.Preview(context.Background(), stubRequest())
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 1)
	assert.Equal(t, int64(1), resp.Assignments[0].RoomID)
}

func TestGeneratorHonoursHourlyTeacherAvailability(t *testing.T) {
	service := newGeneratorFixture(t, generatorFixtureConfig{
		streams: []models.Stream{
			stubStream(1, func(s *models.Stream) {
				s.TeacherID = 20
				s.Employment = models.EmploymentHourly
			}),
		},
		windows: []models.AvailabilitySlot{
			// Slot 4 sits inside the second-shift window for course level 2.
			{TeacherID: 20, WeekdayID: 3, TimeSlotID: 4},
		},
	})

	resp, err := service.Preview(context.Background(), stubRequest())
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 1)
	assert.Equal(t, int64(3), resp.Assignments[0].WeekdayID)
	assert.Equal(t, int64(4), resp.Assignments[0].TimeSlotID)
}

func TestGeneratorReportsUnavailableHourlyTeacher(t *testing.T) {
	service := newGeneratorFixture(t, generatorFixtureConfig{
		streams: []models.Stream{
			stubStream(1, func(s *models.Stream) {
				s.TeacherID = 20
				s.Employment = models.EmploymentHourly
			}),
		},
	})

	resp, err := service.Preview(context.Background(), stubRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.Assignments)
	require.Len(t, resp.Failures, 1)
	failure := resp.Failures[0]
	assert.Equal(t, string(FailureTeacherUnavailable), failure.Reason)
	assert.Equal(t, 1, failure.Needed)
	assert.Equal(t, 0, failure.Placed)
	assert.Equal(t, 1, failure.Shortfall)
	assert.Positive(t, failure.Breakdown[string(FailureTeacherUnavailable)])
}

func TestGeneratorDistinguishesRoomBusyFromCapacity(t *testing.T) {
	oneDay := []models.Weekday{{ID: 1, Name: "Monday", Ord: 1}}
	oneSlot := []models.TimeSlot{{ID: 1, Index: 1, StartTime: "09:00", EndTime: "10:20", IsActive: true}}
	oneRoom := []models.Room{{ID: 1, Name: "A-30", RoomType: models.RoomTypeLecture, Capacity: 30, IsActive: true}}

	service := newGeneratorFixture(t, generatorFixtureConfig{
		streams: []models.Stream{
			stubStream(1, func(s *models.Stream) { s.TeacherID = 10; s.GroupIDs = pq.Int64Array{100} }),
			stubStream(2, func(s *models.Stream) { s.TeacherID = 11; s.GroupIDs = pq.Int64Array{101} }),
			stubStream(3, func(s *models.Stream) {
				s.TeacherID = 12
				s.GroupIDs = pq.Int64Array{102}
				s.StudentCount = 90
			}),
		},
		days:  oneDay,
		slots: oneSlot,
		rooms: oneRoom,
	})

	resp, err := service.Preview(context.Background(), stubRequest())
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 1)
	require.Len(t, resp.Failures, 2)

	byStream := map[int64]dto.StreamFailure{}
	for _, f := range resp.Failures {
		byStream[f.StreamID] = f
	}
	assert.Equal(t, string(FailureRoomBusy), byStream[2].Reason,
		"a fitting room exists but is booked")
	assert.Equal(t, string(FailureRoomCapacity), byStream[3].Reason,
		"no room can seat the stream at all")
}

func TestGeneratorPrioritisesHourlyTeachersUnderScarcity(t *testing.T) {
	service := newGeneratorFixture(t, generatorFixtureConfig{
		streams: []models.Stream{
			stubStream(1, func(s *models.Stream) {
				s.TeacherID = 10
				s.GroupIDs = pq.Int64Array{100, 101}
				s.GroupCount = 2
			}),
			stubStream(2, func(s *models.Stream) {
				s.TeacherID = 20
				s.Employment = models.EmploymentHourly
				s.GroupIDs = pq.Int64Array{102}
			}),
		},
		days:  []models.Weekday{{ID: 1, Name: "Monday", Ord: 1}},
		slots: []models.TimeSlot{{ID: 1, Index: 1, StartTime: "09:00", EndTime: "10:20", IsActive: true}},
		rooms: []models.Room{{ID: 1, Name: "A-30", RoomType: models.RoomTypeLecture, Capacity: 30, IsActive: true}},
		windows: []models.AvailabilitySlot{
			{TeacherID: 20, WeekdayID: 1, TimeSlotID: 1},
		},
	})

	resp, err := service.Preview(context.Background(), stubRequest())
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 1)
	assert.Equal(t, int64(2), resp.Assignments[0].StreamID,
		"the hourly teacher's stream should claim the only slot")
}

func TestGeneratorShiftWindows(t *testing.T) {
	tests := []struct {
		name        string
		courseLevel int
		wantSlots   []int64
	}{
		{name: "first shift keeps morning periods", courseLevel: 1, wantSlots: []int64{1, 2, 3, 4}},
		{name: "second shift starts at third period", courseLevel: 2, wantSlots: []int64{3, 4, 5, 6}},
		{name: "condensed level sees the whole day", courseLevel: 5, wantSlots: []int64{1, 2, 3, 4, 5, 6}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			run := newGenerationRun(stubDays(), stubSlots(), stubRooms(), nil, []int{1, 4}, []int{2, 3})
			got := run.allowedSlots(tc.courseLevel)
			ids := make([]int64, 0, len(got))
			for _, slot := range got {
				ids = append(ids, slot.ID)
			}
			assert.Equal(t, tc.wantSlots, ids)
		})
	}
}

func TestGeneratorShiftWindowIgnoredForShortDays(t *testing.T) {
	slots := stubSlots()[:3]
	run := newGenerationRun(stubDays(), slots, stubRooms(), nil, []int{1, 4}, []int{2, 3})
	assert.Len(t, run.allowedSlots(1), 3)
}

func TestPairsNeeded(t *testing.T) {
	tests := []struct {
		name        string
		planHours   int
		courseLevel int
		want        int
	}{
		{name: "two weekly pairs", planHours: 60, courseLevel: 2, want: 2},
		{name: "one weekly pair", planHours: 30, courseLevel: 2, want: 1},
		{name: "small fraction rounds up to one", planHours: 8, courseLevel: 2, want: 1},
		{name: "half rounds up", planHours: 75, courseLevel: 2, want: 3},
		{name: "zero hours means nothing to place", planHours: 0, courseLevel: 2, want: 0},
		{name: "condensed semester uses four weeks", planHours: 48, courseLevel: 5, want: 6},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stream := stubStream(1, func(s *models.Stream) {
				s.PlanHours = tc.planHours
				s.CourseLevel = tc.courseLevel
			})
			assert.Equal(t, tc.want, pairsNeeded(stream))
		})
	}
}

func TestGeneratorSkipsStreamsWithoutHours(t *testing.T) {
	service := newGeneratorFixture(t, generatorFixtureConfig{
		streams: []models.Stream{
			stubStream(1, func(s *models.Stream) { s.PlanHours = 0 }),
		},
	})

	resp, err := service.Preview(context.Background(), stubRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.Assignments)
	assert.Empty(t, resp.Failures, "zero-hour streams are skipped silently")
}

func TestGeneratorRejectsUnknownSeason(t *testing.T) {
	service := newGeneratorFixture(t, generatorFixtureConfig{})

	_, err := service.Preview(context.Background(), dto.GenerateTimetableRequest{
		AcademicYearID: 1,
		Season:         "winter",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestFailureTallyDominantTieBreak(t *testing.T) {
	tally := newFailureTally()
	tally.add(FailureRoomBusy)
	tally.add(FailureGroupBusy)
	assert.Equal(t, FailureGroupBusy, tally.dominant(),
		"equal counts resolve by constraint priority")

	tally.add(FailureRoomBusy)
	assert.Equal(t, FailureRoomBusy, tally.dominant())
}

func TestGeneratorCommitFansOutPerGroup(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	timetable := &timetableStoreStub{}
	diagnostics := &scheduleErrorStoreStub{}
	invalidator := &invalidatorStub{}

	service := newGeneratorFixture(t, generatorFixtureConfig{
		streams: []models.Stream{
			stubStream(1, func(s *models.Stream) {
				s.GroupIDs = pq.Int64Array{100, 101, 102}
				s.GroupCount = 3
			}),
		},
		tx:          txProvider,
		timetable:   timetable,
		diagnostics: diagnostics,
		invalidator: invalidator,
	})

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := service.Commit(context.Background(), stubRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Assignments)
	assert.Equal(t, 3, resp.RowsInserted)
	assert.Empty(t, resp.Failures)

	assert.True(t, timetable.cleared, "previous season rows must be deleted first")
	require.Len(t, timetable.inserted, 3)
	for i, row := range timetable.inserted {
		assert.Equal(t, int64(100+i), row.GroupID)
		assert.Equal(t, int64(1), row.StreamID)
		assert.Equal(t, models.SeasonAutumn, row.Season)
	}
	assert.True(t, diagnostics.replaced)
	assert.True(t, invalidator.called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGeneratorCommitPersistsDiagnostics(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	diagnostics := &scheduleErrorStoreStub{}

	service := newGeneratorFixture(t, generatorFixtureConfig{
		streams: []models.Stream{
			stubStream(1, func(s *models.Stream) {
				s.TeacherID = 20
				s.Employment = models.EmploymentHourly
			}),
		},
		tx:          txProvider,
		diagnostics: diagnostics,
	})

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := service.Commit(context.Background(), stubRequest())
	require.NoError(t, err)
	assert.Equal(t, 0, resp.RowsInserted)
	require.Len(t, resp.Failures, 1)

	require.Len(t, diagnostics.rows, 1)
	row := diagnostics.rows[0]
	assert.Equal(t, int64(1), row.StreamID)
	assert.Equal(t, 1, row.Shortfall)
	assert.Contains(t, row.Reason, string(FailureTeacherUnavailable))
	assert.NotEmpty(t, row.Stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGeneratorCommitRollsBackOnInsertFailure(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	timetable := &timetableStoreStub{insertErr: fmt.Errorf("disk full")}

	service := newGeneratorFixture(t, generatorFixtureConfig{
		streams:   []models.Stream{stubStream(1, nil)},
		tx:        txProvider,
		timetable: timetable,
	})

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := service.Commit(context.Background(), stubRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Fixtures ---

type generatorFixtureConfig struct {
	streams     []models.Stream
	days        []models.Weekday
	slots       []models.TimeSlot
	rooms       []models.Room
	windows     []models.AvailabilitySlot
	tx          txProvider
	timetable   timetableStore
	diagnostics scheduleErrorStore
	invalidator scheduleInvalidator
}

func newGeneratorFixture(t *testing.T, cfg generatorFixtureConfig) *GeneratorService {
	t.Helper()
	if cfg.days == nil {
		cfg.days = stubDays()
	}
	if cfg.slots == nil {
		cfg.slots = stubSlots()
	}
	if cfg.rooms == nil {
		cfg.rooms = stubRooms()
	}
	if cfg.tx == nil {
		cfg.tx = noopTxProvider{}
	}
	if cfg.timetable == nil {
		cfg.timetable = &timetableStoreStub{}
	}
	if cfg.diagnostics == nil {
		cfg.diagnostics = &scheduleErrorStoreStub{}
	}

	return NewGeneratorService(
		streamSourceStub{items: cfg.streams},
		weekdaySourceStub{items: cfg.days},
		timeSlotSourceStub{items: cfg.slots},
		roomSourceStub{items: cfg.rooms},
		availabilitySourceStub{items: cfg.windows},
		cfg.timetable,
		cfg.diagnostics,
		cfg.tx,
		cfg.invalidator,
		nil,
		validator.New(),
		zap.NewNop(),
		GeneratorConfig{},
	)
}

func stubRequest() dto.GenerateTimetableRequest {
	return dto.GenerateTimetableRequest{AcademicYearID: 1, Season: "autumn"}
}

func stubStream(id int64, mutate func(*models.Stream)) models.Stream {
	stream := models.Stream{
		ID:             id,
		WorkloadID:     id,
		SubjectID:      id,
		SubjectName:    fmt.Sprintf("Subject %d", id),
		LessonKind:     models.LessonLecture,
		TeacherID:      id + 1000,
		TeacherName:    fmt.Sprintf("Teacher %d", id),
		Employment:     models.EmploymentPermanent,
		CourseLevel:    2,
		PlanHours:      30,
		PlanTotalHours: 60,
		GroupIDs:       pq.Int64Array{id * 100},
		GroupCount:     1,
		StudentCount:   20,
	}
	if mutate != nil {
		mutate(&stream)
	}
	return stream
}

func stubDays() []models.Weekday {
	names := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	days := make([]models.Weekday, len(names))
	for i, name := range names {
		days[i] = models.Weekday{ID: int64(i + 1), Name: name, Ord: i + 1}
	}
	return days
}

func stubSlots() []models.TimeSlot {
	slots := make([]models.TimeSlot, 6)
	for i := range slots {
		slots[i] = models.TimeSlot{ID: int64(i + 1), Index: i + 1, IsActive: true}
	}
	return slots
}

func stubRooms() []models.Room {
	return []models.Room{
		{ID: 1, Name: "B-201", RoomType: models.RoomTypePractice, Capacity: 30, IsActive: true},
		{ID: 2, Name: "LAB-1", RoomType: models.RoomTypeLab, Capacity: 25, IsActive: true},
		{ID: 3, Name: "A-100", RoomType: models.RoomTypeLecture, Capacity: 120, IsActive: true},
	}
}

type streamSourceStub struct {
	items []models.Stream
}

func (s streamSourceStub) ListForSemesters(ctx context.Context, yearID int64, semesters []int) ([]models.Stream, error) {
	return s.items, nil
}

type weekdaySourceStub struct {
	items []models.Weekday
}

func (s weekdaySourceStub) List(ctx context.Context) ([]models.Weekday, error) {
	return s.items, nil
}

type timeSlotSourceStub struct {
	items []models.TimeSlot
}

func (s timeSlotSourceStub) ListActive(ctx context.Context) ([]models.TimeSlot, error) {
	return s.items, nil
}

type roomSourceStub struct {
	items []models.Room
}

func (s roomSourceStub) ListActive(ctx context.Context) ([]models.Room, error) {
	return s.items, nil
}

type availabilitySourceStub struct {
	items []models.AvailabilitySlot
}

func (s availabilitySourceStub) ListAll(ctx context.Context) ([]models.AvailabilitySlot, error) {
	return s.items, nil
}

type timetableStoreStub struct {
	cleared   bool
	inserted  []models.TimetableEntry
	insertErr error
}

func (s *timetableStoreStub) DeleteForSeason(ctx context.Context, exec sqlx.ExtContext, yearID int64, season models.Season) error {
	s.cleared = true
	return nil
}

func (s *timetableStoreStub) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, entries []models.TimetableEntry) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, entries...)
	return nil
}

type scheduleErrorStoreStub struct {
	replaced bool
	rows     []models.ScheduleError
}

func (s *scheduleErrorStoreStub) ReplaceForYear(ctx context.Context, exec sqlx.ExtContext, yearID int64, errs []models.ScheduleError) error {
	s.replaced = true
	s.rows = errs
	return nil
}

type invalidatorStub struct {
	called bool
}

func (s *invalidatorStub) Invalidate(ctx context.Context, yearID int64, season models.Season) error {
	s.called = true
	return nil
}

type noopTxProvider struct{}

func (noopTxProvider) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider unavailable")
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}
