package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/univer-hq/timetable-api/internal/dto"
	"github.com/univer-hq/timetable-api/internal/models"
	appErrors "github.com/univer-hq/timetable-api/pkg/errors"
)

const (
	weeksInSemester = 15
	condensedWeeks  = 4
	hoursPerPair    = 2

	// Final-year evening programmes study in a compressed multi-week
	// window and are exempt from shift slot restrictions.
	condensedCourseLevel = 5

	shiftWindow  = 4
	shift2Offset = 2
)

// FailureCategory classifies why a (day, slot) candidate was rejected.
type FailureCategory string

const (
	FailureTeacherBusy        FailureCategory = "teacher_busy"
	FailureTeacherUnavailable FailureCategory = "teacher_unavailable"
	FailureGroupBusy          FailureCategory = "group_busy"
	FailureRoomBusy           FailureCategory = "room_busy"
	FailureRoomCapacity       FailureCategory = "room_capacity"
)

// failurePriority is the fixed tie-break order when several categories
// share the highest rejection count.
var failurePriority = []FailureCategory{
	FailureTeacherBusy,
	FailureTeacherUnavailable,
	FailureGroupBusy,
	FailureRoomBusy,
	FailureRoomCapacity,
}

type streamSource interface {
	ListForSemesters(ctx context.Context, yearID int64, semesters []int) ([]models.Stream, error)
}

type weekdaySource interface {
	List(ctx context.Context) ([]models.Weekday, error)
}

type timeSlotSource interface {
	ListActive(ctx context.Context) ([]models.TimeSlot, error)
}

type roomSource interface {
	ListActive(ctx context.Context) ([]models.Room, error)
}

type availabilitySource interface {
	ListAll(ctx context.Context) ([]models.AvailabilitySlot, error)
}

type timetableStore interface {
	DeleteForSeason(ctx context.Context, exec sqlx.ExtContext, yearID int64, season models.Season) error
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, entries []models.TimetableEntry) error
}

type scheduleErrorStore interface {
	ReplaceForYear(ctx context.Context, exec sqlx.ExtContext, yearID int64, errs []models.ScheduleError) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type scheduleInvalidator interface {
	Invalidate(ctx context.Context, yearID int64, season models.Season) error
}

type generatorMetrics interface {
	ObserveGeneration(season string, placed, failed int, duration time.Duration)
	CountPlacementFailures(category string, n int)
}

// GeneratorService builds the semester timetable with a greedy
// constraint-based search and either previews or persists the result.
type GeneratorService struct {
	streams      streamSource
	weekdays     weekdaySource
	slots        timeSlotSource
	rooms        roomSource
	availability availabilitySource
	timetable    timetableStore
	diagnostics  scheduleErrorStore
	tx           txProvider
	invalidator  scheduleInvalidator
	metrics      generatorMetrics
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          GeneratorConfig
}

// GeneratorConfig carries the default shift level split.
type GeneratorConfig struct {
	Shift1Levels []int
	Shift2Levels []int
}

// NewGeneratorService wires generator dependencies.
func NewGeneratorService(
	streams streamSource,
	weekdays weekdaySource,
	slots timeSlotSource,
	rooms roomSource,
	availability availabilitySource,
	timetable timetableStore,
	diagnostics scheduleErrorStore,
	tx txProvider,
	invalidator scheduleInvalidator,
	metrics generatorMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg GeneratorConfig,
) *GeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Shift1Levels) == 0 {
		cfg.Shift1Levels = []int{1, 4}
	}
	if len(cfg.Shift2Levels) == 0 {
		cfg.Shift2Levels = []int{2, 3}
	}
	return &GeneratorService{
		streams:      streams,
		weekdays:     weekdays,
		slots:        slots,
		rooms:        rooms,
		availability: availability,
		timetable:    timetable,
		diagnostics:  diagnostics,
		tx:           tx,
		invalidator:  invalidator,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
	}
}

// Preview runs the full generation without touching storage.
func (s *GeneratorService) Preview(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	draft, err := s.compute(ctx, req)
	if err != nil {
		return nil, err
	}
	return &dto.GenerateTimetableResponse{
		Assignments: draft.assignments,
		Failures:    draft.failures,
	}, nil
}

// Commit runs the generation and atomically replaces the stored schedule
// for the year/season pair: prior rows are deleted, every assignment fans
// out to one row per group served, and the year's diagnostics are replaced
// with the freshly computed set. Any failure rolls back the whole write.
func (s *GeneratorService) Commit(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.CommitTimetableResponse, error) {
	draft, err := s.compute(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	season := models.Season(req.Season)
	rows := fanOutEntries(req.AcademicYearID, season, draft.assignments)
	diagRows, err := diagnosticRows(req.AcademicYearID, season, draft.failures)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode failure diagnostics")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.timetable.DeleteForSeason(ctx, tx, req.AcademicYearID, season); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear previous schedule")
		return nil, err
	}
	if err = s.timetable.BulkCreateWithTx(ctx, tx, rows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule")
		return nil, err
	}
	if err = s.diagnostics.ReplaceForYear(ctx, tx, req.AcademicYearID, diagRows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist diagnostics")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
		return nil, err
	}

	if s.invalidator != nil {
		if cacheErr := s.invalidator.Invalidate(ctx, req.AcademicYearID, season); cacheErr != nil {
			s.logger.Warn("timetable cache invalidation failed", zap.Error(cacheErr))
		}
	}

	s.logger.Info("schedule committed",
		zap.Int64("academic_year_id", req.AcademicYearID),
		zap.String("season", req.Season),
		zap.Int("assignments", len(draft.assignments)),
		zap.Int("rows", len(rows)),
		zap.Int("failures", len(draft.failures)),
	)

	return &dto.CommitTimetableResponse{
		Assignments:  len(draft.assignments),
		RowsInserted: len(rows),
		Failures:     draft.failures,
	}, nil
}

// scheduleDraft is the in-memory outcome of one generation run.
type scheduleDraft struct {
	assignments []dto.Assignment
	failures    []dto.StreamFailure
}

func (s *GeneratorService) compute(ctx context.Context, req dto.GenerateTimetableRequest) (*scheduleDraft, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	season := models.Season(req.Season)
	if !season.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnknownSeason, "")
	}

	started := time.Now()

	streams, err := s.streams.ListForSemesters(ctx, req.AcademicYearID, season.Semesters())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load streams")
	}
	days, err := s.weekdays.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekdays")
	}
	slots, err := s.slots.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	rooms, err := s.rooms.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	windows, err := s.availability.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher availability")
	}

	shift1 := req.Shift1Levels
	if len(shift1) == 0 {
		shift1 = s.cfg.Shift1Levels
	}
	shift2 := req.Shift2Levels
	if len(shift2) == 0 {
		shift2 = s.cfg.Shift2Levels
	}

	run := newGenerationRun(days, slots, rooms, windows, shift1, shift2)
	sortStreamsByPriority(streams)

	draft := &scheduleDraft{
		assignments: make([]dto.Assignment, 0, len(streams)),
		failures:    make([]dto.StreamFailure, 0),
	}

	for _, stream := range streams {
		needed := pairsNeeded(stream)
		if needed < 1 {
			continue
		}

		placed, tally := run.placeStream(stream, needed)
		for _, p := range placed {
			draft.assignments = append(draft.assignments, dto.Assignment{
				StreamID:     stream.ID,
				WeekdayID:    p.day.ID,
				WeekdayName:  p.day.Name,
				TimeSlotID:   p.slot.ID,
				SlotIndex:    p.slot.Index,
				RoomID:       p.room.ID,
				RoomName:     p.room.Name,
				SubjectID:    stream.SubjectID,
				SubjectName:  stream.SubjectName,
				TeacherID:    stream.TeacherID,
				TeacherName:  stream.TeacherName,
				Label:        stream.Label(),
				GroupIDs:     append([]int64(nil), stream.GroupIDs...),
				StudentCount: stream.EnrolledStudents(),
				CourseLevel:  stream.CourseLevel,
			})
		}

		missing := needed - len(placed)
		if missing > 0 {
			dominant := tally.dominant()
			draft.failures = append(draft.failures, dto.StreamFailure{
				StreamID:    stream.ID,
				SubjectName: stream.SubjectName,
				LessonKind:  string(stream.LessonKind),
				TeacherName: stream.TeacherName,
				Needed:      needed,
				Placed:      len(placed),
				Shortfall:   missing,
				Reason:      string(dominant),
				Detail:      fmt.Sprintf("%d of %d occurrences unplaced, dominant cause: %s", missing, needed, dominant),
				Breakdown:   tally.counts(),
			})
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveGeneration(req.Season, len(draft.assignments), len(draft.failures), time.Since(started))
		for _, failure := range draft.failures {
			for category, n := range failure.Breakdown {
				s.metrics.CountPlacementFailures(category, n)
			}
		}
	}

	s.logger.Debug("schedule computed",
		zap.Int64("academic_year_id", req.AcademicYearID),
		zap.String("season", req.Season),
		zap.Int("streams", len(streams)),
		zap.Int("assignments", len(draft.assignments)),
		zap.Int("failures", len(draft.failures)),
	)

	return draft, nil
}

// --- Priority ordering ---

// priorityScore ranks streams so the hardest-to-place go first: many
// groups, hourly teachers with narrow availability windows, labs needing
// scarce rooms, and condensed final-year streams.
func priorityScore(stream models.Stream) int {
	score := stream.GroupCount * 100
	if stream.Employment == models.EmploymentHourly {
		score += 1000
	}
	if stream.LessonKind == models.LessonLab {
		score += 50
	}
	if stream.CourseLevel == condensedCourseLevel {
		score += 500
	}
	return score
}

func sortStreamsByPriority(streams []models.Stream) {
	sort.SliceStable(streams, func(i, j int) bool {
		return priorityScore(streams[i]) > priorityScore(streams[j])
	})
}

// --- Occurrence requirement ---

// pairsNeeded derives the weekly occurrence count from the plan hours:
// hours spread over the instruction weeks, two hours per classroom pair.
// Any fraction strictly between zero and one becomes a single weekly
// occurrence; everything else rounds half up.
func pairsNeeded(stream models.Stream) int {
	weeks := weeksInSemester
	if stream.CourseLevel == condensedCourseLevel {
		weeks = condensedWeeks
	}
	pairs := float64(stream.PlanHours) / float64(weeks) / hoursPerPair
	if pairs > 0 && pairs < 1 {
		return 1
	}
	return int(pairs + 0.5)
}

// --- Conflict matrices ---

type teacherSlotKey struct {
	Weekday int64
	Slot    int64
	Teacher int64
}

type groupSlotKey struct {
	Weekday int64
	Slot    int64
	Group   int64
}

type roomSlotKey struct {
	Weekday int64
	Slot    int64
	Room    int64
}

type availabilityKey struct {
	Teacher int64
	Weekday int64
	Slot    int64
}

// conflictBoard tracks which (day, slot, resource) triples are taken.
// It lives for exactly one generation run.
type conflictBoard struct {
	teacherBusy map[teacherSlotKey]struct{}
	groupBusy   map[groupSlotKey]struct{}
	roomBusy    map[roomSlotKey]struct{}
}

func newConflictBoard() *conflictBoard {
	return &conflictBoard{
		teacherBusy: make(map[teacherSlotKey]struct{}),
		groupBusy:   make(map[groupSlotKey]struct{}),
		roomBusy:    make(map[roomSlotKey]struct{}),
	}
}

func (b *conflictBoard) teacherTaken(day, slot, teacher int64) bool {
	_, ok := b.teacherBusy[teacherSlotKey{Weekday: day, Slot: slot, Teacher: teacher}]
	return ok
}

func (b *conflictBoard) groupTaken(day, slot int64, groups []int64) bool {
	for _, group := range groups {
		if _, ok := b.groupBusy[groupSlotKey{Weekday: day, Slot: slot, Group: group}]; ok {
			return true
		}
	}
	return false
}

func (b *conflictBoard) roomTaken(day, slot, room int64) bool {
	_, ok := b.roomBusy[roomSlotKey{Weekday: day, Slot: slot, Room: room}]
	return ok
}

func (b *conflictBoard) occupy(day, slot int64, stream models.Stream, room int64) {
	b.teacherBusy[teacherSlotKey{Weekday: day, Slot: slot, Teacher: stream.TeacherID}] = struct{}{}
	b.roomBusy[roomSlotKey{Weekday: day, Slot: slot, Room: room}] = struct{}{}
	for _, group := range stream.GroupIDs {
		b.groupBusy[groupSlotKey{Weekday: day, Slot: slot, Group: group}] = struct{}{}
	}
}

// --- Failure accounting ---

type failureTally struct {
	byCategory map[FailureCategory]int
}

func newFailureTally() failureTally {
	return failureTally{byCategory: make(map[FailureCategory]int)}
}

func (t failureTally) add(category FailureCategory) {
	t.byCategory[category]++
}

// dominant returns the most frequent rejection category; ties resolve by
// the fixed failurePriority order.
func (t failureTally) dominant() FailureCategory {
	best := failurePriority[0]
	bestCount := -1
	for _, category := range failurePriority {
		if count := t.byCategory[category]; count > bestCount {
			best = category
			bestCount = count
		}
	}
	return best
}

func (t failureTally) counts() map[string]int {
	result := make(map[string]int, len(failurePriority))
	for _, category := range failurePriority {
		result[string(category)] = t.byCategory[category]
	}
	return result
}

// --- Placement search ---

type placement struct {
	day  models.Weekday
	slot models.TimeSlot
	room models.Room
}

type generationRun struct {
	days         []models.Weekday
	slots        []models.TimeSlot
	rooms        []models.Room // capacity ascending
	availability map[availabilityKey]struct{}
	shift1       []int
	shift2       []int
	board        *conflictBoard
	streamDays   map[int64]map[int64]struct{}
}

func newGenerationRun(
	days []models.Weekday,
	slots []models.TimeSlot,
	rooms []models.Room,
	windows []models.AvailabilitySlot,
	shift1, shift2 []int,
) *generationRun {
	availability := make(map[availabilityKey]struct{}, len(windows))
	for _, w := range windows {
		availability[availabilityKey{Teacher: w.TeacherID, Weekday: w.WeekdayID, Slot: w.TimeSlotID}] = struct{}{}
	}
	return &generationRun{
		days:         days,
		slots:        slots,
		rooms:        rooms,
		availability: availability,
		shift1:       shift1,
		shift2:       shift2,
		board:        newConflictBoard(),
		streamDays:   make(map[int64]map[int64]struct{}),
	}
}

// allowedSlots returns the shift window for a course level. Condensed
// final-year streams and installations with fewer than four slots see the
// whole day; shift one gets the first four periods, shift two the four
// periods starting at the third.
func (r *generationRun) allowedSlots(courseLevel int) []models.TimeSlot {
	if len(r.slots) < shiftWindow || courseLevel == condensedCourseLevel {
		return r.slots
	}
	if lo.Contains(r.shift1, courseLevel) {
		return r.slots[:shiftWindow]
	}
	if lo.Contains(r.shift2, courseLevel) {
		end := shift2Offset + shiftWindow
		if end > len(r.slots) {
			end = len(r.slots)
		}
		return r.slots[shift2Offset:end]
	}
	return r.slots
}

func (r *generationRun) hasStreamOnDay(streamID, dayID int64) bool {
	days, ok := r.streamDays[streamID]
	if !ok {
		return false
	}
	_, taken := days[dayID]
	return taken
}

func (r *generationRun) markStreamDay(streamID, dayID int64) {
	if r.streamDays[streamID] == nil {
		r.streamDays[streamID] = make(map[int64]struct{})
	}
	r.streamDays[streamID][dayID] = struct{}{}
}

func (r *generationRun) teacherAvailable(teacherID, dayID, slotID int64) bool {
	_, ok := r.availability[availabilityKey{Teacher: teacherID, Weekday: dayID, Slot: slotID}]
	return ok
}

// findRoom returns the first free room of a compatible type with enough
// seats. Rooms arrive sorted by capacity, so the smallest fit wins.
func (r *generationRun) findRoom(dayID, slotID int64, allowed []models.RoomType, students int) (models.Room, bool) {
	for _, room := range r.rooms {
		if !lo.Contains(allowed, room.RoomType) {
			continue
		}
		if room.Capacity < students {
			continue
		}
		if r.board.roomTaken(dayID, slotID, room.ID) {
			continue
		}
		return room, true
	}
	return models.Room{}, false
}

// hasFittingRoom reports whether any room of a compatible type could seat
// the stream at all, distinguishing "booked elsewhere" from "too small".
func (r *generationRun) hasFittingRoom(allowed []models.RoomType, students int) bool {
	return lo.SomeBy(r.rooms, func(room models.Room) bool {
		return lo.Contains(allowed, room.RoomType) && room.Capacity >= students
	})
}

// placeStream searches the (weekday, slot, room) space for up to needed
// occurrences of the stream, at most one per weekday, and marks every
// successful placement on the conflict board.
func (r *generationRun) placeStream(stream models.Stream, needed int) ([]placement, failureTally) {
	tally := newFailureTally()
	placed := make([]placement, 0, needed)
	students := stream.EnrolledStudents()
	allowedSlots := r.allowedSlots(stream.CourseLevel)
	allowedTypes := stream.LessonKind.RoomTypes()

	for _, day := range r.days {
		if len(placed) == needed {
			break
		}
		if r.hasStreamOnDay(stream.ID, day.ID) {
			continue
		}

		for _, slot := range allowedSlots {
			if r.board.teacherTaken(day.ID, slot.ID, stream.TeacherID) {
				tally.add(FailureTeacherBusy)
				continue
			}
			if stream.Employment == models.EmploymentHourly && !r.teacherAvailable(stream.TeacherID, day.ID, slot.ID) {
				tally.add(FailureTeacherUnavailable)
				continue
			}
			if r.board.groupTaken(day.ID, slot.ID, stream.GroupIDs) {
				tally.add(FailureGroupBusy)
				continue
			}

			room, ok := r.findRoom(day.ID, slot.ID, allowedTypes, students)
			if !ok {
				if r.hasFittingRoom(allowedTypes, students) {
					tally.add(FailureRoomBusy)
				} else {
					tally.add(FailureRoomCapacity)
				}
				continue
			}

			r.board.occupy(day.ID, slot.ID, stream, room.ID)
			r.markStreamDay(stream.ID, day.ID)
			placed = append(placed, placement{day: day, slot: slot, room: room})
			break
		}
	}

	return placed, tally
}

// --- Persistence shaping ---

func fanOutEntries(yearID int64, season models.Season, assignments []dto.Assignment) []models.TimetableEntry {
	rows := make([]models.TimetableEntry, 0, len(assignments))
	for _, a := range assignments {
		for _, groupID := range a.GroupIDs {
			rows = append(rows, models.TimetableEntry{
				AcademicYearID: yearID,
				Season:         season,
				WeekdayID:      a.WeekdayID,
				TimeSlotID:     a.TimeSlotID,
				StreamID:       a.StreamID,
				SubjectID:      a.SubjectID,
				TeacherID:      a.TeacherID,
				GroupID:        groupID,
				RoomID:         a.RoomID,
			})
		}
	}
	return rows
}

func diagnosticRows(yearID int64, season models.Season, failures []dto.StreamFailure) ([]models.ScheduleError, error) {
	rows := make([]models.ScheduleError, 0, len(failures))
	for _, failure := range failures {
		stats, err := json.Marshal(failure.Breakdown)
		if err != nil {
			return nil, err
		}
		rows = append(rows, models.ScheduleError{
			AcademicYearID: yearID,
			Season:         season,
			StreamID:       failure.StreamID,
			SubjectName:    failure.SubjectName,
			LessonKind:     models.LessonKind(failure.LessonKind),
			Shortfall:      failure.Shortfall,
			Reason:         failure.Detail,
			Stats:          types.JSONText(stats),
		})
	}
	return rows, nil
}
