package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/univer-hq/timetable-api/internal/models"
	appErrors "github.com/univer-hq/timetable-api/pkg/errors"
)

type timetableReader interface {
	ListForSeason(ctx context.Context, yearID int64, season models.Season) ([]models.TimetableEntry, error)
}

type scheduleErrorReader interface {
	ListByYear(ctx context.Context, yearID int64) ([]models.ScheduleError, error)
}

// TimetableService serves the committed schedule, optionally fronted by a
// short-lived Redis cache that a commit invalidates.
type TimetableService struct {
	timetable   timetableReader
	diagnostics scheduleErrorReader
	cache       *redis.Client
	ttl         time.Duration
	logger      *zap.Logger
}

// NewTimetableService wires the read side. A nil cache client disables
// caching entirely.
func NewTimetableService(
	timetable timetableReader,
	diagnostics scheduleErrorReader,
	cache *redis.Client,
	ttl time.Duration,
	logger *zap.Logger,
) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TimetableService{
		timetable:   timetable,
		diagnostics: diagnostics,
		cache:       cache,
		ttl:         ttl,
		logger:      logger,
	}
}

func timetableCacheKey(yearID int64, season models.Season) string {
	return fmt.Sprintf("timetable:%d:%s", yearID, season)
}

// ListForSeason returns the committed schedule for the year/season pair,
// from cache when a fresh copy exists.
func (s *TimetableService) ListForSeason(ctx context.Context, yearID int64, season models.Season) ([]models.TimetableEntry, error) {
	if yearID < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "yearId must be positive")
	}
	if !season.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnknownSeason, "")
	}

	key := timetableCacheKey(yearID, season)
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			var cached []models.TimetableEntry
			if unmarshalErr := json.Unmarshal(raw, &cached); unmarshalErr == nil {
				return cached, nil
			}
			s.logger.Warn("discarding malformed timetable cache entry", zap.String("key", key))
		} else if err != redis.Nil {
			s.logger.Warn("timetable cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	entries, err := s.timetable.ListForSeason(ctx, yearID, season)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	if s.cache != nil {
		if raw, marshalErr := json.Marshal(entries); marshalErr == nil {
			if setErr := s.cache.Set(ctx, key, raw, s.ttl).Err(); setErr != nil {
				s.logger.Warn("timetable cache write failed", zap.String("key", key), zap.Error(setErr))
			}
		}
	}

	return entries, nil
}

// ListErrors returns the stored generation diagnostics for the year.
func (s *TimetableService) ListErrors(ctx context.Context, yearID int64) ([]models.ScheduleError, error) {
	if yearID < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "yearId must be positive")
	}
	errs, err := s.diagnostics.ListByYear(ctx, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule diagnostics")
	}
	return errs, nil
}

// Invalidate drops the cached schedule for the year/season pair. Called
// after a commit replaces the stored rows.
func (s *TimetableService) Invalidate(ctx context.Context, yearID int64, season models.Season) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, timetableCacheKey(yearID, season)).Err()
}
