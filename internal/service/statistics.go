package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/habitguard/study-server/internal/errors"
	"github.com/habitguard/study-server/internal/model"
	"github.com/habitguard/study-server/internal/repository"
	"github.com/habitguard/study-server/internal/studytime"
)

// StatsCache holds rendered reports. Get returns nil on a miss.
type StatsCache interface {
	Get(ctx context.Context, userID string, period model.StatsPeriod) (*model.StatisticsReport, error)
	Set(ctx context.Context, userID string, period model.StatsPeriod, report *model.StatisticsReport) error
	Invalidate(ctx context.Context, userID string) error
}

type StatisticsService struct {
	repo  repository.StatisticsRepository
	cache StatsCache
	loc   *time.Location
	now   func() time.Time
}

func NewStatisticsService(repo repository.StatisticsRepository, cache StatsCache, loc *time.Location) *StatisticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatisticsService{
		repo:  repo,
		cache: cache,
		loc:   loc,
		now:   time.Now,
	}
}

// RecordCompletion adds a completed session to the day it ended on.
func (s *StatisticsService) RecordCompletion(ctx context.Context, session *model.StudySession) error {
	ended := s.now()
	if session.EndTime != nil {
		ended = *session.EndTime
	}

	rec := model.CompletionRecord{
		UserID:       session.UserID,
		SubjectID:    session.SubjectID,
		StudyMinutes: studytime.StudyMinutes(session.ActualDurationSeconds),
		PauseCount:   session.PauseCount,
		StatDate:     s.dayOf(ended),
	}
	if err := s.repo.RecordCompletion(ctx, rec); err != nil {
		return fmt.Errorf("record completion: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, session.UserID); err != nil {
			log.Warn().Err(err).Str("userId", session.UserID).Msg("failed to invalidate stats cache")
		}
	}
	return nil
}

func (s *StatisticsService) GetStatistics(ctx context.Context, userID string, period model.StatsPeriod) (*model.StatisticsReport, error) {
	if period == "" {
		period = model.StatsPeriodWeek
	}
	if !period.Valid() {
		return nil, apperrors.InvalidInput("period", "must be one of week, month, all")
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, userID, period)
		if err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("stats cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	var since *time.Time
	if days := period.Days(); days > 0 {
		d := s.dayOf(s.now()).AddDate(0, 0, -days)
		since = &d
	}

	rows, err := s.repo.ListDaily(ctx, userID, since)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list daily statistics: %w", err))
	}

	report := buildReport(period, rows)

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, period, report); err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("stats cache write failed")
		}
	}
	return report, nil
}

// dayOf truncates t to midnight in the statistics timezone.
func (s *StatisticsService) dayOf(t time.Time) time.Time {
	local := t.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
}

func buildReport(period model.StatsPeriod, rows []model.DailySubjectStat) *model.StatisticsReport {
	report := &model.StatisticsReport{
		Period:    period,
		BySubject: []model.SubjectStats{},
		Daily:     []model.DailyStats{},
	}

	subjects := make(map[int64]*model.SubjectStats)
	days := make(map[string]*model.DailyStats)

	for _, row := range rows {
		addTotals(&report.Overall, row)

		sub, ok := subjects[row.SubjectID]
		if !ok {
			sub = &model.SubjectStats{
				SubjectID:   row.SubjectID,
				SubjectCode: row.SubjectCode,
				SubjectName: row.SubjectName,
			}
			subjects[row.SubjectID] = sub
		}
		addTotals(&sub.StatsTotals, row)

		key := row.StatDate.Format(time.DateOnly)
		day, ok := days[key]
		if !ok {
			day = &model.DailyStats{Date: key}
			days[key] = day
		}
		day.TotalMinutes += row.TotalStudyMinutes
		day.TotalSessions += row.TotalSessions
	}

	report.Overall.AvgSessionMinutes = average(report.Overall.TotalMinutes, report.Overall.TotalSessions)

	for _, sub := range subjects {
		sub.AvgSessionMinutes = average(sub.TotalMinutes, sub.TotalSessions)
		report.BySubject = append(report.BySubject, *sub)
	}
	sort.Slice(report.BySubject, func(i, j int) bool {
		a, b := report.BySubject[i], report.BySubject[j]
		if a.TotalMinutes != b.TotalMinutes {
			return a.TotalMinutes > b.TotalMinutes
		}
		return a.SubjectCode < b.SubjectCode
	})

	for _, day := range days {
		report.Daily = append(report.Daily, *day)
	}
	sort.Slice(report.Daily, func(i, j int) bool {
		return report.Daily[i].Date > report.Daily[j].Date
	})

	return report
}

func addTotals(t *model.StatsTotals, row model.DailySubjectStat) {
	t.TotalMinutes += row.TotalStudyMinutes
	t.TotalSessions += row.TotalSessions
	t.CompletedSessions += row.CompletedSessions
	t.TotalPauses += row.TotalPauses
}

func average(minutes, sessions int) float64 {
	if sessions == 0 {
		return 0
	}
	return math.Round(float64(minutes)/float64(sessions)*100) / 100
}
