package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/habitguard/study-server/internal/database"
	"github.com/habitguard/study-server/internal/model"
)

type StatisticsRepository interface {
	RecordCompletion(ctx context.Context, rec model.CompletionRecord) error
	// ListDaily returns per-subject day rows on or after since. A nil since
	// returns every row.
	ListDaily(ctx context.Context, userID string, since *time.Time) ([]model.DailySubjectStat, error)
}

type statisticsRepo struct {
	db database.DBTX
}

func NewStatisticsRepository(db *sqlx.DB) StatisticsRepository {
	return &statisticsRepo{db: db}
}

func (r *statisticsRepo) RecordCompletion(ctx context.Context, rec model.CompletionRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO study_statistics (
			user_id, subject_id, stat_date, total_study_minutes,
			total_sessions, completed_sessions, total_pauses
		)
		VALUES ($1, $2, $3, $4, 1, 1, $5)
		ON CONFLICT (user_id, subject_id, stat_date) DO UPDATE SET
			total_study_minutes = study_statistics.total_study_minutes + EXCLUDED.total_study_minutes,
			total_sessions = study_statistics.total_sessions + 1,
			completed_sessions = study_statistics.completed_sessions + 1,
			total_pauses = study_statistics.total_pauses + EXCLUDED.total_pauses,
			updated_at = NOW()
	`, rec.UserID, rec.SubjectID, rec.StatDate.Format(time.DateOnly), rec.StudyMinutes, rec.PauseCount)
	return err
}

func (r *statisticsRepo) ListDaily(ctx context.Context, userID string, since *time.Time) ([]model.DailySubjectStat, error) {
	var sinceDate *string
	if since != nil {
		d := since.Format(time.DateOnly)
		sinceDate = &d
	}

	stats := []model.DailySubjectStat{}
	err := r.db.SelectContext(ctx, &stats, `
		SELECT
			st.subject_id,
			sub.subject_code,
			sub.subject_name,
			st.stat_date,
			st.total_study_minutes,
			st.total_sessions,
			st.completed_sessions,
			st.total_pauses
		FROM study_statistics st
		JOIN student_subjects sub ON sub.subject_id = st.subject_id
		WHERE st.user_id = $1
		AND ($2::DATE IS NULL OR st.stat_date >= $2::DATE)
		ORDER BY st.stat_date DESC, st.subject_id
	`, userID, sinceDate)
	return stats, err
}
