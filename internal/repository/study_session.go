package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/habitguard/study-server/internal/database"
	"github.com/habitguard/study-server/internal/model"
)

// LiveSessionIndex is the partial unique index that admits one live session per user.
const LiveSessionIndex = "uq_study_sessions_live_user"

type StudySessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.StudySession, error)
	FindLiveByUserID(ctx context.Context, userID string) (*model.StudySession, error)
	Create(ctx context.Context, params model.CreateStudySessionParams) (*model.StudySession, error)
	// Update writes the mutable fields of s if the stored version still equals
	// s.Version. It returns nil without error when the precondition fails.
	Update(ctx context.Context, s *model.StudySession) (*model.StudySession, error)
	ListHistory(ctx context.Context, userID string, filter model.HistoryFilter) ([]model.StudySession, error)
	FindStale(ctx context.Context, updatedBefore time.Time, limit int) ([]model.StudySession, error)
	// LockUser takes a transaction-scoped advisory lock on the user. Only
	// meaningful on a repository bound with WithTx.
	LockUser(ctx context.Context, userID string) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) StudySessionRepository
}

type studySessionRepo struct {
	db database.DBTX
}

func NewStudySessionRepository(db *sqlx.DB) StudySessionRepository {
	return &studySessionRepo{db: db}
}

func (r *studySessionRepo) WithTx(tx *sqlx.Tx) StudySessionRepository {
	return &studySessionRepo{db: tx}
}

func (r *studySessionRepo) FindByID(ctx context.Context, id string) (*model.StudySession, error) {
	return getOptional[model.StudySession](ctx, r.db, `SELECT * FROM study_sessions WHERE session_id = $1`, id)
}

func (r *studySessionRepo) FindLiveByUserID(ctx context.Context, userID string) (*model.StudySession, error) {
	return getOptional[model.StudySession](ctx, r.db, `
		SELECT * FROM study_sessions
		WHERE user_id = $1 AND status IN ('in_progress', 'paused')
		ORDER BY start_time DESC
		LIMIT 1
	`, userID)
}

func (r *studySessionRepo) Create(ctx context.Context, params model.CreateStudySessionParams) (*model.StudySession, error) {
	var s model.StudySession
	err := r.db.GetContext(ctx, &s, `
		INSERT INTO study_sessions (
			session_id, user_id, subject_id, plan_id, subject_code, subject_name,
			planned_duration_minutes, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'not_started')
		RETURNING *
	`, params.ID, params.UserID, params.SubjectID, params.PlanID, params.SubjectCode,
		params.SubjectName, params.PlannedDurationMinutes)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studySessionRepo) Update(ctx context.Context, s *model.StudySession) (*model.StudySession, error) {
	// no row back means the version moved on: the caller lost a race
	return getOptional[model.StudySession](ctx, r.db, `
		UPDATE study_sessions SET
			status = $3,
			start_time = $4,
			pause_time = $5,
			end_time = $6,
			total_paused_seconds = $7,
			pause_count = $8,
			actual_duration_seconds = $9,
			completion_percentage = $10,
			notes = $11,
			version = version + 1,
			updated_at = $12
		WHERE session_id = $1 AND version = $2
		RETURNING *
	`, s.ID, s.Version, s.Status, s.StartTime, s.PauseTime, s.EndTime,
		s.TotalPausedSeconds, s.PauseCount, s.ActualDurationSeconds,
		s.CompletionPercentage, s.Notes, s.UpdatedAt)
}

func (r *studySessionRepo) ListHistory(ctx context.Context, userID string, filter model.HistoryFilter) ([]model.StudySession, error) {
	sessions := []model.StudySession{}
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM study_sessions
		WHERE user_id = $1
		AND status IN ('completed', 'cancelled')
		AND ($2::BIGINT IS NULL OR subject_id = $2)
		ORDER BY end_time DESC
		LIMIT $3 OFFSET $4
	`, userID, filter.SubjectID, filter.Limit, filter.Offset)
	return sessions, err
}

func (r *studySessionRepo) FindStale(ctx context.Context, updatedBefore time.Time, limit int) ([]model.StudySession, error) {
	sessions := []model.StudySession{}
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM study_sessions
		WHERE status IN ('in_progress', 'paused')
		AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`, updatedBefore, limit)
	return sessions, err
}

func (r *studySessionRepo) LockUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID)
	return err
}
