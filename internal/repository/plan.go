package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/habitguard/study-server/internal/database"
	"github.com/habitguard/study-server/internal/model"
)

type StudyPlanRepository interface {
	FindByID(ctx context.Context, id string) (*model.StudyPlan, error)
	ListActive(ctx context.Context, userID string) ([]model.StudyPlan, error)
	Create(ctx context.Context, params model.CreateStudyPlanParams) (*model.StudyPlan, error)
}

type studyPlanRepo struct {
	db database.DBTX
}

func NewStudyPlanRepository(db *sqlx.DB) StudyPlanRepository {
	return &studyPlanRepo{db: db}
}

func (r *studyPlanRepo) FindByID(ctx context.Context, id string) (*model.StudyPlan, error) {
	return getOptional[model.StudyPlan](ctx, r.db, `SELECT * FROM study_plans WHERE plan_id = $1`, id)
}

func (r *studyPlanRepo) ListActive(ctx context.Context, userID string) ([]model.StudyPlan, error) {
	plans := []model.StudyPlan{}
	err := r.db.SelectContext(ctx, &plans, `
		SELECT * FROM study_plans
		WHERE user_id = $1 AND status = 'active'
		ORDER BY
			CASE priority WHEN 'High' THEN 0 WHEN 'Medium' THEN 1 ELSE 2 END,
			created_at DESC
	`, userID)
	return plans, err
}

func (r *studyPlanRepo) Create(ctx context.Context, params model.CreateStudyPlanParams) (*model.StudyPlan, error) {
	var plan model.StudyPlan
	err := r.db.GetContext(ctx, &plan, `
		INSERT INTO study_plans (
			plan_id, user_id, subject_id, subject_code, subject_name,
			planned_duration_minutes, target_daily_hours, target_weekly_hours, priority
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING *
	`, params.ID, params.UserID, params.SubjectID, params.SubjectCode, params.SubjectName,
		params.PlannedDurationMinutes, params.TargetDailyHours, params.TargetWeeklyHours, params.Priority)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}
