package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/habitguard/study-server/internal/errors"
	"github.com/habitguard/study-server/internal/model"
	"github.com/habitguard/study-server/internal/repository"
	"github.com/habitguard/study-server/internal/util"
)

type CreatePlanInput struct {
	UserID                 string
	SubjectCode            string
	PlannedDurationMinutes int
	TargetDailyHours       float64
	TargetWeeklyHours      float64
	Priority               model.PlanPriority
}

type StudyPlanService struct {
	plans    repository.StudyPlanRepository
	subjects repository.SubjectRepository
}

func NewStudyPlanService(plans repository.StudyPlanRepository, subjects repository.SubjectRepository) *StudyPlanService {
	return &StudyPlanService{
		plans:    plans,
		subjects: subjects,
	}
}

func (s *StudyPlanService) CreateStudyPlan(ctx context.Context, in CreatePlanInput) (*model.StudyPlan, error) {
	if strings.TrimSpace(in.SubjectCode) == "" {
		return nil, apperrors.MissingRequired("subjectCode")
	}
	code, ok := util.NormalizeSubjectCode(in.SubjectCode)
	if !ok {
		return nil, apperrors.SubjectNotResolved(code)
	}
	if in.PlannedDurationMinutes <= 0 {
		return nil, apperrors.ValidationError("plannedDurationMinutes must be positive")
	}
	if in.TargetDailyHours < 0 || in.TargetDailyHours > 24 {
		return nil, apperrors.InvalidInput("targetDailyHours", "must be between 0 and 24")
	}
	if in.TargetWeeklyHours < 0 || in.TargetWeeklyHours > 168 {
		return nil, apperrors.InvalidInput("targetWeeklyHours", "must be between 0 and 168")
	}
	if in.Priority == "" {
		in.Priority = model.PlanPriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, apperrors.InvalidInput("priority", "must be one of Low, Medium, High")
	}

	subject, err := s.subjects.FindEnrolled(ctx, in.UserID, code)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find enrolled subject: %w", err))
	}
	if subject == nil {
		return nil, apperrors.SubjectNotResolved(code)
	}

	plan, err := s.plans.Create(ctx, model.CreateStudyPlanParams{
		ID:                     uuid.NewString(),
		UserID:                 in.UserID,
		SubjectID:              subject.ID,
		SubjectCode:            subject.Code,
		SubjectName:            subject.Name,
		PlannedDurationMinutes: in.PlannedDurationMinutes,
		TargetDailyHours:       in.TargetDailyHours,
		TargetWeeklyHours:      in.TargetWeeklyHours,
		Priority:               in.Priority,
	})
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("create study plan: %w", err))
	}

	log.Info().
		Str("userId", in.UserID).
		Str("planId", plan.ID).
		Str("subjectCode", plan.SubjectCode).
		Msg("study plan created")

	return plan, nil
}

// ListStudyPlans returns the user's active plans, highest priority first.
func (s *StudyPlanService) ListStudyPlans(ctx context.Context, userID string) ([]model.StudyPlan, error) {
	plans, err := s.plans.ListActive(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list study plans: %w", err))
	}
	return plans, nil
}
