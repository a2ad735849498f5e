package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/habitguard/study-server/internal/errors"
	"github.com/habitguard/study-server/internal/model"
)

func TestStudyPlanService_CreateStudyPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves subject and defaults priority", func(t *testing.T) {
		plans := new(mockPlanRepo)
		svc := NewStudyPlanService(plans, newFakeSubjectRepo())

		plans.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateStudyPlanParams) bool {
			return p.UserID == "user-1" &&
				p.SubjectID == 12 &&
				p.SubjectName == "Calculus" &&
				p.Priority == model.PlanPriorityMedium &&
				p.ID != ""
		})).Return(&model.StudyPlan{ID: "plan-1", SubjectCode: "MA201"}, nil)

		plan, err := svc.CreateStudyPlan(ctx, CreatePlanInput{
			UserID:                 "user-1",
			SubjectCode:            "MA201",
			PlannedDurationMinutes: 45,
			TargetDailyHours:       1.5,
		})
		require.NoError(t, err)
		assert.Equal(t, "plan-1", plan.ID)
		plans.AssertExpectations(t)
	})

	tests := []struct {
		name string
		in   CreatePlanInput
		code apperrors.ErrorCode
	}{
		{"missing subject", CreatePlanInput{UserID: "user-1", PlannedDurationMinutes: 30}, apperrors.ErrCodeMissingRequired},
		{"zero minutes", CreatePlanInput{UserID: "user-1", SubjectCode: "CS101"}, apperrors.ErrCodeValidation},
		{"daily hours out of range", CreatePlanInput{UserID: "user-1", SubjectCode: "CS101", PlannedDurationMinutes: 30, TargetDailyHours: 25}, apperrors.ErrCodeInvalidInput},
		{"bad priority", CreatePlanInput{UserID: "user-1", SubjectCode: "CS101", PlannedDurationMinutes: 30, Priority: "Urgent"}, apperrors.ErrCodeInvalidInput},
		{"not enrolled", CreatePlanInput{UserID: "user-1", SubjectCode: "XX000", PlannedDurationMinutes: 30}, apperrors.ErrCodeSubjectNotResolved},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plans := new(mockPlanRepo)
			svc := NewStudyPlanService(plans, newFakeSubjectRepo())
			_, err := svc.CreateStudyPlan(ctx, tc.in)
			assert.Equal(t, tc.code, apperrors.GetCode(err))
			plans.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestStudyPlanService_ListStudyPlans(t *testing.T) {
	plans := new(mockPlanRepo)
	svc := NewStudyPlanService(plans, newFakeSubjectRepo())

	plans.On("ListActive", mock.Anything, "user-1").Return([]model.StudyPlan{
		{ID: "a", Priority: model.PlanPriorityHigh},
		{ID: "b", Priority: model.PlanPriorityLow},
	}, nil)

	list, err := svc.ListStudyPlans(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
