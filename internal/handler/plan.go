package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/habitguard/study-server/internal/middleware"
	"github.com/habitguard/study-server/internal/model"
	"github.com/habitguard/study-server/internal/service"
)

type StudyPlanService interface {
	CreateStudyPlan(ctx context.Context, in service.CreatePlanInput) (*model.StudyPlan, error)
	ListStudyPlans(ctx context.Context, userID string) ([]model.StudyPlan, error)
}

type StudyPlanHandler struct {
	plans StudyPlanService
}

func NewStudyPlanHandler(plans StudyPlanService) *StudyPlanHandler {
	return &StudyPlanHandler{plans: plans}
}

func (h *StudyPlanHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	return r
}

type CreatePlanRequest struct {
	SubjectCode            string             `json:"subjectCode"`
	PlannedDurationMinutes int                `json:"plannedDurationMinutes"`
	TargetDailyHours       float64            `json:"targetDailyHours"`
	TargetWeeklyHours      float64            `json:"targetWeeklyHours"`
	Priority               model.PlanPriority `json:"priority"`
}

// POST /study-plans
func (h *StudyPlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	plan, err := h.plans.CreateStudyPlan(r.Context(), service.CreatePlanInput{
		UserID:                 middleware.GetUserID(r.Context()),
		SubjectCode:            req.SubjectCode,
		PlannedDurationMinutes: req.PlannedDurationMinutes,
		TargetDailyHours:       req.TargetDailyHours,
		TargetWeeklyHours:      req.TargetWeeklyHours,
		Priority:               req.Priority,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// GET /study-plans
func (h *StudyPlanHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.ListStudyPlans(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}
