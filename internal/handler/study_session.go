package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/habitguard/study-server/internal/errors"
	"github.com/habitguard/study-server/internal/middleware"
	"github.com/habitguard/study-server/internal/model"
	"github.com/habitguard/study-server/internal/service"
)

// StudySessionService is the session state machine as seen by HTTP.
type StudySessionService interface {
	CreateSession(ctx context.Context, in service.CreateSessionInput) (*model.SessionSnapshot, error)
	StartSession(ctx context.Context, userID, sessionID string) (*model.SessionSnapshot, error)
	PauseSession(ctx context.Context, userID, sessionID string, currentDurationSeconds int64) (*model.SessionSnapshot, error)
	ResumeSession(ctx context.Context, userID, sessionID string) (*model.SessionSnapshot, error)
	StopSession(ctx context.Context, userID, sessionID string, finalDurationSeconds int64, notes *string) (*model.StopResult, error)
	CancelSession(ctx context.Context, userID, sessionID string, finalDurationSeconds *int64, notes *string) (*model.SessionSnapshot, error)
	GetSession(ctx context.Context, userID, sessionID string) (*model.SessionSnapshot, error)
	GetActiveSession(ctx context.Context, userID string) (*model.SessionSnapshot, error)
	ListHistory(ctx context.Context, userID string, filter model.HistoryFilter) ([]model.SessionSnapshot, error)
}

type StudySessionHandler struct {
	sessions StudySessionService
}

func NewStudySessionHandler(sessions StudySessionService) *StudySessionHandler {
	return &StudySessionHandler{sessions: sessions}
}

func (h *StudySessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/active", h.Active)
	r.Get("/history", h.History)
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/start", h.Start)
		r.Post("/pause", h.Pause)
		r.Post("/resume", h.Resume)
		r.Post("/stop", h.Stop)
		r.Post("/cancel", h.Cancel)
	})

	return r
}

type CreateSessionRequest struct {
	SubjectCode            string  `json:"subjectCode"`
	SubjectName            string  `json:"subjectName"`
	PlannedDurationMinutes int     `json:"plannedDurationMinutes"`
	PlanID                 *string `json:"planId"`
}

type PauseSessionRequest struct {
	CurrentDurationSeconds *int64 `json:"currentDurationSeconds"`
}

type StopSessionRequest struct {
	FinalDurationSeconds *int64  `json:"finalDurationSeconds"`
	Notes                *string `json:"notes"`
}

type ActiveSessionResponse struct {
	HasActiveSession bool                   `json:"hasActiveSession"`
	Session          *model.SessionSnapshot `json:"session"`
}

type HistoryResponse struct {
	Sessions []model.SessionSnapshot `json:"sessions"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
}

// POST /study-sessions
func (h *StudySessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	snap, err := h.sessions.CreateSession(r.Context(), service.CreateSessionInput{
		UserID:                 middleware.GetUserID(r.Context()),
		SubjectCode:            req.SubjectCode,
		SubjectName:            req.SubjectName,
		PlannedDurationMinutes: req.PlannedDurationMinutes,
		PlanID:                 req.PlanID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, snap)
}

// GET /study-sessions/active
func (h *StudySessionHandler) Active(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.GetActiveSession(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ActiveSessionResponse{
		HasActiveSession: snap != nil,
		Session:          snap,
	})
}

// GET /study-sessions/history?limit&offset&subjectId
func (h *StudySessionHandler) History(w http.ResponseWriter, r *http.Request) {
	filter, err := historyFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	sessions, err := h.sessions.ListHistory(r.Context(), middleware.GetUserID(r.Context()), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Sessions: sessions,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

// GET /study-sessions/{sessionID}
func (h *StudySessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.GetSession(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// POST /study-sessions/{sessionID}/start
func (h *StudySessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.StartSession(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// POST /study-sessions/{sessionID}/pause
func (h *StudySessionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	var req PauseSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.CurrentDurationSeconds == nil {
		writeError(w, apperrors.MissingRequired("currentDurationSeconds"))
		return
	}

	snap, err := h.sessions.PauseSession(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "sessionID"), *req.CurrentDurationSeconds)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// POST /study-sessions/{sessionID}/resume
func (h *StudySessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.ResumeSession(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// POST /study-sessions/{sessionID}/stop
func (h *StudySessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	var req StopSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.FinalDurationSeconds == nil {
		writeError(w, apperrors.MissingRequired("finalDurationSeconds"))
		return
	}

	result, err := h.sessions.StopSession(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "sessionID"), *req.FinalDurationSeconds, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// POST /study-sessions/{sessionID}/cancel
func (h *StudySessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req StopSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	snap, err := h.sessions.CancelSession(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "sessionID"), req.FinalDurationSeconds, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
