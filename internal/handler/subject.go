package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/habitguard/study-server/internal/errors"
	"github.com/habitguard/study-server/internal/middleware"
	"github.com/habitguard/study-server/internal/model"
)

type SubjectLister interface {
	ListEnrolled(ctx context.Context, userID string) ([]model.Subject, error)
}

type SubjectHandler struct {
	subjects SubjectLister
}

func NewSubjectHandler(subjects SubjectLister) *SubjectHandler {
	return &SubjectHandler{subjects: subjects}
}

func (h *SubjectHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	return r
}

// GET /subjects
func (h *SubjectHandler) List(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.subjects.ListEnrolled(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, apperrors.Database(err))
		return
	}
	if subjects == nil {
		subjects = []model.Subject{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"subjects": subjects})
}
