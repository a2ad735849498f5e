package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/habitguard/study-server/internal/middleware"
	"github.com/habitguard/study-server/internal/model"
)

type StatisticsService interface {
	GetStatistics(ctx context.Context, userID string, period model.StatsPeriod) (*model.StatisticsReport, error)
}

type StatisticsHandler struct {
	stats StatisticsService
}

func NewStatisticsHandler(stats StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{stats: stats}
}

func (h *StatisticsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	return r
}

// GET /study-statistics?period=week|month|all
func (h *StatisticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	period := model.StatsPeriod(r.URL.Query().Get("period"))

	report, err := h.stats.GetStatistics(r.Context(), middleware.GetUserID(r.Context()), period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
