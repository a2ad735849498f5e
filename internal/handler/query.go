package handler

import (
	"net/http"
	"strconv"

	apperrors "github.com/habitguard/study-server/internal/errors"
	"github.com/habitguard/study-server/internal/model"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// historyFilter reads limit, offset and subjectId. A limit above
// maxPageSize is clamped rather than rejected.
func historyFilter(r *http.Request) (model.HistoryFilter, error) {
	q := r.URL.Query()
	filter := model.HistoryFilter{Limit: defaultPageSize}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, apperrors.InvalidInput("limit", "must be a non-negative integer")
		}
		if limit > 0 {
			filter.Limit = min(limit, maxPageSize)
		}
	}

	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, apperrors.InvalidInput("offset", "must be a non-negative integer")
		}
		filter.Offset = offset
	}

	if raw := q.Get("subjectId"); raw != "" {
		subjectID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, apperrors.InvalidInput("subjectId", "must be an integer")
		}
		filter.SubjectID = &subjectID
	}

	return filter, nil
}
