package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/habitguard/study-server/internal/errors"
	"github.com/habitguard/study-server/internal/model"
)

func TestHistoryFilter(t *testing.T) {
	subject := int64(7)
	tests := []struct {
		query string
		want  model.HistoryFilter
	}{
		{"", model.HistoryFilter{Limit: defaultPageSize}},
		{"?limit=5&offset=10", model.HistoryFilter{Limit: 5, Offset: 10}},
		{"?limit=0", model.HistoryFilter{Limit: defaultPageSize}},
		{"?limit=500", model.HistoryFilter{Limit: maxPageSize}},
		{"?subjectId=7", model.HistoryFilter{Limit: defaultPageSize, SubjectID: &subject}},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			got, err := historyFilter(httptest.NewRequest("GET", "/history"+tc.query, nil))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, bad := range []string{"?limit=abc", "?limit=-1", "?offset=-3", "?subjectId=x"} {
		t.Run(bad, func(t *testing.T) {
			_, err := historyFilter(httptest.NewRequest("GET", "/history"+bad, nil))
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
		})
	}
}
