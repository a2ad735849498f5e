package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/habitguard/study-server/internal/errors"
	"github.com/habitguard/study-server/internal/model"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

// newTestServer answers every request with status and body and records what
// it received.
func newTestServer(t *testing.T, status int, body string) (*Client, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.RawQuery
		rec.auth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "tok-123"), rec
}

func TestClient_CreateSession(t *testing.T) {
	c, rec := newTestServer(t, http.StatusCreated,
		`{"sessionId":"s-1","status":"not_started","plannedDurationMinutes":60,"elapsedSeconds":0}`)

	snap, err := c.CreateSession(context.Background(), CreateSessionRequest{SubjectCode: "CS101", PlannedDurationMinutes: 60})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/v1/study-sessions", rec.path)
	assert.Equal(t, "Bearer tok-123", rec.auth)
	assert.Equal(t, "CS101", rec.body["subjectCode"])
	assert.NotContains(t, rec.body, "subjectName")
	assert.Equal(t, "s-1", snap.ID)
	assert.Equal(t, model.SessionStatusNotStarted, snap.Status)
}

func TestClient_ActiveSession(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		c, _ := newTestServer(t, http.StatusOK, `{"hasActiveSession":false,"session":null}`)
		snap, err := c.ActiveSession(context.Background())
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("live", func(t *testing.T) {
		c, _ := newTestServer(t, http.StatusOK, `{"hasActiveSession":true,"session":{"sessionId":"s-1","status":"paused","elapsedSeconds":300}}`)
		snap, err := c.ActiveSession(context.Background())
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, int64(300), snap.ElapsedSeconds)
	})
}

func TestClient_Transitions(t *testing.T) {
	t.Run("pause sends hint", func(t *testing.T) {
		c, rec := newTestServer(t, http.StatusOK, `{"sessionId":"s-1","status":"paused"}`)
		_, err := c.Pause(context.Background(), "s-1", 420)
		require.NoError(t, err)
		assert.Equal(t, "/v1/study-sessions/s-1/pause", rec.path)
		assert.Equal(t, float64(420), rec.body["currentDurationSeconds"])
	})

	t.Run("stop decodes result", func(t *testing.T) {
		c, rec := newTestServer(t, http.StatusOK, `{"sessionId":"s-1","studyMinutes":7,"completionPercentage":11.67}`)
		res, err := c.Stop(context.Background(), "s-1", 420, "done")
		require.NoError(t, err)
		assert.Equal(t, "done", rec.body["notes"])
		assert.Equal(t, 7, res.StudyMinutes)
		assert.Equal(t, 11.67, res.CompletionPercentage)
	})

	t.Run("cancel omits absent hint", func(t *testing.T) {
		c, rec := newTestServer(t, http.StatusOK, `{"sessionId":"s-1","status":"cancelled"}`)
		_, err := c.Cancel(context.Background(), "s-1", nil, "")
		require.NoError(t, err)
		assert.NotContains(t, rec.body, "finalDurationSeconds")
	})
}

func TestClient_History(t *testing.T) {
	c, rec := newTestServer(t, http.StatusOK, `{"sessions":[],"limit":5,"offset":0}`)
	subject := int64(11)
	h, err := c.History(context.Background(), 5, 0, &subject)
	require.NoError(t, err)
	assert.Equal(t, "limit=5&subjectId=11", rec.query)
	assert.Equal(t, 5, h.Limit)
}

func TestClient_APIError(t *testing.T) {
	t.Run("decodes server error code", func(t *testing.T) {
		c, _ := newTestServer(t, http.StatusConflict,
			`{"error":"cannot resume a completed session","code":"ILLEGAL_TRANSITION","details":{"from":"completed","event":"resume"}}`)

		_, err := c.Resume(context.Background(), "s-1")
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusConflict, apiErr.Status)
		assert.Equal(t, apperrors.ErrCodeIllegalTransition, apiErr.Code)
		assert.True(t, IsCode(err, apperrors.ErrCodeIllegalTransition))
		assert.False(t, IsCode(err, apperrors.ErrCodeSessionNotFound))
	})

	t.Run("non json body", func(t *testing.T) {
		c, _ := newTestServer(t, http.StatusBadGateway, "upstream down")

		_, err := c.Statistics(context.Background(), model.StatsPeriodWeek)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Empty(t, apiErr.Code)
		assert.Equal(t, "upstream down", apiErr.Message)
	})
}

func TestReadEvents(t *testing.T) {
	stream := strings.Join([]string{
		"event: connected",
		`data: {"userId":"user-1"}`,
		"",
		": ping",
		"",
		"event: pause",
		`data: {"sessionId":"s-1"}`,
		"",
	}, "\n")

	var got []Event
	err := readEvents(strings.NewReader(stream), func(e Event) { got = append(got, e) })
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "connected", got[0].Type)
	assert.Equal(t, "pause", got[1].Type)
	assert.JSONEq(t, `{"sessionId":"s-1"}`, string(got[1].Data))
}
