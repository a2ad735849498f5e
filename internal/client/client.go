// Package client is a typed HTTP client for the study-session API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/habitguard/study-server/internal/errors"
	"github.com/habitguard/study-server/internal/model"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response. Code carries the server's error code so
// callers can branch on it.
type APIError struct {
	Status  int
	Code    apperrors.ErrorCode
	Message string
	Details any
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code apperrors.ErrorCode) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

type CreateSessionRequest struct {
	SubjectCode            string  `json:"subjectCode"`
	SubjectName            string  `json:"subjectName,omitempty"`
	PlannedDurationMinutes int     `json:"plannedDurationMinutes"`
	PlanID                 *string `json:"planId,omitempty"`
}

type ActiveSession struct {
	HasActiveSession bool                   `json:"hasActiveSession"`
	Session          *model.SessionSnapshot `json:"session"`
}

type History struct {
	Sessions []model.SessionSnapshot `json:"sessions"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
}

func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*model.SessionSnapshot, error) {
	var out model.SessionSnapshot
	if err := c.do(ctx, http.MethodPost, "/v1/study-sessions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*model.SessionSnapshot, error) {
	var out model.SessionSnapshot
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActiveSession returns nil when the user has no live session.
func (c *Client) ActiveSession(ctx context.Context) (*model.SessionSnapshot, error) {
	var out ActiveSession
	if err := c.do(ctx, http.MethodGet, "/v1/study-sessions/active", nil, &out); err != nil {
		return nil, err
	}
	if !out.HasActiveSession {
		return nil, nil
	}
	return out.Session, nil
}

func (c *Client) History(ctx context.Context, limit, offset int, subjectID *int64) (*History, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	if subjectID != nil {
		q.Set("subjectId", strconv.FormatInt(*subjectID, 10))
	}
	path := "/v1/study-sessions/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out History
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Start(ctx context.Context, sessionID string) (*model.SessionSnapshot, error) {
	return c.transition(ctx, sessionID, "start", nil)
}

func (c *Client) Pause(ctx context.Context, sessionID string, currentDurationSeconds int64) (*model.SessionSnapshot, error) {
	return c.transition(ctx, sessionID, "pause", map[string]any{"currentDurationSeconds": currentDurationSeconds})
}

func (c *Client) Resume(ctx context.Context, sessionID string) (*model.SessionSnapshot, error) {
	return c.transition(ctx, sessionID, "resume", nil)
}

func (c *Client) Stop(ctx context.Context, sessionID string, finalDurationSeconds int64, notes string) (*model.StopResult, error) {
	body := map[string]any{"finalDurationSeconds": finalDurationSeconds}
	if notes != "" {
		body["notes"] = notes
	}
	var out model.StopResult
	if err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "stop"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel sends finalDurationSeconds only when it is non-nil.
func (c *Client) Cancel(ctx context.Context, sessionID string, finalDurationSeconds *int64, notes string) (*model.SessionSnapshot, error) {
	body := map[string]any{}
	if finalDurationSeconds != nil {
		body["finalDurationSeconds"] = *finalDurationSeconds
	}
	if notes != "" {
		body["notes"] = notes
	}
	return c.transition(ctx, sessionID, "cancel", body)
}

func (c *Client) Statistics(ctx context.Context, period model.StatsPeriod) (*model.StatisticsReport, error) {
	path := "/v1/study-statistics"
	if period != "" {
		path += "?period=" + url.QueryEscape(string(period))
	}
	var out model.StatisticsReport
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) transition(ctx context.Context, sessionID, action string, body any) (*model.SessionSnapshot, error) {
	var out model.SessionSnapshot
	if err := c.do(ctx, http.MethodPost, sessionPath(sessionID, action), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func sessionPath(sessionID, action string) string {
	p := "/v1/study-sessions/" + url.PathEscape(sessionID)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, data []byte) error {
	var body struct {
		Error   string              `json:"error"`
		Code    apperrors.ErrorCode `json:"code"`
		Details any                 `json:"details"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		return &APIError{Status: status, Message: strings.TrimSpace(string(data))}
	}
	return &APIError{
		Status:  status,
		Code:    body.Code,
		Message: body.Error,
		Details: body.Details,
	}
}
