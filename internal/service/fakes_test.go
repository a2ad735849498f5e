package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/mock"

	"github.com/habitguard/study-server/internal/database"
	"github.com/habitguard/study-server/internal/model"
	"github.com/habitguard/study-server/internal/repository"
)

type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// fakeTxRunner runs fn without a transaction. Repositories under test ignore
// the nil tx in WithTx.
type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

// fakeSessionRepo is an in-memory store that honors the version
// precondition and the one-live-session-per-user index.
type fakeSessionRepo struct {
	mu           sync.Mutex
	rows         map[string]model.StudySession
	clock        *testClock
	locks        int
	updateErr    error
	beforeUpdate func(r *fakeSessionRepo)
}

func newFakeSessionRepo(clock *testClock) *fakeSessionRepo {
	return &fakeSessionRepo{rows: make(map[string]model.StudySession), clock: clock}
}

func (r *fakeSessionRepo) FindByID(ctx context.Context, id string) (*model.StudySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *fakeSessionRepo) FindLiveByUserID(ctx context.Context, userID string) (*model.StudySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.UserID == userID && s.Status.IsLive() {
			found := s
			return &found, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) Create(ctx context.Context, params model.CreateStudySessionParams) (*model.StudySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	s := model.StudySession{
		ID:                     params.ID,
		UserID:                 params.UserID,
		SubjectID:              params.SubjectID,
		PlanID:                 params.PlanID,
		SubjectCode:            params.SubjectCode,
		SubjectName:            params.SubjectName,
		PlannedDurationMinutes: params.PlannedDurationMinutes,
		Status:                 model.SessionStatusNotStarted,
		Version:                1,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	r.rows[s.ID] = s
	return &s, nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, s *model.StudySession) (*model.StudySession, error) {
	if r.beforeUpdate != nil {
		hook := r.beforeUpdate
		r.beforeUpdate = nil
		hook(r)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	stored, ok := r.rows[s.ID]
	if !ok || stored.Version != s.Version {
		return nil, nil
	}
	if s.Status.IsLive() {
		for id, other := range r.rows {
			if id != s.ID && other.UserID == s.UserID && other.Status.IsLive() {
				return nil, &pq.Error{Code: "23505", Constraint: repository.LiveSessionIndex}
			}
		}
	}
	updated := *s
	updated.Version = stored.Version + 1
	r.rows[s.ID] = updated
	return &updated, nil
}

func (r *fakeSessionRepo) ListHistory(ctx context.Context, userID string, filter model.HistoryFilter) ([]model.StudySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StudySession
	for _, s := range r.rows {
		if s.UserID != userID || !s.Status.IsTerminal() {
			continue
		}
		if filter.SubjectID != nil && s.SubjectID != *filter.SubjectID {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.After(*out[j].EndTime) })
	if filter.Offset >= len(out) {
		return []model.StudySession{}, nil
	}
	out = out[filter.Offset:]
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *fakeSessionRepo) FindStale(ctx context.Context, updatedBefore time.Time, limit int) ([]model.StudySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StudySession
	for _, s := range r.rows {
		if s.Status.IsLive() && s.UpdatedAt.Before(updatedBefore) {
			out = append(out, s)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeSessionRepo) LockUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locks++
	return nil
}

func (r *fakeSessionRepo) WithTx(tx *sqlx.Tx) repository.StudySessionRepository {
	return r
}

// bump simulates a concurrent writer.
func (r *fakeSessionRepo) bump(id string, status model.SessionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.rows[id]
	s.Status = status
	s.Version++
	r.rows[id] = s
}

type fakeSubjectRepo struct {
	subjects map[string]model.Subject // userID + "/" + code
}

func newFakeSubjectRepo() *fakeSubjectRepo {
	return &fakeSubjectRepo{subjects: map[string]model.Subject{
		"user-1/CS101": {ID: 11, ProfileID: 1, Code: "CS101", Name: "Algorithms", Credits: 3},
		"user-1/MA201": {ID: 12, ProfileID: 1, Code: "MA201", Name: "Calculus", Credits: 4},
		"user-2/CS101": {ID: 21, ProfileID: 2, Code: "CS101", Name: "Algorithms", Credits: 3},
	}}
}

func (r *fakeSubjectRepo) FindEnrolled(ctx context.Context, userID, subjectCode string) (*model.Subject, error) {
	s, ok := r.subjects[userID+"/"+subjectCode]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *fakeSubjectRepo) ListEnrolled(ctx context.Context, userID string) ([]model.Subject, error) {
	var out []model.Subject
	for key, s := range r.subjects {
		if len(key) > len(userID) && key[:len(userID)+1] == userID+"/" {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockPlanRepo struct {
	mock.Mock
}

func (m *mockPlanRepo) FindByID(ctx context.Context, id string) (*model.StudyPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StudyPlan), args.Error(1)
}

func (m *mockPlanRepo) ListActive(ctx context.Context, userID string) ([]model.StudyPlan, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StudyPlan), args.Error(1)
}

func (m *mockPlanRepo) Create(ctx context.Context, params model.CreateStudyPlanParams) (*model.StudyPlan, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StudyPlan), args.Error(1)
}

type mockStatsRecorder struct {
	mock.Mock
}

func (m *mockStatsRecorder) RecordCompletion(ctx context.Context, session *model.StudySession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []model.SessionChange
}

func (p *recordingPublisher) PublishSessionChange(ctx context.Context, userID string, change model.SessionChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.changes))
	for _, c := range p.changes {
		out = append(out, c.Type)
	}
	return out
}
