// Package timer is the client-side display clock for a study session. It
// holds no authority: every transition goes to the server, and the counter
// is re-seeded from the server's accumulators whenever state is loaded.
package timer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/habitguard/study-server/internal/client"
	"github.com/habitguard/study-server/internal/model"
	"github.com/habitguard/study-server/internal/studytime"
)

// ErrNoSession is returned by transitions when no session is loaded.
var ErrNoSession = errors.New("no study session loaded")

// SessionAPI is the subset of the HTTP client the adapter drives.
type SessionAPI interface {
	CreateSession(ctx context.Context, req client.CreateSessionRequest) (*model.SessionSnapshot, error)
	ActiveSession(ctx context.Context) (*model.SessionSnapshot, error)
	GetSession(ctx context.Context, sessionID string) (*model.SessionSnapshot, error)
	Start(ctx context.Context, sessionID string) (*model.SessionSnapshot, error)
	Pause(ctx context.Context, sessionID string, currentDurationSeconds int64) (*model.SessionSnapshot, error)
	Resume(ctx context.Context, sessionID string) (*model.SessionSnapshot, error)
	Stop(ctx context.Context, sessionID string, finalDurationSeconds int64, notes string) (*model.StopResult, error)
	Cancel(ctx context.Context, sessionID string, finalDurationSeconds *int64, notes string) (*model.SessionSnapshot, error)
}

// State is what a UI renders.
type State struct {
	SessionID      string
	SubjectCode    string
	Status         model.SessionStatus
	ElapsedSeconds int64
	PlannedMinutes int
	Progress       float64
	Loaded         bool
}

func (s State) Display() string {
	return studytime.Format(s.ElapsedSeconds)
}

type Adapter struct {
	api SessionAPI
	now func() time.Time

	mu      sync.Mutex
	session *model.StudySession
	display int64
	frozen  bool
}

func New(api SessionAPI) *Adapter {
	return &Adapter{api: api, now: time.Now, frozen: true}
}

// Create registers a new session and loads it without starting it.
func (a *Adapter) Create(ctx context.Context, req client.CreateSessionRequest) (State, error) {
	snap, err := a.api.CreateSession(ctx, req)
	if err != nil {
		return a.State(), err
	}
	return a.seed(snap), nil
}

// Load fetches the user's live session and seeds the counter from it. With
// no live session the adapter is cleared.
func (a *Adapter) Load(ctx context.Context) (State, error) {
	snap, err := a.api.ActiveSession(ctx)
	if err != nil {
		return a.State(), err
	}
	return a.seed(snap), nil
}

// LoadSession seeds the counter from one session by id.
func (a *Adapter) LoadSession(ctx context.Context, sessionID string) (State, error) {
	snap, err := a.api.GetSession(ctx, sessionID)
	if err != nil {
		return a.State(), err
	}
	return a.seed(snap), nil
}

// Foreground re-reads the session after the app regains focus and replaces
// the local counter, which may have drifted or stopped while backgrounded.
func (a *Adapter) Foreground(ctx context.Context) (State, error) {
	a.mu.Lock()
	var id string
	if a.session != nil {
		id = a.session.ID
	}
	a.mu.Unlock()

	if id == "" {
		return a.Load(ctx)
	}
	return a.LoadSession(ctx, id)
}

// Tick advances the counter by one second while the session is running.
func (a *Adapter) Tick() State {
	a.mu.Lock()
	if a.session != nil && !a.frozen && a.session.Status == model.SessionStatusInProgress {
		a.display++
	}
	a.mu.Unlock()
	return a.State()
}

func (a *Adapter) Start(ctx context.Context) (State, error) {
	id, _, err := a.current()
	if err != nil {
		return a.State(), err
	}
	snap, err := a.api.Start(ctx, id)
	if err != nil {
		return a.State(), err
	}
	return a.seed(snap), nil
}

// Pause freezes the counter at the value it sends as the duration hint.
func (a *Adapter) Pause(ctx context.Context) (State, error) {
	id, hint, wasFrozen, err := a.freeze()
	if err != nil {
		return a.State(), err
	}
	snap, err := a.api.Pause(ctx, id, hint)
	if err != nil {
		a.unfreeze(ctx, id, wasFrozen, err)
		return a.State(), err
	}
	return a.seed(snap), nil
}

// Resume continues counting from the frozen value.
func (a *Adapter) Resume(ctx context.Context) (State, error) {
	id, frozenAt, err := a.current()
	if err != nil {
		return a.State(), err
	}
	snap, err := a.api.Resume(ctx, id)
	if err != nil {
		return a.State(), err
	}

	a.mu.Lock()
	a.adopt(snap)
	a.display = frozenAt
	a.frozen = false
	a.mu.Unlock()
	return a.State(), nil
}

// Stop freezes the counter and sends it as the final duration.
func (a *Adapter) Stop(ctx context.Context, notes string) (*model.StopResult, State, error) {
	id, final, wasFrozen, err := a.freeze()
	if err != nil {
		return nil, a.State(), err
	}
	result, err := a.api.Stop(ctx, id, final, notes)
	if err != nil {
		a.unfreeze(ctx, id, wasFrozen, err)
		return nil, a.State(), err
	}

	a.mu.Lock()
	if a.session != nil && a.session.ID == id {
		a.session.Status = model.SessionStatusCompleted
		a.session.CompletionPercentage = &result.CompletionPercentage
		if final > a.session.ActualDurationSeconds {
			a.session.ActualDurationSeconds = final
		}
	}
	a.mu.Unlock()
	return result, a.State(), nil
}

// Cancel abandons the session. A session that never started sends no hint.
func (a *Adapter) Cancel(ctx context.Context, notes string) (State, error) {
	a.mu.Lock()
	if a.session == nil {
		a.mu.Unlock()
		return State{}, ErrNoSession
	}
	id := a.session.ID
	var hint *int64
	if a.session.Status.IsLive() {
		v := a.display
		hint = &v
	}
	wasFrozen := a.frozen
	a.frozen = true
	a.mu.Unlock()

	snap, err := a.api.Cancel(ctx, id, hint, notes)
	if err != nil {
		a.unfreeze(ctx, id, wasFrozen, err)
		return a.State(), err
	}
	return a.seed(snap), nil
}

// Run ticks once per second until ctx is done, calling onTick after each tick.
func (a *Adapter) Run(ctx context.Context, onTick func(State)) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state := a.Tick()
			if onTick != nil {
				onTick(state)
			}
		}
	}
}

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return State{}
	}
	return State{
		SessionID:      a.session.ID,
		SubjectCode:    a.session.SubjectCode,
		Status:         a.session.Status,
		ElapsedSeconds: a.display,
		PlannedMinutes: a.session.PlannedDurationMinutes,
		Progress:       studytime.Progress(a.display, a.session.PlannedDurationMinutes),
		Loaded:         true,
	}
}

func (a *Adapter) current() (string, int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return "", 0, ErrNoSession
	}
	return a.session.ID, a.display, nil
}

// freeze stops the counter and reports whether it was already stopped.
func (a *Adapter) freeze() (string, int64, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return "", 0, false, ErrNoSession
	}
	wasFrozen := a.frozen
	a.frozen = true
	return a.session.ID, a.display, wasFrozen, nil
}

// unfreeze undoes freeze after a failed transition. A server rejection means
// the local status is stale, so the session is re-read and re-seeded. On a
// transport failure the counter carries on from where it stopped until the
// next Foreground re-reads the server.
func (a *Adapter) unfreeze(ctx context.Context, sessionID string, wasFrozen bool, cause error) {
	var apiErr *client.APIError
	if errors.As(cause, &apiErr) {
		snap, err := a.api.GetSession(ctx, sessionID)
		if err == nil {
			a.seed(snap)
			return
		}
		log.Debug().Err(err).Str("session_id", sessionID).Msg("re-read after rejection failed")
	}

	a.mu.Lock()
	if a.session != nil && a.session.ID == sessionID {
		a.frozen = wasFrozen
	}
	a.mu.Unlock()
}

func (a *Adapter) seed(snap *model.SessionSnapshot) State {
	a.mu.Lock()
	a.adopt(snap)
	a.mu.Unlock()
	return a.State()
}

// adopt replaces local state with a server snapshot. Callers hold mu.
func (a *Adapter) adopt(snap *model.SessionSnapshot) {
	if snap == nil {
		a.session = nil
		a.display = 0
		a.frozen = true
		return
	}

	// evaluate on the server's clock so a skewed device shows the same value
	local := a.now()
	var skew time.Duration
	if !snap.ServerTime.IsZero() {
		skew = snap.ServerTime.Sub(local)
	}

	session := snap.StudySession
	a.session = &session
	a.display = studytime.SessionElapsed(&session, local.Add(skew))
	a.frozen = session.Status != model.SessionStatusInProgress

	log.Debug().
		Str("sessionId", session.ID).
		Str("status", string(session.Status)).
		Int64("elapsed", a.display).
		Dur("skew", skew).
		Msg("timer seeded")
}
