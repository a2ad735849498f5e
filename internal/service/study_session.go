package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/habitguard/study-server/internal/audit"
	"github.com/habitguard/study-server/internal/database"
	apperrors "github.com/habitguard/study-server/internal/errors"
	"github.com/habitguard/study-server/internal/model"
	"github.com/habitguard/study-server/internal/repository"
	"github.com/habitguard/study-server/internal/studytime"
	"github.com/habitguard/study-server/internal/util"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// TxRunner runs fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

// StatisticsRecorder is notified once per completed session.
type StatisticsRecorder interface {
	RecordCompletion(ctx context.Context, session *model.StudySession) error
}

// SessionChangePublisher pushes session changes to the user's other devices.
type SessionChangePublisher interface {
	PublishSessionChange(ctx context.Context, userID string, change model.SessionChange) error
}

type CreateSessionInput struct {
	UserID                 string
	SubjectCode            string
	SubjectName            string
	PlannedDurationMinutes int
	PlanID                 *string
}

// StudySessionService is the session state machine. Every operation is a
// single read-validate-write against storage; nothing is held in memory
// between requests.
type StudySessionService struct {
	tx                TxRunner
	sessions          repository.StudySessionRepository
	subjects          repository.SubjectRepository
	plans             repository.StudyPlanRepository
	stats             StatisticsRecorder
	events            SessionChangePublisher
	maxPlannedMinutes int
	now               func() time.Time
}

func NewStudySessionService(
	tx TxRunner,
	sessions repository.StudySessionRepository,
	subjects repository.SubjectRepository,
	plans repository.StudyPlanRepository,
	stats StatisticsRecorder,
	events SessionChangePublisher,
	maxPlannedMinutes int,
) *StudySessionService {
	return &StudySessionService{
		tx:                tx,
		sessions:          sessions,
		subjects:          subjects,
		plans:             plans,
		stats:             stats,
		events:            events,
		maxPlannedMinutes: maxPlannedMinutes,
		now:               time.Now,
	}
}

func (s *StudySessionService) CreateSession(ctx context.Context, in CreateSessionInput) (*model.SessionSnapshot, error) {
	if in.UserID == "" {
		return nil, apperrors.Unauthorized("missing user")
	}
	if strings.TrimSpace(in.SubjectCode) == "" {
		return nil, apperrors.MissingRequired("subjectCode")
	}
	if in.PlannedDurationMinutes <= 0 {
		return nil, apperrors.ValidationError("plannedDurationMinutes must be positive")
	}
	if s.maxPlannedMinutes > 0 && in.PlannedDurationMinutes > s.maxPlannedMinutes {
		return nil, apperrors.ValidationError(fmt.Sprintf("plannedDurationMinutes must not exceed %d", s.maxPlannedMinutes))
	}

	code, ok := util.NormalizeSubjectCode(in.SubjectCode)
	if !ok {
		return nil, apperrors.SubjectNotResolved(code)
	}
	subject, err := s.subjects.FindEnrolled(ctx, in.UserID, code)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find enrolled subject: %w", err))
	}
	if subject == nil {
		return nil, apperrors.SubjectNotResolved(code)
	}

	if in.PlanID != nil {
		plan, err := s.plans.FindByID(ctx, *in.PlanID)
		if err != nil {
			return nil, apperrors.Database(fmt.Errorf("find study plan: %w", err))
		}
		if plan == nil || plan.UserID != in.UserID {
			return nil, apperrors.NotFound("Study plan")
		}
	}

	name := strings.TrimSpace(in.SubjectName)
	if name == "" {
		name = subject.Name
	}

	var created *model.StudySession
	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.sessions.WithTx(tx)
		if err := repo.LockUser(ctx, in.UserID); err != nil {
			return apperrors.Database(fmt.Errorf("lock user: %w", err))
		}

		live, err := repo.FindLiveByUserID(ctx, in.UserID)
		if err != nil {
			return apperrors.Database(fmt.Errorf("find live session: %w", err))
		}
		if live != nil {
			return s.conflict(ctx, in.UserID, "", live.ID)
		}

		created, err = repo.Create(ctx, model.CreateStudySessionParams{
			ID:                     uuid.NewString(),
			UserID:                 in.UserID,
			SubjectID:              subject.ID,
			PlanID:                 in.PlanID,
			SubjectCode:            subject.Code,
			SubjectName:            name,
			PlannedDurationMinutes: in.PlannedDurationMinutes,
		})
		if err != nil {
			return apperrors.Database(fmt.Errorf("create study session: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("userId", in.UserID).
		Str("sessionId", created.ID).
		Str("subjectCode", created.SubjectCode).
		Int("plannedMinutes", created.PlannedDurationMinutes).
		Msg("study session created")

	s.publish(ctx, created, model.SessionChangeCreated)
	return s.snapshot(created), nil
}

func (s *StudySessionService) StartSession(ctx context.Context, userID, sessionID string) (*model.SessionSnapshot, error) {
	updated, err := s.transition(ctx, userID, sessionID, transitionInput{Event: model.SessionEventStart})
	if err != nil {
		return nil, err
	}
	return s.snapshot(updated), nil
}

// PauseSession freezes the session at the client's measured duration.
func (s *StudySessionService) PauseSession(ctx context.Context, userID, sessionID string, currentDurationSeconds int64) (*model.SessionSnapshot, error) {
	updated, err := s.transition(ctx, userID, sessionID, transitionInput{
		Event:        model.SessionEventPause,
		DurationHint: &currentDurationSeconds,
	})
	if err != nil {
		return nil, err
	}
	return s.snapshot(updated), nil
}

func (s *StudySessionService) ResumeSession(ctx context.Context, userID, sessionID string) (*model.SessionSnapshot, error) {
	updated, err := s.transition(ctx, userID, sessionID, transitionInput{Event: model.SessionEventResume})
	if err != nil {
		return nil, err
	}
	return s.snapshot(updated), nil
}

// StopSession completes the session and records it in statistics. A
// statistics failure is logged and does not undo the completion.
func (s *StudySessionService) StopSession(ctx context.Context, userID, sessionID string, finalDurationSeconds int64, notes *string) (*model.StopResult, error) {
	updated, err := s.transition(ctx, userID, sessionID, transitionInput{
		Event:        model.SessionEventStop,
		DurationHint: &finalDurationSeconds,
		Notes:        normalizeNotes(notes),
	})
	if err != nil {
		return nil, err
	}

	if s.stats != nil {
		if err := s.stats.RecordCompletion(ctx, updated); err != nil {
			log.Error().Err(err).
				Str("userId", userID).
				Str("sessionId", sessionID).
				Msg("failed to record study statistics")
		}
	}

	result := &model.StopResult{
		SessionID:    updated.ID,
		StudyMinutes: studytime.StudyMinutes(updated.ActualDurationSeconds),
	}
	if updated.CompletionPercentage != nil {
		result.CompletionPercentage = *updated.CompletionPercentage
	}
	return result, nil
}

// CancelSession ends the session without completion credit. A nil duration
// keeps the last stored snapshot.
func (s *StudySessionService) CancelSession(ctx context.Context, userID, sessionID string, finalDurationSeconds *int64, notes *string) (*model.SessionSnapshot, error) {
	updated, err := s.transition(ctx, userID, sessionID, transitionInput{
		Event:        model.SessionEventCancel,
		DurationHint: finalDurationSeconds,
		Notes:        normalizeNotes(notes),
	})
	if err != nil {
		return nil, err
	}
	return s.snapshot(updated), nil
}

func (s *StudySessionService) GetSession(ctx context.Context, userID, sessionID string) (*model.SessionSnapshot, error) {
	session, err := s.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(session), nil
}

// GetActiveSession returns nil when the user has no live session.
func (s *StudySessionService) GetActiveSession(ctx context.Context, userID string) (*model.SessionSnapshot, error) {
	live, err := s.sessions.FindLiveByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find live session: %w", err))
	}
	if live == nil {
		return nil, nil
	}
	return s.snapshot(live), nil
}

func (s *StudySessionService) ListHistory(ctx context.Context, userID string, filter model.HistoryFilter) ([]model.SessionSnapshot, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultHistoryLimit
	}
	if filter.Limit > maxHistoryLimit {
		filter.Limit = maxHistoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	sessions, err := s.sessions.ListHistory(ctx, userID, filter)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list study history: %w", err))
	}

	now := s.now()
	snapshots := make([]model.SessionSnapshot, 0, len(sessions))
	for i := range sessions {
		snapshots = append(snapshots, snapshotAt(&sessions[i], now))
	}
	return snapshots, nil
}

// CancelStale cancels live sessions untouched since before cutoff. Each
// session is cancelled through the normal transition so a concurrent user
// action wins.
func (s *StudySessionService) CancelStale(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	stale, err := s.sessions.FindStale(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("find stale sessions: %w", err)
	}

	cancelled := 0
	for _, session := range stale {
		_, err := s.transition(ctx, session.UserID, session.ID, transitionInput{Event: model.SessionEventCancel})
		if err != nil {
			log.Warn().Err(err).Str("sessionId", session.ID).Msg("failed to cancel stale session")
			continue
		}
		audit.Record(ctx, audit.Event{
			Type:      audit.EventStaleSessionClose,
			UserID:    session.UserID,
			SessionID: session.ID,
			Fields:    map[string]any{"lastUpdate": session.UpdatedAt.Format(time.RFC3339)},
		})
		cancelled++
	}
	return cancelled, nil
}

func (s *StudySessionService) transition(ctx context.Context, userID, sessionID string, in transitionInput) (*model.StudySession, error) {
	current, err := s.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	next, err := applyTransition(*current, in, s.now())
	if err != nil {
		log.Debug().Err(err).
			Str("sessionId", sessionID).
			Str("status", string(current.Status)).
			Str("event", string(in.Event)).
			Msg("transition rejected")
		return nil, err
	}

	if in.Event == model.SessionEventStart {
		live, err := s.sessions.FindLiveByUserID(ctx, userID)
		if err != nil {
			return nil, apperrors.Database(fmt.Errorf("find live session: %w", err))
		}
		if live != nil && live.ID != current.ID {
			return nil, s.conflict(ctx, userID, current.ID, live.ID)
		}
	}

	updated, err := s.sessions.Update(ctx, &next)
	if err != nil {
		if database.IsUniqueViolation(err, repository.LiveSessionIndex) {
			activeID := ""
			if live, _ := s.sessions.FindLiveByUserID(ctx, userID); live != nil {
				activeID = live.ID
			}
			return nil, s.conflict(ctx, userID, current.ID, activeID)
		}
		return nil, apperrors.Database(fmt.Errorf("update study session: %w", err))
	}
	if updated == nil {
		return nil, s.lostRace(ctx, sessionID, in.Event)
	}

	log.Info().
		Str("userId", userID).
		Str("sessionId", sessionID).
		Str("event", string(in.Event)).
		Str("from", string(current.Status)).
		Str("to", string(updated.Status)).
		Int64("actualSeconds", updated.ActualDurationSeconds).
		Msg("study session transition")

	s.publish(ctx, updated, string(in.Event))
	return updated, nil
}

// lostRace explains a write whose version precondition failed.
func (s *StudySessionService) lostRace(ctx context.Context, sessionID string, event model.SessionEvent) error {
	current, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return apperrors.Database(fmt.Errorf("reload study session: %w", err))
	}
	if current == nil {
		return apperrors.SessionNotFound()
	}
	return apperrors.IllegalTransition(string(current.Status), string(event))
}

func (s *StudySessionService) loadOwned(ctx context.Context, userID, sessionID string) (*model.StudySession, error) {
	if sessionID == "" {
		return nil, apperrors.MissingRequired("sessionId")
	}
	if !util.IsValidUUID(sessionID) {
		return nil, apperrors.SessionNotFound()
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find study session: %w", err))
	}
	if session == nil {
		return nil, apperrors.SessionNotFound()
	}
	if session.UserID != userID {
		audit.Record(ctx, audit.Event{
			Type:      audit.EventSessionNotOwned,
			UserID:    userID,
			SessionID: sessionID,
		})
		return nil, apperrors.SessionNotFound()
	}
	return session, nil
}

func (s *StudySessionService) conflict(ctx context.Context, userID, sessionID, activeID string) error {
	audit.Record(ctx, audit.Event{
		Type:      audit.EventSessionConflict,
		UserID:    userID,
		SessionID: sessionID,
		Fields:    map[string]any{"activeSessionId": activeID},
	})
	return apperrors.ConflictingActiveSession(activeID)
}

func (s *StudySessionService) publish(ctx context.Context, session *model.StudySession, changeType string) {
	if s.events == nil {
		return
	}
	change := model.SessionChange{
		Type:       changeType,
		SessionID:  session.ID,
		Status:     session.Status,
		OccurredAt: session.UpdatedAt,
	}
	if err := s.events.PublishSessionChange(ctx, session.UserID, change); err != nil {
		log.Warn().Err(err).
			Str("userId", session.UserID).
			Str("sessionId", session.ID).
			Msg("failed to publish session change")
	}
}

func (s *StudySessionService) snapshot(session *model.StudySession) *model.SessionSnapshot {
	snap := snapshotAt(session, s.now())
	return &snap
}

func snapshotAt(session *model.StudySession, now time.Time) model.SessionSnapshot {
	return model.SessionSnapshot{
		StudySession:   *session,
		ElapsedSeconds: studytime.SessionElapsed(session, now),
		ServerTime:     now,
	}
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
