package service

import (
	"time"

	apperrors "github.com/habitguard/study-server/internal/errors"
	"github.com/habitguard/study-server/internal/model"
	"github.com/habitguard/study-server/internal/studytime"
)

// transitionInput carries the client-supplied part of a transition.
type transitionInput struct {
	Event model.SessionEvent
	// DurationHint is the client's measured study seconds at the moment of
	// the request. Required for pause and stop, optional for cancel.
	DurationHint *int64
	Notes        *string
}

// applyTransition computes the session that results from applying in to s
// at now. s is not modified. The returned session keeps s.Version so the
// write can be conditioned on it.
func applyTransition(s model.StudySession, in transitionInput, now time.Time) (model.StudySession, error) {
	if in.DurationHint != nil && *in.DurationHint < 0 {
		return s, apperrors.ValidationError("duration seconds must not be negative")
	}
	next, ok := s.Status.Next(in.Event)
	if !ok {
		return s, apperrors.IllegalTransition(string(s.Status), string(in.Event))
	}

	out := s
	out.Status = next
	out.UpdatedAt = now

	switch in.Event {
	case model.SessionEventStart:
		if out.StartTime == nil {
			out.StartTime = &now
		}

	case model.SessionEventPause:
		out.PauseTime = &now
		out.PauseCount++
		out.ActualDurationSeconds = raiseSnapshot(out.ActualDurationSeconds, in.DurationHint)

	case model.SessionEventResume:
		closePause(&out, now)

	case model.SessionEventStop:
		closePause(&out, now)
		out.EndTime = &now
		out.ActualDurationSeconds = raiseSnapshot(out.ActualDurationSeconds, in.DurationHint)
		pct := studytime.CompletionPercentage(out.ActualDurationSeconds, out.PlannedDurationMinutes)
		out.CompletionPercentage = &pct
		out.Notes = in.Notes

	case model.SessionEventCancel:
		closePause(&out, now)
		out.EndTime = &now
		out.ActualDurationSeconds = raiseSnapshot(out.ActualDurationSeconds, in.DurationHint)
		out.Notes = in.Notes
	}

	return out, nil
}

// closePause folds an open pause interval into the accumulator.
func closePause(s *model.StudySession, now time.Time) {
	if s.PauseTime == nil {
		return
	}
	s.TotalPausedSeconds += studytime.Seconds(*s.PauseTime, now)
	s.PauseTime = nil
}

// raiseSnapshot keeps the stored duration non-decreasing.
func raiseSnapshot(stored int64, hint *int64) int64 {
	if hint == nil || *hint < stored {
		return stored
	}
	return *hint
}
