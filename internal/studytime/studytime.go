// Package studytime holds the time-accounting rules shared by the server
// state machine and the client timer: how elapsed study time is derived from
// stored timestamps and accumulators, and how completion is scored.
package studytime

import (
	"fmt"
	"math"
	"time"

	"github.com/habitguard/study-server/internal/model"
)

// Seconds returns whole seconds between from and to, floored at zero.
func Seconds(from, to time.Time) int64 {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// RunningElapsed is the reconciliation formula for a running session:
// (now - start) - pausedSeconds, floored at zero.
func RunningElapsed(start time.Time, pausedSeconds int64, now time.Time) int64 {
	elapsed := Seconds(start, now) - pausedSeconds
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Elapsed returns the seconds to display for a session in the given state.
// Only a running session is corrected against the wall clock; every other
// state shows the stored snapshot.
func Elapsed(status model.SessionStatus, start *time.Time, pausedSeconds, actualSeconds int64, now time.Time) int64 {
	switch status {
	case model.SessionStatusInProgress:
		if start == nil {
			return actualSeconds
		}
		return RunningElapsed(*start, pausedSeconds, now)
	case model.SessionStatusNotStarted:
		return 0
	default:
		return actualSeconds
	}
}

// SessionElapsed is Elapsed applied to a stored session.
func SessionElapsed(s *model.StudySession, now time.Time) int64 {
	return Elapsed(s.Status, s.StartTime, s.TotalPausedSeconds, s.ActualDurationSeconds, now)
}

// CompletionPercentage scores actual time against the plan, rounded to two
// decimals. Values above 100 mean the user studied longer than planned and are
// kept as is.
func CompletionPercentage(actualSeconds int64, plannedMinutes int) float64 {
	if plannedMinutes <= 0 {
		return 0
	}
	pct := float64(actualSeconds) / float64(plannedMinutes*60) * 100
	return math.Round(pct*100) / 100
}

// StudyMinutes is the whole number of minutes credited to statistics.
func StudyMinutes(actualSeconds int64) int {
	if actualSeconds <= 0 {
		return 0
	}
	return int(actualSeconds / 60)
}

// Progress is the display-only share of the plan completed so far, capped at 100.
func Progress(elapsedSeconds int64, plannedMinutes int) float64 {
	if plannedMinutes <= 0 {
		return 0
	}
	return math.Min(100, float64(elapsedSeconds)/float64(plannedMinutes*60)*100)
}

// Format renders seconds as m:ss or h:mm:ss.
func Format(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	sec := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
