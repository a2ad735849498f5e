package model

// SessionStatus is the closed set of study session states.
type SessionStatus string

const (
	SessionStatusNotStarted SessionStatus = "not_started"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusPaused     SessionStatus = "paused"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusCancelled  SessionStatus = "cancelled"
)

// SessionEvent is a transition request issued by a client or a job.
type SessionEvent string

const (
	SessionEventStart  SessionEvent = "start"
	SessionEventPause  SessionEvent = "pause"
	SessionEventResume SessionEvent = "resume"
	SessionEventStop   SessionEvent = "stop"
	SessionEventCancel SessionEvent = "cancel"
)

// Next returns the state reached by applying e to s, and false when the
// pair is not a legal transition.
func (s SessionStatus) Next(e SessionEvent) (SessionStatus, bool) {
	switch s {
	case SessionStatusNotStarted:
		switch e {
		case SessionEventStart:
			return SessionStatusInProgress, true
		case SessionEventCancel:
			return SessionStatusCancelled, true
		}
	case SessionStatusInProgress:
		switch e {
		case SessionEventPause:
			return SessionStatusPaused, true
		case SessionEventStop:
			return SessionStatusCompleted, true
		case SessionEventCancel:
			return SessionStatusCancelled, true
		}
	case SessionStatusPaused:
		switch e {
		case SessionEventResume:
			return SessionStatusInProgress, true
		case SessionEventStop:
			return SessionStatusCompleted, true
		case SessionEventCancel:
			return SessionStatusCancelled, true
		}
	case SessionStatusCompleted, SessionStatusCancelled:
	}
	return s, false
}

// IsLive reports whether the session occupies the user's single live slot.
func (s SessionStatus) IsLive() bool {
	return s == SessionStatusInProgress || s == SessionStatusPaused
}

func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusCancelled
}

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusNotStarted, SessionStatusInProgress, SessionStatusPaused,
		SessionStatusCompleted, SessionStatusCancelled:
		return true
	}
	return false
}

// PlanPriority orders study plans.
type PlanPriority string

const (
	PlanPriorityLow    PlanPriority = "Low"
	PlanPriorityMedium PlanPriority = "Medium"
	PlanPriorityHigh   PlanPriority = "High"
)

func (p PlanPriority) Valid() bool {
	return p == PlanPriorityLow || p == PlanPriorityMedium || p == PlanPriorityHigh
}

type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "active"
	PlanStatusPaused    PlanStatus = "paused"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusCancelled PlanStatus = "cancelled"
)

// StatsPeriod selects the window of a statistics report.
type StatsPeriod string

const (
	StatsPeriodWeek  StatsPeriod = "week"
	StatsPeriodMonth StatsPeriod = "month"
	StatsPeriodAll   StatsPeriod = "all"
)

func (p StatsPeriod) Valid() bool {
	return p == StatsPeriodWeek || p == StatsPeriodMonth || p == StatsPeriodAll
}

// Days is the length of the window, or 0 for all time.
func (p StatsPeriod) Days() int {
	switch p {
	case StatsPeriodWeek:
		return 7
	case StatsPeriodMonth:
		return 30
	default:
		return 0
	}
}
