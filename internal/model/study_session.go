package model

import "time"

// StudySession is one timed attempt to study one subject. Accumulators
// (TotalPausedSeconds, PauseCount) only grow; elapsed time while a session
// is running is derived on read and never stored.
type StudySession struct {
	ID                     string        `db:"session_id" json:"sessionId"`
	UserID                 string        `db:"user_id" json:"userId"`
	SubjectID              int64         `db:"subject_id" json:"subjectId"`
	PlanID                 *string       `db:"plan_id" json:"planId,omitempty"`
	SubjectCode            string        `db:"subject_code" json:"subjectCode"`
	SubjectName            string        `db:"subject_name" json:"subjectName"`
	PlannedDurationMinutes int           `db:"planned_duration_minutes" json:"plannedDurationMinutes"`
	Status                 SessionStatus `db:"status" json:"status"`
	StartTime              *time.Time    `db:"start_time" json:"startTime,omitempty"`
	PauseTime              *time.Time    `db:"pause_time" json:"pauseTime,omitempty"`
	EndTime                *time.Time    `db:"end_time" json:"endTime,omitempty"`
	TotalPausedSeconds     int64         `db:"total_paused_seconds" json:"totalPausedSeconds"`
	PauseCount             int           `db:"pause_count" json:"pauseCount"`
	ActualDurationSeconds  int64         `db:"actual_duration_seconds" json:"actualDurationSeconds"`
	CompletionPercentage   *float64      `db:"completion_percentage" json:"completionPercentage,omitempty"`
	Notes                  *string       `db:"notes" json:"notes,omitempty"`
	Version                int           `db:"version" json:"-"`
	CreatedAt              time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time     `db:"updated_at" json:"updatedAt"`
}

type CreateStudySessionParams struct {
	ID                     string
	UserID                 string
	SubjectID              int64
	PlanID                 *string
	SubjectCode            string
	SubjectName            string
	PlannedDurationMinutes int
}

// HistoryFilter narrows a user's terminal sessions.
type HistoryFilter struct {
	SubjectID *int64
	Limit     int
	Offset    int
}

// SessionSnapshot is a session as returned to clients, with elapsed time
// already reconciled against the server clock.
type SessionSnapshot struct {
	StudySession
	ElapsedSeconds int64     `json:"elapsedSeconds"`
	ServerTime     time.Time `json:"serverTime"`
}

type StopResult struct {
	SessionID            string  `json:"sessionId"`
	StudyMinutes         int     `json:"studyMinutes"`
	CompletionPercentage float64 `json:"completionPercentage"`
}

// SessionChange is published to a user's other devices after every write.
type SessionChange struct {
	Type       string        `json:"type"`
	SessionID  string        `json:"sessionId"`
	Status     SessionStatus `json:"status"`
	OccurredAt time.Time     `json:"occurredAt"`
}

const SessionChangeCreated = "created"
