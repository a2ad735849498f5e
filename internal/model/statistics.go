package model

import "time"

// CompletionRecord is what the statistics collaborator receives when a
// session completes.
type CompletionRecord struct {
	UserID       string
	SubjectID    int64
	StudyMinutes int
	PauseCount   int
	StatDate     time.Time
}

// DailySubjectStat is one (user, subject, day) counter row joined with the
// subject's code and name.
type DailySubjectStat struct {
	SubjectID         int64     `db:"subject_id"`
	SubjectCode       string    `db:"subject_code"`
	SubjectName       string    `db:"subject_name"`
	StatDate          time.Time `db:"stat_date"`
	TotalStudyMinutes int       `db:"total_study_minutes"`
	TotalSessions     int       `db:"total_sessions"`
	CompletedSessions int       `db:"completed_sessions"`
	TotalPauses       int       `db:"total_pauses"`
}

type StatsTotals struct {
	TotalMinutes      int     `json:"totalMinutes"`
	TotalSessions     int     `json:"totalSessions"`
	CompletedSessions int     `json:"completedSessions"`
	TotalPauses       int     `json:"totalPauses"`
	AvgSessionMinutes float64 `json:"avgSessionMinutes"`
}

type SubjectStats struct {
	SubjectID   int64  `json:"subjectId"`
	SubjectCode string `json:"subjectCode"`
	SubjectName string `json:"subjectName"`
	StatsTotals
}

type DailyStats struct {
	Date          string `json:"date"`
	TotalMinutes  int    `json:"totalMinutes"`
	TotalSessions int    `json:"totalSessions"`
}

// StatisticsReport summarizes a user's completed sessions over a period.
type StatisticsReport struct {
	Period    StatsPeriod    `json:"period"`
	Overall   StatsTotals    `json:"overall"`
	BySubject []SubjectStats `json:"bySubject"`
	Daily     []DailyStats   `json:"daily"`
}
