package model

import "time"

type StudyPlan struct {
	ID                     string       `db:"plan_id" json:"planId"`
	UserID                 string       `db:"user_id" json:"userId"`
	SubjectID              int64        `db:"subject_id" json:"subjectId"`
	SubjectCode            string       `db:"subject_code" json:"subjectCode"`
	SubjectName            string       `db:"subject_name" json:"subjectName"`
	PlannedDurationMinutes int          `db:"planned_duration_minutes" json:"plannedDurationMinutes"`
	TargetDailyHours       float64      `db:"target_daily_hours" json:"targetDailyHours"`
	TargetWeeklyHours      float64      `db:"target_weekly_hours" json:"targetWeeklyHours"`
	Priority               PlanPriority `db:"priority" json:"priority"`
	Status                 PlanStatus   `db:"status" json:"status"`
	CreatedAt              time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time    `db:"updated_at" json:"updatedAt"`
}

type CreateStudyPlanParams struct {
	ID                     string
	UserID                 string
	SubjectID              int64
	SubjectCode            string
	SubjectName            string
	PlannedDurationMinutes int
	TargetDailyHours       float64
	TargetWeeklyHours      float64
	Priority               PlanPriority
}
