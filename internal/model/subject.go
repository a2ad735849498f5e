package model

// Subject is an enrolled subject on a student's profile.
type Subject struct {
	ID        int64  `db:"subject_id" json:"subjectId"`
	ProfileID int64  `db:"profile_id" json:"profileId"`
	Code      string `db:"subject_code" json:"subjectCode"`
	Name      string `db:"subject_name" json:"subjectName"`
	Credits   int    `db:"credits" json:"credits"`
}
