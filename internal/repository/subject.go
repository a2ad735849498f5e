package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/habitguard/study-server/internal/database"
	"github.com/habitguard/study-server/internal/model"
)

// SubjectRepository reads the student profile tables. Enrollment itself is
// managed elsewhere.
type SubjectRepository interface {
	FindEnrolled(ctx context.Context, userID, subjectCode string) (*model.Subject, error)
	ListEnrolled(ctx context.Context, userID string) ([]model.Subject, error)
}

type subjectRepo struct {
	db database.DBTX
}

func NewSubjectRepository(db *sqlx.DB) SubjectRepository {
	return &subjectRepo{db: db}
}

func (r *subjectRepo) FindEnrolled(ctx context.Context, userID, subjectCode string) (*model.Subject, error) {
	return getOptional[model.Subject](ctx, r.db, `
		SELECT sub.subject_id, sub.profile_id, sub.subject_code, sub.subject_name, sub.credits
		FROM student_subjects sub
		JOIN student_profiles p ON p.profile_id = sub.profile_id
		WHERE p.user_id = $1 AND sub.subject_code = $2
	`, userID, subjectCode)
}

func (r *subjectRepo) ListEnrolled(ctx context.Context, userID string) ([]model.Subject, error) {
	subjects := []model.Subject{}
	err := r.db.SelectContext(ctx, &subjects, `
		SELECT sub.subject_id, sub.profile_id, sub.subject_code, sub.subject_name, sub.credits
		FROM student_subjects sub
		JOIN student_profiles p ON p.profile_id = sub.profile_id
		WHERE p.user_id = $1
		ORDER BY sub.subject_code
	`, userID)
	return subjects, err
}
