package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/habitguard/study-server/internal/database"
)

// getOptional scans one row into a new T. No row is (nil, nil): callers
// decide whether absence is an error.
func getOptional[T any](ctx context.Context, db database.DBTX, query string, args ...any) (*T, error) {
	var row T
	err := db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
