package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/van-fee-api/internal/models"
)

// ImportRepository writes a whole local snapshot atomically.
type ImportRepository struct {
	db *sqlx.DB
}

// NewImportRepository constructs an ImportRepository.
func NewImportRepository(db *sqlx.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

// Import inserts schools then students in a single transaction. Students must
// already reference the ids assigned to the schools.
func (r *ImportRepository) Import(ctx context.Context, schools []*models.School, students []*models.Student) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, school := range schools {
		if err = insertSchool(ctx, tx, school); err != nil {
			return fmt.Errorf("import school %q: %w", school.Name, err)
		}
	}
	now := time.Now().UTC()
	for _, student := range students {
		if err = insertStudent(ctx, tx, student, now); err != nil {
			return fmt.Errorf("import student %q: %w", student.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}
