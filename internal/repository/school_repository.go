package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/van-fee-api/internal/models"
)

// SchoolRepository manages persistence for schools.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs a SchoolRepository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// ListByOwner returns the owner's schools with their student counts, ordered by name.
func (r *SchoolRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.SchoolSummary, error) {
	const query = `SELECT sc.id, sc.owner_id, sc.name, sc.created_at, sc.updated_at, COUNT(st.id) AS student_count
        FROM schools sc
        LEFT JOIN students st ON st.school_id = sc.id AND st.owner_id = sc.owner_id
        WHERE sc.owner_id = $1
        GROUP BY sc.id
        ORDER BY sc.name ASC`
	var schools []models.SchoolSummary
	if err := r.db.SelectContext(ctx, &schools, query, ownerID); err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	return schools, nil
}

// FindByID fetches one of the owner's schools.
func (r *SchoolRepository) FindByID(ctx context.Context, ownerID, id string) (*models.School, error) {
	const query = `SELECT id, owner_id, name, created_at, updated_at FROM schools WHERE owner_id = $1 AND id = $2`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, ownerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find school: %w", err)
	}
	return &school, nil
}

// FindByName fetches one of the owner's schools by case-insensitive name.
func (r *SchoolRepository) FindByName(ctx context.Context, ownerID, name string) (*models.School, error) {
	const query = `SELECT id, owner_id, name, created_at, updated_at FROM schools WHERE owner_id = $1 AND LOWER(name) = $2 ORDER BY created_at ASC LIMIT 1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, ownerID, strings.ToLower(strings.TrimSpace(name))); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find school by name: %w", err)
	}
	return &school, nil
}

// CountByOwner reports how many schools and students the owner has stored.
func (r *SchoolRepository) CountByOwner(ctx context.Context, ownerID string) (schools int, students int, err error) {
	const query = `SELECT (SELECT COUNT(*) FROM schools WHERE owner_id = $1) AS schools, (SELECT COUNT(*) FROM students WHERE owner_id = $1) AS students`
	var counts struct {
		Schools  int `db:"schools"`
		Students int `db:"students"`
	}
	if err := r.db.GetContext(ctx, &counts, query, ownerID); err != nil {
		return 0, 0, fmt.Errorf("count owner data: %w", err)
	}
	return counts.Schools, counts.Students, nil
}

// Create inserts a new school with a generated id.
func (r *SchoolRepository) Create(ctx context.Context, school *models.School) error {
	if err := insertSchool(ctx, r.db, school); err != nil {
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// DeleteCascade removes a school and every student attached to it in one transaction.
// It returns the number of students removed, or sql.ErrNoRows when the school is not the owner's.
func (r *SchoolRepository) DeleteCascade(ctx context.Context, ownerID, id string) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete school: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM students WHERE owner_id = $1 AND school_id = $2`, ownerID, id)
	if err != nil {
		return 0, fmt.Errorf("delete school students: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete school students: %w", err)
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM schools WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return 0, fmt.Errorf("delete school: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete school: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete school: %w", err)
	}
	return removed, nil
}

func insertSchool(ctx context.Context, ext sqlx.ExtContext, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if school.CreatedAt.IsZero() {
		school.CreatedAt = now
	}
	school.UpdatedAt = now
	school.Name = strings.TrimSpace(school.Name)

	const query = `INSERT INTO schools (id, owner_id, name, created_at, updated_at) VALUES (:id, :owner_id, :name, :created_at, :updated_at)`
	_, err := sqlx.NamedExecContext(ctx, ext, query, school)
	return err
}
