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

// StudentRepository manages persistence for students and their fee balances.
type StudentRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// ListByOwner returns the owner's students, optionally narrowed by school or unpaid balance.
func (r *StudentRepository) ListByOwner(ctx context.Context, ownerID string, filter models.StudentFilter) ([]models.Student, error) {
	conditions := []string{"owner_id = $1"}
	args := []interface{}{ownerID}
	if filter.SchoolID != "" {
		args = append(args, filter.SchoolID)
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)))
	}
	if filter.UnpaidOnly {
		conditions = append(conditions, "pending_fees > 0")
	}

	query := fmt.Sprintf(`SELECT %s FROM students WHERE %s ORDER BY name ASC, id ASC`, studentColumns, strings.Join(conditions, " AND "))
	var rows []studentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	students := make([]models.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.model())
	}
	return students, nil
}

// FindByID fetches one of the owner's students.
func (r *StudentRepository) FindByID(ctx context.Context, ownerID, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE owner_id = $1 AND id = $2`
	var row studentRow
	if err := r.db.GetContext(ctx, &row, query, ownerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	student := row.model()
	return &student, nil
}

// Create inserts a new student with a generated id.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if err := insertStudent(ctx, r.db, student, r.now()); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Delete removes one of the owner's students. Unknown ids yield sql.ErrNoRows.
func (r *StudentRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApplyAccrual adds the accrued amount and advances the checkpoint only while the
// stored checkpoint still equals the one the accrual was computed from. It reports
// whether the row changed; a stale or repeated instruction is a no-op.
func (r *StudentRepository) ApplyAccrual(ctx context.Context, update models.AccrualUpdate) (bool, error) {
	const query = `UPDATE students
        SET pending_fees = pending_fees + $3, last_billed_date = $4, updated_at = $5
        WHERE id = $1 AND last_billed_date = $2`
	res, err := r.db.ExecContext(ctx, query,
		update.ID,
		dateValue(update.PreviousBilledDate),
		update.AccruedAmount,
		dateValue(update.LastBilledDate),
		r.now(),
	)
	if err != nil {
		return false, fmt.Errorf("apply accrual: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("apply accrual: %w", err)
	}
	return affected > 0, nil
}

// ApplyPayment records a payment as a delta against the stored balances and
// prepends the entry to the history. The committed row is returned.
func (r *StudentRepository) ApplyPayment(ctx context.Context, ownerID string, update models.PaymentUpdate) (*models.Student, error) {
	entry := paymentHistory{{Amount: update.Amount, Date: update.LastPaidDate}}
	query := `UPDATE students
        SET paid_fees = paid_fees + $3,
            pending_fees = GREATEST(pending_fees - $3, 0),
            payment_history = $4::jsonb || payment_history,
            last_paid_date = $5,
            updated_at = $6
        WHERE owner_id = $1 AND id = $2
        RETURNING ` + studentColumns
	var row studentRow
	err := r.db.GetContext(ctx, &row, query,
		ownerID,
		update.ID,
		update.Amount,
		entry,
		dateValue(update.LastPaidDate),
		r.now(),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("apply payment: %w", err)
	}
	student := row.model()
	return &student, nil
}

func insertStudent(ctx context.Context, ext sqlx.ExtContext, student *models.Student, now time.Time) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	if student.PaymentHistory == nil {
		student.PaymentHistory = []models.PaymentEntry{}
	}

	const query = `INSERT INTO students (id, owner_id, school_id, name, parent_phone, admission_date, last_billed_date,
        total_fees, paid_fees, pending_fees, payment_history, last_paid_date, created_at, updated_at)
        VALUES (:id, :owner_id, :school_id, :name, :parent_phone, :admission_date, :last_billed_date,
        :total_fees, :paid_fees, :pending_fees, :payment_history, :last_paid_date, :created_at, :updated_at)`
	_, err := sqlx.NamedExecContext(ctx, ext, query, newStudentRow(*student))
	return err
}
