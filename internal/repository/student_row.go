package repository

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/van-fee-api/internal/models"
)

const studentColumns = `id, owner_id, school_id, name, parent_phone, admission_date, last_billed_date,
        total_fees, paid_fees, pending_fees, payment_history, last_paid_date, created_at, updated_at`

// studentRow is the storage shape of a student. DATE columns travel as
// midnight UTC timestamps and the payment history as a JSONB array.
type studentRow struct {
	ID             string          `db:"id"`
	OwnerID        string          `db:"owner_id"`
	SchoolID       string          `db:"school_id"`
	Name           string          `db:"name"`
	ParentPhone    string          `db:"parent_phone"`
	AdmissionDate  time.Time       `db:"admission_date"`
	LastBilledDate time.Time       `db:"last_billed_date"`
	TotalFees      decimal.Decimal `db:"total_fees"`
	PaidFees       decimal.Decimal `db:"paid_fees"`
	PendingFees    decimal.Decimal `db:"pending_fees"`
	PaymentHistory paymentHistory  `db:"payment_history"`
	LastPaidDate   sql.NullTime    `db:"last_paid_date"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func newStudentRow(s models.Student) studentRow {
	row := studentRow{
		ID:             s.ID,
		OwnerID:        s.OwnerID,
		SchoolID:       s.SchoolID,
		Name:           s.Name,
		ParentPhone:    s.ParentPhone,
		AdmissionDate:  dateValue(s.AdmissionDate),
		LastBilledDate: dateValue(s.LastBilledDate),
		TotalFees:      s.TotalFees,
		PaidFees:       s.PaidFees,
		PendingFees:    s.PendingFees,
		PaymentHistory: paymentHistory(s.PaymentHistory),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	if s.LastPaidDate != nil {
		row.LastPaidDate = sql.NullTime{Time: dateValue(*s.LastPaidDate), Valid: true}
	}
	return row
}

func (r studentRow) model() models.Student {
	s := models.Student{
		ID:             r.ID,
		OwnerID:        r.OwnerID,
		SchoolID:       r.SchoolID,
		Name:           r.Name,
		ParentPhone:    r.ParentPhone,
		AdmissionDate:  civil.DateOf(r.AdmissionDate),
		LastBilledDate: civil.DateOf(r.LastBilledDate),
		TotalFees:      r.TotalFees,
		PaidFees:       r.PaidFees,
		PendingFees:    r.PendingFees,
		PaymentHistory: []models.PaymentEntry(r.PaymentHistory),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if s.PaymentHistory == nil {
		s.PaymentHistory = []models.PaymentEntry{}
	}
	if r.LastPaidDate.Valid {
		d := civil.DateOf(r.LastPaidDate.Time)
		s.LastPaidDate = &d
	}
	return s
}

func dateValue(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// paymentHistory maps the newest-first payment list onto a JSONB column.
type paymentHistory []models.PaymentEntry

// Value implements driver.Valuer.
func (h paymentHistory) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]models.PaymentEntry(h))
}

// Scan implements sql.Scanner.
func (h *paymentHistory) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*h = paymentHistory{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan payment history: unsupported type %T", src)
	}
	var entries []models.PaymentEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("scan payment history: %w", err)
	}
	*h = entries
	return nil
}
