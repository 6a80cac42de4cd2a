package models

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Student is a rider billed a fixed fee every calendar month from admission.
type Student struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	SchoolID       string          `json:"school_id"`
	Name           string          `json:"name"`
	ParentPhone    string          `json:"parent_phone"`
	AdmissionDate  civil.Date      `json:"admission_date"`
	LastBilledDate civil.Date      `json:"last_billed_date"`
	TotalFees      decimal.Decimal `json:"total_fees"`
	PaidFees       decimal.Decimal `json:"paid_fees"`
	PendingFees    decimal.Decimal `json:"pending_fees"`
	PaymentHistory []PaymentEntry  `json:"payment_history"`
	LastPaidDate   *civil.Date     `json:"last_paid_date,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// PaymentEntry is one received payment. Entries are never edited once written.
type PaymentEntry struct {
	Amount decimal.Decimal `json:"amount"`
	Date   civil.Date      `json:"date"`
}

// StudentFilter narrows student listings for an owner.
type StudentFilter struct {
	SchoolID   string
	UnpaidOnly bool
}

// StudentDetail decorates a student with derived billing information.
type StudentDetail struct {
	Student
	NextBillingDate civil.Date `json:"next_billing_date"`
	SchoolName      string     `json:"school_name,omitempty"`
}

// CreateStudentRequest is the payload for admitting a student. TotalFees is the monthly fee.
type CreateStudentRequest struct {
	SchoolID      string          `json:"school_id" validate:"required"`
	Name          string          `json:"name" validate:"required,max=150"`
	ParentPhone   string          `json:"parent_phone" validate:"required,max=32"`
	AdmissionDate string          `json:"admission_date" validate:"required"`
	TotalFees     decimal.Decimal `json:"total_fees"`
}
