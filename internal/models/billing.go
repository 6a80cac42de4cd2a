package models

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// AccrualUpdate instructs the store to persist an accrual produced by reconciliation.
// PreviousBilledDate and AccruedAmount let the store apply the change as a guarded delta.
type AccrualUpdate struct {
	ID                 string          `json:"id"`
	PendingFees        decimal.Decimal `json:"pending_fees"`
	LastBilledDate     civil.Date      `json:"last_billed_date"`
	PreviousBilledDate civil.Date      `json:"previous_billed_date"`
	AccruedAmount      decimal.Decimal `json:"accrued_amount"`
	Cycles             int             `json:"cycles"`
}

// PaymentUpdate instructs the store to persist a recorded payment.
type PaymentUpdate struct {
	ID             string          `json:"id"`
	PaidFees       decimal.Decimal `json:"paid_fees"`
	PendingFees    decimal.Decimal `json:"pending_fees"`
	PaymentHistory []PaymentEntry  `json:"payment_history"`
	LastPaidDate   civil.Date      `json:"last_paid_date"`
	Amount         decimal.Decimal `json:"amount"`
}

// RecordPaymentRequest is the payload for recording a payment. Date defaults to today.
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date,omitempty"`
}

// PaymentReceipt is the outcome of a recorded payment.
type PaymentReceipt struct {
	Student      Student      `json:"student"`
	Confirmation Notification `json:"confirmation"`
}

// Ledger is an owner's reconciled snapshot returned by a data load.
type Ledger struct {
	Today         civil.Date      `json:"today"`
	Schools       []School        `json:"schools"`
	Students      []Student       `json:"students"`
	Changed       []string        `json:"changed"`
	CyclesAccrued int             `json:"cycles_accrued"`
	AccruedAmount decimal.Decimal `json:"accrued_amount"`
}

// DashboardSummary aggregates an owner's outstanding and collected fees.
type DashboardSummary struct {
	Today          civil.Date      `json:"today"`
	SchoolCount    int             `json:"school_count"`
	StudentCount   int             `json:"student_count"`
	UnpaidCount    int             `json:"unpaid_count"`
	TotalPending   decimal.Decimal `json:"total_pending"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	DueToday       []Student       `json:"due_today"`
	Schools        []SchoolSummary `json:"schools"`
}

// ImportRequest carries a locally stored snapshot to be moved into the account.
type ImportRequest struct {
	Schools  []ImportSchool  `json:"schools" validate:"dive"`
	Students []ImportStudent `json:"students" validate:"dive"`
}

// ImportSchool is a school as recorded locally; ID is only meaningful inside the snapshot.
type ImportSchool struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required,max=150"`
}

// ImportStudent is a student as recorded locally, billing state included.
type ImportStudent struct {
	SchoolID       string          `json:"school_id" validate:"required"`
	Name           string          `json:"name" validate:"required,max=150"`
	ParentPhone    string          `json:"parent_phone" validate:"required,max=32"`
	AdmissionDate  string          `json:"admission_date" validate:"required"`
	LastBilledDate string          `json:"last_billed_date"`
	TotalFees      decimal.Decimal `json:"total_fees"`
	PaidFees       decimal.Decimal `json:"paid_fees"`
	PendingFees    decimal.Decimal `json:"pending_fees"`
	PaymentHistory []ImportPayment `json:"payment_history" validate:"dive"`
	LastPaidDate   string          `json:"last_paid_date,omitempty"`
}

// ImportPayment is a locally recorded payment entry.
type ImportPayment struct {
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date" validate:"required"`
}

// ImportResult reports how many records were created.
type ImportResult struct {
	Schools  int `json:"schools"`
	Students int `json:"students"`
}
