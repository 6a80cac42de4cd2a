package billing

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/van-fee-api/internal/models"
)

// ApplyAccrual bills every cycle of s that has ended by today. The boolean is
// false when nothing was due, in which case s is returned as is.
func ApplyAccrual(s models.Student, today civil.Date) (models.Student, bool, error) {
	updated, accrual, err := accrue(s, today)
	if err != nil {
		return s, false, err
	}
	return updated, accrual.CyclesElapsed > 0, nil
}

func accrue(s models.Student, today civil.Date) (models.Student, Accrual, error) {
	accrual, err := ComputeAccrual(s.AdmissionDate, s.LastBilledDate, s.TotalFees, today)
	if err != nil || accrual.CyclesElapsed == 0 {
		return s, accrual, err
	}
	updated := s
	updated.PendingFees = s.PendingFees.Add(accrual.AccruedAmount)
	updated.LastBilledDate = accrual.NewCheckpoint
	return updated, accrual, nil
}

// ApplyPayment records amount received on paidOn. Pending fees never drop
// below zero; any excess is counted as paid but not kept as credit.
func ApplyPayment(s models.Student, amount decimal.Decimal, paidOn civil.Date) (models.Student, error) {
	if !amount.IsPositive() {
		return s, &InvalidAmountError{Field: "amount", Amount: amount}
	}
	if err := validDate("paymentDate", paidOn); err != nil {
		return s, err
	}

	history := make([]models.PaymentEntry, 0, len(s.PaymentHistory)+1)
	history = append(history, models.PaymentEntry{Amount: amount, Date: paidOn})
	history = append(history, s.PaymentHistory...)

	pending := s.PendingFees.Sub(amount)
	if pending.IsNegative() {
		pending = decimal.Zero
	}
	lastPaid := paidOn

	updated := s
	updated.PaidFees = s.PaidFees.Add(amount)
	updated.PendingFees = pending
	updated.PaymentHistory = history
	updated.LastPaidDate = &lastPaid
	return updated, nil
}

// PaymentUpdateFor builds the persistence instruction for a payment applied to s.
func PaymentUpdateFor(s models.Student, amount decimal.Decimal) models.PaymentUpdate {
	update := models.PaymentUpdate{
		ID:             s.ID,
		PaidFees:       s.PaidFees,
		PendingFees:    s.PendingFees,
		PaymentHistory: s.PaymentHistory,
		Amount:         amount,
	}
	if s.LastPaidDate != nil {
		update.LastPaidDate = *s.LastPaidDate
	}
	return update
}
