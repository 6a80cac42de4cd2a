package billing

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/van-fee-api/internal/models"
)

// Reconciliation is the outcome of billing a whole collection of students.
type Reconciliation struct {
	Students   []models.Student
	ChangedIDs map[string]struct{}
	Updates    []models.AccrualUpdate
	Cycles     int
	Accrued    decimal.Decimal
}

// Changed reports whether the student with id was billed.
func (r Reconciliation) Changed(id string) bool {
	_, ok := r.ChangedIDs[id]
	return ok
}

// Reconcile applies the accrual of ApplyAccrual to every student. The returned collection
// keeps the input order; unbilled students are copied through untouched. A
// single invalid student fails the whole run and nothing is returned for
// persistence.
func Reconcile(students []models.Student, today civil.Date) (Reconciliation, error) {
	result := Reconciliation{
		Students:   make([]models.Student, len(students)),
		ChangedIDs: make(map[string]struct{}),
		Accrued:    decimal.Zero,
	}
	for i, s := range students {
		updated, accrual, err := accrue(s, today)
		if err != nil {
			return Reconciliation{}, fmt.Errorf("student %s: %w", s.ID, err)
		}
		result.Students[i] = updated
		if accrual.CyclesElapsed == 0 {
			continue
		}

		result.ChangedIDs[s.ID] = struct{}{}
		result.Updates = append(result.Updates, models.AccrualUpdate{
			ID:                 s.ID,
			PendingFees:        updated.PendingFees,
			LastBilledDate:     updated.LastBilledDate,
			PreviousBilledDate: s.LastBilledDate,
			AccruedAmount:      accrual.AccruedAmount,
			Cycles:             accrual.CyclesElapsed,
		})
		result.Cycles += accrual.CyclesElapsed
		result.Accrued = result.Accrued.Add(accrual.AccruedAmount)
	}
	return result, nil
}
