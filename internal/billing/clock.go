package billing

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Accrual is the result of running the billing clock once.
type Accrual struct {
	CyclesElapsed int             `json:"cycles_elapsed"`
	NewCheckpoint civil.Date      `json:"new_checkpoint"`
	AccruedAmount decimal.Decimal `json:"accrued_amount"`
}

// ComputeAccrual counts the billing cycles that ended on or before today since
// lastBilled and returns the advanced checkpoint and the fee owed for them.
// Running it again with the returned checkpoint and the same today yields zero
// cycles.
func ComputeAccrual(admission, lastBilled civil.Date, monthlyFee decimal.Decimal, today civil.Date) (Accrual, error) {
	offset, err := cycleOffset(admission, lastBilled)
	if err != nil {
		return Accrual{}, err
	}
	if err := validDate("today", today); err != nil {
		return Accrual{}, err
	}
	if monthlyFee.IsNegative() {
		return Accrual{}, &InvalidDateError{Field: "monthlyFee", Value: monthlyFee.String(), Reason: "must not be negative"}
	}

	cycles := 0
	for !AddMonths(admission, offset+cycles+1).After(today) {
		cycles++
	}

	checkpoint := lastBilled
	if cycles > 0 {
		checkpoint = AddMonths(admission, offset+cycles)
	}
	return Accrual{
		CyclesElapsed: cycles,
		NewCheckpoint: checkpoint,
		AccruedAmount: monthlyFee.Mul(decimal.NewFromInt(int64(cycles))),
	}, nil
}
