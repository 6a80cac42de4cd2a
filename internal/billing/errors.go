package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InvalidDateError reports a malformed or inconsistent input to the billing clock.
type InvalidDateError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// InvalidAmountError reports a payment amount that is not strictly positive.
type InvalidAmountError struct {
	Field  string
	Amount decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid %s %s: must be greater than zero", e.Field, e.Amount.String())
}
