package service

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"

	"github.com/noah-isme/van-fee-api/internal/billing"
	appErrors "github.com/noah-isme/van-fee-api/pkg/errors"
)

// Calendar resolves the current business date in the operator's timezone.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar builds a Calendar. A nil location means UTC and a nil clock means time.Now.
func NewCalendar(loc *time.Location, now func() time.Time) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return Calendar{loc: loc, now: now}
}

// Today returns the business date.
func (c Calendar) Today() civil.Date {
	if c.now == nil {
		return billing.Today(time.Now(), c.loc)
	}
	return billing.Today(c.now(), c.loc)
}

// billingError maps engine validation errors onto API errors. The engine's
// reason becomes part of the client message and is not wrapped a second time.
func billingError(err error, message string) error {
	var dateErr *billing.InvalidDateError
	if errors.As(err, &dateErr) {
		return appErrors.Clone(appErrors.ErrInvalidDate, message+": "+dateErr.Error())
	}
	var amountErr *billing.InvalidAmountError
	if errors.As(err, &amountErr) {
		return appErrors.Clone(appErrors.ErrInvalidAmount, message+": "+amountErr.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
