package billing

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// AddMonths moves d by n calendar months keeping the day-of-month, clamped to
// the last day of the target month (Jan 31 + 1 = Feb 28 or 29).
func AddMonths(d civil.Date, n int) civil.Date {
	idx := d.Year*12 + int(d.Month) - 1 + n
	year, month := idx/12, idx%12
	if month < 0 {
		month += 12
		year--
	}
	target := time.Month(month + 1)
	day := d.Day
	if last := daysIn(year, target); day > last {
		day = last
	}
	return civil.Date{Year: year, Month: target, Day: day}
}

// NextBillingDate returns the date the next cycle will be charged for a student
// admitted on admission whose fees were last billed on lastBilled.
func NextBillingDate(admission, lastBilled civil.Date) (civil.Date, error) {
	offset, err := cycleOffset(admission, lastBilled)
	if err != nil {
		return civil.Date{}, err
	}
	return AddMonths(admission, offset+1), nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(field, raw string) (civil.Date, error) {
	d, err := civil.ParseDate(raw)
	if err != nil || !d.IsValid() {
		return civil.Date{}, &InvalidDateError{Field: field, Value: raw, Reason: "expected a YYYY-MM-DD calendar date"}
	}
	return d, nil
}

// ParseLegacyDate accepts a YYYY-MM-DD date or the day-first d/m/yyyy form
// written by locally kept records. Day and month may be unpadded.
func ParseLegacyDate(field, raw string) (civil.Date, error) {
	raw = strings.TrimSpace(raw)
	if d, err := civil.ParseDate(raw); err == nil && d.IsValid() {
		return d, nil
	}
	t, err := time.Parse(legacyDateLayout, raw)
	if err != nil {
		return civil.Date{}, &InvalidDateError{Field: field, Value: raw, Reason: "expected YYYY-MM-DD or d/m/yyyy"}
	}
	return civil.DateOf(t), nil
}

// SnapToSchedule returns the latest monthly anniversary of admission on or
// before d. Dates already on the schedule are returned unchanged.
func SnapToSchedule(admission, d civil.Date) (civil.Date, error) {
	if err := validDate("admissionDate", admission); err != nil {
		return civil.Date{}, err
	}
	if err := validDate("lastBilledDate", d); err != nil {
		return civil.Date{}, err
	}
	if d.Before(admission) {
		return civil.Date{}, &InvalidDateError{Field: "lastBilledDate", Value: d.String(), Reason: "precedes admission date " + admission.String()}
	}
	months := (d.Year-admission.Year)*12 + int(d.Month) - int(admission.Month)
	if AddMonths(admission, months).After(d) {
		months--
	}
	return AddMonths(admission, months), nil
}

// Today returns the calendar date of now as observed in loc.
func Today(now time.Time, loc *time.Location) civil.Date {
	if loc != nil {
		now = now.In(loc)
	}
	return civil.DateOf(now)
}

const legacyDateLayout = "2/1/2006"

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// cycleOffset returns how many whole cycles separate admission from lastBilled.
// lastBilled must sit on the admission grid.
func cycleOffset(admission, lastBilled civil.Date) (int, error) {
	if err := validDate("admissionDate", admission); err != nil {
		return 0, err
	}
	if err := validDate("lastBilledDate", lastBilled); err != nil {
		return 0, err
	}
	if lastBilled.Before(admission) {
		return 0, &InvalidDateError{Field: "lastBilledDate", Value: lastBilled.String(), Reason: "precedes admission date " + admission.String()}
	}
	months := (lastBilled.Year-admission.Year)*12 + int(lastBilled.Month) - int(admission.Month)
	if AddMonths(admission, months) != lastBilled {
		return 0, &InvalidDateError{Field: "lastBilledDate", Value: lastBilled.String(), Reason: "not a monthly anniversary of admission date " + admission.String()}
	}
	return months, nil
}

func validDate(field string, d civil.Date) error {
	if !d.IsValid() {
		return &InvalidDateError{Field: field, Value: d.String(), Reason: "not a calendar date"}
	}
	return nil
}
