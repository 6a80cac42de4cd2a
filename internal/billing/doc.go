// Package billing computes monthly fee accruals and applies payments to
// student ledgers.
//
// Every function here is pure: inputs are never mutated, nothing blocks and
// nothing touches storage. Callers persist the returned values (see
// Reconciliation.Updates) and are responsible for serialising mutations of a
// single student.
//
// Dates are civil calendar dates. A billing cycle is one calendar month
// anchored on the admission day-of-month; months that are too short clamp to
// their last day, and the next cycle returns to the admission day.
package billing
