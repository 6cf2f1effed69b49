// Package policy holds the borrowing rules. Every function is pure: callers
// pass in the records and the current time, nothing is read or written here.
package policy

import (
	"time"

	"github.com/librarydesk/circulation/internal/db"
)

// Reason explains why a transition was refused.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonBookUnavailable    Reason = "book_unavailable"
	ReasonNoCopiesAvailable  Reason = "no_copies_available"
	ReasonBorrowLimitReached Reason = "borrow_limit_reached"
	ReasonDuplicateRequest   Reason = "duplicate_request"
	ReasonOverdueBlock       Reason = "overdue_loans_outstanding"
	ReasonRenewalLimit       Reason = "renewal_limit_reached"
	ReasonNotRenewable       Reason = "not_renewable"
	ReasonNotBorrowed        Reason = "not_borrowed"
	ReasonCopiesOnLoan       Reason = "copies_on_loan"
)

// Decision is the answer to "may this transition happen?".
type Decision struct {
	Allowed bool
	Reason  Reason
}

var allow = Decision{Allowed: true}

func deny(r Reason) Decision { return Decision{Reason: r} }

// Rules are the tunable limits of the borrowing policy.
type Rules struct {
	MaxActiveLoans int
	MaxRenewals    int
	LoanPeriod     time.Duration
	RenewalPeriod  time.Duration
	// BlockOnOverdue refuses new requests while the user holds an overdue loan.
	BlockOnOverdue bool
}

// DefaultRules returns the library's standard policy: 3 loans, 2 renewals, 14 days each.
func DefaultRules() Rules {
	return Rules{
		MaxActiveLoans: 3,
		MaxRenewals:    2,
		LoanPeriod:     14 * 24 * time.Hour,
		RenewalPeriod:  14 * 24 * time.Hour,
		BlockOnOverdue: true,
	}
}

// IsOverdue reports whether an approved loan is past its due date at now.
func IsOverdue(rec *db.BorrowRecord, now time.Time) bool {
	switch rec.Status {
	case db.StatusOverdue:
		return true
	case db.StatusApproved:
		return rec.DueDate.Before(now)
	}
	return false
}

// EffectiveStatus is the stored status with overdue derived from the due date.
func EffectiveStatus(rec *db.BorrowRecord, now time.Time) db.Status {
	if IsOverdue(rec, now) {
		return db.StatusOverdue
	}
	return rec.Status
}

// DueDate is the due date of a loan that starts at from.
func (r Rules) DueDate(from time.Time) time.Time {
	return from.Add(r.LoanPeriod)
}

// RenewedDueDate is the due date after one more renewal.
func (r Rules) RenewedDueDate(rec *db.BorrowRecord) time.Time {
	return rec.DueDate.Add(r.RenewalPeriod)
}

// CanBorrow decides whether user may request book given the user's existing records.
func (r Rules) CanBorrow(user *db.User, book *db.Book, existing []db.BorrowRecord, now time.Time) Decision {
	if book == nil || !book.Active {
		return deny(ReasonBookUnavailable)
	}
	if book.AvailableCopies <= 0 {
		return deny(ReasonNoCopiesAvailable)
	}

	active := 0
	for i := range existing {
		rec := &existing[i]
		if rec.UserID != user.ID {
			continue
		}
		if rec.BookID == book.ID && rec.Status.Open() {
			return deny(ReasonDuplicateRequest)
		}
		if rec.Status.Active() {
			active++
			if r.BlockOnOverdue && IsOverdue(rec, now) {
				return deny(ReasonOverdueBlock)
			}
		}
	}
	if active >= r.MaxActiveLoans {
		return deny(ReasonBorrowLimitReached)
	}
	return allow
}

// CanApprove re-checks a pending request at decision time: a copy must still
// be on the shelf and the borrower must still be under the loan limit.
func (r Rules) CanApprove(book *db.Book, userRecords []db.BorrowRecord) Decision {
	if book == nil || !book.Active {
		return deny(ReasonBookUnavailable)
	}
	if book.AvailableCopies <= 0 {
		return deny(ReasonNoCopiesAvailable)
	}
	if ActiveLoans(userRecords) >= r.MaxActiveLoans {
		return deny(ReasonBorrowLimitReached)
	}
	return allow
}

// CanRenew decides whether a loan may be extended.
func (r Rules) CanRenew(rec *db.BorrowRecord) Decision {
	if !rec.Status.Active() {
		return deny(ReasonNotRenewable)
	}
	if int(rec.RenewalCount) >= r.MaxRenewals {
		return deny(ReasonRenewalLimit)
	}
	return allow
}

// CanReturn decides whether a record can be checked back in. Returned records
// are handled by the caller as not found.
func CanReturn(rec *db.BorrowRecord) Decision {
	if !rec.Status.Active() {
		return deny(ReasonNotBorrowed)
	}
	return allow
}

// CanDecide reports whether actor may approve or reject requests.
func CanDecide(actor *db.User) bool {
	return actor != nil && actor.Role.IsStaff()
}

// CanActOn reports whether actor may renew or return rec: staff, or the borrower.
func CanActOn(actor *db.User, rec *db.BorrowRecord) bool {
	if actor == nil {
		return false
	}
	return actor.Role.IsStaff() || actor.ID == rec.UserID
}

// ActiveLoans counts records in the borrower's hands.
func ActiveLoans(records []db.BorrowRecord) int {
	n := 0
	for i := range records {
		if records[i].Status.Active() {
			n++
		}
	}
	return n
}
