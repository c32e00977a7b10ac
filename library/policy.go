package library

import (
	"fmt"
	"time"
)

// Policy is the loan decision engine. It is pure: every check runs over
// state the caller just read, holds nothing between calls, and never
// touches storage. The orchestrator owns the read-decide-persist sequence.
type Policy struct {
	// MaxOutstanding caps a user's pending+active loans.
	MaxOutstanding int

	// SelfServiceDays and StaffDays are the loan periods for member
	// requests and librarian-issued loans respectively.
	SelfServiceDays int
	StaffDays       int
}

// NewPolicy builds a Policy from the named configuration options.
func NewPolicy(cfg Config) Policy {
	return Policy{
		MaxOutstanding:  cfg.MaxOutstandingLoansPerUser,
		SelfServiceDays: cfg.LoanPeriodDaysSelfService,
		StaffDays:       cfg.LoanPeriodDaysStaff,
	}
}

// SelfServiceDue returns the due date for a member-requested loan.
func (p Policy) SelfServiceDue(now time.Time) time.Time {
	return now.AddDate(0, 0, p.SelfServiceDays)
}

// StaffDue returns the due date for a librarian-issued loan.
func (p Policy) StaffDue(now time.Time) time.Time {
	return now.AddDate(0, 0, p.StaffDays)
}

// CheckRequest validates a new loan request. Checks run in a fixed order
// and the first failure wins:
//
//  1. outstanding-loan ceiling          -> ErrLimitExceeded
//  2. no overdue active loan            -> ErrHasOverdue
//  3. book exists                       -> ErrNotFound
//  4. no outstanding loan for this book -> ErrDuplicateLoan
//  5. a copy is free                    -> ErrNoCopiesAvailable
//
// userLoans is the user's full loan history; bookLoans is the book's
// outstanding (pending+active) loans.
func (p Policy) CheckRequest(book *Book, userLoans, bookLoans []Loan, now time.Time) error {
	outstanding := 0
	for _, l := range userLoans {
		if l.State.Outstanding() {
			outstanding++
		}
	}
	if outstanding >= p.MaxOutstanding {
		return fmt.Errorf("user has %d outstanding loans: %w", outstanding, ErrLimitExceeded)
	}

	for _, l := range userLoans {
		if l.Overdue(now) {
			return fmt.Errorf("loan %d due %s: %w", l.ID, l.DueAt.Format("2006-01-02"), ErrHasOverdue)
		}
	}

	if book == nil {
		return fmt.Errorf("book: %w", ErrNotFound)
	}

	for _, l := range userLoans {
		if l.BookID == book.ID && l.State.Outstanding() {
			return fmt.Errorf("book %q: %w", book.Code, ErrDuplicateLoan)
		}
	}

	held := 0
	for _, l := range bookLoans {
		if l.State.Outstanding() {
			held++
		}
	}
	if book.Copies-held < 1 {
		return fmt.Errorf("book %q (%d copies, %d held): %w", book.Code, book.Copies, held, ErrNoCopiesAvailable)
	}

	return nil
}

// CheckIssue validates a librarian-initiated direct loan: the same checks
// as CheckRequest plus the user account must be active.
func (p Policy) CheckIssue(user *User, book *Book, userLoans, bookLoans []Loan, now time.Time) error {
	if user == nil {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	if user.Status != UserActive {
		return fmt.Errorf("user %q is inactive: %w", user.Name, ErrForbidden)
	}
	return p.CheckRequest(book, userLoans, bookLoans, now)
}

// ApprovalDecision is the outcome of CheckApprove when it does not fail.
type ApprovalDecision int

const (
	// ApprovalGrant activates the pending loan.
	ApprovalGrant ApprovalDecision = iota

	// ApprovalAutoReject rejects the pending loan because the user already
	// holds an active loan for the book. It is a decision, not a failure:
	// the transition to rejected proceeds and the reason is surfaced.
	ApprovalAutoReject
)

// CheckApprove re-validates a pending loan at approval time. Time elapses
// between listing pending requests and acting on one, so the duplicate and
// capacity checks run again against fresh state even in a single-operator
// system.
//
// A duplicate active loan yields ApprovalAutoReject. Exhausted capacity
// yields ErrNoCopiesAvailable and the loan stays pending.
func (p Policy) CheckApprove(loan *Loan, book *Book, userLoans, bookLoans []Loan) (ApprovalDecision, error) {
	if loan.State != LoanPending {
		return 0, fmt.Errorf("loan %d is %s, want pending: %w", loan.ID, loan.State, ErrInvalidState)
	}

	for _, l := range userLoans {
		if l.ID != loan.ID && l.BookID == loan.BookID && l.State == LoanActive {
			return ApprovalAutoReject, nil
		}
	}

	active := 0
	for _, l := range bookLoans {
		if l.State == LoanActive {
			active++
		}
	}
	if active >= book.Copies {
		return 0, fmt.Errorf("book %q (%d copies, %d active): %w", book.Code, book.Copies, active, ErrNoCopiesAvailable)
	}

	return ApprovalGrant, nil
}

// CheckReject validates rejecting a pending loan. Rejection is otherwise
// unconditional.
func (p Policy) CheckReject(loan *Loan) error {
	if loan.State != LoanPending {
		return fmt.Errorf("loan %d is %s, want pending: %w", loan.ID, loan.State, ErrInvalidState)
	}
	return nil
}

// CheckReturn validates returning an active loan. Returning a loan in any
// other state fails with ErrInvalidState rather than being silently
// ignored, so a double return can never double-decrement availability.
func (p Policy) CheckReturn(loan *Loan) error {
	if loan.State != LoanActive {
		return fmt.Errorf("loan %d is %s, want active: %w", loan.ID, loan.State, ErrInvalidState)
	}
	return nil
}
