package library

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// LoanService sequences every loan state transition: (1) validate via the
// Policy Engine against freshly-read state, (2) persist the loan mutation,
// (3) recompute and persist the book status where the transition could have
// changed availability.
//
// The repository exposes no multi-statement transaction to this layer, so
// step (2) is a checkpoint: if the status write-back in step (3) fails, the
// loan mutation stands and the book status stays stale until the next
// recompute-triggering event. That staleness window is a deliberate
// trade-off; status is lazily correct on the next read-triggering event.
type LoanService struct {
	repo   Repository
	policy Policy
	log    *slog.Logger

	// now is swappable so tests can pin the clock.
	now func() time.Time
}

// NewLoanService wires the orchestrator. A nil logger falls back to the
// process default.
func NewLoanService(repo Repository, policy Policy, log *slog.Logger) *LoanService {
	if log == nil {
		log = slog.Default()
	}
	return &LoanService{repo: repo, policy: policy, log: log, now: time.Now}
}

// RequestLoan creates a pending loan for the session's user, subject to the
// ordered request checks. Any active user may request for themselves.
func (s *LoanService) RequestLoan(sess Session, bookCode string) (*Loan, error) {
	now := s.now()

	userLoans, err := s.repo.FindLoansByUser(sess.UserID)
	if err != nil {
		return nil, err
	}

	book, err := s.repo.FindBook(bookCode)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var bookLoans []Loan
	if book != nil {
		if bookLoans, err = s.repo.FindLoansByBook(book.ID, LoanPending, LoanActive); err != nil {
			return nil, err
		}
	}

	if err := s.policy.CheckRequest(book, userLoans, bookLoans, now); err != nil {
		return nil, err
	}

	loan := &Loan{
		UserID:      sess.UserID,
		BookID:      book.ID,
		RequestedAt: now,
		DueAt:       s.policy.SelfServiceDue(now),
		State:       LoanPending,
	}
	if err := s.repo.SaveLoan(loan); err != nil {
		return nil, err
	}

	s.log.Info("loan requested", "loan", loan.ID, "user", sess.UserID, "book", book.Code)
	return loan, s.recomputeBook(book.ID)
}

// IssueLoan is the librarian pathway: same preconditions as RequestLoan
// plus the account-active check, but the loan is created directly active
// with the staff loan period.
func (s *LoanService) IssueLoan(sess Session, userID int64, bookCode string) (*Loan, error) {
	if sess.Role != RoleAdmin {
		return nil, fmt.Errorf("issue loan: %w", ErrForbidden)
	}
	now := s.now()

	user, err := s.repo.FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	userLoans, err := s.repo.FindLoansByUser(userID)
	if err != nil {
		return nil, err
	}

	book, err := s.repo.FindBook(bookCode)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	var bookLoans []Loan
	if book != nil {
		if bookLoans, err = s.repo.FindLoansByBook(book.ID, LoanPending, LoanActive); err != nil {
			return nil, err
		}
	}

	if err := s.policy.CheckIssue(user, book, userLoans, bookLoans, now); err != nil {
		return nil, err
	}

	loan := &Loan{
		UserID:      userID,
		BookID:      book.ID,
		RequestedAt: now,
		DueAt:       s.policy.StaffDue(now),
		State:       LoanActive,
	}
	if err := s.repo.SaveLoan(loan); err != nil {
		return nil, err
	}

	s.log.Info("loan issued", "loan", loan.ID, "user", userID, "book", book.Code)
	return loan, s.recomputeBook(book.ID)
}

// ApproveLoan activates a pending loan after re-validating against fresh
// state. A duplicate active loan auto-transitions the request to rejected
// and reports ApprovalAutoReject; exhausted capacity fails with
// ErrNoCopiesAvailable and leaves the loan pending.
func (s *LoanService) ApproveLoan(sess Session, loanID int64) (ApprovalDecision, error) {
	if sess.Role != RoleAdmin {
		return 0, fmt.Errorf("approve loan: %w", ErrForbidden)
	}

	loan, err := s.repo.FindLoanByID(loanID)
	if err != nil {
		return 0, err
	}
	book, err := s.repo.FindBookByID(loan.BookID)
	if err != nil {
		return 0, err
	}
	userLoans, err := s.repo.FindLoansByUser(loan.UserID)
	if err != nil {
		return 0, err
	}
	bookLoans, err := s.repo.FindLoansByBook(loan.BookID, LoanPending, LoanActive)
	if err != nil {
		return 0, err
	}

	decision, err := s.policy.CheckApprove(loan, book, userLoans, bookLoans)
	if err != nil {
		return 0, err
	}

	if decision == ApprovalAutoReject {
		if err := s.repo.UpdateLoanState(loan.ID, LoanRejected, nil); err != nil {
			return 0, err
		}
		s.log.Info("loan auto-rejected", "loan", loan.ID, "reason", "duplicate active loan")
		return ApprovalAutoReject, nil
	}

	if err := s.repo.UpdateLoanState(loan.ID, LoanActive, nil); err != nil {
		return 0, err
	}
	s.log.Info("loan approved", "loan", loan.ID, "book", book.Code)
	return ApprovalGrant, s.recomputeBook(book.ID)
}

// RejectLoan rejects a pending loan. No recompute follows: a pending loan
// never held a definite slot, so the status stays as-is until the next
// recompute-triggering event.
func (s *LoanService) RejectLoan(sess Session, loanID int64) error {
	if sess.Role != RoleAdmin {
		return fmt.Errorf("reject loan: %w", ErrForbidden)
	}

	loan, err := s.repo.FindLoanByID(loanID)
	if err != nil {
		return err
	}
	if err := s.policy.CheckReject(loan); err != nil {
		return err
	}
	if err := s.repo.UpdateLoanState(loan.ID, LoanRejected, nil); err != nil {
		return err
	}
	s.log.Info("loan rejected", "loan", loan.ID)
	return nil
}

// ReturnLoan closes an active loan, stamping the actual return date, then
// recomputes availability. Returning a loan in any other state fails with
// ErrInvalidState.
func (s *LoanService) ReturnLoan(sess Session, loanID int64) error {
	if sess.Role != RoleAdmin {
		return fmt.Errorf("return loan: %w", ErrForbidden)
	}

	loan, err := s.repo.FindLoanByID(loanID)
	if err != nil {
		return err
	}
	if err := s.policy.CheckReturn(loan); err != nil {
		return err
	}

	returnedAt := s.now()
	if err := s.repo.UpdateLoanState(loan.ID, LoanReturned, &returnedAt); err != nil {
		return err
	}
	s.log.Info("loan returned", "loan", loan.ID, "book", loan.BookID)
	return s.recomputeBook(loan.BookID)
}

// RecomputeBookStatus re-derives and persists one book's status. The
// manager calls it after copy-count edits; the transitions above call it
// through recomputeBook.
func (s *LoanService) RecomputeBookStatus(bookID int64) error {
	return s.recomputeBook(bookID)
}

func (s *LoanService) recomputeBook(bookID int64) error {
	book, err := s.repo.FindBookByID(bookID)
	if err != nil {
		s.log.Warn("book status left stale", "book", bookID, "error", err)
		return err
	}
	loans, err := s.repo.FindLoansByBook(bookID, LoanPending, LoanActive)
	if err != nil {
		s.log.Warn("book status left stale", "book", bookID, "error", err)
		return err
	}

	status := Recompute(book.Copies, loans)
	if status == book.Status {
		return nil
	}
	if err := s.repo.UpdateBookStatus(bookID, status); err != nil {
		// The loan mutation already stands; status is stale until the next
		// recompute-triggering event. Surface the storage error verbatim.
		s.log.Warn("book status left stale", "book", bookID, "want", status, "error", err)
		return err
	}
	return nil
}
