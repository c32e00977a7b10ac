package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testPolicy = NewPolicy(DefaultConfig())

func loanIn(state LoanState, bookID int64, due time.Time) Loan {
	return Loan{BookID: bookID, State: state, DueAt: due}
}

func TestCheckRequestLimitExceeded(t *testing.T) {
	now := time.Now()
	due := now.AddDate(0, 0, 7)

	var userLoans []Loan
	for i := int64(1); i <= 5; i++ {
		userLoans = append(userLoans, loanIn(LoanActive, i, due))
	}

	book := &Book{ID: 99, Code: "10.099", Copies: 3}
	err := testPolicy.CheckRequest(book, userLoans, nil, now)
	require.ErrorIs(t, err, ErrLimitExceeded)
}

func TestCheckRequestPendingCountsAgainstLimit(t *testing.T) {
	now := time.Now()
	due := now.AddDate(0, 0, 7)

	userLoans := []Loan{
		loanIn(LoanActive, 1, due),
		loanIn(LoanPending, 2, due),
		loanIn(LoanPending, 3, due),
		loanIn(LoanActive, 4, due),
		loanIn(LoanPending, 5, due),
		// Closed loans never count.
		loanIn(LoanReturned, 6, due),
		loanIn(LoanRejected, 7, due),
	}

	book := &Book{ID: 99, Code: "10.099", Copies: 3}
	err := testPolicy.CheckRequest(book, userLoans, nil, now)
	require.ErrorIs(t, err, ErrLimitExceeded)
}

func TestCheckRequestHasOverdue(t *testing.T) {
	now := time.Now()
	userLoans := []Loan{
		loanIn(LoanActive, 1, now.AddDate(0, 0, -2)), // two days late
	}

	book := &Book{ID: 99, Code: "10.099", Copies: 3}
	err := testPolicy.CheckRequest(book, userLoans, nil, now)
	require.ErrorIs(t, err, ErrHasOverdue)
}

func TestCheckRequestOverdueOnlyAppliesToActive(t *testing.T) {
	now := time.Now()
	// A returned loan past its due date does not block.
	userLoans := []Loan{
		loanIn(LoanReturned, 1, now.AddDate(0, 0, -10)),
	}

	book := &Book{ID: 99, Code: "10.099", Copies: 1}
	require.NoError(t, testPolicy.CheckRequest(book, userLoans, nil, now))
}

func TestCheckRequestBookNotFound(t *testing.T) {
	err := testPolicy.CheckRequest(nil, nil, nil, time.Now())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCheckRequestDuplicateLoan(t *testing.T) {
	now := time.Now()
	due := now.AddDate(0, 0, 7)
	book := &Book{ID: 42, Code: "10.042", Copies: 5}

	for _, state := range []LoanState{LoanPending, LoanActive} {
		err := testPolicy.CheckRequest(book, []Loan{loanIn(state, 42, due)}, nil, now)
		require.ErrorIs(t, err, ErrDuplicateLoan, "state %s", state)
	}

	// Returned and rejected loans for the same book do not block.
	for _, state := range []LoanState{LoanReturned, LoanRejected} {
		err := testPolicy.CheckRequest(book, []Loan{loanIn(state, 42, due)}, nil, now)
		require.NoError(t, err, "state %s", state)
	}
}

func TestCheckRequestNoCopiesAvailable(t *testing.T) {
	now := time.Now()
	due := now.AddDate(0, 0, 7)
	book := &Book{ID: 42, Code: "10.042", Copies: 2}

	// Pending loans count against capacity just like active ones.
	bookLoans := []Loan{
		loanIn(LoanActive, 42, due),
		loanIn(LoanPending, 42, due),
	}
	err := testPolicy.CheckRequest(book, nil, bookLoans, now)
	require.ErrorIs(t, err, ErrNoCopiesAvailable)

	book.Copies = 3
	require.NoError(t, testPolicy.CheckRequest(book, nil, bookLoans, now))
}

func TestCheckRequestOrderFirstFailureWins(t *testing.T) {
	now := time.Now()

	// User at limit AND overdue AND unknown book: the limit fires first.
	var userLoans []Loan
	for i := int64(1); i <= 5; i++ {
		userLoans = append(userLoans, loanIn(LoanActive, i, now.AddDate(0, 0, -1)))
	}
	err := testPolicy.CheckRequest(nil, userLoans, nil, now)
	require.ErrorIs(t, err, ErrLimitExceeded)

	// Below limit but overdue with unknown book: overdue fires before not-found.
	err = testPolicy.CheckRequest(nil, userLoans[:2], nil, now)
	require.ErrorIs(t, err, ErrHasOverdue)
}

func TestCheckIssueInactiveUser(t *testing.T) {
	now := time.Now()
	user := &User{ID: 1, Name: "carla", Status: UserInactive}
	book := &Book{ID: 42, Code: "10.042", Copies: 1}

	err := testPolicy.CheckIssue(user, book, nil, nil, now)
	require.ErrorIs(t, err, ErrForbidden)

	user.Status = UserActive
	require.NoError(t, testPolicy.CheckIssue(user, book, nil, nil, now))
}

func TestCheckApproveRequiresPending(t *testing.T) {
	book := &Book{ID: 42, Code: "10.042", Copies: 1}
	for _, state := range []LoanState{LoanActive, LoanRejected, LoanReturned} {
		loan := &Loan{ID: 7, BookID: 42, State: state}
		_, err := testPolicy.CheckApprove(loan, book, nil, nil)
		require.ErrorIs(t, err, ErrInvalidState, "state %s", state)
	}
}

func TestCheckApproveAutoRejectsDuplicateActive(t *testing.T) {
	book := &Book{ID: 42, Code: "10.042", Copies: 5}
	loan := &Loan{ID: 7, UserID: 1, BookID: 42, State: LoanPending}

	userLoans := []Loan{
		{ID: 3, UserID: 1, BookID: 42, State: LoanActive},
	}
	decision, err := testPolicy.CheckApprove(loan, book, userLoans, userLoans)
	require.NoError(t, err)
	require.Equal(t, ApprovalAutoReject, decision)
}

func TestCheckApproveNoCopiesLeavesPending(t *testing.T) {
	book := &Book{ID: 42, Code: "10.042", Copies: 1}
	loan := &Loan{ID: 7, UserID: 1, BookID: 42, State: LoanPending}

	bookLoans := []Loan{
		{ID: 3, UserID: 2, BookID: 42, State: LoanActive},
	}
	_, err := testPolicy.CheckApprove(loan, book, nil, bookLoans)
	require.ErrorIs(t, err, ErrNoCopiesAvailable)
}

func TestCheckApprovePendingLoansDoNotBlockApproval(t *testing.T) {
	// At approval time only active loans consume capacity; other pending
	// requests must not block the first approval.
	book := &Book{ID: 42, Code: "10.042", Copies: 1}
	loan := &Loan{ID: 7, UserID: 1, BookID: 42, State: LoanPending}

	bookLoans := []Loan{
		*loan,
		{ID: 8, UserID: 2, BookID: 42, State: LoanPending},
	}
	decision, err := testPolicy.CheckApprove(loan, book, nil, bookLoans)
	require.NoError(t, err)
	require.Equal(t, ApprovalGrant, decision)
}

func TestCheckRejectAndReturnStateGuards(t *testing.T) {
	require.NoError(t, testPolicy.CheckReject(&Loan{State: LoanPending}))
	require.ErrorIs(t, testPolicy.CheckReject(&Loan{State: LoanActive}), ErrInvalidState)

	require.NoError(t, testPolicy.CheckReturn(&Loan{State: LoanActive}))
	for _, state := range []LoanState{LoanPending, LoanRejected, LoanReturned} {
		require.ErrorIs(t, testPolicy.CheckReturn(&Loan{State: state}), ErrInvalidState, "state %s", state)
	}
}

func TestLoanPeriods(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, now.AddDate(0, 0, 14), testPolicy.SelfServiceDue(now))
	require.Equal(t, now.AddDate(0, 0, 15), testPolicy.StaffDue(now))

	custom := NewPolicy(Config{
		MaxOutstandingLoansPerUser: 2,
		LoanPeriodDaysSelfService:  7,
		LoanPeriodDaysStaff:        30,
	})
	require.Equal(t, now.AddDate(0, 0, 7), custom.SelfServiceDue(now))
	require.Equal(t, now.AddDate(0, 0, 30), custom.StaffDue(now))
	require.Equal(t, 2, custom.MaxOutstanding)
}
