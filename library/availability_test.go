package library

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func loansWith(active, pending int) []Loan {
	var loans []Loan
	for i := 0; i < active; i++ {
		loans = append(loans, Loan{State: LoanActive})
	}
	for i := 0; i < pending; i++ {
		loans = append(loans, Loan{State: LoanPending})
	}
	return loans
}

func TestRecompute(t *testing.T) {
	tests := []struct {
		name    string
		copies  int
		active  int
		pending int
		want    BookStatus
	}{
		{"no loans", 1, 0, 0, BookAvailable},
		{"one pending consumes the only copy", 1, 0, 1, BookReserved},
		{"one active consumes the only copy", 1, 1, 0, BookBorrowed},
		{"free copy remains", 3, 1, 1, BookAvailable},
		{"full with pending wins reserved", 2, 1, 1, BookReserved},
		{"full all active", 2, 2, 0, BookBorrowed},
		{"oversubscribed with pending", 1, 1, 2, BookReserved},
		{"oversubscribed all active", 1, 3, 0, BookBorrowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recompute(tt.copies, loansWith(tt.active, tt.pending))
			require.Equal(t, tt.want, got)
		})
	}
}

// Closed loans never influence the derived status.
func TestRecomputeIgnoresClosedLoans(t *testing.T) {
	loans := []Loan{
		{State: LoanReturned},
		{State: LoanRejected},
		{State: LoanReturned},
	}
	require.Equal(t, BookAvailable, Recompute(1, loans))
}

// Recompute never reports available when free <= 0, whatever the mix.
func TestRecomputeNeverAvailableWithoutFreeCopies(t *testing.T) {
	for copies := 1; copies <= 4; copies++ {
		for active := 0; active <= 5; active++ {
			for pending := 0; pending <= 5; pending++ {
				if copies-active-pending > 0 {
					continue
				}
				got := Recompute(copies, loansWith(active, pending))
				require.NotEqual(t, BookAvailable, got,
					"copies=%d active=%d pending=%d", copies, active, pending)
			}
		}
	}
}
