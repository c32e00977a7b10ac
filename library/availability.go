package library

// Recompute derives a book's status from its copy count and the loans that
// reference it. It is the single place book status is computed; every
// mutation boundary calls it and writes the result back, so status can
// never drift from the loan set.
//
// The accountant only reports. The invariant active+pending <= copies is
// enforced upstream by the Policy Engine's capacity checks, not here: a
// copy-count edit that undercuts outstanding loans is rejected by the edit
// operation itself.
func Recompute(copies int, loans []Loan) BookStatus {
	active, pending := 0, 0
	for _, l := range loans {
		switch l.State {
		case LoanActive:
			active++
		case LoanPending:
			pending++
		}
	}

	free := copies - active - pending
	switch {
	case free > 0:
		return BookAvailable
	case pending > 0:
		return BookReserved
	default:
		return BookBorrowed
	}
}
