package library

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	db, err := NewDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening must not fail or re-run migrations destructively.
	db, err = NewDatabase(path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.InsertCategory(&Category{Name: "Test", Prefix: "10"}))
}

func TestActiveDNIUniqueness(t *testing.T) {
	db := tempDB(t)

	first := &User{Name: "alice", DNI: "12345678", Role: RoleMember, Status: UserActive}
	require.NoError(t, db.InsertUser(first))

	// A second active account with the same DNI is rejected.
	dup := &User{Name: "alice2", DNI: "12345678", Role: RoleMember, Status: UserActive}
	require.ErrorIs(t, db.InsertUser(dup), ErrDuplicateKey)

	// After deactivation the DNI can be reused by a new active account.
	first.Status = UserInactive
	require.NoError(t, db.UpdateUser(first))
	require.NoError(t, db.InsertUser(dup))
}

func TestCategoryPrefixUniqueness(t *testing.T) {
	db := tempDB(t)
	require.NoError(t, db.InsertCategory(&Category{Name: "Literature", Prefix: "10"}))
	err := db.InsertCategory(&Category{Name: "Other", Prefix: "10"})
	require.ErrorIs(t, err, ErrDuplicateKey)
}

func TestBookCodeAndISBNUniqueness(t *testing.T) {
	db := tempDB(t)
	cat := &Category{Name: "Literature", Prefix: "10"}
	require.NoError(t, db.InsertCategory(cat))

	book := &Book{Title: "A", Author: "B", Code: "10.001", ISBN: "9780000000001", CategoryID: cat.ID, Copies: 1}
	require.NoError(t, db.InsertBook(book))

	sameCode := &Book{Title: "C", Author: "D", Code: "10.001", CategoryID: cat.ID, Copies: 1}
	require.ErrorIs(t, db.InsertBook(sameCode), ErrDuplicateKey)

	sameISBN := &Book{Title: "C", Author: "D", Code: "10.002", ISBN: "9780000000001", CategoryID: cat.ID, Copies: 1}
	require.ErrorIs(t, db.InsertBook(sameISBN), ErrDuplicateKey)

	// Empty ISBNs never collide.
	blank1 := &Book{Title: "E", Author: "F", Code: "10.003", CategoryID: cat.ID, Copies: 1}
	blank2 := &Book{Title: "G", Author: "H", Code: "10.004", CategoryID: cat.ID, Copies: 1}
	require.NoError(t, db.InsertBook(blank1))
	require.NoError(t, db.InsertBook(blank2))
}

func TestFindBookByCode(t *testing.T) {
	db := tempDB(t)
	cat := &Category{Name: "Literature", Prefix: "10"}
	require.NoError(t, db.InsertCategory(cat))
	book := &Book{Title: "Findable", Author: "A", Code: "10.001", CategoryID: cat.ID, Copies: 2}
	require.NoError(t, db.InsertBook(book))

	got, err := db.FindBook("10.001")
	require.NoError(t, err)
	require.Equal(t, book.ID, got.ID)
	require.Equal(t, BookAvailable, got.Status)

	_, err = db.FindBook("99.999")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSearchBooks(t *testing.T) {
	db := tempDB(t)
	cat := &Category{Name: "Literature", Prefix: "10"}
	require.NoError(t, db.InsertCategory(cat))
	require.NoError(t, db.InsertBook(&Book{Title: "One Hundred Years of Solitude", Author: "Garcia Marquez", Code: "10.001", CategoryID: cat.ID, Copies: 1}))
	require.NoError(t, db.InsertBook(&Book{Title: "Cosmos", Author: "Carl Sagan", Code: "10.002", CategoryID: cat.ID, Copies: 1}))

	byTitle, err := db.SearchBooks("solitude")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)

	byAuthor, err := db.SearchBooks("sagan")
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)

	byCode, err := db.SearchBooks("10.0")
	require.NoError(t, err)
	require.Len(t, byCode, 2)
}

func seedLoanRow(t *testing.T, db *Database, userID, bookID int64, state LoanState, due time.Time) *Loan {
	t.Helper()
	loan := &Loan{UserID: userID, BookID: bookID, DueAt: due, State: state}
	require.NoError(t, db.SaveLoan(loan))
	return loan
}

func TestFindLoansByBookStateFilter(t *testing.T) {
	db := tempDB(t)
	cat := &Category{Name: "Literature", Prefix: "10"}
	require.NoError(t, db.InsertCategory(cat))
	book := &Book{Title: "A", Author: "B", Code: "10.001", CategoryID: cat.ID, Copies: 5}
	require.NoError(t, db.InsertBook(book))
	user := &User{Name: "alice", DNI: "12345678", Role: RoleMember, Status: UserActive}
	require.NoError(t, db.InsertUser(user))

	due := time.Now().AddDate(0, 0, 14)
	seedLoanRow(t, db, user.ID, book.ID, LoanPending, due)
	seedLoanRow(t, db, user.ID, book.ID, LoanActive, due)
	seedLoanRow(t, db, user.ID, book.ID, LoanReturned, due)
	seedLoanRow(t, db, user.ID, book.ID, LoanRejected, due)

	all, err := db.FindLoansByBook(book.ID)
	require.NoError(t, err)
	require.Len(t, all, 4)

	outstanding, err := db.FindLoansByBook(book.ID, LoanPending, LoanActive)
	require.NoError(t, err)
	require.Len(t, outstanding, 2)

	active, err := db.FindLoansByBook(book.ID, LoanActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
}

func TestFindOverdueLoans(t *testing.T) {
	db := tempDB(t)
	cat := &Category{Name: "Literature", Prefix: "10"}
	require.NoError(t, db.InsertCategory(cat))
	book := &Book{Title: "A", Author: "B", Code: "10.001", CategoryID: cat.ID, Copies: 5}
	require.NoError(t, db.InsertBook(book))
	user := &User{Name: "alice", DNI: "12345678", Role: RoleMember, Status: UserActive}
	require.NoError(t, db.InsertUser(user))

	now := time.Now()
	late := seedLoanRow(t, db, user.ID, book.ID, LoanActive, now.AddDate(0, 0, -3))
	seedLoanRow(t, db, user.ID, book.ID, LoanActive, now.AddDate(0, 0, 3))
	// A returned loan past due is history, not overdue.
	seedLoanRow(t, db, user.ID, book.ID, LoanReturned, now.AddDate(0, 0, -10))

	overdue, err := db.FindOverdueLoans(now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	require.Equal(t, late.ID, overdue[0].ID)
}

func TestUpdateLoanState(t *testing.T) {
	db := tempDB(t)
	cat := &Category{Name: "Literature", Prefix: "10"}
	require.NoError(t, db.InsertCategory(cat))
	book := &Book{Title: "A", Author: "B", Code: "10.001", CategoryID: cat.ID, Copies: 1}
	require.NoError(t, db.InsertBook(book))
	user := &User{Name: "alice", DNI: "12345678", Role: RoleMember, Status: UserActive}
	require.NoError(t, db.InsertUser(user))

	loan := seedLoanRow(t, db, user.ID, book.ID, LoanActive, time.Now().AddDate(0, 0, 14))

	returnedAt := time.Now()
	require.NoError(t, db.UpdateLoanState(loan.ID, LoanReturned, &returnedAt))

	got, err := db.FindLoanByID(loan.ID)
	require.NoError(t, err)
	require.Equal(t, LoanReturned, got.State)
	require.NotNil(t, got.ReturnedAt)

	require.ErrorIs(t, db.UpdateLoanState(99999, LoanReturned, nil), ErrNotFound)
}

func TestDeleteBookBlockedByLoanHistory(t *testing.T) {
	db := tempDB(t)
	cat := &Category{Name: "Literature", Prefix: "10"}
	require.NoError(t, db.InsertCategory(cat))
	book := &Book{Title: "A", Author: "B", Code: "10.001", CategoryID: cat.ID, Copies: 1}
	require.NoError(t, db.InsertBook(book))
	user := &User{Name: "alice", DNI: "12345678", Role: RoleMember, Status: UserActive}
	require.NoError(t, db.InsertUser(user))

	seedLoanRow(t, db, user.ID, book.ID, LoanReturned, time.Now())

	require.ErrorIs(t, db.DeleteBook(book.ID), ErrInvalidState)

	// Without history deletion works.
	clean := &Book{Title: "C", Author: "D", Code: "10.002", CategoryID: cat.ID, Copies: 1}
	require.NoError(t, db.InsertBook(clean))
	require.NoError(t, db.DeleteBook(clean.ID))
}

func TestDeleteCategoryBlockedWhileInUse(t *testing.T) {
	db := tempDB(t)
	cat := &Category{Name: "Literature", Prefix: "10"}
	require.NoError(t, db.InsertCategory(cat))
	book := &Book{Title: "A", Author: "B", Code: "10.001", CategoryID: cat.ID, Copies: 1}
	require.NoError(t, db.InsertBook(book))

	require.ErrorIs(t, db.DeleteCategory(cat.ID), ErrInvalidState)

	require.NoError(t, db.DeleteBook(book.ID))
	require.NoError(t, db.DeleteCategory(cat.ID))
}

func TestUpdateBookStatusUnknownBook(t *testing.T) {
	db := tempDB(t)
	require.ErrorIs(t, db.UpdateBookStatus(404, BookBorrowed), ErrNotFound)
}
