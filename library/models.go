package library

import (
	"fmt"
	"time"
)

// Role determines what a logged-in user may do. Admins manage the catalog
// and circulation; members request loans and manage their own profile.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// UserStatus tracks account lifecycle. Users with loan history are never
// deleted; deactivation substitutes for deletion.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

// BookStatus is always derived from the book's copy count and its
// outstanding loans. No caller sets it directly; see Recompute.
type BookStatus string

const (
	BookAvailable BookStatus = "available"
	BookReserved  BookStatus = "reserved"
	BookBorrowed  BookStatus = "borrowed"
)

// LoanState is the loan state machine: pending -> {active, rejected},
// active -> returned. Rejected and returned are terminal. A loan being
// overdue is a computed predicate over active loans, not a stored state.
type LoanState string

const (
	LoanPending  LoanState = "pending"
	LoanActive   LoanState = "active"
	LoanRejected LoanState = "rejected"
	LoanReturned LoanState = "returned"
)

// Outstanding reports whether the state counts against per-user limits and
// per-book capacity.
func (s LoanState) Outstanding() bool {
	return s == LoanPending || s == LoanActive
}

// User is a registered account, either a library member or an administrator.
type User struct {
	ID           int64      `db:"id"`
	Name         string     `db:"name"`
	DNI          string     `db:"dni"`
	Email        string     `db:"email"`
	Phone        string     `db:"phone"`
	Address      string     `db:"address"`
	PasswordHash string     `db:"password_hash"`
	Role         Role       `db:"role"`
	Status       UserStatus `db:"status"`
	RegisteredAt time.Time  `db:"registered_at"`
}

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Category groups books by subject. Prefix is the two-digit leading part of
// every CDJ code in the category.
type Category struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Prefix      string `db:"prefix"`
}

// Book is a catalog entry. Copies is how many physical copies the library
// owns; Status is derived from Copies and the outstanding loans.
type Book struct {
	ID           int64      `db:"id"`
	Title        string     `db:"title"`
	Author       string     `db:"author"`
	ISBN         string     `db:"isbn"`
	Code         string     `db:"code"`
	CategoryID   int64      `db:"category_id"`
	Publisher    string     `db:"publisher"`
	Year         int        `db:"year"`
	Copies       int        `db:"copies"`
	Location     string     `db:"location"`
	Description  string     `db:"description"`
	Status       BookStatus `db:"status"`
	RegisteredAt time.Time  `db:"registered_at"`
}

// Loan records one borrowing fact. Loans are append-only history: they are
// mutated only through the state machine and never deleted.
type Loan struct {
	ID          int64      `db:"id"`
	UserID      int64      `db:"user_id"`
	BookID      int64      `db:"book_id"`
	RequestedAt time.Time  `db:"requested_at"`
	DueAt       time.Time  `db:"due_at"`
	ReturnedAt  *time.Time `db:"returned_at"`
	State       LoanState  `db:"state"`
	Notes       string     `db:"notes"`
}

// Overdue reports whether the loan is active and past due at the given
// instant. Overdue is never persisted as a loan state.
func (l *Loan) Overdue(now time.Time) bool {
	return l.State == LoanActive && now.After(l.DueAt)
}

// DaysLate returns how many whole days the loan is past due, zero if it is
// not overdue.
func (l *Loan) DaysLate(now time.Time) int {
	if !l.Overdue(now) {
		return 0
	}
	return int(now.Sub(l.DueAt).Hours() / 24)
}

// Session is the authenticated caller. It is passed explicitly into every
// operation that needs authorization; there is no ambient current user.
type Session struct {
	UserID int64
	Name   string
	Role   Role
}

// ComposeCode builds the full CDJ code from a category prefix and a
// book-specific suffix, e.g. prefix "12" + suffix "345" -> "12.345".
func ComposeCode(prefix, suffix string) string {
	return fmt.Sprintf("%s.%s", prefix, suffix)
}
