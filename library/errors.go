package library

import (
	"errors"
	"fmt"
	"strings"
)

// Policy and validation failures are expected, recoverable outcomes. They
// are matched with errors.Is and surfaced to the operator; they never cross
// the orchestration boundary as panics.
var (
	// ErrNotFound means a referenced user, book, category or loan does not exist.
	ErrNotFound = errors.New("not found")

	// ErrLimitExceeded means the user's outstanding-loan ceiling is reached.
	ErrLimitExceeded = errors.New("outstanding loan limit exceeded")

	// ErrHasOverdue means the user holds overdue active loans, which block
	// all new requests until returned.
	ErrHasOverdue = errors.New("user has overdue loans")

	// ErrDuplicateLoan means the user already holds or requested this book.
	ErrDuplicateLoan = errors.New("user already has an outstanding loan for this book")

	// ErrNoCopiesAvailable means capacity is exhausted at request or
	// approval time.
	ErrNoCopiesAvailable = errors.New("no copies available")

	// ErrInvalidState means the loan is not in the state the operation requires.
	ErrInvalidState = errors.New("loan is not in the required state")

	// ErrDuplicateKey means a uniqueness constraint (DNI, ISBN, CDJ code,
	// category prefix) was violated.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrForbidden means the session's role does not permit the operation.
	ErrForbidden = errors.New("operation not permitted")

	// ErrInvalidCredentials means login failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// StorageError wraps a repository failure. It is propagated to the caller
// verbatim, never interpreted and never retried automatically; the operator
// may retry the whole operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// storageErr wraps err unless it is nil or already classified as a domain
// sentinel (e.g. ErrNotFound mapped from sql.ErrNoRows).
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateKey) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is (or wraps) a repository failure.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// isUniqueViolation detects SQLite unique-constraint failures without tying
// callers to the driver's error type.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
