package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Repository is the storage contract the loan core consumes. Any storage
// technology satisfies it; *Database is the SQLite implementation.
type Repository interface {
	FindBook(code string) (*Book, error)
	FindBookByID(id int64) (*Book, error)
	FindUserByID(id int64) (*User, error)

	FindLoansByUser(userID int64) ([]Loan, error)
	FindLoansByBook(bookID int64, states ...LoanState) ([]Loan, error)
	FindLoanByID(id int64) (*Loan, error)
	FindPendingLoans() ([]Loan, error)
	FindOverdueLoans(now time.Time) ([]Loan, error)

	SaveLoan(loan *Loan) error
	UpdateLoanState(id int64, state LoanState, returnedAt *time.Time) error
	UpdateBookStatus(id int64, status BookStatus) error
}

// Database provides high-level helpers around a SQLite connection.
type Database struct {
	db *sqlx.DB

	insertLoanStmt *sqlx.Stmt
	insertUserStmt *sqlx.Stmt
}

var _ Repository = (*Database)(nil)

// NewDatabase opens (or creates) the SQLite database at dbPath, applies
// schema migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.insertLoanStmt != nil {
		d.insertLoanStmt.Close()
	}
	if d.insertUserStmt != nil {
		d.insertUserStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            dni TEXT NOT NULL,
            email TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT '',
            password_hash TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL DEFAULT 'member',
            status TEXT NOT NULL DEFAULT 'active',
            registered_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		// At most one active account per national id.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_active_dni
            ON users(dni) WHERE status='active';`,
		`CREATE TABLE IF NOT EXISTS categories (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            prefix TEXT NOT NULL UNIQUE
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            isbn TEXT NOT NULL DEFAULT '',
            code TEXT NOT NULL UNIQUE,
            category_id INTEGER NOT NULL REFERENCES categories(id),
            publisher TEXT NOT NULL DEFAULT '',
            year INTEGER NOT NULL DEFAULT 0,
            copies INTEGER NOT NULL DEFAULT 1 CHECK (copies >= 1),
            location TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'available',
            registered_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_books_isbn
            ON books(isbn) WHERE isbn != '';`,
		`CREATE TABLE IF NOT EXISTS loans (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL REFERENCES users(id),
            book_id INTEGER NOT NULL REFERENCES books(id),
            requested_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            due_at DATETIME NOT NULL,
            returned_at DATETIME,
            state TEXT NOT NULL DEFAULT 'pending',
            notes TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE INDEX IF NOT EXISTS idx_loans_user ON loans(user_id, state);`,
		`CREATE INDEX IF NOT EXISTS idx_loans_book ON loans(book_id, state);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.insertLoanStmt, err = d.db.Preparex(
		`INSERT INTO loans(user_id,book_id,requested_at,due_at,state,notes) VALUES(?,?,?,?,?,?)`); err != nil {
		return err
	}
	if d.insertUserStmt, err = d.db.Preparex(
		`INSERT INTO users(name,dni,email,phone,address,password_hash,role,status,registered_at)
         VALUES(?,?,?,?,?,?,?,?,?)`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (d *Database) InsertUser(u *User) error {
	if u.RegisteredAt.IsZero() {
		u.RegisteredAt = time.Now()
	}
	res, err := d.insertUserStmt.Exec(
		u.Name, u.DNI, u.Email, u.Phone, u.Address, u.PasswordHash, u.Role, u.Status, u.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user dni %q: %w", u.DNI, ErrDuplicateKey)
		}
		return storageErr("insert user", err)
	}
	u.ID, err = res.LastInsertId()
	return storageErr("insert user id", err)
}

func (d *Database) FindUserByID(id int64) (*User, error) {
	var u User
	err := d.db.Get(&u, `SELECT * FROM users WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("find user", err)
	}
	return &u, nil
}

// FindUserByName matches the login name of an active user.
func (d *Database) FindUserByName(name string) (*User, error) {
	var u User
	err := d.db.Get(&u, `SELECT * FROM users WHERE name=? AND status='active'`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("find user by name", err)
	}
	return &u, nil
}

func (d *Database) GetAllUsers() ([]User, error) {
	var users []User
	if err := d.db.Select(&users, `SELECT * FROM users ORDER BY id`); err != nil {
		return nil, storageErr("list users", err)
	}
	return users, nil
}

func (d *Database) UpdateUser(u *User) error {
	_, err := d.db.Exec(
		`UPDATE users SET name=?, dni=?, email=?, phone=?, address=?, password_hash=?, role=?, status=? WHERE id=?`,
		u.Name, u.DNI, u.Email, u.Phone, u.Address, u.PasswordHash, u.Role, u.Status, u.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("update user dni %q: %w", u.DNI, ErrDuplicateKey)
	}
	return storageErr("update user", err)
}

// UserHasLoanHistory reports whether any loan row references the user.
// Users with history are deactivated instead of deleted.
func (d *Database) UserHasLoanHistory(userID int64) (bool, error) {
	var exists bool
	err := d.db.Get(&exists, `SELECT EXISTS(SELECT 1 FROM loans WHERE user_id=?)`, userID)
	if err != nil {
		return false, storageErr("user loan history", err)
	}
	return exists, nil
}

func (d *Database) DeleteUser(id int64) error {
	res, err := d.db.Exec(`DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return storageErr("delete user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

func (d *Database) InsertCategory(c *Category) error {
	res, err := d.db.Exec(
		`INSERT INTO categories(name,description,prefix) VALUES(?,?,?)`,
		c.Name, c.Description, c.Prefix)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert category prefix %q: %w", c.Prefix, ErrDuplicateKey)
		}
		return storageErr("insert category", err)
	}
	c.ID, err = res.LastInsertId()
	return storageErr("insert category id", err)
}

func (d *Database) FindCategoryByID(id int64) (*Category, error) {
	var c Category
	err := d.db.Get(&c, `SELECT * FROM categories WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("find category", err)
	}
	return &c, nil
}

func (d *Database) FindCategoryByPrefix(prefix string) (*Category, error) {
	var c Category
	err := d.db.Get(&c, `SELECT * FROM categories WHERE prefix=?`, prefix)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category prefix %q: %w", prefix, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("find category by prefix", err)
	}
	return &c, nil
}

func (d *Database) GetAllCategories() ([]Category, error) {
	var cats []Category
	if err := d.db.Select(&cats, `SELECT * FROM categories ORDER BY prefix`); err != nil {
		return nil, storageErr("list categories", err)
	}
	return cats, nil
}

func (d *Database) UpdateCategory(c *Category) error {
	_, err := d.db.Exec(
		`UPDATE categories SET name=?, description=?, prefix=? WHERE id=?`,
		c.Name, c.Description, c.Prefix, c.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("update category prefix %q: %w", c.Prefix, ErrDuplicateKey)
	}
	return storageErr("update category", err)
}

// DeleteCategory refuses while any book still references the category.
func (d *Database) DeleteCategory(id int64) error {
	var inUse bool
	if err := d.db.Get(&inUse, `SELECT EXISTS(SELECT 1 FROM books WHERE category_id=?)`, id); err != nil {
		return storageErr("category usage", err)
	}
	if inUse {
		return fmt.Errorf("category %d still has books: %w", id, ErrInvalidState)
	}
	res, err := d.db.Exec(`DELETE FROM categories WHERE id=?`, id)
	if err != nil {
		return storageErr("delete category", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

func (d *Database) InsertBook(b *Book) error {
	if b.Status == "" {
		b.Status = BookAvailable
	}
	if b.RegisteredAt.IsZero() {
		b.RegisteredAt = time.Now()
	}
	res, err := d.db.Exec(
		`INSERT INTO books(title,author,isbn,code,category_id,publisher,year,copies,location,description,status,registered_at)
         VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.Title, b.Author, b.ISBN, b.Code, b.CategoryID, b.Publisher, b.Year,
		b.Copies, b.Location, b.Description, b.Status, b.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert book code %q: %w", b.Code, ErrDuplicateKey)
		}
		return storageErr("insert book", err)
	}
	b.ID, err = res.LastInsertId()
	return storageErr("insert book id", err)
}

// FindBook looks a book up by its CDJ code, the primary human-facing id.
func (d *Database) FindBook(code string) (*Book, error) {
	var b Book
	err := d.db.Get(&b, `SELECT * FROM books WHERE code=?`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %q: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("find book", err)
	}
	return &b, nil
}

func (d *Database) FindBookByID(id int64) (*Book, error) {
	var b Book
	err := d.db.Get(&b, `SELECT * FROM books WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("find book by id", err)
	}
	return &b, nil
}

func (d *Database) GetAllBooks() ([]Book, error) {
	var books []Book
	if err := d.db.Select(&books, `SELECT * FROM books ORDER BY code`); err != nil {
		return nil, storageErr("list books", err)
	}
	return books, nil
}

// SearchBooks matches title, author or code, case-insensitively.
func (d *Database) SearchBooks(term string) ([]Book, error) {
	like := "%" + term + "%"
	var books []Book
	err := d.db.Select(&books,
		`SELECT * FROM books WHERE title LIKE ? OR author LIKE ? OR code LIKE ? ORDER BY code`,
		like, like, like)
	if err != nil {
		return nil, storageErr("search books", err)
	}
	return books, nil
}

func (d *Database) FindBooksByCategory(categoryID int64) ([]Book, error) {
	var books []Book
	err := d.db.Select(&books, `SELECT * FROM books WHERE category_id=? ORDER BY code`, categoryID)
	if err != nil {
		return nil, storageErr("books by category", err)
	}
	return books, nil
}

// UpdateBook writes every mutable field except status, which only
// UpdateBookStatus touches (status is derived, never caller-set).
func (d *Database) UpdateBook(b *Book) error {
	_, err := d.db.Exec(
		`UPDATE books SET title=?, author=?, isbn=?, code=?, category_id=?, publisher=?, year=?, copies=?, location=?, description=? WHERE id=?`,
		b.Title, b.Author, b.ISBN, b.Code, b.CategoryID, b.Publisher, b.Year,
		b.Copies, b.Location, b.Description, b.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("update book code %q: %w", b.Code, ErrDuplicateKey)
	}
	return storageErr("update book", err)
}

func (d *Database) UpdateBookStatus(id int64, status BookStatus) error {
	res, err := d.db.Exec(`UPDATE books SET status=? WHERE id=?`, status, id)
	if err != nil {
		return storageErr("update book status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteBook refuses while any loan row references the book, preserving
// loan history integrity.
func (d *Database) DeleteBook(id int64) error {
	var inUse bool
	if err := d.db.Get(&inUse, `SELECT EXISTS(SELECT 1 FROM loans WHERE book_id=?)`, id); err != nil {
		return storageErr("book usage", err)
	}
	if inUse {
		return fmt.Errorf("book %d has loan history: %w", id, ErrInvalidState)
	}
	res, err := d.db.Exec(`DELETE FROM books WHERE id=?`, id)
	if err != nil {
		return storageErr("delete book", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

func (d *Database) SaveLoan(loan *Loan) error {
	if loan.RequestedAt.IsZero() {
		loan.RequestedAt = time.Now()
	}
	res, err := d.insertLoanStmt.Exec(
		loan.UserID, loan.BookID, loan.RequestedAt, loan.DueAt, loan.State, loan.Notes)
	if err != nil {
		return storageErr("insert loan", err)
	}
	loan.ID, err = res.LastInsertId()
	return storageErr("insert loan id", err)
}

func (d *Database) FindLoanByID(id int64) (*Loan, error) {
	var l Loan
	err := d.db.Get(&l, `SELECT * FROM loans WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loan %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("find loan", err)
	}
	return &l, nil
}

func (d *Database) FindLoansByUser(userID int64) ([]Loan, error) {
	var loans []Loan
	err := d.db.Select(&loans, `SELECT * FROM loans WHERE user_id=? ORDER BY requested_at`, userID)
	if err != nil {
		return nil, storageErr("loans by user", err)
	}
	return loans, nil
}

// FindLoansByBook returns the book's loans, optionally filtered to a state set.
func (d *Database) FindLoansByBook(bookID int64, states ...LoanState) ([]Loan, error) {
	query := `SELECT * FROM loans WHERE book_id=?`
	args := []any{bookID}
	if len(states) > 0 {
		query += ` AND state IN (?` + repeatPlaceholder(len(states)-1) + `)`
		for _, s := range states {
			args = append(args, s)
		}
	}
	query += ` ORDER BY requested_at`

	var loans []Loan
	if err := d.db.Select(&loans, query, args...); err != nil {
		return nil, storageErr("loans by book", err)
	}
	return loans, nil
}

func (d *Database) FindPendingLoans() ([]Loan, error) {
	var loans []Loan
	err := d.db.Select(&loans, `SELECT * FROM loans WHERE state='pending' ORDER BY requested_at`)
	if err != nil {
		return nil, storageErr("pending loans", err)
	}
	return loans, nil
}

func (d *Database) FindActiveLoans() ([]Loan, error) {
	var loans []Loan
	err := d.db.Select(&loans, `SELECT * FROM loans WHERE state='active' ORDER BY due_at`)
	if err != nil {
		return nil, storageErr("active loans", err)
	}
	return loans, nil
}

// FindOverdueLoans filters active loans past due. Overdue is computed here,
// never stored as a loan state.
func (d *Database) FindOverdueLoans(now time.Time) ([]Loan, error) {
	var loans []Loan
	err := d.db.Select(&loans, `SELECT * FROM loans WHERE state='active' AND due_at < ? ORDER BY due_at`, now)
	if err != nil {
		return nil, storageErr("overdue loans", err)
	}
	return loans, nil
}

func (d *Database) GetAllLoans() ([]Loan, error) {
	var loans []Loan
	if err := d.db.Select(&loans, `SELECT * FROM loans ORDER BY requested_at`); err != nil {
		return nil, storageErr("list loans", err)
	}
	return loans, nil
}

func (d *Database) UpdateLoanState(id int64, state LoanState, returnedAt *time.Time) error {
	res, err := d.db.Exec(`UPDATE loans SET state=?, returned_at=? WHERE id=?`, state, returnedAt, id)
	if err != nil {
		return storageErr("update loan state", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("loan %d: %w", id, ErrNotFound)
	}
	return nil
}

// CountLoansPerBook returns book id -> closed+open loan count, most
// borrowed first. Feeds the most-borrowed report.
func (d *Database) CountLoansPerBook() (map[int64]int, error) {
	rows, err := d.db.Query(`SELECT book_id, COUNT(*) FROM loans GROUP BY book_id`)
	if err != nil {
		return nil, storageErr("count loans per book", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var bookID int64
		var n int
		if err := rows.Scan(&bookID, &n); err != nil {
			return nil, storageErr("scan loan count", err)
		}
		counts[bookID] = n
	}
	return counts, rows.Err()
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ",?"
	}
	return out
}
