package library

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
)

// Manager is the facade the CLI talks to: authentication, user/book/
// category management and reports, with the loan lifecycle delegated to
// the LoanService. It keeps no in-memory cache of loan or book state;
// every decision re-reads current state through the repository.
type Manager struct {
	db       *Database
	cfg      Config
	loans    *LoanService
	validate *validator.Validate
	log      *slog.Logger
}

// NewManager opens (or creates) the SQLite database at cfg.DBPath and
// wires the policy engine and orchestrator.
func NewManager(cfg Config, log *slog.Logger) (*Manager, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := NewDatabase(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return &Manager{
		db:       db,
		cfg:      cfg,
		loans:    NewLoanService(db, NewPolicy(cfg), log),
		validate: validator.New(),
		log:      log,
	}, nil
}

// Close closes the underlying database.
func (m *Manager) Close() error { return m.db.Close() }

// Loans exposes the loan lifecycle orchestrator.
func (m *Manager) Loans() *LoanService { return m.loans }

// ------------------ Users ------------------

// RegisterUserInput is validated before any write.
type RegisterUserInput struct {
	Name     string `validate:"required,min=2"`
	DNI      string `validate:"required,min=7,max=10,numeric"`
	Email    string `validate:"omitempty,email"`
	Phone    string `validate:"omitempty,min=6"`
	Address  string
	Password string `validate:"required,min=6"`
	Role     Role   `validate:"required,oneof=admin member"`
}

// RegisterUser creates an active account. Only admins can create other
// admins; self-registration always yields a member.
func (m *Manager) RegisterUser(sess Session, in RegisterUserInput) (*User, error) {
	if in.Role == RoleAdmin && sess.Role != RoleAdmin {
		return nil, fmt.Errorf("register admin: %w", ErrForbidden)
	}
	if err := m.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Name:         in.Name,
		DNI:          in.DNI,
		Email:        in.Email,
		Phone:        in.Phone,
		Address:      in.Address,
		PasswordHash: hash,
		Role:         in.Role,
		Status:       UserActive,
		RegisteredAt: time.Now(),
	}
	if err := m.db.InsertUser(user); err != nil {
		return nil, err
	}
	m.log.Info("user registered", "user", user.ID, "role", user.Role)
	return user, nil
}

// EditUserInput covers profile edits. Empty fields keep their value.
type EditUserInput struct {
	Email   string `validate:"omitempty,email"`
	Phone   string `validate:"omitempty,min=6"`
	Address string
}

// UpdateProfile edits contact data. Members may only edit themselves.
func (m *Manager) UpdateProfile(sess Session, userID int64, in EditUserInput) error {
	if sess.Role != RoleAdmin && sess.UserID != userID {
		return fmt.Errorf("update profile: %w", ErrForbidden)
	}
	if err := m.validate.Struct(in); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	user, err := m.db.FindUserByID(userID)
	if err != nil {
		return err
	}
	if in.Email != "" {
		user.Email = in.Email
	}
	if in.Phone != "" {
		user.Phone = in.Phone
	}
	if in.Address != "" {
		user.Address = in.Address
	}
	return m.db.UpdateUser(user)
}

// DeactivateUser disables an account. The bootstrap administrator can
// never be deactivated, and neither can a user who still has outstanding
// loans.
func (m *Manager) DeactivateUser(sess Session, userID int64) error {
	if sess.Role != RoleAdmin {
		return fmt.Errorf("deactivate user: %w", ErrForbidden)
	}
	user, err := m.db.FindUserByID(userID)
	if err != nil {
		return err
	}
	if user.Name == m.cfg.AdminUsername && user.Role == RoleAdmin {
		return fmt.Errorf("primary administrator cannot be deactivated: %w", ErrForbidden)
	}

	loans, err := m.db.FindLoansByUser(userID)
	if err != nil {
		return err
	}
	for _, l := range loans {
		if l.State.Outstanding() {
			return fmt.Errorf("user %q has outstanding loans: %w", user.Name, ErrInvalidState)
		}
	}

	user.Status = UserInactive
	if err := m.db.UpdateUser(user); err != nil {
		return err
	}
	m.log.Info("user deactivated", "user", userID)
	return nil
}

// ActivateUser re-enables an account. Fails with ErrDuplicateKey if
// another active account already holds the same DNI.
func (m *Manager) ActivateUser(sess Session, userID int64) error {
	if sess.Role != RoleAdmin {
		return fmt.Errorf("activate user: %w", ErrForbidden)
	}
	user, err := m.db.FindUserByID(userID)
	if err != nil {
		return err
	}
	user.Status = UserActive
	return m.db.UpdateUser(user)
}

// RemoveUser deletes an account without loan history outright; an account
// with history is deactivated instead, preserving the append-only loan log.
func (m *Manager) RemoveUser(sess Session, userID int64) error {
	if sess.Role != RoleAdmin {
		return fmt.Errorf("remove user: %w", ErrForbidden)
	}
	has, err := m.db.UserHasLoanHistory(userID)
	if err != nil {
		return err
	}
	if has {
		return m.DeactivateUser(sess, userID)
	}
	user, err := m.db.FindUserByID(userID)
	if err != nil {
		return err
	}
	if user.Name == m.cfg.AdminUsername && user.Role == RoleAdmin {
		return fmt.Errorf("primary administrator cannot be removed: %w", ErrForbidden)
	}
	return m.db.DeleteUser(userID)
}

func (m *Manager) GetUser(id int64) (*User, error) { return m.db.FindUserByID(id) }
func (m *Manager) GetAllUsers() ([]User, error)    { return m.db.GetAllUsers() }

// FindActiveUserByName resolves the librarian's "who is borrowing" prompt.
func (m *Manager) FindActiveUserByName(name string) (*User, error) {
	return m.db.FindUserByName(name)
}

// EnsureAdmin creates the bootstrap administrator account if no active
// account with the configured name exists.
func (m *Manager) EnsureAdmin() error {
	_, err := m.db.FindUserByName(m.cfg.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	hash, err := HashPassword(m.cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin := &User{
		Name:         m.cfg.AdminUsername,
		DNI:          "00000000",
		PasswordHash: hash,
		Role:         RoleAdmin,
		Status:       UserActive,
		RegisteredAt: time.Now(),
	}
	if err := m.db.InsertUser(admin); err != nil {
		return err
	}
	m.log.Info("bootstrap administrator created", "name", admin.Name)
	return nil
}

// ------------------ Categories ------------------

// CategoryInput is validated before any write. Prefix is the two-digit
// leading part of the category's CDJ codes.
type CategoryInput struct {
	Name        string `validate:"required,min=2"`
	Description string
	Prefix      string `validate:"required,len=2,numeric"`
}

func (m *Manager) AddCategory(sess Session, in CategoryInput) (*Category, error) {
	if sess.Role != RoleAdmin {
		return nil, fmt.Errorf("add category: %w", ErrForbidden)
	}
	if err := m.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("add category: %w", err)
	}
	cat := &Category{Name: in.Name, Description: in.Description, Prefix: in.Prefix}
	if err := m.db.InsertCategory(cat); err != nil {
		return nil, err
	}
	return cat, nil
}

func (m *Manager) UpdateCategory(sess Session, id int64, in CategoryInput) error {
	if sess.Role != RoleAdmin {
		return fmt.Errorf("update category: %w", ErrForbidden)
	}
	if err := m.validate.Struct(in); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	cat, err := m.db.FindCategoryByID(id)
	if err != nil {
		return err
	}
	cat.Name, cat.Description, cat.Prefix = in.Name, in.Description, in.Prefix
	return m.db.UpdateCategory(cat)
}

func (m *Manager) DeleteCategory(sess Session, id int64) error {
	if sess.Role != RoleAdmin {
		return fmt.Errorf("delete category: %w", ErrForbidden)
	}
	return m.db.DeleteCategory(id)
}

func (m *Manager) GetAllCategories() ([]Category, error) { return m.db.GetAllCategories() }

// ------------------ Books ------------------

// RegisterBookInput carries catalog data; the full CDJ code is composed
// from the category's prefix plus Suffix.
type RegisterBookInput struct {
	Title       string `validate:"required"`
	Author      string `validate:"required"`
	ISBN        string `validate:"omitempty,min=10,max=13"`
	CategoryID  int64  `validate:"required"`
	Suffix      string `validate:"required,min=1,max=5,numeric"`
	Publisher   string
	Year        int `validate:"omitempty,min=0,max=2100"`
	Copies      int `validate:"required,min=1"`
	Location    string
	Description string
}

func (m *Manager) RegisterBook(sess Session, in RegisterBookInput) (*Book, error) {
	if sess.Role != RoleAdmin {
		return nil, fmt.Errorf("register book: %w", ErrForbidden)
	}
	if err := m.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("register book: %w", err)
	}

	cat, err := m.db.FindCategoryByID(in.CategoryID)
	if err != nil {
		return nil, err
	}
	book := &Book{
		Title:        in.Title,
		Author:       in.Author,
		ISBN:         in.ISBN,
		Code:         ComposeCode(cat.Prefix, in.Suffix),
		CategoryID:   cat.ID,
		Publisher:    in.Publisher,
		Year:         in.Year,
		Copies:       in.Copies,
		Location:     in.Location,
		Description:  in.Description,
		Status:       BookAvailable,
		RegisteredAt: time.Now(),
	}
	if err := m.db.InsertBook(book); err != nil {
		return nil, err
	}
	m.log.Info("book registered", "book", book.ID, "code", book.Code)
	return book, nil
}

// EditBookInput mirrors RegisterBookInput for catalog edits.
type EditBookInput struct {
	Title       string `validate:"required"`
	Author      string `validate:"required"`
	ISBN        string `validate:"omitempty,min=10,max=13"`
	Publisher   string
	Year        int `validate:"omitempty,min=0,max=2100"`
	Copies      int `validate:"required,min=1"`
	Location    string
	Description string
}

// UpdateBook edits a catalog entry. Lowering the copy count below the
// book's current outstanding loan count is rejected, not silently
// accepted; afterwards the derived status is recomputed to absorb any
// legitimate copy-count change.
func (m *Manager) UpdateBook(sess Session, bookID int64, in EditBookInput) error {
	if sess.Role != RoleAdmin {
		return fmt.Errorf("update book: %w", ErrForbidden)
	}
	if err := m.validate.Struct(in); err != nil {
		return fmt.Errorf("update book: %w", err)
	}

	book, err := m.db.FindBookByID(bookID)
	if err != nil {
		return err
	}

	outstanding, err := m.db.FindLoansByBook(bookID, LoanPending, LoanActive)
	if err != nil {
		return err
	}
	if in.Copies < len(outstanding) {
		return fmt.Errorf("copy count %d below %d outstanding loans: %w",
			in.Copies, len(outstanding), ErrInvalidState)
	}

	book.Title, book.Author, book.ISBN = in.Title, in.Author, in.ISBN
	book.Publisher, book.Year, book.Copies = in.Publisher, in.Year, in.Copies
	book.Location, book.Description = in.Location, in.Description
	if err := m.db.UpdateBook(book); err != nil {
		return err
	}
	return m.loans.RecomputeBookStatus(bookID)
}

func (m *Manager) DeleteBook(sess Session, bookID int64) error {
	if sess.Role != RoleAdmin {
		return fmt.Errorf("delete book: %w", ErrForbidden)
	}
	return m.db.DeleteBook(bookID)
}

func (m *Manager) GetBook(code string) (*Book, error)      { return m.db.FindBook(code) }
func (m *Manager) GetBookByID(id int64) (*Book, error)     { return m.db.FindBookByID(id) }
func (m *Manager) GetAllBooks() ([]Book, error)            { return m.db.GetAllBooks() }
func (m *Manager) SearchBooks(term string) ([]Book, error) { return m.db.SearchBooks(term) }

func (m *Manager) BooksByCategory(categoryID int64) ([]Book, error) {
	return m.db.FindBooksByCategory(categoryID)
}

// ------------------ Reports ------------------

// LoanDetail joins a loan with the names the operator wants to see.
type LoanDetail struct {
	Loan
	UserName  string
	BookTitle string
	BookCode  string
	DaysLate  int
}

func (m *Manager) expand(loans []Loan, now time.Time) ([]LoanDetail, error) {
	details := make([]LoanDetail, 0, len(loans))
	for _, l := range loans {
		d := LoanDetail{Loan: l, DaysLate: l.DaysLate(now)}
		if u, err := m.db.FindUserByID(l.UserID); err == nil {
			d.UserName = u.Name
		}
		if b, err := m.db.FindBookByID(l.BookID); err == nil {
			d.BookTitle, d.BookCode = b.Title, b.Code
		}
		details = append(details, d)
	}
	return details, nil
}

// MyLoans lists the session user's outstanding loans.
func (m *Manager) MyLoans(sess Session) ([]LoanDetail, error) {
	loans, err := m.db.FindLoansByUser(sess.UserID)
	if err != nil {
		return nil, err
	}
	outstanding := loans[:0]
	for _, l := range loans {
		if l.State.Outstanding() {
			outstanding = append(outstanding, l)
		}
	}
	return m.expand(outstanding, time.Now())
}

// UserHistory lists every loan the user ever had.
func (m *Manager) UserHistory(sess Session, userID int64) ([]LoanDetail, error) {
	if sess.Role != RoleAdmin && sess.UserID != userID {
		return nil, fmt.Errorf("user history: %w", ErrForbidden)
	}
	loans, err := m.db.FindLoansByUser(userID)
	if err != nil {
		return nil, err
	}
	return m.expand(loans, time.Now())
}

func (m *Manager) PendingLoans() ([]LoanDetail, error) {
	loans, err := m.db.FindPendingLoans()
	if err != nil {
		return nil, err
	}
	return m.expand(loans, time.Now())
}

func (m *Manager) ActiveLoans() ([]LoanDetail, error) {
	loans, err := m.db.FindActiveLoans()
	if err != nil {
		return nil, err
	}
	return m.expand(loans, time.Now())
}

func (m *Manager) OverdueLoans() ([]LoanDetail, error) {
	now := time.Now()
	loans, err := m.db.FindOverdueLoans(now)
	if err != nil {
		return nil, err
	}
	return m.expand(loans, now)
}

func (m *Manager) FullHistory() ([]LoanDetail, error) {
	loans, err := m.db.GetAllLoans()
	if err != nil {
		return nil, err
	}
	return m.expand(loans, time.Now())
}

// BookLoanCount pairs a book with how often it was borrowed.
type BookLoanCount struct {
	Book  Book
	Count int
}

// MostBorrowed ranks books by total loan count, descending.
func (m *Manager) MostBorrowed(limit int) ([]BookLoanCount, error) {
	counts, err := m.db.CountLoansPerBook()
	if err != nil {
		return nil, err
	}
	ranked := make([]BookLoanCount, 0, len(counts))
	for bookID, n := range counts {
		book, err := m.db.FindBookByID(bookID)
		if err != nil {
			continue
		}
		ranked = append(ranked, BookLoanCount{Book: *book, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Book.Code < ranked[j].Book.Code
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// ------------------ CSV export ------------------

// ExportCSV writes headers plus rows to path.
func (m *Manager) ExportCSV(path string, headers []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// LoanCSVRows flattens loan details for export.
func LoanCSVRows(details []LoanDetail) ([]string, [][]string) {
	headers := []string{"loan_id", "user", "book_code", "book_title", "requested", "due", "returned", "state", "days_late"}
	rows := make([][]string, 0, len(details))
	for _, d := range details {
		returned := ""
		if d.ReturnedAt != nil {
			returned = d.ReturnedAt.Format("2006-01-02")
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", d.ID),
			d.UserName,
			d.BookCode,
			d.BookTitle,
			d.RequestedAt.Format("2006-01-02"),
			d.DueAt.Format("2006-01-02"),
			returned,
			string(d.State),
			fmt.Sprintf("%d", d.DaysLate),
		})
	}
	return headers, rows
}
