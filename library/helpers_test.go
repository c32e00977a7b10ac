package library

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")

	m, err := NewManager(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	require.NoError(t, m.EnsureAdmin())
	return m
}

func adminSession(t *testing.T, m *Manager) Session {
	t.Helper()
	admin, err := m.db.FindUserByName(m.cfg.AdminUsername)
	require.NoError(t, err)
	return Session{UserID: admin.ID, Name: admin.Name, Role: RoleAdmin}
}

var memberSeq int64

func newMember(t *testing.T, m *Manager, name string) (*User, Session) {
	t.Helper()
	memberSeq++
	user, err := m.RegisterUser(adminSession(t, m), RegisterUserInput{
		Name:     name,
		DNI:      fmt.Sprintf("%08d", memberSeq),
		Password: "secret123",
		Role:     RoleMember,
	})
	require.NoError(t, err)
	return user, Session{UserID: user.ID, Name: user.Name, Role: RoleMember}
}

func ensureCategory(t *testing.T, m *Manager, prefix string) *Category {
	t.Helper()
	if cat, err := m.db.FindCategoryByPrefix(prefix); err == nil {
		return cat
	}
	cat, err := m.AddCategory(adminSession(t, m), CategoryInput{
		Name:   "Test Category " + prefix,
		Prefix: prefix,
	})
	require.NoError(t, err)
	return cat
}

var bookSeq int

func newBook(t *testing.T, m *Manager, title string, copies int) *Book {
	t.Helper()
	cat := ensureCategory(t, m, "10")
	bookSeq++
	book, err := m.RegisterBook(adminSession(t, m), RegisterBookInput{
		Title:      title,
		Author:     "Test Author",
		CategoryID: cat.ID,
		Suffix:     fmt.Sprintf("%03d", bookSeq%1000),
		Copies:     copies,
	})
	require.NoError(t, err)
	return book
}

// setClock pins the orchestrator's clock so overdue scenarios are
// deterministic.
func setClock(m *Manager, now time.Time) {
	m.loans.now = func() time.Time { return now }
}

func bookStatus(t *testing.T, m *Manager, bookID int64) BookStatus {
	t.Helper()
	book, err := m.db.FindBookByID(bookID)
	require.NoError(t, err)
	return book.Status
}
