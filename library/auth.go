package library

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns the bcrypt hash stored for an account.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Login verifies credentials against the active account with the given
// name and produces the Session passed into every subsequent operation.
// Inactive accounts cannot log in; a wrong name and a wrong password are
// indistinguishable to the operator.
func (m *Manager) Login(name, password string) (Session, error) {
	user, err := m.db.FindUserByName(name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}

	return Session{UserID: user.ID, Name: user.Name, Role: user.Role}, nil
}

// ResetPassword stores a new bcrypt hash for the user. Admin-only, except
// for a user resetting their own password.
func (m *Manager) ResetPassword(sess Session, userID int64, newPassword string) error {
	if sess.Role != RoleAdmin && sess.UserID != userID {
		return fmt.Errorf("reset password: %w", ErrForbidden)
	}
	user, err := m.db.FindUserByID(userID)
	if err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return m.db.UpdateUser(user)
}
