package portal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher is the one-way password primitive used by the Store.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// BcryptHasher hashes with bcrypt. A zero Cost means bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h BcryptHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// dummyHash is verified against when the username does not exist, so a
// missing user costs the same as a wrong password.
func (s *Store) dummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummy, _ = s.hasher.Hash("portal-dummy-password")
	})
	return s.dummy
}

// Authenticate checks password for username and returns the display name on
// success. A wrong password and an unknown user both yield ok=false.
func (s *Store) Authenticate(ctx context.Context, username, password string) (ok bool, name string, err error) {
	var hash string
	err = s.db.QueryRowContext(ctx, `SELECT name, password FROM users WHERE username = ? LIMIT 1`, username).
		Scan(&name, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		s.hasher.Verify(s.dummyHash(), password)
		return false, "", nil
	}
	if err != nil {
		return false, "", unavailable("authenticate", err)
	}
	if !s.hasher.Verify(hash, password) {
		return false, "", nil
	}
	return true, name, nil
}

// ListUsers returns every user ordered by username. Hashes are not loaded.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, username FROM users ORDER BY username`)
	if err != nil {
		return nil, unavailable("list users", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Name, &u.Username); err != nil {
			return nil, unavailable("scan users", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list users", err)
	}
	return users, nil
}

// GetUser returns a user by username without its hash.
func (s *Store) GetUser(ctx context.Context, username string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `SELECT name, username FROM users WHERE username = ? LIMIT 1`, username).
		Scan(&u.Name, &u.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user %q", ErrNotFound, username)
	}
	if err != nil {
		return User{}, unavailable("get user", err)
	}
	return u, nil
}

// AddUser hashes password and inserts a user. A taken username fails with
// ErrDuplicateKey.
func (s *Store) AddUser(ctx context.Context, name, username, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO users (name, username, password) VALUES (?, ?, ?)`,
		name, username, hash)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username %q", ErrDuplicateKey, username)
	}
	if err != nil {
		return unavailable("insert user", err)
	}
	return nil
}

// EditUser renames the user identified by username. An empty password keeps
// the stored hash; otherwise the hash is replaced. A missing user is a no-op.
func (s *Store) EditUser(ctx context.Context, username, name, newUsername, password string) error {
	var err error
	if password == "" {
		_, err = s.db.ExecContext(ctx, `UPDATE users SET name = ?, username = ? WHERE username = ?`,
			name, newUsername, username)
	} else {
		hash, herr := s.hasher.Hash(password)
		if herr != nil {
			return fmt.Errorf("hash password: %w", herr)
		}
		_, err = s.db.ExecContext(ctx, `UPDATE users SET name = ?, username = ?, password = ? WHERE username = ?`,
			name, newUsername, hash, username)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username %q", ErrDuplicateKey, newUsername)
	}
	if err != nil {
		return unavailable("update user", err)
	}
	return nil
}

// DeleteUser removes a user by username. A missing user is not an error.
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username); err != nil {
		return unavailable("delete user", err)
	}
	return nil
}
