package portal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/eringen/portal/pagination"
)

// Store wraps a SQLite database holding content, users and contact messages.
// Every statement is parameter-bound; table names come only from Kind.table.
type Store struct {
	db     *sql.DB
	hasher Hasher

	dummyOnce sync.Once
	dummy     string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithHasher replaces the default bcrypt password hasher.
func WithHasher(h Hasher) StoreOption {
	return func(s *Store) { s.hasher = h }
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates missing tables.
func NewStore(path string, opts ...StoreOption) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers run alongside the single writer; busy_timeout makes
	// writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := newStoreDB(db, opts...)
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newStoreDB(db *sql.DB, opts ...StoreOption) *Store {
	s := &Store{db: db, hasher: BcryptHasher{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS announcements (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    image TEXT NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    date TEXT NOT NULL,
    author TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS articles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    image TEXT NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    date TEXT NOT NULL,
    author TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
    name TEXT NOT NULL,
    username TEXT NOT NULL UNIQUE,
    password TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    message TEXT NOT NULL,
    ip_address TEXT NOT NULL
);
`)
	return err
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// ListContent returns one window of kind ordered by id descending, plus the
// unfiltered row count. The two reads are independent, so the count may
// trail a concurrent write.
func (s *Store) ListContent(ctx context.Context, kind Kind, w pagination.Window) ([]ContentItem, int, error) {
	if w.Offset < 0 || w.Limit < 1 {
		return nil, 0, fmt.Errorf("%w: offset %d limit %d", ErrInvalidPage, w.Offset, w.Limit)
	}
	table := kind.table()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, image, title, content, date, author FROM `+table+` ORDER BY id DESC LIMIT ? OFFSET ?`,
		w.Limit, w.Offset)
	if err != nil {
		return nil, 0, unavailable("list "+table, err)
	}
	defer rows.Close()

	var items []ContentItem
	for rows.Next() {
		item := ContentItem{Kind: kind}
		if err := rows.Scan(&item.ID, &item.ImagePath, &item.Title, &item.Body, &item.Date, &item.Author); err != nil {
			return nil, 0, unavailable("scan "+table, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, unavailable("list "+table, err)
	}

	total, err := s.CountContent(ctx, kind)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// CountContent returns the number of rows of kind.
func (s *Store) CountContent(ctx context.Context, kind Kind) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+kind.table()).Scan(&n); err != nil {
		return 0, unavailable("count "+kind.table(), err)
	}
	return n, nil
}

// GetContent returns the item with the given id. Only the first matching
// row is read.
func (s *Store) GetContent(ctx context.Context, kind Kind, id int64) (ContentItem, error) {
	item := ContentItem{Kind: kind}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, image, title, content, date, author FROM `+kind.table()+` WHERE id = ? LIMIT 1`, id).
		Scan(&item.ID, &item.ImagePath, &item.Title, &item.Body, &item.Date, &item.Author)
	if errors.Is(err, sql.ErrNoRows) {
		return ContentItem{}, fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
	}
	if err != nil {
		return ContentItem{}, unavailable("get "+kind.table(), err)
	}
	return item, nil
}

// AddContent inserts item and returns the id the database assigned.
// item.ID is ignored.
func (s *Store) AddContent(ctx context.Context, kind Kind, item ContentItem) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO `+kind.table()+` (image, title, content, date, author) VALUES (?, ?, ?, ?, ?)`,
		item.ImagePath, item.Title, item.Body, item.Date, item.Author)
	if err != nil {
		return 0, unavailable("insert "+kind.table(), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, unavailable("insert "+kind.table(), err)
	}
	return id, nil
}

// EditContent overwrites the row with item.ID. Updating a missing id is a
// silent no-op; the returned bool reports whether a row matched.
func (s *Store) EditContent(ctx context.Context, kind Kind, item ContentItem) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+kind.table()+` SET image = ?, title = ?, content = ?, date = ?, author = ? WHERE id = ?`,
		item.ImagePath, item.Title, item.Body, item.Date, item.Author, item.ID)
	if err != nil {
		return false, unavailable("update "+kind.table(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("update "+kind.table(), err)
	}
	return n > 0, nil
}

// DeleteContent removes a row by id. Deleting a missing id is not an error.
func (s *Store) DeleteContent(ctx context.Context, kind Kind, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+kind.table()+` WHERE id = ?`, id); err != nil {
		return unavailable("delete "+kind.table(), err)
	}
	return nil
}

// AddMessage appends a contact message.
func (s *Store) AddMessage(ctx context.Context, m ContactMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (name, email, message, ip_address) VALUES (?, ?, ?, ?)`,
		m.Name, m.Email, m.Body, m.OriginIP)
	if err != nil {
		return unavailable("insert messages", err)
	}
	return nil
}

// ListMessages returns every contact message, newest first.
func (s *Store) ListMessages(ctx context.Context) ([]ContactMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, email, message, ip_address FROM messages ORDER BY id DESC`)
	if err != nil {
		return nil, unavailable("list messages", err)
	}
	defer rows.Close()

	var msgs []ContactMessage
	for rows.Next() {
		var m ContactMessage
		if err := rows.Scan(&m.Name, &m.Email, &m.Body, &m.OriginIP); err != nil {
			return nil, unavailable("scan messages", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list messages", err)
	}
	return msgs, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
