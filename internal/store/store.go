package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/clinicbook/internal/encryption"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidReference = errors.New("invalid reference")
	ErrDatabase         = errors.New("database error")
)

// postgres error codes
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Store runs one parameterized statement per operation on a connection
// checked out of the shared pool for the duration of that statement.
type Store struct {
	db     *sql.DB
	cipher encryption.Cipher
	now    func() time.Time
}

type Option func(*Store)

// WithCipher encrypts appointment diagnosis and notes at rest.
func WithCipher(c encryption.Cipher) Option {
	return func(s *Store) { s.cipher = c }
}

func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withConn acquires a pooled connection, runs fn and releases the
// connection on every path.
func (s *Store) withConn(ctx context.Context, op string, fn func(*sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return classify(op, err)
	}
	defer conn.Close()

	if err := fn(conn); err != nil {
		return classify(op, err)
	}
	return nil
}

func classify(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %w", op, ErrConflict)
		case foreignKeyViolation:
			return fmt.Errorf("%s: %w", op, ErrInvalidReference)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrDatabase, op, err)
}

func (s *Store) seal(ctx context.Context, v string) (string, error) {
	if s.cipher == nil {
		return v, nil
	}
	return s.cipher.Encrypt(ctx, v)
}

func (s *Store) open(ctx context.Context, v string) (string, error) {
	if s.cipher == nil {
		return v, nil
	}
	return s.cipher.Decrypt(ctx, v)
}

type scanner interface {
	Scan(dest ...any) error
}
