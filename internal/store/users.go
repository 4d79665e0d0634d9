package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/clinicbook/internal/models"
)

const userColumns = `id, email, name, notes, is_admin, created_at`

func scanUser(row scanner) (*models.AllowedUser, error) {
	var (
		u     models.AllowedUser
		name  sql.NullString
		notes sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &name, &notes, &u.IsAdmin, &u.CreatedAt); err != nil {
		return nil, err
	}
	if name.Valid {
		u.Name = &name.String
	}
	if notes.Valid {
		u.Notes = &notes.String
	}
	return &u, nil
}

// scanOptionalUser maps an empty result to (nil, nil).
func scanOptionalUser(row *sql.Row) (*models.AllowedUser, error) {
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// UserExists reports whether email is on the allow-list. The match is exact.
func (s *Store) UserExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.withConn(ctx, "user exists", func(c *sql.Conn) error {
		return c.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM allowed_users WHERE email = $1)`, email,
		).Scan(&exists)
	})
	return exists, err
}

// GetUserByEmail returns nil without error when no row matches.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.AllowedUser, error) {
	var u *models.AllowedUser
	err := s.withConn(ctx, "get user by email", func(c *sql.Conn) (err error) {
		u, err = scanOptionalUser(c.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM allowed_users WHERE email = $1`, email))
		return err
	})
	return u, err
}

// ListUsers returns every allowed user, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]models.AllowedUser, error) {
	users := []models.AllowedUser{}
	err := s.withConn(ctx, "list users", func(c *sql.Conn) error {
		rows, err := c.QueryContext(ctx,
			`SELECT `+userColumns+` FROM allowed_users ORDER BY created_at DESC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			users = append(users, *u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// AddUser inserts a user. A duplicate email is left untouched and yields
// (nil, nil), indistinguishable from any other insert that returned no row.
func (s *Store) AddUser(ctx context.Context, in models.NewAllowedUser) (*models.AllowedUser, error) {
	var u *models.AllowedUser
	err := s.withConn(ctx, "add user", func(c *sql.Conn) (err error) {
		u, err = scanOptionalUser(c.QueryRowContext(ctx,
			`INSERT INTO allowed_users (email, name, notes, is_admin)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (email) DO NOTHING
			 RETURNING `+userColumns,
			in.Email, in.Name, in.Notes, in.IsAdmin))
		return err
	})
	return u, err
}

// UpdateUser rewrites email and admin flag. Returns nil when id is unknown.
func (s *Store) UpdateUser(ctx context.Context, id int64, email string, isAdmin bool) (*models.AllowedUser, error) {
	var u *models.AllowedUser
	err := s.withConn(ctx, "update user", func(c *sql.Conn) (err error) {
		u, err = scanOptionalUser(c.QueryRowContext(ctx,
			`UPDATE allowed_users SET email = $1, is_admin = $2
			 WHERE id = $3
			 RETURNING `+userColumns,
			email, isAdmin, id))
		return err
	})
	return u, err
}

// DeleteUser removes a user and returns the deleted row, or nil when id is unknown.
func (s *Store) DeleteUser(ctx context.Context, id int64) (*models.AllowedUser, error) {
	var u *models.AllowedUser
	err := s.withConn(ctx, "delete user", func(c *sql.Conn) (err error) {
		u, err = scanOptionalUser(c.QueryRowContext(ctx,
			`DELETE FROM allowed_users WHERE id = $1 RETURNING `+userColumns, id))
		return err
	})
	return u, err
}
