package folio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrPasswordRequired is returned when creating the admin account without a
// password.
var ErrPasswordRequired = errors.New("password is required to create the admin account")

// GetAdminUser returns the admin account, or ErrNotFound when none exists.
func (s *Store) GetAdminUser(ctx context.Context) (AdminUser, error) {
	var (
		u                  AdminUser
		createdAt, updated string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at, updated_at
		FROM admin LIMIT 1`).Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt, &updated)
	if err != nil {
		return AdminUser{}, err
	}
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updated)
	return u, nil
}

// VerifyPassword reports whether username and password match the admin
// account.
func (s *Store) VerifyPassword(ctx context.Context, username, password string) (bool, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT password_hash FROM admin WHERE username = ?`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load admin: %w", err)
	}
	ok, err := CheckPassword(hash, password)
	if err != nil {
		s.log.Error().Err(err).Msg("stored admin password hash is unreadable")
		return false, nil
	}
	return ok, nil
}

// UpdateAdminCredentials renames the admin and, when password is non-nil,
// replaces its password. If no admin exists yet one is created, which needs
// a non-empty password.
func (s *Store) UpdateAdminCredentials(ctx context.Context, username string, password *string) error {
	var hash string
	if password != nil {
		h, err := HashPassword(*password)
		if err != nil {
			return err
		}
		hash = h
	}

	return s.Tx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin`).Scan(&exists); err != nil {
			return fmt.Errorf("check admin: %w", err)
		}
		stamp := s.stamp()

		if exists == 0 {
			if password == nil || *password == "" {
				return ErrPasswordRequired
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO admin (id, username, password_hash, created_at, updated_at)
				VALUES (1, ?, ?, ?, ?)`, username, hash, stamp, stamp)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			return nil
		}

		if password != nil {
			_, err := tx.ExecContext(ctx,
				`UPDATE admin SET username = ?, password_hash = ?, updated_at = ?`, username, hash, stamp)
			if err != nil {
				return fmt.Errorf("update admin: %w", err)
			}
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE admin SET username = ?, updated_at = ?`, username, stamp); err != nil {
			return fmt.Errorf("update admin: %w", err)
		}
		return nil
	})
}

// EnsureAdmin creates the admin account from the bootstrap credentials when
// none exists. An existing account is left untouched.
func (s *Store) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := s.GetAdminUser(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("load admin: %w", err)
	}
	if err := s.UpdateAdminCredentials(ctx, username, &password); err != nil {
		return err
	}
	s.log.Info().Str("username", username).Msg("admin account created")
	return nil
}
