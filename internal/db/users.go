package db

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

const userColumns = "id, username, passcode, role, created_at, updated_at"

func scanUser(s rowScanner) (*User, error) {
	var u User
	if err := s.Scan(&u.ID, &u.Username, &u.Passcode, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// CreateUser inserts a user. Returns ErrConflict when the username or
// passcode is already taken.
func (dbc *DatabaseConnection) CreateUser(ctx context.Context, username, passcode, role string) (*User, error) {
	if role == "" {
		role = RoleUser
	}
	id := uuid.NewString()
	_, err := dbc.execWrite(ctx,
		"INSERT INTO users (id, username, passcode, role) VALUES (?, ?, ?, ?)",
		id, username, passcode, role,
	)
	if err != nil {
		if IsUniqueErr(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return dbc.GetUserByID(ctx, id)
}

func (dbc *DatabaseConnection) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := dbc.queryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? AND is_deleted = 0", id)
	return scanUser(row)
}

func (dbc *DatabaseConnection) GetUserByPasscode(ctx context.Context, passcode string) (*User, error) {
	row := dbc.queryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE passcode = ? AND is_deleted = 0", passcode)
	return scanUser(row)
}

func (dbc *DatabaseConnection) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := dbc.query(ctx,
		"SELECT "+userColumns+" FROM users WHERE is_deleted = 0 ORDER BY created_at ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SoftDeleteUser marks a user deleted. Their passcode stops working but
// projects they own remain.
func (dbc *DatabaseConnection) SoftDeleteUser(ctx context.Context, id string) error {
	_, err := dbc.execWrite(ctx, "UPDATE users SET is_deleted = 1 WHERE id = ?", id)
	return err
}

// EnsureAdmin creates the admin user if missing, or syncs its passcode
// when an explicit one is configured and changed. With no configured
// passcode a random one is generated at creation and logged once; it is
// never rotated on later startups. Called once at startup.
func (dbc *DatabaseConnection) EnsureAdmin(ctx context.Context, passcode string) error {
	row := dbc.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE username = 'admin'")
	admin, err := scanUser(row)
	if errors.Is(err, ErrNotFound) {
		generated := false
		if passcode == "" {
			passcode, err = randomPasscode()
			if err != nil {
				return fmt.Errorf("generate admin passcode: %w", err)
			}
			generated = true
		}
		if _, err := dbc.CreateUser(ctx, "admin", passcode, RoleAdmin); err != nil {
			return fmt.Errorf("create admin user: %w", err)
		}
		if generated {
			slog.Info("Created admin user with generated passcode", "passcode", passcode)
		} else {
			slog.Info("Created admin user")
		}
		return nil
	}
	if err != nil {
		return err
	}

	if passcode != "" && admin.Passcode != passcode {
		if _, err := dbc.execWrite(ctx,
			"UPDATE users SET passcode = ? WHERE username = 'admin'", passcode); err != nil {
			return fmt.Errorf("sync admin passcode: %w", err)
		}
		slog.Info("Updated admin passcode to match configuration")
	}
	return nil
}

func randomPasscode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
