package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Account represents a user row, including credential fields
// that never leave the db package boundary unfiltered.
type Account struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Username     string
	FirstName    string
	LastName     string
	Bio          string
	AvatarURL    string
	Location     string
	Latitude     *float64
	Longitude    *float64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// ErrAccountNotFound is returned when no matching user row exists.
var ErrAccountNotFound = errors.New("account not found")

const accountColumns = `
	id, email, password_hash, username, first_name, last_name, bio,
	avatar_url, location, latitude, longitude, is_active,
	created_at, updated_at, last_login_at
`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.Username,
		&a.FirstName,
		&a.LastName,
		&a.Bio,
		&a.AvatarURL,
		&a.Location,
		&a.Latitude,
		&a.Longitude,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("scanning account row: %w", err)
	}
	return &a, nil
}

// CreateAccount inserts a new user and returns the stored row.
func CreateAccount(email, passwordHash, username string) (*Account, error) {
	ctx, cancel := GetContext()
	defer cancel()

	row := Pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, username, last_login_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING `+accountColumns,
		email, passwordHash, username)

	account, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}
	return account, nil
}

// GetAccountByEmail loads a user by email.
func GetAccountByEmail(email string) (*Account, error) {
	ctx, cancel := GetContext()
	defer cancel()

	row := Pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM users WHERE email = $1 AND is_active = true
	`, email)

	return scanAccount(row)
}

// GetAccountByID loads a user by ID.
func GetAccountByID(userID uuid.UUID) (*Account, error) {
	ctx, cancel := GetContext()
	defer cancel()

	row := Pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM users WHERE id = $1 AND is_active = true
	`, userID)

	return scanAccount(row)
}

// AccountExists reports whether the email or username is already taken.
func AccountExists(email, username string) (bool, error) {
	ctx, cancel := GetContext()
	defer cancel()

	var exists bool
	err := Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 OR username = $2)
	`, email, username).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("checking account existence: %w", err)
	}
	return exists, nil
}

// UpdateAccountProfile updates the mutable profile fields.
func UpdateAccountProfile(userID uuid.UUID, firstName, lastName, bio, location string, latitude, longitude *float64) (*Account, error) {
	ctx, cancel := GetContext()
	defer cancel()

	row := Pool.QueryRow(ctx, `
		UPDATE users
		SET first_name = $1, last_name = $2, bio = $3, location = $4,
		    latitude = $5, longitude = $6, updated_at = NOW()
		WHERE id = $7 AND is_active = true
		RETURNING `+accountColumns,
		firstName, lastName, bio, location, latitude, longitude, userID)

	return scanAccount(row)
}

// TouchLastLogin records a successful login.
func TouchLastLogin(userID uuid.UUID) error {
	ctx, cancel := GetContext()
	defer cancel()

	_, err := Pool.Exec(ctx, `
		UPDATE users SET last_login_at = CURRENT_TIMESTAMP WHERE id = $1
	`, userID)

	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}
