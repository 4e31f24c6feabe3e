package repository

import (
	"context"
	"errors"
	"fmt"

	"food-rescue-backend/internal/geo"
	"food-rescue-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, email, password_hash, role, phone, address, organization,
	verified, active, latitude, longitude, push_token, donations_count, pickups_count, created_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	var lat, lng *float64
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&user.Phone, &user.Address, &user.Organization,
		&user.Verified, &user.Active, &lat, &lng, &user.PushToken,
		&user.DonationsCount, &user.PickupsCount, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Location = pointFromColumns(lat, lng)
	return &user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	lat, lng := pointColumns(user.Location)
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role,
		user.Phone, user.Address, user.Organization,
		user.Verified, user.Active, lat, lng, user.PushToken,
		user.DonationsCount, user.PickupsCount, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email already registered: %w", models.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// ListNotifiable returns active, verified users of a role that have a location
func (r *UserRepository) ListNotifiable(ctx context.Context, role models.Role) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = $1 AND active AND verified
			AND latitude IS NOT NULL AND longitude IS NOT NULL
	`
	rows, err := r.db.Query(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) exec(ctx context.Context, what, query string, args ...interface{}) error {
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", what, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %w", models.ErrNotFound)
	}
	return nil
}

// IncrementDonations bumps the donor's donation counter
func (r *UserRepository) IncrementDonations(ctx context.Context, id string) error {
	return r.exec(ctx, "donations count",
		`UPDATE users SET donations_count = donations_count + 1 WHERE id = $1`, id)
}

// UpdateLocation updates or clears the user's coordinate
func (r *UserRepository) UpdateLocation(ctx context.Context, id string, loc *geo.Point) error {
	lat, lng := pointColumns(loc)
	return r.exec(ctx, "location",
		`UPDATE users SET latitude = $1, longitude = $2 WHERE id = $3`, lat, lng, id)
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, id string, pushToken *string) error {
	return r.exec(ctx, "push token",
		`UPDATE users SET push_token = $1 WHERE id = $2`, pushToken, id)
}

// SetVerified sets the verification flag
func (r *UserRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	return r.exec(ctx, "verified flag",
		`UPDATE users SET verified = $1 WHERE id = $2`, verified, id)
}

// SetActive sets the active flag
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.exec(ctx, "active flag",
		`UPDATE users SET active = $1 WHERE id = $2`, active, id)
}
