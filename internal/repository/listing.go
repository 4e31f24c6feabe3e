package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"food-rescue-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const listingColumns = `id, donor_id, title, description, quantity, food_type, pickup_address,
	image_url, latitude, longitude, status, expires_at, requests_count, views_count,
	created_at, completed_at`

// ListingRepository handles database operations for listings
type ListingRepository struct {
	db *pgxpool.Pool
}

// NewListingRepository creates a new listing repository
func NewListingRepository(db *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{db: db}
}

func scanListing(row pgx.Row) (*models.Listing, error) {
	var l models.Listing
	var lat, lng *float64
	err := row.Scan(
		&l.ID, &l.DonorID, &l.Title, &l.Description, &l.Quantity, &l.FoodType, &l.PickupAddress,
		&l.ImageURL, &lat, &lng, &l.Status, &l.ExpiresAt, &l.RequestsCount, &l.ViewsCount,
		&l.CreatedAt, &l.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Location = pointFromColumns(lat, lng)
	return &l, nil
}

// Create creates a new listing
func (r *ListingRepository) Create(ctx context.Context, l *models.Listing) error {
	lat, lng := pointColumns(l.Location)
	query := `
		INSERT INTO listings (` + listingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.Exec(ctx, query,
		l.ID, l.DonorID, l.Title, l.Description, l.Quantity, l.FoodType, l.PickupAddress,
		l.ImageURL, lat, lng, l.Status, l.ExpiresAt, l.RequestsCount, l.ViewsCount,
		l.CreatedAt, l.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

// GetByID retrieves a listing by ID
func (r *ListingRepository) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	l, err := scanListing(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("listing not found: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

// List retrieves listings matching the filter, newest first
func (r *ListingRepository) List(ctx context.Context, f models.ListingFilter) ([]*models.Listing, error) {
	var where []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.DonorID != "" {
		where = append(where, "donor_id = "+arg(f.DonorID))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(f.Status))
	}
	if f.FoodType != "" {
		where = append(where, "food_type = "+arg(f.FoodType))
	}
	if f.ActiveAt != nil {
		where = append(where, "expires_at > "+arg(*f.ActiveAt))
	}
	if f.Query != "" {
		p := arg("%" + f.Query + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s OR pickup_address ILIKE %s)", p, p, p))
	}

	query := `SELECT ` + listingColumns + ` FROM listings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listings: %w", err)
	}
	return listings, nil
}

// IncrementViews bumps the listing's view counter
func (r *ListingRepository) IncrementViews(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `UPDATE listings SET views_count = views_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("listing not found: %w", models.ErrNotFound)
	}
	return nil
}

// Complete marks a requested or still-live available listing as picked up,
// rejects its pending requests and credits the accepted requester, all in
// one transaction. It returns the accepted request, or nil when there is none.
func (r *ListingRepository) Complete(ctx context.Context, id string, at time.Time) (*models.Request, error) {
	var accepted *models.Request
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE listings SET status = 'picked_up', completed_at = $2
			WHERE id = $1 AND (status = 'requested' OR (status = 'available' AND expires_at > $2))
		`, id, at)
		if err != nil {
			return fmt.Errorf("failed to complete listing: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("listing cannot be completed: %w", models.ErrInvalidTransition)
		}

		_, err = tx.Exec(ctx, `
			UPDATE requests SET status = 'rejected', updated_at = $2
			WHERE listing_id = $1 AND status = 'pending'
		`, id, at)
		if err != nil {
			return fmt.Errorf("failed to reject pending requests: %w", err)
		}

		req, err := scanRequest(tx.QueryRow(ctx,
			`SELECT `+requestColumns+` FROM requests WHERE listing_id = $1 AND status = 'accepted'`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get accepted request: %w", err)
		}

		result, err = tx.Exec(ctx,
			`UPDATE users SET pickups_count = pickups_count + 1 WHERE id = $1`, req.RequesterID)
		if err != nil {
			return fmt.Errorf("failed to increment pickups: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("requester %s not found: %w", req.RequesterID, models.ErrNotFound)
		}
		accepted = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// ExpireBefore expires all available listings past their expiry in one statement
func (r *ListingRepository) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE listings SET status = 'expired' WHERE status = 'available' AND expires_at <= $1`
	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire listings: %w", err)
	}
	return result.RowsAffected(), nil
}

// CountByDonor groups a donor's listings by status
func (r *ListingRepository) CountByDonor(ctx context.Context, donorID string) (*models.ListingCounts, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM listings WHERE donor_id = $1 GROUP BY status`, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}
	defer rows.Close()

	counts := &models.ListingCounts{}
	for rows.Next() {
		var status models.ListingStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan listing count: %w", err)
		}
		counts.Total += n
		switch status {
		case models.ListingAvailable:
			counts.Available = n
		case models.ListingRequested:
			counts.Requested = n
		case models.ListingPickedUp:
			counts.PickedUp = n
		case models.ListingExpired:
			counts.Expired = n
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing counts: %w", err)
	}
	return counts, nil
}
