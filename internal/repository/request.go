package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-rescue-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requestColumns = `id, listing_id, requester_id, message, status, created_at, updated_at`

// RequestRepository handles database operations for pickup requests
type RequestRepository struct {
	db *pgxpool.Pool
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{db: db}
}

func scanRequest(row pgx.Row) (*models.Request, error) {
	var req models.Request
	err := row.Scan(
		&req.ID, &req.ListingID, &req.RequesterID, &req.Message, &req.Status,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// CreateForAvailable inserts a request while holding the listing row. The
// listing update doubles as the availability check, so a listing accepted
// or expired concurrently rejects the late request.
func (r *RequestRepository) CreateForAvailable(ctx context.Context, req *models.Request, now time.Time) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE listings SET requests_count = requests_count + 1
			WHERE id = $1 AND status = 'available' AND expires_at > $2
		`, req.ListingID, now)
		if err != nil {
			return fmt.Errorf("failed to reserve listing: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("listing not available: %w", models.ErrNotFound)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO requests (`+requestColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, req.ID, req.ListingID, req.RequesterID, req.Message, req.Status, req.CreatedAt, req.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("listing already requested by this user: %w", models.ErrDuplicate)
			}
			return fmt.Errorf("failed to insert request: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a request by ID
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("request not found: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

// ListByListing retrieves all requests for a listing, oldest first
func (r *RequestRepository) ListByListing(ctx context.Context, listingID string) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE listing_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requests: %w", err)
	}
	return requests, nil
}

// Accept moves the listing to requested, accepts the request and rejects
// the remaining pending requests, all in one transaction.
func (r *RequestRepository) Accept(ctx context.Context, id, listingID string, at time.Time) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE listings SET status = 'requested'
			WHERE id = $1 AND status = 'available' AND expires_at > $2
		`, listingID, at)
		if err != nil {
			return fmt.Errorf("failed to update listing: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("listing is no longer available: %w", models.ErrInvalidTransition)
		}

		result, err = tx.Exec(ctx, `
			UPDATE requests SET status = 'accepted', updated_at = $3
			WHERE id = $1 AND listing_id = $2 AND status = 'pending'
		`, id, listingID, at)
		if err != nil {
			return fmt.Errorf("failed to accept request: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("request is not pending: %w", models.ErrInvalidTransition)
		}

		_, err = tx.Exec(ctx, `
			UPDATE requests SET status = 'rejected', updated_at = $3
			WHERE listing_id = $1 AND id <> $2 AND status = 'pending'
		`, listingID, id, at)
		if err != nil {
			return fmt.Errorf("failed to reject other requests: %w", err)
		}
		return nil
	})
}

// Reject moves a pending request to rejected
func (r *RequestRepository) Reject(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE requests SET status = 'rejected', updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to reject request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("request is not pending: %w", models.ErrInvalidTransition)
	}
	return nil
}

// CountByRequester groups an NGO's requests by status
func (r *RequestRepository) CountByRequester(ctx context.Context, requesterID string) (*models.RequestCounts, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM requests WHERE requester_id = $1 GROUP BY status`, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}
	defer rows.Close()

	counts := &models.RequestCounts{}
	for rows.Next() {
		var status models.RequestStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan request count: %w", err)
		}
		counts.Total += n
		switch status {
		case models.RequestPending:
			counts.Pending = n
		case models.RequestAccepted:
			counts.Accepted = n
		case models.RequestRejected:
			counts.Rejected = n
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating request counts: %w", err)
	}
	return counts, nil
}
