package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// VerificationStatus values persisted inside a store's verification log.
// A request is resolved to approved or rejected before it is appended, so
// "pending" never reaches the database.
const (
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

// Store represents a candidate amala spot submitted by a user. It stays
// unverified until enough verification requests are approved.
type Store struct {
	ID                   int64                 `json:"id"`
	PlaceID              string                `json:"place_id"`
	Name                 string                `json:"name"`
	Phone                string                `json:"phone"`
	Location             string                `json:"location"`
	Latitude             *float64              `json:"latitude,omitempty"`
	Longitude            *float64              `json:"longitude,omitempty"`
	OpensAt              string                `json:"opens_at"`
	ClosesAt             string                `json:"closes_at"`
	Description          string                `json:"description"`
	ImageURL             *string               `json:"image_url,omitempty"`
	CloudinaryPublicID   *string               `json:"cloudinary_public_id,omitempty"`
	VerifiedBy           string                `json:"verified_by"`
	IsVerified           bool                  `json:"is_verified"`
	VerifyCount          int                   `json:"verify_count"`
	VerificationRequests []VerificationRequest `json:"verification_requests"`
	CreatedBy            int64                 `json:"created_by"`
	CreatedByEmail       string                `json:"created_by_email"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
	VerifiedAt           *time.Time            `json:"verified_at,omitempty"`
}

// VerificationRequest is one adjudicated vote on a store's legitimacy.
// Once appended to the store's log it is never mutated or removed.
type VerificationRequest struct {
	Reason       string    `json:"reason"`
	ProofURL     string    `json:"proof_url"`
	ImageURL     *string   `json:"image_url,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
	SubmittedBy  int64     `json:"submitted_by"`
	AIEvaluation string    `json:"ai_evaluation"`
	Status       string    `json:"status"`
}

// ApprovedRequests counts the approved entries in the verification log.
// This is a fresh scan; verify_count tracks submissions, not approvals.
func (s *Store) ApprovedRequests() int {
	n := 0
	for _, req := range s.VerificationRequests {
		if req.Status == VerificationApproved {
			n++
		}
	}
	return n
}

type StoresStore struct {
	db *sql.DB
}

const storeColumns = `
	id, place_id, name, phone, location, latitude, longitude,
	opens_at, closes_at, description, image_url, cloudinary_public_id,
	verified_by, is_verified, verify_count, verification_requests,
	created_by, created_by_email, created_at, updated_at, verified_at
`

func scanStore(row interface{ Scan(...any) error }, s *Store) error {
	var requests []byte
	err := row.Scan(
		&s.ID, &s.PlaceID, &s.Name, &s.Phone, &s.Location, &s.Latitude, &s.Longitude,
		&s.OpensAt, &s.ClosesAt, &s.Description, &s.ImageURL, &s.CloudinaryPublicID,
		&s.VerifiedBy, &s.IsVerified, &s.VerifyCount, &requests,
		&s.CreatedBy, &s.CreatedByEmail, &s.CreatedAt, &s.UpdatedAt, &s.VerifiedAt,
	)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(requests, &s.VerificationRequests); err != nil {
		return fmt.Errorf("decode verification requests: %w", err)
	}
	return nil
}

func (s *StoresStore) Create(ctx context.Context, store *Store) error {
	query := `
		INSERT INTO stores (
			place_id, name, phone, location, latitude, longitude,
			opens_at, closes_at, description, image_url, cloudinary_public_id,
			verified_by, created_by, created_by_email
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, is_verified, verify_count, created_at, updated_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := s.db.QueryRowContext(ctx, query,
		store.PlaceID, store.Name, store.Phone, store.Location, store.Latitude, store.Longitude,
		store.OpensAt, store.ClosesAt, store.Description, store.ImageURL, store.CloudinaryPublicID,
		store.VerifiedBy, store.CreatedBy, store.CreatedByEmail,
	).Scan(&store.ID, &store.IsVerified, &store.VerifyCount, &store.CreatedAt, &store.UpdatedAt)
	if err != nil {
		return err
	}

	if store.VerificationRequests == nil {
		store.VerificationRequests = []VerificationRequest{}
	}
	return nil
}

// GetByRef resolves a store by its place_id, falling back to the numeric
// row id for clients that still reference stores that way.
func (s *StoresStore) GetByRef(ctx context.Context, ref string) (*Store, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM stores
		WHERE place_id = $1 OR id::text = $1
	`, storeColumns)

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var store Store
	err := scanStore(s.db.QueryRowContext(ctx, query, ref), &store)
	switch {
	case err == sql.ErrNoRows:
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	return &store, nil
}

func (s *StoresStore) ListByVerified(ctx context.Context, verified bool) ([]Store, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM stores
		WHERE is_verified = $1
		ORDER BY created_at DESC
	`, storeColumns)

	return s.list(ctx, query, verified)
}

func (s *StoresStore) ListByCreatorEmail(ctx context.Context, email string) ([]Store, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM stores
		WHERE created_by_email = $1
		ORDER BY created_at DESC
	`, storeColumns)

	return s.list(ctx, query, email)
}

func (s *StoresStore) list(ctx context.Context, query string, args ...any) ([]Store, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stores := []Store{}
	for rows.Next() {
		var store Store
		if err := scanStore(rows, &store); err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	return stores, rows.Err()
}

type StoreStats struct {
	TotalStores      int     `json:"total_stores"`
	VerifiedStores   int     `json:"verified_stores"`
	UnverifiedStores int     `json:"unverified_stores"`
	VerificationRate float64 `json:"verification_rate"`
}

func (s *StoresStore) Stats(ctx context.Context) (StoreStats, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_verified)
		FROM stores
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var stats StoreStats
	if err := s.db.QueryRowContext(ctx, query).Scan(&stats.TotalStores, &stats.VerifiedStores); err != nil {
		return StoreStats{}, err
	}
	stats.UnverifiedStores = stats.TotalStores - stats.VerifiedStores
	if stats.TotalStores > 0 {
		rate := float64(stats.VerifiedStores) / float64(stats.TotalStores) * 100
		stats.VerificationRate = float64(int(rate*100+0.5)) / 100
	}
	return stats, nil
}

// AppendVerification appends a resolved request to the store's verification
// log and bumps verify_count, as a single atomic statement so concurrent
// submissions cannot lose each other's appends. The updated store is
// returned so the caller can rescan the log for the approval threshold.
func (s *StoresStore) AppendVerification(ctx context.Context, storeID int64, req VerificationRequest) (*Store, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode verification request: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE stores
		SET verification_requests = verification_requests || $2::jsonb,
			verify_count = verify_count + 1,
			updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, storeColumns)

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var store Store
	err = scanStore(s.db.QueryRowContext(ctx, query, storeID, payload), &store)
	switch {
	case err == sql.ErrNoRows:
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	return &store, nil
}

// MarkVerified flips a store to verified. The transition is one-way and
// idempotent: verified_at keeps its original value if two submissions cross
// the threshold at the same time.
func (s *StoresStore) MarkVerified(ctx context.Context, storeID int64) error {
	query := `
		UPDATE stores
		SET is_verified = TRUE,
			verified_at = COALESCE(verified_at, NOW()),
			updated_at = NOW()
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	result, err := s.db.ExecContext(ctx, query, storeID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
