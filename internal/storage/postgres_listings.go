package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cityboard/listings/internal/models"
)

// PostgresListingRepo implements ListingRepo using PostgreSQL.
// Location, contact and hours are stored as JSONB documents.
type PostgresListingRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresListingRepo(pool *pgxpool.Pool) *PostgresListingRepo {
	return &PostgresListingRepo{pool: pool}
}

const listingColumns = `id, kind, title, description, category_id, subcategory_id,
	attendance_mode, online_link, location, contact, image_urls, hours,
	starts_at, ends_at, terms_accepted, status, created_at, updated_at`

func (r *PostgresListingRepo) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	l, err := scanListing(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

func (r *PostgresListingRepo) ListAll(ctx context.Context) ([]*models.Listing, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+listingColumns+` FROM listings ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()
	return collectListings(rows)
}

func (r *PostgresListingRepo) ListByKind(ctx context.Context, kind models.ListingKind) ([]*models.Listing, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+listingColumns+` FROM listings WHERE kind = $1 ORDER BY created_at DESC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings by kind: %w", err)
	}
	defer rows.Close()
	return collectListings(rows)
}

func (r *PostgresListingRepo) Insert(ctx context.Context, l *models.Listing) error {
	return r.save(ctx, l, false)
}

func (r *PostgresListingRepo) Update(ctx context.Context, l *models.Listing) error {
	return r.save(ctx, l, true)
}

func (r *PostgresListingRepo) save(ctx context.Context, l *models.Listing, update bool) error {
	locationJSON, err := json.Marshal(l.Location)
	if err != nil {
		return fmt.Errorf("failed to marshal location: %w", err)
	}
	contactJSON, err := json.Marshal(l.Contact)
	if err != nil {
		return fmt.Errorf("failed to marshal contact: %w", err)
	}
	hoursJSON, err := json.Marshal(l.Hours)
	if err != nil {
		return fmt.Errorf("failed to marshal hours: %w", err)
	}

	if update {
		tag, err := r.pool.Exec(ctx, `
			UPDATE listings SET
				kind = $2, title = $3, description = $4,
				category_id = $5, subcategory_id = $6,
				attendance_mode = $7, online_link = $8,
				location = $9, contact = $10, image_urls = $11, hours = $12,
				starts_at = $13, ends_at = $14,
				terms_accepted = $15, status = $16, updated_at = $17
			WHERE id = $1
		`,
			l.ID, l.Kind, l.Title, l.Description,
			l.CategoryID, l.SubcategoryID,
			l.AttendanceMode, l.OnlineLink,
			locationJSON, contactJSON, l.ImageURLs, hoursJSON,
			l.StartsAt, l.EndsAt,
			l.TermsAccepted, l.Status, l.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update listing: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("listing %s not found", l.ID)
		}
		return nil
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO listings (`+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		l.ID, l.Kind, l.Title, l.Description, l.CategoryID, l.SubcategoryID,
		l.AttendanceMode, l.OnlineLink,
		locationJSON, contactJSON, l.ImageURLs, hoursJSON,
		l.StartsAt, l.EndsAt, l.TermsAccepted, l.Status, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

func (r *PostgresListingRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	return nil
}

func scanListing(row pgx.Row) (*models.Listing, error) {
	var l models.Listing
	var locationJSON, contactJSON, hoursJSON []byte

	err := row.Scan(
		&l.ID, &l.Kind, &l.Title, &l.Description, &l.CategoryID, &l.SubcategoryID,
		&l.AttendanceMode, &l.OnlineLink,
		&locationJSON, &contactJSON, &l.ImageURLs, &hoursJSON,
		&l.StartsAt, &l.EndsAt, &l.TermsAccepted, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(locationJSON) > 0 {
		if err := json.Unmarshal(locationJSON, &l.Location); err != nil {
			return nil, fmt.Errorf("failed to unmarshal location: %w", err)
		}
	}
	if len(contactJSON) > 0 {
		if err := json.Unmarshal(contactJSON, &l.Contact); err != nil {
			return nil, fmt.Errorf("failed to unmarshal contact: %w", err)
		}
	}
	if len(hoursJSON) > 0 {
		if err := json.Unmarshal(hoursJSON, &l.Hours); err != nil {
			return nil, fmt.Errorf("failed to unmarshal hours: %w", err)
		}
	}

	return &l, nil
}

func collectListings(rows pgx.Rows) ([]*models.Listing, error) {
	var listings []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
