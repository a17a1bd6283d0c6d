package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cityboard/listings/internal/models"
)

// PostgresAdRepo implements AdRepo using PostgreSQL.
type PostgresAdRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAdRepo(pool *pgxpool.Pool) *PostgresAdRepo {
	return &PostgresAdRepo{pool: pool}
}

const adColumns = `id, title, image_url, redirect_url, action_type,
	popup_image_url, popup_description, pages, placement, position,
	target_state, target_city, target_pincode,
	start_date, end_date, status, created_at, updated_at`

func (r *PostgresAdRepo) GetByID(ctx context.Context, id string) (*models.Ad, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+adColumns+` FROM ads WHERE id = $1`, id)
	ad, err := scanAd(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ad: %w", err)
	}
	return ad, nil
}

func (r *PostgresAdRepo) ListAll(ctx context.Context) ([]*models.Ad, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+adColumns+` FROM ads ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ads: %w", err)
	}
	defer rows.Close()
	return collectAds(rows)
}

// QueryActive selects ACTIVE ads whose pages array contains pageKey.
// created_at ASC keeps fetch order stable so the selector's stable
// sort is deterministic.
func (r *PostgresAdRepo) QueryActive(ctx context.Context, pageKey string) ([]*models.Ad, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+adColumns+`
		FROM ads
		WHERE status = $1 AND $2 = ANY(pages)
		ORDER BY created_at ASC
	`, models.AdStatusActive, pageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query active ads: %w", err)
	}
	defer rows.Close()
	return collectAds(rows)
}

func (r *PostgresAdRepo) Upsert(ctx context.Context, ad *models.Ad) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ads (`+adColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			image_url = EXCLUDED.image_url,
			redirect_url = EXCLUDED.redirect_url,
			action_type = EXCLUDED.action_type,
			popup_image_url = EXCLUDED.popup_image_url,
			popup_description = EXCLUDED.popup_description,
			pages = EXCLUDED.pages,
			placement = EXCLUDED.placement,
			position = EXCLUDED.position,
			target_state = EXCLUDED.target_state,
			target_city = EXCLUDED.target_city,
			target_pincode = EXCLUDED.target_pincode,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`,
		ad.ID, ad.Title, ad.ImageURL, ad.RedirectURL, ad.ActionType,
		ad.PopupImageURL, ad.PopupDescription, ad.Pages, ad.Placement, ad.Position,
		ad.TargetState, ad.TargetCity, ad.TargetPincode,
		ad.StartDate, ad.EndDate, ad.Status, ad.CreatedAt, ad.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert ad: %w", err)
	}
	return nil
}

func (r *PostgresAdRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM ads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ad: %w", err)
	}
	return nil
}

func scanAd(row pgx.Row) (*models.Ad, error) {
	var ad models.Ad
	err := row.Scan(
		&ad.ID, &ad.Title, &ad.ImageURL, &ad.RedirectURL, &ad.ActionType,
		&ad.PopupImageURL, &ad.PopupDescription, &ad.Pages, &ad.Placement, &ad.Position,
		&ad.TargetState, &ad.TargetCity, &ad.TargetPincode,
		&ad.StartDate, &ad.EndDate, &ad.Status, &ad.CreatedAt, &ad.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ad, nil
}

func collectAds(rows pgx.Rows) ([]*models.Ad, error) {
	var adList []*models.Ad
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, err
		}
		adList = append(adList, ad)
	}
	return adList, rows.Err()
}
