package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cityboard/listings/internal/models"
)

// PostgresCategoryRepo implements CategoryRepo using PostgreSQL.
type PostgresCategoryRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCategoryRepo(pool *pgxpool.Pool) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{pool: pool}
}

func (r *PostgresCategoryRepo) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

func (r *PostgresCategoryRepo) ListSubcategories(ctx context.Context, categoryID string) ([]*models.Subcategory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, category_id, name FROM subcategories WHERE category_id = $1 ORDER BY name
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subcategories: %w", err)
	}
	defer rows.Close()

	var subcategories []*models.Subcategory
	for rows.Next() {
		var sc models.Subcategory
		if err := rows.Scan(&sc.ID, &sc.CategoryID, &sc.Name); err != nil {
			return nil, err
		}
		subcategories = append(subcategories, &sc)
	}
	return subcategories, rows.Err()
}
