package storage

import (
	"context"

	"github.com/cityboard/listings/internal/models"
)

// =============================================
// AD REPOSITORY
// =============================================

// AdRepo defines operations for advertisement storage.
type AdRepo interface {
	// Basic CRUD
	ListAll(ctx context.Context) ([]*models.Ad, error)
	GetByID(ctx context.Context, id string) (*models.Ad, error)
	Upsert(ctx context.Context, ad *models.Ad) error
	Delete(ctx context.Context, id string) error

	// QueryActive returns ACTIVE ads eligible for the given page key,
	// in stable fetch order. This is the ad selection input.
	QueryActive(ctx context.Context, pageKey string) ([]*models.Ad, error)
}

// =============================================
// LISTING REPOSITORY
// =============================================

// ListingRepo defines operations for listing storage.
type ListingRepo interface {
	ListAll(ctx context.Context) ([]*models.Listing, error)
	ListByKind(ctx context.Context, kind models.ListingKind) ([]*models.Listing, error)
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	Insert(ctx context.Context, l *models.Listing) error
	Update(ctx context.Context, l *models.Listing) error
	Delete(ctx context.Context, id string) error
}

// =============================================
// CATEGORY REPOSITORY
// =============================================

// CategoryRepo defines read operations for categories and subcategories.
type CategoryRepo interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
	ListSubcategories(ctx context.Context, categoryID string) ([]*models.Subcategory, error)
}
