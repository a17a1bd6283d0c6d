package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/cityboard/listings/internal/models"
)

// In-memory repositories back the no-database development mode and
// tests. Insertion order is preserved so QueryActive has the same
// stable fetch order the Postgres repo guarantees.

// InMemoryAdRepo stores ads in memory keyed by ID.
type InMemoryAdRepo struct {
	mu    sync.RWMutex
	ads   map[string]*models.Ad
	order []string
}

func NewInMemoryAdRepo() *InMemoryAdRepo {
	return &InMemoryAdRepo{ads: make(map[string]*models.Ad)}
}

func (r *InMemoryAdRepo) ListAll(ctx context.Context) ([]*models.Ad, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*models.Ad, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, r.ads[id])
	}
	return res, nil
}

func (r *InMemoryAdRepo) GetByID(ctx context.Context, id string) (*models.Ad, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ad, ok := r.ads[id]; ok {
		return ad, nil
	}
	return nil, nil
}

func (r *InMemoryAdRepo) QueryActive(ctx context.Context, pageKey string) ([]*models.Ad, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []*models.Ad
	for _, id := range r.order {
		ad := r.ads[id]
		if ad.Status == models.AdStatusActive && ad.HasPage(pageKey) {
			res = append(res, ad)
		}
	}
	return res, nil
}

// Upsert inserts or updates the given ad. A shallow copy is stored to
// prevent external mutation.
func (r *InMemoryAdRepo) Upsert(ctx context.Context, ad *models.Ad) error {
	if ad == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ads[ad.ID]; !exists {
		r.order = append(r.order, ad.ID)
	}
	cp := *ad
	r.ads[ad.ID] = &cp
	return nil
}

func (r *InMemoryAdRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ads[id]; !exists {
		return nil
	}
	delete(r.ads, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// InMemoryListingRepo stores listings in memory keyed by ID.
type InMemoryListingRepo struct {
	mu       sync.RWMutex
	listings map[string]*models.Listing
	order    []string
}

func NewInMemoryListingRepo() *InMemoryListingRepo {
	return &InMemoryListingRepo{listings: make(map[string]*models.Listing)}
}

func (r *InMemoryListingRepo) ListAll(ctx context.Context) ([]*models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*models.Listing, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, r.listings[id])
	}
	return res, nil
}

func (r *InMemoryListingRepo) ListByKind(ctx context.Context, kind models.ListingKind) ([]*models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []*models.Listing
	for _, id := range r.order {
		if l := r.listings[id]; l.Kind == kind {
			res = append(res, l)
		}
	}
	return res, nil
}

func (r *InMemoryListingRepo) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.listings[id]; ok {
		return l, nil
	}
	return nil, nil
}

func (r *InMemoryListingRepo) Insert(ctx context.Context, l *models.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.listings[l.ID]; exists {
		return fmt.Errorf("listing %s already exists", l.ID)
	}
	cp := *l
	r.listings[l.ID] = &cp
	r.order = append(r.order, l.ID)
	return nil
}

func (r *InMemoryListingRepo) Update(ctx context.Context, l *models.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.listings[l.ID]; !exists {
		return fmt.Errorf("listing %s not found", l.ID)
	}
	cp := *l
	r.listings[l.ID] = &cp
	return nil
}

func (r *InMemoryListingRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.listings[id]; !exists {
		return nil
	}
	delete(r.listings, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// InMemoryCategoryRepo serves a fixed category tree, useful for
// development and tests.
type InMemoryCategoryRepo struct {
	mu            sync.RWMutex
	categories    []*models.Category
	subcategories map[string][]*models.Subcategory
}

func NewInMemoryCategoryRepo() *InMemoryCategoryRepo {
	return &InMemoryCategoryRepo{subcategories: make(map[string][]*models.Subcategory)}
}

// Seed replaces the category tree.
func (r *InMemoryCategoryRepo) Seed(categories []*models.Category, subcategories []*models.Subcategory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories = categories
	r.subcategories = make(map[string][]*models.Subcategory)
	for _, sc := range subcategories {
		r.subcategories[sc.CategoryID] = append(r.subcategories[sc.CategoryID], sc)
	}
}

func (r *InMemoryCategoryRepo) ListCategories(ctx context.Context) ([]*models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*models.Category, len(r.categories))
	copy(res, r.categories)
	return res, nil
}

func (r *InMemoryCategoryRepo) ListSubcategories(ctx context.Context, categoryID string) ([]*models.Subcategory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	scs := r.subcategories[categoryID]
	res := make([]*models.Subcategory, len(scs))
	copy(res, scs)
	return res, nil
}
