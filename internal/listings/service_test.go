package listings

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/cityboard/listings/internal/models"
	"github.com/cityboard/listings/internal/storage"
)

func newTestService() (*Service, *storage.InMemoryListingRepo, *storage.InMemoryCategoryRepo) {
	repo := storage.NewInMemoryListingRepo()
	categories := storage.NewInMemoryCategoryRepo()
	categories.Seed(
		[]*models.Category{{ID: "cat-1", Name: "Markets"}, {ID: "cat-2", Name: "Services"}},
		[]*models.Subcategory{
			{ID: "sub-1", CategoryID: "cat-1", Name: "Food"},
			{ID: "sub-2", CategoryID: "cat-1", Name: "Crafts"},
		},
	)
	return NewService(repo, categories, zap.NewNop(), nil), repo, categories
}

func TestCreateListing(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()

	l := validEventListing()
	l.ID = ""
	res, err := svc.Create(ctx, l)
	if err != nil {
		t.Fatal(err)
	}
	if res.Listing.ID == "" {
		t.Error("expected generated ID")
	}
	if res.Listing.Status != models.ListingStatusPending {
		t.Errorf("status = %s, want PENDING", res.Listing.Status)
	}
	if res.Listing.CreatedAt.IsZero() {
		t.Error("created_at not stamped")
	}

	stored, err := repo.GetByID(ctx, res.Listing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored == nil {
		t.Fatal("listing not persisted")
	}
}

func TestCreateRejectsInvalidListing(t *testing.T) {
	svc, repo, _ := newTestService()

	l := validEventListing()
	l.Title = ""
	_, err := svc.Create(context.Background(), l)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !hasFieldError(verr.Fields, "title") {
		t.Errorf("expected title error, got %v", verr.Fields)
	}

	all, _ := repo.ListAll(context.Background())
	if len(all) != 0 {
		t.Error("invalid listing must not be persisted")
	}
}

func TestCreateSurfacesWarningsWithoutBlocking(t *testing.T) {
	svc, _, _ := newTestService()

	l := validEventListing()
	l.Description = "brief"
	res, err := svc.Create(context.Background(), l)
	if err != nil {
		t.Fatal(err)
	}
	if !hasWarning(res.Warnings, "short_description") {
		t.Errorf("expected short_description warning, got %v", res.Warnings)
	}
}

func TestUpdateListing(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	created, err := svc.Create(ctx, validEventListing())
	if err != nil {
		t.Fatal(err)
	}

	updated := validEventListing()
	updated.Title = "Autumn Market"
	res, err := svc.Update(ctx, created.Listing.ID, updated)
	if err != nil {
		t.Fatal(err)
	}
	if res.Listing.Title != "Autumn Market" {
		t.Errorf("title = %s", res.Listing.Title)
	}
	if !res.Listing.CreatedAt.Equal(created.Listing.CreatedAt) {
		t.Error("created_at must be preserved on update")
	}
	// Kind is immutable and taken from the stored record.
	if res.Listing.Kind != created.Listing.Kind {
		t.Error("kind changed on update")
	}
}

func TestUpdateMissingListing(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Update(context.Background(), "nope", validEventListing()); err == nil {
		t.Error("expected error for missing listing")
	}
}

func TestFormOptions(t *testing.T) {
	svc, _, _ := newTestService()

	opts, err := svc.FormOptions(context.Background(), "cat-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(opts.Categories) != 2 {
		t.Errorf("got %d categories, want 2", len(opts.Categories))
	}
	if len(opts.Subcategories) != 2 {
		t.Errorf("got %d subcategories, want 2", len(opts.Subcategories))
	}
}

func TestFormOptionsWithoutCategory(t *testing.T) {
	svc, _, _ := newTestService()

	opts, err := svc.FormOptions(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(opts.Subcategories) != 0 {
		t.Errorf("expected no subcategories, got %d", len(opts.Subcategories))
	}
}

func TestListByKind(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	event := validEventListing()
	if _, err := svc.Create(ctx, event); err != nil {
		t.Fatal(err)
	}

	buddy := validEventListing()
	buddy.ID = "l2"
	buddy.Kind = models.ListingKindBuddyService
	buddy.StartsAt = nil
	buddy.EndsAt = nil
	if _, err := svc.Create(ctx, buddy); err != nil {
		t.Fatal(err)
	}

	events, err := svc.List(ctx, models.ListingKindEvent)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Errorf("got %d events, want 1", len(events))
	}

	all, err := svc.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("got %d listings, want 2", len(all))
	}
}
