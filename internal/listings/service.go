package listings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cityboard/listings/internal/metrics"
	"github.com/cityboard/listings/internal/models"
	"github.com/cityboard/listings/internal/storage"
)

// ErrNotFound is returned when an operation references a listing that
// does not exist.
var ErrNotFound = errors.New("listing not found")

// Service handles listing submissions: validation, ID and timestamp
// stamping, and persistence. Failures are reported back to the caller;
// nothing is retried.
type Service struct {
	repo       storage.ListingRepo
	categories storage.CategoryRepo
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewService(repo storage.ListingRepo, categories storage.CategoryRepo, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repo:       repo,
		categories: categories,
		logger:     logger,
		metrics:    m,
	}
}

// SubmitResult carries the persisted listing and any advisory warnings.
type SubmitResult struct {
	Listing  *models.Listing `json:"listing"`
	Warnings []Warning       `json:"warnings,omitempty"`
}

// Create validates and persists a new listing.
func (s *Service) Create(ctx context.Context, l *models.Listing) (*SubmitResult, error) {
	if fieldErrs := Validate(l); len(fieldErrs) > 0 {
		s.recordFailures(l, fieldErrs)
		return nil, &ValidationError{Fields: fieldErrs}
	}

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = models.ListingStatusPending
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	if err := s.repo.Insert(ctx, l); err != nil {
		if s.metrics != nil {
			s.metrics.RecordListingSubmission(string(l.Kind), "error")
		}
		return nil, fmt.Errorf("failed to insert listing: %w", err)
	}

	warnings := Warnings(l)
	s.recordWarnings(warnings)
	if s.metrics != nil {
		s.metrics.RecordListingSubmission(string(l.Kind), "created")
	}
	s.logger.Info("listing created",
		zap.String("id", l.ID),
		zap.String("kind", string(l.Kind)),
		zap.Int("warnings", len(warnings)),
	)

	return &SubmitResult{Listing: l, Warnings: warnings}, nil
}

// Update validates and persists changes to an existing listing.
func (s *Service) Update(ctx context.Context, id string, l *models.Listing) (*SubmitResult, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}

	l.ID = id
	l.Kind = existing.Kind
	if fieldErrs := Validate(l); len(fieldErrs) > 0 {
		s.recordFailures(l, fieldErrs)
		return nil, &ValidationError{Fields: fieldErrs}
	}

	l.CreatedAt = existing.CreatedAt
	l.UpdatedAt = time.Now().UTC()
	if l.Status == "" {
		l.Status = existing.Status
	}

	if err := s.repo.Update(ctx, l); err != nil {
		if s.metrics != nil {
			s.metrics.RecordListingSubmission(string(l.Kind), "error")
		}
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}

	warnings := Warnings(l)
	s.recordWarnings(warnings)
	if s.metrics != nil {
		s.metrics.RecordListingSubmission(string(l.Kind), "updated")
	}

	return &SubmitResult{Listing: l, Warnings: warnings}, nil
}

// Get returns a listing by ID, nil when absent.
func (s *Service) Get(ctx context.Context, id string) (*models.Listing, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns listings, optionally restricted to one kind.
func (s *Service) List(ctx context.Context, kind models.ListingKind) ([]*models.Listing, error) {
	if kind == "" {
		return s.repo.ListAll(ctx)
	}
	return s.repo.ListByKind(ctx, kind)
}

// Delete removes a listing.
func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	return s.repo.Delete(ctx, id)
}

// FormOptions is the data a listing form needs on load.
type FormOptions struct {
	Categories    []*models.Category    `json:"categories"`
	Subcategories []*models.Subcategory `json:"subcategories"`
}

// FormOptions fetches categories and subcategories in parallel. Both
// requests are awaited together; if either fails the whole load fails
// and the form starts with empty lists.
func (s *Service) FormOptions(ctx context.Context, categoryID string) (*FormOptions, error) {
	opts := &FormOptions{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		categories, err := s.categories.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("failed to load categories: %w", err)
		}
		opts.Categories = categories
		return nil
	})
	g.Go(func() error {
		if categoryID == "" {
			return nil
		}
		subcategories, err := s.categories.ListSubcategories(gctx, categoryID)
		if err != nil {
			return fmt.Errorf("failed to load subcategories: %w", err)
		}
		opts.Subcategories = subcategories
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("form options load failed", zap.Error(err))
		return nil, err
	}
	return opts, nil
}

func (s *Service) recordFailures(l *models.Listing, fieldErrs []FieldError) {
	if s.metrics == nil {
		return
	}
	for _, fe := range fieldErrs {
		s.metrics.RecordValidationFailure(fe.Field)
	}
	s.metrics.RecordListingSubmission(string(l.Kind), "invalid")
}

func (s *Service) recordWarnings(warnings []Warning) {
	if s.metrics == nil {
		return
	}
	for _, w := range warnings {
		s.metrics.RecordValidationWarning(w.Code)
	}
}
