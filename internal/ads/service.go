package ads

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cityboard/listings/internal/metrics"
	"github.com/cityboard/listings/internal/models"
	"github.com/cityboard/listings/internal/storage"
)

// Service orchestrates ad serving and management. Serving is a read
// path: query ACTIVE ads for a page (through an optional Redis
// read-through cache), drop ads without an image, then run the pure
// selector against the viewer context and today's date.
type Service struct {
	repo     storage.AdRepo
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics

	// now is overridable in tests.
	now func() time.Time
}

// NewService constructs an ad service. cache may be nil to disable
// the page query cache.
func NewService(repo storage.AdRepo, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

func pageCacheKey(pageKey string) string {
	return "ads:page:" + pageKey
}

// ServePage returns the placement buckets for one page view.
func (s *Service) ServePage(ctx context.Context, pageKey string, viewer models.ViewerContext) (models.PlacementBuckets, error) {
	start := time.Now()

	adList, cacheHit, err := s.fetchPageAds(ctx, pageKey)
	if err != nil {
		return nil, err
	}

	// Ads without an image are never displayed.
	withImages := adList[:0:0]
	for _, ad := range adList {
		if ad.ImageURL != "" {
			withImages = append(withImages, ad)
		}
	}

	today := s.now().Format("2006-01-02")
	buckets := Select(withImages, viewer, today)

	if s.metrics != nil {
		s.metrics.RecordAdRequest(pageKey)
		s.metrics.RecordSelection(cacheHit, time.Since(start))
		for placement, bucket := range buckets {
			if len(bucket) > 0 {
				s.metrics.RecordAdsServed(pageKey, string(placement), len(bucket))
			}
		}
	}

	return buckets, nil
}

// fetchPageAds returns the ACTIVE ads for a page, preferring the cache.
func (s *Service) fetchPageAds(ctx context.Context, pageKey string) ([]*models.Ad, bool, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, pageCacheKey(pageKey)).Bytes()
		if err == nil {
			var adList []*models.Ad
			if err := json.Unmarshal(raw, &adList); err == nil {
				if s.metrics != nil {
					s.metrics.RecordCache(true)
				}
				return adList, true, nil
			}
			// Corrupt entry, fall through to the repo.
			s.logger.Warn("dropping corrupt ad cache entry", zap.String("page", pageKey))
		} else if err != redis.Nil {
			s.logger.Warn("ad cache read failed", zap.String("page", pageKey), zap.Error(err))
		}
	}

	adList, err := s.repo.QueryActive(ctx, pageKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch ads for page %s: %w", pageKey, err)
	}
	if s.metrics != nil {
		s.metrics.RecordCache(false)
	}

	if s.cache != nil {
		if raw, err := json.Marshal(adList); err == nil {
			if err := s.cache.Set(ctx, pageCacheKey(pageKey), raw, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("ad cache write failed", zap.String("page", pageKey), zap.Error(err))
			}
		}
	}

	return adList, false, nil
}

// GetAd returns a single ad by ID, nil when absent.
func (s *Service) GetAd(ctx context.Context, id string) (*models.Ad, error) {
	return s.repo.GetByID(ctx, id)
}

// ListAds returns all ads regardless of status.
func (s *Service) ListAds(ctx context.Context) ([]*models.Ad, error) {
	return s.repo.ListAll(ctx)
}

// UpsertAd validates and saves an ad, assigning an ID when missing,
// and invalidates the page cache for every page the ad touches.
func (s *Service) UpsertAd(ctx context.Context, ad *models.Ad) error {
	if ad == nil {
		return nil
	}
	if ad.ID == "" {
		ad.ID = uuid.NewString()
	}
	if err := ad.Validate(); err != nil {
		return err
	}
	now := s.now().UTC()
	if ad.CreatedAt.IsZero() {
		ad.CreatedAt = now
	}
	ad.UpdatedAt = now

	if err := s.repo.Upsert(ctx, ad); err != nil {
		return err
	}
	s.invalidatePages(ctx, ad.Pages)
	return nil
}

// DeleteAd removes an ad and invalidates its page caches.
func (s *Service) DeleteAd(ctx context.Context, id string) error {
	ad, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if ad != nil {
		s.invalidatePages(ctx, ad.Pages)
	}
	return nil
}

func (s *Service) invalidatePages(ctx context.Context, pages []string) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(pages))
	for _, p := range pages {
		keys = append(keys, pageCacheKey(p))
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("ad cache invalidation failed", zap.Error(err))
	}
}
