package adevents

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cityboard/listings/internal/metrics"
	"github.com/cityboard/listings/internal/models"
	"github.com/cityboard/listings/internal/storage"
)

var (
	// ErrAdNotFound is returned when a click references an unknown ad.
	ErrAdNotFound = errors.New("ad not found")
	// ErrPopupNotImplemented marks the popup action type's click
	// behavior, which has no definition yet.
	ErrPopupNotImplemented = errors.New("popup click handling not implemented")
)

type EventType string

const (
	EventImpression EventType = "impression"
	EventClick      EventType = "click"
)

// Event is one ad interaction, appended to the analytics log.
type Event struct {
	ID            string
	AdID          string
	Type          EventType
	PageKey       string
	Placement     string
	ViewerState   string
	ViewerCity    string
	ViewerPincode string
	CreatedAt     time.Time
}

// Store appends ad events.
type Store interface {
	Save(ctx context.Context, e *Event) error
}

// Service records ad interactions and resolves click destinations.
// Event recording is best-effort: a failed write is logged and never
// blocks serving.
type Service struct {
	store   Store
	adRepo  storage.AdRepo
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewService(store Store, adRepo storage.AdRepo, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		adRepo:  adRepo,
		logger:  logger,
		metrics: m,
	}
}

// RecordImpressions logs one impression per served ad.
func (s *Service) RecordImpressions(ctx context.Context, pageKey string, viewer models.ViewerContext, buckets models.PlacementBuckets) {
	if s.store == nil {
		return
	}
	now := time.Now().UTC()
	for placement, bucket := range buckets {
		for _, ad := range bucket {
			e := &Event{
				ID:            uuid.NewString(),
				AdID:          ad.ID,
				Type:          EventImpression,
				PageKey:       pageKey,
				Placement:     string(placement),
				ViewerState:   viewer.State,
				ViewerCity:    viewer.City,
				ViewerPincode: viewer.Pincode,
				CreatedAt:     now,
			}
			if err := s.store.Save(ctx, e); err != nil {
				s.logger.Warn("failed to record impression",
					zap.String("ad_id", ad.ID),
					zap.Error(err),
				)
				continue
			}
			if s.metrics != nil {
				s.metrics.RecordImpression(pageKey, string(placement))
			}
		}
	}
}

// ResolveClick returns the redirect destination for a clicked ad and
// records the click. Popup ads have no click behavior yet and return
// ErrPopupNotImplemented.
func (s *Service) ResolveClick(ctx context.Context, adID, pageKey string, viewer models.ViewerContext) (string, error) {
	ad, err := s.adRepo.GetByID(ctx, adID)
	if err != nil {
		return "", err
	}
	if ad == nil {
		return "", ErrAdNotFound
	}

	switch ad.ActionType {
	case models.AdActionRedirect:
		s.recordClick(ctx, ad, pageKey, viewer)
		return ad.RedirectURL, nil
	case models.AdActionPopup:
		return "", ErrPopupNotImplemented
	default:
		return "", ErrPopupNotImplemented
	}
}

func (s *Service) recordClick(ctx context.Context, ad *models.Ad, pageKey string, viewer models.ViewerContext) {
	if s.metrics != nil {
		s.metrics.RecordClick(string(ad.ActionType))
	}
	if s.store == nil {
		return
	}
	e := &Event{
		ID:            uuid.NewString(),
		AdID:          ad.ID,
		Type:          EventClick,
		PageKey:       pageKey,
		Placement:     string(ad.Placement),
		ViewerState:   viewer.State,
		ViewerCity:    viewer.City,
		ViewerPincode: viewer.Pincode,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.Save(ctx, e); err != nil {
		s.logger.Warn("failed to record click",
			zap.String("ad_id", ad.ID),
			zap.Error(err),
		)
	}
}
