package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cityboard/listings/internal/adevents"
	"github.com/cityboard/listings/internal/ads"
	"github.com/cityboard/listings/internal/config"
	"github.com/cityboard/listings/internal/database"
	"github.com/cityboard/listings/internal/geo"
	"github.com/cityboard/listings/internal/listings"
	"github.com/cityboard/listings/internal/metrics"
	"github.com/cityboard/listings/internal/middleware"
	"github.com/cityboard/listings/internal/models"
	"github.com/cityboard/listings/internal/objectstore"
	"github.com/cityboard/listings/internal/place"
	"github.com/cityboard/listings/internal/storage"
)

// Dependencies holds all external dependencies for the server. Any of
// the connection fields may be nil; the server degrades to in-memory
// implementations for local development.
type Dependencies struct {
	DB         *database.PostgresDB
	Redis      *database.RedisDB
	ClickHouse *database.ClickHouseDB
	Store      objectstore.ObjectStore
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Category tree used when no database is configured.
var defaultCategories = []*models.Category{
	{ID: "events", Name: "Events"},
	{ID: "buddy-services", Name: "Buddy Services"},
}

var defaultSubcategories = []*models.Subcategory{
	{ID: "music", CategoryID: "events", Name: "Music"},
	{ID: "sports", CategoryID: "events", Name: "Sports"},
	{ID: "community", CategoryID: "events", Name: "Community"},
	{ID: "errands", CategoryID: "buddy-services", Name: "Errands"},
	{ID: "companionship", CategoryID: "buddy-services", Name: "Companionship"},
}

// Server wraps HTTP handlers and the listing/ad services.
type Server struct {
	adService      *ads.Service
	listingService *listings.Service
	eventService   *adevents.Service
	categoryRepo   storage.CategoryRepo
	listingRepo    storage.ListingRepo
	geoResolver    *geo.Resolver
	uploader       *objectstore.Uploader
	logger         *zap.Logger
	config         *config.Config
	metrics        *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	// Initialize repositories
	var adRepo storage.AdRepo
	var listingRepo storage.ListingRepo
	var categoryRepo storage.CategoryRepo

	if deps.DB != nil {
		adRepo = storage.NewPostgresAdRepo(deps.DB.Pool)
		listingRepo = storage.NewPostgresListingRepo(deps.DB.Pool)
		categoryRepo = storage.NewPostgresCategoryRepo(deps.DB.Pool)
	} else {
		adRepo = storage.NewInMemoryAdRepo()
		listingRepo = storage.NewInMemoryListingRepo()
		memCats := storage.NewInMemoryCategoryRepo()
		memCats.Seed(defaultCategories, defaultSubcategories)
		categoryRepo = memCats
	}

	// Initialize ad event store
	var eventStore adevents.Store
	if deps.ClickHouse != nil {
		eventStore = adevents.NewClickHouseStore(deps.ClickHouse.Conn)
	} else {
		eventStore = adevents.NewInMemoryStore()
	}

	// Initialize viewer geo resolution
	var geoResolver *geo.Resolver
	if deps.Config.Geo.Enabled {
		provider, err := geo.NewMaxMindProvider(deps.Config.Geo.DatabasePath)
		if err != nil {
			deps.Logger.Warn("failed to initialize geo provider, viewer context disabled", zap.Error(err))
		} else {
			geoResolver = geo.NewResolver(
				provider,
				deps.Config.Geo.CacheSize,
				deps.Config.Geo.CacheTTL,
				deps.Metrics,
			)
		}
	}
	if geoResolver == nil {
		geoResolver = geo.NewResolver(nil, deps.Config.Geo.CacheSize, deps.Config.Geo.CacheTTL, deps.Metrics)
	}

	// Initialize image uploads
	store := deps.Store
	if store == nil {
		store = objectstore.NewMemoryStore()
	}
	uploader := objectstore.NewUploader(store, deps.Config.Upload, deps.Logger, deps.Metrics)

	// Initialize services
	var adCache *database.RedisDB
	cacheTTL := deps.Config.Ads.CacheTTL
	if deps.Config.Ads.CacheEnabled {
		adCache = deps.Redis
	}
	var adSvc *ads.Service
	if adCache != nil {
		adSvc = ads.NewService(adRepo, adCache.Client, cacheTTL, deps.Logger, deps.Metrics)
	} else {
		adSvc = ads.NewService(adRepo, nil, cacheTTL, deps.Logger, deps.Metrics)
	}
	listingSvc := listings.NewService(listingRepo, categoryRepo, deps.Logger, deps.Metrics)
	eventSvc := adevents.NewService(eventStore, adRepo, deps.Logger, deps.Metrics)

	s := &Server{
		adService:      adSvc,
		listingService: listingSvc,
		eventService:   eventSvc,
		categoryRepo:   categoryRepo,
		listingRepo:    listingRepo,
		geoResolver:    geoResolver,
		uploader:       uploader,
		logger:         deps.Logger,
		config:         deps.Config,
		metrics:        deps.Metrics,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled {
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	// Ad serving and interaction
	mux.HandleFunc("/ads/serve", s.handleServeAds)
	mux.HandleFunc("/ads/click/", s.handleAdClick)

	// Ad management
	mux.HandleFunc("/ads", s.handleAds)
	mux.HandleFunc("/ads/", s.handleAdByID)

	// Categories
	mux.HandleFunc("/categories", s.handleCategories)
	mux.HandleFunc("/categories/", s.handleSubcategories)

	// Listings
	mux.HandleFunc("/listings", s.handleListings)
	mux.HandleFunc("/listings/form-options", s.handleFormOptions)
	mux.HandleFunc("/listings/", s.handleListingByID)

	// Places
	mux.HandleFunc("/places/parse", s.handleParsePlace)

	return mux
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ---- Ad Serving ----

func (s *Server) handleServeAds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pageKey := r.URL.Query().Get("page")
	if pageKey == "" {
		s.errorResponse(w, "page required", http.StatusBadRequest)
		return
	}

	viewer := s.geoResolver.Resolve(middleware.ClientIP(r))

	buckets, err := s.adService.ServePage(r.Context(), pageKey, viewer)
	if err != nil {
		s.logger.Error("ad serve error", zap.String("page", pageKey), zap.Error(err))
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.eventService.RecordImpressions(r.Context(), pageKey, viewer, buckets)

	s.jsonResponse(w, buckets)
}

func (s *Server) handleAdClick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	adID := strings.TrimPrefix(r.URL.Path, "/ads/click/")
	if adID == "" || strings.Contains(adID, "/") {
		http.NotFound(w, r)
		return
	}

	pageKey := r.URL.Query().Get("page")
	viewer := s.geoResolver.Resolve(middleware.ClientIP(r))

	redirectURL, err := s.eventService.ResolveClick(r.Context(), adID, pageKey, viewer)
	switch {
	case errors.Is(err, adevents.ErrAdNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, adevents.ErrPopupNotImplemented):
		s.errorResponse(w, "popup ads have no click destination", http.StatusNotImplemented)
		return
	case err != nil:
		s.logger.Error("click error", zap.String("ad_id", adID), zap.Error(err))
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// ---- Ad Management ----

func (s *Server) handleAds(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.adService.ListAds(r.Context())
		if err != nil {
			s.logger.Error("failed to list ads", zap.Error(err))
			s.errorResponse(w, "failed to list", http.StatusInternalServerError)
			return
		}
		s.jsonResponse(w, list)

	case http.MethodPost:
		var ad models.Ad
		if err := json.NewDecoder(r.Body).Decode(&ad); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.adService.UpsertAd(r.Context(), &ad); err != nil {
			s.errorResponse(w, "failed to save: "+err.Error(), http.StatusBadRequest)
			return
		}
		s.jsonResponse(w, ad)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAdByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/ads/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		ad, err := s.adService.GetAd(r.Context(), id)
		if err != nil {
			s.logger.Error("failed to get ad", zap.Error(err))
			s.errorResponse(w, "error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if ad == nil {
			http.NotFound(w, r)
			return
		}
		s.jsonResponse(w, ad)

	case http.MethodPut:
		var ad models.Ad
		if err := json.NewDecoder(r.Body).Decode(&ad); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		ad.ID = id
		if err := s.adService.UpsertAd(r.Context(), &ad); err != nil {
			s.errorResponse(w, "failed to save: "+err.Error(), http.StatusBadRequest)
			return
		}
		s.jsonResponse(w, ad)

	case http.MethodDelete:
		if err := s.adService.DeleteAd(r.Context(), id); err != nil {
			s.errorResponse(w, "failed to delete: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ---- Categories ----

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	list, err := s.categoryRepo.ListCategories(r.Context())
	if err != nil {
		s.logger.Error("failed to list categories", zap.Error(err))
		s.errorResponse(w, "failed to list", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, list)
}

func (s *Server) handleSubcategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/categories/")
	categoryID, tail, found := strings.Cut(rest, "/")
	if !found || tail != "subcategories" || categoryID == "" {
		http.NotFound(w, r)
		return
	}

	list, err := s.categoryRepo.ListSubcategories(r.Context(), categoryID)
	if err != nil {
		s.logger.Error("failed to list subcategories", zap.Error(err))
		s.errorResponse(w, "failed to list", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, list)
}

// ---- Listings ----

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		kind := models.ListingKind(r.URL.Query().Get("kind"))
		list, err := s.listingService.List(r.Context(), kind)
		if err != nil {
			s.logger.Error("failed to list listings", zap.Error(err))
			s.errorResponse(w, "failed to list", http.StatusInternalServerError)
			return
		}
		s.jsonResponse(w, list)

	case http.MethodPost:
		var l models.Listing
		if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		result, err := s.listingService.Create(r.Context(), &l)
		if err != nil {
			s.validationOrServerError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(result)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleFormOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	opts, err := s.listingService.FormOptions(r.Context(), r.URL.Query().Get("category_id"))
	if err != nil {
		s.logger.Error("failed to load form options", zap.Error(err))
		s.errorResponse(w, "failed to load form options", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, opts)
}

func (s *Server) handleListingByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/listings/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}

	if id, ok := strings.CutSuffix(rest, "/images"); ok {
		s.handleListingImages(w, r, id)
		return
	}

	id := rest
	if strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		l, err := s.listingService.Get(r.Context(), id)
		if err != nil {
			s.errorResponse(w, "error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if l == nil {
			http.NotFound(w, r)
			return
		}
		s.jsonResponse(w, l)

	case http.MethodPut:
		var l models.Listing
		if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		result, err := s.listingService.Update(r.Context(), id, &l)
		if err != nil {
			if errors.Is(err, listings.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			s.validationOrServerError(w, err)
			return
		}
		s.jsonResponse(w, result)

	case http.MethodDelete:
		if err := s.listingService.Delete(r.Context(), id); err != nil {
			if errors.Is(err, listings.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			s.errorResponse(w, "failed to delete: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListingImages(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	l, err := s.listingService.Get(r.Context(), id)
	if err != nil {
		s.errorResponse(w, "error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if l == nil {
		http.NotFound(w, r)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.errorResponse(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["images"]) == 0 {
		s.errorResponse(w, "images field missing", http.StatusBadRequest)
		return
	}

	var files []objectstore.File
	for _, header := range r.MultipartForm.File["images"] {
		f, err := header.Open()
		if err != nil {
			s.errorResponse(w, "failed to read upload: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		files = append(files, objectstore.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Reader:      f,
		})
	}

	urls, err := s.uploader.UploadAll(r.Context(), "listings/"+id, files)
	if err != nil {
		switch {
		case errors.Is(err, objectstore.ErrTooManyImages),
			errors.Is(err, objectstore.ErrImageTooLarge),
			errors.Is(err, objectstore.ErrNotAnImage):
			s.errorResponse(w, err.Error(), http.StatusBadRequest)
		default:
			s.logger.Error("image upload failed", zap.String("listing_id", id), zap.Error(err))
			s.errorResponse(w, "upload failed", http.StatusInternalServerError)
		}
		return
	}

	l.ImageURLs = append(l.ImageURLs, urls...)
	l.UpdatedAt = time.Now().UTC()
	if err := s.listingRepo.Update(r.Context(), l); err != nil {
		s.logger.Error("failed to attach images", zap.String("listing_id", id), zap.Error(err))
		s.errorResponse(w, "failed to attach images", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, map[string]any{"image_urls": urls})
}

// ---- Places ----

func (s *Server) handleParsePlace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.jsonResponse(w, place.ParseAddress(req.Address))
}

// ---- Helper Methods ----

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// validationOrServerError maps listing validation failures to 422 with
// the per-field details, anything else to 500.
func (s *Server) validationOrServerError(w http.ResponseWriter, err error) {
	var verr *listings.ValidationError
	if errors.As(err, &verr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
		return
	}
	s.logger.Error("listing submission failed", zap.Error(err))
	s.errorResponse(w, "internal error", http.StatusInternalServerError)
}
