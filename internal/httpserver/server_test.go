package httpserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cityboard/listings/internal/config"
	"github.com/cityboard/listings/internal/listings"
	"github.com/cityboard/listings/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Upload:  config.UploadConfig{MaxImages: 5, MaxImageSize: 5 << 20},
		Geo:     config.GeoConfig{CacheSize: 100, CacheTTL: time.Hour},
		Ads:     config.AdsConfig{CacheTTL: time.Minute},
		Metrics: config.MetricsConfig{},
	}
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	return NewServer(&Dependencies{
		Config: testConfig(),
		Logger: zap.NewNop(),
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeInto(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)

	w := doJSON(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	decodeInto(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestServeAdsRequiresPage(t *testing.T) {
	h := newTestServer(t)

	w := doJSON(t, h, http.MethodGet, "/ads/serve", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAdServeAndClick(t *testing.T) {
	h := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/ads", &models.Ad{
		Title:       "shoes",
		ImageURL:    "https://cdn.example.com/shoes.png",
		RedirectURL: "https://shoes.example.com",
		ActionType:  models.AdActionRedirect,
		Pages:       []string{"home"},
		Placement:   models.PlacementTopLeft,
		Status:      models.AdStatusActive,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create ad status = %d: %s", w.Code, w.Body.String())
	}
	var created models.Ad
	decodeInto(t, w, &created)
	if created.ID == "" {
		t.Fatal("created ad has no ID")
	}

	w = doJSON(t, h, http.MethodGet, "/ads/serve?page=home", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("serve status = %d: %s", w.Code, w.Body.String())
	}
	var buckets models.PlacementBuckets
	decodeInto(t, w, &buckets)
	if len(buckets[models.PlacementTopLeft]) != 1 {
		t.Fatalf("TOP_LEFT bucket = %v, want the created ad", buckets[models.PlacementTopLeft])
	}
	if len(buckets) != len(models.Placements) {
		t.Errorf("got %d buckets, want all %d placements present", len(buckets), len(models.Placements))
	}

	w = doJSON(t, h, http.MethodGet, "/ads/click/"+created.ID, nil)
	if w.Code != http.StatusFound {
		t.Fatalf("click status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "https://shoes.example.com" {
		t.Errorf("Location = %q, want redirect target", loc)
	}
}

func TestAdClickPopupNotImplemented(t *testing.T) {
	h := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/ads", &models.Ad{
		Title:      "promo",
		ImageURL:   "https://cdn.example.com/promo.png",
		ActionType: models.AdActionPopup,
		Pages:      []string{"home"},
		Placement:  models.PlacementRight,
		Status:     models.AdStatusActive,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create ad status = %d: %s", w.Code, w.Body.String())
	}
	var created models.Ad
	decodeInto(t, w, &created)

	w = doJSON(t, h, http.MethodGet, "/ads/click/"+created.ID, nil)
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("popup click status = %d, want 501", w.Code)
	}
}

func TestAdClickUnknown(t *testing.T) {
	h := newTestServer(t)

	w := doJSON(t, h, http.MethodGet, "/ads/click/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestAdManagementLifecycle(t *testing.T) {
	h := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/ads", &models.Ad{
		Title:       "first",
		ImageURL:    "https://cdn.example.com/a.png",
		RedirectURL: "https://a.example.com",
		ActionType:  models.AdActionRedirect,
		Pages:       []string{"home"},
		Placement:   models.PlacementTopRight,
		Status:      models.AdStatusActive,
	})
	var created models.Ad
	decodeInto(t, w, &created)

	created.Title = "renamed"
	w = doJSON(t, h, http.MethodPut, "/ads/"+created.ID, &created)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, "/ads/"+created.ID, nil)
	var fetched models.Ad
	decodeInto(t, w, &fetched)
	if fetched.Title != "renamed" {
		t.Errorf("title = %q after update", fetched.Title)
	}

	w = doJSON(t, h, http.MethodDelete, "/ads/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/ads/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", w.Code)
	}
}

func TestCategories(t *testing.T) {
	h := newTestServer(t)

	w := doJSON(t, h, http.MethodGet, "/categories", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var cats []*models.Category
	decodeInto(t, w, &cats)
	if len(cats) == 0 {
		t.Fatal("no categories returned")
	}

	w = doJSON(t, h, http.MethodGet, "/categories/events/subcategories", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("subcategories status = %d", w.Code)
	}
	var subs []*models.Subcategory
	decodeInto(t, w, &subs)
	for _, sc := range subs {
		if sc.CategoryID != "events" {
			t.Errorf("subcategory %s belongs to %q", sc.ID, sc.CategoryID)
		}
	}
}

func TestFormOptions(t *testing.T) {
	h := newTestServer(t)

	w := doJSON(t, h, http.MethodGet, "/listings/form-options?category_id=events", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var opts listings.FormOptions
	decodeInto(t, w, &opts)
	if len(opts.Categories) == 0 {
		t.Error("no categories in form options")
	}
	if len(opts.Subcategories) == 0 {
		t.Error("no subcategories in form options")
	}
}

func testListingPayload() *models.Listing {
	starts := time.Date(2026, 9, 10, 18, 0, 0, 0, time.UTC)
	ends := starts.Add(3 * time.Hour)
	return &models.Listing{
		Kind:           models.ListingKindEvent,
		Title:          "Park cleanup",
		Description:    "Neighborhood park cleanup followed by a potluck in the pavilion.",
		CategoryID:     "events",
		SubcategoryID:  "community",
		AttendanceMode: models.AttendanceOnlineOnly,
		OnlineLink:     "https://meet.example.com/cleanup",
		TermsAccepted:  true,
		StartsAt:       &starts,
		EndsAt:         &ends,
	}
}

func TestListingLifecycle(t *testing.T) {
	h := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/listings", testListingPayload())
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var result listings.SubmitResult
	decodeInto(t, w, &result)
	id := result.Listing.ID
	if id == "" {
		t.Fatal("created listing has no ID")
	}

	update := testListingPayload()
	update.Title = "Park cleanup (rescheduled)"
	w = doJSON(t, h, http.MethodPut, "/listings/"+id, update)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, "/listings/"+id, nil)
	var fetched models.Listing
	decodeInto(t, w, &fetched)
	if fetched.Title != "Park cleanup (rescheduled)" {
		t.Errorf("title = %q after update", fetched.Title)
	}

	w = doJSON(t, h, http.MethodDelete, "/listings/"+id, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/listings/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", w.Code)
	}
}

func TestListingValidationError(t *testing.T) {
	h := newTestServer(t)

	bad := testListingPayload()
	bad.Title = ""
	bad.TermsAccepted = false

	w := doJSON(t, h, http.MethodPost, "/listings", bad)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", w.Code, w.Body.String())
	}
	var body struct {
		Fields []listings.FieldError `json:"fields"`
	}
	decodeInto(t, w, &body)
	if len(body.Fields) < 2 {
		t.Errorf("fields = %v, want title and terms failures", body.Fields)
	}
}

func TestListingImageUpload(t *testing.T) {
	h := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/listings", testListingPayload())
	var result listings.SubmitResult
	decodeInto(t, w, &result)
	id := result.Listing.ID

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="images"; filename="photo.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write([]byte("not really a png"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/listings/"+id+"/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ImageURLs []string `json:"image_urls"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if len(resp.ImageURLs) != 1 || !strings.HasPrefix(resp.ImageURLs[0], "memory://listings/"+id+"/") {
		t.Fatalf("image_urls = %v", resp.ImageURLs)
	}

	w = doJSON(t, h, http.MethodGet, "/listings/"+id, nil)
	var fetched models.Listing
	decodeInto(t, w, &fetched)
	if len(fetched.ImageURLs) != 1 {
		t.Errorf("listing image_urls = %v after upload", fetched.ImageURLs)
	}
}

func TestListingImageUploadRejectsNonImage(t *testing.T) {
	h := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/listings", testListingPayload())
	var result listings.SubmitResult
	decodeInto(t, w, &result)
	id := result.Listing.ID

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="images"; filename="notes.txt"`)
	hdr.Set("Content-Type", "text/plain")
	part, _ := mw.CreatePart(hdr)
	part.Write([]byte("hello"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/listings/"+id+"/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestParsePlace(t *testing.T) {
	h := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/places/parse", map[string]string{
		"address": "12 Main St, Austin, TX, 73301",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var p models.Place
	decodeInto(t, w, &p)
	if p.Street != "12 Main St" || p.City != "Austin" || p.State != "TX" || p.PostalCode != "73301" {
		t.Errorf("parsed place = %+v", p)
	}
}
