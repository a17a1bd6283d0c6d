package objectstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/cityboard/listings/internal/config"
)

func testUploadConfig() config.UploadConfig {
	return config.UploadConfig{MaxImages: 3, MaxImageSize: 1024}
}

func imageFile(name, content string) File {
	return File{
		Name:        name,
		ContentType: "image/png",
		Size:        int64(len(content)),
		Reader:      strings.NewReader(content),
	}
}

func TestUploadAll(t *testing.T) {
	store := NewMemoryStore()
	u := NewUploader(store, testUploadConfig(), zap.NewNop(), nil)

	files := []File{
		imageFile("a.png", "aaa"),
		imageFile("b.png", "bbb"),
	}
	urls, err := u.UploadAll(context.Background(), "listings/42", files)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 2 {
		t.Fatalf("got %d urls, want 2", len(urls))
	}
	for _, url := range urls {
		if !strings.HasPrefix(url, "memory://listings/42/") {
			t.Errorf("unexpected url %q", url)
		}
	}
	if store.Len() != 2 {
		t.Errorf("store has %d objects, want 2", store.Len())
	}
}

func TestUploadAllRollsBackOnFailure(t *testing.T) {
	store := NewMemoryStore()
	store.FailOnUpload = 3
	u := NewUploader(store, testUploadConfig(), zap.NewNop(), nil)

	files := []File{
		imageFile("a.png", "aaa"),
		imageFile("b.png", "bbb"),
		imageFile("c.png", "ccc"),
	}
	_, err := u.UploadAll(context.Background(), "listings/42", files)
	if err == nil {
		t.Fatal("expected error")
	}
	if store.Len() != 0 {
		t.Errorf("expected rollback to remove all objects, %d remain", store.Len())
	}
}

func TestUploadAllValidation(t *testing.T) {
	u := NewUploader(NewMemoryStore(), testUploadConfig(), zap.NewNop(), nil)

	tests := []struct {
		name    string
		files   []File
		wantErr error
	}{
		{
			"too many images",
			[]File{imageFile("1.png", "x"), imageFile("2.png", "x"), imageFile("3.png", "x"), imageFile("4.png", "x")},
			ErrTooManyImages,
		},
		{
			"not an image",
			[]File{{Name: "doc.pdf", ContentType: "application/pdf", Size: 3, Reader: strings.NewReader("pdf")}},
			ErrNotAnImage,
		},
		{
			"too large",
			[]File{{Name: "big.png", ContentType: "image/png", Size: 4096, Reader: strings.NewReader("x")}},
			ErrImageTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := u.UploadAll(context.Background(), "p", tt.files)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateBatchBeforeAnyUpload(t *testing.T) {
	store := NewMemoryStore()
	u := NewUploader(store, testUploadConfig(), zap.NewNop(), nil)

	files := []File{
		imageFile("ok.png", "x"),
		{Name: "doc.pdf", ContentType: "application/pdf", Size: 3, Reader: strings.NewReader("pdf")},
	}
	if _, err := u.UploadAll(context.Background(), "p", files); err == nil {
		t.Fatal("expected error")
	}
	if store.Len() != 0 {
		t.Errorf("validation should run before any upload, %d objects stored", store.Len())
	}
}
