package objectstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/spf13/afero"
)

func TestUploadURLDelete(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "http://portal.test/")
	ctx := context.Background()

	h, err := s.Upload(ctx, "event-images/1700000000000_poster one.png", []byte("png"))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	assert.Equal(t, h.Path, "event-images/1700000000000_poster one.png")

	u, err := s.URL(h)
	if err != nil {
		t.Fatalf("URL returned error: %v", err)
	}
	assert.Equal(t, u, "http://portal.test/files/event-images/1700000000000_poster%20one.png")

	back, err := s.Resolve(u)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	assert.Equal(t, back, h)

	if err := s.Delete(ctx, u); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := s.Delete(ctx, u); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := s.URL(h); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for deleted object, got %v", err)
	}
}

func TestRejects(t *testing.T) {
	s := New(afero.NewMemMapFs(), "http://portal.test")
	ctx := context.Background()

	for _, p := range []string{"", "../etc/passwd", "dir/"} {
		if _, err := s.Upload(ctx, p, []byte("x")); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("path %q: expected ErrInvalidPath, got %v", p, err)
		}
	}
	if err := s.Delete(ctx, "https://elsewhere.test/files/a.png"); !errors.Is(err, ErrForeignURL) {
		t.Errorf("expected ErrForeignURL, got %v", err)
	}
	if err := s.Delete(ctx, "default_image_url_here"); !errors.Is(err, ErrForeignURL) {
		t.Errorf("expected ErrForeignURL for placeholder, got %v", err)
	}
}

func TestHandler(t *testing.T) {
	s := New(afero.NewMemMapFs(), "http://portal.test")
	s.Upload(context.Background(), "project-images/abc", []byte("image-bytes"))

	srv := httptest.NewServer(http.StripPrefix(URLPrefix, s.Handler()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/files/project-images/abc")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, resp.StatusCode, http.StatusOK)
	assert.Equal(t, string(body), "image-bytes")
}
