// Package objectstore keeps uploaded binary assets on an afero filesystem
// and hands out public retrieval URLs for them.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/afero"
)

// URLPrefix is the route the files are served under.
const URLPrefix = "/files/"

var (
	ErrInvalidPath = errors.New("invalid object path")
	ErrNotFound    = errors.New("object not found")
	ErrForeignURL  = errors.New("url does not belong to this object store")
)

// Handle names an uploaded object.
type Handle struct {
	Path string
}

type Store struct {
	fs      afero.Fs
	baseURL string
}

// New serves objects from fs; baseURL is the public origin, e.g. "https://portal.example".
func New(fs afero.Fs, baseURL string) *Store {
	return &Store{fs: fs, baseURL: strings.TrimRight(baseURL, "/")}
}

// NewOnDisk stores objects below dir on the local filesystem.
func NewOnDisk(dir, baseURL string) *Store {
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir), baseURL)
}

func cleanPath(p string) (string, error) {
	if p == "" || strings.Contains(p, "..") || strings.HasSuffix(p, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return path.Clean("/" + p)[1:], nil
}

// fsPath roots p so every filesystem backend sees the same absolute name.
func fsPath(p string) string {
	return "/" + p
}

func (s *Store) Upload(ctx context.Context, objectPath string, data []byte) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}
	p, err := cleanPath(objectPath)
	if err != nil {
		return Handle{}, err
	}
	if dir := path.Dir(fsPath(p)); dir != "/" {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return Handle{}, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(s.fs, fsPath(p), data, 0o644); err != nil {
		return Handle{}, fmt.Errorf("write %s: %w", p, err)
	}
	glog.V(1).Infof("stored object %s (%d bytes)", p, len(data))
	return Handle{Path: p}, nil
}

// URL returns the public retrieval URL of an uploaded object.
func (s *Store) URL(h Handle) (string, error) {
	exists, err := afero.Exists(s.fs, fsPath(h.Path))
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrNotFound, h.Path)
	}
	segments := strings.Split(h.Path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + URLPrefix + strings.Join(segments, "/"), nil
}

// Delete removes the object a URL previously returned by URL points at.
func (s *Store) Delete(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, err := s.Resolve(rawURL)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(fsPath(h.Path)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, h.Path)
		}
		return fmt.Errorf("remove %s: %w", h.Path, err)
	}
	return nil
}

// Resolve maps a retrieval URL back to its handle.
func (s *Store) Resolve(rawURL string) (Handle, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %v", ErrForeignURL, err)
	}
	base, err := url.Parse(s.baseURL)
	if err != nil {
		return Handle{}, err
	}
	if u.Host != base.Host || !strings.HasPrefix(u.Path, base.Path+URLPrefix) {
		return Handle{}, fmt.Errorf("%w: %s", ErrForeignURL, rawURL)
	}
	p, err := cleanPath(strings.TrimPrefix(u.Path, base.Path+URLPrefix))
	if err != nil {
		return Handle{}, err
	}
	return Handle{Path: p}, nil
}

// Handler serves stored objects; mount it with http.StripPrefix(URLPrefix, ...).
func (s *Store) Handler() http.Handler {
	return http.FileServer(afero.NewHttpFs(s.fs))
}
