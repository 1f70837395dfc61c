// Package coordinator sequences the portal's multi-step writes. Each pipeline
// is a fixed series of remote calls with no rollback; the returned Result
// records which steps completed so a partial failure can be reported exactly.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gdg-garage/campus-portal/internal/config"
	"github.com/gdg-garage/campus-portal/internal/notifier"
	"github.com/gdg-garage/campus-portal/internal/objectstore"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrAuthRequired = errors.New("authentication required")
	ErrNotPermitted = errors.New("not permitted")
	ErrNotFound     = errors.New("not found")
	ErrRemoteWrite  = errors.New("remote write failed")
	ErrRemoteRead   = errors.New("remote read failed")
	ErrAssetUpload  = errors.New("asset upload failed")
)

type Step string

const (
	StepValidate  Step = "validate"
	StepAuthorize Step = "authorize"
	StepRead      Step = "read"
	StepUpload    Step = "upload"
	StepWrite     Step = "write"
	StepCleanup   Step = "cleanup"
)

// StepError reports the step a pipeline stopped at. errors.Is matches both
// the kind and the underlying cause.
type StepError struct {
	Step Step
	Kind error
	Err  error
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Step, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Step, e.Kind, e.Err)
}

func (e *StepError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func stepErr(step Step, kind, err error) *StepError {
	return &StepError{Step: step, Kind: kind, Err: err}
}

func invalid(format string, args ...any) *StepError {
	return stepErr(StepValidate, ErrValidation, fmt.Errorf(format, args...))
}

// Result is what a pipeline got done, including when it failed part way.
type Result struct {
	ID        string   `json:"id,omitempty"`
	AssetURLs []string `json:"asset_urls,omitempty"`
	Completed []Step   `json:"completed"`
}

func (r *Result) done(s Step) {
	r.Completed = append(r.Completed, s)
}

// Asset is an uploaded file as received from the client.
type Asset struct {
	Name string
	Data []byte
}

func (a *Asset) empty() bool {
	return a == nil || len(a.Data) == 0
}

// Documents is the document-store surface the pipelines write through.
type Documents interface {
	Get(ctx context.Context, path string) (any, error)
	Set(ctx context.Context, path string, value any) error
	Update(ctx context.Context, path string, fields map[string]any) error
	Push(ctx context.Context, path string, value any) (string, error)
}

// Objects is the object-store surface for binary assets.
type Objects interface {
	Upload(ctx context.Context, path string, data []byte) (objectstore.Handle, error)
	URL(h objectstore.Handle) (string, error)
	Delete(ctx context.Context, url string) error
}

type Coordinator struct {
	docs     Documents
	objects  Objects
	cfg      *config.Config
	notifier notifier.Notifier

	now   func() time.Time
	locks keyedMutex
}

// New builds a coordinator. n may be nil, in which case nothing is announced.
func New(docs Documents, objects Objects, cfg *config.Config, n notifier.Notifier) *Coordinator {
	return &Coordinator{
		docs:     docs,
		objects:  objects,
		cfg:      cfg,
		notifier: n,
		now:      time.Now,
		locks:    keyedMutex{locks: map[string]*refMutex{}},
	}
}

// upload stores data at objectPath and returns its retrieval URL.
func (c *Coordinator) upload(ctx context.Context, objectPath string, data []byte) (string, error) {
	h, err := c.objects.Upload(ctx, objectPath, data)
	if err != nil {
		return "", err
	}
	return c.objects.URL(h)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// assetName reduces a client supplied file name to a single safe path segment.
func assetName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeName.ReplaceAllString(name, "_")
	name = strings.ReplaceAll(name, "..", "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "image"
	}
	return name
}

type refMutex struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex serialises work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.mu.Lock()
	return func() {
		m.mu.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
