// Package lifecycle drives the three event screens: browse, detail, and the
// create/edit form. Each controller owns its screen state, issues requests
// through a Gateway without blocking the caller, applies only the newest
// response of each kind, and drops everything still in flight on Close.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/model"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/validate"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/wallclock"
)

// Gateway is the remote API as the controllers see it.
type Gateway interface {
	List(ctx context.Context, pageIndex, pageSize int, sort model.Sort) (model.EventPage, error)
	Get(ctx context.Context, id int64) (model.Event, error)
	Create(ctx context.Context, in model.EventInput) (model.Event, error)
	Update(ctx context.Context, id int64, in model.EventInput) (model.Event, error)
	SoftDelete(ctx context.Context, id int64) error
}

// Navigator moves the user between screens. Calls are made without any
// controller lock held, so an implementation may close the calling controller.
type Navigator interface {
	Browse(notice string)
	Detail(id int64)
}

var (
	ErrClosed         = errors.New("screen closed")
	ErrBusy           = errors.New("another request is in progress")
	ErrNotReady       = errors.New("screen is not ready")
	ErrNotConfirmed   = errors.New("delete was not confirmed")
	ErrNothingPending = errors.New("no delete pending")
)

const (
	DefaultPageSize      = 6
	DefaultNavigateDelay = 1500 * time.Millisecond
)

// DefaultPageSizes are the page sizes offered by the browse screen.
var DefaultPageSizes = []int{3, 6, 12, 24}

const (
	NoticeCreated = "Event created."
	NoticeUpdated = "Event updated."
	NoticeDeleted = "Event deleted."
)

// Options tune the controllers. Zero values take defaults.
type Options struct {
	Logger        *slog.Logger
	PageSize      int
	Sort          model.Sort
	NavigateDelay time.Duration
	Validator     *validate.Validator
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Sort.Field == "" {
		o.Sort = model.DefaultSort
	}
	if o.NavigateDelay < 0 {
		o.NavigateDelay = 0
	} else if o.NavigateDelay == 0 {
		o.NavigateDelay = DefaultNavigateDelay
	}
	if o.Validator == nil {
		o.Validator = validate.New(wallclock.SystemClock)
	}
	return o
}

// flight is the latest request of one kind. A response is applied only while
// its generation is still current.
type flight struct {
	gen    uint64
	cancel context.CancelFunc
}

// screen is the teardown and bookkeeping shared by the controllers.
// Fields are guarded by mu.
type screen struct {
	mu     sync.Mutex
	ctx    context.Context
	stop   context.CancelFunc
	closed bool
	wg     sync.WaitGroup
	logger *slog.Logger
}

func (s *screen) init(logger *slog.Logger) {
	s.ctx, s.stop = context.WithCancel(context.Background())
	s.logger = logger
}

// begin supersedes the previous request of f's kind. Caller holds mu.
func (s *screen) begin(f *flight) (context.Context, uint64) {
	if f.cancel != nil {
		f.cancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	f.gen++
	f.cancel = cancel
	return ctx, f.gen
}

// current reports whether a response for gen may still be applied. Caller holds mu.
func (s *screen) current(f *flight, gen uint64) bool {
	if s.closed || f.gen != gen {
		s.logger.Debug("discarding superseded response", "generation", gen, "latest", f.gen, "closed", s.closed)
		return false
	}
	return true
}

func (s *screen) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Wait blocks until every request issued so far has been settled.
func (s *screen) Wait() {
	s.wg.Wait()
}

func (s *screen) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	s.stop()
	return true
}
