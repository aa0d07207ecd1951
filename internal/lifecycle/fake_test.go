package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/model"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/validate"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/wallclock"
)

var testNow = time.Date(2025, time.March, 10, 14, 30, 0, 0, time.Local)

func fixedClock() wallclock.Clock {
	return wallclock.ClockFunc(func() time.Time { return testNow })
}

// fakeGateway records calls and delegates to optional func fields.
type fakeGateway struct {
	mu sync.Mutex

	list       func(ctx context.Context, pageIndex, pageSize int) (model.EventPage, error)
	get        func(ctx context.Context, id int64) (model.Event, error)
	create     func(ctx context.Context, in model.EventInput) (model.Event, error)
	update     func(ctx context.Context, id int64, in model.EventInput) (model.Event, error)
	softDelete func(ctx context.Context, id int64) error

	lists   [][2]int
	gets    []int64
	creates []model.EventInput
	updates []int64
	deletes []int64
}

var errNoFake = errors.New("no fake configured")

func (g *fakeGateway) List(ctx context.Context, pageIndex, pageSize int, _ model.Sort) (model.EventPage, error) {
	g.mu.Lock()
	g.lists = append(g.lists, [2]int{pageIndex, pageSize})
	g.mu.Unlock()
	if g.list == nil {
		return pageOf(pageIndex, pageSize, 100), nil
	}
	return g.list(ctx, pageIndex, pageSize)
}

func (g *fakeGateway) Get(ctx context.Context, id int64) (model.Event, error) {
	g.mu.Lock()
	g.gets = append(g.gets, id)
	g.mu.Unlock()
	if g.get == nil {
		return model.Event{}, errNoFake
	}
	return g.get(ctx, id)
}

func (g *fakeGateway) Create(ctx context.Context, in model.EventInput) (model.Event, error) {
	g.mu.Lock()
	g.creates = append(g.creates, in)
	g.mu.Unlock()
	if g.create == nil {
		return model.Event{ID: 1, Title: in.Title, Description: in.Description, OccursAt: in.OccursAt, Location: in.Location}, nil
	}
	return g.create(ctx, in)
}

func (g *fakeGateway) Update(ctx context.Context, id int64, in model.EventInput) (model.Event, error) {
	g.mu.Lock()
	g.updates = append(g.updates, id)
	g.mu.Unlock()
	if g.update == nil {
		return model.Event{ID: id, Title: in.Title, Description: in.Description, OccursAt: in.OccursAt, Location: in.Location}, nil
	}
	return g.update(ctx, id, in)
}

func (g *fakeGateway) SoftDelete(ctx context.Context, id int64) error {
	g.mu.Lock()
	g.deletes = append(g.deletes, id)
	g.mu.Unlock()
	if g.softDelete == nil {
		return nil
	}
	return g.softDelete(ctx, id)
}

func (g *fakeGateway) deleteCalls() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int64(nil), g.deletes...)
}

func (g *fakeGateway) listCalls() [][2]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][2]int(nil), g.lists...)
}

func pageOf(pageIndex, pageSize int, total int64) model.EventPage {
	var items []model.Event
	for i := int64(pageIndex * pageSize); i < total && len(items) < pageSize; i++ {
		items = append(items, model.Event{ID: i + 1, Title: "event"})
	}
	return model.NewEventPage(items, total, pageIndex, pageSize)
}

// navRecorder records navigation and signals each call on browsed/detailed.
type navRecorder struct {
	browsed  chan string
	detailed chan int64
}

func newNav() *navRecorder {
	return &navRecorder{browsed: make(chan string, 8), detailed: make(chan int64, 8)}
}

func (n *navRecorder) Browse(notice string) { n.browsed <- notice }
func (n *navRecorder) Detail(id int64)      { n.detailed <- id }

func (n *navRecorder) expectBrowse(t *testing.T) string {
	t.Helper()
	select {
	case notice := <-n.browsed:
		return notice
	case <-time.After(2 * time.Second):
		t.Fatal("no navigation to browse")
		return ""
	}
}

func (n *navRecorder) expectNoNavigation(t *testing.T) {
	t.Helper()
	select {
	case notice := <-n.browsed:
		t.Fatalf("unexpected navigation to browse with %q", notice)
	case id := <-n.detailed:
		t.Fatalf("unexpected navigation to detail %d", id)
	default:
	}
}

// recorder keeps every published state.
type recorder[T any] struct {
	mu  sync.Mutex
	all []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	r.all = append(r.all, v)
	r.mu.Unlock()
}

func (r *recorder[T]) states() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.all...)
}

func testOptions() Options {
	return Options{
		NavigateDelay: -1,
		Validator:     validate.New(fixedClock()),
	}
}
