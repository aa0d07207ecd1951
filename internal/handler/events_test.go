package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/eventclient"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/lifecycle"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/model"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/validate"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/wallclock"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/web"
)

var testNow = time.Date(2025, 3, 10, 14, 30, 0, 0, time.Local)

// memGateway is an in-memory event API.
type memGateway struct {
	mu      sync.Mutex
	events  map[int64]model.Event
	nextID  int64
	failAll bool
	reject  *eventclient.ServerValidationError
	deleted []int64
}

func newMemGateway(events ...model.Event) *memGateway {
	g := &memGateway{events: map[int64]model.Event{}, nextID: 100}
	for _, e := range events {
		g.events[e.ID] = e
	}
	return g
}

func (g *memGateway) List(_ context.Context, pageIndex, pageSize int, _ model.Sort) (model.EventPage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return model.EventPage{}, &eventclient.TransportError{Op: "list events", StatusCode: 503}
	}
	var items []model.Event
	for id := int64(1); id <= g.nextID; id++ {
		if e, ok := g.events[id]; ok {
			items = append(items, e)
		}
	}
	total := int64(len(items))
	start := min(pageIndex*pageSize, len(items))
	end := min(start+pageSize, len(items))
	return model.NewEventPage(items[start:end], total, pageIndex, pageSize), nil
}

func (g *memGateway) Get(_ context.Context, id int64) (model.Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return model.Event{}, &eventclient.TransportError{Op: "get event", StatusCode: 500}
	}
	e, ok := g.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("get event: %w", eventclient.ErrNotFound)
	}
	return e, nil
}

func (g *memGateway) Create(_ context.Context, in model.EventInput) (model.Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.reject != nil {
		return model.Event{}, g.reject
	}
	g.nextID++
	e := model.Event{ID: g.nextID, Title: in.Title, Description: in.Description, OccursAt: in.OccursAt, Location: in.Location}
	g.events[e.ID] = e
	return e, nil
}

func (g *memGateway) Update(_ context.Context, id int64, in model.EventInput) (model.Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.events[id]; !ok {
		return model.Event{}, eventclient.ErrNotFound
	}
	e := model.Event{ID: id, Title: in.Title, Description: in.Description, OccursAt: in.OccursAt, Location: in.Location}
	g.events[id] = e
	return e, nil
}

func (g *memGateway) SoftDelete(_ context.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return &eventclient.TransportError{Op: "delete event", StatusCode: 500}
	}
	if _, ok := g.events[id]; !ok {
		return eventclient.ErrNotFound
	}
	delete(g.events, id)
	g.deleted = append(g.deleted, id)
	return nil
}

func sampleEvents(n int) []model.Event {
	events := make([]model.Event, n)
	for i := range events {
		events[i] = model.Event{
			ID:       int64(i + 1),
			Title:    fmt.Sprintf("Event %d", i+1),
			OccursAt: wallclock.DateTime{Year: 2030, Month: time.May, Day: 4, Hour: 19, Minute: 45},
			Location: "HQ",
		}
	}
	return events
}

func newTestHandler(t *testing.T, gw lifecycle.Gateway) *EventsHandler {
	t.Helper()
	clock := wallclock.ClockFunc(func() time.Time { return testNow })
	h, err := NewEventsHandler(gw, EventsConfig{
		Options: lifecycle.Options{Validator: validate.New(clock)},
		Domain:  "events.test",
	}, web.FS, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewEventsHandler() error = %v", err)
	}
	return h
}

func newMux(h *EventsHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events", h.Browse)
	mux.HandleFunc("GET /events/search", h.Search)
	mux.HandleFunc("GET /events/new", h.NewForm)
	mux.HandleFunc("POST /events", h.Create)
	mux.HandleFunc("GET /events/{id}", h.Detail)
	mux.HandleFunc("POST /events/{id}", h.Update)
	mux.HandleFunc("GET /events/{id}/edit", h.EditForm)
	mux.HandleFunc("GET /events/{id}/delete", h.ConfirmDelete)
	mux.HandleFunc("POST /events/{id}/delete", h.Delete)
	mux.HandleFunc("GET /events/{id}/ics", h.Export)
	mux.HandleFunc("/", h.Index)
	return mux
}

func serve(mux http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestBrowsePage(t *testing.T) {
	mux := newMux(newTestHandler(t, newMemGateway(sampleEvents(8)...)))

	w := serve(mux, "GET", "/events?page=1&size=3&notice=Event+created.", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	for _, want := range []string{"Event 4", "Event 6", "04/05/2030 19:45", "Event created.", "8 events"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, "Event 7") {
		t.Error("body contains a row from the next page")
	}
}

func TestBrowseIgnoresUnknownPageSize(t *testing.T) {
	mux := newMux(newTestHandler(t, newMemGateway(sampleEvents(8)...)))

	w := serve(mux, "GET", "/events?size=5", nil)
	if !strings.Contains(w.Body.String(), `data-size="6"`) {
		t.Error("expected the default page size")
	}
}

func TestBrowseLoadFailure(t *testing.T) {
	gw := newMemGateway()
	gw.failAll = true
	mux := newMux(newTestHandler(t, gw))

	w := serve(mux, "GET", "/events", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
	if !strings.Contains(w.Body.String(), "Try again") {
		t.Error("expected a retry link")
	}
}

func TestSearch(t *testing.T) {
	mux := newMux(newTestHandler(t, newMemGateway(sampleEvents(2)...)))

	w := serve(mux, "GET", "/events/search?id=+2+", nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/events/2" {
		t.Errorf("Location = %q, want %q", loc, "/events/2")
	}

	w = serve(mux, "GET", "/events/search?id=abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if !strings.Contains(w.Body.String(), "field-error") {
		t.Error("expected the search message")
	}
	if ct := w.Result().Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q, want %q", ct, "text/html; charset=utf-8")
	}

	w = serve(mux, "GET", "/events/search?id=%2B2", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("signed id status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDetailPage(t *testing.T) {
	mux := newMux(newTestHandler(t, newMemGateway(sampleEvents(3)...)))

	tests := []struct {
		target string
		code   int
		want   string
	}{
		{"/events/2", http.StatusOK, "Event 2"},
		{"/events/9", http.StatusNotFound, "Event not found"},
		{"/events/abc", http.StatusNotFound, ""},
		{"/events/0", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		w := serve(mux, "GET", tt.target, nil)
		if w.Code != tt.code {
			t.Errorf("GET %s status = %d, want %d", tt.target, w.Code, tt.code)
		}
		if !strings.Contains(w.Body.String(), tt.want) {
			t.Errorf("GET %s body missing %q", tt.target, tt.want)
		}
	}
}

func TestDetailTransportFailure(t *testing.T) {
	gw := newMemGateway(sampleEvents(1)...)
	gw.failAll = true
	mux := newMux(newTestHandler(t, gw))

	w := serve(mux, "GET", "/events/1", nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
}

func TestDeleteFlow(t *testing.T) {
	gw := newMemGateway(sampleEvents(2)...)
	mux := newMux(newTestHandler(t, gw))

	w := serve(mux, "GET", "/events/2/delete", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `action="/events/2/delete"`) {
		t.Error("expected the confirmation form")
	}
	if len(gw.deleted) != 0 {
		t.Fatal("confirmation page must not delete")
	}

	w = serve(mux, "POST", "/events/2/delete", url.Values{})
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want %d", w.Code, http.StatusOK)
	}
	if len(gw.deleted) != 1 || gw.deleted[0] != 2 {
		t.Errorf("deleted = %v, want [2]", gw.deleted)
	}
	if !strings.Contains(w.Body.String(), "1.5;url=/events?notice=Event") {
		t.Errorf("expected a delayed redirect, body = %s", w.Body.String())
	}
}

func TestDeleteMissingEvent(t *testing.T) {
	gw := newMemGateway()
	mux := newMux(newTestHandler(t, gw))

	w := serve(mux, "POST", "/events/5/delete", url.Values{})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if len(gw.deleted) != 0 {
		t.Error("nothing should be deleted")
	}
}

func validForm() url.Values {
	return url.Values{
		"title":       {"Meetup"},
		"description": {"Monthly"},
		"occursAt":    {"2025-03-10T15:30"},
		"location":    {"HQ"},
	}
}

func TestCreate(t *testing.T) {
	gw := newMemGateway()
	mux := newMux(newTestHandler(t, gw))

	w := serve(mux, "GET", "/events/new", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("form status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `min="2025-03-10T14:30"`) {
		t.Error("expected the minimum selectable date")
	}

	w = serve(mux, "POST", "/events", validForm())
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d; body = %s", w.Code, http.StatusSeeOther, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/events?notice=Event+created." {
		t.Errorf("Location = %q", loc)
	}
	created, ok := gw.events[101]
	if !ok {
		t.Fatal("event was not created")
	}
	if created.OccursAt.Wire() != "2025-03-10T15:30:00" {
		t.Errorf("OccursAt = %q, want %q", created.OccursAt.Wire(), "2025-03-10T15:30:00")
	}
}

func TestCreateValidationError(t *testing.T) {
	gw := newMemGateway()
	mux := newMux(newTestHandler(t, gw))

	form := validForm()
	form.Set("title", "")
	form.Set("occursAt", "2025-03-10T09:00")
	w := serve(mux, "POST", "/events", form)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	body := w.Body.String()
	if strings.Count(body, `class="field-error"`) < 2 {
		t.Errorf("expected two field errors, body = %s", body)
	}
	if !strings.Contains(body, `value="HQ"`) {
		t.Error("typed values must be kept")
	}
	if len(gw.events) != 0 {
		t.Error("invalid form must not be sent")
	}
}

func TestCreateServerRejection(t *testing.T) {
	gw := newMemGateway()
	gw.reject = &eventclient.ServerValidationError{
		Message: "local: too long",
		Fields:  map[string]string{validate.FieldLocation: "too long"},
	}
	mux := newMux(newTestHandler(t, gw))

	w := serve(mux, "POST", "/events", validForm())
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Failed to create event. Detail: local: too long") {
		t.Errorf("expected the server message, body = %s", body)
	}
	if !strings.Contains(body, "too long</p>") {
		t.Error("expected the field message")
	}
}

func TestEditAndUpdate(t *testing.T) {
	gw := newMemGateway(sampleEvents(3)...)
	mux := newMux(newTestHandler(t, gw))

	w := serve(mux, "GET", "/events/3/edit", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("edit status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, `action="/events/3"`) || !strings.Contains(body, `value="2030-05-04T19:45"`) {
		t.Errorf("expected a prefilled edit form, body = %s", body)
	}

	form := validForm()
	form.Set("title", "Renamed")
	w = serve(mux, "POST", "/events/3", form)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("update status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/events?notice=Event+updated." {
		t.Errorf("Location = %q", loc)
	}
	if gw.events[3].Title != "Renamed" {
		t.Errorf("Title = %q, want %q", gw.events[3].Title, "Renamed")
	}
}

func TestEditMissingEventRedirects(t *testing.T) {
	mux := newMux(newTestHandler(t, newMemGateway()))

	w := serve(mux, "GET", "/events/4/edit", nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	want := "/events?notice=" + url.QueryEscape(lifecycle.MsgEditLoadFailed)
	if loc := w.Header().Get("Location"); loc != want {
		t.Errorf("Location = %q, want %q", loc, want)
	}
}

func TestExport(t *testing.T) {
	mux := newMux(newTestHandler(t, newMemGateway(sampleEvents(1)...)))

	w := serve(mux, "GET", "/events/1/ics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "event-1.ics") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	body := w.Body.String()
	for _, want := range []string{"BEGIN:VCALENDAR", "UID:event-1@events.test", "SUMMARY:Event 1"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestIndexRedirects(t *testing.T) {
	mux := newMux(newTestHandler(t, newMemGateway()))

	w := serve(mux, "GET", "/", nil)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/events" {
		t.Errorf("got %d %q, want 303 /events", w.Code, w.Header().Get("Location"))
	}
	w = serve(mux, "GET", "/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
