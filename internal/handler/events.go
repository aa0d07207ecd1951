package handler

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/eventclient"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/ics"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/lifecycle"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/validate"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/wallclock"
)

var pages = []string{"browse", "detail", "form"}

// EventsConfig configures the event pages.
type EventsConfig struct {
	Options   lifecycle.Options
	PageSizes []int
	// Domain qualifies iCalendar UIDs.
	Domain string
	// Live adds the websocket browse script to the list page.
	Live bool
}

// EventsHandler serves the browse, detail and form screens as HTML. Every
// request drives its own controller, which is closed when the response is
// written.
type EventsHandler struct {
	gw        lifecycle.Gateway
	cfg       EventsConfig
	templates map[string]*template.Template
	logger    *slog.Logger
}

func NewEventsHandler(gw lifecycle.Gateway, cfg EventsConfig, templates fs.FS, logger *slog.Logger) (*EventsHandler, error) {
	cfg.Options.Logger = logger
	if cfg.Options.PageSize <= 0 {
		cfg.Options.PageSize = lifecycle.DefaultPageSize
	}
	if cfg.Options.Validator == nil {
		cfg.Options.Validator = validate.New(wallclock.SystemClock)
	}
	if len(cfg.PageSizes) == 0 {
		cfg.PageSizes = lifecycle.DefaultPageSizes
	}

	funcs := template.FuncMap{
		"when": func(d wallclock.DateTime) string {
			if d.IsZero() {
				return ""
			}
			return d.In(time.UTC).Format("02/01/2006 15:04")
		},
		"inc": func(i int) int { return i + 1 },
	}
	parsed := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templates, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", page, err)
		}
		parsed[page] = t
	}

	return &EventsHandler{gw: gw, cfg: cfg, templates: parsed, logger: logger}, nil
}

// redirect is the Navigator for request-scoped controllers: it records where
// the user should go next.
type redirect struct {
	mu       sync.Mutex
	location string
}

func (r *redirect) Browse(notice string) {
	r.set(browseURL(notice))
}

func (r *redirect) Detail(id int64) {
	r.set("/events/" + strconv.FormatInt(id, 10))
}

func (r *redirect) set(loc string) {
	r.mu.Lock()
	r.location = loc
	r.mu.Unlock()
}

func (r *redirect) target() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.location
}

func browseURL(notice string) string {
	if notice == "" {
		return "/events"
	}
	return "/events?notice=" + url.QueryEscape(notice)
}

type layoutData struct {
	Title   string
	Notice  string
	Refresh string
	Live    bool
}

type browseData struct {
	layoutData
	State     lifecycle.BrowseState
	PageSizes []int
	Pages     []int
	Query     string
}

type detailData struct {
	layoutData
	State         lifecycle.DetailState
	DeletedNotice string
}

type formData struct {
	layoutData
	State  lifecycle.FormState
	Action string
}

// Index sends the root path to the list.
func (h *EventsHandler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/events", http.StatusSeeOther)
}

// Browse renders one page of events.
func (h *EventsHandler) Browse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	if !slices.Contains(h.cfg.PageSizes, size) {
		size = h.cfg.Options.PageSize
	}

	b := lifecycle.NewBrowse(h.gw, &redirect{}, nil, h.cfg.Options)
	defer b.Close()
	if err := b.Start(q.Get("notice"), max(page, 0), size); err != nil {
		h.serverError(w, "start browse", err)
		return
	}
	b.Wait()
	h.renderBrowse(w, b.State(), "", http.StatusOK)
}

// Search validates a typed id and redirects to it, or shows the list with
// the validation message.
func (h *EventsHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("id")
	nav := &redirect{}
	b := lifecycle.NewBrowse(h.gw, nav, nil, h.cfg.Options)
	defer b.Close()

	if err := b.Search(query); err == nil {
		http.Redirect(w, r, nav.target(), http.StatusSeeOther)
		return
	}
	if err := b.Mount(""); err != nil {
		h.serverError(w, "start browse", err)
		return
	}
	b.Wait()
	h.renderBrowse(w, b.State(), query, http.StatusBadRequest)
}

// renderBrowse writes the list with status, or 502 when the page failed to load.
func (h *EventsHandler) renderBrowse(w http.ResponseWriter, st lifecycle.BrowseState, query string, status int) {
	data := browseData{
		layoutData: layoutData{Title: "Events", Notice: st.Notice, Live: h.cfg.Live},
		State:      st,
		PageSizes:  h.cfg.PageSizes,
		Query:      query,
	}
	for i := 0; i < st.Page.TotalPages; i++ {
		data.Pages = append(data.Pages, i)
	}
	if st.Status == lifecycle.BrowseFailed {
		status = http.StatusBadGateway
	}
	h.render(w, "browse", status, data)
}

// openDetail loads the event named in the path. ok is false when the response
// has already been written.
func (h *EventsHandler) openDetail(w http.ResponseWriter, r *http.Request) (*lifecycle.Detail, bool) {
	id, err := validate.ParseID(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	d := lifecycle.NewDetail(h.gw, &redirect{}, nil, h.cfg.Options)
	if err := d.Open(id); err != nil {
		d.Close()
		h.serverError(w, "open detail", err)
		return nil, false
	}
	d.Wait()
	return d, true
}

// Detail shows one event.
func (h *EventsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	d, ok := h.openDetail(w, r)
	if !ok {
		return
	}
	defer d.Close()
	h.renderDetail(w, d.State())
}

// ConfirmDelete shows the delete confirmation. Nothing is deleted.
func (h *EventsHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	d, ok := h.openDetail(w, r)
	if !ok {
		return
	}
	defer d.Close()
	// RequestDelete only fails when the event did not load.
	_ = d.RequestDelete()
	h.renderDetail(w, d.State())
}

// Delete performs a confirmed delete and shows the "deleted" page, which
// returns to the list after the configured delay.
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	d, ok := h.openDetail(w, r)
	if !ok {
		return
	}
	defer d.Close()

	if err := d.RequestDelete(); err == nil {
		if err := d.ConfirmDelete(); err != nil {
			h.serverError(w, "confirm delete", err)
			return
		}
		d.Wait()
	}
	h.renderDetail(w, d.State())
}

func (h *EventsHandler) renderDetail(w http.ResponseWriter, st lifecycle.DetailState) {
	data := detailData{
		layoutData:    layoutData{Title: "Event"},
		State:         st,
		DeletedNotice: lifecycle.NoticeDeleted,
	}
	if st.Event != nil {
		data.Title = st.Event.Title
	}

	status := http.StatusOK
	switch st.Status {
	case lifecycle.DetailNotFoundOrError:
		status = http.StatusBadGateway
		if st.NotFound {
			status = http.StatusNotFound
		}
	case lifecycle.DetailDeleted:
		delay := h.cfg.Options.NavigateDelay
		if delay <= 0 {
			delay = lifecycle.DefaultNavigateDelay
		}
		data.Refresh = fmt.Sprintf("%g;url=%s", delay.Seconds(), browseURL(lifecycle.NoticeDeleted))
	case lifecycle.DetailLoaded:
		if st.Message != "" {
			status = http.StatusBadGateway
		}
	}
	h.render(w, "detail", status, data)
}

// Export downloads the event as an iCalendar file.
func (h *EventsHandler) Export(w http.ResponseWriter, r *http.Request) {
	d, ok := h.openDetail(w, r)
	if !ok {
		return
	}
	defer d.Close()

	st := d.State()
	if st.Status != lifecycle.DetailLoaded || st.Event == nil {
		h.renderDetail(w, st)
		return
	}
	w.Header().Set("Content-Type", ics.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+ics.Filename(st.Event.ID)+`"`)
	fmt.Fprint(w, ics.Export(*st.Event, h.cfg.Domain, time.Now()))
}

// NewForm shows an empty create form.
func (h *EventsHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	f := lifecycle.NewForm(h.gw, &redirect{}, nil, h.cfg.Options)
	defer f.Close()
	if err := f.Open(0); err != nil {
		h.serverError(w, "open form", err)
		return
	}
	h.renderForm(w, f.State(), http.StatusOK)
}

// EditForm loads an event into the form, or returns to the list with a
// notice when it cannot be loaded.
func (h *EventsHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := validate.ParseID(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	nav := &redirect{}
	f, ok := h.openForm(w, nav, id)
	if !ok {
		return
	}
	defer f.Close()
	if loc := nav.target(); loc != "" {
		http.Redirect(w, r, loc, http.StatusSeeOther)
		return
	}
	h.renderForm(w, f.State(), http.StatusOK)
}

// Create submits a new event.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, 0)
}

// Update submits changes to an existing event.
func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := validate.ParseID(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	h.submit(w, r, id)
}

func (h *EventsHandler) openForm(w http.ResponseWriter, nav lifecycle.Navigator, id int64) (*lifecycle.Form, bool) {
	f := lifecycle.NewForm(h.gw, nav, nil, h.cfg.Options)
	if err := f.Open(id); err != nil {
		f.Close()
		h.serverError(w, "open form", err)
		return nil, false
	}
	f.Wait()
	return f, true
}

func (h *EventsHandler) submit(w http.ResponseWriter, r *http.Request, id int64) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	nav := &redirect{}
	f, ok := h.openForm(w, nav, id)
	if !ok {
		return
	}
	defer f.Close()
	if loc := nav.target(); loc != "" {
		http.Redirect(w, r, loc, http.StatusSeeOther)
		return
	}

	fields := lifecycle.Fields{
		Title:       r.PostFormValue(validate.FieldTitle),
		Description: r.PostFormValue(validate.FieldDescription),
		OccursAt:    r.PostFormValue(validate.FieldOccursAt),
		Location:    r.PostFormValue(validate.FieldLocation),
	}
	if err := f.SetFields(fields); err != nil {
		h.serverError(w, "set fields", err)
		return
	}

	err := f.Submit()
	var verr *validate.ValidationError
	if errors.As(err, &verr) {
		h.renderForm(w, f.State(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		h.serverError(w, "submit", err)
		return
	}
	f.Wait()

	if loc := nav.target(); loc != "" {
		http.Redirect(w, r, loc, http.StatusSeeOther)
		return
	}

	st := f.State()
	status := http.StatusBadGateway
	var sve *eventclient.ServerValidationError
	switch {
	case errors.As(st.Err, &sve):
		status = http.StatusUnprocessableEntity
	case errors.Is(st.Err, eventclient.ErrNotFound):
		status = http.StatusNotFound
	}
	h.renderForm(w, st, status)
}

func (h *EventsHandler) renderForm(w http.ResponseWriter, st lifecycle.FormState, status int) {
	data := formData{
		layoutData: layoutData{Title: "New event"},
		State:      st,
		Action:     "/events",
	}
	if st.Mode == lifecycle.ModeEdit {
		data.Title = "Edit event"
		data.Action = "/events/" + strconv.FormatInt(st.ID, 10)
	}
	h.render(w, "form", status, data)
}

func (h *EventsHandler) render(w http.ResponseWriter, page string, status int, data any) {
	var buf bytes.Buffer
	if err := h.templates[page].ExecuteTemplate(&buf, "layout.html", data); err != nil {
		h.logger.Error("template error", "page", page, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *EventsHandler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("request failed", "op", op, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
