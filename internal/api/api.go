// Package api serves the events REST contract the UI shell consumes, with
// its method-in-path URLs, backed by the SQLite event store.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/model"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/store"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/validate"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	maxBody = 1 << 20
)

// Store is the persistence the API needs.
type Store interface {
	List(pageIndex, pageSize int, sort model.Sort) (model.EventPage, error)
	GetByID(id int64) (*model.Event, error)
	Create(in model.EventInput) (*model.Event, error)
	Update(id int64, in model.EventInput) (*model.Event, error)
	SoftDelete(id int64) (bool, error)
}

var _ Store = (*store.EventStore)(nil)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type EventHandler struct {
	store     Store
	validator *validate.Validator
	logger    *slog.Logger
}

func NewEventHandler(s Store, v *validate.Validator, logger *slog.Logger) *EventHandler {
	return &EventHandler{store: s, validator: v, logger: logger}
}

// NewRouter mounts the event routes under prefix and wraps them in CORS for
// the given origins.
func NewRouter(h *EventHandler, prefix string, origins []string) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", health).Methods(http.MethodGet)

	api := r.PathPrefix(strings.TrimRight(prefix, "/")).Subrouter()
	api.HandleFunc("/GET/api/events", h.List).Methods(http.MethodGet)
	api.HandleFunc("/GET/api/events/{id}", h.Get).Methods(http.MethodGet)
	api.HandleFunc("/POST/api/events", h.Create).Methods(http.MethodPost)
	api.HandleFunc("/PUT/api/events/{id}", h.Update).Methods(http.MethodPut)
	api.HandleFunc("/DELETE/api/events/{id}", h.Delete).Methods(http.MethodDelete)

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	}).Handler(r)
}

func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 0)
	if err != nil || page < 0 {
		writeError(w, http.StatusBadRequest, "page must be a non-negative integer", nil)
		return
	}
	size, err := intParam(q.Get("size"), DefaultPageSize)
	if err != nil || size <= 0 || size > MaxPageSize {
		writeError(w, http.StatusBadRequest, "size must be between 1 and "+strconv.Itoa(MaxPageSize), nil)
		return
	}
	sort, err := model.ParseSort(q.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	result, err := h.store.List(page, size, sort)
	if errors.Is(err, store.ErrUnknownSort) {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err != nil {
		h.serverError(w, "list events", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	event, err := h.store.GetByID(id)
	if err != nil {
		h.serverError(w, "get event", err)
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	event, err := h.store.Create(in)
	if err != nil {
		h.serverError(w, "create event", err)
		return
	}
	h.logger.Info("event created", "id", event.ID)
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	event, err := h.store.Update(id, in)
	if err != nil {
		h.serverError(w, "update event", err)
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found", nil)
		return
	}
	h.logger.Info("event updated", "id", id)
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := h.store.SoftDelete(id)
	if err != nil {
		h.serverError(w, "delete event", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "event not found", nil)
		return
	}
	h.logger.Info("event deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// decodeInput reads and validates a request body. Field errors are keyed by
// wire name, and the error text lists one "field: message" per line.
func (h *EventHandler) decodeInput(w http.ResponseWriter, r *http.Request) (model.EventInput, bool) {
	var in model.EventInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return in, false
	}

	err := h.validator.ValidateInput(in)
	var verr *validate.ValidationError
	if errors.As(err, &verr) {
		fields := make(map[string]string, len(verr.Violations))
		lines := make([]string, 0, len(verr.Violations))
		for _, v := range verr.Violations {
			wire := validate.WireName(v.Field)
			fields[wire] = v.Message
			lines = append(lines, wire+": "+v.Message)
		}
		writeError(w, http.StatusBadRequest, strings.Join(lines, "\n"), fields)
		return in, false
	}
	if err != nil {
		h.serverError(w, "validate event", err)
		return in, false
	}
	return in, true
}

func (h *EventHandler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("request failed", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error", nil)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := validate.ParseID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id", nil)
		return 0, false
	}
	return id, true
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, fields map[string]string) {
	writeJSON(w, status, errorResponse{Error: msg, Fields: fields})
}
