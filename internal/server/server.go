// Package server assembles the UI shell: HTML event pages, live browse
// sessions and static assets behind the request middleware.
package server

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/config"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/handler"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/lifecycle"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/middleware"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/validate"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/wallclock"
	ws "github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/websocket"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/web"
)

type Server struct {
	hub          *ws.Hub
	eventsH      *handler.EventsHandler
	session      ws.SessionConfig
	writeLimiter *middleware.WriteLimiter
	static       fs.FS
	logger       *slog.Logger
}

// New wires the shell around gw, the remote events API. Writes that go
// through the shell are announced to every live browse session.
func New(cfg *config.Config, gw lifecycle.Gateway, logger *slog.Logger) (*Server, error) {
	hub := ws.NewHub(logger.With("component", "websocket"))
	notifying := hub.Notifying(gw)

	opts := lifecycle.Options{
		PageSize:      cfg.Browse.PageSize,
		Sort:          cfg.SortOrder(),
		NavigateDelay: cfg.Browse.DeleteRedirectDelay,
		Validator:     validate.New(wallclock.SystemClock),
	}

	eventsH, err := handler.NewEventsHandler(notifying, handler.EventsConfig{
		Options:   opts,
		PageSizes: cfg.Browse.PageSizes,
		Domain:    "eventdesk.local",
		Live:      true,
	}, web.FS, logger.With("component", "events"))
	if err != nil {
		return nil, fmt.Errorf("events handler: %w", err)
	}

	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	sessionLogger := logger.With("component", "browse_session")
	sessionOpts := opts
	sessionOpts.Logger = sessionLogger
	session := ws.SessionConfig{
		Open: func(nav lifecycle.Navigator, onChange func(lifecycle.BrowseState)) *lifecycle.Browse {
			return lifecycle.NewBrowse(notifying, nav, onChange, sessionOpts)
		},
		PageSizes: cfg.Browse.PageSizes,
		Logger:    sessionLogger,
	}

	return &Server{
		hub:          hub,
		eventsH:      eventsH,
		session:      session,
		writeLimiter: middleware.NewWriteLimiter(cfg.WriteLimit, time.Minute),
		static:       static,
		logger:       logger,
	}, nil
}

// WriteLimiter returns the limiter for periodic cleanup.
func (s *Server) WriteLimiter() *middleware.WriteLimiter {
	return s.writeLimiter
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(s.static)))
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws/browse", ws.HandleBrowse(s.hub, s.session))

	mux.HandleFunc("GET /events", s.eventsH.Browse)
	mux.HandleFunc("GET /events/search", s.eventsH.Search)
	mux.HandleFunc("GET /events/new", s.eventsH.NewForm)
	mux.HandleFunc("POST /events", s.eventsH.Create)
	mux.HandleFunc("GET /events/{id}", s.eventsH.Detail)
	mux.HandleFunc("POST /events/{id}", s.eventsH.Update)
	mux.HandleFunc("GET /events/{id}/edit", s.eventsH.EditForm)
	mux.HandleFunc("GET /events/{id}/delete", s.eventsH.ConfirmDelete)
	mux.HandleFunc("POST /events/{id}/delete", s.eventsH.Delete)
	mux.HandleFunc("GET /events/{id}/ics", s.eventsH.Export)
	mux.HandleFunc("GET /", s.eventsH.Index)

	var h http.Handler = mux
	h = middleware.LimitWrites(s.writeLimiter)(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	h = middleware.RequestID(h)
	return h
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.hub.ClientCount(),
	})
}
