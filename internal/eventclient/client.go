// Package eventclient talks to the remote events REST API. A Client holds no
// record state: every call is exactly one outbound request, with no retry and
// no caching.
package eventclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/model"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/validate"
)

const (
	DefaultBaseURL = "http://localhost:8080/gestaoEventosBackend/evento"
	DefaultTimeout = 15 * time.Second

	// RequestIDHeader is set on every outbound request.
	RequestIDHeader = "X-Request-ID"

	maxErrorBody = 64 << 10

	opList = "list events"
)

// Config holds the API location and request limits.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is the gateway to the five event operations.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client; zero Config fields take defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

// List fetches one page of events.
func (c *Client) List(ctx context.Context, pageIndex, pageSize int, sort model.Sort) (model.EventPage, error) {
	const op = opList
	if pageIndex < 0 || pageSize <= 0 {
		return model.EventPage{}, fmt.Errorf("%s: %w: page %d size %d", op, ErrInvalidPage, pageIndex, pageSize)
	}
	if sort.Field == "" {
		sort = model.DefaultSort
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(pageIndex))
	q.Set("size", strconv.Itoa(pageSize))
	q.Set("sort", sort.String())

	var page model.EventPage
	if err := c.do(ctx, op, http.MethodGet, "/GET/api/events?"+q.Encode(), nil, &page); err != nil {
		return model.EventPage{}, err
	}
	if err := checkPage(page); err != nil {
		return model.EventPage{}, &ProtocolError{Op: op, Err: err}
	}
	if page.Items == nil {
		page.Items = []model.Event{}
	}
	return page, nil
}

// Get fetches a single event.
func (c *Client) Get(ctx context.Context, id int64) (model.Event, error) {
	var e model.Event
	if err := c.do(ctx, "get event", http.MethodGet, "/GET/api/events/"+idPath(id), nil, &e); err != nil {
		return model.Event{}, err
	}
	return e, nil
}

// Create submits a new event and returns the server's record.
func (c *Client) Create(ctx context.Context, in model.EventInput) (model.Event, error) {
	var e model.Event
	if err := c.do(ctx, "create event", http.MethodPost, "/POST/api/events", in, &e); err != nil {
		return model.Event{}, err
	}
	return e, nil
}

// Update replaces the editable fields of an event.
func (c *Client) Update(ctx context.Context, id int64, in model.EventInput) (model.Event, error) {
	var e model.Event
	if err := c.do(ctx, "update event", http.MethodPut, "/PUT/api/events/"+idPath(id), in, &e); err != nil {
		return model.Event{}, err
	}
	return e, nil
}

// SoftDelete removes an event from subsequent listings.
func (c *Client) SoftDelete(ctx context.Context, id int64) error {
	return c.do(ctx, "delete event", http.MethodDelete, "/DELETE/api/events/"+idPath(id), nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "op", op, "method", method, "url", req.URL.String(), "request_id", reqID, "error", err)
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("request",
		"op", op,
		"method", method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", reqID,
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &ProtocolError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}

	return c.statusError(op, method, resp)
}

func (c *Client) statusError(op, method string, resp *http.Response) error {
	var eb errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if len(raw) > 0 {
		// Bodies that are not JSON still yield a status-based error.
		_ = json.Unmarshal(raw, &eb)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound && op != opList:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case (resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity) &&
		(method == http.MethodPost || method == http.MethodPut):
		sve := &ServerValidationError{Message: eb.detail()}
		if len(eb.Fields) > 0 {
			sve.Fields = make(map[string]string, len(eb.Fields))
			for wire, msg := range eb.Fields {
				sve.Fields[validate.FormName(wire)] = msg
			}
		}
		c.logger.Info("server rejected event", "op", op, "message", sve.Message, "fields", len(sve.Fields))
		return sve
	default:
		c.logger.Warn("unexpected status", "op", op, "status", resp.StatusCode, "detail", eb.detail())
		return &TransportError{Op: op, StatusCode: resp.StatusCode}
	}
}

func checkPage(p model.EventPage) error {
	if p.PageSize < 0 || p.PageIndex < 0 || p.TotalCount < 0 {
		return errors.New("negative page fields")
	}
	if len(p.Items) > p.PageSize {
		return fmt.Errorf("%d items exceed page size %d", len(p.Items), p.PageSize)
	}
	if len(p.Items) > 0 && int64(p.PageIndex)*int64(p.PageSize) >= p.TotalCount {
		return fmt.Errorf("page %d of size %d is beyond total %d", p.PageIndex, p.PageSize, p.TotalCount)
	}
	return nil
}

func idPath(id int64) string {
	return strconv.FormatInt(id, 10)
}
