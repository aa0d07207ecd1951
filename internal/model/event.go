package model

import (
	"fmt"
	"strings"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/wallclock"
)

// Event is a server-owned record. Field names on the wire are fixed by the API.
type Event struct {
	ID          int64              `json:"id"`
	Title       string             `json:"titulo"`
	Description string             `json:"descricao"`
	OccursAt    wallclock.DateTime `json:"dataHora"`
	Location    string             `json:"local"`
}

// EventInput is the create/update request body. It never carries an id.
type EventInput struct {
	Title       string             `json:"titulo"`
	Description string             `json:"descricao"`
	OccursAt    wallclock.DateTime `json:"dataHora"`
	Location    string             `json:"local"`
}

// Input returns the editable fields of e.
func (e Event) Input() EventInput {
	return EventInput{
		Title:       e.Title,
		Description: e.Description,
		OccursAt:    e.OccursAt,
		Location:    e.Location,
	}
}

// EventPage mirrors the paginated envelope returned by the list endpoint.
type EventPage struct {
	Items      []Event `json:"content"`
	TotalCount int64   `json:"totalElements"`
	TotalPages int     `json:"totalPages"`
	PageSize   int     `json:"size"`
	PageIndex  int     `json:"number"`
	Empty      bool    `json:"empty"`
	First      bool    `json:"first"`
	Last       bool    `json:"last"`
}

// NewEventPage fills in the derived envelope fields.
func NewEventPage(items []Event, total int64, pageIndex, pageSize int) EventPage {
	if items == nil {
		items = []Event{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return EventPage{
		Items:      items,
		TotalCount: total,
		TotalPages: totalPages,
		PageSize:   pageSize,
		PageIndex:  pageIndex,
		Empty:      len(items) == 0,
		First:      pageIndex == 0,
		Last:       pageIndex >= totalPages-1,
	}
}

// Sort is a list ordering, rendered as "field,dir".
type Sort struct {
	Field string
	Desc  bool
}

// DefaultSort orders by event date, earliest first.
var DefaultSort = Sort{Field: "dataHora"}

func (s Sort) String() string {
	dir := "asc"
	if s.Desc {
		dir = "desc"
	}
	return s.Field + "," + dir
}

// ParseSort reads "field" or "field,asc|desc". An empty string yields DefaultSort.
func ParseSort(s string) (Sort, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultSort, nil
	}
	field, dir, _ := strings.Cut(s, ",")
	field = strings.TrimSpace(field)
	if field == "" {
		return Sort{}, fmt.Errorf("sort %q: missing field", s)
	}
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
		return Sort{Field: field}, nil
	case "desc":
		return Sort{Field: field, Desc: true}, nil
	default:
		return Sort{}, fmt.Errorf("sort %q: direction must be asc or desc", s)
	}
}
