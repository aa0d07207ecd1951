package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/model"
)

// ErrUnknownSort is returned for a sort field that is not an event column.
var ErrUnknownSort = errors.New("unknown sort field")

// sortColumns maps API field names to columns. Only these may be sorted on.
var sortColumns = map[string]string{
	"id":        "id",
	"titulo":    "titulo",
	"dataHora":  "data_hora",
	"local":     "local",
	"descricao": "descricao",
}

const eventColumns = `id, titulo, descricao, data_hora, local`

// EventStore keeps events in SQLite. Deleted events stay in the table with
// deleted_at set and are invisible to every read.
type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Create(in model.EventInput) (*model.Event, error) {
	result, err := s.db.Exec(
		`INSERT INTO events (titulo, descricao, data_hora, local) VALUES (?, ?, ?, ?)`,
		in.Title, in.Description, in.OccursAt, in.Location,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

// GetByID returns nil when the event does not exist or was deleted.
func (s *EventStore) GetByID(id int64) (*model.Event, error) {
	var e model.Event
	err := s.db.QueryRow(
		`SELECT `+eventColumns+` FROM events WHERE id = ? AND deleted_at IS NULL`,
		id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.OccursAt, &e.Location)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query event: %w", err)
	}
	return &e, nil
}

// List returns one page of live events. Ties on the sort field are broken by id.
func (s *EventStore) List(pageIndex, pageSize int, sort model.Sort) (model.EventPage, error) {
	column, ok := sortColumns[sort.Field]
	if !ok {
		return model.EventPage{}, fmt.Errorf("%w: %q", ErrUnknownSort, sort.Field)
	}
	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}

	var total int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM events WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return model.EventPage{}, fmt.Errorf("count events: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT `+eventColumns+` FROM events
		 WHERE deleted_at IS NULL
		 ORDER BY `+column+` `+dir+`, id `+dir+`
		 LIMIT ? OFFSET ?`,
		pageSize, pageIndex*pageSize,
	)
	if err != nil {
		return model.EventPage{}, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.OccursAt, &e.Location); err != nil {
			return model.EventPage{}, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return model.EventPage{}, fmt.Errorf("iterate events: %w", err)
	}

	return model.NewEventPage(events, total, pageIndex, pageSize), nil
}

// Update returns nil when there is no live event with id.
func (s *EventStore) Update(id int64, in model.EventInput) (*model.Event, error) {
	result, err := s.db.Exec(
		`UPDATE events SET titulo = ?, descricao = ?, data_hora = ?, local = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		in.Title, in.Description, in.OccursAt, in.Location, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetByID(id)
}

// SoftDelete marks the event deleted. It reports false when there was no
// live event with id.
func (s *EventStore) SoftDelete(id int64) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE events SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("soft delete event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
