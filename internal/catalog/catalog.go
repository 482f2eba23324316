package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CategoryAppointmentStatus scopes the appointment lifecycle states.
const CategoryAppointmentStatus = "appointment status"

// Lifecycle status names the scheduler depends on. The ids behind them are
// catalog data, never compiled constants.
const (
	StatusPending   = "Pending"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

// ConfigurationError reports a catalog entry the deployment is missing.
// It is an operator problem, not a user input problem.
type ConfigurationError struct {
	Category string
	Name     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("parameter catalog is missing %q in category %q", e.Name, e.Category)
}

// Resolver maps a (category, name) pair to its stable identifier.
type Resolver interface {
	Resolve(ctx context.Context, category, name string) (uuid.UUID, error)
	ListCategory(ctx context.Context, category string) (map[uuid.UUID]string, error)
}

// Store is the Postgres-backed parameter catalog.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Resolve(ctx context.Context, category, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT id
		FROM catalog_parameters
		WHERE category = $1 AND name = $2 AND active
	`, category, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, &ConfigurationError{Category: category, Name: name}
		}
		return uuid.Nil, fmt.Errorf("resolve catalog parameter: %w", err)
	}
	return id, nil
}

func (s *Store) ListCategory(ctx context.Context, category string) (map[uuid.UUID]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name
		FROM catalog_parameters
		WHERE category = $1 AND active
	`, category)
	if err != nil {
		return nil, fmt.Errorf("list catalog category: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]string)
	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// StatusSet is the appointment-status slice of the catalog, resolved once at
// startup and handed to the scheduler so orchestration logic never touches
// raw status codes.
type StatusSet struct {
	pending   uuid.UUID
	cancelled uuid.UUID
	names     map[uuid.UUID]string
}

// LoadStatusSet resolves every appointment status and checks that the names
// the lifecycle depends on are present.
func LoadStatusSet(ctx context.Context, r Resolver) (*StatusSet, error) {
	names, err := r.ListCategory(ctx, CategoryAppointmentStatus)
	if err != nil {
		return nil, err
	}

	set := &StatusSet{names: names}
	for id, name := range names {
		switch name {
		case StatusPending:
			set.pending = id
		case StatusCancelled:
			set.cancelled = id
		}
	}

	if set.pending == uuid.Nil {
		return nil, &ConfigurationError{Category: CategoryAppointmentStatus, Name: StatusPending}
	}
	if set.cancelled == uuid.Nil {
		return nil, &ConfigurationError{Category: CategoryAppointmentStatus, Name: StatusCancelled}
	}

	return set, nil
}

// NewStatusSet builds a set from explicit rows. Intended for tests.
func NewStatusSet(names map[uuid.UUID]string) (*StatusSet, error) {
	set := &StatusSet{names: names}
	for id, name := range names {
		switch name {
		case StatusPending:
			set.pending = id
		case StatusCancelled:
			set.cancelled = id
		}
	}
	if set.pending == uuid.Nil {
		return nil, &ConfigurationError{Category: CategoryAppointmentStatus, Name: StatusPending}
	}
	if set.cancelled == uuid.Nil {
		return nil, &ConfigurationError{Category: CategoryAppointmentStatus, Name: StatusCancelled}
	}
	return set, nil
}

// PendingID is the initial status of every new appointment.
func (s *StatusSet) PendingID() uuid.UUID { return s.pending }

// CancelledID is the terminal status set by cancellation.
func (s *StatusSet) CancelledID() uuid.UUID { return s.cancelled }

// NameOf returns the display name for a status id, or "" if the id is not an
// appointment status.
func (s *StatusSet) NameOf(id uuid.UUID) string { return s.names[id] }

// Contains reports whether id belongs to the appointment status category.
func (s *StatusSet) Contains(id uuid.UUID) bool {
	_, ok := s.names[id]
	return ok
}

// IsCancelled checks the status by name, since the id itself is deployment
// data.
func (s *StatusSet) IsCancelled(id uuid.UUID) bool {
	return s.names[id] == StatusCancelled
}
