package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"greenhouse_control/internal/models"
)

// ErrInvalidPath is returned for an empty or malformed store path.
var ErrInvalidPath = errors.New("invalid store path")

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.Operator, error)
}

// StateStore is the key-path addressable system of record.
// Get decodes the value at path (including any child paths) into dst and
// reports whether anything was stored there. Set replaces the whole value at
// path, children included.
type StateStore interface {
	Get(ctx context.Context, path string, dst any) (bool, error)
	Set(ctx context.Context, path string, value any) error
}

type EventRepo interface {
	Append(ctx context.Context, e models.Event) error
	List(ctx context.Context, from, to time.Time, typ, device string) ([]models.Event, error)
}

type Repository struct {
	Store     StateStore
	EventRepo EventRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Store:     NewStoreSQLite(db),
		EventRepo: NewEventSQLite(db),
		Auth:      NewOperatorRepository(db),
	}
}
