// Package store persists game sessions. The engine never touches storage
// directly; the dungeon master loads a session, plays a turn, and saves.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tatianab/dungeon-floor/internal/models"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrInvalidID = errors.New("invalid session id")
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Store loads and saves whole sessions. Save replaces whatever was stored
// under the session's ID.
type Store interface {
	Save(ctx context.Context, s *models.Session) error
	Load(ctx context.Context, id string) (*models.Session, error)
	// List returns every session, most recently updated first.
	List(ctx context.Context) ([]models.Summary, error)
	Close() error
}

// Open returns the store for driver rooted at path. For the file driver path
// is a directory; for sqlite it is the database file.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverFile:
		return NewFileStore(path)
	case DriverSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func checkID(id string) error {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
