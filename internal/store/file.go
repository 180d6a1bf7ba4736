package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tatianab/dungeon-floor/internal/models"
)

const sessionFile = "session.yaml"

// FileStore keeps one directory per session holding a single session.yaml.
// Every save replaces that document with one rename, so a failed save leaves
// the previous one in place.
type FileStore struct {
	dir    string
	rename func(oldpath, newpath string) error
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create save directory: %w", err)
	}
	return &FileStore{dir: dir, rename: os.Rename}, nil
}

// sessionRecord is the session.yaml layout.
type sessionRecord struct {
	ID           string              `yaml:"id"`
	Theme        string              `yaml:"theme"`
	Background   models.Background   `yaml:"background"`
	CurrentFloor int                 `yaml:"current_floor"`
	State        models.GameState    `yaml:"game_state"`
	CreatedAt    time.Time           `yaml:"created_at"`
	UpdatedAt    time.Time           `yaml:"updated_at"`
	Player       *models.Player      `yaml:"player,omitempty"`
	Floor        *models.FloorRecord `yaml:"floor,omitempty"`
	Events       []models.Entry      `yaml:"events"`
}

func (s *FileStore) Save(ctx context.Context, sess *models.Session) error {
	if err := checkID(sess.ID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Join(s.dir, sess.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return s.writeYAML(dir, sessionFile, sessionRecord{
		ID:           sess.ID,
		Theme:        sess.Theme,
		Background:   sess.Background,
		CurrentFloor: sess.CurrentFloor,
		State:        sess.State,
		CreatedAt:    sess.CreatedAt,
		UpdatedAt:    sess.UpdatedAt,
		Player:       sess.Player,
		Floor:        sess.Floor,
		Events:       sess.Events,
	})
}

func (s *FileStore) Load(ctx context.Context, id string) (*models.Session, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec sessionRecord
	if err := readYAML(filepath.Join(s.dir, id), sessionFile, &rec); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &models.Session{
		ID:           rec.ID,
		Theme:        rec.Theme,
		Background:   rec.Background,
		CurrentFloor: rec.CurrentFloor,
		State:        rec.State,
		Player:       rec.Player,
		Floor:        rec.Floor,
		Events:       rec.Events,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

func (s *FileStore) List(ctx context.Context) ([]models.Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.Summary{}, nil
		}
		return nil, err
	}

	sessions := []models.Summary{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		var rec sessionRecord
		if err := readYAML(filepath.Join(s.dir, entry.Name()), sessionFile, &rec); err != nil {
			// Not a session, or one whose first save never finished.
			continue
		}
		sessions = append(sessions, models.Summary{
			ID:           rec.ID,
			Theme:        rec.Theme,
			CurrentFloor: rec.CurrentFloor,
			State:        rec.State,
			UpdatedAt:    rec.UpdatedAt,
		})
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *FileStore) Close() error { return nil }

// writeYAML replaces dir/name atomically.
func (s *FileStore) writeYAML(dir, name string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := s.rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func readYAML(dir, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
