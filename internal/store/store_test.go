package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/dungeon-floor/internal/models"
	"github.com/tatianab/dungeon-floor/internal/store"
)

func stores(t *testing.T) map[string]store.Store {
	t.Helper()
	dir := t.TempDir()
	file, err := store.Open(store.DriverFile, filepath.Join(dir, "saves"))
	require.NoError(t, err)
	db, err := store.Open(store.DriverSQLite, filepath.Join(dir, "dungeon.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		file.Close()
		db.Close()
	})
	return map[string]store.Store{"file": file, "sqlite": db}
}

func fullSession() *models.Session {
	success := models.Success
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.Session{
		ID:    "0c5d7c8e-5d8e-4c44-9a39-6f0c0b7e2a10",
		Theme: "A drowned lighthouse.",
		Background: models.Background{
			Theme:            "A drowned lighthouse full of echoes.",
			PlayerBackstory:  "A keeper's child.",
			PlayerMotivation: "Relight the lamp.",
		},
		CurrentFloor: 2,
		State:        models.InProgress,
		Player: &models.Player{
			Name:          "Ada",
			Description:   "A keeper's child.",
			CurrentHealth: 7,
			MaxHealth:     11,
			Attributes:    models.Attributes{Strength: 8, Dexterity: 6, Constitution: 5, Intelligence: 6, Wisdom: 4, Charisma: 1},
			Inventory:     []models.Item{{Name: "Lantern", Rarity: models.Common, Description: "Dim.", Effect: "Light."}},
		},
		Floor: &models.FloorRecord{
			Type:           models.HiddenTrap,
			Description:    "A quiet landing.",
			Penalty:        1.0 / 3.0,
			CompletionRate: 1,
			History: []models.Entry{
				{Role: models.Narrator, Content: "A quiet landing."},
				{Role: models.PlayerRole, Content: "test the floorboards", Result: &success},
				{Role: models.System, Content: "Floor ended: skipped"},
			},
			SuggestedActions: []string{"Climb the stairs"},
		},
		Events: []models.Entry{
			{Role: models.Narrator, Content: "A quiet landing."},
			{Role: models.PlayerRole, Content: "test the floorboards"},
		},
		CreatedAt: created,
		UpdatedAt: created.Add(time.Minute),
	}
}

func TestRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := fullSession()
			require.NoError(t, s.Save(ctx, want))

			got, err := s.Load(ctx, want.ID)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestSaveReplaces(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := fullSession()
			require.NoError(t, s.Save(ctx, sess))

			sess.State = models.WaitingForNextFloor
			sess.CurrentFloor = 3
			sess.Player.CurrentHealth = 2
			sess.Floor = nil
			sess.Events = sess.Events[:1]
			require.NoError(t, s.Save(ctx, sess))

			got, err := s.Load(ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, models.WaitingForNextFloor, got.State)
			assert.Equal(t, 3, got.CurrentFloor)
			assert.Equal(t, 2, got.Player.CurrentHealth)
			assert.Nil(t, got.Floor)
			assert.Len(t, got.Events, 1)
		})
	}
}

func TestSessionWithoutPlayer(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := fullSession()
			sess.State = models.PlayerCreation
			sess.Player = nil
			sess.Floor = nil
			require.NoError(t, s.Save(ctx, sess))

			got, err := s.Load(ctx, sess.ID)
			require.NoError(t, err)
			assert.Nil(t, got.Player)
			assert.Nil(t, got.Floor)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(context.Background(), "no-such-session")
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestList(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			empty, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, empty)

			older := fullSession()
			older.ID = "older"
			newer := fullSession()
			newer.ID = "newer"
			newer.UpdatedAt = older.UpdatedAt.Add(time.Hour)
			require.NoError(t, s.Save(ctx, older))
			require.NoError(t, s.Save(ctx, newer))

			list, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "newer", list[0].ID)
			assert.Equal(t, older.Summary(), list[1])
		})
	}
}

func TestFileStoreRejectsPathIDs(t *testing.T) {
	s, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	for _, id := range []string{"", "../escape", "a/b", ".hidden"} {
		sess := fullSession()
		sess.ID = id
		assert.ErrorIs(t, s.Save(context.Background(), sess), store.ErrInvalidID, id)
	}
}

func TestFileStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewFileStore(dir)
	require.NoError(t, err)
	sess := fullSession()
	require.NoError(t, s.Save(context.Background(), sess))

	data, err := os.ReadFile(filepath.Join(dir, sess.ID, "session.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "strength: 8")
	assert.Contains(t, string(data), "events:")

	// Temporary files never linger after a save.
	entries, err := os.ReadDir(filepath.Join(dir, sess.ID))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStoreFailedSaveKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, fullSession()))

	next := fullSession()
	next.State = models.Defeated
	next.Player.CurrentHealth = 0
	next.Floor.End = true
	next.Events = append(next.Events, models.Entry{Role: models.System, Content: "You have been defeated."})

	store.SetRename(s, func(string, string) error { return errors.New("disk full") })
	assert.ErrorContains(t, s.Save(ctx, next), "disk full")

	got, err := s.Load(ctx, next.ID)
	require.NoError(t, err)
	assert.Equal(t, fullSession(), got)

	entries, err := os.ReadDir(filepath.Join(dir, next.ID))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	store.SetRename(s, os.Rename)
	require.NoError(t, s.Save(ctx, next))
	got, err = s.Load(ctx, next.ID)
	require.NoError(t, err)
	assert.Equal(t, next, got)
}

func TestSQLiteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dungeon.db")
	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), fullSession()))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load(context.Background(), fullSession().ID)
	require.NoError(t, err)
	assert.Equal(t, fullSession(), got)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := store.Open("postgres", t.TempDir())
	assert.Error(t, err)
}
