package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/dungeon-floor/internal/dungeon"
	"github.com/tatianab/dungeon-floor/internal/engine"
	"github.com/tatianab/dungeon-floor/internal/llm"
	"github.com/tatianab/dungeon-floor/internal/llm/llmtest"
	"github.com/tatianab/dungeon-floor/internal/models"
	"github.com/tatianab/dungeon-floor/internal/store"
)

func testModel(t *testing.T) model {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	master := dungeon.New(llm.NewClient(llmtest.New()), st)
	return newModel(context.Background(), master, Options{EventLength: 3})
}

func playingSession() *models.Session {
	player, _ := models.NewPlayer("Ada", "A keeper's child.", models.Attributes{
		Strength: 8, Dexterity: 6, Constitution: 5, Intelligence: 6, Wisdom: 4, Charisma: 1,
	})
	return &models.Session{
		ID:           "s1",
		Theme:        "A drowned lighthouse.",
		CurrentFloor: 2,
		State:        models.InProgress,
		Player:       player,
		Floor: &models.FloorRecord{
			Type:             models.Treasure,
			SuggestedActions: []string{"Search the altar", "Climb the wall"},
		},
		Events: []models.Entry{{Role: models.Narrator, Content: "A quiet vault."}},
	}
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	got, ok := next.(model)
	require.True(t, ok)
	return got, cmd
}

func TestCreationScreen(t *testing.T) {
	m := testModel(t)
	sess := &models.Session{
		ID:     "s1",
		State:  models.PlayerCreation,
		Events: []models.Entry{{Role: models.Narrator, Content: "The sea rose."}},
	}
	m, _ = update(t, m, sessionMsg{sess})

	assert.Equal(t, stateCreation, m.state)
	assert.NoError(t, m.attrs.Validate())
	assert.Contains(t, m.gameLog, "The sea rose.")
	assert.Contains(t, m.View(), "YOUR ATTRIBUTES")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.NoError(t, m.attrs.Validate())
	assert.Equal(t, stateCreation, m.state)
}

func TestResumePlayingSession(t *testing.T) {
	m := testModel(t)
	m, cmd := update(t, m, sessionMsg{playingSession()})

	assert.Nil(t, cmd)
	assert.Equal(t, statePlaying, m.state)
	assert.Equal(t, []string{"Search the altar", "Climb the wall"}, m.suggested)
	assert.Equal(t, 1, m.shown)
	view := m.View()
	assert.Contains(t, view, "2. Climb the wall")
	assert.Contains(t, view, "Health: 10/10")
}

func TestPickSuggestion(t *testing.T) {
	m := testModel(t)
	m.suggested = []string{"Search the altar", "Climb the wall"}
	assert.Equal(t, "Climb the wall", m.pick("2"))
	assert.Equal(t, "3", m.pick("3"))
	assert.Equal(t, "kick the door", m.pick("kick the door"))
}

func TestRejectedTurnKeepsPlaying(t *testing.T) {
	m := testModel(t)
	m, _ = update(t, m, sessionMsg{playingSession()})
	m.pending = "look"
	m.state = stateLoading

	m, _ = update(t, m, turnMsg{dungeon.Turn{Result: engine.Result{Kind: engine.KindError, Rejection: engine.RejectTooShort}}})
	assert.Equal(t, statePlaying, m.state)
	assert.Contains(t, m.gameLog, "> look")
	assert.Contains(t, m.gameLog, "more detail")
}

func TestFloorEndWaitsForDescent(t *testing.T) {
	m := testModel(t)
	m, _ = update(t, m, sessionMsg{playingSession()})

	sess := playingSession()
	sess.State = models.WaitingForNextFloor
	sess.Events = append(sess.Events, models.Entry{Role: models.System, Content: "Floor complete."})
	m, _ = update(t, m, turnMsg{dungeon.Turn{Result: engine.Result{Kind: engine.KindEnd}, Session: sess}})

	assert.Equal(t, stateNextFloor, m.state)
	assert.Equal(t, 2, m.shown)
	assert.Contains(t, m.gameLog, "Floor complete.")
	assert.Contains(t, m.View(), "descend")
}

func TestDefeatEndsGame(t *testing.T) {
	m := testModel(t)
	m, _ = update(t, m, sessionMsg{playingSession()})

	sess := playingSession()
	sess.State = models.Defeated
	m, _ = update(t, m, turnMsg{dungeon.Turn{Result: engine.Result{Kind: engine.KindDefeat}, Session: sess}})

	assert.Equal(t, stateGameOver, m.state)
	assert.Contains(t, m.View(), "You have been defeated.")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
