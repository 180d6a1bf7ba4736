package prompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/dungeon-floor/internal/llm"
	"github.com/tatianab/dungeon-floor/internal/llm/llmtest"
	"github.com/tatianab/dungeon-floor/internal/models"
)

func testPlayer(t *testing.T) *models.Player {
	t.Helper()
	p, err := models.NewPlayer("Ada", "A wary cartographer.", models.Attributes{
		Strength: 8, Dexterity: 6, Constitution: 5, Intelligence: 6, Wisdom: 4, Charisma: 1,
	})
	require.NoError(t, err)
	return p
}

func testScene(t *testing.T) Scene {
	h := models.NewFloorHistory()
	h.AddNarrative("A dusty vault.")
	h.AddPlayerAction("open the chest", models.Success)
	return Scene{
		Theme:       "A drowned lighthouse.",
		Player:      testPlayer(t),
		History:     h,
		FloorType:   models.Treasure,
		Progression: models.NewProgression(3),
	}
}

func client(p llm.Provider) *llm.Client {
	return llm.NewClient(p, llm.WithRetryDelay(0))
}

func TestEveryOperationHasTemplates(t *testing.T) {
	ops := []string{
		OpClassifyAction, OpAbilityCheck, OpAbilityCheckResolution, OpItemIdentification,
		OpItemUseResolution, OpSuggestAction, OpClassifyRewardType, OpAttributeReward,
		OpBackground, OpThemeCondense, OpFloorIntro,
	}
	for _, op := range ops {
		assert.NotNil(t, userTemplates.Lookup(op+".txt"), "user template %s", op)
	}
	for _, op := range ops[:len(ops)-1] {
		assert.NotNil(t, systemTemplates.Lookup(op+".txt"), "system template %s", op)
	}
	for _, ft := range models.FloorTypes {
		assert.NotNil(t, systemTemplates.Lookup(OpFloorIntro+"_"+ft.Slug()+".txt"), "intro for %s", ft)
	}
}

func TestMissingTemplateFieldIsAnError(t *testing.T) {
	_, err := classifyAction.request(Vars{"theme": "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrBadRequest)

	p := llmtest.New()
	_, err = send[ClassifyActionResponse](context.Background(), client(p), classifyAction, Vars{})
	assert.ErrorIs(t, err, llm.ErrBadRequest)
	assert.Empty(t, p.Requests(), "nothing is sent when rendering fails")
}

func TestClassifyActionRendersScene(t *testing.T) {
	p := llmtest.New().PushJSON(OpClassifyAction, ClassifyActionResponse{ActionType: ActionUseItem, NarrativeConsistency: true})
	s := testScene(t)
	s.Player.AddItem(models.Item{Name: "Rope", Rarity: models.Common})

	got, err := ClassifyAction(context.Background(), client(p), s, "tie the rope to the rail")
	require.NoError(t, err)
	assert.Equal(t, ActionUseItem, got.ActionType)
	assert.True(t, got.NarrativeConsistency)

	req := p.Requests()[0]
	assert.Equal(t, OpClassifyAction, req.Operation)
	assert.Equal(t, 50, req.MaxTokens)
	assert.InDelta(t, 0.4, req.Temperature, 1e-6)
	assert.Contains(t, req.User(), "Theme: A drowned lighthouse.")
	assert.Contains(t, req.User(), "Inventory: Rope")
	assert.Contains(t, req.User(), "Player: open the chest.(Success)")
	assert.Contains(t, req.User(), "Player input: tie the rope to the rail")
}

func TestClassifyActionRejectsUnknownActionType(t *testing.T) {
	p := llmtest.New()
	for range llm.DefaultMaxAttempts {
		p.Push(OpClassifyAction, `{"action_type":"dance","narrative_consistency":true}`)
	}
	_, err := ClassifyAction(context.Background(), client(p), testScene(t), "dance wildly around")
	assert.ErrorIs(t, err, llm.ErrRetriesExhausted)
}

func TestFloorIntroPicksSystemPromptByType(t *testing.T) {
	p := llmtest.New()
	intro := FloorIntroResponse{
		Description:       "A chapel.",
		InvestigationHook: "Something glints.",
		SuggestedActions:  []string{"Search the pews"},
		Summary:           "The player enters a chapel.",
	}
	p.PushJSON(OpFloorIntro, intro).PushJSON(OpFloorIntro, intro)

	_, err := FloorIntro(context.Background(), client(p), "theme", testPlayer(t), models.NPCEncounter)
	require.NoError(t, err)
	_, err = FloorIntro(context.Background(), client(p), "theme", testPlayer(t), models.HiddenTrap)
	require.NoError(t, err)

	reqs := p.Requests()
	assert.Contains(t, reqs[0].System(), "non-player character")
	assert.Contains(t, reqs[0].User(), "Floor type: NPC Encounter")
	assert.Contains(t, reqs[1].System(), "hides a trap")
}

func TestFloorIntroRejectsTooManySuggestions(t *testing.T) {
	p := llmtest.New()
	for range llm.DefaultMaxAttempts {
		p.Push(OpFloorIntro, `{"description":"d","investigation_hook":"h","suggested_actions":["a","b","c"],"summary":"s"}`)
	}
	_, err := FloorIntro(context.Background(), client(p), "theme", testPlayer(t), models.Treasure)
	assert.ErrorIs(t, err, llm.ErrRetriesExhausted)
}

func TestResolutionHealthBounds(t *testing.T) {
	p := llmtest.New().
		Push(OpAbilityCheckResolution, `{"narrative":"n","health_change":10,"summary":"s"}`).
		Push(OpAbilityCheckResolution, `{"narrative":"n","health_change":-9,"summary":"s"}`).
		Push(OpItemUseResolution, `{"narrative":"n","health_change":10,"summary":"s","is_item_consumed":true}`)

	got, err := AbilityCheckResolution(context.Background(), client(p), testScene(t), "climb", models.Failure)
	require.NoError(t, err)
	assert.Equal(t, -9, got.HealthChange)
	assert.Equal(t, 2, p.Calls(OpAbilityCheckResolution))
	assert.Contains(t, p.Requests()[0].User(), "Roll result: Failure")
	assert.Contains(t, p.Requests()[0].User(), "Floor progress: 0/3")

	item, err := ItemUseResolution(context.Background(), client(p), testScene(t), models.Item{Name: "Tonic"}, "drink the tonic")
	require.NoError(t, err)
	assert.Equal(t, 10, item.HealthChange)
	assert.True(t, item.IsItemConsumed)
}

func TestItemIdentificationConfidenceRange(t *testing.T) {
	p := llmtest.New().
		Push(OpItemIdentification, `{"item_index":0,"confidence":1.5}`).
		Push(OpItemIdentification, `{"item_index":-1,"confidence":0.9}`).
		Push(OpItemIdentification, `{"item_index":1,"confidence":0.75}`)
	player := testPlayer(t)
	player.AddItem(models.Item{Name: "Lamp"})
	player.AddItem(models.Item{Name: "Key"})

	got, err := ItemIdentification(context.Background(), client(p), player, "unlock it with the key")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ItemIndex)
	assert.Contains(t, p.Requests()[0].User(), "Index: 1")
}

func TestAttributeRewardAcceptsConstitution(t *testing.T) {
	p := llmtest.New().PushJSON(OpAttributeReward, AttributeRewardResponse{Attribute: models.Constitution})
	got, err := AttributeReward(context.Background(), client(p), testScene(t), "You held the door.")
	require.NoError(t, err)
	assert.Equal(t, models.Constitution, got.Attribute)
}

func TestAbilityCheckNormalizesAttributeCase(t *testing.T) {
	p := llmtest.New().Push(OpAbilityCheck, `{"attribute":" Dexterity ","difficulty_class":12}`)
	got, err := AbilityCheck(context.Background(), client(p), testScene(t), "leap the gap")
	require.NoError(t, err)
	assert.Equal(t, models.Dexterity, got.Attribute)
	assert.Equal(t, 1, p.Calls(OpAbilityCheck))
}

func TestAbilityCheckRejectsConstitution(t *testing.T) {
	p := llmtest.New()
	for range llm.DefaultMaxAttempts {
		p.Push(OpAbilityCheck, `{"attribute":"constitution","difficulty_class":10}`)
	}
	_, err := AbilityCheck(context.Background(), client(p), testScene(t), "hold my breath")
	assert.ErrorIs(t, err, llm.ErrRetriesExhausted)
}

func TestBackgroundAndCondense(t *testing.T) {
	p := llmtest.New().
		PushJSON(OpBackground, BackgroundResponse{Theme: "long theme", PlayerBackstory: "long story", PlayerMotivation: "revenge"}).
		PushJSON(OpThemeCondense, ThemeCondenseResponse{Theme: "short theme", PlayerBackstory: "short story"})

	bg, err := Background(context.Background(), client(p))
	require.NoError(t, err)
	short, err := ThemeCondense(context.Background(), client(p), bg.Theme, bg.PlayerBackstory)
	require.NoError(t, err)
	assert.Equal(t, "short theme", short.Theme)
	assert.Contains(t, p.Requests()[1].User(), "Player backstory: long story")
	assert.Equal(t, 500, p.Requests()[0].MaxTokens)
}
