package models

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func validAttributes() Attributes {
	return Attributes{Strength: 8, Dexterity: 6, Constitution: 5, Intelligence: 5, Wisdom: 5, Charisma: 1}
}

func TestNewPlayerValidatesAttributes(t *testing.T) {
	tests := []struct {
		name  string
		attrs Attributes
		ok    bool
	}{
		{"valid", validAttributes(), true},
		{"all fives", Attributes{5, 5, 5, 5, 5, 5}, true},
		{"sum too low", Attributes{5, 5, 5, 5, 5, 4}, false},
		{"sum too high", Attributes{9, 9, 9, 1, 1, 2}, false},
		{"zero attribute", Attributes{9, 9, 9, 2, 1, 0}, false},
		{"above max", Attributes{10, 8, 5, 5, 1, 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPlayer("Hero", "a wanderer", tt.attrs)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidAttributes)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StartHealth, p.CurrentHealth)
			assert.Equal(t, StartHealth, p.MaxHealth)
		})
	}
}

func TestRandomAttributesAlwaysValid(t *testing.T) {
	src := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		require.NoError(t, RandomAttributes(src).Validate())
	}
}

func TestUpdateHealthClamps(t *testing.T) {
	p, err := NewPlayer("Hero", "", validAttributes())
	require.NoError(t, err)

	assert.Equal(t, 0, p.UpdateHealth(5))
	assert.Equal(t, StartHealth, p.CurrentHealth)

	assert.Equal(t, -4, p.UpdateHealth(-4))
	assert.Equal(t, 6, p.CurrentHealth)

	assert.Equal(t, -6, p.UpdateHealth(-20))
	assert.Equal(t, 0, p.CurrentHealth)
	assert.True(t, p.IsDefeated())

	for _, d := range []int{3, -1, 9, 9, -30, 12} {
		p.UpdateHealth(d)
		assert.GreaterOrEqual(t, p.CurrentHealth, 0)
		assert.LessOrEqual(t, p.CurrentHealth, p.MaxHealth)
	}
}

func TestUpdateAttributeClamps(t *testing.T) {
	p, err := NewPlayer("Hero", "", validAttributes())
	require.NoError(t, err)

	applied, err := p.UpdateAttribute(Strength, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 9, p.Strength)

	applied, err = p.UpdateAttribute(Strength, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
	assert.Equal(t, MaxPerAttribute, p.Strength)

	applied, err = p.UpdateAttribute(Charisma, -3)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
	assert.Equal(t, MinPerAttribute, p.Charisma)

	_, err = p.UpdateAttribute(Attribute("luck"), 1)
	assert.Error(t, err)
}

func TestInventory(t *testing.T) {
	p, err := NewPlayer("Hero", "", validAttributes())
	require.NoError(t, err)
	assert.Equal(t, "No Items in inventory", p.InventoryPrompt())

	p.AddItem(Item{Name: "Healing Potion", Rarity: Common})
	p.AddItem(Item{Name: "Long sword", Rarity: Common})
	assert.Equal(t, "Healing Potion, Long sword", p.InventoryPrompt())
	assert.Contains(t, p.InventoryFullPrompt(), "Index: 1\nName: Long sword")

	item, err := p.RemoveItem(0)
	require.NoError(t, err)
	assert.Equal(t, "Healing Potion", item.Name)
	assert.Len(t, p.Inventory, 1)

	_, err = p.RemoveItem(3)
	assert.Error(t, err)
}

func TestProgression(t *testing.T) {
	p := NewProgression(3)
	assert.Equal(t, "0/3", p.String())
	for i := 0; i < 3; i++ {
		assert.True(t, p.Progress())
	}
	assert.True(t, p.IsCompleted())
	assert.Equal(t, "Complete", p.String())
	assert.False(t, p.Progress())
	assert.Equal(t, 3, p.CompletionRate)
	assert.False(t, p.Fail(), "a completed floor cannot fail")

	p = NewProgression(3)
	p.Progress()
	assert.True(t, p.Fail())
	assert.True(t, p.IsFailed())
	assert.False(t, p.Progress())
	assert.True(t, p.IsFailed(), "failure is not reversible")
	assert.Equal(t, "Fail", p.String())
}

func TestLoadProgressionClamps(t *testing.T) {
	assert.Equal(t, -1, LoadProgression(-1, 3).CompletionRate)
	assert.Equal(t, 0, LoadProgression(-7, 3).CompletionRate)
	assert.Equal(t, 3, LoadProgression(9, 3).CompletionRate)
	assert.Equal(t, 2, LoadProgression(2, 3).CompletionRate)
}

func TestFloorHistoryPrompt(t *testing.T) {
	h := NewFloorHistory()
	assert.Equal(t, "No history available", h.Prompt())

	h.AddNarrative("A dusty vault.")
	h.AddPlayerAction("Open the chest", Success)
	h.AddSystem("Progress 1/3")

	assert.Equal(t, "Narrator: A dusty vault.\nPlayer: Open the chest.(Success)\n", h.Prompt())
	assert.Contains(t, h.String(), "System: Progress 1/3")
	assert.Equal(t, 3, h.Len())

	entries := h.Entries()
	entries[0].Content = "changed"
	assert.Equal(t, "A dusty vault.", h.Entries()[0].Content)

	restored := LoadHistory(h.Entries())
	assert.Equal(t, h.String(), restored.String())
}

func TestFloorTypes(t *testing.T) {
	assert.True(t, HiddenTrap.Contested())
	assert.True(t, NPCEncounter.Contested())
	assert.False(t, Treasure.Contested())
	assert.False(t, TreasureWithTrap.Contested())
	assert.Equal(t, "treasure_with_trap", TreasureWithTrap.Slug())

	ft, err := ParseFloorType("NPC Encounter")
	require.NoError(t, err)
	assert.Equal(t, NPCEncounter, ft)
	_, err = ParseFloorType("Boss")
	assert.Error(t, err)
}

func TestSessionYAMLInlinesAttributes(t *testing.T) {
	p, err := NewPlayer("Hero", "a wanderer", validAttributes())
	require.NoError(t, err)
	session := &Session{ID: "abc", Theme: "sunken city", CurrentFloor: 2, State: InProgress, Player: p}

	data, err := yaml.Marshal(session)
	require.NoError(t, err)
	assert.Contains(t, string(data), "strength: 8")

	var decoded Session
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, validAttributes(), decoded.Player.Attributes)
	assert.Equal(t, InProgress, decoded.State)
}

func TestParseAttribute(t *testing.T) {
	for _, in := range []string{"wisdom", "Wisdom", " WISDOM "} {
		got, err := ParseAttribute(in)
		require.NoError(t, err, in)
		assert.Equal(t, Wisdom, got)
	}
	_, err := ParseAttribute("luck")
	assert.ErrorContains(t, err, `unknown attribute "luck"`)

	var a Attribute
	require.NoError(t, a.UnmarshalText([]byte("Charisma")))
	assert.Equal(t, Charisma, a)
	assert.Error(t, a.UnmarshalText([]byte("luck")))
}
