package prompt

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/tatianab/dungeon-floor/internal/llm"
	"github.com/tatianab/dungeon-floor/internal/models"
)

// Operation names. They label requests, metrics and scripted test replies.
const (
	OpFloorIntro             = "floor_intro"
	OpClassifyAction         = "classify_action"
	OpAbilityCheck           = "ability_check"
	OpAbilityCheckResolution = "ability_check_resolution"
	OpItemIdentification     = "item_identification"
	OpItemUseResolution      = "item_use_resolution"
	OpSuggestAction          = "suggest_action"
	OpClassifyRewardType     = "classify_reward_type"
	OpAttributeReward        = "attribute_reward"
	OpBackground             = "background"
	OpThemeCondense          = "theme_condense"
)

// Health-change bounds. Ability checks use the tighter range.
const (
	AbilityHealthBound = 9
	ItemHealthBound    = 10
)

// ActionType is what the classifier decided the player is trying to do.
type ActionType string

const (
	ActionAbilityCheck ActionType = "ability_check"
	ActionUseItem      ActionType = "use_item"
	ActionNextFloor    ActionType = "go_to_next_floor"
	ActionUnknown      ActionType = "unknown"
)

// RewardType is the kind of reward granted on floor completion.
type RewardType string

const (
	RewardHeal              RewardType = "heal"
	RewardMaxHealthIncrease RewardType = "max_health_increase"
	RewardAttributeIncrease RewardType = "attribute_increase"
)

var (
	str     = jsonschema.Definition{Type: jsonschema.String}
	integer = jsonschema.Definition{Type: jsonschema.Integer}
	boolean = jsonschema.Definition{Type: jsonschema.Boolean}
	actions = jsonschema.Definition{
		Type:        jsonschema.Array,
		Description: "one or two short actions",
		Items:       &jsonschema.Definition{Type: jsonschema.String},
	}
)

func healthChange(bound int) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.Integer, Description: fmt.Sprintf("from %d to %d", -bound, bound)}
}

func object(required []string, props map[string]jsonschema.Definition) *jsonschema.Definition {
	return &jsonschema.Definition{Type: jsonschema.Object, Properties: props, Required: required}
}

func enum[T ~string](values ...T) jsonschema.Definition {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return jsonschema.Definition{Type: jsonschema.String, Enum: out}
}

// FloorIntroResponse opens a floor.
type FloorIntroResponse struct {
	Description       string   `json:"description" validate:"required"`
	InvestigationHook string   `json:"investigation_hook" validate:"required"`
	SuggestedActions  []string `json:"suggested_actions" validate:"min=1,max=2,dive,required"`
	Summary           string   `json:"summary" validate:"required"`
}

var floorIntroSchema = object(
	[]string{"description", "investigation_hook", "suggested_actions", "summary"},
	map[string]jsonschema.Definition{
		"description":        str,
		"investigation_hook": str,
		"suggested_actions":  actions,
		"summary":            str,
	})

// FloorIntro describes a freshly entered floor. Every floor type has its own
// system prompt; they share the schema.
func FloorIntro(ctx context.Context, c *llm.Client, theme string, player *models.Player, floorType models.FloorType) (*FloorIntroResponse, error) {
	op := operation{
		name:        OpFloorIntro,
		system:      OpFloorIntro + "_" + floorType.Slug(),
		schema:      floorIntroSchema,
		maxTokens:   300,
		temperature: 0.8,
	}
	vars := Scene{Theme: theme, Player: player, FloorType: floorType}.vars()
	return send[FloorIntroResponse](ctx, c, op, vars)
}

type ClassifyActionResponse struct {
	ActionType           ActionType `json:"action_type" validate:"oneof=ability_check use_item go_to_next_floor unknown"`
	NarrativeConsistency bool       `json:"narrative_consistency"`
}

var classifyAction = operation{
	name: OpClassifyAction,
	schema: object(
		[]string{"action_type", "narrative_consistency"},
		map[string]jsonschema.Definition{
			"action_type":           enum(ActionAbilityCheck, ActionUseItem, ActionNextFloor, ActionUnknown),
			"narrative_consistency": boolean,
		}),
	maxTokens:   50,
	temperature: 0.4,
}

func ClassifyAction(ctx context.Context, c *llm.Client, s Scene, input string) (*ClassifyActionResponse, error) {
	return send[ClassifyActionResponse](ctx, c, classifyAction, s.vars().with("user_input", input))
}

type AbilityCheckResponse struct {
	Attribute       models.Attribute `json:"attribute" validate:"oneof=strength dexterity intelligence wisdom charisma"`
	DifficultyClass int              `json:"difficulty_class" validate:"min=3,max=19"`
}

var abilityCheck = operation{
	name: OpAbilityCheck,
	schema: object(
		[]string{"attribute", "difficulty_class"},
		map[string]jsonschema.Definition{
			"attribute":        enum(models.CheckAttributes...),
			"difficulty_class": {Type: jsonschema.Integer, Description: "from 3 to 19"},
		}),
	maxTokens:   50,
	temperature: 0.4,
}

// AbilityCheck picks the attribute and difficulty class for an action.
func AbilityCheck(ctx context.Context, c *llm.Client, s Scene, action string) (*AbilityCheckResponse, error) {
	return send[AbilityCheckResponse](ctx, c, abilityCheck, s.vars().with("player_action", action))
}

type AbilityCheckResolutionResponse struct {
	Narrative    string `json:"narrative" validate:"required"`
	HealthChange int    `json:"health_change" validate:"min=-9,max=9"`
	Summary      string `json:"summary" validate:"required"`
}

var abilityCheckResolution = operation{
	name: OpAbilityCheckResolution,
	schema: object(
		[]string{"narrative", "health_change", "summary"},
		map[string]jsonschema.Definition{
			"narrative":     str,
			"health_change": healthChange(AbilityHealthBound),
			"summary":       str,
		}),
	maxTokens:   300,
	temperature: 0.8,
}

// AbilityCheckResolution narrates the outcome of a rolled action. The scene
// must carry the progression as it stands after the roll.
func AbilityCheckResolution(ctx context.Context, c *llm.Client, s Scene, action string, roll models.RollResult) (*AbilityCheckResolutionResponse, error) {
	vars := s.vars().with("player_action", action).with("roll_result", string(roll))
	return send[AbilityCheckResolutionResponse](ctx, c, abilityCheckResolution, vars)
}

type ItemIdentificationResponse struct {
	ItemIndex  int     `json:"item_index" validate:"min=0"`
	Confidence float64 `json:"confidence" validate:"min=0,max=1"`
}

var itemIdentification = operation{
	name: OpItemIdentification,
	schema: object(
		[]string{"item_index", "confidence"},
		map[string]jsonschema.Definition{
			"item_index": integer,
			"confidence": {Type: jsonschema.Number, Description: "from 0 to 1"},
		}),
	maxTokens:   100,
	temperature: 0.1,
}

// ItemIdentification picks which inventory item the input refers to.
func ItemIdentification(ctx context.Context, c *llm.Client, player *models.Player, input string) (*ItemIdentificationResponse, error) {
	vars := Vars{
		"inventory_items": player.InventoryFullPrompt(),
		"user_input":      input,
	}
	return send[ItemIdentificationResponse](ctx, c, itemIdentification, vars)
}

type ItemUseResolutionResponse struct {
	Narrative      string `json:"narrative" validate:"required"`
	HealthChange   int    `json:"health_change" validate:"min=-10,max=10"`
	Summary        string `json:"summary" validate:"required"`
	IsItemConsumed bool   `json:"is_item_consumed"`
}

var itemUseResolution = operation{
	name: OpItemUseResolution,
	schema: object(
		[]string{"narrative", "health_change", "summary", "is_item_consumed"},
		map[string]jsonschema.Definition{
			"narrative":        str,
			"health_change":    healthChange(ItemHealthBound),
			"summary":          str,
			"is_item_consumed": boolean,
		}),
	maxTokens:   400,
	temperature: 0.8,
}

func ItemUseResolution(ctx context.Context, c *llm.Client, s Scene, item models.Item, input string) (*ItemUseResolutionResponse, error) {
	vars := s.vars().with("item", item.Prompt()).with("user_input", input)
	return send[ItemUseResolutionResponse](ctx, c, itemUseResolution, vars)
}

type SuggestActionResponse struct {
	SuggestedActions []string `json:"suggested_actions" validate:"min=1,max=2,dive,required"`
}

var suggestAction = operation{
	name: OpSuggestAction,
	schema: object(
		[]string{"suggested_actions"},
		map[string]jsonschema.Definition{"suggested_actions": actions}),
	maxTokens:   100,
	temperature: 0.8,
}

func SuggestAction(ctx context.Context, c *llm.Client, s Scene) (*SuggestActionResponse, error) {
	return send[SuggestActionResponse](ctx, c, suggestAction, s.vars())
}

type ClassifyRewardTypeResponse struct {
	RewardType RewardType `json:"reward_type" validate:"oneof=heal max_health_increase attribute_increase"`
}

var classifyRewardType = operation{
	name: OpClassifyRewardType,
	schema: object(
		[]string{"reward_type"},
		map[string]jsonschema.Definition{
			"reward_type": enum(RewardHeal, RewardMaxHealthIncrease, RewardAttributeIncrease),
		}),
	maxTokens:   50,
	temperature: 0.4,
}

// ClassifyRewardType picks a reward; recent is the closing narrative.
func ClassifyRewardType(ctx context.Context, c *llm.Client, s Scene, recent string) (*ClassifyRewardTypeResponse, error) {
	return send[ClassifyRewardTypeResponse](ctx, c, classifyRewardType, s.vars().with("recent_history", recent))
}

type AttributeRewardResponse struct {
	Attribute models.Attribute `json:"attribute" validate:"oneof=strength dexterity constitution intelligence wisdom charisma"`
}

var attributeReward = operation{
	name: OpAttributeReward,
	schema: object(
		[]string{"attribute"},
		map[string]jsonschema.Definition{"attribute": enum(models.AllAttributes...)}),
	maxTokens:   50,
	temperature: 0.4,
}

func AttributeReward(ctx context.Context, c *llm.Client, s Scene, recent string) (*AttributeRewardResponse, error) {
	return send[AttributeRewardResponse](ctx, c, attributeReward, s.vars().with("recent_history", recent))
}

type BackgroundResponse struct {
	Theme            string `json:"theme" validate:"required"`
	PlayerBackstory  string `json:"player_backstory" validate:"required"`
	PlayerMotivation string `json:"player_motivation" validate:"required"`
}

var background = operation{
	name: OpBackground,
	schema: object(
		[]string{"theme", "player_backstory", "player_motivation"},
		map[string]jsonschema.Definition{
			"theme":             str,
			"player_backstory":  str,
			"player_motivation": str,
		}),
	maxTokens:   500,
	temperature: 0.8,
}

// Background invents the world and character premise for a new game.
func Background(ctx context.Context, c *llm.Client) (*BackgroundResponse, error) {
	return send[BackgroundResponse](ctx, c, background, Vars{})
}

type ThemeCondenseResponse struct {
	Theme           string `json:"theme" validate:"required"`
	PlayerBackstory string `json:"player_backstory" validate:"required"`
}

var themeCondense = operation{
	name: OpThemeCondense,
	schema: object(
		[]string{"theme", "player_backstory"},
		map[string]jsonschema.Definition{
			"theme":            str,
			"player_backstory": str,
		}),
	maxTokens:   100,
	temperature: 0.4,
}

// ThemeCondense shortens the background so it fits in every later prompt.
func ThemeCondense(ctx context.Context, c *llm.Client, theme, backstory string) (*ThemeCondenseResponse, error) {
	vars := Vars{"theme": theme, "player_backstory": backstory}
	return send[ThemeCondenseResponse](ctx, c, themeCondense, vars)
}
