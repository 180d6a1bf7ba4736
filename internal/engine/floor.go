// Package engine runs a single non-combat dungeon floor: it classifies free
// text input, resolves ability checks against a d10, tracks progress and
// failure risk, and hands out rewards.
package engine

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/tatianab/dungeon-floor/internal/llm"
	"github.com/tatianab/dungeon-floor/internal/models"
	"github.com/tatianab/dungeon-floor/internal/prompt"
)

// Rules are the tunable numbers of a floor.
type Rules struct {
	EventLength    int
	FailPenalty    float64
	MinInputLength int
	HealMin        int
	HealMax        int
	ItemConfidence float64
}

func DefaultRules() Rules {
	return Rules{
		EventLength:    3,
		FailPenalty:    1.0 / 3.0,
		MinInputLength: 10,
		HealMin:        1,
		HealMax:        4,
		ItemConfidence: 0.5,
	}
}

const nextFloorPhrase = "gotothenextfloor"

// Floor is one encounter. It is not safe for concurrent use; callers run at
// most one turn per floor at a time.
type Floor struct {
	theme  string
	player *models.Player
	llm    *llm.Client
	dice   Dice
	rules  Rules
	log    *zap.Logger

	floorType   models.FloorType
	description string
	penalty     float64
	progression models.Progression
	history     *models.FloorHistory
	suggested   []string
	end         bool
}

type Option func(*Floor)

func WithDice(d Dice) Option {
	return func(f *Floor) {
		if d != nil {
			f.dice = d
		}
	}
}

func WithRules(r Rules) Option {
	return func(f *Floor) { f.rules = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Floor) {
		if l != nil {
			f.log = l
		}
	}
}

// NewFloor creates an uninitialized floor for player. Call Init or Restore
// before handling input.
func NewFloor(theme string, player *models.Player, client *llm.Client, opts ...Option) *Floor {
	f := &Floor{
		theme:  theme,
		player: player,
		llm:    client,
		dice:   NewDice(nil),
		rules:  DefaultRules(),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.history = models.NewFloorHistory()
	f.progression = models.NewProgression(f.rules.EventLength)
	return f
}

// Reload returns a fresh floor that shares the theme, player and
// collaborators but none of the floor state.
func (f *Floor) Reload() *Floor {
	return &Floor{
		theme:       f.theme,
		player:      f.player,
		llm:         f.llm,
		dice:        f.dice,
		rules:       f.rules,
		log:         f.log,
		history:     models.NewFloorHistory(),
		progression: models.NewProgression(f.rules.EventLength),
	}
}

func (f *Floor) Theme() string                   { return f.theme }
func (f *Floor) Player() *models.Player          { return f.player }
func (f *Floor) Type() models.FloorType          { return f.floorType }
func (f *Floor) Description() string             { return f.description }
func (f *Floor) Penalty() float64                { return f.penalty }
func (f *Floor) Progression() models.Progression { return f.progression }
func (f *Floor) History() *models.FloorHistory   { return f.history }
func (f *Floor) Ended() bool                     { return f.end }

// SuggestedActions returns a copy of the current choices.
func (f *Floor) SuggestedActions() []string {
	return append([]string(nil), f.suggested...)
}

// Init starts the floor with a uniformly random floor type.
func (f *Floor) Init(ctx context.Context) (Result, error) {
	return f.InitWithType(ctx, models.FloorTypes[f.dice.IntN(len(models.FloorTypes))])
}

// InitWithType starts the floor as floorType and narrates the opening.
func (f *Floor) InitWithType(ctx context.Context, floorType models.FloorType) (Result, error) {
	intro, err := prompt.FloorIntro(ctx, f.llm, f.theme, f.player, floorType)
	if err != nil {
		return Result{}, fmt.Errorf("floor intro: %w", err)
	}

	f.floorType = floorType
	f.description = intro.Description
	f.penalty = 0
	f.progression = models.NewProgression(f.rules.EventLength)
	f.end = false
	f.suggested = intro.SuggestedActions
	f.history.AddNarrative(intro.Summary)

	f.log.Info("floor initialized",
		zap.String("floor_type", string(floorType)),
		zap.Int("event_length", f.progression.End))

	var t transcript
	t.narrator(intro.Description)
	t.narrator(intro.InvestigationHook)
	return Result{Kind: KindSuggestedAction, Messages: t, SuggestedActions: f.SuggestedActions()}, nil
}

// HandleUserInput runs one turn against the floor's current suggestions.
func (f *Floor) HandleUserInput(ctx context.Context, input string) (Result, error) {
	return f.HandleUserInputWith(ctx, input, f.suggested)
}

// HandleUserInputWith runs one turn. The first matching rule wins: a length
// guard, a literal pick of a suggested action, the next-floor phrase, and
// finally classification by the model.
//
// A returned error means an external call failed; the floor may be partly
// mutated and should be discarded.
func (f *Floor) HandleUserInputWith(ctx context.Context, input string, suggested []string) (Result, error) {
	if f.end {
		return rejected(RejectFloorOver), nil
	}
	action := strings.TrimSpace(input)
	if utf8.RuneCountInString(action) < f.rules.MinInputLength {
		return rejected(RejectTooShort), nil
	}

	var t transcript
	if matchesSuggestion(action, suggested) {
		f.log.Debug("input matches a suggested action", zap.String("input", action))
		t.player(action)
		return f.abilityCheck(ctx, &t, action)
	}
	if isNextFloor(action) {
		t.player(action)
		return f.skip(ctx, &t, action)
	}

	cls, err := prompt.ClassifyAction(ctx, f.llm, f.scene(), action)
	if err != nil {
		return Result{}, fmt.Errorf("classify action: %w", err)
	}
	f.log.Info("action classified",
		zap.String("action_type", string(cls.ActionType)),
		zap.Bool("narrative_consistency", cls.NarrativeConsistency))
	if !cls.NarrativeConsistency {
		return rejected(RejectInconsistent), nil
	}

	switch cls.ActionType {
	case prompt.ActionAbilityCheck:
		t.player(action)
		return f.abilityCheck(ctx, &t, action)
	case prompt.ActionUseItem:
		return f.useItem(ctx, &t, action)
	case prompt.ActionNextFloor:
		t.player(action)
		return f.skip(ctx, &t, action)
	default:
		return rejected(RejectUnknown), nil
	}
}

func matchesSuggestion(action string, suggested []string) bool {
	needle := strings.ToLower(action)
	for _, s := range suggested {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// isNextFloor matches the phrase ignoring case, whitespace and trailing
// punctuation.
func isNextFloor(action string) bool {
	squashed := strings.ToLower(strings.Join(strings.Fields(action), ""))
	return strings.TrimRightFunc(squashed, unicode.IsPunct) == nextFloorPhrase
}

// RollOutcome grades a d10 roll. A natural 10 or 1 is critical regardless of
// the difficulty class; otherwise roll+score must meet dc.
func RollOutcome(roll, score, dc int) models.RollResult {
	switch {
	case roll == 10:
		return models.CriticalSuccess
	case roll == 1:
		return models.CriticalFailure
	case roll+score >= dc:
		return models.Success
	default:
		return models.Failure
	}
}

// Roll rolls a d10 for attr against dc.
func (f *Floor) Roll(attr models.Attribute, dc int) (int, models.RollResult) {
	roll := f.dice.D10()
	return roll, RollOutcome(roll, f.player.Attributes.Get(attr), dc)
}

func (f *Floor) abilityCheck(ctx context.Context, t *transcript, action string) (Result, error) {
	check, err := prompt.AbilityCheck(ctx, f.llm, f.scene(), action)
	if err != nil {
		return Result{}, fmt.Errorf("ability check: %w", err)
	}
	roll := f.dice.D10()
	return f.resolveCheck(ctx, t, action, check, roll)
}

// resolveCheck applies a rolled check: failures raise the penalty and may
// sink the whole floor, anything else advances it.
func (f *Floor) resolveCheck(ctx context.Context, t *transcript, action string, check *prompt.AbilityCheckResponse, roll int) (Result, error) {
	score := f.player.Attributes.Get(check.Attribute)
	result := RollOutcome(roll, score, check.DifficultyClass)
	t.system("%s check: rolled %d + %d against DC %d, %s.", check.Attribute, roll, score, check.DifficultyClass, result)

	if result.IsFailure() {
		f.penalty += f.rules.FailPenalty
		if draw := f.dice.Chance(); draw < f.penalty {
			f.progression.Fail()
			f.log.Info("penalty draw failed the floor",
				zap.Float64("penalty", f.penalty),
				zap.Float64("draw", draw))
		}
	} else {
		f.progression.Progress()
	}
	f.log.Info("ability check resolved",
		zap.String("attribute", string(check.Attribute)),
		zap.Int("dc", check.DifficultyClass),
		zap.Int("roll", roll),
		zap.String("result", string(result)),
		zap.Stringer("progression", f.progression))

	res, err := prompt.AbilityCheckResolution(ctx, f.llm, f.scene(), action, result)
	if err != nil {
		return Result{}, fmt.Errorf("ability check resolution: %w", err)
	}
	f.history.AddPlayerAction(action, result)
	return f.resolve(ctx, t, res.Narrative, res.Summary, res.HealthChange)
}

func (f *Floor) useItem(ctx context.Context, t *transcript, action string) (Result, error) {
	if len(f.player.Inventory) == 0 {
		return rejected(RejectNoItem), nil
	}
	id, err := prompt.ItemIdentification(ctx, f.llm, f.player, action)
	if err != nil {
		return Result{}, fmt.Errorf("item identification: %w", err)
	}
	if id.ItemIndex >= len(f.player.Inventory) || id.Confidence < f.rules.ItemConfidence {
		f.log.Info("item not identified",
			zap.Int("item_index", id.ItemIndex),
			zap.Float64("confidence", id.Confidence))
		return rejected(RejectUnidentified), nil
	}

	t.player(action)
	item := f.player.Inventory[id.ItemIndex]
	f.progression.Progress()
	res, err := prompt.ItemUseResolution(ctx, f.llm, f.scene(), item, action)
	if err != nil {
		return Result{}, fmt.Errorf("item use resolution: %w", err)
	}
	if res.IsItemConsumed {
		if _, err := f.player.RemoveItem(id.ItemIndex); err != nil {
			return Result{}, err
		}
		t.system("The %s is used up.", item.Name)
	}
	f.history.AddPlayerAction(action, models.Success)
	f.log.Info("item used",
		zap.String("item", item.Name),
		zap.Bool("consumed", res.IsItemConsumed),
		zap.Stringer("progression", f.progression))
	return f.resolve(ctx, t, res.Narrative, res.Summary, res.HealthChange)
}

// resolve applies the health change and decides whether the floor goes on.
// Defeat is checked first: damage can land on a successful roll.
func (f *Floor) resolve(ctx context.Context, t *transcript, narrative, summary string, healthChange int) (Result, error) {
	applied := f.player.UpdateHealth(healthChange)
	t.narrator(narrative)
	f.history.AddNarrative(summary)
	switch {
	case applied < 0:
		t.system("You lose %d health (%d/%d).", -applied, f.player.CurrentHealth, f.player.MaxHealth)
	case applied > 0:
		t.system("You gain %d health (%d/%d).", applied, f.player.CurrentHealth, f.player.MaxHealth)
	}

	switch {
	case f.player.IsDefeated():
		f.end = true
		f.log.Info("player defeated", zap.String("floor_type", string(f.floorType)))
		t.system("You have been defeated.")
		return Result{Kind: KindDefeat, Messages: *t}, nil
	case f.progression.IsFailed():
		return f.finish(t, OutcomeFailed, nil), nil
	case f.progression.IsCompleted():
		reward, err := f.reward(ctx, t, summary)
		if err != nil {
			return Result{}, err
		}
		return f.finish(t, OutcomeCompleted, reward), nil
	}

	next, err := prompt.SuggestAction(ctx, f.llm, f.scene())
	if err != nil {
		return Result{}, fmt.Errorf("suggest action: %w", err)
	}
	f.suggested = next.SuggestedActions
	return Result{Kind: KindSuggestedAction, Messages: *t, SuggestedActions: f.SuggestedActions()}, nil
}

func (f *Floor) reward(ctx context.Context, t *transcript, recent string) (*Reward, error) {
	kind, err := prompt.ClassifyRewardType(ctx, f.llm, f.scene(), recent)
	if err != nil {
		return nil, fmt.Errorf("classify reward type: %w", err)
	}

	reward := &Reward{Type: kind.RewardType}
	switch kind.RewardType {
	case prompt.RewardHeal:
		amount := f.rules.HealMin + f.dice.IntN(f.rules.HealMax-f.rules.HealMin+1)
		reward.Amount = f.player.UpdateHealth(amount)
	case prompt.RewardMaxHealthIncrease:
		f.player.IncreaseMaxHealth(1)
		reward.Amount = 1
	case prompt.RewardAttributeIncrease:
		attr, err := prompt.AttributeReward(ctx, f.llm, f.scene(), recent)
		if err != nil {
			return nil, fmt.Errorf("attribute reward: %w", err)
		}
		applied, err := f.player.UpdateAttribute(attr.Attribute, 1)
		if err != nil {
			return nil, err
		}
		reward.Attribute = attr.Attribute
		reward.Amount = applied
	}
	f.log.Info("reward granted",
		zap.String("reward_type", string(reward.Type)),
		zap.String("attribute", string(reward.Attribute)),
		zap.Int("amount", reward.Amount))
	t.system("%s", reward.String())
	return reward, nil
}

// skip leaves the floor. Hidden traps and encounters must be escaped with a
// roll; a failed escape plays out as a regular ability check.
func (f *Floor) skip(ctx context.Context, t *transcript, action string) (Result, error) {
	if f.floorType.Contested() {
		check, err := prompt.AbilityCheck(ctx, f.llm, f.scene(), action)
		if err != nil {
			return Result{}, fmt.Errorf("ability check: %w", err)
		}
		roll := f.dice.D10()
		result := RollOutcome(roll, f.player.Attributes.Get(check.Attribute), check.DifficultyClass)
		if result.IsFailure() {
			f.log.Info("skip contested and failed",
				zap.String("floor_type", string(f.floorType)),
				zap.Int("roll", roll))
			return f.resolveCheck(ctx, t, action, check, roll)
		}
		t.system("%s check: rolled %d against DC %d, %s.", check.Attribute, roll, check.DifficultyClass, result)
		f.history.AddPlayerAction(action, result)
	}
	return f.finish(t, OutcomeSkipped, nil), nil
}

func (f *Floor) finish(t *transcript, outcome Outcome, reward *Reward) Result {
	f.end = true
	switch outcome {
	case OutcomeCompleted:
		t.system("Floor complete.")
	case OutcomeFailed:
		t.system("The floor is lost. You press on to the next one.")
	case OutcomeSkipped:
		t.system("You leave the floor behind.")
	}
	f.history.AddSystem(fmt.Sprintf("Floor ended: %s", outcome))
	f.log.Info("floor ended",
		zap.String("floor_type", string(f.floorType)),
		zap.String("outcome", string(outcome)),
		zap.Float64("penalty", f.penalty))
	return Result{Kind: KindEnd, Messages: *t, Outcome: outcome, Reward: reward}
}

func (f *Floor) scene() prompt.Scene {
	return prompt.Scene{
		Theme:       f.theme,
		Player:      f.player,
		History:     f.history,
		FloorType:   f.floorType,
		Progression: f.progression,
	}
}
