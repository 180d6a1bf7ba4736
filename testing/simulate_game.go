// Command simulate_game plays a whole game unattended: a second model acts as
// the player and the dungeon master runs as usual.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/tatianab/dungeon-floor/internal/app"
	"github.com/tatianab/dungeon-floor/internal/config"
	"github.com/tatianab/dungeon-floor/internal/dungeon"
	"github.com/tatianab/dungeon-floor/internal/engine"
	"github.com/tatianab/dungeon-floor/internal/llm"
	"github.com/tatianab/dungeon-floor/internal/logger"
	"github.com/tatianab/dungeon-floor/internal/models"
)

const playerSystem = `You are playing a text-based dungeon crawl. Each floor is a non-combat encounter.
Reply with the single next action of your character, one short sentence in the first person imperative.
Prefer one of the suggested actions when it fits. Reply with JSON only: {"action": "..."}`

type playerAction struct {
	Action string `json:"action" validate:"required"`
}

var playerSchema = &jsonschema.Definition{
	Type:       jsonschema.Object,
	Properties: map[string]jsonschema.Definition{"action": {Type: jsonschema.String}},
	Required:   []string{"action"},
}

func main() {
	configPath := flag.String("config", "", "config file")
	maxTurns := flag.Int("max-turns", 30, "stop after this many player turns")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	zl, err := logger.New(logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding, Output: "stderr"})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx := context.Background()
	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	if err := simulate(ctx, a.Master, a.LLM, *maxTurns, zl); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}
}

func simulate(ctx context.Context, master *dungeon.Master, player *llm.Client, maxTurns int, zl *zap.Logger) error {
	fmt.Println("--- Step 1: Generating the story ---")
	sess, err := master.CreateGame(ctx)
	if err != nil {
		return err
	}
	printEntries(sess.Events)

	fmt.Println("\n--- Step 2: Creating the player ---")
	attrs := master.RollAttributes()
	if sess, err = master.CreatePlayer(ctx, sess.ID, "Simulated Adventurer", attrs); err != nil {
		return err
	}
	fmt.Printf("Attributes: %+v\n", attrs)

	turns := 0
	for !sess.State.IsOver() {
		fmt.Printf("\n--- Floor %d ---\n", sess.CurrentFloor)
		turn, err := master.NewFloor(ctx, sess.ID)
		if err != nil {
			return err
		}
		printEntries(turn.Messages)
		sess = turn.Session
		suggested := turn.SuggestedActions
		rejected := false

		for sess.State == models.InProgress {
			if turns >= maxTurns {
				fmt.Printf("\nStopped after %d turns.\n", turns)
				return nil
			}
			turns++

			// A rejected free-form action is replaced by a suggestion.
			var action string
			if rejected && len(suggested) > 0 {
				action = suggested[0]
			} else {
				action = choose(ctx, player, sess, suggested, zl)
			}
			fmt.Printf("\nPlayer Action: %s\n", action)
			turn, err := master.PlayerInput(ctx, sess.ID, action)
			if err != nil {
				return err
			}
			if turn.Kind == engine.KindError {
				fmt.Printf("Rejected: %s\n", turn.Rejection)
				rejected = true
				continue
			}
			rejected = false
			printEntries(turn.Messages)
			sess = turn.Session
			if turn.Kind == engine.KindSuggestedAction {
				suggested = turn.SuggestedActions
			}
		}
		if sess.Player != nil {
			fmt.Printf("Health=%d/%d Inventory=%s\n", sess.Player.CurrentHealth, sess.Player.MaxHealth, sess.Player.InventoryPrompt())
		}
	}

	switch sess.State {
	case models.Completed:
		fmt.Println("\nGame Ended: Player Won!")
	case models.Defeated:
		fmt.Println("\nGame Ended: Player Lost!")
	}
	return nil
}

// choose asks the player model for an action and falls back to the first
// suggestion when the model cannot answer.
func choose(ctx context.Context, player *llm.Client, sess *models.Session, suggested []string, zl *zap.Logger) string {
	fallback := "go to the next floor"
	if len(suggested) > 0 {
		fallback = suggested[0]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Theme: %s\n", sess.Theme)
	if sess.Player != nil {
		fmt.Fprintf(&b, "You: %s\nHealth: %d/%d\nInventory: %s\n", sess.Player.Description, sess.Player.CurrentHealth, sess.Player.MaxHealth, sess.Player.InventoryPrompt())
	}
	if sess.Floor != nil {
		b.WriteString("\nWhat has happened on this floor:\n")
		for _, e := range sess.Floor.History {
			b.WriteString(e.String() + "\n")
		}
	}
	b.WriteString("\nSuggested actions:\n")
	for _, s := range suggested {
		b.WriteString("- " + s + "\n")
	}

	req := llm.NewRequest("simulated_player", playerSystem, b.String(), playerSchema)
	req.MaxTokens = 60
	req.Temperature = 0.9
	out, err := llm.Complete[playerAction](ctx, player, req)
	if err != nil {
		zl.Warn("player model failed, using a suggestion", zap.Error(err))
		return fallback
	}
	return strings.TrimSpace(out.Action)
}

func printEntries(entries []models.Entry) {
	for _, e := range entries {
		fmt.Println(e.String())
	}
}
