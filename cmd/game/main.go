// Command game plays the dungeon in the terminal and inspects saved sessions.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tatianab/dungeon-floor/internal/config"
	"github.com/tatianab/dungeon-floor/internal/logger"
)

// globals are the persistent flags shared by every command.
type globals struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "game",
		Short:         "Dungeon floor: an LLM narrated dungeon crawl",
		Long:          "Explore a generated dungeon one floor at a time. Every floor is narrated by a language model; your actions are settled with a d10.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default ./dungeon.yaml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(
		newPlayCmd(g),
		newSessionsCmd(g),
		newEventsCmd(g),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration and applies flag overrides.
func (g *globals) load() (*config.Config, error) {
	cfg, err := config.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, output string) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
		Output:   output,
	})
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
