// Package app wires configuration into a ready dungeon master.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tatianab/dungeon-floor/internal/config"
	"github.com/tatianab/dungeon-floor/internal/dungeon"
	"github.com/tatianab/dungeon-floor/internal/llm"
	"github.com/tatianab/dungeon-floor/internal/store"
)

// App owns the long-lived collaborators of one process.
type App struct {
	Config *config.Config
	Log    *zap.Logger
	Store  store.Store
	LLM    *llm.Client
	Master *dungeon.Master

	provider llm.Provider
}

// New opens the store, connects the model backend and builds the master.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	st, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	provider, err := llm.NewProvider(ctx, cfg.Provider())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("create llm provider: %w", err)
	}
	client := llm.NewClient(provider, append(cfg.ClientOptions(), llm.WithLogger(log.Named("llm")))...)
	master := dungeon.New(client, st,
		dungeon.WithRules(cfg.Rules()),
		dungeon.WithMaxFloors(cfg.Game.MaxFloors),
		dungeon.WithLogger(log.Named("dungeon")))

	log.Info("app ready",
		zap.String("provider", provider.Name()),
		zap.String("store", cfg.Store.Driver),
		zap.String("store_path", cfg.Store.Path),
		zap.Int("max_floors", cfg.Game.MaxFloors))
	return &App{
		Config:   cfg,
		Log:      log,
		Store:    st,
		LLM:      client,
		Master:   master,
		provider: provider,
	}, nil
}

// OpenStore opens only the configured store, for commands that never play.
func OpenStore(cfg *config.Config) (store.Store, error) {
	st, err := store.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func (a *App) Close() error {
	var errs []error
	if c, ok := a.provider.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}

// ServeMetrics exposes /metrics on addr until ctx is done.
func ServeMetrics(ctx context.Context, addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}
