// Package dungeon runs whole games. A Master owns the cross-floor state of
// every session: it creates the premise and the player, starts floors, routes
// input to the active floor and maps floor results onto the game state.
package dungeon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tatianab/dungeon-floor/internal/engine"
	"github.com/tatianab/dungeon-floor/internal/llm"
	"github.com/tatianab/dungeon-floor/internal/models"
	"github.com/tatianab/dungeon-floor/internal/prompt"
	"github.com/tatianab/dungeon-floor/internal/store"
)

var (
	ErrInvalidState  = errors.New("invalid game state")
	ErrNoActiveFloor = errors.New("no active floor")
)

const (
	DefaultMaxFloors  = 10
	DefaultPlayerName = "Player"
)

// Turn is a floor result together with the session it left behind.
type Turn struct {
	engine.Result
	Session *models.Session
}

// Master plays sessions kept in a store. Turns on the same session are
// serialized within one process; separate processes sharing a store must
// coordinate themselves.
type Master struct {
	llm       *llm.Client
	store     store.Store
	dice      engine.Dice
	rules     engine.Rules
	maxFloors int
	log       *zap.Logger
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is a per-session mutex counted by its holders and waiters.
type sessionLock struct {
	sync.Mutex
	refs int
}

type Option func(*Master)

func WithDice(d engine.Dice) Option {
	return func(m *Master) {
		if d != nil {
			m.dice = d
		}
	}
}

func WithRules(r engine.Rules) Option {
	return func(m *Master) { m.rules = r }
}

// WithMaxFloors ends the game after n floors. Zero plays forever.
func WithMaxFloors(n int) Option {
	return func(m *Master) {
		if n >= 0 {
			m.maxFloors = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Master) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock replaces time.Now for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Master) {
		if now != nil {
			m.now = now
		}
	}
}

func New(client *llm.Client, st store.Store, opts ...Option) *Master {
	m := &Master{
		llm:       client,
		store:     st,
		dice:      engine.NewDice(nil),
		rules:     engine.DefaultRules(),
		maxFloors: DefaultMaxFloors,
		log:       zap.NewNop(),
		now:       time.Now,
		locks:     make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// lock serializes work on one session and returns the unlock func. The entry
// is dropped once nobody holds or waits for it.
func (m *Master) lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

// CreateGame generates a premise, condenses it into the theme used by every
// floor and saves a new session waiting for its player.
func (m *Master) CreateGame(ctx context.Context) (*models.Session, error) {
	bg, err := prompt.Background(ctx, m.llm)
	if err != nil {
		return nil, fmt.Errorf("generate background: %w", err)
	}
	condensed, err := prompt.ThemeCondense(ctx, m.llm, bg.Theme, bg.PlayerBackstory)
	if err != nil {
		return nil, fmt.Errorf("condense theme: %w", err)
	}

	now := m.now().UTC()
	sess := &models.Session{
		ID:    uuid.NewString(),
		Theme: condensed.Theme,
		Background: models.Background{
			Theme:             bg.Theme,
			PlayerBackstory:   bg.PlayerBackstory,
			PlayerMotivation:  bg.PlayerMotivation,
			PlayerDescription: condensed.PlayerBackstory,
		},
		CurrentFloor: 1,
		State:        models.PlayerCreation,
		Events: []models.Entry{
			{Role: models.Narrator, Content: bg.Theme},
			{Role: models.Narrator, Content: bg.PlayerBackstory},
			{Role: models.Narrator, Content: bg.PlayerMotivation},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	m.log.Info("game created", zap.String("session_id", sess.ID))
	return sess, nil
}

// RollAttributes draws a valid starting stat block.
func (m *Master) RollAttributes() models.Attributes {
	return models.RandomAttributes(m.dice)
}

// CreatePlayer gives the session its adventurer and starts the game. The
// attributes must satisfy the creation rules; an empty name uses
// DefaultPlayerName.
func (m *Master) CreatePlayer(ctx context.Context, id, name string, attrs models.Attributes) (*models.Session, error) {
	defer m.lock(id)()

	sess, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.State != models.PlayerCreation {
		return nil, fmt.Errorf("%w: cannot create a player while %s", ErrInvalidState, sess.State)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultPlayerName
	}
	player, err := models.NewPlayer(name, sess.Background.PlayerDescription, attrs)
	if err != nil {
		return nil, err
	}

	sess.Player = player
	sess.State = models.InProgress
	sess.CurrentFloor = 1
	sess.Events = append(sess.Events, models.Entry{Role: models.System, Content: "You are " + player.Name + "."})
	if err := m.save(ctx, sess); err != nil {
		return nil, err
	}
	m.log.Info("player created",
		zap.String("session_id", id),
		zap.String("name", player.Name),
		zap.Int("attribute_sum", player.Attributes.Sum()))
	return sess, nil
}

// NewFloor starts the next floor. It is allowed before the first floor of a
// game and after a floor has ended.
func (m *Master) NewFloor(ctx context.Context, id string) (Turn, error) {
	defer m.lock(id)()

	sess, err := m.store.Load(ctx, id)
	if err != nil {
		return Turn{}, err
	}
	switch {
	case sess.State == models.InProgress && sess.Floor == nil:
	case sess.State == models.WaitingForNextFloor:
		sess.CurrentFloor++
		sess.State = models.InProgress
	default:
		return Turn{}, fmt.Errorf("%w: cannot start a floor while %s", ErrInvalidState, sess.State)
	}

	floor := m.floor(sess, id)
	res, err := floor.Init(ctx)
	if err != nil {
		return Turn{}, fmt.Errorf("start floor %d: %w", sess.CurrentFloor, err)
	}

	rec := floor.Snapshot()
	sess.Floor = &rec
	sess.Events = append(sess.Events, res.Messages...)
	if err := m.save(ctx, sess); err != nil {
		return Turn{}, err
	}
	m.log.Info("floor started",
		zap.String("session_id", id),
		zap.Int("floor", sess.CurrentFloor),
		zap.String("floor_type", string(rec.Type)))
	return Turn{Result: res, Session: sess}, nil
}

// PlayerInput plays one turn on the active floor. Rejected input leaves the
// stored session untouched.
func (m *Master) PlayerInput(ctx context.Context, id, input string) (Turn, error) {
	defer m.lock(id)()

	sess, err := m.store.Load(ctx, id)
	if err != nil {
		return Turn{}, err
	}
	if sess.State != models.InProgress {
		return Turn{}, fmt.Errorf("%w: cannot play while %s", ErrInvalidState, sess.State)
	}
	if sess.Floor == nil || sess.Player == nil {
		return Turn{}, ErrNoActiveFloor
	}

	floor := m.floor(sess, id)
	if err := floor.Restore(*sess.Floor); err != nil {
		return Turn{}, err
	}
	res, err := floor.HandleUserInput(ctx, input)
	if err != nil {
		return Turn{}, fmt.Errorf("floor %d: %w", sess.CurrentFloor, err)
	}
	if res.Kind == engine.KindError {
		m.log.Debug("input rejected",
			zap.String("session_id", id),
			zap.String("rejection", string(res.Rejection)))
		return Turn{Result: res, Session: sess}, nil
	}

	rec := floor.Snapshot()
	sess.Floor = &rec
	switch res.Kind {
	case engine.KindEnd:
		if m.maxFloors > 0 && sess.CurrentFloor >= m.maxFloors {
			sess.State = models.Completed
			res.Messages = append(res.Messages, models.Entry{Role: models.System, Content: "You have conquered the dungeon."})
		} else {
			sess.State = models.WaitingForNextFloor
		}
	case engine.KindDefeat:
		sess.State = models.Defeated
	}
	sess.Events = append(sess.Events, res.Messages...)
	if err := m.save(ctx, sess); err != nil {
		return Turn{}, err
	}
	m.log.Info("turn played",
		zap.String("session_id", id),
		zap.Int("floor", sess.CurrentFloor),
		zap.Stringer("kind", res.Kind),
		zap.String("game_state", string(sess.State)))
	return Turn{Result: res, Session: sess}, nil
}

// Session returns the stored session.
func (m *Master) Session(ctx context.Context, id string) (*models.Session, error) {
	return m.store.Load(ctx, id)
}

// Sessions lists every stored session, most recently played first.
func (m *Master) Sessions(ctx context.Context) ([]models.Summary, error) {
	return m.store.List(ctx)
}

// Events returns the full transcript of a session.
func (m *Master) Events(ctx context.Context, id string) ([]models.Entry, error) {
	sess, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Events, nil
}

func (m *Master) floor(sess *models.Session, id string) *engine.Floor {
	return engine.NewFloor(sess.Theme, sess.Player, m.llm,
		engine.WithDice(m.dice),
		engine.WithRules(m.rules),
		engine.WithLogger(m.log.With(zap.String("session_id", id), zap.Int("floor", sess.CurrentFloor))))
}

func (m *Master) save(ctx context.Context, sess *models.Session) error {
	sess.UpdatedAt = m.now().UTC()
	if err := m.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}
