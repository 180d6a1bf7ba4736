package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tatianab/dungeon-floor/internal/models"
)

const schemaV1 = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id       TEXT PRIMARY KEY,
	theme            TEXT NOT NULL DEFAULT '',
	background_json  TEXT NOT NULL DEFAULT '{}',
	current_floor    INTEGER NOT NULL DEFAULT 0,
	game_state       TEXT NOT NULL,
	created_at_unix  INTEGER NOT NULL DEFAULT 0,
	updated_at_unix  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS players (
	session_id      TEXT PRIMARY KEY REFERENCES sessions(session_id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	current_health  INTEGER NOT NULL,
	max_health      INTEGER NOT NULL,
	strength        INTEGER NOT NULL,
	dexterity       INTEGER NOT NULL,
	constitution    INTEGER NOT NULL,
	intelligence    INTEGER NOT NULL,
	wisdom          INTEGER NOT NULL,
	charisma        INTEGER NOT NULL,
	inventory_json  TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS floors (
	session_id       TEXT PRIMARY KEY REFERENCES sessions(session_id) ON DELETE CASCADE,
	floor_type       TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	penalty          REAL NOT NULL DEFAULT 0.0,
	completion_rate  INTEGER NOT NULL DEFAULT 0,
	history_json     TEXT NOT NULL DEFAULT '[]',
	suggested_json   TEXT NOT NULL DEFAULT '[]',
	ended            INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS session_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
	seq_no      INTEGER NOT NULL,
	role        TEXT NOT NULL,
	content     TEXT NOT NULL,
	result      TEXT,
	UNIQUE(session_id, seq_no)
);
CREATE INDEX IF NOT EXISTS idx_events_session_seq ON session_events(session_id, seq_no);
`

// SQLiteStore keeps sessions in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path and migrates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), schemaV1); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Save writes the whole session in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, sess *models.Session) (err error) {
	if err := checkID(sess.ID); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = saveSessionTx(ctx, tx, sess); err != nil {
		return err
	}
	if err = savePlayerTx(ctx, tx, sess.ID, sess.Player); err != nil {
		return err
	}
	if err = saveFloorTx(ctx, tx, sess.ID, sess.Floor); err != nil {
		return err
	}
	if err = saveEventsTx(ctx, tx, sess.ID, sess.Events); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func saveSessionTx(ctx context.Context, tx *sql.Tx, sess *models.Session) error {
	background, err := json.Marshal(sess.Background)
	if err != nil {
		return fmt.Errorf("encode background: %w", err)
	}
	const q = `INSERT INTO sessions (session_id, theme, background_json, current_floor, game_state, created_at_unix, updated_at_unix)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
	theme = excluded.theme,
	background_json = excluded.background_json,
	current_floor = excluded.current_floor,
	game_state = excluded.game_state,
	updated_at_unix = excluded.updated_at_unix`
	_, err = tx.ExecContext(ctx, q,
		sess.ID,
		sess.Theme,
		string(background),
		sess.CurrentFloor,
		string(sess.State),
		unixMilli(sess.CreatedAt),
		unixMilli(sess.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func savePlayerTx(ctx context.Context, tx *sql.Tx, id string, p *models.Player) error {
	if p == nil {
		_, err := tx.ExecContext(ctx, `DELETE FROM players WHERE session_id = ?`, id)
		return err
	}
	inventory, err := json.Marshal(p.Inventory)
	if err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}
	const q = `INSERT OR REPLACE INTO players (session_id, name, description, current_health, max_health,
	strength, dexterity, constitution, intelligence, wisdom, charisma, inventory_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, q,
		id,
		p.Name,
		p.Description,
		p.CurrentHealth,
		p.MaxHealth,
		p.Strength,
		p.Dexterity,
		p.Constitution,
		p.Intelligence,
		p.Wisdom,
		p.Charisma,
		string(inventory),
	)
	if err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	return nil
}

func saveFloorTx(ctx context.Context, tx *sql.Tx, id string, f *models.FloorRecord) error {
	if f == nil {
		_, err := tx.ExecContext(ctx, `DELETE FROM floors WHERE session_id = ?`, id)
		return err
	}
	history, err := json.Marshal(f.History)
	if err != nil {
		return fmt.Errorf("encode floor history: %w", err)
	}
	suggested, err := json.Marshal(f.SuggestedActions)
	if err != nil {
		return fmt.Errorf("encode suggested actions: %w", err)
	}
	const q = `INSERT OR REPLACE INTO floors (session_id, floor_type, description, penalty, completion_rate, history_json, suggested_json, ended)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, q,
		id,
		string(f.Type),
		f.Description,
		f.Penalty,
		f.CompletionRate,
		string(history),
		string(suggested),
		f.End,
	)
	if err != nil {
		return fmt.Errorf("save floor: %w", err)
	}
	return nil
}

func saveEventsTx(ctx context.Context, tx *sql.Tx, id string, events []models.Entry) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_events WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	const q = `INSERT INTO session_events (session_id, seq_no, role, content, result) VALUES (?, ?, ?, ?, ?)`
	for i, e := range events {
		var result sql.NullString
		if e.Result != nil {
			result = sql.NullString{String: string(*e.Result), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, q, id, i, string(e.Role), e.Content, result); err != nil {
			return fmt.Errorf("save event %d: %w", i, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*models.Session, error) {
	const q = `SELECT session_id, theme, background_json, current_floor, game_state, created_at_unix, updated_at_unix
FROM sessions WHERE session_id = ?`

	var (
		sess       models.Session
		background string
		state      string
		created    int64
		updated    int64
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(&sess.ID, &sess.Theme, &background, &sess.CurrentFloor, &state, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if err := json.Unmarshal([]byte(background), &sess.Background); err != nil {
		return nil, fmt.Errorf("decode background: %w", err)
	}
	sess.State = models.GameState(state)
	sess.CreatedAt = fromUnixMilli(created)
	sess.UpdatedAt = fromUnixMilli(updated)

	if sess.Player, err = s.loadPlayer(ctx, id); err != nil {
		return nil, err
	}
	if sess.Floor, err = s.loadFloor(ctx, id); err != nil {
		return nil, err
	}
	if sess.Events, err = s.loadEvents(ctx, id); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SQLiteStore) loadPlayer(ctx context.Context, id string) (*models.Player, error) {
	const q = `SELECT name, description, current_health, max_health,
	strength, dexterity, constitution, intelligence, wisdom, charisma, inventory_json
FROM players WHERE session_id = ?`

	var (
		p         models.Player
		inventory string
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&p.Name, &p.Description, &p.CurrentHealth, &p.MaxHealth,
		&p.Strength, &p.Dexterity, &p.Constitution, &p.Intelligence, &p.Wisdom, &p.Charisma,
		&inventory,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load player: %w", err)
	}
	if err := json.Unmarshal([]byte(inventory), &p.Inventory); err != nil {
		return nil, fmt.Errorf("decode inventory: %w", err)
	}
	return &p, nil
}

func (s *SQLiteStore) loadFloor(ctx context.Context, id string) (*models.FloorRecord, error) {
	const q = `SELECT floor_type, description, penalty, completion_rate, history_json, suggested_json, ended
FROM floors WHERE session_id = ?`

	var (
		f         models.FloorRecord
		floorType string
		history   string
		suggested string
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(&floorType, &f.Description, &f.Penalty, &f.CompletionRate, &history, &suggested, &f.End)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load floor: %w", err)
	}
	f.Type = models.FloorType(floorType)
	if err := json.Unmarshal([]byte(history), &f.History); err != nil {
		return nil, fmt.Errorf("decode floor history: %w", err)
	}
	if err := json.Unmarshal([]byte(suggested), &f.SuggestedActions); err != nil {
		return nil, fmt.Errorf("decode suggested actions: %w", err)
	}
	return &f, nil
}

func (s *SQLiteStore) loadEvents(ctx context.Context, id string) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT role, content, result FROM session_events WHERE session_id = ? ORDER BY seq_no`, id)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	events := []models.Entry{}
	for rows.Next() {
		var (
			e      models.Entry
			role   string
			result sql.NullString
		)
		if err := rows.Scan(&role, &e.Content, &result); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Role = models.Role(role)
		if result.Valid {
			r := models.RollResult(result.String)
			e.Result = &r
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) List(ctx context.Context) ([]models.Summary, error) {
	const q = `SELECT session_id, theme, current_floor, game_state, updated_at_unix
FROM sessions ORDER BY updated_at_unix DESC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.Summary{}
	for rows.Next() {
		var (
			sum     models.Summary
			state   string
			updated int64
		)
		if err := rows.Scan(&sum.ID, &sum.Theme, &sum.CurrentFloor, &state, &updated); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.State = models.GameState(state)
		sum.UpdatedAt = fromUnixMilli(updated)
		sessions = append(sessions, sum)
	}
	return sessions, rows.Err()
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
