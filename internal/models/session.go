package models

import "time"

// GameState is the coarse lifecycle of a session.
type GameState string

const (
	PlayerCreation      GameState = "Player Creation"
	InProgress          GameState = "In Progress"
	WaitingForNextFloor GameState = "Waiting for Next Floor"
	Completed           GameState = "Completed"
	Defeated            GameState = "Defeated"
)

// IsOver reports whether the session accepts no further play.
func (s GameState) IsOver() bool {
	return s == Completed || s == Defeated
}

// Background is the generated premise behind a session.
type Background struct {
	Theme            string `yaml:"theme" json:"theme"`
	PlayerBackstory  string `yaml:"player_backstory" json:"player_backstory"`
	PlayerMotivation string `yaml:"player_motivation" json:"player_motivation"`
	// PlayerDescription is the condensed backstory given to the player.
	PlayerDescription string `yaml:"player_description,omitempty" json:"player_description,omitempty"`
}

// FloorRecord is the persisted projection of an active floor. Everything else
// about a floor is rebuilt on load.
type FloorRecord struct {
	Type             FloorType `yaml:"floor_type" json:"floor_type"`
	Description      string    `yaml:"description,omitempty" json:"description,omitempty"`
	Penalty          float64   `yaml:"penalty" json:"penalty"`
	CompletionRate   int       `yaml:"completion_rate" json:"completion_rate"`
	History          []Entry   `yaml:"history" json:"history"`
	SuggestedActions []string  `yaml:"suggested_actions" json:"suggested_actions"`
	End              bool      `yaml:"end" json:"end"`
}

// Session aggregates everything persisted for one game.
type Session struct {
	ID           string       `yaml:"id" json:"id"`
	Theme        string       `yaml:"theme" json:"theme"`
	Background   Background   `yaml:"background" json:"background"`
	CurrentFloor int          `yaml:"current_floor" json:"current_floor"`
	State        GameState    `yaml:"game_state" json:"game_state"`
	Player       *Player      `yaml:"player,omitempty" json:"player,omitempty"`
	Floor        *FloorRecord `yaml:"floor,omitempty" json:"floor,omitempty"`
	Events       []Entry      `yaml:"events" json:"events"`
	CreatedAt    time.Time    `yaml:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `yaml:"updated_at" json:"updated_at"`
}

// Summary is the short listing form of a session.
type Summary struct {
	ID           string    `json:"id"`
	Theme        string    `json:"theme"`
	CurrentFloor int       `json:"current_floor"`
	State        GameState `json:"game_state"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *Session) Summary() Summary {
	return Summary{ID: s.ID, Theme: s.Theme, CurrentFloor: s.CurrentFloor, State: s.State, UpdatedAt: s.UpdatedAt}
}
