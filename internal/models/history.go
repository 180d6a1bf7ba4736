package models

import (
	"fmt"
	"strings"
)

// Role tags who produced a history entry.
type Role string

const (
	Narrator   Role = "Narrator"
	System     Role = "System"
	PlayerRole Role = "Player"
)

// Entry is one line of a floor transcript. Result is only set for player actions.
type Entry struct {
	Role    Role        `yaml:"role" json:"role"`
	Content string      `yaml:"content" json:"content"`
	Result  *RollResult `yaml:"result,omitempty" json:"result,omitempty"`
}

func (e Entry) String() string {
	if e.Role == PlayerRole && e.Result != nil {
		return fmt.Sprintf("Player: %s.(%s)", e.Content, *e.Result)
	}
	return fmt.Sprintf("%s: %s", e.Role, e.Content)
}

// FloorHistory is the append-only transcript of the current floor.
type FloorHistory struct {
	entries []Entry
}

// NewFloorHistory returns an empty history.
func NewFloorHistory() *FloorHistory {
	return &FloorHistory{}
}

// LoadHistory rebuilds a history from persisted entries.
func LoadHistory(entries []Entry) *FloorHistory {
	h := &FloorHistory{entries: make([]Entry, len(entries))}
	copy(h.entries, entries)
	return h
}

func (h *FloorHistory) AddNarrative(text string) {
	h.entries = append(h.entries, Entry{Role: Narrator, Content: text})
}

func (h *FloorHistory) AddSystem(text string) {
	h.entries = append(h.entries, Entry{Role: System, Content: text})
}

func (h *FloorHistory) AddPlayerAction(action string, result RollResult) {
	h.entries = append(h.entries, Entry{Role: PlayerRole, Content: action, Result: &result})
}

// Entries returns a copy of the transcript.
func (h *FloorHistory) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *FloorHistory) Len() int {
	return len(h.entries)
}

// Prompt renders the player and narrator lines for an LLM prompt. System
// entries are bookkeeping and stay out of the prompt.
func (h *FloorHistory) Prompt() string {
	if len(h.entries) == 0 {
		return "No history available"
	}
	var b strings.Builder
	for _, e := range h.entries {
		if e.Role == System {
			continue
		}
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func (h *FloorHistory) String() string {
	if len(h.entries) == 0 {
		return "No history available"
	}
	var b strings.Builder
	for _, e := range h.entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}
