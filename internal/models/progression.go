package models

import "fmt"

// failed is the completion rate of a floor that can no longer be completed.
const failed = -1

// Progression counts the steps a player has completed toward finishing a floor.
// It has two terminal states: failed (-1) and completed (End). Once terminal,
// Progress and Fail are no-ops.
type Progression struct {
	CompletionRate int `yaml:"completion_rate" json:"completion_rate"`
	End            int `yaml:"end" json:"end"`
}

// NewProgression starts a progression at 0 toward end.
func NewProgression(end int) Progression {
	if end < 1 {
		end = 1
	}
	return Progression{End: end}
}

// LoadProgression restores a persisted rate, clamping values outside {-1} ∪ [0, end].
func LoadProgression(rate, end int) Progression {
	p := NewProgression(end)
	switch {
	case rate == failed:
		p.CompletionRate = failed
	case rate < 0:
		p.CompletionRate = 0
	case rate > p.End:
		p.CompletionRate = p.End
	default:
		p.CompletionRate = rate
	}
	return p
}

// Progress advances one step and reports whether anything changed.
func (p *Progression) Progress() bool {
	if p.IsTerminal() {
		return false
	}
	p.CompletionRate++
	return true
}

// Fail moves to the failed state and reports whether anything changed.
func (p *Progression) Fail() bool {
	if p.IsTerminal() {
		return false
	}
	p.CompletionRate = failed
	return true
}

func (p Progression) IsFailed() bool    { return p.CompletionRate == failed }
func (p Progression) IsCompleted() bool { return p.CompletionRate == p.End }
func (p Progression) IsTerminal() bool  { return p.IsFailed() || p.IsCompleted() }

// String is the prompt form: "Fail", "Complete" or "n/end".
func (p Progression) String() string {
	switch {
	case p.IsFailed():
		return "Fail"
	case p.IsCompleted():
		return "Complete"
	}
	return fmt.Sprintf("%d/%d", p.CompletionRate, p.End)
}
