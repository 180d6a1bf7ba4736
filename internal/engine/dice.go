package engine

import (
	"math/rand/v2"
	"sync"
)

// Dice is the floor's source of randomness.
type Dice interface {
	// D10 returns a roll in [1, 10].
	D10() int
	// Chance returns a uniform float in [0, 1).
	Chance() float64
	// IntN returns an integer in [0, n).
	IntN(n int) int
}

// NewDice returns dice backed by r. A nil r uses the global generator, which
// is safe for concurrent use.
func NewDice(r *rand.Rand) Dice {
	return &randomDice{r: r}
}

type randomDice struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (d *randomDice) D10() int { return d.IntN(10) + 1 }

func (d *randomDice) Chance() float64 {
	if d.r == nil {
		return rand.Float64()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.r.Float64()
}

func (d *randomDice) IntN(n int) int {
	if d.r == nil {
		return rand.IntN(n)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.r.IntN(n)
}

// ScriptedDice replays fixed values. Once a queue runs dry D10 returns 5,
// Chance returns 0.99 and IntN cycles through [0, n).
type ScriptedDice struct {
	mu      sync.Mutex
	rolls   []int
	chances []float64
	ints    []int
	next    int
}

func NewScriptedDice() *ScriptedDice { return &ScriptedDice{} }

// Rolls queues d10 results.
func (d *ScriptedDice) Rolls(v ...int) *ScriptedDice {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rolls = append(d.rolls, v...)
	return d
}

// Chances queues uniform draws.
func (d *ScriptedDice) Chances(v ...float64) *ScriptedDice {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chances = append(d.chances, v...)
	return d
}

// Ints queues IntN results; each is reduced modulo n when drawn.
func (d *ScriptedDice) Ints(v ...int) *ScriptedDice {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ints = append(d.ints, v...)
	return d
}

func (d *ScriptedDice) D10() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.rolls) == 0 {
		return 5
	}
	v := d.rolls[0]
	d.rolls = d.rolls[1:]
	return v
}

func (d *ScriptedDice) Chance() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.chances) == 0 {
		return 0.99
	}
	v := d.chances[0]
	d.chances = d.chances[1:]
	return v
}

func (d *ScriptedDice) IntN(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.ints) > 0 {
		v := d.ints[0]
		d.ints = d.ints[1:]
		return v % n
	}
	v := d.next % n
	d.next++
	return v
}
