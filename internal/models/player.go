package models

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MinPerAttribute   = 1
	MaxPerAttribute   = 9
	StartAttributeSum = 30
	StartHealth       = 10
)

// ErrInvalidAttributes is returned when a stat block breaks the creation rules.
var ErrInvalidAttributes = errors.New("invalid attributes")

// Attributes is the six-stat block of a player.
type Attributes struct {
	Strength     int `yaml:"strength" json:"strength"`
	Dexterity    int `yaml:"dexterity" json:"dexterity"`
	Constitution int `yaml:"constitution" json:"constitution"`
	Intelligence int `yaml:"intelligence" json:"intelligence"`
	Wisdom       int `yaml:"wisdom" json:"wisdom"`
	Charisma     int `yaml:"charisma" json:"charisma"`
}

// Get returns the value of attr, or 0 for an unknown attribute.
func (a Attributes) Get(attr Attribute) int {
	if p := a.field(attr); p != nil {
		return *p
	}
	return 0
}

func (a *Attributes) field(attr Attribute) *int {
	switch attr {
	case Strength:
		return &a.Strength
	case Dexterity:
		return &a.Dexterity
	case Constitution:
		return &a.Constitution
	case Intelligence:
		return &a.Intelligence
	case Wisdom:
		return &a.Wisdom
	case Charisma:
		return &a.Charisma
	}
	return nil
}

// Sum adds up all six attributes.
func (a Attributes) Sum() int {
	total := 0
	for _, attr := range AllAttributes {
		total += a.Get(attr)
	}
	return total
}

// Validate enforces the character creation rules: every attribute in
// [MinPerAttribute, MaxPerAttribute] and a total of StartAttributeSum.
func (a Attributes) Validate() error {
	for _, attr := range AllAttributes {
		if v := a.Get(attr); v < MinPerAttribute || v > MaxPerAttribute {
			return fmt.Errorf("%w: %s is %d, must be between %d and %d", ErrInvalidAttributes, attr, v, MinPerAttribute, MaxPerAttribute)
		}
	}
	if sum := a.Sum(); sum != StartAttributeSum {
		return fmt.Errorf("%w: attributes sum to %d, must sum to %d", ErrInvalidAttributes, sum, StartAttributeSum)
	}
	return nil
}

// Source supplies random integers in [0, n).
type Source interface {
	IntN(n int) int
}

// RandomAttributes distributes the creation budget at random, starting every
// attribute at the minimum and never exceeding the maximum.
func RandomAttributes(src Source) Attributes {
	var a Attributes
	for _, attr := range AllAttributes {
		*a.field(attr) = MinPerAttribute
	}
	remaining := StartAttributeSum - MinPerAttribute*len(AllAttributes)
	for remaining > 0 {
		p := a.field(AllAttributes[src.IntN(len(AllAttributes))])
		if *p < MaxPerAttribute {
			*p++
			remaining--
		}
	}
	return a
}

// Player is the adventurer carried across floors. Mutate it through its
// methods so health and attributes stay within bounds.
type Player struct {
	Name          string `yaml:"name" json:"name"`
	Description   string `yaml:"description" json:"description"`
	CurrentHealth int    `yaml:"current_health" json:"current_health"`
	MaxHealth     int    `yaml:"max_health" json:"max_health"`
	Attributes    `yaml:",inline"`
	Inventory     []Item `yaml:"inventory" json:"inventory"`
}

// NewPlayer creates a starting player after validating the stat block.
func NewPlayer(name, description string, attrs Attributes) (*Player, error) {
	if err := attrs.Validate(); err != nil {
		return nil, err
	}
	return &Player{
		Name:          name,
		Description:   description,
		CurrentHealth: StartHealth,
		MaxHealth:     StartHealth,
		Attributes:    attrs,
		Inventory:     []Item{},
	}, nil
}

// UpdateHealth applies delta, clamping to [0, MaxHealth], and returns the
// change that actually took effect.
func (p *Player) UpdateHealth(delta int) int {
	before := p.CurrentHealth
	p.CurrentHealth = clamp(p.CurrentHealth+delta, 0, p.MaxHealth)
	return p.CurrentHealth - before
}

// IncreaseMaxHealth raises the health ceiling. Current health is unchanged.
func (p *Player) IncreaseMaxHealth(delta int) {
	p.MaxHealth += delta
	if p.MaxHealth < 1 {
		p.MaxHealth = 1
	}
	p.CurrentHealth = clamp(p.CurrentHealth, 0, p.MaxHealth)
}

// UpdateAttribute adds delta to attr, clamped to the per-attribute bounds,
// and returns the change that actually took effect.
func (p *Player) UpdateAttribute(attr Attribute, delta int) (int, error) {
	f := p.Attributes.field(attr)
	if f == nil {
		return 0, fmt.Errorf("unknown attribute %q", attr)
	}
	before := *f
	*f = clamp(*f+delta, MinPerAttribute, MaxPerAttribute)
	return *f - before, nil
}

// IsDefeated reports whether the player has run out of health.
func (p *Player) IsDefeated() bool {
	return p.CurrentHealth <= 0
}

// AddItem appends an item to the inventory.
func (p *Player) AddItem(item Item) {
	p.Inventory = append(p.Inventory, item)
}

// RemoveItem takes the item at index out of the inventory.
func (p *Player) RemoveItem(index int) (Item, error) {
	if index < 0 || index >= len(p.Inventory) {
		return Item{}, fmt.Errorf("inventory index %d out of range", index)
	}
	item := p.Inventory[index]
	p.Inventory = append(p.Inventory[:index:index], p.Inventory[index+1:]...)
	return item, nil
}

// InventoryPrompt lists item names, comma separated.
func (p *Player) InventoryPrompt() string {
	if len(p.Inventory) == 0 {
		return "No Items in inventory"
	}
	names := make([]string, len(p.Inventory))
	for i, item := range p.Inventory {
		names[i] = item.Name
	}
	return strings.Join(names, ", ")
}

// InventoryFullPrompt lists every item with its index and full details.
func (p *Player) InventoryFullPrompt() string {
	if len(p.Inventory) == 0 {
		return "No Items in inventory"
	}
	var b strings.Builder
	for i, item := range p.Inventory {
		fmt.Fprintf(&b, "Index: %d\n%s\n", i, item.Prompt())
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
