package models

import (
	"fmt"
	"strings"
)

// Attribute names one of the six player abilities.
type Attribute string

const (
	Strength     Attribute = "strength"
	Dexterity    Attribute = "dexterity"
	Constitution Attribute = "constitution"
	Intelligence Attribute = "intelligence"
	Wisdom       Attribute = "wisdom"
	Charisma     Attribute = "charisma"
)

// AllAttributes lists the attributes in display order.
var AllAttributes = []Attribute{Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma}

// CheckAttributes are the attributes an ability check may test. Constitution
// only matters for rewards.
var CheckAttributes = []Attribute{Strength, Dexterity, Intelligence, Wisdom, Charisma}

// ParseAttribute maps a case-insensitive name onto an Attribute.
func ParseAttribute(s string) (Attribute, error) {
	attr := Attribute(strings.ToLower(strings.TrimSpace(s)))
	for _, a := range AllAttributes {
		if a == attr {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown attribute %q", s)
}

// UnmarshalText accepts any casing of an attribute name. An empty value
// decodes to the zero Attribute.
func (a *Attribute) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*a = ""
		return nil
	}
	attr, err := ParseAttribute(string(text))
	if err != nil {
		return err
	}
	*a = attr
	return nil
}

// FloorType is the kind of non-combat encounter a floor holds.
type FloorType string

const (
	Treasure         FloorType = "Treasure"
	TreasureWithTrap FloorType = "Treasure with Trap"
	HiddenTrap       FloorType = "Hidden Trap"
	NPCEncounter     FloorType = "NPC Encounter"
)

// FloorTypes lists every floor type; floors pick uniformly from it.
var FloorTypes = []FloorType{Treasure, TreasureWithTrap, HiddenTrap, NPCEncounter}

// ParseFloorType maps a persisted value back onto a FloorType.
func ParseFloorType(s string) (FloorType, error) {
	for _, t := range FloorTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown floor type %q", s)
}

// Contested reports whether leaving the floor early requires a successful roll.
func (t FloorType) Contested() bool {
	return t == HiddenTrap || t == NPCEncounter
}

// Slug is the snake_case form used to pick floor-specific prompts.
func (t FloorType) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(t)), " ", "_")
}

// RollResult is the outcome of an ability check.
type RollResult string

const (
	CriticalSuccess RollResult = "Critical Success"
	Success         RollResult = "Success"
	Failure         RollResult = "Failure"
	CriticalFailure RollResult = "Critical Failure"
)

// IsFailure is true for Failure and CriticalFailure.
func (r RollResult) IsFailure() bool {
	return r == Failure || r == CriticalFailure
}

// Rarity grades an item.
type Rarity string

const (
	Starter   Rarity = "Starter"
	Common    Rarity = "Common"
	Uncommon  Rarity = "Uncommon"
	Rare      Rarity = "Rare"
	Epic      Rarity = "Epic"
	Legendary Rarity = "Legendary"
)

// Item is something the player carries and may use during a floor.
type Item struct {
	Name        string `yaml:"name" json:"name"`
	Rarity      Rarity `yaml:"rarity" json:"rarity"`
	Description string `yaml:"description" json:"description"`
	Effect      string `yaml:"effect" json:"effect"`
}

// Prompt renders the item for inclusion in a prompt.
func (i Item) Prompt() string {
	return fmt.Sprintf("Name: %s\nRarity: %s\nDescription: %s\nEffect: %s\n", i.Name, i.Rarity, i.Description, i.Effect)
}
