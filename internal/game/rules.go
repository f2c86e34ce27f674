// internal/game/rules.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/durak/internal/models"
)

// HouseRules are the per-room knobs of a match.
type HouseRules struct {
	HandSize        int  `json:"handSize"`        // cards every hand is refilled to after a round; default 6
	LowestRank      int  `json:"lowestRank"`      // lowest rank in the deck; 6 builds the classic 36 card deck
	MinPlayers      int  `json:"minPlayers"`      // default 2
	MaxPlayers      int  `json:"maxPlayers"`      // default 4
	FirstRoundLimit bool `json:"firstRoundLimit"` // cap the first round of the match at handSize-1 cards
}

// DefaultHouseRules returns the classic podkidnoy setup.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		HandSize:        6,
		LowestRank:      int(models.Six),
		MinPlayers:      2,
		MaxPlayers:      4,
		FirstRoundLimit: true,
	}
}

// DeckSize is the number of cards a deck built from these rules holds.
func (rules HouseRules) DeckSize() int {
	return len(models.Suits) * (int(models.MaxRank) - rules.LowestRank + 1)
}

// Validate checks that the rules describe a playable match.
func (rules HouseRules) Validate() error {
	if !models.Rank(rules.LowestRank).Valid() {
		return fmt.Errorf("lowestRank must be between %d and %d", models.MinRank, models.MaxRank)
	}
	if rules.HandSize < 1 {
		return fmt.Errorf("handSize must be positive")
	}
	if rules.MinPlayers < 2 || rules.MaxPlayers < rules.MinPlayers {
		return fmt.Errorf("player bounds %d..%d are invalid", rules.MinPlayers, rules.MaxPlayers)
	}
	if rules.HandSize*rules.MaxPlayers > rules.DeckSize() {
		return fmt.Errorf("a %d card deck cannot deal %d cards to %d players", rules.DeckSize(), rules.HandSize, rules.MaxPlayers)
	}
	return nil
}

// Update will update the house rules with the new rules provided.
// If a rule is not set or defined, it will be ignored, and the old value will persist.
func (rules *HouseRules) Update(newRules map[string]interface{}) error {
	assignBool := func(field *bool, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
			*field = b
		}
		return nil
	}

	assignInt := func(field *int, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			// JSON numbers decode as float64
			switch v := val.(type) {
			case float64:
				*field = int(v)
			case int:
				*field = v
			default:
				return fmt.Errorf("invalid type for %s", key)
			}
		}
		return nil
	}

	if err := assignInt(&rules.HandSize, "handSize"); err != nil {
		return err
	}
	if err := assignInt(&rules.LowestRank, "lowestRank"); err != nil {
		return err
	}
	if err := assignInt(&rules.MinPlayers, "minPlayers"); err != nil {
		return err
	}
	if err := assignInt(&rules.MaxPlayers, "maxPlayers"); err != nil {
		return err
	}
	if err := assignBool(&rules.FirstRoundLimit, "firstRoundLimit"); err != nil {
		return err
	}
	return rules.Validate()
}

// ParseRules converts a map of rules to a HouseRules struct. It will ensure the types are valid.
func ParseRules(rules map[string]interface{}, current HouseRules) (HouseRules, error) {
	houseRules := current
	err := houseRules.Update(rules)
	return houseRules, err
}
