package game

import (
	"fmt"
	"math/rand/v2"
)

// Deck is the ordered list of faces for one round, one per board position.
type Deck []string

// CheckSymbols validates a symbol set: it must not be empty nor hold duplicates.
func CheckSymbols(symbols []string) error {
	if len(symbols) == 0 {
		return ErrNoSymbols
	}
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		if s == "" {
			return fmt.Errorf("%w: empty symbol", ErrInvalidSymbol)
		}
		if seen[s] {
			return fmt.Errorf("%w: %q", ErrDuplicateSymbol, s)
		}
		seen[s] = true
	}
	return nil
}

// GenerateDeck doubles the symbols and shuffles them with rng.
// If rng is nil the global generator is used.
func GenerateDeck(symbols []string, rng *rand.Rand) Deck {
	deck := make(Deck, 0, 2*len(symbols))
	deck = append(deck, symbols...)
	deck = append(deck, symbols...)

	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// Counts returns how many times each symbol appears in the deck.
func (d Deck) Counts() map[string]int {
	counts := make(map[string]int, len(d)/2)
	for _, s := range d {
		counts[s]++
	}
	return counts
}
