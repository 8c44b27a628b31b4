package game

import "time"

// Version of the game.
// Bumping this number will eventually make clients reload the WASM.
//
// If you set this to an empty string, a random version number will be
// used, and force the reload of the WASM on every restart (the reload
// still only happens after the first page is loaded, so there is a delay).
// This is useful during development.
var Version = "v0.1.0"

// DefaultSymbols are the faces used when no other set is configured.
// Each symbol appears on exactly two cards per round.
var DefaultSymbols = []string{"🐷", "🐸", "🐓", "🐱", "🦄", "🐵"}

const (
	// DefaultRoundDuration is how long the player has to find all pairs.
	DefaultRoundDuration = 60 * time.Second

	// DefaultFlipDelay is how long a card takes to visually close.
	// New symbols are only assigned after that, so they never flash.
	DefaultFlipDelay = 500 * time.Millisecond

	// TickInterval is the countdown resolution.
	TickInterval = time.Second
)
