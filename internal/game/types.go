package game

import (
	"errors"
	"fmt"
)

var (
	ErrNoSymbols       = errors.New("no symbols")
	ErrInvalidSymbol   = errors.New("invalid symbol")
	ErrDuplicateSymbol = errors.New("duplicate symbol")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidResult   = errors.New("invalid result")
)

// Outcome of a round.
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
)

// Header is the text shown at the top of the outcome modal.
func (o Outcome) Header() string {
	switch o {
	case OutcomeWin:
		return "Win"
	case OutcomeLose:
		return "Lose"
	}
	return ""
}

// ButtonLabel is the label of the outcome modal action button.
func (o Outcome) ButtonLabel() string {
	switch o {
	case OutcomeWin:
		return "Play again"
	case OutcomeLose:
		return "Try again"
	}
	return ""
}

// Result summarizes a finished round. It's what gets reported to the scoreboard.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Seconds int     `json:"seconds"` // Seconds used from the countdown
	Moves   int     `json:"moves"`   // Number of pairs compared
	Round   int     `json:"round"`
}

// Validate checks a result received from a client.
func (r Result) Validate() error {
	if r.Outcome != OutcomeWin && r.Outcome != OutcomeLose {
		return fmt.Errorf("%w: unknown outcome %q", ErrInvalidResult, r.Outcome)
	}
	if r.Seconds < 0 || r.Moves < 0 {
		return fmt.Errorf("%w: negative counters (seconds=%d, moves=%d)", ErrInvalidResult, r.Seconds, r.Moves)
	}
	return nil
}

// CardView is a read-only copy of a card, used for rendering.
type CardView struct {
	Index    int    `json:"index"`
	Value    string `json:"value"`
	Flipped  bool   `json:"flipped"`
	Disabled bool   `json:"disabled"`
	Wrong    bool   `json:"wrong"`
	Mark     Mark   `json:"mark"`
}

// Snapshot is a read-only copy of the whole game state.
type Snapshot struct {
	Round            int        `json:"round"`
	Cards            []CardView `json:"cards"`
	First            int        `json:"first"`  // Index of the first candidate, or -1
	Second           int        `json:"second"` // Index of the second candidate, or -1
	RemainingSeconds int        `json:"remaining_seconds"`
	TimerStarted     bool       `json:"timer_started"`
	TimerVisible     bool       `json:"timer_visible"`
	Clock            string     `json:"clock"`
	Outcome          Outcome    `json:"outcome"`
	ModalVisible     bool       `json:"modal_visible"`
	Moves            int        `json:"moves"`
	Matches          int        `json:"matches"`
}

func (s Snapshot) String() string {
	return fmt.Sprintf("Round %d: first=%d, second=%d, clock=%s, moves=%d, matches=%d, outcome=%q",
		s.Round, s.First, s.Second, s.Clock, s.Moves, s.Matches, s.Outcome)
}
