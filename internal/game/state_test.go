package game

import (
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"testing/synctest"
	"time"
)

// advance moves the fake clock and waits for all timer callbacks to settle.
func advance(d time.Duration) {
	time.Sleep(d)
	synctest.Wait()
}

// recorder collects the callbacks of a game.
type recorder struct {
	mu       sync.Mutex
	changes  int
	outcomes []Result
}

func (r *recorder) options() Options {
	return Options{
		Rand:      rand.New(rand.NewPCG(7, 11)),
		OnChange:  func() { r.mu.Lock(); r.changes++; r.mu.Unlock() },
		OnOutcome: func(res Result) { r.mu.Lock(); r.outcomes = append(r.outcomes, res); r.mu.Unlock() },
	}
}

func (r *recorder) Outcomes() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.outcomes...)
}

// newDealtGame creates a game and waits for the first deal to land.
func newDealtGame(t *testing.T, rec *recorder) *Game {
	t.Helper()
	g, err := NewGame(rec.options())
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}
	g.StartNewGame()
	advance(DefaultFlipDelay + time.Millisecond)
	return g
}

// pairsOf maps each symbol to the two positions holding it.
func pairsOf(t *testing.T, s Snapshot) map[string][]int {
	t.Helper()
	pairs := make(map[string][]int)
	for _, c := range s.Cards {
		pairs[c.Value] = append(pairs[c.Value], c.Index)
	}
	for v, idx := range pairs {
		if len(idx) != 2 {
			t.Fatalf("Symbol %q at %v, expected exactly 2 positions", v, idx)
		}
	}
	return pairs
}

// mismatch returns two unmatched positions holding different symbols.
func mismatch(s Snapshot) (int, int) {
	for i, a := range s.Cards {
		for j := i + 1; j < len(s.Cards); j++ {
			b := s.Cards[j]
			if !a.Disabled && !b.Disabled && a.Value != b.Value {
				return i, j
			}
		}
	}
	return -1, -1
}

func TestNewGameOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"duplicate", Options{Symbols: []string{"a", "a"}}, ErrDuplicateSymbol},
		{"empty", Options{Symbols: []string{}}, ErrNoSymbols},
		{"short round", Options{RoundDuration: time.Millisecond}, ErrInvalidDuration},
		{"negative round", Options{RoundDuration: -time.Minute}, ErrInvalidDuration},
		{"negative delay", Options{FlipDelay: -time.Second}, ErrInvalidDuration},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewGame(tc.opts)
			if !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
		})
	}

	g, err := NewGame(Options{})
	if err != nil {
		t.Fatalf("NewGame with defaults failed: %v", err)
	}
	if g.NumCards() != 12 {
		t.Errorf("Expected 12 cards, got %d", g.NumCards())
	}
	if g.Remaining() != 60 {
		t.Errorf("Expected 60 seconds, got %d", g.Remaining())
	}
}

func TestZeroDurationsTakeDefaults(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		g, err := NewGame(Options{RoundDuration: 0, FlipDelay: 0})
		if err != nil {
			t.Fatalf("NewGame failed: %v", err)
		}
		defer g.Stop()
		if g.Remaining() != int(DefaultRoundDuration/TickInterval) {
			t.Errorf("Expected %d seconds, got %d", int(DefaultRoundDuration/TickInterval), g.Remaining())
		}

		g.StartNewGame()
		advance(DefaultFlipDelay - time.Millisecond)
		for _, c := range g.Snapshot().Cards {
			if c.Value != "" {
				t.Fatalf("Card %d got symbol %q before the default flip delay", c.Index, c.Value)
			}
		}
		advance(2 * time.Millisecond)
		pairsOf(t, g.Snapshot())
	})
}

func TestStartNewGameDealsPairs(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &recorder{}
		g, err := NewGame(rec.options())
		if err != nil {
			t.Fatal(err)
		}
		for round := 1; round <= 5; round++ {
			g.StartNewGame()

			// Symbols only land after the cards finished closing.
			advance(DefaultFlipDelay / 2)
			if round == 1 && g.Snapshot().Cards[0].Value != "" {
				t.Fatalf("Symbols assigned before the flip delay")
			}
			advance(DefaultFlipDelay)

			s := g.Snapshot()
			if s.Round != round {
				t.Errorf("Expected round %d, got %d", round, s.Round)
			}
			pairs := pairsOf(t, s)
			if len(pairs) != 6 {
				t.Errorf("Expected 6 distinct symbols, got %d", len(pairs))
			}
			for _, c := range s.Cards {
				if c.Flipped || c.Disabled || c.Wrong {
					t.Errorf("Card %d not reset: %+v", c.Index, c)
				}
			}
			if s.TimerStarted || s.First != -1 || s.Second != -1 {
				t.Errorf("Round state not reset: %s", s)
			}
		}
	})
}

func TestStaleDealIsDiscarded(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &recorder{}
		g, err := NewGame(rec.options())
		if err != nil {
			t.Fatal(err)
		}
		g.StartNewGame()
		advance(DefaultFlipDelay / 2)
		g.StartNewGame()
		advance(2 * DefaultFlipDelay)

		// Only the deal of the second round must have been applied.
		rec.mu.Lock()
		changes := rec.changes
		rec.mu.Unlock()
		if changes != 1 {
			t.Errorf("Expected 1 deal notification, got %d", changes)
		}
		pairsOf(t, g.Snapshot())
	})
}

func TestClickBeforeDealSeesSymbols(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &recorder{}
		g, err := NewGame(rec.options())
		if err != nil {
			t.Fatal(err)
		}
		g.StartNewGame()
		g.Click(0)
		s := g.Snapshot()
		if s.Cards[0].Value == "" {
			t.Fatalf("Clicked card has no symbol")
		}
		pairsOf(t, s)
		g.Stop()
	})
}

func TestMatchingPair(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &recorder{}
		g := newDealtGame(t, rec)
		pair := pairsOf(t, g.Snapshot())[DefaultSymbols[0]]

		g.Click(pair[0])
		s := g.Snapshot()
		if s.First != pair[0] || !s.Cards[pair[0]].Flipped || !s.TimerStarted {
			t.Fatalf("First click not registered: %s", s)
		}

		g.Click(pair[1])
		s = g.Snapshot()
		for _, i := range pair {
			if !s.Cards[i].Disabled || !s.Cards[i].Flipped || s.Cards[i].Mark != MarkRight {
				t.Errorf("Card %d should be matched: %+v", i, s.Cards[i])
			}
		}
		if s.First != -1 || s.Second != -1 {
			t.Errorf("Candidates not cleared: %s", s)
		}
		if s.Outcome != OutcomeNone || s.Matches != 1 || s.Moves != 1 {
			t.Errorf("Unexpected state after first match: %s", s)
		}

		// Clicking a matched card changes nothing.
		g.Click(pair[0])
		after := g.Snapshot()
		if after.First != -1 || !after.Cards[pair[0]].Flipped || !after.Cards[pair[0]].Disabled {
			t.Errorf("Click on disabled card changed state: %s", after)
		}

		// Matched cards stay disabled while the rest of the round is played.
		a, b := mismatch(after)
		g.Click(a)
		g.Click(b)
		s = g.Snapshot()
		for _, i := range pair {
			if !s.Cards[i].Disabled {
				t.Errorf("Card %d lost its disabled state", i)
			}
		}
		g.Stop()
	})
}

func TestMismatchedPair(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &recorder{}
		g := newDealtGame(t, rec)
		a, b := mismatch(g.Snapshot())

		g.Click(a)
		g.Click(b)
		s := g.Snapshot()
		for _, i := range []int{a, b} {
			if s.Cards[i].Disabled || !s.Cards[i].Wrong || !s.Cards[i].Flipped || s.Cards[i].Mark != MarkWrong {
				t.Errorf("Card %d should be flagged wrong: %+v", i, s.Cards[i])
			}
		}
		if s.First != -1 || s.Second != -1 {
			t.Errorf("Candidates not cleared after comparison: %s", s)
		}

		// Clicks on wrong cards are ignored.
		g.Click(a)
		if got := g.Snapshot(); !got.Cards[a].Flipped || !got.Cards[a].Wrong || got.First != -1 {
			t.Errorf("Click on wrong card changed state: %s", got)
		}

		// The next valid click discards the pair.
		c := -1
		for i := range s.Cards {
			if i != a && i != b {
				c = i
				break
			}
		}
		g.Click(c)
		s = g.Snapshot()
		for _, i := range []int{a, b} {
			if s.Cards[i].Flipped || s.Cards[i].Wrong || s.Cards[i].Mark != MarkNone {
				t.Errorf("Card %d should be closed and unmarked: %+v", i, s.Cards[i])
			}
		}
		if s.First != c || !s.Cards[c].Flipped {
			t.Errorf("Card %d should be the first candidate: %s", c, s)
		}

		// The discarded cards are selectable again.
		g.Click(a)
		if got := g.Snapshot(); !got.Cards[a].Flipped || got.Moves != 2 {
			t.Errorf("Discarded card not selectable: %s", got)
		}
		g.Stop()
	})
}

func TestReclickClosesCandidate(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &recorder{}
		g := newDealtGame(t, rec)

		g.Click(4)
		g.Click(4)
		s := g.Snapshot()
		if s.Cards[4].Flipped {
			t.Errorf("Card should be closed again")
		}
		if s.First != -1 || s.Second != -1 {
			t.Errorf("No candidate should persist: %s", s)
		}

		advance(2*time.Second + time.Millisecond)
		s = g.Snapshot()
		if !s.TimerStarted || s.RemainingSeconds != 58 || s.Clock != "00:58" {
			t.Errorf("Timer should still be running: %s", s)
		}

		// A new selection starts cleanly.
		g.Click(4)
		if got := g.Snapshot(); got.First != 4 || !got.Cards[4].Flipped {
			t.Errorf("Card should be selectable again: %s", got)
		}
		g.Stop()
	})
}

func TestWinAndPlayAgain(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &recorder{}
		g := newDealtGame(t, rec)
		pairs := pairsOf(t, g.Snapshot())

		for i, sym := range DefaultSymbols {
			advance(time.Second + time.Millisecond)
			g.Click(pairs[sym][0])
			g.Click(pairs[sym][1])
			if i < len(DefaultSymbols)-1 && g.Outcome() != OutcomeNone {
				t.Fatalf("Outcome fired with %d pairs left", len(DefaultSymbols)-1-i)
			}
		}

		s := g.Snapshot()
		if s.Outcome != OutcomeWin || !s.ModalVisible || s.TimerVisible {
			t.Fatalf("Expected win modal without timer: %s", s)
		}
		if s.Outcome.ButtonLabel() != "Play again" {
			t.Errorf("Unexpected button label %q", s.Outcome.ButtonLabel())
		}
		outcomes := rec.Outcomes()
		if len(outcomes) != 1 {
			t.Fatalf("Expected 1 outcome, got %d", len(outcomes))
		}
		if outcomes[0].Outcome != OutcomeWin || outcomes[0].Moves != 6 || outcomes[0].Seconds != 5 {
			t.Errorf("Unexpected result %+v", outcomes[0])
		}

		// The countdown is stopped.
		remaining := s.RemainingSeconds
		advance(5 * time.Second)
		if got := g.Remaining(); got != remaining {
			t.Errorf("Timer kept running after win: %d -> %d", remaining, got)
		}

		g.PlayAgain()
		s = g.Snapshot()
		if s.ModalVisible || s.Outcome != OutcomeNone || s.TimerStarted || s.Round != 2 {
			t.Errorf("Play again did not reset the round: %s", s)
		}
		for _, c := range s.Cards {
			if c.Flipped || c.Disabled || c.Wrong {
				t.Errorf("Card %d not reset: %+v", c.Index, c)
			}
		}
		advance(DefaultFlipDelay + time.Millisecond)
		pairsOf(t, g.Snapshot())
	})
}

func TestLoseOnTimeout(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &recorder{}
		g := newDealtGame(t, rec)
		a, b := mismatch(g.Snapshot())
		g.Click(a)
		g.Click(b)
		g.Click((b + 1) % g.NumCards())

		advance(59*time.Second + time.Millisecond)
		if s := g.Snapshot(); s.Outcome != OutcomeNone || s.Clock != "00:01" {
			t.Fatalf("Round ended too early: %s", s)
		}
		advance(time.Second)

		s := g.Snapshot()
		if s.Outcome != OutcomeLose || !s.ModalVisible || s.TimerVisible || s.RemainingSeconds != 0 {
			t.Fatalf("Expected lose modal without timer: %s", s)
		}
		if s.Outcome.ButtonLabel() != "Try again" {
			t.Errorf("Unexpected button label %q", s.Outcome.ButtonLabel())
		}
		outcomes := rec.Outcomes()
		if len(outcomes) != 1 || outcomes[0].Outcome != OutcomeLose || outcomes[0].Seconds != 60 {
			t.Errorf("Unexpected outcomes %+v", outcomes)
		}

		// Clicks are ignored once the round ended, and the timer is stopped.
		g.Click(0)
		advance(3 * time.Second)
		if got := g.Snapshot(); got.RemainingSeconds != 0 || got.Moves != s.Moves || len(rec.Outcomes()) != 1 {
			t.Errorf("State changed after lose: %s", got)
		}

		g.HideOutcome()
		if g.Snapshot().ModalVisible {
			t.Errorf("HideOutcome left the modal visible")
		}
	})
}

func TestPlayAgainDiscardsOldCountdown(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &recorder{}
		g := newDealtGame(t, rec)
		g.Click(0)
		advance(30*time.Second + 500*time.Millisecond)
		g.PlayAgain()

		// The countdown of the previous round must not carry over.
		advance(2 * time.Minute)
		s := g.Snapshot()
		if s.Outcome != OutcomeNone || s.TimerStarted || s.RemainingSeconds != 60 {
			t.Errorf("Old countdown leaked into the new round: %s", s)
		}
		if len(rec.Outcomes()) != 0 {
			t.Errorf("Unexpected outcomes %+v", rec.Outcomes())
		}
	})
}

func TestDispatchIsUsedForTimers(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var mu sync.Mutex
		dispatched := 0
		opts := Options{
			RoundDuration: 3 * time.Second,
			Dispatch: func(fn func()) {
				mu.Lock()
				dispatched++
				mu.Unlock()
				fn()
			},
		}
		g, err := NewGame(opts)
		if err != nil {
			t.Fatal(err)
		}
		g.StartNewGame()
		advance(DefaultFlipDelay + time.Millisecond)
		g.Click(0)
		advance(3*time.Second + time.Millisecond)

		if g.Outcome() != OutcomeLose {
			t.Fatalf("Expected lose after 3s, got %q", g.Outcome())
		}
		mu.Lock()
		defer mu.Unlock()
		// One deal and three ticks.
		if dispatched != 4 {
			t.Errorf("Expected 4 dispatched callbacks, got %d", dispatched)
		}
	})
}

func TestInvalidClickIndex(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		g := newDealtGame(t, &recorder{})
		g.Click(-1)
		g.Click(g.NumCards())
		if s := g.Snapshot(); s.TimerStarted || s.First != -1 {
			t.Errorf("Invalid clicks changed state: %s", s)
		}
	})
}
