package game

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"k8s.io/klog/v2"
)

// Options configure a Game. Zero values take the defaults, negative
// durations are rejected.
type Options struct {
	Symbols       []string
	RoundDuration time.Duration
	FlipDelay     time.Duration
	Rand          *rand.Rand

	// Dispatch runs timer driven updates. In the browser it must move them
	// back to the UI goroutine (app.Context.Dispatch). It defaults to calling
	// the function directly.
	Dispatch func(fn func())

	// OnChange is called after every timer driven state change.
	OnChange func()

	// OnOutcome is called once for each finished round.
	OnOutcome func(Result)
}

// Game holds the board and runs the matching state machine.
//
// All methods are safe to call concurrently, but they are meant to be called
// from a single UI loop, with timer callbacks funnelled through
// Options.Dispatch.
type Game struct {
	mu    sync.Mutex
	opts  Options
	cards []*Card

	first, second *Card
	mismatched    [2]*Card // Last failed pair, closed on the next valid click

	round        int
	remaining    int
	timerStarted bool
	timerVisible bool
	outcome      Outcome
	modalVisible bool
	moves        int
	matches      int

	tickTimer   *time.Timer
	dealTimer   *time.Timer
	pendingDeal Deck

	// Callbacks to run once the lock is released.
	queued []func()
}

// NewGame validates the options and creates a game with all cards closed.
// Call StartNewGame to deal the first round.
func NewGame(opts Options) (*Game, error) {
	if opts.Symbols == nil {
		opts.Symbols = DefaultSymbols
	}
	if err := CheckSymbols(opts.Symbols); err != nil {
		return nil, fmt.Errorf("invalid game options: %w", err)
	}
	if opts.RoundDuration == 0 {
		opts.RoundDuration = DefaultRoundDuration
	}
	if opts.RoundDuration < TickInterval {
		return nil, fmt.Errorf("invalid game options: %w: round duration %s shorter than %s",
			ErrInvalidDuration, opts.RoundDuration, TickInterval)
	}
	if opts.FlipDelay < 0 {
		return nil, fmt.Errorf("invalid game options: %w: negative flip delay %s", ErrInvalidDuration, opts.FlipDelay)
	}
	if opts.FlipDelay == 0 {
		opts.FlipDelay = DefaultFlipDelay
	}
	if opts.Dispatch == nil {
		opts.Dispatch = func(fn func()) { fn() }
	}
	opts.Symbols = append([]string(nil), opts.Symbols...)

	g := &Game{opts: opts}
	g.cards = make([]*Card, 2*len(opts.Symbols))
	for i := range g.cards {
		g.cards[i] = NewCard(i)
	}
	g.remaining = g.roundSeconds()
	return g, nil
}

// NumCards returns the size of the board.
func (g *Game) NumCards() int { return len(g.cards) }

func (g *Game) roundSeconds() int {
	return int(g.opts.RoundDuration / TickInterval)
}

// locked runs fn holding the lock, and then the callbacks fn queued.
func (g *Game) locked(fn func()) {
	g.mu.Lock()
	fn()
	queued := g.queued
	g.queued = nil
	g.mu.Unlock()
	for _, cb := range queued {
		cb()
	}
}

func (g *Game) notifyChange() {
	if g.opts.OnChange != nil {
		g.queued = append(g.queued, g.opts.OnChange)
	}
}

// after schedules fn for the given round. It's discarded if a new round
// started in the meantime.
func (g *Game) after(d time.Duration, round int, fn func()) *time.Timer {
	return time.AfterFunc(d, func() {
		g.opts.Dispatch(func() {
			g.locked(func() {
				if round != g.round {
					klog.V(1).Infof("Game: discarding stale callback from round %d (current %d)", round, g.round)
					return
				}
				fn()
			})
		})
	})
}

// StartNewGame resets every card, clears the selection and the timer, and
// deals a freshly shuffled deck. Symbols are assigned to the cards only after
// the flip delay, so that they are not seen while the cards close.
func (g *Game) StartNewGame() {
	g.locked(g.startNewGame)
}

func (g *Game) startNewGame() {
	g.round++
	g.stopTimer()
	if g.dealTimer != nil {
		g.dealTimer.Stop()
		g.dealTimer = nil
	}

	g.first, g.second = nil, nil
	g.mismatched = [2]*Card{}
	g.timerStarted = false
	g.timerVisible = false
	g.remaining = g.roundSeconds()
	g.outcome = OutcomeNone
	g.moves, g.matches = 0, 0
	for _, c := range g.cards {
		c.Reset()
	}

	g.pendingDeal = GenerateDeck(g.opts.Symbols, g.opts.Rand)
	klog.Infof("Game: round %d started with %d cards", g.round, len(g.cards))
	g.dealTimer = g.after(g.opts.FlipDelay, g.round, func() {
		if g.applyDeal() {
			g.notifyChange()
		}
	})
}

// applyDeal assigns the pending deck to the cards. It returns false if
// there was nothing pending.
func (g *Game) applyDeal() bool {
	if g.pendingDeal == nil {
		return false
	}
	for i, v := range g.pendingDeal {
		g.cards[i].SetValue(v)
	}
	g.pendingDeal = nil
	if g.dealTimer != nil {
		g.dealTimer.Stop()
		g.dealTimer = nil
	}
	klog.V(1).Infof("Game: round %d symbols assigned", g.round)
	return true
}

// Click processes a click on the card at index.
// Invalid indexes, clicks on matched or wrong cards and clicks after the
// round ended are ignored.
func (g *Game) Click(index int) {
	g.locked(func() { g.click(index) })
}

func (g *Game) click(index int) {
	if index < 0 || index >= len(g.cards) {
		klog.Warningf("Game: click on invalid card index %d", index)
		return
	}
	if g.outcome != OutcomeNone {
		return
	}

	// A click before the deal landed must already see the new symbols.
	g.applyDeal()

	if !g.timerStarted {
		g.startTimer()
	}

	c := g.cards[index]
	if c.Disabled() || c.Wrong() {
		klog.V(1).Infof("Game: ignoring click on card %d (disabled=%v, wrong=%v)", index, c.Disabled(), c.Wrong())
		return
	}

	switch {
	case g.first != nil && g.second == nil && g.first != c:
		g.second = c
		c.Flip()
		g.compareTwoCards()

	case g.first == c && g.second == nil:
		// Clicking the only open candidate closes it and drops the selection.
		c.Flip()
		g.first = nil

	default:
		g.discardMismatch()
		g.first = c
		g.second = nil
		c.Flip()
	}
	if klog.V(1).Enabled() {
		klog.Infof("Game: click on card %d -> %s", index, g.snapshot())
	}
}

// discardMismatch closes the last mismatched pair and clears its marks.
func (g *Game) discardMismatch() {
	for _, c := range g.mismatched {
		if c == nil {
			continue
		}
		if c.Flipped() {
			c.Flip()
		}
		c.ClearMark()
	}
	g.mismatched = [2]*Card{}
}

func (g *Game) compareTwoCards() {
	a, b := g.first, g.second
	g.first, g.second = nil, nil
	g.moves++

	if a.Value() != b.Value() {
		a.MarkWrong()
		b.MarkWrong()
		g.mismatched = [2]*Card{a, b}
		return
	}

	a.MarkRight()
	b.MarkRight()
	g.matches++
	for _, c := range g.cards {
		if !c.Disabled() {
			return
		}
	}
	g.showOutcome(OutcomeWin)
}

func (g *Game) startTimer() {
	g.timerStarted = true
	g.timerVisible = true
	g.remaining = g.roundSeconds()
	g.scheduleTick()
}

func (g *Game) scheduleTick() {
	g.tickTimer = g.after(TickInterval, g.round, g.tick)
}

func (g *Game) tick() {
	if g.tickTimer == nil || g.outcome != OutcomeNone {
		return
	}
	g.remaining--
	if g.remaining <= 0 {
		g.remaining = 0
		g.showOutcome(OutcomeLose)
	} else {
		g.scheduleTick()
	}
	g.notifyChange()
}

func (g *Game) stopTimer() {
	if g.tickTimer != nil {
		g.tickTimer.Stop()
		g.tickTimer = nil
	}
}

// ShowOutcome ends the round: it stops and hides the timer and opens the
// outcome modal. It's a no-op if the round already ended.
func (g *Game) ShowOutcome(outcome Outcome) {
	g.locked(func() { g.showOutcome(outcome) })
}

func (g *Game) showOutcome(outcome Outcome) {
	if g.outcome != OutcomeNone || outcome == OutcomeNone {
		return
	}
	g.stopTimer()
	g.timerVisible = false
	g.outcome = outcome
	g.modalVisible = true

	result := Result{
		Outcome: outcome,
		Seconds: g.elapsed(),
		Moves:   g.moves,
		Round:   g.round,
	}
	klog.Infof("Game: round %d ended: %s after %ds and %d moves", g.round, outcome, result.Seconds, result.Moves)
	if g.opts.OnOutcome != nil {
		onOutcome := g.opts.OnOutcome
		g.queued = append(g.queued, func() { onOutcome(result) })
	}
}

// HideOutcome closes the outcome modal.
func (g *Game) HideOutcome() {
	g.locked(func() { g.modalVisible = false })
}

// PlayAgain is the action of the outcome modal button: it hides the modal and
// starts a new round with the selection cleared.
func (g *Game) PlayAgain() {
	g.locked(func() {
		g.modalVisible = false
		g.first, g.second = nil, nil
		g.startNewGame()
	})
}

// Stop cancels pending timers, e.g. when the board is removed from the page.
func (g *Game) Stop() {
	g.locked(func() {
		g.stopTimer()
		if g.dealTimer != nil {
			g.dealTimer.Stop()
			g.dealTimer = nil
		}
	})
}

func (g *Game) elapsed() int {
	if !g.timerStarted {
		return 0
	}
	return g.roundSeconds() - g.remaining
}

// Elapsed returns the seconds used from the countdown in the current round.
func (g *Game) Elapsed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.elapsed()
}

// Remaining returns the seconds left in the countdown.
func (g *Game) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remaining
}

// Outcome returns the outcome of the current round, or OutcomeNone while it's being played.
func (g *Game) Outcome() Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.outcome
}

// Snapshot returns a copy of the full game state.
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot()
}

func (g *Game) snapshot() Snapshot {
	s := Snapshot{
		Round:            g.round,
		Cards:            make([]CardView, len(g.cards)),
		First:            -1,
		Second:           -1,
		RemainingSeconds: g.remaining,
		TimerStarted:     g.timerStarted,
		TimerVisible:     g.timerVisible,
		Clock:            FormatClock(g.remaining),
		Outcome:          g.outcome,
		ModalVisible:     g.modalVisible,
		Moves:            g.moves,
		Matches:          g.matches,
	}
	for i, c := range g.cards {
		s.Cards[i] = CardView{
			Index:    c.Index(),
			Value:    c.Value(),
			Flipped:  c.Flipped(),
			Disabled: c.Disabled(),
			Wrong:    c.Wrong(),
			Mark:     c.Mark(),
		}
	}
	if g.first != nil {
		s.First = g.first.Index()
	}
	if g.second != nil {
		s.Second = g.second.Index()
	}
	return s
}
