package game

// Mark is the visual indicator drawn on the face of an open card.
type Mark int

const (
	MarkNone  Mark = iota
	MarkWrong      // Part of a mismatched pair
	MarkRight      // Part of a found pair
)

func (m Mark) String() string {
	switch m {
	case MarkWrong:
		return "wrong"
	case MarkRight:
		return "right"
	default:
		return "none"
	}
}

// Card is one card of the board.
//
// Card operations have no guards: it's up to the Game to check Disabled and
// Wrong before flipping a card.
type Card struct {
	index    int
	value    string
	flipped  bool
	disabled bool
	wrong    bool
	mark     Mark
}

// NewCard creates a closed card at the given board position.
func NewCard(index int) *Card {
	return &Card{index: index}
}

// Index is the position of the card on the board.
func (c *Card) Index() int { return c.index }

// Flipped reports whether the card is open.
func (c *Card) Flipped() bool { return c.flipped }

// Disabled reports whether the card was matched. It's terminal for the round.
func (c *Card) Disabled() bool { return c.disabled }

// Wrong reports whether the card is flagged as part of a failed match.
func (c *Card) Wrong() bool { return c.wrong }

// Mark returns the current visual indicator.
func (c *Card) Mark() Mark { return c.mark }

// Flip toggles the card between open and closed.
func (c *Card) Flip() {
	c.flipped = !c.flipped
}

// Reset closes the card and clears all flags, used at the start of a round.
// The value is kept: it's replaced once the card finished closing.
func (c *Card) Reset() {
	c.flipped = false
	c.disabled = false
	c.ClearMark()
}

// Value returns the hidden symbol.
func (c *Card) Value() string { return c.value }

// SetValue replaces the hidden symbol.
func (c *Card) SetValue(v string) { c.value = v }

// MarkWrong flags the card as part of a mismatch. It remains selectable once
// the pair is discarded.
func (c *Card) MarkWrong() {
	c.wrong = true
	c.mark = MarkWrong
}

// MarkRight disables the card for the rest of the round.
func (c *Card) MarkRight() {
	c.disabled = true
	c.wrong = false
	c.mark = MarkRight
}

// ClearMark removes both indicators and the wrong flag. Disabled is untouched.
func (c *Card) ClearMark() {
	c.wrong = false
	c.mark = MarkNone
}
