package game

import "github.com/seednode-labs/quickdraw/internal/phrase"

// Turn is an immutable snapshot of one round, per spec.md section 3.
// Winner is set exactly once, by Game.RegisterWin, and only ever moves
// from "" to a username.
type Turn struct {
	TurnNo   int
	Level    phrase.Difficulty
	Drawer   string
	Duration int
	Phrase   string
	Winner   string
}

// MaskedPhrase is the literal ten-asterisk string spec.md section 6 defines
// for TURN broadcasts to non-drawers.
const MaskedPhrase = "**********"

// AllowedDurations are the only turn-duration values spec.md permits.
var AllowedDurations = []int{30, 60}

// WinnerScore maps a phrase.Difficulty to the points its turn winner earns.
// Defaults preserve spec.md section 3's documented HARD==EASY quirk; both
// are configurable by the caller that constructs a Registry.
type WinnerScore map[phrase.Difficulty]int

// DefaultWinnerScores is spec.md section 6's documented default table.
func DefaultWinnerScores() WinnerScore {
	return WinnerScore{
		phrase.Easy:   50,
		phrase.Medium: 100,
		phrase.Hard:   50,
	}
}
