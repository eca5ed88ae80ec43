package game

import (
	"math/rand"

	"github.com/seednode-labs/quickdraw/internal/protocol"
)

// Prankster is the literal username attributed to TRICK envelopes; it is
// not a real connected user, per the GLOSSARY's "Dirty Goblin" entry.
const Prankster = "Dirty Goblin"

var trickDescriptions = map[protocol.Operation]string{
	protocol.OpTrickSnail: "The rogue snail overtook your tools, " +
		"don't draw too quick or it won't be able to follow!",
	protocol.OpTrickEarthquake: "Is it a bird? A plane? No it's an earthquake! " +
		"Hold tight while it shakes your drawing!",
	protocol.OpTrickLandslide: "Timbeeeer! Or rather landslide! " +
		"An avalanche swept your drawing canvas!",
	protocol.OpTrickNothing: "The " + Prankster + " decided to spare you, " +
		"you can draw in peace!",
	protocol.OpTrickPacman: "The wild pacman was seen in your area, " +
		"be careful, he likes to eat drawings!",
}

// TrickGenerator chooses the single harassment event targeted at the
// current turn's drawer and its delay, and builds its envelope, per
// spec.md section 4.9; GameHandler does the scheduling. It holds no game state
// of its own beyond the Rand seam needed to pin choices in tests.
type TrickGenerator struct {
	rng *rand.Rand
}

// NewTrickGenerator constructs a TrickGenerator. A nil rng gets a
// process-seeded default.
func NewTrickGenerator(rng *rand.Rand) *TrickGenerator {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &TrickGenerator{rng: rng}
}

// ChooseTrick picks one of the five trick operations uniformly at random.
func (t *TrickGenerator) ChooseTrick() protocol.Operation {
	return protocol.TrickOperations[t.rng.Intn(len(protocol.TrickOperations))]
}

// Description returns the fixed human-readable string for a trick
// operation.
func (t *TrickGenerator) Description(op protocol.Operation) string {
	return trickDescriptions[op]
}

// Delay picks a random delay, in seconds, in [3, floor(duration/3)], per
// spec.md section 4.9. Preserved as-coded per spec.md section 9's open
// question about the upper bound (duration/3, not duration/2).
func (t *TrickGenerator) Delay(turnDuration int) int {
	upper := turnDuration / 3
	if upper < 3 {
		upper = 3
	}
	if upper == 3 {
		return 3
	}
	return 3 + t.rng.Intn(upper-3+1)
}

// Message builds the TRICK envelope for a chosen operation, addressed to
// gameID, with Prankster as the sending username.
func (t *TrickGenerator) Message(gameID string, op protocol.Operation) *protocol.Message {
	description := t.Description(op)
	return &protocol.Message{
		Topic:    protocol.Topic{Type: protocol.TopicTrick, Operation: op},
		Username: Prankster,
		GameID:   protocol.StringPtr(gameID),
		Value: protocol.TrickMessage{
			GameID:      gameID,
			Description: description,
		},
	}
}
