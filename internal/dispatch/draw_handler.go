package dispatch

import (
	"github.com/seednode-labs/quickdraw/internal/game"
	"github.com/seednode-labs/quickdraw/internal/protocol"
)

// DrawHandler relays DRAW-topic messages to every member of the sender's
// current game, the sender included, per spec.md section 4.6. Grounded on codejam's
// controllers/draw_controller.py broadcast_drawable.
type DrawHandler struct {
	registry *game.Registry
}

// NewDrawHandler constructs a DrawHandler bound to a Registry.
func NewDrawHandler(registry *game.Registry) *DrawHandler {
	return &DrawHandler{registry: registry}
}

// Handle broadcasts msg to msg's game, excluding no one (the sender sees
// its own strokes echoed back, matching the original's behaviour).
func (h *DrawHandler) Handle(sender *game.User, msg *protocol.Message) error {
	if !msg.HasGame() {
		return game.NewGameNotStarted("you must join or create a game before drawing")
	}

	out := &protocol.Message{
		Topic:    msg.Topic,
		Username: msg.Username,
		GameID:   msg.GameID,
		Value:    msg.Value,
	}
	_, exc := h.registry.Broadcast(msg.GameIDOrEmpty(), out, nil)
	if exc != nil {
		return exc
	}
	return nil
}
