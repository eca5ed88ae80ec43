package dispatch

import (
	"github.com/google/uuid"

	"github.com/seednode-labs/quickdraw/internal/game"
	"github.com/seednode-labs/quickdraw/internal/protocol"
)

// ErrorRouter delivers exceptions raised anywhere in the dispatch pipeline
// as ERROR/BROADCAST envelopes, per spec.md section 4.10. A message naming
// no game is delivered straight to the originator; a message naming a game
// is broadcast to the room, falling back to a direct GameNotExist delivery
// if that room turns out not to exist. Grounded on codejam's
// controllers/error_controller.py broadcast_error.
type ErrorRouter struct {
	registry *game.Registry
}

// NewErrorRouter constructs an ErrorRouter bound to a Registry.
func NewErrorRouter(registry *game.Registry) *ErrorRouter {
	return &ErrorRouter{registry: registry}
}

// Route delivers exc, attributing it to originator and, if gameID names a
// live game, broadcasting it there instead of to originator alone.
func (r *ErrorRouter) Route(originator *game.User, gameID *string, exc game.Exception) {
	msg := r.buildMessage(originator.Name, gameID, exc)

	if gameID == nil || *gameID == "" {
		_ = originator.Send(msg)
		return
	}

	if _, lookupErr := r.registry.Broadcast(*gameID, msg, nil); lookupErr != nil {
		fallback := r.buildMessage(originator.Name, gameID,
			game.NewGameNotExist("game with id "+*gameID+" does not exist"))
		_ = originator.Send(fallback)
	}
}

// BroadcastException delivers exc directly to g's current members. Used by
// callers that already hold a live *game.Game (GameHandler's END and
// NotEnoughPlayers paths), bypassing the registry lookup Route otherwise
// performs, since the lookup would be redundant there.
func (r *ErrorRouter) BroadcastException(g *game.Game, exc game.Exception) {
	gameID := g.ID()
	msg := r.buildMessage(g.Creator().Name, &gameID, exc)
	g.Broadcast(msg, nil)
}

func (r *ErrorRouter) buildMessage(username string, gameID *string, exc game.Exception) *protocol.Message {
	return &protocol.Message{
		Topic:    protocol.Topic{Type: protocol.TopicError, Operation: protocol.OpBroadcast},
		Username: username,
		GameID:   gameID,
		Value: protocol.ErrorMessage{
			Exception: exc.Exception(),
			Value:     exc.Error(),
			ErrorID:   uuid.NewString(),
		},
	}
}
