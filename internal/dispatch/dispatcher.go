// Package dispatch implements the per-connection message loop: decoding
// inbound frames, routing them to the handler for their topic, and
// reporting any resulting exception through the ErrorRouter. Grounded on
// codejam's application.py websocket_endpoint, reworked as an explicit Go
// type instead of a single long-lived coroutine function.
package dispatch

import (
	"github.com/seednode-labs/quickdraw/internal/game"
	"github.com/seednode-labs/quickdraw/internal/metrics"
	"github.com/seednode-labs/quickdraw/internal/protocol"
)

// FrameSource yields successive inbound text frames for one connection.
// ReadFrame returns a non-nil error exactly once, when the connection is
// closing, after which Dispatcher stops reading from it.
type FrameSource interface {
	ReadFrame() ([]byte, error)
}

// Dispatcher owns the routing table from Topic.Type to handler.
type Dispatcher struct {
	registry    *game.Registry
	draw        *DrawHandler
	chat        *ChatHandler
	gameHandler *GameHandler
	errors      *ErrorRouter
}

// New constructs a Dispatcher wired to the given Registry and handlers.
func New(registry *game.Registry, draw *DrawHandler, chat *ChatHandler, gameHandler *GameHandler, errors *ErrorRouter) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		draw:        draw,
		chat:        chat,
		gameHandler: gameHandler,
		errors:      errors,
	}
}

// Run reads frames from source until it closes, routing each to its
// handler and reporting failures via the ErrorRouter. On exit it removes
// user from whatever game it was last known to be in, then from the
// registry entirely, per spec.md section 4.5's transport-close contract.
func (d *Dispatcher) Run(user *game.User, source FrameSource) {
	var currentGameID string

	defer func() {
		if currentGameID != "" {
			_ = d.registry.Leave(currentGameID, user)
		}
		d.registry.Disconnect(user)
	}()

	for {
		data, err := source.ReadFrame()
		if err != nil {
			return
		}
		user.Touch()

		if gameID := d.handleFrame(user, data); gameID != "" {
			currentGameID = gameID
		}
	}
}

// handleFrame decodes and routes a single frame, reporting any error, and
// returns the game id the frame named (if any) so Run can track it.
func (d *Dispatcher) handleFrame(user *game.User, data []byte) string {
	msg, err := protocol.Decode(data)
	if err != nil {
		metrics.MessagesTotal.WithLabelValues("UNKNOWN", "error").Inc()
		d.errors.Route(user, nil, game.AsException(err))
		return ""
	}

	gameID := msg.GameID
	if routeErr := d.route(user, msg); routeErr != nil {
		metrics.MessagesTotal.WithLabelValues(string(msg.Topic.Type), "error").Inc()
		d.errors.Route(user, gameID, game.AsException(routeErr))
	} else {
		metrics.MessagesTotal.WithLabelValues(string(msg.Topic.Type), "ok").Inc()
	}
	return msg.GameIDOrEmpty()
}

func (d *Dispatcher) route(user *game.User, msg *protocol.Message) error {
	switch msg.Topic.Type {
	case protocol.TopicGame:
		return d.gameHandler.Handle(user, msg)
	case protocol.TopicDraw:
		return d.draw.Handle(user, msg)
	case protocol.TopicChat:
		return d.chat.Say(user, msg)
	default:
		// TRICK and ERROR are server-to-client only; a client that sends
		// one gets the same treatment as any other unhandled operation.
		return game.NewNotAllowedOperation("clients may not send " + string(msg.Topic.Type) + " messages")
	}
}
