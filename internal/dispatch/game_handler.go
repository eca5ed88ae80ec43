package dispatch

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/seednode-labs/quickdraw/internal/game"
	"github.com/seednode-labs/quickdraw/internal/metrics"
	"github.com/seednode-labs/quickdraw/internal/phrase"
	"github.com/seednode-labs/quickdraw/internal/protocol"
)

// GameHandler implements the CREATE/JOIN/LEAVE/END/START state machine and
// owns turn scheduling, per spec.md section 4.8. Grounded on codejam's
// controllers/game_controller.py GameController.
type GameHandler struct {
	registry    *game.Registry
	trick       *game.TrickGenerator
	errorRouter *ErrorRouter
	minPlayers  int
}

// NewGameHandler constructs a GameHandler.
func NewGameHandler(registry *game.Registry, trick *game.TrickGenerator, errorRouter *ErrorRouter, minPlayers int) *GameHandler {
	if minPlayers <= 0 {
		minPlayers = 3
	}
	return &GameHandler{registry: registry, trick: trick, errorRouter: errorRouter, minPlayers: minPlayers}
}

// Handle routes a GAME-topic message to its operation.
func (h *GameHandler) Handle(sender *game.User, msg *protocol.Message) error {
	switch msg.Topic.Operation {
	case protocol.OpCreate:
		return h.Create(sender, msg)
	case protocol.OpJoin:
		return h.Join(sender, msg)
	case protocol.OpLeave:
		return h.Leave(sender, msg)
	case protocol.OpEnd:
		return h.End(sender, msg)
	case protocol.OpStart:
		return h.Start(sender, msg)
	default:
		return game.NewNotAllowedOperation(fmt.Sprintf("operation %s is not handled for GAME", msg.Topic.Operation))
	}
}

// Create registers a new game, with sender as its creator, and auto-joins
// the creator. The game id is taken from the envelope if the creator
// supplied one; otherwise the registry generates one.
func (h *GameHandler) Create(sender *game.User, msg *protocol.Message) error {
	difficulty := phrase.Medium
	if gm, ok := msg.Value.(protocol.GameMessage); ok && gm.Difficulty != "" {
		difficulty = phrase.Difficulty(strings.ToUpper(gm.Difficulty))
	}

	g, exc := h.registry.RegisterGame(sender, msg.GameIDOrEmpty(), difficulty)
	if exc != nil {
		return exc
	}
	g.Join(sender)

	reply := &protocol.Message{
		Topic:    protocol.Topic{Type: protocol.TopicGame, Operation: protocol.OpCreate},
		Username: sender.Name,
		GameID:   protocol.StringPtr(g.ID()),
		Value: protocol.GameMessage{
			Success:    true,
			GameID:     g.ID(),
			Difficulty: string(g.Difficulty()),
			GameLength: g.GameLength(),
		},
	}
	return sender.Send(reply)
}

// Join adds sender to an existing game's members, broadcasts the updated
// member list, and replays the game's DRAW/CHAT history to sender alone.
func (h *GameHandler) Join(sender *game.User, msg *protocol.Message) error {
	gameID := msg.GameIDOrEmpty()
	if gameID == "" {
		return game.NewGameNotExist("no game id was given to join")
	}

	g, exc := h.registry.JoinGame(gameID, sender)
	if exc != nil {
		return exc
	}

	reply := &protocol.Message{
		Topic:    protocol.Topic{Type: protocol.TopicGame, Operation: protocol.OpJoin},
		Username: sender.Name,
		GameID:   protocol.StringPtr(gameID),
		Value: protocol.GameMessage{
			Success:    true,
			GameID:     gameID,
			GameLength: g.GameLength(),
			Members:    g.Members(),
		},
	}
	g.Broadcast(reply, nil)

	return g.ReplayHistory(sender)
}

// Leave removes sender from a game. A non-creator leaving just updates
// membership and may stop a running game (back to the lobby, still
// registered) for lack of players; a creator
// leaving ends the game outright, matching spec.md's documented
// conflation of creator-LEAVE with END.
func (h *GameHandler) Leave(sender *game.User, msg *protocol.Message) error {
	gameID := msg.GameIDOrEmpty()
	if gameID == "" {
		return game.NewGameNotExist("no game id was given to leave")
	}
	g, exc := h.registry.GetGame(gameID)
	if exc != nil {
		return exc
	}

	if sender.Name == g.Creator().Name {
		return h.endGame(g)
	}

	g.Leave(sender)
	reply := &protocol.Message{
		Topic:    protocol.Topic{Type: protocol.TopicGame, Operation: protocol.OpLeave},
		Username: sender.Name,
		GameID:   protocol.StringPtr(gameID),
		Value: protocol.GameMessage{
			Success: true,
			GameID:  gameID,
			Members: g.Members(),
		},
	}
	g.Broadcast(reply, nil)

	if g.Active() && g.MemberCount() < h.minPlayers {
		g.SetActive(false)
		g.CancelScheduledTasks()
		h.errorRouter.BroadcastException(g, game.NewNotEnoughPlayers("not enough players remain to continue"))
	}
	return nil
}

// End terminates a game unconditionally, matching codejam's
// end_game controller (which performs no ownership check of its own).
func (h *GameHandler) End(sender *game.User, msg *protocol.Message) error {
	gameID := msg.GameIDOrEmpty()
	g, exc := h.registry.GetGame(gameID)
	if exc != nil {
		return exc
	}
	return h.endGame(g)
}

// endGame broadcasts the GameEnded signal to the room while it is still
// registered, then removes it, so that any operation on the game id that
// follows observes GameNotExist immediately rather than only once the
// creator's connection eventually closes.
func (h *GameHandler) endGame(g *game.Game) error {
	g.SetActive(false)
	g.CancelScheduledTasks()
	h.errorRouter.BroadcastException(g, game.NewGameEnded("the game was ended"))
	h.registry.RemoveGame(g.ID())
	return nil
}

// Start transitions a game from LOBBY to RUNNING and plays its first turn.
// Only the creator may start a game, and not while it is already running.
func (h *GameHandler) Start(sender *game.User, msg *protocol.Message) error {
	gameID := msg.GameIDOrEmpty()
	g, exc := h.registry.GetGame(gameID)
	if exc != nil {
		return exc
	}
	if sender.Name != g.Creator().Name {
		return game.NewCannotStartNotOwnGame("only the creator may start this game")
	}
	if g.Active() {
		return game.NewGameAlreadyStarted("this game has already started")
	}

	g.SetActive(true)
	h.ExecuteTurn(g)
	return nil
}

// ExecuteTurn plays one turn of g and schedules the next. It is called on
// START, by its own scheduled-next-turn timer, and after a post-win pause.
// Domain exceptions raised by PlayTurn are handled here, not propagated,
// matching codejam's execute_turn which swallows NotEnoughPlayers itself.
func (h *GameHandler) ExecuteTurn(g *game.Game) {
	turn, exc := g.PlayTurn(h.registry.PhraseSource())
	if exc != nil {
		g.SetActive(false)
		switch exc.Exception() {
		case "GameEnded":
			h.broadcastGameEnd(g)
		default:
			h.errorRouter.BroadcastException(g, exc)
		}
		return
	}

	metrics.TurnsTotal.WithLabelValues(string(turn.Level)).Inc()

	drawerUser, lookupErr := h.registry.GetUser(turn.Drawer)
	if lookupErr == nil {
		_ = drawerUser.Send(h.buildTurnMessage(g, turn, true))
	}
	g.Broadcast(h.buildTurnMessage(g, turn, false), map[string]bool{turn.Drawer: true})

	g.ScheduleNextTurn(secondsToDuration(turn.Duration), func() { h.ExecuteTurn(g) })

	delay := h.trick.Delay(turn.Duration)
	g.ScheduleTrick(secondsToDuration(delay), func() { h.releaseTrick(g) })
}

func (h *GameHandler) releaseTrick(g *game.Game) {
	op := h.trick.ChooseTrick()
	metrics.TricksTotal.WithLabelValues(string(op)).Inc()
	msg := h.trick.Message(g.ID(), op)

	turn := g.CurrentTurn()
	if turn == nil {
		return
	}
	drawerUser, lookupErr := h.registry.GetUser(turn.Drawer)
	if lookupErr != nil {
		return
	}
	_ = drawerUser.Send(msg)
}

func (h *GameHandler) buildTurnMessage(g *game.Game, turn *game.Turn, secret bool) *protocol.Message {
	phraseText := turn.Phrase
	if !secret {
		phraseText = game.MaskedPhrase
	}
	tm := &protocol.TurnMessage{
		TurnNo:   turn.TurnNo,
		Active:   true,
		Level:    string(turn.Level),
		Drawer:   turn.Drawer,
		Duration: turn.Duration,
		Phrase:   phraseText,
		Winner:   turn.Winner,
		Score:    g.Score(),
	}
	return &protocol.Message{
		Topic:    protocol.Topic{Type: protocol.TopicGame, Operation: protocol.OpTurn},
		Username: g.Creator().Name,
		GameID:   protocol.StringPtr(g.ID()),
		Value: protocol.GameMessage{
			Success: true,
			GameID:  g.ID(),
			Turn:    tm,
		},
	}
}

func (h *GameHandler) broadcastGameEnd(g *game.Game) {
	score := g.Score()
	msg := &protocol.Message{
		Topic:    protocol.Topic{Type: protocol.TopicGame, Operation: protocol.OpEnd},
		Username: g.Creator().Name,
		GameID:   protocol.StringPtr(g.ID()),
		Value: protocol.GameMessage{
			Success:    true,
			GameID:     g.ID(),
			Score:      score,
			TopScorers: topScorers(score),
		},
	}
	g.Broadcast(msg, nil)
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// topScorers returns the (possibly multiple, tied) usernames with the
// highest score, sorted for deterministic output.
func topScorers(score map[string]int) []string {
	best := 0
	for _, v := range score {
		if v > best {
			best = v
		}
	}
	var out []string
	for name, v := range score {
		if v == best {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
