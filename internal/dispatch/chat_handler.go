package dispatch

import (
	"strings"
	"time"

	"github.com/seednode-labs/quickdraw/internal/game"
	"github.com/seednode-labs/quickdraw/internal/protocol"
)

// censoredPlaceholder replaces any phrase token the drawer types in chat.
const censoredPlaceholder = "<CENSORED>"

// ChatHandler implements CHAT/SAY: drawer messages are censored, every
// other member's message is checked against the current phrase, and a
// correct guess wins the turn. Grounded on codejam's
// controllers/chat_controller.py.
type ChatHandler struct {
	registry     *game.Registry
	gameHandler  *GameHandler
	postWinPause time.Duration
}

// NewChatHandler constructs a ChatHandler. postWinPause is the fixed pause
// between a winning guess and the next turn (spec.md section 4.7's "waits
// a fixed 5 seconds").
func NewChatHandler(registry *game.Registry, gameHandler *GameHandler, postWinPause time.Duration) *ChatHandler {
	if postWinPause <= 0 {
		postWinPause = 5 * time.Second
	}
	return &ChatHandler{registry: registry, gameHandler: gameHandler, postWinPause: postWinPause}
}

// Say handles a single CHAT/SAY message: censor if the sender is the
// current drawer, check for a winning guess otherwise, then always
// broadcast the (possibly censored) chat message to the room.
func (h *ChatHandler) Say(sender *game.User, msg *protocol.Message) error {
	gameID := msg.GameIDOrEmpty()
	if gameID == "" {
		return game.NewGameNotStarted("you must join or create a game before chatting")
	}
	g, exc := h.registry.GetGame(gameID)
	if exc != nil {
		return exc
	}
	chat, ok := msg.Value.(protocol.ChatMessage)
	if !ok {
		return &protocol.ValidationError{Reason: "CHAT/SAY requires a ChatMessage value"}
	}

	turn := g.CurrentTurn()
	displayText := chat.Message
	if turn != nil && turn.Drawer == sender.Name {
		displayText = censorPhrase(turn.Phrase, chat.Message)
	} else if turn != nil {
		h.checkWinnerAndAdvance(g, turn, sender, chat.Message)
	}

	out := &protocol.Message{
		Topic:    msg.Topic,
		Username: msg.Username,
		GameID:   msg.GameID,
		Value:    protocol.ChatMessage{Sender: sender.Name, Message: displayText},
	}
	g.Broadcast(out, nil)
	return nil
}

// checkWinnerAndAdvance registers a win if guess contains every whitespace
// token of the turn's phrase, broadcasts GAME/WIN, then blocks this
// connection's goroutine for the post-win pause before playing the next
// turn, mirroring codejam's awaited wait_till_next_turn/execute_turn chain.
// Blocking only this caller's goroutine (not the whole server) is
// equivalent to that single-coroutine await.
func (h *ChatHandler) checkWinnerAndAdvance(g *game.Game, turn *game.Turn, sender *game.User, guess string) {
	if !isWinningGuess(turn.Phrase, guess) {
		return
	}
	wonTurn, ok := g.RegisterWin(sender.Name)
	if !ok {
		return
	}

	winMsg := &protocol.Message{
		Topic:    protocol.Topic{Type: protocol.TopicGame, Operation: protocol.OpWin},
		Username: g.Creator().Name,
		GameID:   protocol.StringPtr(g.ID()),
		Value: protocol.GameMessage{
			Success: true,
			GameID:  g.ID(),
			Turn: &protocol.TurnMessage{
				TurnNo:   wonTurn.TurnNo,
				Active:   true,
				Level:    string(wonTurn.Level),
				Drawer:   wonTurn.Drawer,
				Duration: wonTurn.Duration,
				Phrase:   wonTurn.Phrase,
				Winner:   wonTurn.Winner,
				Score:    g.Score(),
			},
		},
	}
	g.Broadcast(winMsg, nil)

	time.Sleep(h.postWinPause)
	h.gameHandler.ExecuteTurn(g)
}

// censorPhrase replaces every whitespace-delimited token of message that
// case-insensitively matches a token of phrase with a fixed placeholder,
// preserving every other token verbatim; tokens are rejoined with single
// spaces. Grounded on codejam's censor_drawer.
func censorPhrase(phraseText, message string) string {
	tokens := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(phraseText)) {
		tokens[t] = true
	}

	words := strings.Fields(message)
	for i, w := range words {
		if tokens[strings.ToLower(w)] {
			words[i] = censoredPlaceholder
		}
	}
	return strings.Join(words, " ")
}

// isWinningGuess reports whether every whitespace token of phraseText
// appears, case-insensitively, somewhere among guess's whitespace tokens.
// Grounded on codejam's check_if_winning_phrase.
func isWinningGuess(phraseText, guess string) bool {
	guessTokens := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(guess)) {
		guessTokens[t] = true
	}
	for _, t := range strings.Fields(strings.ToLower(phraseText)) {
		if !guessTokens[t] {
			return false
		}
	}
	return true
}
