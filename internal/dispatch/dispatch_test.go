package dispatch

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/seednode-labs/quickdraw/internal/game"
	"github.com/seednode-labs/quickdraw/internal/phrase"
	"github.com/seednode-labs/quickdraw/internal/protocol"
	"github.com/stretchr/testify/require"
)

// recordingSink is a fake game.Sink that records every message it
// receives, so tests can assert on what was sent without a real
// websocket connection.
type recordingSink struct {
	mu       sync.Mutex
	messages []*protocol.Message
}

func (s *recordingSink) WriteMessage(msg *protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *recordingSink) Received() []*protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*protocol.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func newTestUser(name string) (*game.User, *recordingSink) {
	sink := &recordingSink{}
	return game.NewUser(name, sink), sink
}

func newTestSource(t *testing.T) *phrase.Source {
	t.Helper()
	s, err := phrase.NewSourceFromDictionaries(map[phrase.Difficulty][]string{
		phrase.Easy:   {"cat"},
		phrase.Medium: {"the elephant"},
		phrase.Hard:   {"quokka"},
	})
	require.NoError(t, err)
	return s
}

func newTestRegistry(t *testing.T) *game.Registry {
	t.Helper()
	return game.NewRegistry(game.RegistryOptions{
		MinPlayers:    2,
		Durations:     []int{30},
		GameLengthMin: 5,
		GameLengthMax: 5,
		PhraseSource:  newTestSource(t),
	})
}

func newTestHandlers(t *testing.T) (*game.Registry, *ErrorRouter, *GameHandler, *DrawHandler, *ChatHandler) {
	t.Helper()
	registry := newTestRegistry(t)
	errorRouter := NewErrorRouter(registry)
	trick := game.NewTrickGenerator(rand.New(rand.NewSource(1)))
	gameHandler := NewGameHandler(registry, trick, errorRouter, 2)
	drawHandler := NewDrawHandler(registry)
	chatHandler := NewChatHandler(registry, gameHandler, 0)
	return registry, errorRouter, gameHandler, drawHandler, chatHandler
}

// newTestHandlersDefaultMinPlayers mirrors newTestHandlers but leaves
// MinPlayers/minPlayers at their zero value on both the registry and the
// GameHandler, so tests built on it exercise the documented default of 3
// rather than the MinPlayers:2 fixture every other dispatch test opts into.
func newTestHandlersDefaultMinPlayers(t *testing.T) (*game.Registry, *ErrorRouter, *GameHandler, *DrawHandler, *ChatHandler) {
	t.Helper()
	registry := game.NewRegistry(game.RegistryOptions{
		Durations:     []int{30},
		GameLengthMin: 5,
		GameLengthMax: 5,
		PhraseSource:  newTestSource(t),
	})
	errorRouter := NewErrorRouter(registry)
	trick := game.NewTrickGenerator(rand.New(rand.NewSource(1)))
	gameHandler := NewGameHandler(registry, trick, errorRouter, 0)
	drawHandler := NewDrawHandler(registry)
	chatHandler := NewChatHandler(registry, gameHandler, 0)
	return registry, errorRouter, gameHandler, drawHandler, chatHandler
}

func createAndJoin(t *testing.T, registry *game.Registry, gameHandler *GameHandler, creator *game.User, members ...*game.User) *game.Game {
	t.Helper()
	require.Nil(t, registry.Connect(creator))

	createMsg := &protocol.Message{
		Topic:    protocol.Topic{Type: protocol.TopicGame, Operation: protocol.OpCreate},
		Username: creator.Name,
		GameID:   protocol.StringPtr("ROOM01"),
	}
	require.NoError(t, gameHandler.Create(creator, createMsg))

	g, exc := registry.GetGame("ROOM01")
	require.Nil(t, exc)

	for _, m := range members {
		require.Nil(t, registry.Connect(m))
		joinMsg := &protocol.Message{
			Topic:    protocol.Topic{Type: protocol.TopicGame, Operation: protocol.OpJoin},
			Username: m.Name,
			GameID:   protocol.StringPtr("ROOM01"),
		}
		require.NoError(t, gameHandler.Join(m, joinMsg))
	}

	return g
}
