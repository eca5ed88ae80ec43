package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/seednode-labs/quickdraw/internal/phrase"
	"github.com/seednode-labs/quickdraw/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGame(t *testing.T, creator *User) *Game {
	t.Helper()
	return NewGame(GameOptions{
		ID:           "TESTGAME",
		Creator:      creator,
		Difficulty:   phrase.Medium,
		GameLength:   5,
		MinPlayers:   2,
		Durations:    []int{30},
		WinnerScores: DefaultWinnerScores(),
		Rand:         rand.New(rand.NewSource(1)),
	})
}

func newTestSource(t *testing.T) *phrase.Source {
	t.Helper()
	s, err := phrase.NewSourceFromDictionaries(map[phrase.Difficulty][]string{
		phrase.Easy:   {"cat"},
		phrase.Medium: {"elephant", "giraffe"},
		phrase.Hard:   {"quokka"},
	})
	require.NoError(t, err)
	return s
}

func TestJoinIsIdempotent(t *testing.T) {
	creator, _ := newTestUser("alice")
	g := newTestGame(t, creator)

	assert.True(t, g.Join(creator))
	assert.False(t, g.Join(creator))
	assert.Equal(t, 1, g.MemberCount())
}

func TestLeaveIsIdempotent(t *testing.T) {
	creator, _ := newTestUser("alice")
	g := newTestGame(t, creator)
	g.Join(creator)

	assert.True(t, g.Leave(creator))
	assert.False(t, g.Leave(creator))
	assert.Equal(t, 0, g.MemberCount())
}

func TestScoreZeroFillsEveryMember(t *testing.T) {
	creator, _ := newTestUser("alice")
	bob, _ := newTestUser("bob")
	g := newTestGame(t, creator)
	g.Join(creator)
	g.Join(bob)

	score := g.Score()
	assert.Equal(t, 0, score["alice"])
	assert.Equal(t, 0, score["bob"])
}

func TestScoreCreditsTurnWinnerByDifficulty(t *testing.T) {
	creator, _ := newTestUser("alice")
	bob, _ := newTestUser("bob")
	g := newTestGame(t, creator)
	g.Join(creator)
	g.Join(bob)

	source := newTestSource(t)
	turn, exc := g.PlayTurn(source)
	require.Nil(t, exc)

	_, ok := g.RegisterWin("bob")
	require.True(t, ok)

	score := g.Score()
	assert.Equal(t, DefaultWinnerScores()[turn.Level], score["bob"])
	assert.Equal(t, 0, score["alice"])
}

func TestBroadcastRecordsHistoryExactlyOnce(t *testing.T) {
	creator, creatorSink := newTestUser("alice")
	bob, bobSink := newTestUser("bob")
	g := newTestGame(t, creator)
	g.Join(creator)
	g.Join(bob)

	msg := &protocol.Message{
		Topic:    protocol.Topic{Type: protocol.TopicChat, Operation: protocol.OpSay},
		Username: "alice",
		GameID:   protocol.StringPtr(g.ID()),
		Value:    protocol.ChatMessage{Sender: "alice", Message: "hello"},
	}
	g.Broadcast(msg, nil)

	assert.Len(t, g.History(), 1)
	assert.Len(t, creatorSink.Received(), 1)
	assert.Len(t, bobSink.Received(), 1)
}

func TestBroadcastExcludesNamedMembers(t *testing.T) {
	creator, creatorSink := newTestUser("alice")
	bob, bobSink := newTestUser("bob")
	g := newTestGame(t, creator)
	g.Join(creator)
	g.Join(bob)

	msg := &protocol.Message{
		Topic:    protocol.Topic{Type: protocol.TopicDraw, Operation: protocol.OpLine},
		Username: "alice",
		GameID:   protocol.StringPtr(g.ID()),
	}
	g.Broadcast(msg, map[string]bool{"bob": true})

	assert.Len(t, creatorSink.Received(), 1)
	assert.Len(t, bobSink.Received(), 0)
}

func TestBroadcastDoesNotRecordGameOrTrickTopics(t *testing.T) {
	creator, _ := newTestUser("alice")
	g := newTestGame(t, creator)
	g.Join(creator)

	msg := &protocol.Message{
		Topic:    protocol.Topic{Type: protocol.TopicGame, Operation: protocol.OpTurn},
		Username: "alice",
		GameID:   protocol.StringPtr(g.ID()),
	}
	g.Broadcast(msg, nil)

	assert.Len(t, g.History(), 0)
}

// TestPlayTurnDefaultMinPlayersBoundary pins the literal spec.md boundary
// (2 players fails, 3 succeeds) under the zero-value MinPlayers default of
// 3, rather than the MinPlayers:2 fixture every other test in this file
// opts into via newTestGame.
func TestPlayTurnDefaultMinPlayersBoundary(t *testing.T) {
	creator, _ := newTestUser("alice")
	g := NewGame(GameOptions{
		ID:         "TESTGAME-DEFAULT",
		Creator:    creator,
		Difficulty: phrase.Medium,
		GameLength: 5,
		Durations:  []int{30},
		Rand:       rand.New(rand.NewSource(1)),
	})
	bob, _ := newTestUser("bob")
	g.Join(creator)
	g.Join(bob)

	source := newTestSource(t)
	_, exc := g.PlayTurn(source)
	require.NotNil(t, exc)
	assert.Equal(t, "NotEnoughPlayers", exc.Exception(), "exactly 2 players must fail under the default MinPlayers=3")

	carol, _ := newTestUser("carol")
	g.Join(carol)

	_, exc = g.PlayTurn(source)
	assert.Nil(t, exc, "exactly 3 players must succeed under the default MinPlayers=3")
}

func TestPlayTurnFailsWithFewerThanMinPlayers(t *testing.T) {
	creator, _ := newTestUser("alice")
	g := newTestGame(t, creator)
	g.Join(creator)

	_, exc := g.PlayTurn(newTestSource(t))
	require.NotNil(t, exc)
	assert.Equal(t, "NotEnoughPlayers", exc.Exception())
}

func TestPlayTurnEndsGameAfterConfiguredLength(t *testing.T) {
	creator, _ := newTestUser("alice")
	bob, _ := newTestUser("bob")
	g := newTestGame(t, creator)
	g.Join(creator)
	g.Join(bob)

	source := newTestSource(t)
	for i := 0; i < g.GameLength(); i++ {
		_, exc := g.PlayTurn(source)
		require.Nil(t, exc, "turn %d should succeed", i+1)
	}

	_, exc := g.PlayTurn(source)
	require.NotNil(t, exc)
	assert.Equal(t, "GameEnded", exc.Exception())
}

func TestPlayTurnAvoidsRepeatingDrawerWithMultipleMembers(t *testing.T) {
	creator, _ := newTestUser("alice")
	bob, _ := newTestUser("bob")
	g := newTestGame(t, creator)
	g.Join(creator)
	g.Join(bob)

	source := newTestSource(t)
	turn1, exc := g.PlayTurn(source)
	require.Nil(t, exc)

	turn2, exc := g.PlayTurn(source)
	require.Nil(t, exc)

	assert.NotEqual(t, turn1.Drawer, turn2.Drawer)
}

func TestPlayTurnAvoidsRepeatingPhrase(t *testing.T) {
	creator, _ := newTestUser("alice")
	bob, _ := newTestUser("bob")
	g := newTestGame(t, creator)
	g.Join(creator)
	g.Join(bob)

	source := newTestSource(t)
	turn1, exc := g.PlayTurn(source)
	require.Nil(t, exc)

	turn2, exc := g.PlayTurn(source)
	require.Nil(t, exc)

	assert.NotEqual(t, turn1.Phrase, turn2.Phrase)
}

func TestRegisterWinOnlyOncePerTurn(t *testing.T) {
	creator, _ := newTestUser("alice")
	bob, _ := newTestUser("bob")
	g := newTestGame(t, creator)
	g.Join(creator)
	g.Join(bob)

	_, exc := g.PlayTurn(newTestSource(t))
	require.Nil(t, exc)

	_, ok := g.RegisterWin("bob")
	assert.True(t, ok)

	_, ok = g.RegisterWin("alice")
	assert.False(t, ok, "a turn may only be won once")
}

func TestRegisterWinCancelsScheduledTasks(t *testing.T) {
	creator, _ := newTestUser("alice")
	bob, _ := newTestUser("bob")
	g := newTestGame(t, creator)
	g.Join(creator)
	g.Join(bob)

	_, exc := g.PlayTurn(newTestSource(t))
	require.Nil(t, exc)

	fired := make(chan struct{}, 1)
	g.ScheduleNextTurn(10*time.Millisecond, func() { fired <- struct{}{} })

	_, ok := g.RegisterWin("bob")
	require.True(t, ok)

	select {
	case <-fired:
		t.Fatal("scheduled next-turn callback fired after RegisterWin cancelled it")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestReplayHistorySendsInArrivalOrder(t *testing.T) {
	creator, _ := newTestUser("alice")
	g := newTestGame(t, creator)
	g.Join(creator)

	for _, text := range []string{"first", "second", "third"} {
		msg := &protocol.Message{
			Topic:    protocol.Topic{Type: protocol.TopicChat, Operation: protocol.OpSay},
			Username: "alice",
			GameID:   protocol.StringPtr(g.ID()),
			Value:    protocol.ChatMessage{Sender: "alice", Message: text},
		}
		g.Broadcast(msg, nil)
	}

	newMember, newSink := newTestUser("bob")
	require.NoError(t, g.ReplayHistory(newMember))

	received := newSink.Received()
	require.Len(t, received, 3)
	for i, text := range []string{"first", "second", "third"} {
		chat, ok := received[i].Value.(protocol.ChatMessage)
		require.True(t, ok)
		assert.Equal(t, text, chat.Message)
	}
}

func TestScheduleTrickCancelledByNextPlayTurn(t *testing.T) {
	creator, _ := newTestUser("alice")
	bob, _ := newTestUser("bob")
	g := newTestGame(t, creator)
	g.Join(creator)
	g.Join(bob)

	source := newTestSource(t)
	_, exc := g.PlayTurn(source)
	require.Nil(t, exc)

	fired := make(chan struct{}, 1)
	g.ScheduleTrick(10*time.Millisecond, func() { fired <- struct{}{} })

	_, exc = g.PlayTurn(source)
	require.Nil(t, exc)

	select {
	case <-fired:
		t.Fatal("trick callback fired after a new turn cancelled it")
	case <-time.After(30 * time.Millisecond):
	}
}
