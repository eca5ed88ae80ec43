package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/seednode-labs/quickdraw/internal/phrase"
	"github.com/seednode-labs/quickdraw/internal/protocol"
)

// GameOptions configures a Game at creation. MinPlayers, Durations,
// WinnerScores and Rand are the injectable knobs spec.md section 9 asks
// for, so tests can pin otherwise-random choices.
type GameOptions struct {
	ID           string
	Creator      *User
	Difficulty   phrase.Difficulty
	GameLength   int
	MinPlayers   int
	Durations    []int
	WinnerScores WinnerScore
	Rand         *rand.Rand
}

// Game is the per-room state machine described in spec.md section 3. All
// mutation goes through mu, matching spec.md section 9's "wrap each Game
// behind ... a per-game mutex" redesign note; scheduled tasks are
// invalidated via a generation counter rather than relying solely on
// timer.Stop(), since a fire can race a Stop call.
type Game struct {
	id      string
	creator *User

	minPlayers   int
	durations    []int
	winnerScores WinnerScore
	rng          *rand.Rand

	mu            sync.Mutex
	members       []*User
	history       []*protocol.Message
	turns         []*Turn
	active        bool
	difficulty    phrase.Difficulty
	gameLength    int
	currentTurnNo int
	lastDrawer    string
	lastPhrase    string
	lastActive    time.Time

	generation        int
	scheduledNextTurn *time.Timer
	scheduledTrick    *time.Timer
}

// NewGame constructs a Game in the LOBBY state (active=false, no turns
// played). The creator is not auto-joined here; GameHandler.Create does
// that explicitly, matching codejam's create_game controller.
func NewGame(opts GameOptions) *Game {
	minPlayers := opts.MinPlayers
	if minPlayers <= 0 {
		minPlayers = 3
	}
	durations := opts.Durations
	if len(durations) == 0 {
		durations = AllowedDurations
	}
	scores := opts.WinnerScores
	if scores == nil {
		scores = DefaultWinnerScores()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	return &Game{
		id:           opts.ID,
		creator:      opts.Creator,
		minPlayers:   minPlayers,
		durations:    durations,
		winnerScores: scores,
		rng:          rng,
		difficulty:   opts.Difficulty,
		gameLength:   opts.GameLength,
		lastActive:   time.Now(),
	}
}

func (g *Game) ID() string             { return g.id }
func (g *Game) Creator() *User         { return g.creator }
func (g *Game) Difficulty() phrase.Difficulty {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.difficulty
}
func (g *Game) GameLength() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gameLength
}

// Active reports whether the game is currently RUNNING.
func (g *Game) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// SetActive transitions between LOBBY and RUNNING. Callers hold no other
// lock; this takes Game's own lock internally.
func (g *Game) SetActive(active bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = active
}

// CurrentTurnNo returns the 1-based turn number, 0 before the game starts.
func (g *Game) CurrentTurnNo() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentTurnNo
}

// CurrentTurn returns the most recent turn, or nil if none has been
// played yet.
func (g *Game) CurrentTurn() *Turn {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentTurnLocked()
}

func (g *Game) currentTurnLocked() *Turn {
	if len(g.turns) == 0 {
		return nil
	}
	return g.turns[len(g.turns)-1]
}

// Members returns the current member usernames in insertion order.
func (g *Game) Members() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.members))
	for i, u := range g.members {
		out[i] = u.Name
	}
	return out
}

// MemberUsers returns a snapshot of the current member *User values in
// insertion order.
func (g *Game) MemberUsers() []*User {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*User, len(g.members))
	copy(out, g.members)
	return out
}

// MemberCount returns the number of current members.
func (g *Game) MemberCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members)
}

// IsMember reports whether name is currently a member.
func (g *Game) IsMember(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, u := range g.members {
		if u.Name == name {
			return true
		}
	}
	return false
}

// Join appends new to the member list if not already present. Idempotent,
// per spec.md section 4.3's JOIN contract.
func (g *Game) Join(new *User) (added bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastActive = time.Now()

	for _, u := range g.members {
		if u.Name == new.Name {
			return false
		}
	}
	g.members = append(g.members, new)
	return true
}

// Leave removes member from the member list if present. Idempotent.
func (g *Game) Leave(member *User) (removed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastActive = time.Now()

	for i, u := range g.members {
		if u.Name == member.Name {
			g.members = append(g.members[:i], g.members[i+1:]...)
			return true
		}
	}
	return false
}

// Score returns the per-player score map: every current member, seeded at
// zero, plus each turn's winner scored according to its level. Grounded
// on codejam's models/game.py Game.score property.
func (g *Game) Score() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()

	score := make(map[string]int, len(g.members))
	for _, u := range g.members {
		score[u.Name] = 0
	}
	for _, t := range g.turns {
		if t.Winner != "" {
			score[t.Winner] += g.winnerScores[t.Level]
		}
	}
	return score
}

// History returns a snapshot of the DRAW/CHAT messages recorded since the
// game's creation, in arrival order.
func (g *Game) History() []*protocol.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*protocol.Message, len(g.history))
	copy(out, g.history)
	return out
}

// Broadcast delivers msg to every current member except those named in
// exclude, in the game's current member order. DRAW and CHAT messages are
// appended to history before delivery, so the invariant "every broadcast
// DRAW/CHAT message appears in history exactly once, in arrival order"
// holds regardless of delivery outcome to any one member.
func (g *Game) Broadcast(msg *protocol.Message, exclude map[string]bool) []error {
	g.mu.Lock()
	g.lastActive = time.Now()
	if msg.Topic.Type == protocol.TopicDraw || msg.Topic.Type == protocol.TopicChat {
		g.history = append(g.history, msg)
	}
	recipients := make([]*User, 0, len(g.members))
	for _, u := range g.members {
		if exclude != nil && exclude[u.Name] {
			continue
		}
		recipients = append(recipients, u)
	}
	g.mu.Unlock()

	var errs []error
	for _, u := range recipients {
		if err := u.Send(msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// ReplayHistory sends the game's full DRAW/CHAT history to newMember only,
// in arrival order, per spec.md section 4.8's JOIN contract.
func (g *Game) ReplayHistory(newMember *User) error {
	for _, msg := range g.History() {
		if err := newMember.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

// LastActive reports the last time this game saw member or state activity,
// for idle-game reaping.
func (g *Game) LastActive() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastActive
}

// PlayTurn advances the game to its next turn: it validates the minimum
// player count, picks a drawer that differs from the last turn's drawer
// when possible, picks a duration, picks a phrase that differs from the
// last turn's phrase when the dictionary offers another one, and appends
// the new Turn. It also cancels any
// trick still scheduled for the prior turn, per spec.md section 4.9's
// cancellation rule. Returns NotEnoughPlayers or GameEnded (both
// Exception values) as explicit return variants, per spec.md section 9.
func (g *Game) PlayTurn(source *phrase.Source) (*Turn, Exception) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.members) < g.minPlayers {
		return nil, NewNotEnoughPlayers(fmt.Sprintf("the game needs at least %d players", g.minPlayers))
	}

	g.cancelScheduledTrickLocked()

	nextTurnNo := g.currentTurnNo + 1
	if nextTurnNo > g.gameLength {
		return nil, NewGameEnded("the game has reached its configured length")
	}
	g.currentTurnNo = nextTurnNo

	drawer := g.pickDrawerLocked()
	duration := g.durations[g.rng.Intn(len(g.durations))]
	phraseText := g.pickPhraseLocked(source)

	turn := &Turn{
		TurnNo:   nextTurnNo,
		Level:    g.difficulty,
		Drawer:   drawer,
		Duration: duration,
		Phrase:   phraseText,
	}
	g.turns = append(g.turns, turn)
	g.lastDrawer = drawer
	g.lastPhrase = phraseText
	g.lastActive = time.Now()

	return turn, nil
}

func (g *Game) pickDrawerLocked() string {
	if len(g.members) == 1 {
		return g.members[0].Name
	}
	for {
		candidate := g.members[g.rng.Intn(len(g.members))].Name
		if candidate != g.lastDrawer {
			return candidate
		}
	}
}

func (g *Game) pickPhraseLocked(source *phrase.Source) string {
	// Bounded, so a dictionary holding only the last phrase cannot hang here.
	const maxRedraws = 100
	candidate := source.Phrase(g.difficulty)
	for i := 0; candidate == g.lastPhrase && i < maxRedraws; i++ {
		candidate = source.Phrase(g.difficulty)
	}
	return candidate
}

// RegisterWin marks the current turn as won by winner, if and only if the
// current turn exists and has no winner yet. It atomically cancels both
// scheduled tasks, satisfying spec.md section 8's "at most one GAME.WIN
// per Turn" and "cancelling a Turn cancels both scheduled tasks before
// advancing" invariants. Returns the won Turn and true on success.
func (g *Game) RegisterWin(winner string) (*Turn, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	turn := g.currentTurnLocked()
	if turn == nil || turn.Winner != "" {
		return nil, false
	}
	turn.Winner = winner
	g.cancelScheduledTasksLocked()
	return turn, true
}

// CancelScheduledTasks cancels both the next-turn timer and the trick
// timer, idempotently.
func (g *Game) CancelScheduledTasks() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelScheduledTasksLocked()
}

func (g *Game) cancelScheduledTasksLocked() {
	g.generation++
	if g.scheduledNextTurn != nil {
		g.scheduledNextTurn.Stop()
		g.scheduledNextTurn = nil
	}
	g.cancelScheduledTrickLocked()
}

func (g *Game) cancelScheduledTrickLocked() {
	if g.scheduledTrick != nil {
		g.scheduledTrick.Stop()
		g.scheduledTrick = nil
	}
}

// ScheduleNextTurn arranges for fn to run after d, unless the schedule is
// cancelled (via CancelScheduledTasks, RegisterWin, or a later
// ScheduleNextTurn call) before it fires. fn runs on its own goroutine, outside Game's mutex.
func (g *Game) ScheduleNextTurn(d time.Duration, fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.scheduledNextTurn != nil {
		g.scheduledNextTurn.Stop()
	}
	gen := g.generation
	g.scheduledNextTurn = time.AfterFunc(d, func() {
		if g.generationStillValid(gen) {
			fn()
		}
	})
}

// ScheduleTrick arranges for fn to run after d, unless cancelled first.
func (g *Game) ScheduleTrick(d time.Duration, fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cancelScheduledTrickLocked()
	gen := g.generation
	g.scheduledTrick = time.AfterFunc(d, func() {
		if g.generationStillValid(gen) {
			fn()
		}
	})
}

func (g *Game) generationStillValid(gen int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return gen == g.generation
}
