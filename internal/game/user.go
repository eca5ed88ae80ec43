package game

import (
	"sync"
	"time"

	"github.com/seednode-labs/quickdraw/internal/protocol"
)

// Sink is the transport a User writes frames to. It abstracts over
// *websocket.Conn so this package never imports gorilla/websocket; the
// webserver package supplies the concrete implementation.
type Sink interface {
	WriteMessage(msg *protocol.Message) error
}

// User represents one live connection. Identity is its Name, unique among
// live connections for the lifetime of the process (enforced by Registry,
// not by User itself). Writes to a single User are serialized by mu, per
// spec.md section 4.2's single-writer ordering guarantee.
type User struct {
	Name string

	mu         sync.Mutex
	sink       Sink
	ownedGames []string
	lastActive time.Time
}

// NewUser wraps sink as a live User named name.
func NewUser(name string, sink Sink) *User {
	return &User{
		Name:       name,
		sink:       sink,
		lastActive: time.Now(),
	}
}

// Send serializes and writes msg to the user's transport. Ordering is
// guaranteed by mu: concurrent callers (broadcasts racing a direct reply)
// are strictly ordered relative to each other for this one User.
func (u *User) Send(msg *protocol.Message) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := u.sink.WriteMessage(msg); err != nil {
		return NewTransportClosed(err.Error())
	}
	u.lastActive = time.Now()
	return nil
}

// LastActive returns the last time a message was successfully written to
// this user or Touch recorded inbound traffic, for idle-connection reaping.
func (u *User) LastActive() time.Time {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastActive
}

// Touch records activity without sending a message (used on inbound
// traffic, so an idle-but-listening user isn't reaped).
func (u *User) Touch() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lastActive = time.Now()
}

// AddOwnedGame records that the user created game id.
func (u *User) AddOwnedGame(id string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ownedGames = append(u.ownedGames, id)
}

// RemoveOwnedGame forgets that the user created game id, if present.
func (u *User) RemoveOwnedGame(id string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, g := range u.ownedGames {
		if g == id {
			u.ownedGames = append(u.ownedGames[:i], u.ownedGames[i+1:]...)
			return
		}
	}
}

// OwnedGames returns a snapshot of the games this user created.
func (u *User) OwnedGames() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, len(u.ownedGames))
	copy(out, u.ownedGames)
	return out
}

// CloseSink closes the underlying transport if it supports closing,
// for the idle-connection reaper. A Sink that doesn't implement Close is
// left alone; its next failed write will surface as TransportClosed.
func (u *User) CloseSink() {
	u.mu.Lock()
	sink := u.sink
	u.mu.Unlock()

	if closer, ok := sink.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
