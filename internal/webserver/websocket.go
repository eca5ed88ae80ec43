package webserver

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/seednode-labs/quickdraw/internal/config"
	"github.com/seednode-labs/quickdraw/internal/dispatch"
	"github.com/seednode-labs/quickdraw/internal/game"
	"github.com/seednode-labs/quickdraw/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsSink adapts a *websocket.Conn to game.Sink.
type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) WriteMessage(msg *protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Close lets game.User.CloseSink reap an idle connection.
func (s *wsSink) Close() error {
	return s.conn.Close()
}

// wsFrameSource adapts a *websocket.Conn to dispatch.FrameSource, skipping
// any non-text frames (ping/pong/binary) rather than treating them as
// protocol input.
type wsFrameSource struct {
	conn *websocket.Conn
}

func (s *wsFrameSource) ReadFrame() ([]byte, error) {
	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt != websocket.TextMessage {
			continue
		}
		return data, nil
	}
}

// serveWS upgrades the connection at /ws/:username, registers the user,
// and runs the dispatcher loop until the connection closes. Grounded on
// codejam's application.py websocket_endpoint and the teacher's own
// serveWSForManager.
func serveWS(cfg *config.Config, registry *game.Registry, d *dispatch.Dispatcher) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		username := ps.ByName("username")
		if username == "" {
			http.Error(w, "missing username", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "WS: upgrade error from %s: %v", connectionAddr(r), err)
			return
		}

		sink := &wsSink{conn: conn}
		user := game.NewUser(username, sink)

		if exc := registry.Connect(user); exc != nil {
			rejectHandshake(conn, username, exc)
			_ = conn.Close()
			return
		}

		logf(cfg, "WS: %s connected from %s", username, connectionAddr(r))
		d.Run(user, &wsFrameSource{conn: conn})
		logf(cfg, "WS: %s disconnected", username)
	}
}

// rejectHandshake sends a single ERROR envelope directly to a connection
// that never made it into the registry, so it still learns why.
func rejectHandshake(conn *websocket.Conn, username string, exc game.Exception) {
	msg := &protocol.Message{
		Topic:    protocol.Topic{Type: protocol.TopicError, Operation: protocol.OpBroadcast},
		Username: username,
		Value: protocol.ErrorMessage{
			Exception: exc.Exception(),
			Value:     exc.Error(),
			ErrorID:   uuid.NewString(),
		},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}
