package relay

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
)

const emitTimeout = 5 * time.Second

// Session is one live transport connection. Emissions to a vanished
// session fail with an error; callers treat that as the session being
// offline.
type Session interface {
	// ID uniquely identifies this connection for the lifetime of the
	// process.
	ID() string

	// Emit sends one event frame to the peer.
	Emit(event string, data any) error
}

// wsSession adapts a websocket connection to the Session interface.
// Writes use a background context with a short timeout since the
// websocket library tracks its own connection state.
type wsSession struct {
	id   string
	conn *websocket.Conn
}

func newWSSession(conn *websocket.Conn) *wsSession {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return &wsSession{id: hex.EncodeToString(buf), conn: conn}
}

func (s *wsSession) ID() string {
	return s.id
}

func (s *wsSession) Emit(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, frame)
}
