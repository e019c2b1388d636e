package wsutils

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MaxMessageSize = 16 * 1024
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = PongWait * 9 / 10
)

// ThreadSafeWriter serializes writes on a websocket connection. Reads stay
// on the embedded Conn and must come from a single goroutine.
type ThreadSafeWriter struct {
	*websocket.Conn
	sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

// Write sends one text frame.
func (t *ThreadSafeWriter) Write(data []byte) error {
	t.Lock()
	defer t.Unlock()

	_ = t.Conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return t.Conn.WriteMessage(websocket.TextMessage, data)
}

func (t *ThreadSafeWriter) WriteJSON(val interface{}) error {
	t.Lock()
	defer t.Unlock()

	_ = t.Conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return t.Conn.WriteJSON(val)
}

func (t *ThreadSafeWriter) Ping() error {
	return t.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(WriteWait))
}

func (t *ThreadSafeWriter) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		t.Lock()
		_ = t.Conn.SetWriteDeadline(time.Now().Add(WriteWait))
		_ = t.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		t.Unlock()
		err = t.Conn.Close()
	})
	return err
}

// Closed is closed once Close has been called.
func (t *ThreadSafeWriter) Closed() <-chan struct{} { return t.closed }

// ReadMessage returns the next text frame, skipping binary ones.
func (t *ThreadSafeWriter) ReadMessage() ([]byte, error) {
	for {
		messageType, data, err := t.Conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType == websocket.TextMessage {
			return data, nil
		}
	}
}

// KeepAlive arms the pong read deadline and pings until the writer closes.
func (t *ThreadSafeWriter) KeepAlive() {
	t.Conn.SetReadLimit(MaxMessageSize)
	_ = t.Conn.SetReadDeadline(time.Now().Add(PongWait))
	t.Conn.SetPongHandler(func(string) error {
		return t.Conn.SetReadDeadline(time.Now().Add(PongWait))
	})

	go func() {
		ticker := time.NewTicker(PingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-t.closed:
				return
			case <-ticker.C:
				if err := t.Ping(); err != nil {
					return
				}
			}
		}
	}()
}

func NewThreadSafeWriter(conn *websocket.Conn) *ThreadSafeWriter {
	return &ThreadSafeWriter{
		Conn:   conn,
		closed: make(chan struct{}),
	}
}
