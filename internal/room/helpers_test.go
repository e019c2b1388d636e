package room

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/romashorodok/watch-together/pkg/metrics"
	"github.com/stretchr/testify/require"
)

const (
	recvTimeout   = time.Second
	silenceWindow = 50 * time.Millisecond
)

var fixedNow = time.UnixMilli(1_700_000_000_000)

type fakeTransport struct {
	frames chan []byte

	mu         sync.Mutex
	closed     bool
	writeErr   error
	block      chan struct{}
	closeBlock chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{frames: make(chan []byte, 256)}
}

func (t *fakeTransport) Write(data []byte) error {
	t.mu.Lock()
	err, block := t.writeErr, t.block
	t.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return err
	}
	t.frames <- data
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	block := t.closeBlock
	t.mu.Unlock()
	if block != nil {
		<-block
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

var errBrokenPipe = errors.New("broken pipe")

type client struct {
	t         *testing.T
	transport *fakeTransport
	peer      *Peer
	session   *Session
}

func (c *client) send(frame string) error {
	return c.session.Handle([]byte(frame))
}

func (c *client) recv() map[string]any {
	c.t.Helper()
	select {
	case data := <-c.transport.frames:
		var msg map[string]any
		require.NoError(c.t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(recvTimeout):
		c.t.Fatalf("peer %s: no frame within %s", c.peer.Name(), recvTimeout)
		return nil
	}
}

func (c *client) recvType(kind string) map[string]any {
	c.t.Helper()
	msg := c.recv()
	require.Equal(c.t, kind, msg["type"], "unexpected frame %v", msg)
	return msg
}

func (c *client) expectSilence() {
	c.t.Helper()
	select {
	case data := <-c.transport.frames:
		c.t.Fatalf("peer %s: unexpected frame %s", c.peer.Name(), data)
	case <-time.After(silenceWindow):
	}
}

type testEnv struct {
	t        *testing.T
	service  *RoomService
	registry *Registry
	metrics  *metrics.Metrics
}

func newTestEnv(t *testing.T, opts ...RegistryOption) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())

	registry := NewRegistry(opts...)
	m.RoomCount(registry.Len)

	service := NewRoomService(NewRoomServiceParams{
		Registry: registry,
		Broadcaster: NewBroadcaster(NewBroadcasterParams{
			Logger:  logger,
			Metrics: m,
		}),
		Logger:  logger,
		Metrics: m,
		Now:     func() time.Time { return fixedNow },
	})
	return &testEnv{t: t, service: service, registry: registry, metrics: m}
}

func fixedCode(code string) RegistryOption {
	return WithCodeGenerator(func() (string, error) { return code, nil })
}

func sequenceCodes(codes ...string) RegistryOption {
	var mu sync.Mutex
	i := 0
	return WithCodeGenerator(func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i%len(codes)]
		i++
		return code, nil
	})
}

func (e *testEnv) connect() *client {
	transport := newFakeTransport()
	peer := e.service.NewPeer(transport)
	c := &client{
		t:         e.t,
		transport: transport,
		peer:      peer,
		session:   e.service.NewSession(peer),
	}
	e.t.Cleanup(func() { _ = peer.Close() })
	return c
}

// leaders counts members flagged as leader.
func leaders(r *Room) int {
	n := 0
	for _, m := range r.Members() {
		if m.IsLeader() {
			n++
		}
	}
	return n
}
