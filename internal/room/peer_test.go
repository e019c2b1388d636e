package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeerDeliversInOrder(t *testing.T) {
	transport := newFakeTransport()
	p := NewPeer(NewPeerParams{Transport: transport, QueueSize: 16})
	defer p.Close()

	for _, frame := range []string{"1", "2", "3"} {
		require.NoError(t, p.Send([]byte(frame)))
	}
	for _, want := range []string{"1", "2", "3"} {
		select {
		case got := <-transport.frames:
			assert.Equal(t, want, string(got))
		case <-time.After(recvTimeout):
			t.Fatal("frame not delivered")
		}
	}
}

func TestPeerQueueFullDropsFrame(t *testing.T) {
	transport := newFakeTransport()
	transport.block = make(chan struct{})
	p := NewPeer(NewPeerParams{Transport: transport, QueueSize: 2})

	// One frame is held by the blocked writer, two fill the queue.
	require.NoError(t, p.Send([]byte("held")))
	require.Eventually(t, func() bool { return len(p.send) == 0 }, recvTimeout, time.Millisecond)
	require.NoError(t, p.Send([]byte("a")))
	require.NoError(t, p.Send([]byte("b")))

	assert.ErrorIs(t, p.Send([]byte("c")), ErrQueueFull)

	close(transport.block)
	require.NoError(t, p.Close())
}

func TestPeerClose(t *testing.T) {
	transport := newFakeTransport()
	p := NewPeer(NewPeerParams{Transport: transport})

	assert.True(t, p.Open())
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	assert.False(t, p.Open())
	assert.True(t, transport.isClosed())
	assert.ErrorIs(t, p.Send([]byte("late")), ErrPeerClosed)

	select {
	case <-p.Done():
	case <-time.After(recvTimeout):
		t.Fatal("writer did not exit")
	}
}

func TestPeerWriteErrorClosesTransport(t *testing.T) {
	transport := newFakeTransport()
	transport.writeErr = errBrokenPipe
	p := NewPeer(NewPeerParams{Transport: transport})

	require.NoError(t, p.Send([]byte("x")))

	select {
	case <-p.Done():
	case <-time.After(recvTimeout):
		t.Fatal("writer did not exit")
	}
	assert.False(t, p.Open())
	assert.True(t, transport.isClosed())
}
