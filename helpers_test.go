package janode

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/meetecho/janode-sub000/internal/log"
)

// newTestConnection builds a Connection wired to an in-memory fakeLink
// instead of a real socket, with a FakeClock so keep-alive/ping timers are
// test-controlled.
func newTestConnection(t *testing.T) (*Connection, *fakeLink, clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	l := newFakeLink()
	dial := func(ctx context.Context, connID string, ep Endpoint, cfg Configuration) (link, error) {
		return l, nil
	}

	cfg := Configuration{Endpoints: []Endpoint{{URL: "ws://test"}}}.withDefaults()
	logger := log.NewNop()

	c := &Connection{
		EventBus: *newEventBus(),
		id:       "test-conn",
		cfg:      cfg,
		tm:       newTransactionManager(logger),
		logger:   logger,
		sessions: make(map[uint64]*Session),
	}
	c.transport = newTransport(c.id, cfg, dial, false, clock, logger)
	c.transport.OnMessage(c.dispatch)
	c.transport.OnClosed(c.signalClose)

	require.NoError(t, c.open(context.Background()))
	return c, l, clock
}

// replyTo reads the next frame written by the caller and pushes back a
// reply that echoes its transaction id, merged with extra.
func replyTo(t *testing.T, link *fakeLink, extra frame) frame {
	t.Helper()
	req := <-link.writes
	reply := frame{"transaction": req["transaction"]}
	for k, v := range extra {
		reply[k] = v
	}
	link.push(reply)
	return req
}
