package janode

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"

	"github.com/meetecho/janode-sub000/internal/log"
)

// fakeLink is an in-memory link, letting transport tests drive
// open/send/close/failure without a real socket.
type fakeLink struct {
	mu       sync.Mutex
	inbound  chan frame
	writes   chan frame
	closed   bool
	writeErr error
}

func newFakeLink() *fakeLink {
	return &fakeLink{inbound: make(chan frame, 16), writes: make(chan frame, 16)}
}

func (f *fakeLink) push(fr frame) { f.inbound <- fr }

func (f *fakeLink) readFrame(ctx context.Context) (frame, error) {
	select {
	case fr, ok := <-f.inbound:
		if !ok {
			return nil, errors.New("link closed")
		}
		return fr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeLink) writeFrame(ctx context.Context, fr frame) error {
	f.mu.Lock()
	err := f.writeErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.writes <- fr
	return nil
}

func (f *fakeLink) keepAlive(ctx context.Context) error { return nil }

func (f *fakeLink) close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.inbound)
	return nil
}

type TransportSuite struct {
	suite.Suite
}

func TestTransportSuite(t *testing.T) {
	suite.Run(t, new(TransportSuite))
}

func (s *TransportSuite) newTransport(dialResults []error) (*transport, *[]*fakeLink, clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	links := &[]*fakeLink{}
	attempt := 0
	d := func(ctx context.Context, connID string, ep Endpoint, cfg Configuration) (link, error) {
		defer func() { attempt++ }()
		if attempt < len(dialResults) && dialResults[attempt] != nil {
			return nil, dialResults[attempt]
		}
		l := newFakeLink()
		*links = append(*links, l)
		return l, nil
	}

	cfg := Configuration{
		Endpoints:     []Endpoint{{URL: "ws://a"}, {URL: "ws://b"}},
		RetryTimeSecs: 1,
		MaxRetries:    5,
	}.withDefaults()

	tr := newTransport("conn-1", cfg, d, false, clock, log.NewNop())
	return tr, links, clock
}

func (s *TransportSuite) TestOpenSucceedsOnFirstAttempt() {
	tr, links, _ := s.newTransport(nil)
	s.Require().NoError(tr.Open(context.Background()))
	s.Equal(transportOpen, tr.State())
	s.Len(*links, 1)
}

func (s *TransportSuite) TestOpenDeliversInboundFrames() {
	tr, links, _ := s.newTransport(nil)
	s.Require().NoError(tr.Open(context.Background()))

	received := make(chan frame, 1)
	tr.OnMessage(func(f frame) { received <- f })
	(*links)[0].push(frame{"janus": "ack"})

	select {
	case f := <-received:
		s.Equal("ack", f["janus"])
	case <-time.After(time.Second):
		s.Fail("message not delivered")
	}
}

// TestAttemptLimitExceeded is property P3: after max_retries failed
// attempts, Open fails with ErrAttemptLimitExceeded.
func (s *TransportSuite) TestAttemptLimitExceeded() {
	// One failing dial per allowed attempt: newTransport sets MaxRetries to 5.
	failures := make([]error, 5)
	for i := range failures {
		failures[i] = errors.New("dial failed")
	}
	tr, _, clock := s.newTransport(failures)

	done := make(chan error, 1)
	go func() { done <- tr.Open(context.Background()) }()

	// Every failed attempt but the last waits retry_time_secs before the next.
	for i := 0; i < len(failures)-1; i++ {
		clock.BlockUntil(1)
		clock.Advance(time.Second)
	}

	select {
	case err := <-done:
		s.Require().Error(err)
		s.ErrorIs(err, ErrAttemptLimitExceeded)
	case <-time.After(2 * time.Second):
		s.Fail("Open did not return")
	}
}

// TestSendOnClosedTransportRejects is property P5: sending on a closed
// Transport always rejects with connection_closed rather than dropping
// silently.
func (s *TransportSuite) TestSendOnClosedTransportRejects() {
	tr, _, _ := s.newTransport(nil)
	err := tr.Send(context.Background(), frame{"janus": "info"})
	s.Require().Error(err)
	s.ErrorIs(err, ErrConnectionClosed)
}

func (s *TransportSuite) TestCloseFiresOnClosedOnce() {
	tr, _, _ := s.newTransport(nil)
	s.Require().NoError(tr.Open(context.Background()))

	calls := 0
	var mu sync.Mutex
	tr.OnClosed(func(error) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	s.Require().NoError(tr.Close())
	<-tr.done

	mu.Lock()
	defer mu.Unlock()
	s.Equal(1, calls)
}
