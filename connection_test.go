package janode

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConnectionSuite struct {
	suite.Suite
}

func TestConnectionSuite(t *testing.T) {
	suite.Run(t, new(ConnectionSuite))
}

func (s *ConnectionSuite) TestServerInfoRoundTrip() {
	conn, link, _ := newTestConnection(s.T())

	go replyTo(s.T(), link, frame{"janus": "server_info", "name": "Janus"})

	resp, err := conn.ServerInfo(context.Background())
	s.Require().NoError(err)
	s.Equal("Janus", resp["name"])
}

func (s *ConnectionSuite) TestCreateSessionBuildsSession() {
	conn, link, _ := newTestConnection(s.T())

	go replyTo(s.T(), link, frame{"janus": "success", "data": map[string]any{"id": float64(42)}})

	sess, err := conn.CreateSession(context.Background())
	s.Require().NoError(err)
	s.EqualValues(42, sess.ID())

	_, ok := conn.lookupSession(42)
	s.True(ok)
}

// TestSendRequestOnClosedConnectionRejects is property P5 at the Connection
// layer: sendRequest never silently drops on a dead connection.
func (s *ConnectionSuite) TestSendRequestOnClosedConnectionRejects() {
	conn, _, _ := newTestConnection(s.T())
	conn.closed.Store(true)

	_, err := conn.sendRequest(context.Background(), conn, frame{"janus": "info"})
	s.Require().Error(err)
	s.ErrorIs(err, ErrConnectionClosed)
}

// TestSignalCloseFailsAllPendingTransactions is property P4: destroying the
// Connection fails every outstanding future, including ones owned by a
// child Session, with a terminal error.
func (s *ConnectionSuite) TestSignalCloseFailsAllPendingTransactions() {
	conn, link, _ := newTestConnection(s.T())
	go replyTo(s.T(), link, frame{"janus": "success", "data": map[string]any{"id": float64(1)}})
	sess, err := conn.CreateSession(context.Background())
	s.Require().NoError(err)

	errCh := make(chan error, 1)
	go func() {
		_, err := sess.sendRequest(context.Background(), frame{"janus": "attach", "plugin": "janus.plugin.echotest"})
		errCh <- err
	}()
	<-link.writes // consume the attach request, never reply to it

	conn.signalClose(nil)

	select {
	case err := <-errCh:
		s.Require().Error(err)
	case <-time.After(time.Second):
		s.Fail("pending attach future never settled")
	}

	s.Equal(0, conn.tm.size())
}

func (s *ConnectionSuite) TestDispatchDropsUnroutableFrame() {
	conn, link, _ := newTestConnection(s.T())
	link.push(frame{"janus": "event", "sender": float64(999)})
	// no session/handle/transaction matches; dispatch should just drop it
	// without panicking. Give the read pump a moment to process it.
	time.Sleep(10 * time.Millisecond)
	s.Equal(0, conn.tm.size())
}
