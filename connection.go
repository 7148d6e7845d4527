package janode

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/meetecho/janode-sub000/internal/errlib"
	"github.com/meetecho/janode-sub000/internal/log"
)

// Connection events.
const (
	EventConnectionClosed = "CONNECTION_CLOSED"
	EventConnectionError  = "CONNECTION_ERROR"
)

// Connection is one persistent link to a Janus server (WebSocket or UNIX
// datagram), owning the Transport and the TransactionManager and
// demultiplexing inbound frames to its Sessions.
type Connection struct {
	EventBus

	id        string
	cfg       Configuration
	transport *transport
	tm        *transactionManager
	logger    *log.Logger

	mu       sync.Mutex
	sessions map[uint64]*Session

	closed atomic.Bool
}

func newConnection(cfg Configuration, clock clockwork.Clock, logger *log.Logger) *Connection {
	connID := uuid.NewString()
	d, pingable := selectDialer(cfg)

	c := &Connection{
		EventBus: *newEventBus(),
		id:       connID,
		cfg:      cfg,
		tm:       newTransactionManager(logger),
		logger:   logger,
		sessions: make(map[uint64]*Session),
	}
	c.transport = newTransport(connID, cfg, d, pingable, clock, logger)
	c.transport.OnMessage(c.dispatch)
	c.transport.OnClosed(c.signalClose)
	return c
}

// open blocks until the Transport completes attemptOpen, or returns the
// attempt_limit_exceeded failure.
func (c *Connection) open(ctx context.Context) error {
	return c.transport.Open(ctx)
}

// Close gracefully tears down the Connection: closing the Transport is what
// ultimately drives signalClose via the OnClosed callback.
func (c *Connection) Close() error {
	return c.transport.Close()
}

// ServerInfo sends the connection-level {janus: "info"} request.
func (c *Connection) ServerInfo(ctx context.Context) (frame, error) {
	return c.sendRequest(ctx, c, frame{"janus": "info"})
}

// CreateSession sends {janus: "create"}, builds a Session around the
// returned id and starts its keep-alive loop.
func (c *Connection) CreateSession(ctx context.Context) (*Session, error) {
	resp, err := c.sendRequest(ctx, c, frame{"janus": "create"})
	if err != nil {
		return nil, err
	}

	data, _ := resp["data"].(map[string]any)
	id, ok := toUint64(data["id"])
	if !ok {
		return nil, errlib.New(ErrUnexpectedResponse, "create reply missing numeric data.id")
	}

	sess := newSession(id, c, c.logger.Module("session"))

	c.mu.Lock()
	c.sessions[id] = sess
	c.mu.Unlock()

	sess.startKeepalive(c.transport.clock, c.cfg.keepaliveInterval())
	return sess, nil
}

// sendRequest decorates req with a transaction id if absent, registers it
// owned by owner, writes it to the Transport, and blocks until the reply
// arrives or ctx is done.
func (c *Connection) sendRequest(ctx context.Context, owner any, req frame) (frame, error) {
	if c.closed.Load() {
		return nil, errlib.New(ErrConnectionClosed, "connection is closed")
	}

	id := decorateWithTransaction(req, c.tm)
	verb, _ := req["janus"].(string)

	type outcome struct {
		data frame
		err  error
	}
	ch := make(chan outcome, 1)

	err := c.tm.create(id, owner, verb,
		func(data frame) { ch <- outcome{data: data} },
		func(err error) { ch <- outcome{err: err} },
	)
	if err != nil {
		return nil, err
	}

	if err := c.transport.Send(ctx, req); err != nil {
		c.tm.pop(id, owner)
		return nil, err
	}

	select {
	case <-ctx.Done():
		c.tm.pop(id, owner)
		return nil, ctx.Err()
	case res := <-ch:
		return res.data, res.err
	}
}

// dispatch routes an inbound frame to the session it names, falls back to
// this Connection's own transaction table, and destroys a timed-out session
// named by a connection-level timeout notification.
func (c *Connection) dispatch(f frame) {
	if sid, ok := sessionIDOf(f); ok {
		if sess, ok := c.lookupSession(sid); ok {
			sess.dispatch(f)
			return
		}
	}

	if txID, ok := f["transaction"].(string); ok && txID != "" {
		if owner, known := c.tm.ownerOf(txID); known && owner == c {
			if verb, _ := f["janus"].(string); verb == "error" {
				c.tm.closeWithError(txID, c, janusErrorFromFrame(f))
			} else {
				c.tm.closeWithSuccess(txID, c, f)
			}
			return
		}
	}

	if verb, _ := f["janus"].(string); verb == "timeout" {
		if sid, ok := sessionIDOf(f); ok {
			if sess, ok := c.takeSession(sid); ok {
				sess.destroyLocally(errlib.New(ErrTimeout, "session timed out"))
				return
			}
		}
	}

	c.logger.Debug("dropping unroutable frame", log.Any("frame", f))
}

func (c *Connection) lookupSession(id uint64) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	return s, ok
}

func (c *Connection) takeSession(id uint64) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	if ok {
		delete(c.sessions, id)
	}
	return s, ok
}

func (c *Connection) dropSession(id uint64) {
	c.mu.Lock()
	delete(c.sessions, id)
	c.mu.Unlock()
}

// signalClose runs the top-down teardown cascade: every Session is
// destroyed locally and every Connection-owned transaction fails, with
// connection_closed for a graceful close (err == nil) or connection_error
// otherwise. Fires CONNECTION_CLOSED / CONNECTION_ERROR exactly once.
func (c *Connection) signalClose(err error) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	var terminal error
	if err == nil {
		terminal = errlib.New(ErrConnectionClosed, "connection closed")
	} else {
		terminal = errlib.Wrap(ErrConnectionError, err, "connection failed")
	}

	c.mu.Lock()
	sessions := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.sessions = make(map[uint64]*Session)
	c.mu.Unlock()

	for _, s := range sessions {
		s.destroyLocally(terminal)
	}

	c.tm.closeAllWithError(c, terminal)

	if err == nil {
		c.emit(EventConnectionClosed, nil)
	} else {
		c.emit(EventConnectionError, err)
	}
}

// decorateWithTransaction ensures req carries a "transaction" field,
// generating one from tm when absent, and returns the id in either case.
func decorateWithTransaction(req frame, tm *transactionManager) string {
	if id, ok := req["transaction"].(string); ok && id != "" {
		return id
	}
	id := tm.nextID()
	req["transaction"] = id
	return id
}

// sessionIDOf extracts and converts the envelope's session_id field, which
// arrives as a JSON number (float64) after decoding.
func sessionIDOf(f frame) (uint64, bool) {
	raw, ok := f["session_id"]
	if !ok {
		return 0, false
	}
	return toUint64(raw)
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		return uint64(n), true
	case int:
		return uint64(n), true
	case int64:
		return uint64(n), true
	case uint64:
		return n, true
	default:
		return 0, false
	}
}

// janusErrorFromFrame extracts the {code, reason} pair of a definitive
// `{janus: "error"}` reply.
func janusErrorFromFrame(f frame) error {
	errObj, _ := f["error"].(map[string]any)
	code, _ := toUint64(errObj["code"])
	reason, _ := errObj["reason"].(string)
	return &JanusError{Code: int(code), Reason: reason}
}
