package janode

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/meetecho/janode-sub000/internal/errlib"
	"github.com/meetecho/janode-sub000/internal/log"
)

// Session events.
const EventSessionDestroyed = "SESSION_DESTROYED"

type sessionState int32

const (
	sessionActive sessionState = iota
	sessionDestroyed
)

// Session is a Janus session: the keep-alive loop, the handles it owns, and
// session-scoped transaction resolution.
type Session struct {
	EventBus

	id     uint64
	conn   *Connection
	logger *log.Logger

	state atomic.Int32

	mu      sync.Mutex
	handles map[uint64]*Handle

	cancelKeepalive context.CancelFunc
}

func newSession(id uint64, conn *Connection, logger *log.Logger) *Session {
	return &Session{
		EventBus: *newEventBus(),
		id:       id,
		conn:     conn,
		logger:   logger,
		handles:  make(map[uint64]*Handle),
	}
}

// ID returns the server-assigned session id.
func (s *Session) ID() uint64 { return s.id }

// sendRequest decorates req with this session's id and registers the
// resulting transaction as owned by the Session.
func (s *Session) sendRequest(ctx context.Context, req frame) (frame, error) {
	req["session_id"] = s.id
	return s.conn.sendRequest(ctx, s, req)
}

// Attach sends {janus: "attach", plugin: descriptor.ID}, builds a Handle
// around the returned id bound to descriptor.Adapter, and inserts it.
func (s *Session) Attach(ctx context.Context, descriptor PluginDescriptor) (*Handle, error) {
	if s.state.Load() != int32(sessionActive) {
		return nil, errlib.New(ErrSessionDestroyed, "session already destroyed")
	}

	resp, err := s.sendRequest(ctx, frame{"janus": "attach", "plugin": descriptor.ID})
	if err != nil {
		return nil, err
	}

	data, _ := resp["data"].(map[string]any)
	id, ok := toUint64(data["id"])
	if !ok {
		return nil, errlib.New(ErrUnexpectedResponse, "attach reply missing numeric data.id")
	}

	h := newHandle(id, s, descriptor.Adapter, s.logger.Module("handle"))

	s.mu.Lock()
	s.handles[id] = h
	s.mu.Unlock()

	return h, nil
}

// Destroy sends {janus: "destroy"} and, on success, runs the local
// destruction sequence.
func (s *Session) Destroy(ctx context.Context) error {
	_, err := s.sendRequest(ctx, frame{"janus": "destroy"})
	if err != nil {
		return err
	}
	s.destroyLocally(errlib.New(ErrSessionDestroyed, "session destroyed"))
	return nil
}

// startKeepalive launches the periodic {janus: "keepalive"} loop; a failed
// or timed-out probe destroys the session.
func (s *Session) startKeepalive(clock clockwork.Clock, interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelKeepalive = cancel
	go s.keepaliveLoop(ctx, clock, interval)
}

func (s *Session) keepaliveLoop(ctx context.Context, clock clockwork.Clock, interval time.Duration) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			probeCtx, cancel := context.WithTimeout(ctx, interval/2)
			_, err := s.sendRequest(probeCtx, frame{"janus": "keepalive"})
			cancel()
			if err != nil {
				s.destroyLocally(errlib.Wrap(ErrTimeout, err, "keepalive timed out"))
				return
			}
		}
	}
}

// dispatch routes an inbound frame to the handle it names (by sender id or
// owned transaction), falls back to this Session's own transaction table,
// and destroys the session on a server timeout notification.
func (s *Session) dispatch(f frame) {
	if hid, ok := senderOf(f); ok {
		if h, ok := s.lookupHandle(hid); ok {
			h.dispatch(f)
			return
		}
	}

	if txID, ok := f["transaction"].(string); ok && txID != "" {
		if owner, known := s.conn.tm.ownerOf(txID); known {
			if h, isHandle := owner.(*Handle); isHandle && h.session == s {
				h.dispatch(f)
				return
			}
			if owner == s {
				s.resolveOwnTransaction(txID, f)
				return
			}
		}
	}

	if verb, _ := f["janus"].(string); verb == "timeout" {
		s.destroyLocally(errlib.New(ErrTimeout, "session timed out"))
		return
	}

	s.logger.Debug("dropping unroutable session frame", log.Any("frame", f))
}

// resolveOwnTransaction: an ack alone closes a keepalive transaction
// successfully; other requests wait for a definitive success/error reply.
func (s *Session) resolveOwnTransaction(txID string, f frame) {
	t, ok := s.conn.tm.get(txID)
	if !ok {
		return
	}

	verb, _ := f["janus"].(string)
	switch verb {
	case "ack":
		if t.request == "keepalive" {
			s.conn.tm.closeWithSuccess(txID, s, f)
		}
	case "error":
		s.conn.tm.closeWithError(txID, s, janusErrorFromFrame(f))
	default:
		s.conn.tm.closeWithSuccess(txID, s, f)
	}
}

// destroyLocally runs the teardown cascade: cancel the keep-alive task,
// detach every handle without a server round trip, fail every session- and
// handle-owned transaction with err, and emit SESSION_DESTROYED exactly
// once.
func (s *Session) destroyLocally(err error) {
	if !s.state.CompareAndSwap(int32(sessionActive), int32(sessionDestroyed)) {
		return
	}

	s.conn.dropSession(s.id)
	if s.cancelKeepalive != nil {
		s.cancelKeepalive()
	}

	s.mu.Lock()
	handles := make([]*Handle, 0, len(s.handles))
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	s.handles = make(map[uint64]*Handle)
	s.mu.Unlock()

	for _, h := range handles {
		h.detachLocally(err)
	}

	s.conn.tm.closeAllWithError(s, err)
	s.emit(EventSessionDestroyed, err)
}

func (s *Session) lookupHandle(id uint64) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[id]
	return h, ok
}

func (s *Session) dropHandle(id uint64) {
	s.mu.Lock()
	delete(s.handles, id)
	s.mu.Unlock()
}

func senderOf(f frame) (uint64, bool) {
	raw, ok := f["sender"]
	if !ok {
		return 0, false
	}
	return toUint64(raw)
}
