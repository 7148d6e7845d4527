package janode

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/meetecho/janode-sub000/internal/errlib"
	"github.com/meetecho/janode-sub000/internal/log"
)

// transportState is the CLOSED -> OPENING -> OPEN -> CLOSING -> CLOSED
// lifecycle a transport moves through.
type transportState int32

const (
	transportClosed transportState = iota
	transportOpening
	transportOpen
	transportClosing
)

func (s transportState) String() string {
	switch s {
	case transportClosed:
		return "closed"
	case transportOpening:
		return "opening"
	case transportOpen:
		return "open"
	case transportClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// frame is one JSON object exchanged with Janus, inbound or outbound.
type frame = map[string]any

// link is the minimal duplex primitive a concrete transport variant (ws,
// unix) provides; transport builds the state machine, reconnect loop and
// callback fan-out on top of it.
type link interface {
	readFrame(ctx context.Context) (frame, error)
	writeFrame(ctx context.Context, f frame) error
	// keepAlive performs one liveness probe; variants without one (unix)
	// return nil immediately and are never scheduled by runPumps.
	keepAlive(ctx context.Context) error
	close() error
}

// dialer opens a link to one configured endpoint. Implemented separately by
// the ws and unix variants.
type dialer func(ctx context.Context, connID string, ep Endpoint, cfg Configuration) (link, error)

// transport is the single duplex channel to Janus a Connection owns: one
// dial variant (ws or unix), the reconnect/failover loop across configured
// endpoints, and ordered inbound/outbound frame delivery.
type transport struct {
	connID   string
	cfg      Configuration
	iterator *addressIterator
	clock    clockwork.Clock
	logger   *log.Logger
	dial     dialer
	pingable bool

	state atomic.Int32

	linkMu sync.Mutex
	link   link

	sendMu sync.Mutex

	onMessage func(frame)
	onClosed  func(error)
	closeOnce sync.Once

	cancel context.CancelFunc
	done   chan struct{}
}

// selectDialer picks the transport variant from the scheme of the first
// configured endpoint: ws/wss dials the WebSocket variant (pingable via
// WebSocket ping/pong), anything else is treated as a UNIX datagram socket
// path (not pingable, since the datagram protocol has no probe frame).
// Mixing schemes across one Configuration's endpoints is not supported: a
// Connection picks one Transport variant for its whole lifetime, and
// failover advances to the next configured endpoint whatever its scheme,
// dialing it with that same variant.
func selectDialer(cfg Configuration) (d dialer, pingable bool) {
	if len(cfg.Endpoints) == 0 {
		return dialWS, true
	}
	if strings.HasPrefix(cfg.Endpoints[0].URL, "ws") {
		return dialWS, true
	}
	return dialUnix, false
}

func newTransport(connID string, cfg Configuration, d dialer, pingable bool, clock clockwork.Clock, logger *log.Logger) *transport {
	return &transport{
		connID:   connID,
		cfg:      cfg,
		iterator: newAddressIterator(cfg.Endpoints),
		clock:    clock,
		logger:   logger,
		dial:     d,
		pingable: pingable,
		done:     make(chan struct{}),
	}
}

func (t *transport) setState(s transportState) {
	t.state.Store(int32(s))
}

func (t *transport) State() transportState {
	return transportState(t.state.Load())
}

// OnMessage registers the callback invoked, in arrival order, for every
// inbound frame.
func (t *transport) OnMessage(cb func(frame)) {
	t.onMessage = cb
}

// OnClosed registers the callback fired exactly once when the link ends,
// with a nil error for a graceful close and a non-nil error otherwise.
func (t *transport) OnClosed(cb func(error)) {
	t.onClosed = cb
}

// Open establishes the link, retrying over the configured endpoint list via
// attemptOpen, then starts the read/keepalive pumps.
func (t *transport) Open(ctx context.Context) error {
	t.setState(transportOpening)

	l, err := t.attemptOpen(ctx)
	if err != nil {
		t.setState(transportClosed)
		return err
	}

	t.linkMu.Lock()
	t.link = l
	t.linkMu.Unlock()

	t.setState(transportOpen)

	pumpCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go t.runPumps(pumpCtx)

	return nil
}

// attemptOpen resets the attempt counter and tries iterator.current(); on
// failure it sleeps retry_time_secs (via the injected clock, so tests don't
// wait in real time) and advances the iterator, failing with
// ErrAttemptLimitExceeded once max_retries is reached. The constant-interval
// schedule is computed by backoff.ConstantBackOff; the advance-between-
// retries control flow is driven explicitly here because it needs to touch
// the AddressIterator between attempts, which a generic "retry this
// operation" helper (backoff.Retry) has no hook for.
func (t *transport) attemptOpen(ctx context.Context) (link, error) {
	interval := backoff.NewConstantBackOff(t.cfg.retryInterval())
	attempts := 0

	for {
		ep := t.iterator.current()
		l, err := t.dial(ctx, t.connID, ep, t.cfg)
		if err == nil {
			return l, nil
		}

		attempts++
		t.logger.Warn("transport open attempt failed",
			log.String("url", ep.URL),
			log.Int("attempt", attempts),
			log.Error(err))

		if attempts >= t.cfg.MaxRetries {
			return nil, errlib.Wrapf(ErrAttemptLimitExceeded, err,
				"exhausted %d attempts across configured endpoints", attempts)
		}

		timer := t.clock.NewTimer(interval.NextBackOff())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.Chan():
		}

		t.iterator.next()
	}
}

// runPumps supervises the inbound read loop and, for pingable variants, the
// liveness-probe loop, as one errgroup so either failing cancels the other
// and closes the transport.
func (t *transport) runPumps(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return t.readPump(gctx) })
	if t.pingable {
		g.Go(func() error { return t.pingPump(gctx) })
	}

	err := g.Wait()
	if err == context.Canceled || t.State() == transportClosing {
		err = nil
	}
	t.closeWithErr(err)
	close(t.done)
}

func (t *transport) readPump(ctx context.Context) error {
	for {
		f, err := t.link.readFrame(ctx)
		if err != nil {
			return err
		}
		if t.onMessage != nil {
			t.onMessage(f)
		}
	}
}

func (t *transport) pingPump(ctx context.Context) error {
	ticker := t.clock.NewTicker(t.cfg.pingInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			probeCtx, cancel := context.WithTimeout(ctx, t.cfg.pingWait())
			err := t.link.keepAlive(probeCtx)
			cancel()
			if err != nil {
				return errlib.Wrap(ErrConnectionError, err, "ping liveness probe failed")
			}
		}
	}
}

// Send enqueues an outbound frame, serialised with every other Send on this
// transport so outbound frames stay in submission order. Fails with
// ErrConnectionClosed if the transport is not OPEN rather than silently
// dropping the frame.
func (t *transport) Send(ctx context.Context, f frame) error {
	if t.State() != transportOpen {
		return errlib.New(ErrConnectionClosed, "transport is not open")
	}

	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	t.linkMu.Lock()
	l := t.link
	t.linkMu.Unlock()
	if l == nil {
		return errlib.New(ErrConnectionClosed, "transport is not open")
	}

	if err := l.writeFrame(ctx, f); err != nil {
		t.closeWithErr(err)
		return errlib.Wrap(ErrConnectionError, err, "write failed")
	}
	return nil
}

// Close performs an idempotent graceful shutdown: closes the link, which
// unblocks the read pump with io.EOF-class errors; since the transport is
// CLOSING by then, the pump exit path reports it as graceful and fires
// onClosed(nil).
func (t *transport) Close() error {
	if t.State() == transportClosed {
		return errlib.New(ErrConnectionClosed, "already closed")
	}
	t.setState(transportClosing)

	t.linkMu.Lock()
	l := t.link
	t.linkMu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}
	if l != nil {
		_ = l.close()
	}
	return nil
}

// closeWithErr transitions to CLOSED and fires onClosed exactly once. A nil
// err means the close was graceful (caller-initiated); non-nil means the
// link failed out from under us.
func (t *transport) closeWithErr(err error) {
	t.closeOnce.Do(func() {
		t.setState(transportClosed)
		if t.onClosed != nil {
			t.onClosed(err)
		}
	})
}
