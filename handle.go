package janode

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/meetecho/janode-sub000/internal/errlib"
	"github.com/meetecho/janode-sub000/internal/log"
)

// Handle events. PluginAdapters emit additional plugin-specific names on
// top of these lifecycle ones.
const (
	EventHandleDetached = "HANDLE_DETACHED"
	EventHandleHangup   = "HANDLE_HANGUP"
	EventHandleMedia    = "HANDLE_MEDIA"
	EventHandleWebrtcUp = "HANDLE_WEBRTCUP"
	EventHandleSlowlink = "HANDLE_SLOWLINK"
	EventHandleTrickle  = "HANDLE_TRICKLE"
)

// HangupPayload is the HANDLE_HANGUP event payload.
type HangupPayload struct {
	Reason string
}

// MediaPayload is the HANDLE_MEDIA event payload.
type MediaPayload struct {
	Type      string
	Receiving bool
}

// SlowlinkPayload is the HANDLE_SLOWLINK event payload.
type SlowlinkPayload struct {
	Uplink bool
	Nacks  int
}

// TricklePayload is the HANDLE_TRICKLE event payload: either a candidate or
// a completion marker.
type TricklePayload struct {
	SdpMid        string
	SdpMLineIndex int
	Candidate     string
	Completed     bool
}

type handleState int32

const (
	handleActive handleState = iota
	handleDetached
)

// Handle is one plugin attachment within a Session: handle-owned
// transaction resolution and the Janus reply-category dispatch algorithm.
type Handle struct {
	EventBus

	id      uint64
	session *Session
	adapter PluginAdapter
	logger  *log.Logger

	state atomic.Int32
}

func newHandle(id uint64, session *Session, adapter PluginAdapter, logger *log.Logger) *Handle {
	return &Handle{
		EventBus: *newEventBus(),
		id:       id,
		session:  session,
		adapter:  adapter,
		logger:   logger,
	}
}

// ID returns the server-assigned handle id.
func (h *Handle) ID() uint64 { return h.id }

// sendRequest decorates req with this handle's id and its session's id, and
// registers the resulting transaction as owned by the Handle.
func (h *Handle) sendRequest(ctx context.Context, req frame) (frame, error) {
	if h.state.Load() != int32(handleActive) {
		return nil, errlib.New(ErrAlreadyDetached, "handle already detached")
	}
	req["handle_id"] = h.id
	req["session_id"] = h.session.id
	return h.session.conn.sendRequest(ctx, h, req)
}

// Message sends {janus: "message", body, jsep?}, the universal plugin RPC.
func (h *Handle) Message(ctx context.Context, body map[string]any, jsep json.RawMessage) (frame, error) {
	return h.MessageWithTransactionID(ctx, "", body, jsep)
}

// NextTransactionID hands out a fresh transaction id without registering
// it, so a plugin-level helper can remember it before the request is sent.
// The SIP plugin's register request is sometimes confirmed not by a
// definitive reply but by a later, transaction-less registered/
// registration_failed event, which a plugin adapter correlates back to
// this id via ResolveTransaction/RejectTransaction.
func (h *Handle) NextTransactionID() string {
	return h.session.conn.tm.nextID()
}

// MessageWithTransactionID is Message with an explicit transaction id; an
// empty id lets the TransactionManager generate one as usual.
func (h *Handle) MessageWithTransactionID(ctx context.Context, id string, body map[string]any, jsep json.RawMessage) (frame, error) {
	req := frame{"janus": "message", "body": body}
	if id != "" {
		req["transaction"] = id
	}
	if len(jsep) > 0 {
		req["jsep"] = jsep
	}
	return h.sendRequest(ctx, req)
}

// ResolveTransaction lets a plugin-level helper close a transaction it is
// tracking out-of-band, when the owning transaction id is known but the
// server's async reply carries no transaction field linking it (the SIP
// pendingRegister pattern). Returns false if id is unknown or not owned by
// this handle.
func (h *Handle) ResolveTransaction(id string, data map[string]any) bool {
	owner, ok := h.session.conn.tm.ownerOf(id)
	if !ok || owner != h {
		return false
	}
	h.session.conn.tm.closeWithSuccess(id, h, data)
	return true
}

// RejectTransaction is ResolveTransaction's failure counterpart.
func (h *Handle) RejectTransaction(id string, err error) bool {
	owner, ok := h.session.conn.tm.ownerOf(id)
	if !ok || owner != h {
		return false
	}
	h.session.conn.tm.closeWithError(id, h, err)
	return true
}

// Trickle sends a single ICE candidate or a batch, ack-terminated.
func (h *Handle) Trickle(ctx context.Context, candidates ...map[string]any) error {
	req := frame{"janus": "trickle"}
	switch len(candidates) {
	case 0:
		return errlib.New(ErrInvalidArgument, "trickle requires at least one candidate")
	case 1:
		req["candidate"] = candidates[0]
	default:
		req["candidates"] = candidates
	}
	_, err := h.sendRequest(ctx, req)
	return err
}

// TrickleComplete signals end-of-candidates.
func (h *Handle) TrickleComplete(ctx context.Context) error {
	req := frame{"janus": "trickle", "candidate": map[string]any{"completed": true}}
	_, err := h.sendRequest(ctx, req)
	return err
}

// Hangup sends {janus: "hangup"}.
func (h *Handle) Hangup(ctx context.Context) error {
	_, err := h.sendRequest(ctx, frame{"janus": "hangup"})
	return err
}

// Detach sends {janus: "detach"} and, on success, runs the local detach
// sequence.
func (h *Handle) Detach(ctx context.Context) error {
	_, err := h.sendRequest(ctx, frame{"janus": "detach"})
	if err != nil {
		return err
	}
	h.detachLocally(errlib.New(ErrHandleDetached, "handle detached"))
	return nil
}

// dispatch implements the Handle's transaction-ownership-first routing:
// a reply addressed to a transaction this handle owns always goes to
// resolveOwnTransaction, regardless of verb (an interim ack for a
// non-trickle request leaves it pending); anything else is unsolicited.
func (h *Handle) dispatch(f frame) {
	if txID, ok := f["transaction"].(string); ok && txID != "" {
		if owner, known := h.session.conn.tm.ownerOf(txID); known && owner == h {
			h.resolveOwnTransaction(txID, f)
			return
		}
	}
	h.dispatchUnsolicited(f)
}

func (h *Handle) resolveOwnTransaction(txID string, f frame) {
	t, ok := h.session.conn.tm.get(txID)
	if !ok {
		return
	}
	verb, _ := f["janus"].(string)
	tm := h.session.conn.tm

	switch verb {
	case "ack":
		if t.request == "trickle" {
			tm.closeWithSuccess(txID, h, f)
		}
		// else: interim ack for a non-trickle request, wait for the
		// definitive reply.
	case "error":
		tm.closeWithError(txID, h, janusErrorFromFrame(f))
	case "success":
		if t.request == "hangup" || t.request == "detach" {
			tm.closeWithSuccess(txID, h, f)
			return
		}
		h.closeWithAdapterOrRaw(txID, f)
	default:
		h.closeWithAdapterOrRaw(txID, f)
	}
}

// closeWithAdapterOrRaw delegates a definitive reply to the plugin adapter.
// A plugindata.data error payload rejects the transaction with a
// *JanusError instead of resolving it, and is not also emitted as a
// "<plugin>_error" event: the transaction owner consumes it. Any other
// recognised or unrecognised payload resolves the caller's future, falling
// back to the raw frame when no adapter claims it.
func (h *Handle) closeWithAdapterOrRaw(txID string, f frame) {
	tm := h.session.conn.tm
	if data, ok := PluginDataOf(f); ok {
		if reason, code, hasErr := PluginErrorOf(data); hasErr {
			tm.closeWithError(txID, h, &JanusError{Code: code, Reason: reason})
			return
		}
	}
	if event, ok := h.decode(f); ok {
		tm.closeWithSuccess(txID, h, event.Data)
		return
	}
	tm.closeWithSuccess(txID, h, f)
}

// dispatchUnsolicited handles inbound messages with no transaction owned by
// this handle: lifecycle notifications and asynchronous plugin events.
func (h *Handle) dispatchUnsolicited(f frame) {
	verb, _ := f["janus"].(string)

	switch verb {
	case "event":
		h.handleEvent(f)
	case "detached":
		h.detachLocally(errlib.New(ErrHandleDetached, "handle detached by server"))
	case "hangup":
		reason, _ := f["reason"].(string)
		h.emit(EventHandleHangup, HangupPayload{Reason: reason})
	case "media":
		mtype, _ := f["type"].(string)
		receiving, _ := f["receiving"].(bool)
		h.emit(EventHandleMedia, MediaPayload{Type: mtype, Receiving: receiving})
	case "webrtcup":
		h.emit(EventHandleWebrtcUp, nil)
	case "slowlink":
		uplink, _ := f["uplink"].(bool)
		nacks, _ := toUint64(f["nacks"])
		h.emit(EventHandleSlowlink, SlowlinkPayload{Uplink: uplink, Nacks: int(nacks)})
	case "trickle":
		h.emit(EventHandleTrickle, trickleFromFrame(f))
	default:
		h.logger.Debug("dropping unhandled handle frame", log.Any("frame", f))
	}
}

// handleEvent decodes an asynchronous plugin event that dispatch did not
// route to a transaction this handle owns (owned ones are closed by
// resolveOwnTransaction). When the adapter recognises it, the event is
// published. An unrecognised payload that names a transaction is closed
// with unmanaged_event, subject to the TransactionManager's ownership check.
func (h *Handle) handleEvent(f frame) {
	event, ok := h.decode(f)
	if ok {
		h.emit(event.Name, event)
		return
	}

	if txID, hasTx := f["transaction"].(string); hasTx && txID != "" {
		h.session.conn.tm.closeWithError(txID, h,
			errlib.New(ErrUnmanagedEvent, "plugin event did not match any known shape"))
	}
}

// decode runs the plugin adapter over a raw message, also surfacing
// plugindata.data errors as a "<plugin>_error" PluginEvent.
func (h *Handle) decode(f frame) (*PluginEvent, bool) {
	if h.adapter == nil {
		return nil, false
	}

	if data, ok := PluginDataOf(f); ok {
		if reason, code, hasErr := PluginErrorOf(data); hasErr {
			return &PluginEvent{
				Name: ShortPluginName(h.adapter.PluginID()) + "_error",
				Data: map[string]any{"code": code, "reason": reason},
			}, true
		}
	}

	return h.adapter.Decode(f)
}

// detachLocally runs the handle teardown sequence: idempotent, fails every
// handle-owned transaction with err, removes the handle from its session,
// and emits HANDLE_DETACHED.
func (h *Handle) detachLocally(err error) {
	if !h.state.CompareAndSwap(int32(handleActive), int32(handleDetached)) {
		return
	}
	h.session.dropHandle(h.id)
	h.session.conn.tm.closeAllWithError(h, err)
	h.emit(EventHandleDetached, err)
}

func trickleFromFrame(f frame) TricklePayload {
	cand, _ := f["candidate"].(map[string]any)
	if completed, _ := cand["completed"].(bool); completed {
		return TricklePayload{Completed: true}
	}
	sdpMid, _ := cand["sdpMid"].(string)
	lineIdx, _ := toUint64(cand["sdpMLineIndex"])
	candidate, _ := cand["candidate"].(string)
	return TricklePayload{SdpMid: sdpMid, SdpMLineIndex: int(lineIdx), Candidate: candidate}
}
