// Package sip decodes janus.plugin.sip event payloads and adds the one
// capability the SIP plugin needs that no other plugin does: correlating
// an async registered/registration_failed event, which carries no
// transaction field of its own, back to the register request it answers.
package sip

import (
	"context"
	"fmt"
	"sync"

	janode "github.com/meetecho/janode-sub000"
)

// PluginID is the Janus plugin package name this adapter recognises.
const PluginID = "janus.plugin.sip"

const shortName = "sip"

// eventName is the PluginEvent name Decode emits for every janus.plugin.sip
// "event" message; Session subscribes to it to watch for the register
// correlation.
const eventName = shortName + "_event"

// Adapter decodes janus.plugin.sip plugindata payloads, keyed off the
// plugin's own "sip" sub-event field.
type Adapter struct{}

// New returns a ready-to-use sip Adapter.
func New() *Adapter { return &Adapter{} }

func (a *Adapter) PluginID() string { return PluginID }

func (a *Adapter) Decode(msg map[string]any) (*janode.PluginEvent, bool) {
	data, ok := janode.PluginDataOf(msg)
	if !ok {
		return nil, false
	}
	name, ok := data[shortName].(string)
	if !ok {
		return nil, false
	}
	return &janode.PluginEvent{
		Name: shortName + "_" + name,
		Data: data,
		Jsep: janode.JsepOf(msg),
	}, true
}

// Session wraps a Handle already attached to janus.plugin.sip, adding the
// pendingRegister transaction correlation: Register's reply frequently
// arrives as a later "registered" or "registration_failed" event instead
// of a definitive success/error on the original request.
type Session struct {
	handle *janode.Handle

	mu              sync.Mutex
	pendingRegister string
}

// Wrap subscribes to the handle's sip_event stream and returns a Session
// ready for Register calls. h must already be attached via PluginID.
func Wrap(h *janode.Handle) *Session {
	s := &Session{handle: h}
	h.On(eventName, s.onSipEvent)
	return s
}

// Register sends {request: "register", ...} and blocks until Janus
// confirms the registration, whether that arrives as a definitive reply or
// as the asynchronous registered/registration_failed event this Session
// correlates via pendingRegister.
func (s *Session) Register(ctx context.Context, body map[string]any) (map[string]any, error) {
	req := make(map[string]any, len(body)+1)
	for k, v := range body {
		req[k] = v
	}
	req["request"] = "register"

	id := s.handle.NextTransactionID()
	s.mu.Lock()
	s.pendingRegister = id
	s.mu.Unlock()

	return s.handle.MessageWithTransactionID(ctx, id, req, nil)
}

func (s *Session) onSipEvent(payload any) {
	event, ok := payload.(*janode.PluginEvent)
	if !ok {
		return
	}
	result, _ := event.Data["result"].(map[string]any)
	sub, _ := result["event"].(string)
	if sub != "registered" && sub != "registration_failed" {
		return
	}

	s.mu.Lock()
	id := s.pendingRegister
	s.pendingRegister = ""
	s.mu.Unlock()
	if id == "" {
		return
	}

	if sub == "registered" {
		s.handle.ResolveTransaction(id, event.Data)
		return
	}

	reason, _ := result["reason"].(string)
	var code float64
	if c, ok := result["code"].(float64); ok {
		code = c
	}
	s.handle.RejectTransaction(id, fmt.Errorf("sip registration failed (%d): %s", int(code), reason))
}
