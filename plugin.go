package janode

import (
	"encoding/json"
	"strings"
)

// PluginEvent is the normalised shape every PluginAdapter decodes a raw
// Janus plugin payload into. Name and Data are plugin-specific; Jsep carries
// an SDP offer/answer when the server attached one to the event.
type PluginEvent struct {
	Name string
	Data map[string]any
	Jsep json.RawMessage
}

//go:generate go run go.uber.org/mock/mockgen -package janode -destination plugin_mock_test.go -source plugin.go PluginAdapter

// PluginAdapter is the contract each plugin module implements: a stable
// plugin id string, and a pure decode function translating a plugin-specific
// `plugindata.data` payload into a PluginEvent. Adapters hold no sockets, no
// timers and no transaction state — all of that lives in Handle.
type PluginAdapter interface {
	// PluginID is the Janus plugin package name, e.g. "janus.plugin.videoroom".
	PluginID() string

	// Decode is given the full inbound message envelope (so it can look at
	// top-level fields like jsep), and returns either a populated
	// PluginEvent with ok=true, or ok=false when this adapter does not
	// recognise the payload.
	Decode(msg map[string]any) (event *PluginEvent, ok bool)
}

// PluginDescriptor names the plugin to attach to and the adapter decoding
// its events; passed to Session.Attach.
type PluginDescriptor struct {
	ID      string
	Adapter PluginAdapter
}

// PluginDataOf extracts plugindata.data from a raw inbound message, the
// shape every PluginAdapter.Decode implementation needs to unwrap first.
func PluginDataOf(msg map[string]any) (map[string]any, bool) {
	pd, ok := msg["plugindata"].(map[string]any)
	if !ok {
		return nil, false
	}
	data, ok := pd["data"].(map[string]any)
	return data, ok
}

// ShortPluginName strips the "janus.plugin." prefix Janus plugin ids share,
// e.g. "janus.plugin.videoroom" -> "videoroom". Used to build the
// "<plugin>_error" event name from a PluginAdapter's PluginID.
func ShortPluginName(pluginID string) string {
	return strings.TrimPrefix(pluginID, "janus.plugin.")
}

// JsepOf re-marshals the envelope's top-level jsep field, present on
// offers/answers attached to an event, into json.RawMessage. Returns nil
// when the envelope carries no jsep.
func JsepOf(msg map[string]any) json.RawMessage {
	raw, ok := msg["jsep"]
	if !ok {
		return nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	return encoded
}

// PluginErrorOf extracts the {error, error_code} pair Janus plugins embed
// in plugindata.data on failure, surfaced by Handle.decode, ahead of any
// adapter, as a "<plugin>_error" PluginEvent.
func PluginErrorOf(data map[string]any) (reason string, code int, ok bool) {
	rawCode, hasCode := data["error_code"]
	rawReason, hasReason := data["error"]
	if !hasCode && !hasReason {
		return "", 0, false
	}
	if s, ok := rawReason.(string); ok {
		reason = s
	}
	switch v := rawCode.(type) {
	case float64:
		code = int(v)
	case int:
		code = v
	}
	return reason, code, true
}
