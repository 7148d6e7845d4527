// Package streaming decodes janus.plugin.streaming event payloads.
package streaming

import (
	janode "github.com/meetecho/janode-sub000"
)

// PluginID is the Janus plugin package name this adapter recognises.
const PluginID = "janus.plugin.streaming"

const shortName = "streaming"

// Adapter decodes janus.plugin.streaming plugindata payloads, keyed off the
// plugin's own "streaming" sub-event field (status, event, ...).
type Adapter struct{}

// New returns a ready-to-use streaming Adapter.
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

// WatchRequest builds the body for handle.Message to start watching a
// mountpoint.
func WatchRequest(id int64) map[string]any {
	return map[string]any{"request": "watch", "id": id}
}

// StopRequest builds the body for handle.Message to stop an active stream.
func StopRequest() map[string]any {
	return map[string]any{"request": "stop"}
}
