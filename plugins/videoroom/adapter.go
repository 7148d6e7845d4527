// Package videoroom decodes janus.plugin.videoroom event payloads into
// PluginEvents. It holds no sockets, no timers and no transaction state —
// the Handle calling Decode owns all of that.
package videoroom

import (
	janode "github.com/meetecho/janode-sub000"
)

// PluginID is the Janus plugin package name this adapter recognises.
const PluginID = "janus.plugin.videoroom"

const shortName = "videoroom"

// Adapter decodes janus.plugin.videoroom plugindata payloads. The plugin's
// own "videoroom" field names the sub-event (joined, attached, event,
// destroyed, talking, stopped-talking, ...); the adapter maps that onto a
// "videoroom_<name>" PluginEvent name.
type Adapter struct{}

// New returns a ready-to-use videoroom Adapter.
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
