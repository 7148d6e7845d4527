// Package audiobridge decodes janus.plugin.audiobridge event payloads,
// grounded on the room/participant shapes of a REST AudioBridge client
// (CreateRoom/DestroyRoom/ListRooms/RTP forwarders), adapted here to the
// plugin's own WebSocket event stream rather than admin REST calls.
package audiobridge

import (
	janode "github.com/meetecho/janode-sub000"
)

// PluginID is the Janus plugin package name this adapter recognises.
const PluginID = "janus.plugin.audiobridge"

const shortName = "audiobridge"

// RoomInfo mirrors the fields Janus reports for a single AudioBridge room
// in a "list" reply's plugindata.data.list entries.
type RoomInfo struct {
	Room            int64  `json:"room"`
	Description     string `json:"description"`
	NumParticipants int    `json:"num_participants"`
}

// Adapter decodes janus.plugin.audiobridge plugindata payloads, keyed off
// the plugin's own "audiobridge" sub-event field (joined, event, talking,
// stopped-talking, left, destroyed, roomchanged, ...).
type Adapter struct{}

// New returns a ready-to-use audiobridge Adapter.
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

// JoinRequest builds the body for handle.Message to join a room.
func JoinRequest(room int64, display string, muted bool, pin string) map[string]any {
	body := map[string]any{
		"request": "join",
		"room":    room,
		"display": display,
		"muted":   muted,
	}
	if pin != "" {
		body["pin"] = pin
	}
	return body
}

// LeaveRequest builds the body for handle.Message to leave the current room.
func LeaveRequest() map[string]any {
	return map[string]any{"request": "leave"}
}
