package videoroom

import (
	"testing"

	janode "github.com/meetecho/janode-sub000"
	"github.com/stretchr/testify/require"
)

func TestDecodeJoinedEvent(t *testing.T) {
	a := New()
	msg := map[string]any{
		"janus": "event",
		"plugindata": map[string]any{
			"data": map[string]any{"videoroom": "joined", "id": float64(1234)},
		},
	}

	ev, ok := a.Decode(msg)
	require.True(t, ok)
	require.Equal(t, "videoroom_joined", ev.Name)
	require.EqualValues(t, 1234, ev.Data["id"])
}

func TestDecodeIgnoresOtherPlugins(t *testing.T) {
	a := New()
	msg := map[string]any{
		"plugindata": map[string]any{"data": map[string]any{"audiobridge": "joined"}},
	}

	_, ok := a.Decode(msg)
	require.False(t, ok)
}

func TestDecodeCarriesJsep(t *testing.T) {
	a := New()
	msg := map[string]any{
		"plugindata": map[string]any{"data": map[string]any{"videoroom": "event"}},
		"jsep":       map[string]any{"type": "offer", "sdp": "v=0"},
	}

	ev, ok := a.Decode(msg)
	require.True(t, ok)
	require.Contains(t, string(ev.Jsep), "offer")
}

func TestPluginID(t *testing.T) {
	require.Equal(t, PluginID, New().PluginID())
}
