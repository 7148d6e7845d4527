package audiobridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeJoinedEvent(t *testing.T) {
	a := New()
	msg := map[string]any{
		"plugindata": map[string]any{
			"data": map[string]any{"audiobridge": "joined", "room": float64(42)},
		},
	}

	ev, ok := a.Decode(msg)
	require.True(t, ok)
	require.Equal(t, "audiobridge_joined", ev.Name)
}

func TestDecodeIgnoresOtherPlugins(t *testing.T) {
	a := New()
	msg := map[string]any{
		"plugindata": map[string]any{"data": map[string]any{"videoroom": "joined"}},
	}

	_, ok := a.Decode(msg)
	require.False(t, ok)
}

func TestJoinRequestOmitsEmptyPin(t *testing.T) {
	body := JoinRequest(42, "alice", false, "")
	_, hasPin := body["pin"]
	require.False(t, hasPin)
	require.Equal(t, "join", body["request"])
}

func TestJoinRequestIncludesPin(t *testing.T) {
	body := JoinRequest(42, "alice", false, "secret")
	require.Equal(t, "secret", body["pin"])
}

func TestLeaveRequest(t *testing.T) {
	require.Equal(t, map[string]any{"request": "leave"}, LeaveRequest())
}
