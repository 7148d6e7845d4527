package janode

import (
	"context"
	"fmt"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	wsSubprotocol      = "janus-protocol"
	wsAdminSubprotocol = "janus-admin-protocol"
)

// wsLink is the WebSocket realisation of link, built on coder/websocket +
// wsjson, simplified to a single read/write pair since transport already
// owns pump supervision and write serialisation.
type wsLink struct {
	conn *websocket.Conn
}

func dialWS(ctx context.Context, _ string, ep Endpoint, cfg Configuration) (link, error) {
	subprotocol := wsSubprotocol
	if cfg.IsAdmin {
		subprotocol = wsAdminSubprotocol
	}

	conn, _, err := websocket.Dial(ctx, ep.URL, &websocket.DialOptions{
		Subprotocols: []string{subprotocol},
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", ep.URL, err)
	}
	conn.SetReadLimit(-1)

	return &wsLink{conn: conn}, nil
}

func (w *wsLink) readFrame(ctx context.Context) (frame, error) {
	var f frame
	if err := wsjson.Read(ctx, w.conn, &f); err != nil {
		return nil, err
	}
	return f, nil
}

func (w *wsLink) writeFrame(ctx context.Context, f frame) error {
	return wsjson.Write(ctx, w.conn, f)
}

func (w *wsLink) keepAlive(ctx context.Context) error {
	return w.conn.Ping(ctx)
}

func (w *wsLink) close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "bye")
}
