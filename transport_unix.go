package janode

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// unixLink is the UNIX datagram realisation of link, used when an Endpoint's
// URL has the file:// scheme (e.g. file:///var/run/janus/janus.sock). Janus
// requires every datagram client to bind its own sibling socket so replies
// can be routed back; that sibling is created here and unlinked on close.
type unixLink struct {
	conn    *net.UnixConn
	laddr   string
	encoder *json.Encoder
}

func dialUnix(_ context.Context, connID string, ep Endpoint, _ Configuration) (link, error) {
	path, err := unixSocketPath(ep.URL)
	if err != nil {
		return nil, err
	}

	laddrPath := filepath.Join(os.TempDir(), fmt.Sprintf(".janode-%s-%s", connID, uuid.NewString()))
	laddr := &net.UnixAddr{Name: laddrPath, Net: "unixgram"}
	raddr := &net.UnixAddr{Name: path, Net: "unixgram"}

	conn, err := net.DialUnix("unixgram", laddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial unixgram %s: %w", path, err)
	}

	return &unixLink{conn: conn, laddr: laddrPath}, nil
}

// unixSocketPath extracts the filesystem path from a file:// endpoint URL;
// a bare path (no scheme) is accepted unchanged for convenience.
func unixSocketPath(rawURL string) (string, error) {
	const scheme = "file://"
	if len(rawURL) > len(scheme) && rawURL[:len(scheme)] == scheme {
		return rawURL[len(scheme):], nil
	}
	if filepath.IsAbs(rawURL) {
		return rawURL, nil
	}
	return "", fmt.Errorf("endpoint url %q is not a file:// or absolute path", rawURL)
}

func (u *unixLink) readFrame(ctx context.Context) (frame, error) {
	buf := make([]byte, 64*1024)
	if deadline, ok := ctx.Deadline(); ok {
		_ = u.conn.SetReadDeadline(deadline)
	} else {
		_ = u.conn.SetReadDeadline(time.Time{})
	}

	n, err := u.conn.Read(buf)
	if err != nil {
		return nil, err
	}

	var f frame
	if err := json.Unmarshal(buf[:n], &f); err != nil {
		return nil, fmt.Errorf("decode unixgram frame: %w", err)
	}
	return f, nil
}

func (u *unixLink) writeFrame(ctx context.Context, f frame) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = u.conn.SetWriteDeadline(deadline)
	} else {
		_ = u.conn.SetWriteDeadline(time.Time{})
	}

	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode unixgram frame: %w", err)
	}
	_, err = u.conn.Write(payload)
	return err
}

// keepAlive is a no-op: the UNIX datagram transport has no ping/pong
// primitive. pingable is false for this variant, so transport never calls
// this in practice.
func (u *unixLink) keepAlive(context.Context) error {
	return nil
}

func (u *unixLink) close() error {
	err := u.conn.Close()
	_ = os.Remove(u.laddr)
	return err
}
