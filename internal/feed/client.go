package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"

	"github.com/grantd/grantd/internal/grant"
	"github.com/grantd/grantd/internal/logger"
)

const dialTimeout = 5 * time.Second

// Client subscribes to a daemon's watch feed over its unix socket and
// implements the workflow's push-source contract: callbacks are invoked
// sequentially from one goroutine. When the connection drops after state
// was seen, a nil snapshot is delivered so the consumer can close out.
type Client struct {
	SocketPath string
	Token      string // session JWT, empty when auth is disabled
	Subject    grant.Subject
}

// Subscribe dials the feed and starts the read loop. Cancel stops it.
func (c *Client) Subscribe(
	onSnapshot func(*grant.Snapshot),
	onDetail func(*grant.Detail),
	onAdminInfo func(*grant.AdminInfo),
) (cancel func()) {
	ctx, stop := context.WithCancel(context.Background())
	go c.run(ctx, onSnapshot, onDetail, onAdminInfo)
	return stop
}

func (c *Client) run(
	ctx context.Context,
	onSnapshot func(*grant.Snapshot),
	onDetail func(*grant.Detail),
	onAdminInfo func(*grant.AdminInfo),
) {
	conn, err := c.dial(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("watch feed dial failed", "socket", c.SocketPath, "error", err)
		}
		return
	}
	defer conn.CloseNow()

	sawState := false
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			// Connection gone. If we had state, tell the consumer it is
			// no longer observable.
			if ctx.Err() == nil && sawState {
				onSnapshot(nil)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		switch env.Type {
		case TypeSnapshot:
			var f SnapshotFrame
			if err := json.Unmarshal(data, &f); err != nil {
				continue
			}
			if f.Snapshot != nil {
				sawState = true
			}
			onSnapshot(f.Snapshot)
		case TypeDetail:
			var f DetailFrame
			if err := json.Unmarshal(data, &f); err != nil {
				continue
			}
			onDetail(f.Detail)
		case TypeAdmin:
			var f AdminFrame
			if err := json.Unmarshal(data, &f); err != nil {
				continue
			}
			onAdminInfo(f.Admin)
		case TypeError:
			var f ErrorFrame
			if err := json.Unmarshal(data, &f); err != nil {
				continue
			}
			logger.Warn("watch feed error frame", "message", f.Message)
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", c.SocketPath)
			},
		},
	}

	q := url.Values{}
	q.Set("app", c.Subject.App)
	q.Set("group", c.Subject.Group)
	q.Set("user", c.Subject.User)
	if c.Token != "" {
		q.Set("token", c.Token)
	}
	u := "ws://unix/watch?" + q.Encode()

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, u, &websocket.DialOptions{HTTPClient: httpClient})
	if err != nil {
		return nil, fmt.Errorf("dial watch feed: %w", err)
	}
	conn.SetReadLimit(64 * 1024)
	return conn, nil
}
