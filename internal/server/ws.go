package server

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"

	"github.com/grantd/grantd/internal/authority"
	"github.com/grantd/grantd/internal/feed"
	"github.com/grantd/grantd/internal/grant"
	"github.com/grantd/grantd/internal/logger"
)

// handleWatch streams authority pushes for one subject until the client
// disconnects. Query params: app, group, user.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sub := grant.Subject{App: q.Get("app"), Group: q.Get("group"), User: q.Get("user")}
	if sub.App == "" || sub.Group == "" {
		writeError(w, http.StatusBadRequest, "app and group are required")
		return
	}
	if sub.User == "" {
		sub.User = "0"
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Warn("watch accept failed", "error", err)
		return
	}
	conn.SetReadLimit(64 * 1024)
	defer conn.CloseNow()

	ctx := r.Context()
	write := func(v any) bool {
		data, err := json.Marshal(v)
		if err != nil {
			return false
		}
		return conn.Write(ctx, websocket.MessageText, data) == nil
	}

	// The authority serializes deliveries per subscription, so frames go
	// out in push order. A failed write just burns the connection; the
	// deferred cancel tears the subscription down.
	failed := make(chan struct{}, 1)
	fail := func() {
		select {
		case failed <- struct{}{}:
		default:
		}
	}

	cancel := s.authority.Subscribe(sub, authority.Observer{
		OnSnapshot: func(snap *grant.Snapshot) {
			if !write(feed.SnapshotFrame{Type: feed.TypeSnapshot, Snapshot: snap}) {
				fail()
			}
		},
		OnDetail: func(d *grant.Detail) {
			if !write(feed.DetailFrame{Type: feed.TypeDetail, Detail: d}) {
				fail()
			}
		},
		OnAdminInfo: func(a *grant.AdminInfo) {
			if !write(feed.AdminFrame{Type: feed.TypeAdmin, Admin: a}) {
				fail()
			}
		},
	})
	defer cancel()

	// Drain reads so pings and close frames are processed.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
	case <-readDone:
	case <-failed:
	}
}
