// Package cli runs one interactive grant workflow from a terminal,
// bridging the daemon's watch feed and HTTP API into the workflow's
// single-goroutine world.
package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/grantd/grantd/internal/grant"
	"github.com/grantd/grantd/internal/logger"
	"github.com/grantd/grantd/internal/server"
	"github.com/grantd/grantd/internal/workflow"
)

const firstSnapshotTimeout = 10 * time.Second

// ErrNoState means the daemon never produced a snapshot for the subject.
var ErrNoState = errors.New("no grant state for subject (is it enrolled?)")

// Session wires a workflow to a remote daemon: snapshots arrive over the
// watch feed, change requests go out over the HTTP API, and everything is
// serialized onto one event loop goroutine.
type Session struct {
	Client    *server.Client
	Source    workflow.Source
	Subject   grant.Subject
	Renderer  workflow.Renderer
	Confirmer workflow.Confirmer
}

// Run subscribes, waits for the first snapshot, applies the choice, and
// returns the outcome. An empty choice just displays the current state.
func (s *Session) Run(choice grant.Choice) (grant.Outcome, error) {
	loop := make(chan func(), 16)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			select {
			case <-quit:
				return
			case fn := <-loop:
				fn()
			}
		}
	}()
	// post hands fn to the event loop; after Run returns it becomes a
	// no-op so late feed callbacks can't block or panic.
	post := func(fn func()) {
		select {
		case loop <- fn:
		case <-quit:
		}
	}

	first := make(chan struct{})
	firstOnce := false
	// The daemon pushes nil right away for a subject it has no state for.
	// The workflow ignores that (nothing has arrived yet from its point of
	// view), so the session watches for it separately to fail fast instead
	// of sitting out the full first-snapshot timeout.
	earlyNil := make(chan struct{})
	earlyNilOnce := false
	outcomeCh := make(chan grant.Outcome, 1)

	auth := workflow.AuthorityFunc(func(req grant.Request) {
		// Fire-and-forget: the corrected snapshot is the real answer.
		if err := s.Client.RequestChange(s.Subject, req); err != nil {
			logger.Warn("change request rejected", "subject", s.Subject.String(), "error", err)
		}
	})

	wf := workflow.New(s.Subject, auth, s.Renderer, s.Confirmer, func(o grant.Outcome) {
		outcomeCh <- o
	})

	src := workflow.SourceFunc(func(
		onSnapshot func(*grant.Snapshot),
		onDetail func(*grant.Detail),
		onAdminInfo func(*grant.AdminInfo),
	) (cancel func()) {
		return s.Source.Subscribe(
			func(snap *grant.Snapshot) {
				post(func() {
					onSnapshot(snap)
					if snap != nil && !firstOnce {
						firstOnce = true
						close(first)
					}
					if snap == nil && !firstOnce && !earlyNilOnce {
						earlyNilOnce = true
						close(earlyNil)
					}
				})
			},
			func(d *grant.Detail) { post(func() { onDetail(d) }) },
			func(a *grant.AdminInfo) { post(func() { onAdminInfo(a) }) },
		)
	})

	wf.Start(src)

	select {
	case <-first:
	case <-earlyNil:
		// A snapshot may have landed right behind the nil; only give up
		// when it has not.
		select {
		case <-first:
		default:
			post(func() { wf.Close() })
			return <-outcomeCh, ErrNoState
		}
	case o := <-outcomeCh:
		// Feed dropped before any state arrived.
		return o, ErrNoState
	case <-time.After(firstSnapshotTimeout):
		post(func() { wf.Close() })
		<-outcomeCh
		return grant.Outcome{}, fmt.Errorf("timed out waiting for grant state for %s", s.Subject)
	}

	if choice != "" {
		done := make(chan struct{})
		post(func() {
			wf.Select(choice)
			close(done)
		})
		<-done
	}

	post(func() { wf.Close() })

	select {
	case o := <-outcomeCh:
		return o, nil
	case <-time.After(firstSnapshotTimeout):
		return grant.Outcome{}, errors.New("workflow did not finish")
	}
}
