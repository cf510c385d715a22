// Package authority owns authoritative grant state. It applies change
// requests to the store and pushes recomputed snapshots to subscribers, so
// a rejected or failed change simply surfaces as the next (unchanged)
// snapshot.
package authority

import (
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/grantd/grantd/internal/grant"
	"github.com/grantd/grantd/internal/logger"
	"github.com/grantd/grantd/internal/store"
)

const (
	requestRate  = 10 // change requests per second per caller
	requestBurst = 20
)

// Observer receives pushed state for one subject. Callbacks for a single
// subscription are delivered in order on a dedicated goroutine; a nil
// snapshot means the subject's state no longer exists.
type Observer struct {
	OnSnapshot  func(*grant.Snapshot)
	OnDetail    func(*grant.Detail)
	OnAdminInfo func(*grant.AdminInfo)
}

type subscriber struct {
	obs    Observer
	events chan func()
	done   chan struct{}
}

// Authority is the single writer of grant state.
type Authority struct {
	store *store.Store

	mu       sync.Mutex
	subs     map[grant.Subject]map[int]*subscriber
	nextID   int
	limiters map[string]*rate.Limiter
}

func New(s *store.Store) *Authority {
	return &Authority{
		store:    s,
		subs:     make(map[grant.Subject]map[int]*subscriber),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Subscribe registers an observer for a subject and immediately pushes the
// current state. The returned cancel stops delivery; it is safe to call
// after delivery already stopped.
func (a *Authority) Subscribe(sub grant.Subject, obs Observer) (cancel func()) {
	s := &subscriber{
		obs:    obs,
		events: make(chan func(), 16),
		done:   make(chan struct{}),
	}
	go s.run()

	a.mu.Lock()
	a.nextID++
	id := a.nextID
	if a.subs[sub] == nil {
		a.subs[sub] = make(map[int]*subscriber)
	}
	a.subs[sub][id] = s
	a.mu.Unlock()

	// Initial push, like any later one: whatever the store holds right now.
	a.pushTo(s, sub)

	return func() {
		a.mu.Lock()
		if m := a.subs[sub]; m != nil {
			if _, ok := m[id]; ok {
				delete(m, id)
				close(s.done)
			}
			if len(m) == 0 {
				delete(a.subs, sub)
			}
		}
		a.mu.Unlock()
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case fn := <-s.events:
			fn()
		}
	}
}

func (s *subscriber) deliver(fn func()) {
	select {
	case <-s.done:
	case s.events <- fn:
	}
}

// Request applies one change for a subject. The caller string feeds the
// audit trail and per-caller rate limiting. Errors mean the request was
// not applied; subscribers still get a fresh push either way.
func (a *Authority) Request(sub grant.Subject, caller string, req grant.Request) error {
	if !a.allow(caller) {
		return fmt.Errorf("caller %q rate limited", caller)
	}

	err := a.apply(sub, req)
	if err != nil {
		logger.Warn("change request failed", "subject", sub.String(), "error", err)
	} else if auditErr := a.store.AppendAudit(sub, caller, req); auditErr != nil {
		logger.Warn("audit append failed", "subject", sub.String(), "error", auditErr)
	}

	// Push regardless: the snapshot is the authoritative answer.
	a.push(sub)
	return err
}

// Remove deletes a subject's state (app uninstalled, group withdrawn) and
// notifies subscribers with a nil snapshot.
func (a *Authority) Remove(sub grant.Subject) error {
	if err := a.store.DeleteGrant(sub); err != nil {
		return err
	}
	a.push(sub)
	return nil
}

// Seed writes an initial record without auditing, for enrollment and tests.
func (a *Authority) Seed(rec *store.GrantRecord) error {
	if err := a.store.UpsertGrant(rec); err != nil {
		return err
	}
	a.push(rec.Subject)
	return nil
}

func (a *Authority) allow(caller string) bool {
	a.mu.Lock()
	lim, ok := a.limiters[caller]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(requestRate), requestBurst)
		a.limiters[caller] = lim
	}
	a.mu.Unlock()
	return lim.Allow()
}

// apply mutates the stored record per one request. The rules:
// admin-locked subjects reject everything; grants clear one-time and
// user-fixed; denies record user-fixed and clear the default-granted
// marker (the user has now chosen explicitly).
func (a *Authority) apply(sub grant.Subject, req grant.Request) error {
	rec, err := a.store.GetGrant(sub)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no grant state for %s", sub)
	}
	if rec.AdminRestriction != nil && *rec.AdminRestriction == RestrictAll {
		return fmt.Errorf("subject %s is admin locked", sub)
	}

	if req.Grant {
		switch req.Target {
		case grant.TargetForeground:
			rec.FgGranted = true
		case grant.TargetBackground:
			if !rec.HasBackground {
				return fmt.Errorf("subject %s has no background permission", sub)
			}
			rec.BgGranted = true
		case grant.TargetBoth:
			rec.FgGranted = true
			rec.BgGranted = rec.HasBackground
		default:
			return fmt.Errorf("bad change target %q", req.Target)
		}
		rec.OneTime = false
		rec.UserFixed = false
	} else {
		switch req.Target {
		case grant.TargetForeground:
			rec.FgGranted = false
		case grant.TargetBackground:
			rec.BgGranted = false
		case grant.TargetBoth:
			rec.FgGranted = false
			rec.BgGranted = false
		default:
			return fmt.Errorf("bad change target %q", req.Target)
		}
		rec.OneTime = false
		rec.UserFixed = req.UserFixed
		rec.DefaultGranted = false
	}

	return a.store.UpsertGrant(rec)
}

// push recomputes state for a subject and delivers it to every subscriber.
func (a *Authority) push(sub grant.Subject) {
	a.mu.Lock()
	subs := make([]*subscriber, 0, len(a.subs[sub]))
	for _, s := range a.subs[sub] {
		subs = append(subs, s)
	}
	a.mu.Unlock()

	for _, s := range subs {
		a.pushTo(s, sub)
	}
}

func (a *Authority) pushTo(s *subscriber, sub grant.Subject) {
	rec, err := a.store.GetGrant(sub)
	if err != nil {
		logger.Error("read grant state", "subject", sub.String(), "error", err)
		return
	}
	snap, detail, admin := Compute(rec)
	s.deliver(func() {
		if s.obs.OnAdminInfo != nil {
			s.obs.OnAdminInfo(admin)
		}
		if s.obs.OnDetail != nil {
			s.obs.OnDetail(detail)
		}
		if s.obs.OnSnapshot != nil {
			s.obs.OnSnapshot(snap)
		}
	})
}
