// Package workflow drives a single interactive grant-change session for one
// (app, permission group, user) subject: it renders authority snapshots into
// a view, turns the user's choice into change requests, gates risky denials
// behind a confirmation, and reports the outcome when the session ends.
package workflow

import (
	"github.com/google/uuid"

	"github.com/grantd/grantd/internal/grant"
	"github.com/grantd/grantd/internal/logger"
)

// Source pushes authority-side state to a subscriber. Callbacks are
// serialized: the source must never invoke two of them concurrently for
// the same subscription. A nil value on any callback means that piece of
// state is gone.
type Source interface {
	Subscribe(
		onSnapshot func(*grant.Snapshot),
		onDetail func(*grant.Detail),
		onAdminInfo func(*grant.AdminInfo),
	) (cancel func())
}

// Authority accepts change requests. Requests are fire-and-forget: the
// workflow never learns whether one succeeded except by receiving a fresh
// snapshot that reflects (or corrects) it.
type Authority interface {
	RequestChange(req grant.Request)
}

// Renderer applies button states to a view. settled is true on the very
// first render of a session so views can skip enter transitions.
type Renderer interface {
	Apply(c grant.Choice, state grant.ButtonState, settled bool)
	SetDetail(d *grant.Detail)
	SetAdminInfo(a *grant.AdminInfo)
}

// Confirmer shows the deny warning and calls back with the user's answer.
// Exactly one of confirm/cancel must be invoked, exactly once.
type Confirmer interface {
	ConfirmDeny(w grant.DenyWarning, confirm func(), cancel func())
}

// Workflow is the session state machine. All methods must be called from
// one goroutine, the same one the Source delivers callbacks on.
type Workflow struct {
	subject   grant.Subject
	session   string
	authority Authority
	renderer  Renderer
	confirmer Confirmer
	done      func(grant.Outcome)

	cancel      func()
	snapshot    *grant.Snapshot
	initialized bool // a non-nil snapshot has arrived
	rendered    bool // the first render happened
	confirming  bool
	finished    bool
	result      grant.Result // pending result, delivered on Close
}

// New wires a workflow but does not subscribe; call Start.
func New(subject grant.Subject, authority Authority, renderer Renderer, confirmer Confirmer, done func(grant.Outcome)) *Workflow {
	return &Workflow{
		subject:   subject,
		session:   uuid.NewString(),
		authority: authority,
		renderer:  renderer,
		confirmer: confirmer,
		done:      done,
	}
}

// Subject returns the identity triple this workflow manages.
func (w *Workflow) Subject() grant.Subject { return w.subject }

// Start subscribes to the source. Until the first non-nil snapshot arrives
// the workflow stays uninitialized and renders nothing.
func (w *Workflow) Start(src Source) {
	w.cancel = src.Subscribe(w.onSnapshot, w.onDetail, w.onAdminInfo)
}

func (w *Workflow) onSnapshot(s *grant.Snapshot) {
	if w.finished {
		return
	}
	if s == nil {
		// Before the first snapshot a nil push just means "nothing yet".
		// After one, the subject's state is gone: close out.
		if !w.initialized {
			return
		}
		logger.Info("grant state unavailable, closing", "subject", w.subject.String(), "session", w.session)
		w.finish(grant.Outcome{Group: w.subject.Group, Cancelled: true})
		return
	}
	w.initialized = true
	w.snapshot = s.Clone()
	w.render()
}

func (w *Workflow) onDetail(d *grant.Detail) {
	if w.finished {
		return
	}
	w.renderer.SetDetail(d)
}

func (w *Workflow) onAdminInfo(a *grant.AdminInfo) {
	if w.finished {
		return
	}
	w.renderer.SetAdminInfo(a)
}

// render applies the current snapshot to the view. The first render passes
// settled=true so the view treats the state as already in place.
func (w *Workflow) render() {
	settled := !w.rendered
	for _, c := range grant.Choices {
		w.renderer.Apply(c, w.snapshot.Buttons[c], settled)
	}
	w.rendered = true
}

// Select dispatches the user's choice. Selections are ignored while a
// confirmation is pending, after the workflow finished, or before the
// first snapshot arrived.
func (w *Workflow) Select(c grant.Choice) {
	if w.finished || w.confirming || w.snapshot == nil {
		return
	}

	switch c {
	case grant.Allow:
		w.authority.RequestChange(grant.Request{Grant: true, Target: grant.TargetForeground})
		w.result = grant.GrantedAlways
	case grant.AllowAlways:
		w.authority.RequestChange(grant.Request{Grant: true, Target: grant.TargetBoth})
		w.result = grant.GrantedAlways
	case grant.AllowForeground:
		// The authority may treat these as dependent; the foreground grant
		// has to land before the background revoke.
		w.authority.RequestChange(grant.Request{Grant: true, Target: grant.TargetForeground})
		w.authority.RequestChange(grant.Request{Grant: false, Target: grant.TargetBackground})
		w.result = grant.GrantedForegroundOnly
	case grant.AskOnce:
		// Shown only while already checked; selecting it changes nothing.
	case grant.Ask:
		w.authority.RequestChange(grant.Request{Grant: false, Target: grant.TargetBoth})
		w.result = grant.Denied
	case grant.Deny:
		w.deny(grant.TargetBoth)
	case grant.DenyForeground:
		w.deny(grant.TargetForeground)
	}
}

// deny issues a user-fixed denial, routing through the confirmation
// sub-flow first when the snapshot carries a deny warning.
func (w *Workflow) deny(target grant.ChangeTarget) {
	if w.snapshot.Warning == nil {
		w.denyAnyway(target, true)
		return
	}
	w.confirming = true
	warning := *w.snapshot.Warning
	// The confirmer may answer long after the modal went up, and the
	// workflow can finish in the meantime (the subject's state may vanish
	// while the modal is showing). A late answer must not issue anything.
	w.confirmer.ConfirmDeny(warning,
		func() {
			if w.finished {
				return
			}
			w.confirming = false
			w.denyAnyway(target, true)
		},
		func() {
			if w.finished {
				return
			}
			w.confirming = false
			// Idempotent redisplay of the last snapshot, nothing issued.
			w.render()
		},
	)
}

func (w *Workflow) denyAnyway(target grant.ChangeTarget, userFixed bool) {
	w.authority.RequestChange(grant.Request{Grant: false, UserFixed: userFixed, Target: target})
	w.result = grant.DeniedDoNotAskAgain
}

// Close ends the session, delivering the pending result (or a cancelled
// outcome when the user never picked anything) and unsubscribing from the
// source. Safe to call more than once.
func (w *Workflow) Close() {
	if w.finished {
		return
	}
	w.finish(grant.Outcome{
		Group:     w.subject.Group,
		Result:    w.result,
		Cancelled: w.result == "",
	})
}

func (w *Workflow) finish(o grant.Outcome) {
	w.finished = true
	o.Session = w.session
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.done != nil {
		w.done(o)
	}
}
