package authority

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/grantd/grantd/internal/grant"
	"github.com/grantd/grantd/internal/store"
)

func record(mut func(*store.GrantRecord)) *store.GrantRecord {
	rec := &store.GrantRecord{
		Subject: grant.Subject{App: "com.example.maps", Group: "location", User: "0"},
	}
	if mut != nil {
		mut(rec)
	}
	return rec
}

func TestComputeNilRecord(t *testing.T) {
	snap, detail, admin := Compute(nil)
	if snap != nil || detail != nil || admin != nil {
		t.Error("nil record must compute to all-nil state")
	}
}

func TestComputeSimpleGroup(t *testing.T) {
	snap, _, _ := Compute(record(func(r *store.GrantRecord) { r.FgGranted = true }))

	for _, c := range []grant.Choice{grant.Allow, grant.Ask, grant.Deny} {
		if !snap.Buttons[c].Shown {
			t.Errorf("%s should be shown for a foreground-only group", c)
		}
	}
	for _, c := range []grant.Choice{grant.AllowAlways, grant.AllowForeground, grant.AskOnce, grant.DenyForeground} {
		if snap.Buttons[c].Shown {
			t.Errorf("%s should be hidden for a foreground-only group", c)
		}
	}
	if snap.CheckedChoice() != grant.Allow {
		t.Errorf("checked = %q, want %q", snap.CheckedChoice(), grant.Allow)
	}
}

func TestComputeBackgroundGroup(t *testing.T) {
	snap, _, _ := Compute(record(func(r *store.GrantRecord) {
		r.HasBackground = true
		r.FgGranted = true
		r.BgGranted = true
	}))

	if snap.Buttons[grant.Allow].Shown {
		t.Error("plain allow hidden when the group has a background half")
	}
	if !snap.Buttons[grant.AllowAlways].Shown || !snap.Buttons[grant.AllowForeground].Shown {
		t.Error("always/foreground split shown for background groups")
	}
	if snap.CheckedChoice() != grant.AllowAlways {
		t.Errorf("checked = %q, want %q", snap.CheckedChoice(), grant.AllowAlways)
	}

	snap, _, _ = Compute(record(func(r *store.GrantRecord) {
		r.HasBackground = true
		r.FgGranted = true
	}))
	if snap.CheckedChoice() != grant.AllowForeground {
		t.Errorf("checked = %q, want %q", snap.CheckedChoice(), grant.AllowForeground)
	}
}

func TestComputeOneTime(t *testing.T) {
	snap, detail, _ := Compute(record(func(r *store.GrantRecord) { r.OneTime = true }))
	if !snap.Buttons[grant.AskOnce].Shown || !snap.Buttons[grant.AskOnce].Checked {
		t.Error("one-time state shows ask_once checked")
	}
	if detail == nil || detail.Message != grant.MsgOneTime {
		t.Errorf("detail = %+v, want one-time note", detail)
	}
}

func TestComputeIndividuallyControlled(t *testing.T) {
	_, detail, _ := Compute(record(func(r *store.GrantRecord) { r.Individual = 3 }))
	if detail == nil || detail.Message != grant.MsgIndividual || detail.Count != 3 {
		t.Errorf("detail = %+v, want individually-controlled count 3", detail)
	}

	// One-time wins when both apply.
	_, detail, _ = Compute(record(func(r *store.GrantRecord) {
		r.Individual = 3
		r.OneTime = true
	}))
	if detail == nil || detail.Message != grant.MsgOneTime {
		t.Errorf("detail = %+v, want one-time note", detail)
	}
}

func TestComputeDenyWarning(t *testing.T) {
	snap, _, _ := Compute(record(func(r *store.GrantRecord) {
		r.FgGranted = true
		r.DefaultGranted = true
	}))
	if snap.Warning == nil || snap.Warning.Message != grant.MsgDefaultGranted {
		t.Errorf("warning = %+v, want default-granted", snap.Warning)
	}

	// A revoked default grant no longer warns.
	snap, _, _ = Compute(record(func(r *store.GrantRecord) { r.DefaultGranted = true }))
	if snap.Warning != nil {
		t.Errorf("warning = %+v, want none when nothing is granted", snap.Warning)
	}

	snap, _, _ = Compute(record(func(r *store.GrantRecord) {
		r.FgGranted = true
		r.Legacy = true
	}))
	if snap.Warning == nil || snap.Warning.Message != grant.MsgLegacyApp {
		t.Errorf("warning = %+v, want legacy-app", snap.Warning)
	}
}

func TestComputeAdminLocked(t *testing.T) {
	enforcer := "acme-mdm"
	all := RestrictAll
	snap, _, admin := Compute(record(func(r *store.GrantRecord) {
		r.FgGranted = true
		r.AdminEnforcer = &enforcer
		r.AdminRestriction = &all
	}))

	for _, c := range grant.Choices {
		if snap.Buttons[c].Shown && snap.Buttons[c].Enabled {
			t.Errorf("%s enabled despite admin lock", c)
		}
	}
	if admin == nil || admin.Enforcer != "acme-mdm" {
		t.Errorf("admin = %+v", admin)
	}
}

func TestComputeBackgroundPinned(t *testing.T) {
	enforcer := "acme-mdm"
	bg := RestrictBackground
	snap, detail, _ := Compute(record(func(r *store.GrantRecord) {
		r.HasBackground = true
		r.FgGranted = true
		r.BgGranted = true
		r.AdminEnforcer = &enforcer
		r.AdminRestriction = &bg
	}))

	if snap.Buttons[grant.Deny].Shown {
		t.Error("plain deny hidden when background is pinned")
	}
	if !snap.Buttons[grant.DenyForeground].Shown {
		t.Error("deny_foreground shown when background is pinned")
	}
	if snap.CheckedChoice() != grant.Allow {
		t.Errorf("checked = %q, want %q", snap.CheckedChoice(), grant.Allow)
	}
	if detail == nil || detail.Message != grant.MsgBackgroundOnly {
		t.Errorf("detail = %+v, want background-only note", detail)
	}
}

// Property: no reachable record ever computes to a snapshot with more than
// one checked button, and checked/enabled imply shown.
func TestComputeSnapshotInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)

	restrictions := []string{"", RestrictAll, RestrictBackground}

	properties.Property("at most one checked, checked/enabled only when shown", prop.ForAll(
		func(fg, bg, hasBg, oneTime, userFixed, defGranted, legacy bool, restrictIdx int) bool {
			rec := record(func(r *store.GrantRecord) {
				r.FgGranted = fg
				r.BgGranted = bg
				r.HasBackground = hasBg
				r.OneTime = oneTime
				r.UserFixed = userFixed
				r.DefaultGranted = defGranted
				r.Legacy = legacy
				if restrictions[restrictIdx] != "" {
					enforcer := "acme-mdm"
					restriction := restrictions[restrictIdx]
					r.AdminEnforcer = &enforcer
					r.AdminRestriction = &restriction
				}
			})
			snap, _, _ := Compute(rec)

			checked := 0
			for _, c := range grant.Choices {
				b := snap.Buttons[c]
				if b.Checked {
					checked++
					if !b.Shown {
						return false
					}
				}
				if b.Enabled && !b.Shown {
					return false
				}
			}
			return checked <= 1
		},
		gen.Bool(), gen.Bool(), gen.Bool(), gen.Bool(), gen.Bool(), gen.Bool(), gen.Bool(),
		gen.IntRange(0, len(restrictions)-1),
	))

	properties.TestingRun(t)
}
