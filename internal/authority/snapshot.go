package authority

import (
	"github.com/grantd/grantd/internal/grant"
	"github.com/grantd/grantd/internal/store"
)

// Admin restriction values.
const (
	// RestrictAll locks the whole subject: buttons render disabled.
	RestrictAll = "all"
	// RestrictBackground pins the background half: the user may only
	// change the foreground grant.
	RestrictBackground = "background"
)

// Compute turns a stored record into the pushed state triple. A nil record
// yields a nil snapshot, which subscribers treat as "state gone".
//
// Which buttons appear:
//   - no background permission: allow / ask / deny
//   - background permission:    allow_always / allow_foreground / ask / deny
//   - one-time state adds the inert ask_once button, checked
//   - background pinned by admin: deny becomes deny_foreground and the
//     always/foreground split collapses to plain allow
//
// Exactly one shown button is checked. When the subject is admin locked,
// every shown button renders disabled.
func Compute(rec *store.GrantRecord) (*grant.Snapshot, *grant.Detail, *grant.AdminInfo) {
	if rec == nil {
		return nil, nil, nil
	}

	restriction := ""
	if rec.AdminRestriction != nil {
		restriction = *rec.AdminRestriction
	}

	shown := make(map[grant.Choice]bool)
	bgPinned := restriction == RestrictBackground
	switch {
	case !rec.HasBackground:
		shown[grant.Allow] = true
		shown[grant.Ask] = true
		shown[grant.Deny] = true
	case bgPinned:
		shown[grant.Allow] = true
		shown[grant.Ask] = true
		shown[grant.DenyForeground] = true
	default:
		shown[grant.AllowAlways] = true
		shown[grant.AllowForeground] = true
		shown[grant.Ask] = true
		shown[grant.Deny] = true
	}
	if rec.OneTime {
		shown[grant.AskOnce] = true
	}

	checked := checkedChoice(rec, bgPinned)
	enabled := restriction != RestrictAll

	snap := &grant.Snapshot{Buttons: make(map[grant.Choice]grant.ButtonState, len(grant.Choices))}
	for _, c := range grant.Choices {
		snap.Buttons[c] = grant.ButtonState{
			Shown:   shown[c],
			Checked: shown[c] && c == checked,
			Enabled: shown[c] && enabled,
		}
	}

	if rec.FgGranted || rec.BgGranted {
		switch {
		case rec.DefaultGranted:
			snap.Warning = &grant.DenyWarning{Message: grant.MsgDefaultGranted}
		case rec.Legacy:
			snap.Warning = &grant.DenyWarning{Message: grant.MsgLegacyApp}
		}
	}

	var detail *grant.Detail
	switch {
	case rec.OneTime:
		detail = &grant.Detail{Message: grant.MsgOneTime}
	case bgPinned:
		detail = &grant.Detail{Message: grant.MsgBackgroundOnly}
	case rec.Individual > 0:
		detail = &grant.Detail{Message: grant.MsgIndividual, Count: rec.Individual}
	}

	var admin *grant.AdminInfo
	if rec.AdminEnforcer != nil {
		admin = &grant.AdminInfo{Enforcer: *rec.AdminEnforcer, Restriction: restriction}
	}

	return snap, detail, admin
}

func checkedChoice(rec *store.GrantRecord, bgPinned bool) grant.Choice {
	switch {
	case rec.OneTime:
		return grant.AskOnce
	case rec.FgGranted && !rec.HasBackground:
		return grant.Allow
	case rec.FgGranted && bgPinned:
		return grant.Allow
	case rec.FgGranted && rec.BgGranted:
		return grant.AllowAlways
	case rec.FgGranted:
		return grant.AllowForeground
	case rec.UserFixed && bgPinned:
		return grant.DenyForeground
	case rec.UserFixed:
		return grant.Deny
	default:
		return grant.Ask
	}
}
