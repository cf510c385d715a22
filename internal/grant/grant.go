package grant

import "fmt"

// Choice is one of the mutually exclusive options presented for a
// permission group. Exactly one choice is authoritative at a time per
// (app, group, user).
type Choice string

const (
	Allow           Choice = "allow"
	AllowAlways     Choice = "allow_always"
	AllowForeground Choice = "allow_foreground"
	AskOnce         Choice = "ask_once"
	Ask             Choice = "ask"
	Deny            Choice = "deny"
	DenyForeground  Choice = "deny_foreground"
)

// Choices lists every choice in display order. Renderers and snapshot
// builders iterate this instead of hardcoding the set.
var Choices = []Choice{
	Allow,
	AllowAlways,
	AllowForeground,
	AskOnce,
	Ask,
	Deny,
	DenyForeground,
}

// ParseChoice validates a user-supplied choice string.
func ParseChoice(s string) (Choice, error) {
	for _, c := range Choices {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown choice: %q", s)
}

// ChangeTarget is the scope of a requested grant change.
type ChangeTarget string

const (
	TargetForeground ChangeTarget = "foreground"
	TargetBackground ChangeTarget = "background"
	TargetBoth       ChangeTarget = "both"
)

func ParseTarget(s string) (ChangeTarget, error) {
	switch ChangeTarget(s) {
	case TargetForeground, TargetBackground, TargetBoth:
		return ChangeTarget(s), nil
	}
	return "", fmt.Errorf("unknown change target: %q", s)
}

// Request is the unit sent to the grant authority.
type Request struct {
	Grant     bool         `json:"grant"`
	UserFixed bool         `json:"user_fixed"`
	Target    ChangeTarget `json:"target"`
}

// Result is the outcome code reported when a workflow completes.
type Result string

const (
	GrantedAlways         Result = "granted_always"
	GrantedForegroundOnly Result = "granted_foreground_only"
	Denied                Result = "denied"
	DeniedDoNotAskAgain   Result = "denied_do_not_ask_again"
)

// Outcome is the completion payload delivered to the workflow's caller.
// Result is empty when the workflow ended without the user picking anything
// (navigated away, or the subject's state became unavailable). Session ties
// the outcome back to the workflow instance that produced it.
type Outcome struct {
	Session   string `json:"session"`
	Group     string `json:"group"`
	Result    Result `json:"result,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// Subject identifies one (app, permission group, user) triple. Immutable
// for the lifetime of a workflow.
type Subject struct {
	App   string `json:"app"`
	Group string `json:"group"`
	User  string `json:"user"`
}

func (s Subject) String() string {
	return s.App + "/" + s.Group + "@" + s.User
}

// ButtonState describes how a single choice renders.
type ButtonState struct {
	Shown   bool `json:"shown"`
	Checked bool `json:"checked"`
	Enabled bool `json:"enabled"`
}

// DenyWarning is set on a snapshot when denying would downgrade a
// default-granted permission or one held by an app that predates runtime
// prompts. Workflows must confirm before issuing the deny.
type DenyWarning struct {
	Message MessageVariant `json:"message"`
}

// MessageVariant selects the wording of a warning or detail line. The
// rendering layer owns the actual strings.
type MessageVariant string

const (
	MsgDefaultGranted MessageVariant = "default_granted"
	MsgLegacyApp      MessageVariant = "legacy_app"
	MsgOneTime        MessageVariant = "one_time"
	MsgIndividual     MessageVariant = "individually_controlled"
	MsgBackgroundOnly MessageVariant = "background_only"
)

// Snapshot is the full rendered state for one subject, replaced wholesale
// on every update from the authority.
type Snapshot struct {
	Buttons map[Choice]ButtonState `json:"buttons"`
	// Warning is non-nil when denial choices need confirmation first.
	Warning *DenyWarning `json:"warning,omitempty"`
}

// Clone returns a deep copy so renderers can hold a snapshot without
// aliasing the authority's map.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{Buttons: make(map[Choice]ButtonState, len(s.Buttons))}
	for c, b := range s.Buttons {
		out.Buttons[c] = b
	}
	if s.Warning != nil {
		w := *s.Warning
		out.Warning = &w
	}
	return out
}

// CheckedChoice returns the single checked choice, or "" when nothing is
// checked. Snapshots never carry more than one checked button.
func (s *Snapshot) CheckedChoice() Choice {
	for c, b := range s.Buttons {
		if b.Shown && b.Checked {
			return c
		}
	}
	return ""
}

// Detail is an optional footnote for a subject (e.g. how many permissions
// in the group are individually controlled).
type Detail struct {
	Message MessageVariant `json:"message"`
	Count   int            `json:"count,omitempty"`
}

// AdminInfo describes the policy that locked a subject's grant state, when
// an admin restriction applies.
type AdminInfo struct {
	Enforcer    string `json:"enforcer"`
	Restriction string `json:"restriction"`
}
