package cli

import (
	"strings"
	"testing"

	"github.com/grantd/grantd/internal/grant"
)

func renderAll(p *Printer, snap *grant.Snapshot, settled bool) {
	for _, c := range grant.Choices {
		p.Apply(c, snap.Buttons[c], settled)
	}
}

func simpleSnapshot(checked grant.Choice) *grant.Snapshot {
	snap := &grant.Snapshot{Buttons: map[grant.Choice]grant.ButtonState{
		grant.Allow: {Shown: true, Enabled: true},
		grant.Ask:   {Shown: true, Enabled: true},
		grant.Deny:  {Shown: true, Enabled: true},
	}}
	b := snap.Buttons[checked]
	b.Checked = true
	snap.Buttons[checked] = b
	return snap
}

func TestPrinterRendersShownChoices(t *testing.T) {
	var out strings.Builder
	p := &Printer{Out: &out}
	renderAll(p, simpleSnapshot(grant.Ask), true)

	got := out.String()
	if !strings.Contains(got, "( ) allow") {
		t.Errorf("missing allow line:\n%s", got)
	}
	if !strings.Contains(got, "(*) ask") {
		t.Errorf("ask not checked:\n%s", got)
	}
	if strings.Contains(got, "allow_always") {
		t.Errorf("hidden choice rendered:\n%s", got)
	}
}

func TestPrinterMarksDisabledChoices(t *testing.T) {
	snap := simpleSnapshot(grant.Allow)
	snap.Buttons[grant.Deny] = grant.ButtonState{Shown: true}

	var out strings.Builder
	p := &Printer{Out: &out}
	renderAll(p, snap, true)

	if !strings.Contains(out.String(), "( ) deny (locked)") {
		t.Errorf("disabled choice not marked:\n%s", out.String())
	}
}

func TestPrinterQuietSuppressesRerenders(t *testing.T) {
	var out strings.Builder
	p := &Printer{Out: &out, Quiet: true}

	renderAll(p, simpleSnapshot(grant.Ask), true)
	first := out.String()

	// A follow-up push with settled=false must not print again.
	renderAll(p, simpleSnapshot(grant.Allow), false)
	if out.String() != first {
		t.Errorf("quiet printer re-rendered:\n%s", out.String())
	}

	// But a settled render still prints.
	renderAll(p, simpleSnapshot(grant.Allow), true)
	if out.String() == first {
		t.Error("quiet printer suppressed a settled render")
	}
}

func TestPrinterDetailAndAdmin(t *testing.T) {
	var out strings.Builder
	p := &Printer{Out: &out}

	p.SetDetail(nil)
	p.SetAdminInfo(nil)
	if out.Len() != 0 {
		t.Errorf("nil detail/admin printed: %q", out.String())
	}

	p.SetDetail(&grant.Detail{Message: grant.MsgOneTime})
	p.SetDetail(&grant.Detail{Message: grant.MsgIndividual, Count: 2})
	p.SetAdminInfo(&grant.AdminInfo{Enforcer: "acme-mdm", Restriction: "all"})
	got := out.String()
	if !strings.Contains(got, "one use only") {
		t.Errorf("detail missing:\n%s", got)
	}
	if !strings.Contains(got, "2 permissions in this group controlled individually") {
		t.Errorf("individual detail missing:\n%s", got)
	}
	if !strings.Contains(got, "managed by acme-mdm (all)") {
		t.Errorf("admin info missing:\n%s", got)
	}
}

func confirmResult(t *testing.T, p *Prompt, w grant.DenyWarning) (confirmed, cancelled bool) {
	t.Helper()
	p.ConfirmDeny(w,
		func() { confirmed = true },
		func() { cancelled = true },
	)
	if confirmed == cancelled {
		t.Fatalf("confirmed=%v cancelled=%v, want exactly one", confirmed, cancelled)
	}
	return confirmed, cancelled
}

func TestPromptInteractiveYes(t *testing.T) {
	var out strings.Builder
	p := &Prompt{
		In:         strings.NewReader("y\n"),
		Out:        &out,
		IsTerminal: func() bool { return true },
	}
	confirmed, _ := confirmResult(t, p, grant.DenyWarning{Message: grant.MsgDefaultGranted})
	if !confirmed {
		t.Error("y should confirm")
	}
	if !strings.Contains(out.String(), "granted by default") {
		t.Errorf("warning text missing:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Deny anyway? [y/N]") {
		t.Errorf("prompt missing:\n%s", out.String())
	}
}

func TestPromptInteractiveDefaultIsNo(t *testing.T) {
	for _, input := range []string{"\n", "n\n", "nope\n"} {
		var out strings.Builder
		p := &Prompt{
			In:         strings.NewReader(input),
			Out:        &out,
			IsTerminal: func() bool { return true },
		}
		_, cancelled := confirmResult(t, p, grant.DenyWarning{Message: grant.MsgLegacyApp})
		if !cancelled {
			t.Errorf("input %q should cancel", input)
		}
	}
}

func TestPromptEOFCancels(t *testing.T) {
	var out strings.Builder
	p := &Prompt{
		In:         strings.NewReader(""),
		Out:        &out,
		IsTerminal: func() bool { return true },
	}
	_, cancelled := confirmResult(t, p, grant.DenyWarning{Message: grant.MsgLegacyApp})
	if !cancelled {
		t.Error("EOF should cancel")
	}
}

func TestPromptNonInteractive(t *testing.T) {
	var out strings.Builder
	p := &Prompt{
		In:         strings.NewReader(""),
		Out:        &out,
		IsTerminal: func() bool { return false },
	}
	_, cancelled := confirmResult(t, p, grant.DenyWarning{Message: grant.MsgDefaultGranted})
	if !cancelled {
		t.Error("non-tty without --yes should cancel")
	}

	out.Reset()
	p.AssumeYes = true
	confirmed, _ := confirmResult(t, p, grant.DenyWarning{Message: grant.MsgDefaultGranted})
	if !confirmed {
		t.Error("non-tty with --yes should confirm")
	}
}
