package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/grantd/grantd/internal/grant"
)

var warningText = map[grant.MessageVariant]string{
	grant.MsgDefaultGranted: "This permission was granted by default. Denying it may break basic functionality.",
	grant.MsgLegacyApp:      "This app was built before runtime permission prompts. Denying may cause it to misbehave.",
}

var detailText = map[grant.MessageVariant]string{
	grant.MsgOneTime:        "Granted for one use only.",
	grant.MsgBackgroundOnly: "Background access is managed by policy.",
}

// Printer renders snapshots as a radio-button list on a writer.
type Printer struct {
	Out io.Writer
	// Quiet suppresses re-renders; only the first settled state prints.
	Quiet   bool
	printed bool
}

func (p *Printer) Apply(c grant.Choice, state grant.ButtonState, settled bool) {
	if p.Quiet && p.printed && !settled {
		return
	}
	if c == grant.Choices[len(grant.Choices)-1] {
		p.printed = true
	}
	if !state.Shown {
		return
	}
	mark := " "
	if state.Checked {
		mark = "*"
	}
	suffix := ""
	if !state.Enabled {
		suffix = " (locked)"
	}
	fmt.Fprintf(p.Out, "  (%s) %s%s\n", mark, c, suffix)
}

func (p *Printer) SetDetail(d *grant.Detail) {
	if d == nil {
		return
	}
	if d.Message == grant.MsgIndividual {
		noun := "permissions"
		if d.Count == 1 {
			noun = "permission"
		}
		fmt.Fprintf(p.Out, "  note: %d %s in this group controlled individually.\n", d.Count, noun)
		return
	}
	if text, ok := detailText[d.Message]; ok {
		fmt.Fprintf(p.Out, "  note: %s\n", text)
	}
}

func (p *Printer) SetAdminInfo(a *grant.AdminInfo) {
	if a == nil {
		return
	}
	fmt.Fprintf(p.Out, "  managed by %s (%s)\n", a.Enforcer, a.Restriction)
}

// Prompt asks the user to confirm a risky denial on the terminal. When
// stdin is not a terminal (scripts, pipes), AssumeYes decides.
type Prompt struct {
	In        io.Reader
	Out       io.Writer
	AssumeYes bool
	// IsTerminal overrides the tty check in tests.
	IsTerminal func() bool
}

func (p *Prompt) ConfirmDeny(w grant.DenyWarning, confirm func(), cancel func()) {
	text, ok := warningText[w.Message]
	if !ok {
		text = "Denying this permission may cause the app to misbehave."
	}
	fmt.Fprintf(p.Out, "\n%s\n", text)

	interactive := p.isTerminal()
	if !interactive {
		if p.AssumeYes {
			confirm()
		} else {
			fmt.Fprintln(p.Out, "not a terminal and --yes not given; keeping current state")
			cancel()
		}
		return
	}

	fmt.Fprint(p.Out, "Deny anyway? [y/N] ")
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil {
		cancel()
		return
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		confirm()
	default:
		cancel()
	}
}

func (p *Prompt) isTerminal() bool {
	if p.IsTerminal != nil {
		return p.IsTerminal()
	}
	f, ok := p.In.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
